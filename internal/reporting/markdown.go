package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/Karchensky/insider-trades-sub000/internal/domain"
)

// RenderMarkdown renders the digest as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# Anomaly Digest %s\n\n", r.EventDate.Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Minimum score: %.2f\n\n", r.MinScore))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Records | %d |\n", r.Summary.TotalRecords))
	sb.WriteString(fmt.Sprintf("| Bullish | %d |\n", r.Summary.BullishCount))
	sb.WriteString(fmt.Sprintf("| Bearish | %d |\n", r.Summary.BearishCount))
	sb.WriteString(fmt.Sprintf("| Mixed | %d |\n", r.Summary.MixedCount))
	for _, tier := range []domain.ConvictionTier{domain.TierExtreme, domain.TierHigh, domain.TierMedium, domain.TierLow} {
		if n := r.Summary.TierCounts[tier]; n > 0 {
			sb.WriteString(fmt.Sprintf("| %s Tier | %d |\n", tier, n))
		}
	}
	if r.Summary.TopSymbol != "" {
		sb.WriteString(fmt.Sprintf("| Top Symbol | %s (%.2f) |\n", r.Summary.TopSymbol, r.Summary.TopScore))
	}
	sb.WriteString("\n")

	// Anomalies
	sb.WriteString("## Anomalies\n\n")
	if len(r.Anomalies) > 0 {
		sb.WriteString("| Symbol | Direction | Score | Tier | Volume | Calls | Puts | Contract | ExpRet | Risk | Horizon |\n")
		sb.WriteString("|--------|-----------|-------|------|--------|-------|------|----------|--------|------|--------|\n")
		for _, a := range r.Anomalies {
			contract := a.ContractTicker
			if contract == "" {
				contract = "-"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %.2f | %s | %d | %d | %d | %s | %.2f | %.2f | %dd |\n",
				a.Symbol, a.Direction, a.Score, a.Tier,
				a.TotalVolume, a.CallVolume, a.PutVolume,
				contract, a.ExpectedReturn, a.RiskFactor, a.TimeHorizonDays))
		}
		sb.WriteString("\n")

		// Per-symbol factor detail
		sb.WriteString("## Factor Detail\n\n")
		for _, a := range r.Anomalies {
			sb.WriteString(fmt.Sprintf("### %s (%.2f, %s)\n\n", a.Symbol, a.Score, a.Direction))
			if len(a.SupportingFactors) > 0 {
				sb.WriteString("Supporting factors:\n")
				for _, f := range a.SupportingFactors {
					sb.WriteString(fmt.Sprintf("- %s\n", f))
				}
				sb.WriteString("\n")
			}
			if len(a.RiskFactors) > 0 {
				sb.WriteString("Risk factors:\n")
				for _, f := range a.RiskFactors {
					sb.WriteString(fmt.Sprintf("- %s\n", f))
				}
				sb.WriteString("\n")
			}
		}
	} else {
		sb.WriteString("No anomalies above the score threshold.\n\n")
	}

	return sb.String()
}
