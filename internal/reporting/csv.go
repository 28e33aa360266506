package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders anomaly rows as a CSV string.
func RenderCSV(rows []AnomalyRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("symbol,direction,strategy,score,tier,total_volume,call_volume,put_volume,")
	sb.WriteString("contract_ticker,expected_return,risk_factor,time_horizon_days,")
	sb.WriteString("supporting_factors,risk_factors\n")

	// Rows
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%.4f,%s,%d,%d,%d,%s,%.4f,%.4f,%d,%s,%s\n",
			r.Symbol,
			r.Direction,
			r.Kind,
			r.Score,
			r.Tier,
			r.TotalVolume,
			r.CallVolume,
			r.PutVolume,
			r.ContractTicker,
			r.ExpectedReturn,
			r.RiskFactor,
			r.TimeHorizonDays,
			csvList(r.SupportingFactors),
			csvList(r.RiskFactors),
		))
	}

	return sb.String()
}

// csvList joins values with "|" so the column stays a single CSV field.
func csvList(values []string) string {
	return strings.Join(values, "|")
}
