package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side identifies the contract side of an option.
type Side string

const (
	SideCall Side = "call"
	SidePut  Side = "put"
)

// ParseSide parses a contract side string. Returns false for anything
// other than "call" or "put".
func ParseSide(s string) (Side, bool) {
	switch Side(s) {
	case SideCall, SidePut:
		return Side(s), true
	default:
		return "", false
	}
}

// OptionObservation is one option contract's most recent session snapshot.
// Corresponds to option_observations table in PostgreSQL.
// Greeks, IV and open interest are nullable: upstream feeds frequently omit
// them, and factor extraction degrades to neutral values when they are missing.
type OptionObservation struct {
	Symbol           string
	ContractTicker   string
	Side             Side
	Strike           decimal.Decimal
	Expiration       time.Time // expiration date, UTC midnight
	SessionVolume    int64
	OpenInterest     *int64
	PrevOpenInterest *int64
	ImpliedVol       *float64
	Delta            *float64
	Gamma            *float64
	Theta            *float64
	Vega             *float64
	UnderlyingPrice  decimal.Decimal // zero when unknown
	AsOf             time.Time
}

// Valid reports whether the observation carries every field scoring requires.
// Invalid observations are skipped with a warning, never scored.
func (o *OptionObservation) Valid() bool {
	if o == nil {
		return false
	}
	if o.Symbol == "" || o.ContractTicker == "" {
		return false
	}
	if o.Side != SideCall && o.Side != SidePut {
		return false
	}
	if o.SessionVolume < 0 || o.Strike.Sign() <= 0 || o.Expiration.IsZero() {
		return false
	}
	return true
}

// DaysToExpiry returns calendar days between asOf's date and expiration.
// Negative for already-expired contracts.
func (o *OptionObservation) DaysToExpiry(asOf time.Time) int {
	return int(o.Expiration.Sub(DateOf(asOf)).Hours() / 24)
}

// IsOTM reports whether the contract is out of the money beyond the given
// threshold (e.g. 0.05 = strike more than 5% beyond the underlying).
// Returns false when the underlying price is unknown.
func (o *OptionObservation) IsOTM(threshold float64) bool {
	if o.UnderlyingPrice.Sign() <= 0 {
		return false
	}
	margin := decimal.NewFromFloat(threshold)
	switch o.Side {
	case SideCall:
		bound := o.UnderlyingPrice.Mul(decimal.NewFromInt(1).Add(margin))
		return o.Strike.GreaterThan(bound)
	case SidePut:
		bound := o.UnderlyingPrice.Mul(decimal.NewFromInt(1).Sub(margin))
		return o.Strike.LessThan(bound)
	default:
		return false
	}
}

// DateOf truncates a timestamp to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
