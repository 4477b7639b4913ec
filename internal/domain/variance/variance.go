// Package variance compares forecast cash amounts with actual invoices.
package variance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/procurement-decisions/internal/domain/entity"
)

// Outcome is the direction of a variance relative to the forecast
type Outcome string

const (
	OutcomeFavorable   Outcome = "favorable"
	OutcomeUnfavorable Outcome = "unfavorable"
	OutcomeMatches     Outcome = "matches"
)

// Severity classifies the size of a variance for alerting only
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityMinor    Severity = "minor"
	SeverityMaterial Severity = "material"
)

// DefaultMaterialThreshold is the absolute delta from which a variance is material
var DefaultMaterialThreshold = decimal.NewFromInt(100)

// Result is the comparison of one forecast against one actual
type Result struct {
	Forecast decimal.Decimal `json:"forecast"`
	Actual   decimal.Decimal `json:"actual"`
	Delta    decimal.Decimal `json:"delta"`
	FlowType entity.FlowType `json:"flow_type"`
	Outcome  Outcome         `json:"outcome"`
	Severity Severity        `json:"severity"`
	// DateSlipDays is actual minus forecast date; positive means later than forecast
	DateSlipDays *int `json:"date_slip_days,omitempty"`
}

// Favorable returns true, false, or nil when the actual matches the forecast
func (r Result) Favorable() *bool {
	if r.Outcome == OutcomeMatches {
		return nil
	}
	v := r.Outcome == OutcomeFavorable
	return &v
}

// Calculator computes variances with a configurable materiality threshold
type Calculator struct {
	threshold decimal.Decimal
}

// NewCalculator returns a calculator; a non-positive threshold selects the default
func NewCalculator(threshold decimal.Decimal) *Calculator {
	if !threshold.IsPositive() {
		threshold = DefaultMaterialThreshold
	}
	return &Calculator{threshold: threshold}
}

// Threshold returns the materiality cutoff in use
func (c *Calculator) Threshold() decimal.Decimal {
	return c.threshold
}

// Compute returns delta = actual - forecast. For inflows a positive delta
// is favorable; for outflows a negative delta is favorable.
func (c *Calculator) Compute(forecast, actual decimal.Decimal, flow entity.FlowType) Result {
	delta := actual.Sub(forecast)
	r := Result{
		Forecast: forecast,
		Actual:   actual,
		Delta:    delta,
		FlowType: flow,
	}

	switch {
	case delta.IsZero():
		r.Outcome = OutcomeMatches
	case (flow == entity.FlowOutflow) == delta.IsNegative():
		r.Outcome = OutcomeFavorable
	default:
		r.Outcome = OutcomeUnfavorable
	}

	switch abs := delta.Abs(); {
	case abs.IsZero():
		r.Severity = SeverityNone
	case abs.GreaterThanOrEqual(c.threshold):
		r.Severity = SeverityMaterial
	default:
		r.Severity = SeverityMinor
	}
	return r
}

// DateSlipDays returns the whole calendar days from forecast to actual
func DateSlipDays(forecast, actual time.Time) int {
	f := time.Date(forecast.Year(), forecast.Month(), forecast.Day(), 0, 0, 0, 0, time.UTC)
	a := time.Date(actual.Year(), actual.Month(), actual.Day(), 0, 0, 0, 0, time.UTC)
	return int(a.Sub(f).Hours() / 24)
}
