package variance

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/procurement-decisions/internal/domain/entity"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestCompute(t *testing.T) {
	calc := NewCalculator(decimal.Zero)

	tests := []struct {
		name     string
		forecast decimal.Decimal
		actual   decimal.Decimal
		flow     entity.FlowType
		delta    decimal.Decimal
		outcome  Outcome
		severity Severity
	}{
		{"exact match", d(1000), d(1000), entity.FlowInflow, d(0), OutcomeMatches, SeverityNone},
		{"inflow over forecast", d(1000), d(1200), entity.FlowInflow, d(200), OutcomeFavorable, SeverityMaterial},
		{"outflow over forecast", d(1000), d(1200), entity.FlowOutflow, d(200), OutcomeUnfavorable, SeverityMaterial},
		{"inflow under forecast", d(1000), d(950), entity.FlowInflow, d(-50), OutcomeUnfavorable, SeverityMinor},
		{"outflow under forecast", d(1000), d(950), entity.FlowOutflow, d(-50), OutcomeFavorable, SeverityMinor},
		{"delta at threshold is material", d(1000), d(1100), entity.FlowInflow, d(100), OutcomeFavorable, SeverityMaterial},
		{"delta just under threshold", d(1000), d(1099), entity.FlowInflow, d(99), OutcomeFavorable, SeverityMinor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := calc.Compute(tt.forecast, tt.actual, tt.flow)
			assert.True(t, r.Delta.Equal(tt.delta), "delta = %s, want %s", r.Delta, tt.delta)
			assert.Equal(t, tt.outcome, r.Outcome)
			assert.Equal(t, tt.severity, r.Severity)
		})
	}
}

func TestResult_Favorable(t *testing.T) {
	calc := NewCalculator(d(100))

	assert.Nil(t, calc.Compute(d(1000), d(1000), entity.FlowInflow).Favorable())

	fav := calc.Compute(d(1000), d(1200), entity.FlowInflow).Favorable()
	require.NotNil(t, fav)
	assert.True(t, *fav)

	unfav := calc.Compute(d(1000), d(1200), entity.FlowOutflow).Favorable()
	require.NotNil(t, unfav)
	assert.False(t, *unfav)
}

func TestNewCalculator_CustomThreshold(t *testing.T) {
	calc := NewCalculator(d(10))

	assert.True(t, calc.Threshold().Equal(d(10)))
	assert.Equal(t, SeverityMaterial, calc.Compute(d(100), d(111), entity.FlowInflow).Severity)
	assert.True(t, NewCalculator(d(-5)).Threshold().Equal(DefaultMaterialThreshold))
}

func TestDateSlipDays(t *testing.T) {
	forecast := time.Date(2025, time.March, 30, 23, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, DateSlipDays(forecast, time.Date(2025, time.March, 30, 1, 0, 0, 0, time.UTC)))
	assert.Equal(t, 3, DateSlipDays(forecast, time.Date(2025, time.April, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, -30, DateSlipDays(forecast, time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC)))
}
