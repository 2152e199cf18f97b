package crew

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/site-planner/planning"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func employee(rate *decimal.Decimal) planning.Resource {
	return planning.Resource{ID: "emp-1", Kind: planning.KindEmployee, HourlyRate: rate, Active: true}
}

func TestProfile_Registered(t *testing.T) {
	p := planning.LookupKind(planning.KindEmployee)
	require.NotNil(t, p)
	assert.Equal(t, planning.KindEmployee, p.Kind())
}

func TestNormalizeHours(t *testing.T) {
	tests := []struct {
		name    string
		in      *decimal.Decimal
		want    string
		wantErr bool
	}{
		{"default when missing", nil, "8", false},
		{"half day", dec("4.5"), "4.5", false},
		{"upper bound", dec("24"), "24", false},
		{"zero", dec("0"), "", true},
		{"negative", dec("-1"), "", true},
		{"more than a day", dec("24.5"), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Profile{}.NormalizeHours(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, planning.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestEstimateCost_SingleDayEmployee(t *testing.T) {
	// GIVEN: a one-day assignment at 8h/day for an employee paid 20/h
	day := planning.MustParseDay("2025-03-01")
	a := planning.Assignment{
		ResourceKind: planning.KindEmployee,
		Window:       planning.NewWindow(day, day),
		HoursPerDay:  dec("8"),
	}

	// WHEN: the cost is estimated
	est := planning.EstimateCost(a, employee(dec("20")))

	// THEN: 1 * 8 * 20
	assert.True(t, est.CostKnown)
	assert.Equal(t, 1, est.Days)
	assert.True(t, est.Amount.Equal(decimal.NewFromInt(160)), "got %s", est.Amount)
}

func TestEstimateCost_MultiDayInclusive(t *testing.T) {
	a := planning.Assignment{
		ResourceKind: planning.KindEmployee,
		Window:       planning.NewWindow(planning.MustParseDay("2025-03-01"), planning.MustParseDay("2025-03-05")),
		HoursPerDay:  dec("7.5"),
	}

	est := planning.EstimateCost(a, employee(dec("18.40")))

	assert.True(t, est.CostKnown)
	assert.Equal(t, 5, est.Days)
	assert.True(t, est.Amount.Equal(decimal.RequireFromString("690")), "got %s", est.Amount)
}

func TestEstimateCost_MissingRateIsUnknown(t *testing.T) {
	day := planning.MustParseDay("2025-03-01")
	a := planning.Assignment{Window: planning.NewWindow(day, day), HoursPerDay: dec("8")}

	est := planning.EstimateCost(a, employee(nil))

	assert.False(t, est.CostKnown)
	assert.True(t, est.Amount.IsZero())
}

func TestEstimateCost_NegativeRateIsUnknown(t *testing.T) {
	day := planning.MustParseDay("2025-03-01")
	a := planning.Assignment{Window: planning.NewWindow(day, day), HoursPerDay: dec("8")}

	est := planning.EstimateCost(a, employee(dec("-5")))

	assert.False(t, est.CostKnown)
	assert.True(t, est.Amount.IsZero())
}

func TestEstimateCost_MissingHoursUsesDefault(t *testing.T) {
	day := planning.MustParseDay("2025-03-01")
	a := planning.Assignment{Window: planning.NewWindow(day, day.AddDays(1))}

	est := planning.EstimateCost(a, employee(dec("10")))

	assert.True(t, est.CostKnown)
	assert.True(t, est.Amount.Equal(decimal.NewFromInt(160)), "got %s", est.Amount)
}
