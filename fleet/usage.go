package fleet

import (
	"github.com/shopspring/decimal"
	"github.com/warp/site-planner/planning"
)

// UsageBreakdown is the hourly cost of running a machine. Terms whose inputs
// are missing are nil. Values are rounded to 2 decimals.
type UsageBreakdown struct {
	FuelPerHour         *decimal.Decimal
	MaintenancePerHour  *decimal.Decimal
	AmortizationPerHour *decimal.Decimal
	OperatorPerHour     *decimal.Decimal

	// Total sums the known terms; nil when nothing is known or the sum is 0.
	Total *decimal.Decimal
}

// Known reports whether a usage cost could be derived.
func (u UsageBreakdown) Known() bool { return u.Total != nil }

// UsageCost derives the hourly usage cost:
//
//	fuel         = litres/hour * price/litre
//	maintenance  = annual maintenance / annual working hours
//	amortization = total amortization / annual working hours
//	operator     = operator hourly rate
//
// Each term is null-safe: missing inputs (or zero working hours) leave it out.
func UsageCost(p *planning.EquipmentProfile) UsageBreakdown {
	var u UsageBreakdown
	if p == nil {
		return u
	}

	if p.FuelLitresPerHour != nil && p.FuelPricePerLitre != nil {
		u.FuelPerHour = round(p.FuelLitresPerHour.Mul(*p.FuelPricePerLitre))
	}
	if p.AnnualWorkingHours != nil && *p.AnnualWorkingHours > 0 {
		hours := decimal.NewFromInt(int64(*p.AnnualWorkingHours))
		if p.AnnualMaintenanceCost != nil {
			u.MaintenancePerHour = round(p.AnnualMaintenanceCost.Div(hours))
		}
		if p.AmortizationTotal != nil {
			u.AmortizationPerHour = round(p.AmortizationTotal.Div(hours))
		}
	}
	if p.OperatorHourlyRate != nil {
		u.OperatorPerHour = round(*p.OperatorHourlyRate)
	}

	total := decimal.Zero
	for _, term := range []*decimal.Decimal{u.FuelPerHour, u.MaintenancePerHour, u.AmortizationPerHour, u.OperatorPerHour} {
		if term != nil {
			total = total.Add(*term)
		}
	}
	if total.IsPositive() {
		u.Total = &total
	}
	return u
}

func round(d decimal.Decimal) *decimal.Decimal {
	r := d.Round(2)
	return &r
}
