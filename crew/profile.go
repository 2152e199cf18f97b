/*
Package crew implements the employee side of resource planning.

PURPOSE:
  Registers the employee KindProfile: how daily hours are defaulted and
  validated, and how an employee assignment is priced.

RULES:
  hoursPerDay  defaults to DefaultHoursPerDay, must be in (0, MaxHoursPerDay]
  cost         days * hoursPerDay * hourlyRate
               unknown when the resource has no hourly rate

EXAMPLE:
  import _ "github.com/warp/site-planner/crew" // registers the profile

  est := planning.EstimateCost(assignment, employee)
  // 1 day * 8h * 20/h = 160, CostKnown = true

SEE ALSO:
  - planning/registry.go: KindProfile interface
  - fleet/: The equipment counterpart
*/
package crew

import (
	"github.com/shopspring/decimal"
	"github.com/warp/site-planner/planning"
)

const (
	DefaultHoursPerDay = 8
	MaxHoursPerDay     = 24
)

// Profile is the employee KindProfile.
type Profile struct{}

// Compile-time check that Profile implements planning.KindProfile
var _ planning.KindProfile = Profile{}

func init() {
	planning.RegisterKind(Profile{})
}

func (Profile) Kind() planning.ResourceKind { return planning.KindEmployee }

// NormalizeHours applies the default and checks the bounds.
func (Profile) NormalizeHours(hours *decimal.Decimal) (*decimal.Decimal, error) {
	if hours == nil {
		d := decimal.NewFromInt(DefaultHoursPerDay)
		return &d, nil
	}
	if !hours.IsPositive() || hours.GreaterThan(decimal.NewFromInt(MaxHoursPerDay)) {
		return nil, &planning.ValidationError{Field: "hours_per_day", Message: "must be greater than 0 and at most 24"}
	}
	h := *hours
	return &h, nil
}

// Cost prices the assignment at days * hoursPerDay * hourlyRate.
func (p Profile) Cost(a planning.Assignment, r planning.Resource, days int) (decimal.Decimal, bool) {
	if r.HourlyRate == nil || r.HourlyRate.IsNegative() {
		return decimal.Zero, false
	}
	hours := a.HoursPerDay
	if hours == nil {
		var err error
		if hours, err = p.NormalizeHours(nil); err != nil {
			return decimal.Zero, false
		}
	}
	return DailyCost(*hours, *r.HourlyRate).Mul(decimal.NewFromInt(int64(days))), true
}

// DailyCost is the cost of one working day.
func DailyCost(hoursPerDay, hourlyRate decimal.Decimal) decimal.Decimal {
	return hoursPerDay.Mul(hourlyRate)
}
