/*
Package fleet implements the equipment side of resource planning.

PURPOSE:
  Registers the equipment KindProfile and derives the hourly usage cost of
  a machine from its running-cost inputs.

RULES:
  hoursPerDay  not tracked for machines; always dropped
  cost         days * dailyRate, unknown without a daily rate

SEE ALSO:
  - usage.go: Hourly usage-cost derivation
  - crew/: The employee counterpart
*/
package fleet

import (
	"github.com/shopspring/decimal"
	"github.com/warp/site-planner/planning"
)

// Profile is the equipment KindProfile.
type Profile struct{}

// Compile-time check that Profile implements planning.KindProfile
var _ planning.KindProfile = Profile{}

func init() {
	planning.RegisterKind(Profile{})
}

func (Profile) Kind() planning.ResourceKind { return planning.KindEquipment }

// NormalizeHours drops any daily hours; equipment is booked by the day.
func (Profile) NormalizeHours(*decimal.Decimal) (*decimal.Decimal, error) {
	return nil, nil
}

// Cost prices the assignment at days * dailyRate.
func (Profile) Cost(_ planning.Assignment, r planning.Resource, days int) (decimal.Decimal, bool) {
	if r.DailyRate == nil || r.DailyRate.IsNegative() {
		return decimal.Zero, false
	}
	return r.DailyRate.Mul(decimal.NewFromInt(int64(days))), true
}
