/*
Package planning provides the resource planning and availability engine.

PURPOSE:
  Assigns employees and equipment to job sites over calendar-day windows,
  detects overlapping commitments and quantifies overcommitment as a
  percentage of capacity. Costs are projected on demand from rates.

KEY CONCEPTS IN THIS FILE (types.go):
  - Resource: an employee or a piece of equipment (read-only here)
  - Site: a job site, referenced by id only
  - Assignment: a commitment of a resource to a site for a window
  - Status: the assignment lifecycle (see lifecycle.go)

DESIGN PRINCIPLES:
  1. Derived values (utilization, conflicts, costs) are always recomputed
  2. Precision: rates and hours use decimal.Decimal
  3. Type Safety: distinct id types for resources, sites and assignments
  4. Auditability: cancelled assignments are retained, never deleted

SEE ALSO:
  - availability.go: Utilization, conflicts and candidate evaluation
  - cost.go: Cost projection
  - planner.go: The serialized accept/commit path
*/
package planning

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// POLICY CONSTANTS
// =============================================================================

const (
	// MinPercent and MaxPercent bound a single assignment's share of capacity.
	// Values above FullCapacity represent deliberate double shifts.
	MinPercent = 1
	MaxPercent = 200

	// FullCapacity is the utilization at which a resource is fully booked.
	// A combined peak above it is accepted but flagged as overcommitted.
	FullCapacity = 100

	// MaxCombinedPercent is the hard ceiling on a resource's combined
	// utilization for any single day.
	MaxCombinedPercent = 200
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ResourceID string
type SiteID string
type AssignmentID string

// =============================================================================
// RESOURCE - Supplied by the HR / fleet collaborators
// =============================================================================

// ResourceKind distinguishes people from machines.
type ResourceKind string

const (
	KindEmployee  ResourceKind = "employee"
	KindEquipment ResourceKind = "equipment"
)

func (k ResourceKind) Valid() bool {
	return k == KindEmployee || k == KindEquipment
}

// ParseResourceKind accepts the wire names of the kinds.
func ParseResourceKind(s string) (ResourceKind, error) {
	k := ResourceKind(s)
	if !k.Valid() {
		return "", &ValidationError{Field: "kind", Message: "must be employee or equipment"}
	}
	return k, nil
}

// Resource is a schedulable entity. Rates are optional: a nil rate means the
// cost is unknown, which is a legitimate state.
type Resource struct {
	ID          ResourceID
	Kind        ResourceKind
	DisplayName string
	HourlyRate  *decimal.Decimal
	DailyRate   *decimal.Decimal // equipment only
	Active      bool

	// Equipment carries the optional running-cost inputs for machines.
	Equipment *EquipmentProfile
}

// EquipmentProfile holds the inputs of the hourly usage-cost derivation.
// Every field is optional.
type EquipmentProfile struct {
	FuelLitresPerHour     *decimal.Decimal
	FuelPricePerLitre     *decimal.Decimal
	AnnualMaintenanceCost *decimal.Decimal
	AnnualWorkingHours    *int
	AmortizationTotal     *decimal.Decimal
	OperatorHourlyRate    *decimal.Decimal
}

// Validate checks the invariants the engine relies on.
func (r Resource) Validate() error {
	if r.ID == "" {
		return &ValidationError{Field: "id", Message: "resource id is required"}
	}
	if !r.Kind.Valid() {
		return &ValidationError{Field: "kind", Message: "must be employee or equipment"}
	}
	if r.HourlyRate != nil && r.HourlyRate.IsNegative() {
		return &ValidationError{Field: "hourly_rate", Message: "must not be negative"}
	}
	if r.DailyRate != nil {
		if r.Kind != KindEquipment {
			return &ValidationError{Field: "daily_rate", Message: "only equipment carries a daily rate"}
		}
		if r.DailyRate.IsNegative() {
			return &ValidationError{Field: "daily_rate", Message: "must not be negative"}
		}
	}
	return nil
}

// =============================================================================
// SITE - Destination of an assignment
// =============================================================================

type Site struct {
	ID     SiteID
	Name   string
	Status string
}

// =============================================================================
// ASSIGNMENT - A commitment of a resource to a site
// =============================================================================

type Assignment struct {
	ID           AssignmentID
	ResourceID   ResourceID
	ResourceKind ResourceKind
	SiteID       SiteID
	Title        string
	Window       Window

	// PercentOfCapacity is in [MinPercent, MaxPercent].
	PercentOfCapacity int

	// HoursPerDay is set for employee assignments only.
	HoursPerDay *decimal.Decimal

	Status Status
	Notes  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Counts reports whether the assignment contributes to utilization.
func (a Assignment) Counts() bool {
	return a.Status != StatusCancelled
}

// NewAssignment is the caller's proposal for a new assignment.
type NewAssignment struct {
	ResourceID        ResourceID
	SiteID            SiteID
	Title             string
	Window            Window
	PercentOfCapacity int
	HoursPerDay       *decimal.Decimal
	Notes             string
}

// Replacement carries every mutable field of an assignment. Updates replace
// the whole set; there are no partial capacity edits.
type Replacement struct {
	Title             string
	Window            Window
	PercentOfCapacity int
	HoursPerDay       *decimal.Decimal
	Status            Status
	Notes             string
}

// ReplacementOf returns the current mutable fields of a, as a starting point
// for callers that change only some of them.
func ReplacementOf(a Assignment) Replacement {
	return Replacement{
		Title:             a.Title,
		Window:            a.Window,
		PercentOfCapacity: a.PercentOfCapacity,
		HoursPerDay:       a.HoursPerDay,
		Status:            a.Status,
		Notes:             a.Notes,
	}
}

// ValidatePercent checks the single-assignment bounds.
func ValidatePercent(p int) error {
	if p < MinPercent || p > MaxPercent {
		return &ValidationError{Field: "percent_of_capacity", Message: "must be between 1 and 200"}
	}
	return nil
}
