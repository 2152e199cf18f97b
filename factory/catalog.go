/*
Package factory converts JSON catalogs into planning objects.

PURPOSE:
  Resources and sites are owned by the HR and fleet systems. This package
  lets them (and demo scenarios, and the seed command) hand the planner a
  JSON catalog, validated and converted into planning.Resource,
  planning.Site and assignment proposals.

JSON SCHEMA:
  {
    "resources": [
      {"id": "emp-1", "kind": "employee", "display_name": "Ana Pop",
       "hourly_rate": "20.00"},
      {"id": "exc-1", "kind": "equipment", "display_name": "Excavator",
       "daily_rate": 350,
       "equipment": {"fuel_litres_per_hour": 12, "fuel_price_per_litre": "1.75"}}
    ],
    "sites": [{"id": "site-a", "name": "Riverside", "status": "active"}],
    "assignments": [
      {"resource_id": "emp-1", "site_id": "site-a", "start": "2025-01-01",
       "end": "2025-01-05", "percent_of_capacity": 60, "hours_per_day": 8}
    ]
  }

DEFAULTS:
  - "active" defaults to true
  - "status" of a site defaults to "active"

USAGE:
  cat, err := factory.ParseCatalog(data)
  created, err := factory.Apply(ctx, cat, store, planner)

SEE ALSO:
  - api/scenarios.go: Demo catalogs
  - cmd/server/main.go: The seed command
*/
package factory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/site-planner/planning"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

type CatalogJSON struct {
	Resources   []ResourceJSON   `json:"resources"`
	Sites       []SiteJSON       `json:"sites"`
	Assignments []AssignmentJSON `json:"assignments,omitempty"`
}

type ResourceJSON struct {
	ID          string           `json:"id"`
	Kind        string           `json:"kind"`
	DisplayName string           `json:"display_name"`
	HourlyRate  *decimal.Decimal `json:"hourly_rate,omitempty"`
	DailyRate   *decimal.Decimal `json:"daily_rate,omitempty"`
	Active      *bool            `json:"active,omitempty"`
	Equipment   *EquipmentJSON   `json:"equipment,omitempty"`
}

type EquipmentJSON struct {
	FuelLitresPerHour     *decimal.Decimal `json:"fuel_litres_per_hour,omitempty"`
	FuelPricePerLitre     *decimal.Decimal `json:"fuel_price_per_litre,omitempty"`
	AnnualMaintenanceCost *decimal.Decimal `json:"annual_maintenance_cost,omitempty"`
	AnnualWorkingHours    *int             `json:"annual_working_hours,omitempty"`
	AmortizationTotal     *decimal.Decimal `json:"amortization_total,omitempty"`
	OperatorHourlyRate    *decimal.Decimal `json:"operator_hourly_rate,omitempty"`
}

type SiteJSON struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}

type AssignmentJSON struct {
	ResourceID        string           `json:"resource_id"`
	SiteID            string           `json:"site_id"`
	Title             string           `json:"title,omitempty"`
	Start             planning.Day     `json:"start"`
	End               planning.Day     `json:"end"`
	PercentOfCapacity int              `json:"percent_of_capacity"`
	HoursPerDay       *decimal.Decimal `json:"hours_per_day,omitempty"`
	Notes             string           `json:"notes,omitempty"`
}

// Catalog is a parsed, validated CatalogJSON.
type Catalog struct {
	Resources   []planning.Resource
	Sites       []planning.Site
	Assignments []planning.NewAssignment
}

// =============================================================================
// PARSING
// =============================================================================

// ParseCatalog decodes and validates a catalog. Unknown fields are rejected
// so typos in hand-written files do not silently drop data.
func ParseCatalog(data []byte) (Catalog, error) {
	var raw CatalogJSON
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return Catalog{}, &planning.ValidationError{Field: "catalog", Message: err.Error()}
	}
	return raw.ToCatalog()
}

// ToCatalog validates every entry and checks that ids are unique within
// the catalog.
func (c CatalogJSON) ToCatalog() (Catalog, error) {
	var out Catalog

	seenResources := make(map[string]bool, len(c.Resources))
	for i, rj := range c.Resources {
		r, err := rj.ToResource()
		if err != nil {
			return Catalog{}, fmt.Errorf("resources[%d]: %w", i, err)
		}
		if seenResources[rj.ID] {
			return Catalog{}, &planning.ValidationError{Field: fmt.Sprintf("resources[%d].id", i), Message: "duplicate id " + rj.ID}
		}
		seenResources[rj.ID] = true
		out.Resources = append(out.Resources, r)
	}

	seenSites := make(map[string]bool, len(c.Sites))
	for i, sj := range c.Sites {
		s, err := sj.ToSite()
		if err != nil {
			return Catalog{}, fmt.Errorf("sites[%d]: %w", i, err)
		}
		if seenSites[sj.ID] {
			return Catalog{}, &planning.ValidationError{Field: fmt.Sprintf("sites[%d].id", i), Message: "duplicate id " + sj.ID}
		}
		seenSites[sj.ID] = true
		out.Sites = append(out.Sites, s)
	}

	for i, aj := range c.Assignments {
		na, err := aj.ToNewAssignment()
		if err != nil {
			return Catalog{}, fmt.Errorf("assignments[%d]: %w", i, err)
		}
		out.Assignments = append(out.Assignments, na)
	}
	return out, nil
}

// ToResource converts and validates a single resource.
func (rj ResourceJSON) ToResource() (planning.Resource, error) {
	kind, err := planning.ParseResourceKind(strings.ToLower(strings.TrimSpace(rj.Kind)))
	if err != nil {
		return planning.Resource{}, err
	}
	active := true
	if rj.Active != nil {
		active = *rj.Active
	}
	r := planning.Resource{
		ID:          planning.ResourceID(strings.TrimSpace(rj.ID)),
		Kind:        kind,
		DisplayName: rj.DisplayName,
		HourlyRate:  rj.HourlyRate,
		DailyRate:   rj.DailyRate,
		Active:      active,
	}
	if rj.Equipment != nil {
		if kind != planning.KindEquipment {
			return planning.Resource{}, &planning.ValidationError{Field: "equipment", Message: "only equipment carries an equipment profile"}
		}
		e := rj.Equipment
		if e.AnnualWorkingHours != nil && *e.AnnualWorkingHours < 0 {
			return planning.Resource{}, &planning.ValidationError{Field: "equipment.annual_working_hours", Message: "must not be negative"}
		}
		r.Equipment = &planning.EquipmentProfile{
			FuelLitresPerHour:     e.FuelLitresPerHour,
			FuelPricePerLitre:     e.FuelPricePerLitre,
			AnnualMaintenanceCost: e.AnnualMaintenanceCost,
			AnnualWorkingHours:    e.AnnualWorkingHours,
			AmortizationTotal:     e.AmortizationTotal,
			OperatorHourlyRate:    e.OperatorHourlyRate,
		}
	}
	if err := r.Validate(); err != nil {
		return planning.Resource{}, err
	}
	return r, nil
}

func (sj SiteJSON) ToSite() (planning.Site, error) {
	id := strings.TrimSpace(sj.ID)
	if id == "" {
		return planning.Site{}, &planning.ValidationError{Field: "id", Message: "site id is required"}
	}
	status := sj.Status
	if status == "" {
		status = "active"
	}
	return planning.Site{ID: planning.SiteID(id), Name: sj.Name, Status: status}, nil
}

// ToNewAssignment converts the proposal. Percent and hours are checked by
// the planner when the proposal is scheduled.
func (aj AssignmentJSON) ToNewAssignment() (planning.NewAssignment, error) {
	if aj.Start.IsZero() || aj.End.IsZero() {
		return planning.NewAssignment{}, &planning.ValidationError{Field: "window", Message: "start and end are required"}
	}
	w := planning.NewWindow(aj.Start, aj.End)
	if err := w.Validate(); err != nil {
		return planning.NewAssignment{}, err
	}
	return planning.NewAssignment{
		ResourceID:        planning.ResourceID(aj.ResourceID),
		SiteID:            planning.SiteID(aj.SiteID),
		Title:             aj.Title,
		Window:            w,
		PercentOfCapacity: aj.PercentOfCapacity,
		HoursPerDay:       aj.HoursPerDay,
		Notes:             aj.Notes,
	}, nil
}

// =============================================================================
// APPLYING
// =============================================================================

// Apply saves the catalog's resources and sites, then schedules its
// assignments in order through the planner so every proposal is evaluated.
// It stops at the first rejected proposal and returns what was created so far.
func Apply(ctx context.Context, c Catalog, dir planning.Catalog, p *planning.Planner) ([]planning.Assignment, error) {
	for _, r := range c.Resources {
		if err := dir.SaveResource(ctx, r); err != nil {
			return nil, fmt.Errorf("failed to save resource %s: %w", r.ID, err)
		}
	}
	for _, s := range c.Sites {
		if err := dir.SaveSite(ctx, s); err != nil {
			return nil, fmt.Errorf("failed to save site %s: %w", s.ID, err)
		}
	}
	created := make([]planning.Assignment, 0, len(c.Assignments))
	for i, na := range c.Assignments {
		a, _, err := p.Schedule(ctx, na)
		if err != nil {
			return created, fmt.Errorf("assignments[%d]: %w", i, err)
		}
		created = append(created, a)
	}
	return created, nil
}
