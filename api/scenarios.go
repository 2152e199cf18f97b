/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	crews, machines and sites. Each scenario demonstrates one behaviour of
	the planner.

AVAILABLE SCENARIOS:

	crew-overlap:   Overlapping crew bookings in the 100-200% advisory band
	fleet-costing:  Machines with and without rates, usage-cost breakdown
	double-shift:   A 150% double shift topped up to exactly 200%
	site-lifecycle: Past, running and future work for the status scheduler

HOW SCENARIOS WORK:
 1. Reset the store (clear all data)
 2. Build a catalog with dates relative to today
 3. Apply it through the factory: resources and sites are saved, then
    every assignment is scheduled through the planner

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "crew-overlap"}

ADDING NEW SCENARIOS:
 1. Add an entry to 'scenarios' with its catalog builder

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - factory/catalog.go: Catalog schema and Apply
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/warp/site-planner/factory"
	"github.com/warp/site-planner/planning"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ScenarioDTO
	build func(today planning.Day) factory.CatalogJSON
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "crew-overlap",
			Name:        "Crew Overlap",
			Description: "A foreman booked on two sites in the same week (110%), plus a free labourer",
			Category:    "crew",
		},
		build: crewOverlapCatalog,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "fleet-costing",
			Name:        "Fleet Costing",
			Description: "Excavator with a daily rate and running-cost profile, crane without a rate",
			Category:    "fleet",
		},
		build: fleetCostingCatalog,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "double-shift",
			Name:        "Double Shift",
			Description: "A 150% double shift on one site and a 50% handover elsewhere: exactly at the 200% ceiling",
			Category:    "crew",
		},
		build: doubleShiftCatalog,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "site-lifecycle",
			Name:        "Site Lifecycle",
			Description: "Finished, running and upcoming work; the status scheduler advances it",
			Category:    "mixed",
		},
		build: siteLifecycleCatalog,
	},
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		dtos[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrentScenario returns the currently loaded scenario, or null.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if s, ok := findScenario(current); ok {
		writeJSON(w, http.StatusOK, s.ScenarioDTO)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the store and loads the requested scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s, ok := findScenario(req.ScenarioID)
	if !ok {
		h.writePlanningError(w, &planning.NotFoundError{Entity: "scenario", ID: req.ScenarioID})
		return
	}

	created, err := h.loadScenario(r.Context(), s)
	if err != nil {
		h.writePlanningError(w, err)
		return
	}
	h.Log.Info().Str("scenario", s.ID).Int("assignments", len(created)).Msg("scenario loaded")

	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"scenario":    s.ScenarioDTO,
		"assignments": toAssignmentDTOs(created),
	})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		h.writePlanningError(w, fmt.Errorf("failed to reset store: %w", err))
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) loadScenario(ctx context.Context, s scenario) ([]planning.Assignment, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(ctx); err != nil {
		return nil, fmt.Errorf("failed to reset store: %w", err)
	}
	h.currentScenario = ""

	cat, err := s.build(planning.DayOf(h.Now())).ToCatalog()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.ID, err)
	}
	created, err := factory.Apply(ctx, cat, h.Store, h.Planner)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.ID, err)
	}
	h.currentScenario = s.ID
	return created, nil
}

// =============================================================================
// CATALOGS
// =============================================================================

func num(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func intPtr(n int) *int { return &n }

func span(today planning.Day, from, to int) (planning.Day, planning.Day) {
	return today.AddDays(from), today.AddDays(to)
}

func booking(resource, site, title string, start, end planning.Day, pct int, hours *decimal.Decimal) factory.AssignmentJSON {
	return factory.AssignmentJSON{
		ResourceID: resource, SiteID: site, Title: title,
		Start: start, End: end, PercentOfCapacity: pct, HoursPerDay: hours,
	}
}

func crewOverlapCatalog(today planning.Day) factory.CatalogJSON {
	s1, e1 := span(today, 7, 16)
	s2, e2 := span(today, 11, 13)
	s3, e3 := span(today, 7, 11)
	return factory.CatalogJSON{
		Resources: []factory.ResourceJSON{
			{ID: "emp-foreman", Kind: "employee", DisplayName: "Ioana Marin (foreman)", HourlyRate: num("32.50")},
			{ID: "emp-labourer", Kind: "employee", DisplayName: "Paul Stan", HourlyRate: num("20")},
		},
		Sites: []factory.SiteJSON{
			{ID: "site-riverside", Name: "Riverside Apartments"},
			{ID: "site-depot", Name: "North Depot Extension"},
		},
		Assignments: []factory.AssignmentJSON{
			booking("emp-foreman", "site-riverside", "Structure supervision", s1, e1, 60, nil),
			booking("emp-foreman", "site-depot", "Foundation inspection", s2, e2, 50, num("4")),
			booking("emp-labourer", "site-riverside", "Formwork", s3, e3, 100, nil),
		},
	}
}

func fleetCostingCatalog(today planning.Day) factory.CatalogJSON {
	s1, e1 := span(today, 3, 7)
	s2, e2 := span(today, 5, 6)
	s3, e3 := span(today, 3, 3)
	return factory.CatalogJSON{
		Resources: []factory.ResourceJSON{
			{
				ID: "exc-cat320", Kind: "equipment", DisplayName: "Excavator CAT 320", DailyRate: num("350"),
				Equipment: &factory.EquipmentJSON{
					FuelLitresPerHour:     num("12"),
					FuelPricePerLitre:     num("1.75"),
					AnnualMaintenanceCost: num("24000"),
					AnnualWorkingHours:    intPtr(1600),
					AmortizationTotal:     num("80000"),
					OperatorHourlyRate:    num("35"),
				},
			},
			{ID: "crane-liebherr", Kind: "equipment", DisplayName: "Tower crane (rate pending)"},
			{ID: "emp-operator", Kind: "employee", DisplayName: "Dan Pop (operator)", HourlyRate: num("20")},
		},
		Sites: []factory.SiteJSON{{ID: "site-mall", Name: "Westgate Mall"}},
		Assignments: []factory.AssignmentJSON{
			booking("exc-cat320", "site-mall", "Excavation", s1, e1, 100, nil),
			booking("crane-liebherr", "site-mall", "Steel erection", s2, e2, 100, nil),
			booking("emp-operator", "site-mall", "Excavator operator", s3, e3, 100, num("8")),
		},
	}
}

func doubleShiftCatalog(today planning.Day) factory.CatalogJSON {
	s1, e1 := span(today, 1, 3)
	s2, e2 := span(today, 3, 3)
	return factory.CatalogJSON{
		Resources: []factory.ResourceJSON{
			{ID: "emp-welder", Kind: "employee", DisplayName: "Mihai Luca (welder)", HourlyRate: num("28")},
		},
		Sites: []factory.SiteJSON{
			{ID: "site-bridge", Name: "Canal Bridge"},
			{ID: "site-yard", Name: "Fabrication Yard"},
		},
		Assignments: []factory.AssignmentJSON{
			booking("emp-welder", "site-bridge", "Night pour support", s1, e1, 150, num("12")),
			booking("emp-welder", "site-yard", "Handover", s2, e2, 50, num("4")),
		},
	}
}

func siteLifecycleCatalog(today planning.Day) factory.CatalogJSON {
	past1, past2 := span(today, -20, -10)
	now1, now2 := span(today, -2, 5)
	next1, next2 := span(today, 10, 20)
	return factory.CatalogJSON{
		Resources: []factory.ResourceJSON{
			{ID: "emp-mason", Kind: "employee", DisplayName: "Elena Radu (mason)", HourlyRate: num("24")},
			{ID: "exc-mini", Kind: "equipment", DisplayName: "Mini excavator", DailyRate: num("180")},
		},
		Sites: []factory.SiteJSON{{ID: "site-school", Name: "Primary School Annex"}},
		Assignments: []factory.AssignmentJSON{
			booking("emp-mason", "site-school", "Foundations", past1, past2, 100, nil),
			booking("exc-mini", "site-school", "Trenching", past1, past2, 100, nil),
			booking("emp-mason", "site-school", "Walls", now1, now2, 100, nil),
			booking("emp-mason", "site-school", "Finishes", next1, next2, 80, nil),
		},
	}
}
