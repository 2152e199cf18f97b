/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the planning model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

CONVENTIONS:
  - Days are "YYYY-MM-DD" strings
  - Money, rates and hours are decimal strings ("20.50")
  - Percentages are integers

VALIDATION:
  Validation is done by the planning package. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/catalog.go: ResourceJSON and SiteJSON (create bodies)
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/site-planner/fleet"
	"github.com/warp/site-planner/planning"
)

// =============================================================================
// RESOURCES & SITES
// =============================================================================

type ResourceDTO struct {
	ID          string           `json:"id"`
	Kind        string           `json:"kind"`
	DisplayName string           `json:"display_name"`
	HourlyRate  *decimal.Decimal `json:"hourly_rate"`
	DailyRate   *decimal.Decimal `json:"daily_rate,omitempty"`
	Active      bool             `json:"active"`
	Usage       *UsageCostDTO    `json:"usage_cost,omitempty"`
}

// UsageCostDTO is the hourly running cost of a machine.
type UsageCostDTO struct {
	FuelPerHour         *decimal.Decimal `json:"fuel_per_hour"`
	MaintenancePerHour  *decimal.Decimal `json:"maintenance_per_hour"`
	AmortizationPerHour *decimal.Decimal `json:"amortization_per_hour"`
	OperatorPerHour     *decimal.Decimal `json:"operator_per_hour"`
	TotalPerHour        *decimal.Decimal `json:"total_per_hour"`
}

type SiteDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

type AssignmentDTO struct {
	ID                string           `json:"id"`
	ResourceID        string           `json:"resource_id"`
	ResourceKind      string           `json:"resource_kind"`
	SiteID            string           `json:"site_id"`
	Title             string           `json:"title,omitempty"`
	Start             planning.Day     `json:"start"`
	End               planning.Day     `json:"end"`
	Days              int              `json:"days"`
	PercentOfCapacity int              `json:"percent_of_capacity"`
	HoursPerDay       *decimal.Decimal `json:"hours_per_day,omitempty"`
	Status            string           `json:"status"`
	Notes             string           `json:"notes,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// CreateAssignmentRequest is the body of POST /api/assignments.
type CreateAssignmentRequest struct {
	ResourceID        string           `json:"resource_id"`
	SiteID            string           `json:"site_id"`
	Title             string           `json:"title"`
	Start             planning.Day     `json:"start"`
	End               planning.Day     `json:"end"`
	PercentOfCapacity int              `json:"percent_of_capacity"`
	HoursPerDay       *decimal.Decimal `json:"hours_per_day"`
	Notes             string           `json:"notes"`
}

// UpdateAssignmentRequest is the body of PUT /api/assignments/{id}. It
// carries the whole mutable set; an empty status keeps the current one.
type UpdateAssignmentRequest struct {
	Title             string           `json:"title"`
	Start             planning.Day     `json:"start"`
	End               planning.Day     `json:"end"`
	PercentOfCapacity int              `json:"percent_of_capacity"`
	HoursPerDay       *decimal.Decimal `json:"hours_per_day"`
	Status            string           `json:"status"`
	Notes             string           `json:"notes"`
}

type StatusRequest struct {
	Status string `json:"status"`
}

// ScheduleResponse is returned by create and update: the stored assignment
// and the evaluation that admitted it.
type ScheduleResponse struct {
	Assignment AssignmentDTO  `json:"assignment"`
	Evaluation *EvaluationDTO `json:"evaluation,omitempty"`
}

// =============================================================================
// AVAILABILITY
// =============================================================================

type EvaluateRequest struct {
	Start               planning.Day `json:"start"`
	End                 planning.Day `json:"end"`
	PercentOfCapacity   int          `json:"percent_of_capacity"`
	ExcludeAssignmentID string       `json:"exclude_assignment_id,omitempty"`
}

type EvaluationDTO struct {
	ResourceID           string          `json:"resource_id"`
	Start                planning.Day    `json:"start"`
	End                  planning.Day    `json:"end"`
	CandidatePercent     int             `json:"candidate_percent"`
	Fits                 bool            `json:"fits"`
	Overcommitted        bool            `json:"overcommitted"`
	ProjectedPeakPercent int             `json:"projected_peak_percent"`
	PeakDay              *planning.Day   `json:"peak_day,omitempty"`
	Conflicts            []AssignmentDTO `json:"conflicts"`
}

type UtilizationDTO struct {
	ResourceID string       `json:"resource_id"`
	Day        planning.Day `json:"day"`
	Percent    int          `json:"percent"`
	Available  bool         `json:"available"`
}

type DayAvailabilityDTO struct {
	Day           planning.Day `json:"date"`
	TotalCapacity int          `json:"total_capacity"`
	UsedPercent   int          `json:"used_percent"`
	Available     bool         `json:"available"`
}

type AvailabilityDTO struct {
	ResourceID         string               `json:"resource_id"`
	Start              planning.Day         `json:"start"`
	End                planning.Day         `json:"end"`
	MeanPercent        float64              `json:"mean_percent"`
	PeakPercent        int                  `json:"peak_percent"`
	OvercommittedDays  int                  `json:"overcommitted_days"`
	FullyAvailableDays int                  `json:"fully_available_days"`
	Days               []DayAvailabilityDTO `json:"days"`
}

// =============================================================================
// COSTS
// =============================================================================

type CostDTO struct {
	AssignmentID string          `json:"assignment_id"`
	Days         int             `json:"days"`
	Amount       decimal.Decimal `json:"amount"`
	CostKnown    bool            `json:"cost_known"`
}

type SiteCostsDTO struct {
	SiteID       string          `json:"site_id"`
	Employees    decimal.Decimal `json:"employees"`
	Equipment    decimal.Decimal `json:"equipment"`
	Total        decimal.Decimal `json:"total"`
	UnknownCount int             `json:"unknown_count"`
	Lines        []CostDTO       `json:"lines"`
}

// =============================================================================
// SCENARIOS & ERRORS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error       string          `json:"error"`
	Kind        string          `json:"kind"`
	Details     string          `json:"details,omitempty"`
	Field       string          `json:"field,omitempty"`
	Conflicts   []AssignmentDTO `json:"conflicts,omitempty"`
	PeakPercent int             `json:"peak_percent,omitempty"`
	PeakDay     *planning.Day   `json:"peak_day,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toResourceDTO(r planning.Resource) ResourceDTO {
	dto := ResourceDTO{
		ID:          string(r.ID),
		Kind:        string(r.Kind),
		DisplayName: r.DisplayName,
		HourlyRate:  r.HourlyRate,
		DailyRate:   r.DailyRate,
		Active:      r.Active,
	}
	if r.Equipment != nil {
		u := fleet.UsageCost(r.Equipment)
		dto.Usage = &UsageCostDTO{
			FuelPerHour:         u.FuelPerHour,
			MaintenancePerHour:  u.MaintenancePerHour,
			AmortizationPerHour: u.AmortizationPerHour,
			OperatorPerHour:     u.OperatorPerHour,
			TotalPerHour:        u.Total,
		}
	}
	return dto
}

func toSiteDTO(s planning.Site) SiteDTO {
	return SiteDTO{ID: string(s.ID), Name: s.Name, Status: s.Status}
}

func toAssignmentDTO(a planning.Assignment) AssignmentDTO {
	return AssignmentDTO{
		ID:                string(a.ID),
		ResourceID:        string(a.ResourceID),
		ResourceKind:      string(a.ResourceKind),
		SiteID:            string(a.SiteID),
		Title:             a.Title,
		Start:             a.Window.Start,
		End:               a.Window.End,
		Days:              a.Window.DayCount(),
		PercentOfCapacity: a.PercentOfCapacity,
		HoursPerDay:       a.HoursPerDay,
		Status:            string(a.Status),
		Notes:             a.Notes,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

func toAssignmentDTOs(as []planning.Assignment) []AssignmentDTO {
	dtos := make([]AssignmentDTO, len(as))
	for i, a := range as {
		dtos[i] = toAssignmentDTO(a)
	}
	return dtos
}

func toEvaluationDTO(ev planning.Evaluation) EvaluationDTO {
	dto := EvaluationDTO{
		ResourceID:           string(ev.ResourceID),
		Start:                ev.Window.Start,
		End:                  ev.Window.End,
		CandidatePercent:     ev.CandidatePercent,
		Fits:                 ev.Fits,
		Overcommitted:        ev.Overcommitted,
		ProjectedPeakPercent: ev.ProjectedPeakPercent,
		Conflicts:            toAssignmentDTOs(ev.Conflicts),
	}
	if !ev.PeakDay.IsZero() {
		day := ev.PeakDay
		dto.PeakDay = &day
	}
	return dto
}

func toAvailabilityDTO(r planning.AvailabilityReport) AvailabilityDTO {
	days := make([]DayAvailabilityDTO, len(r.Days))
	for i, d := range r.Days {
		days[i] = DayAvailabilityDTO{Day: d.Day, TotalCapacity: d.TotalCapacity, UsedPercent: d.UsedPercent, Available: d.Available}
	}
	return AvailabilityDTO{
		ResourceID:         string(r.ResourceID),
		Start:              r.Window.Start,
		End:                r.Window.End,
		MeanPercent:        r.MeanPercent,
		PeakPercent:        r.PeakPercent,
		OvercommittedDays:  r.OvercommittedDays,
		FullyAvailableDays: r.FullyAvailableDays,
		Days:               days,
	}
}

func toCostDTO(id planning.AssignmentID, e planning.CostEstimate) CostDTO {
	return CostDTO{AssignmentID: string(id), Days: e.Days, Amount: e.Amount, CostKnown: e.CostKnown}
}

func toSiteCostsDTO(s planning.SiteCostSummary) SiteCostsDTO {
	lines := make([]CostDTO, len(s.Lines))
	for i, l := range s.Lines {
		lines[i] = toCostDTO(l.Assignment.ID, l.Estimate)
	}
	return SiteCostsDTO{
		SiteID:       string(s.SiteID),
		Employees:    s.Employees,
		Equipment:    s.Equipment,
		Total:        s.Total,
		UnknownCount: s.UnknownCount,
		Lines:        lines,
	}
}
