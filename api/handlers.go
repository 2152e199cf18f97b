/*
handlers.go - HTTP API handlers for the site planner

PURPOSE:
  Exposes the planning engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the planning package.

ENDPOINTS:
  Resources:
    GET    /api/resources                       List resources (?kind=)
    POST   /api/resources                       Create or replace a resource
    GET    /api/resources/{id}                  Resource details
    GET    /api/resources/{id}/utilization      Percent committed on ?day=
    GET    /api/resources/{id}/availability     Per-day capacity ?start=&end=
    GET    /api/resources/{id}/assignments      ?start=&end=&include_cancelled=
    POST   /api/resources/{id}/evaluate         Dry-run a candidate

  Sites:
    GET    /api/sites                           List sites
    POST   /api/sites                           Create or replace a site
    GET    /api/sites/{id}                      Site details
    GET    /api/sites/{id}/assignments          Site schedule
    GET    /api/sites/{id}/costs                Projected cost summary

  Assignments:
    GET    /api/assignments                     Filtered planning view
    POST   /api/assignments                     Schedule
    GET    /api/assignments/{id}                Details
    PUT    /api/assignments/{id}                Replace mutable fields
    DELETE /api/assignments/{id}                Cancel (kept for audit)
    POST   /api/assignments/{id}/cancel         Cancel
    POST   /api/assignments/{id}/status         Lifecycle transition
    GET    /api/assignments/{id}/cost           Projected cost

REQUEST FLOW:
  1. Parse HTTP request
  2. Call the planner / engine / cost projector
  3. Serialize response
  4. Map errors by planning.Kind

ERROR HANDLING:
  Errors are returned as JSON ErrorResponse with:
  - 400: validation
  - 404: not_found
  - 409: overcommit (with conflicts and peak), invalid_transition
  - 422: inactive_resource
  - 500: internal (details logged, not echoed)

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/warp/site-planner/factory"
	"github.com/warp/site-planner/planning"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is the persistence the API needs: assignments, the directory and
// the reset used by scenarios.
type Store interface {
	planning.AssignmentStore
	planning.Catalog
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   Store
	Planner *planning.Planner
	Costs   *planning.CostProjector
	Log     zerolog.Logger

	// Now is the clock used for "today" defaults.
	Now func() time.Time

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler. planner must be built over the same store.
func NewHandler(store Store, planner *planning.Planner, log zerolog.Logger) *Handler {
	return &Handler{
		Store:   store,
		Planner: planner,
		Costs:   planning.NewCostProjector(store, store),
		Log:     log,
		Now:     time.Now,
	}
}

// =============================================================================
// RESOURCE HANDLERS
// =============================================================================

// ListResources returns all resources, optionally of one kind.
func (h *Handler) ListResources(w http.ResponseWriter, r *http.Request) {
	var kind planning.ResourceKind
	if k := r.URL.Query().Get("kind"); k != "" {
		parsed, err := planning.ParseResourceKind(k)
		if err != nil {
			h.writePlanningError(w, err)
			return
		}
		kind = parsed
	}

	resources, err := h.Store.ListResources(r.Context(), kind)
	if err != nil {
		h.writePlanningError(w, err)
		return
	}
	dtos := make([]ResourceDTO, len(resources))
	for i, res := range resources {
		dtos[i] = toResourceDTO(res)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateResource saves a resource. The body uses the catalog schema.
func (h *Handler) CreateResource(w http.ResponseWriter, r *http.Request) {
	var req factory.ResourceJSON
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := req.ToResource()
	if err != nil {
		h.writePlanningError(w, err)
		return
	}
	if err := h.Store.SaveResource(r.Context(), res); err != nil {
		h.writePlanningError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResourceDTO(res))
}

// GetResource returns a single resource.
func (h *Handler) GetResource(w http.ResponseWriter, r *http.Request) {
	res, ok := h.loadResource(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toResourceDTO(res))
}

// GetUtilization returns the combined percent on ?day= (default today).
func (h *Handler) GetUtilization(w http.ResponseWriter, r *http.Request) {
	res, ok := h.loadResource(w, r)
	if !ok {
		return
	}
	day := planning.DayOf(h.Now())
	if s := r.URL.Query().Get("day"); s != "" {
		parsed, err := planning.ParseDay(s)
		if err != nil {
			h.writePlanningError(w, &planning.ValidationError{Field: "day", Message: err.Error()})
			return
		}
		day = parsed
	}

	pct, err := h.Planner.Engine.ComputeUtilization(r.Context(), res.ID, day)
	if err != nil {
		h.writePlanningError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UtilizationDTO{
		ResourceID: string(res.ID),
		Day:        day,
		Percent:    pct,
		Available:  pct < planning.FullCapacity,
	})
}

// GetAvailability returns the per-day capacity picture for ?start=&end=.
func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	res, ok := h.loadResource(w, r)
	if !ok {
		return
	}
	window, err := requiredWindow(r)
	if err != nil {
		h.writePlanningError(w, err)
		return
	}

	report, err := h.Planner.Engine.Availability(r.Context(), res.ID, window)
	if err != nil {
		h.writePlanningError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAvailabilityDTO(report))
}

// GetResourceAssignments lists the resource's assignments.
func (h *Handler) GetResourceAssignments(w http.ResponseWriter, r *http.Request) {
	res, ok := h.loadResource(w, r)
	if !ok {
		return
	}
	q, err := listQuery(r)
	if err != nil {
		h.writePlanningError(w, err)
		return
	}

	as, err := h.Planner.Assignments.ListByResource(r.Context(), res.ID, q)
	if err != nil {
		h.writePlanningError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentDTOs(as))
}

// Evaluate answers "would this fit?" without writing anything. An
// over-ceiling candidate is a normal answer here, returned with 200.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ev, err := h.Planner.Evaluate(r.Context(), planning.Candidate{
		ResourceID:          planning.ResourceID(chi.URLParam(r, "id")),
		Window:              planning.NewWindow(req.Start, req.End),
		Percent:             req.PercentOfCapacity,
		ExcludeAssignmentID: planning.AssignmentID(req.ExcludeAssignmentID),
	})
	if err != nil && !errors.Is(err, planning.ErrOvercommit) {
		h.writePlanningError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEvaluationDTO(ev))
}

// =============================================================================
// SITE HANDLERS
// =============================================================================

func (h *Handler) ListSites(w http.ResponseWriter, r *http.Request) {
	sites, err := h.Store.ListSites(r.Context())
	if err != nil {
		h.writePlanningError(w, err)
		return
	}
	dtos := make([]SiteDTO, len(sites))
	for i, s := range sites {
		dtos[i] = toSiteDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateSite(w http.ResponseWriter, r *http.Request) {
	var req factory.SiteJSON
	if !decodeBody(w, r, &req) {
		return
	}
	site, err := req.ToSite()
	if err != nil {
		h.writePlanningError(w, err)
		return
	}
	if err := h.Store.SaveSite(r.Context(), site); err != nil {
		h.writePlanningError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSiteDTO(site))
}

func (h *Handler) GetSite(w http.ResponseWriter, r *http.Request) {
	site, ok := h.loadSite(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toSiteDTO(site))
}

// GetSiteAssignments lists the site's assignments.
func (h *Handler) GetSiteAssignments(w http.ResponseWriter, r *http.Request) {
	site, ok := h.loadSite(w, r)
	if !ok {
		return
	}
	q, err := listQuery(r)
	if err != nil {
		h.writePlanningError(w, err)
		return
	}

	as, err := h.Planner.Assignments.ListBySite(r.Context(), site.ID, q)
	if err != nil {
		h.writePlanningError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentDTOs(as))
}

// GetSiteCosts returns the projected cost summary of the site.
func (h *Handler) GetSiteCosts(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Costs.SiteCosts(r.Context(), planning.SiteID(chi.URLParam(r, "id")))
	if err != nil {
		h.writePlanningError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSiteCostsDTO(summary))
}

// =============================================================================
// ASSIGNMENT HANDLERS
// =============================================================================

// ListAssignments is the cross-resource planning view.
//
//	?kind=employee,equipment &status=planned &site=a,b
//	&start=&end= &q=text &include_cancelled=true
func (h *Handler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		h.writePlanningError(w, err)
		return
	}
	as, err := h.Planner.Assignments.List(r.Context(), f)
	if err != nil {
		h.writePlanningError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentDTOs(as))
}

// CreateAssignment schedules a new assignment.
func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req CreateAssignmentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	a, ev, err := h.Planner.Schedule(r.Context(), planning.NewAssignment{
		ResourceID:        planning.ResourceID(req.ResourceID),
		SiteID:            planning.SiteID(req.SiteID),
		Title:             req.Title,
		Window:            planning.NewWindow(req.Start, req.End),
		PercentOfCapacity: req.PercentOfCapacity,
		HoursPerDay:       req.HoursPerDay,
		Notes:             req.Notes,
	})
	if err != nil {
		h.writePlanningError(w, err)
		return
	}
	evDTO := toEvaluationDTO(ev)
	writeJSON(w, http.StatusCreated, ScheduleResponse{Assignment: toAssignmentDTO(a), Evaluation: &evDTO})
}

func (h *Handler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	a, err := h.Planner.Assignments.Get(r.Context(), assignmentID(r))
	if err != nil {
		h.writePlanningError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentDTO(a))
}

// UpdateAssignment replaces the mutable fields of an assignment.
func (h *Handler) UpdateAssignment(w http.ResponseWriter, r *http.Request) {
	var req UpdateAssignmentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	a, ev, err := h.Planner.Reschedule(r.Context(), assignmentID(r), planning.Replacement{
		Title:             req.Title,
		Window:            planning.NewWindow(req.Start, req.End),
		PercentOfCapacity: req.PercentOfCapacity,
		HoursPerDay:       req.HoursPerDay,
		Status:            planning.Status(req.Status),
		Notes:             req.Notes,
	})
	if err != nil {
		h.writePlanningError(w, err)
		return
	}
	resp := ScheduleResponse{Assignment: toAssignmentDTO(a)}
	if a.Counts() {
		evDTO := toEvaluationDTO(ev)
		resp.Evaluation = &evDTO
	}
	writeJSON(w, http.StatusOK, resp)
}

// CancelAssignment cancels an assignment. Cancelling twice is not an error.
func (h *Handler) CancelAssignment(w http.ResponseWriter, r *http.Request) {
	a, err := h.Planner.Cancel(r.Context(), assignmentID(r))
	if err != nil {
		h.writePlanningError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentDTO(a))
}

// SetStatus moves an assignment along its lifecycle.
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	status, err := planning.ParseStatus(req.Status)
	if err != nil {
		h.writePlanningError(w, err)
		return
	}
	a, err := h.Planner.Transition(r.Context(), assignmentID(r), status)
	if err != nil {
		h.writePlanningError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentDTO(a))
}

// GetAssignmentCost projects the cost of one assignment.
func (h *Handler) GetAssignmentCost(w http.ResponseWriter, r *http.Request) {
	a, err := h.Planner.Assignments.Get(r.Context(), assignmentID(r))
	if err != nil {
		h.writePlanningError(w, err)
		return
	}
	est, err := h.Costs.Estimate(r.Context(), a)
	if err != nil {
		h.writePlanningError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCostDTO(a.ID, est))
}

// =============================================================================
// HEALTH
// =============================================================================

type pinger interface {
	Ping(ctx context.Context) error
}

// Healthz reports whether the store answers.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.Store.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			h.Log.Error().Err(err).Msg("health check failed")
			writeError(w, http.StatusServiceUnavailable, planning.KindInternal, "store unavailable", nil)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) loadResource(w http.ResponseWriter, r *http.Request) (planning.Resource, bool) {
	id := chi.URLParam(r, "id")
	res, err := h.Store.GetResource(r.Context(), planning.ResourceID(id))
	if err != nil {
		h.writePlanningError(w, err)
		return planning.Resource{}, false
	}
	if res == nil {
		h.writePlanningError(w, &planning.NotFoundError{Entity: "resource", ID: id})
		return planning.Resource{}, false
	}
	return *res, true
}

func (h *Handler) loadSite(w http.ResponseWriter, r *http.Request) (planning.Site, bool) {
	id := chi.URLParam(r, "id")
	site, err := h.Store.GetSite(r.Context(), planning.SiteID(id))
	if err != nil {
		h.writePlanningError(w, err)
		return planning.Site{}, false
	}
	if site == nil {
		h.writePlanningError(w, &planning.NotFoundError{Entity: "site", ID: id})
		return planning.Site{}, false
	}
	return *site, true
}

func assignmentID(r *http.Request) planning.AssignmentID {
	return planning.AssignmentID(chi.URLParam(r, "id"))
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, planning.KindValidation, "Invalid request body", err)
		return false
	}
	return true
}

// optionalWindow reads ?start=&end=. Both or neither must be given.
func optionalWindow(r *http.Request) (*planning.Window, error) {
	start, end := r.URL.Query().Get("start"), r.URL.Query().Get("end")
	if start == "" && end == "" {
		return nil, nil
	}
	if start == "" || end == "" {
		return nil, &planning.ValidationError{Field: "window", Message: "start and end must be given together"}
	}
	s, err := planning.ParseDay(start)
	if err != nil {
		return nil, &planning.ValidationError{Field: "start", Message: err.Error()}
	}
	e, err := planning.ParseDay(end)
	if err != nil {
		return nil, &planning.ValidationError{Field: "end", Message: err.Error()}
	}
	w := planning.NewWindow(s, e)
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &w, nil
}

func requiredWindow(r *http.Request) (planning.Window, error) {
	w, err := optionalWindow(r)
	if err != nil {
		return planning.Window{}, err
	}
	if w == nil {
		return planning.Window{}, &planning.ValidationError{Field: "window", Message: "start and end are required"}
	}
	return *w, nil
}

func listQuery(r *http.Request) (planning.ListQuery, error) {
	w, err := optionalWindow(r)
	if err != nil {
		return planning.ListQuery{}, err
	}
	include, err := boolParam(r, "include_cancelled")
	if err != nil {
		return planning.ListQuery{}, err
	}
	return planning.ListQuery{Window: w, IncludeCancelled: include}, nil
}

func filterFromQuery(r *http.Request) (planning.Filter, error) {
	q := r.URL.Query()
	var f planning.Filter

	for _, k := range splitList(q.Get("kind")) {
		kind, err := planning.ParseResourceKind(k)
		if err != nil {
			return f, err
		}
		f.Kinds = append(f.Kinds, kind)
	}
	for _, s := range splitList(q.Get("status")) {
		status, err := planning.ParseStatus(s)
		if err != nil {
			return f, err
		}
		f.Statuses = append(f.Statuses, status)
	}
	for _, id := range splitList(q.Get("site")) {
		f.SiteIDs = append(f.SiteIDs, planning.SiteID(id))
	}

	w, err := optionalWindow(r)
	if err != nil {
		return f, err
	}
	f.Window = w
	f.Search = q.Get("q")
	if f.IncludeCancelled, err = boolParam(r, "include_cancelled"); err != nil {
		return f, err
	}
	return f, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func boolParam(r *http.Request, name string) (bool, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, &planning.ValidationError{Field: name, Message: "must be true or false"}
	}
	return b, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, kind planning.ErrorKind, message string, err error) {
	resp := ErrorResponse{Error: message, Kind: string(kind)}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind planning.ErrorKind) int {
	switch kind {
	case planning.KindValidation:
		return http.StatusBadRequest
	case planning.KindNotFound:
		return http.StatusNotFound
	case planning.KindInactiveResource:
		return http.StatusUnprocessableEntity
	case planning.KindOvercommit, planning.KindInvalidTransition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writePlanningError renders err by its kind. Internal errors are logged and
// their details are not sent to the client.
func (h *Handler) writePlanningError(w http.ResponseWriter, err error) {
	kind := planning.Kind(err)
	status := statusFor(kind)
	if status == http.StatusInternalServerError {
		h.Log.Error().Err(err).Msg("request failed")
		writeError(w, status, kind, "Internal error", nil)
		return
	}

	resp := ErrorResponse{Error: err.Error(), Kind: string(kind)}
	var ve *planning.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}
	var oe *planning.OvercommitError
	if errors.As(err, &oe) {
		resp.Conflicts = toAssignmentDTOs(oe.Conflicts)
		resp.PeakPercent = oe.ProjectedPeakPercent
		if !oe.PeakDay.IsZero() {
			day := oe.PeakDay
			resp.PeakDay = &day
		}
	}
	writeJSON(w, status, resp)
}
