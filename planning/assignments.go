/*
assignments.go - Validated bookkeeping of assignment records

PURPOSE:
  AssignmentService is the Assignment Store component: it validates
  proposals and replacements, fills in ids, timestamps and defaults, and
  persists through an AssignmentStore. It does NOT check capacity; the
  Planner evaluates overlaps before calling into it.

VALIDATION ORDER (Create):
  1. Required ids present
  2. Window well-formed (end >= start)
  3. Percent within [MinPercent, MaxPercent]
  4. Resource exists and is active, site exists
  5. Daily hours normalized by the resource kind's profile

  Any failure returns before the store is touched.

LIFECYCLE:
  Update replaces every mutable field at once and may change the status
  along a legal transition. Completed and cancelled records are frozen.
  Cancel is idempotent on an already-cancelled record.

SEE ALSO:
  - planner.go: Calls Prepare/PrepareUpdate under the resource lock
  - lifecycle.go: Transition rules
*/
package planning

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AssignmentService validates and persists assignment records.
type AssignmentService struct {
	Store     AssignmentStore
	Directory Directory

	// Now and NewID are replaceable for deterministic tests.
	Now   func() time.Time
	NewID func() AssignmentID
}

func NewAssignmentService(store AssignmentStore, dir Directory) *AssignmentService {
	return &AssignmentService{
		Store:     store,
		Directory: dir,
		Now:       func() time.Time { return time.Now().UTC() },
		NewID:     func() AssignmentID { return AssignmentID(uuid.NewString()) },
	}
}

// =============================================================================
// WRITES
// =============================================================================

// Create validates in and persists it with status planned.
func (s *AssignmentService) Create(ctx context.Context, in NewAssignment) (Assignment, error) {
	a, _, err := s.Prepare(ctx, in)
	if err != nil {
		return Assignment{}, err
	}
	if err := s.Store.Insert(ctx, a); err != nil {
		return Assignment{}, fmt.Errorf("insert assignment: %w", err)
	}
	return a, nil
}

// Prepare validates in and builds the record Create would persist, without
// writing it. The referenced resource is returned for callers that need it.
func (s *AssignmentService) Prepare(ctx context.Context, in NewAssignment) (Assignment, Resource, error) {
	if in.ResourceID == "" {
		return Assignment{}, Resource{}, &ValidationError{Field: "resource_id", Message: "resource id is required"}
	}
	if in.SiteID == "" {
		return Assignment{}, Resource{}, &ValidationError{Field: "site_id", Message: "site id is required"}
	}
	if err := in.Window.Validate(); err != nil {
		return Assignment{}, Resource{}, err
	}
	if err := ValidatePercent(in.PercentOfCapacity); err != nil {
		return Assignment{}, Resource{}, err
	}

	res, err := s.schedulableResource(ctx, in.ResourceID)
	if err != nil {
		return Assignment{}, Resource{}, err
	}
	site, err := s.Directory.GetSite(ctx, in.SiteID)
	if err != nil {
		return Assignment{}, Resource{}, fmt.Errorf("load site: %w", err)
	}
	if site == nil {
		return Assignment{}, Resource{}, &NotFoundError{Entity: "site", ID: string(in.SiteID)}
	}

	hours, err := normalizeHours(res.Kind, in.HoursPerDay)
	if err != nil {
		return Assignment{}, Resource{}, err
	}

	now := s.Now()
	return Assignment{
		ID:                s.NewID(),
		ResourceID:        res.ID,
		ResourceKind:      res.Kind,
		SiteID:            in.SiteID,
		Title:             in.Title,
		Window:            in.Window,
		PercentOfCapacity: in.PercentOfCapacity,
		HoursPerDay:       hours,
		Status:            StatusPlanned,
		Notes:             in.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, res, nil
}

// Update replaces the mutable fields of an assignment after re-validating
// them. Overlap checks are the caller's responsibility.
func (s *AssignmentService) Update(ctx context.Context, id AssignmentID, r Replacement) (Assignment, error) {
	next, _, err := s.PrepareUpdate(ctx, id, r)
	if err != nil {
		return Assignment{}, err
	}
	if err := s.Store.Replace(ctx, next); err != nil {
		return Assignment{}, fmt.Errorf("replace assignment: %w", err)
	}
	return next, nil
}

// PrepareUpdate validates r against the stored record and returns the
// replacement record together with the current one.
func (s *AssignmentService) PrepareUpdate(ctx context.Context, id AssignmentID, r Replacement) (Assignment, Assignment, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return Assignment{}, Assignment{}, err
	}
	status := r.Status
	if status == "" {
		status = current.Status
	}
	if current.Status.Terminal() {
		return Assignment{}, Assignment{}, &InvalidTransitionError{AssignmentID: id, From: current.Status, To: status}
	}
	if status != current.Status {
		if err := checkTransition(id, current.Status, status); err != nil {
			return Assignment{}, Assignment{}, err
		}
	}
	if err := r.Window.Validate(); err != nil {
		return Assignment{}, Assignment{}, err
	}
	if err := ValidatePercent(r.PercentOfCapacity); err != nil {
		return Assignment{}, Assignment{}, err
	}
	hours, err := normalizeHours(current.ResourceKind, r.HoursPerDay)
	if err != nil {
		return Assignment{}, Assignment{}, err
	}

	next := current
	next.Title = r.Title
	next.Window = r.Window
	next.PercentOfCapacity = r.PercentOfCapacity
	next.HoursPerDay = hours
	next.Status = status
	next.Notes = r.Notes
	next.UpdatedAt = s.Now()
	return next, current, nil
}

// Cancel marks the assignment cancelled. Cancelling a cancelled assignment
// returns it unchanged.
func (s *AssignmentService) Cancel(ctx context.Context, id AssignmentID) (Assignment, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	if current.Status == StatusCancelled {
		return current, nil
	}
	return s.moveTo(ctx, current, StatusCancelled)
}

// Transition moves the assignment to status to along a legal edge.
func (s *AssignmentService) Transition(ctx context.Context, id AssignmentID, to Status) (Assignment, error) {
	if to == StatusCancelled {
		return s.Cancel(ctx, id)
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	return s.moveTo(ctx, current, to)
}

func (s *AssignmentService) moveTo(ctx context.Context, current Assignment, to Status) (Assignment, error) {
	if err := checkTransition(current.ID, current.Status, to); err != nil {
		return Assignment{}, err
	}
	next := current
	next.Status = to
	next.UpdatedAt = s.Now()
	if err := s.Store.Replace(ctx, next); err != nil {
		return Assignment{}, fmt.Errorf("replace assignment: %w", err)
	}
	return next, nil
}

// =============================================================================
// READS
// =============================================================================

// Get returns the assignment or a NotFoundError.
func (s *AssignmentService) Get(ctx context.Context, id AssignmentID) (Assignment, error) {
	a, err := s.Store.Get(ctx, id)
	if err != nil {
		return Assignment{}, fmt.Errorf("load assignment: %w", err)
	}
	if a == nil {
		return Assignment{}, &NotFoundError{Entity: "assignment", ID: string(id)}
	}
	return *a, nil
}

// ListByResource returns assignments of the resource overlapping the
// optional window, non-cancelled unless q.IncludeCancelled.
func (s *AssignmentService) ListByResource(ctx context.Context, resourceID ResourceID, q ListQuery) ([]Assignment, error) {
	if q.Window != nil {
		if err := q.Window.Validate(); err != nil {
			return nil, err
		}
	}
	return s.Store.ListByResource(ctx, resourceID, q)
}

// ListBySite returns assignments of the site matching q.
func (s *AssignmentService) ListBySite(ctx context.Context, siteID SiteID, q ListQuery) ([]Assignment, error) {
	if q.Window != nil {
		if err := q.Window.Validate(); err != nil {
			return nil, err
		}
	}
	return s.Store.ListBySite(ctx, siteID, q)
}

// List returns assignments across resources matching f.
func (s *AssignmentService) List(ctx context.Context, f Filter) ([]Assignment, error) {
	if f.Window != nil {
		if err := f.Window.Validate(); err != nil {
			return nil, err
		}
	}
	return s.Store.List(ctx, f)
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *AssignmentService) schedulableResource(ctx context.Context, id ResourceID) (Resource, error) {
	res, err := s.Directory.GetResource(ctx, id)
	if err != nil {
		return Resource{}, fmt.Errorf("load resource: %w", err)
	}
	if res == nil {
		return Resource{}, &NotFoundError{Entity: "resource", ID: string(id)}
	}
	if !res.Active {
		return Resource{}, &InactiveResourceError{ResourceID: id}
	}
	return *res, nil
}

func normalizeHours(kind ResourceKind, hours *decimal.Decimal) (*decimal.Decimal, error) {
	profile := LookupKind(kind)
	if profile == nil {
		return hours, nil
	}
	return profile.NormalizeHours(hours)
}
