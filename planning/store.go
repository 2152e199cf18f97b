/*
store.go - Persistence interfaces for assignments and the resource directory

PURPOSE:
  Defines the interface between the planning logic and the database.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  AssignmentStore: Assignment records (insert, whole-record replace, queries)
  Directory:       Read access to resources and sites owned by collaborators

NO DELETE:
  Assignments are never removed. Cancellation is a status change, and
  cancelled rows stay queryable with IncludeCancelled for audit and cost
  reports.

OVERLAP QUERIES:
  ListByResource with a window must return exactly the assignments whose
  [Start, End] overlaps it (inclusive on both ends). Implementations should
  back this with an index on (resource_id, start, end).

ORDERING:
  All list operations return assignments ordered by Window.Start ascending,
  then ID ascending.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - planning/store/memory.go: In-memory for testing

SEE ALSO:
  - assignments.go: AssignmentService, the validating layer over the store
*/
package planning

import "context"

// =============================================================================
// ASSIGNMENT STORE
// =============================================================================

// ListQuery narrows a per-resource or per-site listing.
type ListQuery struct {
	// Window keeps only assignments overlapping it; nil means no filter.
	Window *Window

	// IncludeCancelled also returns cancelled assignments.
	IncludeCancelled bool
}

// Filter is the cross-resource query used by planning views.
type Filter struct {
	Kinds            []ResourceKind
	Statuses         []Status
	SiteIDs          []SiteID
	Window           *Window
	Search           string // case-insensitive match on title or notes
	IncludeCancelled bool   // ignored when Statuses is set
}

type AssignmentStore interface {
	// Insert persists a new assignment.
	Insert(ctx context.Context, a Assignment) error

	// Replace overwrites an existing assignment. Returns a NotFoundError if
	// the id is unknown.
	Replace(ctx context.Context, a Assignment) error

	// Get returns the assignment, or nil if it does not exist.
	Get(ctx context.Context, id AssignmentID) (*Assignment, error)

	// ListByResource returns the resource's assignments matching q.
	ListByResource(ctx context.Context, resourceID ResourceID, q ListQuery) ([]Assignment, error)

	// ListBySite returns the site's assignments matching q.
	ListBySite(ctx context.Context, siteID SiteID, q ListQuery) ([]Assignment, error)

	// List returns assignments across resources matching f.
	List(ctx context.Context, f Filter) ([]Assignment, error)
}

// =============================================================================
// DIRECTORY - Resources and sites owned by external collaborators
// =============================================================================

// Directory is read-only from the engine's point of view.
type Directory interface {
	// GetResource returns the resource, or nil if it does not exist.
	GetResource(ctx context.Context, id ResourceID) (*Resource, error)

	// GetSite returns the site, or nil if it does not exist.
	GetSite(ctx context.Context, id SiteID) (*Site, error)
}

// Catalog is the write side of the Directory, used by the collaborators that
// own resources and sites (and by demo scenarios).
type Catalog interface {
	Directory

	// SaveResource creates or replaces a resource after validating it.
	SaveResource(ctx context.Context, r Resource) error

	// SaveSite creates or replaces a site.
	SaveSite(ctx context.Context, s Site) error

	// ListResources returns resources ordered by id. An empty kind lists all.
	ListResources(ctx context.Context, kind ResourceKind) ([]Resource, error)

	// ListSites returns sites ordered by id.
	ListSites(ctx context.Context) ([]Site, error)
}

// Matches applies f to a single assignment. Stores without a query language
// use it directly; SQL stores use it for the free-text part.
func (f Filter) Matches(a Assignment) bool {
	if len(f.Statuses) > 0 {
		if !containsStatus(f.Statuses, a.Status) {
			return false
		}
	} else if !f.IncludeCancelled && !a.Counts() {
		return false
	}
	if len(f.Kinds) > 0 && !containsKind(f.Kinds, a.ResourceKind) {
		return false
	}
	if len(f.SiteIDs) > 0 && !containsSite(f.SiteIDs, a.SiteID) {
		return false
	}
	if f.Window != nil && !a.Window.Overlaps(*f.Window) {
		return false
	}
	if f.Search != "" && !matchesSearch(a, f.Search) {
		return false
	}
	return true
}

// Matches applies q to a single assignment.
func (q ListQuery) Matches(a Assignment) bool {
	if !q.IncludeCancelled && !a.Counts() {
		return false
	}
	if q.Window != nil && !a.Window.Overlaps(*q.Window) {
		return false
	}
	return true
}
