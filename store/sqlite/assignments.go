package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/warp/site-planner/planning"
)

// =============================================================================
// ASSIGNMENT STORE (planning.AssignmentStore interface)
// =============================================================================

const assignmentColumns = `id, resource_id, resource_kind, site_id, title, start_date, end_date,
	percent_of_capacity, hours_per_day, status, notes, created_at, updated_at`

// Insert persists a new assignment.
func (s *Store) Insert(ctx context.Context, a planning.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO assignments (` + assignmentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.ResourceID, a.ResourceKind, a.SiteID,
		nullString(a.Title),
		a.Window.Start.String(), a.Window.End.String(),
		a.PercentOfCapacity,
		nullDecimal(a.HoursPerDay),
		a.Status,
		nullString(a.Notes),
		formatTime(a.CreatedAt), formatTime(a.UpdatedAt),
	)
	switch {
	case err == nil:
		return nil
	case isUniqueConstraintError(err):
		return fmt.Errorf("assignment %q already exists", a.ID)
	case isForeignKeyError(err):
		return &planning.NotFoundError{Entity: "resource or site", ID: string(a.ResourceID) + "/" + string(a.SiteID)}
	default:
		return fmt.Errorf("failed to insert assignment: %w", err)
	}
}

// Replace overwrites the mutable columns of an existing assignment.
func (s *Store) Replace(ctx context.Context, a planning.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE assignments SET
			title = ?, start_date = ?, end_date = ?, percent_of_capacity = ?,
			hours_per_day = ?, status = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := s.db.ExecContext(ctx, query,
		nullString(a.Title),
		a.Window.Start.String(), a.Window.End.String(),
		a.PercentOfCapacity,
		nullDecimal(a.HoursPerDay),
		a.Status,
		nullString(a.Notes),
		formatTime(a.UpdatedAt),
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to replace assignment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to replace assignment: %w", err)
	}
	if n == 0 {
		return &planning.NotFoundError{Entity: "assignment", ID: string(a.ID)}
	}
	return nil
}

// Get retrieves an assignment by ID. Returns nil if it does not exist.
func (s *Store) Get(ctx context.Context, id planning.AssignmentID) (*planning.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found, err := s.queryAssignments(ctx,
		"SELECT "+assignmentColumns+" FROM assignments WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

// ListByResource uses idx_assignments_resource_window for the overlap test
// start_date <= window.End AND end_date >= window.Start.
func (s *Store) ListByResource(ctx context.Context, resourceID planning.ResourceID, q planning.ListQuery) ([]planning.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where, args := listQueryClauses(q)
	where = append([]string{"resource_id = ?"}, where...)
	args = append([]any{resourceID}, args...)
	return s.queryAssignments(ctx,
		"SELECT "+assignmentColumns+" FROM assignments WHERE "+strings.Join(where, " AND ")+" ORDER BY start_date, id",
		args...)
}

func (s *Store) ListBySite(ctx context.Context, siteID planning.SiteID, q planning.ListQuery) ([]planning.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where, args := listQueryClauses(q)
	where = append([]string{"site_id = ?"}, where...)
	args = append([]any{siteID}, args...)
	return s.queryAssignments(ctx,
		"SELECT "+assignmentColumns+" FROM assignments WHERE "+strings.Join(where, " AND ")+" ORDER BY start_date, id",
		args...)
}

// List narrows in SQL on the structured fields and applies the free-text
// search in Go with the same matcher the memory store uses.
func (s *Store) List(ctx context.Context, f planning.Filter) ([]planning.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where := []string{"1 = 1"}
	var args []any
	if len(f.Statuses) > 0 {
		where = append(where, "status IN ("+placeholders(len(f.Statuses))+")")
		for _, st := range f.Statuses {
			args = append(args, st)
		}
	} else if !f.IncludeCancelled {
		where = append(where, "status <> ?")
		args = append(args, planning.StatusCancelled)
	}
	if len(f.Kinds) > 0 {
		where = append(where, "resource_kind IN ("+placeholders(len(f.Kinds))+")")
		for _, k := range f.Kinds {
			args = append(args, k)
		}
	}
	if len(f.SiteIDs) > 0 {
		where = append(where, "site_id IN ("+placeholders(len(f.SiteIDs))+")")
		for _, id := range f.SiteIDs {
			args = append(args, id)
		}
	}
	if f.Window != nil {
		where = append(where, "start_date <= ? AND end_date >= ?")
		args = append(args, f.Window.End.String(), f.Window.Start.String())
	}

	found, err := s.queryAssignments(ctx,
		"SELECT "+assignmentColumns+" FROM assignments WHERE "+strings.Join(where, " AND ")+" ORDER BY start_date, id",
		args...)
	if err != nil {
		return nil, err
	}
	result := found[:0]
	for _, a := range found {
		if f.Matches(a) {
			result = append(result, a)
		}
	}
	return result, nil
}

func listQueryClauses(q planning.ListQuery) ([]string, []any) {
	var where []string
	var args []any
	if !q.IncludeCancelled {
		where = append(where, "status <> ?")
		args = append(args, planning.StatusCancelled)
	}
	if q.Window != nil {
		where = append(where, "start_date <= ?", "end_date >= ?")
		args = append(args, q.Window.End.String(), q.Window.Start.String())
	}
	return where, args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func (s *Store) queryAssignments(ctx context.Context, query string, args ...any) ([]planning.Assignment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	assignments := []planning.Assignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}

	return assignments, rows.Err()
}

func scanAssignment(rows *sql.Rows) (planning.Assignment, error) {
	var (
		a         planning.Assignment
		title     sql.NullString
		startDate string
		endDate   string
		hours     sql.NullString
		notes     sql.NullString
		createdAt string
		updatedAt string
	)

	err := rows.Scan(
		&a.ID, &a.ResourceID, &a.ResourceKind, &a.SiteID, &title,
		&startDate, &endDate, &a.PercentOfCapacity, &hours,
		&a.Status, &notes, &createdAt, &updatedAt,
	)
	if err != nil {
		return a, fmt.Errorf("failed to scan assignment: %w", err)
	}

	if a.Window.Start, err = planning.ParseDay(startDate); err != nil {
		return a, fmt.Errorf("assignment %s: %w", a.ID, err)
	}
	if a.Window.End, err = planning.ParseDay(endDate); err != nil {
		return a, fmt.Errorf("assignment %s: %w", a.ID, err)
	}
	if a.HoursPerDay, err = parseNullDecimal(hours); err != nil {
		return a, fmt.Errorf("assignment %s: %w", a.ID, err)
	}
	a.Title = title.String
	a.Notes = notes.String
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return a, nil
}
