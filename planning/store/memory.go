// Package store provides in-process planning.AssignmentStore and
// planning.Directory implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/site-planner/planning"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	assignments map[planning.AssignmentID]planning.Assignment
	byResource  map[planning.ResourceID][]planning.AssignmentID // ordered by start, then id
	resources   map[planning.ResourceID]planning.Resource
	sites       map[planning.SiteID]planning.Site
}

func NewMemory() *Memory {
	m := &Memory{}
	m.resetLocked()
	return m
}

func (m *Memory) resetLocked() {
	m.assignments = make(map[planning.AssignmentID]planning.Assignment)
	m.byResource = make(map[planning.ResourceID][]planning.AssignmentID)
	m.resources = make(map[planning.ResourceID]planning.Resource)
	m.sites = make(map[planning.SiteID]planning.Site)
}

// Reset drops every record.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
	return nil
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

func (m *Memory) Insert(_ context.Context, a planning.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.assignments[a.ID]; exists {
		return fmt.Errorf("assignment %q already exists", a.ID)
	}
	m.assignments[a.ID] = a
	m.indexLocked(a)
	return nil
}

func (m *Memory) Replace(_ context.Context, a planning.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, exists := m.assignments[a.ID]
	if !exists {
		return &planning.NotFoundError{Entity: "assignment", ID: string(a.ID)}
	}
	m.assignments[a.ID] = a
	if !old.Window.Start.Equal(a.Window.Start) || old.ResourceID != a.ResourceID {
		m.unindexLocked(old)
		m.indexLocked(a)
	}
	return nil
}

// indexLocked inserts a's id at its ordered position. O(log n) search.
func (m *Memory) indexLocked(a planning.Assignment) {
	ids := m.byResource[a.ResourceID]
	i := sort.Search(len(ids), func(i int) bool {
		other := m.assignments[ids[i]]
		if !other.Window.Start.Equal(a.Window.Start) {
			return other.Window.Start.After(a.Window.Start)
		}
		return other.ID > a.ID
	})
	ids = append(ids, "")
	copy(ids[i+1:], ids[i:])
	ids[i] = a.ID
	m.byResource[a.ResourceID] = ids
}

func (m *Memory) unindexLocked(a planning.Assignment) {
	ids := m.byResource[a.ResourceID]
	for i, id := range ids {
		if id == a.ID {
			m.byResource[a.ResourceID] = append(ids[:i], ids[i+1:]...)
			return
		}
	}
}

func (m *Memory) Get(_ context.Context, id planning.AssignmentID) (*planning.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.assignments[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *Memory) ListByResource(_ context.Context, resourceID planning.ResourceID, q planning.ListQuery) ([]planning.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []planning.Assignment{}
	for _, id := range m.byResource[resourceID] {
		a := m.assignments[id]
		// Ordered by start: nothing later can overlap.
		if q.Window != nil && a.Window.Start.After(q.Window.End) {
			break
		}
		if q.Matches(a) {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *Memory) ListBySite(_ context.Context, siteID planning.SiteID, q planning.ListQuery) ([]planning.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []planning.Assignment{}
	for _, a := range m.assignments {
		if a.SiteID == siteID && q.Matches(a) {
			result = append(result, a)
		}
	}
	planning.SortAssignments(result)
	return result, nil
}

func (m *Memory) List(_ context.Context, f planning.Filter) ([]planning.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []planning.Assignment{}
	for _, a := range m.assignments {
		if f.Matches(a) {
			result = append(result, a)
		}
	}
	planning.SortAssignments(result)
	return result, nil
}

// =============================================================================
// DIRECTORY
// =============================================================================

func (m *Memory) SaveResource(_ context.Context, r planning.Resource) error {
	if err := r.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resources[r.ID] = r
	return nil
}

func (m *Memory) GetResource(_ context.Context, id planning.ResourceID) (*planning.Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.resources[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

// ListResources returns resources ordered by id. An empty kind lists all.
func (m *Memory) ListResources(_ context.Context, kind planning.ResourceKind) ([]planning.Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []planning.Resource{}
	for _, r := range m.resources {
		if kind == "" || r.Kind == kind {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) SaveSite(_ context.Context, s planning.Site) error {
	if s.ID == "" {
		return &planning.ValidationError{Field: "id", Message: "site id is required"}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sites[s.ID] = s
	return nil
}

func (m *Memory) GetSite(_ context.Context, id planning.SiteID) (*planning.Site, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sites[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *Memory) ListSites(_ context.Context) ([]planning.Site, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]planning.Site, 0, len(m.sites))
	for _, s := range m.sites {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}
