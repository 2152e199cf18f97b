// Package storetest holds the behaviour every planning store must share.
// Store packages run Run from their own tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/site-planner/planning"
)

// Store is the full surface of a planning store.
type Store interface {
	planning.AssignmentStore
	planning.Catalog
	Reset(ctx context.Context) error
}

// Run executes the conformance suite. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("DirectoryRoundTrip", func(t *testing.T) { testDirectoryRoundTrip(t, newStore(t)) })
	t.Run("MissingRecordsAreNil", func(t *testing.T) { testMissingRecordsAreNil(t, newStore(t)) })
	t.Run("InsertGetReplace", func(t *testing.T) { testInsertGetReplace(t, newStore(t)) })
	t.Run("ReplaceUnknown", func(t *testing.T) { testReplaceUnknown(t, newStore(t)) })
	t.Run("OverlapQueries", func(t *testing.T) { testOverlapQueries(t, newStore(t)) })
	t.Run("CancelledRetained", func(t *testing.T) { testCancelledRetained(t, newStore(t)) })
	t.Run("Filter", func(t *testing.T) { testFilter(t, newStore(t)) })
	t.Run("Reset", func(t *testing.T) { testReset(t, newStore(t)) })
}

// =============================================================================
// FIXTURES
// =============================================================================

var created = time.Date(2025, time.January, 2, 8, 30, 0, 0, time.UTC)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func win(start, end string) planning.Window {
	return planning.NewWindow(planning.MustParseDay(start), planning.MustParseDay(end))
}

func seed(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	hours := 1600
	require.NoError(t, s.SaveResource(ctx, planning.Resource{
		ID: "emp-1", Kind: planning.KindEmployee, DisplayName: "Ana Pop", HourlyRate: dec("20.50"), Active: true,
	}))
	require.NoError(t, s.SaveResource(ctx, planning.Resource{
		ID: "exc-1", Kind: planning.KindEquipment, DisplayName: "Excavator", DailyRate: dec("350"), Active: true,
		Equipment: &planning.EquipmentProfile{FuelLitresPerHour: dec("12"), AnnualWorkingHours: &hours},
	}))
	require.NoError(t, s.SaveSite(ctx, planning.Site{ID: "site-a", Name: "Riverside", Status: "active"}))
	require.NoError(t, s.SaveSite(ctx, planning.Site{ID: "site-b", Name: "Hilltop"}))
}

func assignment(id planning.AssignmentID, resource planning.ResourceID, site planning.SiteID, w planning.Window, percent int) planning.Assignment {
	kind := planning.KindEmployee
	var hours *decimal.Decimal
	if resource == "exc-1" {
		kind = planning.KindEquipment
	} else {
		hours = dec("8")
	}
	return planning.Assignment{
		ID: id, ResourceID: resource, ResourceKind: kind, SiteID: site,
		Window: w, PercentOfCapacity: percent, HoursPerDay: hours,
		Status: planning.StatusPlanned, CreatedAt: created, UpdatedAt: created,
	}
}

func ids(as []planning.Assignment) []planning.AssignmentID {
	out := make([]planning.AssignmentID, len(as))
	for i, a := range as {
		out[i] = a.ID
	}
	return out
}

// =============================================================================
// CASES
// =============================================================================

func testDirectoryRoundTrip(t *testing.T, s Store) {
	ctx := context.Background()
	seed(t, s)

	emp, err := s.GetResource(ctx, "emp-1")
	require.NoError(t, err)
	require.NotNil(t, emp)
	assert.Equal(t, planning.KindEmployee, emp.Kind)
	assert.True(t, emp.Active)
	require.NotNil(t, emp.HourlyRate)
	assert.True(t, emp.HourlyRate.Equal(decimal.RequireFromString("20.5")))
	assert.Nil(t, emp.DailyRate)

	exc, err := s.GetResource(ctx, "exc-1")
	require.NoError(t, err)
	require.NotNil(t, exc.Equipment)
	assert.True(t, exc.Equipment.FuelLitresPerHour.Equal(decimal.NewFromInt(12)))
	assert.Equal(t, 1600, *exc.Equipment.AnnualWorkingHours)

	equipment, err := s.ListResources(ctx, planning.KindEquipment)
	require.NoError(t, err)
	require.Len(t, equipment, 1)
	assert.Equal(t, planning.ResourceID("exc-1"), equipment[0].ID)

	all, err := s.ListResources(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	site, err := s.GetSite(ctx, "site-a")
	require.NoError(t, err)
	assert.Equal(t, "Riverside", site.Name)
	assert.Equal(t, "active", site.Status)

	sites, err := s.ListSites(ctx)
	require.NoError(t, err)
	assert.Len(t, sites, 2)

	// Saving again updates in place
	emp.Active = false
	require.NoError(t, s.SaveResource(ctx, *emp))
	emp, err = s.GetResource(ctx, "emp-1")
	require.NoError(t, err)
	assert.False(t, emp.Active)

	err = s.SaveResource(ctx, planning.Resource{ID: "bad", Kind: planning.KindEmployee, HourlyRate: dec("-1")})
	assert.ErrorIs(t, err, planning.ErrValidation)
}

func testMissingRecordsAreNil(t *testing.T, s Store) {
	ctx := context.Background()

	r, err := s.GetResource(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, r)

	site, err := s.GetSite(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, site)

	a, err := s.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, a)
}

func testInsertGetReplace(t *testing.T, s Store) {
	ctx := context.Background()
	seed(t, s)
	a := assignment("a-1", "emp-1", "site-a", win("2025-03-01", "2025-03-05"), 60)
	a.Title = "Formwork"
	a.Notes = "north wing"
	require.NoError(t, s.Insert(ctx, a))

	got, err := s.Get(ctx, "a-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, a.Window, got.Window)
	assert.Equal(t, "Formwork", got.Title)
	assert.Equal(t, "north wing", got.Notes)
	assert.Equal(t, 60, got.PercentOfCapacity)
	assert.True(t, got.HoursPerDay.Equal(decimal.NewFromInt(8)))
	assert.True(t, got.CreatedAt.Equal(created))

	assert.Error(t, s.Insert(ctx, a), "duplicate id")

	a.Window = win("2025-03-10", "2025-03-12")
	a.PercentOfCapacity = 120
	a.Status = planning.StatusInProgress
	a.UpdatedAt = created.Add(time.Hour)
	require.NoError(t, s.Replace(ctx, a))

	got, err = s.Get(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, a.Window, got.Window)
	assert.Equal(t, 120, got.PercentOfCapacity)
	assert.Equal(t, planning.StatusInProgress, got.Status)
	assert.True(t, got.UpdatedAt.Equal(created.Add(time.Hour)))

	// The moved window is what overlap queries see
	old := win("2025-03-01", "2025-03-05")
	found, err := s.ListByResource(ctx, "emp-1", planning.ListQuery{Window: &old})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func testReplaceUnknown(t *testing.T, s Store) {
	seed(t, s)
	err := s.Replace(context.Background(), assignment("ghost", "emp-1", "site-a", win("2025-03-01", "2025-03-05"), 60))
	assert.ErrorIs(t, err, planning.ErrNotFound)
}

func testOverlapQueries(t *testing.T, s Store) {
	// GIVEN:
	//   a-1 [06-01, 06-09]
	//   a-2 [06-10, 06-12]
	//   a-3 [06-13, 06-20]
	//   a-4 [06-10, 06-10]
	ctx := context.Background()
	seed(t, s)
	for _, a := range []planning.Assignment{
		assignment("a-1", "emp-1", "site-a", win("2025-06-01", "2025-06-09"), 10),
		assignment("a-2", "emp-1", "site-a", win("2025-06-10", "2025-06-12"), 10),
		assignment("a-3", "emp-1", "site-b", win("2025-06-13", "2025-06-20"), 10),
		assignment("a-4", "emp-1", "site-b", win("2025-06-10", "2025-06-10"), 10),
		assignment("b-1", "exc-1", "site-a", win("2025-06-10", "2025-06-10"), 10),
	} {
		require.NoError(t, s.Insert(ctx, a))
	}

	tests := []struct {
		window planning.Window
		want   []planning.AssignmentID
	}{
		{win("2025-06-10", "2025-06-10"), []planning.AssignmentID{"a-2", "a-4"}},
		{win("2025-06-09", "2025-06-10"), []planning.AssignmentID{"a-1", "a-2", "a-4"}},
		{win("2025-06-12", "2025-06-13"), []planning.AssignmentID{"a-2", "a-3"}},
		{win("2025-06-21", "2025-06-30"), []planning.AssignmentID{}},
		{win("2025-05-01", "2025-07-01"), []planning.AssignmentID{"a-1", "a-2", "a-4", "a-3"}},
	}
	for _, tt := range tests {
		t.Run(tt.window.String(), func(t *testing.T) {
			w := tt.window
			got, err := s.ListByResource(ctx, "emp-1", planning.ListQuery{Window: &w})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}

	all, err := s.ListByResource(ctx, "emp-1", planning.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, []planning.AssignmentID{"a-1", "a-2", "a-4", "a-3"}, ids(all))

	siteB, err := s.ListBySite(ctx, "site-b", planning.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, []planning.AssignmentID{"a-4", "a-3"}, ids(siteB))
}

func testCancelledRetained(t *testing.T, s Store) {
	ctx := context.Background()
	seed(t, s)
	a := assignment("a-1", "emp-1", "site-a", win("2025-01-01", "2025-01-10"), 60)
	require.NoError(t, s.Insert(ctx, a))
	a.Status = planning.StatusCancelled
	require.NoError(t, s.Replace(ctx, a))

	w := win("2025-01-05", "2025-01-05")
	hidden, err := s.ListByResource(ctx, "emp-1", planning.ListQuery{Window: &w})
	require.NoError(t, err)
	assert.Empty(t, hidden)

	visible, err := s.ListByResource(ctx, "emp-1", planning.ListQuery{Window: &w, IncludeCancelled: true})
	require.NoError(t, err)
	assert.Equal(t, []planning.AssignmentID{"a-1"}, ids(visible))

	bySite, err := s.ListBySite(ctx, "site-a", planning.ListQuery{IncludeCancelled: true})
	require.NoError(t, err)
	assert.Len(t, bySite, 1)

	got, err := s.Get(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, planning.StatusCancelled, got.Status)
}

func testFilter(t *testing.T, s Store) {
	ctx := context.Background()
	seed(t, s)
	a1 := assignment("a-1", "emp-1", "site-a", win("2025-02-01", "2025-02-05"), 50)
	a1.Title = "Rebar tying"
	a2 := assignment("a-2", "exc-1", "site-b", win("2025-02-03", "2025-02-04"), 100)
	a2.Notes = "bring the breaker"
	a3 := assignment("a-3", "emp-1", "site-b", win("2025-03-01", "2025-03-01"), 50)
	a3.Status = planning.StatusCancelled
	for _, a := range []planning.Assignment{a1, a2, a3} {
		require.NoError(t, s.Insert(ctx, a))
	}

	feb := win("2025-02-04", "2025-02-28")
	tests := []struct {
		name   string
		filter planning.Filter
		want   []planning.AssignmentID
	}{
		{"default hides cancelled", planning.Filter{}, []planning.AssignmentID{"a-1", "a-2"}},
		{"include cancelled", planning.Filter{IncludeCancelled: true}, []planning.AssignmentID{"a-1", "a-2", "a-3"}},
		{"by status", planning.Filter{Statuses: []planning.Status{planning.StatusCancelled}}, []planning.AssignmentID{"a-3"}},
		{"by kind", planning.Filter{Kinds: []planning.ResourceKind{planning.KindEquipment}}, []planning.AssignmentID{"a-2"}},
		{"by site", planning.Filter{SiteIDs: []planning.SiteID{"site-b"}, IncludeCancelled: true}, []planning.AssignmentID{"a-2", "a-3"}},
		{"by window", planning.Filter{Window: &feb}, []planning.AssignmentID{"a-1", "a-2"}},
		{"search title", planning.Filter{Search: "rebar"}, []planning.AssignmentID{"a-1"}},
		{"search notes", planning.Filter{Search: "Breaker"}, []planning.AssignmentID{"a-2"}},
		{"no match", planning.Filter{Search: "crane"}, []planning.AssignmentID{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func testReset(t *testing.T, s Store) {
	ctx := context.Background()
	seed(t, s)
	require.NoError(t, s.Insert(ctx, assignment("a-1", "emp-1", "site-a", win("2025-01-01", "2025-01-10"), 60)))

	require.NoError(t, s.Reset(ctx))

	all, err := s.List(ctx, planning.Filter{IncludeCancelled: true})
	require.NoError(t, err)
	assert.Empty(t, all)
	resources, err := s.ListResources(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, resources)
}
