package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/site-planner/planning"
	"github.com/warp/site-planner/planning/storetest"
	"github.com/warp/site-planner/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err, "failed to create store")
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLite_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Store {
		return newTestStore(t)
	})
}

func TestSQLite_ForeignKeysEnforced(t *testing.T) {
	// GIVEN: an empty database
	store := newTestStore(t)
	day := planning.MustParseDay("2025-01-01")

	// WHEN: an assignment references a missing resource and site
	err := store.Insert(context.Background(), planning.Assignment{
		ID: "a-1", ResourceID: "ghost", ResourceKind: planning.KindEmployee, SiteID: "nowhere",
		Window: planning.NewWindow(day, day), PercentOfCapacity: 10, Status: planning.StatusPlanned,
	})

	// THEN
	assert.ErrorIs(t, err, planning.ErrNotFound)
}

func TestSQLite_SchemaRejectsInvalidRows(t *testing.T) {
	// The engine validates first; the schema is a second line for direct writers.
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.SaveResource(ctx, planning.Resource{ID: "r", Kind: planning.KindEmployee, DisplayName: "R", Active: true}))
	require.NoError(t, store.SaveSite(ctx, planning.Site{ID: "s", Name: "S"}))

	backwards := planning.NewWindow(planning.MustParseDay("2025-01-05"), planning.MustParseDay("2025-01-01"))
	err := store.Insert(ctx, planning.Assignment{
		ID: "a-1", ResourceID: "r", ResourceKind: planning.KindEmployee, SiteID: "s",
		Window: backwards, PercentOfCapacity: 10, Status: planning.StatusPlanned,
	})
	assert.Error(t, err)

	ok := planning.NewWindow(planning.MustParseDay("2025-01-01"), planning.MustParseDay("2025-01-05"))
	err = store.Insert(ctx, planning.Assignment{
		ID: "a-2", ResourceID: "r", ResourceKind: planning.KindEmployee, SiteID: "s",
		Window: ok, PercentOfCapacity: 250, Status: planning.StatusPlanned,
	})
	assert.Error(t, err)
}

func TestSQLite_Ping(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}
