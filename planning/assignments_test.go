package planning_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/site-planner/planning"
)

func TestCreate_RoundTrip(t *testing.T) {
	// GIVEN: a valid proposal
	f := newFixture(t)
	ctx := context.Background()
	in := proposal("emp-1", window("2025-02-03", "2025-02-07"), 80)
	in.Title = "Formwork"
	in.Notes = "north wing"

	// WHEN: it is created and listed with a containing window
	a, err := f.service.Create(ctx, in)
	require.NoError(t, err)
	listWindow := window("2025-02-01", "2025-02-28")
	got, err := f.service.ListByResource(ctx, "emp-1", planning.ListQuery{Window: &listWindow})

	// THEN: exactly that assignment comes back, with defaults filled in
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a, got[0])
	assert.Equal(t, planning.AssignmentID("a-001"), a.ID)
	assert.Equal(t, planning.StatusPlanned, a.Status)
	assert.Equal(t, planning.KindEmployee, a.ResourceKind)
	assert.Equal(t, fixedNow, a.CreatedAt)
	require.NotNil(t, a.HoursPerDay)
	assert.True(t, a.HoursPerDay.Equal(decimal.NewFromInt(8)))
}

func TestCreate_EquipmentDropsHours(t *testing.T) {
	f := newFixture(t)
	in := proposal("exc-1", window("2025-02-03", "2025-02-07"), 100)
	in.HoursPerDay = dec("6")

	a, err := f.service.Create(context.Background(), in)

	require.NoError(t, err)
	assert.Nil(t, a.HoursPerDay)
}

func TestCreate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*planning.NewAssignment)
		want   error
	}{
		{"end before start", func(in *planning.NewAssignment) { in.Window = window("2025-02-07", "2025-02-03") }, planning.ErrValidation},
		{"percent zero", func(in *planning.NewAssignment) { in.PercentOfCapacity = 0 }, planning.ErrValidation},
		{"percent above 200", func(in *planning.NewAssignment) { in.PercentOfCapacity = 201 }, planning.ErrValidation},
		{"missing resource id", func(in *planning.NewAssignment) { in.ResourceID = "" }, planning.ErrValidation},
		{"missing site id", func(in *planning.NewAssignment) { in.SiteID = "" }, planning.ErrValidation},
		{"hours above 24", func(in *planning.NewAssignment) { in.HoursPerDay = dec("25") }, planning.ErrValidation},
		{"unknown resource", func(in *planning.NewAssignment) { in.ResourceID = "ghost" }, planning.ErrNotFound},
		{"unknown site", func(in *planning.NewAssignment) { in.SiteID = "nowhere" }, planning.ErrNotFound},
		{"inactive resource", func(in *planning.NewAssignment) { in.ResourceID = "emp-gone" }, planning.ErrInactiveResource},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			in := proposal("emp-1", window("2025-02-03", "2025-02-07"), 50)
			tt.mutate(&in)

			_, err := f.service.Create(ctx, in)

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			all, err := f.service.List(ctx, planning.Filter{IncludeCancelled: true})
			require.NoError(t, err)
			assert.Empty(t, all, "nothing may be persisted on rejection")
		})
	}
}

func TestUpdate_ReplacesMutableFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.mustCreate(t, "emp-1", window("2025-02-03", "2025-02-07"), 50)
	f.service.Now = func() time.Time { return fixedNow.Add(time.Hour) }

	r := planning.ReplacementOf(a)
	r.Window = window("2025-02-10", "2025-02-11")
	r.PercentOfCapacity = 75
	r.HoursPerDay = dec("6")
	r.Notes = "moved"
	updated, err := f.service.Update(ctx, a.ID, r)

	require.NoError(t, err)
	assert.Equal(t, a.ID, updated.ID)
	assert.Equal(t, a.CreatedAt, updated.CreatedAt)
	assert.Equal(t, fixedNow.Add(time.Hour), updated.UpdatedAt)
	assert.Equal(t, 75, updated.PercentOfCapacity)
	assert.Equal(t, "moved", updated.Notes)

	stored, err := f.service.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, stored)
}

func TestUpdate_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.mustCreate(t, "emp-1", window("2025-02-03", "2025-02-07"), 50)

	_, err := f.service.Update(ctx, "missing", planning.ReplacementOf(a))
	assert.ErrorIs(t, err, planning.ErrNotFound)

	bad := planning.ReplacementOf(a)
	bad.Window = window("2025-02-07", "2025-02-01")
	_, err = f.service.Update(ctx, a.ID, bad)
	assert.ErrorIs(t, err, planning.ErrValidation)

	skip := planning.ReplacementOf(a)
	skip.Status = planning.StatusCompleted
	_, err = f.service.Update(ctx, a.ID, skip)
	assert.ErrorIs(t, err, planning.ErrInvalidTransition)

	_, err = f.service.Cancel(ctx, a.ID)
	require.NoError(t, err)
	frozen := planning.ReplacementOf(a)
	frozen.Notes = "too late"
	_, err = f.service.Update(ctx, a.ID, frozen)
	assert.ErrorIs(t, err, planning.ErrInvalidTransition)
}

func TestUpdate_EmptyStatusKeepsCurrent(t *testing.T) {
	f := newFixture(t)
	a := f.mustCreate(t, "emp-1", window("2025-02-03", "2025-02-07"), 50)
	r := planning.ReplacementOf(a)
	r.Status = ""

	updated, err := f.service.Update(context.Background(), a.ID, r)

	require.NoError(t, err)
	assert.Equal(t, planning.StatusPlanned, updated.Status)
}

func TestCancel_Idempotent(t *testing.T) {
	// GIVEN: a cancelled assignment
	f := newFixture(t)
	ctx := context.Background()
	a := f.mustCreate(t, "emp-1", window("2025-02-03", "2025-02-07"), 50)
	first, err := f.service.Cancel(ctx, a.ID)
	require.NoError(t, err)

	// WHEN: it is cancelled again
	second, err := f.service.Cancel(ctx, a.ID)

	// THEN: no error and no state change
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCancel_CompletedIsInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.mustCreate(t, "emp-1", window("2025-02-03", "2025-02-07"), 50)
	_, err := f.service.Transition(ctx, a.ID, planning.StatusInProgress)
	require.NoError(t, err)
	_, err = f.service.Transition(ctx, a.ID, planning.StatusCompleted)
	require.NoError(t, err)

	_, err = f.service.Cancel(ctx, a.ID)

	assert.ErrorIs(t, err, planning.ErrInvalidTransition)
}

func TestCancel_Unknown(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Cancel(context.Background(), "nope")
	assert.ErrorIs(t, err, planning.ErrNotFound)
}

func TestTransition_IllegalMoves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.mustCreate(t, "emp-1", window("2025-02-03", "2025-02-07"), 50)

	_, err := f.service.Transition(ctx, a.ID, planning.StatusCompleted)
	assert.ErrorIs(t, err, planning.ErrInvalidTransition)

	_, err = f.service.Transition(ctx, a.ID, planning.StatusPlanned)
	assert.ErrorIs(t, err, planning.ErrInvalidTransition)
}

func TestListBySite_AndFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.mustCreate(t, "emp-1", window("2025-02-03", "2025-02-07"), 50)
	in := proposal("exc-1", window("2025-02-01", "2025-02-02"), 100)
	in.SiteID = "site-b"
	in.Title = "Trench digging"
	b, err := f.service.Create(ctx, in)
	require.NoError(t, err)
	c := f.mustCreate(t, "crane-1", window("2025-01-20", "2025-01-21"), 100)
	_, err = f.service.Cancel(ctx, c.ID)
	require.NoError(t, err)

	siteA, err := f.service.ListBySite(ctx, "site-a", planning.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, []planning.AssignmentID{a.ID}, ids(siteA))

	siteAAll, err := f.service.ListBySite(ctx, "site-a", planning.ListQuery{IncludeCancelled: true})
	require.NoError(t, err)
	assert.Equal(t, []planning.AssignmentID{c.ID, a.ID}, ids(siteAAll))

	equipment, err := f.service.List(ctx, planning.Filter{Kinds: []planning.ResourceKind{planning.KindEquipment}})
	require.NoError(t, err)
	assert.Equal(t, []planning.AssignmentID{b.ID}, ids(equipment))

	search, err := f.service.List(ctx, planning.Filter{Search: "TRENCH"})
	require.NoError(t, err)
	assert.Equal(t, []planning.AssignmentID{b.ID}, ids(search))

	cancelled, err := f.service.List(ctx, planning.Filter{Statuses: []planning.Status{planning.StatusCancelled}})
	require.NoError(t, err)
	assert.Equal(t, []planning.AssignmentID{c.ID}, ids(cancelled))

	feb := window("2025-02-05", "2025-02-28")
	inFeb, err := f.service.List(ctx, planning.Filter{Window: &feb, SiteIDs: []planning.SiteID{"site-a", "site-b"}})
	require.NoError(t, err)
	assert.Equal(t, []planning.AssignmentID{a.ID}, ids(inFeb))
}
