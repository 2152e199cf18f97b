package planning_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/site-planner/planning"
)

func TestSchedule_AcceptsAndPublishes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mustCreate(t, "emp-1", window("2025-01-01", "2025-01-10"), 60)

	a, ev, err := f.planner.Schedule(ctx, proposal("emp-1", window("2025-01-05", "2025-01-07"), 50))

	require.NoError(t, err)
	assert.Equal(t, 110, ev.ProjectedPeakPercent)
	assert.True(t, ev.Overcommitted)
	assert.Equal(t, []planning.EventType{planning.EventCreated}, f.events.types())
	assert.True(t, f.events.events[0].Overcommitted)
	assert.Equal(t, a.ID, f.events.events[0].Assignment.ID)
	assert.Equal(t, fixedNow, f.events.events[0].At)
	assert.Equal(t, 1, f.metrics.outcomes[planning.OutcomeOvercommitted])
	assert.Equal(t, 1, f.metrics.mutations["create:ok"])
}

func TestSchedule_RejectsOvercommitWithoutPersisting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a1 := f.mustCreate(t, "emp-1", window("2025-01-01", "2025-01-10"), 60)

	_, ev, err := f.planner.Schedule(ctx, proposal("emp-1", window("2025-01-05", "2025-01-07"), 150))

	var oe *planning.OvercommitError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, 210, oe.ProjectedPeakPercent)
	assert.Equal(t, []planning.AssignmentID{a1.ID}, ids(oe.Conflicts))
	assert.Equal(t, 210, ev.ProjectedPeakPercent)

	all, err := f.service.ListByResource(ctx, "emp-1", planning.ListQuery{IncludeCancelled: true})
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Empty(t, f.events.types())
	assert.Equal(t, 1, f.metrics.outcomes[planning.OutcomeRejected])
	assert.Equal(t, 1, f.metrics.mutations["create:error"])
}

func TestSchedule_ValidationBeforeEvaluation(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.planner.Schedule(context.Background(), proposal("emp-gone", window("2025-01-05", "2025-01-07"), 10))

	assert.ErrorIs(t, err, planning.ErrInactiveResource)
	assert.Empty(t, f.metrics.outcomes)
}

func TestSchedule_ConcurrentCallersNeverExceedCeiling(t *testing.T) {
	// GIVEN: 20 concurrent 60% requests for the same resource and window
	f := newFixture(t)
	ctx := context.Background()
	w := window("2025-07-01", "2025-07-05")

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted, rejected := 0, 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := f.planner.Schedule(ctx, proposal("exc-1", w, 60))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, planning.ErrOvercommit):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	// THEN: exactly three fit under 200% (180), the rest are rejected
	assert.Equal(t, 3, accepted)
	assert.Equal(t, 17, rejected)
	for _, d := range w.Days() {
		got, err := f.engine.ComputeUtilization(ctx, "exc-1", d)
		require.NoError(t, err)
		assert.LessOrEqual(t, got, planning.MaxCombinedPercent)
	}
}

func TestReschedule_ExcludesItselfFromEvaluation(t *testing.T) {
	// GIVEN: a 120% assignment alone on the resource
	f := newFixture(t)
	ctx := context.Background()
	a, _, err := f.planner.Schedule(ctx, proposal("emp-1", window("2025-01-01", "2025-01-10"), 120))
	require.NoError(t, err)

	// WHEN: it is raised to 180% in place
	r := planning.ReplacementOf(a)
	r.PercentOfCapacity = 180
	updated, ev, err := f.planner.Reschedule(ctx, a.ID, r)

	// THEN: it does not collide with its own previous version
	require.NoError(t, err)
	assert.Equal(t, 180, updated.PercentOfCapacity)
	assert.Equal(t, 180, ev.ProjectedPeakPercent)
	assert.Equal(t, []planning.EventType{planning.EventCreated, planning.EventUpdated}, f.events.types())
}

func TestReschedule_RejectsOvercommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mustCreate(t, "emp-1", window("2025-01-01", "2025-01-10"), 100)
	b := f.mustCreate(t, "emp-1", window("2025-01-20", "2025-01-25"), 100)

	r := planning.ReplacementOf(b)
	r.Window = window("2025-01-08", "2025-01-12")
	r.PercentOfCapacity = 150
	_, _, err := f.planner.Reschedule(ctx, b.ID, r)

	require.ErrorIs(t, err, planning.ErrOvercommit)
	stored, err := f.service.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.Window, stored.Window)
}

func TestReschedule_CancellingSkipsEvaluation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.mustCreate(t, "emp-1", window("2025-01-01", "2025-01-10"), 100)

	r := planning.ReplacementOf(a)
	r.Status = planning.StatusCancelled
	updated, _, err := f.planner.Reschedule(ctx, a.ID, r)

	require.NoError(t, err)
	assert.Equal(t, planning.StatusCancelled, updated.Status)
	assert.Empty(t, f.metrics.outcomes)
	assert.Equal(t, []planning.EventType{planning.EventCancelled}, f.events.types())
	assert.Equal(t, planning.StatusPlanned, f.events.events[0].Previous)
}

func TestPlannerCancel_PublishesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.mustCreate(t, "emp-1", window("2025-01-01", "2025-01-10"), 60)

	_, err := f.planner.Cancel(ctx, a.ID)
	require.NoError(t, err)
	_, err = f.planner.Cancel(ctx, a.ID)
	require.NoError(t, err)

	assert.Equal(t, []planning.EventType{planning.EventCancelled}, f.events.types())
	assert.Equal(t, 2, f.metrics.mutations["cancel:ok"])
}

func TestPlannerTransition_FullLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.mustCreate(t, "emp-1", window("2025-01-01", "2025-01-10"), 60)

	started, err := f.planner.Transition(ctx, a.ID, planning.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, planning.StatusInProgress, started.Status)

	done, err := f.planner.Transition(ctx, a.ID, planning.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, planning.StatusCompleted, done.Status)

	_, err = f.planner.Transition(ctx, a.ID, planning.StatusInProgress)
	assert.ErrorIs(t, err, planning.ErrInvalidTransition)

	assert.Equal(t, []planning.EventType{planning.EventStatusChanged, planning.EventStatusChanged}, f.events.types())
	assert.Equal(t, planning.StatusInProgress, f.events.events[1].Previous)

	// Completed assignments still occupy capacity
	got, err := f.engine.ComputeUtilization(ctx, "emp-1", day("2025-01-05"))
	require.NoError(t, err)
	assert.Equal(t, 60, got)
}

func TestPlanner_NotifierFailureDoesNotRollBack(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("broker down")

	a, _, err := f.planner.Schedule(context.Background(), proposal("emp-1", window("2025-01-01", "2025-01-02"), 50))

	require.NoError(t, err)
	stored, err := f.service.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, stored.ID)
}

func TestPlannerEvaluate_ChecksResource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.planner.Evaluate(ctx, planning.Candidate{ResourceID: "ghost", Window: window("2025-01-01", "2025-01-02"), Percent: 10})
	assert.ErrorIs(t, err, planning.ErrNotFound)

	ev, err := f.planner.Evaluate(ctx, planning.Candidate{ResourceID: "emp-1", Window: window("2025-01-01", "2025-01-02"), Percent: 10})
	require.NoError(t, err)
	assert.True(t, ev.Fits)
	assert.Equal(t, 1, f.metrics.outcomes[planning.OutcomeFits])
}
