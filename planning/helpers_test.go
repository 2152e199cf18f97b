package planning_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	_ "github.com/warp/site-planner/crew"
	_ "github.com/warp/site-planner/fleet"
	"github.com/warp/site-planner/planning"
	"github.com/warp/site-planner/planning/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var fixedNow = time.Date(2025, time.January, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store   *store.Memory
	service *planning.AssignmentService
	engine  *planning.AvailabilityEngine
	planner *planning.Planner
	events  *recordingNotifier
	metrics *countingRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()

	resources := []planning.Resource{
		{ID: "emp-1", Kind: planning.KindEmployee, DisplayName: "Ana Pop", HourlyRate: dec("20"), Active: true},
		{ID: "emp-2", Kind: planning.KindEmployee, DisplayName: "Ion Dima", Active: true},
		{ID: "emp-gone", Kind: planning.KindEmployee, DisplayName: "Former Hand", HourlyRate: dec("15"), Active: false},
		{ID: "exc-1", Kind: planning.KindEquipment, DisplayName: "Excavator", DailyRate: dec("350"), Active: true},
		{ID: "crane-1", Kind: planning.KindEquipment, DisplayName: "Crane", Active: true},
	}
	for _, r := range resources {
		require.NoError(t, mem.SaveResource(ctx, r))
	}
	require.NoError(t, mem.SaveSite(ctx, planning.Site{ID: "site-a", Name: "Riverside"}))
	require.NoError(t, mem.SaveSite(ctx, planning.Site{ID: "site-b", Name: "Hilltop"}))

	svc := planning.NewAssignmentService(mem, mem)
	svc.Now = func() time.Time { return fixedNow }
	var seq atomic.Int64
	svc.NewID = func() planning.AssignmentID {
		return planning.AssignmentID(fmt.Sprintf("a-%03d", seq.Add(1)))
	}

	engine := planning.NewAvailabilityEngine(mem)
	events := &recordingNotifier{}
	metrics := &countingRecorder{outcomes: map[string]int{}, mutations: map[string]int{}}
	planner := planning.NewPlanner(svc, engine,
		planning.WithNotifier(events),
		planning.WithRecorder(metrics),
		planning.WithClock(func() time.Time { return fixedNow }),
	)

	return &fixture{store: mem, service: svc, engine: engine, planner: planner, events: events, metrics: metrics}
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func day(s string) planning.Day { return planning.MustParseDay(s) }

func window(start, end string) planning.Window {
	return planning.NewWindow(day(start), day(end))
}

func proposal(resource planning.ResourceID, w planning.Window, percent int) planning.NewAssignment {
	return planning.NewAssignment{ResourceID: resource, SiteID: "site-a", Window: w, PercentOfCapacity: percent}
}

// mustCreate persists an assignment without a capacity check.
func (f *fixture) mustCreate(t *testing.T, resource planning.ResourceID, w planning.Window, percent int) planning.Assignment {
	t.Helper()
	a, err := f.service.Create(context.Background(), proposal(resource, w, percent))
	require.NoError(t, err)
	return a
}

func ids(as []planning.Assignment) []planning.AssignmentID {
	out := make([]planning.AssignmentID, len(as))
	for i, a := range as {
		out[i] = a.ID
	}
	return out
}

// =============================================================================
// HOOK DOUBLES
// =============================================================================

type recordingNotifier struct {
	mu     sync.Mutex
	events []planning.Event
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, e planning.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return n.err
}

func (n *recordingNotifier) types() []planning.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]planning.EventType, len(n.events))
	for i, e := range n.events {
		out[i] = e.Type
	}
	return out
}

type countingRecorder struct {
	mu        sync.Mutex
	outcomes  map[string]int
	mutations map[string]int
}

func (r *countingRecorder) ObserveEvaluation(_ planning.ResourceKind, outcome string, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[outcome]++
}

func (r *countingRecorder) ObserveMutation(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.mutations[op+":"+result]++
}
