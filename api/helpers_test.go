package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	_ "github.com/warp/site-planner/crew"
	_ "github.com/warp/site-planner/fleet"
	"github.com/warp/site-planner/metrics"
	"github.com/warp/site-planner/planning"
	"github.com/warp/site-planner/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var fixedNow = time.Date(2025, time.January, 6, 9, 0, 0, 0, time.UTC)

type testServer struct {
	store   *sqlite.Store
	handler *Handler
	planner *planning.Planner
	router  http.Handler
	reg     *prometheus.Registry
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err, "failed to create store")
	t.Cleanup(func() { store.Close() })

	reg := prometheus.NewRegistry()
	recorder, err := metrics.NewPromRecorder(reg)
	require.NoError(t, err)
	httpMetrics, err := metrics.NewHTTPMetrics(reg)
	require.NoError(t, err)

	var seq atomic.Int64
	svc := planning.NewAssignmentService(store, store)
	svc.Now = func() time.Time { return fixedNow }
	svc.NewID = func() planning.AssignmentID {
		return planning.AssignmentID(fmt.Sprintf("a-%03d", seq.Add(1)))
	}
	planner := planning.NewPlanner(svc, planning.NewAvailabilityEngine(store),
		planning.WithRecorder(recorder),
		planning.WithClock(func() time.Time { return fixedNow }),
	)

	h := NewHandler(store, planner, zerolog.Nop())
	h.Now = func() time.Time { return fixedNow }

	return &testServer{
		store:   store,
		handler: h,
		planner: planner,
		reg:     reg,
		router: NewRouter(h, RouterOptions{
			AllowedOrigins: []string{"http://localhost:5173"},
			HTTPMetrics:    httpMetrics,
			Gatherer:       reg,
		}),
	}
}

// do sends body (marshalled unless nil or a string) and returns the recorder.
func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// seed creates the resources and sites most tests use:
//
//	emp-1   employee, 20/h
//	emp-2   employee, no rate
//	emp-off employee, inactive
//	exc-1   equipment, 350/day
//	crane-1 equipment, no rate
//	site-a, site-b
func (s *testServer) seed(t *testing.T) {
	t.Helper()
	resources := []string{
		`{"id": "emp-1", "kind": "employee", "display_name": "Ana", "hourly_rate": "20"}`,
		`{"id": "emp-2", "kind": "employee", "display_name": "Bogdan"}`,
		`{"id": "emp-off", "kind": "employee", "display_name": "Retired", "active": false}`,
		`{"id": "exc-1", "kind": "equipment", "display_name": "Excavator", "daily_rate": "350"}`,
		`{"id": "crane-1", "kind": "equipment", "display_name": "Crane"}`,
	}
	for _, body := range resources {
		w := s.do(t, http.MethodPost, "/api/resources", body)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
	for _, body := range []string{`{"id": "site-a", "name": "Riverside"}`, `{"id": "site-b", "name": "Hilltop"}`} {
		w := s.do(t, http.MethodPost, "/api/sites", body)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
}

func proposal(resource, site, start, end string, pct int) map[string]any {
	return map[string]any{
		"resource_id":         resource,
		"site_id":             site,
		"start":               start,
		"end":                 end,
		"percent_of_capacity": pct,
	}
}

// schedule creates an assignment and fails the test unless it is accepted.
func (s *testServer) schedule(t *testing.T, body map[string]any) AssignmentDTO {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/assignments", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[ScheduleResponse](t, w).Assignment
}

func mustDay(s string) planning.Day {
	return planning.MustParseDay(s)
}

func newPreflight(origin string) *http.Request {
	req := httptest.NewRequest(http.MethodOptions, "/api/sites", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	return req
}

func serve(s *testServer, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}
