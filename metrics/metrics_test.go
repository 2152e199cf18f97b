package metrics_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/site-planner/metrics"
	"github.com/warp/site-planner/planning"
)

func TestPromRecorder_Evaluations(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := metrics.NewPromRecorder(reg)
	require.NoError(t, err)

	rec.ObserveEvaluation(planning.KindEmployee, planning.OutcomeFits, 60)
	rec.ObserveEvaluation(planning.KindEmployee, planning.OutcomeFits, 100)
	rec.ObserveEvaluation(planning.KindEquipment, planning.OutcomeRejected, 250)

	expected := `
# HELP planner_evaluations_total Candidate evaluations by resource kind and outcome
# TYPE planner_evaluations_total counter
planner_evaluations_total{kind="employee",outcome="fits"} 2
planner_evaluations_total{kind="equipment",outcome="rejected"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "planner_evaluations_total"))
	n, err := testutil.GatherAndCount(reg, "planner_projected_peak_percent")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "one histogram per kind")
}

func TestPromRecorder_MutationsLabelErrorKind(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := metrics.NewPromRecorder(reg)
	require.NoError(t, err)

	rec.ObserveMutation("create", nil)
	rec.ObserveMutation("create", &planning.OvercommitError{ResourceID: "emp-1", ProjectedPeakPercent: 220})
	rec.ObserveMutation("cancel", &planning.NotFoundError{Entity: "assignment", ID: "x"})
	rec.ObserveMutation("update", fmt.Errorf("disk full"))

	expected := `
# HELP planner_mutations_total Assignment writes by operation and result
# TYPE planner_mutations_total counter
planner_mutations_total{op="cancel",result="not_found"} 1
planner_mutations_total{op="create",result="ok"} 1
planner_mutations_total{op="create",result="overcommit"} 1
planner_mutations_total{op="update",result="internal"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "planner_mutations_total"))
}

func TestNewPromRecorder_ReusesRegisteredCollectors(t *testing.T) {
	// GIVEN: a recorder already registered
	reg := prometheus.NewRegistry()
	first, err := metrics.NewPromRecorder(reg)
	require.NoError(t, err)

	// WHEN: a second one registers on the same registry
	second, err := metrics.NewPromRecorder(reg)
	require.NoError(t, err)

	// THEN: both feed the same series
	first.ObserveMutation("create", nil)
	second.ObserveMutation("create", nil)
	expected := `
# HELP planner_mutations_total Assignment writes by operation and result
# TYPE planner_mutations_total counter
planner_mutations_total{op="create",result="ok"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "planner_mutations_total"))
}

func TestHTTPMetrics_LabelsRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	hm, err := metrics.NewHTTPMetrics(reg)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(hm.Middleware)
	r.Get("/api/resources/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	for _, path := range []string{"/api/resources/a", "/api/resources/b", "/healthz"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	expected := `
# HELP planner_http_requests_total HTTP requests by method, route and status code
# TYPE planner_http_requests_total counter
planner_http_requests_total{code="200",method="GET",route="/healthz"} 1
planner_http_requests_total{code="404",method="GET",route="/api/resources/{id}"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "planner_http_requests_total"))
}

func TestHandler_ExposesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := metrics.NewPromRecorder(reg)
	require.NoError(t, err)
	rec.ObserveMutation("transition", nil)

	w := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `planner_mutations_total{op="transition",result="ok"} 1`)
}
