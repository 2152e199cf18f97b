/*
metrics.go - Prometheus recorder for planner activity

PURPOSE:
  Implements planning.Recorder on top of prometheus client_golang so the
  planner's evaluations and writes show up on /metrics.

METRICS:
  planner_evaluations_total{kind,outcome}   fits | overcommitted | rejected
  planner_projected_peak_percent{kind}      histogram of candidate peaks
  planner_mutations_total{op,result}        create | update | cancel | transition
  planner_http_requests_total{method,route,code}
  planner_http_request_duration_seconds{method,route}

SEE ALSO:
  - planning/hooks.go: Recorder interface
  - api/server.go: Mounts promhttp and the HTTP middleware
*/
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/warp/site-planner/planning"
)

// PromRecorder records planner activity in Prometheus metrics.
type PromRecorder struct {
	evaluations *prometheus.CounterVec
	peaks       *prometheus.HistogramVec
	mutations   *prometheus.CounterVec
}

var _ planning.Recorder = (*PromRecorder)(nil)

// NewPromRecorder registers the planner metrics on reg. A nil registerer
// defaults to the global Prometheus registerer. Registering twice on the same
// registerer reuses the existing collectors.
func NewPromRecorder(reg prometheus.Registerer) (*PromRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	evaluations, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_evaluations_total",
		Help: "Candidate evaluations by resource kind and outcome",
	}, []string{"kind", "outcome"}))
	if err != nil {
		return nil, err
	}
	peaks, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "planner_projected_peak_percent",
		Help:    "Projected peak utilization of evaluated candidates",
		Buckets: []float64{25, 50, 75, 100, 125, 150, 175, 200, 250, 300},
	}, []string{"kind"}))
	if err != nil {
		return nil, err
	}
	mutations, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_mutations_total",
		Help: "Assignment writes by operation and result",
	}, []string{"op", "result"}))
	if err != nil {
		return nil, err
	}
	return &PromRecorder{evaluations: evaluations, peaks: peaks, mutations: mutations}, nil
}

func (r *PromRecorder) ObserveEvaluation(kind planning.ResourceKind, outcome string, peakPercent int) {
	r.evaluations.WithLabelValues(string(kind), outcome).Inc()
	r.peaks.WithLabelValues(string(kind)).Observe(float64(peakPercent))
}

// ObserveMutation labels the result with the error kind, or "ok".
func (r *PromRecorder) ObserveMutation(op string, err error) {
	result := "ok"
	if err != nil {
		result = string(planning.Kind(err))
	}
	r.mutations.WithLabelValues(op, result).Inc()
}

// register returns the collector already registered under the same
// descriptor when there is one.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, err
	}
	return c, nil
}
