package planning

import (
	"time"

	"github.com/rs/zerolog"
)

// Option configures a Planner with optional dependencies.
type Option func(*plannerOptions)

type plannerOptions struct {
	notifier Notifier
	recorder Recorder
	logger   zerolog.Logger
	now      func() time.Time
}

func defaultPlannerOptions() plannerOptions {
	return plannerOptions{
		notifier: NopNotifier{},
		recorder: NopRecorder{},
		logger:   zerolog.Nop(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithNotifier sets the event sink for committed changes.
//
// Example:
//
//	n := events.NewMQTTNotifier(client, cfg.MQTT)
//	p := planning.NewPlanner(svc, engine, planning.WithNotifier(n))
func WithNotifier(n Notifier) Option {
	return func(o *plannerOptions) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(o *plannerOptions) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(o *plannerOptions) {
		o.logger = l
	}
}

// WithClock overrides the clock used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *plannerOptions) {
		if now != nil {
			o.now = now
		}
	}
}
