package planning

import (
	"context"
	"time"
)

// =============================================================================
// EVENTS - Emitted after a mutation commits
// =============================================================================

// EventType names a lifecycle event. The value is also the event's topic
// suffix on the message bus.
type EventType string

const (
	EventCreated       EventType = "assignment.created"
	EventUpdated       EventType = "assignment.updated"
	EventCancelled     EventType = "assignment.cancelled"
	EventStatusChanged EventType = "assignment.status_changed"
)

// Event describes a committed change to an assignment.
type Event struct {
	Type       EventType
	Assignment Assignment
	Previous   Status // status before the change; empty for EventCreated
	At         time.Time

	// Overcommitted is set when the committed window pushes the resource
	// above FullCapacity on some day.
	Overcommitted bool
}

// Notifier publishes events. Publishing happens after the store commit, so
// a failure is reported but never undoes the change.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// NopNotifier discards events.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Event) error { return nil }

// =============================================================================
// RECORDER - Metrics hooks
// =============================================================================

// Evaluation outcomes reported to a Recorder.
const (
	OutcomeFits          = "fits"
	OutcomeOvercommitted = "overcommitted"
	OutcomeRejected      = "rejected"
)

// Recorder observes planner activity. Implementations must be safe for
// concurrent use.
type Recorder interface {
	// ObserveEvaluation is called for every candidate evaluation.
	ObserveEvaluation(kind ResourceKind, outcome string, peakPercent int)

	// ObserveMutation is called once per write operation with its result.
	ObserveMutation(op string, err error)
}

// NopRecorder records nothing.
type NopRecorder struct{}

func (NopRecorder) ObserveEvaluation(ResourceKind, string, int) {}
func (NopRecorder) ObserveMutation(string, error)              {}

// outcomeOf maps an evaluation result to its recorded outcome.
func outcomeOf(ev Evaluation, err error) string {
	switch {
	case err != nil:
		return OutcomeRejected
	case ev.Overcommitted:
		return OutcomeOvercommitted
	default:
		return OutcomeFits
	}
}
