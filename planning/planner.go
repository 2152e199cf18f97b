/*
planner.go - The serialized accept/commit path

PURPOSE:
  Planner is what callers use to change the schedule. It combines the
  AssignmentService (validation, persistence) with the AvailabilityEngine
  (capacity) so that the 200% ceiling holds even under concurrent callers.

CONCURRENCY:
  Every write takes the per-resource lock for the whole
  read-evaluate-write sequence:

    lock(resource)
      validate -> evaluate -> persist
    unlock

  Two concurrent Schedule calls for the same resource therefore see each
  other's committed assignments. Different resources never contend.
  Read-only queries go straight to the engine and are not blocked.

AFTER COMMIT:
  The change is logged, recorded and published to the Notifier. A failed
  publish is logged at warn level; the committed change stays.

SEE ALSO:
  - availability.go: EvaluateCandidate
  - assignments.go: Prepare / PrepareUpdate
  - hooks.go: Notifier and Recorder
*/
package planning

import (
	"context"
	"errors"
	"fmt"
)

// Planner serializes schedule mutations per resource.
type Planner struct {
	Assignments *AssignmentService
	Engine      *AvailabilityEngine

	locks *resourceLocks
	opts  plannerOptions
}

func NewPlanner(assignments *AssignmentService, engine *AvailabilityEngine, opts ...Option) *Planner {
	o := defaultPlannerOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Planner{
		Assignments: assignments,
		Engine:      engine,
		locks:       newResourceLocks(),
		opts:        o,
	}
}

// =============================================================================
// WRITES
// =============================================================================

// Schedule validates, evaluates and persists a new assignment. The
// evaluation is returned on success and on an overcommit rejection.
func (p *Planner) Schedule(ctx context.Context, in NewAssignment) (Assignment, Evaluation, error) {
	a, ev, err := p.schedule(ctx, in)
	p.opts.recorder.ObserveMutation("create", err)
	if err != nil {
		return Assignment{}, ev, err
	}

	p.opts.logger.Info().
		Str("assignment_id", string(a.ID)).
		Str("resource_id", string(a.ResourceID)).
		Str("site_id", string(a.SiteID)).
		Stringer("window", a.Window).
		Int("percent", a.PercentOfCapacity).
		Int("peak_percent", ev.ProjectedPeakPercent).
		Msg("assignment scheduled")
	p.publish(ctx, Event{Type: EventCreated, Assignment: a, Overcommitted: ev.Overcommitted})
	return a, ev, nil
}

func (p *Planner) schedule(ctx context.Context, in NewAssignment) (Assignment, Evaluation, error) {
	unlock := p.locks.lock(in.ResourceID)
	defer unlock()

	a, res, err := p.Assignments.Prepare(ctx, in)
	if err != nil {
		return Assignment{}, Evaluation{}, err
	}
	ev, err := p.evaluate(ctx, res.Kind, Candidate{
		ResourceID: a.ResourceID,
		Window:     a.Window,
		Percent:    a.PercentOfCapacity,
	})
	if err != nil {
		return Assignment{}, ev, err
	}
	if err := p.Assignments.Store.Insert(ctx, a); err != nil {
		return Assignment{}, ev, fmt.Errorf("insert assignment: %w", err)
	}
	return a, ev, nil
}

// Reschedule replaces the mutable fields of an assignment. The new window
// and percent are evaluated with the assignment itself excluded, unless the
// replacement cancels it.
func (p *Planner) Reschedule(ctx context.Context, id AssignmentID, r Replacement) (Assignment, Evaluation, error) {
	prev, next, ev, err := p.reschedule(ctx, id, r)
	p.opts.recorder.ObserveMutation("update", err)
	if err != nil {
		return Assignment{}, ev, err
	}

	p.opts.logger.Info().
		Str("assignment_id", string(next.ID)).
		Str("resource_id", string(next.ResourceID)).
		Stringer("window", next.Window).
		Int("percent", next.PercentOfCapacity).
		Str("status", string(next.Status)).
		Msg("assignment rescheduled")

	evType := EventUpdated
	if next.Status == StatusCancelled {
		evType = EventCancelled
	}
	p.publish(ctx, Event{Type: evType, Assignment: next, Previous: prev.Status, Overcommitted: ev.Overcommitted})
	return next, ev, nil
}

func (p *Planner) reschedule(ctx context.Context, id AssignmentID, r Replacement) (Assignment, Assignment, Evaluation, error) {
	// The resource of an assignment never changes, so it can be read before
	// taking the lock.
	stored, err := p.Assignments.Get(ctx, id)
	if err != nil {
		return Assignment{}, Assignment{}, Evaluation{}, err
	}
	unlock := p.locks.lock(stored.ResourceID)
	defer unlock()

	next, current, err := p.Assignments.PrepareUpdate(ctx, id, r)
	if err != nil {
		return Assignment{}, Assignment{}, Evaluation{}, err
	}

	var ev Evaluation
	if next.Counts() {
		ev, err = p.evaluate(ctx, next.ResourceKind, Candidate{
			ResourceID:          next.ResourceID,
			Window:              next.Window,
			Percent:             next.PercentOfCapacity,
			ExcludeAssignmentID: next.ID,
		})
		if err != nil {
			return Assignment{}, Assignment{}, ev, err
		}
	}
	if err := p.Assignments.Store.Replace(ctx, next); err != nil {
		return Assignment{}, Assignment{}, ev, fmt.Errorf("replace assignment: %w", err)
	}
	return current, next, ev, nil
}

// Cancel cancels an assignment. Cancelling twice is a no-op and publishes
// nothing the second time.
func (p *Planner) Cancel(ctx context.Context, id AssignmentID) (Assignment, error) {
	return p.Transition(ctx, id, StatusCancelled)
}

// Transition moves an assignment along the lifecycle. Status changes never
// add load, so no evaluation is needed.
func (p *Planner) Transition(ctx context.Context, id AssignmentID, to Status) (Assignment, error) {
	op := "transition"
	if to == StatusCancelled {
		op = "cancel"
	}
	prev, next, err := p.transition(ctx, id, to)
	p.opts.recorder.ObserveMutation(op, err)
	if err != nil {
		return Assignment{}, err
	}
	if prev.Status == next.Status {
		return next, nil
	}

	p.opts.logger.Info().
		Str("assignment_id", string(next.ID)).
		Str("resource_id", string(next.ResourceID)).
		Str("from", string(prev.Status)).
		Str("to", string(next.Status)).
		Msg("assignment status changed")

	evType := EventStatusChanged
	if next.Status == StatusCancelled {
		evType = EventCancelled
	}
	p.publish(ctx, Event{Type: evType, Assignment: next, Previous: prev.Status})
	return next, nil
}

func (p *Planner) transition(ctx context.Context, id AssignmentID, to Status) (Assignment, Assignment, error) {
	stored, err := p.Assignments.Get(ctx, id)
	if err != nil {
		return Assignment{}, Assignment{}, err
	}
	unlock := p.locks.lock(stored.ResourceID)
	defer unlock()

	current, err := p.Assignments.Get(ctx, id)
	if err != nil {
		return Assignment{}, Assignment{}, err
	}
	next, err := p.Assignments.Transition(ctx, id, to)
	if err != nil {
		return Assignment{}, Assignment{}, err
	}
	return current, next, nil
}

// =============================================================================
// READS
// =============================================================================

// Evaluate checks a candidate for an existing, active resource without
// persisting anything and without taking the resource lock.
func (p *Planner) Evaluate(ctx context.Context, c Candidate) (Evaluation, error) {
	res, err := p.Assignments.schedulableResource(ctx, c.ResourceID)
	if err != nil {
		return Evaluation{}, err
	}
	return p.evaluate(ctx, res.Kind, c)
}

func (p *Planner) evaluate(ctx context.Context, kind ResourceKind, c Candidate) (Evaluation, error) {
	ev, err := p.Engine.EvaluateCandidate(ctx, c)
	if err != nil && !errors.Is(err, ErrOvercommit) {
		return ev, err
	}
	p.opts.recorder.ObserveEvaluation(kind, outcomeOf(ev, err), ev.ProjectedPeakPercent)
	return ev, err
}

func (p *Planner) publish(ctx context.Context, e Event) {
	e.At = p.opts.now()
	if err := p.opts.notifier.Notify(ctx, e); err != nil {
		p.opts.logger.Warn().
			Err(err).
			Str("event", string(e.Type)).
			Str("assignment_id", string(e.Assignment.ID)).
			Msg("failed to publish assignment event")
	}
}
