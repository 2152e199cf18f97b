/*
availability.go - Utilization, conflicts and candidate evaluation

PURPOSE:
  Answers "can resource R take on P percent for window [s, e]?" and
  explains the answer with the assignments it collides with.

DEFINITIONS:
  utilization(R, D) = sum of PercentOfCapacity over non-cancelled
                      assignments of R whose window contains D
  conflicts(R, W)   = non-cancelled assignments of R overlapping W
  peak(R, W, P)     = max over D in W of utilization(R, D) + P

DECISION:
  peak <= 100         fits
  100 < peak <= 200   accepted, flagged as overcommitted
  peak > 200          rejected with *OvercommitError

  Only the combined peak matters. A single candidate at 150% on an idle
  resource is accepted (overcommitted) because it represents a double shift.

HOW THE PEAK IS COMPUTED:
  Each conflict contributes +P at max(start, W.start) and -P the day after
  min(end, W.end). A running sum over those boundary days yields the peak
  without scanning every assignment for every day. Candidates only visit
  the boundaries, so their cost follows the number of conflicts, not the
  window length; availability reports expand every day and are capped.

NO CACHING:
  Every call reads the store. Results are never kept across mutations.

SEE ALSO:
  - planner.go: Evaluates under the per-resource lock before committing
  - lifecycle.go: Which statuses count (everything except cancelled)
*/
package planning

import (
	"context"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// MaxAvailabilityDays bounds the range of a single availability report.
const MaxAvailabilityDays = 366

// AvailabilityEngine computes derived capacity figures from the store.
type AvailabilityEngine struct {
	Store AssignmentStore
}

func NewAvailabilityEngine(store AssignmentStore) *AvailabilityEngine {
	return &AvailabilityEngine{Store: store}
}

// =============================================================================
// UTILIZATION & CONFLICTS
// =============================================================================

// ComputeUtilization returns the combined percent committed on day.
func (e *AvailabilityEngine) ComputeUtilization(ctx context.Context, resourceID ResourceID, day Day) (int, error) {
	if day.IsZero() {
		return 0, &ValidationError{Field: "day", Message: "day is required"}
	}
	w := Window{Start: day, End: day}
	active, err := e.Store.ListByResource(ctx, resourceID, ListQuery{Window: &w})
	if err != nil {
		return 0, fmt.Errorf("list assignments: %w", err)
	}
	total := 0
	for _, a := range active {
		if a.Counts() && a.Window.Contains(day) {
			total += a.PercentOfCapacity
		}
	}
	return total, nil
}

// FindConflicts returns the non-cancelled assignments overlapping window,
// ordered by start then id. exclude may be empty.
func (e *AvailabilityEngine) FindConflicts(ctx context.Context, resourceID ResourceID, window Window, exclude AssignmentID) ([]Assignment, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	found, err := e.Store.ListByResource(ctx, resourceID, ListQuery{Window: &window})
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	conflicts := make([]Assignment, 0, len(found))
	for _, a := range found {
		if !a.Counts() || (exclude != "" && a.ID == exclude) {
			continue
		}
		if a.Window.Overlaps(window) {
			conflicts = append(conflicts, a)
		}
	}
	SortAssignments(conflicts)
	return conflicts, nil
}

// =============================================================================
// CANDIDATE EVALUATION
// =============================================================================

// Candidate is a hypothetical assignment to be checked against the load.
type Candidate struct {
	ResourceID ResourceID
	Window     Window
	Percent    int

	// ExcludeAssignmentID leaves out the assignment being edited in place.
	ExcludeAssignmentID AssignmentID
}

// Evaluation is the outcome of EvaluateCandidate.
type Evaluation struct {
	ResourceID           ResourceID
	Window               Window
	CandidatePercent     int
	Fits                 bool
	Overcommitted        bool
	ProjectedPeakPercent int
	PeakDay              Day
	Conflicts            []Assignment
}

// EvaluateCandidate computes the projected peak with the candidate added.
// Above MaxCombinedPercent it returns the evaluation together with an
// *OvercommitError.
func (e *AvailabilityEngine) EvaluateCandidate(ctx context.Context, c Candidate) (Evaluation, error) {
	if err := c.Window.Validate(); err != nil {
		return Evaluation{}, err
	}
	if err := ValidatePercent(c.Percent); err != nil {
		return Evaluation{}, err
	}

	conflicts, err := e.FindConflicts(ctx, c.ResourceID, c.Window, c.ExcludeAssignmentID)
	if err != nil {
		return Evaluation{}, err
	}

	peak, peakIdx := peakLoad(c.Window, conflicts)

	ev := Evaluation{
		ResourceID:           c.ResourceID,
		Window:               c.Window,
		CandidatePercent:     c.Percent,
		ProjectedPeakPercent: peak + c.Percent,
		PeakDay:              c.Window.Start.AddDays(peakIdx),
		Conflicts:            conflicts,
	}
	ev.Fits = ev.ProjectedPeakPercent <= FullCapacity
	ev.Overcommitted = !ev.Fits

	if ev.ProjectedPeakPercent > MaxCombinedPercent {
		return ev, &OvercommitError{
			ResourceID:           c.ResourceID,
			Window:               c.Window,
			CandidatePercent:     c.Percent,
			ProjectedPeakPercent: ev.ProjectedPeakPercent,
			PeakDay:              ev.PeakDay,
			Conflicts:            conflicts,
		}
	}
	return ev, nil
}

// loadDeltas maps day offsets from w.Start to the change in utilization
// on that day.
func loadDeltas(w Window, as []Assignment) map[int]int {
	delta := make(map[int]int, 2*len(as))
	for _, a := range as {
		if !a.Counts() {
			continue
		}
		clip, ok := a.Window.Intersect(w)
		if !ok {
			continue
		}
		delta[DaysBetweenInclusive(w.Start, clip.Start)-1] += a.PercentOfCapacity
		delta[DaysBetweenInclusive(w.Start, clip.End)] -= a.PercentOfCapacity
	}
	return delta
}

// peakLoad returns the highest utilization within w and the offset of the
// first day it occurs on.
func peakLoad(w Window, as []Assignment) (int, int) {
	delta := loadDeltas(w, as)
	offsets := make([]int, 0, len(delta))
	for off := range delta {
		offsets = append(offsets, off)
	}
	sort.Ints(offsets)

	peak, peakIdx, running := 0, 0, 0
	for _, off := range offsets {
		running += delta[off]
		if running > peak {
			peak, peakIdx = running, off
		}
	}
	return peak, peakIdx
}

// dailyLoad returns the utilization of each day of w contributed by as.
// Index 0 is w.Start.
func dailyLoad(w Window, as []Assignment) []int {
	n := w.DayCount()
	delta := loadDeltas(w, as)

	load := make([]int, n)
	running := 0
	for i := 0; i < n; i++ {
		running += delta[i]
		load[i] = running
	}
	return load
}

// =============================================================================
// AVAILABILITY RANGE
// =============================================================================

// DayAvailability is the capacity picture of a single day.
type DayAvailability struct {
	Day           Day
	TotalCapacity int
	UsedPercent   int
	Available     bool
}

// AvailabilityReport covers every day of a window.
type AvailabilityReport struct {
	ResourceID         ResourceID
	Window             Window
	Days               []DayAvailability
	MeanPercent        float64
	PeakPercent        int
	OvercommittedDays  int
	FullyAvailableDays int
}

// Availability reports per-day utilization over window, at most
// MaxAvailabilityDays long.
func (e *AvailabilityEngine) Availability(ctx context.Context, resourceID ResourceID, window Window) (AvailabilityReport, error) {
	if err := window.Validate(); err != nil {
		return AvailabilityReport{}, err
	}
	if window.DayCount() > MaxAvailabilityDays {
		return AvailabilityReport{}, &ValidationError{
			Field:   "end",
			Message: fmt.Sprintf("range must not exceed %d days", MaxAvailabilityDays),
		}
	}

	conflicts, err := e.FindConflicts(ctx, resourceID, window, "")
	if err != nil {
		return AvailabilityReport{}, err
	}

	load := dailyLoad(window, conflicts)
	report := AvailabilityReport{
		ResourceID: resourceID,
		Window:     window,
		Days:       make([]DayAvailability, len(load)),
	}
	samples := make([]float64, len(load))
	for i, used := range load {
		report.Days[i] = DayAvailability{
			Day:           window.Start.AddDays(i),
			TotalCapacity: FullCapacity,
			UsedPercent:   used,
			Available:     used < FullCapacity,
		}
		samples[i] = float64(used)
		if used > FullCapacity {
			report.OvercommittedDays++
		}
		if used == 0 {
			report.FullyAvailableDays++
		}
	}
	report.MeanPercent = stat.Mean(samples, nil)
	report.PeakPercent = int(floats.Max(samples))
	return report, nil
}
