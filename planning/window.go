package planning

// =============================================================================
// WINDOW - Inclusive calendar-day interval [Start, End]
// =============================================================================

// Window is the time span an assignment occupies. Both ends are inclusive:
// a window with Start == End occupies exactly one day.
type Window struct {
	Start Day
	End   Day
}

// NewWindow builds a window without validating it; call Validate before use.
func NewWindow(start, end Day) Window {
	return Window{Start: start, End: end}
}

// Validate rejects zero days and windows that end before they start.
func (w Window) Validate() error {
	if w.Start.IsZero() {
		return &ValidationError{Field: "start", Message: "start date is required"}
	}
	if w.End.IsZero() {
		return &ValidationError{Field: "end", Message: "end date is required"}
	}
	if w.End.Before(w.Start) {
		return &ValidationError{Field: "end", Message: "end date must not be before start date"}
	}
	return nil
}

// Contains reports start <= day <= end.
func (w Window) Contains(day Day) bool {
	return w.Start.BeforeOrEqual(day) && day.BeforeOrEqual(w.End)
}

// Overlaps is the standard interval-overlap test. It is symmetric:
// a.Overlaps(b) == b.Overlaps(a).
func (w Window) Overlaps(other Window) bool {
	return w.Start.BeforeOrEqual(other.End) && w.End.AfterOrEqual(other.Start)
}

// DayCount returns the inclusive number of days, never less than 1.
func (w Window) DayCount() int {
	n := DaysBetweenInclusive(w.Start, w.End)
	if n < 1 {
		return 1
	}
	return n
}

// Days returns every day of the window in order.
func (w Window) Days() []Day {
	var days []Day
	for current := w.Start; current.BeforeOrEqual(w.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

// Intersect returns the overlapping part of two windows and whether one exists.
func (w Window) Intersect(other Window) (Window, bool) {
	if !w.Overlaps(other) {
		return Window{}, false
	}
	return Window{Start: MaxDay(w.Start, other.Start), End: MinDay(w.End, other.End)}, true
}

func (w Window) String() string {
	return "[" + w.Start.String() + ", " + w.End.String() + "]"
}
