package planning

import (
	"fmt"
	"time"
)

// =============================================================================
// DAY - Calendar-day granularity (assignments never carry a time of day)
// =============================================================================

// DayLayout is the wire and storage format of a Day.
const DayLayout = "2006-01-02"

// Day is a calendar day normalized to midnight UTC.
type Day struct {
	Time time.Time
}

// Constructors
func NewDay(year int, month time.Month, day int) Day {
	return Day{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf truncates t to its calendar day, keeping t's own year/month/day.
func DayOf(t time.Time) Day {
	return NewDay(t.Year(), t.Month(), t.Day())
}

func Today() Day {
	return DayOf(time.Now())
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return Day{}, fmt.Errorf("invalid day %q (use YYYY-MM-DD): %w", s, err)
	}
	return DayOf(t), nil
}

// MustParseDay is ParseDay for fixtures and tests.
func MustParseDay(s string) Day {
	d, err := ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Comparison
func (d Day) Before(other Day) bool        { return d.Time.Before(other.Time) }
func (d Day) After(other Day) bool         { return d.Time.After(other.Time) }
func (d Day) Equal(other Day) bool         { return d.Time.Equal(other.Time) }
func (d Day) BeforeOrEqual(other Day) bool { return !d.After(other) }
func (d Day) AfterOrEqual(other Day) bool  { return !d.Before(other) }

// Arithmetic
func (d Day) AddDays(n int) Day { return DayOf(d.Time.AddDate(0, 0, n)) }

// Properties
func (d Day) IsZero() bool          { return d.Time.IsZero() }
func (d Day) Weekday() time.Weekday { return d.Time.Weekday() }
func (d Day) String() string        { return d.Time.Format(DayLayout) }

// MarshalText implements encoding.TextMarshaler so days serialize as YYYY-MM-DD.
func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Day) UnmarshalText(b []byte) error {
	parsed, err := ParseDay(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// DAY UTILITIES
// =============================================================================

const secondsPerDay = 24 * 60 * 60

// DaysBetweenInclusive counts calendar days in [from, to], so a same-day
// range counts 1. The result is zero or negative when to is before from.
// Days are midnight UTC, so Unix seconds divide exactly; time.Duration would
// saturate past roughly 292 years.
func DaysBetweenInclusive(from, to Day) int {
	return int((to.Time.Unix()-from.Time.Unix())/secondsPerDay) + 1
}

func MinDay(a, b Day) Day {
	if a.Before(b) {
		return a
	}
	return b
}

func MaxDay(a, b Day) Day {
	if a.After(b) {
		return a
	}
	return b
}
