package booking

import (
	"errors"
	"fmt"
	"time"
)

// TimeRange is a half-open window [start, end) with end strictly after start.
type TimeRange struct {
	start time.Time
	end   time.Time
}

// NewTimeRange builds a TimeRange or returns ErrInvalidTimeRange.
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if !end.After(start) {
		return TimeRange{}, errors.Join(
			ErrInvalidTimeRange,
			fmt.Errorf("start %s, end %s", start.Format(time.RFC3339), end.Format(time.RFC3339)),
		)
	}

	return TimeRange{start: start.UTC(), end: end.UTC()}, nil
}

// MustTimeRange is NewTimeRange for windows known to be valid, e.g. in tests and fixtures.
func MustTimeRange(start, end time.Time) TimeRange {
	r, err := NewTimeRange(start, end)
	if err != nil {
		panic(err)
	}

	return r
}

func (r TimeRange) Start() time.Time { return r.start }

func (r TimeRange) End() time.Time { return r.end }

// Duration returns end minus start.
func (r TimeRange) Duration() time.Duration {
	return r.end.Sub(r.start)
}

// IsZero reports whether r is the zero value rather than a constructed window.
func (r TimeRange) IsZero() bool {
	return r.start.IsZero() && r.end.IsZero()
}

// Overlaps reports whether both windows share at least one instant.
// Windows that only touch at a boundary do not overlap.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.start.Before(other.end) && r.end.After(other.start)
}

// Contains reports whether t lies inside [start, end).
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.start) && t.Before(r.end)
}

// Clip returns the intersection of r and bounds. The second result is false when the
// intersection is empty or has zero length.
func (r TimeRange) Clip(bounds TimeRange) (TimeRange, bool) {
	start := r.start
	if bounds.start.After(start) {
		start = bounds.start
	}

	end := r.end
	if bounds.end.Before(end) {
		end = bounds.end
	}

	if !end.After(start) {
		return TimeRange{}, false
	}

	return TimeRange{start: start, end: end}, true
}

// ExtendEnd returns a copy of r whose end is moved by d. Non-positive d returns r unchanged.
func (r TimeRange) ExtendEnd(d time.Duration) TimeRange {
	if d <= 0 {
		return r
	}

	return TimeRange{start: r.start, end: r.end.Add(d)}
}

// ExtendStart returns a copy of r whose start is moved earlier by d. Non-positive d returns r unchanged.
func (r TimeRange) ExtendStart(d time.Duration) TimeRange {
	if d <= 0 {
		return r
	}

	return TimeRange{start: r.start.Add(-d), end: r.end}
}

// ValidateNotInPast returns ErrStartInPast when the window starts before now.
func (r TimeRange) ValidateNotInPast(now time.Time) error {
	if r.start.Before(now) {
		return errors.Join(
			ErrStartInPast,
			fmt.Errorf("start %s is before %s", r.start.Format(time.RFC3339), now.UTC().Format(time.RFC3339)),
		)
	}

	return nil
}

// Equal reports whether both windows have the same bounds.
func (r TimeRange) Equal(other TimeRange) bool {
	return r.start.Equal(other.start) && r.end.Equal(other.end)
}

func (r TimeRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.start.Format(time.RFC3339), r.end.Format(time.RFC3339))
}
