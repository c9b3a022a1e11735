// Package interval holds the half-open time range arithmetic shared by
// conflict detection and session scheduling.
package interval

import (
	"errors"
	"fmt"
	"time"
)

// ErrEmptyInterval is returned when an interval would end at or before its start.
var ErrEmptyInterval = errors.New("interval end must be after start")

// Interval is the half-open range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// New validates end > start.
func New(start, end time.Time) (Interval, error) {
	if !end.After(start) {
		return Interval{}, fmt.Errorf("%w: start=%s end=%s", ErrEmptyInterval, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return Interval{Start: start, End: end}, nil
}

// FromMinutes builds [start, start+minutes).
func FromMinutes(start time.Time, minutes int) (Interval, error) {
	if minutes <= 0 {
		return Interval{}, fmt.Errorf("%w: duration %d minutes", ErrEmptyInterval, minutes)
	}
	return New(start, start.Add(time.Duration(minutes)*time.Minute))
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) share an instant.
// Back-to-back ranges, where one ends exactly when the other starts, do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Overlaps applies the package predicate to two intervals.
func (i Interval) Overlaps(other Interval) bool {
	return Overlaps(i.Start, i.End, other.Start, other.End)
}

// Duration returns End - Start.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Contains reports whether t falls inside [Start, End).
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}
