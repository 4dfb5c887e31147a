// Package timetable implements the weekly timetable engine: time grids, teacher
// and room conflict detection, per-class slot storage, the grid editor binding
// and bulk mass-event application. Everything here is pure and synchronous; the
// service layer owns persistence and caching.
package timetable

import (
	"fmt"
)

const minutesPerDay = 24 * 60

// Clock is a wall-clock time expressed as minutes since midnight.
type Clock int

// ParseClock parses a strict 24-hour "HH:MM" value.
func ParseClock(raw string) (Clock, error) {
	if len(raw) != 5 || raw[2] != ':' {
		return 0, &ParseError{Value: raw, Reason: "expected HH:MM"}
	}
	hours, ok := twoDigits(raw[0], raw[1])
	if !ok {
		return 0, &ParseError{Value: raw, Reason: "hours must be digits"}
	}
	minutes, ok := twoDigits(raw[3], raw[4])
	if !ok {
		return 0, &ParseError{Value: raw, Reason: "minutes must be digits"}
	}
	if hours > 23 {
		return 0, &ParseError{Value: raw, Reason: "hours out of range"}
	}
	if minutes > 59 {
		return 0, &ParseError{Value: raw, Reason: "minutes out of range"}
	}
	return Clock(hours*60 + minutes), nil
}

// MustParseClock is ParseClock for constants; it panics on malformed input.
func MustParseClock(raw string) Clock {
	c, err := ParseClock(raw)
	if err != nil {
		panic(err)
	}
	return c
}

// String formats the clock as HH:MM, wrapping past midnight.
func (c Clock) String() string {
	m := int(c) % minutesPerDay
	if m < 0 {
		m += minutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// Add returns the clock shifted by the given number of minutes.
func (c Clock) Add(minutes int) Clock {
	return c + Clock(minutes)
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

// Range is a half-open [Start, End) interval within one day.
type Range struct {
	Start Clock
	End   Clock
}

// ParseRange parses and validates a start/end pair. End must be after start.
func ParseRange(start, end string) (Range, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Range{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Range{}, err
	}
	if e <= s {
		return Range{}, &ValidationError{Field: "end_time", Reason: fmt.Sprintf("%s must be after %s", end, start)}
	}
	return Range{Start: s, End: e}, nil
}

// Overlaps applies the half-open overlap test; touching endpoints do not overlap.
func (r Range) Overlaps(other Range) bool {
	return r.Start < other.End && r.End > other.Start
}

// Contains reports whether c falls inside [Start, End).
func (r Range) Contains(c Clock) bool {
	return c >= r.Start && c < r.End
}

// Minutes returns the interval length.
func (r Range) Minutes() int {
	return int(r.End - r.Start)
}
