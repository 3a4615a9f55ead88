// Package tz converts between a gym's wall-clock time and the UTC instants
// that are persisted for sessions.
//
// Gym-facing values (business hours, session payloads) are naive wall-clock
// readings represented by LocalTime. Stored values are UTC time.Time.
package tz

import (
	"fmt"
	"sync"
	"time"
)

var locations sync.Map

// Load resolves an IANA zone name. An empty name means UTC.
func Load(name string) (*time.Location, error) {
	if name == "" || name == "UTC" {
		return time.UTC, nil
	}
	if loc, ok := locations.Load(name); ok {
		return loc.(*time.Location), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	locations.Store(name, loc)
	return loc, nil
}

// ToUTC localizes a wall-clock reading in loc and returns the UTC instant.
// Ambiguous readings (clocks turned back) resolve to the first occurrence
// unless the reading carries the fold bit. Readings that fall into a gap
// (clocks turned forward) use the offset in force before the transition.
func ToUTC(l LocalTime, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}

	asUTC := l.Wall()
	before := offsetAt(asUTC.Add(-24*time.Hour), loc)
	after := offsetAt(asUTC.Add(24*time.Hour), loc)

	first := asUTC.Add(-time.Duration(before) * time.Second)
	second := asUTC.Add(-time.Duration(after) * time.Second)
	if second.Before(first) {
		first, second = second, first
		before, after = after, before
	}
	firstValid := offsetAt(first, loc) == before
	secondValid := offsetAt(second, loc) == after

	switch {
	case firstValid && secondValid && !first.Equal(second):
		if l.fold {
			return second
		}
		return first
	case firstValid:
		return first
	case secondValid:
		return second
	default:
		return asUTC.Add(-time.Duration(offsetAt(asUTC.Add(-24*time.Hour), loc)) * time.Second)
	}
}

// ToLocal converts an instant to the wall clock in loc and drops the offset.
func ToLocal(t time.Time, loc *time.Location) LocalTime {
	if loc == nil {
		loc = time.UTC
	}
	lt := t.In(loc)
	l := LocalTime{wall: time.Date(lt.Year(), lt.Month(), lt.Day(), lt.Hour(), lt.Minute(), lt.Second(), lt.Nanosecond(), time.UTC)}
	if !ToUTC(l, loc).Equal(t) {
		l.fold = true
	}
	return l
}

// Normalize always returns a UTC instant. A LocalTime is read as wall clock
// in loc; a time.Time is already an instant and is only converted.
func Normalize[T LocalTime | time.Time](v T, loc *time.Location) time.Time {
	switch x := any(v).(type) {
	case LocalTime:
		return ToUTC(x, loc)
	case time.Time:
		return x.UTC()
	}
	panic("unreachable")
}

// IsFuture reports whether instant t is strictly after now, with both sides
// brought into the gym's zone first.
func IsFuture(t, now time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).After(now.In(loc))
}

// DateOf truncates t to its calendar date using t's own wall clock.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

const DateLayout = "2006-01-02"

func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

// Weekday numbers days Monday=0 through Sunday=6.
func Weekday(date time.Time) int {
	return (int(date.Weekday()) + 6) % 7
}

func offsetAt(t time.Time, loc *time.Location) int {
	_, off := t.In(loc).Zone()
	return off
}
