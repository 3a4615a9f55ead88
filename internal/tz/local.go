package tz

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// LocalLayout is the wire format for naive wall-clock values.
const LocalLayout = "2006-01-02T15:04:05"

var localLayouts = []string{
	LocalLayout,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// LocalTime is a wall-clock reading without an offset. fold marks the second
// occurrence of a reading that happens twice when clocks are turned back.
type LocalTime struct {
	wall time.Time
	fold bool
}

func NewLocalTime(year int, month time.Month, day, hour, min, sec int) LocalTime {
	return LocalTime{wall: time.Date(year, month, day, hour, min, sec, 0, time.UTC)}
}

// FromWall keeps the clock fields of t and ignores its location.
func FromWall(t time.Time) LocalTime {
	return LocalTime{wall: time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)}
}

func ParseLocal(s string) (LocalTime, error) {
	for _, layout := range localLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return LocalTime{wall: t}, nil
		}
	}
	return LocalTime{}, fmt.Errorf("invalid local time %q, expected %s", s, LocalLayout)
}

// Wall returns the clock fields as a time.Time in UTC. The location carries
// no meaning.
func (l LocalTime) Wall() time.Time {
	return l.wall
}

func (l LocalTime) Date() time.Time {
	return DateOf(l.wall)
}

func (l LocalTime) Fold() bool {
	return l.fold
}

func (l LocalTime) IsZero() bool {
	return l.wall.IsZero()
}

func (l LocalTime) Before(o LocalTime) bool {
	return l.wall.Before(o.wall) || (l.wall.Equal(o.wall) && !l.fold && o.fold)
}

func (l LocalTime) After(o LocalTime) bool {
	return o.Before(l)
}

func (l LocalTime) Equal(o LocalTime) bool {
	return l.wall.Equal(o.wall) && l.fold == o.fold
}

func (l LocalTime) Add(d time.Duration) LocalTime {
	return LocalTime{wall: l.wall.Add(d)}
}

func (l LocalTime) String() string {
	return l.wall.Format(LocalLayout)
}

func (l LocalTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *LocalTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseLocal(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

func (l LocalTime) Value() (driver.Value, error) {
	return l.String(), nil
}
