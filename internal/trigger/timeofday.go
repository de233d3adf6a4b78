package trigger

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var timeOfDayRegex = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)

// TimeOfDay is a wall-clock time within a day.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	m := timeOfDayRegex.FindStringSubmatch(s)
	if m == nil {
		return TimeOfDay{}, fmt.Errorf("invalid time format %q: expected HH:MM", s)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	second := 0
	if m[3] != "" {
		second, _ = strconv.Atoi(m[3])
	}
	if hour > 23 || minute > 59 || second > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid time %q", s)
	}
	return TimeOfDay{Hour: hour, Minute: minute, Second: second}, nil
}

// On returns the instant at this time of day on ref's date in loc.
func (t TimeOfDay) On(ref time.Time, loc *time.Location) time.Time {
	r := ref.In(loc)
	return time.Date(r.Year(), r.Month(), r.Day(), t.Hour, t.Minute, t.Second, 0, loc)
}

// SinceMidnight is the offset of t from the start of the day.
func (t TimeOfDay) SinceMidnight() time.Duration {
	return time.Duration(t.Hour)*time.Hour + time.Duration(t.Minute)*time.Minute + time.Duration(t.Second)*time.Second
}

func (t TimeOfDay) String() string {
	if t.Second != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
	}
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// sinceMidnight is the time-of-day offset of ts in its own location.
func sinceMidnight(ts time.Time) time.Duration {
	h, m, s := ts.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second + time.Duration(ts.Nanosecond())
}

// loadLocation resolves an IANA zone name; empty means the clock's own zone.
func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return nil, nil
	}
	return time.LoadLocation(name)
}

// inZone converts ts to loc when one is configured.
func inZone(ts time.Time, loc *time.Location) time.Time {
	if loc == nil {
		return ts
	}
	return ts.In(loc)
}

// zoneOf returns loc, or ts's location when loc is nil.
func zoneOf(ts time.Time, loc *time.Location) *time.Location {
	if loc == nil {
		return ts.Location()
	}
	return loc
}

// startOfDay is midnight of ts's date in ts's location.
func startOfDay(ts time.Time) time.Time {
	y, m, d := ts.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, ts.Location())
}
