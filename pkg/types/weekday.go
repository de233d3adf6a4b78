package types

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// WeekdaySet is a set of days of the week. The zero value is empty; use
// AllWeekdays for the default of every day.
type WeekdaySet uint8

// AllWeekdays contains all seven days.
const AllWeekdays WeekdaySet = 1<<7 - 1

// NewWeekdaySet builds a set from the given days.
func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s |= 1 << uint(d)
	}
	return s
}

// ParseWeekdays parses day names ("monday", "Mon", ...). An empty list yields
// AllWeekdays.
func ParseWeekdays(names []string) (WeekdaySet, error) {
	if len(names) == 0 {
		return AllWeekdays, nil
	}
	var s WeekdaySet
	for _, n := range names {
		d, err := parseWeekday(n)
		if err != nil {
			return 0, err
		}
		s |= 1 << uint(d)
	}
	return s, nil
}

func parseWeekday(name string) (time.Weekday, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if len(n) >= 3 {
		for d := time.Sunday; d <= time.Saturday; d++ {
			full := strings.ToLower(d.String())
			if n == full || n == full[:3] {
				return d, nil
			}
		}
	}
	return 0, fmt.Errorf("invalid weekday %q", name)
}

// Contains reports whether d is in the set.
func (s WeekdaySet) Contains(d time.Weekday) bool {
	return s&(1<<uint(d)) != 0
}

// IsEmpty reports whether no day is in the set.
func (s WeekdaySet) IsEmpty() bool {
	return s&AllWeekdays == 0
}

// Days lists the members in Sunday-first order.
func (s WeekdaySet) Days() []time.Weekday {
	var out []time.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Contains(d) {
			out = append(out, d)
		}
	}
	return out
}

func (s WeekdaySet) String() string {
	days := s.Days()
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = d.String()
	}
	return strings.Join(names, ",")
}

// UnmarshalYAML decodes a list of day names.
func (s *WeekdaySet) UnmarshalYAML(node *yaml.Node) error {
	var names []string
	if err := node.Decode(&names); err != nil {
		return fmt.Errorf("weekDays: %w", err)
	}
	set, err := ParseWeekdays(names)
	if err != nil {
		return err
	}
	*s = set
	return nil
}

// MarshalYAML encodes the set as a list of day names.
func (s WeekdaySet) MarshalYAML() (interface{}, error) {
	days := s.Days()
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = d.String()
	}
	return names, nil
}
