package trigger

import (
	"context"
	"math/rand"
	"time"

	"github.com/dwsmith1983/buildwatch/internal/clock"
	"github.com/dwsmith1983/buildwatch/pkg/types"
)

// ScheduleConfig configures a Schedule trigger.
type ScheduleConfig struct {
	Name     string
	Time     TimeOfDay
	WeekDays types.WeekdaySet // zero means every day
	// RandomOffsetMinutes spreads the build uniformly over [Time, Time+offset).
	// Time.Minute + RandomOffsetMinutes must stay below 60.
	RandomOffsetMinutes int
	BuildCondition      types.BuildCondition // default IfModificationExists
	Location            *time.Location       // nil means the clock's zone
	// Random returns a uniform int in [0, n). Defaults to math/rand.Intn.
	Random func(n int) int
}

// Schedule fires once per permitted weekday at a configured time of day.
type Schedule struct {
	name          string
	at            TimeOfDay
	weekDays      types.WeekdaySet
	offsetMinutes int
	condition     types.BuildCondition
	loc           *time.Location
	clock         clock.Clock
	random        func(n int) int

	nextBuild     time.Time
	lastBuildDate time.Time
	firedDate     time.Time
	triggered     bool
}

// NewSchedule creates a Schedule trigger and computes its first build time.
func NewSchedule(cfg ScheduleConfig, clk clock.Clock) (*Schedule, error) {
	name := nameOr(cfg.Name, types.TriggerSchedule)
	if cfg.RandomOffsetMinutes < 0 {
		return nil, configErr(name, "randomOffSetInMinutesFromTime", "must not be negative, got %d", cfg.RandomOffsetMinutes)
	}
	if cfg.Time.Minute+cfg.RandomOffsetMinutes >= 60 {
		return nil, configErr(name, "randomOffSetInMinutesFromTime",
			"scheduled time %s + %d minutes would exceed the hour", cfg.Time, cfg.RandomOffsetMinutes)
	}
	if cfg.WeekDays == 0 {
		cfg.WeekDays = types.AllWeekdays
	}
	if cfg.BuildCondition == "" {
		cfg.BuildCondition = types.IfModificationExists
	}
	if cfg.Random == nil {
		cfg.Random = rand.Intn
	}
	t := &Schedule{
		name:          name,
		at:            cfg.Time,
		weekDays:      cfg.WeekDays,
		offsetMinutes: cfg.RandomOffsetMinutes,
		condition:     cfg.BuildCondition,
		loc:           cfg.Location,
		clock:         clk,
		random:        cfg.Random,
	}
	t.nextBuild = t.computeNextBuild(clk.Now())
	return t, nil
}

// computeNextBuild takes today's date at the configured time plus any random
// offset, moves to tomorrow when that is not in the future or a build already
// ran today, then skips forward to a permitted weekday.
func (t *Schedule) computeNextBuild(now time.Time) time.Time {
	now = inZone(now, t.loc)
	next := t.at.On(now, zoneOf(now, t.loc))
	if t.offsetMinutes > 0 {
		next = next.Add(time.Duration(t.random(t.offsetMinutes)) * time.Minute)
	}
	if !now.Before(next) || startOfDay(now).Equal(t.lastBuildDate) {
		next = next.AddDate(0, 0, 1)
	}
	for i := 0; i < 7 && !t.weekDays.Contains(next.Weekday()); i++ {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Fire implements Trigger.
func (t *Schedule) Fire(_ context.Context) (*types.IntegrationRequest, error) {
	now := inZone(t.clock.Now(), t.loc)
	if now.After(t.nextBuild) && t.weekDays.Contains(now.Weekday()) {
		if !t.triggered {
			t.firedDate = startOfDay(now)
		}
		t.triggered = true
		return types.NewIntegrationRequest(t.condition, t.name), nil
	}
	return nil, nil
}

// NextBuild implements Trigger.
func (t *Schedule) NextBuild() time.Time {
	return t.nextBuild
}

// IntegrationCompleted records the day the build fired and schedules the next
// one, but only if this trigger caused the build. A build finishing after
// midnight still counts for the day it started.
func (t *Schedule) IntegrationCompleted() {
	if t.triggered {
		t.lastBuildDate = t.firedDate
		t.nextBuild = t.computeNextBuild(inZone(t.clock.Now(), t.loc))
	}
	t.triggered = false
}
