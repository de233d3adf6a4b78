package trigger

import (
	"context"
	"time"

	"github.com/dwsmith1983/buildwatch/internal/clock"
	"github.com/dwsmith1983/buildwatch/pkg/types"
)

// FilterConfig configures a Filter trigger.
type FilterConfig struct {
	Name      string
	StartTime TimeOfDay
	// EndTime may be earlier than StartTime for a window crossing midnight.
	EndTime  TimeOfDay
	WeekDays types.WeekdaySet // zero means every day
	// BuildCondition selects which inner requests are suppressed inside the
	// window. NoBuild (the default) suppresses all of them.
	BuildCondition types.BuildCondition
	Location       *time.Location
}

// Filter suppresses its inner trigger during a time-of-day window on the
// permitted weekdays.
type Filter struct {
	inner     Trigger
	name      string
	start     TimeOfDay
	end       TimeOfDay
	weekDays  types.WeekdaySet
	condition types.BuildCondition
	loc       *time.Location
	clock     clock.Clock
}

// NewFilter wraps inner.
func NewFilter(inner Trigger, cfg FilterConfig, clk clock.Clock) (*Filter, error) {
	name := nameOr(cfg.Name, types.TriggerFilter)
	if inner == nil {
		return nil, configErr(name, "trigger", "inner trigger is required")
	}
	if cfg.WeekDays == 0 {
		cfg.WeekDays = types.AllWeekdays
	}
	if cfg.BuildCondition == "" {
		cfg.BuildCondition = types.NoBuild
	}
	return &Filter{
		inner:     inner,
		name:      name,
		start:     cfg.StartTime,
		end:       cfg.EndTime,
		weekDays:  cfg.WeekDays,
		condition: cfg.BuildCondition,
		loc:       cfg.Location,
		clock:     clk,
	}, nil
}

// IsInFilterRange reports whether ts falls on a permitted weekday inside the
// [StartTime, EndTime] window. When StartTime is after EndTime the window
// crosses midnight and membership is inverted.
func (f *Filter) IsInFilterRange(ts time.Time) bool {
	ts = inZone(ts, f.loc)
	if !f.weekDays.Contains(ts.Weekday()) {
		return false
	}
	tod := sinceMidnight(ts)
	start, end := f.start.SinceMidnight(), f.end.SinceMidnight()
	if start <= end {
		return tod >= start && tod <= end
	}
	return tod >= start || tod <= end
}

// Fire implements Trigger.
func (f *Filter) Fire(ctx context.Context) (*types.IntegrationRequest, error) {
	if !f.IsInFilterRange(f.clock.Now()) {
		return f.inner.Fire(ctx)
	}
	if f.condition == types.NoBuild {
		return nil, nil
	}
	req, err := f.inner.Fire(ctx)
	if err != nil || req == nil {
		return nil, err
	}
	if req.BuildCondition == f.condition {
		return nil, nil
	}
	return req, nil
}

// NextBuild reports when the filter would let the inner trigger through: the
// inner trigger's time, or the end of the window when that time is filtered.
func (f *Filter) NextBuild() time.Time {
	next := f.inner.NextBuild()
	if next.IsZero() || !f.IsInFilterRange(next) {
		return next
	}
	n := inZone(next, f.loc)
	clamped := f.end.On(n, zoneOf(n, f.loc))
	if clamped.Before(n) {
		clamped = clamped.AddDate(0, 0, 1)
	}
	return clamped
}

// IntegrationCompleted implements Trigger.
func (f *Filter) IntegrationCompleted() {
	f.inner.IntegrationCompleted()
}
