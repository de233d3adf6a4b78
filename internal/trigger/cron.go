package trigger

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dwsmith1983/buildwatch/internal/clock"
	"github.com/dwsmith1983/buildwatch/pkg/types"
)

// CronConfig configures a Cron trigger.
type CronConfig struct {
	Name string
	// Expression is a standard five-field cron expression
	// (minute hour day-of-month month day-of-week); descriptors such as
	// "@daily" are also accepted.
	Expression     string
	StartDate      time.Time            // no build before this instant; zero means now
	EndDate        time.Time            // no build after this instant; zero means unbounded
	BuildCondition types.BuildCondition // default IfModificationExists
	Location       *time.Location       // nil means the clock's zone
}

// Cron fires on the occurrences of a cron expression within a date window.
type Cron struct {
	name      string
	schedule  cron.Schedule
	start     time.Time
	end       time.Time
	condition types.BuildCondition
	loc       *time.Location
	clock     clock.Clock

	nextBuild time.Time
	triggered bool
}

// NewCron parses the expression and computes the first occurrence.
func NewCron(cfg CronConfig, clk clock.Clock) (*Cron, error) {
	name := nameOr(cfg.Name, types.TriggerCron)
	if cfg.Expression == "" {
		return nil, configErr(name, "cronExpression", "is required")
	}
	sched, err := cron.ParseStandard(cfg.Expression)
	if err != nil {
		return nil, configErr(name, "cronExpression", "%v", err)
	}
	if !cfg.StartDate.IsZero() && !cfg.EndDate.IsZero() && cfg.EndDate.Before(cfg.StartDate) {
		return nil, configErr(name, "endDate", "must not be before startDate")
	}
	if cfg.BuildCondition == "" {
		cfg.BuildCondition = types.IfModificationExists
	}
	t := &Cron{
		name:      name,
		schedule:  sched,
		start:     cfg.StartDate,
		end:       cfg.EndDate,
		condition: cfg.BuildCondition,
		loc:       cfg.Location,
		clock:     clk,
	}
	t.nextBuild = t.nextOccurrence(clk.Now())
	return t, nil
}

// nextOccurrence returns the first occurrence strictly after from, clamped to
// the start date, or zero once the end date has passed.
func (t *Cron) nextOccurrence(from time.Time) time.Time {
	from = inZone(from, t.loc)
	if !t.start.IsZero() && from.Before(t.start) {
		from = t.start.Add(-time.Second)
	}
	next := t.schedule.Next(from)
	if next.IsZero() || (!t.end.IsZero() && next.After(t.end)) {
		return time.Time{}
	}
	return next
}

// Fire implements Trigger.
func (t *Cron) Fire(_ context.Context) (*types.IntegrationRequest, error) {
	if t.nextBuild.IsZero() {
		return nil, nil
	}
	if t.clock.Now().Before(t.nextBuild) {
		return nil, nil
	}
	t.triggered = true
	return types.NewIntegrationRequest(t.condition, t.name), nil
}

// NextBuild implements Trigger.
func (t *Cron) NextBuild() time.Time {
	return t.nextBuild
}

// IntegrationCompleted moves to the next occurrence if this trigger fired.
func (t *Cron) IntegrationCompleted() {
	if t.triggered {
		t.nextBuild = t.nextOccurrence(t.clock.Now())
	}
	t.triggered = false
}
