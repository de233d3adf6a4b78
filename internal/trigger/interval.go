package trigger

import (
	"context"
	"time"

	"github.com/dwsmith1983/buildwatch/internal/clock"
	"github.com/dwsmith1983/buildwatch/pkg/types"
)

// DefaultInterval is used when an interval trigger has no interval configured.
const DefaultInterval = 60 * time.Second

// IntervalConfig configures an Interval trigger.
type IntervalConfig struct {
	Name           string
	Interval       time.Duration        // default DefaultInterval
	InitialDelay   time.Duration        // wait before the first build after start-up
	BuildCondition types.BuildCondition // default IfModificationExists
}

// Interval fires once a fixed duration has elapsed since the last completed
// integration. Completion resets the timer whether or not a build ran, so it
// throttles polling attempts as well as builds.
type Interval struct {
	name          string
	interval      time.Duration
	condition     types.BuildCondition
	clock         clock.Clock
	lastCompleted time.Time
	nextBuild     time.Time
}

// NewInterval creates an Interval trigger.
func NewInterval(cfg IntervalConfig, clk clock.Clock) (*Interval, error) {
	name := nameOr(cfg.Name, types.TriggerInterval)
	if cfg.Interval < 0 {
		return nil, configErr(name, "seconds", "must not be negative, got %s", cfg.Interval)
	}
	if cfg.InitialDelay < 0 {
		return nil, configErr(name, "initialSeconds", "must not be negative, got %s", cfg.InitialDelay)
	}
	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.BuildCondition == "" {
		cfg.BuildCondition = types.IfModificationExists
	}
	return &Interval{
		name:      name,
		interval:  cfg.Interval,
		condition: cfg.BuildCondition,
		clock:     clk,
		nextBuild: clk.Now().Add(cfg.InitialDelay),
	}, nil
}

// NewForceBuildInterval creates an interval trigger that always forces a build.
func NewForceBuildInterval(name string, interval time.Duration, clk clock.Clock) (*Interval, error) {
	return NewInterval(IntervalConfig{Name: name, Interval: interval, BuildCondition: types.ForceBuild}, clk)
}

// NewPollingInterval creates an interval trigger that builds only when the
// pipeline finds modifications.
func NewPollingInterval(name string, interval time.Duration, clk clock.Clock) (*Interval, error) {
	return NewInterval(IntervalConfig{Name: name, Interval: interval, BuildCondition: types.IfModificationExists}, clk)
}

// ShouldRunIntegration returns NoBuild until the interval has elapsed, then the
// configured condition.
func (t *Interval) ShouldRunIntegration() types.BuildCondition {
	if t.clock.Now().Before(t.nextBuild) {
		return types.NoBuild
	}
	return t.condition
}

// Fire implements Trigger.
func (t *Interval) Fire(_ context.Context) (*types.IntegrationRequest, error) {
	cond := t.ShouldRunIntegration()
	if cond == types.NoBuild {
		return nil, nil
	}
	return types.NewIntegrationRequest(cond, t.name), nil
}

// NextBuild implements Trigger.
func (t *Interval) NextBuild() time.Time {
	return t.nextBuild
}

// IntegrationCompleted restarts the interval from now.
func (t *Interval) IntegrationCompleted() {
	t.restart()
}

// LastCompleted is the time of the last completion, zero if none.
func (t *Interval) LastCompleted() time.Time {
	return t.lastCompleted
}

// Interval returns the configured interval.
func (t *Interval) Interval() time.Duration {
	return t.interval
}

func (t *Interval) restart() {
	t.lastCompleted = t.clock.Now()
	t.nextBuild = t.lastCompleted.Add(t.interval)
}

// postpone pushes the next check one interval out without recording a completion.
func (t *Interval) postpone() {
	t.nextBuild = t.clock.Now().Add(t.interval)
}
