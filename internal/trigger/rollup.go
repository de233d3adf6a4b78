package trigger

import (
	"context"
	"time"

	"github.com/dwsmith1983/buildwatch/internal/clock"
	"github.com/dwsmith1983/buildwatch/pkg/types"
)

// RollUp enforces a minimum quiet period between builds, collapsing a burst
// of inner fires into at most one build per MinimumTime.
type RollUp struct {
	inner       Trigger
	minimumTime time.Duration
	clock       clock.Clock
	nextAllowed time.Time
}

// NewRollUp wraps inner. The first check is never blocked.
func NewRollUp(inner Trigger, minimumTime time.Duration, clk clock.Clock) (*RollUp, error) {
	if inner == nil {
		return nil, configErr(string(types.TriggerRollUp), "trigger", "inner trigger is required")
	}
	if minimumTime <= 0 {
		return nil, configErr(string(types.TriggerRollUp), "minimumTime", "must be positive, got %s", minimumTime)
	}
	return &RollUp{
		inner:       inner,
		minimumTime: minimumTime,
		clock:       clk,
		nextAllowed: clk.Now().Add(-time.Minute),
	}, nil
}

// Fire asks the inner trigger only once the quiet period has passed.
func (r *RollUp) Fire(ctx context.Context) (*types.IntegrationRequest, error) {
	if !r.clock.Now().After(r.nextAllowed) {
		return nil, nil
	}
	return r.inner.Fire(ctx)
}

// NextBuild is the inner trigger's next build, but not before the quiet period ends.
func (r *RollUp) NextBuild() time.Time {
	next := r.inner.NextBuild()
	if next.IsZero() || next.After(r.nextAllowed) {
		return next
	}
	return r.nextAllowed
}

// IntegrationCompleted always restarts the quiet period, whether or not the
// inner trigger caused the build.
func (r *RollUp) IntegrationCompleted() {
	r.inner.IntegrationCompleted()
	r.nextAllowed = r.clock.Now().Add(r.minimumTime)
}
