// Package trigger implements the build trigger family: leaf timers, decorators,
// the AND/OR composite and the remote project dependency trigger.
//
// A trigger tree is driven by exactly one caller per project. Fire is called
// once per tick; a non-nil request means a build should start. After the build
// finishes, successfully or not, the caller invokes IntegrationCompleted so the
// leaves can reset their pending state and advance their clocks.
package trigger

import (
	"context"
	"time"

	"github.com/dwsmith1983/buildwatch/pkg/types"
)

// Trigger decides whether a project should build on the current tick.
type Trigger interface {
	// NextBuild reports the earliest time this trigger expects to fire.
	// The zero time means no future build is known. It has no side effects.
	NextBuild() time.Time

	// Fire returns a request when a build should start, nil otherwise.
	// A pending request is reported again on every call until
	// IntegrationCompleted consumes it.
	Fire(ctx context.Context) (*types.IntegrationRequest, error)

	// IntegrationCompleted clears pending state after the build pipeline
	// has handled a fired request.
	IntegrationCompleted()
}

// earliest returns the earlier of two times, ignoring zero values.
func earliest(a, b time.Time) time.Time {
	switch {
	case a.IsZero():
		return b
	case b.IsZero():
		return a
	case b.Before(a):
		return b
	default:
		return a
	}
}

func nameOr(name string, def types.TriggerType) string {
	if name != "" {
		return name
	}
	return string(def)
}
