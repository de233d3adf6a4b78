// Package lifecycle implements the project activity state machine.
package lifecycle

import (
	"fmt"
	"slices"

	"github.com/dwsmith1983/buildwatch/pkg/types"
)

// Transition table: from -> allowed tos
var validTransitions = map[types.ProjectActivity][]types.ProjectActivity{
	types.ActivitySleeping: {types.ActivityPending},
	types.ActivityPending:  {types.ActivityBuilding, types.ActivitySleeping},
	types.ActivityBuilding: {types.ActivitySleeping},
}

// CanTransition checks if moving from one activity to another is valid.
func CanTransition(from, to types.ProjectActivity) bool {
	return slices.Contains(validTransitions[from], to)
}

// Transition validates the move, returning an error if it is invalid.
func Transition(from, to types.ProjectActivity) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("invalid activity transition from %s to %s", from, to)
	}
	return nil
}

// IsIdle returns true when no integration is queued or running.
func IsIdle(activity types.ProjectActivity) bool {
	return activity == "" || activity == types.ActivitySleeping
}
