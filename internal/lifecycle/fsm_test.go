package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dwsmith1983/buildwatch/pkg/types"
)

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from  types.ProjectActivity
		to    types.ProjectActivity
		valid bool
	}{
		{types.ActivitySleeping, types.ActivityPending, true},
		{types.ActivitySleeping, types.ActivityBuilding, false},
		{types.ActivityPending, types.ActivityBuilding, true},
		{types.ActivityPending, types.ActivitySleeping, true},
		{types.ActivityBuilding, types.ActivitySleeping, true},
		{types.ActivityBuilding, types.ActivityPending, false},
		{types.ActivitySleeping, types.ActivitySleeping, false},
		{"Unknown", types.ActivitySleeping, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.valid, CanTransition(tt.from, tt.to))
			err := Transition(tt.from, tt.to)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestIsIdle(t *testing.T) {
	assert.True(t, IsIdle(types.ActivitySleeping))
	assert.True(t, IsIdle(""))
	assert.False(t, IsIdle(types.ActivityPending))
	assert.False(t, IsIdle(types.ActivityBuilding))
}
