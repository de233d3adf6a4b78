package trigger

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwsmith1983/buildwatch/internal/clock"
	"github.com/dwsmith1983/buildwatch/pkg/types"
)

var ctx = context.Background()

// monday is 2026-03-02 00:00 UTC.
var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func at(day time.Time, hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fire(t *testing.T, trig Trigger) *types.IntegrationRequest {
	t.Helper()
	req, err := trig.Fire(ctx)
	require.NoError(t, err)
	return req
}

func TestEarliest(t *testing.T) {
	a := at(monday, 8, 0)
	b := at(monday, 9, 0)

	assert.Equal(t, a, earliest(a, b))
	assert.Equal(t, a, earliest(b, a))
	assert.Equal(t, a, earliest(time.Time{}, a))
	assert.Equal(t, a, earliest(a, time.Time{}))
	assert.True(t, earliest(time.Time{}, time.Time{}).IsZero())
}

func TestInterval_FiresImmediatelyThenThrottles(t *testing.T) {
	clk := clock.NewFake(at(monday, 10, 0))
	iv, err := NewInterval(IntervalConfig{Interval: time.Minute, BuildCondition: types.ForceBuild}, clk)
	require.NoError(t, err)

	req := fire(t, iv)
	require.NotNil(t, req)
	assert.Equal(t, types.ForceBuild, req.BuildCondition)
	assert.Equal(t, "interval", req.SourceName)

	iv.IntegrationCompleted()
	assert.Equal(t, at(monday, 10, 1), iv.NextBuild())
	assert.Equal(t, at(monday, 10, 0), iv.LastCompleted())

	clk.Advance(59 * time.Second)
	assert.Equal(t, types.NoBuild, iv.ShouldRunIntegration())
	assert.Nil(t, fire(t, iv))

	clk.Advance(2 * time.Second)
	assert.Equal(t, types.ForceBuild, iv.ShouldRunIntegration())
}

func TestInterval_CompletionResetsEvenWithoutBuild(t *testing.T) {
	clk := clock.NewFake(at(monday, 10, 0))
	iv, err := NewPollingInterval("poll", 30*time.Second, clk)
	require.NoError(t, err)

	clk.Advance(10 * time.Second)
	iv.IntegrationCompleted()
	clk.Advance(25 * time.Second)
	assert.Equal(t, types.NoBuild, iv.ShouldRunIntegration())
	clk.Advance(10 * time.Second)
	assert.Equal(t, types.IfModificationExists, iv.ShouldRunIntegration())
}

func TestInterval_Defaults(t *testing.T) {
	clk := clock.NewFake(at(monday, 10, 0))
	iv, err := NewInterval(IntervalConfig{InitialDelay: 5 * time.Minute}, clk)
	require.NoError(t, err)

	assert.Equal(t, DefaultInterval, iv.Interval())
	assert.Equal(t, at(monday, 10, 5), iv.NextBuild())
	assert.Nil(t, fire(t, iv))

	clk.Advance(5 * time.Minute)
	req := fire(t, iv)
	require.NotNil(t, req)
	assert.Equal(t, types.IfModificationExists, req.BuildCondition)
}

func TestInterval_RejectsNegative(t *testing.T) {
	clk := clock.NewFake(monday)
	_, err := NewInterval(IntervalConfig{Interval: -time.Second}, clk)
	assert.True(t, IsConfigError(err))
	_, err = NewInterval(IntervalConfig{InitialDelay: -time.Second}, clk)
	assert.True(t, IsConfigError(err))
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{in: "08:00", want: TimeOfDay{Hour: 8}},
		{in: "7:05", want: TimeOfDay{Hour: 7, Minute: 5}},
		{in: "23:59:30", want: TimeOfDay{Hour: 23, Minute: 59, Second: 30}},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "noon", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigError_Message(t *testing.T) {
	err := configErr("nightly", "time", "invalid %q", "x")
	assert.EqualError(t, err, `nightly trigger: time: invalid "x"`)
	assert.EqualError(t, configErr("nightly", "", "broken"), "nightly trigger: broken")
}
