package integrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dwsmith1983/buildwatch/internal/clock"
	"github.com/dwsmith1983/buildwatch/internal/testutil"
	"github.com/dwsmith1983/buildwatch/internal/trigger"
	"github.com/dwsmith1983/buildwatch/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var start = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newIntegrator(t *testing.T, trig trigger.Trigger, runner PipelineRunner, opts ...Option) *Integrator {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger()), WithClock(clock.NewFake(start))}, opts...)
	it, err := New("core", trig, runner, opts...)
	require.NoError(t, err)
	return it
}

func TestIntegrator_NoFireNoBuild(t *testing.T) {
	trig := testutil.NewStubTrigger(nil)
	trig.SetNextBuild(start.Add(time.Hour))
	runner := testutil.NewMockRunner(types.StatusSuccess)
	it := newIntegrator(t, trig, runner)

	require.NoError(t, it.Tick(context.Background()))

	assert.Empty(t, runner.Requests())
	assert.Equal(t, 0, trig.Completed())
	st := it.Status()
	assert.Equal(t, types.StatusUnknown, st.BuildStatus)
	assert.Equal(t, types.ActivitySleeping, st.Activity)
	assert.Equal(t, start.Add(time.Hour), st.NextBuildTime)
}

func TestIntegrator_FiredRequestRunsPipeline(t *testing.T) {
	req := types.NewIntegrationRequest(types.IfModificationExists, "nightly")
	trig := testutil.NewStubTrigger(req)
	runner := testutil.NewMockRunner(types.StatusSuccess)
	store := testutil.NewMockStatusStore()
	it := newIntegrator(t, trig, runner, WithPublisher(store))

	require.NoError(t, it.Tick(context.Background()))

	require.Len(t, runner.Requests(), 1)
	assert.Equal(t, *req, runner.Requests()[0])
	assert.Equal(t, 1, trig.Completed())

	st := it.Status()
	assert.Equal(t, "core", st.Name)
	assert.Equal(t, types.StatusSuccess, st.BuildStatus)
	assert.Equal(t, start, st.LastBuildDate)
	assert.Equal(t, "nightly", st.LastSource)
	assert.Equal(t, types.ActivitySleeping, st.Activity)
	_, err := ulid.Parse(st.LastBuildID)
	assert.NoError(t, err)

	published, ok := store.Status("core")
	require.True(t, ok)
	assert.Equal(t, st, published)
}

func TestIntegrator_PublishesToEveryPublisher(t *testing.T) {
	trig := testutil.NewStubTrigger(types.NewIntegrationRequest(types.ForceBuild, "interval"))
	runner := testutil.NewMockRunner(types.StatusSuccess)
	first, second := testutil.NewMockStatusStore(), testutil.NewMockStatusStore()
	first.SetPublishError(errors.New("store down"))
	it := newIntegrator(t, trig, runner, WithPublisher(first), WithPublisher(second))

	require.NoError(t, it.Tick(context.Background()))

	published, ok := second.Status("core")
	require.True(t, ok, "a failing publisher does not block the next one")
	assert.Equal(t, types.StatusSuccess, published.BuildStatus)
}

func TestIntegrator_PipelineFailureIsRecorded(t *testing.T) {
	trig := testutil.NewStubTrigger(types.NewIntegrationRequest(types.ForceBuild, "interval"))
	runner := testutil.NewMockRunner(types.StatusFailure)
	runner.SetResult(types.StatusFailure, errors.New("exit status 1"))
	it := newIntegrator(t, trig, runner)

	require.NoError(t, it.Tick(context.Background()))
	assert.Equal(t, types.StatusFailure, it.Status().BuildStatus)
	assert.Equal(t, 1, trig.Completed(), "completion is reported whatever the outcome")
}

func TestIntegrator_FireErrorPropagates(t *testing.T) {
	trig := testutil.NewStubTrigger(nil)
	trig.SetError(trigger.ErrNoSuchProject)
	runner := testutil.NewMockRunner(types.StatusSuccess)
	it := newIntegrator(t, trig, runner)

	err := it.Tick(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, trigger.ErrNoSuchProject)
	assert.Empty(t, runner.Requests())
	assert.Equal(t, types.ActivitySleeping, it.Status().Activity)
}

func TestIntegrator_ForceBuild(t *testing.T) {
	trig := testutil.NewStubTrigger(nil)
	runner := testutil.NewMockRunner(types.StatusSuccess)
	it := newIntegrator(t, trig, runner)

	it.ForceBuild("")
	it.ForceBuild("api")
	require.NoError(t, it.Tick(context.Background()))

	require.Len(t, runner.Requests(), 1)
	assert.Equal(t, types.ForceBuild, runner.Requests()[0].BuildCondition)
	assert.Equal(t, "api", runner.Requests()[0].SourceName)
	assert.Equal(t, 0, trig.Fires(), "a queued force build skips the trigger")
	assert.Equal(t, 1, trig.Completed())

	require.NoError(t, it.Tick(context.Background()))
	assert.Len(t, runner.Requests(), 1, "the force queue is consumed")
}

func TestIntegrator_StatusDuringBuild(t *testing.T) {
	trig := testutil.NewStubTrigger(types.NewIntegrationRequest(types.ForceBuild, "interval"))
	runner := testutil.NewMockRunner(types.StatusSuccess)
	release := runner.Block()
	it := newIntegrator(t, trig, runner)

	done := make(chan error, 1)
	go func() { done <- it.Tick(context.Background()) }()

	testutil.WaitFor(t, 2*time.Second, func() bool {
		return it.Status().Activity == types.ActivityBuilding
	}, "activity is Building")

	release()
	require.NoError(t, <-done)
	assert.Equal(t, types.ActivitySleeping, it.Status().Activity)
}

func TestIntegrator_WithIntervalTrigger(t *testing.T) {
	clk := clock.NewFake(start)
	iv, err := trigger.NewForceBuildInterval("interval", time.Minute, clk)
	require.NoError(t, err)
	runner := testutil.NewMockRunner(types.StatusSuccess)
	it := newIntegrator(t, iv, runner, WithClock(clk))

	require.NoError(t, it.Tick(context.Background()))
	require.NoError(t, it.Tick(context.Background()))
	assert.Len(t, runner.Requests(), 1)
	assert.Equal(t, start.Add(time.Minute), it.Status().NextBuildTime)

	clk.Advance(time.Minute)
	require.NoError(t, it.Tick(context.Background()))
	assert.Len(t, runner.Requests(), 2)
}

func TestNew_Validation(t *testing.T) {
	trig := testutil.NewStubTrigger(nil)
	runner := testutil.NewMockRunner(types.StatusSuccess)

	_, err := New("", trig, runner)
	assert.Error(t, err)
	_, err = New("core", nil, runner)
	assert.Error(t, err)
	_, err = New("core", trig, nil)
	assert.Error(t, err)
}
