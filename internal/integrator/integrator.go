// Package integrator drives one project's trigger tree: it asks the trigger
// whether to build on every tick, runs the pipeline for a fired request and
// reports completion back to the trigger.
package integrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/dwsmith1983/buildwatch/internal/clock"
	"github.com/dwsmith1983/buildwatch/internal/lifecycle"
	"github.com/dwsmith1983/buildwatch/internal/metrics"
	"github.com/dwsmith1983/buildwatch/internal/pipeline"
	"github.com/dwsmith1983/buildwatch/internal/trigger"
	"github.com/dwsmith1983/buildwatch/pkg/types"
)

const instrumentationName = "github.com/dwsmith1983/buildwatch/internal/integrator"

// DefaultForceSource names forced builds queued without a source.
const DefaultForceSource = "force"

// PipelineRunner executes a fired request.
type PipelineRunner interface {
	Run(ctx context.Context, project string, req *types.IntegrationRequest) (types.IntegrationStatus, error)
}

// StatusPublisher receives the project's status after every integration.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, status types.ProjectStatus) error
}

// Integrator owns a project's trigger tree. Tick calls are serialised, so
// the tree is only ever used by one goroutine at a time; Status and
// ForceBuild are safe to call concurrently with a running build.
type Integrator struct {
	project     string
	trigger     trigger.Trigger
	runner      PipelineRunner
	publishers  []StatusPublisher
	logger      *slog.Logger
	clock       clock.Clock
	interval    time.Duration
	fireTimeout time.Duration

	tracer       trace.Tracer
	fires        metric.Int64Counter
	integrations metric.Int64Counter

	tickMu sync.Mutex

	mu     sync.RWMutex
	status types.ProjectStatus
	forced *types.IntegrationRequest
}

// Option configures an Integrator.
type Option func(*Integrator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(i *Integrator) { i.logger = l }
}

// WithClock sets the clock used for build timestamps.
func WithClock(c clock.Clock) Option {
	return func(i *Integrator) { i.clock = c }
}

// WithPublisher publishes the project's status after every integration.
// It may be given more than once.
func WithPublisher(p StatusPublisher) Option {
	return func(i *Integrator) { i.publishers = append(i.publishers, p) }
}

// WithInterval overrides the scheduler's tick interval for this project.
func WithInterval(d time.Duration) Option {
	return func(i *Integrator) { i.interval = d }
}

// WithFireTimeout bounds each trigger evaluation, which may poll remote
// servers. The build itself is bounded by the pipeline's own timeout.
func WithFireTimeout(d time.Duration) Option {
	return func(i *Integrator) { i.fireTimeout = d }
}

// WithTracerProvider sets the OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(i *Integrator) { i.tracer = tp.Tracer(instrumentationName) }
}

// WithMeterProvider sets the OpenTelemetry meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(i *Integrator) { i.initInstruments(mp.Meter(instrumentationName)) }
}

// New creates an Integrator for project.
func New(project string, trig trigger.Trigger, runner PipelineRunner, opts ...Option) (*Integrator, error) {
	if project == "" {
		return nil, fmt.Errorf("integrator: project name is required")
	}
	if trig == nil {
		return nil, fmt.Errorf("integrator %q: trigger is required", project)
	}
	if runner == nil {
		return nil, fmt.Errorf("integrator %q: pipeline runner is required", project)
	}
	i := &Integrator{
		project: project,
		trigger: trig,
		runner:  runner,
	}
	for _, o := range opts {
		o(i)
	}
	if i.logger == nil {
		i.logger = slog.Default()
	}
	i.logger = i.logger.With("project", project)
	if i.clock == nil {
		i.clock = clock.System{}
	}
	if i.tracer == nil {
		i.tracer = otel.Tracer(instrumentationName)
	}
	if i.fires == nil {
		i.initInstruments(otel.Meter(instrumentationName))
	}
	i.status = types.ProjectStatus{
		Name:          project,
		BuildStatus:   types.StatusUnknown,
		Activity:      types.ActivitySleeping,
		NextBuildTime: trig.NextBuild(),
	}
	return i, nil
}

func (i *Integrator) initInstruments(m metric.Meter) {
	var err error
	if i.fires, err = m.Int64Counter("buildwatch.trigger.fires",
		metric.WithDescription("Integration requests produced by triggers")); err != nil {
		otel.Handle(err)
	}
	if i.integrations, err = m.Int64Counter("buildwatch.integrations",
		metric.WithDescription("Completed integrations by status")); err != nil {
		otel.Handle(err)
	}
}

// Project returns the project name.
func (i *Integrator) Project() string { return i.project }

// Interval returns the per-project tick interval, zero for the scheduler default.
func (i *Integrator) Interval() time.Duration { return i.interval }

// Status returns a snapshot of the project's status.
func (i *Integrator) Status() types.ProjectStatus {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.status
}

// ForceBuild queues a forced request for the next tick. A queued request
// replaces any earlier one.
func (i *Integrator) ForceBuild(source string) {
	if source == "" {
		source = DefaultForceSource
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.forced = types.NewIntegrationRequest(types.ForceBuild, source)
	metrics.ForcedBuilds.Add(1)
}

func (i *Integrator) takeForced() *types.IntegrationRequest {
	i.mu.Lock()
	defer i.mu.Unlock()
	req := i.forced
	i.forced = nil
	return req
}

func (i *Integrator) setActivity(to types.ProjectActivity) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := lifecycle.Transition(i.status.Activity, to); err != nil {
		i.logger.Warn("unexpected activity change", "error", err)
	}
	i.status.Activity = to
}

func (i *Integrator) refreshNextBuild() {
	next := i.trigger.NextBuild()
	i.mu.Lock()
	defer i.mu.Unlock()
	i.status.NextBuildTime = next
}

// Tick runs one scheduling cycle: a queued forced build, or whatever the
// trigger fires. It returns the trigger's error, if any. Pipeline failures
// are recorded in the status, not returned.
func (i *Integrator) Tick(ctx context.Context) error {
	i.tickMu.Lock()
	defer i.tickMu.Unlock()

	ctx, span := i.tracer.Start(ctx, "integrator.tick",
		trace.WithAttributes(attribute.String("project", i.project)))
	defer span.End()
	metrics.TicksTotal.Add(1)

	req := i.takeForced()
	if req == nil {
		var err error
		req, err = i.fire(ctx)
		if err != nil {
			metrics.FireErrors.Add(1)
			span.RecordError(err)
			span.SetStatus(codes.Error, "trigger failed")
			i.refreshNextBuild()
			return fmt.Errorf("project %q: firing trigger: %w", i.project, err)
		}
	}
	if req == nil {
		i.refreshNextBuild()
		return nil
	}

	metrics.FiresTotal.Add(1)
	i.fires.Add(ctx, 1, metric.WithAttributes(
		attribute.String("project", i.project),
		attribute.String("condition", string(req.BuildCondition))))
	span.SetAttributes(
		attribute.String("condition", string(req.BuildCondition)),
		attribute.String("source", req.SourceName))

	i.integrate(ctx, req)
	return nil
}

func (i *Integrator) fire(ctx context.Context) (*types.IntegrationRequest, error) {
	if i.fireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.fireTimeout)
		defer cancel()
	}
	return i.trigger.Fire(ctx)
}

func (i *Integrator) integrate(ctx context.Context, req *types.IntegrationRequest) {
	id := ulid.Make().String()
	logger := i.logger.With("build", id, "condition", req.BuildCondition, "source", req.SourceName)

	i.setActivity(types.ActivityPending)
	logger.Info("integration requested")
	i.setActivity(types.ActivityBuilding)

	ctx, span := i.tracer.Start(ctx, "integrator.build", trace.WithAttributes(
		attribute.String("project", i.project),
		attribute.String("build.id", id)))
	status, err := i.runner.Run(ctx, i.project, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(status))
	}
	span.End()

	metrics.IntegrationsTotal.Add(1)
	i.integrations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("project", i.project),
		attribute.String("status", string(status))))
	if status != types.StatusSuccess {
		metrics.IntegrationsFailed.Add(1)
		logger.Error("integration failed", "status", status, "category", pipeline.ClassifyFailure(err), "error", err)
	} else {
		logger.Info("integration succeeded")
	}

	i.trigger.IntegrationCompleted()
	next := i.trigger.NextBuild()

	i.mu.Lock()
	i.status.BuildStatus = status
	i.status.LastBuildDate = i.clock.Now()
	i.status.LastSource = req.SourceName
	i.status.LastBuildID = id
	i.status.NextBuildTime = next
	i.mu.Unlock()
	i.setActivity(types.ActivitySleeping)

	i.publish(ctx)
}

func (i *Integrator) publish(ctx context.Context) {
	if len(i.publishers) == 0 {
		return
	}
	// a cancelled tick should still publish the final status
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	status := i.Status()
	for _, p := range i.publishers {
		if err := p.PublishStatus(ctx, status); err != nil {
			metrics.StatusPublishErrors.Add(1)
			i.logger.Warn("publishing status failed", "error", err)
		}
	}
}
