package trigger

import (
	"context"
	"log/slog"
	"time"

	"github.com/dwsmith1983/buildwatch/internal/clock"
	"github.com/dwsmith1983/buildwatch/internal/metrics"
	"github.com/dwsmith1983/buildwatch/internal/remote"
	"github.com/dwsmith1983/buildwatch/pkg/types"
)

// URLConfig configures a URL trigger.
type URLConfig struct {
	Name           string
	URL            string
	Interval       time.Duration        // time between checks, default DefaultInterval
	InitialDelay   time.Duration
	BuildCondition types.BuildCondition // default IfModificationExists
}

// URL is an interval trigger that, once the interval elapses, fires only if
// the remote resource's last-modified time has advanced since the last check.
type URL struct {
	*Interval
	uri          string
	probe        remote.Probe
	logger       *slog.Logger
	lastModified time.Time
	pending      bool
}

// NewURL creates a URL trigger.
func NewURL(cfg URLConfig, probe remote.Probe, clk clock.Clock, logger *slog.Logger) (*URL, error) {
	name := nameOr(cfg.Name, types.TriggerURL)
	if cfg.URL == "" {
		return nil, configErr(name, "url", "is required")
	}
	if probe == nil {
		return nil, configErr(name, "", "no probe configured")
	}
	if logger == nil {
		logger = slog.Default()
	}
	iv, err := NewInterval(IntervalConfig{
		Name:           name,
		Interval:       cfg.Interval,
		InitialDelay:   cfg.InitialDelay,
		BuildCondition: cfg.BuildCondition,
	}, clk)
	if err != nil {
		return nil, err
	}
	return &URL{Interval: iv, uri: cfg.URL, probe: probe, logger: logger}, nil
}

// Fire checks the resource once the interval has elapsed. Probe failures are
// logged and treated as "unchanged".
func (t *URL) Fire(ctx context.Context) (*types.IntegrationRequest, error) {
	req, _ := t.Interval.Fire(ctx)
	if req == nil {
		return nil, nil
	}
	if t.pending {
		return req, nil
	}

	modified, err := t.probe.LastModified(ctx, t.uri, t.lastModified)
	if err != nil {
		metrics.RemotePollFailures.Add(1)
		t.logger.Warn("url trigger: checking resource failed, treating as unchanged",
			"trigger", t.name, "uri", t.uri, "error", err)
		t.postpone()
		return nil, nil
	}
	if !modified.After(t.lastModified) {
		t.logger.Debug("url trigger: resource unchanged", "trigger", t.name, "uri", t.uri)
		t.postpone()
		return nil, nil
	}

	t.lastModified = modified
	t.pending = true
	return req, nil
}

// IntegrationCompleted implements Trigger.
func (t *URL) IntegrationCompleted() {
	t.pending = false
	t.Interval.IntegrationCompleted()
}

// LastModified is the most recent modification time observed.
func (t *URL) LastModified() time.Time {
	return t.lastModified
}
