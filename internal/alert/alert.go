// Package alert notifies sinks when a project's build fails or recovers.
package alert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/dwsmith1983/buildwatch/pkg/types"
)

// Sink is an alert destination.
type Sink interface {
	Send(ctx context.Context, alert types.Alert) error
	Name() string
}

// Dispatcher routes alerts to configured sinks. It is also an integration
// status publisher: every published status is compared with the project's
// previous one to decide whether to alert.
type Dispatcher struct {
	sinks  []Sink
	logger *slog.Logger

	mu   sync.Mutex
	last map[string]types.IntegrationStatus
}

// NewDispatcher creates a dispatcher from alert configs.
func NewDispatcher(configs []types.AlertConfig, logger *slog.Logger) (*Dispatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{logger: logger, last: make(map[string]types.IntegrationStatus)}
	for _, cfg := range configs {
		sink, err := newSink(cfg)
		if err != nil {
			return nil, fmt.Errorf("creating %s sink: %w", cfg.Type, err)
		}
		d.sinks = append(d.sinks, sink)
	}
	return d, nil
}

// AddSink registers an additional sink.
func (d *Dispatcher) AddSink(s Sink) {
	d.sinks = append(d.sinks, s)
}

// Dispatch sends an alert to all configured sinks. A failing sink does not
// stop delivery to the others.
func (d *Dispatcher) Dispatch(ctx context.Context, alert types.Alert) {
	for _, sink := range d.sinks {
		if err := sink.Send(ctx, alert); err != nil {
			d.logger.Warn("alert delivery failed", "sink", sink.Name(), "project", alert.Project, "error", err)
		}
	}
}

// Close releases sinks that hold resources, such as open log files.
func (d *Dispatcher) Close() error {
	var errs []error
	for _, sink := range d.sinks {
		if c, ok := sink.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing %s sink: %w", sink.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// PublishStatus alerts on a failed integration, and on the first success
// after a failure.
func (d *Dispatcher) PublishStatus(ctx context.Context, status types.ProjectStatus) error {
	d.mu.Lock()
	prev, seen := d.last[status.Name]
	d.last[status.Name] = status.BuildStatus
	d.mu.Unlock()

	a, ok := alertFor(status, prev, seen)
	if ok {
		d.Dispatch(ctx, a)
	}
	return nil
}

func alertFor(status types.ProjectStatus, prev types.IntegrationStatus, seen bool) (types.Alert, bool) {
	a := types.Alert{
		Project:   status.Name,
		Status:    status.BuildStatus,
		BuildID:   status.LastBuildID,
		Source:    status.LastSource,
		Timestamp: status.LastBuildDate,
	}
	switch status.BuildStatus {
	case types.StatusFailure, types.StatusException:
		a.Level = types.AlertLevelError
		a.Message = fmt.Sprintf("build %s ended %s", status.LastBuildID, status.BuildStatus)
		return a, true
	case types.StatusCancelled:
		a.Level = types.AlertLevelWarning
		a.Message = fmt.Sprintf("build %s was cancelled", status.LastBuildID)
		return a, true
	case types.StatusSuccess:
		if seen && (prev == types.StatusFailure || prev == types.StatusException) {
			a.Level = types.AlertLevelInfo
			a.Message = "build fixed"
			return a, true
		}
	}
	return a, false
}

func newSink(cfg types.AlertConfig) (Sink, error) {
	switch cfg.Type {
	case types.AlertConsole:
		return NewConsoleSink(), nil
	case types.AlertWebhook:
		if cfg.URL == "" {
			return nil, fmt.Errorf("webhook URL required")
		}
		return NewWebhookSink(cfg.URL), nil
	case types.AlertFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("file path required")
		}
		return NewFileSink(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown alert type %q", cfg.Type)
	}
}
