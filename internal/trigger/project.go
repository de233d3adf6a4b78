package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dwsmith1983/buildwatch/internal/clock"
	"github.com/dwsmith1983/buildwatch/internal/metrics"
	"github.com/dwsmith1983/buildwatch/internal/remote"
	"github.com/dwsmith1983/buildwatch/pkg/types"
)

const (
	// DefaultServerURI is the build server polled when none is configured.
	DefaultServerURI = "http://localhost:8080"
	// DefaultProjectPollInterval throttles remote polls when no inner trigger is configured.
	DefaultProjectPollInterval = 5 * time.Second
)

// ProjectConfig configures a Project trigger.
type ProjectConfig struct {
	Name             string
	Project          string
	ServerURI        string                  // default DefaultServerURI
	TriggerStatus    types.IntegrationStatus // default Success
	TriggerFirstTime bool
}

// Project fires when another project, possibly on a remote server, completes
// a build with the configured status. The inner trigger throttles polling and
// supplies the build condition.
type Project struct {
	name             string
	project          string
	serverURI        string
	triggerStatus    types.IntegrationStatus
	triggerFirstTime bool
	inner            Trigger
	managers         remote.ManagerFactory
	logger           *slog.Logger

	// lastStatus is the committed baseline, nil until the first poll.
	// It lives in memory only and is lost on restart.
	lastStatus    *types.ProjectStatus
	currentStatus *types.ProjectStatus
	pending       *types.IntegrationRequest
}

// NewProject creates a Project trigger. A nil inner trigger defaults to a
// ForceBuild interval of DefaultProjectPollInterval.
func NewProject(cfg ProjectConfig, inner Trigger, managers remote.ManagerFactory, clk clock.Clock, logger *slog.Logger) (*Project, error) {
	name := nameOr(cfg.Name, types.TriggerProject)
	if cfg.Project == "" {
		return nil, configErr(name, "project", "is required")
	}
	if managers == nil {
		return nil, configErr(name, "", "no remote manager factory configured")
	}
	if cfg.ServerURI == "" {
		cfg.ServerURI = DefaultServerURI
	}
	if cfg.TriggerStatus == "" {
		cfg.TriggerStatus = types.StatusSuccess
	}
	if logger == nil {
		logger = slog.Default()
	}
	if inner == nil {
		iv, err := NewForceBuildInterval(name, DefaultProjectPollInterval, clk)
		if err != nil {
			return nil, err
		}
		inner = iv
	}
	return &Project{
		name:             name,
		project:          cfg.Project,
		serverURI:        cfg.ServerURI,
		triggerStatus:    cfg.TriggerStatus,
		triggerFirstTime: cfg.TriggerFirstTime,
		inner:            inner,
		managers:         managers,
		logger:           logger,
	}, nil
}

// Fire polls the remote project once the inner trigger allows it. Transport
// failures are logged and count as no change. A project missing on the
// server returns an error wrapping ErrNoSuchProject.
func (p *Project) Fire(ctx context.Context) (*types.IntegrationRequest, error) {
	if p.pending != nil {
		return p.pending, nil
	}
	req, err := p.inner.Fire(ctx)
	if err != nil || req == nil {
		return nil, err
	}

	status, err := p.poll(ctx)
	if err != nil {
		p.inner.IntegrationCompleted()
		if remote.IsTransport(err) {
			metrics.RemotePollFailures.Add(1)
			p.logger.Warn("project trigger: polling remote server failed",
				"trigger", p.name, "project", p.project, "uri", p.serverURI, "error", err)
			return nil, nil
		}
		return nil, err
	}
	p.currentStatus = status

	if !p.shouldFire(status) {
		p.commitBaseline()
		p.inner.IntegrationCompleted()
		return nil, nil
	}
	p.pending = types.NewIntegrationRequest(req.BuildCondition, p.name)
	return p.pending, nil
}

func (p *Project) shouldFire(status *types.ProjectStatus) bool {
	if status.BuildStatus != p.triggerStatus {
		return false
	}
	if p.lastStatus == nil {
		return p.triggerFirstTime
	}
	return status.LastBuildDate.After(p.lastStatus.LastBuildDate)
}

func (p *Project) poll(ctx context.Context) (*types.ProjectStatus, error) {
	mgr, err := p.managers.GetManager(p.serverURI)
	if err != nil {
		return nil, fmt.Errorf("project trigger %q: %w", p.name, err)
	}
	statuses, err := mgr.GetProjectStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("project trigger %q: %w", p.name, err)
	}
	for i := range statuses {
		if statuses[i].Name == p.project {
			s := statuses[i]
			return &s, nil
		}
	}
	return nil, fmt.Errorf("project %q on server %s: %w", p.project, p.serverURI, ErrNoSuchProject)
}

// commitBaseline records the most recent observation as the baseline the
// next poll is compared against.
func (p *Project) commitBaseline() {
	if p.currentStatus != nil {
		p.lastStatus = p.currentStatus
	}
}

// NextBuild is the next time the remote project will be polled.
func (p *Project) NextBuild() time.Time {
	return p.inner.NextBuild()
}

// IntegrationCompleted commits the observed status as the new baseline.
func (p *Project) IntegrationCompleted() {
	p.commitBaseline()
	p.pending = nil
	p.inner.IntegrationCompleted()
}

// LastStatus returns the committed baseline, nil before the first poll.
func (p *Project) LastStatus() *types.ProjectStatus {
	return p.lastStatus
}
