// Package commands implements the CLI subcommands for the buildwatch binary.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/dwsmith1983/buildwatch/internal/calendar"
	"github.com/dwsmith1983/buildwatch/internal/config"
	"github.com/dwsmith1983/buildwatch/internal/integrator"
	"github.com/dwsmith1983/buildwatch/internal/pipeline"
	"github.com/dwsmith1983/buildwatch/internal/provider/redis"
	"github.com/dwsmith1983/buildwatch/internal/remote"
	"github.com/dwsmith1983/buildwatch/internal/trigger"
	"github.com/dwsmith1983/buildwatch/pkg/types"
)

func addConfigFlag(cmd *cobra.Command, path *string) {
	cmd.Flags().StringVarP(path, "config", "c", ".", "Config directory or buildwatch.yaml path")
}

// loadConfig accepts either a directory holding buildwatch.yaml or the file itself.
func loadConfig(path string) (*types.Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if info.IsDir() {
		return config.Load(path)
	}
	return config.LoadFile(path)
}

// remoteOptions applies the remote section to HTTP clients of other servers.
func remoteOptions(cfg *types.Config, logger *slog.Logger) []remote.Option {
	opts := []remote.Option{remote.WithLogger(logger)}
	if cfg.Remote != nil {
		if cfg.Remote.APIKey != "" {
			opts = append(opts, remote.WithAPIKey(cfg.Remote.APIKey))
		}
		if d := cfg.Remote.Timeout.Duration(); d > 0 {
			opts = append(opts, remote.WithTimeout(d))
		}
	}
	return opts
}

// newManagers routes project trigger server URIs: http(s) to build servers,
// redis(s) to published status stores.
func newManagers(opts []remote.Option) (remote.SchemeRouter, *redis.Factory) {
	httpFactory := remote.NewHTTPManagerFactory(opts...)
	redisFactory := redis.NewFactory()
	return remote.SchemeRouter{
		"http":   httpFactory,
		"https":  httpFactory,
		"redis":  redisFactory,
		"rediss": redisFactory,
	}, redisFactory
}

// workspace holds everything built from a loaded config.
type workspace struct {
	cfg       *types.Config
	logger    *slog.Logger
	calendars *calendar.Registry
	redis     *redis.Factory
	deps      trigger.Deps
	runner    *pipeline.Runner
}

func newWorkspace(cfg *types.Config, logger *slog.Logger) (*workspace, error) {
	if logger == nil {
		logger = slog.Default()
	}
	calReg := calendar.NewRegistry()
	for _, dir := range cfg.CalendarDirs {
		if err := calReg.LoadDir(dir); err != nil {
			return nil, fmt.Errorf("loading calendars from %s: %w", dir, err)
		}
	}

	opts := remoteOptions(cfg, logger)
	managers, redisFactory := newManagers(opts)
	return &workspace{
		cfg:       cfg,
		logger:    logger,
		calendars: calReg,
		redis:     redisFactory,
		deps: trigger.Deps{
			Logger:    logger,
			Managers:  managers,
			Probe:     remote.NewHTTPProbe(opts...),
			Calendars: calReg,
		},
		runner: pipeline.NewRunner(pipeline.WithLogger(logger)),
	}, nil
}

func (w *workspace) Close() {
	if err := w.redis.Close(); err != nil {
		w.logger.Warn("closing redis connections", "error", err)
	}
}

// projectTrigger is one project's built trigger tree.
type projectTrigger struct {
	project types.ProjectConfig
	trigger trigger.Trigger
}

// buildTriggers builds every project's trigger tree and registers its
// pipeline. Projects are returned ordered by name.
func (w *workspace) buildTriggers() ([]projectTrigger, error) {
	out := make([]projectTrigger, 0, len(w.cfg.Projects))
	for _, p := range w.cfg.Projects {
		trig, err := trigger.Build(*p.Trigger, w.deps)
		if err != nil {
			return nil, fmt.Errorf("project %q: %w", p.Name, err)
		}
		if err := w.runner.Register(p.Name, p.Pipeline); err != nil {
			return nil, err
		}
		out = append(out, projectTrigger{project: p, trigger: trig})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].project.Name < out[j].project.Name })
	return out, nil
}

// integratorOptions are shared by every project.
type integratorOptions struct {
	publishers []integrator.StatusPublisher
	tracer     trace.TracerProvider
	meter      metric.MeterProvider
}

func (w *workspace) buildIntegrators(o integratorOptions) ([]*integrator.Integrator, error) {
	projects, err := w.buildTriggers()
	if err != nil {
		return nil, err
	}
	var fireTimeout time.Duration
	if w.cfg.Watcher != nil {
		fireTimeout = w.cfg.Watcher.TickTimeout.Duration()
	}

	its := make([]*integrator.Integrator, 0, len(projects))
	for _, p := range projects {
		opts := []integrator.Option{
			integrator.WithLogger(w.logger),
			integrator.WithInterval(p.project.Interval.Duration()),
			integrator.WithFireTimeout(fireTimeout),
		}
		for _, pub := range o.publishers {
			opts = append(opts, integrator.WithPublisher(pub))
		}
		if o.tracer != nil {
			opts = append(opts, integrator.WithTracerProvider(o.tracer))
		}
		if o.meter != nil {
			opts = append(opts, integrator.WithMeterProvider(o.meter))
		}
		it, err := integrator.New(p.project.Name, p.trigger, w.runner, opts...)
		if err != nil {
			return nil, err
		}
		its = append(its, it)
	}
	return its, nil
}
