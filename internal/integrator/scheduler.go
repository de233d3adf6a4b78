package integrator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dwsmith1983/buildwatch/pkg/types"
)

// DefaultInterval is the tick interval when none is configured.
const DefaultInterval = 10 * time.Second

// Scheduler runs one tick loop per integrator.
type Scheduler struct {
	integrators map[string]*Integrator
	interval    time.Duration
	logger      *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a Scheduler. Project names must be unique.
func NewScheduler(cfg types.WatcherConfig, logger *slog.Logger, integrators ...*Integrator) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	interval := cfg.DefaultInterval.Duration()
	if interval <= 0 {
		interval = DefaultInterval
	}
	s := &Scheduler{
		integrators: make(map[string]*Integrator, len(integrators)),
		interval:    interval,
		logger:      logger,
	}
	for _, it := range integrators {
		if _, dup := s.integrators[it.Project()]; dup {
			return nil, fmt.Errorf("duplicate project %q", it.Project())
		}
		s.integrators[it.Project()] = it
	}
	return s, nil
}

// Start launches the loops. They run until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done

	g, gctx := errgroup.WithContext(ctx)
	for _, it := range s.integrators {
		g.Go(func() error {
			s.loop(gctx, it)
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		cancel()
		// drained loops leave the scheduler startable again
		s.mu.Lock()
		if s.done == done {
			s.cancel, s.done = nil, nil
		}
		s.mu.Unlock()
		close(done)
	}()
	s.logger.Info("scheduler started", "projects", len(s.integrators), "interval", s.interval)
}

// Stop cancels the loops and waits for in-flight ticks to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
		return ctx.Err()
	}
}

// Running reports whether the loops are started and not yet drained.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Len returns the number of scheduled projects.
func (s *Scheduler) Len() int {
	return len(s.integrators)
}

func (s *Scheduler) loop(ctx context.Context, it *Integrator) {
	interval := it.Interval()
	if interval <= 0 {
		interval = s.interval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run immediately on start
	s.tick(ctx, it)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, it)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, it *Integrator) {
	if err := it.Tick(ctx); err != nil {
		s.logger.Error("tick failed", "project", it.Project(), "error", err)
	}
}

// Get returns the integrator for project.
func (s *Scheduler) Get(project string) (*Integrator, bool) {
	it, ok := s.integrators[project]
	return it, ok
}

// Statuses returns every project's status ordered by name.
func (s *Scheduler) Statuses() []types.ProjectStatus {
	out := make([]types.ProjectStatus, 0, len(s.integrators))
	for _, it := range s.integrators {
		out = append(out, it.Status())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ProjectStatus returns one project's status.
func (s *Scheduler) ProjectStatus(project string) (types.ProjectStatus, bool) {
	it, ok := s.integrators[project]
	if !ok {
		return types.ProjectStatus{}, false
	}
	return it.Status(), true
}

// ForceBuild queues a forced build for project. It reports false for an
// unknown project.
func (s *Scheduler) ForceBuild(project, source string) bool {
	it, ok := s.integrators[project]
	if !ok {
		return false
	}
	it.ForceBuild(source)
	return true
}
