package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/dwsmith1983/buildwatch/pkg/types"
)

// StubTrigger returns a fixed request until told otherwise and counts calls.
// It satisfies trigger.Trigger.
type StubTrigger struct {
	mu        sync.Mutex
	request   *types.IntegrationRequest
	err       error
	next      time.Time
	fires     int
	completed int
}

// NewStubTrigger returns a stub that fires req (nil for never).
func NewStubTrigger(req *types.IntegrationRequest) *StubTrigger {
	return &StubTrigger{request: req}
}

// SetRequest changes what Fire returns.
func (s *StubTrigger) SetRequest(req *types.IntegrationRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.request = req
}

// SetError makes Fire fail with err.
func (s *StubTrigger) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// SetNextBuild changes what NextBuild returns.
func (s *StubTrigger) SetNextBuild(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = t
}

// Fire returns the configured request or error.
func (s *StubTrigger) Fire(context.Context) (*types.IntegrationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fires++
	if s.err != nil {
		return nil, s.err
	}
	return s.request, nil
}

// NextBuild returns the configured time.
func (s *StubTrigger) NextBuild() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// IntegrationCompleted counts completions.
func (s *StubTrigger) IntegrationCompleted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed++
}

// Fires returns how many times Fire was called.
func (s *StubTrigger) Fires() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fires
}

// Completed returns how many times IntegrationCompleted was called.
func (s *StubTrigger) Completed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

// MockRunner records every request it is asked to run.
type MockRunner struct {
	mu       sync.Mutex
	status   types.IntegrationStatus
	err      error
	requests []types.IntegrationRequest
	block    chan struct{}
}

// NewMockRunner returns a runner reporting status.
func NewMockRunner(status types.IntegrationStatus) *MockRunner {
	return &MockRunner{status: status}
}

// SetResult changes the outcome of later runs.
func (r *MockRunner) SetResult(status types.IntegrationStatus, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status, r.err = status, err
}

// Block makes runs wait until the returned function is called or the run's
// context ends.
func (r *MockRunner) Block() (release func()) {
	ch := make(chan struct{})
	r.mu.Lock()
	r.block = ch
	r.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// Run implements the integrator's pipeline runner.
func (r *MockRunner) Run(ctx context.Context, _ string, req *types.IntegrationRequest) (types.IntegrationStatus, error) {
	r.mu.Lock()
	r.requests = append(r.requests, *req)
	block := r.block
	status, err := r.status, r.err
	r.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return types.StatusCancelled, ctx.Err()
		}
	}
	return status, err
}

// Requests returns copies of every request run so far.
func (r *MockRunner) Requests() []types.IntegrationRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.IntegrationRequest, len(r.requests))
	copy(out, r.requests)
	return out
}
