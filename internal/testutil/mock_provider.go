// Package testutil provides shared test utilities for buildwatch.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dwsmith1983/buildwatch/internal/provider"
	"github.com/dwsmith1983/buildwatch/internal/remote"
	"github.com/dwsmith1983/buildwatch/pkg/types"
)

// Compile-time interface satisfaction checks.
var (
	_ provider.StatusStore  = (*MockStatusStore)(nil)
	_ remote.Manager        = (*MockStatusStore)(nil)
	_ remote.ManagerFactory = (*MockStatusStore)(nil)
	_ remote.Probe          = (*MockProbe)(nil)
)

// MockStatusStore is an in-memory status store. It doubles as a remote
// manager and manager factory so project triggers can poll it.
type MockStatusStore struct {
	mu         sync.Mutex
	statuses   map[string]types.ProjectStatus
	err        error
	publishErr error
	uris       []string

	pollCount atomic.Int64 // incremented on each GetProjectStatus call
}

// NewMockStatusStore creates an empty store.
func NewMockStatusStore() *MockStatusStore {
	return &MockStatusStore{statuses: make(map[string]types.ProjectStatus)}
}

// SetStatus replaces the snapshot for one project.
func (m *MockStatusStore) SetStatus(name string, status types.IntegrationStatus, lastBuild time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[name] = types.ProjectStatus{Name: name, BuildStatus: status, LastBuildDate: lastBuild}
}

// SetError makes every following GetProjectStatus call fail with err.
// A nil err clears it.
func (m *MockStatusStore) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetTransportError makes polls fail as if the server were unreachable.
func (m *MockStatusStore) SetTransportError() {
	m.SetError(&remote.TransportError{URI: "mock://", Err: errors.New("connection refused")})
}

// SetPublishError makes PublishStatus fail with err.
func (m *MockStatusStore) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishErr = err
}

// PublishStatus implements provider.StatusStore.
func (m *MockStatusStore) PublishStatus(_ context.Context, status types.ProjectStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	if status.Name == "" {
		return fmt.Errorf("status has no project name")
	}
	m.statuses[status.Name] = status
	return nil
}

// GetProjectStatus implements remote.Manager.
func (m *MockStatusStore) GetProjectStatus(_ context.Context) ([]types.ProjectStatus, error) {
	m.pollCount.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := slices.Collect(maps.Values(m.statuses))
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetManager implements remote.ManagerFactory and records the URI.
func (m *MockStatusStore) GetManager(uri string) (remote.Manager, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uris = append(m.uris, uri)
	return m, nil
}

// URIs returns every URI passed to GetManager.
func (m *MockStatusStore) URIs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.uris)
}

// Status returns the stored snapshot for name.
func (m *MockStatusStore) Status(name string) (types.ProjectStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.statuses[name]
	return st, ok
}

// PollCount returns how many times GetProjectStatus has been called.
func (m *MockStatusStore) PollCount() int64 {
	return m.pollCount.Load()
}

// Start implements provider.StatusStore.
func (m *MockStatusStore) Start(context.Context) error { return nil }

// Stop implements provider.StatusStore.
func (m *MockStatusStore) Stop(context.Context) error { return nil }

// Ping implements provider.StatusStore.
func (m *MockStatusStore) Ping(context.Context) error { return nil }

// MockProbe returns a scripted last-modified time.
type MockProbe struct {
	mu       sync.Mutex
	modified time.Time
	err      error
	calls    int
}

// SetModified sets the time reported by the next probes.
func (p *MockProbe) SetModified(t time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.modified = t
}

// SetError makes the following probes fail. A nil err clears it.
func (p *MockProbe) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// LastModified implements remote.Probe.
func (p *MockProbe) LastModified(_ context.Context, _ string, since time.Time) (time.Time, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return time.Time{}, p.err
	}
	if p.modified.IsZero() {
		return since, nil
	}
	return p.modified, nil
}

// Calls returns how many probes were made.
func (p *MockProbe) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}
