// Package remote talks to other build servers: it fetches project status for
// project triggers and probes resources for url triggers.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/sony/gobreaker"

	"github.com/dwsmith1983/buildwatch/internal/metrics"
	"github.com/dwsmith1983/buildwatch/pkg/types"
)

// ProjectsPath is where a build server lists its projects' status.
const ProjectsPath = "/api/projects"

// Manager reports the status of every project on one build server.
type Manager interface {
	GetProjectStatus(ctx context.Context) ([]types.ProjectStatus, error)
}

// ManagerFactory returns the Manager for a server URI.
type ManagerFactory interface {
	GetManager(uri string) (Manager, error)
}

// HTTPManagerFactory creates and caches one HTTPManager per server, so each
// server has a single circuit breaker however many triggers poll it.
type HTTPManagerFactory struct {
	opts []Option

	mu       sync.Mutex
	managers map[string]*HTTPManager
}

// NewHTTPManagerFactory creates a factory whose managers share opts.
func NewHTTPManagerFactory(opts ...Option) *HTTPManagerFactory {
	return &HTTPManagerFactory{opts: opts, managers: make(map[string]*HTTPManager)}
}

// GetManager implements ManagerFactory.
func (f *HTTPManagerFactory) GetManager(uri string) (Manager, error) {
	key := strings.TrimRight(uri, "/")
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.managers[key]; ok {
		return m, nil
	}
	m, err := NewHTTPManager(key, f.opts...)
	if err != nil {
		return nil, err
	}
	f.managers[key] = m
	return m, nil
}

// HTTPManager fetches project status from a buildwatch server over HTTP.
type HTTPManager struct {
	uri     string
	client  *http.Client
	apiKey  string
	logger  *slog.Logger
	breaker *gobreaker.CircuitBreaker
}

// NewHTTPManager creates a client for the server at uri.
func NewHTTPManager(uri string, opts ...Option) (*HTTPManager, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid server uri %q: %w", uri, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server uri %q: scheme must be http or https", uri)
	}
	o := newOptions(opts)
	m := &HTTPManager{
		uri:    strings.TrimRight(uri, "/"),
		client: o.client,
		apiKey: o.apiKey,
		logger: o.logger,
	}
	m.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    m.uri,
		Timeout: o.breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= o.maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				metrics.BreakerTrips.Add(1)
			}
			m.logger.Info("circuit breaker state changed", "uri", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			// a rejected request says nothing about the server's health
			return err == nil || Classify(err) == types.FailurePermanent
		},
	})
	return m, nil
}

// URI returns the server base URI.
func (m *HTTPManager) URI() string { return m.uri }

// GetProjectStatus implements Manager.
func (m *HTTPManager) GetProjectStatus(ctx context.Context) ([]types.ProjectStatus, error) {
	res, err := m.breaker.Execute(func() (interface{}, error) {
		return m.fetch(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &TransportError{URI: m.uri, Err: fmt.Errorf("circuit breaker: %w", err)}
	}
	if err != nil {
		return nil, err
	}
	return res.([]types.ProjectStatus), nil
}

func (m *HTTPManager) fetch(ctx context.Context) ([]types.ProjectStatus, error) {
	endpoint := m.uri + ProjectsPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if m.apiKey != "" {
		req.Header.Set("X-API-Key", m.apiKey)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, &TransportError{URI: endpoint, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 500 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &TransportError{URI: endpoint, StatusCode: resp.StatusCode, Err: errors.New(strings.TrimSpace(string(body)))}
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &StatusError{URI: endpoint, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var statuses []types.ProjectStatus
	if err := json.NewDecoder(resp.Body).Decode(&statuses); err != nil {
		return nil, &TransportError{URI: endpoint, Err: fmt.Errorf("decoding project status: %w", err)}
	}
	return statuses, nil
}

// SchemeRouter dispatches GetManager to a factory chosen by the URI scheme.
type SchemeRouter map[string]ManagerFactory

// GetManager implements ManagerFactory.
func (r SchemeRouter) GetManager(uri string) (Manager, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid server uri %q: %w", uri, err)
	}
	f, ok := r[u.Scheme]
	if !ok {
		return nil, fmt.Errorf("invalid server uri %q: unsupported scheme %q", uri, u.Scheme)
	}
	return f.GetManager(uri)
}
