package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dwsmith1983/buildwatch/internal/remote"
	"github.com/dwsmith1983/buildwatch/pkg/types"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "buildwatch:"

// StatusStore keeps one hash of project name to JSON ProjectStatus.
type StatusStore struct {
	client *goredis.Client
	prefix string
}

// NewStatusStore connects to the server described by a redis:// URL.
// The optional "prefix" query parameter overrides DefaultPrefix.
func NewStatusStore(rawURL string) (*StatusStore, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	prefix := u.Query().Get("prefix")
	q := u.Query()
	q.Del("prefix")
	u.RawQuery = q.Encode()

	opts, err := goredis.ParseURL(u.String())
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return NewFromClient(goredis.NewClient(opts), prefix), nil
}

// NewFromClient creates a StatusStore from an existing client (useful for testing).
func NewFromClient(client *goredis.Client, prefix string) *StatusStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &StatusStore{client: client, prefix: prefix}
}

func (s *StatusStore) statusKey() string {
	return s.prefix + "status"
}

// PublishStatus stores the latest snapshot for status.Name.
func (s *StatusStore) PublishStatus(ctx context.Context, status types.ProjectStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("marshaling status: %w", err)
	}
	if err := s.client.HSet(ctx, s.statusKey(), status.Name, data).Err(); err != nil {
		return fmt.Errorf("publishing status for %q: %w", status.Name, err)
	}
	return nil
}

// GetProjectStatus lists every published snapshot ordered by project name.
// Connection failures are reported as *remote.TransportError.
func (s *StatusStore) GetProjectStatus(ctx context.Context) ([]types.ProjectStatus, error) {
	entries, err := s.client.HGetAll(ctx, s.statusKey()).Result()
	if err != nil {
		return nil, &remote.TransportError{URI: s.client.Options().Addr, Err: err}
	}
	statuses := make([]types.ProjectStatus, 0, len(entries))
	for name, data := range entries {
		var st types.ProjectStatus
		if err := json.Unmarshal([]byte(data), &st); err != nil {
			return nil, fmt.Errorf("decoding status for %q: %w", name, err)
		}
		statuses = append(statuses, st)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses, nil
}

// Start checks connectivity.
func (s *StatusStore) Start(ctx context.Context) error {
	return s.Ping(ctx)
}

// Stop closes the connection.
func (s *StatusStore) Stop(_ context.Context) error {
	return s.client.Close()
}

// Ping checks connectivity to the Redis server.
func (s *StatusStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Factory opens one StatusStore per redis:// URI so project triggers can
// depend on projects published by other servers.
type Factory struct {
	mu     sync.Mutex
	stores map[string]*StatusStore
}

// NewFactory creates an empty Factory.
func NewFactory() *Factory {
	return &Factory{stores: make(map[string]*StatusStore)}
}

// GetManager implements remote.ManagerFactory.
func (f *Factory) GetManager(uri string) (remote.Manager, error) {
	key := strings.TrimRight(uri, "/")
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.stores[key]; ok {
		return s, nil
	}
	s, err := NewStatusStore(key)
	if err != nil {
		return nil, err
	}
	f.stores[key] = s
	return s, nil
}

// Close closes every store the factory opened.
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var firstErr error
	for k, s := range f.stores {
		if err := s.client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(f.stores, k)
	}
	return firstErr
}
