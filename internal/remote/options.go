package remote

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dwsmith1983/buildwatch/internal/clock"
)

const (
	defaultTimeout         = 10 * time.Second
	defaultMaxFailures     = 5
	defaultBreakerCooldown = 30 * time.Second
)

type options struct {
	client          *http.Client
	apiKey          string
	logger          *slog.Logger
	clock           clock.Clock
	maxFailures     uint32
	breakerCooldown time.Duration
}

// Option configures remote clients.
type Option func(*options)

// WithHTTPClient sets the HTTP client (useful for testing).
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// WithAPIKey sends key in the X-API-Key header.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.client = &http.Client{Timeout: d}
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock sets the clock used when a response carries no timestamp.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithBreaker opens a server's circuit after maxFailures consecutive
// transient failures and keeps it open for cooldown.
func WithBreaker(maxFailures int, cooldown time.Duration) Option {
	return func(o *options) {
		if maxFailures > 0 {
			o.maxFailures = uint32(maxFailures)
		}
		if cooldown > 0 {
			o.breakerCooldown = cooldown
		}
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		client:          &http.Client{Timeout: defaultTimeout},
		clock:           clock.System{},
		maxFailures:     defaultMaxFailures,
		breakerCooldown: defaultBreakerCooldown,
	}
	for _, fn := range opts {
		fn(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}
