package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dwsmith1983/buildwatch/internal/clock"
)

// Probe reports when a resource was last modified.
type Probe interface {
	LastModified(ctx context.Context, uri string, since time.Time) (time.Time, error)
}

// HTTPProbe checks a resource with a conditional HEAD request.
type HTTPProbe struct {
	client *http.Client
	apiKey string
	clock  clock.Clock
}

// NewHTTPProbe creates an HTTPProbe.
func NewHTTPProbe(opts ...Option) *HTTPProbe {
	o := newOptions(opts)
	return &HTTPProbe{client: o.client, apiKey: o.apiKey, clock: o.clock}
}

// LastModified sends If-Modified-Since: since. A 304 returns since, a 2xx
// returns the Last-Modified header, or now when the server sends none.
// Anything else is a *TransportError.
func (p *HTTPProbe) LastModified(ctx context.Context, uri string, since time.Time) (time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, uri, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("creating request: %w", err)
	}
	if !since.IsZero() {
		req.Header.Set("If-Modified-Since", since.UTC().Format(http.TimeFormat))
	}
	if p.apiKey != "" {
		req.Header.Set("X-API-Key", p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return time.Time{}, &TransportError{URI: uri, Err: err}
	}
	_ = resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return since, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		lm := resp.Header.Get("Last-Modified")
		if lm == "" {
			return p.clock.Now(), nil
		}
		t, err := http.ParseTime(lm)
		if err != nil {
			return time.Time{}, &TransportError{URI: uri, StatusCode: resp.StatusCode, Err: fmt.Errorf("invalid Last-Modified %q: %w", lm, err)}
		}
		return t, nil
	default:
		return time.Time{}, &TransportError{URI: uri, StatusCode: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}
}
