package remote

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dwsmith1983/buildwatch/pkg/types"
)

// TransportError reports a failure to talk to a remote server: a socket
// error, a 5xx response, or an open circuit breaker. Callers polling on a
// schedule treat it as "no change this tick".
type TransportError struct {
	URI        string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote %s: status %d: %v", e.URI, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("remote %s: %v", e.URI, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError reports a 4xx response. It is not transient: retrying the same
// request will not help.
type StatusError struct {
	URI        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote %s returned status %d: %s", e.URI, e.StatusCode, e.Body)
}

// IsTransport reports whether err wraps a *TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Classify categorizes a remote call error for breaker and retry decisions.
func Classify(err error) types.FailureCategory {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return types.FailureTimeout
	}
	var se *StatusError
	if errors.As(err, &se) && se.StatusCode >= 400 && se.StatusCode < 500 {
		return types.FailurePermanent
	}
	return types.FailureTransient
}
