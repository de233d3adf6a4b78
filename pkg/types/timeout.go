package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Timeout is a span of time held in milliseconds.
type Timeout struct {
	Millis int64
}

// TimeoutOf converts a duration, truncating to whole milliseconds.
func TimeoutOf(d time.Duration) Timeout {
	return Timeout{Millis: d.Milliseconds()}
}

// ParseTimeout accepts Go duration strings ("90s", "1h30m") or a bare integer
// number of milliseconds.
func ParseTimeout(s string) (Timeout, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timeout{}, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		if ms < 0 {
			return Timeout{}, fmt.Errorf("negative timeout %q", s)
		}
		return Timeout{Millis: ms}, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return Timeout{}, fmt.Errorf("invalid timeout %q: must be a duration or milliseconds", s)
	}
	if d < 0 {
		return Timeout{}, fmt.Errorf("negative timeout %q", s)
	}
	return TimeoutOf(d), nil
}

// Duration converts the timeout to a time.Duration.
func (t Timeout) Duration() time.Duration {
	return time.Duration(t.Millis) * time.Millisecond
}

// IsZero reports whether the timeout is unset.
func (t Timeout) IsZero() bool {
	return t.Millis == 0
}

func (t Timeout) String() string {
	return t.Duration().String()
}

// UnmarshalYAML decodes a duration string or integer milliseconds.
func (t *Timeout) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseTimeout(node.Value)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalYAML encodes the timeout as a duration string.
func (t Timeout) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}
