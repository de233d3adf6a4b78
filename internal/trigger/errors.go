package trigger

import (
	"errors"
	"fmt"
)

// ErrNoSuchProject is returned by a project trigger when the dependency is not
// known to the remote server. It is a configuration problem and propagates.
var ErrNoSuchProject = errors.New("no such project")

// ConfigError reports an invalid trigger configuration. A project whose tree
// cannot be built is not scheduled until its configuration is fixed.
type ConfigError struct {
	Trigger string
	Field   string
	Reason  string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s trigger: %s", e.Trigger, e.Reason)
	}
	return fmt.Sprintf("%s trigger: %s: %s", e.Trigger, e.Field, e.Reason)
}

func configErr(trigger, field, format string, args ...any) error {
	return &ConfigError{Trigger: trigger, Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsConfigError reports whether err wraps a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
