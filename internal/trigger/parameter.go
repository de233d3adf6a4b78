package trigger

import (
	"context"
	"maps"
	"time"

	"github.com/dwsmith1983/buildwatch/pkg/types"
)

// Parameter attaches a fixed set of build values to every request its inner
// trigger produces.
type Parameter struct {
	inner  Trigger
	values map[string]string
}

// NewParameter wraps inner. values is copied.
func NewParameter(inner Trigger, values map[string]string) (*Parameter, error) {
	if inner == nil {
		return nil, configErr(string(types.TriggerParameter), "trigger", "inner trigger is required")
	}
	return &Parameter{inner: inner, values: maps.Clone(values)}, nil
}

// Fire implements Trigger.
func (p *Parameter) Fire(ctx context.Context) (*types.IntegrationRequest, error) {
	req, err := p.inner.Fire(ctx)
	if err != nil || req == nil {
		return nil, err
	}
	return req.WithBuildValues(p.values), nil
}

// NextBuild implements Trigger.
func (p *Parameter) NextBuild() time.Time {
	return p.inner.NextBuild()
}

// IntegrationCompleted implements Trigger.
func (p *Parameter) IntegrationCompleted() {
	p.inner.IntegrationCompleted()
}
