package trigger

import (
	"context"
	"errors"
	"time"

	"github.com/dwsmith1983/buildwatch/pkg/types"
)

// Multiple combines an ordered list of triggers with AND or OR semantics.
type Multiple struct {
	triggers []Trigger
	operator types.Operator
}

// NewMultiple creates a composite. An empty operator means Or.
func NewMultiple(op types.Operator, triggers ...Trigger) (*Multiple, error) {
	if op == "" {
		op = types.OperatorOr
	}
	if op != types.OperatorOr && op != types.OperatorAnd {
		return nil, configErr(string(types.TriggerMultiple), "operator", "unknown operator %q", op)
	}
	for i, t := range triggers {
		if t == nil {
			return nil, configErr(string(types.TriggerMultiple), "triggers", "trigger %d is nil", i)
		}
	}
	return &Multiple{triggers: triggers, operator: op}, nil
}

// Fire evaluates every child in declaration order, without short-circuiting.
// With And, any child returning nil vetoes the build. The first request wins,
// except that a ForceBuild request beats an earlier non-forced one.
func (m *Multiple) Fire(ctx context.Context) (*types.IntegrationRequest, error) {
	var (
		chosen *types.IntegrationRequest
		missed bool
		errs   []error
	)
	for _, t := range m.triggers {
		req, err := t.Fire(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if req == nil {
			missed = true
			continue
		}
		if chosen == nil || (req.BuildCondition == types.ForceBuild && chosen.BuildCondition != types.ForceBuild) {
			chosen = req
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if m.operator == types.OperatorAnd && missed {
		return nil, nil
	}
	return chosen, nil
}

// NextBuild is the earliest next build of any child.
func (m *Multiple) NextBuild() time.Time {
	var next time.Time
	for _, t := range m.triggers {
		next = earliest(next, t.NextBuild())
	}
	return next
}

// IntegrationCompleted notifies every child in declaration order.
func (m *Multiple) IntegrationCompleted() {
	for _, t := range m.triggers {
		t.IntegrationCompleted()
	}
}

// Operator returns the combining operator.
func (m *Multiple) Operator() types.Operator {
	return m.operator
}
