package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"sync"
	"time"

	sfntypes "github.com/aws/aws-sdk-go-v2/service/sfn/types"

	"github.com/dwsmith1983/buildwatch/pkg/types"
)

var defaultHTTPClient = &http.Client{Timeout: 5 * time.Minute}

// Runner executes requests for projects according to their pipeline configs.
type Runner struct {
	httpClient *http.Client
	logger     *slog.Logger
	stdout     io.Writer
	stderr     io.Writer

	mu        sync.RWMutex
	pipelines map[string]*types.PipelineConfig
	sfnClient SFNAPI
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithHTTPClient sets a custom HTTP client for HTTP pipelines.
func WithHTTPClient(c *http.Client) RunnerOption {
	return func(r *Runner) { r.httpClient = c }
}

// WithSFNClient sets a custom Step Functions client (useful for testing).
func WithSFNClient(c SFNAPI) RunnerOption {
	return func(r *Runner) { r.sfnClient = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// WithOutput redirects command output, which defaults to the process's own.
func WithOutput(stdout, stderr io.Writer) RunnerOption {
	return func(r *Runner) { r.stdout, r.stderr = stdout, stderr }
}

// NewRunner creates a Runner with the given options.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		httpClient: defaultHTTPClient,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		pipelines:  make(map[string]*types.PipelineConfig),
	}
	for _, o := range opts {
		o(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Register validates cfg and associates it with project.
func (r *Runner) Register(project string, cfg *types.PipelineConfig) error {
	if err := Validate(cfg); err != nil {
		return fmt.Errorf("project %q: %w", project, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pipelines[project] = cfg
	return nil
}

// Validate checks that cfg can be executed.
func Validate(cfg *types.PipelineConfig) error {
	if cfg == nil {
		return fmt.Errorf("no pipeline configured")
	}
	switch cfg.Type {
	case types.PipelineCommand:
		if cfg.Command == "" {
			return fmt.Errorf("command pipeline: command is required")
		}
	case types.PipelineHTTP:
		if cfg.URL == "" {
			return fmt.Errorf("http pipeline: url is required")
		}
	case types.PipelineSFN:
		if cfg.StateMachineARN == "" {
			return fmt.Errorf("stepfunctions pipeline: stateMachineArn is required")
		}
	default:
		return fmt.Errorf("unknown pipeline type: %q", cfg.Type)
	}
	return nil
}

// Run executes req for project and classifies the outcome. The returned
// error is the underlying failure, if any; the status is always set.
func (r *Runner) Run(ctx context.Context, project string, req *types.IntegrationRequest) (types.IntegrationStatus, error) {
	r.mu.RLock()
	cfg, ok := r.pipelines[project]
	r.mu.RUnlock()
	if !ok {
		return types.StatusException, fmt.Errorf("project %q has no pipeline", project)
	}

	runCtx := ctx
	if !cfg.Timeout.IsZero() {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cfg.Timeout.Duration())
		defer cancel()
	}

	payload := Payload{
		Project:   project,
		Condition: req.BuildCondition,
		Source:    req.SourceName,
		Values:    req.BuildValues,
	}
	var err error
	switch cfg.Type {
	case types.PipelineCommand:
		err = ExecuteCommand(runCtx, cfg.Command, Env(project, req), r.stdout, r.stderr)
	case types.PipelineHTTP:
		err = ExecuteHTTP(runCtx, r.httpClient, cfg, payload)
	case types.PipelineSFN:
		var client SFNAPI
		if client, err = r.getSFNClient(runCtx); err == nil {
			err = ExecuteSFN(runCtx, client, cfg, payload)
		}
	default:
		err = fmt.Errorf("unknown pipeline type: %q", cfg.Type)
	}

	status := Classify(ctx, runCtx, err)
	if err != nil {
		r.logger.Debug("pipeline finished with error", "project", project, "status", status, "error", err)
	}
	return status, err
}

// Classify maps a pipeline error to an integration status. parent is the
// caller's context and run the possibly time-limited context the pipeline
// ran under.
func Classify(parent, run context.Context, err error) types.IntegrationStatus {
	if err == nil {
		return types.StatusSuccess
	}
	if errors.Is(parent.Err(), context.Canceled) {
		return types.StatusCancelled
	}
	if errors.Is(run.Err(), context.DeadlineExceeded) {
		return types.StatusFailure
	}
	var exitErr *exec.ExitError
	var statusErr *HTTPStatusError
	var execErr *ExecutionError
	if errors.As(err, &exitErr) || errors.As(err, &statusErr) || errors.As(err, &execErr) {
		return types.StatusFailure
	}
	return types.StatusException
}

// ClassifyFailure categorizes a pipeline error for retry decisions.
func ClassifyFailure(err error) types.FailureCategory {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return types.FailureTimeout
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode < 500 {
		return types.FailurePermanent
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return types.FailurePermanent
	}
	var execErr *ExecutionError
	if errors.As(err, &execErr) && execErr.Status == sfntypes.ExecutionStatusTimedOut {
		return types.FailureTimeout
	}
	return types.FailureTransient
}
