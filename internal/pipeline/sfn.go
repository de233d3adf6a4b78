package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	sfntypes "github.com/aws/aws-sdk-go-v2/service/sfn/types"

	"github.com/dwsmith1983/buildwatch/pkg/types"
)

// DefaultSFNPollInterval is how often a running execution is described.
const DefaultSFNPollInterval = 15 * time.Second

// SFNAPI is the subset of the AWS Step Functions client used by stepfunctions pipelines.
type SFNAPI interface {
	StartExecution(ctx context.Context, params *sfn.StartExecutionInput, optFns ...func(*sfn.Options)) (*sfn.StartExecutionOutput, error)
	DescribeExecution(ctx context.Context, params *sfn.DescribeExecutionInput, optFns ...func(*sfn.Options)) (*sfn.DescribeExecutionOutput, error)
	StopExecution(ctx context.Context, params *sfn.StopExecutionInput, optFns ...func(*sfn.Options)) (*sfn.StopExecutionOutput, error)
}

// ExecutionError reports a state machine execution that ended unsuccessfully.
type ExecutionError struct {
	ExecutionARN string
	Status       sfntypes.ExecutionStatus
	Cause        string
}

func (e *ExecutionError) Error() string {
	if e.Cause == "" {
		return fmt.Sprintf("execution %s ended %s", e.ExecutionARN, e.Status)
	}
	return fmt.Sprintf("execution %s ended %s: %s", e.ExecutionARN, e.Status, e.Cause)
}

// ExecuteSFN starts an execution of cfg.StateMachineARN with payload as its
// input and waits for it to finish. A cancelled ctx stops the execution.
func ExecuteSFN(ctx context.Context, client SFNAPI, cfg *types.PipelineConfig, payload Payload) error {
	if cfg.StateMachineARN == "" {
		return fmt.Errorf("stepfunctions pipeline: stateMachineArn is required")
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("stepfunctions pipeline: marshaling input: %w", err)
	}
	input := string(b)

	out, err := client.StartExecution(ctx, &sfn.StartExecutionInput{
		StateMachineArn: &cfg.StateMachineARN,
		Input:           &input,
	})
	if err != nil {
		return fmt.Errorf("stepfunctions pipeline: StartExecution failed: %w", err)
	}
	if out.ExecutionArn == nil {
		return fmt.Errorf("stepfunctions pipeline: StartExecution returned no execution ARN")
	}
	execARN := *out.ExecutionArn

	interval := cfg.PollInterval.Duration()
	if interval <= 0 {
		interval = DefaultSFNPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			stopExecution(ctx, client, execARN)
			return ctx.Err()
		case <-ticker.C:
		}

		desc, err := client.DescribeExecution(ctx, &sfn.DescribeExecutionInput{ExecutionArn: &execARN})
		if err != nil {
			if ctx.Err() != nil {
				stopExecution(ctx, client, execARN)
				return ctx.Err()
			}
			return fmt.Errorf("stepfunctions pipeline: DescribeExecution failed: %w", err)
		}
		switch desc.Status {
		case sfntypes.ExecutionStatusSucceeded:
			return nil
		case sfntypes.ExecutionStatusFailed, sfntypes.ExecutionStatusTimedOut, sfntypes.ExecutionStatusAborted:
			e := &ExecutionError{ExecutionARN: execARN, Status: desc.Status}
			if desc.Cause != nil {
				e.Cause = *desc.Cause
			}
			return e
		}
	}
}

// stopExecution aborts an execution whose build was cancelled or timed out.
func stopExecution(ctx context.Context, client SFNAPI, execARN string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	cause := "build cancelled"
	_, _ = client.StopExecution(ctx, &sfn.StopExecutionInput{ExecutionArn: &execARN, Cause: &cause})
}

func (r *Runner) getSFNClient(ctx context.Context) (SFNAPI, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sfnClient != nil {
		return r.sfnClient, nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	r.sfnClient = sfn.NewFromConfig(cfg)
	return r.sfnClient, nil
}
