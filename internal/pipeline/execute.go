// Package pipeline executes fired integration requests. It is the boundary to
// the build itself: a shell command or an HTTP call.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"os"
	"os/exec"
	"slices"
	"strings"

	"github.com/dwsmith1983/buildwatch/pkg/types"
)

// HTTPStatusError is returned when an HTTP pipeline answers with status >= 400.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("pipeline returned status %d: %s", e.StatusCode, e.Body)
}

// Payload is the JSON body sent to HTTP pipelines.
type Payload struct {
	Project   string               `json:"project"`
	Condition types.BuildCondition `json:"condition"`
	Source    string               `json:"source"`
	Values    map[string]string    `json:"values,omitempty"`
}

// Env returns the environment entries describing req: BUILD_CONDITION,
// BUILD_SOURCE and one BUILD_PARAM_<NAME> per build value, in name order.
func Env(project string, req *types.IntegrationRequest) []string {
	env := []string{
		"BUILD_PROJECT=" + project,
		"BUILD_CONDITION=" + string(req.BuildCondition),
		"BUILD_SOURCE=" + req.SourceName,
	}
	for _, k := range slices.Sorted(maps.Keys(req.BuildValues)) {
		env = append(env, "BUILD_PARAM_"+envName(k)+"="+req.BuildValues[k])
	}
	return env
}

func envName(k string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, k)
}

// ExecuteCommand runs command with sh -c, adding env to the process environment.
func ExecuteCommand(ctx context.Context, command string, env []string, stdout, stderr io.Writer) error {
	if command == "" {
		return fmt.Errorf("pipeline command is empty")
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// ExecuteHTTP posts payload to the configured URL.
func ExecuteHTTP(ctx context.Context, client *http.Client, cfg *types.PipelineConfig, payload Payload) error {
	if cfg.URL == "" {
		return fmt.Errorf("pipeline url is empty")
	}
	method := cfg.Method
	if method == "" {
		method = http.MethodPost
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range cfg.Headers {
		req.Header.Set(k, os.ExpandEnv(v))
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("pipeline request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &HTTPStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	return nil
}
