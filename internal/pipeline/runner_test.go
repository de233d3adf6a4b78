package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwsmith1983/buildwatch/pkg/types"
)

func request() *types.IntegrationRequest {
	return types.NewIntegrationRequest(types.ForceBuild, "nightly").
		WithBuildValues(map[string]string{"target": "release", "dry-run": "false"})
}

func TestEnv(t *testing.T) {
	assert.Equal(t, []string{
		"BUILD_PROJECT=core",
		"BUILD_CONDITION=ForceBuild",
		"BUILD_SOURCE=nightly",
		"BUILD_PARAM_DRY_RUN=false",
		"BUILD_PARAM_TARGET=release",
	}, Env("core", request()))
}

func TestRunner_Command(t *testing.T) {
	var out bytes.Buffer
	r := NewRunner(WithOutput(&out, &out))
	require.NoError(t, r.Register("core", &types.PipelineConfig{
		Type:    types.PipelineCommand,
		Command: `echo "$BUILD_CONDITION $BUILD_SOURCE $BUILD_PARAM_TARGET"`,
	}))

	status, err := r.Run(context.Background(), "core", request())
	require.NoError(t, err)
	assert.Equal(t, types.StatusSuccess, status)
	assert.Equal(t, "ForceBuild nightly release\n", out.String())
}

func TestRunner_CommandFailure(t *testing.T) {
	r := NewRunner(WithOutput(&bytes.Buffer{}, &bytes.Buffer{}))
	require.NoError(t, r.Register("core", &types.PipelineConfig{Type: types.PipelineCommand, Command: "exit 3"}))

	status, err := r.Run(context.Background(), "core", request())
	require.Error(t, err)
	assert.Equal(t, types.StatusFailure, status)
	assert.Equal(t, types.FailurePermanent, ClassifyFailure(err))
}

func TestRunner_CommandTimeout(t *testing.T) {
	r := NewRunner(WithOutput(&bytes.Buffer{}, &bytes.Buffer{}))
	require.NoError(t, r.Register("core", &types.PipelineConfig{
		Type:    types.PipelineCommand,
		Command: "sleep 5",
		Timeout: types.TimeoutOf(50 * time.Millisecond),
	}))

	status, err := r.Run(context.Background(), "core", request())
	require.Error(t, err)
	assert.Equal(t, types.StatusFailure, status)
}

func TestRunner_Cancelled(t *testing.T) {
	r := NewRunner(WithOutput(&bytes.Buffer{}, &bytes.Buffer{}))
	require.NoError(t, r.Register("core", &types.PipelineConfig{Type: types.PipelineCommand, Command: "sleep 5"}))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	status, err := r.Run(ctx, "core", request())
	require.Error(t, err)
	assert.Equal(t, types.StatusCancelled, status)
}

func TestRunner_HTTP(t *testing.T) {
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	r := NewRunner()
	require.NoError(t, r.Register("core", &types.PipelineConfig{
		Type:    types.PipelineHTTP,
		URL:     srv.URL,
		Method:  http.MethodPut,
		Headers: map[string]string{"Authorization": "Bearer token"},
	}))

	status, err := r.Run(context.Background(), "core", request())
	require.NoError(t, err)
	assert.Equal(t, types.StatusSuccess, status)
	assert.Equal(t, "core", got.Project)
	assert.Equal(t, types.ForceBuild, got.Condition)
	assert.Equal(t, "nightly", got.Source)
	assert.Equal(t, "release", got.Values["target"])
}

func TestRunner_HTTPFailure(t *testing.T) {
	tests := []struct {
		code     int
		category types.FailureCategory
	}{
		{http.StatusBadRequest, types.FailurePermanent},
		{http.StatusInternalServerError, types.FailureTransient},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "broken", tt.code)
			}))
			defer srv.Close()

			r := NewRunner()
			require.NoError(t, r.Register("core", &types.PipelineConfig{Type: types.PipelineHTTP, URL: srv.URL}))

			status, err := r.Run(context.Background(), "core", request())
			require.Error(t, err)
			assert.Equal(t, types.StatusFailure, status)
			assert.Equal(t, tt.category, ClassifyFailure(err))
		})
	}
}

func TestRunner_UnknownProject(t *testing.T) {
	status, err := NewRunner().Run(context.Background(), "ghost", request())
	require.Error(t, err)
	assert.Equal(t, types.StatusException, status)
}

func TestValidate(t *testing.T) {
	assert.Error(t, Validate(nil))
	assert.Error(t, Validate(&types.PipelineConfig{Type: types.PipelineCommand}))
	assert.Error(t, Validate(&types.PipelineConfig{Type: types.PipelineHTTP}))
	assert.Error(t, Validate(&types.PipelineConfig{Type: "lambda"}))
	assert.NoError(t, Validate(&types.PipelineConfig{Type: types.PipelineCommand, Command: "make"}))
}

func TestClassify(t *testing.T) {
	bg := context.Background()
	assert.Equal(t, types.StatusSuccess, Classify(bg, bg, nil))
	assert.Equal(t, types.StatusException, Classify(bg, bg, fmt.Errorf("connection refused")))
	assert.Equal(t, types.StatusFailure, Classify(bg, bg, &HTTPStatusError{StatusCode: 502}))

	cancelled, cancel := context.WithCancel(bg)
	cancel()
	assert.Equal(t, types.StatusCancelled, Classify(cancelled, cancelled, fmt.Errorf("killed")))
}

func TestClassifyFailure(t *testing.T) {
	assert.Equal(t, types.FailureTimeout, ClassifyFailure(fmt.Errorf("run: %w", context.DeadlineExceeded)))
	assert.Equal(t, types.FailureTransient, ClassifyFailure(fmt.Errorf("connection refused")))
	assert.Equal(t, types.FailureCategory(""), ClassifyFailure(nil))
}
