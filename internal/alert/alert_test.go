package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwsmith1983/buildwatch/pkg/types"
)

func testAlert() types.Alert {
	return types.Alert{
		Level:     types.AlertLevelError,
		Project:   "core",
		Message:   "build 01J ended Failure",
		Status:    types.StatusFailure,
		Timestamp: time.Now(),
	}
}

func TestConsoleSink_Send(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer
	sink := &ConsoleSink{out: &out}
	assert.Equal(t, "console", sink.Name())

	ctx := context.Background()
	for _, level := range []types.AlertLevel{types.AlertLevelError, types.AlertLevelWarning, types.AlertLevelInfo} {
		a := testAlert()
		a.Level = level
		err := sink.Send(ctx, a)
		assert.NoError(t, err)
	}
	assert.Equal(t, "[ERROR] [core] build 01J ended Failure\n"+
		"[WARN] [core] build 01J ended Failure\n"+
		"[INFO] [core] build 01J ended Failure\n", out.String())
}

func TestWebhookSink_Send_Success(t *testing.T) {
	var received []byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		buf := make([]byte, 4096)
		n, _ := r.Body.Read(buf)
		received = buf[:n]
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	sink := NewWebhookSink(ts.URL)
	alert := testAlert()

	err := sink.Send(context.Background(), alert)
	require.NoError(t, err)

	var got types.Alert
	require.NoError(t, json.Unmarshal(received, &got))
	assert.Equal(t, alert.Message, got.Message)
	assert.Equal(t, alert.Project, got.Project)
	assert.Equal(t, types.StatusFailure, got.Status)
}

func TestWebhookSink_Send_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	sink := NewWebhookSink(ts.URL)

	err := sink.Send(context.Background(), testAlert())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestFileSink_WritesBuildRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "alerts.jsonl")
	sink, err := NewFileSink(path)
	require.NoError(t, err)
	assert.Equal(t, "file", sink.Name())
	assert.Equal(t, path, sink.Path())

	alert := testAlert()
	alert.BuildID = "01J"
	alert.Source = "nightly"
	require.NoError(t, sink.Send(context.Background(), alert))
	require.NoError(t, sink.Send(context.Background(), types.Alert{
		Level: types.AlertLevelInfo, Project: "core", Status: types.StatusSuccess, Message: "build fixed",
	}))
	require.NoError(t, sink.Close())

	recs, err := ReadBuildRecords(path)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "core", recs[0].Project)
	assert.Equal(t, "01J", recs[0].BuildID)
	assert.Equal(t, types.StatusFailure, recs[0].Status)
	assert.Equal(t, types.AlertLevelError, recs[0].Level)
	assert.Equal(t, "nightly", recs[0].Source)
	assert.Equal(t, types.StatusSuccess, recs[1].Status)
	assert.False(t, recs[1].Time.IsZero(), "missing timestamps are filled in")

	assert.Error(t, sink.Send(context.Background(), alert), "closed sink rejects sends")
	assert.NoError(t, sink.Close())
}

func TestDispatcher_FileSinkRecordsFailureAndRecovery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.jsonl")
	d, err := NewDispatcher([]types.AlertConfig{{Type: types.AlertFile, Path: path}}, nil)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, d.PublishStatus(ctx, status("core", types.StatusFailure)))
	require.NoError(t, d.PublishStatus(ctx, status("core", types.StatusSuccess)))
	require.NoError(t, d.Close())

	recs, err := ReadBuildRecords(path)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, types.StatusFailure, recs[0].Status)
	assert.Equal(t, "build fixed", recs[1].Message)
}

// errSink is a test sink that always returns an error.
type errSink struct{}

func (s *errSink) Send(_ context.Context, _ types.Alert) error { return fmt.Errorf("sink error") }
func (s *errSink) Name() string                                { return "error-sink" }

// recordSink records all alerts sent to it.
type recordSink struct {
	alerts []types.Alert
}

func (s *recordSink) Send(_ context.Context, a types.Alert) error {
	s.alerts = append(s.alerts, a)
	return nil
}
func (s *recordSink) Name() string { return "record-sink" }

func TestDispatcher_MultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	d := &Dispatcher{sinks: []Sink{s1, s2}, logger: slog.Default()}

	alert := testAlert()
	d.Dispatch(context.Background(), alert)

	assert.Len(t, s1.alerts, 1)
	assert.Len(t, s2.alerts, 1)
	assert.Equal(t, alert.Message, s1.alerts[0].Message)
}

func TestDispatcher_SinkError_ContinuesOthers(t *testing.T) {
	failing := &errSink{}
	recording := &recordSink{}
	d := &Dispatcher{
		sinks:  []Sink{failing, recording},
		logger: slog.Default(),
	}

	d.Dispatch(context.Background(), testAlert())

	// Even though first sink failed, second should have received the alert
	assert.Len(t, recording.alerts, 1)
}

func status(name string, st types.IntegrationStatus) types.ProjectStatus {
	return types.ProjectStatus{Name: name, BuildStatus: st, LastBuildID: "01J", LastSource: "nightly"}
}

func TestDispatcher_PublishStatus(t *testing.T) {
	rec := &recordSink{}
	d, err := NewDispatcher(nil, nil)
	require.NoError(t, err)
	d.AddSink(rec)
	ctx := context.Background()

	steps := []struct {
		status    types.IntegrationStatus
		wantLevel types.AlertLevel // empty means no alert
	}{
		{types.StatusSuccess, ""},
		{types.StatusFailure, types.AlertLevelError},
		{types.StatusException, types.AlertLevelError},
		{types.StatusSuccess, types.AlertLevelInfo},
		{types.StatusSuccess, ""},
		{types.StatusCancelled, types.AlertLevelWarning},
		{types.StatusSuccess, ""},
	}
	for i, step := range steps {
		before := len(rec.alerts)
		require.NoError(t, d.PublishStatus(ctx, status("core", step.status)))
		if step.wantLevel == "" {
			assert.Len(t, rec.alerts, before, "step %d", i)
			continue
		}
		require.Len(t, rec.alerts, before+1, "step %d", i)
		got := rec.alerts[before]
		assert.Equal(t, step.wantLevel, got.Level, "step %d", i)
		assert.Equal(t, "core", got.Project)
		assert.Equal(t, "nightly", got.Source)
	}
}

func TestDispatcher_PublishStatus_PerProject(t *testing.T) {
	rec := &recordSink{}
	d, err := NewDispatcher(nil, nil)
	require.NoError(t, err)
	d.AddSink(rec)
	ctx := context.Background()

	require.NoError(t, d.PublishStatus(ctx, status("core", types.StatusFailure)))
	require.NoError(t, d.PublishStatus(ctx, status("web", types.StatusSuccess)))
	require.Len(t, rec.alerts, 1, "another project's failure is not a recovery")
}

func TestNewDispatcher_Configs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.jsonl")
	d, err := NewDispatcher([]types.AlertConfig{
		{Type: types.AlertConsole},
		{Type: types.AlertWebhook, URL: "http://hooks.local/ci"},
		{Type: types.AlertFile, Path: path},
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	assert.Len(t, d.sinks, 3)

	_, err = NewDispatcher([]types.AlertConfig{{Type: types.AlertWebhook}}, nil)
	assert.Error(t, err)
	_, err = NewDispatcher([]types.AlertConfig{{Type: types.AlertFile}}, nil)
	assert.Error(t, err)
	_, err = NewDispatcher([]types.AlertConfig{{Type: "pager"}}, nil)
	assert.Error(t, err)
}
