package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dwsmith1983/buildwatch/pkg/types"
)

// BuildRecord is one line of a file sink's build log.
type BuildRecord struct {
	Time    time.Time               `json:"time"`
	Project string                  `json:"project"`
	BuildID string                  `json:"buildId,omitempty"`
	Status  types.IntegrationStatus `json:"status"`
	Level   types.AlertLevel        `json:"level"`
	Source  string                  `json:"source,omitempty"`
	Message string                  `json:"message"`
}

func recordOf(a types.Alert) BuildRecord {
	ts := a.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return BuildRecord{
		Time:    ts.UTC(),
		Project: a.Project,
		BuildID: a.BuildID,
		Status:  a.Status,
		Level:   a.Level,
		Source:  a.Source,
		Message: a.Message,
	}
}

// FileSink appends one BuildRecord per alert to a JSON lines file. The file
// stays open until Close.
type FileSink struct {
	path string

	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
}

// NewFileSink opens path for appending, creating it and its directory.
func NewFileSink(path string) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating alert log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening alert log: %w", err)
	}
	return &FileSink{path: path, f: f, enc: json.NewEncoder(f)}, nil
}

// Name returns the sink identifier.
func (s *FileSink) Name() string { return "file" }

// Path returns the log file path.
func (s *FileSink) Path() string { return s.path }

// Send appends the alert's build record.
func (s *FileSink) Send(_ context.Context, alert types.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return fmt.Errorf("alert log %s is closed", s.path)
	}
	if err := s.enc.Encode(recordOf(alert)); err != nil {
		return fmt.Errorf("writing alert log %s: %w", s.path, err)
	}
	return nil
}

// Close closes the log file. Later sends fail.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f, s.enc = nil, nil
	return err
}

// ReadBuildRecords reads every record in a file sink's log.
func ReadBuildRecords(path string) ([]BuildRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var out []BuildRecord
	dec := json.NewDecoder(f)
	for dec.More() {
		var rec BuildRecord
		if err := dec.Decode(&rec); err != nil {
			return out, fmt.Errorf("reading alert log %s: %w", path, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
