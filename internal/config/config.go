// Package config handles loading and validation of buildwatch.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dwsmith1983/buildwatch/pkg/types"
)

// FileName is the configuration file looked up in the config directory.
const FileName = "buildwatch.yaml"

// Defaults applied by Load.
const (
	DefaultAddr          = ":8080"
	DefaultServiceName   = "buildwatch"
	DefaultTickInterval  = 10 * time.Second
	DefaultRemoteTimeout = 10 * time.Second
)

// Load reads buildwatch.yaml from dir, merges the project files found in its
// projectDirs, applies defaults and validates the result.
func Load(dir string) (*types.Config, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile is Load for an explicit file path. Relative calendarDirs and
// projectDirs are resolved against the file's directory.
func LoadFile(path string) (*types.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg types.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	base := filepath.Dir(path)
	cfg.CalendarDirs = resolveDirs(base, cfg.CalendarDirs)
	cfg.ProjectDirs = resolveDirs(base, cfg.ProjectDirs)

	for _, dir := range cfg.ProjectDirs {
		projects, err := loadProjectDir(dir)
		if err != nil {
			return nil, err
		}
		cfg.Projects = append(cfg.Projects, projects...)
	}

	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func resolveDirs(base string, dirs []string) []string {
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if !filepath.IsAbs(d) {
			d = filepath.Join(base, d)
		}
		out = append(out, d)
	}
	return out
}

// loadProjectDir reads every YAML file in dir as a single project.
func loadProjectDir(dir string) ([]types.ProjectConfig, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading project dir %s: %w", dir, err)
	}

	var projects []types.ProjectConfig
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading project %s: %w", path, err)
		}
		var p types.ProjectConfig
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("parsing project %s: %w", path, err)
		}
		projects = append(projects, p)
	}
	return projects, nil
}

func applyDefaults(cfg *types.Config) {
	if cfg.Server == nil {
		cfg.Server = &types.ServerConfig{}
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultAddr
	}
	if cfg.Watcher == nil {
		cfg.Watcher = &types.WatcherConfig{}
	}
	if cfg.Watcher.DefaultInterval.IsZero() {
		cfg.Watcher.DefaultInterval = types.TimeoutOf(DefaultTickInterval)
	}
	if cfg.Remote == nil {
		cfg.Remote = &types.RemoteConfig{}
	}
	if cfg.Remote.Timeout.IsZero() {
		cfg.Remote.Timeout = types.TimeoutOf(DefaultRemoteTimeout)
	}
	if cfg.Telemetry == nil {
		cfg.Telemetry = &types.TelemetryConfig{}
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = DefaultServiceName
	}
}

// Validate checks the structural requirements of a loaded config. Trigger
// and pipeline contents are validated when they are built.
func Validate(cfg *types.Config) error {
	if cfg.StatusStore != "" &&
		!strings.HasPrefix(cfg.StatusStore, "redis://") && !strings.HasPrefix(cfg.StatusStore, "rediss://") {
		return fmt.Errorf("statusStore must be a redis:// or rediss:// URL, got %q", cfg.StatusStore)
	}
	if len(cfg.Projects) == 0 {
		return fmt.Errorf("at least one project is required")
	}
	seen := make(map[string]bool, len(cfg.Projects))
	for i, p := range cfg.Projects {
		if p.Name == "" {
			return fmt.Errorf("project #%d: name is required", i+1)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate project %q", p.Name)
		}
		seen[p.Name] = true
		if p.Trigger == nil {
			return fmt.Errorf("project %q: trigger is required", p.Name)
		}
		if p.Pipeline == nil {
			return fmt.Errorf("project %q: pipeline is required", p.Name)
		}
	}
	return nil
}
