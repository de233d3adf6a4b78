package commands

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dwsmith1983/buildwatch/internal/config"
)

const initRedisTimeout = 60 * time.Second

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	var withRedis bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Scaffold a buildwatch configuration",
		Long:  "Creates buildwatch.yaml with example projects and calendars, and optionally starts a local Redis status store.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(args[0], withRedis)
		},
	}

	cmd.Flags().BoolVar(&withRedis, "with-redis", false, "Start a Redis container and publish status to it")
	return cmd
}

func runInit(dir string, withRedis bool) error {
	bold := color.New(color.Bold)
	_, _ = bold.Printf("Initializing buildwatch in %s\n", dir)

	for _, sub := range []string{"projects", "calendars"} {
		path := filepath.Join(dir, sub)
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", path, err)
		}
	}

	configContent := `server:
  addr: ":8080"
watcher:
  defaultInterval: 10s
  tickTimeout: 30s
calendarDirs:
  - ./calendars
projectDirs:
  - ./projects
alerts:
  - type: console
`
	if withRedis {
		configContent += "statusStore: redis://localhost:6379/0\n"
	}

	files := map[string]string{
		config.FileName: configContent,
		filepath.Join("calendars", "workdays.yaml"): `name: workdays
days: [monday, tuesday, wednesday, thursday, friday]
`,
		filepath.Join("projects", "nightly.yaml"): `name: nightly
trigger:
  type: schedule
  time: "02:00"
  weekDaysCalendar: workdays
  buildCondition: ForceBuild
pipeline:
  type: command
  command: "echo nightly build for $BUILD_PROJECT"
  timeout: 30m
`,
		filepath.Join("projects", "continuous.yaml"): `name: continuous
trigger:
  type: filter
  startTime: "23:00"
  endTime: "06:00"
  trigger:
    type: interval
    seconds: 300
pipeline:
  type: command
  command: "echo checking $BUILD_PROJECT ($BUILD_CONDITION)"
`,
		filepath.Join("projects", "downstream.yaml"): `name: downstream
trigger:
  type: project
  project: nightly
  serverUri: http://localhost:8080
  triggerStatus: Success
pipeline:
  type: command
  command: "echo upstream nightly succeeded"
`,
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}

	color.Green("  ✓ Configuration scaffolded")

	if withRedis {
		if err := startRedis(); err != nil {
			color.Yellow("  ⚠ Redis setup skipped: %v", err)
			color.Yellow("    Run manually: docker run -d --name buildwatch-redis -p 6379:6379 redis:7")
		} else {
			color.Green("  ✓ Redis container started")
		}
	}

	fmt.Println()
	_, _ = bold.Println("Next steps:")
	fmt.Printf("  buildwatch validate -c %s\n", dir)
	fmt.Printf("  buildwatch serve -c %s\n", dir)
	return nil
}

func startRedis() error {
	if _, err := exec.LookPath("docker"); err != nil {
		return fmt.Errorf("docker not found in PATH")
	}

	ctx, cancel := context.WithTimeout(context.Background(), initRedisTimeout)
	defer cancel()

	// Container exists, try starting it
	if exec.CommandContext(ctx, "docker", "inspect", "buildwatch-redis").Run() == nil {
		if err := exec.CommandContext(ctx, "docker", "start", "buildwatch-redis").Run(); err != nil {
			return fmt.Errorf("starting existing container: %w", err)
		}
		return nil
	}

	cmd := exec.CommandContext(ctx, "docker", "run", "-d",
		"--name", "buildwatch-redis",
		"-p", "6379:6379",
		"redis:7",
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
