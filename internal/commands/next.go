package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewNextCmd creates the next command.
func NewNextCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Show when each project's trigger will next consider a build",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNext(os.Stdout, configPath)
		},
	}
	addConfigFlag(cmd, &configPath)
	return cmd
}

func runNext(out io.Writer, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	ws, err := newWorkspace(cfg, slog.Default())
	if err != nil {
		return err
	}
	defer ws.Close()

	projects, err := ws.buildTriggers()
	if err != nil {
		return err
	}
	bold := color.New(color.Bold)
	_, _ = bold.Fprintln(out, "Next builds:")
	for _, p := range projects {
		_, _ = fmt.Fprintf(out, "  %-30s %s\n", p.project.Name, formatTime(p.trigger.NextBuild()))
	}
	return nil
}

// formatTime renders a zero time as "unknown".
func formatTime(t time.Time) string {
	if t.IsZero() {
		return color.YellowString("unknown")
	}
	return t.Format(time.RFC3339)
}
