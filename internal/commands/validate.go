package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewValidateCmd creates the validate command.
func NewValidateCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and build every trigger without running anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(os.Stdout, configPath)
		},
	}
	addConfigFlag(cmd, &configPath)
	return cmd
}

func runValidate(out io.Writer, configPath string) error {
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
		_, _ = fmt.Fprintln(out, color.RedString("✗ %v", err))
		return err
	}
	for _, p := range projects {
		_, _ = fmt.Fprintf(out, "%s %-30s trigger=%-10s pipeline=%s\n",
			color.GreenString("✓"), p.project.Name, p.project.Trigger.Type, p.project.Pipeline.Type)
	}
	_, _ = fmt.Fprintf(out, "%d project(s), %d calendar(s)\n", len(projects), len(ws.calendars.Names()))
	return nil
}
