package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dwsmith1983/buildwatch/internal/remote"
	"github.com/dwsmith1983/buildwatch/pkg/types"
)

const statusTimeout = 10 * time.Second

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	var serverURI, apiKey string

	cmd := &cobra.Command{
		Use:   "status [project-name]",
		Short: "Show project status from a running server or status store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var project string
			if len(args) > 0 {
				project = args[0]
			}
			return runStatus(os.Stdout, serverURI, apiKey, project)
		},
	}
	cmd.Flags().StringVar(&serverURI, "server", "http://localhost:8080", "Build server URL or redis:// status store")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key for the build server")
	return cmd
}

func runStatus(out io.Writer, serverURI, apiKey, project string) error {
	var opts []remote.Option
	if apiKey != "" {
		opts = append(opts, remote.WithAPIKey(apiKey))
	}
	managers, redisFactory := newManagers(opts)
	defer func() { _ = redisFactory.Close() }()

	m, err := managers.GetManager(serverURI)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
	defer cancel()

	statuses, err := m.GetProjectStatus(ctx)
	if err != nil {
		return fmt.Errorf("fetching status from %s: %w", serverURI, err)
	}

	if project != "" {
		for _, s := range statuses {
			if s.Name == project {
				printProjectStatus(out, s)
				return nil
			}
		}
		return fmt.Errorf("project %q not found on %s", project, serverURI)
	}
	printStatuses(out, statuses)
	return nil
}

func printStatuses(out io.Writer, statuses []types.ProjectStatus) {
	if len(statuses) == 0 {
		_, _ = fmt.Fprintln(out, "No projects reported.")
		return
	}
	bold := color.New(color.Bold)
	_, _ = bold.Fprintln(out, "Projects:")
	for _, s := range statuses {
		_, _ = fmt.Fprintf(out, "  %-30s %-12s %-10s next=%s\n",
			s.Name, colorStatus(s.BuildStatus), s.Activity, formatTime(s.NextBuildTime))
	}
}

func printProjectStatus(out io.Writer, s types.ProjectStatus) {
	bold := color.New(color.Bold)
	_, _ = bold.Fprintf(out, "Project: %s\n", s.Name)
	_, _ = fmt.Fprintf(out, "  Status:     %s\n", colorStatus(s.BuildStatus))
	_, _ = fmt.Fprintf(out, "  Activity:   %s\n", s.Activity)
	_, _ = fmt.Fprintf(out, "  Last build: %s\n", formatTime(s.LastBuildDate))
	if s.LastBuildID != "" {
		_, _ = fmt.Fprintf(out, "  Build ID:   %s (%s)\n", s.LastBuildID, s.LastSource)
	}
	_, _ = fmt.Fprintf(out, "  Next build: %s\n", formatTime(s.NextBuildTime))
}

func colorStatus(s types.IntegrationStatus) string {
	switch s {
	case types.StatusSuccess:
		return color.GreenString(string(s))
	case types.StatusFailure, types.StatusException:
		return color.RedString(string(s))
	case types.StatusCancelled:
		return color.YellowString(string(s))
	default:
		return color.CyanString(string(s))
	}
}
