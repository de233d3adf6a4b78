package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dwsmith1983/buildwatch/pkg/types"
)

// NewBuildCmd creates the build command.
func NewBuildCmd() *cobra.Command {
	var (
		configPath string
		params     map[string]string
	)
	cmd := &cobra.Command{
		Use:   "build [project-name]",
		Short: "Run a project's pipeline once, bypassing its trigger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(configPath, args[0], params)
		},
	}
	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringToStringVarP(&params, "param", "p", nil, "Build parameter name=value (repeatable)")
	return cmd
}

func runBuild(configPath, project string, params map[string]string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	ws, err := newWorkspace(cfg, slog.Default())
	if err != nil {
		return err
	}
	defer ws.Close()

	if _, err := ws.buildTriggers(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	req := types.NewIntegrationRequest(types.ForceBuild, "cli")
	if len(params) > 0 {
		req = req.WithBuildValues(params)
	}
	color.Cyan("Building %s...", project)
	status, err := ws.runner.Run(ctx, project, req)
	fmt.Println(colorStatus(status))
	if err != nil {
		return fmt.Errorf("build %s: %w", project, err)
	}
	return nil
}
