package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dwsmith1983/buildwatch/internal/commands"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "buildwatch",
		Short: "Trigger-driven build scheduler",
		Long: `buildwatch decides when each configured project should build. Every
project has a trigger tree (intervals, schedules, cron expressions, URL
changes, other projects' results) that is polled on a fixed tick; when it
fires, the project's pipeline runs and the outcome is reported back.`,
		Version: version,
	}

	root.AddCommand(
		commands.NewInitCmd(),
		commands.NewAddProjectCmd(),
		commands.NewValidateCmd(),
		commands.NewNextCmd(),
		commands.NewBuildCmd(),
		commands.NewStatusCmd(),
		commands.NewServeCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
