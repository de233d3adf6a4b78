package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dwsmith1983/buildwatch/internal/pipeline"
	"github.com/dwsmith1983/buildwatch/pkg/types"
)

// NewAddProjectCmd creates the add-project command.
func NewAddProjectCmd() *cobra.Command {
	var (
		configPath string
		name       string
		cronExpr   string
		interval   float64
		command    string
		url        string
	)

	cmd := &cobra.Command{
		Use:   "add-project",
		Short: "Write a new project file into the first project directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newProjectConfig(name, cronExpr, interval, command, url)
			if err != nil {
				return err
			}
			return runAddProject(configPath, p)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&name, "name", "", "Project name (required)")
	cmd.Flags().StringVar(&cronExpr, "cron", "", "Cron expression for a cron trigger")
	cmd.Flags().Float64Var(&interval, "interval", 0, "Seconds between builds for an interval trigger")
	cmd.Flags().StringVar(&command, "command", "", "Shell command to run (command pipeline)")
	cmd.Flags().StringVar(&url, "url", "", "URL to POST (http pipeline)")
	_ = cmd.MarkFlagRequired("name")
	cmd.MarkFlagsMutuallyExclusive("cron", "interval")
	cmd.MarkFlagsMutuallyExclusive("command", "url")

	return cmd
}

func newProjectConfig(name, cronExpr string, interval float64, command, url string) (types.ProjectConfig, error) {
	p := types.ProjectConfig{Name: name}
	switch {
	case cronExpr != "":
		p.Trigger = &types.TriggerConfig{Type: types.TriggerCron, CronExpression: cronExpr}
	default:
		p.Trigger = &types.TriggerConfig{Type: types.TriggerInterval, Seconds: interval, BuildCondition: string(types.ForceBuild)}
	}
	switch {
	case url != "":
		p.Pipeline = &types.PipelineConfig{Type: types.PipelineHTTP, URL: url}
	default:
		p.Pipeline = &types.PipelineConfig{Type: types.PipelineCommand, Command: command}
	}
	if err := pipeline.Validate(p.Pipeline); err != nil {
		return p, err
	}
	return p, nil
}

func runAddProject(configPath string, p types.ProjectConfig) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if len(cfg.ProjectDirs) == 0 {
		return fmt.Errorf("no projectDirs configured")
	}
	for _, existing := range cfg.Projects {
		if existing.Name == p.Name {
			return fmt.Errorf("project %q already exists", p.Name)
		}
	}

	path := filepath.Join(cfg.ProjectDirs[0], p.Name+".yaml")
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling project: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing project file: %w", err)
	}

	color.Green("Project %q written to %s", p.Name, path)
	return nil
}
