// Package configcmd implements the `taskman config` command group.
package configcmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/go-ports/taskman/cmd/taskman/shared"
	"github.com/go-ports/taskman/internal/config"
)

const configTemplate = `# taskman configuration

# Programs taskman drives. TASKMAN_JJ / TASKMAN_GIT override these.
backend:
  jj: jj
  git: git

# Layout relative to the project root.
repository:
  state_dir: .agent-files       # agent-state repository
  worktrees_dir: worktrees      # linked worktrees live under <worktrees_dir>/<name>
  remote: origin
  branch: main                  # shared bookmark published by sync

# Identity written into a new agent-state repository by init.
author:
  name: Agent
  email: agent@localhost

history:
  search_limit: 20
`

// Command implements `taskman config`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the config command group.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "config",
		Short: "Show or manage configuration",
		Args:  cobra.NoArgs,
		RunE:  c.runShow,
	}
	c.cmd.AddCommand(newConfigInit(ctx))
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) runShow(cmd *cobra.Command, _ []string) error {
	path, source := c.ctx.ConfigFile()
	data := struct {
		Config config.Config `yaml:",inline"`
		Path   string        `yaml:"config_path"`
		Source string        `yaml:"config_source"`
	}{*c.ctx.Config(), path, source}
	b, err := yaml.Marshal(data)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(b))
	return nil
}

// ---------------------------------------------------------------------------
// config init
// ---------------------------------------------------------------------------

func newConfigInit(ctx *shared.Context) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a starter config.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := ctx.ConfigFile()
			out := cmd.OutOrStdout()
			if _, err := os.Stat(cfgPath); err == nil && !force {
				fmt.Fprintf(out, "Config already exists at %s\n", cfgPath)
				fmt.Fprintln(out, "Use --force to overwrite.")
				return nil
			}
			if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(cfgPath, []byte(configTemplate), 0o600); err != nil {
				return err
			}
			fmt.Fprintf(out, "Created %s\n", cfgPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config")
	return cmd
}
