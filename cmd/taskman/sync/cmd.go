// Package synccmd implements the `taskman sync` command.
package synccmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/go-ports/taskman/cmd/taskman/shared"
	"github.com/go-ports/taskman/internal/checkpoint"
)

// Command implements `taskman sync`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the sync command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "sync <reason>",
		Short: "Checkpoint, rebase onto the shared branch and push",
		Args:  cobra.MinimumNArgs(1),
		RunE:  c.run,
	}
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, args []string) error {
	report, err := c.ctx.Service().Sync(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, report.String())
	// Conflicts and rejected pushes are outcomes, not failures.
	if report.State != checkpoint.StatePushOk {
		color.New(color.FgYellow).Fprintf(out, "sync: %s\n", report.State)
	}
	return nil
}
