// Package describecmd implements the `taskman describe` command.
package describecmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/go-ports/taskman/cmd/taskman/shared"
)

// Command implements `taskman describe`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the describe command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "describe <reason>",
		Short: "Checkpoint the agent-state files and start a fresh revision",
		Args:  cobra.MinimumNArgs(1),
		RunE:  c.run,
	}
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, args []string) error {
	out, err := c.ctx.Service().Describe(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
