// Package servecmd implements the `taskman serve` command.
package servecmd

import (
	"github.com/spf13/cobra"

	"github.com/go-ports/taskman/cmd/taskman/shared"
	internalmcp "github.com/go-ports/taskman/internal/mcp"
)

// Command implements `taskman serve`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the serve command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the taskman MCP server (stdio transport)",
		Args:  cobra.NoArgs,
		RunE:  c.run,
	}
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, _ []string) error {
	return internalmcp.Serve(cmd.Context(), c.ctx.Service())
}
