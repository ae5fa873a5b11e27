// Package wtcmd implements the `taskman wt*` worktree commands.
package wtcmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ports/taskman/cmd/taskman/shared"
)

// CreateCommand implements `taskman wt`.
type CreateCommand struct {
	ctx *shared.Context
	cmd *cobra.Command

	newBranch bool
}

// NewCreate creates the wt command.
func NewCreate(ctx *shared.Context) *CreateCommand {
	c := &CreateCommand{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "wt [name]",
		Short: "Create a git worktree with a linked agent-state workspace",
		Long: `Create worktrees/<name> as a git worktree with its own agent-state workspace.

Run without a name from inside an existing worktree to re-create its workspace.`,
		Args: cobra.MaximumNArgs(1),
		RunE: c.run,
	}
	c.cmd.Flags().BoolVarP(&c.newBranch, "new-branch", "b", false, "Create the git branch instead of checking it out")
	return c
}

// Cmd returns the cobra command.
func (c *CreateCommand) Cmd() *cobra.Command { return c.cmd }

func (c *CreateCommand) run(cmd *cobra.Command, args []string) error {
	name := ""
	if len(args) == 1 {
		name = args[0]
	}
	out, err := c.ctx.Service().Worktree(cmd.Context(), name, c.newBranch)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

// ---------------------------------------------------------------------------
// wt-list
// ---------------------------------------------------------------------------

// ListCommand implements `taskman wt-list`.
type ListCommand struct {
	ctx *shared.Context
	cmd *cobra.Command

	json bool
}

// NewList creates the wt-list command.
func NewList(ctx *shared.Context) *ListCommand {
	c := &ListCommand{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "wt-list",
		Short: "List worktrees with git, workspace and bookmark state",
		Args:  cobra.NoArgs,
		RunE:  c.run,
	}
	c.cmd.Flags().BoolVar(&c.json, "json", false, "Print the records as JSON")
	return c
}

// Cmd returns the cobra command.
func (c *ListCommand) Cmd() *cobra.Command { return c.cmd }

func (c *ListCommand) run(cmd *cobra.Command, _ []string) error {
	svc := c.ctx.Service()
	out := cmd.OutOrStdout()
	if !c.json {
		text, err := svc.WorktreeList(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(out, text)
		return nil
	}

	records, err := svc.WorktreeRecords(cmd.Context())
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// ---------------------------------------------------------------------------
// wt-rm
// ---------------------------------------------------------------------------

// RemoveCommand implements `taskman wt-rm`.
type RemoveCommand struct {
	ctx *shared.Context
	cmd *cobra.Command

	force bool
}

// NewRemove creates the wt-rm command.
func NewRemove(ctx *shared.Context) *RemoveCommand {
	c := &RemoveCommand{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "wt-rm <name>",
		Short: "Remove a worktree and merge its agent-state changes back",
		Args:  cobra.ExactArgs(1),
		RunE:  c.run,
	}
	c.cmd.Flags().BoolVarP(&c.force, "force", "f", false, "Remove even with uncommitted or unpushed changes")
	return c
}

// Cmd returns the cobra command.
func (c *RemoveCommand) Cmd() *cobra.Command { return c.cmd }

func (c *RemoveCommand) run(cmd *cobra.Command, args []string) error {
	out, err := c.ctx.Service().WorktreeRemove(cmd.Context(), args[0], c.force)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

// ---------------------------------------------------------------------------
// wt-prune
// ---------------------------------------------------------------------------

// PruneCommand implements `taskman wt-prune`.
type PruneCommand struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// NewPrune creates the wt-prune command.
func NewPrune(ctx *shared.Context) *PruneCommand {
	c := &PruneCommand{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "wt-prune",
		Short: "Forget and merge workspaces whose directories were deleted",
		Args:  cobra.NoArgs,
		RunE:  c.run,
	}
	return c
}

// Cmd returns the cobra command.
func (c *PruneCommand) Cmd() *cobra.Command { return c.cmd }

func (c *PruneCommand) run(cmd *cobra.Command, _ []string) error {
	out, err := c.ctx.Service().WorktreePrune(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
