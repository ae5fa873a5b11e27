// Package rootcmd wires the root cobra.Command for the taskman CLI binary.
package rootcmd

import (
	"github.com/spf13/cobra"

	configcmd "github.com/go-ports/taskman/cmd/taskman/config"
	describecmd "github.com/go-ports/taskman/cmd/taskman/describe"
	historycmd "github.com/go-ports/taskman/cmd/taskman/history"
	initcmd "github.com/go-ports/taskman/cmd/taskman/init"
	servecmd "github.com/go-ports/taskman/cmd/taskman/serve"
	"github.com/go-ports/taskman/cmd/taskman/shared"
	synccmd "github.com/go-ports/taskman/cmd/taskman/sync"
	wtcmd "github.com/go-ports/taskman/cmd/taskman/wt"
	"github.com/go-ports/taskman/internal/buildinfo"
)

// New creates and returns the root cobra.Command for the taskman CLI.
func New() *cobra.Command {
	return NewWithContext(&shared.Context{})
}

// NewWithContext builds the command tree around ctx, letting callers
// preset runners or the start directory.
func NewWithContext(ctx *shared.Context) *cobra.Command {
	root := &cobra.Command{
		Use:           "taskman",
		Short:         "Versioned agent-state files with checkpoints, history and worktrees",
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.Load(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, _ []string) error { return cmd.Help() },
	}

	f := root.PersistentFlags()
	f.StringVar(&ctx.ConfigPath, "config", ctx.ConfigPath,
		"Config file (default: $TASKMAN_CONFIG env → ~/.config/taskman/config.yaml)")
	f.StringVarP(&ctx.Dir, "dir", "C", ctx.Dir, "Run as if started in this directory")
	f.BoolVarP(&ctx.Verbose, "verbose", "v", ctx.Verbose, "Log every backend command to stderr")

	root.AddCommand(
		initcmd.New(ctx).Cmd(),
		describecmd.New(ctx).Cmd(),
		synccmd.New(ctx).Cmd(),
		historycmd.NewDiffs(ctx).Cmd(),
		historycmd.NewBatch(ctx).Cmd(),
		historycmd.NewSearch(ctx).Cmd(),
		wtcmd.NewCreate(ctx).Cmd(),
		wtcmd.NewList(ctx).Cmd(),
		wtcmd.NewRemove(ctx).Cmd(),
		wtcmd.NewPrune(ctx).Cmd(),
		servecmd.New(ctx).Cmd(),
		configcmd.New(ctx).Cmd(),
	)

	return root
}
