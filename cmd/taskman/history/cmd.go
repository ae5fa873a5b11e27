// Package historycmd implements the `taskman history-*` commands.
package historycmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ports/taskman/cmd/taskman/shared"
	"github.com/go-ports/taskman/internal/service"
)

type rangeQuery func(svc *service.Service, ctx context.Context, file, start, end string) (string, error)

// RangeCommand implements `taskman history-diffs` and `taskman history-batch`.
type RangeCommand struct {
	ctx   *shared.Context
	cmd   *cobra.Command
	query rangeQuery
}

// NewDiffs creates the history-diffs command.
func NewDiffs(ctx *shared.Context) *RangeCommand {
	return newRange(ctx, "history-diffs", "Show the diff of a file at every revision in a range",
		(*service.Service).HistoryDiffs)
}

// NewBatch creates the history-batch command.
func NewBatch(ctx *shared.Context) *RangeCommand {
	return newRange(ctx, "history-batch", "Show the content of a file at every revision in a range",
		(*service.Service).HistoryBatch)
}

func newRange(ctx *shared.Context, use, short string, query rangeQuery) *RangeCommand {
	c := &RangeCommand{ctx: ctx, query: query}
	c.cmd = &cobra.Command{
		Use:   use + " <file> <start-rev> [end-rev]",
		Short: short,
		Long:  short + ". The range is start-rev::end-rev; end-rev defaults to @.",
		Args:  cobra.RangeArgs(2, 3),
		RunE:  c.run,
	}
	return c
}

// Cmd returns the cobra command.
func (c *RangeCommand) Cmd() *cobra.Command { return c.cmd }

func (c *RangeCommand) run(cmd *cobra.Command, args []string) error {
	end := "@"
	if len(args) == 3 {
		end = args[2]
	}
	out, err := c.query(c.ctx.Service(), cmd.Context(), args[0], args[1], end)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

// ---------------------------------------------------------------------------
// history-search
// ---------------------------------------------------------------------------

// SearchCommand implements `taskman history-search`.
type SearchCommand struct {
	ctx *shared.Context
	cmd *cobra.Command

	file  string
	limit int
}

// NewSearch creates the history-search command.
func NewSearch(ctx *shared.Context) *SearchCommand {
	c := &SearchCommand{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "history-search <pattern>",
		Short: "Find revisions whose diffs match a pattern",
		Long: `Find revisions whose diffs match a pattern.

Patterns accept the prefixes exact:, glob: (default), regex: and substring:.`,
		Args: cobra.ExactArgs(1),
		RunE: c.run,
	}

	f := c.cmd.Flags()
	f.StringVar(&c.file, "file", "", "Restrict the search to this path")
	f.IntVar(&c.limit, "limit", 0, "Maximum number of revisions (default: history.search_limit)")

	return c
}

// Cmd returns the cobra command.
func (c *SearchCommand) Cmd() *cobra.Command { return c.cmd }

func (c *SearchCommand) run(cmd *cobra.Command, args []string) error {
	out, err := c.ctx.Service().HistorySearch(cmd.Context(), args[0], c.file, c.limit)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
