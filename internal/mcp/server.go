// Package mcp provides the stdio MCP server exposing taskman operations as
// tools for coding agents.
package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/go-ports/taskman/internal/buildinfo"
	"github.com/go-ports/taskman/internal/service"
)

const describeDescription = `Create a named checkpoint of the agent-state files. Snapshots every pending edit into the current revision, describes it with the reason and starts a fresh working revision. Call this after each meaningful unit of work.` //nolint:lll

const syncDescription = `Checkpoint and publish: describe the current revision, fetch, rebase onto the shared branch, push and start a fresh working revision. Reports each step. On conflicts nothing is pushed and the conflicting status is returned for manual resolution.` //nolint:lll

const searchDescription = `Search history for revisions whose diffs match a pattern. Supports jj pattern prefixes: exact:, glob: (default), regex:, substring:.` //nolint:lll

// NewServer creates and registers all taskman tools on a new MCP server.
func NewServer(svc *service.Service) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer("taskman", buildinfo.Version)
	registerCheckpointTools(s, svc)
	registerHistoryTools(s, svc)
	registerWorktreeTools(s, svc)
	return s
}

// Serve runs the stdio MCP server for svc, blocking until stdin closes.
func Serve(_ context.Context, svc *service.Service) error {
	return mcpserver.ServeStdio(NewServer(svc))
}

func registerCheckpointTools(s *mcpserver.MCPServer, svc *service.Service) {
	s.AddTool(mcp.NewTool("describe",
		mcp.WithDescription(describeDescription),
		mcp.WithString("reason",
			mcp.Description("What the checkpoint contains."),
			mcp.Required(),
		),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		reason, err := req.RequireString("reason")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return textResult(svc.Describe(ctx, reason))
	})

	s.AddTool(mcp.NewTool("sync",
		mcp.WithDescription(syncDescription),
		mcp.WithString("reason",
			mcp.Description("Description for the published revision."),
			mcp.Required(),
		),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		reason, err := req.RequireString("reason")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		report, err := svc.Sync(ctx, reason)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(report.String()), nil
	})
}

func registerHistoryTools(s *mcpserver.MCPServer, svc *service.Service) {
	rangeTool := func(name, description string) mcp.Tool {
		return mcp.NewTool(name,
			mcp.WithDescription(description),
			mcp.WithString("file",
				mcp.Description("Path relative to the agent-state directory."),
				mcp.Required(),
			),
			mcp.WithString("start_rev",
				mcp.Description("First revision of the range, e.g. @---."),
				mcp.Required(),
			),
			mcp.WithString("end_rev",
				mcp.Description("Last revision of the range (default @)."),
			),
		)
	}

	s.AddTool(rangeTool("history_diffs", "Get the diff of a file at every revision in start_rev::end_rev."),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			file, start, end, err := rangeArgs(req)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return textResult(svc.HistoryDiffs(ctx, file, start, end))
		})

	s.AddTool(rangeTool("history_batch", "Get the content of a file at every revision in start_rev::end_rev."),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			file, start, end, err := rangeArgs(req)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return textResult(svc.HistoryBatch(ctx, file, start, end))
		})

	s.AddTool(mcp.NewTool("history_search",
		mcp.WithDescription(searchDescription),
		mcp.WithString("pattern",
			mcp.Description("Pattern to match in diffs."),
			mcp.Required(),
		),
		mcp.WithString("file",
			mcp.Description("Restrict the search to this path."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max revisions (default from config, 20)."),
		),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pattern, err := req.RequireString("pattern")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return textResult(svc.HistorySearch(ctx, pattern, req.GetString("file", ""), req.GetInt("limit", 0)))
	})
}

func registerWorktreeTools(s *mcpserver.MCPServer, svc *service.Service) {
	s.AddTool(mcp.NewTool("wt",
		mcp.WithDescription("Create a git worktree under worktrees/<name> with a linked agent-state workspace. Without a name, re-link the current worktree."),
		mcp.WithString("name",
			mcp.Description("Worktree and branch name."),
		),
		mcp.WithBoolean("new_branch",
			mcp.Description("Create the branch instead of checking out an existing one."),
		),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return textResult(svc.Worktree(ctx, req.GetString("name", ""), req.GetBool("new_branch", false)))
	})

	s.AddTool(mcp.NewTool("wt_list",
		mcp.WithDescription("List linked worktrees with git:, jj-ws: and bookmark: state tags."),
		mcp.WithBoolean("json",
			mcp.Description("Return the records as JSON."),
		),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if !req.GetBool("json", false) {
			return textResult(svc.WorktreeList(ctx))
		}
		records, err := svc.WorktreeRecords(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(records)
	})

	s.AddTool(mcp.NewTool("wt_rm",
		mcp.WithDescription("Remove a linked worktree, forget its workspace and merge its changes into the main workspace."),
		mcp.WithString("name",
			mcp.Description("Worktree name."),
			mcp.Required(),
		),
		mcp.WithBoolean("force",
			mcp.Description("Remove even with uncommitted or unpushed changes."),
		),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return textResult(svc.WorktreeRemove(ctx, name, req.GetBool("force", false)))
	})

	s.AddTool(mcp.NewTool("wt_prune",
		mcp.WithDescription("Forget and merge every workspace whose directory was deleted."),
	), func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return textResult(svc.WorktreePrune(ctx))
	})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func rangeArgs(req mcp.CallToolRequest) (file, start, end string, err error) {
	if file, err = req.RequireString("file"); err != nil {
		return "", "", "", err
	}
	if start, err = req.RequireString("start_rev"); err != nil {
		return "", "", "", err
	}
	end = strings.TrimSpace(req.GetString("end_rev", ""))
	if end == "" {
		end = "@"
	}
	return file, start, end, nil
}

func textResult(text string, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}
