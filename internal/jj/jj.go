// Package jj is the typed command surface taskman uses against the jj backend.
package jj

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-ports/taskman/internal/backend"
	"github.com/go-ports/taskman/internal/revset"
)

const (
	changeIDTemplate     = "change_id.short()"
	changeIDLineTemplate = `change_id.short() ++ "\n"`
	conflictTemplate     = `if(conflict, "conflict")`
	operationIDTemplate  = "id.short()"
)

// Client issues jj commands inside one workspace directory.
type Client struct {
	runner backend.Runner
	dir    string
}

// New returns a Client that runs jj in dir.
func New(runner backend.Runner, dir string) *Client {
	return &Client{runner: runner, dir: dir}
}

// Dir returns the directory commands run in.
func (c *Client) Dir() string { return c.dir }

// At returns a Client sharing c's runner but rooted at dir.
func (c *Client) At(dir string) *Client {
	return &Client{runner: c.runner, dir: dir}
}

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	res, err := c.runner.RunChecked(ctx, c.dir, args...)
	return res.Stdout, err
}

// ---------------------------------------------------------------------------
// Working copy
// ---------------------------------------------------------------------------

// Status returns `jj status` output. Running it snapshots pending edits into @.
func (c *Client) Status(ctx context.Context) (string, error) {
	return c.run(ctx, "status")
}

// Describe sets the description of @.
func (c *Client) Describe(ctx context.Context, message string) error {
	_, err := c.run(ctx, "describe", "-m", message)
	return err
}

// New starts a fresh working-copy revision. With no parents it is created on
// top of @; several parents produce a merge.
func (c *Client) New(ctx context.Context, parents ...string) error {
	_, err := c.run(ctx, append([]string{"new"}, parents...)...)
	return err
}

// Rebase rebases @ onto destination.
func (c *Client) Rebase(ctx context.Context, destination string) error {
	_, err := c.run(ctx, "rebase", "-d", destination)
	return err
}

// ---------------------------------------------------------------------------
// Log queries
// ---------------------------------------------------------------------------

// LogTemplate renders template for every revision in rs.
func (c *Client) LogTemplate(ctx context.Context, rs, template string) (string, error) {
	return c.run(ctx, "log", "--no-graph", "-r", rs, "-T", template)
}

// ChangeID returns the short change id of rev.
func (c *Client) ChangeID(ctx context.Context, rev string) (string, error) {
	out, err := c.LogTemplate(ctx, rev, changeIDTemplate)
	return strings.TrimSpace(out), err
}

// ChangeIDs returns the short change ids selected by rs in log order.
func (c *Client) ChangeIDs(ctx context.Context, rs string) ([]string, error) {
	out, err := c.LogTemplate(ctx, rs, changeIDLineTemplate)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			ids = append(ids, line)
		}
	}
	return ids, nil
}

// Exists reports whether rev resolves. A failed lookup is the expected
// answer for a missing revision, so only process errors are returned.
func (c *Client) Exists(ctx context.Context, rev string) (bool, error) {
	res, err := c.runner.Run(ctx, c.dir, "log", "--no-graph", "-r", rev, "-T", "commit_id")
	if err != nil {
		return false, err
	}
	return res.ExitCode == 0 && strings.TrimSpace(res.Stdout) != "", nil
}

// Conflicted reports whether rev records unresolved conflicts.
func (c *Client) Conflicted(ctx context.Context, rev string) (bool, error) {
	out, err := c.LogTemplate(ctx, rev, conflictTemplate)
	return strings.Contains(out, "conflict"), err
}

// Log returns jj's rendered log for rs, limited to limit entries when limit > 0.
func (c *Client) Log(ctx context.Context, rs string, limit int) (string, error) {
	args := []string{"log", "-r", rs}
	if limit > 0 {
		args = append(args, "--limit", strconv.Itoa(limit))
	}
	return c.run(ctx, args...)
}

// Diff returns the diff introduced by rev, restricted to path.
func (c *Client) Diff(ctx context.Context, rev, path string) (string, error) {
	return c.run(ctx, "diff", "-r", rev, "--", path)
}

// FileShow returns the content of path at rev. A missing path fails with
// backend.ReasonNoSuchPath.
func (c *Client) FileShow(ctx context.Context, rev, path string) (string, error) {
	return c.run(ctx, "file", "show", "-r", rev, path)
}

// ---------------------------------------------------------------------------
// Bookmarks
// ---------------------------------------------------------------------------

// BookmarkListAll returns `jj bookmark list --all` output.
func (c *Client) BookmarkListAll(ctx context.Context) (string, error) {
	return c.run(ctx, "bookmark", "list", "--all")
}

// Bookmarks returns the present local bookmark names.
func (c *Client) Bookmarks(ctx context.Context) ([]string, error) {
	out, err := c.run(ctx, "bookmark", "list")
	if err != nil {
		return nil, err
	}
	return parseBookmarks(out), nil
}

// BookmarkSet moves name to rev. It fails with backend.ReasonNoSuchBookmark
// on jj versions that refuse to create bookmarks through set.
func (c *Client) BookmarkSet(ctx context.Context, name, rev string) error {
	_, err := c.run(ctx, "bookmark", "set", name, "-r", rev)
	return err
}

// BookmarkCreate creates name at rev.
func (c *Client) BookmarkCreate(ctx context.Context, name, rev string) error {
	_, err := c.run(ctx, "bookmark", "create", name, "-r", rev)
	return err
}

// SetOrCreateBookmark points name at rev, creating it when it does not exist.
// jj has no atomic set-or-create, so a move is tried first.
func (c *Client) SetOrCreateBookmark(ctx context.Context, name, rev string) error {
	err := c.BookmarkSet(ctx, name, rev)
	if backend.ReasonOf(err) == backend.ReasonNoSuchBookmark {
		return c.BookmarkCreate(ctx, name, rev)
	}
	return err
}

// BookmarkDelete deletes the local bookmark name.
func (c *Client) BookmarkDelete(ctx context.Context, name string) error {
	_, err := c.run(ctx, "bookmark", "delete", name)
	return err
}

// BookmarkTrack starts tracking remoteRef (name@remote).
func (c *Client) BookmarkTrack(ctx context.Context, remoteRef string) error {
	_, err := c.run(ctx, "bookmark", "track", remoteRef)
	return err
}

// RemoteUntracked reports whether name@remote exists but is not tracked by
// the local bookmark.
func (c *Client) RemoteUntracked(ctx context.Context, name, remote string) (bool, error) {
	out, err := c.BookmarkListAll(ctx)
	if err != nil {
		return false, err
	}
	return remoteUntracked(out, revset.RemoteBookmark(name, remote)), nil
}

// ---------------------------------------------------------------------------
// Workspaces
// ---------------------------------------------------------------------------

// WorkspaceAdd registers a linked workspace called name rooted at dir.
func (c *Client) WorkspaceAdd(ctx context.Context, name, dir string) error {
	_, err := c.run(ctx, "workspace", "add", "--name", name, dir)
	return err
}

// WorkspaceForget drops the registration of workspace name.
func (c *Client) WorkspaceForget(ctx context.Context, name string) error {
	_, err := c.run(ctx, "workspace", "forget", name)
	return err
}

// Workspaces returns the registered workspace names.
func (c *Client) Workspaces(ctx context.Context) ([]string, error) {
	out, err := c.run(ctx, "workspace", "list")
	if err != nil {
		return nil, err
	}
	return parseWorkspaces(out), nil
}

// ---------------------------------------------------------------------------
// Git interop, config and operations
// ---------------------------------------------------------------------------

// GitInit creates a new repository in dir, relative to the client directory.
func (c *Client) GitInit(ctx context.Context, dir string) error {
	_, err := c.run(ctx, "git", "init", dir)
	return err
}

// GitFetch fetches from the configured remotes.
func (c *Client) GitFetch(ctx context.Context) error {
	_, err := c.run(ctx, "git", "fetch")
	return err
}

// GitPush pushes bookmarks; all selects every bookmark, for the first push.
func (c *Client) GitPush(ctx context.Context, all bool) error {
	args := []string{"git", "push"}
	if all {
		args = append(args, "--all")
	}
	_, err := c.run(ctx, args...)
	return err
}

// ConfigSetRepo sets a repository-scoped config value.
func (c *Client) ConfigSetRepo(ctx context.Context, key, value string) error {
	_, err := c.run(ctx, "config", "set", "--repo", key, value)
	return err
}

// OperationID returns the id of the latest operation.
func (c *Client) OperationID(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "op", "log", "--no-graph", "--limit", "1", "-T", operationIDTemplate)
	return strings.TrimSpace(out), err
}

// OperationRestore restores the repository to operation id.
func (c *Client) OperationRestore(ctx context.Context, id string) error {
	_, err := c.run(ctx, "op", "restore", id)
	return err
}

// ---------------------------------------------------------------------------
// Output parsing
// ---------------------------------------------------------------------------

// parseWorkspaces reads "name: change commit description" lines.
func parseWorkspaces(out string) []string {
	var names []string
	for _, line := range strings.Split(out, "\n") {
		name, _, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// parseBookmarks reads local bookmark names. Indented lines describe remote
// targets of the bookmark above; name@remote lines are untracked remotes.
func parseBookmarks(out string) []string {
	var names []string
	for _, line := range strings.Split(out, "\n") {
		if line == "" || line[0] == ' ' || line[0] == '\t' {
			continue
		}
		head, _, _ := strings.Cut(line, ":")
		if strings.HasSuffix(head, "(deleted)") {
			continue
		}
		name, _, _ := strings.Cut(head, " ")
		if name == "" || strings.Contains(name, "@") {
			continue
		}
		names = append(names, name)
	}
	return names
}

func remoteUntracked(out, remoteRef string) bool {
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, remoteRef) {
			continue
		}
		if strings.Contains(line, "untracked") || strings.HasPrefix(line, remoteRef) {
			return true
		}
	}
	return false
}
