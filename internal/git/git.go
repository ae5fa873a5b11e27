// Package git is the typed command surface taskman uses against plain git
// for project worktrees.
package git

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-ports/taskman/internal/backend"
)

// Client issues git commands inside a project directory.
type Client struct {
	runner backend.Runner
	dir    string
}

// New returns a Client that runs git in dir.
func New(runner backend.Runner, dir string) *Client {
	return &Client{runner: runner, dir: dir}
}

// Dir returns the directory commands run in.
func (c *Client) Dir() string { return c.dir }

// WorktreeAdd creates a worktree at path for branch. With newBranch the
// branch is created from HEAD, otherwise the existing branch is checked out.
func (c *Client) WorktreeAdd(ctx context.Context, path, branch string, newBranch bool) error {
	args := []string{"worktree", "add"}
	if newBranch {
		args = append(args, "-b", branch, path)
	} else {
		args = append(args, path, branch)
	}
	_, err := c.runner.RunChecked(ctx, c.dir, args...)
	return err
}

// WorktreeRemove removes the worktree at path. force discards local changes.
func (c *Client) WorktreeRemove(ctx context.Context, path string, force bool) error {
	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, path)
	_, err := c.runner.RunChecked(ctx, c.dir, args...)
	return err
}

// WorktreePrune drops administrative data for worktrees whose directory is gone.
func (c *Client) WorktreePrune(ctx context.Context) error {
	_, err := c.runner.RunChecked(ctx, c.dir, "worktree", "prune")
	return err
}

// Changes returns `git status --porcelain` entries for the worktree at path,
// skipping entries below any of the ignored path prefixes.
func (c *Client) Changes(ctx context.Context, path string, ignored ...string) ([]string, error) {
	res, err := c.runner.RunChecked(ctx, path, "status", "--porcelain")
	if err != nil {
		return nil, err
	}
	var changes []string
	for _, line := range strings.Split(res.Stdout, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if len(line) > 3 && hasPrefixAny(line[3:], ignored) {
			continue
		}
		changes = append(changes, line)
	}
	return changes, nil
}

// Unpushed returns how many commits of the worktree at path no remote has.
// With an upstream that is the count ahead of it. Without one it counts the
// commits reachable from HEAD but from no remote-tracking ref and no other
// local branch, so a fresh branch cut from main reports zero.
func (c *Client) Unpushed(ctx context.Context, path string) (int, error) {
	res, err := c.runner.Run(ctx, path, "rev-list", "--count", "@{upstream}..HEAD")
	if err != nil {
		return 0, err
	}
	if res.ExitCode == 0 {
		return parseCount(res.Stdout)
	}

	head, err := c.runner.RunChecked(ctx, path, "rev-parse", "--symbolic-full-name", "HEAD")
	if err != nil {
		return 0, err
	}
	args := []string{"rev-list", "--count", "HEAD", "--not"}
	if ref := strings.TrimSpace(head.Stdout); strings.HasPrefix(ref, "refs/heads/") {
		args = append(args, "--exclude="+ref)
	}
	args = append(args, "--branches", "--remotes")
	res, err = c.runner.RunChecked(ctx, path, args...)
	if err != nil {
		return 0, err
	}
	return parseCount(res.Stdout)
}

func parseCount(out string) (int, error) {
	out = strings.TrimSpace(out)
	if out == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(out)
	if err != nil {
		return 0, fmt.Errorf("git: unexpected rev-list output %q: %w", out, err)
	}
	return n, nil
}

func hasPrefixAny(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && (s == p || strings.HasPrefix(s, p+"/")) {
			return true
		}
	}
	return false
}
