// Package worktree manages linked worktrees of a project.
//
// A linked worktree pairs three pieces of state that can drift apart: a git
// worktree under <project>/<worktrees>/<name>, a jj workspace named <name>
// rooted at its agent-state directory, and a bookmark named <name> that keeps
// the workspace's history addressable. Record is the reconciled view of the
// three, computed fresh on every call.
package worktree

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/gosuri/uitable"

	"github.com/go-ports/taskman/internal/apperr"
	"github.com/go-ports/taskman/internal/git"
	"github.com/go-ports/taskman/internal/jj"
	"github.com/go-ports/taskman/internal/repo"
	"github.com/go-ports/taskman/internal/revset"
)

// XrefFile is written into every linked workspace so plain git tooling
// resolves it to the repository's git store.
const XrefFile = ".git"

const (
	// NoWorktrees is returned by List when there is nothing to show.
	NoWorktrees = "No worktrees found"
	// NoOrphans is returned by Prune when every registration has a directory.
	NoOrphans = "No orphaned state found"
)

// Status is one observed fact of a Record.
type Status string

const (
	StatusOK       Status = "ok"
	StatusMissing  Status = "missing"
	StatusOrphaned Status = "orphaned"
)

// Record is the reconciled state of one linked worktree.
type Record struct {
	Name      string `json:"name"`
	Git       Status `json:"git"`
	Workspace Status `json:"workspace"`
	Bookmark  Status `json:"bookmark"`
}

// Orphaned reports whether the jj workspace is registered but its directory
// is gone.
func (r Record) Orphaned() bool { return r.Workspace == StatusOrphaned }

// Tags renders the record's facts as git:, jj-ws: and bookmark: tags.
func (r Record) Tags() []string {
	return []string{
		"git:" + string(r.Git),
		"jj-ws:" + string(r.Workspace),
		"bookmark:" + string(r.Bookmark),
	}
}

// Options configures a Manager.
type Options struct {
	StateDir     string
	WorktreesDir string
	// Cwd is the directory the operation was invoked from.
	Cwd string
}

// Manager creates, lists, removes and prunes linked worktrees.
type Manager struct {
	jj      *jj.Client
	git     *git.Client
	main    string
	project string
	opts    Options
}

// New returns a Manager. jjc must be rooted at the main repository's state
// directory and gitc at the project directory containing it.
func New(jjc *jj.Client, gitc *git.Client, opts Options) *Manager {
	return &Manager{
		jj:      jjc,
		git:     gitc,
		main:    jjc.Dir(),
		project: filepath.Dir(jjc.Dir()),
		opts:    opts,
	}
}

func (m *Manager) worktreeDir(name string) string {
	return filepath.Join(m.project, m.opts.WorktreesDir, name)
}

func (m *Manager) workspaceDir(name string) string {
	return filepath.Join(m.worktreeDir(name), m.opts.StateDir)
}

func (m *Manager) rel(name string) string {
	return filepath.ToSlash(filepath.Join(m.opts.WorktreesDir, name))
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return apperr.New(apperr.ErrInvalidOperation, "invalid worktree name %q", name)
	}
	if name == repo.DefaultWorkspace {
		return apperr.New(apperr.ErrInvalidOperation, "%q is reserved for the main workspace", name)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

// Create adds a git worktree at <worktrees>/<name> checking out branch name
// (created from HEAD when newBranch is set) and links a jj workspace of the
// same name inside it. It must run from the main repository's project root.
func (m *Manager) Create(ctx context.Context, name string, newBranch bool) (string, error) {
	if !repo.IsMainWorkspace(filepath.Join(m.opts.Cwd, m.opts.StateDir)) {
		return "", apperr.New(apperr.ErrInvalidOperation,
			"Run 'taskman wt %s' from main repo (where %s/.jj/ exists)", name, m.opts.StateDir)
	}
	if err := validName(name); err != nil {
		return "", err
	}
	dir := m.worktreeDir(name)
	if exists(dir) {
		return "", apperr.New(apperr.ErrAlreadyExists, "%s already exists", m.rel(name))
	}

	if err := m.git.WorktreeAdd(ctx, dir, name, newBranch); err != nil {
		return "", err
	}
	ws := m.workspaceDir(name)
	err := m.link(ctx, name, ws)
	if err == nil {
		err = m.jj.At(ws).BookmarkCreate(ctx, name, revset.WorkingCopyRev)
	}
	if err != nil {
		m.undoCreate(ctx, name, dir)
		return "", err
	}
	return fmt.Sprintf("Created worktree at %s/ with %s workspace", m.rel(name), m.opts.StateDir), nil
}

// undoCreate drops the workspace registration and git worktree of a failed
// Create so it can be retried. Failures are logged; the caller already has
// an error to report.
func (m *Manager) undoCreate(ctx context.Context, name, dir string) {
	registered, err := m.registered(ctx)
	if err != nil {
		slog.Warn("worktree: list workspaces after failed create", "name", name, "err", err)
	} else if slices.Contains(registered, name) {
		if err := m.jj.WorkspaceForget(ctx, name); err != nil {
			slog.Warn("worktree: forget workspace after failed create", "name", name, "err", err)
		}
	}
	if err := m.git.WorktreeRemove(ctx, dir, true); err != nil {
		slog.Warn("worktree: remove git worktree after failed create", "name", name, "err", err)
	}
}

// Recover links a jj workspace into the current directory, an existing git
// worktree at <worktrees>/<name> whose agent-state directory is missing. The workspace is named
// after the directory; a stale registration under that name is replaced.
func (m *Manager) Recover(ctx context.Context) (string, error) {
	cwd := m.opts.Cwd
	if repo.IsMainWorkspace(filepath.Join(cwd, m.opts.StateDir)) {
		return "", apperr.New(apperr.ErrInvalidOperation, "Use 'taskman wt <name>' to create a worktree")
	}
	// Records and Prune only look for workspaces under the worktrees
	// directory; one linked elsewhere would be reported orphaned.
	if resolved(filepath.Dir(cwd)) != resolved(filepath.Join(m.project, m.opts.WorktreesDir)) {
		return "", apperr.New(apperr.ErrInvalidOperation, "%s is not a worktree under %s/", cwd, m.opts.WorktreesDir).
			WithFix("Create one with: cd %s && taskman wt <name>", m.project)
	}
	ws := filepath.Join(cwd, m.opts.StateDir)
	if exists(ws) {
		return "", apperr.New(apperr.ErrAlreadyExists, "%s already exists", m.opts.StateDir)
	}
	name := filepath.Base(cwd)
	if err := validName(name); err != nil {
		return "", err
	}

	registered, err := m.registered(ctx)
	if err != nil {
		return "", err
	}
	if slices.Contains(registered, name) {
		if err := m.jj.WorkspaceForget(ctx, name); err != nil {
			return "", err
		}
	}
	if err := m.link(ctx, name, ws); err != nil {
		return "", err
	}
	if err := m.jj.At(ws).SetOrCreateBookmark(ctx, name, revset.WorkingCopyRev); err != nil {
		return "", err
	}
	return fmt.Sprintf("Created %s workspace (linked to %s)", m.opts.StateDir, m.main), nil
}

// link registers workspace name at ws and writes the git cross-reference.
func (m *Manager) link(ctx context.Context, name, ws string) error {
	if err := m.jj.WorkspaceAdd(ctx, name, ws); err != nil {
		return err
	}
	return WriteXref(ws, repo.StoreGitDir(m.main))
}

// WriteXref writes ws/.git pointing at gitDir.
func WriteXref(ws, gitDir string) error {
	if err := os.MkdirAll(ws, 0o755); err != nil {
		return fmt.Errorf("worktree.WriteXref: %w", err)
	}
	data := []byte("gitdir: " + gitDir + "\n")
	if err := os.WriteFile(filepath.Join(ws, XrefFile), data, 0o644); err != nil {
		return fmt.Errorf("worktree.WriteXref: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// List
// ---------------------------------------------------------------------------

// registered returns the linked workspace names known to jj.
func (m *Manager) registered(ctx context.Context) ([]string, error) {
	names, err := m.jj.Workspaces(ctx)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(names, func(n string) bool { return n == repo.DefaultWorkspace }), nil
}

// Records returns the reconciled state of every directory under the
// worktrees directory and every registered linked workspace, sorted by name.
func (m *Manager) Records(ctx context.Context) ([]Record, error) {
	seen := map[string]bool{}

	entries, err := os.ReadDir(filepath.Join(m.project, m.opts.WorktreesDir))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("worktree.Records: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			seen[e.Name()] = false
		}
	}

	registered, err := m.registered(ctx)
	if err != nil {
		return nil, err
	}
	for _, name := range registered {
		seen[name] = true
	}

	bookmarks, err := m.jj.Bookmarks(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(seen))
	for name, isRegistered := range seen {
		r := Record{Name: name, Git: StatusMissing, Workspace: StatusMissing, Bookmark: StatusMissing}
		if exists(m.worktreeDir(name)) {
			r.Git = StatusOK
		}
		if isRegistered {
			r.Workspace = StatusOrphaned
			if exists(m.workspaceDir(name)) {
				r.Workspace = StatusOK
			}
		}
		if slices.Contains(bookmarks, name) {
			r.Bookmark = StatusOK
		}
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	return records, nil
}

// List renders Records as an aligned table, or NoWorktrees.
func (m *Manager) List(ctx context.Context) (string, error) {
	records, err := m.Records(ctx)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return NoWorktrees, nil
	}
	table := uitable.New()
	table.Separator = "  "
	for _, r := range records {
		tags := r.Tags()
		table.AddRow(r.Name, tags[0], tags[1], tags[2])
	}
	return table.String(), nil
}

// ---------------------------------------------------------------------------
// Remove / Prune
// ---------------------------------------------------------------------------

// within reports whether path is dir or lies below it.
func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func resolved(path string) string {
	if p, err := filepath.EvalSymlinks(path); err == nil {
		return p
	}
	return filepath.Clean(path)
}

// Remove deletes the git worktree name, forgets its jj workspace and merges
// its final revision into the main workspace. Without force it refuses to
// discard uncommitted or unpushed changes in the git worktree.
func (m *Manager) Remove(ctx context.Context, name string, force bool) (string, error) {
	if name == repo.DefaultWorkspace {
		return "", apperr.New(apperr.ErrInvalidOperation, "Cannot remove default workspace")
	}
	if err := validName(name); err != nil {
		return "", err
	}
	dir := m.worktreeDir(name)
	if m.opts.Cwd != "" && within(resolved(m.opts.Cwd), resolved(dir)) {
		return "", apperr.New(apperr.ErrInvalidOperation, "Cannot remove current worktree '%s'", name).
			WithFix("cd %s && taskman wt-rm %s", m.project, name)
	}

	registered, err := m.registered(ctx)
	if err != nil {
		return "", err
	}
	isRegistered := slices.Contains(registered, name)
	dirExists := exists(dir)
	if !dirExists && !isRegistered {
		return fmt.Sprintf("Nothing to clean for '%s'", name), nil
	}

	var lines []string
	if dirExists {
		if isRegistered && exists(m.workspaceDir(name)) {
			// Snapshot pending edits so the merge below carries them.
			if _, err := m.jj.At(m.workspaceDir(name)).Status(ctx); err != nil {
				return "", err
			}
		}
		if !force {
			if err := m.checkClean(ctx, name, dir); err != nil {
				return "", err
			}
		}
		if err := m.git.WorktreeRemove(ctx, dir, true); err != nil {
			return "", err
		}
		lines = append(lines, "Removed git worktree "+m.rel(name))
	}

	merged, err := m.forgetAndMerge(ctx, name, isRegistered)
	if err != nil {
		return "", err
	}
	return strings.Join(append(lines, merged...), "\n"), nil
}

// checkClean fails with ErrDirtyWorktree when the git worktree at dir has
// changes outside the agent-state directory or commits ahead of upstream.
func (m *Manager) checkClean(ctx context.Context, name, dir string) error {
	changes, err := m.git.Changes(ctx, dir, m.opts.StateDir)
	if err != nil {
		return err
	}
	unpushed, err := m.git.Unpushed(ctx, dir)
	if err != nil {
		return err
	}
	if len(changes) == 0 && unpushed == 0 {
		return nil
	}
	var problems []string
	if len(changes) > 0 {
		problems = append(problems, fmt.Sprintf("%d uncommitted change(s)", len(changes)))
	}
	if unpushed > 0 {
		problems = append(problems, fmt.Sprintf("%d unpushed commit(s)", unpushed))
	}
	return apperr.New(apperr.ErrDirtyWorktree, "Worktree '%s' has %s", name, strings.Join(problems, " and ")).
		WithFix("Commit or push them first, or use force to remove anyway")
}

// forgetAndMerge pins the workspace's final revision with its bookmark,
// forgets the registration and merges the bookmark into the main workspace.
func (m *Manager) forgetAndMerge(ctx context.Context, name string, isRegistered bool) ([]string, error) {
	var lines []string
	if isRegistered {
		if err := m.jj.SetOrCreateBookmark(ctx, name, revset.WorkingCopy(name)); err != nil {
			return nil, err
		}
		if err := m.jj.WorkspaceForget(ctx, name); err != nil {
			return nil, err
		}
		lines = append(lines, fmt.Sprintf("Forgot jj workspace '%s'", name))
	}

	bookmarks, err := m.jj.Bookmarks(ctx)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(bookmarks, name) {
		return append(lines, fmt.Sprintf("No bookmark '%s' to merge", name)), nil
	}

	line, err := m.merge(ctx, name)
	if err != nil {
		return nil, err
	}
	return append(lines, line), nil
}

// merge merges bookmark name into @ of the main workspace. A conflicted
// merge is undone and the bookmark kept.
func (m *Manager) merge(ctx context.Context, name string) (string, error) {
	contained, err := m.jj.ChangeIDs(ctx, revset.Intersect(name, revset.Ancestors(revset.WorkingCopyRev)))
	if err != nil {
		return "", err
	}
	if len(contained) == 0 {
		op, err := m.jj.OperationID(ctx)
		if err != nil {
			return "", err
		}
		if err := m.jj.New(ctx, revset.WorkingCopyRev, name); err != nil {
			return "", err
		}
		conflicted, err := m.jj.Conflicted(ctx, revset.WorkingCopyRev)
		if err != nil {
			return "", err
		}
		if conflicted {
			if err := m.jj.OperationRestore(ctx, op); err != nil {
				return "", err
			}
			return fmt.Sprintf("Merge of '%s' conflicts; bookmark '%s' kept for manual merge (jj new @ %s)",
				name, name, name), nil
		}
	}
	if err := m.jj.BookmarkDelete(ctx, name); err != nil {
		return "", err
	}
	return fmt.Sprintf("Merged changes from '%s'", name), nil
}

// Prune forgets and merges every orphaned workspace and prunes git's
// bookkeeping of deleted worktrees.
func (m *Manager) Prune(ctx context.Context) (string, error) {
	records, err := m.Records(ctx)
	if err != nil {
		return "", err
	}
	if err := m.git.WorktreePrune(ctx); err != nil {
		return "", err
	}

	var lines []string
	for _, r := range records {
		if !r.Orphaned() {
			continue
		}
		out, err := m.forgetAndMerge(ctx, r.Name, true)
		if err != nil {
			return "", fmt.Errorf("worktree.Prune: %s: %w", r.Name, err)
		}
		lines = append(lines, fmt.Sprintf("%s (git:%s):", r.Name, r.Git))
		for _, l := range out {
			lines = append(lines, "  "+l)
		}
	}
	if len(lines) == 0 {
		return NoOrphans, nil
	}
	return strings.Join(lines, "\n"), nil
}
