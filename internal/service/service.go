// Package service implements the taskman orchestrator. Every operation
// resolves the repository it acts on from the start directory, then hands
// the explicit roots to the checkpoint, history and worktree engines.
package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-ports/taskman/internal/backend"
	"github.com/go-ports/taskman/internal/checkpoint"
	"github.com/go-ports/taskman/internal/config"
	"github.com/go-ports/taskman/internal/git"
	"github.com/go-ports/taskman/internal/history"
	"github.com/go-ports/taskman/internal/jj"
	"github.com/go-ports/taskman/internal/repo"
	"github.com/go-ports/taskman/internal/worktree"
)

// Service orchestrates all taskman operations.
type Service struct {
	Config *config.Config
	// Dir is where repository discovery starts. Empty means the process
	// working directory, read at call time.
	Dir string

	jj  backend.Runner
	git backend.Runner
}

// New returns a Service running the backends named in cfg.
func New(cfg *config.Config, dir string) *Service {
	return NewWithRunners(cfg, dir,
		backend.NewExec(cfg.Backend.JJ, nil),
		backend.NewExec(cfg.Backend.Git, nil),
	)
}

// NewWithRunners returns a Service using the given runners for jj and git.
func NewWithRunners(cfg *config.Config, dir string, jjRunner, gitRunner backend.Runner) *Service {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Service{Config: cfg, Dir: dir, jj: jjRunner, git: gitRunner}
}

// ---------------------------------------------------------------------------
// Resolution helpers
// ---------------------------------------------------------------------------

func (s *Service) cwd() (string, error) {
	if s.Dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("service: working directory: %w", err)
		}
		return wd, nil
	}
	abs, err := filepath.Abs(s.Dir)
	if err != nil {
		return "", fmt.Errorf("service: resolve %s: %w", s.Dir, err)
	}
	return abs, nil
}

// workspace returns a jj client rooted at the nearest agent-state directory.
func (s *Service) workspace() (*jj.Client, error) {
	cwd, err := s.cwd()
	if err != nil {
		return nil, err
	}
	dir, err := repo.FindWorkspace(cwd, s.Config.Repository.StateDir)
	if err != nil {
		return nil, err
	}
	return jj.New(s.jj, dir), nil
}

func (s *Service) checkpoints() (*checkpoint.Engine, error) {
	client, err := s.workspace()
	if err != nil {
		return nil, err
	}
	linked := !repo.IsMainWorkspace(client.Dir())
	bookmark := s.Config.Repository.Branch
	if linked {
		bookmark = repo.WorkspaceName(client.Dir())
	}
	return checkpoint.New(client, checkpoint.Options{
		Bookmark: bookmark,
		Branch:   s.Config.Repository.Branch,
		Remote:   s.Config.Repository.Remote,
		Linked:   linked,
	}), nil
}

func (s *Service) history() (*history.Engine, error) {
	client, err := s.workspace()
	if err != nil {
		return nil, err
	}
	return history.New(client), nil
}

func (s *Service) worktrees() (*worktree.Manager, error) {
	cwd, err := s.cwd()
	if err != nil {
		return nil, err
	}
	main, err := repo.FindMainRepository(cwd, s.Config.Repository.StateDir)
	if err != nil {
		return nil, err
	}
	return worktree.New(jj.New(s.jj, main), git.New(s.git, filepath.Dir(main)), worktree.Options{
		StateDir:     s.Config.Repository.StateDir,
		WorktreesDir: s.Config.Repository.WorktreesDir,
		Cwd:          cwd,
	}), nil
}

// ---------------------------------------------------------------------------
// Repository
// ---------------------------------------------------------------------------

// Init creates the agent-state repository in the start directory.
func (s *Service) Init(ctx context.Context) (string, error) {
	project, err := s.cwd()
	if err != nil {
		return "", err
	}
	return repo.Init(ctx, jj.New(s.jj, project), project, repo.InitOptions{
		StateDir:    s.Config.Repository.StateDir,
		Branch:      s.Config.Repository.Branch,
		AuthorName:  s.Config.Author.Name,
		AuthorEmail: s.Config.Author.Email,
	})
}

// ---------------------------------------------------------------------------
// Checkpoints
// ---------------------------------------------------------------------------

// Describe checkpoints the current workspace.
func (s *Service) Describe(ctx context.Context, reason string) (string, error) {
	e, err := s.checkpoints()
	if err != nil {
		return "", err
	}
	return e.Describe(ctx, reason)
}

// Sync checkpoints the current workspace and publishes it.
func (s *Service) Sync(ctx context.Context, reason string) (*checkpoint.SyncReport, error) {
	e, err := s.checkpoints()
	if err != nil {
		return nil, err
	}
	return e.Sync(ctx, reason)
}

// ---------------------------------------------------------------------------
// History
// ---------------------------------------------------------------------------

// HistoryDiffs returns the diffs of file across start::end.
func (s *Service) HistoryDiffs(ctx context.Context, file, start, end string) (string, error) {
	e, err := s.history()
	if err != nil {
		return "", err
	}
	return e.Diffs(ctx, file, start, end)
}

// HistoryBatch returns the content of file at every revision in start::end.
func (s *Service) HistoryBatch(ctx context.Context, file, start, end string) (string, error) {
	e, err := s.history()
	if err != nil {
		return "", err
	}
	return e.Batch(ctx, file, start, end)
}

// HistorySearch returns the revisions whose diffs match pattern. A limit of
// zero uses the configured default.
func (s *Service) HistorySearch(ctx context.Context, pattern, file string, limit int) (string, error) {
	e, err := s.history()
	if err != nil {
		return "", err
	}
	if limit <= 0 {
		limit = s.Config.History.SearchLimit
	}
	return e.Search(ctx, pattern, file, limit)
}

// ---------------------------------------------------------------------------
// Worktrees
// ---------------------------------------------------------------------------

// Worktree creates linked worktree name, or with an empty name re-links the
// current directory's workspace.
func (s *Service) Worktree(ctx context.Context, name string, newBranch bool) (string, error) {
	m, err := s.worktrees()
	if err != nil {
		return "", err
	}
	if name == "" {
		return m.Recover(ctx)
	}
	return m.Create(ctx, name, newBranch)
}

// WorktreeList renders the reconciled worktree records.
func (s *Service) WorktreeList(ctx context.Context) (string, error) {
	m, err := s.worktrees()
	if err != nil {
		return "", err
	}
	return m.List(ctx)
}

// WorktreeRecords returns the reconciled worktree records.
func (s *Service) WorktreeRecords(ctx context.Context) ([]worktree.Record, error) {
	m, err := s.worktrees()
	if err != nil {
		return nil, err
	}
	return m.Records(ctx)
}

// WorktreeRemove removes linked worktree name.
func (s *Service) WorktreeRemove(ctx context.Context, name string, force bool) (string, error) {
	m, err := s.worktrees()
	if err != nil {
		return "", err
	}
	return m.Remove(ctx, name, force)
}

// WorktreePrune cleans up orphaned workspaces.
func (s *Service) WorktreePrune(ctx context.Context) (string, error) {
	m, err := s.worktrees()
	if err != nil {
		return "", err
	}
	return m.Prune(ctx)
}
