package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/taskman/internal/apperr"
	"github.com/go-ports/taskman/internal/backend/backendtest"
	"github.com/go-ports/taskman/internal/config"
	"github.com/go-ports/taskman/internal/service"
)

// layout creates a project with a main repository and a linked workspace w1.
func layout(c *qt.C) (project, main, linked string) {
	project = c.TempDir()
	main = filepath.Join(project, ".agent-files")
	c.Assert(os.MkdirAll(filepath.Join(main, ".jj", "repo", "store"), 0o755), qt.IsNil)

	linked = filepath.Join(project, "worktrees", "w1", ".agent-files")
	c.Assert(os.MkdirAll(filepath.Join(linked, ".jj"), 0o755), qt.IsNil)
	pointer := filepath.Join(main, ".jj", "repo")
	c.Assert(os.WriteFile(filepath.Join(linked, ".jj", "repo"), []byte(pointer), 0o644), qt.IsNil)
	return project, main, linked
}

func newService(dir string) (*service.Service, *backendtest.Fake, *backendtest.Fake) {
	jjFake := backendtest.New("jj").OnOutput("log --no-graph -r @ -T change_id.short()", "kxyz\n")
	gitFake := backendtest.New("git")
	return service.NewWithRunners(config.Default(), dir, jjFake, gitFake), jjFake, gitFake
}

// ---------------------------------------------------------------------------
// Checkpoints
// ---------------------------------------------------------------------------

func TestDescribe_HappyPath(t *testing.T) {
	c := qt.New(t)

	c.Run("main workspace from a nested directory", func(c *qt.C) {
		project, main, _ := layout(c)
		nested := filepath.Join(project, "src", "pkg")
		c.Assert(os.MkdirAll(nested, 0o755), qt.IsNil)

		svc, jjFake, _ := newService(nested)
		got, err := svc.Describe(context.Background(), "progress")
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.Equals, "checkpoint kxyz: progress")
		c.Assert(jjFake.Calls()[0].Dir, qt.Equals, main)
		c.Assert(jjFake.Called("bookmark"), qt.IsFalse)
	})

	c.Run("linked workspace advances its own bookmark", func(c *qt.C) {
		_, _, linked := layout(c)

		svc, jjFake, _ := newService(linked)
		_, err := svc.Describe(context.Background(), "progress")
		c.Assert(err, qt.IsNil)
		c.Assert(jjFake.Calls()[0].Dir, qt.Equals, linked)
		c.Assert(jjFake.Called("bookmark set w1 -r @"), qt.IsTrue)
	})
}

func TestDescribe_FailurePath(t *testing.T) {
	c := qt.New(t)

	cfg := config.Default()
	cfg.Repository.StateDir = ".taskman-service-test-missing"
	svc := service.NewWithRunners(cfg, t.TempDir(), backendtest.New("jj"), backendtest.New("git"))

	_, err := svc.Describe(context.Background(), "x")
	c.Assert(errors.Is(err, apperr.ErrNotFound), qt.IsTrue)
}

func TestSync_HappyPath(t *testing.T) {
	c := qt.New(t)

	_, _, linked := layout(c)
	svc, jjFake, _ := newService(linked)

	report, err := svc.Sync(context.Background(), "publish")
	c.Assert(err, qt.IsNil)
	c.Assert(report.String(), qt.Contains, "git push: ok")
	c.Assert(jjFake.Called("bookmark set w1 -r @"), qt.IsTrue)
	c.Assert(jjFake.Called("bookmark set main"), qt.IsFalse)
}

// ---------------------------------------------------------------------------
// History
// ---------------------------------------------------------------------------

func TestHistorySearch_DefaultLimit(t *testing.T) {
	c := qt.New(t)

	project, _, _ := layout(c)
	cfg := config.Default()
	cfg.History.SearchLimit = 7
	jjFake := backendtest.New("jj")
	svc := service.NewWithRunners(cfg, project, jjFake, backendtest.New("git"))

	_, err := svc.HistorySearch(context.Background(), "TODO", "", 0)
	c.Assert(err, qt.IsNil)
	c.Assert(jjFake.Commands(), qt.DeepEquals, []string{`log -r diff_contains("TODO") --limit 7`})

	_, err = svc.HistorySearch(context.Background(), "TODO", "STATUS.md", 3)
	c.Assert(err, qt.IsNil)
	c.Assert(jjFake.Called(`log -r diff_contains("TODO", "STATUS.md") --limit 3`), qt.IsTrue)
}

// ---------------------------------------------------------------------------
// Worktrees
// ---------------------------------------------------------------------------

func TestWorktree_ResolvesMainFromLinkedWorkspace(t *testing.T) {
	c := qt.New(t)

	_, main, linked := layout(c)
	svc, jjFake, _ := newService(linked)
	jjFake.OnOutput("workspace list", "default: a\nw1: b\n").
		OnOutput("bookmark list", "w1: kkkk 1234 x\n")

	records, err := svc.WorktreeRecords(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(records, qt.HasLen, 1)
	c.Assert(records[0].Name, qt.Equals, "w1")
	c.Assert(records[0].Tags(), qt.DeepEquals, []string{"git:ok", "jj-ws:ok", "bookmark:ok"})
	for _, call := range jjFake.Calls() {
		c.Assert(call.Dir, qt.Equals, main)
	}
}

func TestWorktree_Dispatch(t *testing.T) {
	c := qt.New(t)

	c.Run("name creates", func(c *qt.C) {
		project, _, _ := layout(c)
		svc, _, gitFake := newService(project)
		got, err := svc.Worktree(context.Background(), "w2", true)
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.Contains, "worktrees/w2/")
		c.Assert(gitFake.Called("worktree add -b w2"), qt.IsTrue)
	})

	c.Run("no name recovers", func(c *qt.C) {
		project, _, _ := layout(c)
		wt := filepath.Join(project, "worktrees", "w3")
		c.Assert(os.MkdirAll(wt, 0o755), qt.IsNil)
		svc, jjFake, _ := newService(wt)
		got, err := svc.Worktree(context.Background(), "", false)
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.Contains, "linked to")
		c.Assert(jjFake.Called("workspace add --name w3"), qt.IsTrue)
	})
}

func TestWorktreeRemove_FailurePath(t *testing.T) {
	c := qt.New(t)

	project, _, _ := layout(c)
	svc, _, _ := newService(project)
	_, err := svc.WorktreeRemove(context.Background(), "default", false)
	c.Assert(errors.Is(err, apperr.ErrInvalidOperation), qt.IsTrue)
}

func TestInit_HappyPath(t *testing.T) {
	c := qt.New(t)

	project := t.TempDir()
	svc, jjFake, _ := newService(project)
	got, err := svc.Init(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, "Initialized .agent-files")
	c.Assert(jjFake.Calls()[0].Args, qt.DeepEquals, []string{"git", "init", filepath.Join(project, ".agent-files")})
}
