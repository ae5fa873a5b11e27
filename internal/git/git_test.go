package git_test

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/taskman/internal/backend"
	"github.com/go-ports/taskman/internal/backend/backendtest"
	"github.com/go-ports/taskman/internal/git"
)

func TestWorktreeAdd_HappyPath(t *testing.T) {
	c := qt.New(t)

	cases := []struct {
		name      string
		newBranch bool
		want      string
	}{
		{"existing branch", false, "worktree add /p/worktrees/w1 w1"},
		{"new branch", true, "worktree add -b w1 /p/worktrees/w1"},
	}

	for _, tc := range cases {
		c.Run(tc.name, func(c *qt.C) {
			fake := backendtest.New("git")
			err := git.New(fake, "/p").WorktreeAdd(context.Background(), "/p/worktrees/w1", "w1", tc.newBranch)
			c.Assert(err, qt.IsNil)
			c.Assert(fake.Commands(), qt.DeepEquals, []string{tc.want})
			c.Assert(fake.Calls()[0].Dir, qt.Equals, "/p")
		})
	}
}

func TestWorktreeRemove_HappyPath(t *testing.T) {
	c := qt.New(t)

	fake := backendtest.New("git")
	client := git.New(fake, "/p")
	c.Assert(client.WorktreeRemove(context.Background(), "/p/worktrees/w1", false), qt.IsNil)
	c.Assert(client.WorktreeRemove(context.Background(), "/p/worktrees/w1", true), qt.IsNil)
	c.Assert(fake.Commands(), qt.DeepEquals, []string{
		"worktree remove /p/worktrees/w1",
		"worktree remove --force /p/worktrees/w1",
	})
}

func TestChanges_HappyPath(t *testing.T) {
	c := qt.New(t)

	fake := backendtest.New("git").OnOutput("status --porcelain",
		"?? new-file.txt\n M README.md\n?? .agent-files/\n?? .agent-files-old/x\n")
	changes, err := git.New(fake, "/p").Changes(context.Background(), "/p/worktrees/w1", ".agent-files")
	c.Assert(err, qt.IsNil)
	c.Assert(changes, qt.DeepEquals, []string{"?? new-file.txt", " M README.md", "?? .agent-files-old/x"})
	c.Assert(fake.Calls()[0].Dir, qt.Equals, "/p/worktrees/w1")
}

func TestUnpushed_HappyPath(t *testing.T) {
	c := qt.New(t)

	c.Run("commits ahead of upstream", func(c *qt.C) {
		fake := backendtest.New("git").OnOutput("rev-list", "2\n")
		n, err := git.New(fake, "/p").Unpushed(context.Background(), "/p/worktrees/w1")
		c.Assert(err, qt.IsNil)
		c.Assert(n, qt.Equals, 2)
	})

	c.Run("no upstream counts commits no remote or other branch has", func(c *qt.C) {
		fake := backendtest.New("git").
			On("rev-list --count @{upstream}..HEAD", backend.Result{ExitCode: 128, Stderr: "fatal: no upstream configured for branch 'feat'"}).
			OnOutput("rev-parse --symbolic-full-name HEAD", "refs/heads/feat\n").
			OnOutput("rev-list --count HEAD --not", "3\n")
		n, err := git.New(fake, "/p").Unpushed(context.Background(), "/p/worktrees/feat")
		c.Assert(err, qt.IsNil)
		c.Assert(n, qt.Equals, 3)
		c.Assert(fake.Commands(), qt.DeepEquals, []string{
			"rev-list --count @{upstream}..HEAD",
			"rev-parse --symbolic-full-name HEAD",
			"rev-list --count HEAD --not --exclude=refs/heads/feat --branches --remotes",
		})
	})

	c.Run("detached HEAD excludes no branch", func(c *qt.C) {
		fake := backendtest.New("git").
			OnFail("rev-list --count @{upstream}", "fatal: HEAD does not point to a branch").
			OnOutput("rev-parse", "HEAD\n").
			OnOutput("rev-list --count HEAD", "0\n")
		n, err := git.New(fake, "/p").Unpushed(context.Background(), "/p/worktrees/feat")
		c.Assert(err, qt.IsNil)
		c.Assert(n, qt.Equals, 0)
		c.Assert(fake.Commands()[2], qt.Equals, "rev-list --count HEAD --not --branches --remotes")
	})
}

func TestUnpushed_FailurePath(t *testing.T) {
	c := qt.New(t)

	c.Run("fallback count fails", func(c *qt.C) {
		fake := backendtest.New("git").
			OnFail("rev-list", "fatal: bad revision 'HEAD'")
		_, err := git.New(fake, "/p").Unpushed(context.Background(), "/p/worktrees/feat")
		c.Assert(err, qt.ErrorMatches, `(?s).*bad revision.*`)
	})

	c.Run("garbled count", func(c *qt.C) {
		fake := backendtest.New("git").OnOutput("rev-list", "lots\n")
		_, err := git.New(fake, "/p").Unpushed(context.Background(), "/p/worktrees/feat")
		c.Assert(err, qt.ErrorMatches, `git: unexpected rev-list output .*`)
	})
}
