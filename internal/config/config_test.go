package config_test

import (
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/taskman/internal/config"
)

func TestDefault_HappyPath(t *testing.T) {
	c := qt.New(t)
	cfg := config.Default()
	c.Assert(cfg, qt.IsNotNil)
	c.Assert(cfg.Backend.JJ, qt.Equals, "jj")
	c.Assert(cfg.Backend.Git, qt.Equals, "git")
	c.Assert(cfg.Repository.StateDir, qt.Equals, ".agent-files")
	c.Assert(cfg.Repository.WorktreesDir, qt.Equals, "worktrees")
	c.Assert(cfg.Repository.Remote, qt.Equals, "origin")
	c.Assert(cfg.Repository.Branch, qt.Equals, "main")
	c.Assert(cfg.Author.Name, qt.Equals, "Agent")
	c.Assert(cfg.Author.Email, qt.Equals, "agent@localhost")
	c.Assert(cfg.History.SearchLimit, qt.Equals, 20)
}

func TestLoad_HappyPath(t *testing.T) {
	c := qt.New(t)
	t.Setenv("TASKMAN_JJ", "")
	t.Setenv("TASKMAN_GIT", "")

	c.Run("non-existent file returns defaults without error", func(c *qt.C) {
		cfg, err := config.Load("/nonexistent/config.yaml")
		c.Assert(err, qt.IsNil)
		c.Assert(cfg, qt.DeepEquals, config.Default())
	})

	tests := []struct {
		name       string
		yaml       string
		wantJJ     string
		wantState  string
		wantBranch string
		wantAuthor string
		wantLimit  int
	}{
		{
			name:       "backend override",
			yaml:       "backend:\n  jj: /opt/jj/bin/jj\n",
			wantJJ:     "/opt/jj/bin/jj",
			wantState:  ".agent-files",
			wantBranch: "main",
			wantAuthor: "Agent",
			wantLimit:  20,
		},
		{
			name:       "repository layout override",
			yaml:       "repository:\n  state_dir: .notes\n  branch: trunk\n",
			wantJJ:     "jj",
			wantState:  ".notes",
			wantBranch: "trunk",
			wantAuthor: "Agent",
			wantLimit:  20,
		},
		{
			name:       "author and history override",
			yaml:       "author:\n  name: Bot\nhistory:\n  search_limit: 5\n",
			wantJJ:     "jj",
			wantState:  ".agent-files",
			wantBranch: "main",
			wantAuthor: "Bot",
			wantLimit:  5,
		},
		{
			name:       "empty and non-positive values keep defaults",
			yaml:       "repository:\n  state_dir: \"\"\nhistory:\n  search_limit: 0\n",
			wantJJ:     "jj",
			wantState:  ".agent-files",
			wantBranch: "main",
			wantAuthor: "Agent",
			wantLimit:  20,
		},
	}

	for _, tt := range tests {
		c.Run(tt.name, func(c *qt.C) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			err := os.WriteFile(path, []byte(tt.yaml), 0o600)
			c.Assert(err, qt.IsNil)

			cfg, err := config.Load(path)
			c.Assert(err, qt.IsNil)
			c.Assert(cfg.Backend.JJ, qt.Equals, tt.wantJJ)
			c.Assert(cfg.Repository.StateDir, qt.Equals, tt.wantState)
			c.Assert(cfg.Repository.Branch, qt.Equals, tt.wantBranch)
			c.Assert(cfg.Author.Name, qt.Equals, tt.wantAuthor)
			c.Assert(cfg.History.SearchLimit, qt.Equals, tt.wantLimit)
		})
	}
}

func TestLoad_FailurePath(t *testing.T) {
	c := qt.New(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(path, []byte("backend: [not, a, map\n"), 0o600)
	c.Assert(err, qt.IsNil)

	_, err = config.Load(path)
	c.Assert(err, qt.IsNotNil)
}

func TestLoad_EnvOverride(t *testing.T) {
	c := qt.New(t)
	t.Setenv("TASKMAN_JJ", "/usr/local/bin/jj")
	t.Setenv("TASKMAN_GIT", "/usr/local/bin/git")

	cfg, err := config.Load("/nonexistent/config.yaml")
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Backend.JJ, qt.Equals, "/usr/local/bin/jj")
	c.Assert(cfg.Backend.Git, qt.Equals, "/usr/local/bin/git")
}

func TestResolvePath_HappyPath(t *testing.T) {
	c := qt.New(t)

	tmp := t.TempDir()

	c.Run("flag wins", func(c *qt.C) {
		c.Setenv("TASKMAN_CONFIG", filepath.Join(tmp, "env.yaml"))
		path, source := config.ResolvePath(filepath.Join(tmp, "flag.yaml"))
		c.Assert(source, qt.Equals, "flag")
		c.Assert(path, qt.Equals, filepath.Join(tmp, "flag.yaml"))
	})

	c.Run("env when no flag", func(c *qt.C) {
		c.Setenv("TASKMAN_CONFIG", filepath.Join(tmp, "env.yaml"))
		path, source := config.ResolvePath("")
		c.Assert(source, qt.Equals, "env")
		c.Assert(path, qt.Equals, filepath.Join(tmp, "env.yaml"))
	})

	c.Run("default under the home directory", func(c *qt.C) {
		c.Setenv("TASKMAN_CONFIG", "")
		c.Setenv("HOME", tmp)
		path, source := config.ResolvePath("")
		c.Assert(source, qt.Equals, "default")
		c.Assert(path, qt.Equals, filepath.Join(tmp, ".config", "taskman", "config.yaml"))
	})
}
