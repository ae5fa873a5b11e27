package backend_test

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/taskman/internal/backend"
)

func requireSh(c *qt.C) {
	if _, err := exec.LookPath("sh"); err != nil {
		c.Skip("sh not available")
	}
}

// ---------------------------------------------------------------------------
// Exec
// ---------------------------------------------------------------------------

func TestExecRun_HappyPath(t *testing.T) {
	c := qt.New(t)
	requireSh(c)

	r := backend.NewExec("sh", nil)
	dir := t.TempDir()

	c.Run("zero exit captures stdout and stderr", func(c *qt.C) {
		res, err := r.Run(context.Background(), dir, "-c", "echo out; echo err >&2")
		c.Assert(err, qt.IsNil)
		c.Assert(res.ExitCode, qt.Equals, 0)
		c.Assert(res.Stdout, qt.Equals, "out\n")
		c.Assert(res.Stderr, qt.Equals, "err\n")
	})

	c.Run("non-zero exit is reported without error", func(c *qt.C) {
		res, err := r.Run(context.Background(), dir, "-c", "exit 3")
		c.Assert(err, qt.IsNil)
		c.Assert(res.ExitCode, qt.Equals, 3)
	})

	c.Run("runs in the requested directory", func(c *qt.C) {
		res, err := r.Run(context.Background(), dir, "-c", "pwd -P")
		c.Assert(err, qt.IsNil)
		c.Assert(res.Stdout, qt.Not(qt.Equals), "")
	})
}

func TestExecRunChecked_FailurePath(t *testing.T) {
	c := qt.New(t)
	requireSh(c)

	r := backend.NewExec("sh", nil)

	c.Run("non-zero exit yields CommandError", func(c *qt.C) {
		_, err := r.RunChecked(context.Background(), t.TempDir(), "-c", "echo 'Error: No such path: a.md' >&2; exit 1")
		c.Assert(err, qt.IsNotNil)

		var ce *backend.CommandError
		c.Assert(errors.As(err, &ce), qt.IsTrue)
		c.Assert(ce.ExitCode, qt.Equals, 1)
		c.Assert(ce.Args[0], qt.Equals, "sh")
		c.Assert(ce.Reason, qt.Equals, backend.ReasonNoSuchPath)
		c.Assert(err.Error(), qt.Contains, "No such path: a.md")
		c.Assert(err.Error(), qt.Contains, "command failed (1)")
	})

	c.Run("missing program is an error, not an exit code", func(c *qt.C) {
		missing := backend.NewExec("taskman-no-such-program", nil)
		_, err := missing.Run(context.Background(), t.TempDir(), "status")
		c.Assert(err, qt.IsNotNil)

		var ce *backend.CommandError
		c.Assert(errors.As(err, &ce), qt.IsFalse)
	})
}

// ---------------------------------------------------------------------------
// Classify
// ---------------------------------------------------------------------------

func TestClassify_HappyPath(t *testing.T) {
	c := qt.New(t)

	cases := []struct {
		name   string
		output string
		want   backend.Reason
	}{
		{"no such path", "Error: No such path: STATUS.md", backend.ReasonNoSuchPath},
		{"no such bookmark", "Error: No such bookmark: w1", backend.ReasonNoSuchBookmark},
		{"missing author", "Error: Won't push commit abc since it has no author and/or committer set", backend.ReasonNoAuthor},
		{"missing committer", "commit has no committer", backend.ReasonNoAuthor},
		{"rejected push", "! [rejected] main -> main (fetch first)", backend.ReasonRejected},
		{"non-fast-forward", "Error: failed to push: non-fast-forward", backend.ReasonRejected},
		{"unrelated error", "Error: The working copy is stale", backend.ReasonUnknown},
		{"empty output", "", backend.ReasonUnknown},
	}

	for _, tc := range cases {
		c.Run(tc.name, func(c *qt.C) {
			c.Assert(backend.Classify(tc.output), qt.Equals, tc.want)
		})
	}
}

func TestReasonOf_HappyPath(t *testing.T) {
	c := qt.New(t)

	_, err := backend.Check("jj", []string{"git", "push"}, backend.Result{ExitCode: 1, Stderr: "rejected"})
	c.Assert(backend.ReasonOf(err), qt.Equals, backend.ReasonRejected)
	c.Assert(backend.ReasonOf(errors.New("plain")), qt.Equals, backend.ReasonUnknown)
	c.Assert(backend.ReasonOf(nil), qt.Equals, backend.ReasonUnknown)

	res, err := backend.Check("jj", []string{"status"}, backend.Result{Stdout: "ok"})
	c.Assert(err, qt.IsNil)
	c.Assert(res.Stdout, qt.Equals, "ok")
}
