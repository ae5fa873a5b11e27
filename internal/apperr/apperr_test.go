package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/taskman/internal/apperr"
)

func TestError_HappyPath(t *testing.T) {
	c := qt.New(t)

	c.Run("message without fix", func(c *qt.C) {
		err := apperr.New(apperr.ErrAlreadyExists, "worktrees/%s already exists", "w1")
		c.Assert(err.Error(), qt.Equals, "worktrees/w1 already exists")
		c.Assert(errors.Is(err, apperr.ErrAlreadyExists), qt.IsTrue)
		c.Assert(errors.Is(err, apperr.ErrNotFound), qt.IsFalse)
	})

	c.Run("fix is appended on its own line", func(c *qt.C) {
		err := apperr.New(apperr.ErrInvalidOperation, "Cannot remove current worktree").WithFix("Run: cd %s", "/p")
		c.Assert(err.Error(), qt.Equals, "Cannot remove current worktree\nRun: cd /p")
	})

	c.Run("kind survives wrapping", func(c *qt.C) {
		err := fmt.Errorf("service.Remove: %w", apperr.New(apperr.ErrDirtyWorktree, "dirty"))
		c.Assert(errors.Is(err, apperr.ErrDirtyWorktree), qt.IsTrue)

		var ae *apperr.Error
		c.Assert(errors.As(err, &ae), qt.IsTrue)
		c.Assert(ae.Msg, qt.Equals, "dirty")
	})
}
