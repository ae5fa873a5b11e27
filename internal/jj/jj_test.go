package jj_test

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/taskman/internal/backend"
	"github.com/go-ports/taskman/internal/backend/backendtest"
	"github.com/go-ports/taskman/internal/jj"
)

func TestChangeIDs_HappyPath(t *testing.T) {
	c := qt.New(t)

	fake := backendtest.New("jj").OnOutput("log --no-graph -r ::@", "abc\n\n def \nghi\n")
	ids, err := jj.New(fake, "/repo").ChangeIDs(context.Background(), "::@")
	c.Assert(err, qt.IsNil)
	c.Assert(ids, qt.DeepEquals, []string{"abc", "def", "ghi"})

	calls := fake.Calls()
	c.Assert(calls, qt.HasLen, 1)
	c.Assert(calls[0].Dir, qt.Equals, "/repo")
	c.Assert(calls[0].Args, qt.DeepEquals, []string{"log", "--no-graph", "-r", "::@", "-T", `change_id.short() ++ "\n"`})
}

func TestExists_HappyPath(t *testing.T) {
	c := qt.New(t)

	fake := backendtest.New("jj").
		OnFail("log --no-graph -r main@origin", "Error: Revision `main@origin` doesn't exist").
		OnOutput("log --no-graph -r @", "0123abcd")
	client := jj.New(fake, "/repo")

	ok, err := client.Exists(context.Background(), "main@origin")
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsFalse)

	ok, err = client.Exists(context.Background(), "@")
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)
}

func TestSetOrCreateBookmark_HappyPath(t *testing.T) {
	c := qt.New(t)

	c.Run("existing bookmark is moved", func(c *qt.C) {
		fake := backendtest.New("jj")
		err := jj.New(fake, "/repo").SetOrCreateBookmark(context.Background(), "w1", "@")
		c.Assert(err, qt.IsNil)
		c.Assert(fake.Commands(), qt.DeepEquals, []string{"bookmark set w1 -r @"})
	})

	c.Run("missing bookmark falls back to create", func(c *qt.C) {
		fake := backendtest.New("jj").OnFail("bookmark set", "Error: No such bookmark: w1")
		err := jj.New(fake, "/repo").SetOrCreateBookmark(context.Background(), "w1", "@")
		c.Assert(err, qt.IsNil)
		c.Assert(fake.Commands(), qt.DeepEquals, []string{"bookmark set w1 -r @", "bookmark create w1 -r @"})
	})
}

func TestSetOrCreateBookmark_FailurePath(t *testing.T) {
	c := qt.New(t)

	fake := backendtest.New("jj").OnFail("bookmark set", "Error: Concurrent modification detected")
	err := jj.New(fake, "/repo").SetOrCreateBookmark(context.Background(), "w1", "@")
	c.Assert(err, qt.IsNotNil)
	c.Assert(backend.ReasonOf(err), qt.Equals, backend.ReasonUnknown)
	c.Assert(fake.Called("bookmark create"), qt.IsFalse)
}

func TestLogAndPush_HappyPath(t *testing.T) {
	c := qt.New(t)

	fake := backendtest.New("jj")
	client := jj.New(fake, "/repo")
	ctx := context.Background()

	_, err := client.Log(ctx, `diff_contains("TODO")`, 20)
	c.Assert(err, qt.IsNil)
	c.Assert(client.GitPush(ctx, true), qt.IsNil)
	c.Assert(client.GitPush(ctx, false), qt.IsNil)
	c.Assert(client.New(ctx, "@", "w1"), qt.IsNil)

	c.Assert(fake.Commands(), qt.DeepEquals, []string{
		`log -r diff_contains("TODO") --limit 20`,
		"git push --all",
		"git push",
		"new @ w1",
	})
}

func TestAt_HappyPath(t *testing.T) {
	c := qt.New(t)

	fake := backendtest.New("jj")
	client := jj.New(fake, "/main").At("/wt")
	_, err := client.Status(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(client.Dir(), qt.Equals, "/wt")
	c.Assert(fake.Calls()[0].Dir, qt.Equals, "/wt")
}
