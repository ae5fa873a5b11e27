// Package history queries the revision history of an agent-state repository.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-ports/taskman/internal/backend"
	"github.com/go-ports/taskman/internal/jj"
	"github.com/go-ports/taskman/internal/revset"
)

const (
	// NoRevisions is returned when a range selects nothing.
	NoRevisions = "No revisions found in range."
	// MissingFile stands in for content at revisions where the path is absent.
	MissingFile = "(file does not exist at this revision)"
	// DefaultSearchLimit bounds Search when no limit is given.
	DefaultSearchLimit = 20
)

// Engine runs history queries in one workspace.
type Engine struct {
	jj *jj.Client
}

// New returns an Engine driving client.
func New(client *jj.Client) *Engine {
	return &Engine{jj: client}
}

// ResolveRange returns the change ids between start and end, inclusive, in
// log order. A start that selects no revision, or does not resolve at all,
// leaves the range without a lower bound.
func (e *Engine) ResolveRange(ctx context.Context, start, end string) ([]string, error) {
	if end == "" {
		end = revset.WorkingCopyRev
	}
	rs := revset.Ancestors(end)
	if start != "" {
		ids, err := e.jj.ChangeIDs(ctx, start)
		switch {
		case err != nil:
			var cmdErr *backend.CommandError
			if !errors.As(err, &cmdErr) {
				return nil, err
			}
			slog.Warn("history: start revision did not resolve; range has no lower bound",
				"start", start, "end", end, "exit", cmdErr.ExitCode)
		case len(ids) > 0:
			rs = revset.Range(start, end)
		}
	}
	return e.jj.ChangeIDs(ctx, rs)
}

// Diffs returns the diff of file at each revision in the range, each under a
// "=== <rev> ===" header.
func (e *Engine) Diffs(ctx context.Context, file, start, end string) (string, error) {
	return e.collect(ctx, start, end, func(rev string) (string, error) {
		return e.jj.Diff(ctx, rev, file)
	})
}

// Batch returns the content of file at each revision in the range, each
// under a "=== <rev> ===" header. Revisions where file does not exist get a
// placeholder line.
func (e *Engine) Batch(ctx context.Context, file, start, end string) (string, error) {
	return e.collect(ctx, start, end, func(rev string) (string, error) {
		out, err := e.jj.FileShow(ctx, rev, file)
		if backend.ReasonOf(err) == backend.ReasonNoSuchPath {
			return MissingFile, nil
		}
		return out, err
	})
}

func (e *Engine) collect(ctx context.Context, start, end string, section func(rev string) (string, error)) (string, error) {
	revs, err := e.ResolveRange(ctx, start, end)
	if err != nil {
		return "", err
	}
	if len(revs) == 0 {
		return NoRevisions, nil
	}

	sections := make([]string, 0, 2*len(revs))
	for _, rev := range revs {
		body, err := section(rev)
		if err != nil {
			return "", fmt.Errorf("history: revision %s: %w", rev, err)
		}
		sections = append(sections, "=== "+rev+" ===", strings.TrimRight(body, " \t\r\n"))
	}
	return strings.TrimRight(strings.Join(sections, "\n"), " \t\r\n"), nil
}

// Search returns jj's log of the revisions whose diffs match pattern,
// optionally only within file, newest first and at most limit entries.
// pattern is passed to diff_contains unchanged, so jj's exact:, glob:,
// regex: and substring: prefixes apply.
func (e *Engine) Search(ctx context.Context, pattern, file string, limit int) (string, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	out, err := e.jj.Log(ctx, revset.DiffContains(pattern, file), limit)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, " \t\r\n"), nil
}
