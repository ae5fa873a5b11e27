// Package checkpoint turns working-copy edits into described revisions and
// publishes them to the shared branch.
package checkpoint

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-ports/taskman/internal/backend"
	"github.com/go-ports/taskman/internal/jj"
	"github.com/go-ports/taskman/internal/revset"
)

// State is the terminal state a sync ended in.
type State int

const (
	// StateAborted means conflicts were found after the rebase; nothing was
	// advanced or pushed.
	StateAborted State = iota
	// StatePushFailed means the push was attempted and refused.
	StatePushFailed
	// StatePushOk means the revision was published and a new working copy started.
	StatePushOk
)

func (s State) String() string {
	switch s {
	case StateAborted:
		return "aborted"
	case StatePushFailed:
		return "push-failed"
	case StatePushOk:
		return "push-ok"
	}
	return "unknown"
}

// SyncReport is the ordered list of step outcomes of one sync.
type SyncReport struct {
	State State
	Rev   string
	// Lines are the human-readable step outcomes in execution order.
	Lines []string
}

// String joins the report lines.
func (r *SyncReport) String() string {
	return strings.Join(r.Lines, "\n")
}

var conflictLine = regexp.MustCompile(`(?im)^(conflicts?|conflicted)\b`)

// HasConflicts reports whether jj status output lists unresolved conflicts.
func HasConflicts(status string) bool {
	return conflictLine.MatchString(status)
}

// Push failure hints.
const (
	hintNoAuthor = "Error: commit has no author/committer set\n" +
		"Fix: jj config set --user user.name 'Your Name'\n" +
		"     jj config set --user user.email 'you@example.com'"
	hintRejected = "Error: push rejected (remote changed)\n" +
		"Recovery: jj git fetch && jj rebase -d %s && jj git push"
)

// Options configures an Engine.
type Options struct {
	// Bookmark is the workspace's own bookmark, advanced on every checkpoint.
	Bookmark string
	// Branch and Remote name the shared branch, e.g. main@origin.
	Branch string
	Remote string
	// Linked marks a linked workspace, whose bookmark describe also advances.
	Linked bool
}

// Engine runs checkpoint operations in one workspace.
type Engine struct {
	jj   *jj.Client
	opts Options
}

// New returns an Engine driving client, which must be rooted at the workspace.
func New(client *jj.Client, opts Options) *Engine {
	return &Engine{jj: client, opts: opts}
}

func (e *Engine) remoteRef() string {
	return revset.RemoteBookmark(e.opts.Branch, e.opts.Remote)
}

// Describe snapshots pending edits, describes @ with reason and starts a new
// empty working copy on top of it. It returns "checkpoint <rev>: <reason>".
func (e *Engine) Describe(ctx context.Context, reason string) (string, error) {
	if _, err := e.jj.Status(ctx); err != nil {
		return "", err
	}
	if err := e.jj.Describe(ctx, reason); err != nil {
		return "", err
	}
	rev, err := e.jj.ChangeID(ctx, revset.WorkingCopyRev)
	if err != nil {
		return "", err
	}
	if e.opts.Linked && e.opts.Bookmark != "" {
		if err := e.jj.SetOrCreateBookmark(ctx, e.opts.Bookmark, revset.WorkingCopyRev); err != nil {
			return "", err
		}
	}
	if err := e.jj.New(ctx); err != nil {
		return "", err
	}
	return fmt.Sprintf("checkpoint %s: %s", rev, reason), nil
}

// Sync describes @ with reason, rebases it onto the shared branch when the
// remote has one, and pushes. Conflicts and push refusals are reported in the
// returned SyncReport, not as errors. Errors are returned for backend
// failures outside the push step.
func (e *Engine) Sync(ctx context.Context, reason string) (*SyncReport, error) {
	report := &SyncReport{}

	// Describing
	if err := e.jj.Describe(ctx, reason); err != nil {
		return nil, err
	}
	rev, err := e.jj.ChangeID(ctx, revset.WorkingCopyRev)
	if err != nil {
		return nil, err
	}
	report.Rev = rev
	report.Lines = append(report.Lines, "rev: "+rev)

	// Fetching
	if err := e.jj.GitFetch(ctx); err != nil {
		return nil, err
	}
	report.Lines = append(report.Lines, "git fetch: ok")

	remote := e.remoteRef()
	hasRemote, err := e.jj.Exists(ctx, remote)
	if err != nil {
		return nil, err
	}
	if hasRemote {
		if err := e.jj.Rebase(ctx, remote); err != nil {
			return nil, err
		}
		report.Lines = append(report.Lines, "rebase: "+remote)
	} else {
		report.Lines = append(report.Lines, "rebase: skipped (no "+remote+")")
	}

	// ConflictCheck
	status, err := e.jj.Status(ctx)
	if err != nil {
		return nil, err
	}
	conflicted, err := e.jj.Conflicted(ctx, revset.WorkingCopyRev)
	if err != nil {
		return nil, err
	}
	if conflicted || HasConflicts(status) {
		report.State = StateAborted
		report.Lines = []string{"conflicts detected:\n" + status}
		return report, nil
	}

	// BookmarkAdvance
	if err := e.advanceBookmark(ctx, hasRemote); err != nil {
		return nil, err
	}

	// Pushing
	if err := e.jj.GitPush(ctx, !hasRemote); err != nil {
		report.State = StatePushFailed
		report.Lines = append(report.Lines, "git push: FAILED", e.pushHint(err))
		return report, nil
	}
	report.Lines = append(report.Lines, "git push: ok")

	// NewWorkingCopy
	if err := e.jj.New(ctx); err != nil {
		return nil, err
	}
	report.State = StatePushOk
	return report, nil
}

// advanceBookmark moves the workspace bookmark to @, first tracking the remote
// branch when it exists and is not yet tracked.
func (e *Engine) advanceBookmark(ctx context.Context, hasRemote bool) error {
	if hasRemote && e.opts.Bookmark == e.opts.Branch {
		untracked, err := e.jj.RemoteUntracked(ctx, e.opts.Branch, e.opts.Remote)
		if err != nil {
			return err
		}
		if untracked {
			if err := e.jj.BookmarkTrack(ctx, e.remoteRef()); err != nil {
				return err
			}
		}
	}
	return e.jj.SetOrCreateBookmark(ctx, e.opts.Bookmark, revset.WorkingCopyRev)
}

func (e *Engine) pushHint(err error) string {
	switch backend.ReasonOf(err) {
	case backend.ReasonNoAuthor:
		return hintNoAuthor
	case backend.ReasonRejected:
		return fmt.Sprintf(hintRejected, e.remoteRef())
	}
	return err.Error()
}
