// Package backend executes external version-control commands.
//
// Every invocation of jj or git made by taskman goes through a Runner. Callers
// receive the exit status together with captured stdout and stderr, or a
// *CommandError when RunChecked sees a non-zero exit.
package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Result is the captured outcome of one backend invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner runs one backend program against a working directory.
type Runner interface {
	// Run executes args in dir. A non-zero exit is reported through
	// Result.ExitCode; err is non-nil only when the process could not run.
	Run(ctx context.Context, dir string, args ...string) (Result, error)
	// RunChecked is Run, but a non-zero exit yields a *CommandError.
	RunChecked(ctx context.Context, dir string, args ...string) (Result, error)
}

// Exec is a Runner backed by os/exec.
type Exec struct {
	Program string
	Logger  *slog.Logger
}

// NewExec returns an Exec for program, logging through slog.Default when logger is nil.
func NewExec(program string, logger *slog.Logger) *Exec {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exec{Program: program, Logger: logger}
}

// Run implements Runner.
func (e *Exec) Run(ctx context.Context, dir string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, e.Program, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		return res, fmt.Errorf("backend: run %s: %w", e.Program, err)
	}

	e.Logger.Debug("backend command",
		"program", e.Program,
		"args", args,
		"dir", dir,
		"exit", res.ExitCode,
	)
	return res, nil
}

// RunChecked implements Runner.
func (e *Exec) RunChecked(ctx context.Context, dir string, args ...string) (Result, error) {
	res, err := e.Run(ctx, dir, args...)
	if err != nil {
		return res, err
	}
	return Check(e.Program, args, res)
}

// Check converts a non-zero Result into a *CommandError. Runner
// implementations outside this package use it to share RunChecked semantics.
func Check(program string, args []string, res Result) (Result, error) {
	if res.ExitCode == 0 {
		return res, nil
	}
	full := append([]string{program}, args...)
	return res, &CommandError{
		Args:     full,
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		Reason:   Classify(res.Stdout + "\n" + res.Stderr),
	}
}

// ---------------------------------------------------------------------------
// Failures
// ---------------------------------------------------------------------------

// Reason is the classified cause of a failed backend command.
type Reason int

const (
	// ReasonUnknown covers every failure not listed below.
	ReasonUnknown Reason = iota
	// ReasonNoSuchPath means the requested path does not exist at a revision.
	ReasonNoSuchPath
	// ReasonNoSuchBookmark means a bookmark that was expected to exist does not.
	ReasonNoSuchBookmark
	// ReasonNoAuthor means a commit lacks an author or committer identity.
	ReasonNoAuthor
	// ReasonRejected means the remote refused a push.
	ReasonRejected
)

func (r Reason) String() string {
	switch r {
	case ReasonNoSuchPath:
		return "no-such-path"
	case ReasonNoSuchBookmark:
		return "no-such-bookmark"
	case ReasonNoAuthor:
		return "no-author"
	case ReasonRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

var reasonPatterns = []struct {
	reason  Reason
	needles []string
}{
	{ReasonNoSuchPath, []string{"no such path"}},
	{ReasonNoSuchBookmark, []string{"no such bookmark"}},
	{ReasonNoAuthor, []string{"no author", "no committer"}},
	{ReasonRejected, []string{"rejected", "non-fast-forward"}},
}

// Classify maps backend output onto a Reason. The backend reports these
// conditions only as text, so matching is case-insensitive on substrings.
func Classify(output string) Reason {
	lower := strings.ToLower(output)
	for _, p := range reasonPatterns {
		for _, n := range p.needles {
			if strings.Contains(lower, n) {
				return p.reason
			}
		}
	}
	return ReasonUnknown
}

// CommandError is returned by RunChecked when a command exits non-zero.
type CommandError struct {
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
	Reason   Reason
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command failed (%d): %s\nstdout:\n%s\nstderr:\n%s",
		e.ExitCode, strings.Join(e.Args, " "), e.Stdout, e.Stderr)
}

// ReasonOf returns the Reason carried by err, or ReasonUnknown when err is
// not a *CommandError.
func ReasonOf(err error) Reason {
	var ce *CommandError
	if errors.As(err, &ce) {
		return ce.Reason
	}
	return ReasonUnknown
}
