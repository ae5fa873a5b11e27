// Package backendtest provides a scripted backend.Runner for tests.
package backendtest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-ports/taskman/internal/backend"
)

// Call is one recorded invocation.
type Call struct {
	Dir  string
	Args []string
}

// String renders the call as a space-joined argument list.
func (c Call) String() string { return strings.Join(c.Args, " ") }

// Handler answers an invocation. Returning ok=false lets the next rule try.
type Handler func(dir string, args []string) (res backend.Result, ok bool)

// Fake is a backend.Runner that answers from registered rules and records
// every call. Unmatched invocations succeed with empty output.
type Fake struct {
	Program string

	mu    sync.Mutex
	rules []Handler
	calls []Call
}

// New returns a Fake for program.
func New(program string) *Fake {
	return &Fake{Program: program}
}

// Handle registers h. Later rules take precedence over earlier ones.
func (f *Fake) Handle(h Handler) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, h)
	return f
}

// On answers any call whose joined args start with prefix.
func (f *Fake) On(prefix string, res backend.Result) *Fake {
	return f.Handle(func(_ string, args []string) (backend.Result, bool) {
		return res, strings.HasPrefix(strings.Join(args, " "), prefix)
	})
}

// OnOutput answers calls matching prefix with stdout and exit 0.
func (f *Fake) OnOutput(prefix, stdout string) *Fake {
	return f.On(prefix, backend.Result{Stdout: stdout})
}

// OnFail answers calls matching prefix with exit 1 and stderr.
func (f *Fake) OnFail(prefix, stderr string) *Fake {
	return f.On(prefix, backend.Result{ExitCode: 1, Stderr: stderr})
}

// Run implements backend.Runner.
func (f *Fake) Run(_ context.Context, dir string, args ...string) (backend.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Dir: dir, Args: append([]string(nil), args...)})
	rules := append([]Handler(nil), f.rules...)
	f.mu.Unlock()

	for i := len(rules) - 1; i >= 0; i-- {
		if res, ok := rules[i](dir, args); ok {
			return res, nil
		}
	}
	return backend.Result{}, nil
}

// RunChecked implements backend.Runner.
func (f *Fake) RunChecked(ctx context.Context, dir string, args ...string) (backend.Result, error) {
	res, err := f.Run(ctx, dir, args...)
	if err != nil {
		return res, err
	}
	return backend.Check(f.Program, args, res)
}

// Calls returns a copy of the recorded invocations.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Commands returns the recorded invocations rendered with Call.String.
func (f *Fake) Commands() []string {
	calls := f.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.String()
	}
	return out
}

// Called reports whether any recorded call starts with prefix.
func (f *Fake) Called(prefix string) bool {
	for _, c := range f.Commands() {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

// Dump formats the recorded calls for assertion failure messages.
func (f *Fake) Dump() string {
	var b strings.Builder
	for i, c := range f.Calls() {
		fmt.Fprintf(&b, "%2d [%s] %s\n", i, c.Dir, c.String())
	}
	return b.String()
}
