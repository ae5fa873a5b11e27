package repo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-ports/taskman/internal/apperr"
	"github.com/go-ports/taskman/internal/jj"
	"github.com/go-ports/taskman/internal/revset"
)

// InitialFiles are created empty in a new repository.
var InitialFiles = []string{"STATUS.md", "LONGTERM_MEM.md", "MEDIUMTERM_MEM.md"}

// InitOptions configures Init.
type InitOptions struct {
	StateDir    string
	Branch      string
	AuthorName  string
	AuthorEmail string
}

// Init creates <project>/<StateDir> as a new jj repository seeded with the
// memory files and a tasks directory, described as the initial setup and
// bookmarked as the shared branch. client must run jj in project.
func Init(ctx context.Context, client *jj.Client, project string, opts InitOptions) (string, error) {
	dir := filepath.Join(project, opts.StateDir)
	if _, err := os.Stat(dir); err == nil {
		return "", apperr.New(apperr.ErrAlreadyExists, "%s already exists", opts.StateDir)
	}

	if err := client.GitInit(ctx, dir); err != nil {
		return "", err
	}

	state := client.At(dir)
	if opts.AuthorName != "" {
		if err := state.ConfigSetRepo(ctx, "user.name", opts.AuthorName); err != nil {
			return "", err
		}
	}
	if opts.AuthorEmail != "" {
		if err := state.ConfigSetRepo(ctx, "user.email", opts.AuthorEmail); err != nil {
			return "", err
		}
	}

	if err := os.MkdirAll(filepath.Join(dir, "tasks"), 0o755); err != nil {
		return "", fmt.Errorf("repo.Init: create tasks dir: %w", err)
	}
	for _, name := range InitialFiles {
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return "", fmt.Errorf("repo.Init: create %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("repo.Init: close %s: %w", name, err)
		}
	}

	if err := state.Describe(ctx, "initial setup"); err != nil {
		return "", err
	}
	if err := state.BookmarkCreate(ctx, opts.Branch, revset.WorkingCopyRev); err != nil {
		return "", err
	}
	if err := state.New(ctx); err != nil {
		return "", err
	}
	return "Initialized " + opts.StateDir, nil
}
