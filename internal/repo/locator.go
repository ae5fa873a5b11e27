// Package repo locates agent-state repositories on disk and initializes new ones.
//
// A main repository is <project>/<state-dir> whose .jj/repo is a directory.
// A linked workspace is <project>/<worktrees>/<name>/<state-dir> whose
// .jj/repo is a file holding the path of the main repository's .jj/repo.
package repo

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-ports/taskman/internal/apperr"
)

// DefaultWorkspace is the name of the workspace created at initialization.
const DefaultWorkspace = "default"

const (
	jjDir     = ".jj"
	storeName = "repo"
)

// storeMarker returns <dir>/.jj/repo.
func storeMarker(dir string) string {
	return filepath.Join(dir, jjDir, storeName)
}

// startDir makes start absolute, defaulting to the working directory and
// stepping up from a file to its directory.
func startDir(start string) (string, error) {
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		start = wd
	}
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	if fi, err := os.Stat(abs); err == nil && !fi.IsDir() {
		abs = filepath.Dir(abs)
	}
	return abs, nil
}

// walkUp calls visit for dir and each of its parents until visit returns
// true or the filesystem root has been visited.
func walkUp(dir string, visit func(string) bool) bool {
	for {
		if visit(dir) {
			return true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return false
		}
		dir = parent
	}
}

// FindWorkspace returns the nearest <dir>/<stateDir> directory at or above
// start. It is the workspace checkpoint and history operations act on.
func FindWorkspace(start, stateDir string) (string, error) {
	dir, err := startDir(start)
	if err != nil {
		return "", err
	}
	var found string
	walkUp(dir, func(d string) bool {
		candidate := filepath.Join(d, stateDir)
		if fi, err := os.Stat(candidate); err == nil && fi.IsDir() {
			found = candidate
			return true
		}
		return false
	})
	if found == "" {
		return "", apperr.New(apperr.ErrNotFound, "%s directory not found", stateDir).
			WithFix("Run 'taskman init' in the project root")
	}
	return found, nil
}

// FindMainRepository returns the main repository's state directory, walking
// upward from start and following a linked workspace's pointer when one is
// found first.
func FindMainRepository(start, stateDir string) (string, error) {
	dir, err := startDir(start)
	if err != nil {
		return "", err
	}
	var found string
	walkUp(dir, func(d string) bool {
		candidate := filepath.Join(d, stateDir)
		fi, err := os.Stat(storeMarker(candidate))
		if err != nil {
			return false
		}
		if fi.IsDir() {
			found = candidate
			return true
		}
		if target, err := readPointer(candidate); err == nil {
			found = target
			return true
		}
		return false
	})
	if found == "" {
		return "", apperr.New(apperr.ErrNotFound, "%s directory not found", stateDir).
			WithFix("Run 'taskman init' in the project root")
	}
	return found, nil
}

// readPointer resolves a linked workspace's .jj/repo file to the main state
// directory owning the store it names.
func readPointer(workspace string) (string, error) {
	data, err := os.ReadFile(storeMarker(workspace))
	if err != nil {
		return "", err
	}
	target := strings.TrimSpace(string(data))
	if !filepath.IsAbs(target) {
		target = filepath.Join(workspace, jjDir, target)
	}
	target = filepath.Clean(target)
	// target is <main>/.jj/repo
	return filepath.Dir(filepath.Dir(target)), nil
}

// IsMainWorkspace reports whether dir holds the repository store itself
// rather than a pointer to it.
func IsMainWorkspace(dir string) bool {
	fi, err := os.Stat(storeMarker(dir))
	return err == nil && fi.IsDir()
}

// WorkspaceName returns the jj workspace name for the state directory dir:
// DefaultWorkspace for the main repository, otherwise the name of the
// worktree directory that contains it.
func WorkspaceName(dir string) string {
	if IsMainWorkspace(dir) {
		return DefaultWorkspace
	}
	return filepath.Base(filepath.Dir(dir))
}

// StoreGitDir returns the git directory backing the main repository's store.
func StoreGitDir(mainDir string) string {
	store := filepath.Join(storeMarker(mainDir), "store")
	target := "git"
	if data, err := os.ReadFile(filepath.Join(store, "git_target")); err == nil {
		if t := strings.TrimSpace(string(data)); t != "" {
			target = t
		}
	}
	if filepath.IsAbs(target) {
		return filepath.Clean(target)
	}
	return filepath.Clean(filepath.Join(store, target))
}
