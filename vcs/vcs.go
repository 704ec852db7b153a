// Package vcs is the small slice of git forge needs: initializing a fresh
// project and spotting uncommitted work before an incremental overwrite.
package vcs

import (
	"path/filepath"
	"sort"

	"github.com/go-git/go-git/v5"

	"github.com/teranos/forge/errors"
)

// IsRepository reports whether root is the top of a git work tree.
func IsRepository(root string) bool {
	_, err := git.PlainOpen(root)
	return err == nil
}

// InitRepository runs the equivalent of `git init` in root unless it is
// already a repository. It reports whether a repository was created.
func InitRepository(root string) (bool, error) {
	_, err := git.PlainOpen(root)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, git.ErrRepositoryNotExists):
		return false, errors.Wrapf(err, "failed to open repository at %s", root)
	}
	if _, err := git.PlainInit(root, false); err != nil {
		return false, errors.Wrapf(err, "failed to initialize repository at %s", root)
	}
	return true, nil
}

// Uncommitted lists slash-separated paths under root with staged, unstaged or
// untracked changes. A root that is not a repository has none.
func Uncommitted(root string) ([]string, error) {
	repo, err := git.PlainOpen(root)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open repository at %s", root)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, errors.Wrap(err, "failed to open worktree")
	}
	status, err := wt.Status()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read worktree status")
	}

	var paths []string
	for p, s := range status {
		if s.Staging != git.Unmodified || s.Worktree != git.Unmodified {
			paths = append(paths, filepath.ToSlash(p))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
