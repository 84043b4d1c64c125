// Package vcs resolves source revision information for manifest stamping.
package vcs

import (
	"log/slog"

	"github.com/go-git/go-git/v5"
)

// HeadRevision returns the HEAD commit hash of the repository containing
// path, walking up parent directories to find the repository root. Returns
// an empty string when path is not inside a git repository; source trees
// without version control are still buildable.
func HeadRevision(path string) string {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		slog.Debug("No git repository for source root", "path", path, "error", err)
		return ""
	}

	ref, err := repo.Head()
	if err != nil {
		// Repository exists but has no commits yet.
		slog.Debug("No HEAD in repository", "path", path, "error", err)
		return ""
	}

	return ref.Hash().String()
}

// IsDirty reports whether the worktree containing path has uncommitted
// changes. Returns false when status cannot be determined.
func IsDirty(path string) bool {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return false
	}

	wt, err := repo.Worktree()
	if err != nil {
		return false
	}
	status, err := wt.Status()
	if err != nil {
		return false
	}
	return !status.IsClean()
}
