// SPDX-License-Identifier: AGPL-3.0-or-later

// Package scanner answers "which files did this commit touch", caching the
// answer per commit for the lifetime of a run.
package scanner

import (
	"context"
	"fmt"
	"sync"

	"github.com/bartekus/seriescheck/internal/vcs"
)

// Lister is the part of vcs.Repo the scanner needs.
type Lister interface {
	ChangedFiles(ctx context.Context, sha string) ([]vcs.ChangedFile, error)
}

// Scanner provides cached access to the files changed by each commit.
type Scanner struct {
	repo Lister

	mu    sync.Mutex
	cache map[string][]vcs.ChangedFile
}

// New creates a new Scanner backed by repo.
func New(repo Lister) *Scanner {
	return &Scanner{
		repo:  repo,
		cache: make(map[string][]vcs.ChangedFile),
	}
}

// ChangedFiles returns the files touched by sha. Every check asks the same
// question for the same commit, so the result is cached.
func (s *Scanner) ChangedFiles(ctx context.Context, sha string) ([]vcs.ChangedFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if files, ok := s.cache[sha]; ok {
		return files, nil
	}

	files, err := s.repo.ChangedFiles(ctx, sha)
	if err != nil {
		return nil, fmt.Errorf("listing files changed by %s: %w", vcs.Abbrev(sha, 12), err)
	}
	if files == nil {
		files = []vcs.ChangedFile{}
	}
	s.cache[sha] = files
	return files, nil
}

// ChangedPaths returns the paths touched by sha matching the filter options.
// Deleted files are included; callers that need the file on disk check for it.
func (s *Scanner) ChangedPaths(ctx context.Context, sha string, opts FilterOptions) ([]string, error) {
	files, err := s.ChangedFiles(ctx, sha)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	return FilterFiles(paths, opts), nil
}
