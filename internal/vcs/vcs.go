// SPDX-License-Identifier: AGPL-3.0-or-later

/*
seriescheck - incremental regression testing for patch series.
It replays each commit of a series onto a detached tree, runs checks before and after every
change, and reports only the problems the series introduced.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package vcs is the version-control boundary of seriescheck.
package vcs

import "context"

// Commit is a single changeset of the series under test.
type Commit struct {
	SHA     string
	Subject string
}

// Short returns the abbreviated commit id used in progress output.
func (c Commit) Short() string {
	return Abbrev(c.SHA, 12)
}

// Abbrev truncates sha to n characters.
func Abbrev(sha string, n int) string {
	if len(sha) <= n {
		return sha
	}
	return sha[:n]
}

// ChangedFile is a path touched by a commit.
type ChangedFile struct {
	Path    string
	Added   bool
	Deleted bool
}

// Ref records what was checked out. Name is empty when HEAD was detached.
type Ref struct {
	Name string
	SHA  string
}

func (r Ref) String() string {
	if r.Name != "" {
		return r.Name
	}
	return Abbrev(r.SHA, 12)
}

// Repo is everything the pipeline needs from version control.
type Repo interface {
	Toplevel(ctx context.Context) (string, error)
	ResolveBase(ctx context.Context, rev string) (string, error)
	CommitsAfter(ctx context.Context, base string) ([]Commit, error)

	CurrentRef(ctx context.Context) (Ref, error)
	Detach(ctx context.Context, rev string) error
	Restore(ctx context.Context, ref Ref) error
	IsClean(ctx context.Context) (bool, error)
	Discard(ctx context.Context) error

	CherryPick(ctx context.Context, sha string) error
	RevertNoCommit(ctx context.Context, sha string) error
	CheckoutWorktree(ctx context.Context) error

	ChangedFiles(ctx context.Context, sha string) ([]ChangedFile, error)
	Subject(ctx context.Context, sha string) (string, error)
	Message(ctx context.Context, sha string) (string, error)
}
