// SPDX-License-Identifier: AGPL-3.0-or-later
package runner

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bartekus/seriescheck/internal/execx"
	"github.com/bartekus/seriescheck/internal/fuzzydiff"
	"github.com/bartekus/seriescheck/internal/kbuild"
	"github.com/bartekus/seriescheck/internal/scanner"
	"github.com/bartekus/seriescheck/internal/vcs"
)

// Deps contains dependencies injected into checks.
type Deps struct {
	RepoRoot string
	Repo     vcs.Repo
	Scanner  *scanner.Scanner
	Kernel   *kbuild.Kernel
	Exec     execx.Runner
	Diff     fuzzydiff.Matcher
	Options  Options
	Logger   *slog.Logger

	// Color asks tools that support it for colored output.
	Color bool
}

// Env is what a check sees while it runs for one commit.
type Env struct {
	*Deps

	Commit vcs.Commit
	Check  string
	Log    *slog.Logger
}

func (e *Env) BoolOption(opt string) bool     { return e.Options.Bool(e.Check, opt) }
func (e *Env) StringOption(opt string) string { return e.Options.String(e.Check, opt) }

// ChangedPaths lists the commit's paths matching opts.
func (e *Env) ChangedPaths(ctx context.Context, opts scanner.FilterOptions) ([]string, error) {
	return e.Scanner.ChangedPaths(ctx, e.Commit.SHA, opts)
}

// Exists reports whether the repo-relative path is present in the tree.
func (e *Env) Exists(path string) bool {
	_, err := os.Stat(filepath.Join(e.RepoRoot, path))
	return !errors.Is(err, fs.ErrNotExist)
}

// Run executes argv in the repository root.
func (e *Env) Run(ctx context.Context, argv ...string) (execx.Result, error) {
	return e.Exec.Run(ctx, execx.Cmd{Argv: argv, Dir: e.RepoRoot})
}

// Make runs a kernel make target.
func (e *Env) Make(ctx context.Context, args ...string) (execx.Result, error) {
	if e.Kernel == nil {
		return execx.Result{}, Fatalf("%s: no kernel build configured", e.Check)
	}
	return e.Kernel.Make(ctx, args...)
}

// SaveLog snapshots text as log-<commit>-<check><phase>.txt. Failures are
// logged, never returned.
func (e *Env) SaveLog(phase, text string) {
	if e.Kernel == nil {
		return
	}
	name := vcs.Abbrev(e.Commit.SHA, 4) + "-" + e.Check + phase
	if err := e.Kernel.SaveLog(name, text); err != nil {
		e.Log.Warn("could not save log", "name", name, "err", err)
	}
}

// NewLines is the fuzzy difference between two snapshots of a checker's
// output.
func (e *Env) NewLines(ctx context.Context, before, after string) (string, error) {
	return e.Diff.NewLines(ctx, before, after)
}
