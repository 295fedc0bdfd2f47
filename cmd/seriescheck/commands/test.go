// SPDX-License-Identifier: AGPL-3.0-or-later
package commands

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bartekus/seriescheck/cmd/seriescheck/internal/clierr"
	"github.com/bartekus/seriescheck/internal/kbuild"
	"github.com/bartekus/seriescheck/internal/logging"
	"github.com/bartekus/seriescheck/internal/runner"
	"github.com/bartekus/seriescheck/internal/scanner"
	"github.com/bartekus/seriescheck/internal/vcs"
)

type testOptions struct {
	base          string
	failOnWarning bool
	arch          string
	crossCompile  string
	jobs          int
}

// checkFlag ties a --<check>-<option> flag to the option it sets.
type checkFlag struct {
	check string
	opt   string
	flag  string
}

func newTestCmd(g *globalOptions, reg *runner.Registry) *cobra.Command {
	opts := &testOptions{}
	var flags []checkFlag

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test every commit after the base, one at a time",
		Long: `Replay each commit between the base and HEAD onto the base and run the
applicable checks before and after it. Only newly introduced problems are
reported. The original branch is checked out again afterwards.

Exit status is 0 when everything passed, 3 when a check failed (or warned,
with --fail-on-warning) and 4 when the run was aborted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			values := runner.Values{}
			for _, f := range flags {
				if !cmd.Flags().Changed(f.flag) {
					continue
				}
				if values[f.check] == nil {
					values[f.check] = map[string]string{}
				}
				values[f.check][f.opt] = cmd.Flags().Lookup(f.flag).Value.String()
			}
			return runTest(cmd, g, opts, reg, values)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&opts.base, "base", "", "revision the series starts after (default: merge-base with upstream)")
	fs.BoolVar(&opts.failOnWarning, "fail-on-warning", false, "exit non-zero when a check warns")
	fs.StringVar(&opts.arch, "arch", "", "ARCH passed to make (default from config)")
	fs.StringVar(&opts.crossCompile, "cross-compile", "", "CROSS_COMPILE passed to make (default from config)")
	fs.IntVarP(&opts.jobs, "jobs", "j", 0, "parallel make jobs (default: derived from cpu count)")

	for _, c := range reg.All() {
		for _, spec := range reg.OptionSpecs(c.Name()) {
			name := c.Name() + "-" + spec.Name
			if spec.Kind == runner.OptionBool {
				fs.Bool(name, spec.Default == "true", spec.Usage)
			} else {
				fs.String(name, spec.Default, spec.Usage)
			}
			flags = append(flags, checkFlag{check: c.Name(), opt: spec.Name, flag: name})
		}
	}

	return cmd
}

func runTest(cmd *cobra.Command, g *globalOptions, opts *testOptions, reg *runner.Registry, flagValues runner.Values) error {
	ctx := cmd.Context()
	log := logging.New("test")

	ws, err := loadWorkspace(ctx, g)
	if err != nil {
		return err
	}
	cfg := ws.cfg

	checkOpts, err := runner.ResolveOptions(reg, cfg.CheckValues(), flagValues)
	if err != nil {
		return clierr.Wrap(clierr.ExitUsage, "invalid check options", err)
	}

	rev := opts.base
	if rev == "" {
		rev = cfg.Base
	}
	base, err := ws.repo.ResolveBase(ctx, rev)
	if errors.Is(err, vcs.ErrNoUpstream) {
		return clierr.Wrap(clierr.ExitUsage, "no --base given", err)
	}
	if err != nil {
		return clierr.Wrap(clierr.ExitUsage, "cannot resolve base", err)
	}
	commits, err := ws.repo.CommitsAfter(ctx, base)
	if err != nil {
		return clierr.Wrap(clierr.ExitFatal, "listing commits", err)
	}

	kernel := &kbuild.Kernel{
		Root:         ws.root,
		OutDir:       filepath.Join(ws.outDir, "build"),
		LogDir:       ws.store.LogDir(),
		Arch:         firstNonEmpty(opts.arch, cfg.Arch),
		CrossCompile: firstNonEmpty(opts.crossCompile, cfg.CrossCompile),
		Jobs:         cfg.Jobs,
		Exec:         ws.exec,
	}
	if opts.jobs > 0 {
		kernel.Jobs = opts.jobs
	}

	deps := &runner.Deps{
		RepoRoot: ws.root,
		Repo:     ws.repo,
		Scanner:  scanner.New(ws.repo),
		Kernel:   kernel,
		Exec:     ws.exec,
		Diff:     cfg.Diff(),
		Options:  checkOpts,
		Logger:   logging.New("runner"),
		Color:    g.color,
	}

	last, err := runner.NewController(reg, ws.store, deps).Run(ctx, base, commits)
	if err != nil {
		if runner.IsFatal(err) {
			logging.Critical(ctx, log, err.Error())
			return clierr.Wrap(clierr.ExitFatal, "run aborted", err)
		}
		return err
	}

	printSummary(cmd, last)
	switch {
	case last.Status == runner.RunFail:
		return clierr.Newf(clierr.ExitFindings, "%d check(s) failed", len(last.Failed))
	case last.Status == runner.RunWarning && opts.failOnWarning:
		return clierr.Newf(clierr.ExitFindings, "%d check(s) warned", len(last.Warned))
	}
	return nil
}

func printSummary(cmd *cobra.Command, last *runner.LastRun) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "%d commit(s) tested: %d passed, %d warned, %d failed, %d skipped\n",
		len(last.Commits),
		last.Counts[runner.StatusPass.String()],
		last.Counts[runner.StatusWarning.String()],
		last.Counts[runner.StatusFail.String()],
		last.Counts[runner.StatusSkip.String()],
	)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
