// SPDX-License-Identifier: AGPL-3.0-or-later
package checks

import (
	"context"
	"strings"

	"github.com/bartekus/seriescheck/internal/runner"
)

// Checkpatch runs the kernel's checkpatch.pl on the applied commit. It has
// no baseline: every complaint is about the commit itself.
type Checkpatch struct{}

func NewCheckpatch() *Checkpatch { return &Checkpatch{} }

func (c *Checkpatch) Name() string        { return "checkpatch" }
func (c *Checkpatch) Description() string { return "Run checkpatch.pl" }
func (c *Checkpatch) Priority() int       { return 100 }

func (c *Checkpatch) Options() []runner.OptionSpec {
	return []runner.OptionSpec{
		{Name: "strict", Kind: runner.OptionBool, Default: "false", Usage: "pass --strict to checkpatch.pl"},
	}
}

var checkpatchPolicy = runner.ExitPolicy{0: runner.StatusPass, 1: runner.StatusWarning}

func (c *Checkpatch) Applies(ctx context.Context, env *runner.Env) (bool, error) {
	return true, nil
}

func (c *Checkpatch) Prepare(ctx context.Context, env *runner.Env) (runner.Baseline, error) {
	return runner.Baseline{}, nil
}

func (c *Checkpatch) Evaluate(ctx context.Context, env *runner.Env, _ runner.Baseline) (runner.Outcome, error) {
	if env.RepoRoot == "" {
		return runner.Outcome{}, runner.Fatalf("checkpatch: unknown kernel tree")
	}

	argv := []string{"./scripts/checkpatch.pl", "--git", "HEAD", "--terse", "--showfile", "--no-summary"}
	if env.BoolOption("strict") {
		argv = append(argv, "--strict")
	}
	if env.Color {
		argv = append(argv, "--color=always")
	}

	res, err := env.Run(ctx, argv...)
	if err != nil {
		return runner.Outcome{}, runner.Fatal(err)
	}
	st, err := checkpatchPolicy.Classify("checkpatch.pl", res)
	if err != nil {
		return runner.Outcome{}, err
	}

	out := string(res.Stdout)
	if st == runner.StatusWarning {
		return runner.Warning("checkpatch found something", out), nil
	}
	if msg := strings.TrimRight(out, "\n"); msg != "" {
		env.Log.Info(msg)
	}
	return runner.Pass(""), nil
}
