// SPDX-License-Identifier: AGPL-3.0-or-later
package checks

import (
	"context"
	"strings"

	"github.com/bartekus/seriescheck/internal/runner"
)

var (
	// A baseline that cannot be built means the tree is broken before the
	// commit, so every non-zero exit is fatal.
	preparePolicy = runner.ExitPolicy{0: runner.StatusPass}

	// make exits 2 when a target fails.
	evaluatePolicy = runner.ExitPolicy{0: runner.StatusPass, 2: runner.StatusFail}
)

// snapshot runs make, keeps its stderr as a log snapshot for phase and
// classifies the exit status.
func snapshot(ctx context.Context, env *runner.Env, policy runner.ExitPolicy, phase string, args ...string) (string, runner.Status, error) {
	res, err := env.Make(ctx, args...)
	if err != nil {
		return "", runner.StatusFail, runner.Fatal(err)
	}
	text := string(res.Stderr)
	env.SaveLog(phase, text)
	env.Log.Debug("build warnings saved", "phase", phase, "bytes", len(text))

	st, err := policy.Classify("make "+strings.Join(args, " "), res)
	if err != nil {
		env.Log.Error("build failed", "phase", phase)
	}
	return text, st, err
}

// configure runs a config target such as allyesconfig.
func configure(ctx context.Context, env *runner.Env, policy runner.ExitPolicy, target string) (runner.Status, error) {
	res, err := env.Make(ctx, target)
	if err != nil {
		return runner.StatusFail, runner.Fatal(err)
	}
	return policy.Classify("make "+target, res)
}

// existing keeps the paths still present in the tree.
func existing(env *runner.Env, paths []string) []string {
	var out []string
	for _, p := range paths {
		if env.Exists(p) {
			out = append(out, p)
		}
	}
	return out
}

// joinFindings concatenates non-empty sections, each ending in a newline.
func joinFindings(sections ...string) string {
	var b strings.Builder
	for _, s := range sections {
		if s == "" {
			continue
		}
		b.WriteString(s)
		if !strings.HasSuffix(s, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String()
}
