// SPDX-License-Identifier: AGPL-3.0-or-later
package checks

import (
	"context"
	"fmt"
	"strings"

	"github.com/bartekus/seriescheck/internal/runner"
	"github.com/bartekus/seriescheck/internal/scanner"
)

var cFilter = scanner.FilterOptions{IncludeExtensions: []string{".c"}}

// Compile builds the object file of every changed C source and reports
// warnings the commit introduced.
type Compile struct{}

func NewCompile() *Compile { return &Compile{} }

func (c *Compile) Name() string        { return "compile" }
func (c *Compile) Description() string { return "Compile changed C source files" }
func (c *Compile) Priority() int       { return 700 }

func (c *Compile) Options() []runner.OptionSpec {
	return []runner.OptionSpec{
		{Name: "config", Kind: runner.OptionString, Default: "allyesconfig", Usage: "config target to build with"},
	}
}

func (c *Compile) Applies(ctx context.Context, env *runner.Env) (bool, error) {
	paths, err := env.ChangedPaths(ctx, cFilter)
	return len(paths) > 0, err
}

func (c *Compile) sources(ctx context.Context, env *runner.Env) ([]string, error) {
	paths, err := env.ChangedPaths(ctx, cFilter)
	if err != nil {
		return nil, err
	}
	return existing(env, paths), nil
}

func object(src string) string {
	return strings.TrimSuffix(src, ".c") + ".o"
}

func (c *Compile) Prepare(ctx context.Context, env *runner.Env) (runner.Baseline, error) {
	if _, err := configure(ctx, env, preparePolicy, env.StringOption("config")); err != nil {
		return runner.Baseline{}, err
	}
	files, err := c.sources(ctx, env)
	if err != nil {
		return runner.Baseline{}, err
	}

	perFile := make(map[string]string, len(files))
	var all strings.Builder
	for _, file := range files {
		errs, _, err := snapshot(ctx, env, preparePolicy, "pre-", object(file))
		if err != nil {
			return runner.Baseline{}, err
		}
		perFile[file] = errs
		all.WriteString(errs)
	}
	return runner.Baseline{Text: all.String(), Extra: perFile}, nil
}

func (c *Compile) Evaluate(ctx context.Context, env *runner.Env, base runner.Baseline) (runner.Outcome, error) {
	st, err := configure(ctx, env, evaluatePolicy, env.StringOption("config"))
	if err != nil {
		return runner.Outcome{}, err
	}
	if st == runner.StatusFail {
		return runner.Fail(env.StringOption("config")+" failed", ""), nil
	}

	files, err := c.sources(ctx, env)
	if err != nil {
		return runner.Outcome{}, err
	}
	if len(files) == 0 {
		return runner.Skip("no C sources left to build"), nil
	}
	perFile, _ := base.Extra.(map[string]string)

	var found []string
	for _, file := range files {
		errs, st, err := snapshot(ctx, env, evaluatePolicy, "", object(file))
		if err != nil {
			return runner.Outcome{}, err
		}
		if st == runner.StatusFail {
			return runner.Fail(fmt.Sprintf("building %s failed", object(file)), errs), nil
		}

		// Sources added by the commit have no baseline, so all their
		// warnings are new.
		news, err := env.NewLines(ctx, perFile[file], errs)
		if err != nil {
			return runner.Outcome{}, err
		}
		if news != "" {
			found = append(found, news)
		}
	}

	if len(found) > 0 {
		return runner.Warning("Compile check resulted in new warnings", joinFindings(found...)), nil
	}
	return runner.Pass(""), nil
}
