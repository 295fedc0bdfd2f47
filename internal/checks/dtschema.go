// SPDX-License-Identifier: AGPL-3.0-or-later
package checks

import (
	"context"
	"fmt"
	"strings"

	"github.com/bartekus/seriescheck/internal/runner"
	"github.com/bartekus/seriescheck/internal/scanner"
)

const bindingsDir = "Documentation/devicetree/bindings/"

// DtSchema validates the devicetree binding schemas touched by a commit
// with dt_binding_check.
type DtSchema struct{}

func NewDtSchema() *DtSchema { return &DtSchema{} }

func (c *DtSchema) Name() string                 { return "dtschema" }
func (c *DtSchema) Description() string          { return "Run dt_binding_check on changed files" }
func (c *DtSchema) Priority() int                { return 500 }
func (c *DtSchema) Options() []runner.OptionSpec { return nil }

func (c *DtSchema) Applies(ctx context.Context, env *runner.Env) (bool, error) {
	paths, err := env.ChangedPaths(ctx, scanner.FilterOptions{IncludePrefixes: []string{bindingsDir}})
	return len(paths) > 0, err
}

// schemaFiles lists the changed .yaml bindings present in the tree, relative
// to the bindings directory as DT_SCHEMA_FILES expects.
func (c *DtSchema) schemaFiles(ctx context.Context, env *runner.Env) ([]string, error) {
	paths, err := env.ChangedPaths(ctx, scanner.FilterOptions{
		IncludePrefixes:   []string{bindingsDir},
		IncludeExtensions: []string{".yaml"},
	})
	if err != nil {
		return nil, err
	}
	var files []string
	for _, p := range existing(env, paths) {
		files = append(files, strings.TrimPrefix(p, bindingsDir))
	}
	return files, nil
}

func (c *DtSchema) check(ctx context.Context, env *runner.Env, policy runner.ExitPolicy, phase, file string) (string, runner.Status, error) {
	return snapshot(ctx, env, policy, phase, "dt_binding_check", "DT_SCHEMA_FILES="+file)
}

func (c *DtSchema) Prepare(ctx context.Context, env *runner.Env) (runner.Baseline, error) {
	files, err := c.schemaFiles(ctx, env)
	if err != nil {
		return runner.Baseline{}, err
	}

	var pre strings.Builder
	for _, file := range files {
		errs, _, err := c.check(ctx, env, preparePolicy, "pre-", file)
		if err != nil {
			return runner.Baseline{}, err
		}
		if errs != "" {
			env.Log.Debug("YAML pre-check resulted in warnings", "file", file)
			pre.WriteString(errs)
		}
	}
	return runner.Baseline{Text: pre.String()}, nil
}

func (c *DtSchema) Evaluate(ctx context.Context, env *runner.Env, base runner.Baseline) (runner.Outcome, error) {
	files, err := c.schemaFiles(ctx, env)
	if err != nil {
		return runner.Outcome{}, err
	}
	if len(files) == 0 {
		return runner.Skip("no schema files left to check"), nil
	}

	var found []string
	for _, file := range files {
		errs, st, err := c.check(ctx, env, evaluatePolicy, "", file)
		if err != nil {
			return runner.Outcome{}, err
		}
		if st == runner.StatusFail {
			return runner.Fail(fmt.Sprintf("dt_binding_check failed for %s", file), errs), nil
		}
		news, err := env.NewLines(ctx, base.Text, errs)
		if err != nil {
			return runner.Outcome{}, err
		}
		if news != "" {
			found = append(found, news)
		}
	}

	if len(found) > 0 {
		return runner.Warning("YAML check resulted in new warnings", joinFindings(found...)), nil
	}
	return runner.Pass(""), nil
}
