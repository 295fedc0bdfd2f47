// SPDX-License-Identifier: AGPL-3.0-or-later
package checks

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bartekus/seriescheck/internal/runner"
	"github.com/bartekus/seriescheck/internal/scanner"
)

var (
	dtsPath    = regexp.MustCompile(`arch/(?P<arch>\w+)/boot/dts/(?P<vendor>\w+)/(?P<source>[\w-]+\.dtsi?)`)
	disabledRe = regexp.MustCompile(`status.*(disabled|reserved)`)
	dtsFilter  = scanner.FilterOptions{IncludeExtensions: []string{".dts", ".dtsi"}}
)

// Dtbs builds the devicetree blobs affected by a commit with CHECK_DTBS=y
// and reports new schema warnings. The checker ignores disabled nodes, so a
// second pass compares the trees with every disabled status removed.
type Dtbs struct{}

func NewDtbs() *Dtbs { return &Dtbs{} }

func (c *Dtbs) Name() string        { return "dtbs" }
func (c *Dtbs) Description() string { return "Run dtbs_check on changed files" }
func (c *Dtbs) Priority() int       { return 700 }

func (c *Dtbs) Options() []runner.OptionSpec {
	return []runner.OptionSpec{
		{Name: "filter", Kind: runner.OptionString, Usage: "regexp prefix narrowing the dtb targets to check"},
	}
}

func (c *Dtbs) Applies(ctx context.Context, env *runner.Env) (bool, error) {
	paths, err := c.sources(ctx, env)
	return len(paths) > 0, err
}

// sources lists the changed devicetree sources under
// arch/<arch>/boot/dts/<vendor>/. Others, such as dtc test inputs, build no
// dtb and are ignored.
func (c *Dtbs) sources(ctx context.Context, env *runner.Env) ([]string, error) {
	paths, err := env.ChangedPaths(ctx, dtsFilter)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, p := range paths {
		if dtsPath.MatchString(p) {
			out = append(out, p)
		} else {
			env.Log.Debug("ignoring devicetree source outside arch/", "path", p)
		}
	}
	return out, nil
}

// targets reads the dtbs built from the vendor directories the commit
// touched. All changed sources must belong to a single arch.
func (c *Dtbs) targets(ctx context.Context, env *runner.Env) ([]string, error) {
	paths, err := c.sources(ctx, env)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, nil
	}

	arches := map[string]bool{}
	vendors := map[string]bool{}
	for _, p := range paths {
		m := dtsPath.FindStringSubmatch(p)
		arches[m[dtsPath.SubexpIndex("arch")]] = true
		vendors[m[dtsPath.SubexpIndex("vendor")]] = true
	}
	if len(arches) != 1 {
		return nil, fmt.Errorf("changed devicetree sources span %d arches, want exactly one", len(arches))
	}
	var arch string
	for a := range arches {
		arch = a
	}

	pat, err := regexp.Compile(`(?P<target>` + env.StringOption("filter") + `[\w-]+\.dtb)`)
	if err != nil {
		return nil, fmt.Errorf("invalid dtbs filter: %w", err)
	}

	seen := map[string]bool{}
	for vendor := range vendors {
		makefile := filepath.Join(env.RepoRoot, "arch", arch, "boot", "dts", vendor, "Makefile")
		data, err := os.ReadFile(makefile)
		if err != nil {
			return nil, fmt.Errorf("reading dtb list: %w", err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			m := pat.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			target := m[pat.SubexpIndex("target")]
			if arch != "arm" {
				target = vendor + "/" + target
			}
			seen[target] = true
		}
	}

	targets := make([]string, 0, len(seen))
	for t := range seen {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return targets, nil
}

func (c *Dtbs) check(ctx context.Context, env *runner.Env, policy runner.ExitPolicy, phase string, targets []string) (string, runner.Status, error) {
	args := append([]string{"CHECK_DTBS=y", "W=1"}, targets...)
	return snapshot(ctx, env, policy, phase, args...)
}

func (c *Dtbs) Prepare(ctx context.Context, env *runner.Env) (runner.Baseline, error) {
	if _, err := configure(ctx, env, preparePolicy, "allyesconfig"); err != nil {
		return runner.Baseline{}, err
	}
	targets, err := c.targets(ctx, env)
	if err != nil {
		return runner.Baseline{}, err
	}
	env.Log.Debug(fmt.Sprintf("We have %d dtbs to pre-check...", len(targets)))
	if len(targets) == 0 {
		return runner.Baseline{Extra: targets}, nil
	}

	// The baseline always has warnings; keep them quietly.
	pre, _, err := c.check(ctx, env, preparePolicy, "pre", targets)
	if err != nil {
		return runner.Baseline{}, err
	}
	return runner.Baseline{Text: pre, Extra: targets}, nil
}

func (c *Dtbs) Evaluate(ctx context.Context, env *runner.Env, base runner.Baseline) (runner.Outcome, error) {
	// The commit may add dtbs to the Makefile, so the list is read again.
	targets, err := c.targets(ctx, env)
	if err != nil {
		return runner.Outcome{}, err
	}
	if len(targets) == 0 {
		return runner.Skip("no dtb targets match"), nil
	}
	if before, ok := base.Extra.([]string); ok && len(before) != len(targets) {
		env.Log.Debug("dtb targets changed", "before", len(before), "after", len(targets))
	}

	errs, st, err := c.check(ctx, env, evaluatePolicy, "", targets)
	if err != nil {
		return runner.Outcome{}, err
	}
	if st == runner.StatusFail {
		return runner.Fail("dtbs build failed", errs), nil
	}
	news, err := env.NewLines(ctx, base.Text, errs)
	if err != nil {
		return runner.Outcome{}, err
	}

	enabled, err := c.enableAll(ctx, env, targets)
	if err != nil {
		return runner.Outcome{}, err
	}

	switch {
	case news != "" && enabled != "":
		return runner.Warning("DTB check resulted in new warnings, also without disables", joinFindings(news, enabled)), nil
	case news != "":
		return runner.Warning("DTB check resulted in new warnings", news), nil
	case enabled != "":
		return runner.Warning("DTB check without disables resulted in new warnings", enabled), nil
	}
	return runner.Pass(""), nil
}

// enableAll compares the dtbs before and after the commit with every
// disabled node in the changed sources switched on. The working tree is
// checked out again on return.
func (c *Dtbs) enableAll(ctx context.Context, env *runner.Env, targets []string) (news string, err error) {
	if err := env.Repo.RevertNoCommit(ctx, env.Commit.SHA); err != nil {
		return "", runner.Fatal(fmt.Errorf("soft-reverting %s: %w", env.Commit.Short(), err))
	}
	defer func() {
		rctx := context.WithoutCancel(ctx)
		if cerr := env.Repo.CheckoutWorktree(rctx); cerr != nil {
			err = errors.Join(err, runner.Fatal(fmt.Errorf("restoring worktree: %w", cerr)))
		}
		if rerr := removeDeleted(rctx, env); rerr != nil {
			err = errors.Join(err, runner.Fatal(fmt.Errorf("restoring worktree: %w", rerr)))
		}
	}()

	if err := c.undisableAll(ctx, env); err != nil {
		return "", err
	}
	old, st, err := c.check(ctx, env, evaluatePolicy, "enall-pre", targets)
	if err != nil {
		return "", err
	}
	if st == runner.StatusFail {
		return "", errors.New("dtbs build failed with disables removed before the commit")
	}

	if err := env.Repo.CheckoutWorktree(ctx); err != nil {
		return "", runner.Fatal(fmt.Errorf("restoring worktree: %w", err))
	}
	if err := removeDeleted(ctx, env); err != nil {
		return "", runner.Fatal(fmt.Errorf("restoring worktree: %w", err))
	}
	if err := c.undisableAll(ctx, env); err != nil {
		return "", err
	}
	cur, st, err := c.check(ctx, env, evaluatePolicy, "enall", targets)
	if err != nil {
		return "", err
	}
	if st == runner.StatusFail {
		return cur, errors.New("dtbs build failed with disables removed")
	}

	return env.NewLines(ctx, old, cur)
}

// undisableAll drops status = "disabled"/"reserved" lines from the changed
// devicetree sources present in the tree.
func (c *Dtbs) undisableAll(ctx context.Context, env *runner.Env) error {
	paths, err := env.ChangedPaths(ctx, dtsFilter)
	if err != nil {
		return err
	}
	for _, p := range existing(env, paths) {
		full := filepath.Join(env.RepoRoot, p)
		data, err := os.ReadFile(full)
		if err != nil {
			return err
		}
		lines := strings.SplitAfter(string(data), "\n")
		kept := lines[:0]
		for _, l := range lines {
			if !disabledRe.MatchString(l) {
				kept = append(kept, l)
			}
		}
		if err := os.WriteFile(full, []byte(strings.Join(kept, "")), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// removeDeleted removes the files the commit deleted. A soft revert brings
// them back untracked, and neither checking out the worktree nor a hard
// reset removes them. Directories left empty are removed too.
func removeDeleted(ctx context.Context, env *runner.Env) error {
	files, err := env.Scanner.ChangedFiles(ctx, env.Commit.SHA)
	if err != nil {
		return err
	}
	for _, f := range files {
		if !f.Deleted {
			continue
		}
		full := filepath.Join(env.RepoRoot, f.Path)
		if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		root := filepath.Clean(env.RepoRoot)
		for dir := filepath.Dir(full); dir != root && strings.HasPrefix(dir, root); dir = filepath.Dir(dir) {
			if os.Remove(dir) != nil {
				break
			}
		}
	}
	return nil
}
