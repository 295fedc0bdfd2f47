package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bartekus/seriescheck/cmd/seriescheck/internal/clierr"
	"github.com/bartekus/seriescheck/internal/testutil/gitrepo"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// fakeCheckpatch warns about every commit whose subject mentions "bad".
const fakeCheckpatch = `#!/bin/sh
if git log -1 --format=%s | grep -q bad; then
	echo "drivers/foo.c:1: WARNING: bad style"
	exit 1
fi
exit 0
`

// kernelRepo creates a repository whose base commit carries a fake
// checkpatch.pl, chdirs into it and returns its path and base commit.
func kernelRepo(t *testing.T) (string, string) {
	t.Helper()
	dir := gitrepo.Init(t)
	script := filepath.Join(dir, "scripts", "checkpatch.pl")
	require.NoError(t, os.MkdirAll(filepath.Dir(script), 0o755))
	require.NoError(t, os.WriteFile(script, []byte(fakeCheckpatch), 0o755))
	gitrepo.Git(t, dir, "add", "scripts/checkpatch.pl")
	base := gitrepo.Commit(t, dir, "base", map[string]string{"README": "linux\n"})
	t.Chdir(dir)
	return dir, base
}

func TestCLIContract(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)

	for _, c := range []string{"checks", "completion", "help", "report", "reset", "test", "version"} {
		assert.Contains(t, out, c, "expected top-level command %q in root help", c)
	}
	for _, f := range []string{"--debug", "--quiet", "--log-format", "--config", "--no-color"} {
		assert.Contains(t, out, f)
	}
}

func TestCLICommandTestHelp(t *testing.T) {
	out, err := execute(t, "test", "--help")
	require.NoError(t, err)

	for _, f := range []string{
		"--base", "--fail-on-warning", "--jobs",
		"--checkpatch-skip", "--checkpatch-strict",
		"--dtschema-skip", "--dtbs-filter", "--compile-config",
	} {
		assert.Contains(t, out, f)
	}
}

func TestChecks_JSON(t *testing.T) {
	out, err := execute(t, "checks", "--json")
	require.NoError(t, err)

	var got struct {
		Checks []checkItem `json:"checks"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))

	var names []string
	for _, c := range got.Checks {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"checkpatch", "dtschema", "dtbs", "compile"}, names)
	assert.Equal(t, "--compile-config", got.Checks[3].Options[1].Flag)
	assert.Equal(t, "allyesconfig", got.Checks[3].Options[1].Default)
}

func TestVersion(t *testing.T) {
	t.Setenv("SERIESCHECK_VERSION", "1.2.3")
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "seriescheck version 1.2.3\n", out)
}

func TestTest_EndToEnd(t *testing.T) {
	dir, base := kernelRepo(t)
	gitrepo.Commit(t, dir, "docs: fix typo", map[string]string{"README": "Linux\n"})
	gitrepo.Commit(t, dir, "drivers: bad change", map[string]string{"drivers/foo.txt": "x\n"})
	head := gitrepo.Head(t, dir)

	out, err := execute(t, "test", "--base", base, "--log-format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "2 commit(s) tested: 1 passed, 1 warned, 0 failed, 0 skipped")

	assert.Equal(t, "main", gitrepo.Branch(t, dir))
	assert.Equal(t, head, gitrepo.Head(t, dir))

	_, err = execute(t, "test", "--base", base, "--fail-on-warning")
	require.Error(t, err)
	assert.Equal(t, clierr.ExitFindings, clierr.ExitCodeOf(err))

	report, err := execute(t, "report")
	require.NoError(t, err)
	assert.Contains(t, report, "checkpatch warning drivers: bad change")
	assert.Contains(t, report, "| drivers/foo.c:1: WARNING: bad style")

	raw, err := execute(t, "report", "--json")
	require.NoError(t, err)
	var rep reportJSON
	require.NoError(t, json.Unmarshal([]byte(raw), &rep))
	require.NotNil(t, rep.LastRun)
	assert.Equal(t, "warning", rep.LastRun.Status)
	assert.Len(t, rep.Results, 2)

	_, err = execute(t, "reset")
	require.NoError(t, err)
	report, err = execute(t, "report")
	require.NoError(t, err)
	assert.Contains(t, report, "No run state found.")
}

func TestTest_SkipFlagAndConfig(t *testing.T) {
	dir, base := kernelRepo(t)
	gitrepo.Commit(t, dir, "bad change", map[string]string{"notes": "x\n"})

	out, err := execute(t, "test", "--base", base, "--checkpatch-skip")
	require.NoError(t, err)
	assert.Contains(t, out, "1 commit(s) tested: 0 passed, 0 warned, 0 failed, 0 skipped")

	cfg := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("checks:\n  checkpatch:\n    skip: true\n"), 0o644))
	out, err = execute(t, "test", "--base", base, "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "0 warned")

	// Flags win over the file.
	out, err = execute(t, "test", "--base", base, "--config", cfg, "--checkpatch-skip=false")
	require.NoError(t, err)
	assert.Contains(t, out, "1 warned")
}

func TestTest_Errors(t *testing.T) {
	t.Run("dirty tree", func(t *testing.T) {
		dir, base := kernelRepo(t)
		gitrepo.Commit(t, dir, "change", map[string]string{"notes": "x\n"})
		require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("edited\n"), 0o644))

		_, err := execute(t, "test", "--base", base)
		require.Error(t, err)
		assert.Equal(t, clierr.ExitFatal, clierr.ExitCodeOf(err))
		assert.Equal(t, "main", gitrepo.Branch(t, dir))
	})

	t.Run("no upstream", func(t *testing.T) {
		kernelRepo(t)
		_, err := execute(t, "test")
		require.Error(t, err)
		assert.Equal(t, clierr.ExitUsage, clierr.ExitCodeOf(err))
	})

	t.Run("unknown check in config", func(t *testing.T) {
		dir, base := kernelRepo(t)
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".seriescheck.yaml"), []byte("checks:\n  sparse:\n    skip: true\n"), 0o644))
		_, err := execute(t, "test", "--base", base)
		require.Error(t, err)
		assert.Equal(t, clierr.ExitUsage, clierr.ExitCodeOf(err))
	})

	t.Run("bad log format", func(t *testing.T) {
		_, err := execute(t, "checks", "--log-format", "xml")
		require.Error(t, err)
		assert.Equal(t, clierr.ExitUsage, clierr.ExitCodeOf(err))
	})
}
