// Package gitrepo builds throwaway git repositories for tests.
package gitrepo

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// Init creates a repository in a fresh temp dir with a "main" branch and a
// committer identity, and returns its path.
func Init(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	Git(t, dir, "init", "-q", "-b", "main")
	Git(t, dir, "config", "user.name", "Test User")
	Git(t, dir, "config", "user.email", "test@example.com")
	Git(t, dir, "config", "commit.gpgsign", "false")
	return dir
}

// Commit writes files (path -> content) and commits them with msg. It
// returns the new HEAD.
func Commit(t *testing.T, dir, msg string, files map[string]string) string {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		Git(t, dir, "add", name)
	}
	Git(t, dir, "commit", "-q", "--allow-empty", "-m", msg)
	return Head(t, dir)
}

// Head returns the full SHA of HEAD.
func Head(t *testing.T, dir string) string {
	t.Helper()
	return Git(t, dir, "rev-parse", "HEAD")
}

// Branch returns the checked out branch name, or "" when detached.
func Branch(t *testing.T, dir string) string {
	t.Helper()
	cmd := exec.Command("git", "symbolic-ref", "--short", "-q", "HEAD")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// Git runs git in dir and fails the test on error. The trimmed stdout is
// returned.
func Git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v failed: %v\nOutput: %s", args, err, out)
	}
	return strings.TrimSpace(string(out))
}
