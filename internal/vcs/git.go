package vcs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/bartekus/seriescheck/internal/execx"
)

// ErrNoUpstream is returned by ResolveBase when no base was given and the
// current branch has no upstream to derive one from.
var ErrNoUpstream = errors.New("no base given and current branch has no upstream")

// Git drives the git CLI in a single working tree.
type Git struct {
	dir  string
	exec execx.Runner
}

// NewGit returns a Git rooted at dir. A nil runner uses execx.OS.
func NewGit(dir string, r execx.Runner) *Git {
	if r == nil {
		r = execx.OS{}
	}
	return &Git{dir: dir, exec: r}
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	res, err := g.exec.Run(ctx, execx.Cmd{
		Argv: append([]string{"git"}, args...),
		Dir:  g.dir,
	})
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		msg := strings.TrimSpace(string(res.Stderr))
		if msg == "" {
			msg = fmt.Sprintf("exit status %d", res.ExitCode)
		}
		return "", fmt.Errorf("git %s failed: %s", strings.Join(args, " "), msg)
	}
	return string(res.Stdout), nil
}

func (g *Git) Toplevel(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("resolving repository root: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// ResolveBase turns rev into a commit id. With an empty rev the base is the
// merge-base of HEAD and its upstream.
func (g *Git) ResolveBase(ctx context.Context, rev string) (string, error) {
	if rev != "" {
		out, err := g.run(ctx, "rev-parse", "--verify", "--quiet", rev+"^{commit}")
		if err != nil {
			return "", fmt.Errorf("resolving base %q: %w", rev, err)
		}
		return strings.TrimSpace(out), nil
	}

	if _, err := g.run(ctx, "rev-parse", "--verify", "--quiet", "@{upstream}"); err != nil {
		return "", ErrNoUpstream
	}
	out, err := g.run(ctx, "merge-base", "HEAD", "@{upstream}")
	if err != nil {
		return "", fmt.Errorf("finding merge-base with upstream: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// CommitsAfter lists the commits in base..HEAD, oldest first.
func (g *Git) CommitsAfter(ctx context.Context, base string) ([]Commit, error) {
	out, err := g.run(ctx, "log", "--reverse", "--format=%H%x00%s", base+"..HEAD")
	if err != nil {
		return nil, fmt.Errorf("listing commits after %s: %w", Abbrev(base, 12), err)
	}

	var commits []Commit
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		sha, subject, _ := strings.Cut(line, "\x00")
		commits = append(commits, Commit{SHA: sha, Subject: subject})
	}
	return commits, nil
}

func (g *Git) CurrentRef(ctx context.Context) (Ref, error) {
	sha, err := g.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return Ref{}, err
	}
	ref := Ref{SHA: strings.TrimSpace(sha)}

	// symbolic-ref exits non-zero when HEAD is detached
	if name, err := g.run(ctx, "symbolic-ref", "--short", "-q", "HEAD"); err == nil {
		ref.Name = strings.TrimSpace(name)
	}
	return ref, nil
}

func (g *Git) Detach(ctx context.Context, rev string) error {
	_, err := g.run(ctx, "checkout", "-q", "--detach", rev)
	return err
}

// Restore checks out ref again, reattaching HEAD when ref names a branch.
func (g *Git) Restore(ctx context.Context, ref Ref) error {
	if ref.Name != "" {
		_, err := g.run(ctx, "checkout", "-q", ref.Name)
		return err
	}
	_, err := g.run(ctx, "checkout", "-q", "--detach", ref.SHA)
	return err
}

// IsClean reports whether tracked files match HEAD.
func (g *Git) IsClean(ctx context.Context) (bool, error) {
	out, err := g.run(ctx, "status", "--porcelain", "--untracked-files=no")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) == "", nil
}

// Discard aborts a pending cherry-pick and resets tracked files to HEAD.
func (g *Git) Discard(ctx context.Context) error {
	if _, err := g.run(ctx, "rev-parse", "-q", "--verify", "CHERRY_PICK_HEAD"); err == nil {
		if _, err := g.run(ctx, "cherry-pick", "--abort"); err != nil {
			return err
		}
	}
	_, err := g.run(ctx, "reset", "-q", "--hard")
	return err
}

// CherryPick applies sha on top of HEAD. A conflicting pick is aborted
// before the error is returned.
func (g *Git) CherryPick(ctx context.Context, sha string) error {
	if _, err := g.run(ctx, "cherry-pick", "--allow-empty", sha); err != nil {
		_, _ = g.run(ctx, "cherry-pick", "--abort")
		return fmt.Errorf("applying %s: %w", Abbrev(sha, 12), err)
	}
	return nil
}

// RevertNoCommit undoes sha in the working tree only and leaves the index
// matching HEAD.
func (g *Git) RevertNoCommit(ctx context.Context, sha string) error {
	if _, err := g.run(ctx, "revert", "--no-commit", sha); err != nil {
		return fmt.Errorf("reverting %s: %w", Abbrev(sha, 12), err)
	}
	if _, err := g.run(ctx, "reset", "-q"); err != nil {
		return err
	}
	return nil
}

// CheckoutWorktree drops unstaged changes to tracked files.
func (g *Git) CheckoutWorktree(ctx context.Context) error {
	_, err := g.run(ctx, "checkout", "-q", "--", ".")
	return err
}

// ChangedFiles parses the commit's patch and returns the touched paths in
// patch order.
func (g *Git) ChangedFiles(ctx context.Context, sha string) ([]ChangedFile, error) {
	out, err := g.run(ctx, "-c", "core.quotePath=false",
		"diff-tree", "-p", "-r", "--root", "--no-commit-id", "--no-color", "--no-ext-diff", sha)
	if err != nil {
		return nil, err
	}
	return ParseChangedFiles([]byte(out))
}

// ParseChangedFiles extracts the paths from a git patch. Entries without
// hunks or file headers, such as mode changes, are recovered from their
// "diff --git" line.
func ParseChangedFiles(patch []byte) ([]ChangedFile, error) {
	if len(strings.TrimSpace(string(patch))) == 0 {
		return nil, nil
	}
	fds, err := diff.ParseMultiFileDiff(patch)
	if err != nil {
		return nil, fmt.Errorf("parsing patch: %w", err)
	}

	parsed := make(map[string]ChangedFile, len(fds))
	var order []string
	for _, fd := range fds {
		if fd.OrigName == "" && fd.NewName == "" {
			continue
		}
		orig, added := stripPrefix(fd.OrigName, "a/")
		name, deleted := stripPrefix(fd.NewName, "b/")
		cf := ChangedFile{Path: name, Added: added, Deleted: deleted}
		if deleted {
			cf.Path = orig
		}
		if _, dup := parsed[cf.Path]; !dup {
			order = append(order, cf.Path)
		}
		parsed[cf.Path] = cf
	}

	files := make([]ChangedFile, 0, len(order))
	for _, line := range strings.Split(string(patch), "\n") {
		path, ok := headerPath(line)
		if !ok {
			continue
		}
		cf, found := parsed[path]
		if !found {
			cf = ChangedFile{Path: path}
		}
		delete(parsed, path)
		files = append(files, cf)
	}
	for _, path := range order {
		if cf, left := parsed[path]; left {
			files = append(files, cf)
		}
	}
	return files, nil
}

// headerPath returns the path of a "diff --git a/<path> b/<path>" line.
// Without rename detection both halves are the same path.
func headerPath(line string) (string, bool) {
	rest, ok := strings.CutPrefix(line, "diff --git ")
	if !ok || len(rest) < 7 || (len(rest)-5)%2 != 0 {
		return "", false
	}
	n := (len(rest) - 5) / 2
	path := rest[2 : 2+n]
	if rest != "a/"+path+" b/"+path {
		return "", false
	}
	return path, true
}

// stripPrefix removes git's a/ or b/ prefix. The boolean reports /dev/null.
func stripPrefix(name, prefix string) (string, bool) {
	if name == "/dev/null" {
		return "", true
	}
	return strings.TrimPrefix(name, prefix), false
}

func (g *Git) Subject(ctx context.Context, sha string) (string, error) {
	out, err := g.run(ctx, "log", "-1", "--format=%s", sha)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (g *Git) Message(ctx context.Context, sha string) (string, error) {
	return g.run(ctx, "log", "-1", "--format=%B", sha)
}
