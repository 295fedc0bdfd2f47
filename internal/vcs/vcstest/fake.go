// Package vcstest provides an in-memory vcs.Repo for tests.
package vcstest

import (
	"context"
	"fmt"
	"sync"

	"github.com/bartekus/seriescheck/internal/vcs"
)

// Fake tracks HEAD and records every mutating operation. Hooks, when set,
// run before the corresponding operation and can fail it.
type Fake struct {
	Root    string
	Commits []vcs.Commit
	Files   map[string][]vcs.ChangedFile
	Dirty   bool

	OnCherryPick       func(sha string) error
	OnRevert           func(sha string) error
	OnCheckoutWorktree func() error

	mu   sync.Mutex
	head vcs.Ref
	ops  []string
}

// New returns a Fake with HEAD on branch at sha.
func New(branch, sha string) *Fake {
	return &Fake{head: vcs.Ref{Name: branch, SHA: sha}, Files: map[string][]vcs.ChangedFile{}}
}

// Head returns the current ref.
func (f *Fake) Head() vcs.Ref {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.head
}

// Ops returns the recorded operations in order.
func (f *Fake) Ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.ops))
	copy(out, f.ops)
	return out
}

func (f *Fake) record(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, fmt.Sprintf(format, args...))
}

func (f *Fake) Toplevel(ctx context.Context) (string, error) { return f.Root, nil }

func (f *Fake) ResolveBase(ctx context.Context, rev string) (string, error) {
	if rev == "" {
		return "", vcs.ErrNoUpstream
	}
	return rev, nil
}

func (f *Fake) CommitsAfter(ctx context.Context, base string) ([]vcs.Commit, error) {
	return f.Commits, nil
}

func (f *Fake) CurrentRef(ctx context.Context) (vcs.Ref, error) { return f.Head(), nil }

func (f *Fake) Detach(ctx context.Context, rev string) error {
	f.record("detach %s", rev)
	f.mu.Lock()
	f.head = vcs.Ref{SHA: rev}
	f.mu.Unlock()
	return nil
}

func (f *Fake) Restore(ctx context.Context, ref vcs.Ref) error {
	f.record("restore %s", ref)
	f.mu.Lock()
	f.head = ref
	f.mu.Unlock()
	return nil
}

func (f *Fake) IsClean(ctx context.Context) (bool, error) { return !f.Dirty, nil }

func (f *Fake) Discard(ctx context.Context) error {
	f.record("discard")
	return nil
}

func (f *Fake) CherryPick(ctx context.Context, sha string) error {
	f.record("cherry-pick %s", sha)
	if f.OnCherryPick != nil {
		if err := f.OnCherryPick(sha); err != nil {
			return err
		}
	}
	f.mu.Lock()
	f.head = vcs.Ref{SHA: sha}
	f.mu.Unlock()
	return nil
}

func (f *Fake) RevertNoCommit(ctx context.Context, sha string) error {
	f.record("revert %s", sha)
	if f.OnRevert != nil {
		return f.OnRevert(sha)
	}
	return nil
}

func (f *Fake) CheckoutWorktree(ctx context.Context) error {
	f.record("checkout-worktree")
	if f.OnCheckoutWorktree != nil {
		return f.OnCheckoutWorktree()
	}
	return nil
}

func (f *Fake) ChangedFiles(ctx context.Context, sha string) ([]vcs.ChangedFile, error) {
	return f.Files[sha], nil
}

func (f *Fake) Subject(ctx context.Context, sha string) (string, error) {
	for _, c := range f.Commits {
		if c.SHA == sha {
			return c.Subject, nil
		}
	}
	return "", nil
}

func (f *Fake) Message(ctx context.Context, sha string) (string, error) {
	s, err := f.Subject(ctx, sha)
	return s + "\n", err
}

var _ vcs.Repo = (*Fake)(nil)
