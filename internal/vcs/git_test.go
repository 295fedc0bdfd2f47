package vcs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bartekus/seriescheck/internal/testutil/gitrepo"
)

func TestGit_CommitsAfter(t *testing.T) {
	dir := gitrepo.Init(t)
	ctx := context.Background()

	base := gitrepo.Commit(t, dir, "base", map[string]string{"README": "hello\n"})
	c1 := gitrepo.Commit(t, dir, "first change", map[string]string{"a.c": "int a;\n"})
	c2 := gitrepo.Commit(t, dir, "second change", map[string]string{"b.dts": "/ {};\n"})

	g := NewGit(dir, nil)
	commits, err := g.CommitsAfter(ctx, base)
	require.NoError(t, err)

	want := []Commit{{SHA: c1, Subject: "first change"}, {SHA: c2, Subject: "second change"}}
	if diff := cmp.Diff(want, commits); diff != "" {
		t.Errorf("CommitsAfter mismatch (-want +got):\n%s", diff)
	}

	none, err := g.CommitsAfter(ctx, c2)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGit_DetachRestore(t *testing.T) {
	dir := gitrepo.Init(t)
	ctx := context.Background()

	base := gitrepo.Commit(t, dir, "base", map[string]string{"README": "hello\n"})
	gitrepo.Commit(t, dir, "tip", map[string]string{"README": "world\n"})

	g := NewGit(dir, nil)
	ref, err := g.CurrentRef(ctx)
	require.NoError(t, err)
	assert.Equal(t, "main", ref.Name)

	require.NoError(t, g.Detach(ctx, base))
	assert.Equal(t, "", gitrepo.Branch(t, dir))
	assert.Equal(t, base, gitrepo.Head(t, dir))

	detached, err := g.CurrentRef(ctx)
	require.NoError(t, err)
	assert.Empty(t, detached.Name)
	assert.Equal(t, base, detached.SHA)

	require.NoError(t, g.Restore(ctx, ref))
	assert.Equal(t, "main", gitrepo.Branch(t, dir))
	assert.Equal(t, ref.SHA, gitrepo.Head(t, dir))
}

func TestGit_CherryPickConflictIsAborted(t *testing.T) {
	dir := gitrepo.Init(t)
	ctx := context.Background()

	base := gitrepo.Commit(t, dir, "base", map[string]string{"f": "one\n"})
	change := gitrepo.Commit(t, dir, "change", map[string]string{"f": "two\n"})

	g := NewGit(dir, nil)
	require.NoError(t, g.Detach(ctx, base))
	gitrepo.Commit(t, dir, "diverge", map[string]string{"f": "three\n"})

	err := g.CherryPick(ctx, change)
	require.Error(t, err)

	clean, err := g.IsClean(ctx)
	require.NoError(t, err)
	assert.True(t, clean, "aborted cherry-pick must leave a clean tree")
}

func TestGit_RevertNoCommitAndCheckout(t *testing.T) {
	dir := gitrepo.Init(t)
	ctx := context.Background()

	gitrepo.Commit(t, dir, "base", map[string]string{"f": "one\n"})
	change := gitrepo.Commit(t, dir, "change", map[string]string{"f": "two\n"})

	g := NewGit(dir, nil)
	require.NoError(t, g.RevertNoCommit(ctx, change))

	data, err := os.ReadFile(filepath.Join(dir, "f"))
	require.NoError(t, err)
	assert.Equal(t, "one\n", string(data))
	assert.Equal(t, change, gitrepo.Head(t, dir))

	require.NoError(t, g.CheckoutWorktree(ctx))
	data, err = os.ReadFile(filepath.Join(dir, "f"))
	require.NoError(t, err)
	assert.Equal(t, "two\n", string(data))
}

func TestGit_DiscardResetsTrackedFiles(t *testing.T) {
	dir := gitrepo.Init(t)
	ctx := context.Background()
	gitrepo.Commit(t, dir, "base", map[string]string{"f": "one\n"})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), []byte("dirty\n"), 0o644))

	g := NewGit(dir, nil)
	clean, err := g.IsClean(ctx)
	require.NoError(t, err)
	assert.False(t, clean)

	require.NoError(t, g.Discard(ctx))
	clean, err = g.IsClean(ctx)
	require.NoError(t, err)
	assert.True(t, clean)
}

func TestGit_ChangedFilesAndMessages(t *testing.T) {
	dir := gitrepo.Init(t)
	ctx := context.Background()

	gitrepo.Commit(t, dir, "base", map[string]string{"keep.c": "int k;\n", "gone.c": "int g;\n"})
	gitrepo.Git(t, dir, "rm", "-q", "gone.c")
	sha := gitrepo.Commit(t, dir, "subject line\n\nbody text", map[string]string{
		"keep.c":                "int k2;\n",
		"arch/arm64/boot/x.dts": "/ {};\n",
	})

	g := NewGit(dir, nil)
	files, err := g.ChangedFiles(ctx, sha)
	require.NoError(t, err)

	byPath := map[string]ChangedFile{}
	for _, f := range files {
		byPath[f.Path] = f
	}
	require.Len(t, byPath, 3)
	assert.True(t, byPath["arch/arm64/boot/x.dts"].Added)
	assert.True(t, byPath["gone.c"].Deleted)
	assert.False(t, byPath["keep.c"].Added || byPath["keep.c"].Deleted)

	subject, err := g.Subject(ctx, sha)
	require.NoError(t, err)
	assert.Equal(t, "subject line", subject)

	msg, err := g.Message(ctx, sha)
	require.NoError(t, err)
	assert.Contains(t, msg, "body text")
}

func TestGit_ResolveBase(t *testing.T) {
	dir := gitrepo.Init(t)
	ctx := context.Background()
	base := gitrepo.Commit(t, dir, "base", nil)

	g := NewGit(dir, nil)
	got, err := g.ResolveBase(ctx, "HEAD")
	require.NoError(t, err)
	assert.Equal(t, base, got)

	_, err = g.ResolveBase(ctx, "")
	require.ErrorIs(t, err, ErrNoUpstream)

	_, err = g.ResolveBase(ctx, "no-such-rev")
	require.Error(t, err)

	top, err := g.Toplevel(ctx)
	require.NoError(t, err)
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, resolved, top)
}

func TestParseChangedFiles(t *testing.T) {
	patch := `diff --git a/drivers/foo.c b/drivers/foo.c
index 1111111..2222222 100644
--- a/drivers/foo.c
+++ b/drivers/foo.c
@@ -1 +1 @@
-int a;
+int b;
diff --git a/new.yaml b/new.yaml
new file mode 100644
index 0000000..3333333
--- /dev/null
+++ b/new.yaml
@@ -0,0 +1 @@
+x: 1
`
	files, err := ParseChangedFiles([]byte(patch))
	require.NoError(t, err)
	assert.Equal(t, []ChangedFile{
		{Path: "drivers/foo.c"},
		{Path: "new.yaml", Added: true},
	}, files)

	empty, err := ParseChangedFiles(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestParseChangedFiles_ModeOnly(t *testing.T) {
	patch := `diff --git a/scripts/run.sh b/scripts/run.sh
old mode 100644
new mode 100755
diff --git a/drivers/foo.c b/drivers/foo.c
index 1111111..2222222 100644
--- a/drivers/foo.c
+++ b/drivers/foo.c
@@ -1 +1 @@
-int a;
+int b;
diff --git a/tools/gen.py b/tools/gen.py
old mode 100755
new mode 100644
`
	files, err := ParseChangedFiles([]byte(patch))
	require.NoError(t, err)
	assert.Equal(t, []ChangedFile{
		{Path: "scripts/run.sh"},
		{Path: "drivers/foo.c"},
		{Path: "tools/gen.py"},
	}, files)
}

func TestGit_ChangedFilesModeOnly(t *testing.T) {
	dir := gitrepo.Init(t)
	gitrepo.Commit(t, dir, "base", map[string]string{"a.c": "int a;\n"})
	gitrepo.Git(t, dir, "update-index", "--chmod=+x", "a.c")
	gitrepo.Git(t, dir, "commit", "-q", "-m", "make a.c executable")
	sha := gitrepo.Head(t, dir)

	files, err := NewGit(dir, nil).ChangedFiles(context.Background(), sha)
	require.NoError(t, err)
	assert.Equal(t, []ChangedFile{{Path: "a.c"}}, files)
}

func TestCommit_Short(t *testing.T) {
	c := Commit{SHA: "0123456789abcdef0123"}
	assert.Equal(t, "0123456789ab", c.Short())
	assert.Equal(t, "abc", Abbrev("abc", 12))
	assert.Equal(t, "main", Ref{Name: "main", SHA: "deadbeef"}.String())
	assert.Equal(t, "deadbeef", Ref{SHA: "deadbeef"}.String())
}
