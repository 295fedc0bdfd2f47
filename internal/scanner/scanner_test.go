// SPDX-License-Identifier: AGPL-3.0-or-later
package scanner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bartekus/seriescheck/internal/testutil/gitrepo"
	"github.com/bartekus/seriescheck/internal/vcs"
)

func TestFilterFiles(t *testing.T) {
	tests := []struct {
		name     string
		paths    []string
		opts     FilterOptions
		expected []string
	}{
		{
			name:  "exclude scripts",
			paths: []string{"a.c", "scripts/dtc/x.c", "drivers/good.c"},
			opts: FilterOptions{
				ExcludeDirs: []string{"scripts"},
			},
			expected: []string{"a.c", "drivers/good.c"},
		},
		{
			name:  "segment matching only",
			paths: []string{"scripts_extra/a", "myscripts/b"},
			opts: FilterOptions{
				ExcludeDirs: []string{"scripts"},
			},
			expected: []string{"myscripts/b", "scripts_extra/a"},
		},
		{
			name:  "extension filter",
			paths: []string{"a.c", "b.h", "c.dts", "d.dtsi"},
			opts: FilterOptions{
				IncludeExtensions: []string{".dts", ".dtsi"},
			},
			expected: []string{"c.dts", "d.dtsi"},
		},
		{
			name: "prefix filter",
			paths: []string{
				"Documentation/devicetree/bindings/arm/qcom.yaml",
				"Documentation/process/howto.rst",
				"drivers/a.c",
			},
			opts: FilterOptions{
				IncludePrefixes: []string{"Documentation/devicetree/bindings/"},
			},
			expected: []string{"Documentation/devicetree/bindings/arm/qcom.yaml"},
		},
		{
			name:  "prefix and extension",
			paths: []string{"Documentation/devicetree/bindings/a.yaml", "Documentation/devicetree/bindings/b.txt", "c.yaml"},
			opts: FilterOptions{
				IncludePrefixes:   []string{"Documentation/devicetree/bindings/"},
				IncludeExtensions: []string{".yaml"},
			},
			expected: []string{"Documentation/devicetree/bindings/a.yaml"},
		},
		{
			name:     "sorted without duplicates",
			paths:    []string{"b.c", "a.c", "b.c"},
			expected: []string{"a.c", "b.c"},
		},
		{
			name:     "empty input",
			paths:    nil,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterFiles(tt.paths, tt.opts)
			assert.Equal(t, tt.expected, got)
		})
	}
}

type countingLister struct {
	calls int
	files map[string][]vcs.ChangedFile
}

func (c *countingLister) ChangedFiles(ctx context.Context, sha string) ([]vcs.ChangedFile, error) {
	c.calls++
	return c.files[sha], nil
}

func TestScanner_Caches(t *testing.T) {
	l := &countingLister{files: map[string][]vcs.ChangedFile{
		"c1": {{Path: "drivers/a.c"}, {Path: "arch/arm64/boot/dts/qcom/x.dts"}},
	}}
	s := New(l)
	ctx := context.Background()

	first, err := s.ChangedFiles(ctx, "c1")
	require.NoError(t, err)
	second, err := s.ChangedFiles(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, l.calls)

	empty, err := s.ChangedFiles(ctx, "c2")
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.Equal(t, 2, l.calls)

	dts, err := s.ChangedPaths(ctx, "c1", FilterOptions{IncludeExtensions: []string{".dts"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"arch/arm64/boot/dts/qcom/x.dts"}, dts)
	assert.Equal(t, 2, l.calls)
}

func TestScanner_Git(t *testing.T) {
	dir := gitrepo.Init(t)
	ctx := context.Background()

	gitrepo.Commit(t, dir, "base", map[string]string{"main.c": "int main;\n"})
	sha := gitrepo.Commit(t, dir, "change", map[string]string{
		"main.c":   "int main(void);\n",
		"pkg/u.h":  "#define U\n",
		"pkg/u.c":  "int u;\n",
		"notes.md": "x\n",
	})

	s := New(vcs.NewGit(dir, nil))
	c, err := s.ChangedPaths(ctx, sha, FilterOptions{IncludeExtensions: []string{".c"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"main.c", "pkg/u.c"}, c)
}
