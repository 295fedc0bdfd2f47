package fuzzydiff

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bartekus/seriescheck/internal/testutil/golden"
)

func TestNewLines(t *testing.T) {
	tests := []struct {
		name     string
		matcher  Matcher
		before   string
		after    string
		expected string
	}{
		{
			name:     "empty baseline returns after unchanged",
			before:   "",
			after:    "x\ny\nx\n",
			expected: "x\ny\nx\n",
		},
		{
			name:     "identical reports",
			before:   "a\nb\nc\n",
			after:    "a\nb\nc\n",
			expected: "",
		},
		{
			name:     "appended finding",
			before:   "a\nb\n",
			after:    "a\nb\nc\n",
			expected: "c\n",
		},
		{
			name:     "duplicates collapse to first occurrence",
			before:   "old\n",
			after:    "zzz\nyyy\nzzz\n",
			expected: "zzz\nyyy\n",
		},
		{
			name:     "order follows after",
			before:   "old\n",
			after:    "second\nfirst\n",
			expected: "second\nfirst\n",
		},
		{
			name:     "near duplicate kept at default threshold when short",
			before:   "warning: foo at line 10",
			after:    "warning: foo at line 11",
			expected: "warning: foo at line 11",
		},
		{
			name:     "near duplicate suppressed below its ratio",
			matcher:  Matcher{Threshold: 0.95},
			before:   "warning: foo at line 10",
			after:    "warning: foo at line 11",
			expected: "",
		},
		{
			name:     "unrelated line retained",
			matcher:  Matcher{Threshold: 0.95},
			before:   "warning: foo at line 10",
			after:    "warning: bar unrelated message",
			expected: "warning: bar unrelated message",
		},
		{
			name:     "terminator distinguishes otherwise equal lines",
			before:   "c",
			after:    "c\n",
			expected: "c\n",
		},
		{
			name:     "reordered report is not new",
			before:   "one\ntwo\nthree\n",
			after:    "three\none\ntwo\n",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.matcher.NewLines(context.Background(), tt.before, tt.after)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNewLines_LongWarningShiftIsSuppressed(t *testing.T) {
	before := "drivers/soc/qcom/smem.c:1021:12: warning: 'qcom_smem_get_free_space' defined but not used\n"
	after := "drivers/soc/qcom/smem.c:1022:12: warning: 'qcom_smem_get_free_space' defined but not used\n"

	assert.GreaterOrEqual(t, Ratio(before, after), DefaultThreshold)

	got, err := NewLines(context.Background(), before, after)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNewLines_CompilerReport(t *testing.T) {
	dir := golden.Dir(t)
	before := golden.Input(t, dir, "compile-before.txt")
	after := golden.Input(t, dir, "compile-after.txt")

	got, err := NewLines(context.Background(), before, after)
	require.NoError(t, err)
	golden.Assert(t, dir, "compile-new", got)
}

func TestNewLines_ParallelKeepsOrder(t *testing.T) {
	var before, after strings.Builder
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&before, "baseline diagnostic number %03d\n", i)
	}
	var want strings.Builder
	for i := 0; i < 200; i++ {
		line := fmt.Sprintf("%d %s\n", i, strings.Repeat(string(rune('a'+i%26)), 10+i%7))
		after.WriteString(line)
		want.WriteString(line)
	}

	for _, workers := range []int{1, 3, 16} {
		got, err := Matcher{Workers: workers}.NewLines(context.Background(), before.String(), after.String())
		require.NoError(t, err)
		assert.Equal(t, want.String(), got, "workers=%d", workers)
	}
}

func TestNewLines_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLines(ctx, "a\n", "b\n")
	require.ErrorIs(t, err, context.Canceled)
}

func TestRatio(t *testing.T) {
	assert.Equal(t, 1.0, Ratio("same", "same"))
	assert.Equal(t, 0.0, Ratio("abc", "xyz"))
	assert.InDelta(t, 44.0/46.0, Ratio("warning: foo at line 10", "warning: foo at line 11"), 1e-9)
	assert.Equal(t, 1.0, Ratio("", ""))
}

func TestSplitLines(t *testing.T) {
	assert.Nil(t, SplitLines(""))
	assert.Equal(t, []string{"a\n", "b\n"}, SplitLines("a\nb\n"))
	assert.Equal(t, []string{"a\n", "b"}, SplitLines("a\nb"))
	assert.Equal(t, []string{"\n", "\n"}, SplitLines("\n\n"))
	assert.Equal(t, []string{"a\r\n"}, SplitLines("a\r\n"))
}
