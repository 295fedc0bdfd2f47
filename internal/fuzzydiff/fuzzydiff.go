// SPDX-License-Identifier: AGPL-3.0-or-later

// Package fuzzydiff finds the lines of a checker report that are new
// relative to an earlier report of the same checker.
//
// Checker output is not byte-stable between runs: line numbers shift,
// paths and ordering drift. A line of the "after" report is treated as old
// when it is at least Threshold similar to some line of the "before" report,
// using difflib's ratio over the lines' runes.
package fuzzydiff

import (
	"context"
	"runtime"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/sync/errgroup"
)

// DefaultThreshold is the similarity at or above which two lines are the same.
const DefaultThreshold = 0.98

// Matcher holds the tuning knobs. The zero value uses DefaultThreshold and
// one worker per available CPU.
type Matcher struct {
	// Threshold in (0, 1]. Candidates scoring below it are reported as new.
	Threshold float64

	// Workers bounds the goroutines scoring candidates.
	Workers int
}

// NewLines is Matcher{}.NewLines.
func NewLines(ctx context.Context, before, after string) (string, error) {
	return Matcher{}.NewLines(ctx, before, after)
}

// NewLines returns the lines of after that have no near-duplicate in before,
// deduplicated and in first-occurrence order, joined back into one blob.
// An empty before returns after unchanged.
func (m Matcher) NewLines(ctx context.Context, before, after string) (string, error) {
	old := make(map[string]struct{})
	for _, l := range SplitLines(before) {
		old[l] = struct{}{}
	}
	if len(old) == 0 {
		return after, nil
	}

	// Identical candidates always score the same, so each is scored once.
	var candidates []string
	seen := make(map[string]struct{})
	for _, l := range SplitLines(after) {
		if _, ok := old[l]; ok {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		candidates = append(candidates, l)
	}
	if len(candidates) == 0 {
		return "", nil
	}

	oldRunes := make([][]string, 0, len(old))
	for l := range old {
		oldRunes = append(oldRunes, runes(l))
	}

	threshold := m.threshold()
	keep := make([]bool, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers())
	for i, c := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			keep[i] = !hasNearDuplicate(runes(c), oldRunes, threshold)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	var b strings.Builder
	for i, c := range candidates {
		if keep[i] {
			b.WriteString(c)
		}
	}
	return b.String(), nil
}

func (m Matcher) threshold() float64 {
	if m.Threshold <= 0 {
		return DefaultThreshold
	}
	return m.Threshold
}

func (m Matcher) workers() int {
	if m.Workers > 0 {
		return m.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// hasNearDuplicate reports whether any old line scores at least threshold
// against line. The cheap upper bounds are checked before the full ratio.
func hasNearDuplicate(line []string, old [][]string, threshold float64) bool {
	sm := difflib.NewMatcher(nil, line)
	for _, o := range old {
		sm.SetSeq1(o)
		if sm.RealQuickRatio() < threshold {
			continue
		}
		if sm.QuickRatio() < threshold {
			continue
		}
		if sm.Ratio() >= threshold {
			return true
		}
	}
	return false
}

// Ratio is the similarity of a and b in [0, 1].
func Ratio(a, b string) float64 {
	return difflib.NewMatcher(runes(a), runes(b)).Ratio()
}

// SplitLines splits s after every '\n', keeping the terminators. A trailing
// fragment without a newline is returned as its own line.
func SplitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func runes(s string) []string {
	return strings.Split(s, "")
}
