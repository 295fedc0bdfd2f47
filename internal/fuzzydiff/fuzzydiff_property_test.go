package fuzzydiff

import (
	"context"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func TestNewLinesProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)
	ctx := context.Background()

	properties.Property("a report against itself has nothing new", prop.ForAll(
		func(lines []string) bool {
			x := joinLines(lines)
			got, err := NewLines(ctx, x, x)
			return err == nil && got == ""
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.Property("an empty baseline returns after unchanged", prop.ForAll(
		func(lines []string) bool {
			y := joinLines(lines)
			got, err := NewLines(ctx, "", y)
			return err == nil && got == y
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.Property("new lines come from after, once each, in order", prop.ForAll(
		func(before, after []string) bool {
			got, err := NewLines(ctx, joinLines(before), joinLines(after))
			if err != nil {
				return false
			}
			if len(before) == 0 {
				return true
			}

			afterLines := SplitLines(joinLines(after))
			pos := 0
			seen := map[string]bool{}
			for _, l := range SplitLines(got) {
				if seen[l] {
					return false
				}
				seen[l] = true
				for pos < len(afterLines) && afterLines[pos] != l {
					pos++
				}
				if pos == len(afterLines) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
