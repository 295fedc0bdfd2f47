// SPDX-License-Identifier: AGPL-3.0-or-later
package scanner

import (
	"slices"
	"strings"
)

// FilterOptions selects changed paths. An empty list places no constraint.
type FilterOptions struct {
	// ExcludeDirs drops paths having one of these names as a path segment:
	// "scripts" drops "scripts/dtc/x.c" but keeps "scripts_extra/x.c".
	ExcludeDirs []string

	// IncludePrefixes keeps paths under one of these repo-relative
	// prefixes, e.g. "Documentation/devicetree/bindings/".
	IncludePrefixes []string

	// IncludeExtensions keeps paths ending in one of these suffixes.
	IncludeExtensions []string
}

// Match reports whether path passes every criterion.
func (o FilterOptions) Match(path string) bool {
	if len(o.ExcludeDirs) > 0 {
		for _, seg := range strings.Split(path, "/") {
			if slices.Contains(o.ExcludeDirs, seg) {
				return false
			}
		}
	}
	if len(o.IncludePrefixes) > 0 && !slices.ContainsFunc(o.IncludePrefixes, func(p string) bool {
		return strings.HasPrefix(path, p)
	}) {
		return false
	}
	if len(o.IncludeExtensions) > 0 && !slices.ContainsFunc(o.IncludeExtensions, func(ext string) bool {
		return strings.HasSuffix(path, ext)
	}) {
		return false
	}
	return true
}

// FilterFiles returns the matching paths sorted and without duplicates.
func FilterFiles(paths []string, opts FilterOptions) []string {
	var out []string
	for _, p := range paths {
		if opts.Match(p) {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
