// SPDX-License-Identifier: AGPL-3.0-or-later
package runner

import (
	"fmt"
	"sort"
	"strconv"
)

// OptionKind is the type of a check option.
type OptionKind int

const (
	OptionBool OptionKind = iota
	OptionString
)

func (k OptionKind) String() string {
	if k == OptionBool {
		return "bool"
	}
	return "string"
}

// SkipOption is implicitly declared by every check.
const SkipOption = "skip"

// OptionSpec declares one option of a check.
type OptionSpec struct {
	Name    string
	Kind    OptionKind
	Default string
	Usage   string
}

// Values are raw option values keyed by check name, then option name.
type Values map[string]map[string]string

// Options is the resolved, read-only option mapping.
type Options struct {
	values Values
}

// String returns the value of check.opt, or "" if unset.
func (o Options) String(check, opt string) string {
	return o.values[check][opt]
}

// Bool returns check.opt as a bool. Values are validated when resolved.
func (o Options) Bool(check, opt string) bool {
	b, _ := strconv.ParseBool(o.values[check][opt])
	return b
}

// Skipped reports whether check was disabled by its skip option.
func (o Options) Skipped(check string) bool {
	return o.Bool(check, SkipOption)
}

// ResolveOptions starts from the declared defaults of every check in reg
// and applies layers in order, later layers winning. Unknown checks,
// unknown options and malformed bools are errors.
func ResolveOptions(reg *Registry, layers ...Values) (Options, error) {
	resolved := make(Values)
	specs := make(map[string]map[string]OptionSpec)
	for _, c := range reg.All() {
		name := c.Name()
		resolved[name] = make(map[string]string)
		specs[name] = make(map[string]OptionSpec)
		for _, spec := range reg.OptionSpecs(name) {
			specs[name][spec.Name] = spec
			resolved[name][spec.Name] = spec.Default
		}
	}

	for _, layer := range layers {
		checks := make([]string, 0, len(layer))
		for check := range layer {
			checks = append(checks, check)
		}
		sort.Strings(checks)

		for _, check := range checks {
			known, ok := specs[check]
			if !ok {
				return Options{}, fmt.Errorf("unknown check %q", check)
			}
			for opt, val := range layer[check] {
				spec, ok := known[opt]
				if !ok {
					return Options{}, fmt.Errorf("check %s has no option %q", check, opt)
				}
				if spec.Kind == OptionBool {
					b, err := strconv.ParseBool(val)
					if err != nil {
						return Options{}, fmt.Errorf("option %s.%s: %q is not a bool", check, opt, val)
					}
					val = strconv.FormatBool(b)
				}
				resolved[check][opt] = val
			}
		}
	}
	return Options{values: resolved}, nil
}
