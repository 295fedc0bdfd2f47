// SPDX-License-Identifier: AGPL-3.0-or-later
package runner

import (
	"errors"
	"fmt"
	"sort"
)

// Registry is the immutable, ordered set of known checks.
type Registry struct {
	checks []Check
	byName map[string]Check
}

// NewRegistry registers checks in argument order.
func NewRegistry(checks ...Check) (*Registry, error) {
	r := &Registry{byName: make(map[string]Check, len(checks))}
	for _, c := range checks {
		name := c.Name()
		if name == "" {
			return nil, errors.New("check with empty name")
		}
		if _, dup := r.byName[name]; dup {
			return nil, fmt.Errorf("duplicate check %q", name)
		}
		for _, opt := range c.Options() {
			if opt.Name == "" || opt.Name == SkipOption {
				return nil, fmt.Errorf("check %s: invalid option name %q", name, opt.Name)
			}
		}
		r.byName[name] = c
		r.checks = append(r.checks, c)
	}
	return r, nil
}

// All returns the checks in registration order.
func (r *Registry) All() []Check {
	out := make([]Check, len(r.checks))
	copy(out, r.checks)
	return out
}

// Ordered returns the checks sorted by priority, registration order breaking
// ties.
func (r *Registry) Ordered() []Check {
	out := r.All()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority() < out[j].Priority()
	})
	return out
}

func (r *Registry) Lookup(name string) (Check, bool) {
	c, ok := r.byName[name]
	return c, ok
}

// OptionSpecs returns the options of the named check, skip first.
func (r *Registry) OptionSpecs(name string) []OptionSpec {
	c, ok := r.byName[name]
	if !ok {
		return nil
	}
	specs := []OptionSpec{{
		Name:    SkipOption,
		Kind:    OptionBool,
		Default: "false",
		Usage:   fmt.Sprintf("skip the %s check", name),
	}}
	return append(specs, c.Options()...)
}
