// SPDX-License-Identifier: AGPL-3.0-or-later

// Package checks holds the built-in regression checks.
package checks

import (
	"github.com/bartekus/seriescheck/internal/runner"
)

// All returns the built-in checks in registration order. Equal priorities
// run in this order.
func All() []runner.Check {
	return []runner.Check{
		NewCheckpatch(),
		NewDtSchema(),
		NewDtbs(),
		NewCompile(),
	}
}

// NewRegistry builds the registry of built-in checks.
func NewRegistry() (*runner.Registry, error) {
	return runner.NewRegistry(All()...)
}
