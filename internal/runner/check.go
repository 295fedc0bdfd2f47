// SPDX-License-Identifier: AGPL-3.0-or-later
package runner

import (
	"context"
)

// Check is a statically declared regression check.
//
// For each commit the controller asks Applies, then calls Prepare on the
// tree before the commit is applied and Evaluate on the tree after it.
// Errors wrapped with Fatal abort the whole run; any other error fails
// only this check on this commit.
type Check interface {
	// Name is the literal name options and flags are namespaced by.
	Name() string

	Description() string

	// Priority orders checks, lower first. Ties keep registration order.
	Priority() int

	// Options declares the check's own options. Skip is implicit.
	Options() []OptionSpec

	Applies(ctx context.Context, env *Env) (bool, error)
	Prepare(ctx context.Context, env *Env) (Baseline, error)
	Evaluate(ctx context.Context, env *Env, base Baseline) (Outcome, error)
}

// Baseline is what Prepare captured before the commit was applied.
type Baseline struct {
	Text string

	// Extra carries check specific artifacts from Prepare to Evaluate.
	Extra any
}
