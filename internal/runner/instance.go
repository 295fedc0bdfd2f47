// SPDX-License-Identifier: AGPL-3.0-or-later
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// State is the lifecycle position of an Instance.
type State int

const (
	StateCreated State = iota
	StateSkipped
	StateApplicable
	StatePrepared
	StateEvaluated

	// StateFailed is terminal: a check-local error ended the instance early.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateSkipped:
		return "skipped"
	case StateApplicable:
		return "applicable"
	case StatePrepared:
		return "prepared"
	case StateEvaluated:
		return "evaluated"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateSkipped || s == StateEvaluated || s == StateFailed
}

// Instance is one check activated for one commit.
type Instance struct {
	check Check
	env   *Env

	state    State
	baseline Baseline
	outcome  Outcome
}

func NewInstance(c Check, env *Env) *Instance {
	if env.Log == nil {
		env.Log = slog.Default()
	}
	return &Instance{check: c, env: env}
}

func (i *Instance) Check() Check       { return i.check }
func (i *Instance) State() State       { return i.state }
func (i *Instance) Baseline() Baseline { return i.baseline }

// Outcome is meaningful once the instance is terminal.
func (i *Instance) Outcome() Outcome { return i.outcome }

// Resolve moves a created instance to Skipped or Applicable. The skip option
// is consulted before the check's own Applies.
func (i *Instance) Resolve(ctx context.Context) error {
	if i.state != StateCreated {
		return i.invalid("resolve")
	}
	if i.env.Options.Skipped(i.check.Name()) {
		i.state = StateSkipped
		i.outcome = Skip("disabled by option")
		return nil
	}

	var ok bool
	err := i.guard(ctx, "applies", func() (err error) {
		ok, err = i.check.Applies(ctx, i.env)
		return err
	})
	if err != nil || i.state == StateFailed {
		return err
	}
	if ok {
		i.state = StateApplicable
	} else {
		i.state = StateSkipped
		i.outcome = Skip("not applicable")
	}
	return nil
}

// Prepare captures the baseline. The commit must not be applied yet.
func (i *Instance) Prepare(ctx context.Context) error {
	if i.state != StateApplicable {
		return i.invalid("prepare")
	}
	var base Baseline
	err := i.guard(ctx, "prepare", func() (err error) {
		base, err = i.check.Prepare(ctx, i.env)
		return err
	})
	if err != nil || i.state == StateFailed {
		return err
	}
	i.baseline = base
	i.state = StatePrepared
	return nil
}

// Evaluate compares the applied commit against the baseline.
func (i *Instance) Evaluate(ctx context.Context) error {
	if i.state != StatePrepared {
		return i.invalid("evaluate")
	}
	var out Outcome
	err := i.guard(ctx, "evaluate", func() (err error) {
		out, err = i.check.Evaluate(ctx, i.env, i.baseline)
		return err
	})
	if err != nil || i.state == StateFailed {
		return err
	}
	i.outcome = out
	i.state = StateEvaluated
	return nil
}

func (i *Instance) invalid(op string) error {
	return fmt.Errorf("%s %s in state %s: %w", op, i.check.Name(), i.state, ErrInvalidTransition)
}

// guard runs fn and sorts its failure. Fatal errors and cancellation are
// returned. Anything else, panics included, fails the instance.
func (i *Instance) guard(ctx context.Context, phase string, fn func() error) error {
	err := i.recovered(fn)
	if err == nil {
		return nil
	}
	if IsFatal(err) {
		return fmt.Errorf("%s %s: %w", i.check.Name(), phase, err)
	}
	if ctx.Err() != nil {
		return Fatal(fmt.Errorf("%s %s: %w", i.check.Name(), phase, ctx.Err()))
	}
	i.state = StateFailed
	i.outcome = Fail(fmt.Sprintf("%s failed: %v", phase, err), "")
	return nil
}

func (i *Instance) recovered(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			i.env.Log.Debug("check panicked", "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
