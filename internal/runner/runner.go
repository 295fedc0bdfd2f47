// SPDX-License-Identifier: AGPL-3.0-or-later
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/bartekus/seriescheck/internal/vcs"
)

// ErrDirtyTree is returned when tracked files have uncommitted changes.
// The run resets tracked files when it restores the tree, so it refuses to
// start rather than lose them.
var ErrDirtyTree = errors.New("working tree has uncommitted changes")

// Controller replays a series of commits onto a base and runs the
// registered checks around each one.
type Controller struct {
	reg   *Registry
	store *StateStore
	deps  *Deps
	log   *slog.Logger
}

// NewController creates a controller for the checks in reg.
func NewController(reg *Registry, store *StateStore, deps *Deps) *Controller {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Controller{reg: reg, store: store, deps: deps, log: log}
}

// Run detaches at base, applies and tests each commit in order and then puts
// back whatever was checked out before, also when a commit fails or ctx is
// cancelled. The returned summary is never nil and has been persisted.
func (c *Controller) Run(ctx context.Context, base string, commits []vcs.Commit) (last *LastRun, err error) {
	last = newLastRun(uuid.NewString(), base)
	defer func() {
		last.finish(err)
		if werr := c.store.WriteLastRun(*last); werr != nil {
			err = errors.Join(err, fmt.Errorf("writing last run: %w", werr))
		}
	}()

	if err := c.store.Reset(); err != nil {
		return last, fmt.Errorf("clearing run state: %w", err)
	}

	repo := c.deps.Repo
	c.log.Info("Base commit is " + vcs.Abbrev(base, 12))
	if len(commits) == 0 {
		c.log.Info("Nothing to test")
		return last, nil
	}

	clean, err := repo.IsClean(ctx)
	if err != nil {
		return last, Fatal(fmt.Errorf("checking working tree: %w", err))
	}
	if !clean {
		return last, Fatal(ErrDirtyTree)
	}

	orig, err := repo.CurrentRef(ctx)
	if err != nil {
		return last, Fatal(fmt.Errorf("reading current ref: %w", err))
	}
	if err := repo.Detach(ctx, base); err != nil {
		return last, Fatal(fmt.Errorf("detaching at base: %w", err))
	}
	defer func() {
		if rerr := c.restore(context.WithoutCancel(ctx), orig); rerr != nil {
			err = errors.Join(err, Fatal(rerr))
		}
	}()

	c.log.Info(fmt.Sprintf("Will test %d commits", len(commits)))
	for _, commit := range commits {
		if err := ctx.Err(); err != nil {
			return last, Fatal(err)
		}
		last.Commits = append(last.Commits, commit.SHA)
		if err := c.applyAndTest(ctx, commit, last); err != nil {
			return last, err
		}
	}
	c.log.Info("Done!")
	return last, nil
}

// restore abandons any half-applied state and checks out ref again.
func (c *Controller) restore(ctx context.Context, ref vcs.Ref) error {
	c.log.Debug("restoring", "ref", ref.String())
	var errs []error
	if err := c.deps.Repo.Discard(ctx); err != nil {
		errs = append(errs, fmt.Errorf("discarding changes: %w", err))
	}
	if err := c.deps.Repo.Restore(ctx, ref); err != nil {
		errs = append(errs, fmt.Errorf("restoring %s: %w", ref, err))
	}
	return errors.Join(errs...)
}

func (c *Controller) applyAndTest(ctx context.Context, commit vcs.Commit, last *LastRun) error {
	c.log.Info(fmt.Sprintf("Testing commit '%s' %s", commit.Short(), commit.Subject))

	var instances []*Instance
	for _, chk := range c.reg.Ordered() {
		inst := NewInstance(chk, c.env(commit, chk))
		if err := inst.Resolve(ctx); err != nil {
			return err
		}
		instances = append(instances, inst)
	}

	for _, inst := range instances {
		if inst.State() != StateApplicable {
			continue
		}
		c.log.Debug("preparing", "check", inst.Check().Name())
		if err := inst.Prepare(ctx); err != nil {
			return err
		}
	}

	if err := c.deps.Repo.CherryPick(ctx, commit.SHA); err != nil {
		return Fatal(fmt.Errorf("applying %s: %w", commit.Short(), err))
	}

	for _, inst := range instances {
		if inst.State() == StatePrepared {
			c.log.Debug("evaluating", "check", inst.Check().Name())
			if err := inst.Evaluate(ctx); err != nil {
				return err
			}
		}
		if err := c.report(ctx, commit, inst, last); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) env(commit vcs.Commit, chk Check) *Env {
	return &Env{
		Deps:   c.deps,
		Commit: commit,
		Check:  chk.Name(),
		Log:    c.log.With("commit", commit.Short(), "check", chk.Name()),
	}
}

func (c *Controller) report(ctx context.Context, commit vcs.Commit, inst *Instance, last *LastRun) error {
	name := inst.Check().Name()
	out := inst.Outcome()
	if inst.State() == StateSkipped {
		c.log.Debug(name+": "+out.Message, "check", name)
		return nil
	}

	level := slog.LevelInfo
	switch out.Status {
	case StatusWarning:
		level = slog.LevelWarn
	case StatusFail:
		level = slog.LevelError
	}
	msg := name + ": " + out.Status.String()
	if out.Message != "" {
		msg += " (" + out.Message + ")"
	}
	c.log.Log(ctx, level, msg, "commit", commit.Short(), "check", name)
	if out.Findings != "" {
		c.log.Log(ctx, level, strings.TrimRight(out.Findings, "\n"), "commit", commit.Short(), "check", name)
	}

	res := CheckResult{
		Commit:   commit.SHA,
		Subject:  commit.Subject,
		Check:    name,
		Status:   out.Status,
		Severity: out.Status.Severity(),
		Message:  out.Message,
		Findings: out.Findings,
	}
	last.add(res)
	if err := c.store.WriteCheckResult(res); err != nil {
		return fmt.Errorf("writing result for %s: %w", res.Key(), err)
	}
	return nil
}
