// Package tasks holds the data migrations run on every installation and the
// driver that takes each of them through detect, backup, transform, verify
// and rollback.
package tasks

import (
	"context"
	"strings"

	"github.com/juju/errors"
	"github.com/sirupsen/logrus"

	"webup/stackup/domain"
	"webup/stackup/helpers"
)

// State is a step of a migration task.
type State int

const (
	// NotApplicable: no legacy state was found, nothing was touched.
	NotApplicable State = iota
	Detected
	BackedUp
	Transformed
	// Verified: the transform produced the expected post-state.
	Verified
	// RolledBack: the transform failed and the backup was restored.
	RolledBack
	// Unresolved: the task could not proceed safely and had nothing to
	// restore; the operator gets the manual steps.
	Unresolved
)

var stateNames = map[State]string{
	NotApplicable: "not applicable",
	Detected:      "detected",
	BackedUp:      "backed up",
	Transformed:   "transformed",
	Verified:      "verified",
	RolledBack:    "rolled back",
	Unresolved:    "unresolved",
}

func (s State) String() string {
	return stateNames[s]
}

// Terminal reports whether a task can end in this state.
func (s State) Terminal() bool {
	switch s {
	case NotApplicable, Verified, RolledBack, Unresolved:
		return true
	}
	return false
}

// Task describes a migration. Backup and Rollback come in pairs; Blocked and
// Verify are optional.
type Task struct {
	Name        string
	Description string

	// Detect reports whether legacy state is present.
	Detect func(ctx context.Context) (bool, error)
	// Blocked returns a reason to leave detected state alone.
	Blocked   func(ctx context.Context) (string, error)
	Backup    func(ctx context.Context) error
	Transform func(ctx context.Context) error
	Verify    func(ctx context.Context) (bool, error)
	Rollback  func(ctx context.Context) error
	// Remediation gives the manual steps reproducing the transform.
	Remediation func() string
}

// Result is the outcome of one task run.
type Result struct {
	Task  string
	State State
	// Trail lists every state entered, the last one is terminal.
	Trail []State
	// Reason explains an Unresolved or RolledBack outcome.
	Reason string
}

// Runner executes tasks and reports their outcome.
type Runner struct {
	Console *helpers.Console
	Logger  logrus.FieldLogger
}

// RunAll runs the tasks in order. It stops at the first fatal error; a
// rolled back or unresolved task is not fatal.
func (r Runner) RunAll(ctx context.Context, tasks []Task) ([]Result, error) {
	results := []Result{}
	for _, task := range tasks {
		result, err := r.Run(ctx, task)
		results = append(results, result)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// Run takes one task to a terminal state. The returned error is fatal: the
// legacy state could not be inspected, the backup could not be restored, or
// the run was cancelled.
func (r Runner) Run(ctx context.Context, task Task) (Result, error) {
	result := Result{Task: task.Name}
	logger := r.Logger.WithField("task", task.Name)
	move := func(state State) {
		result.State = state
		result.Trail = append(result.Trail, state)
		logger.Debugf("state %s", state)
	}
	finish := func(state State, reason string) Result {
		result.Reason = reason
		move(state)
		r.report(task, result)
		return result
	}

	if (task.Backup == nil) != (task.Rollback == nil) {
		return result, errors.NotValidf("task %s: backup and rollback must be set together", task.Name)
	}

	legacy, err := task.Detect(ctx)
	if err != nil {
		move(NotApplicable)
		return result, domain.Provisioning(errors.Annotatef(err, "unable to inspect %s", task.Name))
	}
	if !legacy {
		return finish(NotApplicable, ""), nil
	}
	move(Detected)
	r.Console.Printf("%s...\n", task.Description)

	if task.Blocked != nil {
		reason, err := task.Blocked(ctx)
		if err != nil {
			return finish(Unresolved, err.Error()), domain.Provisioning(errors.Annotatef(err, "unable to inspect %s", task.Name))
		}
		if reason != "" {
			return finish(Unresolved, reason), nil
		}
	}

	if task.Backup != nil {
		if err := task.Backup(ctx); err != nil {
			return finish(Unresolved, "backup failed: "+err.Error()), errors.Trace(ctx.Err())
		}
		move(BackedUp)
	}

	failure := task.Transform(ctx)
	if failure == nil {
		move(Transformed)
		failure = verify(ctx, task)
	}
	if failure == nil {
		return finish(Verified, ""), nil
	}
	logger.WithError(failure).Debug("transform failed")

	if task.Rollback == nil {
		return finish(Unresolved, failure.Error()), errors.Trace(ctx.Err())
	}

	// restore even when the run is being interrupted
	if err := task.Rollback(context.WithoutCancel(ctx)); err != nil {
		return finish(Unresolved, failure.Error()), domain.Provisioning(errors.Annotatef(err, "unable to restore the state of %s", task.Name))
	}
	return finish(RolledBack, failure.Error()), errors.Trace(ctx.Err())
}

func verify(ctx context.Context, task Task) error {
	if task.Verify == nil {
		return nil
	}
	ok, err := task.Verify(ctx)
	if err != nil {
		return errors.Annotate(err, "verification failed")
	}
	if !ok {
		return errors.New("verification failed")
	}
	return nil
}

func (r Runner) report(task Task, result Result) {
	switch result.State {
	case NotApplicable:
		r.Logger.WithField("task", task.Name).Debug("nothing to migrate")
	case Verified:
		r.Console.Done("%s: done.", task.Name)
	case RolledBack:
		r.Console.Warn("%s failed (%s), the previous state was restored from backup.", task.Name, result.Reason)
		r.remediation(task)
	case Unresolved:
		r.Console.Warn("%s was not applied: %s", task.Name, result.Reason)
		r.remediation(task)
	}
}

func (r Runner) remediation(task Task) {
	if task.Remediation == nil {
		return
	}
	// indented lines are commands to run
	for _, line := range strings.Split(task.Remediation(), "\n") {
		if strings.HasPrefix(line, "  ") {
			r.Console.Item("%s", strings.TrimSpace(line))
		} else {
			r.Console.Println(line)
		}
	}
}
