package domain

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
)

// Command is an external program invocation.
type Command struct {
	Name string
	Args []string
	// Env holds KEY=VALUE entries added to the inherited environment.
	Env   []string
	Stdin io.Reader
}

func (c Command) String() string {
	return fmt.Sprintf("%s %s", c.Name, strings.Join(c.Args, " "))
}

// NewCommand builds a command from a list where the first item is the program.
func NewCommand(list []string) Command {
	return Command{Name: list[0], Args: list[1:]}
}

// Result is the captured outcome of a command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Executor runs external commands. Every call blocks until the command exits.
type Executor interface {
	// Execute runs the command with its output streamed to the console.
	Execute(ctx context.Context, c Command) error
	// GetResult runs the command and captures stdout and stderr.
	// A non-zero exit returns a *CommandError along with the populated Result.
	GetResult(ctx context.Context, c Command) (Result, error)
	// WriteResultToFile runs the command with its standard output sent to w.
	WriteResultToFile(ctx context.Context, c Command, w io.Writer) error
}

// ShellExecutor runs commands on the host with os/exec.
type ShellExecutor struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger logrus.FieldLogger
}

// NewShellExecutor returns an executor wired to the process console.
func NewShellExecutor(logger logrus.FieldLogger) *ShellExecutor {
	return &ShellExecutor{Stdout: os.Stdout, Stderr: os.Stderr, Logger: logger}
}

func (e *ShellExecutor) prepare(ctx context.Context, c Command) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	if c.Stdin != nil {
		cmd.Stdin = c.Stdin
	}
	return cmd
}

func (e *ShellExecutor) Execute(ctx context.Context, c Command) error {
	cmd := e.prepare(ctx, c)
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}

	e.Logger.Debugf("Executing: %s", c)

	return e.finish(ctx, c, cmd.Run(), "")
}

func (e *ShellExecutor) GetResult(ctx context.Context, c Command) (Result, error) {
	var stdout, stderr bytes.Buffer
	cmd := e.prepare(ctx, c)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.Logger.Debugf("Executing: %s", c)

	err := cmd.Run()
	result := Result{
		ExitCode: exitCode(err),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}
	return result, e.finish(ctx, c, err, result.Stderr)
}

func (e *ShellExecutor) WriteResultToFile(ctx context.Context, c Command, w io.Writer) error {
	var stderr bytes.Buffer
	cmd := e.prepare(ctx, c)
	cmd.Stdout = w
	cmd.Stderr = io.MultiWriter(e.Stderr, &stderr)

	e.Logger.Debugf("Executing: %s", c)

	return e.finish(ctx, c, cmd.Run(), stderr.String())
}

func (e *ShellExecutor) finish(ctx context.Context, c Command, err error, stderr string) error {
	if err == nil {
		return nil
	}
	// a cancelled context kills the child, report the cancellation instead
	if ctx.Err() != nil {
		return errors.Trace(ctx.Err())
	}
	code := exitCode(err)
	e.Logger.WithField("exit_code", code).Debugf("Command failed: %s", c)
	if code < 0 {
		return errors.Annotatef(err, "unable to run %q", c.Name)
	}
	return &CommandError{Command: c, ExitCode: code, Stderr: stderr}
}

// exitCode returns 0 on success, the exit status for a process that ran,
// and -1 when the process could not be started.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
