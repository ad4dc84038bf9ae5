package docker

import (
	"context"
	"io"
	"strings"

	"github.com/juju/errors"

	"webup/stackup/domain"
)

// Compose drives the stack through the docker-compose CLI.
type Compose struct {
	Exec   domain.Executor
	Binary string
	File   string
	// Env is passed to every compose invocation (image overrides...).
	Env []string
}

// RunOptions describes a one-off 'docker-compose run'.
type RunOptions struct {
	Service    string
	Args       []string
	Remove     bool
	Detach     bool
	NoDeps     bool
	Entrypoint string
	Binds      []string
	Env        []string
}

func (c Compose) command(args ...string) domain.Command {
	binary := c.Binary
	if binary == "" {
		binary = "docker-compose"
	}
	list := []string{binary}
	if c.File != "" {
		list = append(list, "-f", c.File)
	}
	cmd := domain.NewCommand(append(list, args...))
	cmd.Env = c.Env
	return cmd
}

// Down removes the running stack. A stack that does not exist is not an error.
func (c Compose) Down(ctx context.Context) error {
	_, err := c.Exec.GetResult(ctx, c.command("down", "--rmi", "local", "--remove-orphans"))
	return errors.Trace(err)
}

// Stop stops every running service of the stack.
func (c Compose) Stop(ctx context.Context) error {
	_, err := c.Exec.GetResult(ctx, c.command("stop"))
	return errors.Trace(err)
}

// Pull fetches registry images, ignoring services that fail to pull.
func (c Compose) Pull(ctx context.Context, services ...string) (domain.Result, error) {
	args := append([]string{"pull", "-q", "--ignore-pull-failures"}, services...)
	result, err := c.Exec.GetResult(ctx, c.command(args...))
	return result, errors.Trace(err)
}

// Build builds the given services. pullBase always refreshes base layers.
func (c Compose) Build(ctx context.Context, pullBase bool, services ...string) error {
	args := []string{"build", "--force-rm"}
	if pullBase {
		args = append(args, "--pull")
	}
	args = append(args, services...)
	return errors.Trace(c.Exec.Execute(ctx, c.command(args...)))
}

func (c Compose) runCommand(opts RunOptions) domain.Command {
	args := []string{"run"}
	if opts.Remove {
		args = append(args, "--rm")
	}
	if opts.Detach {
		args = append(args, "-d")
	}
	if opts.NoDeps {
		args = append(args, "--no-deps")
	}
	if opts.Entrypoint != "" {
		args = append(args, "--entrypoint", opts.Entrypoint)
	}
	for _, bind := range opts.Binds {
		args = append(args, "-v", bind)
	}
	for _, env := range opts.Env {
		args = append(args, "-e", env)
	}
	args = append(args, opts.Service)
	args = append(args, opts.Args...)
	return c.command(args...)
}

// Run executes a one-off container with its output on the console.
func (c Compose) Run(ctx context.Context, opts RunOptions) error {
	return errors.Trace(c.Exec.Execute(ctx, c.runCommand(opts)))
}

// RunResult executes a one-off container and captures its output.
func (c Compose) RunResult(ctx context.Context, opts RunOptions) (domain.Result, error) {
	result, err := c.Exec.GetResult(ctx, c.runCommand(opts))
	return result, errors.Trace(err)
}

// RunToFile executes a one-off container with its standard output sent to w.
func (c Compose) RunToFile(ctx context.Context, opts RunOptions, w io.Writer) error {
	return errors.Trace(c.Exec.WriteResultToFile(ctx, c.runCommand(opts), w))
}

// Version returns the compose version, e.g. "1.25.4".
func (c Compose) Version(ctx context.Context) (string, error) {
	result, err := c.Exec.GetResult(ctx, c.command("version", "--short"))
	if err != nil {
		return "", errors.Trace(err)
	}
	return strings.TrimPrefix(strings.TrimSpace(result.Stdout), "v"), nil
}

// RunCommandLine is the shell line equivalent to Run, for manual steps.
func (c Compose) RunCommandLine(opts RunOptions) string {
	return c.runCommand(opts).String()
}

// CommandLine is the shell line of a compose invocation.
func (c Compose) CommandLine(args ...string) string {
	return c.command(args...).String()
}
