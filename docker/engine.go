package docker

import (
	"context"
	"strings"

	"github.com/juju/errors"

	"webup/stackup/domain"
)

// Engine talks to the docker daemon for volumes and throwaway containers.
type Engine struct {
	Exec   domain.Executor
	Binary string
}

func (e Engine) command(args ...string) domain.Command {
	binary := e.Binary
	if binary == "" {
		binary = "docker"
	}
	return domain.NewCommand(append([]string{binary}, args...))
}

// VolumeExists reports whether a volume with exactly this name exists.
func (e Engine) VolumeExists(ctx context.Context, name string) (bool, error) {
	// the name filter matches substrings, compare the listed names
	result, err := e.Exec.GetResult(ctx, e.command("volume", "ls", "-q", "--filter", "name="+name))
	if err != nil {
		return false, errors.Trace(err)
	}
	for _, line := range strings.Split(result.Stdout, "\n") {
		if strings.TrimSpace(line) == name {
			return true, nil
		}
	}
	return false, nil
}

// VolumeCreate creates the volume. An existing volume is left untouched.
func (e Engine) VolumeCreate(ctx context.Context, name string) error {
	_, err := e.Exec.GetResult(ctx, e.command("volume", "create", "--name="+name))
	if err != nil && stderrContains(err, "already exists") {
		return nil
	}
	return errors.Trace(err)
}

// VolumeRemove deletes the volume.
func (e Engine) VolumeRemove(ctx context.Context, name string) error {
	_, err := e.Exec.GetResult(ctx, e.command("volume", "rm", name))
	return errors.Trace(err)
}

// VolumeDiscard deletes the volume if there is one.
func (e Engine) VolumeDiscard(ctx context.Context, name string) error {
	_, err := e.Exec.GetResult(ctx, e.command("volume", "rm", name))
	if err != nil && stderrContains(err, "no such volume") {
		return nil
	}
	return errors.Trace(err)
}

// Run starts a throwaway container and captures its output.
// Binds use the "source:target" form.
func (e Engine) Run(ctx context.Context, image string, binds []string, args ...string) (domain.Result, error) {
	list := []string{"run", "--rm"}
	for _, bind := range binds {
		list = append(list, "-v", bind)
	}
	list = append(list, image)
	list = append(list, args...)
	result, err := e.Exec.GetResult(ctx, e.command(list...))
	return result, errors.Trace(err)
}

// Pull fetches an image from its registry.
func (e Engine) Pull(ctx context.Context, image string) error {
	return errors.Trace(e.Exec.Execute(ctx, e.command("pull", image)))
}

// ServerVersion returns the daemon version, e.g. "19.03.8".
func (e Engine) ServerVersion(ctx context.Context) (string, error) {
	result, err := e.Exec.GetResult(ctx, e.command("version", "--format", "{{.Server.Version}}"))
	if err != nil {
		return "", errors.Trace(err)
	}
	return strings.TrimSpace(result.Stdout), nil
}

func stderrContains(err error, text string) bool {
	var cmdErr *domain.CommandError
	if errors.As(err, &cmdErr) {
		return strings.Contains(strings.ToLower(cmdErr.Stderr), text)
	}
	return false
}
