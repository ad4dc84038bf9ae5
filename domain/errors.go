package domain

import (
	"fmt"
	"strings"

	"github.com/juju/errors"
)

const (
	// ErrPrecondition marks a failed host or runtime check. Nothing has been
	// provisioned when it is returned.
	ErrPrecondition = errors.ConstError("precondition failed")

	// ErrProvisioning marks a failed volume, image or setup step.
	ErrProvisioning = errors.ConstError("provisioning failed")

	// ErrInterrupted marks a run stopped by a termination signal.
	ErrInterrupted = errors.ConstError("interrupted")
)

// CommandError is returned when a command ran and exited with a non-zero status.
type CommandError struct {
	Command  Command
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Command, e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

// IsExitCode reports whether err is a CommandError with the given status.
func IsExitCode(err error, code int) bool {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.ExitCode == code
	}
	return false
}

// Precondition tags err so that errors.Is(err, ErrPrecondition) holds.
func Precondition(err error) error {
	return fmt.Errorf("%w: %w", ErrPrecondition, err)
}

// Provisioning tags err so that errors.Is(err, ErrProvisioning) holds.
func Provisioning(err error) error {
	return fmt.Errorf("%w: %w", ErrProvisioning, err)
}
