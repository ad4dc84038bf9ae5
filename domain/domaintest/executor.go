// Package domaintest provides a scripted executor for tests.
package domaintest

import (
	"context"
	"io"
	"strings"
	"sync"

	"webup/stackup/domain"
)

// Handler produces the outcome of a matched command.
type Handler func(c domain.Command) domain.Result

type rule struct {
	contains string
	handler  Handler
}

// FakeExecutor records every command and answers from registered rules.
// Unmatched commands succeed with empty output. Rules registered later win.
type FakeExecutor struct {
	mu       sync.Mutex
	commands []domain.Command
	rules    []rule
}

func NewFakeExecutor() *FakeExecutor {
	return &FakeExecutor{}
}

// On registers a handler for commands whose line contains the given text.
func (f *FakeExecutor) On(contains string, h Handler) *FakeExecutor {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rule{contains: contains, handler: h})
	return f
}

// OnOutput answers matched commands with stdout and a zero status.
func (f *FakeExecutor) OnOutput(contains, stdout string) *FakeExecutor {
	return f.On(contains, func(domain.Command) domain.Result {
		return domain.Result{Stdout: stdout}
	})
}

// OnExit answers matched commands with the given status and stderr.
func (f *FakeExecutor) OnExit(contains string, code int, stderr string) *FakeExecutor {
	return f.On(contains, func(domain.Command) domain.Result {
		return domain.Result{ExitCode: code, Stderr: stderr}
	})
}

// Commands returns the recorded command lines in execution order.
func (f *FakeExecutor) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := make([]string, len(f.commands))
	for i, c := range f.commands {
		lines[i] = c.String()
	}
	return lines
}

// Recorded returns the recorded commands in execution order.
func (f *FakeExecutor) Recorded() []domain.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Command(nil), f.commands...)
}

// Count returns how many recorded command lines contain the text.
func (f *FakeExecutor) Count(contains string) int {
	n := 0
	for _, line := range f.Commands() {
		if strings.Contains(line, contains) {
			n++
		}
	}
	return n
}

func (f *FakeExecutor) run(ctx context.Context, c domain.Command) (domain.Result, error) {
	if err := ctx.Err(); err != nil {
		return domain.Result{}, err
	}

	f.mu.Lock()
	f.commands = append(f.commands, c)
	var handler Handler
	line := c.String()
	for i := len(f.rules) - 1; i >= 0; i-- {
		if strings.Contains(line, f.rules[i].contains) {
			handler = f.rules[i].handler
			break
		}
	}
	f.mu.Unlock()

	if handler == nil {
		return domain.Result{}, nil
	}
	result := handler(c)
	if result.ExitCode != 0 {
		return result, &domain.CommandError{Command: c, ExitCode: result.ExitCode, Stderr: result.Stderr}
	}
	return result, nil
}

func (f *FakeExecutor) Execute(ctx context.Context, c domain.Command) error {
	_, err := f.run(ctx, c)
	return err
}

func (f *FakeExecutor) GetResult(ctx context.Context, c domain.Command) (domain.Result, error) {
	return f.run(ctx, c)
}

func (f *FakeExecutor) WriteResultToFile(ctx context.Context, c domain.Command, w io.Writer) error {
	result, err := f.run(ctx, c)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, result.Stdout)
	return err
}
