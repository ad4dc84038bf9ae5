package actions

import (
	"context"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webup/stackup/domain"
	"webup/stackup/domain/domaintest"
)

func newPreflight(exec *domaintest.FakeExecutor) (Preflight, func() string) {
	console, out := newConsole()
	return Preflight{
		Engine:       testEngine(exec),
		Compose:      testCompose(exec),
		Requirements: defaultRequirements(),
		Console:      console,
	}, out.String
}

func TestPreflightPasses(t *testing.T) {
	exec := domaintest.NewFakeExecutor()
	healthyHost(exec)
	preflight, out := newPreflight(exec)

	require.NoError(t, preflight.Check(context.Background()))
	assert.Contains(t, out(), "Docker 19.03.8 OK.")
	assert.Contains(t, out(), "Docker Compose 1.25.4 OK.")
	assert.Contains(t, out(), "7.8 GiB")
	assert.Contains(t, out(), "SSE 4.2 OK.")
}

func TestPreflightFailures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(exec *domaintest.FakeExecutor)
		message string
	}{
		{
			name: "old docker",
			setup: func(exec *domaintest.FakeExecutor) {
				exec.OnOutput("docker version --format", "18.09.1\n")
			},
			message: "expected minimum Docker version to be 19.03.6 but found 18.09.1",
		},
		{
			name: "old compose",
			setup: func(exec *domaintest.FakeExecutor) {
				exec.OnOutput("docker-compose version --short", "1.21.0\n")
			},
			message: "expected minimum Docker Compose version to be 1.24.1",
		},
		{
			name: "docker unreachable",
			setup: func(exec *domaintest.FakeExecutor) {
				exec.OnExit("docker version --format", 1, "Cannot connect to the Docker daemon")
			},
			message: "unable to read the Docker version",
		},
		{
			name: "low memory",
			setup: func(exec *domaintest.FakeExecutor) {
				exec.OnOutput("free -m", "Mem:           1998         400        1200\n")
			},
			message: "expected minimum RAM available to Docker to be 2400 MB",
		},
		{
			name: "no sse 4.2",
			setup: func(exec *domaintest.FakeExecutor) {
				exec.On("grep -c "+sse42Flag, func(domain.Command) domain.Result {
					return domain.Result{ExitCode: 1, Stdout: "0\n"}
				})
			},
			message: "does not support the SSE 4.2 instruction set",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := domaintest.NewFakeExecutor()
			healthyHost(exec)
			tt.setup(exec)
			preflight, _ := newPreflight(exec)

			err := preflight.Check(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrPrecondition))
			assert.Contains(t, err.Error(), tt.message)
			assert.Zero(t, exec.Count("volume create"))
		})
	}
}

func TestPreflightSkipsFlagsOnVirtualizedCPU(t *testing.T) {
	exec := domaintest.NewFakeExecutor()
	healthyHost(exec)
	exec.OnOutput("grep -c "+unreliableCPUModel, "2\n")
	exec.OnExit("grep -c "+sse42Flag, 1, "")
	preflight, out := newPreflight(exec)

	require.NoError(t, preflight.Check(context.Background()))
	assert.Contains(t, out(), "skipping the SSE 4.2 check")
	assert.Zero(t, exec.Count("grep -c "+sse42Flag))
}

func TestPreflightVersionSuffix(t *testing.T) {
	exec := domaintest.NewFakeExecutor()
	healthyHost(exec)
	exec.OnOutput("docker version --format", "19.03.6-ce\n")
	preflight, _ := newPreflight(exec)

	assert.NoError(t, preflight.Check(context.Background()))
}

func TestParseTotalRAM(t *testing.T) {
	ram, err := parseTotalRAM("              total\nMem:  3000  12  12\n")
	require.NoError(t, err)
	assert.Equal(t, 3000, ram)

	_, err = parseTotalRAM("nothing here")
	assert.Error(t, err)
}
