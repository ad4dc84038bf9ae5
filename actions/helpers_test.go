package actions

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"webup/stackup/docker"
	"webup/stackup/domain"
	"webup/stackup/domain/domaintest"
	"webup/stackup/helpers"
)

func newConsole() (*helpers.Console, *bytes.Buffer) {
	var out bytes.Buffer
	return helpers.NewConsole(&out), &out
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// healthyHost answers the preflight checks of a host that meets the defaults.
func healthyHost(exec *domaintest.FakeExecutor) {
	exec.OnOutput("docker version --format", "19.03.8\n")
	exec.OnOutput("docker-compose version --short", "1.25.4\n")
	exec.OnOutput("free -m", "              total        used        free\nMem:           7976        1442        3210\nSwap:          1024           0        1024\n")
	exec.On("grep -c "+unreliableCPUModel, func(domain.Command) domain.Result {
		return domain.Result{ExitCode: 1, Stdout: "0\n"}
	})
	exec.OnOutput("grep -c "+sse42Flag, "4\n")
}

func defaultRequirements() domain.Requirements {
	return domain.Requirements{
		MinRAMMB:          2400,
		RequireSSE42:      true,
		MinDockerVersion:  "19.03.6",
		MinComposeVersion: "1.24.1",
	}
}

// volumeStore emulates the docker volume commands.
type volumeStore map[string]bool

func (v volumeStore) register(exec *domaintest.FakeExecutor) {
	exec.On("docker volume ls", func(c domain.Command) domain.Result {
		filter := strings.TrimPrefix(c.Args[len(c.Args)-1], "name=")
		names := []string{}
		for name := range v {
			if strings.Contains(name, filter) {
				names = append(names, name)
			}
		}
		return domain.Result{Stdout: strings.Join(names, "\n")}
	})
	exec.On("docker volume create", func(c domain.Command) domain.Result {
		v[strings.TrimPrefix(c.Args[len(c.Args)-1], "--name=")] = true
		return domain.Result{}
	})
}

func testCompose(exec domain.Executor) docker.Compose {
	return docker.Compose{Exec: exec}
}

func testEngine(exec domain.Executor) docker.Engine {
	return docker.Engine{Exec: exec}
}
