package tasks

import (
	"strings"
	"time"

	"github.com/juju/clock/testclock"

	"webup/stackup/docker"
	"webup/stackup/domain"
	"webup/stackup/domain/domaintest"
)

var testNow = time.Date(2020, time.March, 4, 10, 0, 0, 0, time.UTC)

func testClock() *testclock.Clock {
	return testclock.NewClock(testNow)
}

func testEnvironment(exec *domaintest.FakeExecutor) Environment {
	return Environment{
		Config: domain.Config{
			SettingsFile:   "sentry/sentry.conf.py",
			DataVolume:     "sentry-data",
			PostgresVolume: "sentry-postgres",
			Services:       domain.ServiceNames{Web: "web", Zookeeper: "zookeeper"},
		},
		Compose: docker.Compose{Exec: exec},
		Engine:  docker.Engine{Exec: exec},
		Clock:   testClock(),
	}
}

// bindSource returns the volume bound to target with "-v source:target".
func bindSource(c domain.Command, target string) string {
	for i, arg := range c.Args {
		if arg == "-v" && i+1 < len(c.Args) && strings.HasSuffix(c.Args[i+1], ":"+target) {
			return strings.TrimSuffix(c.Args[i+1], ":"+target)
		}
	}
	return ""
}

// fakeVolumes emulates the docker volume commands over an in-memory set.
type fakeVolumes map[string]bool

func (v fakeVolumes) register(exec *domaintest.FakeExecutor) {
	exec.On("docker volume ls", func(c domain.Command) domain.Result {
		filter := strings.TrimPrefix(c.Args[len(c.Args)-1], "name=")
		names := []string{}
		for name := range v {
			if strings.Contains(name, filter) {
				names = append(names, name)
			}
		}
		return domain.Result{Stdout: strings.Join(names, "\n") + "\n"}
	})
	exec.On("docker volume create", func(c domain.Command) domain.Result {
		v[strings.TrimPrefix(c.Args[len(c.Args)-1], "--name=")] = true
		return domain.Result{}
	})
	exec.On("docker volume rm", func(c domain.Command) domain.Result {
		name := c.Args[len(c.Args)-1]
		if !v[name] {
			return domain.Result{ExitCode: 1, Stderr: "no such volume"}
		}
		delete(v, name)
		return domain.Result{}
	})
}
