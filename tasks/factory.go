package tasks

import (
	"strconv"
	"strings"

	"github.com/juju/clock"
	"github.com/juju/errors"

	"webup/stackup/docker"
	"webup/stackup/domain"
)

// Environment gives the migrations access to the installation.
type Environment struct {
	Config  domain.Config
	Compose docker.Compose
	Engine  docker.Engine
	Clock   clock.Clock
}

// All returns the migrations in the order they must run: later tasks assume
// the earlier ones are resolved.
func All(env Environment) []Task {
	return []Task{
		TSDBTask(env),
		ZookeeperTask(env),
		PostgresTask(env),
		FileStoreTask(env),
	}
}

// parseCount reads the number printed by a 'wc -l' pipeline. Empty output
// counts as zero.
func parseCount(output string) (int, error) {
	output = strings.TrimSpace(output)
	if output == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(output)
	if err != nil {
		return 0, errors.Annotatef(err, "unexpected count %q", output)
	}
	return n, nil
}
