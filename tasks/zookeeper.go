package tasks

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/juju/errors"

	"webup/stackup/docker"
)

const (
	zookeeperTaskName = "zookeeper"

	zookeeperDataDir = "/var/lib/zookeeper/data/version-2"
	zookeeperLogDir  = "/var/lib/zookeeper/log/version-2"
	// directory holding the bundled snapshot.0, relative to the install dir
	zookeeperBundleDir = "zookeeper"
)

// ZookeeperTask works around ZOOKEEPER-3056: after an upgrade, a data dir
// with transaction logs but no snapshot makes the coordination service refuse
// to start. A bundled empty snapshot is copied in and the service is started
// once trusting it.
func ZookeeperTask(env Environment) Task {
	service := env.Config.Services.Zookeeper

	count := func(ctx context.Context, pattern string) (int, error) {
		result, err := env.Compose.RunResult(ctx, docker.RunOptions{
			Service: service,
			Remove:  true,
			Args:    []string{"bash", "-c", fmt.Sprintf("ls 2>/dev/null -Ubad1 -- %s | wc -l | tr -d '[:space:]'", pattern)},
		})
		if err != nil {
			return 0, errors.Trace(err)
		}
		return parseCount(result.Stdout)
	}

	copyCommand := fmt.Sprintf("cp /temp/snapshot.0 %s/snapshot.0", zookeeperDataDir)

	return Task{
		Name:        zookeeperTaskName,
		Description: "Restoring the missing Zookeeper snapshot",

		Detect: func(ctx context.Context) (bool, error) {
			folders, err := count(ctx, zookeeperDataDir)
			if err != nil || folders != 1 {
				return false, err
			}
			logs, err := count(ctx, zookeeperLogDir+"/*")
			if err != nil {
				return false, err
			}
			snapshots, err := count(ctx, zookeeperDataDir+"/*")
			if err != nil {
				return false, err
			}
			return logs > 0 && snapshots == 0, nil
		},

		Transform: func(ctx context.Context) error {
			bundle, err := filepath.Abs(zookeeperBundleDir)
			if err != nil {
				return errors.Trace(err)
			}
			err = env.Compose.Run(ctx, docker.RunOptions{
				Service: service,
				Remove:  true,
				Binds:   []string{bundle + ":/temp"},
				Args:    []string{"bash", "-c", copyCommand},
			})
			if err != nil {
				return errors.Annotate(err, "unable to copy the snapshot")
			}
			return errors.Trace(env.Compose.Run(ctx, docker.RunOptions{
				Service: service,
				Detach:  true,
				Env:     []string{"ZOOKEEPER_SNAPSHOT_TRUST_EMPTY=true"},
			}))
		},

		Verify: func(ctx context.Context) (bool, error) {
			snapshots, err := count(ctx, zookeeperDataDir+"/*")
			return snapshots > 0, err
		},

		Remediation: func() string {
			return fmt.Sprintf("Copy %s/snapshot.0 into %s of the %s service and start it once with ZOOKEEPER_SNAPSHOT_TRUST_EMPTY=true:\n"+
				"  docker-compose run --rm -v $(pwd)/%s:/temp %s bash -c '%s'\n"+
				"  docker-compose run -d -e ZOOKEEPER_SNAPSHOT_TRUST_EMPTY=true %s",
				zookeeperBundleDir, zookeeperDataDir, service,
				zookeeperBundleDir, service, copyCommand, service)
		},
	}
}
