package tasks

import (
	"context"
	"fmt"

	"github.com/juju/errors"

	"webup/stackup/docker"
)

const (
	fileStoreTaskName = "filestore"

	fileStoreCountScript = "[ ! -d '/data/files' ] && ls -A1x /data | wc -l || true"
	fileStoreMigrate     = "mkdir -p /tmp/files; mv /data/* /tmp/files/; mv /tmp/files /data/files; chown -R sentry:sentry /data"
)

// FileStoreTask moves a flat data volume under a nested "files" directory.
// The move runs in the application image so files keep its owner.
func FileStoreTask(env Environment) Task {
	volume := env.Config.DataVolume

	// entries at the top of a volume without a files directory
	pending := func(ctx context.Context) (int, error) {
		result, err := env.Engine.Run(ctx, "alpine", []string{volume + ":/data"}, "ash", "-c", fileStoreCountScript)
		if err != nil {
			return 0, errors.Trace(err)
		}
		return parseCount(result.Stdout)
	}

	return Task{
		Name:        fileStoreTaskName,
		Description: "Migrating file storage",

		Detect: func(ctx context.Context) (bool, error) {
			exists, err := env.Engine.VolumeExists(ctx, volume)
			if err != nil || !exists {
				return false, errors.Trace(err)
			}
			n, err := pending(ctx)
			return n > 0, err
		},

		Transform: func(ctx context.Context) error {
			return errors.Trace(env.Compose.Run(ctx, docker.RunOptions{
				Service:    env.Config.Services.Web,
				Remove:     true,
				Entrypoint: "/bin/bash",
				Args:       []string{"-c", fileStoreMigrate},
			}))
		},

		Verify: func(ctx context.Context) (bool, error) {
			n, err := pending(ctx)
			return n == 0, err
		},

		Remediation: func() string {
			return fmt.Sprintf("Move the content of the %s volume under a 'files' directory:\n"+
				"  docker-compose run --rm --entrypoint /bin/bash %s -c \"%s\"",
				volume, env.Config.Services.Web, fileStoreMigrate)
		},
	}
}
