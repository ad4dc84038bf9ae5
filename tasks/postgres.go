package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/juju/errors"

	"webup/stackup/domain"
)

const (
	postgresTaskName = "postgres"

	postgresOldVersion   = "9.5"
	postgresNewVersion   = "9.6"
	postgresUpgradeImage = "tianon/postgres-upgrade:9.5-to-9.6"
	postgresDataDir      = "/var/lib/postgresql/data"
)

// PostgresTask upgrades the relational store volume from 9.5 to 9.6. It only
// fires while the volume's PG_VERSION marker reads 9.5.
//
// The upgraded copy is checked before the original volume is deleted. The
// temporary volume is only removed once its content is back under the
// original name, so a failure past the deletion still leaves the data there.
// A leftover temporary volume is discarded first: while the original still
// reads 9.5 it holds nothing that is not in the original.
func PostgresTask(env Environment) Task {
	volume := env.Config.PostgresVolume
	upgraded := volume + "-new"

	version := func(ctx context.Context, name string) (string, error) {
		result, err := env.Engine.Run(ctx, "busybox", []string{name + ":/db"}, "cat", "/db/PG_VERSION")
		if err != nil {
			var cmdErr *domain.CommandError
			if errors.As(err, &cmdErr) && cmdErr.ExitCode == 1 && strings.Contains(cmdErr.Stderr, "can't open") {
				// no marker: not a postgres data dir (yet)
				return "", nil
			}
			return "", errors.Trace(err)
		}
		return strings.TrimSpace(result.Stdout), nil
	}

	steps := []struct {
		name string
		run  func(ctx context.Context) error
	}{
		// a failed earlier run may have left a partial copy, initdb needs an empty target
		{"clear a previous upgrade attempt", func(ctx context.Context) error {
			return env.Engine.VolumeDiscard(ctx, upgraded)
		}},
		{"upgrade the data files", func(ctx context.Context) error {
			_, err := env.Engine.Run(ctx, postgresUpgradeImage, []string{
				volume + ":/var/lib/postgresql/" + postgresOldVersion + "/data",
				upgraded + ":/var/lib/postgresql/" + postgresNewVersion + "/data",
			})
			return err
		}},
		{"check the upgraded data", func(ctx context.Context) error {
			v, err := version(ctx, upgraded)
			if err != nil {
				return err
			}
			if v != postgresNewVersion {
				return errors.Errorf("%s reports version %q", upgraded, v)
			}
			return nil
		}},
		{"remove the old volume", func(ctx context.Context) error {
			return env.Engine.VolumeRemove(ctx, volume)
		}},
		{"recreate the volume", func(ctx context.Context) error {
			return env.Engine.VolumeCreate(ctx, volume)
		}},
		{"copy the upgraded data", func(ctx context.Context) error {
			_, err := env.Engine.Run(ctx, "alpine", []string{upgraded + ":/src", volume + ":/dst"},
				"ash", "-c", "cd /src ; cp -a . /dst")
			return err
		}},
		{"allow host authentication", func(ctx context.Context) error {
			_, err := env.Engine.Run(ctx, "alpine", []string{volume + ":" + postgresDataDir},
				"ash", "-c", "echo 'host all all all trust' >> "+postgresDataDir+"/pg_hba.conf")
			return err
		}},
		{"remove the temporary volume", func(ctx context.Context) error {
			return env.Engine.VolumeRemove(ctx, upgraded)
		}},
	}

	return Task{
		Name:        postgresTaskName,
		Description: fmt.Sprintf("Upgrading Postgres %s to %s", postgresOldVersion, postgresNewVersion),

		Detect: func(ctx context.Context) (bool, error) {
			exists, err := env.Engine.VolumeExists(ctx, volume)
			if err != nil || !exists {
				return false, errors.Trace(err)
			}
			v, err := version(ctx, volume)
			return v == postgresOldVersion, err
		},

		Transform: func(ctx context.Context) error {
			for _, step := range steps {
				if err := step.run(ctx); err != nil {
					return errors.Annotatef(err, "unable to %s", step.name)
				}
			}
			return nil
		},

		Verify: func(ctx context.Context) (bool, error) {
			v, err := version(ctx, volume)
			return v == postgresNewVersion, err
		},

		Remediation: func() string {
			return fmt.Sprintf("Upgrade the %s volume by hand:\n"+
				"  docker volume rm %s\n"+
				"  docker run --rm -v %s:/var/lib/postgresql/%s/data -v %s:/var/lib/postgresql/%s/data %s\n"+
				"  docker volume rm %s && docker volume create --name %s\n"+
				"  docker run --rm -v %s:/src -v %s:/dst alpine ash -c 'cd /src ; cp -a . /dst'\n"+
				"  docker run --rm -v %s:%s alpine ash -c \"echo 'host all all all trust' >> %s/pg_hba.conf\"\n"+
				"  docker volume rm %s\n"+
				"If %s no longer reads %s, %s holds the upgraded data: skip the first two commands.",
				volume,
				upgraded,
				volume, postgresOldVersion, upgraded, postgresNewVersion, postgresUpgradeImage,
				volume, volume,
				upgraded, volume,
				volume, postgresDataDir, postgresDataDir,
				upgraded,
				volume, postgresOldVersion, upgraded)
		},
	}
}
