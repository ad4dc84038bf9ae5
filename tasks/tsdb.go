package tasks

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/juju/errors"

	"webup/stackup/utils"
)

const (
	tsdbTaskName = "tsdb"

	currentTSDBLine = `SENTRY_TSDB = "sentry.tsdb.redissnuba.RedisSnubaTSDB"`
	tsdbOptionsKey  = "SENTRY_TSDB_OPTIONS = "
	switchoverDelay = 90 * 24 * time.Hour
)

var tsdbSetting = regexp.MustCompile(`^SENTRY_TSDB = .*$`)

// tsdbSettings is the block replacing a legacy SENTRY_TSDB line. The
// switchover happens 90 days after now.
func tsdbSettings(now time.Time) string {
	return fmt.Sprintf("%s\n\n# Automatic switchover 90 days after %s. Can be removed afterwards.\n"+
		`SENTRY_TSDB_OPTIONS = {"switchover_timestamp": %d + (%d * 24 * 3600)}`,
		currentTSDBLine, now.Format(time.UnixDate), now.Unix(), int(switchoverDelay.Hours()/24))
}

// TSDBTask moves the settings module to the current time-series backend.
func TSDBTask(env Environment) Task {
	path := env.Config.SettingsFile
	backup := path + ".bak"
	settings := tsdbSettings(env.Clock.Now())

	return Task{
		Name:        tsdbTaskName,
		Description: "Attempting to automatically migrate to new TSDB",

		Detect: func(ctx context.Context) (bool, error) {
			if _, err := os.Stat(path); os.IsNotExist(err) {
				return false, nil
			} else if err != nil {
				return false, errors.Trace(err)
			}
			current, err := utils.ContainsLine(path, currentTSDBLine)
			return !current, errors.Trace(err)
		},

		Blocked: func(ctx context.Context) (string, error) {
			options, err := utils.ContainsText(path, tsdbOptionsKey)
			if err != nil || !options {
				return "", errors.Trace(err)
			}
			return "not attempting automatic TSDB migration due to presence of SENTRY_TSDB_OPTIONS", nil
		},

		Backup: func(ctx context.Context) error {
			return errors.Trace(utils.CopyFile(path, backup))
		},

		Transform: func(ctx context.Context) error {
			n, err := utils.ReplaceLines(path, tsdbSetting, settings)
			if err != nil {
				return errors.Trace(err)
			}
			if n == 0 {
				return errors.Errorf("no SENTRY_TSDB setting found in %s", path)
			}
			return nil
		},

		Verify: func(ctx context.Context) (bool, error) {
			ok, err := utils.ContainsLine(path, currentTSDBLine)
			return ok, errors.Trace(err)
		},

		Rollback: func(ctx context.Context) error {
			return errors.Trace(os.Rename(backup, path))
		},

		Remediation: func() string {
			return fmt.Sprintf("Your Sentry configuration uses a legacy data store for time-series data. "+
				"Remove the options SENTRY_TSDB and SENTRY_TSDB_OPTIONS from %s and add:\n\n%s\n\n"+
				"For more information please refer to https://github.com/getsentry/onpremise/pull/430",
				path, settings)
		},
	}
}
