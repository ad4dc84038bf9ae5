package actions

import (
	"context"

	"github.com/juju/errors"

	"webup/stackup/docker"
	"webup/stackup/helpers"
	"webup/stackup/utils"
)

// VolumeReport holds the outcome per volume name.
type VolumeReport map[string]utils.Outcome

// EnsureVolumes asks the runtime to create every volume. Volumes that already
// exist are reported as such; creating them again is harmless.
func EnsureVolumes(ctx context.Context, engine docker.Engine, names []string) (VolumeReport, error) {
	report := VolumeReport{}
	for _, name := range names {
		exists, err := engine.VolumeExists(ctx, name)
		if err != nil {
			return report, errors.Annotatef(err, "unable to inspect volume %s", name)
		}
		if err := engine.VolumeCreate(ctx, name); err != nil {
			return report, errors.Annotatef(err, "unable to create volume %s", name)
		}
		if exists {
			report[name] = utils.AlreadyExists
		} else {
			report[name] = utils.Created
		}
	}
	return report, nil
}

// PrintVolumeReport lists the volumes in the given order.
func PrintVolumeReport(console *helpers.Console, names []string, report VolumeReport) {
	for _, name := range names {
		if outcome, ok := report[name]; ok {
			console.Printf("%s: %s\n", name, outcome)
		}
	}
}
