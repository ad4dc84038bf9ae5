package actions

import (
	"io"

	"github.com/juju/errors"

	"webup/stackup/domain"
	"webup/stackup/helpers"
	"webup/stackup/utils"
)

// EnsureConfigFiles creates the missing config files from their samples and
// writes a generated secret key over the placeholder, once.
func EnsureConfigFiles(console *helpers.Console, files []domain.ConfigFile, secret domain.SecretConfig, random io.Reader) error {
	console.Step("Prepare config files")

	for _, configFile := range files {
		outcome, err := utils.EnsureFromSample(configFile.Sample, configFile.Target)
		if err != nil {
			return errors.Trace(err)
		}
		if outcome == utils.AlreadyExists {
			console.Printf("%s already exists, skipped creation.\n", configFile.Target)
		} else {
			console.Printf("Creating %s...\n", configFile.Target)
		}
	}

	if secret.File == "" {
		return nil
	}
	written, err := utils.EnsureSecretKey(secret.File, secret.PlaceholderLine(), secret.Key, random)
	if err != nil {
		return errors.Trace(err)
	}
	if written {
		console.Printf("Secret key written to %s\n", secret.File)
	}
	return nil
}
