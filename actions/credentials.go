package actions

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/juju/errors"

	"webup/stackup/docker"
	"webup/stackup/domain"
	"webup/stackup/helpers"
	"webup/stackup/utils"
)

// EnsureCredentials generates the relay credentials file unless it exists.
// The relay config sits next to the credentials file.
func EnsureCredentials(ctx context.Context, compose docker.Compose, cfg domain.Config, console *helpers.Console) (utils.Outcome, error) {
	console.Step("Generating Relay credentials")

	if _, err := os.Stat(cfg.Credentials); err == nil {
		console.Printf("%s already exists, skipped creation.\n", cfg.Credentials)
		return utils.AlreadyExists, nil
	} else if !os.IsNotExist(err) {
		return utils.AlreadyExists, errors.Trace(err)
	}

	relayConfig, err := filepath.Abs(filepath.Join(filepath.Dir(cfg.Credentials), "config.yml"))
	if err != nil {
		return utils.Created, errors.Trace(err)
	}

	var out bytes.Buffer
	opts := docker.RunOptions{
		Service: cfg.Services.Relay,
		Remove:  true,
		NoDeps:  true,
		Binds:   []string{relayConfig + ":/tmp/config.yml"},
		Args:    []string{"--config", "/tmp", "credentials", "generate", "--stdout"},
	}
	if err := compose.RunToFile(ctx, opts, &out); err != nil {
		return utils.Created, errors.Annotate(err, "unable to generate relay credentials")
	}
	if strings.TrimSpace(out.String()) == "" {
		return utils.Created, errors.Errorf("relay returned empty credentials")
	}

	if err := utils.WriteFileAtomic(cfg.Credentials, out.Bytes(), 0o644); err != nil {
		return utils.Created, errors.Trace(err)
	}
	console.Printf("Relay credentials written to %s\n", cfg.Credentials)
	return utils.Created, nil
}
