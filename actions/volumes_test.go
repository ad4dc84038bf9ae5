package actions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webup/stackup/domain/domaintest"
	"webup/stackup/utils"
)

func TestEnsureVolumes(t *testing.T) {
	exec := domaintest.NewFakeExecutor()
	store := volumeStore{"sentry-data": true}
	store.register(exec)
	names := []string{"sentry-data", "sentry-postgres", "sentry-redis"}

	report, err := EnsureVolumes(context.Background(), testEngine(exec), names)
	require.NoError(t, err)
	assert.Equal(t, VolumeReport{
		"sentry-data":     utils.AlreadyExists,
		"sentry-postgres": utils.Created,
		"sentry-redis":    utils.Created,
	}, report)
	assert.Len(t, store, 3)
	// creation is requested for every volume
	assert.Equal(t, 3, exec.Count("docker volume create"))
}

func TestEnsureVolumesOrderIndependent(t *testing.T) {
	names := []string{"sentry-data", "sentry-postgres", "sentry-redis"}
	reversed := []string{"sentry-redis", "sentry-postgres", "sentry-data"}

	run := func(names []string) VolumeReport {
		exec := domaintest.NewFakeExecutor()
		volumeStore{"sentry-postgres": true}.register(exec)
		report, err := EnsureVolumes(context.Background(), testEngine(exec), names)
		require.NoError(t, err)
		return report
	}

	assert.Equal(t, run(names), run(reversed))
}

func TestEnsureVolumesSubstringIsNotAMatch(t *testing.T) {
	exec := domaintest.NewFakeExecutor()
	volumeStore{"sentry-data-old": true}.register(exec)

	report, err := EnsureVolumes(context.Background(), testEngine(exec), []string{"sentry-data"})
	require.NoError(t, err)
	assert.Equal(t, utils.Created, report["sentry-data"])
}

func TestEnsureVolumesFailure(t *testing.T) {
	exec := domaintest.NewFakeExecutor()
	exec.OnExit("docker volume create", 1, "permission denied")

	_, err := EnsureVolumes(context.Background(), testEngine(exec), []string{"sentry-data"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to create volume sentry-data")
}

func TestPrintVolumeReport(t *testing.T) {
	console, out := newConsole()
	PrintVolumeReport(console, []string{"b", "a"}, VolumeReport{"a": utils.Created, "b": utils.AlreadyExists})

	assert.Equal(t, "b: "+utils.AlreadyExists.String()+"\na: "+utils.Created.String()+"\n", out.String())
}
