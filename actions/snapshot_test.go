package actions

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webup/stackup/domain"
)

func archiveEntries(t *testing.T, path string) map[string]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	reader := tar.NewReader(gz)

	entries := map[string]string{}
	for {
		header, err := reader.Next()
		if err == io.EOF {
			return entries
		}
		require.NoError(t, err)
		if header.Typeflag != tar.TypeReg {
			continue
		}
		data, err := io.ReadAll(reader)
		require.NoError(t, err)
		entries[filepath.Base(header.Name)] = string(data)
	}
}

func TestSnapshotConfigFiles(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "sentry", "sentry.conf.py")
	writeFile(t, present, "SENTRY_TSDB = 'legacy'\n")
	files := []domain.ConfigFile{
		{Target: present},
		{Target: filepath.Join(dir, "relay", "config.yml")},
	}
	backupDir := filepath.Join(dir, "backup")
	now := time.Date(2020, time.March, 4, 10, 0, 0, 0, time.UTC)

	archive, err := SnapshotConfigFiles(files, backupDir, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(backupDir, "config-20200304-100000.tar.gz"), archive)
	assert.Equal(t, map[string]string{"sentry.conf.py": "SENTRY_TSDB = 'legacy'\n"}, archiveEntries(t, archive))

	// the staging directory is gone
	left, err := os.ReadDir(backupDir)
	require.NoError(t, err)
	for _, entry := range left {
		assert.False(t, strings.HasPrefix(entry.Name(), "stage-"))
	}
}

func TestSnapshotConfigFilesNothingToSave(t *testing.T) {
	dir := t.TempDir()
	backupDir := filepath.Join(dir, "backup")

	archive, err := SnapshotConfigFiles([]domain.ConfigFile{{Target: filepath.Join(dir, "missing")}}, backupDir, time.Now())
	require.NoError(t, err)
	assert.Empty(t, archive)
	assert.NoDirExists(t, backupDir)
}

func TestStagedPathStaysInStage(t *testing.T) {
	stage := filepath.Join(t.TempDir(), "stage")
	for _, path := range []string{"sentry/config.yml", "../x.yml", "../../a/../b.yml", "/etc/sentry/config.yml", "a/../../c.yml"} {
		staged, err := stagedPath(stage, path)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(staged, stage+string(filepath.Separator)), "%s staged at %s", path, staged)
	}
}

func TestSnapshotConfigFilesOutsideWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	outside := filepath.Join(dir, "outside.yml")
	writeFile(t, outside, "key: value\n")
	wd, err := os.Getwd()
	require.NoError(t, err)
	relative, err := filepath.Rel(wd, outside)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(relative, ".."))
	backupDir := filepath.Join(dir, "backup")

	archive, err := SnapshotConfigFiles([]domain.ConfigFile{{Target: relative}}, backupDir, time.Now())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"outside.yml": "key: value\n"}, archiveEntries(t, archive))
	assert.Equal(t, "key: value\n", readFile(t, outside))

	left, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := []string{}
	for _, entry := range left {
		names = append(names, entry.Name())
	}
	assert.ElementsMatch(t, []string{"outside.yml", "backup"}, names)
}
