package actions

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jhoonb/archivex"
	"github.com/juju/errors"

	"webup/stackup/domain"
	"webup/stackup/utils"
)

// SnapshotConfigFiles archives the config files into the backup dir, before
// migrations edit them. It returns the archive path, or "" when no file exists.
func SnapshotConfigFiles(files []domain.ConfigFile, backupDir string, now time.Time) (string, error) {
	existing := []string{}
	for _, file := range files {
		if _, err := os.Stat(file.Target); err == nil {
			existing = append(existing, file.Target)
		}
	}
	if len(existing) == 0 {
		return "", nil
	}

	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return "", errors.Trace(err)
	}

	// stage the files so the archive keeps their relative layout
	stage, err := os.MkdirTemp(backupDir, "stage-")
	if err != nil {
		return "", errors.Trace(err)
	}
	defer os.RemoveAll(stage)

	for _, path := range existing {
		dst, err := stagedPath(stage, path)
		if err != nil {
			return "", errors.Trace(err)
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return "", errors.Trace(err)
		}
		if err := utils.CopyFileContents(path, dst); err != nil {
			return "", errors.Annotatef(err, "unable to stage %s", path)
		}
	}

	name := filepath.Join(backupDir, fmt.Sprintf("config-%s.tar.gz", now.UTC().Format("20060102-150405")))
	tar := new(archivex.TarFile)
	if err := tar.Create(name); err != nil {
		return "", errors.Annotate(err, "unable to create the config archive")
	}
	if err := tar.AddAll(stage, false); err != nil {
		tar.Close()
		return "", errors.Annotate(err, "unable to archive the config files")
	}
	if err := tar.Close(); err != nil {
		return "", errors.Trace(err)
	}
	return name, nil
}

// stagedPath places path under stage. Relative paths leaving the working
// directory are staged under their absolute form.
func stagedPath(stage, path string) (string, error) {
	path = filepath.Clean(path)
	if path == ".." || strings.HasPrefix(path, ".."+string(filepath.Separator)) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", errors.Trace(err)
		}
		path = abs
	}
	return filepath.Join(stage, path), nil
}
