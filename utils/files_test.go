package utils

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExamplePath(t *testing.T) {
	tests := map[string]string{
		"sentry/config.yml":     "sentry/config.example.yml",
		"sentry/sentry.conf.py": "sentry/sentry.conf.example.py",
		"relay/Makefile":        "relay/Makefile.example",
		".env":                  ".example.env",
	}
	for target, want := range tests {
		assert.Equal(t, want, ExamplePath(target), target)
	}
}

func TestEnsureFromTemplateIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.example.yml"), []byte("a: 1\n"), 0644))

	outcome, err := EnsureFromTemplate(target)
	require.NoError(t, err)
	assert.Equal(t, Created, outcome)

	first, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "a: 1\n", string(first))

	// a changed template must not leak into the existing file
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.example.yml"), []byte("a: 2\n"), 0644))

	outcome, err = EnsureFromTemplate(target)
	require.NoError(t, err)
	assert.Equal(t, AlreadyExists, outcome)

	second, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEnsureFromTemplateMissingTemplate(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.yml")

	_, err := EnsureFromTemplate(target)
	require.Error(t, err)
	assert.NoFileExists(t, target)
}

func TestCopyFileContentsNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0644))
	require.NoError(t, os.WriteFile(dst, []byte("old"), 0644))

	err := CopyFileContents(src, dst)
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrExist)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestReplaceLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.py")
	require.NoError(t, os.WriteFile(path, []byte("A = 1\r\nSENTRY_TSDB = \"old\"\nB = 2"), 0600))

	n, err := ReplaceLines(path, regexp.MustCompile(`^SENTRY_TSDB = .*$`), "SENTRY_TSDB = \"new\"\n# $1 stays literal")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "A = 1\r\nSENTRY_TSDB = \"new\"\n# $1 stays literal\nB = 2", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestReplaceLinesNoMatchLeavesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.py")
	require.NoError(t, os.WriteFile(path, []byte("A = 1\n"), 0644))
	before, err := os.Stat(path)
	require.NoError(t, err)

	n, err := ReplaceLines(path, regexp.MustCompile(`^B = .*$`), "B = 2")
	require.NoError(t, err)
	assert.Zero(t, n)

	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
}

func TestContainsLineIsExact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("# system.secret-key: 'x'\nsystem.secret-key: 'x' \n"), 0644))

	found, err := ContainsLine(path, "system.secret-key: 'x'")
	require.NoError(t, err)
	assert.False(t, found)

	found, err = ContainsLine(path, "system.secret-key: 'x' ")
	require.NoError(t, err)
	assert.True(t, found)
}
