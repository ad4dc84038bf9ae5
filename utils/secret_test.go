package utils

import (
	"crypto/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecretKey(t *testing.T) {
	key, err := GenerateSecretKey(rand.Reader)
	require.NoError(t, err)
	assert.Len(t, key, SecretKeyLength)
	for _, r := range key {
		assert.Contains(t, SecretKeyAlphabet, string(r))
	}
}

func TestGenerateSecretKeyShortRandom(t *testing.T) {
	_, err := GenerateSecretKey(strings.NewReader("abc"))
	require.Error(t, err)
}

func TestEscapeSecret(t *testing.T) {
	assert.Equal(t, "a''b", EscapeSecret("a'b"))
	assert.Equal(t, "a&b/c", EscapeSecret("a&b/c"))
}

func TestEnsureSecretKeyRunsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	content := "mail.backend: 'dummy'\nsystem.secret-key: '!!changeme!!'\nredis.clusters: {}\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	written, err := EnsureSecretKey(path, "system.secret-key: '!!changeme!!'", "system.secret-key", rand.Reader)
	require.NoError(t, err)
	assert.True(t, written)

	first, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(string(first), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "mail.backend: 'dummy'", lines[0])
	assert.Equal(t, "redis.clusters: {}", lines[2])

	require.True(t, strings.HasPrefix(lines[1], "system.secret-key: '"))
	secret := strings.TrimSuffix(strings.TrimPrefix(lines[1], "system.secret-key: '"), "'")
	assert.Len(t, secret, SecretKeyLength)
	assert.NotContains(t, secret, "!!changeme!!")

	written, err = EnsureSecretKey(path, "system.secret-key: '!!changeme!!'", "system.secret-key", rand.Reader)
	require.NoError(t, err)
	assert.False(t, written)

	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
