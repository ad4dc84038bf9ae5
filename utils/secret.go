package utils

import (
	"crypto/rand"
	"io"
	"math/big"
	"regexp"
	"strings"

	"github.com/juju/errors"
)

const (
	// SecretKeyLength is the number of characters of a generated secret.
	SecretKeyLength = 50
	// SecretKeyAlphabet lists the characters a secret is drawn from.
	SecretKeyAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789@#%^&*(-_=+)"
)

// GenerateSecretKey draws a SecretKeyLength token from SecretKeyAlphabet.
func GenerateSecretKey(random io.Reader) (string, error) {
	max := big.NewInt(int64(len(SecretKeyAlphabet)))
	var b strings.Builder
	for i := 0; i < SecretKeyLength; i++ {
		n, err := rand.Int(random, max)
		if err != nil {
			return "", errors.Annotate(err, "unable to generate a secret key")
		}
		b.WriteByte(SecretKeyAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// EscapeSecret makes a secret safe inside a single-quoted YAML scalar.
func EscapeSecret(secret string) string {
	return strings.ReplaceAll(secret, "'", "''")
}

// EnsureSecretKey replaces the placeholder line of key with a generated
// secret. It returns false, leaving the file untouched, when the exact
// placeholder line is absent (already customized).
func EnsureSecretKey(path, placeholderLine, key string, random io.Reader) (bool, error) {
	found, err := ContainsLine(path, placeholderLine)
	if err != nil || !found {
		return false, errors.Trace(err)
	}

	secret, err := GenerateSecretKey(random)
	if err != nil {
		return false, err
	}

	pattern := regexp.MustCompile("^" + regexp.QuoteMeta(key) + ":.*$")
	line := key + ": '" + EscapeSecret(secret) + "'"
	if _, err := ReplaceLines(path, pattern, line); err != nil {
		return false, errors.Annotatef(err, "unable to write the secret key to %s", path)
	}
	return true, nil
}
