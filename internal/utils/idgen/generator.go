package idgen

import (
	"crypto/rand"
	"errors"
	"fmt"
)

const idCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateSecureID returns a public identifier of the form "prefix_xxxx" where
// the suffix is `length` characters drawn from [a-z0-9] using crypto/rand.
func GenerateSecureID(prefix string, length int) (string, error) {
	if prefix == "" {
		return "", errors.New("prefix cannot be empty")
	}
	if length <= 0 {
		return "", errors.New("length must be positive")
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	for i, b := range buf {
		buf[i] = idCharset[int(b)%len(idCharset)]
	}

	return prefix + "_" + string(buf), nil
}
