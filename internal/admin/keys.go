package admin

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	keyPrefix    = "rpo_"
	keyRandBytes = 24
	// KeyPrefixLen matches the lookup prefix length used by authentication.
	KeyPrefixLen = 8
)

// GenerateKey returns a new raw API key, its lookup prefix and bcrypt hash.
func GenerateKey() (raw, prefix, hash string, err error) {
	b := make([]byte, keyRandBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", "", fmt.Errorf("reading random bytes: %w", err)
	}
	raw = keyPrefix + hex.EncodeToString(b)

	h, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", "", "", fmt.Errorf("hashing key: %w", err)
	}
	return raw, raw[:KeyPrefixLen], string(h), nil
}
