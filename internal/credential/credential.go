// Package credential implements passcode storage for the roster.
// Passcodes are never held or compared in plaintext: each is hashed with
// Argon2id under a per-account random salt, and verification is a
// constant-time comparison of derived keys.
package credential

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	// Argon2id parameters: m=64MB, t=3, p=4
	argonMemory  = 64 * 1024
	argonTime    = 3
	argonThreads = 4
	argonKeyLen  = 32

	saltLen = 16

	hashPrefix = "argon2id"
)

// HashPasscode derives a salted hash for storage.
// Format: argon2id$<hex salt>$<hex key>.
func HashPasscode(passcode string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	key := deriveKey(passcode, salt)
	return hashPrefix + "$" + hex.EncodeToString(salt) + "$" + hex.EncodeToString(key), nil
}

// VerifyPasscode reports whether the passcode matches the stored hash.
// A malformed stored hash never matches.
func VerifyPasscode(stored, passcode string) bool {
	parts := strings.Split(stored, "$")
	if len(parts) != 3 || parts[0] != hashPrefix {
		return false
	}
	salt, err := hex.DecodeString(parts[1])
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(parts[2])
	if err != nil || len(want) != argonKeyLen {
		return false
	}
	got := deriveKey(passcode, salt)
	return subtle.ConstantTimeCompare(got, want) == 1
}

func deriveKey(passcode string, salt []byte) []byte {
	return argon2.IDKey([]byte(passcode), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// RedactSecret returns a log-safe hash prefix for a secret value.
// Format: sha256:<first-8-chars-of-hex-hash>
func RedactSecret(secret string) string {
	if secret == "" {
		return ""
	}
	h := sha256.Sum256([]byte(secret))
	return "sha256:" + hex.EncodeToString(h[:])[:8]
}
