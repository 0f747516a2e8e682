// Package credentials derives and verifies password hashes. Passwords are never stored in plaintext.
package credentials

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	saltLen   = 16
	keyLen    = 32
	timeCost  = 1
	memoryKiB = 64 * 1024
	threads   = 4
)

// Hash derives an argon2id key for password with a fresh random salt
func Hash(password string) (hash, salt []byte, err error) {
	salt = make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, fmt.Errorf("credentials: generate salt: %w", err)
	}
	return derive(password, salt), salt, nil
}

// Verify reports whether password matches the stored hash and salt
func Verify(password string, hash, salt []byte) bool {
	if len(hash) == 0 || len(salt) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(derive(password, salt), hash) == 1
}

func derive(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, timeCost, memoryKiB, threads, keyLen)
}
