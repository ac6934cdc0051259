// Package auth holds credential primitives: API key generation and parsing,
// argon2id hashing for keys and passwords, and request context helpers.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
)

// Keys look like mg_{env}_{prefix}_{secret}, e.g.
// mg_live_1f3a9c0e_8b2d4e6f8a0c2e4a6c8e0a2c4e6a8c0e2a4c6e8a.
const (
	KeyPrefixLen = 8
	KeySecretLen = 40
)

const (
	EnvLive = "live"
	EnvTest = "test"
)

var (
	ErrInvalidKeyFormat = errors.New("invalid API key format")

	keyFormatRegex = regexp.MustCompile(`^mg_(live|test)_([a-f0-9]{8})_([a-f0-9]{40})$`)
)

// GeneratedKey is a freshly minted key. Plaintext is shown to the caller once.
type GeneratedKey struct {
	Plaintext string
	Hash      string
	Prefix    string
}

// GenerateAPIKey mints a key for env; unknown environments become live keys.
func GenerateAPIKey(env string) (*GeneratedKey, error) {
	if env != EnvTest {
		env = EnvLive
	}

	prefix, err := randomHex(KeyPrefixLen / 2)
	if err != nil {
		return nil, fmt.Errorf("generate prefix: %w", err)
	}
	secret, err := randomHex(KeySecretLen / 2)
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}

	plaintext := "mg_" + env + "_" + prefix + "_" + secret
	hash, err := HashSecret(plaintext)
	if err != nil {
		return nil, fmt.Errorf("hash key: %w", err)
	}

	return &GeneratedKey{Plaintext: plaintext, Hash: hash, Prefix: prefix}, nil
}

// ParsedKey is the decomposed form of a plaintext key.
type ParsedKey struct {
	Env    string
	Prefix string
	Secret string
}

// ParseAPIKey splits a plaintext key, rejecting anything not in the mg_ format.
func ParseAPIKey(key string) (*ParsedKey, error) {
	m := keyFormatRegex.FindStringSubmatch(key)
	if m == nil {
		return nil, ErrInvalidKeyFormat
	}
	return &ParsedKey{Env: m[1], Prefix: m[2], Secret: m[3]}, nil
}

// ValidateKeyFormat reports whether key has the mg_ shape.
func ValidateKeyFormat(key string) bool {
	return keyFormatRegex.MatchString(key)
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
