package models

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration means the key material is missing or unreadable.
	ErrConfiguration = errors.New("configuration error")
	ErrDecoding      = errors.New("decoding error")
	ErrCrypto        = errors.New("crypto error")
	ErrValidation    = errors.New("validation error")
	// ErrNotFound is returned until the first successful provisioning.
	ErrNotFound = errors.New("not found")
	ErrInput    = errors.New("input error")
)

// Kind returns a short label of the error kind for logs and metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrDecoding):
		return "decoding"
	case errors.Is(err, ErrCrypto):
		return "crypto"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInput):
		return "input"
	default:
		return "internal"
	}
}

// SecretHexLen is the length of a canonical secret: 32 bytes as hex.
const SecretHexLen = 64

// Secret is the provisioned shared secret in its canonical form.
type Secret string

// ParseSecret validates s and returns it in canonical lowercase form.
func ParseSecret(s string) (Secret, error) {
	if len(s) != SecretHexLen {
		return "", fmt.Errorf("%w: secret must be %d characters, got %d", ErrValidation, SecretHexLen, len(s))
	}
	for i := 0; i < len(s); i++ {
		if !isHex(s[i]) {
			return "", fmt.Errorf("%w: secret contains a non-hex character at %d", ErrValidation, i)
		}
	}
	return Secret(strings.ToLower(s)), nil
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

// Bytes returns the raw 32 bytes of the secret.
func (s Secret) Bytes() ([]byte, error) {
	b, err := hex.DecodeString(string(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return b, nil
}

func (s Secret) String() string {
	return "[redacted]"
}

type DecryptSeedRequest struct {
	EncryptedSeed string `json:"encrypted_seed"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type GenerateResponse struct {
	Code     string `json:"code"`
	ValidFor int    `json:"valid_for"`
}

type VerifyRequest struct {
	Code *string `json:"code"`
}

type VerifyResponse struct {
	Valid bool `json:"valid"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	Provisioned bool   `json:"provisioned"`
}
