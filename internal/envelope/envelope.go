// Package envelope opens provisioning envelopes: base64 encoded RSA-OAEP
// (SHA-256 hash and MGF1 digest, empty label) ciphertexts carrying the
// hex encoded shared secret.
package envelope

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"seedkeeper/internal/models"
)

// Decrypt returns the validated secret carried by envelope. It has no side
// effects. Decryption failures are reported as a bare models.ErrCrypto so the
// caller can't tell a wrong key from a padding error.
func Decrypt(envelope string, key *rsa.PrivateKey) (models.Secret, error) {
	if key == nil {
		return "", fmt.Errorf("%w: no private key", models.ErrConfiguration)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(strings.TrimSpace(envelope))
	if err != nil {
		return "", fmt.Errorf("%w: envelope is not valid base64", models.ErrDecoding)
	}

	plaintext, err := rsa.DecryptOAEP(sha256.New(), nil, key, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: envelope decryption failed", models.ErrCrypto)
	}

	if !utf8.Valid(plaintext) {
		return "", fmt.Errorf("%w: decrypted secret is not utf-8", models.ErrValidation)
	}

	return models.ParseSecret(string(plaintext))
}

// Encrypt seals secret for the holder of pub. It is the inverse of Decrypt
// and is used by tooling and tests.
func Encrypt(secret string, pub *rsa.PublicKey) (string, error) {
	ciphertext, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, []byte(secret), nil)
	if err != nil {
		return "", fmt.Errorf("encrypt envelope: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}
