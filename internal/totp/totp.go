// Package totp derives and checks RFC 6238 codes for the provisioned secret
// with fixed parameters: HMAC-SHA1, 6 digits, 30 second step and a window of
// one step on either side.
//
// The hex secret is turned into raw bytes and re-encoded as Base32 before it
// is handed to the TOTP implementation, which decodes it back to the same
// raw bytes for the HMAC key. The round trip does not change the key; it
// only follows the Base32 convention that TOTP libraries and authenticator
// apps use for shared secrets.
package totp

import (
	"encoding/base32"
	"fmt"
	"time"

	"seedkeeper/internal/models"

	"github.com/pquerna/otp"
	otptotp "github.com/pquerna/otp/totp"
)

const (
	Digits = 6
	Period = 30
	Skew   = 1
)

var opts = otptotp.ValidateOpts{
	Period:    Period,
	Skew:      Skew,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// Base32 returns the Base32 (RFC 4648, padded) form of the secret's raw
// bytes.
func Base32(secret models.Secret) (string, error) {
	raw, err := secret.Bytes()
	if err != nil {
		return "", err
	}
	return base32.StdEncoding.EncodeToString(raw), nil
}

// TimeStep returns floor(unix seconds / Period).
func TimeStep(t time.Time) int64 {
	return t.Unix() / Period
}

// SecondsRemaining returns how long the code for t stays current, in (0, Period].
func SecondsRemaining(t time.Time) int {
	return Period - int(t.Unix()%Period)
}

// CodeAt returns the zero-padded code for the step containing t.
func CodeAt(secret models.Secret, t time.Time) (string, error) {
	key, err := Base32(secret)
	if err != nil {
		return "", err
	}
	code, err := otptotp.GenerateCodeCustom(key, t, opts)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return code, nil
}

// Generate returns the current code and the seconds it remains valid.
func Generate(secret models.Secret, now time.Time) (string, int, error) {
	code, err := CodeAt(secret, now)
	if err != nil {
		return "", 0, err
	}
	return code, SecondsRemaining(now), nil
}

// Verify reports whether candidate matches the code of the step containing
// now or of one of its neighbours. Anything other than exactly Digits ASCII
// digits is a mismatch.
func Verify(secret models.Secret, candidate string, now time.Time) (bool, error) {
	key, err := Base32(secret)
	if err != nil {
		return false, err
	}
	if !wellFormed(candidate) {
		return false, nil
	}

	ok, err := otptotp.ValidateCustom(candidate, key, now, opts)
	if err != nil {
		return false, fmt.Errorf("validate code: %w", err)
	}
	return ok, nil
}

func wellFormed(code string) bool {
	if len(code) != Digits {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
