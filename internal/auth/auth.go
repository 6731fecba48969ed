package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"seedkeeper/internal/envelope"
	"seedkeeper/internal/keystore"
	"seedkeeper/internal/metrics"
	"seedkeeper/internal/models"
	"seedkeeper/internal/storage"
	"seedkeeper/internal/totp"

	"github.com/google/uuid"
)

const (
	opProvision = "provision"
	opGenerate  = "generate"
	opVerify    = "verify"
)

// AuthService provisions the shared secret and acts as the TOTP authority
// for it. It keeps no copy of the secret: every call reads the store.
type AuthService struct {
	keys    keystore.KeyStore
	secrets storage.SecretStore
	metrics metrics.Recorder

	// provisioning is decrypt, validate and store as one unit.
	provisioning sync.Mutex
	now          func() time.Time
}

func NewAuthService(keys keystore.KeyStore, secrets storage.SecretStore, rec metrics.Recorder) *AuthService {
	if rec == nil {
		rec = metrics.Nop()
	}
	return &AuthService{
		keys:    keys,
		secrets: secrets,
		metrics: rec,
		now:     time.Now,
	}
}

// Provision opens envelope with the service key and replaces the stored
// secret. Nothing is written unless the envelope decrypts to a valid secret.
func (as *AuthService) Provision(env string) (err error) {
	start := as.now()
	provisionID := uuid.NewString()
	defer func() { as.record(opProvision, start, err, "provision_id", provisionID) }()

	as.provisioning.Lock()
	defer as.provisioning.Unlock()

	key, err := as.keys.Load()
	if err != nil {
		return fmt.Errorf("load private key: %w", err)
	}

	secret, err := envelope.Decrypt(env, key)
	if err != nil {
		return fmt.Errorf("open envelope: %w", err)
	}

	if err := as.secrets.Store(secret); err != nil {
		return fmt.Errorf("store secret: %w", err)
	}

	slog.Info("secret provisioned", "provision_id", provisionID)
	return nil
}

// Generate returns the current code and how many seconds it stays current.
func (as *AuthService) Generate() (code string, validFor int, err error) {
	now := as.now()
	defer func() { as.record(opGenerate, now, err) }()

	secret, err := as.secrets.Load()
	if err != nil {
		return "", 0, fmt.Errorf("load secret: %w", err)
	}

	code, validFor, err = totp.Generate(secret, now)
	if err != nil {
		return "", 0, fmt.Errorf("derive code: %w", err)
	}
	return code, validFor, nil
}

// Verify checks code against the current step and its neighbours.
func (as *AuthService) Verify(code string) (valid bool, err error) {
	now := as.now()
	defer func() { as.record(opVerify, now, err) }()

	if code == "" {
		return false, fmt.Errorf("%w: missing code", models.ErrInput)
	}

	secret, err := as.secrets.Load()
	if err != nil {
		return false, fmt.Errorf("load secret: %w", err)
	}

	valid, err = totp.Verify(secret, code, now)
	if err != nil {
		return false, fmt.Errorf("verify code: %w", err)
	}
	return valid, nil
}

// Provisioned reports whether a secret has been stored.
func (as *AuthService) Provisioned() (bool, error) {
	_, err := as.secrets.Load()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, models.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (as *AuthService) record(op string, start time.Time, err error, attrs ...any) {
	kind := models.Kind(err)
	as.metrics.RecordOperation(op, kind, as.now().Sub(start))
	if err == nil {
		return
	}

	attrs = append(attrs, "op", op, "kind", kind, "error", err)
	if kind == "input" {
		slog.Warn("request rejected", attrs...)
		return
	}
	slog.Error("request failed", attrs...)
}
