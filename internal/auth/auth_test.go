package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"seedkeeper/internal/envelope"
	"seedkeeper/internal/metrics"
	"seedkeeper/internal/models"
	"seedkeeper/internal/storage"
	"seedkeeper/internal/totp"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	seedA = "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"
	seedB = "ffeeddccbbaa99887766554433221100ffeeddccbbaa99887766554433221100"

	t0Unix = 1700000010
)

var (
	keyOnce sync.Once
	testKey *rsa.PrivateKey
)

func serviceKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	keyOnce.Do(func() {
		var err error
		testKey, err = rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
	})
	return testKey
}

type staticKeys struct {
	key *rsa.PrivateKey
	err error
}

func (s staticKeys) Load() (*rsa.PrivateKey, error) {
	return s.key, s.err
}

func seal(t *testing.T, secret string) string {
	t.Helper()
	env, err := envelope.Encrypt(secret, &serviceKey(t).PublicKey)
	require.NoError(t, err)
	return env
}

func createService(t *testing.T) (*AuthService, *time.Time, *metrics.Metrics) {
	t.Helper()

	store, err := storage.NewFileStorage(t.TempDir() + "/data/seed.txt")
	require.NoError(t, err)

	m := metrics.New("seedkeeper")
	svc := NewAuthService(staticKeys{key: serviceKey(t)}, store, m)

	currentTime := time.Unix(t0Unix, 0)
	svc.now = func() time.Time {
		return currentTime
	}

	return svc, &currentTime, m
}

func TestProvisionAndGenerate(t *testing.T) {
	svc, now, _ := createService(t)

	require.NoError(t, svc.Provision(seal(t, seedA)))

	secret, err := models.ParseSecret(seedA)
	require.NoError(t, err)
	want, err := totp.CodeAt(secret, *now)
	require.NoError(t, err)

	code, validFor, err := svc.Generate()
	require.NoError(t, err)
	assert.Equal(t, want, code)
	assert.Equal(t, 20, validFor)

	valid, err := svc.Verify(code)
	require.NoError(t, err)
	assert.True(t, valid)

	*now = now.Add(90 * time.Second)
	valid, err = svc.Verify(code)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestNotProvisioned(t *testing.T) {
	svc, _, m := createService(t)

	_, _, err := svc.Generate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrNotFound))

	_, err = svc.Verify("123456")
	assert.True(t, errors.Is(err, models.ErrNotFound))

	provisioned, err := svc.Provisioned()
	require.NoError(t, err)
	assert.False(t, provisioned)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations().WithLabelValues("generate", "not_found")))
}

func TestReprovisionReplacesSecret(t *testing.T) {
	svc, now, _ := createService(t)

	require.NoError(t, svc.Provision(seal(t, seedA)))
	oldCode, _, err := svc.Generate()
	require.NoError(t, err)

	require.NoError(t, svc.Provision(seal(t, seedB)))
	newCode, _, err := svc.Generate()
	require.NoError(t, err)

	secretB, err := models.ParseSecret(seedB)
	require.NoError(t, err)
	want, err := totp.CodeAt(secretB, *now)
	require.NoError(t, err)
	assert.Equal(t, want, newCode)

	if oldCode != newCode {
		valid, err := svc.Verify(oldCode)
		require.NoError(t, err)
		assert.False(t, valid, "code of the replaced secret must not verify")
	}
}

func TestFailedProvisionKeepsSecret(t *testing.T) {
	svc, _, m := createService(t)
	require.NoError(t, svc.Provision(seal(t, seedA)))
	before, _, err := svc.Generate()
	require.NoError(t, err)

	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	foreign, err := envelope.Encrypt(seedB, &other.PublicKey)
	require.NoError(t, err)

	tests := []struct {
		name string
		env  string
		want error
	}{
		{"malformed base64", "***", models.ErrDecoding},
		{"foreign key", foreign, models.ErrCrypto},
		{"short secret", seal(t, seedB[:62]), models.ErrValidation},
		{"non hex secret", seal(t, strings.Repeat("g", 64)), models.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Provision(tt.env)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			after, _, err := svc.Generate()
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations().WithLabelValues("provision", "crypto")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Operations().WithLabelValues("provision", "validation")))
}

func TestProvisionKeyUnavailable(t *testing.T) {
	store, err := storage.NewFileStorage(t.TempDir() + "/seed.txt")
	require.NoError(t, err)

	keyErr := errors.New("no such file")
	svc := NewAuthService(staticKeys{err: errors.Join(models.ErrConfiguration, keyErr)}, store, nil)

	err = svc.Provision("AAAA")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConfiguration))

	_, err = store.Load()
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestVerifyInput(t *testing.T) {
	svc, _, _ := createService(t)
	require.NoError(t, svc.Provision(seal(t, seedA)))

	_, err := svc.Verify("")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInput))

	for _, candidate := range []string{"12345", "1234567", "abcdef", " 12345"} {
		valid, err := svc.Verify(candidate)
		require.NoError(t, err, candidate)
		assert.False(t, valid, candidate)
	}
}

func TestConcurrentProvisioning(t *testing.T) {
	svc, _, _ := createService(t)
	envelopes := []string{seal(t, seedA), seal(t, seedB)}

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.Provision(envelopes[i%2]))
		}()
	}
	wg.Wait()

	provisioned, err := svc.Provisioned()
	require.NoError(t, err)
	assert.True(t, provisioned)

	_, _, err = svc.Generate()
	require.NoError(t, err)
}

type brokenStore struct {
	storage.SecretStore
	err error
}

func (b brokenStore) Load() (models.Secret, error) {
	return "", b.err
}

func TestProvisioned(t *testing.T) {
	svc, _, _ := createService(t)
	provisioned, err := svc.Provisioned()
	require.NoError(t, err)
	assert.False(t, provisioned)

	require.NoError(t, svc.Provision(seal(t, seedA)))
	provisioned, err = svc.Provisioned()
	require.NoError(t, err)
	assert.True(t, provisioned)

	notFound := NewAuthService(staticKeys{}, brokenStore{err: fmt.Errorf("load: %w", models.ErrNotFound)}, nil)
	provisioned, err = notFound.Provisioned()
	require.NoError(t, err)
	assert.False(t, provisioned)

	diskErr := errors.New("permission denied")
	broken := NewAuthService(staticKeys{}, brokenStore{err: diskErr}, nil)
	provisioned, err = broken.Provisioned()
	require.ErrorIs(t, err, diskErr)
	assert.False(t, provisioned)
}
