// Package keystore loads the service's RSA private key.
package keystore

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"seedkeeper/internal/models"
)

// KeyStore provides the private key used to open provisioning envelopes.
// Any failure wraps models.ErrConfiguration.
type KeyStore interface {
	Load() (*rsa.PrivateKey, error)
}

// FileKeyStore reads a PEM encoded key from disk on every Load.
type FileKeyStore struct {
	path string
}

func NewFileKeyStore(path string) *FileKeyStore {
	return &FileKeyStore{path: path}
}

func (k *FileKeyStore) Path() string {
	return k.path
}

func (k *FileKeyStore) Load() (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(k.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read private key: %v", models.ErrConfiguration, err)
	}
	return Parse(data)
}

// Parse decodes a PKCS#1 ("RSA PRIVATE KEY") or PKCS#8 ("PRIVATE KEY")
// PEM block holding an RSA key.
func Parse(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: invalid private key PEM", models.ErrConfiguration)
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: parse pkcs1 key: %v", models.ErrConfiguration, err)
		}
		return key, nil
	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: parse pkcs8 key: %v", models.ErrConfiguration, err)
		}
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: private key is %T, want RSA", models.ErrConfiguration, parsed)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("%w: unsupported key type: %s", models.ErrConfiguration, block.Type)
	}
}
