package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"seedkeeper/internal/models"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

var (
	bucketSecret = []byte("secret")
	keyCurrent   = []byte("current")
)

// BboltStorage keeps the secret under a fixed key. Every write is a single
// bbolt transaction, so readers never see a partial record.
type BboltStorage struct {
	db  *bbolt.DB
	now func() time.Time
}

func NewBboltStorage(path string) (*BboltStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSecret)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &BboltStorage{db: db, now: time.Now}, nil
}

func (s *BboltStorage) Close() error {
	return s.db.Close()
}

// Store replaces the current secret.
func (s *BboltStorage) Store(secret models.Secret) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("failed to generate record id: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return put(tx, bucketSecret, &DBSecret{
			ID:            id.String(),
			Hex:           string(secret),
			ProvisionedAt: s.now().Unix(),
		})
	})
}

func (s *BboltStorage) Load() (models.Secret, error) {
	rec, err := s.Record()
	if err != nil {
		return "", err
	}
	return models.ParseSecret(rec.Hex)
}

// Record returns the stored record including its provisioning metadata.
func (s *BboltStorage) Record() (DBSecret, error) {
	var rec DBSecret
	err := s.db.View(func(tx *bbolt.Tx) error {
		return get(tx, bucketSecret, &rec)
	})
	return rec, err
}

func put(tx *bbolt.Tx, bucket []byte, item Storeable) error {
	data, err := item.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	return tx.Bucket(bucket).Put(item.Key(), data)
}

// get fills item from the value stored under item.Key().
func get(tx *bbolt.Tx, bucket []byte, item Storeable) error {
	data := tx.Bucket(bucket).Get(item.Key())
	if data == nil {
		return models.ErrNotFound
	}
	return item.UnmarshalBinary(data)
}
