package storage

import (
	"encoding"
	"fmt"

	"seedkeeper/internal/models"

	"github.com/vmihailenco/msgpack/v5"
)

// SecretStore persists the single current secret. Store replaces the
// previous value wholesale and a concurrent Load observes either the old or
// the new value, never a mix. Load returns models.ErrNotFound until the
// first Store.
type SecretStore interface {
	Store(secret models.Secret) error
	Load() (models.Secret, error)
	Close() error
}

// Storeable is a record kept in bbolt under its own key.
type Storeable interface {
	Key() []byte
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

// DBSecret is the bbolt representation of the current secret.
type DBSecret struct {
	ID            string `msgpack:"id"`
	Hex           string `msgpack:"hex"`
	ProvisionedAt int64  `msgpack:"provisionedAt"`
}

func (s *DBSecret) Key() []byte {
	return keyCurrent
}

func (s *DBSecret) MarshalBinary() (data []byte, err error) {
	type alias DBSecret
	return msgpack.Marshal((*alias)(s))
}

func (s *DBSecret) UnmarshalBinary(data []byte) error {
	type alias DBSecret
	return msgpack.Unmarshal(data, (*alias)(s))
}

// Open returns the store selected by kind ("file" or "bbolt").
func Open(kind, filePath, dbPath string) (SecretStore, error) {
	switch kind {
	case "", "file":
		return NewFileStorage(filePath)
	case "bbolt":
		return NewBboltStorage(dbPath)
	default:
		return nil, fmt.Errorf("%w: unknown secret store %q", models.ErrConfiguration, kind)
	}
}
