// Package storage provides the key/value stores that hold the favorites list,
// the directory snapshot and the geocode cache. Values are opaque bytes; the
// JSON helpers cover the common case.
package storage

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = eris.New("storage: key not found")

// KV is a minimal persistent key/value store.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Driver names accepted by Open.
const (
	DriverBadger = "badger"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Open returns the KV implementation for driver, rooted at path.
func Open(driver, path string) (KV, error) {
	switch strings.ToLower(driver) {
	case DriverBadger, "":
		return NewBadger(path)
	case DriverSQLite:
		return NewSQLite(path)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, eris.Errorf("storage: unknown driver %q", driver)
	}
}

// IsNotFound reports whether err means the key is absent.
func IsNotFound(err error) bool {
	return eris.Is(err, ErrNotFound)
}

// GetJSON decodes the value under key into out. found is false when the key
// does not exist.
func GetJSON(ctx context.Context, kv KV, key string, out any) (found bool, err error) {
	data, err := kv.Get(ctx, key)
	if IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return true, eris.Wrapf(err, "storage: decode %s", key)
	}
	return true, nil
}

// SetJSON encodes value and stores it under key, replacing any previous value.
func SetJSON(ctx context.Context, kv KV, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return eris.Wrapf(err, "storage: encode %s", key)
	}
	return kv.Set(ctx, key, data)
}
