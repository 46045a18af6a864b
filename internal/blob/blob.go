// Package blob defines the object-store gateway every other component
// persists through: named byte blobs with get, put and prefix listing.
package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ContentTypeJSON is the content type used for every document the gateway writes.
const ContentTypeJSON = "application/json"

var ErrInvalidKey = errors.New("invalid blob key")

// Store is the minimal object store contract. Get reports absence with
// ok=false rather than an error. List returns at most limit keys starting
// with prefix; callers must not rely on any particular order.
type Store interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
	List(ctx context.Context, prefix string, limit int) ([]string, error)
}

// Pinger is implemented by backends that can report their own readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ValidateKey rejects empty keys and keys that could escape a namespace.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

// GetJSON decodes the blob at key into v. It returns false when the blob
// is absent or does not parse.
func GetJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	data, ok, err := s.Get(ctx, key)
	if err != nil || !ok || len(data) == 0 {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, nil
	}
	return true, nil
}

// PutJSON stores v as compact JSON.
func PutJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.Put(ctx, key, data, ContentTypeJSON)
}
