package config

import (
	"context"
	"errors"
	"strings"

	"github.com/apmishra/gai-symptom-resolver/internal/storage"
)

// KeyStore keeps the API credential in its own storage record, apart from
// the session collection.
type KeyStore struct {
	record *storage.Record
}

// NewKeyStore binds the credential record of backend.
func NewKeyStore(backend storage.Backend) *KeyStore {
	return &KeyStore{record: storage.NewRecord(backend, storage.KeyAPICredential)}
}

// Load returns the saved key, or "" when none has been saved.
func (k *KeyStore) Load(ctx context.Context) (string, error) {
	data, err := k.record.Load(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Save stores key. Saving an empty key clears the record.
func (k *KeyStore) Save(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return k.Clear(ctx)
	}
	return k.record.Save(ctx, []byte(key))
}

// Clear removes the saved key.
func (k *KeyStore) Clear(ctx context.Context) error {
	return k.record.Clear(ctx)
}

// Mask renders a key for display, keeping only the last four characters.
func Mask(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}
