// Package storage provides the namespaced persistence records the rest of the
// module reads and writes. A backend stores opaque byte values under keys; a
// Record binds one key so callers only see Load and Save.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Well-known record keys.
const (
	KeyAPICredential = "gemini-api-key"
	KeySessions      = "analysis-sessions"
)

// ErrNotFound is returned when a key has never been written or was deleted.
var ErrNotFound = errors.New("storage: record not found")

// Backend is a durable key/value store. Put must be atomic: a reader sees
// either the previous value or the new one, never a partial write.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Record is a single namespaced value in a Backend.
type Record struct {
	backend Backend
	key     string
}

// NewRecord binds key in backend.
func NewRecord(backend Backend, key string) *Record {
	return &Record{backend: backend, key: key}
}

// Key returns the namespace of the record.
func (r *Record) Key() string { return r.key }

// Load returns the stored bytes, or ErrNotFound.
func (r *Record) Load(ctx context.Context) ([]byte, error) {
	data, err := r.backend.Get(ctx, r.key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load %s: %w", r.key, err)
	}
	return data, nil
}

// Save replaces the stored bytes.
func (r *Record) Save(ctx context.Context, data []byte) error {
	if err := r.backend.Put(ctx, r.key, data); err != nil {
		return fmt.Errorf("save %s: %w", r.key, err)
	}
	return nil
}

// Clear removes the record. Clearing an absent record is not an error.
func (r *Record) Clear(ctx context.Context) error {
	if err := r.backend.Delete(ctx, r.key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("clear %s: %w", r.key, err)
	}
	return nil
}

// MemoryBackend keeps records in process memory. Used by tests and by the CLI
// when persistence is disabled.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryBackend) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryBackend) Close() error { return nil }
