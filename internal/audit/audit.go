// Package audit keeps the in-memory debug log of everything the workflow
// sends to and receives from the generation service.
package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type classifies an audit entry.
type Type string

const (
	TypeInfo        Type = "info"
	TypeError       Type = "error"
	TypeSuccess     Type = "success"
	TypeAPIRequest  Type = "api-request"
	TypeAPIResponse Type = "api-response"
)

// Entry is one timestamped log record. Data carries an optional structured
// payload such as the composed instruction or the parsed response.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      Type      `json:"type"`
	Message   string    `json:"message"`
	Data      any       `json:"data,omitempty"`
}

// Recorder is the write side of the log.
type Recorder interface {
	Record(typ Type, message string, data any)
}

// Log is an append-only, user-clearable list of entries. It is unbounded.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	now     func() time.Time
	onAdd   func(Entry)
}

// Option configures a Log.
type Option func(*Log)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// WithMirror calls fn with every new entry, outside the log's lock.
func WithMirror(fn func(Entry)) Option {
	return func(l *Log) { l.onAdd = fn }
}

// New creates an empty log.
func New(opts ...Option) *Log {
	l := &Log{now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record appends an entry.
func (l *Log) Record(typ Type, message string, data any) {
	e := Entry{
		ID:        uuid.NewString(),
		Timestamp: l.now(),
		Type:      typ,
		Message:   message,
		Data:      data,
	}

	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()

	if l.onAdd != nil {
		l.onAdd(e)
	}
}

// Entries returns a copy of the log, oldest first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Clear drops every entry.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

// Nop discards everything.
type Nop struct{}

func (Nop) Record(Type, string, any) {}
