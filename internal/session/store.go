package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/apmishra/gai-symptom-resolver/internal/storage"
)

// NameLayout formats the creation time into a session name.
const NameLayout = "Jan 2, 2006 3:04:05 PM"

// Persister loads and saves the serialized collection. *storage.Record
// satisfies it.
type Persister interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// PersistenceError reports stored state that could not be read or written.
type PersistenceError struct {
	Op  string // "load", "decode" or "save"
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("session store %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Store is the single writer of Session records. Every mutation is persisted
// before it becomes visible to readers.
type Store struct {
	mu       sync.RWMutex
	persist  Persister
	sessions []Session // newest first
	activeID string

	now    func() time.Time
	newID  func() string
	logger *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the creation-time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides session id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithLogger sets the logger used for persistence diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore creates an empty store backed by p. Call Init to load.
func NewStore(p Persister, opts ...Option) *Store {
	s := &Store{
		persist:  p,
		sessions: []Session{},
		now:      time.Now,
		newID:    uuid.NewString,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init loads the persisted collection. Absent data is a normal empty start.
// Unreadable or corrupt data also leaves the store empty and usable, and is
// reported as a *PersistenceError for the caller to log.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = []Session{}
	s.activeID = ""

	data, err := s.persist.Load(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		s.logger.Warn("session store unreadable, starting empty", zap.Error(err))
		return &PersistenceError{Op: "load", Err: err}
	}

	sessions, err := Decode(data)
	if err != nil {
		s.logger.Warn("session store corrupt, starting empty", zap.Error(err))
		return &PersistenceError{Op: "decode", Err: err}
	}

	s.sessions = sessions
	if len(sessions) > 0 {
		s.activeID = sessions[0].ID
	}
	s.logger.Debug("session store loaded", zap.Int("sessions", len(sessions)))
	return nil
}

// Encode serializes a collection in stored order.
func Encode(sessions []Session) ([]byte, error) {
	if sessions == nil {
		sessions = []Session{}
	}
	return json.Marshal(sessions)
}

// Decode parses a collection and checks every session's invariants.
func Decode(data []byte) ([]Session, error) {
	var sessions []Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("parse sessions: %w", err)
	}
	if sessions == nil {
		sessions = []Session{}
	}
	seen := make(map[string]bool, len(sessions))
	for i := range sessions {
		if err := sessions[i].Validate(); err != nil {
			return nil, err
		}
		if seen[sessions[i].ID] {
			return nil, fmt.Errorf("duplicate session id %s", sessions[i].ID)
		}
		seen[sessions[i].ID] = true
		if sessions[i].SuggestedSymptoms == nil {
			sessions[i].SuggestedSymptoms = []ConfirmedSymptom{}
		}
	}
	return sessions, nil
}

// List returns copies of all sessions, newest first.
func (s *Store) List() []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Session, len(s.sessions))
	for i, sess := range s.sessions {
		out[i] = sess.Clone()
	}
	return out
}

// Metas returns the history listing, newest first.
func (s *Store) Metas() []Meta {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Meta, len(s.sessions))
	for i, sess := range s.sessions {
		out[i] = Meta{
			ID:        sess.ID,
			Name:      sess.Name,
			Status:    sess.Status,
			CreatedAt: sess.CreatedAt,
			Active:    sess.ID == s.activeID,
		}
	}
	return out
}

// Len returns the number of stored sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Get returns a copy of the session with the given id.
func (s *Store) Get(id string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.index(id); i >= 0 {
		return s.sessions[i].Clone(), true
	}
	return Session{}, false
}

// Active returns a copy of the active session, if any.
func (s *Store) Active() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.index(s.activeID); i >= 0 {
		return s.sessions[i].Clone(), true
	}
	return Session{}, false
}

// ActiveID returns the active session id, or "" when none is selected.
func (s *Store) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// Create inserts a fresh session at the front and makes it active.
func (s *Store) Create(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := s.now()
	sess := Session{
		ID:                s.newID(),
		Name:              "Analysis - " + created.Format(NameLayout),
		CreatedAt:         created,
		Status:            StatusInput,
		SuggestedSymptoms: []ConfirmedSymptom{},
	}

	next := make([]Session, 0, len(s.sessions)+1)
	next = append(next, sess)
	next = append(next, s.sessions...)
	if err := s.commit(ctx, next); err != nil {
		return "", err
	}
	s.activeID = sess.ID
	s.logger.Debug("session created", zap.String("session_id", sess.ID))
	return sess.ID, nil
}

// Update applies mutate to a copy of the session, checks the result and
// persists it. A missing id is a no-op. If mutate or the save fails, nothing
// changes.
func (s *Store) Update(ctx context.Context, id string, mutate func(*Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return nil
	}

	updated := s.sessions[i].Clone()
	if err := mutate(&updated); err != nil {
		return err
	}
	// Identity fields are fixed at creation.
	updated.ID = s.sessions[i].ID
	updated.CreatedAt = s.sessions[i].CreatedAt
	if err := updated.Validate(); err != nil {
		return err
	}

	next := make([]Session, len(s.sessions))
	copy(next, s.sessions)
	next[i] = updated
	return s.commit(ctx, next)
}

// Delete removes a session. When it was active, the active pointer moves to
// the new first session, or to none.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return nil
	}

	next := make([]Session, 0, len(s.sessions)-1)
	next = append(next, s.sessions[:i]...)
	next = append(next, s.sessions[i+1:]...)
	if err := s.commit(ctx, next); err != nil {
		return err
	}

	if s.activeID == id {
		s.activeID = ""
		if len(next) > 0 {
			s.activeID = next[0].ID
		}
	}
	s.logger.Debug("session deleted", zap.String("session_id", id))
	return nil
}

// Select makes id the active session. It reports false when id is unknown.
func (s *Store) Select(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index(id) < 0 {
		return false
	}
	s.activeID = id
	return true
}

// commit persists next and swaps it in. Caller holds s.mu.
func (s *Store) commit(ctx context.Context, next []Session) error {
	data, err := Encode(next)
	if err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}
	if err := s.persist.Save(ctx, data); err != nil {
		s.logger.Error("failed to persist sessions", zap.Error(err))
		return &PersistenceError{Op: "save", Err: err}
	}
	s.sessions = next
	return nil
}

func (s *Store) index(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.sessions {
		if s.sessions[i].ID == id {
			return i
		}
	}
	return -1
}
