// Package store provides storage backends for Lantern: playbook session state,
// feedback, mood entries, app events and signed-in users' preferences and memory.
//
// It includes an in-memory store plus SQLite and PostgreSQL backends sharing one schema.
package store

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/BTreeMap/Lantern/internal/models"
	"github.com/google/uuid"
)

// DefaultListLimit caps list queries when callers pass a non-positive limit.
const DefaultListLimit = 50

var (
	// ErrEmptySessionID is returned when a playbook state is saved without a session id.
	ErrEmptySessionID = errors.New("session id is required")
	// ErrEmptyUserID is returned when preferences or memory are saved without a user id.
	ErrEmptyUserID = errors.New("user id is required")
)

// Store is the persistence contract used by the API.
type Store interface {
	SavePlaybookState(sessionID string, state models.PlaybookState) error
	// GetPlaybookState returns nil, nil when nothing is stored for sessionID.
	GetPlaybookState(sessionID string) (*models.PlaybookState, error)
	DeletePlaybookState(sessionID string) error

	AddFeedback(f models.Feedback) (models.Feedback, error)
	// ListFeedback returns a user's feedback, newest first.
	ListFeedback(userID string, limit int) ([]models.Feedback, error)
	// FeedbackStats aggregates every rating on record.
	FeedbackStats() (models.FeedbackStats, error)
	AddMoodEntry(e models.MoodEntry) (models.MoodEntry, error)
	// ListMoodEntries returns a user's entries, newest first.
	ListMoodEntries(userID string, limit int) ([]models.MoodEntry, error)
	AddEvent(e models.Event) (models.Event, error)

	// GetPreferences and GetMemory return nil, nil when nothing is saved for userID.
	GetPreferences(userID string) (*models.UserPreferences, error)
	SavePreferences(p models.UserPreferences) error
	GetMemory(userID string) (*models.UserMemory, error)
	SaveMemory(m models.UserMemory) error
	// DeleteProfile removes a user's preferences and memory.
	DeleteProfile(userID string) error

	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a function that configures Opts.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// DetectDSNType reports "postgres" for PostgreSQL URLs or keyword DSNs and "sqlite" otherwise.
func DetectDSNType(dsn string) string {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") ||
		strings.Contains(lower, "host=") || strings.Contains(lower, "dbname=") {
		return "postgres"
	}
	return "sqlite"
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

// stamp fills a missing id and creation time.
func stamp(id *string, createdAt *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	if createdAt.IsZero() {
		*createdAt = time.Now().UTC()
	}
}

// InMemoryStore keeps everything in process memory. It is safe for concurrent use.
type InMemoryStore struct {
	mu       sync.RWMutex
	states   map[string]models.PlaybookState
	feedback []models.Feedback
	moods    []models.MoodEntry
	events   []models.Event
	prefs    map[string]models.UserPreferences
	memories map[string]models.UserMemory
}

// NewInMemoryStore returns an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		states:   make(map[string]models.PlaybookState),
		prefs:    make(map[string]models.UserPreferences),
		memories: make(map[string]models.UserMemory),
	}
}

// SavePlaybookState stores a copy of state under sessionID.
func (s *InMemoryStore) SavePlaybookState(sessionID string, state models.PlaybookState) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[sessionID] = state.Clone()
	return nil
}

// GetPlaybookState returns a copy of the stored state.
func (s *InMemoryStore) GetPlaybookState(sessionID string) (*models.PlaybookState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[sessionID]
	if !ok {
		return nil, nil
	}
	clone := st.Clone()
	return &clone, nil
}

// DeletePlaybookState removes the state for sessionID.
func (s *InMemoryStore) DeletePlaybookState(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, sessionID)
	return nil
}

// AddFeedback stores f.
func (s *InMemoryStore) AddFeedback(f models.Feedback) (models.Feedback, error) {
	stamp(&f.ID, &f.CreatedAt)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedback = append(s.feedback, f)
	return f, nil
}

// ListFeedback returns a user's feedback, newest first.
func (s *InMemoryStore) ListFeedback(userID string, limit int) ([]models.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Feedback{}
	for i := len(s.feedback) - 1; i >= 0 && len(out) < normalizeLimit(limit); i-- {
		if s.feedback[i].UserID == userID {
			out = append(out, s.feedback[i])
		}
	}
	return out, nil
}

// FeedbackStats aggregates every stored rating.
func (s *InMemoryStore) FeedbackStats() (models.FeedbackStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.NewFeedbackStats(s.feedback), nil
}

// AddMoodEntry stores e.
func (s *InMemoryStore) AddMoodEntry(e models.MoodEntry) (models.MoodEntry, error) {
	stamp(&e.ID, &e.CreatedAt)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moods = append(s.moods, e)
	return e, nil
}

// ListMoodEntries returns a user's entries, newest first.
func (s *InMemoryStore) ListMoodEntries(userID string, limit int) ([]models.MoodEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.MoodEntry{}
	for _, e := range s.moods {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b models.MoodEntry) int { return b.CreatedAt.Compare(a.CreatedAt) })
	if n := normalizeLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// AddEvent stores e.
func (s *InMemoryStore) AddEvent(e models.Event) (models.Event, error) {
	stamp(&e.ID, &e.CreatedAt)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return e, nil
}

// Events returns a copy of every recorded event.
func (s *InMemoryStore) Events() []models.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Event(nil), s.events...)
}

// GetPreferences returns a copy of the saved preferences.
func (s *InMemoryStore) GetPreferences(userID string) (*models.UserPreferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prefs[userID]
	if !ok {
		return nil, nil
	}
	clone := p.Clone()
	return &clone, nil
}

// SavePreferences replaces the saved preferences for p.UserID.
func (s *InMemoryStore) SavePreferences(p models.UserPreferences) error {
	if p.UserID == "" {
		return ErrEmptyUserID
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[p.UserID] = p.Clone()
	return nil
}

// GetMemory returns a copy of the saved memory.
func (s *InMemoryStore) GetMemory(userID string) (*models.UserMemory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.memories[userID]
	if !ok {
		return nil, nil
	}
	clone := m.Clone()
	return &clone, nil
}

// SaveMemory replaces the saved memory for m.UserID.
func (s *InMemoryStore) SaveMemory(m models.UserMemory) error {
	if m.UserID == "" {
		return ErrEmptyUserID
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memories[m.UserID] = m.Clone()
	return nil
}

// DeleteProfile removes a user's preferences and memory.
func (s *InMemoryStore) DeleteProfile(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.prefs, userID)
	delete(s.memories, userID)
	return nil
}

// Close is a no-op.
func (s *InMemoryStore) Close() error {
	return nil
}
