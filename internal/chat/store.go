package chat

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Epistemic-Technology/paper-assistant/internal/logger"
	"github.com/Epistemic-Technology/paper-assistant/internal/storage"
	"github.com/Epistemic-Technology/paper-assistant/models"
)

const (
	// DefaultStorageName is the state record the message map is saved under.
	DefaultStorageName = "chat-storage"
	// DefaultContextLimit is how many prior messages accompany a chat call.
	DefaultContextLimit = 4
)

// Store is an ordered, paper-scoped message log. Messages are only ever
// appended; a session disappears only through ClearChat.
//
// The loading and error flags are global to the store, not per paper: a
// second concurrent chat turn on another paper shares them.
type Store struct {
	mu       sync.RWMutex
	sessions map[string][]models.Message
	loading  bool
	errMsg   string

	// persistMu orders saves so the last write always carries the newest map.
	persistMu sync.Mutex
	state     storage.StateStore
	name      string

	log   logger.Logger
	now   func() time.Time
	newID func() string
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides message ID generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// WithLogger sets the store's logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Store) { s.log = log }
}

// NewStore creates an empty store without persistence.
func NewStore(opts ...Option) *Store {
	s := &Store{
		sessions: make(map[string][]models.Message),
		log:      logger.NewNoOpLogger(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddMessage appends a message to the paper's session, creating the session
// if needed. On invalid input nothing is appended, the store's error flag is
// set and a *models.ValidationError is returned.
func (s *Store) AddMessage(ctx context.Context, paperID string, role models.Role, content string) (models.Message, error) {
	if err := validateMessage(paperID, role, content); err != nil {
		s.SetError(err.Error())
		return models.Message{}, err
	}

	msg := models.Message{
		ID:        s.newID(),
		Role:      role,
		Content:   content,
		Timestamp: s.now().UnixMilli(),
	}

	s.mu.Lock()
	s.sessions[paperID] = append(s.sessions[paperID], msg)
	count := len(s.sessions[paperID])
	s.mu.Unlock()

	s.log.Debug("Appended %s message to paper %s (%d messages)", role, paperID, count)
	s.persist(ctx)
	return msg, nil
}

func validateMessage(paperID string, role models.Role, content string) error {
	if strings.TrimSpace(paperID) == "" {
		return &models.ValidationError{Message: "Paper ID is required"}
	}
	if strings.TrimSpace(content) == "" {
		return &models.ValidationError{Message: "Message content cannot be empty"}
	}
	if !role.Valid() {
		return models.NewValidationError("Unknown message role %q", role)
	}
	return nil
}

// Messages returns a copy of the paper's session in insertion order.
func (s *Store) Messages(paperID string) []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Message(nil), s.sessions[paperID]...)
}

// HasSession reports whether any message exists for the paper.
func (s *Store) HasSession(paperID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[paperID]
	return ok
}

// ContextWindow returns the most recent limit messages for the paper, oldest
// first. A non-positive limit uses DefaultContextLimit.
func (s *Store) ContextWindow(paperID string, limit int) []models.Message {
	if limit <= 0 {
		limit = DefaultContextLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.sessions[paperID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]models.Message(nil), msgs...)
}

// Sessions returns the IDs of papers that have a session, sorted.
func (s *Store) Sessions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ClearChat removes the paper's session entirely.
func (s *Store) ClearChat(ctx context.Context, paperID string) {
	s.mu.Lock()
	_, existed := s.sessions[paperID]
	delete(s.sessions, paperID)
	s.mu.Unlock()

	if existed {
		s.log.Info("Cleared chat for paper %s", paperID)
		s.persist(ctx)
	}
}

// SetLoading sets the global loading flag. Starting a load clears any
// previous error.
func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = loading
	if loading {
		s.errMsg = ""
	}
}

// Loading reports whether a chat call is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Store) SetError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = msg
}

func (s *Store) ClearError() {
	s.SetError("")
}

// Err returns the last recorded error message, or "".
func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}
