package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Epistemic-Technology/paper-assistant/models"
)

var (
	// ErrStateNotFound is returned when no record exists under a state name.
	ErrStateNotFound = errors.New("state record not found")
	// ErrPaperNotFound is returned when no paper exists with a given ID.
	ErrPaperNotFound = errors.New("paper not found")
)

// StateRecord is a named, versioned, opaque JSON blob.
type StateRecord struct {
	Name      string
	Version   int
	Data      []byte
	UpdatedAt time.Time
}

// StateStore persists named state records such as the chat history.
type StateStore interface {
	// LoadState returns the record stored under name, or ErrStateNotFound
	LoadState(ctx context.Context, name string) (*StateRecord, error)

	// SaveState creates or replaces the record with the same name
	SaveState(ctx context.Context, record StateRecord) error

	// DeleteState removes the record; deleting a missing record is not an error
	DeleteState(ctx context.Context, name string) error
}

// PaperRepository persists papers that reached a terminal state.
type PaperRepository interface {
	// SavePaper creates or replaces a paper by ID
	SavePaper(ctx context.Context, paper *models.Paper) error

	// GetPaper retrieves a paper by ID, or ErrPaperNotFound
	GetPaper(ctx context.Context, id string) (*models.Paper, error)

	// ListPapers returns all stored papers, newest upload first
	ListPapers(ctx context.Context) ([]models.Paper, error)

	// DeletePaper removes a paper; deleting a missing paper is not an error
	DeletePaper(ctx context.Context, id string) error
}

// Store is the full persistence backend
type Store interface {
	StateStore
	PaperRepository

	// Close closes the database connection
	Close() error
}
