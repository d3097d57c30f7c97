package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Epistemic-Technology/paper-assistant/internal/logger"
	"github.com/Epistemic-Technology/paper-assistant/models"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db  *sql.DB
	log logger.Logger
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(dbPath string, log logger.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db, log: log}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the database tables if they don't exist
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS app_state (
		name TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		data TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS papers (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		status TEXT NOT NULL,
		uploaded_at DATETIME NOT NULL,
		progress REAL NOT NULL,
		stage TEXT,
		summary TEXT,
		full_summary TEXT,
		compliance TEXT,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_papers_uploaded_at ON papers(uploaded_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// LoadState returns the record stored under name
func (s *SQLiteStore) LoadState(ctx context.Context, name string) (*StateRecord, error) {
	record := StateRecord{Name: name}
	var data string

	err := s.db.QueryRowContext(ctx, `
		SELECT version, data, updated_at
		FROM app_state
		WHERE name = ?
	`, name).Scan(&record.Version, &data, &record.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query state %s: %w", name, err)
	}

	record.Data = []byte(data)
	return &record, nil
}

// SaveState creates or replaces a state record
func (s *SQLiteStore) SaveState(ctx context.Context, record StateRecord) error {
	updatedAt := record.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO app_state (name, version, data, updated_at)
		VALUES (?, ?, ?, ?)
	`, record.Name, record.Version, string(record.Data), updatedAt)
	if err != nil {
		return fmt.Errorf("failed to save state %s: %w", record.Name, err)
	}

	s.log.Debug("Saved state %s (version %d, %d bytes)", record.Name, record.Version, len(record.Data))
	return nil
}

// DeleteState removes a state record
func (s *SQLiteStore) DeleteState(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM app_state WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to delete state %s: %w", name, err)
	}
	return nil
}

// SavePaper creates or replaces a paper
func (s *SQLiteStore) SavePaper(ctx context.Context, paper *models.Paper) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO papers (id, title, status, uploaded_at, progress, stage, summary, full_summary, compliance, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, paper.ID, paper.Title, string(paper.Status), paper.UploadedAt.UTC(), paper.Progress,
		paper.Stage, paper.Summary, paper.FullSummary, paper.Compliance, paper.Error)
	if err != nil {
		return fmt.Errorf("failed to insert paper: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetPaper retrieves a paper by ID
func (s *SQLiteStore) GetPaper(ctx context.Context, id string) (*models.Paper, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, status, uploaded_at, progress, stage, summary, full_summary, compliance, error
		FROM papers
		WHERE id = ?
	`, id)

	paper, err := scanPaper(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaperNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query paper: %w", err)
	}
	return paper, nil
}

// ListPapers returns all stored papers, newest first
func (s *SQLiteStore) ListPapers(ctx context.Context) ([]models.Paper, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, status, uploaded_at, progress, stage, summary, full_summary, compliance, error
		FROM papers
		ORDER BY uploaded_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query papers: %w", err)
	}
	defer rows.Close()

	var papers []models.Paper
	for rows.Next() {
		paper, err := scanPaper(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan paper: %w", err)
		}
		papers = append(papers, *paper)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating papers: %w", err)
	}

	return papers, nil
}

// DeletePaper removes a paper
func (s *SQLiteStore) DeletePaper(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM papers WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete paper: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPaper(row rowScanner) (*models.Paper, error) {
	var paper models.Paper
	var status string
	var stage, summary, fullSummary, compliance, errMsg sql.NullString

	err := row.Scan(&paper.ID, &paper.Title, &status, &paper.UploadedAt, &paper.Progress,
		&stage, &summary, &fullSummary, &compliance, &errMsg)
	if err != nil {
		return nil, err
	}

	paper.Status = models.PaperStatus(status)
	paper.Stage = stage.String
	paper.Summary = summary.String
	paper.FullSummary = fullSummary.String
	paper.Compliance = compliance.String
	paper.Error = errMsg.String
	return &paper, nil
}
