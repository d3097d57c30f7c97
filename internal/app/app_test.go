package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Epistemic-Technology/paper-assistant/internal/config"
	"github.com/Epistemic-Technology/paper-assistant/internal/documents"
	"github.com/Epistemic-Technology/paper-assistant/internal/logger"
	"github.com/Epistemic-Technology/paper-assistant/internal/pdf/pdftest"
	"github.com/Epistemic-Technology/paper-assistant/internal/prompt"
	"github.com/Epistemic-Technology/paper-assistant/models"
)

type stubCompleter struct{ reply string }

func (s stubCompleter) Complete(ctx context.Context, messages []prompt.Message, temperature float64) (string, error) {
	return s.reply, nil
}

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	return &config.Config{
		LLM:        config.LLMConfig{AnalysisTemperature: 0.2, ChatTemperature: 0.7},
		Upload:     config.UploadConfig{MaxBytes: documents.DefaultMaxBytes},
		Processing: config.ProcessingConfig{TickInterval: time.Millisecond, TickMaxStep: 3, TickCeiling: 90},
		Chat:       config.ChatConfig{Backend: backend, StorageName: "chat-storage", ContextLimit: 4},
		Storage:    config.StorageConfig{DBPath: filepath.Join(t.TempDir(), "app.db")},
	}
}

func TestNewRequiresAPIKeyWithoutCompleter(t *testing.T) {
	if _, err := New(context.Background(), testConfig(t, "memory"), logger.NewNoOpLogger()); err == nil {
		t.Error("Expected error without an API key")
	}
}

func TestRestartRestoresPapersAndChat(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, "sqlite")
	completer := stubCompleter{reply: "=== STRUCTURE ANALYSIS ===\nOK\n=== SUMMARY ===\nSummary text"}

	a, err := New(ctx, cfg, logger.NewNoOpLogger(), WithCompleter(completer))
	if err != nil {
		t.Fatalf("Failed to create app: %v", err)
	}
	paper := a.Runner.Submit(&documents.Document{Data: pdftest.Build("Hello"), Title: "paper.pdf"})
	a.Runner.Wait()
	if _, err := a.Chat.Send(ctx, paper.ID, "What is it about?"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	b, err := New(ctx, cfg, logger.NewNoOpLogger(), WithCompleter(completer))
	if err != nil {
		t.Fatalf("Failed to reopen app: %v", err)
	}
	defer b.Close()

	got, ok := b.Machine.Papers().Get(paper.ID)
	if !ok {
		t.Fatal("Paper not restored")
	}
	if got.Status != models.PaperStatusCompleted || got.Summary != "Summary text" || got.Compliance != "OK" {
		t.Errorf("Unexpected restored paper %+v", got)
	}
	if msgs := b.Chat.Store().Messages(paper.ID); len(msgs) != 3 {
		t.Errorf("Expected 3 restored messages, got %d", len(msgs))
	}
}

func TestMemoryChatBackendDoesNotSurviveRestart(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, "memory")
	completer := stubCompleter{reply: "Summary only"}

	a, err := New(ctx, cfg, logger.NewNoOpLogger(), WithCompleter(completer))
	if err != nil {
		t.Fatalf("Failed to create app: %v", err)
	}
	paper := a.Runner.Submit(&documents.Document{Data: pdftest.Build("Hello"), Title: "paper.pdf"})
	a.Runner.Wait()
	if _, err := a.Chat.Send(ctx, paper.ID, "Hi"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	a.Close()

	b, err := New(ctx, cfg, logger.NewNoOpLogger(), WithCompleter(completer))
	if err != nil {
		t.Fatalf("Failed to reopen app: %v", err)
	}
	defer b.Close()

	if _, ok := b.Machine.Papers().Get(paper.ID); !ok {
		t.Error("Paper should still be restored from SQLite")
	}
	if b.Chat.Store().HasSession(paper.ID) {
		t.Error("In-memory chat state should not survive a restart")
	}
}

func TestRestartDropsChatOfUnsavedPaper(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, "sqlite")
	completer := stubCompleter{reply: "=== STRUCTURE ANALYSIS ===\nOK\n=== SUMMARY ===\nSummary text"}

	a, err := New(ctx, cfg, logger.NewNoOpLogger(), WithCompleter(completer))
	if err != nil {
		t.Fatalf("Failed to create app: %v", err)
	}
	draft := a.Machine.Begin("draft.pdf")
	if _, err := a.Chat.Send(ctx, draft.ID, "Is it done yet?"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	a.Close()

	b, err := New(ctx, cfg, logger.NewNoOpLogger(), WithCompleter(completer))
	if err != nil {
		t.Fatalf("Failed to reopen app: %v", err)
	}
	defer b.Close()

	if b.Chat.Store().HasSession(draft.ID) {
		t.Error("Chat of a paper that was never saved should be dropped on restart")
	}
}
