package tools

import (
	"context"
	"encoding/base64"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Epistemic-Technology/paper-assistant/internal/app"
	"github.com/Epistemic-Technology/paper-assistant/internal/config"
	"github.com/Epistemic-Technology/paper-assistant/internal/documents"
	"github.com/Epistemic-Technology/paper-assistant/internal/logger"
	"github.com/Epistemic-Technology/paper-assistant/internal/operations"
	"github.com/Epistemic-Technology/paper-assistant/internal/pdf/pdftest"
	"github.com/Epistemic-Technology/paper-assistant/internal/prompt"
	"github.com/Epistemic-Technology/paper-assistant/models"
)

type stubCompleter struct {
	reply string
	err   error
}

func (s stubCompleter) Complete(ctx context.Context, messages []prompt.Message, temperature float64) (string, error) {
	return s.reply, s.err
}

func newTestApp(t *testing.T, completer stubCompleter) *app.App {
	t.Helper()
	cfg := &config.Config{
		Upload:     config.UploadConfig{MaxBytes: 1024 * 1024},
		Processing: config.ProcessingConfig{TickInterval: time.Millisecond, TickMaxStep: 3, TickCeiling: 90},
		Chat:       config.ChatConfig{Backend: "memory", StorageName: "chat-storage", ContextLimit: 4},
		Storage:    config.StorageConfig{DBPath: filepath.Join(t.TempDir(), "tools.db")},
	}
	a, err := app.New(context.Background(), cfg, logger.NewNoOpLogger(), app.WithCompleter(completer))
	if err != nil {
		t.Fatalf("Failed to create app: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

const analysisReply = "=== STRUCTURE ANALYSIS ===\nNo Conclusion section\n=== SUMMARY ===\nA careful study."

func encodedPDF() string {
	return base64.StdEncoding.EncodeToString(pdftest.Build("Abstract", "Results"))
}

func TestPaperAnalyzeToolHandler(t *testing.T) {
	a := newTestApp(t, stubCompleter{reply: analysisReply})

	_, resp, err := PaperAnalyzeToolHandler(context.Background(), nil, PaperAnalyzeQuery{PDFBase64: encodedPDF()}, a)
	if err != nil {
		t.Fatalf("PaperAnalyzeToolHandler failed: %v", err)
	}
	if resp.Summary != "A careful study." || resp.FullSummary != resp.Summary || resp.Compliance != "No Conclusion section" {
		t.Errorf("Unexpected response %+v", resp)
	}

	_, _, err = PaperAnalyzeToolHandler(context.Background(), nil, PaperAnalyzeQuery{}, a)
	var validationErr *models.ValidationError
	if !errors.As(err, &validationErr) {
		t.Errorf("Expected ValidationError without a PDF, got %v", err)
	}
}

func TestPaperLifecycleTools(t *testing.T) {
	a := newTestApp(t, stubCompleter{reply: analysisReply})
	ctx := context.Background()

	_, uploaded, err := PaperUploadToolHandler(ctx, nil, PaperUploadQuery{Title: "My Paper", PDFBase64: encodedPDF()}, a)
	if err != nil {
		t.Fatalf("PaperUploadToolHandler failed: %v", err)
	}
	if uploaded.Status != string(models.PaperStatusProcessing) || uploaded.Title != "My Paper" {
		t.Errorf("Unexpected upload response %+v", uploaded)
	}
	a.Runner.Wait()

	_, status, err := PaperStatusToolHandler(ctx, nil, PaperStatusQuery{PaperID: uploaded.PaperID}, a)
	if err != nil {
		t.Fatalf("PaperStatusToolHandler failed: %v", err)
	}
	if status.Paper.Status != models.PaperStatusCompleted || status.Paper.Progress != 100 {
		t.Errorf("Expected completed paper, got %+v", status.Paper)
	}
	if len(status.ResourcePaths) != 4 {
		t.Errorf("Expected 4 resource paths for a completed paper, got %v", status.ResourcePaths)
	}

	_, list, err := PaperListToolHandler(ctx, nil, PaperListQuery{}, a)
	if err != nil {
		t.Fatalf("PaperListToolHandler failed: %v", err)
	}
	if list.Count != 1 || list.Papers[0].PaperID != uploaded.PaperID {
		t.Errorf("Unexpected list %+v", list)
	}

	if _, _, err := PaperDeleteToolHandler(ctx, nil, PaperDeleteQuery{PaperID: uploaded.PaperID}, a); err != nil {
		t.Fatalf("PaperDeleteToolHandler failed: %v", err)
	}
	if _, _, err := PaperStatusToolHandler(ctx, nil, PaperStatusQuery{PaperID: uploaded.PaperID}, a); err == nil {
		t.Error("Expected error for deleted paper")
	}
	if _, _, err := PaperDeleteToolHandler(ctx, nil, PaperDeleteQuery{PaperID: uploaded.PaperID}, a); err == nil {
		t.Error("Expected error deleting a missing paper")
	}
}

func TestPaperChatTools(t *testing.T) {
	a := newTestApp(t, stubCompleter{reply: analysisReply})
	ctx := context.Background()

	paper := a.Runner.Submit(mustFetch(t, a))
	a.Runner.Wait()

	_, resp, err := PaperChatToolHandler(ctx, nil, PaperChatQuery{PaperID: paper.ID, Message: "Summarize again"}, a)
	if err != nil {
		t.Fatalf("PaperChatToolHandler failed: %v", err)
	}
	if resp.Error != "" || resp.Reply.Role != models.RoleAssistant {
		t.Errorf("Unexpected chat response %+v", resp)
	}
	if n := len(a.Chat.Store().Messages(paper.ID)); n != 3 {
		t.Errorf("Expected 3 messages, got %d", n)
	}

	_, cleared, err := PaperChatClearToolHandler(ctx, nil, PaperChatClearQuery{PaperID: paper.ID}, a)
	if err != nil || !cleared.Cleared {
		t.Fatalf("PaperChatClearToolHandler failed: %v", err)
	}
	if a.Chat.Store().HasSession(paper.ID) {
		t.Error("Expected session to be cleared")
	}
}

func TestPaperChatToolReportsFallback(t *testing.T) {
	a := newTestApp(t, stubCompleter{err: errors.New("upstream unavailable")})
	ctx := context.Background()

	paper := a.Machine.Begin("Manual")
	_, resp, err := PaperChatToolHandler(ctx, nil, PaperChatQuery{PaperID: paper.ID, Message: "Hello?"}, a)
	if err != nil {
		t.Fatalf("Expected fallback response rather than error, got %v", err)
	}
	if resp.Reply.Content != operations.FallbackReply || resp.Error == "" {
		t.Errorf("Unexpected fallback response %+v", resp)
	}
}

func mustFetch(t *testing.T, a *app.App) *documents.Document {
	t.Helper()
	doc, err := a.Fetcher.Fetch(context.Background(), documents.Source{Base64: encodedPDF(), Title: "Chat Paper"})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	return doc
}
