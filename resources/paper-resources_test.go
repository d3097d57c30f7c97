package resources

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/Epistemic-Technology/paper-assistant/internal/chat"
	"github.com/Epistemic-Technology/paper-assistant/internal/processing"
	"github.com/Epistemic-Technology/paper-assistant/models"
)

func newTestHandler(t *testing.T) (*PaperResourceHandler, *chat.Store) {
	t.Helper()
	papers := processing.NewPapers()
	papers.Upsert(models.Paper{
		ID:          "done",
		Title:       "Finished",
		Status:      models.PaperStatusCompleted,
		Progress:    100,
		Summary:     "Short",
		FullSummary: "Long summary",
		Compliance:  "Missing Results section",
	})
	papers.Upsert(models.Paper{ID: "busy", Title: "Running", Status: models.PaperStatusProcessing, Progress: 40})

	store := chat.NewStore()
	if _, err := store.AddMessage(context.Background(), "done", models.RoleUser, "Hi"); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}
	return NewPaperResourceHandler(papers, store), store
}

func TestReadResource(t *testing.T) {
	h, _ := newTestHandler(t)
	ctx := context.Background()

	tests := []struct {
		uri      string
		mimeType string
		contains string
	}{
		{"paper://done", "application/json", `"fullSummary": "Long summary"`},
		{"paper://done/summary", "text/plain", "Long summary"},
		{"paper://done/compliance", "text/plain", "Missing Results section"},
		{"paper://busy", "application/json", `"status": "processing"`},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			result, err := h.ReadResource(ctx, tt.uri)
			if err != nil {
				t.Fatalf("ReadResource failed: %v", err)
			}
			if len(result.Contents) != 1 {
				t.Fatalf("Expected 1 content entry, got %d", len(result.Contents))
			}
			c := result.Contents[0]
			if c.URI != tt.uri || c.MIMEType != tt.mimeType {
				t.Errorf("Unexpected content header %s %s", c.URI, c.MIMEType)
			}
			if !strings.Contains(c.Text, tt.contains) {
				t.Errorf("Expected %q in %q", tt.contains, c.Text)
			}
		})
	}
}

func TestReadChatResource(t *testing.T) {
	h, store := newTestHandler(t)
	store.SetError("model call failed")

	result, err := h.ReadResource(context.Background(), "paper://done/chat")
	if err != nil {
		t.Fatalf("ReadResource failed: %v", err)
	}

	var got chatResource
	if err := json.Unmarshal([]byte(result.Contents[0].Text), &got); err != nil {
		t.Fatalf("Failed to decode chat resource: %v", err)
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "Hi" {
		t.Errorf("Unexpected messages %+v", got.Messages)
	}
	if got.Error != "model call failed" {
		t.Errorf("Expected store error in resource, got %q", got.Error)
	}
}

func TestReadResourceErrors(t *testing.T) {
	h, _ := newTestHandler(t)
	ctx := context.Background()

	for _, uri := range []string{
		"pdf://done",
		"paper://",
		"paper://missing",
		"paper://busy/summary",
		"paper://done/pages",
		"paper://done/chat/extra",
	} {
		t.Run(uri, func(t *testing.T) {
			if _, err := h.ReadResource(ctx, uri); err == nil {
				t.Errorf("Expected error for %s", uri)
			}
		})
	}
}
