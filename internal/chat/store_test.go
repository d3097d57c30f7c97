package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Epistemic-Technology/paper-assistant/models"
)

func newTestStore() *Store {
	n := 0
	return NewStore(
		WithClock(func() time.Time { return time.UnixMilli(1700000000000) }),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("msg-%d", n)
		}),
	)
}

func TestAddMessageCreatesSession(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	if store.HasSession("p1") {
		t.Fatal("Expected no session before first message")
	}

	msg, err := store.AddMessage(ctx, "p1", models.RoleUser, "What is X?")
	if err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}

	got := store.Messages("p1")
	if len(got) != 1 {
		t.Fatalf("Expected exactly 1 message, got %d", len(got))
	}
	if got[0] != msg {
		t.Errorf("Stored message %+v differs from returned %+v", got[0], msg)
	}
	if msg.ID != "msg-1" || msg.Role != models.RoleUser || msg.Content != "What is X?" {
		t.Errorf("Unexpected message %+v", msg)
	}
	if msg.Timestamp != 1700000000000 {
		t.Errorf("Expected millisecond timestamp, got %d", msg.Timestamp)
	}
}

func TestAddMessageValidation(t *testing.T) {
	tests := []struct {
		name    string
		paperID string
		role    models.Role
		content string
		wantMsg string
	}{
		{"empty paper ID", "", models.RoleUser, "hi", "Paper ID is required"},
		{"blank paper ID", "   ", models.RoleUser, "hi", "Paper ID is required"},
		{"empty content", "p1", models.RoleUser, "", "Message content cannot be empty"},
		{"whitespace content", "p1", models.RoleAssistant, " \n\t", "Message content cannot be empty"},
		{"unknown role", "p1", models.Role("bot"), "hi", `Unknown message role "bot"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore()
			_, err := store.AddMessage(context.Background(), tt.paperID, tt.role, tt.content)

			var validationErr *models.ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("Expected *models.ValidationError, got %v", err)
			}
			if err.Error() != tt.wantMsg {
				t.Errorf("Error = %q, want %q", err.Error(), tt.wantMsg)
			}
			if store.Err() != tt.wantMsg {
				t.Errorf("Store error flag = %q, want %q", store.Err(), tt.wantMsg)
			}
			if len(store.Sessions()) != 0 {
				t.Errorf("Expected no session to be created, got %v", store.Sessions())
			}
		})
	}
}

func TestContextWindow(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	for i := 1; i <= 6; i++ {
		role := models.RoleUser
		if i%2 == 0 {
			role = models.RoleAssistant
		}
		if _, err := store.AddMessage(ctx, "p1", role, fmt.Sprintf("m%d", i)); err != nil {
			t.Fatalf("AddMessage failed: %v", err)
		}
	}

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{"default limit", 0, []string{"m3", "m4", "m5", "m6"}},
		{"negative uses default", -1, []string{"m3", "m4", "m5", "m6"}},
		{"smaller limit", 2, []string{"m5", "m6"}},
		{"limit beyond length", 10, []string{"m1", "m2", "m3", "m4", "m5", "m6"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			window := store.ContextWindow("p1", tt.limit)
			if len(window) != len(tt.want) {
				t.Fatalf("Expected %d messages, got %d", len(tt.want), len(window))
			}
			for i, m := range window {
				if m.Content != tt.want[i] {
					t.Errorf("Message %d = %q, want %q", i, m.Content, tt.want[i])
				}
			}
		})
	}

	if got := store.ContextWindow("unknown", 4); len(got) != 0 {
		t.Errorf("Expected empty window for unknown paper, got %d", len(got))
	}
}

func TestReturnedSlicesAreCopies(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	if _, err := store.AddMessage(ctx, "p1", models.RoleUser, "original"); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}

	msgs := store.Messages("p1")
	msgs[0].Content = "tampered"
	window := store.ContextWindow("p1", 4)
	window[0].Content = "tampered"

	if got := store.Messages("p1")[0].Content; got != "original" {
		t.Errorf("Store was mutated through a returned slice: %q", got)
	}
}

func TestClearChat(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	_, _ = store.AddMessage(ctx, "p1", models.RoleUser, "a")
	_, _ = store.AddMessage(ctx, "p2", models.RoleUser, "b")

	store.ClearChat(ctx, "p1")

	if store.HasSession("p1") {
		t.Error("Expected p1 session to be removed")
	}
	if len(store.Messages("p2")) != 1 {
		t.Error("Clearing p1 must not affect p2")
	}

	// Clearing a missing session is a no-op.
	store.ClearChat(ctx, "missing")
}

func TestLoadingAndErrorFlags(t *testing.T) {
	store := newTestStore()

	store.SetError("Failed to process chat message")
	if store.Err() != "Failed to process chat message" {
		t.Fatalf("Expected error to be set, got %q", store.Err())
	}

	store.SetLoading(true)
	if !store.Loading() {
		t.Error("Expected loading to be true")
	}
	if store.Err() != "" {
		t.Errorf("Starting a load should clear the error, got %q", store.Err())
	}

	store.SetError("boom")
	store.SetLoading(false)
	if store.Loading() {
		t.Error("Expected loading to be false")
	}
	if store.Err() != "boom" {
		t.Errorf("Stopping a load must keep the error, got %q", store.Err())
	}

	store.ClearError()
	if store.Err() != "" {
		t.Errorf("Expected cleared error, got %q", store.Err())
	}
}

func TestConcurrentAppends(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	papers := []string{"a", "b", "c"}
	const perPaper = 50

	var wg sync.WaitGroup
	for _, paperID := range papers {
		for i := 0; i < perPaper; i++ {
			wg.Add(1)
			go func(paperID string, i int) {
				defer wg.Done()
				if _, err := store.AddMessage(ctx, paperID, models.RoleUser, fmt.Sprintf("%s-%d", paperID, i)); err != nil {
					t.Errorf("AddMessage failed: %v", err)
				}
			}(paperID, i)
		}
	}
	wg.Wait()

	for _, paperID := range papers {
		msgs := store.Messages(paperID)
		if len(msgs) != perPaper {
			t.Errorf("Paper %s: expected %d messages, got %d", paperID, perPaper, len(msgs))
		}
		seen := make(map[string]bool)
		for _, m := range msgs {
			if seen[m.ID] {
				t.Errorf("Duplicate message ID %s", m.ID)
			}
			seen[m.ID] = true
		}
	}
}
