package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/paper-assistant/internal/chat"
	"github.com/Epistemic-Technology/paper-assistant/internal/processing"
	"github.com/Epistemic-Technology/paper-assistant/models"
)

// PaperResourceHandler serves paper:// resources
type PaperResourceHandler struct {
	papers *processing.Papers
	chat   *chat.Store
}

// NewPaperResourceHandler creates a new paper resource handler
func NewPaperResourceHandler(papers *processing.Papers, chatStore *chat.Store) *PaperResourceHandler {
	return &PaperResourceHandler{papers: papers, chat: chatStore}
}

type chatResource struct {
	PaperID  string           `json:"paper_id"`
	Messages []models.Message `json:"messages"`
	Loading  bool             `json:"loading"`
	Error    string           `json:"error,omitempty"`
}

// ReadResource reads a specific resource by URI
func (h *PaperResourceHandler) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	// Parse URI: paper://paper_id/optional_resource_type
	if !strings.HasPrefix(uri, "paper://") {
		return nil, fmt.Errorf("invalid URI scheme, expected paper://")
	}

	parts := strings.Split(strings.TrimPrefix(uri, "paper://"), "/")
	paperID := parts[0]
	if paperID == "" {
		return nil, fmt.Errorf("invalid URI, missing paper ID")
	}
	if len(parts) > 2 {
		return nil, fmt.Errorf("invalid URI: %s", uri)
	}
	resourceType := ""
	if len(parts) == 2 {
		resourceType = parts[1]
	}

	paper, ok := h.papers.Get(paperID)
	if !ok {
		return nil, fmt.Errorf("paper not found: %s", paperID)
	}

	var content string
	var mimeType string
	switch resourceType {
	case "":
		data, err := json.MarshalIndent(paper, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal paper: %w", err)
		}
		content, mimeType = string(data), "application/json"
	case "summary", "compliance":
		if paper.Status != models.PaperStatusCompleted {
			return nil, fmt.Errorf("paper %s has not completed processing (status: %s)", paperID, paper.Status)
		}
		content, mimeType = paper.FullSummary, "text/plain"
		if resourceType == "compliance" {
			content = paper.Compliance
		}
	case "chat":
		data, err := json.MarshalIndent(chatResource{
			PaperID:  paperID,
			Messages: h.chat.Messages(paperID),
			Loading:  h.chat.Loading(),
			Error:    h.chat.Err(),
		}, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal chat: %w", err)
		}
		content, mimeType = string(data), "application/json"
	default:
		return nil, fmt.Errorf("unknown resource type: %s", resourceType)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: mimeType,
				Text:     content,
			},
		},
	}, nil
}
