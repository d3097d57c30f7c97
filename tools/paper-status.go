package tools

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/paper-assistant/internal/app"
	"github.com/Epistemic-Technology/paper-assistant/internal/storage"
	"github.com/Epistemic-Technology/paper-assistant/models"
)

type PaperStatusQuery struct {
	PaperID string `json:"paper_id"`
}

type PaperStatusResponse struct {
	Paper         models.Paper `json:"paper"`
	ResourcePaths []string     `json:"resource_paths,omitempty"`
}

func PaperStatusTool() *mcp.Tool {
	inputschema, err := jsonschema.For[PaperStatusQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "paper-status",
		Description: "Get the processing status of an uploaded paper: progress (0-100), current stage, and once completed the summary and structure check.",
		InputSchema: inputschema,
	}
}

func PaperStatusToolHandler(ctx context.Context, req *mcp.CallToolRequest, query PaperStatusQuery, a *app.App) (*mcp.CallToolResult, *PaperStatusResponse, error) {
	paper, ok := a.Machine.Papers().Get(query.PaperID)
	if !ok {
		return nil, nil, fmt.Errorf("paper not found: %s", query.PaperID)
	}

	return nil, &PaperStatusResponse{
		Paper:         paper,
		ResourcePaths: storage.CalculateResourcePaths(&paper),
	}, nil
}
