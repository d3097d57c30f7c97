package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/paper-assistant/internal/app"
)

type PaperListQuery struct{}

type PaperListResponse struct {
	Papers []PaperListItem `json:"papers"`
	Count  int             `json:"count"`
}

type PaperListItem struct {
	PaperID  string  `json:"paper_id"`
	Title    string  `json:"title"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	Stage    string  `json:"stage,omitempty"`
}

func PaperListTool() *mcp.Tool {
	inputschema, err := jsonschema.For[PaperListQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "paper-list",
		Description: "List uploaded papers, newest first, with their processing status.",
		InputSchema: inputschema,
	}
}

func PaperListToolHandler(ctx context.Context, req *mcp.CallToolRequest, query PaperListQuery, a *app.App) (*mcp.CallToolResult, *PaperListResponse, error) {
	papers := a.Machine.Papers().List()

	items := make([]PaperListItem, len(papers))
	for i, p := range papers {
		items[i] = PaperListItem{
			PaperID:  p.ID,
			Title:    p.Title,
			Status:   string(p.Status),
			Progress: p.Progress,
			Stage:    p.Stage,
		}
	}

	return nil, &PaperListResponse{Papers: items, Count: len(items)}, nil
}
