package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/paper-assistant/internal/app"
)

type PaperDeleteQuery struct {
	PaperID string `json:"paper_id"`
}

type PaperDeleteResponse struct {
	PaperID string `json:"paper_id"`
	Deleted bool   `json:"deleted"`
}

func PaperDeleteTool() *mcp.Tool {
	inputschema, err := jsonschema.For[PaperDeleteQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "paper-delete",
		Description: "Delete an uploaded paper together with its chat history. A paper still being processed is discarded when its analysis finishes.",
		InputSchema: inputschema,
	}
}

func PaperDeleteToolHandler(ctx context.Context, req *mcp.CallToolRequest, query PaperDeleteQuery, a *app.App) (*mcp.CallToolResult, *PaperDeleteResponse, error) {
	a.Log.Info("paper-delete tool called for %s", query.PaperID)
	if err := a.Runner.Delete(ctx, query.PaperID); err != nil {
		return nil, nil, err
	}
	return nil, &PaperDeleteResponse{PaperID: query.PaperID, Deleted: true}, nil
}
