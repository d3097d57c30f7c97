package tools

import (
	"context"
	"errors"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/paper-assistant/internal/app"
	"github.com/Epistemic-Technology/paper-assistant/models"
)

type PaperChatQuery struct {
	PaperID string `json:"paper_id"`
	Message string `json:"message"`
}

type PaperChatResponse struct {
	Reply models.Message `json:"reply"`
	// Error is set when the model call failed and Reply is the fallback.
	Error string `json:"error,omitempty"`
}

type PaperChatClearQuery struct {
	PaperID string `json:"paper_id"`
}

type PaperChatClearResponse struct {
	PaperID string `json:"paper_id"`
	Cleared bool   `json:"cleared"`
}

func PaperChatTool() *mcp.Tool {
	inputschema, err := jsonschema.For[PaperChatQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "paper-chat",
		Description: "Ask a question about an uploaded paper. The paper's summary and structure check plus the last few turns of the conversation are sent as context. The conversation is kept per paper; read it with the paper://{paperId}/chat resource.",
		InputSchema: inputschema,
	}
}

func PaperChatToolHandler(ctx context.Context, req *mcp.CallToolRequest, query PaperChatQuery, a *app.App) (*mcp.CallToolResult, *PaperChatResponse, error) {
	a.Log.Info("paper-chat tool called for %s", query.PaperID)

	reply, err := a.Chat.Send(ctx, query.PaperID, query.Message)
	var modelErr *models.ModelCallError
	if errors.As(err, &modelErr) {
		return nil, &PaperChatResponse{Reply: reply, Error: models.UserMessage(err)}, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return nil, &PaperChatResponse{Reply: reply}, nil
}

func PaperChatClearTool() *mcp.Tool {
	inputschema, err := jsonschema.For[PaperChatClearQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "paper-chat-clear",
		Description: "Clear the conversation about a paper. The next question starts a new session.",
		InputSchema: inputschema,
	}
}

func PaperChatClearToolHandler(ctx context.Context, req *mcp.CallToolRequest, query PaperChatClearQuery, a *app.App) (*mcp.CallToolResult, *PaperChatClearResponse, error) {
	a.Chat.Clear(ctx, query.PaperID)
	return nil, &PaperChatClearResponse{PaperID: query.PaperID, Cleared: true}, nil
}
