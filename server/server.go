package server

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/paper-assistant/internal/app"
	"github.com/Epistemic-Technology/paper-assistant/resources"
	"github.com/Epistemic-Technology/paper-assistant/tools"
)

func CreateServer(a *app.App) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "paper-assistant", Version: "v0.1.0"}, nil)

	paperResourceHandler := resources.NewPaperResourceHandler(a.Machine.Papers(), a.Chat.Store())

	mcp.AddTool(server, tools.PaperAnalyzeTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.PaperAnalyzeQuery) (*mcp.CallToolResult, *tools.PaperAnalyzeResponse, error) {
		return tools.PaperAnalyzeToolHandler(ctx, req, query, a)
	})

	mcp.AddTool(server, tools.PaperUploadTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.PaperUploadQuery) (*mcp.CallToolResult, *tools.PaperUploadResponse, error) {
		return tools.PaperUploadToolHandler(ctx, req, query, a)
	})

	mcp.AddTool(server, tools.PaperStatusTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.PaperStatusQuery) (*mcp.CallToolResult, *tools.PaperStatusResponse, error) {
		return tools.PaperStatusToolHandler(ctx, req, query, a)
	})

	mcp.AddTool(server, tools.PaperListTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.PaperListQuery) (*mcp.CallToolResult, *tools.PaperListResponse, error) {
		return tools.PaperListToolHandler(ctx, req, query, a)
	})

	mcp.AddTool(server, tools.PaperDeleteTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.PaperDeleteQuery) (*mcp.CallToolResult, *tools.PaperDeleteResponse, error) {
		return tools.PaperDeleteToolHandler(ctx, req, query, a)
	})

	mcp.AddTool(server, tools.PaperChatTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.PaperChatQuery) (*mcp.CallToolResult, *tools.PaperChatResponse, error) {
		return tools.PaperChatToolHandler(ctx, req, query, a)
	})

	mcp.AddTool(server, tools.PaperChatClearTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.PaperChatClearQuery) (*mcp.CallToolResult, *tools.PaperChatClearResponse, error) {
		return tools.PaperChatClearToolHandler(ctx, req, query, a)
	})

	mcp.AddTool(server, tools.ZoteroSearchTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.ZoteroSearchQuery) (*mcp.CallToolResult, *tools.ZoteroSearchResponse, error) {
		return tools.ZoteroSearchToolHandler(ctx, req, query, a)
	})

	// Template for the paper record
	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "paper://{paperId}",
		Name:        "paper",
		Description: "Paper record with processing status, progress and, once completed, the analysis",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return paperResourceHandler.ReadResource(ctx, req.Params.URI)
	})

	// Template for the summary
	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "paper://{paperId}/summary",
		Name:        "paper-summary",
		Description: "Long-form summary of a completed paper",
		MIMEType:    "text/plain",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return paperResourceHandler.ReadResource(ctx, req.Params.URI)
	})

	// Template for the structure check
	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "paper://{paperId}/compliance",
		Name:        "paper-compliance",
		Description: "Structure check of a completed paper against the standard research-paper sections",
		MIMEType:    "text/plain",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return paperResourceHandler.ReadResource(ctx, req.Params.URI)
	})

	// Template for the conversation
	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "paper://{paperId}/chat",
		Name:        "paper-chat",
		Description: "Chat messages about the paper in order, plus the loading and error flags",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return paperResourceHandler.ReadResource(ctx, req.Params.URI)
	})

	return server
}
