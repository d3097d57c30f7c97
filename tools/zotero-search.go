package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/paper-assistant/internal/app"
	"github.com/Epistemic-Technology/paper-assistant/internal/documents"
)

type ZoteroSearchQuery struct {
	Query      string   `json:"query,omitempty"`      // Quick search text (searches title, creator, year)
	Tags       []string `json:"tags,omitempty"`       // Filter by tags
	Collection string   `json:"collection,omitempty"` // Filter by collection key (optional)
	Limit      int      `json:"limit,omitempty"`      // Max results (default 25)
}

type ZoteroSearchResponse struct {
	Items []documents.ZoteroPaper `json:"items"`
	Count int                     `json:"count"`
}

func ZoteroSearchTool() *mcp.Tool {
	inputschema, err := jsonschema.For[ZoteroSearchQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "paper-zotero-search",
		Description: "Search the configured Zotero library for items with PDF attachments. Pass an attachment key as zotero_id to paper-upload or paper-analyze.",
		InputSchema: inputschema,
	}
}

func ZoteroSearchToolHandler(ctx context.Context, req *mcp.CallToolRequest, query ZoteroSearchQuery, a *app.App) (*mcp.CallToolResult, *ZoteroSearchResponse, error) {
	a.Log.Info("paper-zotero-search tool called")

	items, err := a.Fetcher.SearchZotero(ctx, documents.ZoteroSearchParams{
		Query:      query.Query,
		Tags:       query.Tags,
		Collection: query.Collection,
		Limit:      query.Limit,
	}, a.Log)
	if err != nil {
		return nil, nil, err
	}

	return nil, &ZoteroSearchResponse{Items: items, Count: len(items)}, nil
}
