package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/paper-assistant/internal/app"
	"github.com/Epistemic-Technology/paper-assistant/internal/documents"
	"github.com/Epistemic-Technology/paper-assistant/internal/storage"
)

type PaperUploadQuery struct {
	Title     string `json:"title,omitempty"`      // Display title; derived from the source if omitted
	PDFBase64 string `json:"pdf_base64,omitempty"` // Base64-encoded PDF, data URL prefix allowed
	URL       string `json:"url,omitempty"`        // URL to fetch the PDF from
	ZoteroID  string `json:"zotero_id,omitempty"`  // Zotero attachment key
}

type PaperUploadResponse struct {
	PaperID       string   `json:"paper_id"`
	Title         string   `json:"title"`
	Status        string   `json:"status"`
	ResourcePaths []string `json:"resource_paths,omitempty"`
}

func PaperUploadTool() *mcp.Tool {
	inputschema, err := jsonschema.For[PaperUploadQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "paper-upload",
		Description: "Upload a research paper PDF for background analysis. Returns immediately with a paper_id; poll paper-status until the status is completed or error. Provide exactly one of pdf_base64, url or zotero_id.",
		InputSchema: inputschema,
	}
}

func PaperUploadToolHandler(ctx context.Context, req *mcp.CallToolRequest, query PaperUploadQuery, a *app.App) (*mcp.CallToolResult, *PaperUploadResponse, error) {
	a.Log.Info("paper-upload tool called")

	doc, err := a.Fetcher.Fetch(ctx, documents.Source{
		Base64:   query.PDFBase64,
		URL:      query.URL,
		ZoteroID: query.ZoteroID,
		Title:    query.Title,
	})
	if err != nil {
		return nil, nil, err
	}

	paper := a.Runner.Submit(doc)

	return nil, &PaperUploadResponse{
		PaperID:       paper.ID,
		Title:         paper.Title,
		Status:        string(paper.Status),
		ResourcePaths: storage.CalculateResourcePaths(&paper),
	}, nil
}
