package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/paper-assistant/internal/app"
	"github.com/Epistemic-Technology/paper-assistant/internal/documents"
)

type PaperAnalyzeQuery struct {
	PDFBase64 string `json:"pdf_base64,omitempty"` // Base64-encoded PDF, data URL prefix allowed
	URL       string `json:"url,omitempty"`        // URL to fetch the PDF from
	ZoteroID  string `json:"zotero_id,omitempty"`  // Zotero attachment key
}

type PaperAnalyzeResponse struct {
	Summary     string `json:"summary"`
	FullSummary string `json:"full_summary"`
	Compliance  string `json:"compliance"`
}

func PaperAnalyzeTool() *mcp.Tool {
	inputschema, err := jsonschema.For[PaperAnalyzeQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "paper-analyze",
		Description: "Analyze a research paper PDF and wait for the result. Returns a long-form summary and a structure check against the standard Abstract, Introduction, Methods, Results, Discussion, Conclusion layout. Provide exactly one of pdf_base64, url or zotero_id.",
		InputSchema: inputschema,
	}
}

func PaperAnalyzeToolHandler(ctx context.Context, req *mcp.CallToolRequest, query PaperAnalyzeQuery, a *app.App) (*mcp.CallToolResult, *PaperAnalyzeResponse, error) {
	a.Log.Info("paper-analyze tool called")

	doc, err := a.Fetcher.Fetch(ctx, documents.Source{
		Base64:   query.PDFBase64,
		URL:      query.URL,
		ZoteroID: query.ZoteroID,
	})
	if err != nil {
		return nil, nil, err
	}

	result, err := a.Orchestrator.Process(ctx, doc.Title, doc.Data, nil)
	if err != nil {
		return nil, nil, err
	}

	return nil, &PaperAnalyzeResponse{
		Summary:     result.Summary,
		FullSummary: result.FullSummary,
		Compliance:  result.Compliance,
	}, nil
}
