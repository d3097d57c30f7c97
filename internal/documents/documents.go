package documents

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/Epistemic-Technology/paper-assistant/models"
)

// DefaultMaxBytes is the largest PDF accepted from any source.
const DefaultMaxBytes = 15 * 1024 * 1024

// Source describes where a PDF comes from. Exactly one of Base64, URL and
// ZoteroID must be set.
type Source struct {
	Base64   string
	URL      string
	ZoteroID string
	// Title overrides the title derived from the source.
	Title string
}

// Document is a fetched PDF ready for processing.
type Document struct {
	Data       []byte
	Title      string
	SourceInfo models.SourceInfo
}

// FetcherConfig configures a Fetcher
type FetcherConfig struct {
	MaxBytes        int64
	ZoteroAPIKey    string
	ZoteroLibraryID string
	HTTPClient      *http.Client
}

// Fetcher retrieves PDFs from inline base64, URLs and Zotero libraries,
// enforcing a single size bound.
type Fetcher struct {
	maxBytes        int64
	zoteroAPIKey    string
	zoteroLibraryID string
	httpClient      *http.Client
}

func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Fetcher{
		maxBytes:        cfg.MaxBytes,
		zoteroAPIKey:    cfg.ZoteroAPIKey,
		zoteroLibraryID: cfg.ZoteroLibraryID,
		httpClient:      cfg.HTTPClient,
	}
}

// MaxBytes returns the size bound applied to every source.
func (f *Fetcher) MaxBytes() int64 {
	return f.maxBytes
}

// Fetch retrieves the document described by src. Missing, ambiguous or
// oversized input is reported as a *models.ValidationError.
func (f *Fetcher) Fetch(ctx context.Context, src Source) (*Document, error) {
	set := 0
	for _, v := range []string{src.Base64, src.URL, src.ZoteroID} {
		if strings.TrimSpace(v) != "" {
			set++
		}
	}
	switch {
	case set == 0:
		return nil, &models.ValidationError{Message: "A PDF is required: provide base64 data, a URL or a Zotero ID"}
	case set > 1:
		return nil, &models.ValidationError{Message: "Provide only one of base64 data, URL or Zotero ID"}
	}

	doc := &Document{Title: src.Title}
	var err error
	switch {
	case src.Base64 != "":
		doc.Data, err = DecodeBase64(src.Base64, f.maxBytes)
		if doc.Title == "" {
			doc.Title = "Untitled paper"
		}
	case src.URL != "":
		doc.SourceInfo.URL = src.URL
		doc.Data, err = f.GetFromURL(ctx, src.URL)
		if doc.Title == "" {
			doc.Title = titleFromURL(src.URL)
		}
	default:
		doc.SourceInfo.ZoteroID = src.ZoteroID
		doc.Data, err = f.GetFromZotero(ctx, src.ZoteroID)
		if err == nil && doc.Title == "" {
			doc.Title = f.zoteroTitle(ctx, src.ZoteroID)
		}
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// DecodeBase64 decodes an inline PDF. A data URL prefix is accepted.
func DecodeBase64(encoded string, maxBytes int64) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if i := strings.Index(encoded, ";base64,"); i >= 0 && strings.HasPrefix(encoded, "data:") {
		encoded = encoded[i+len(";base64,"):]
	}
	if encoded == "" {
		return nil, &models.ValidationError{Message: "pdfBase64 must not be empty"}
	}
	if int64(base64.StdEncoding.DecodedLen(len(encoded))) > maxBytes+2 {
		return nil, tooLarge(maxBytes)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, models.NewValidationError("pdfBase64 is not valid base64: %v", err)
	}
	if len(data) == 0 {
		return nil, &models.ValidationError{Message: "pdfBase64 decodes to an empty document"}
	}
	if int64(len(data)) > maxBytes {
		return nil, tooLarge(maxBytes)
	}
	return data, nil
}

// GetFromURL downloads a document, failing on non-2xx responses and bodies
// larger than the size bound.
func (f *Fetcher) GetFromURL(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, models.NewValidationError("invalid document URL: %s", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch %s: unexpected status %s", rawURL, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, tooLarge(f.maxBytes)
	}
	if len(data) == 0 {
		return nil, errors.New("no data retrieved")
	}
	return data, nil
}

func tooLarge(maxBytes int64) error {
	return models.NewValidationError("PDF exceeds the maximum size of %d MB", maxBytes/(1024*1024))
}

func titleFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return u.Host
	}
	if unescaped, err := url.PathUnescape(name); err == nil {
		return unescaped
	}
	return name
}
