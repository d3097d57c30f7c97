package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Epistemic-Technology/zotero/zotero"

	"github.com/Epistemic-Technology/paper-assistant/internal/logger"
)

// ZoteroSearchParams contains parameters for searching a Zotero library.
type ZoteroSearchParams struct {
	Query      string   // Quick search text (searches title, creator, year)
	Tags       []string // Filter by tags
	Collection string   // Filter by collection key (optional)
	Limit      int      // Max results (default 25)
}

// ZoteroPaper is a Zotero item that has at least one PDF attachment.
type ZoteroPaper struct {
	Key         string          `json:"key"`
	Title       string          `json:"title"`
	Creators    []string        `json:"creators,omitempty"`
	ItemType    string          `json:"item_type"`
	Date        string          `json:"date,omitempty"`
	Attachments []PDFAttachment `json:"attachments"`
}

// PDFAttachment identifies a PDF file; Key is what Fetch accepts as ZoteroID.
type PDFAttachment struct {
	Key      string `json:"key"`
	Filename string `json:"filename,omitempty"`
}

func (f *Fetcher) checkZotero() error {
	if f.zoteroAPIKey == "" || f.zoteroLibraryID == "" {
		return errors.New("Zotero API key and library ID must be configured")
	}
	return nil
}

// GetFromZotero downloads the file attached to a Zotero attachment item.
func (f *Fetcher) GetFromZotero(ctx context.Context, zoteroID string) ([]byte, error) {
	if err := f.checkZotero(); err != nil {
		return nil, err
	}
	client := zotero.NewClient(f.zoteroLibraryID, zotero.LibraryTypeUser, zotero.WithAPIKey(f.zoteroAPIKey))
	data, err := client.File(ctx, zoteroID)
	if err != nil {
		return nil, fmt.Errorf("failed to download Zotero attachment %s: %w", zoteroID, err)
	}
	if len(data) == 0 {
		return nil, errors.New("no data retrieved")
	}
	if int64(len(data)) > f.maxBytes {
		return nil, tooLarge(f.maxBytes)
	}
	return data, nil
}

// zoteroTitle returns the title of the attachment's parent item, falling back
// to the attachment's own title or filename, then to the key.
func (f *Fetcher) zoteroTitle(ctx context.Context, zoteroID string) string {
	if err := f.checkZotero(); err != nil {
		return zoteroID
	}
	client := zotero.NewClient(f.zoteroLibraryID, zotero.LibraryTypeUser, zotero.WithAPIKey(f.zoteroAPIKey))
	item, err := client.Item(ctx, zoteroID, nil)
	if err != nil {
		return zoteroID
	}
	if item.Data.ItemType == "attachment" && item.Data.ParentItem != "" {
		if parent, err := client.Item(ctx, item.Data.ParentItem, nil); err == nil && parent.Data.Title != "" {
			return parent.Data.Title
		}
	}
	if item.Data.Title != "" {
		return item.Data.Title
	}
	if item.Data.Filename != "" {
		return item.Data.Filename
	}
	return zoteroID
}

// SearchZotero searches the configured library and returns items that carry
// PDF attachments, so their attachment keys can be submitted for processing.
func (f *Fetcher) SearchZotero(ctx context.Context, params ZoteroSearchParams, log logger.Logger) ([]ZoteroPaper, error) {
	if err := f.checkZotero(); err != nil {
		return nil, err
	}
	client := zotero.NewClient(f.zoteroLibraryID, zotero.LibraryTypeUser, zotero.WithAPIKey(f.zoteroAPIKey))

	queryParams := &zotero.QueryParams{
		Q:        params.Query,
		QMode:    "titleCreatorYear",
		Tag:      params.Tags,
		ItemType: []string{"-attachment"},
		Limit:    params.Limit,
		Sort:     "dateModified",
	}
	if queryParams.Limit <= 0 {
		queryParams.Limit = 25
	}

	var items []zotero.Item
	var err error
	if params.Collection != "" {
		items, err = client.CollectionItems(ctx, params.Collection, queryParams)
	} else {
		items, err = client.Items(ctx, queryParams)
	}
	if err != nil {
		log.Error("Failed to search Zotero library: %v", err)
		return nil, fmt.Errorf("failed to search Zotero library: %w", err)
	}

	log.Info("Found %d items in Zotero library", len(items))

	results := make([]ZoteroPaper, 0, len(items))
	for _, item := range items {
		if item.Data.ItemType == "attachment" {
			continue
		}

		children, err := client.Children(ctx, item.Key, nil)
		if err != nil {
			log.Error("Failed to retrieve children for item %s: %v", item.Key, err)
			continue
		}

		paper := ZoteroPaper{
			Key:      item.Key,
			Title:    item.Data.Title,
			ItemType: item.Data.ItemType,
			Date:     item.Data.DateAdded,
		}
		for _, creator := range item.Data.Creators {
			if name := creatorName(creator.Name, creator.FirstName, creator.LastName); name != "" {
				paper.Creators = append(paper.Creators, name)
			}
		}
		for _, child := range children {
			if child.Data.ItemType == "attachment" && child.Data.ContentType == "application/pdf" {
				paper.Attachments = append(paper.Attachments, PDFAttachment{Key: child.Key, Filename: child.Data.Filename})
			}
		}

		if len(paper.Attachments) > 0 {
			results = append(results, paper)
		}
	}

	log.Info("Returning %d Zotero items with PDF attachments", len(results))
	return results, nil
}

func creatorName(name, first, last string) string {
	if name != "" {
		return name
	}
	return strings.TrimSpace(first + " " + last)
}
