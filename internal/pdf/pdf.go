package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	textpdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/Epistemic-Technology/paper-assistant/models"
)

// PageSeparator joins extracted pages into the full text sent to the model.
const PageSeparator = "\n\n"

// ExtractPages decodes a PDF buffer into one text string per page, in
// document order. Blank pages yield an empty string. Extraction is
// all-or-nothing: any failure returns a *models.ExtractionError and no pages.
func ExtractPages(data []byte) (pages []string, err error) {
	if len(data) == 0 {
		return nil, &models.ExtractionError{Err: errors.New("empty PDF buffer")}
	}

	pageCount, err := PageCount(data)
	if err != nil {
		return nil, &models.ExtractionError{Err: err}
	}

	// The text decoder panics on some malformed object graphs.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = &models.ExtractionError{Err: fmt.Errorf("PDF decoder panic: %v", r)}
		}
	}()

	reader, err := textpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &models.ExtractionError{Err: fmt.Errorf("failed to open PDF for text extraction: %w", err)}
	}

	if reader.NumPage() != pageCount {
		return nil, &models.ExtractionError{
			Err: fmt.Errorf("page count mismatch: document declares %d pages, found %d", pageCount, reader.NumPage()),
		}
	}

	pages = make([]string, 0, pageCount)
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			return nil, &models.ExtractionError{Err: fmt.Errorf("page %d has no page object", pageNum)}
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, &models.ExtractionError{Err: fmt.Errorf("failed to extract text from page %d: %w", pageNum, err)}
		}
		pages = append(pages, text)
	}

	return pages, nil
}

// PageCount reads and validates the document structure and returns the
// number of pages it declares.
func PageCount(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	pdfContext, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF: %w", err)
	}
	if pdfContext.PageCount == 0 {
		return 0, errors.New("PDF data does not contain any pages")
	}
	return pdfContext.PageCount, nil
}

// JoinPages concatenates page texts with a blank line between pages.
func JoinPages(pages []string) string {
	return strings.Join(pages, PageSeparator)
}
