package normalize

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// readPDF returns the text of every page in order, joined by "\n". Pages without a text
// layer, including pages with no content stream at all, contribute an empty string.
func readPDF(ctx context.Context, data []byte) (text string, pages int, err error) {
	// the parser panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			text, pages = "", 0
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("failed to open PDF: %w", err)
	}

	pages = r.NumPage()
	texts := make([]string, 0, pages)
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}

		// a page without /Contents is blank
		page := r.Page(i)
		if page.V.IsNull() || page.V.Key("Contents").IsNull() {
			texts = append(texts, "")
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", 0, fmt.Errorf("failed to read page %d: %w", i, err)
		}
		texts = append(texts, content)
	}

	return strings.Join(texts, "\n"), pages, nil
}
