// Package normalize turns submitted documents (PDF, DOCX, plain text) into raw text.
package normalize

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/jonathan/resume-parser/internal/types"
)

// DefaultMaxDocumentBytes caps a single document at 10 MiB.
const DefaultMaxDocumentBytes int64 = 10 << 20

// Options configures a Normalizer.
type Options struct {
	// MaxDocumentBytes rejects larger documents; zero means DefaultMaxDocumentBytes.
	MaxDocumentBytes int64
	// SniffContent lets the bytes decide when neither media type nor extension does.
	SniffContent bool
	Logger       *slog.Logger
}

// Normalizer converts documents to text. It holds no per-document state and is safe
// for concurrent use.
type Normalizer struct {
	maxBytes int64
	sniff    bool
	logger   *slog.Logger
}

// New creates a Normalizer.
func New(opts Options) *Normalizer {
	if opts.MaxDocumentBytes <= 0 {
		opts.MaxDocumentBytes = DefaultMaxDocumentBytes
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Normalizer{
		maxBytes: opts.MaxDocumentBytes,
		sniff:    opts.SniffContent,
		logger:   opts.Logger,
	}
}

// DetectFormat decides which reader handles doc. A declared media type wins; an empty or
// octet-stream type defers to the extension, then to content sniffing when enabled.
func (n *Normalizer) DetectFormat(doc types.Document) (types.Format, error) {
	mediaType := doc.BaseMediaType()
	ext := doc.Extension()

	if mediaType != "" && mediaType != types.MediaTypeOctetStream {
		if f, ok := types.FormatForMediaType(mediaType); ok {
			return f, nil
		}
		return "", &types.UnsupportedFormatError{Filename: doc.Filename, MediaType: mediaType, Extension: ext}
	}

	if f, ok := types.FormatForExtension(ext); ok {
		return f, nil
	}

	if n.sniff && len(doc.Data) > 0 {
		if f, ok := sniffFormat(doc.Data); ok {
			return f, nil
		}
	}

	return "", &types.UnsupportedFormatError{Filename: doc.Filename, MediaType: mediaType, Extension: ext}
}

func sniffFormat(data []byte) (types.Format, bool) {
	m := mimetype.Detect(data)
	switch {
	case m.Is(types.MediaTypePDF):
		return types.FormatPDF, true
	case m.Is(types.MediaTypeDocx):
		return types.FormatDocx, true
	case m.Is(types.MediaTypeText):
		return types.FormatText, true
	}
	return "", false
}

// Normalize extracts the raw text of doc. Line breaks are preserved and normalized to "\n".
func (n *Normalizer) Normalize(ctx context.Context, doc types.Document) (string, types.DocumentInfo, error) {
	format, err := n.DetectFormat(doc)
	if err != nil {
		return "", types.DocumentInfo{}, err
	}

	info := types.DocumentInfo{
		SHA256: hashBytes(doc.Data),
		Bytes:  len(doc.Data),
		Format: format,
	}

	if int64(len(doc.Data)) > n.maxBytes {
		return "", info, &types.ExtractionError{
			Stage:    types.StageNormalize,
			Filename: doc.Filename,
			Message:  fmt.Sprintf("document is %d bytes, limit is %d", len(doc.Data), n.maxBytes),
		}
	}

	if err := ctx.Err(); err != nil {
		return "", info, fmt.Errorf("normalize %s: %w", doc.Filename, err)
	}

	var text string
	switch format {
	case types.FormatPDF:
		text, info.Pages, err = readPDF(ctx, doc.Data)
	case types.FormatDocx:
		text, err = readDocx(doc.Data)
	case types.FormatText:
		text, err = readText(doc.Data)
	}
	if err != nil {
		if ctx.Err() != nil {
			return "", info, fmt.Errorf("normalize %s: %w", doc.Filename, err)
		}
		return "", info, &types.ExtractionError{
			Stage:    types.StageNormalize,
			Filename: doc.Filename,
			Message:  fmt.Sprintf("failed to read %s", format),
			Cause:    err,
		}
	}

	text = normalizeLineEndings(text)

	n.logger.Debug("normalize.document",
		"file", doc.Filename,
		"format", format,
		"bytes", info.Bytes,
		"pages", info.Pages,
		"chars", len(text),
	)

	return text, info, nil
}

// normalizeLineEndings converts CRLF and lone CR to LF.
func normalizeLineEndings(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
