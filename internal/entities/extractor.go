// Package entities runs a named-entity recognizer over raw text and folds the spans into
// one value per category.
package entities

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/resume-parser/internal/types"
)

// DefaultMaxChars is the input length, in runes, above which text is truncated before recognition.
const DefaultMaxChars = 100_000

// Recognizer labels entity spans in text. Implementations must not retain text.
type Recognizer interface {
	Recognize(ctx context.Context, text string) ([]types.Span, error)
}

// RecognizerFunc adapts a function to Recognizer.
type RecognizerFunc func(ctx context.Context, text string) ([]types.Span, error)

// Recognize calls f.
func (f RecognizerFunc) Recognize(ctx context.Context, text string) ([]types.Span, error) {
	return f(ctx, text)
}

// Options configures an Extractor.
type Options struct {
	// MaxChars bounds the recognizer input; zero means DefaultMaxChars, negative disables the bound.
	MaxChars int
	Logger   *slog.Logger
}

// Extractor produces an EntityMap from text in a single recognizer pass.
type Extractor struct {
	recognizer Recognizer
	maxChars   int
	logger     *slog.Logger
}

// NewExtractor wraps a recognizer. A nil recognizer recognizes nothing.
func NewExtractor(recognizer Recognizer, opts Options) *Extractor {
	if recognizer == nil {
		recognizer = NopRecognizer{}
	}
	if opts.MaxChars == 0 {
		opts.MaxChars = DefaultMaxChars
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Extractor{
		recognizer: recognizer,
		maxChars:   opts.MaxChars,
		logger:     opts.Logger,
	}
}

// Extract recognizes entities in text. Blank text yields an empty map without calling the
// recognizer. When several spans share a category the last one in document order wins.
func (e *Extractor) Extract(ctx context.Context, text string) (types.EntityMap, error) {
	result := types.EntityMap{}
	if strings.TrimSpace(text) == "" {
		return result, nil
	}

	input := text
	if e.maxChars > 0 {
		if cut, truncated := truncateAtLine(text, e.maxChars); truncated {
			e.logger.Warn("entities.input.truncated",
				"chars", utf8.RuneCountInString(text),
				"limit", e.maxChars,
				"kept_bytes", len(cut),
			)
			input = cut
		}
	}

	spans, err := e.recognizer.Recognize(ctx, input)
	if err != nil {
		return nil, &types.ExtractionError{
			Stage:   types.StageEntities,
			Message: "entity recognition failed",
			Cause:   err,
		}
	}

	return Fold(spans), nil
}

// Fold orders spans by position and keeps the last non-blank text per known category.
// Unplaced spans (Start < 0) sort first so any placed span of the same category wins.
func Fold(spans []types.Span) types.EntityMap {
	ordered := make([]types.Span, len(spans))
	copy(ordered, spans)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Start < ordered[j].Start
	})

	result := types.EntityMap{}
	for _, s := range ordered {
		cat, ok := types.ParseCategory(string(s.Category))
		if !ok {
			continue
		}
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		result[cat] = text
	}
	return result
}

// truncateAtLine cuts text to at most limit runes, preferring the last line break before the limit.
func truncateAtLine(text string, limit int) (string, bool) {
	if utf8.RuneCountInString(text) <= limit {
		return text, false
	}

	end := 0
	for i := 0; i < limit; i++ {
		_, size := utf8.DecodeRuneInString(text[end:])
		end += size
	}

	if nl := strings.LastIndexByte(text[:end], '\n'); nl > 0 {
		return text[:nl], true
	}
	return text[:end], true
}

// NopRecognizer recognizes nothing. It leaves every field to the pattern rules.
type NopRecognizer struct{}

// Recognize returns no spans.
func (NopRecognizer) Recognize(context.Context, string) ([]types.Span, error) {
	return nil, nil
}
