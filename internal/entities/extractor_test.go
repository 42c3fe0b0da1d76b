package entities

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jonathan/resume-parser/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRecognizer returns canned spans and records what it was given.
type fakeRecognizer struct {
	spans []types.Span
	err   error
	calls int
	input string
}

func (f *fakeRecognizer) Recognize(_ context.Context, text string) ([]types.Span, error) {
	f.calls++
	f.input = text
	return f.spans, f.err
}

func TestExtract_LastSpanWins(t *testing.T) {
	rec := &fakeRecognizer{spans: []types.Span{
		{Category: types.CategoryLocation, Text: "Berlin", Start: 40, End: 46},
		{Category: types.CategoryPerson, Text: "Jane Doe", Start: 0, End: 8},
		{Category: types.CategoryLocation, Text: "Paris", Start: 10, End: 15},
		{Category: "EMAIL", Text: " jane@example.com ", Start: 20, End: 36},
	}}

	m, err := NewExtractor(rec, Options{}).Extract(context.Background(), "Jane Doe, Paris, jane@example.com, Berlin")
	require.NoError(t, err)
	assert.Equal(t, types.EntityMap{
		types.CategoryPerson:   "Jane Doe",
		types.CategoryLocation: "Berlin",
		types.CategoryEmail:    "jane@example.com",
	}, m)
}

func TestExtract_CanonicalizesAndDrops(t *testing.T) {
	rec := &fakeRecognizer{spans: []types.Span{
		{Category: "LOCATION", Text: "Lisbon", Start: 0},
		{Category: "WORK-ITEM", Text: "Staff Engineer", Start: 10},
		{Category: "MONEY", Text: "$100", Start: 20},
		{Category: types.CategoryPhone, Text: "   ", Start: 30},
	}}

	m, err := NewExtractor(rec, Options{}).Extract(context.Background(), "some text")
	require.NoError(t, err)
	assert.Equal(t, "Lisbon", m[types.CategoryLocation])
	assert.Equal(t, "Staff Engineer", m[types.CategoryWorkItem])
	assert.Len(t, m, 2)
}

func TestExtract_PlacedSpanBeatsUnplaced(t *testing.T) {
	rec := &fakeRecognizer{spans: []types.Span{
		{Category: types.CategoryPerson, Text: "Jane Doe", Start: 0},
		{Category: types.CategoryPerson, Text: "J. Doe", Start: -1},
	}}

	m, err := NewExtractor(rec, Options{}).Extract(context.Background(), "Jane Doe")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", m[types.CategoryPerson])
}

func TestExtract_BlankTextSkipsRecognizer(t *testing.T) {
	for _, text := range []string{"", "  \n\t "} {
		rec := &fakeRecognizer{}
		m, err := NewExtractor(rec, Options{}).Extract(context.Background(), text)
		require.NoError(t, err)
		assert.Empty(t, m)
		assert.Zero(t, rec.calls)
	}
}

func TestExtract_RecognizerError(t *testing.T) {
	cause := errors.New("model unavailable")
	rec := &fakeRecognizer{err: cause}

	_, err := NewExtractor(rec, Options{}).Extract(context.Background(), "Jane Doe")
	var extErr *types.ExtractionError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, types.StageEntities, extErr.Stage)
	assert.ErrorIs(t, err, cause)
}

func TestExtract_TruncatesLongInput(t *testing.T) {
	rec := &fakeRecognizer{}
	text := "Name: Jane Doe\nSkills\nPython, Go, Rust"

	_, err := NewExtractor(rec, Options{MaxChars: 20}).Extract(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, "Name: Jane Doe", rec.input)

	rec = &fakeRecognizer{}
	_, err = NewExtractor(rec, Options{MaxChars: -1}).Extract(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, text, rec.input)
}

func TestTruncateAtLine(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		limit     int
		expected  string
		truncated bool
	}{
		{"under limit", "short", 10, "short", false},
		{"cut at line", "ab\ncd\nef", 7, "ab\ncd", true},
		{"no line break", "abcdefgh", 4, "abcd", true},
		{"multibyte runes", "ééé\néééé", 6, "ééé", true},
		{"multibyte no break", "éééé", 2, "éé", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, truncated := truncateAtLine(tt.text, tt.limit)
			assert.Equal(t, tt.truncated, truncated)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNopRecognizer(t *testing.T) {
	m, err := NewExtractor(nil, Options{}).Extract(context.Background(), strings.Repeat("text ", 10))
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestRecognizerFunc(t *testing.T) {
	rec := RecognizerFunc(func(_ context.Context, text string) ([]types.Span, error) {
		return []types.Span{{Category: types.CategoryURL, Text: text, Start: 0}}, nil
	})
	m, err := NewExtractor(rec, Options{}).Extract(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", m[types.CategoryURL])
}
