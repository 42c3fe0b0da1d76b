package entities

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonathan/resume-parser/internal/llm"
	"github.com/jonathan/resume-parser/internal/prompts"
	"github.com/jonathan/resume-parser/internal/types"
)

const promptFile = "entities.json"

// LLMRecognizer asks a language model to label entities and locates each reply in the text.
type LLMRecognizer struct {
	client llm.Client
	tier   llm.ModelTier
	logger *slog.Logger
}

type llmEntity struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

type llmReply struct {
	Entities []llmEntity `json:"entities"`
}

// NewLLMRecognizer creates a recognizer backed by client.
func NewLLMRecognizer(client llm.Client, tier llm.ModelTier, logger *slog.Logger) *LLMRecognizer {
	if tier == "" {
		tier = llm.TierStandard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMRecognizer{client: client, tier: tier, logger: logger}
}

// Recognize implements Recognizer.
func (r *LLMRecognizer) Recognize(ctx context.Context, text string) ([]types.Span, error) {
	prompt, err := buildPrompt(text)
	if err != nil {
		return nil, err
	}

	raw, err := r.client.GenerateJSON(ctx, prompt, r.tier)
	if err != nil {
		return nil, fmt.Errorf("entity recognition call failed: %w", err)
	}

	spans, err := parseReply(raw, text)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("entities.llm.recognized",
		"model", r.client.GetModel(r.tier),
		"spans", len(spans),
	)
	return spans, nil
}

func buildPrompt(text string) (string, error) {
	labels := make([]string, 0, len(types.Categories()))
	for _, c := range types.Categories() {
		labels = append(labels, string(c))
	}
	data := map[string]string{"Labels": strings.Join(labels, ", ")}

	task, err := prompts.Render(promptFile, "recognize-entities", data)
	if err != nil {
		return "", err
	}
	hint, err := prompts.Render(promptFile, "labels-hint", data)
	if err != nil {
		return "", err
	}

	description := task + "\n" + hint
	return llm.BuildExtractionPrompt(llm.EntityRecognitionSchema(description, labels), text), nil
}

// parseReply decodes the model reply and places each entity in text. Repeated texts are
// placed at successive occurrences; text the model did not copy verbatim stays unplaced.
func parseReply(raw, text string) ([]types.Span, error) {
	var reply llmReply
	if err := json.Unmarshal([]byte(llm.CleanJSONBlock(raw)), &reply); err != nil {
		return nil, fmt.Errorf("failed to decode entity reply: %w", err)
	}

	cursor := make(map[string]int)
	spans := make([]types.Span, 0, len(reply.Entities))
	for _, e := range reply.Entities {
		value := strings.TrimSpace(e.Text)
		if value == "" {
			continue
		}

		span := types.Span{Category: types.Category(e.Label), Text: value, Start: -1, End: -1}
		from := cursor[value]
		if idx := strings.Index(text[from:], value); idx >= 0 {
			span.Start = from + idx
			span.End = span.Start + len(value)
			cursor[value] = span.End
		} else if idx := strings.Index(text, value); idx >= 0 {
			span.Start = idx
			span.End = idx + len(value)
		}
		spans = append(spans, span)
	}
	return spans, nil
}
