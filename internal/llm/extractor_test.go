package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildExtractionPrompt(t *testing.T) {
	schema := EntityRecognitionSchema("You label entities.", []string{"PERSON", "EMAIL"})
	prompt := BuildExtractionPrompt(schema, "Name: Jane Doe")

	assert.True(t, strings.HasPrefix(prompt, "You label entities.\n\n"))
	assert.Contains(t, prompt, `"entities": [{"label": "string", "text": "string"}] (required)`)
	assert.Contains(t, prompt, "label is one of PERSON, EMAIL")
	assert.Contains(t, prompt, "\"\"\"\nName: Jane Doe\n\"\"\"")
}

func TestBuildExtractionPrompt_DefaultType(t *testing.T) {
	schema := ExtractionSchema{
		Description: "d",
		Fields: []SchemaField{
			{Name: "a"},
			{Name: "b", Type: "[\"string\"]", Description: "list"},
		},
	}
	prompt := BuildExtractionPrompt(schema, "x")
	assert.Contains(t, prompt, "  \"a\": string,\n")
	assert.Contains(t, prompt, "  \"b\": [\"string\"] // list\n")
}
