package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/jonathan/resume-parser/internal/db"
	"github.com/jonathan/resume-parser/internal/export"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type parsedOutput struct {
	Message string              `json:"message"`
	BatchID string              `json:"batch_id"`
	Data    []map[string]string `json:"data"`
}

func decodeOutput(t *testing.T, data []byte) parsedOutput {
	t.Helper()
	var out parsedOutput
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestParseCommand_Stdout(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "jane.txt", []byte(sampleResume))

	stdout, stderr, err := executeCommand(t, "parse", path)
	require.NoError(t, err)
	assert.Contains(t, stderr, "entities.disabled")

	out := decodeOutput(t, []byte(stdout))
	assert.Equal(t, "Resumes parsed and saved successfully", out.Message)
	_, err = uuid.Parse(out.BatchID)
	require.NoError(t, err)
	require.Len(t, out.Data, 1)

	rec := out.Data[0]
	assert.Equal(t, "jane.txt", rec["file"])
	assert.Equal(t, "Jane Doe", rec["name"])
	assert.Equal(t, "jane@example.com", rec["email"])
	assert.Equal(t, "Go, Rust", rec["skills"])
	assert.Equal(t, "BSc Computer Science", rec["education"])
	assert.Equal(t, "Bio not found", rec["bio"])
	assert.Equal(t, "Current role not found", rec["currentRole"])
}

func TestParseCommand_OutFileAndSectionCapture(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "jane.txt", []byte("Skills\nGo\nRust\nProjects\nparser\n"))
	outPath := filepath.Join(dir, "nested", "out.json")

	stdout, _, err := executeCommand(t, "parse", path, "--out", outPath, "--section-capture", "section", "--workers", "2")
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	out := decodeOutput(t, data)
	require.Len(t, out.Data, 1)
	assert.Equal(t, "Go\nRust", out.Data[0]["skills"])
	assert.Equal(t, "parser", out.Data[0]["projects"])
}

func TestParseCommand_IsolatePolicyKeepsOrder(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	good := writeFile(t, dir, "a.txt", []byte(sampleResume))
	bad := writeFile(t, dir, "b.png", pngBytes)
	other := writeFile(t, dir, "c.txt", []byte("Name: John Smith\n"))

	stdout, _, err := executeCommand(t, "parse", good, bad, other)
	require.NoError(t, err)

	out := decodeOutput(t, []byte(stdout))
	require.Len(t, out.Data, 3)
	assert.Equal(t, "a.txt", out.Data[0]["file"])
	assert.Equal(t, "b.png", out.Data[1]["file"])
	assert.Contains(t, out.Data[1]["error"], "unsupported")
	assert.NotContains(t, out.Data[1], "name")
	assert.Equal(t, "John Smith", out.Data[2]["name"])
}

func TestParseCommand_AbortPolicy(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	bad := writeFile(t, dir, "b.png", pngBytes)

	stdout, _, err := executeCommand(t, "parse", bad, "--policy", "abort")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse failed")
	assert.Empty(t, stdout)
}

func TestParseCommand_Errors(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "jane.txt", []byte(sampleResume))

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no files", []string{"parse"}, "requires at least 1 arg"},
		{"missing file", []string{"parse", filepath.Join(dir, "nope.pdf")}, "failed to read"},
		{"bad policy", []string{"parse", path, "--policy", "retry"}, "BatchPolicy"},
		{"bad capture", []string{"parse", path, "--section-capture", "paragraph"}, "SectionCapture"},
		{"bad config file", []string{"parse", path, "--config", filepath.Join(dir, "missing.json")}, "failed to load config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := executeCommand(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseCommand_XLSXAndDatabase(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	good := writeFile(t, dir, "a.txt", []byte(sampleResume))
	bad := writeFile(t, dir, "b.png", pngBytes)
	xlsxPath := filepath.Join(dir, "batch.xlsx")
	dbURL := "file:" + filepath.Join(dir, "batches.db")

	stdout, _, err := executeCommand(t, "parse", good, bad, "--xlsx", xlsxPath, "--db-url", dbURL)
	require.NoError(t, err)
	out := decodeOutput(t, []byte(stdout))

	f, err := excelize.OpenFile(xlsxPath)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, export.Headers(), rows[0])
	assert.Equal(t, "a.txt", rows[1][0])
	assert.Equal(t, "Jane Doe", rows[1][1])

	ctx := context.Background()
	store, err := db.Open(ctx, dbURL)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	id, err := uuid.Parse(out.BatchID)
	require.NoError(t, err)
	batch, err := db.GetBatchWithItems(ctx, store, id)
	require.NoError(t, err)
	require.NotNil(t, batch)
	assert.Equal(t, db.BatchStatusCompleted, batch.Status)
	assert.Equal(t, 2, batch.Total)
	assert.Equal(t, 1, batch.Failed)
	require.Len(t, batch.Items, 2)
	assert.Equal(t, "Jane Doe", batch.Items[0].Fields["name"])
	require.NotNil(t, batch.Items[1].Error)
}

func TestParseCommand_Verbose(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "jane.txt", []byte(sampleResume))

	_, stderr, err := executeCommand(t, "parse", path, "--verbose")
	require.NoError(t, err)
	assert.Contains(t, stderr, "JANE.TXT")
	assert.Contains(t, stderr, "Found:")
}
