package export

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jonathan/resume-parser/internal/db"
	"github.com/jonathan/resume-parser/internal/pipeline"
	"github.com/jonathan/resume-parser/internal/types"
)

func readRows(t *testing.T, data []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	return rows
}

func TestHeaders(t *testing.T) {
	h := Headers()
	require.Len(t, h, 14)
	assert.Equal(t, "file", h[0])
	assert.Equal(t, "name", h[1])
	assert.Equal(t, "education", h[12])
	assert.Equal(t, "error", h[13])
}

func TestXLSX_FromBatch(t *testing.T) {
	rec := types.NewRecord(map[types.Field]types.Value{
		types.FieldName:   types.Found("Jane Doe", types.SourcePattern),
		types.FieldSkills: types.Found("Python, Go, Rust", types.SourcePattern),
	})
	res := &pipeline.BatchResult{Items: []pipeline.Item{
		{Index: 0, Filename: "a.txt", Record: rec},
		{Index: 1, Filename: "b.png", Err: errors.New("unsupported file format")},
	}}

	data, err := NewService(nil).XLSX(RowsFromBatch(res))
	require.NoError(t, err)

	rows := readRows(t, data)
	require.Len(t, rows, 3)
	assert.Equal(t, Headers(), rows[0])

	assert.Equal(t, "a.txt", rows[1][0])
	assert.Equal(t, "Jane Doe", rows[1][1])
	assert.Equal(t, "Email not found", rows[1][2])
	assert.Equal(t, "Python, Go, Rust", rows[1][8])
	assert.Equal(t, "Education not found", rows[1][12])

	assert.Equal(t, "b.png", rows[2][0])
	require.Len(t, rows[2], 14)
	assert.Equal(t, "", rows[2][1])
	assert.Equal(t, "unsupported file format", rows[2][13])
}

func TestXLSX_FromStoredItems(t *testing.T) {
	msg := "extraction failed"
	items := []db.Item{
		{Index: 0, Filename: "a.txt", Fields: map[string]string{"name": "Jane Doe"}},
		{Index: 1, Filename: "b.pdf", Error: &msg},
	}

	data, err := NewService(nil).XLSX(RowsFromItems(items))
	require.NoError(t, err)

	rows := readRows(t, data)
	require.Len(t, rows, 3)
	assert.Equal(t, "Jane Doe", rows[1][1])
	assert.Equal(t, "Bio not found", rows[1][5])
	assert.Equal(t, msg, rows[2][13])
}

func TestXLSX_Empty(t *testing.T) {
	data, err := NewService(nil).XLSX(nil)
	require.NoError(t, err)
	rows := readRows(t, data)
	require.Len(t, rows, 1)
}
