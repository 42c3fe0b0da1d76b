// Package export writes parsed records as an XLSX workbook.
package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jonathan/resume-parser/internal/db"
	"github.com/jonathan/resume-parser/internal/pipeline"
	"github.com/jonathan/resume-parser/internal/types"
)

// SheetName is the worksheet holding one row per document.
const SheetName = "Resumes"

// ContentType is the media type of an XLSX workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Row is one exported document. Fields holds rendered values keyed by field name.
type Row struct {
	File   string
	Fields map[string]string
	Error  string
}

// Headers returns the header row: file, every logical field in order, error.
func Headers() []string {
	fields := types.Fields()
	headers := make([]string, 0, len(fields)+2)
	headers = append(headers, "file")
	for _, f := range fields {
		headers = append(headers, string(f))
	}
	return append(headers, "error")
}

// RowsFromBatch converts an in-memory batch result, keeping submission order.
func RowsFromBatch(res *pipeline.BatchResult) []Row {
	rows := make([]Row, 0, len(res.Items))
	for _, it := range res.Items {
		row := Row{File: it.Filename}
		if it.Err != nil {
			row.Error = it.Err.Error()
		} else {
			row.Fields = it.Record.Flat()
		}
		rows = append(rows, row)
	}
	return rows
}

// RowsFromItems converts stored items.
func RowsFromItems(items []db.Item) []Row {
	rows := make([]Row, 0, len(items))
	for _, it := range items {
		row := Row{File: it.Filename, Fields: it.Fields}
		if it.Error != nil {
			row.Error = *it.Error
		}
		rows = append(rows, row)
	}
	return rows
}

// Service produces XLSX bytes.
type Service struct {
	logger *slog.Logger
}

// NewService creates an export Service.
func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// XLSX renders rows into a workbook. Failed rows leave the field columns empty; rows
// without an error render the sentinel for any field they lack.
func (s *Service) XLSX(rows []Row) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	headers := Headers()
	if err := f.SetSheetRow(SheetName, "A1", &headers); err != nil {
		return nil, fmt.Errorf("xlsx header: %w", err)
	}

	fields := types.Fields()
	for i, r := range rows {
		values := make([]any, 0, len(headers))
		values = append(values, r.File)
		for _, field := range fields {
			switch {
			case r.Error != "":
				values = append(values, "")
			case r.Fields[string(field)] != "":
				values = append(values, r.Fields[string(field)])
			default:
				values = append(values, types.Sentinel(field))
			}
		}
		values = append(values, r.Error)

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("xlsx row %d: %w", i+1, err)
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 28) // file
	_ = f.SetColWidth(SheetName, "B", "F", 24) // name .. bio
	_ = f.SetColWidth(SheetName, "G", "M", 40) // address .. education
	_ = f.SetColWidth(SheetName, "N", "N", 48) // error
	_ = f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
