package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/google/uuid"
	"github.com/jonathan/resume-parser/internal/db"
	"github.com/jonathan/resume-parser/internal/export"
	"github.com/jonathan/resume-parser/internal/pipeline"
	"github.com/jonathan/resume-parser/internal/schemas"
	"github.com/jonathan/resume-parser/internal/types"
	schemafiles "github.com/jonathan/resume-parser/schemas"
)

// Multipart field names
const (
	fieldFile  = "file"
	fieldFiles = "files"
)

// readDocuments parses the multipart body and loads every part under field.
func (s *Server) readDocuments(w http.ResponseWriter, r *http.Request, field string) ([]types.Document, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, tooLarge
		}
		return nil, &ErrValidation{Field: field, Message: "expected a multipart/form-data body: " + err.Error()}
	}

	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		return nil, &ErrValidation{Field: field, Message: "at least one file is required"}
	}

	docs := make([]types.Document, 0, len(headers))
	for _, fh := range headers {
		doc, err := readPart(fh)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func readPart(fh *multipart.FileHeader) (types.Document, error) {
	f, err := fh.Open()
	if err != nil {
		return types.Document{}, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return types.Document{}, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	return types.Document{
		Filename:  fh.Filename,
		MediaType: fh.Header.Get("Content-Type"),
		Data:      data,
	}, nil
}

// checkOutput validates a response body when output validation is on.
func (s *Server) checkOutput(schema string, v any) error {
	if !s.validateOutput {
		return nil
	}
	if err := schemas.ValidateValue(schema, v); err != nil {
		s.logger.Error("http.output.invalid", "schema", schema, "error", err)
		return fmt.Errorf("response failed schema validation: %w", err)
	}
	return nil
}

// handleUpload parses one document from the "file" field.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	docs, err := s.readDocuments(w, r, fieldFile)
	if err != nil {
		s.errorFor(w, err)
		return
	}
	if len(docs) > 1 {
		s.errorFor(w, &ErrValidation{Field: fieldFile, Message: "exactly one file is accepted; use /upload_resumes for several"})
		return
	}

	rec, _, err := s.pipeline.Parse(r.Context(), docs[0])
	if err != nil {
		s.logger.Warn("http.upload.failed", "file", docs[0].Filename, "error", err)
		s.errorFor(w, err)
		return
	}
	if err := s.checkOutput(schemafiles.RecordSchemaFile, rec); err != nil {
		s.errorFor(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, rec)
}

// handleUploadBatch parses every document in the "files" field.
func (s *Server) handleUploadBatch(w http.ResponseWriter, r *http.Request) {
	docs, err := s.readDocuments(w, r, fieldFiles)
	if err != nil {
		s.errorFor(w, err)
		return
	}

	res, err := s.pipeline.ParseBatch(r.Context(), docs, pipeline.BatchOptions{Policy: s.policy})
	if err != nil {
		s.errorFor(w, err)
		return
	}

	out := pipeline.NewOutput(res)
	if err := s.checkOutput(schemafiles.BatchSchemaFile, out); err != nil {
		s.errorFor(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, out)
}

// handleUploadStream is handleUploadBatch with per-document progress sent as Server-Sent Events.
func (s *Server) handleUploadStream(w http.ResponseWriter, r *http.Request) {
	docs, err := s.readDocuments(w, r, fieldFiles)
	if err != nil {
		s.errorFor(w, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	res, err := s.pipeline.ParseBatch(r.Context(), docs, pipeline.BatchOptions{
		Policy: s.policy,
		OnProgress: func(ev pipeline.ProgressEvent) {
			if err := sse.WriteEvent("progress", ev); err != nil {
				s.logger.Warn("http.sse.write_failed", "error", err)
			}
		},
	})
	if err != nil {
		sse.WriteError(err)
		return
	}

	out := pipeline.NewOutput(res)
	if err := s.checkOutput(schemafiles.BatchSchemaFile, out); err != nil {
		sse.WriteError(err)
		return
	}
	if err := sse.WriteEvent("complete", out); err != nil {
		s.logger.Warn("http.sse.write_failed", "error", err)
	}
}

// loadBatch resolves the {id} path value to a stored batch.
func (s *Server) loadBatch(r *http.Request) (*db.BatchWithItems, error) {
	if s.store == nil {
		return nil, errStoreDisabled
	}
	idStr := r.PathValue("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, &ErrValidation{Field: "id", Message: "invalid batch ID format"}
	}
	batch, err := db.GetBatchWithItems(r.Context(), s.store, id)
	if err != nil {
		return nil, fmt.Errorf("load batch: %w", err)
	}
	if batch == nil {
		return nil, &ErrNotFound{Resource: "batch", ID: idStr}
	}
	return batch, nil
}

// handleGetBatch returns a stored batch and its items.
func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	batch, err := s.loadBatch(r)
	if err != nil {
		s.errorFor(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, batch)
}

// handleExportBatch returns a stored batch as an XLSX workbook.
func (s *Server) handleExportBatch(w http.ResponseWriter, r *http.Request) {
	batch, err := s.loadBatch(r)
	if err != nil {
		s.errorFor(w, err)
		return
	}

	data, err := s.exporter.XLSX(export.RowsFromItems(batch.Items))
	if err != nil {
		s.errorFor(w, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="batch-%s.xlsx"`, batch.ID))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("http.export.write_failed", "error", err)
	}
}
