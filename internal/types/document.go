// Package types provides type definitions for structured data used throughout the resume-parser system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"mime"
	"path/filepath"
	"strings"
)

// Media types accepted by the format normalizer
const (
	MediaTypePDF  = "application/pdf"
	MediaTypeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MediaTypeText = "text/plain"

	// MediaTypeOctetStream is what browsers send when they cannot tell; it defers to the extension.
	MediaTypeOctetStream = "application/octet-stream"
)

// Format identifies one of the supported document kinds.
type Format string

// Supported formats
const (
	FormatPDF  Format = "pdf"
	FormatDocx Format = "docx"
	FormatText Format = "txt"
)

// Document is a submitted file: opaque bytes plus a declared media type and/or filename.
// It is read once by the normalizer and not retained afterwards.
type Document struct {
	Filename  string
	MediaType string
	Data      []byte
}

// Extension returns the lowercased filename extension without the leading dot.
func (d Document) Extension() string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(d.Filename), "."))
}

// BaseMediaType returns the declared media type without parameters (e.g. "; charset=utf-8"), lowercased.
func (d Document) BaseMediaType() string {
	raw := strings.TrimSpace(d.MediaType)
	if raw == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(raw)
	if err != nil {
		// fall back to the part before any parameter
		mt, _, _ = strings.Cut(raw, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

// FormatForMediaType maps a base media type to a Format.
func FormatForMediaType(mediaType string) (Format, bool) {
	switch mediaType {
	case MediaTypePDF:
		return FormatPDF, true
	case MediaTypeDocx:
		return FormatDocx, true
	case MediaTypeText:
		return FormatText, true
	}
	return "", false
}

// FormatForExtension maps a filename extension (with or without dot) to a Format.
func FormatForExtension(ext string) (Format, bool) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "pdf":
		return FormatPDF, true
	case "docx":
		return FormatDocx, true
	case "txt":
		return FormatText, true
	}
	return "", false
}

// DocumentInfo describes a normalized document.
type DocumentInfo struct {
	SHA256 string `json:"sha256"`
	Bytes  int    `json:"bytes"`
	Format Format `json:"format"`
	Pages  int    `json:"pages,omitempty"`
}
