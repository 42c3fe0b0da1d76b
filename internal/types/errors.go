package types

import "fmt"

// Stage names where an extraction can fail.
const (
	StageNormalize = "normalize"
	StageEntities  = "entities"
	StageTimeout   = "timeout"
)

// UnsupportedFormatError is returned when neither the media type nor the extension
// names PDF, DOCX, or plain text.
type UnsupportedFormatError struct {
	Filename  string
	MediaType string
	Extension string
}

func (e *UnsupportedFormatError) Error() string {
	switch {
	case e.MediaType != "" && e.Extension != "":
		return fmt.Sprintf("unsupported file format: %s (media type %q, extension %q)", e.Filename, e.MediaType, e.Extension)
	case e.MediaType != "":
		return fmt.Sprintf("unsupported file format: media type %q", e.MediaType)
	case e.Extension != "":
		return fmt.Sprintf("unsupported file format: extension %q", e.Extension)
	default:
		return "unsupported file format"
	}
}

// ExtractionError is a failure while turning a document into text or entities.
type ExtractionError struct {
	Stage    string
	Filename string
	Message  string
	Cause    error
}

func (e *ExtractionError) Error() string {
	prefix := fmt.Sprintf("extraction failed (%s)", e.Stage)
	if e.Filename != "" {
		prefix = fmt.Sprintf("%s for %s", prefix, e.Filename)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}
