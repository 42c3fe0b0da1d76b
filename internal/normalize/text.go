package normalize

import (
	"errors"
	"unicode/utf8"
)

// readText decodes plain text verbatim as UTF-8.
func readText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errors.New("text is not valid UTF-8")
	}
	return string(data), nil
}
