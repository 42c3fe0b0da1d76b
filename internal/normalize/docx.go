package normalize

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const docxBodyPart = "word/document.xml"

// embeddedElements hold drawings, text boxes and OLE objects whose text is not body text.
var embeddedElements = map[string]bool{
	"drawing":     true,
	"pict":        true,
	"object":      true,
	"txbxContent": true,
}

// readDocx extracts the visible run text of word/document.xml, one line per paragraph.
func readDocx(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open zip: %w", err)
	}

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == docxBodyPart {
			body = f
			break
		}
	}
	if body == nil {
		return "", fmt.Errorf("%s not found in archive", docxBodyPart)
	}

	rc, err := body.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", docxBodyPart, err)
	}
	defer rc.Close()

	return docxParagraphs(rc)
}

func docxParagraphs(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var (
		paragraphs []string
		current    strings.Builder
		stack      []string
		inText     bool
		inPara     bool
		embedded   int
	)

	parent := func() string {
		if len(stack) < 2 {
			return ""
		}
		return stack[len(stack)-2]
	}

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decode %s: %w", docxBodyPart, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name.Local)
			if embeddedElements[t.Name.Local] {
				embedded++
			}
			if embedded > 0 {
				continue
			}
			switch t.Name.Local {
			case "p":
				inPara = true
				current.Reset()
			case "t":
				inText = parent() == "r"
			case "tab":
				// w:tab also appears inside paragraph tab-stop definitions
				if parent() == "r" {
					current.WriteByte('\t')
				}
			case "br", "cr":
				if parent() == "r" {
					current.WriteByte('\n')
				}
			}

		case xml.CharData:
			if inText && embedded == 0 {
				current.Write(t)
			}

		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			if embeddedElements[t.Name.Local] {
				embedded--
				continue
			}
			if embedded > 0 {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if inPara {
					paragraphs = append(paragraphs, current.String())
					current.Reset()
					inPara = false
				}
			}
		}
	}

	return strings.Join(paragraphs, "\n"), nil
}
