// Package observability provides logger construction and formatted output for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/resume-parser/internal/pipeline"
	"github.com/jonathan/resume-parser/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxFailuresToShow caps the failure list in a batch summary
	maxFailuresToShow = 5
	// labelWidth aligns field names inside a record box
	labelWidth = 12
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(title, boxWidth-4))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most width runes, marking the cut with "...".
func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	runes := []rune(s)
	return string(runes[:width-3]) + "..."
}

// firstLine returns the first line of a multi-line value, noting how many lines were hidden.
func firstLine(s string) string {
	line, rest, more := strings.Cut(s, "\n")
	if !more {
		return line
	}
	return fmt.Sprintf("%s (+%d lines)", line, strings.Count(rest, "\n")+1)
}

// PrintRecord outputs the extracted fields of one document.
func (p *Printer) PrintRecord(filename string, info types.DocumentInfo, rec *types.Record) {
	if rec == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Format:  %s", info.Format))
	if info.Pages > 0 {
		sb.WriteString(fmt.Sprintf(" (%d pages)", info.Pages))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Found:   %d of %d fields\n\n", rec.FoundCount(), len(types.Fields())))

	for _, f := range types.Fields() {
		v := rec.Get(f)
		marker := "✗"
		text := types.Sentinel(f)
		if v.Found {
			marker = "✓"
			text = firstLine(v.Text)
		}
		sb.WriteString(fmt.Sprintf("%s %-*s %s\n", marker, labelWidth, f, text))
	}

	p.printBox(strings.ToUpper(filename), strings.TrimSuffix(sb.String(), "\n"))
}

// PrintBatch outputs a summary of a batch run followed by the first few failures.
func (p *Printer) PrintBatch(res *pipeline.BatchResult) {
	if res == nil || len(res.Items) == 0 {
		return
	}

	var sb strings.Builder
	failed := res.Failed()
	sb.WriteString(fmt.Sprintf("Batch:     %s\n", res.ID))
	sb.WriteString(fmt.Sprintf("Policy:    %s\n", res.Policy))
	sb.WriteString(fmt.Sprintf("Documents: %d\n", len(res.Items)))
	sb.WriteString(fmt.Sprintf("Parsed:    %d\n", len(res.Items)-failed))
	sb.WriteString(fmt.Sprintf("Failed:    %d", failed))

	if failed > 0 {
		sb.WriteString("\n\nFailures:\n")
		shown := 0
		for _, it := range res.Items {
			if it.Err == nil {
				continue
			}
			if shown == maxFailuresToShow {
				sb.WriteString(fmt.Sprintf("  ... and %d more\n", failed-shown))
				break
			}
			sb.WriteString(fmt.Sprintf("  • %s: %v\n", it.Filename, it.Err))
			shown++
		}
	}

	p.printBox("BATCH SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}
