// Package patterns provides the deterministic rule library used when entity recognition
// leaves a field empty.
package patterns

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jonathan/resume-parser/internal/types"
)

// Kind says how a rule locates its value.
type Kind string

const (
	// KindLabeledLine captures the text following a label on the same line.
	KindLabeledLine Kind = "labeled_line"
	// KindFreeform matches a self-identifying token anywhere in the text.
	KindFreeform Kind = "freeform"
	// KindSection captures the body under a heading that sits alone on its line.
	KindSection Kind = "section"
)

// CaptureMode controls how much of a section body is returned.
type CaptureMode string

const (
	// CaptureLine returns only the line right after the heading.
	CaptureLine CaptureMode = "line"
	// CaptureSection returns every line up to the next known heading.
	CaptureSection CaptureMode = "section"
)

// ParseCaptureMode parses "line" or "section"; empty means CaptureLine.
func ParseCaptureMode(s string) (CaptureMode, error) {
	switch CaptureMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", CaptureLine:
		return CaptureLine, nil
	case CaptureSection:
		return CaptureSection, nil
	}
	return "", fmt.Errorf("invalid section capture mode %q (want %q or %q)", s, CaptureLine, CaptureSection)
}

// Rule is one row of the rule table.
type Rule struct {
	Field    types.Field
	Kind     Kind
	Pattern  *regexp.Regexp
	Headings []string
}

// sectionHeadings lists the accepted heading spellings per section field.
var sectionHeadings = []struct {
	field    types.Field
	headings []string
}{
	{types.FieldAddress, []string{"Address"}},
	{types.FieldURLs, []string{"URLs", "Links", "Websites"}},
	{types.FieldSkills, []string{"Skills", "Technical Skills"}},
	{types.FieldExperience, []string{"Experience", "Experiences", "Work Experience", "Professional Experience"}},
	{types.FieldLanguages, []string{"Languages"}},
	{types.FieldProjects, []string{"Projects"}},
	{types.FieldEducation, []string{"Education", "Educations"}},
}

var (
	// nameRule: case-insensitive label, then a run of capitalized words on the same line.
	namePattern = regexp.MustCompile(`\b(?i:applicant[ \t]+name|full[ \t]+name|name)\b[ \t]*:?[ \t]*([A-Z][a-zA-Z'.-]*(?:[ \t]+[A-Z][a-zA-Z'.-]*)*)`)

	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
)

func headingPattern(headings []string) *regexp.Regexp {
	quoted := make([]string, len(headings))
	for i, h := range headings {
		quoted[i] = strings.ReplaceAll(regexp.QuoteMeta(h), ` `, `[ \t]+`)
	}
	return regexp.MustCompile(`(?im)^[ \t]*(?:` + strings.Join(quoted, "|") + `)[ \t]*:?[ \t]*$`)
}

func defaultRules() []Rule {
	rules := []Rule{
		{Field: types.FieldName, Kind: KindLabeledLine, Pattern: namePattern, Headings: []string{"Name", "Full Name", "Applicant Name"}},
		{Field: types.FieldEmail, Kind: KindFreeform, Pattern: emailPattern},
	}
	for _, s := range sectionHeadings {
		rules = append(rules, Rule{
			Field:    s.field,
			Kind:     KindSection,
			Pattern:  headingPattern(s.headings),
			Headings: s.headings,
		})
	}
	return rules
}

// Library applies the rule table. It is immutable and safe for concurrent use.
type Library struct {
	mode       CaptureMode
	rules      []Rule
	byField    map[types.Field]Rule
	anyHeading *regexp.Regexp
}

// NewLibrary builds the default rule table with the given capture mode.
func NewLibrary(mode CaptureMode) *Library {
	if mode == "" {
		mode = CaptureLine
	}
	rules := defaultRules()
	byField := make(map[types.Field]Rule, len(rules))
	var all []string
	for _, r := range rules {
		byField[r.Field] = r
		if r.Kind == KindSection {
			all = append(all, r.Headings...)
		}
	}
	return &Library{
		mode:       mode,
		rules:      rules,
		byField:    byField,
		anyHeading: headingPattern(all),
	}
}

// Mode returns the section capture mode.
func (l *Library) Mode() CaptureMode {
	return l.mode
}

// Rules returns the rule table in evaluation order.
func (l *Library) Rules() []Rule {
	out := make([]Rule, len(l.rules))
	copy(out, l.rules)
	return out
}

// Has reports whether any rule covers field.
func (l *Library) Has(field types.Field) bool {
	_, ok := l.byField[field]
	return ok
}

// Match returns the first value the field's rule finds in text, scanning top to bottom.
// A capture that is blank after trimming is reported as not found.
func (l *Library) Match(field types.Field, text string) (string, bool) {
	rule, ok := l.byField[field]
	if !ok || text == "" {
		return "", false
	}

	var value string
	switch rule.Kind {
	case KindLabeledLine:
		m := rule.Pattern.FindStringSubmatch(text)
		if len(m) < 2 {
			return "", false
		}
		value = m[1]
	case KindFreeform:
		value = rule.Pattern.FindString(text)
	case KindSection:
		loc := rule.Pattern.FindStringIndex(text)
		if loc == nil {
			return "", false
		}
		value = l.captureAfter(text, loc[1])
	}

	value = strings.TrimSpace(value)
	return value, value != ""
}

// captureAfter returns the body that starts on the line after the heading ending at pos.
func (l *Library) captureAfter(text string, pos int) string {
	if pos >= len(text) || text[pos] != '\n' {
		return ""
	}
	rest := text[pos+1:]

	if l.mode == CaptureLine {
		line, _, _ := strings.Cut(rest, "\n")
		return line
	}

	if loc := l.anyHeading.FindStringIndex(rest); loc != nil {
		return rest[:loc[0]]
	}
	return rest
}
