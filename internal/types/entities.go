package types

import "strings"

// Category is an entity label from the fixed recognizer vocabulary.
type Category string

// Entity categories. Values follow the common NER label set.
const (
	CategoryPerson       Category = "PERSON"
	CategoryEmail        Category = "EMAIL"
	CategoryPhone        Category = "PHONE"
	CategoryOrganization Category = "ORG"
	CategoryWorkItem     Category = "WORK_OF_ART"
	CategoryLocation     Category = "GPE"
	CategoryDate         Category = "DATE"
	CategoryURL          Category = "URL"
)

var allCategories = []Category{
	CategoryPerson,
	CategoryEmail,
	CategoryPhone,
	CategoryOrganization,
	CategoryWorkItem,
	CategoryLocation,
	CategoryDate,
	CategoryURL,
}

// categorySynonyms maps labels other recognizers emit onto the vocabulary.
var categorySynonyms = map[string]Category{
	"PER":          CategoryPerson,
	"NAME":         CategoryPerson,
	"E_MAIL":       CategoryEmail,
	"MAIL":         CategoryEmail,
	"PHONE_NUMBER": CategoryPhone,
	"TELEPHONE":    CategoryPhone,
	"TEL":          CategoryPhone,
	"ORGANIZATION": CategoryOrganization,
	"ORGANISATION": CategoryOrganization,
	"COMPANY":      CategoryOrganization,
	"WORK_ITEM":    CategoryWorkItem,
	"JOB_TITLE":    CategoryWorkItem,
	"ROLE":         CategoryWorkItem,
	"TITLE":        CategoryWorkItem,
	"LOCATION":     CategoryLocation,
	"LOC":          CategoryLocation,
	"ADDRESS":      CategoryLocation,
	"WEBSITE":      CategoryURL,
	"LINK":         CategoryURL,
}

// Categories returns the vocabulary in a stable order.
func Categories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// ParseCategory canonicalizes a recognizer label. Unknown labels report false.
func ParseCategory(label string) (Category, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(label))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	if normalized == "" {
		return "", false
	}

	for _, cat := range allCategories {
		if normalized == string(cat) {
			return cat, true
		}
	}
	if cat, ok := categorySynonyms[normalized]; ok {
		return cat, true
	}
	return "", false
}

// Span is one recognized entity occurrence. Start and End are byte offsets into the text;
// Start is -1 when the recognizer could not place the span.
type Span struct {
	Category Category `json:"category"`
	Text     string   `json:"text"`
	Start    int      `json:"start"`
	End      int      `json:"end"`
}

// EntityMap holds at most one representative span text per category.
type EntityMap map[Category]string

// Get returns the trimmed value for a category; blank values count as absent.
func (m EntityMap) Get(cat Category) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m[cat]
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}
