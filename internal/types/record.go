package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field is a logical field name of a structured record.
type Field string

// Logical fields, in output order.
const (
	FieldName        Field = "name"
	FieldEmail       Field = "email"
	FieldContactInfo Field = "contactInfo"
	FieldCurrentRole Field = "currentRole"
	FieldBio         Field = "bio"
	FieldAddress     Field = "address"
	FieldURLs        Field = "urls"
	FieldSkills      Field = "skills"
	FieldExperience  Field = "experience"
	FieldLanguages   Field = "languages"
	FieldProjects    Field = "projects"
	FieldEducation   Field = "education"
)

var allFields = []Field{
	FieldName,
	FieldEmail,
	FieldContactInfo,
	FieldCurrentRole,
	FieldBio,
	FieldAddress,
	FieldURLs,
	FieldSkills,
	FieldExperience,
	FieldLanguages,
	FieldProjects,
	FieldEducation,
}

var sentinels = map[Field]string{
	FieldName:        "Name not found",
	FieldEmail:       "Email not found",
	FieldContactInfo: "Contact info not found",
	FieldCurrentRole: "Current role not found",
	FieldBio:         "Bio not found",
	FieldAddress:     "Address not found",
	FieldURLs:        "URLs not found",
	FieldSkills:      "Skills not found",
	FieldExperience:  "Experience not found",
	FieldLanguages:   "Languages not found",
	FieldProjects:    "Projects not found",
	FieldEducation:   "Education not found",
}

// Fields returns every logical field in output order.
func Fields() []Field {
	out := make([]Field, len(allFields))
	copy(out, allFields)
	return out
}

// Sentinel returns the "not found" marker rendered for a missing field.
func Sentinel(f Field) string {
	if s, ok := sentinels[f]; ok {
		return s
	}
	return fmt.Sprintf("%s not found", f)
}

// IsSentinel reports whether s is the rendered marker for f.
func IsSentinel(f Field, s string) bool {
	return s == Sentinel(f)
}

// Source records where a field value came from.
type Source string

// Value sources
const (
	SourceEntity  Source = "entity"
	SourcePattern Source = "pattern"
	SourceNone    Source = "none"
)

// Value is the internal optional form of a field.
type Value struct {
	Text   string `json:"text,omitempty"`
	Found  bool   `json:"found"`
	Source Source `json:"source"`
}

// Found builds a present value.
func Found(text string, src Source) Value {
	return Value{Text: text, Found: true, Source: src}
}

// Missing is the absent value.
func Missing() Value {
	return Value{Source: SourceNone}
}

// Record is the structured output for one document. Every logical field is always
// present; the zero Record reports every field as missing.
type Record struct {
	values map[Field]Value
}

// NewRecord copies values into a Record. Unknown fields are ignored; missing ones stay absent.
func NewRecord(values map[Field]Value) *Record {
	r := &Record{values: make(map[Field]Value, len(allFields))}
	for _, f := range allFields {
		v, ok := values[f]
		if !ok || !v.Found {
			r.values[f] = Missing()
			continue
		}
		r.values[f] = v
	}
	return r
}

// Get returns the value for a field.
func (r *Record) Get(f Field) Value {
	if r == nil || r.values == nil {
		return Missing()
	}
	v, ok := r.values[f]
	if !ok {
		return Missing()
	}
	return v
}

// String renders a field, substituting its sentinel when missing.
func (r *Record) String(f Field) string {
	v := r.Get(f)
	if !v.Found {
		return Sentinel(f)
	}
	return v.Text
}

// Flat renders the record as field name -> string.
func (r *Record) Flat() map[string]string {
	out := make(map[string]string, len(allFields))
	for _, f := range allFields {
		out[string(f)] = r.String(f)
	}
	return out
}

// Row renders the record in Fields() order.
func (r *Record) Row() []string {
	row := make([]string, len(allFields))
	for i, f := range allFields {
		row[i] = r.String(f)
	}
	return row
}

// FoundCount returns how many fields carry a real value.
func (r *Record) FoundCount() int {
	n := 0
	for _, f := range allFields {
		if r.Get(f).Found {
			n++
		}
	}
	return n
}

// MarshalJSON writes the flat object with keys in field order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range allFields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(string(f))
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.String(f))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the flat form; sentinel strings become missing values.
func (r *Record) UnmarshalJSON(data []byte) error {
	var flat map[string]string
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	values := make(map[Field]Value, len(allFields))
	for _, f := range allFields {
		s, ok := flat[string(f)]
		if !ok || IsSentinel(f, s) {
			continue
		}
		values[f] = Found(s, SourceNone)
	}
	*r = *NewRecord(values)
	return nil
}
