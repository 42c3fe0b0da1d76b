// Package resolve merges entity results and pattern fallbacks into a structured record.
package resolve

import (
	"github.com/jonathan/resume-parser/internal/patterns"
	"github.com/jonathan/resume-parser/internal/types"
)

// Precedence says where a field may come from. An entity value always beats the pattern
// fallback; when neither applies the field is missing.
type Precedence struct {
	Field types.Field
	// Entity is the category consulted first; empty means none.
	Entity types.Category
	// Fallback enables the pattern rule for Field.
	Fallback bool
}

// DefaultPrecedence is the field precedence table, in record order.
var DefaultPrecedence = []Precedence{
	{Field: types.FieldName, Entity: types.CategoryPerson, Fallback: true},
	{Field: types.FieldEmail, Entity: types.CategoryEmail, Fallback: true},
	{Field: types.FieldContactInfo, Entity: types.CategoryPhone},
	{Field: types.FieldCurrentRole, Entity: types.CategoryWorkItem},
	{Field: types.FieldBio},
	{Field: types.FieldAddress, Entity: types.CategoryLocation, Fallback: true},
	{Field: types.FieldURLs, Fallback: true},
	{Field: types.FieldSkills, Fallback: true},
	{Field: types.FieldExperience, Fallback: true},
	{Field: types.FieldLanguages, Fallback: true},
	{Field: types.FieldProjects, Fallback: true},
	{Field: types.FieldEducation, Fallback: true},
}

// Resolver applies a precedence table. It is stateless apart from its configuration.
type Resolver struct {
	patterns *patterns.Library
	table    []Precedence
}

// New creates a Resolver over the default precedence table. A nil library uses line capture.
func New(lib *patterns.Library) *Resolver {
	if lib == nil {
		lib = patterns.NewLibrary(patterns.CaptureLine)
	}
	return &Resolver{patterns: lib, table: DefaultPrecedence}
}

// Table returns a copy of the precedence table in use.
func (r *Resolver) Table() []Precedence {
	out := make([]Precedence, len(r.table))
	copy(out, r.table)
	return out
}

// Resolve builds the record for one document. Every field is decided independently and
// exactly one source is used per field.
func (r *Resolver) Resolve(ents types.EntityMap, text string) *types.Record {
	values := make(map[types.Field]types.Value, len(r.table))
	for _, p := range r.table {
		values[p.Field] = r.resolveField(p, ents, text)
	}
	return types.NewRecord(values)
}

func (r *Resolver) resolveField(p Precedence, ents types.EntityMap, text string) types.Value {
	if p.Entity != "" {
		if v, ok := ents.Get(p.Entity); ok {
			return types.Found(v, types.SourceEntity)
		}
	}
	if p.Fallback {
		if v, ok := r.patterns.Match(p.Field, text); ok {
			return types.Found(v, types.SourcePattern)
		}
	}
	return types.Missing()
}
