package schema

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// FieldType is the data type of an extraction field. It is the single source
// of truth for comparison and parsing semantics downstream.
type FieldType string

const (
	TypeText     FieldType = "text"
	TypeNumber   FieldType = "number"
	TypeCurrency FieldType = "currency"
	TypeDate     FieldType = "date"
	TypeEmail    FieldType = "email"
	TypePhone    FieldType = "phone"
	TypeAddress  FieldType = "address"
	TypeBoolean  FieldType = "boolean"
)

// knownTypes is the closed set of valid field types.
var knownTypes = map[FieldType]bool{
	TypeText:     true,
	TypeNumber:   true,
	TypeCurrency: true,
	TypeDate:     true,
	TypeEmail:    true,
	TypePhone:    true,
	TypeAddress:  true,
	TypeBoolean:  true,
}

// IsNumeric reports whether the type carries numeric comparison semantics.
func (t FieldType) IsNumeric() bool {
	return t == TypeNumber || t == TypeCurrency
}

// Validation holds optional validation rules for a field.
type Validation struct {
	Pattern   string   `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	MinValue  *float64 `yaml:"min_value,omitempty" json:"min_value,omitempty"`
	MaxValue  *float64 `yaml:"max_value,omitempty" json:"max_value,omitempty"`
	MinLength *int     `yaml:"min_length,omitempty" json:"min_length,omitempty"`
	MaxLength *int     `yaml:"max_length,omitempty" json:"max_length,omitempty"`
	Example   string   `yaml:"example,omitempty" json:"example,omitempty"`

	// Compiled from Pattern at schema load.
	patternRe *regexp.Regexp
}

// Field defines a single extraction field.
type Field struct {
	Name            string      `yaml:"name" json:"name"`
	DisplayName     string      `yaml:"display_name" json:"display_name"`
	Description     string      `yaml:"description,omitempty" json:"description,omitempty"`
	DataType        FieldType   `yaml:"data_type" json:"data_type"`
	Required        bool        `yaml:"required" json:"required"`
	ExtractionHints []string    `yaml:"extraction_hints,omitempty" json:"extraction_hints,omitempty"`
	Validation      *Validation `yaml:"validation,omitempty" json:"validation,omitempty"`
}

// Schema is a versioned, ordered collection of extraction fields with
// indexed lookups. Field order is declaration order and is preserved
// everywhere downstream.
type Schema struct {
	Version int     `yaml:"version" json:"version"`
	Name    string  `yaml:"name,omitempty" json:"name,omitempty"`
	Fields  []Field `yaml:"fields" json:"fields"`

	byName   map[string]*Field
	required []*Field
}

// New builds a Schema with indexed lookups and pre-compiled validation
// patterns. Returns an error if a field has an empty or duplicate name, or
// an unknown data type.
func New(version int, fields []Field) (*Schema, error) {
	s := &Schema{Version: version, Fields: fields}
	if err := s.index(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Schema) index() error {
	s.byName = make(map[string]*Field, len(s.Fields))
	s.required = nil
	for i := range s.Fields {
		f := &s.Fields[i]
		if f.Name == "" {
			return eris.Errorf("schema: field %d has empty name", i)
		}
		if _, dup := s.byName[f.Name]; dup {
			return eris.Errorf("schema: duplicate field name %q", f.Name)
		}
		if !knownTypes[f.DataType] {
			return eris.Errorf("schema: field %q has unknown data type %q", f.Name, f.DataType)
		}
		if f.Validation != nil && f.Validation.Pattern != "" {
			re, err := regexp.Compile(f.Validation.Pattern)
			if err != nil {
				return eris.Wrapf(err, "schema: field %q validation pattern", f.Name)
			}
			f.Validation.patternRe = re
		}
		s.byName[f.Name] = f
		if f.Required {
			s.required = append(s.required, f)
		}
	}
	return nil
}

// ByName returns the field with the given name, or nil if not found.
func (s *Schema) ByName(name string) *Field {
	return s.byName[name]
}

// Required returns all required fields in schema order.
func (s *Schema) Required() []*Field {
	return s.required
}

// Load reads a schema from a YAML file. The file has a top-level "schema" key.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "schema: read %s", path)
	}

	var wrapper struct {
		Schema Schema `yaml:"schema"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "schema: parse")
	}

	s := &wrapper.Schema
	if s.Version == 0 {
		s.Version = 1
	}
	if len(s.Fields) == 0 {
		return nil, eris.Errorf("schema: %s defines no fields", path)
	}
	if err := s.index(); err != nil {
		return nil, err
	}
	return s, nil
}

// PromptDescription renders the schema as instructions for an LLM extraction
// prompt: one line per field with type, required marker, description, and
// any extraction hints.
func (s *Schema) PromptDescription() string {
	var sb strings.Builder
	sb.WriteString("Extract the following fields from the document:\n")
	for _, f := range s.Fields {
		req := "(optional)"
		if f.Required {
			req = "(required)"
		}
		fmt.Fprintf(&sb, "- %s (%s) %s: %s\n", f.DisplayName, f.DataType, req, f.Description)
		for _, hint := range f.ExtractionHints {
			fmt.Fprintf(&sb, "  - %s\n", hint)
		}
	}
	return sb.String()
}

// ValidateValue checks a value against the field's validation rules. A nil
// Validation always passes. Only rules relevant to the value's shape are
// applied; type coercion is the comparator package's concern.
func (f *Field) ValidateValue(value string) error {
	v := f.Validation
	if v == nil {
		return nil
	}
	if v.patternRe != nil && !v.patternRe.MatchString(value) {
		return eris.Errorf("schema: field %q value does not match pattern %s", f.Name, v.Pattern)
	}
	if v.MinLength != nil && len(value) < *v.MinLength {
		return eris.Errorf("schema: field %q value shorter than %d", f.Name, *v.MinLength)
	}
	if v.MaxLength != nil && len(value) > *v.MaxLength {
		return eris.Errorf("schema: field %q value longer than %d", f.Name, *v.MaxLength)
	}
	return nil
}
