// Package schema declares the typed field set documents must conform to
// and the index-level configuration handed to the engine.
package schema

import (
	"fmt"

	"github.com/Aman-CERP/docdex/internal/errors"
	"github.com/Aman-CERP/docdex/internal/value"
)

// FieldConfig declares one schema field with its indexing attributes.
type FieldConfig struct {
	Name string     `yaml:"name"`
	Type value.Type `yaml:"type"`

	// Stored keeps the original value retrievable from search results.
	Stored bool `yaml:"stored"`
	// Indexed makes the field searchable.
	Indexed bool `yaml:"indexed"`
	// Tokenized analyzes text into terms; untokenized fields match as a
	// single exact term. Only meaningful for text/string fields.
	Tokenized bool `yaml:"tokenized"`
	// Fast enables columnar (doc-values) access. Numeric fields only.
	Fast bool `yaml:"fast"`
}

// Schema is the ordered, immutable set of declared fields.
type Schema struct {
	fields []FieldConfig
	byName map[string]int
}

// New validates the field declarations and builds a Schema.
// It fails when a name repeats, a type is unknown, or attributes are
// inconsistent with the declared type.
func New(fields []FieldConfig) (*Schema, error) {
	if len(fields) == 0 {
		return nil, errors.ConfigError("schema declares no fields", nil)
	}
	s := &Schema{
		fields: append([]FieldConfig(nil), fields...),
		byName: make(map[string]int, len(fields)),
	}
	for i, f := range s.fields {
		if f.Name == "" {
			return nil, errors.Newf(errors.ErrCodeConfigInvalid,
				"field %d has an empty name", i)
		}
		if _, dup := s.byName[f.Name]; dup {
			return nil, errors.Newf(errors.ErrCodeFieldDuplicate,
				"duplicate field name %q", f.Name)
		}
		parsed, err := value.ParseType(string(f.Type))
		if err != nil {
			return nil, errors.New(errors.ErrCodeTypeUnknown,
				fmt.Sprintf("field %q: %v", f.Name, err), err)
		}
		s.fields[i].Type = parsed
		f.Type = parsed
		if f.Fast && !f.Type.Numeric() {
			return nil, errors.Newf(errors.ErrCodeAttrInconsistent,
				"field %q: fast access requires a numeric type, got %s", f.Name, f.Type)
		}
		if f.Tokenized && f.Type != value.TypeText && f.Type != value.TypeString {
			return nil, errors.Newf(errors.ErrCodeAttrInconsistent,
				"field %q: tokenized requires a text type, got %s", f.Name, f.Type)
		}
		s.byName[f.Name] = i
	}
	return s, nil
}

// Field returns the declaration for name.
func (s *Schema) Field(name string) (FieldConfig, bool) {
	i, ok := s.byName[name]
	if !ok {
		return FieldConfig{}, false
	}
	return s.fields[i], true
}

// Has reports whether the schema declares name.
func (s *Schema) Has(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// Fields returns the declarations in declared order. Callers must not
// mutate the returned slice.
func (s *Schema) Fields() []FieldConfig { return s.fields }

// Len returns the number of declared fields.
func (s *Schema) Len() int { return len(s.fields) }

// Validate checks a post-conversion value against the declared type of
// field. Arrays are accepted for any field when every element conforms;
// the engine indexes them as multi-valued fields.
func (s *Schema) Validate(field FieldConfig, v value.Value) error {
	if v.Kind() == value.KindArray {
		for _, item := range v.Items() {
			if err := s.Validate(field, item); err != nil {
				return err
			}
		}
		return nil
	}
	ok := false
	switch field.Type {
	case value.TypeString, value.TypeText:
		ok = v.Kind() == value.KindString
	case value.TypeNumber:
		ok = v.Kind() == value.KindNumber
	case value.TypeBool:
		ok = v.Kind() == value.KindBool
	case value.TypeDate:
		if v.Kind() == value.KindString {
			_, err := v.Time()
			ok = err == nil
		}
	}
	if !ok {
		return errors.Newf(errors.ErrCodeSchemaViolation,
			"field %q: declared %s, got %s value %s",
			field.Name, field.Type, v.Kind(), v.String())
	}
	return nil
}
