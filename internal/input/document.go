package input

import (
	"github.com/Aman-CERP/docdex/internal/errors"
	"github.com/Aman-CERP/docdex/internal/schema"
	"github.com/Aman-CERP/docdex/internal/value"
)

// Document is one extracted, schema-conformant unit: an ordered mapping
// from schema field names to validated values. Documents are ephemeral;
// they exist to be handed to the write coordinator.
type Document struct {
	fields *value.Object
}

// NewDocument wraps an already-validated field set.
func NewDocument(fields *value.Object) Document {
	return Document{fields: fields}
}

// Get returns the value of a field.
func (d Document) Get(name string) (value.Value, bool) {
	if d.fields == nil {
		return value.Value{}, false
	}
	return d.fields.Get(name)
}

// FieldNames returns the present field names in schema order.
func (d Document) FieldNames() []string {
	if d.fields == nil {
		return nil
	}
	return d.fields.Keys()
}

// Len returns the number of present fields.
func (d Document) Len() int {
	if d.fields == nil {
		return 0
	}
	return d.fields.Len()
}

// ID returns the canonical string form of the designated id field, used
// as the exact-match delete term for update-by-id. False when the
// document carries no id.
func (d Document) ID(idField string) (string, bool) {
	v, ok := d.Get(idField)
	if !ok || v.IsNull() {
		return "", false
	}
	switch v.Kind() {
	case value.KindString, value.KindNumber:
		return v.Str(), true
	case value.KindBool:
		if v.BoolVal() {
			return "true", true
		}
		return "false", true
	default:
		return "", false
	}
}

// Engine converts the document into the plain field map the engine
// indexes: numbers as float64, date fields as time.Time, arrays as
// multi-valued entries.
func (d Document) Engine(s *schema.Schema) (map[string]any, error) {
	out := make(map[string]any, d.Len())
	for _, name := range d.FieldNames() {
		v, _ := d.Get(name)
		f, ok := s.Field(name)
		if !ok {
			return nil, errors.Newf(errors.ErrCodeSchemaViolation,
				"document field %q is not in the schema", name)
		}
		ev, err := engineValue(f, v)
		if err != nil {
			return nil, err
		}
		out[name] = ev
	}
	return out, nil
}

func engineValue(f schema.FieldConfig, v value.Value) (any, error) {
	if v.Kind() == value.KindArray {
		items := make([]any, 0, len(v.Items()))
		for _, item := range v.Items() {
			ev, err := engineValue(f, item)
			if err != nil {
				return nil, err
			}
			items = append(items, ev)
		}
		return items, nil
	}
	if f.Type == value.TypeDate {
		t, err := v.Time()
		if err != nil {
			return nil, errors.Newf(errors.ErrCodeSchemaViolation,
				"field %q: %v", f.Name, err)
		}
		return t, nil
	}
	return v.Interface(), nil
}
