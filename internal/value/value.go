// Package value defines the generic tagged value tree produced by the
// format parsers, the declared field types, and the conversions between
// them. Every consumer switches exhaustively on Kind; there is no
// reflection past the tag.
package value

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Type is the declared type of a schema field or a conversion endpoint.
type Type string

const (
	TypeString Type = "string"
	TypeNumber Type = "number"
	TypeBool   Type = "boolean"
	TypeDate   Type = "date"
	TypeText   Type = "text"
)

// ParseType parses a declared type name.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeString, TypeNumber, TypeBool, TypeDate, TypeText:
		return t, nil
	default:
		return "", fmt.Errorf("unknown value type %q", s)
	}
}

// Numeric reports whether the type is stored as a numeric engine field.
func (t Type) Numeric() bool {
	return t == TypeNumber
}

// UnmarshalYAML implements yaml.Unmarshaler so types can appear in
// configuration files by name.
func (t *Type) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (t Type) MarshalYAML() (any, error) {
	return string(t), nil
}

// Kind is the tag of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindArray
	KindObject
)

// String returns the kind name for error messages.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "invalid"
	}
}

// Value is a closed tagged union over the shapes structured input can
// take: null, string, number, boolean, array, and object. Numbers keep
// their canonical decimal lexeme so string round-trips are exact.
type Value struct {
	kind Kind
	str  string // string content, or the number lexeme
	b    bool
	arr  []Value
	obj  *Object
}

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a numeric value from a lexical form. The lexeme is
// canonicalized: integer forms are reformatted digit-exactly (leading
// zeros and signs collapse), everything else becomes the shortest
// decimal that parses back to the same float64. Fails on non-numeric
// input.
func Number(lexeme string) (Value, error) {
	canon, err := canonNumber(lexeme)
	if err != nil {
		return Value{}, err
	}
	return Value{kind: KindNumber, str: canon}, nil
}

// NumberFloat returns a numeric value from a float64.
func NumberFloat(f float64) Value {
	return Value{kind: KindNumber, str: strconv.FormatFloat(f, 'f', -1, 64)}
}

// NumberInt returns a numeric value from an int64.
func NumberInt(i int64) Value {
	return Value{kind: KindNumber, str: strconv.FormatInt(i, 10)}
}

// Array returns an array value.
func Array(items ...Value) Value { return Value{kind: KindArray, arr: items} }

// ObjectValue wraps an Object as a Value.
func ObjectValue(o *Object) Value { return Value{kind: KindObject, obj: o} }

// Kind returns the tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string content. Valid only for KindString and, as the
// canonical lexeme, for KindNumber.
func (v Value) Str() string { return v.str }

// Float returns the numeric content as float64.
func (v Value) Float() (float64, error) {
	if v.kind != KindNumber {
		return 0, fmt.Errorf("value is %s, not number", v.kind)
	}
	return strconv.ParseFloat(v.str, 64)
}

// Int returns the numeric content as int64 when it has an integral lexeme.
func (v Value) Int() (int64, error) {
	if v.kind != KindNumber {
		return 0, fmt.Errorf("value is %s, not number", v.kind)
	}
	return strconv.ParseInt(v.str, 10, 64)
}

// BoolVal returns the boolean content.
func (v Value) BoolVal() bool { return v.b }

// Items returns the array elements. Nil for non-arrays.
func (v Value) Items() []Value { return v.arr }

// Obj returns the object content. Nil for non-objects.
func (v Value) Obj() *Object { return v.obj }

// Equal reports deep equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString, KindNumber:
		return v.str == o.str
	case KindBool:
		return v.b == o.b
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		return v.obj.equal(o.obj)
	default:
		return false
	}
}

// Interface converts to a plain Go value suitable for the engine:
// numbers become float64, objects become map[string]any, arrays []any.
func (v Value) Interface() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindString:
		return v.str
	case KindNumber:
		f, _ := strconv.ParseFloat(v.str, 64)
		return f
	case KindBool:
		return v.b
	case KindArray:
		out := make([]any, len(v.arr))
		for i, item := range v.arr {
			out[i] = item.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, v.obj.Len())
		for _, k := range v.obj.Keys() {
			item, _ := v.obj.Get(k)
			out[k] = item.Interface()
		}
		return out
	default:
		return nil
	}
}

// Time parses the value as an RFC 3339 timestamp. Used for schema date
// fields, which travel as strings until the engine document is built.
func (v Value) Time() (time.Time, error) {
	if v.kind != KindString {
		return time.Time{}, fmt.Errorf("value is %s, not a date string", v.kind)
	}
	return time.Parse(time.RFC3339, v.str)
}

// String implements fmt.Stringer for logs and error context.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindString:
		return strconv.Quote(v.str)
	case KindNumber:
		return v.str
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindArray:
		parts := make([]string, len(v.arr))
		for i, item := range v.arr {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ",") + "]"
	case KindObject:
		parts := make([]string, 0, v.obj.Len())
		for _, k := range v.obj.Keys() {
			item, _ := v.obj.Get(k)
			parts = append(parts, strconv.Quote(k)+":"+item.String())
		}
		return "{" + strings.Join(parts, ",") + "}"
	default:
		return "invalid"
	}
}

// Object is an insertion-ordered name→Value mapping.
type Object struct {
	keys []string
	vals map[string]Value
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{vals: make(map[string]Value)}
}

// Set inserts or replaces an entry. New keys keep insertion order.
func (o *Object) Set(key string, v Value) {
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
}

// Get returns the entry for key.
func (o *Object) Get(key string) (Value, bool) {
	v, ok := o.vals[key]
	return v, ok
}

// Delete removes an entry, returning the removed value.
func (o *Object) Delete(key string) (Value, bool) {
	v, ok := o.vals[key]
	if !ok {
		return Value{}, false
	}
	delete(o.vals, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	return v, true
}

// Keys returns the keys in insertion order. The slice is shared; callers
// must not mutate it.
func (o *Object) Keys() []string { return o.keys }

// Len returns the number of entries.
func (o *Object) Len() int { return len(o.keys) }

// Clone returns a shallow copy preserving order.
func (o *Object) Clone() *Object {
	c := &Object{
		keys: append([]string(nil), o.keys...),
		vals: make(map[string]Value, len(o.vals)),
	}
	for k, v := range o.vals {
		c.vals[k] = v
	}
	return c
}

func (o *Object) equal(other *Object) bool {
	if o == nil || other == nil {
		return o == other
	}
	if len(o.keys) != len(other.keys) {
		return false
	}
	for i, k := range o.keys {
		if other.keys[i] != k {
			return false
		}
		a, _ := o.Get(k)
		b, _ := other.Get(k)
		if !a.Equal(b) {
			return false
		}
	}
	return true
}

// canonNumber canonicalizes a numeric lexeme. Integer literals go
// through ParseInt/FormatInt, which keeps values beyond float64
// precision intact while collapsing spellings like "007" and "+7" to
// one form. Distinct spellings of the same integer must canonicalize
// identically because the lexeme serves as the update-by-id delete term.
func canonNumber(lexeme string) (string, error) {
	s := strings.TrimSpace(lexeme)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return strconv.FormatInt(i, 10), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "", fmt.Errorf("not a numeric literal: %q", lexeme)
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}
