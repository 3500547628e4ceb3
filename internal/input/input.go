// Package input turns raw bytes in a declared format into ordered,
// schema-conformant documents: parse to the generic value tree, apply
// field renames and type conversions, then project onto the schema.
package input

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/docdex/internal/value"
)

// Type is the declared format of raw input bytes.
type Type string

const (
	TypeJSON Type = "json"
	TypeYAML Type = "yaml"
	TypeXML  Type = "xml"
)

// ParseInputType parses a format name.
func ParseInputType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeJSON, TypeYAML, TypeXML:
		return t, nil
	case "yml":
		return TypeYAML, nil
	default:
		return "", fmt.Errorf("unknown input type %q", s)
	}
}

// SourceValue is the literal source path denoting a node's own scalar
// content, e.g. the text of an XML element.
const SourceValue = "$value"

// Rename relocates the value at Source (a dotted path into the parsed
// tree) to the schema field Target.
type Rename struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

// Conversion coerces the field named Field from one declared type to
// another before schema validation.
type Conversion struct {
	Field string     `yaml:"field"`
	From  value.Type `yaml:"from"`
	To    value.Type `yaml:"to"`
}

// Config describes how one input batch maps onto the schema. Renames
// apply in declared order (later rules win target collisions), then
// conversions, then schema projection.
type Config struct {
	Type        Type         `yaml:"type"`
	Renames     []Rename     `yaml:"renames"`
	Conversions []Conversion `yaml:"conversions"`
}

// NewConfig builds a Config.
func NewConfig(t Type, renames []Rename, conversions []Conversion) Config {
	return Config{Type: t, Renames: renames, Conversions: conversions}
}
