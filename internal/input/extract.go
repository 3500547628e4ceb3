package input

import (
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/docdex/internal/errors"
	"github.com/Aman-CERP/docdex/internal/schema"
	"github.com/Aman-CERP/docdex/internal/value"
)

// Extract parses raw bytes per the mapping config and produces one
// schema-conformant Document per repeated unit, preserving source order.
//
// A conversion or validation failure on any unit aborts the whole batch;
// the error names the field and the document ordinal so the caller can
// fix or split the input. No partial document sequence is ever returned.
func Extract(data []byte, cfg Config, s *schema.Schema) ([]Document, error) {
	tree, err := Parse(data, cfg.Type)
	if err != nil {
		return nil, err
	}
	units, err := splitUnits(tree, cfg.Type)
	if err != nil {
		return nil, err
	}

	docs := make([]Document, len(units))
	if len(units) == 1 {
		doc, err := extractOne(units[0], cfg, s)
		if err != nil {
			return nil, withOrdinal(err, 0)
		}
		docs[0] = doc
		return docs, nil
	}

	// Units are independent; process them in parallel but keep source
	// order by writing into the positional slot.
	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, unit := range units {
		i, unit := i, unit
		g.Go(func() error {
			doc, err := extractOne(unit, cfg, s)
			if err != nil {
				return withOrdinal(err, i)
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

// splitUnits decides how many documents the top-level structure
// represents. JSON/YAML: a top-level array is one unit per element, an
// object is a single unit. XML: the (format-shaped) root object holds
// either a repeated element (array → one unit per element), a single
// element (one unit), or bare text.
func splitUnits(tree value.Value, t Type) ([]value.Value, error) {
	if t == TypeXML {
		return splitXMLUnits(tree)
	}
	switch tree.Kind() {
	case value.KindArray:
		units := tree.Items()
		for i, u := range units {
			if u.Kind() != value.KindObject {
				return nil, errors.Newf(errors.ErrCodeInputShape,
					"top-level array element %d is %s, want object", i, u.Kind())
			}
		}
		return units, nil
	case value.KindObject:
		return []value.Value{tree}, nil
	default:
		return nil, errors.Newf(errors.ErrCodeInputShape,
			"top-level value is %s, want object or array of objects", tree.Kind())
	}
}

func splitXMLUnits(tree value.Value) ([]value.Value, error) {
	obj := tree.Obj()
	if obj == nil || obj.Len() == 0 {
		return nil, errors.Newf(errors.ErrCodeInputShape, "XML input has no elements")
	}
	if obj.Len() > 1 {
		// Distinct top-level element names: one heterogeneous unit.
		return []value.Value{tree}, nil
	}
	elem, _ := obj.Get(obj.Keys()[0])
	switch elem.Kind() {
	case value.KindArray:
		units := make([]value.Value, 0, len(elem.Items()))
		for _, item := range elem.Items() {
			units = append(units, asUnit(item))
		}
		return units, nil
	default:
		return []value.Value{asUnit(elem)}, nil
	}
}

// asUnit ensures a unit is an object; a bare scalar element becomes an
// object whose only entry is its own text content.
func asUnit(v value.Value) value.Value {
	if v.Kind() == value.KindObject {
		return v
	}
	obj := value.NewObject()
	obj.Set(SourceValue, v)
	return value.ObjectValue(obj)
}

// extractOne runs steps 1-3 for a single unit: rename, convert, project.
func extractOne(unit value.Value, cfg Config, s *schema.Schema) (Document, error) {
	if unit.Kind() != value.KindObject {
		return Document{}, errors.Newf(errors.ErrCodeInputShape,
			"document unit is %s, want object", unit.Kind())
	}
	working := unit.Obj().Clone()

	// Step 1: renames in declared order; later rules overwrite earlier
	// targets. Single-segment sources are relocated, deeper paths are
	// copied (the source subtree is dropped by projection anyway).
	for _, r := range cfg.Renames {
		var (
			v  value.Value
			ok bool
		)
		if !strings.Contains(r.Source, ".") {
			v, ok = working.Delete(r.Source)
		} else {
			v, ok = lookupPath(working, r.Source)
		}
		if !ok {
			continue
		}
		working.Set(r.Target, v)
	}

	// Step 2: declared conversions; untouched fields pass through.
	for _, c := range cfg.Conversions {
		v, ok := working.Get(c.Field)
		if !ok || v.IsNull() {
			continue
		}
		converted, err := convertValue(v, c.From, c.To)
		if err != nil {
			if e, isStructured := err.(*errors.Error); isStructured {
				return Document{}, e.WithDetail("field", c.Field)
			}
			return Document{}, err
		}
		working.Set(c.Field, converted)
	}

	// Step 3: schema projection and validation. Fields the schema does
	// not declare are dropped silently.
	fields := value.NewObject()
	for _, f := range s.Fields() {
		v, ok := working.Get(f.Name)
		if !ok || v.IsNull() {
			continue
		}
		if err := s.Validate(f, v); err != nil {
			return Document{}, err
		}
		fields.Set(f.Name, v)
	}
	return NewDocument(fields), nil
}

// convertValue applies a conversion, elementwise over arrays.
func convertValue(v value.Value, from, to value.Type) (value.Value, error) {
	if v.Kind() != value.KindArray {
		return value.Convert(v, from, to)
	}
	items := make([]value.Value, 0, len(v.Items()))
	for _, item := range v.Items() {
		converted, err := value.Convert(item, from, to)
		if err != nil {
			return value.Value{}, err
		}
		items = append(items, converted)
	}
	return value.Array(items...), nil
}

// lookupPath resolves a dotted path, with numeric segments indexing
// into arrays. The literal $value is an ordinary key, set by the XML
// parser for element text.
func lookupPath(obj *value.Object, path string) (value.Value, bool) {
	cur := value.ObjectValue(obj)
	for _, seg := range strings.Split(path, ".") {
		switch cur.Kind() {
		case value.KindObject:
			v, ok := cur.Obj().Get(seg)
			if !ok {
				return value.Value{}, false
			}
			cur = v
		case value.KindArray:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(cur.Items()) {
				return value.Value{}, false
			}
			cur = cur.Items()[idx]
		default:
			return value.Value{}, false
		}
	}
	return cur, true
}

func withOrdinal(err error, i int) error {
	if e, ok := err.(*errors.Error); ok {
		return e.WithDetail("document", strconv.Itoa(i))
	}
	return err
}
