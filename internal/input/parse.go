package input

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/clbanning/mxj/v2"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/docdex/internal/errors"
	"github.com/Aman-CERP/docdex/internal/value"
)

// parser converts raw bytes of one format into the value tree.
// Adding a format means adding one entry here; extraction never changes.
type parser func(data []byte) (value.Value, error)

var parsers = map[Type]parser{
	TypeJSON: parseJSON,
	TypeYAML: parseYAML,
	TypeXML:  parseXML,
}

// Parse converts raw bytes of the declared type into a value tree.
func Parse(data []byte, t Type) (value.Value, error) {
	p, ok := parsers[t]
	if !ok {
		return value.Value{}, errors.Newf(errors.ErrCodeConfigInvalid,
			"unknown input type %q", t)
	}
	v, err := p(data)
	if err != nil {
		return value.Value{}, errors.New(errors.ErrCodeParseFailed,
			fmt.Sprintf("malformed %s input: %v", t, err), err)
	}
	return v, nil
}

// parseJSON decodes via the token stream so object entries keep source
// order and numbers keep their lexemes.
func parseJSON(data []byte) (value.Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeJSON(dec)
	if err != nil {
		return value.Value{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return value.Value{}, fmt.Errorf("trailing content after JSON value")
	}
	return v, nil
}

func decodeJSON(dec *json.Decoder) (value.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return value.Value{}, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := value.NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return value.Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return value.Value{}, fmt.Errorf("object key is not a string")
				}
				v, err := decodeJSON(dec)
				if err != nil {
					return value.Value{}, err
				}
				obj.Set(key, v)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return value.Value{}, err
			}
			return value.ObjectValue(obj), nil
		case '[':
			var items []value.Value
			for dec.More() {
				v, err := decodeJSON(dec)
				if err != nil {
					return value.Value{}, err
				}
				items = append(items, v)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return value.Value{}, err
			}
			return value.Array(items...), nil
		default:
			return value.Value{}, fmt.Errorf("unexpected delimiter %v", t)
		}
	case string:
		return value.String(t), nil
	case json.Number:
		return value.Number(t.String())
	case bool:
		return value.Bool(t), nil
	case nil:
		return value.Null(), nil
	default:
		return value.Value{}, fmt.Errorf("unexpected token %v", tok)
	}
}

// parseYAML walks the yaml.v3 node tree, which preserves mapping order
// and scalar lexemes.
func parseYAML(data []byte) (value.Value, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return value.Value{}, err
	}
	return yamlToValue(&root)
}

func yamlToValue(n *yaml.Node) (value.Value, error) {
	switch n.Kind {
	case 0: // empty document
		return value.Null(), nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return value.Null(), nil
		}
		return yamlToValue(n.Content[0])
	case yaml.AliasNode:
		return yamlToValue(n.Alias)
	case yaml.MappingNode:
		obj := value.NewObject()
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := yamlToValue(n.Content[i+1])
			if err != nil {
				return value.Value{}, err
			}
			obj.Set(n.Content[i].Value, v)
		}
		return value.ObjectValue(obj), nil
	case yaml.SequenceNode:
		items := make([]value.Value, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := yamlToValue(c)
			if err != nil {
				return value.Value{}, err
			}
			items = append(items, v)
		}
		return value.Array(items...), nil
	case yaml.ScalarNode:
		switch n.Tag {
		case "!!null":
			return value.Null(), nil
		case "!!bool":
			return value.Bool(strings.EqualFold(n.Value, "true")), nil
		case "!!int", "!!float":
			return value.Number(n.Value)
		default:
			return value.String(n.Value), nil
		}
	default:
		return value.Value{}, fmt.Errorf("unsupported yaml node kind %d", n.Kind)
	}
}

// xmlWrapper is the synthetic root the XML parser adds so inputs with
// multiple top-level sibling elements stay parseable.
const xmlWrapper = "docdex-batch"

// parseXML maps XML onto the value tree the way the other formats shape
// it: attributes and child elements become object entries, repeated
// sibling elements become arrays, and element text becomes the $value
// entry. All scalar content stays string-typed; conversions are the
// declared way to get numbers out of XML.
func parseXML(data []byte) (value.Value, error) {
	body := stripXMLDeclaration(data)
	wrapped := make([]byte, 0, len(body)+2*len(xmlWrapper)+5)
	wrapped = append(wrapped, '<')
	wrapped = append(wrapped, xmlWrapper...)
	wrapped = append(wrapped, '>')
	wrapped = append(wrapped, body...)
	wrapped = append(wrapped, '<', '/')
	wrapped = append(wrapped, xmlWrapper...)
	wrapped = append(wrapped, '>')

	m, err := mxj.NewMapXml(wrapped)
	if err != nil {
		return value.Value{}, err
	}
	content, ok := m[xmlWrapper]
	if !ok || content == nil {
		return value.ObjectValue(value.NewObject()), nil
	}
	return xmlToValue(content)
}

func stripXMLDeclaration(data []byte) []byte {
	body := bytes.TrimSpace(data)
	if bytes.HasPrefix(body, []byte("<?xml")) {
		if end := bytes.Index(body, []byte("?>")); end >= 0 {
			body = bytes.TrimSpace(body[end+2:])
		}
	}
	return body
}

// xmlToValue normalizes mxj's map shape: attribute keys lose their "-"
// prefix and the "#text" entry becomes $value.
func xmlToValue(raw any) (value.Value, error) {
	switch t := raw.(type) {
	case map[string]any:
		obj := value.NewObject()
		for _, key := range sortedKeys(t) {
			v, err := xmlToValue(t[key])
			if err != nil {
				return value.Value{}, err
			}
			obj.Set(normalizeXMLKey(key), v)
		}
		return value.ObjectValue(obj), nil
	case []any:
		items := make([]value.Value, 0, len(t))
		for _, item := range t {
			v, err := xmlToValue(item)
			if err != nil {
				return value.Value{}, err
			}
			items = append(items, v)
		}
		return value.Array(items...), nil
	case string:
		return value.String(t), nil
	case nil:
		return value.Null(), nil
	default:
		return value.Value{}, fmt.Errorf("unexpected XML node type %T", raw)
	}
}

func normalizeXMLKey(key string) string {
	if key == "#text" {
		return SourceValue
	}
	return strings.TrimPrefix(key, "-")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// mxj maps are unordered; sort for deterministic extraction.
	sort.Strings(keys)
	return keys
}
