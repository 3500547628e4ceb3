package input

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docdex/internal/errors"
	"github.com/Aman-CERP/docdex/internal/schema"
	"github.com/Aman-CERP/docdex/internal/value"
)

func articleSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New([]schema.FieldConfig{
		{Name: "id", Type: value.TypeNumber, Stored: true, Indexed: true, Fast: true},
		{Name: "title", Type: value.TypeText, Stored: true, Indexed: true, Tokenized: true},
		{Name: "content", Type: value.TypeText, Stored: true, Indexed: true, Tokenized: true},
	})
	require.NoError(t, err)
	return s
}

// The canonical scenario: one XML element, attribute id converted to a
// number, element text relocated to content.
func TestExtract_XMLElementWithValueRename(t *testing.T) {
	s := articleSchema(t)
	cfg := NewConfig(TypeXML,
		[]Rename{{Source: SourceValue, Target: "content"}},
		[]Conversion{{Field: "id", From: value.TypeString, To: value.TypeNumber}},
	)

	docs, err := Extract([]byte(`<doc id="7"><title>Hi</title>World</doc>`), cfg, s)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	doc := docs[0]
	id, ok := doc.Get("id")
	require.True(t, ok)
	got, err := id.Int()
	require.NoError(t, err)
	assert.Equal(t, int64(7), got)

	title, _ := doc.Get("title")
	assert.Equal(t, "Hi", title.Str())
	content, _ := doc.Get("content")
	assert.Equal(t, "World", content.Str())
}

func TestExtract_Multiplicity_XMLSiblings(t *testing.T) {
	s := articleSchema(t)
	cfg := NewConfig(TypeXML,
		[]Rename{{Source: SourceValue, Target: "content"}},
		[]Conversion{{Field: "id", From: value.TypeString, To: value.TypeNumber}},
	)

	var data []byte
	for i := 0; i < 5; i++ {
		data = append(data, []byte(fmt.Sprintf(`<doc id="%d"><title>t%d</title>body %d</doc>`, i, i, i))...)
	}

	docs, err := Extract(data, cfg, s)
	require.NoError(t, err)
	require.Len(t, docs, 5)

	// Source order is preserved and each document conforms independently.
	for i, doc := range docs {
		id, _ := doc.Get("id")
		got, err := id.Int()
		require.NoError(t, err)
		assert.Equal(t, int64(i), got)
		title, _ := doc.Get("title")
		assert.Equal(t, fmt.Sprintf("t%d", i), title.Str())
	}
}

func TestExtract_Multiplicity_JSONArray(t *testing.T) {
	s := articleSchema(t)
	cfg := NewConfig(TypeJSON, nil, nil)

	docs, err := Extract([]byte(`[
		{"id": 1, "title": "one"},
		{"id": 2, "title": "two"}
	]`), cfg, s)
	require.NoError(t, err)
	require.Len(t, docs, 2)
}

func TestExtract_SingleObjectYieldsOneDocument(t *testing.T) {
	s := articleSchema(t)
	docs, err := Extract([]byte(`{"id": 1, "title": "solo"}`), NewConfig(TypeJSON, nil, nil), s)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestExtract_RenameOrder_LaterRuleWins(t *testing.T) {
	s := articleSchema(t)
	cfg := NewConfig(TypeJSON, []Rename{
		{Source: "first", Target: "title"},
		{Source: "second", Target: "title"},
	}, nil)

	docs, err := Extract([]byte(`{"id": 1, "first": "a", "second": "b"}`), cfg, s)
	require.NoError(t, err)
	title, _ := docs[0].Get("title")
	assert.Equal(t, "b", title.Str())
}

func TestExtract_DottedPathRename(t *testing.T) {
	s := articleSchema(t)
	cfg := NewConfig(TypeJSON, []Rename{
		{Source: "meta.headline", Target: "title"},
		{Source: "paragraphs.0", Target: "content"},
	}, nil)

	docs, err := Extract([]byte(`{
		"id": 3,
		"meta": {"headline": "deep"},
		"paragraphs": ["lead", "rest"]
	}`), cfg, s)
	require.NoError(t, err)

	title, _ := docs[0].Get("title")
	assert.Equal(t, "deep", title.Str())
	content, _ := docs[0].Get("content")
	assert.Equal(t, "lead", content.Str())
}

func TestExtract_UndeclaredFieldsDroppedSilently(t *testing.T) {
	s := articleSchema(t)
	docs, err := Extract([]byte(`{"id": 1, "title": "keep", "extra": "drop", "another": 5}`),
		NewConfig(TypeJSON, nil, nil), s)
	require.NoError(t, err)

	doc := docs[0]
	assert.Equal(t, []string{"id", "title"}, doc.FieldNames())
	_, ok := doc.Get("extra")
	assert.False(t, ok)
}

func TestExtract_MissingRenameSourceIsSkipped(t *testing.T) {
	s := articleSchema(t)
	cfg := NewConfig(TypeJSON, []Rename{{Source: "absent", Target: "title"}}, nil)
	docs, err := Extract([]byte(`{"id": 1}`), cfg, s)
	require.NoError(t, err)
	_, ok := docs[0].Get("title")
	assert.False(t, ok)
}

func TestExtract_ConversionFailureCarriesFieldAndOrdinal(t *testing.T) {
	s := articleSchema(t)
	cfg := NewConfig(TypeJSON, nil,
		[]Conversion{{Field: "id", From: value.TypeString, To: value.TypeNumber}})

	_, err := Extract([]byte(`[{"id": "not-a-number", "title": "x"}]`), cfg, s)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConversionFailed))

	var structured *errors.Error
	require.ErrorAs(t, err, &structured)
	assert.Equal(t, "id", structured.Details["field"])
	assert.Equal(t, "0", structured.Details["document"])
}

// A conversion failure on any unit aborts the whole batch.
func TestExtract_BatchAbortsOnBadDocument(t *testing.T) {
	s := articleSchema(t)
	cfg := NewConfig(TypeJSON, nil,
		[]Conversion{{Field: "id", From: value.TypeString, To: value.TypeNumber}})

	docs, err := Extract([]byte(`[{"id": "1"}, {"id": "bad"}, {"id": "3"}]`), cfg, s)
	require.Error(t, err)
	assert.Nil(t, docs)
}

func TestExtract_SchemaViolationAfterConversion(t *testing.T) {
	s := articleSchema(t)
	// id stays a string: no conversion declared, so validation fails.
	_, err := Extract([]byte(`{"id": "7", "title": "x"}`), NewConfig(TypeJSON, nil, nil), s)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSchemaViolation))
}

func TestExtract_ScalarTopLevelRejected(t *testing.T) {
	s := articleSchema(t)
	_, err := Extract([]byte(`"just a string"`), NewConfig(TypeJSON, nil, nil), s)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInputShape))
}

func TestExtract_MultiValuedFieldPassesValidation(t *testing.T) {
	s := articleSchema(t)
	docs, err := Extract([]byte(`{"id": 1, "title": ["first", "second"]}`),
		NewConfig(TypeJSON, nil, nil), s)
	require.NoError(t, err)
	title, _ := docs[0].Get("title")
	assert.Equal(t, value.KindArray, title.Kind())
}

func TestDocument_ID(t *testing.T) {
	s := articleSchema(t)
	docs, err := Extract([]byte(`{"id": 1024, "title": "x"}`), NewConfig(TypeJSON, nil, nil), s)
	require.NoError(t, err)

	id, ok := docs[0].ID("id")
	require.True(t, ok)
	assert.Equal(t, "1024", id)

	_, ok = docs[0].ID("missing")
	assert.False(t, ok)
}

func TestDocument_Engine(t *testing.T) {
	s := articleSchema(t)
	docs, err := Extract([]byte(`{"id": 2, "title": "hello", "content": "world"}`),
		NewConfig(TypeJSON, nil, nil), s)
	require.NoError(t, err)

	fields, err := docs[0].Engine(s)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"id":      float64(2),
		"title":   "hello",
		"content": "world",
	}, fields)
}
