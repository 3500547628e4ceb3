package schema

import (
	"sort"

	"github.com/blevesearch/bleve/v2"
	bleveKeyword "github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	bleveStandard "github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	bleveCJK "github.com/blevesearch/bleve/v2/analysis/lang/cjk"
	bleveEn "github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/Aman-CERP/docdex/internal/errors"
	"github.com/Aman-CERP/docdex/internal/value"
)

// AnalyzerNames maps config language names to engine analyzers.
// Bleve supports more languages that may be added here,
// see github.com/blevesearch/bleve/tree/master/analysis/lang.
var AnalyzerNames = map[string]string{
	"standard": bleveStandard.Name,
	"english":  bleveEn.AnalyzerName,
	"cjk":      bleveCJK.AnalyzerName,
}

func availableLanguages() []string {
	out := make([]string, 0, len(AnalyzerNames))
	for k := range AnalyzerNames {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// BuildMapping derives the engine index mapping from the schema. The
// mapping is static: fields outside the schema are never indexed, which
// is what lets extraction treat the schema as a projection.
func BuildMapping(s *Schema, language string) (mapping.IndexMapping, error) {
	analyzer, ok := AnalyzerNames[language]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeConfigInvalid,
			"unknown language %q", language)
	}

	doc := bleve.NewDocumentStaticMapping()
	for _, f := range s.Fields() {
		var fm *mapping.FieldMapping
		switch f.Type {
		case value.TypeText, value.TypeString:
			fm = bleve.NewTextFieldMapping()
			if f.Tokenized {
				fm.Analyzer = analyzer
			} else {
				fm.Analyzer = bleveKeyword.Name
			}
		case value.TypeNumber:
			fm = bleve.NewNumericFieldMapping()
			fm.DocValues = f.Fast
		case value.TypeBool:
			fm = bleve.NewBooleanFieldMapping()
		case value.TypeDate:
			fm = bleve.NewDateTimeFieldMapping()
		default:
			return nil, errors.Newf(errors.ErrCodeTypeUnknown,
				"field %q: no engine mapping for type %s", f.Name, f.Type)
		}
		fm.Store = f.Stored
		fm.Index = f.Indexed
		fm.IncludeInAll = f.Indexed
		doc.AddFieldMappingsAt(f.Name, fm)
	}

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	im.DefaultAnalyzer = analyzer
	return im, nil
}
