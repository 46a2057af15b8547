package docstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/char/asciifolding"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/mahesh-hegde/vizext/app/config"
)

const (
	catalogWorksheet = "worksheet"
	catalogWidget    = "widget"
)

// CatalogEntry is one searchable worksheet or widget.
type CatalogEntry struct {
	Kind         string   `json:"kind"`
	Name         string   `json:"name"`
	ReadableName string   `json:"readable_name"`
	Description  string   `json:"description"`
	Fields       []string `json:"fields"`
	Worksheet    string   `json:"worksheet,omitempty"`
}

// Type implements mapping.Classifier.
func (e *CatalogEntry) Type() string {
	return e.Kind
}

var _ mapping.Classifier = &CatalogEntry{}

type CatalogHit struct {
	Kind         string  `json:"kind"`
	Name         string  `json:"name"`
	ReadableName string  `json:"readable_name"`
	Worksheet    string  `json:"worksheet,omitempty"`
	Score        float64 `json:"score"`
}

// foldedAnalyzer lowercases and strips accents so "Région" matches "region".
const foldedAnalyzer = "folded"

func catalogMapping() (mapping.IndexMapping, error) {
	indexMapping := mapping.NewIndexMapping()
	err := indexMapping.AddCustomAnalyzer(foldedAnalyzer, map[string]any{
		"type":         custom.Name,
		"char_filters": []string{asciifolding.Name},
		"tokenizer":    unicode.Name,
		"token_filters": []string{
			lowercase.Name,
		},
	})
	if err != nil {
		return nil, err
	}

	text := func() *mapping.FieldMapping {
		f := mapping.NewTextFieldMapping()
		f.Analyzer = foldedAnalyzer
		f.Store = true
		return f
	}
	stored := func() *mapping.FieldMapping {
		f := mapping.NewKeywordFieldMapping()
		f.Store = true
		return f
	}

	entryMapping := mapping.NewDocumentMapping()
	entryMapping.AddFieldMappingsAt("kind", stored())
	entryMapping.AddFieldMappingsAt("name", text())
	entryMapping.AddFieldMappingsAt("readable_name", text())
	entryMapping.AddFieldMappingsAt("description", text())
	entryMapping.AddFieldMappingsAt("fields", text())
	entryMapping.AddFieldMappingsAt("worksheet", stored())

	indexMapping.AddDocumentMapping(catalogWorksheet, entryMapping)
	indexMapping.AddDocumentMapping(catalogWidget, entryMapping)
	indexMapping.DefaultAnalyzer = foldedAnalyzer
	return indexMapping, nil
}

// Catalog is an in-memory full text index over worksheets and widgets.
type Catalog struct {
	idx bleve.Index
}

func NewCatalog(entries []CatalogEntry) (*Catalog, error) {
	m, err := catalogMapping()
	if err != nil {
		return nil, fmt.Errorf("error when defining catalog index: %w", err)
	}
	idx, err := bleve.NewMemOnly(m)
	if err != nil {
		return nil, err
	}
	batch := idx.NewBatch()
	for i := range entries {
		e := &entries[i]
		if err := batch.Index(e.Kind+":"+e.Name, e); err != nil {
			return nil, err
		}
	}
	if err := idx.Batch(batch); err != nil {
		return nil, err
	}
	return &Catalog{idx: idx}, nil
}

// BuildCatalog indexes the configured widgets and the imported worksheets
// along with their field names.
func BuildCatalog(ctx context.Context, store *SQLiteWorksheetStore, conf *config.VizextConfig) (*Catalog, error) {
	infos, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	fieldsOf := map[string][]string{}
	var entries []CatalogEntry
	for _, info := range infos {
		names := make([]string, len(info.Columns))
		for i, c := range info.Columns {
			names[i] = c.FieldName
		}
		fieldsOf[info.Name] = names
		entries = append(entries, CatalogEntry{
			Kind:         catalogWorksheet,
			Name:         info.Name,
			ReadableName: info.ReadableName,
			Description:  info.Description,
			Fields:       names,
		})
	}
	for _, w := range conf.Widgets {
		entries = append(entries, CatalogEntry{
			Kind:         catalogWidget,
			Name:         w.Name,
			ReadableName: w.ReadableName,
			Description:  w.Description,
			Fields:       fieldsOf[w.Worksheet],
			Worksheet:    w.Worksheet,
		})
	}
	return NewCatalog(entries)
}

// Search matches q against names, descriptions and field names. The last
// term is also matched as a prefix so partially typed words find results.
func (c *Catalog) Search(ctx context.Context, q string, size int) ([]CatalogHit, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil
	}
	var queries []query.Query
	for _, field := range []string{"name", "readable_name", "description", "fields"} {
		mq := bleve.NewMatchQuery(q)
		mq.SetField(field)
		mq.SetFuzziness(1)
		queries = append(queries, mq)
	}
	if last := c.lastTerm(q); last != "" {
		for _, field := range []string{"name", "readable_name", "fields"} {
			pq := bleve.NewPrefixQuery(last)
			pq.SetField(field)
			queries = append(queries, pq)
		}
	}

	req := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(queries...))
	req.Size = size
	req.Fields = []string{"kind", "name", "readable_name", "worksheet"}
	res, err := c.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, err
	}
	hits := make([]CatalogHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := CatalogHit{Score: h.Score}
		hit.Kind, _ = h.Fields["kind"].(string)
		hit.Name, _ = h.Fields["name"].(string)
		hit.ReadableName, _ = h.Fields["readable_name"].(string)
		hit.Worksheet, _ = h.Fields["worksheet"].(string)
		hits = append(hits, hit)
	}
	return hits, nil
}

// lastTerm runs q through the folded analyzer and returns its final token.
// Prefix queries are not analyzed, so the term has to be folded the same way
// the indexed text was.
func (c *Catalog) lastTerm(q string) string {
	analyzer := c.idx.Mapping().AnalyzerNamed(foldedAnalyzer)
	if analyzer == nil {
		terms := strings.Fields(strings.ToLower(q))
		return terms[len(terms)-1]
	}
	tokens := analyzer.Analyze([]byte(q))
	if len(tokens) == 0 {
		return ""
	}
	return string(tokens[len(tokens)-1].Term)
}

func (c *Catalog) Close() error {
	return c.idx.Close()
}
