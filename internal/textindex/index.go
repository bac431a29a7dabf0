package textindex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
)

// Doc is the searchable view of a protein record
type Doc struct {
	ID          string
	Description string
	Source      string
	Length      int
}

// Hit is a keyword search result
type Hit struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Length      int     `json:"length"`
	Score       float64 `json:"score"`
}

// Index wraps a bleve index over record IDs and descriptions
type Index struct {
	index bleve.Index
}

// Create resets dir and builds a fresh index there
func Create(dir string) (*Index, error) {
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("reset text index dir: %w", err)
	}
	// bleve.New refuses an existing path, so only the parent is created
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return nil, fmt.Errorf("create text index dir: %w", err)
	}
	index, err := bleve.New(dir, buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create bleve index: %w", err)
	}
	return &Index{index: index}, nil
}

// Open opens an existing index
func Open(dir string) (*Index, error) {
	index, err := bleve.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("open bleve index: %w", err)
	}
	return &Index{index: index}, nil
}

// IndexDocs adds docs in a single batch
func (ix *Index) IndexDocs(docs []Doc) error {
	batch := ix.index.NewBatch()
	for _, d := range docs {
		if err := batch.Index(d.ID, map[string]interface{}{
			"id":          d.ID,
			"description": d.Description,
			"source":      d.Source,
			"length":      d.Length,
		}); err != nil {
			return fmt.Errorf("index %s: %w", d.ID, err)
		}
	}
	if err := ix.index.Batch(batch); err != nil {
		return fmt.Errorf("apply batch: %w", err)
	}
	return nil
}

// Count returns the number of indexed documents
func (ix *Index) Count() (uint64, error) {
	return ix.index.DocCount()
}

// Search matches query against descriptions and record IDs
func (ix *Index) Search(query string, topK int) ([]Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if topK <= 0 {
		topK = 10
	}

	descQuery := bleve.NewMatchQuery(query)
	descQuery.SetField("description")
	descQuery.SetBoost(1.0)

	idQuery := bleve.NewTermQuery(query)
	idQuery.SetField("id")
	idQuery.SetBoost(3.0)

	prefixQuery := bleve.NewPrefixQuery(query)
	prefixQuery.SetField("id")
	prefixQuery.SetBoost(1.5)

	disjunction := bleve.NewDisjunctionQuery([]blevequery.Query{descQuery, idQuery, prefixQuery}...)

	req := bleve.NewSearchRequestOptions(disjunction, topK, 0, false)
	req.Fields = []string{"description", "length"}

	res, err := ix.index.Search(req)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, hit := range res.Hits {
		desc, _ := hit.Fields["description"].(string)
		hits = append(hits, Hit{
			ID:          hit.ID,
			Description: desc,
			Length:      parseNumericField(hit.Fields["length"]),
			Score:       hit.Score,
		})
	}
	return hits, nil
}

// Close closes the index
func (ix *Index) Close() error {
	return ix.index.Close()
}

func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = "en"
	indexMapping.DefaultField = "description"

	docMapping := bleve.NewDocumentMapping()

	idField := bleve.NewTextFieldMapping()
	idField.Store = true
	idField.Index = true
	idField.Analyzer = "keyword"
	docMapping.AddFieldMappingsAt("id", idField)

	descField := bleve.NewTextFieldMapping()
	descField.Store = true
	descField.Index = true
	docMapping.AddFieldMappingsAt("description", descField)

	sourceField := bleve.NewTextFieldMapping()
	sourceField.Store = true
	sourceField.Index = true
	sourceField.Analyzer = "keyword"
	docMapping.AddFieldMappingsAt("source", sourceField)

	lengthField := bleve.NewNumericFieldMapping()
	lengthField.Store = true
	lengthField.Index = false
	docMapping.AddFieldMappingsAt("length", lengthField)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

func parseNumericField(val any) int {
	switch v := val.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}
