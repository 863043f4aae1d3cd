// Package catalog keeps a full-text index over curriculum records so
// teachers can find the standards to generate lessons from.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"lessonnotes/internal/curriculum"
)

const defaultLimit = 20

// Catalog is a bleve index plus the records it was built from.
type Catalog struct {
	index   bleve.Index
	policy  curriculum.MergePolicy
	mu      sync.RWMutex
	records map[string]entry
	seq     int
}

type entry struct {
	record curriculum.CurriculumRecord
	seq    int
}

// Hit is one search result.
type Hit struct {
	Record curriculum.CurriculumRecord `json:"record"`
	Score  float64                     `json:"score"`
}

// Query selects records. Text is matched against every field; GradeLevel
// and Subject are exact, case-insensitive filters.
type Query struct {
	Text       string
	GradeLevel string
	Subject    string
	Limit      int
}

func buildMapping() mapping.IndexMapping {
	kw := bleve.NewTextFieldMapping()
	kw.Analyzer = keyword.Name
	kw.IncludeInAll = false

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("grade_key", kw)
	doc.AddFieldMappingsAt("subject_key", kw)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// New creates an empty in-memory catalog. Records are identified by their
// merge key under policy, matching how the store keeps them.
func New(policy curriculum.MergePolicy) (*Catalog, error) {
	idx, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("create catalog index: %w", err)
	}
	return &Catalog{index: idx, policy: policy, records: make(map[string]entry)}, nil
}

// Close releases the index.
func (c *Catalog) Close() error {
	return c.index.Close()
}

// Len returns the number of records held.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

func (c *Catalog) docID(r curriculum.CurriculumRecord) string {
	return strings.ReplaceAll(curriculum.MergeKey(r, c.policy), "\x1f", "|")
}

func document(r curriculum.CurriculumRecord) map[string]interface{} {
	return map[string]interface{}{
		"grade":       r.GradeLevel,
		"grade_key":   strings.ToLower(r.GradeLevel),
		"subject":     r.Subject,
		"subject_key": strings.ToLower(r.Subject),
		"strand":      r.Strand,
		"sub_strand":  r.SubStrand,
		"code":        r.ContentStandardCode,
		"standard":    r.ContentStandardDescription,
		"indicators":  strings.Join(r.LearningIndicators, "\n"),
		"exemplars":   strings.Join(r.Exemplars, "\n"),
	}
}

// Add indexes records, replacing any with the same identity.
func (c *Catalog) Add(records ...curriculum.CurriculumRecord) error {
	if len(records) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	b := c.index.NewBatch()
	for _, r := range records {
		id := c.docID(r)
		if err := b.Index(id, document(r)); err != nil {
			return fmt.Errorf("index %s: %w", id, err)
		}
		e, ok := c.records[id]
		if !ok {
			c.seq++
			e.seq = c.seq
		}
		e.record = r
		c.records[id] = e
	}
	if err := c.index.Batch(b); err != nil {
		return fmt.Errorf("index batch: %w", err)
	}
	return nil
}

// Search runs q and returns hits by descending score, ties in insertion
// order.
func (c *Catalog) Search(ctx context.Context, q Query) ([]Hit, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	var clauses []query.Query
	if text := strings.TrimSpace(q.Text); text != "" {
		clauses = append(clauses, bleve.NewMatchQuery(text))
	}
	if g := strings.TrimSpace(q.GradeLevel); g != "" {
		tq := bleve.NewTermQuery(strings.ToLower(curriculum.NormalizeGradeLevel(g)))
		tq.SetField("grade_key")
		clauses = append(clauses, tq)
	}
	if s := strings.TrimSpace(q.Subject); s != "" {
		tq := bleve.NewTermQuery(strings.ToLower(s))
		tq.SetField("subject_key")
		clauses = append(clauses, tq)
	}

	var bq query.Query
	switch len(clauses) {
	case 0:
		bq = bleve.NewMatchAllQuery()
	case 1:
		bq = clauses[0]
	default:
		bq = bleve.NewConjunctionQuery(clauses...)
	}

	req := bleve.NewSearchRequestOptions(bq, limit, 0, false)
	res, err := c.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("catalog search: %w", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	type ranked struct {
		hit Hit
		seq int
	}
	out := make([]ranked, 0, len(res.Hits))
	for _, h := range res.Hits {
		e, ok := c.records[h.ID]
		if !ok {
			continue
		}
		out = append(out, ranked{Hit{Record: e.record, Score: h.Score}, e.seq})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].hit.Score != out[j].hit.Score {
			return out[i].hit.Score > out[j].hit.Score
		}
		return out[i].seq < out[j].seq
	})
	hits := make([]Hit, len(out))
	for i, r := range out {
		hits[i] = r.hit
	}
	return hits, nil
}
