package bleve

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/kailas-cloud/ftsync/internal/db"
	"github.com/kailas-cloud/ftsync/internal/domain/search/filter"
	"github.com/kailas-cloud/ftsync/internal/domain/search/order"
	"github.com/kailas-cloud/ftsync/internal/domain/search/phrase"
)

// Search runs the condition against the index. Limit 0 returns the total only.
func (s *Store) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	bq, err := buildQuery(q.Phrase, q.Filters)
	if err != nil {
		return nil, err
	}

	idx, err := s.open()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	req := bleve.NewSearchRequestOptions(bq, q.Limit, q.Offset, false)
	req.Fields = []string{"*"}
	if q.Order != nil {
		req.SortBy([]string{sortKey(q.Order)})
	}

	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	out := &db.SearchResult{Total: int(res.Total)}
	if q.Limit == 0 {
		return out, nil
	}
	out.Entries = make([]db.SearchEntry, 0, len(res.Hits))
	for _, hit := range res.Hits {
		entry, err := toEntry(hit)
		if err != nil {
			return nil, err
		}
		out.Entries = append(out.Entries, entry)
	}
	return out, nil
}

// toEntry keeps stored keyword fields and decodes the texts; numeric shadows
// and the analyzed text block are dropped.
func toEntry(hit *search.DocumentMatch) (db.SearchEntry, error) {
	entry := db.SearchEntry{Key: hit.ID, Score: hit.Score, Fields: make(map[string]string, len(hit.Fields))}
	for name, value := range hit.Fields {
		switch {
		case name == textsField:
		case name == textsJSONField:
			raw, ok := value.(string)
			if !ok {
				return db.SearchEntry{}, fmt.Errorf("decode texts of %s: unexpected %T", hit.ID, value)
			}
			if err := json.Unmarshal([]byte(raw), &entry.Texts); err != nil {
				return db.SearchEntry{}, fmt.Errorf("decode texts of %s: %w", hit.ID, err)
			}
		case strings.HasSuffix(name, numSuffix):
		default:
			if v, ok := value.(string); ok {
				entry.Fields[name] = v
			}
		}
	}
	return entry, nil
}

// --- Query building ---

// buildQuery translates phrase and attribute conditions into a boolean query.
// An empty condition matches every document.
func buildQuery(p phrase.Phrase, expr filter.Expression) (query.Query, error) {
	var must, mustNot []query.Query

	for _, group := range p.Groups() {
		terms := make([]query.Query, len(group))
		for i, t := range group {
			terms[i] = buildTerm(t)
		}
		if len(terms) == 1 {
			must = append(must, terms[0])
			continue
		}
		must = append(must, bleve.NewDisjunctionQuery(terms...))
	}
	for _, t := range p.Excluded() {
		mustNot = append(mustNot, buildTerm(t))
	}

	for _, cond := range expr.Conditions() {
		q, exclude, err := buildCondition(cond)
		if err != nil {
			return nil, err
		}
		if exclude {
			mustNot = append(mustNot, q)
		} else {
			must = append(must, q)
		}
	}

	if len(must) == 0 {
		must = append(must, bleve.NewMatchAllQuery())
	}
	if len(mustNot) == 0 {
		return bleve.NewConjunctionQuery(must...), nil
	}
	bq := bleve.NewBooleanQuery()
	bq.AddMust(must...)
	bq.AddMustNot(mustNot...)
	return bq, nil
}

func buildTerm(t phrase.Term) query.Query {
	switch {
	case t.IsQuoted():
		q := bleve.NewMatchPhraseQuery(t.Text())
		q.SetField(textsField)
		return q
	case t.IsPrefix():
		// the standard analyzer lowercases indexed terms
		q := bleve.NewPrefixQuery(strings.ToLower(t.Text()))
		q.SetField(textsField)
		return q
	default:
		q := bleve.NewMatchQuery(t.Text())
		q.SetField(textsField)
		q.SetOperator(query.MatchQueryOperatorAnd)
		return q
	}
}

// buildCondition returns the query for cond and whether it must be excluded.
func buildCondition(cond filter.Condition) (query.Query, bool, error) {
	field := cond.Attr()

	if cond.Op().IsNumeric() {
		r, inverted, err := cond.Bounds()
		if err != nil {
			return nil, false, fmt.Errorf("%w: %v", db.ErrUnsupportedCondition, err)
		}
		return buildNumericFilter(field+numSuffix, r), inverted != cond.Negated(), nil
	}

	if cond.Value() == "" {
		return nil, false, fmt.Errorf("%w: empty value in %q", db.ErrUnsupportedCondition, cond.String())
	}

	var (
		q        query.Query
		inverted bool
	)
	v := cond.Value()
	switch cond.Op() {
	case filter.StrEq, filter.StrNe:
		tq := bleve.NewTermQuery(v)
		tq.SetField(field)
		q, inverted = tq, cond.Op() == filter.StrNe
	case filter.StrInc:
		rq := bleve.NewRegexpQuery(".*" + regexp.QuoteMeta(v) + ".*")
		rq.SetField(field)
		q = rq
	case filter.StrBw:
		pq := bleve.NewPrefixQuery(v)
		pq.SetField(field)
		q = pq
	case filter.StrEw:
		rq := bleve.NewRegexpQuery(".*" + regexp.QuoteMeta(v))
		rq.SetField(field)
		q = rq
	default:
		return nil, false, fmt.Errorf("%w: %s", db.ErrUnsupportedCondition, cond.Op())
	}
	return q, inverted != cond.Negated(), nil
}

func buildNumericFilter(field string, r filter.Range) query.Query {
	minInclusive := !r.MinExclusive
	maxInclusive := !r.MaxExclusive
	q := bleve.NewNumericRangeInclusiveQuery(r.Min, r.Max, &minInclusive, &maxInclusive)
	q.SetField(field)
	return q
}

// sortKey returns the bleve sort key; a leading "-" reverses the order.
func sortKey(o *order.Order) string {
	f := o.Attr()
	if o.Direction().IsNumeric() {
		f += numSuffix
	}
	if o.Direction().IsDescending() {
		return "-" + f
	}
	return f
}
