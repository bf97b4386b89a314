package ftsync

import (
	"context"
	"maps"

	"github.com/kailas-cloud/ftsync/internal/domain/search/request"
	"github.com/kailas-cloud/ftsync/internal/domain/search/result"
)

// Hit is one raw index hit.
type Hit struct {
	IndexID    string
	RecordID   string
	Score      float64
	Attributes map[string]string
	Texts      []string
}

// SearchResult is the outcome of a search. Records is set when hydrating,
// Hits when raw matches were requested.
type SearchResult struct {
	Total   int
	IDs     []string
	Hits    []Hit
	Records []*Record
}

// SearchBuilder is a fluent builder for searches of one record type.
type SearchBuilder struct {
	client   *Client
	typeName string

	phrase string
	opts   request.Options
}

// Phrase sets the search phrase: terms, "OR" or "|" alternatives, "!" or
// "ANDNOT" exclusions, a trailing "*" prefix match and quoted phrases.
func (b *SearchBuilder) Phrase(p string) *SearchBuilder {
	b.phrase = p
	return b
}

// Where adds an attribute expression such as "custom_attribute STRINC rails".
func (b *SearchBuilder) Where(expr ...string) *SearchBuilder {
	b.opts.Attributes = append(b.opts.Attributes, expr...)
	return b
}

// Order sets the order expression, for example "db_id NUMD" or "title ASC".
func (b *SearchBuilder) Order(expr string) *SearchBuilder {
	b.opts.Order = expr
	return b
}

// Limit sets the maximum number of hits. Default: 100.
func (b *SearchBuilder) Limit(n int) *SearchBuilder {
	b.opts = b.opts.WithLimit(n)
	return b
}

// Offset skips the first n hits.
func (b *SearchBuilder) Offset(n int) *SearchBuilder {
	b.opts.Offset = n
	return b
}

// AllTypes searches the entries of every type. Only raw and count
// searches may span all types.
func (b *SearchBuilder) AllTypes() *SearchBuilder {
	b.opts.AllTypes = true
	return b
}

// Find passes options through to hydration; only "order" is accepted.
func (b *SearchBuilder) Find(find map[string]any) *SearchBuilder {
	b.opts.Find = maps.Clone(find)
	return b
}

// Do runs the search and hydrates the matching records.
func (b *SearchBuilder) Do(ctx context.Context) (*SearchResult, error) {
	return b.run(ctx, b.opts)
}

// Raw runs the search and returns the index hits without hydrating.
func (b *SearchBuilder) Raw(ctx context.Context) (*SearchResult, error) {
	opts := b.opts
	opts.RawMatches = true
	return b.run(ctx, opts)
}

// Count returns the number of matching entries.
func (b *SearchBuilder) Count(ctx context.Context) (int, error) {
	opts := b.opts
	opts.Count = true
	res, err := b.run(ctx, opts)
	if err != nil {
		return 0, err
	}
	return res.Total, nil
}

// IDs returns the record ids of the matching entries in index order.
func (b *SearchBuilder) IDs(ctx context.Context) ([]string, error) {
	res, err := b.Raw(ctx)
	if err != nil {
		return nil, err
	}
	return res.IDs, nil
}

func (b *SearchBuilder) run(ctx context.Context, opts request.Options) (*SearchResult, error) {
	res, err := b.client.app.Index.Search(ctx, b.typeName, b.phrase, opts)
	if err != nil {
		return nil, err
	}
	return fromResult(&res), nil
}

func fromResult(r *result.Result) *SearchResult {
	out := &SearchResult{Total: r.Total(), IDs: r.RecordIDs(), Records: r.Records()}
	if r.Mode() != request.Raw {
		return out
	}
	hits := r.Hits()
	out.Hits = make([]Hit, len(hits))
	for i := range hits {
		out.Hits[i] = Hit{
			IndexID:    hits[i].IndexID(),
			RecordID:   hits[i].RecordID(),
			Score:      hits[i].Score(),
			Attributes: hits[i].Attributes(),
			Texts:      hits[i].Texts(),
		}
	}
	return out
}
