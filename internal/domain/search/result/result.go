package result

import (
	"github.com/kailas-cloud/ftsync/internal/domain/record"
	"github.com/kailas-cloud/ftsync/internal/domain/search/request"
)

// Hit is a single index match as stored by the index service.
type Hit struct {
	indexID string
	score   float64
	attrs   map[string]string
	texts   []string
}

// NewHit creates a hit.
func NewHit(indexID string, score float64, attrs map[string]string, texts []string) Hit {
	return Hit{indexID: indexID, score: score, attrs: attrs, texts: texts}
}

// IndexID returns the index service's own identifier of the entry.
func (h *Hit) IndexID() string { return h.indexID }

// Score returns the relevance score, 0 when sorted by attribute.
func (h *Hit) Score() float64 { return h.score }

// Attr returns a stored attribute, "" when absent.
func (h *Hit) Attr(name string) string { return h.attrs[name] }

// Attributes returns all stored attributes.
func (h *Hit) Attributes() map[string]string { return h.attrs }

// Texts returns the stored text blocks.
func (h *Hit) Texts() []string { return h.texts }

// RecordID returns the db_id attribute.
func (h *Hit) RecordID() string { return h.attrs["db_id"] }

// Result is the outcome of a search in one of the three modes.
type Result struct {
	mode    request.Mode
	total   int
	hits    []Hit
	records []*record.Record
}

// Empty returns an empty result of the given mode.
func Empty(m request.Mode) Result { return Result{mode: m} }

// Counted returns a count-mode result.
func Counted(total int) Result { return Result{mode: request.Count, total: total} }

// Matched returns a raw-mode result.
func Matched(total int, hits []Hit) Result {
	return Result{mode: request.Raw, total: total, hits: hits}
}

// Hydrated returns a hydrate-mode result; hits are kept for their index ids.
func Hydrated(total int, hits []Hit, records []*record.Record) Result {
	return Result{mode: request.Hydrate, total: total, hits: hits, records: records}
}

// Mode returns the result mode.
func (r *Result) Mode() request.Mode { return r.mode }

// Total returns the number of matching entries in the index, ignoring paging.
func (r *Result) Total() int { return r.total }

// Hits returns the index hits of the requested page.
func (r *Result) Hits() []Hit { return r.hits }

// Records returns the hydrated records.
func (r *Result) Records() []*record.Record { return r.records }

// RecordIDs returns the db_id of every hit in index order.
func (r *Result) RecordIDs() []string {
	ids := make([]string, len(r.hits))
	for i := range r.hits {
		ids[i] = r.hits[i].RecordID()
	}
	return ids
}
