package db

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/ftsync/internal/domain/search/filter"
	"github.com/kailas-cloud/ftsync/internal/domain/search/order"
	"github.com/kailas-cloud/ftsync/internal/domain/search/phrase"
)

// SearchQuery is a complete search condition: phrase, attribute filters
// (type scope first), order and paging. Limit 0 asks for the total only.
type SearchQuery struct {
	Phrase  phrase.Phrase
	Filters filter.Expression
	Order   *order.Order
	Offset  int
	Limit   int
}

// String renders the condition for debug logs.
func (q *SearchQuery) String() string {
	ord := ""
	if q.Order != nil {
		ord = q.Order.String()
	}
	return fmt.Sprintf("phrase: %s, attrs: %s, max: %d, options: %s, order: %s, skip: %d",
		q.Phrase.String(), strings.Join(q.Filters.Strings(), ", "), q.Limit, "SIMPLE", ord, q.Offset)
}

// SearchResult is the driver-level result of a search.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single stored document returned by a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
	Texts  []string
}
