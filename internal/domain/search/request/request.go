package request

import (
	"maps"
	"strings"

	"github.com/kailas-cloud/ftsync/internal/domain"
	"github.com/kailas-cloud/ftsync/internal/domain/search/filter"
	"github.com/kailas-cloud/ftsync/internal/domain/search/order"
	"github.com/kailas-cloud/ftsync/internal/domain/search/phrase"
)

// DefaultLimit is the page size when the caller sets none.
const DefaultLimit = 100

// Mode selects what a search returns.
type Mode string

// Search result modes.
const (
	// Hydrate returns records loaded from the record store in index order.
	Hydrate Mode = "hydrate"
	// Raw returns the index hits as stored.
	Raw Mode = "raw"
	// Count returns the number of hits only.
	Count Mode = "count"
)

// Request is a validated search.
type Request struct {
	phrase   phrase.Phrase
	filters  filter.Expression
	order    *order.Order
	limit    int
	offset   int
	mode     Mode
	allTypes bool
	find     map[string]any
}

// New validates phrase and options and applies defaults: offset 0, limit 100,
// or limit 0 in count mode. Limit and offset are removed from the find
// passthrough; any other find key but order is rejected.
func New(text string, opts Options) (Request, error) {
	p, err := phrase.Parse(text)
	if err != nil {
		return Request{}, domain.NewConfigurationError("", "%v", err)
	}

	var attrs []string
	for _, a := range opts.Attributes {
		if strings.TrimSpace(a) != "" {
			attrs = append(attrs, a)
		}
	}
	filters, err := filter.ParseAll(attrs)
	if err != nil {
		return Request{}, domain.NewConfigurationError("", "%v", err)
	}

	var ord *order.Order
	if strings.TrimSpace(opts.Order) != "" {
		o, err := order.Parse(opts.Order)
		if err != nil {
			return Request{}, domain.NewConfigurationError("", "%v", err)
		}
		ord = &o
	}

	m := Hydrate
	switch {
	case opts.Count:
		m = Count
	case opts.RawMatches:
		m = Raw
	}

	if opts.AllTypes && m == Hydrate {
		return Request{}, domain.NewConfigurationError("",
			"all_types requires raw_matches or count: hits of other types cannot be loaded as records")
	}

	limit := DefaultLimit
	if m == Count {
		limit = 0
	}
	if opts.Limit != nil {
		limit = *opts.Limit
	}
	if limit < 0 {
		return Request{}, domain.NewConfigurationError("", "limit must not be negative")
	}
	if opts.Offset < 0 {
		return Request{}, domain.NewConfigurationError("", "offset must not be negative")
	}

	find := maps.Clone(opts.Find)
	delete(find, KeyLimit)
	delete(find, KeyOffset)
	for k, v := range find {
		if k != FindOrder {
			return Request{}, domain.NewConfigurationError("", "unsupported find option %q", k)
		}
		if _, err := FindOrderClause(v); err != nil {
			return Request{}, domain.NewConfigurationError("", "%v", err)
		}
	}

	return Request{
		phrase:   p,
		filters:  filters,
		order:    ord,
		limit:    limit,
		offset:   opts.Offset,
		mode:     m,
		allTypes: opts.AllTypes,
		find:     find,
	}, nil
}

// Phrase returns the parsed full-text phrase.
func (r *Request) Phrase() phrase.Phrase { return r.phrase }

// Filters returns the caller's attribute conditions, without the type scope.
func (r *Request) Filters() filter.Expression { return r.filters }

// Order returns the sort order, nil for relevance order.
func (r *Request) Order() *order.Order { return r.order }

// Limit returns the maximum number of hits.
func (r *Request) Limit() int { return r.limit }

// Offset returns the number of hits to skip.
func (r *Request) Offset() int { return r.offset }

// Mode returns the result mode.
func (r *Request) Mode() Mode { return r.mode }

// AllTypes reports whether the type scope is lifted.
func (r *Request) AllTypes() bool { return r.allTypes }

// Find returns the hydration passthrough options.
func (r *Request) Find() map[string]any { return r.find }
