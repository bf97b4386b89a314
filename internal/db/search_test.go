package db

import (
	"testing"

	"github.com/kailas-cloud/ftsync/internal/domain/search/filter"
	"github.com/kailas-cloud/ftsync/internal/domain/search/order"
	"github.com/kailas-cloud/ftsync/internal/domain/search/phrase"
)

func TestSearchQuery_String(t *testing.T) {
	p, _ := phrase.Parse("biscuits AND gravy")
	f, _ := filter.ParseAll([]string{"type STREQ Article", "tag STRINC food"})
	o, _ := order.Parse("@title STRA")

	q := &SearchQuery{Phrase: p, Filters: f, Order: &o, Offset: 14, Limit: 15}
	want := "phrase: biscuits AND gravy, attrs: type STREQ Article, tag STRINC food, " +
		"max: 15, options: SIMPLE, order: @title STRA, skip: 14"
	if got := q.String(); got != want {
		t.Errorf("String() =\n%q\nwant\n%q", got, want)
	}
}
