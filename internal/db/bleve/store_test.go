package bleve

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/kailas-cloud/ftsync/internal/db"
	"github.com/kailas-cloud/ftsync/internal/domain/document"
	"github.com/kailas-cloud/ftsync/internal/domain/search/filter"
	"github.com/kailas-cloud/ftsync/internal/domain/search/order"
	"github.com/kailas-cloud/ftsync/internal/domain/search/phrase"
)

func articleDoc(id, tags, cdate string, texts ...string) document.Document {
	return document.Reconstruct(map[string]string{
		"db_id":            id,
		"type":             "Article",
		"@uri":             document.URIFor("Article", id),
		"custom_attribute": tags,
		"@cdate":           cdate,
	}, texts)
}

func seededStore(t *testing.T) *Store {
	t.Helper()
	s := NewMemStore()
	t.Cleanup(s.Close)

	docs := []document.Document{
		articleDoc("1", "ruby,rails", "2024-01-01T00:00:00Z", "Ruby on Rails", "web framework"),
		articleDoc("2", "go", "2024-02-01T00:00:00Z", "Go concurrency"),
		articleDoc("3", "python,django", "2024-03-01T00:00:00Z", "Python Django", "web framework"),
	}
	for i := range docs {
		if _, err := s.PutDocument(context.Background(), &docs[i]); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	return s
}

func newQuery(t *testing.T, text string, attrs []string, ord string, offset, limit int) *db.SearchQuery {
	t.Helper()
	p, err := phrase.Parse(text)
	if err != nil {
		t.Fatalf("phrase: %v", err)
	}
	expr, err := filter.ParseAll(attrs)
	if err != nil {
		t.Fatalf("attrs: %v", err)
	}
	q := &db.SearchQuery{Phrase: p, Filters: expr, Offset: offset, Limit: limit}
	if ord != "" {
		o, err := order.Parse(ord)
		if err != nil {
			t.Fatalf("order: %v", err)
		}
		q.Order = &o
	}
	return q
}

func ids(res *db.SearchResult) []string {
	out := make([]string, len(res.Entries))
	for i, e := range res.Entries {
		out[i] = e.Fields["db_id"]
	}
	return out
}

func sortedIDs(res *db.SearchResult) []string {
	out := ids(res)
	slices.Sort(out)
	return out
}

func TestNewStore_DoesNotOpen(t *testing.T) {
	s := NewStore(Config{Path: t.TempDir() + "/idx"})
	defer s.Close()

	exists, err := s.IndexExists(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Error("index must not exist before first use")
	}
}

func TestStore_OnDisk(t *testing.T) {
	path := t.TempDir() + "/idx"
	s := NewStore(Config{Path: path})

	doc := articleDoc("7", "go", "2024-01-01T00:00:00Z", "persisted")
	if _, err := s.PutDocument(context.Background(), &doc); err != nil {
		t.Fatalf("put: %v", err)
	}
	s.Close()

	reopened := NewStore(Config{Path: path})
	defer reopened.Close()
	exists, err := reopened.IndexExists(context.Background())
	if err != nil || !exists {
		t.Fatalf("IndexExists = %v, %v", exists, err)
	}
	res, err := reopened.Search(context.Background(), newQuery(t, "persisted", nil, "", 0, 10))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Total != 1 {
		t.Errorf("Total = %d, want 1", res.Total)
	}
}

func TestPing(t *testing.T) {
	s := NewMemStore()
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Close()

	err := s.Ping(context.Background())
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpPing {
		t.Errorf("expected PING error after close, got %v", err)
	}
}

func TestEnsureIndex(t *testing.T) {
	s := NewMemStore()
	defer s.Close()

	def := db.NewIndex("articles").Attribute("custom_attribute").MustBuild()
	if err := s.EnsureIndex(context.Background(), def); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	exists, err := s.IndexExists(context.Background())
	if err != nil || !exists {
		t.Errorf("IndexExists = %v, %v", exists, err)
	}
}

func TestSearch_CountEmptyIndex(t *testing.T) {
	s := NewMemStore()
	defer s.Close()

	res, err := s.Search(context.Background(), newQuery(t, "", nil, "", 0, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 0 || len(res.Entries) != 0 {
		t.Errorf("got total %d entries %d, want 0", res.Total, len(res.Entries))
	}
}

func TestSearch_ExactID(t *testing.T) {
	s := seededStore(t)

	res, err := s.Search(context.Background(), newQuery(t, "", []string{"type STREQ Article", "db_id STREQ 2"}, "", 0, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 1 || len(res.Entries) != 1 {
		t.Fatalf("got total %d entries %d, want one hit", res.Total, len(res.Entries))
	}
	e := res.Entries[0]
	if e.Key != "/Article/2" {
		t.Errorf("Key = %q", e.Key)
	}
	if e.Fields["@uri"] != "/Article/2" || e.Fields["custom_attribute"] != "go" {
		t.Errorf("unexpected fields %v", e.Fields)
	}
	if _, ok := e.Fields["db_id"+numSuffix]; ok {
		t.Error("numeric shadow must not be returned")
	}
	if !slices.Equal(e.Texts, []string{"Go concurrency"}) {
		t.Errorf("Texts = %v", e.Texts)
	}
}

func TestSearch_OrderAndPaging(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	res, err := s.Search(ctx, newQuery(t, "", []string{"type STREQ Article"}, "id ASC", 1, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ids(res); !slices.Equal(got, []string{"2", "3"}) {
		t.Errorf("ascending = %v, want [2 3]", got)
	}
	if res.Total != 3 {
		t.Errorf("Total = %d, want 3", res.Total)
	}

	res, err = s.Search(ctx, newQuery(t, "", []string{"type STREQ Article"}, "id DESC", 1, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ids(res); !slices.Equal(got, []string{"2", "1"}) {
		t.Errorf("descending = %v, want [2 1]", got)
	}

	res, err = s.Search(ctx, newQuery(t, "", nil, "custom_attribute STRD", 0, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ids(res); !slices.Equal(got, []string{"1", "3", "2"}) {
		t.Errorf("string descending = %v, want [1 3 2]", got)
	}
}

func TestSearch_Conditions(t *testing.T) {
	s := seededStore(t)

	tests := []struct {
		name  string
		text  string
		attrs []string
		want  []string
	}{
		{"all", "", nil, []string{"1", "2", "3"}},
		{"word", "rails", nil, []string{"1"}},
		{"two words", "web framework", nil, []string{"1", "3"}},
		{"or group", "ruby | python", nil, []string{"1", "3"}},
		{"excluded", "web !django", nil, []string{"1"}},
		{"prefix", "concur*", nil, []string{"2"}},
		{"quoted", `"python django"`, nil, []string{"3"}},
		{"quoted out of order", `"django python"`, nil, []string{}},
		{"strinc", "", []string{"custom_attribute STRINC ail"}, []string{"1"}},
		{"strbw", "", []string{"custom_attribute STRBW py"}, []string{"3"}},
		{"strew", "", []string{"custom_attribute STREW go"}, []string{"2", "3"}},
		{"strne", "", []string{"custom_attribute STRNE go"}, []string{"1", "3"}},
		{"negated streq", "", []string{"custom_attribute !STREQ go"}, []string{"1", "3"}},
		{"numgt", "", []string{"db_id NUMGT 1"}, []string{"2", "3"}},
		{"numle", "", []string{"db_id NUMLE 2"}, []string{"1", "2"}},
		{"numne", "", []string{"db_id NUMNE 2"}, []string{"1", "3"}},
		{"numbt", "", []string{"db_id NUMBT 2 3"}, []string{"2", "3"}},
		{"timestamp", "", []string{"@cdate NUMGE 2024-02-01"}, []string{"2", "3"}},
		{"all types scope", "", []string{"db_id NUMGT 0"}, []string{"1", "2", "3"}},
		{"scope miss", "", []string{"type STREQ Comment"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Search(context.Background(), newQuery(t, tt.text, tt.attrs, "", 0, 10))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := sortedIDs(res); !slices.Equal(got, tt.want) {
				t.Errorf("ids = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSearch_EmptyValue(t *testing.T) {
	s := seededStore(t)

	_, err := s.Search(context.Background(), newQuery(t, "", []string{"type_base STREQ"}, "", 0, 10))
	if !errors.Is(err, db.ErrUnsupportedCondition) {
		t.Errorf("expected ErrUnsupportedCondition, got %v", err)
	}
}

func TestPutDocument_Replaces(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	doc := articleDoc("1", "ruby", "2024-01-01T00:00:00Z", "Hanami")
	if _, err := s.PutDocument(ctx, &doc); err != nil {
		t.Fatalf("put: %v", err)
	}

	res, err := s.Search(ctx, newQuery(t, "", []string{"db_id STREQ 1"}, "", 0, 10))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Total != 1 {
		t.Fatalf("Total = %d, want 1", res.Total)
	}
	if !slices.Equal(res.Entries[0].Texts, []string{"Hanami"}) {
		t.Errorf("Texts = %v", res.Entries[0].Texts)
	}

	res, err = s.Search(ctx, newQuery(t, "rails", nil, "", 0, 0))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Total != 0 {
		t.Errorf("old texts still match: total %d", res.Total)
	}
}

func TestPutDocument_NoURI(t *testing.T) {
	s := NewMemStore()
	defer s.Close()

	doc := document.Reconstruct(map[string]string{"db_id": "1"}, nil)
	if _, err := s.PutDocument(context.Background(), &doc); err == nil {
		t.Fatal("expected error")
	}
}

func TestDeleteDocument(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	if err := s.DeleteDocument(ctx, "/Article/2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteDocument(ctx, "/Article/404"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}

	res, err := s.Search(ctx, newQuery(t, "", nil, "", 0, 10))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if got := sortedIDs(res); !slices.Equal(got, []string{"1", "3"}) {
		t.Errorf("ids = %v, want [1 3]", got)
	}
}

func TestSearch_Closed(t *testing.T) {
	s := NewMemStore()
	s.Close()

	_, err := s.Search(context.Background(), newQuery(t, "", nil, "", 0, 10))
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpSearch {
		t.Errorf("expected search error, got %v", err)
	}
}
