package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/ftsync/internal/domain/search/request"
	"github.com/kailas-cloud/ftsync/internal/domain/searchable/searchabletest"
	recordrepo "github.com/kailas-cloud/ftsync/internal/repository/record"
	healthuc "github.com/kailas-cloud/ftsync/internal/usecase/health"
	indexuc "github.com/kailas-cloud/ftsync/internal/usecase/index"
)

const schema = `
CREATE TABLE articles (id INTEGER PRIMARY KEY, title TEXT, body TEXT, tags TEXT, comments_count INTEGER);
INSERT INTO articles VALUES (1, 'Rails tips', 'ruby on rails', 'ruby', 0);
INSERT INTO articles VALUES (2, 'Go tips', 'goroutines', 'go', 2);
INSERT INTO articles VALUES (3, 'Django tips', 'python', 'python', 1);
`

func newTestApp(t *testing.T, withDB bool) *App {
	t.Helper()
	s := Settings{
		Driver:   DriverBleve,
		Endpoint: indexuc.Endpoint{Host: "localhost", Node: "test"},
		Types:    searchabletest.Descriptors(),
	}
	if withDB {
		conn, err := recordrepo.Open(context.Background(), recordrepo.SQLite, ":memory:",
			recordrepo.PoolConfig{MaxOpenConns: 1})
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		t.Cleanup(func() { _ = conn.Close() })
		if _, err := conn.Exec(schema); err != nil {
			t.Fatalf("schema: %v", err)
		}
		s.DB, s.Dialect = conn, recordrepo.SQLite
	}

	a, err := New(s)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.Close)
	if err := a.Prepare(context.Background(), time.Second); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	return a
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(Settings{Driver: "solr", Types: searchabletest.Descriptors()})
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestNew_InvalidTypes(t *testing.T) {
	descs := searchabletest.Descriptors()
	descs[3].Parent = "Missing"
	if _, err := New(Settings{Driver: DriverBleve, Types: descs}); err == nil {
		t.Fatal("expected registry error")
	}
}

func TestIndexDefinition(t *testing.T) {
	a := newTestApp(t, false)
	def, err := a.IndexDefinition()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if def.Name != "test" {
		t.Errorf("Name = %q, want test", def.Name)
	}
	f, ok := def.Field("@title")
	if !ok || !f.Sortable {
		t.Errorf("expected sortable @title field, got %+v (found=%v)", f, ok)
	}
	if _, ok := def.Field("custom_attribute"); !ok {
		t.Error("expected custom_attribute field")
	}
}

func TestReindexAndSearch(t *testing.T) {
	a := newTestApp(t, true)
	ctx := context.Background()

	n, err := a.Sync.ReindexAll(ctx, "Article")
	if err != nil {
		t.Fatalf("ReindexAll: %v", err)
	}
	if n != 3 {
		t.Fatalf("reindexed %d, want 3", n)
	}

	res, err := a.Index.Search(ctx, "Article", "tips", request.Options{Order: "db_id NUMD"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	recs := res.Records()
	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3", len(recs))
	}
	if recs[0].ID() != 3 || recs[2].ID() != 1 {
		t.Errorf("records not in index order: %d..%d", recs[0].ID(), recs[2].ID())
	}

	// reindexing again leaves one entry per record
	if _, err := a.Sync.ReindexAll(ctx, "Article"); err != nil {
		t.Fatalf("ReindexAll: %v", err)
	}
	res, err = a.Index.Search(ctx, "Article", "", request.Options{Count: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Total() != 3 {
		t.Errorf("count = %d, want 3", res.Total())
	}
}

func TestSavedRecordIsSearchable(t *testing.T) {
	a := newTestApp(t, false)
	ctx := context.Background()

	rec, err := a.NewRecord("Article", 42, map[string]any{"title": "Bleve", "body": "embedded search", "tags": "go"})
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	if err := a.Sync.Saved(ctx, rec, true); err != nil {
		t.Fatalf("Saved: %v", err)
	}

	res, err := a.Index.Search(ctx, "Article", "embedded", request.Options{RawMatches: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if ids := res.RecordIDs(); len(ids) != 1 || ids[0] != "42" {
		t.Errorf("ids = %v, want [42]", ids)
	}
}

func TestBleveSharesStoreAcrossEndpoints(t *testing.T) {
	a := newTestApp(t, false)
	ctx := context.Background()

	if err := a.Index.Connect(indexuc.Endpoint{Host: "elsewhere", Port: 7000, Node: "other"}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	rec, err := a.NewRecord("Article", 7, map[string]any{"title": "Moved", "body": "endpoint switch"})
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	if err := a.Sync.Saved(ctx, rec, true); err != nil {
		t.Fatalf("Saved: %v", err)
	}

	if err := a.Index.Connect(indexuc.Endpoint{Host: "localhost", Node: "test"}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	res, err := a.Index.Search(ctx, "Article", "switch", request.Options{RawMatches: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if ids := res.RecordIDs(); len(ids) != 1 || ids[0] != "7" {
		t.Errorf("ids = %v, want [7]", ids)
	}
}

func TestWithoutRecordStore(t *testing.T) {
	a := newTestApp(t, false)
	ctx := context.Background()

	if _, err := a.Sync.ReindexAll(ctx, "Article"); err == nil {
		t.Error("expected reindex to fail without a record store")
	}

	rec, _ := a.NewRecord("Article", 1, map[string]any{"title": "x", "body": "hydrate me"})
	if err := a.Sync.Saved(ctx, rec, true); err != nil {
		t.Fatalf("Saved: %v", err)
	}
	_, err := a.Index.Search(ctx, "Article", "hydrate", request.Options{})
	if !errors.Is(err, errNoRecordStore) {
		t.Errorf("expected errNoRecordStore, got %v", err)
	}
}

func TestHealth(t *testing.T) {
	r := newTestApp(t, true).Health.Check(context.Background())
	if r.Status != healthuc.Healthy {
		t.Errorf("status = %q, want ok (checks %v)", r.Status, r.Checks)
	}
}

func TestNewRecord_UnknownType(t *testing.T) {
	if _, err := newTestApp(t, false).NewRecord("Widget", 1, nil); err == nil {
		t.Fatal("expected error")
	}
}
