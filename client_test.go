package ftsync

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

var testTypes = []TypeDescriptor{
	{
		Name:             "Article",
		Searchable:       true,
		SearchableFields: []string{"title", "body"},
		Attributes:       []Projection{{Key: "custom_attribute", Source: "tags"}},
		Columns:          []string{"id", "title", "body", "tags"},
	},
	{
		Name:             "Notification",
		Searchable:       true,
		SearchableFields: []string{"body"},
		Inheritance:      true,
		Columns:          []string{"id", "type", "body"},
	},
	{Name: "CommentNotification", Parent: "Notification"},
}

func newTestClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	base := []Option{WithBleve(""), WithTypes(testTypes...), WithReadinessTimeout(time.Second)}
	c, err := New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	const schema = `
CREATE TABLE articles (id INTEGER PRIMARY KEY, title TEXT, body TEXT, tags TEXT);
INSERT INTO articles VALUES (1, 'Rails tips', 'ruby on rails', 'ruby,rails');
INSERT INTO articles VALUES (2, 'Go tips', 'goroutines', 'go');
INSERT INTO articles VALUES (3, 'Django tips', 'python', 'python,django');
`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return db
}

func saveArticle(t *testing.T, c *Client, id int64, title, body, tags string) *Record {
	t.Helper()
	rec, err := c.NewRecord("Article", id, map[string]any{"title": title, "body": body, "tags": tags})
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	if err := c.Saved(context.Background(), rec, true); err != nil {
		t.Fatalf("Saved: %v", err)
	}
	return rec
}

func TestNew_NoDriver(t *testing.T) {
	_, err := New(WithTypes(testTypes...))
	if err == nil {
		t.Fatal("expected error without an index service")
	}
}

func TestNew_NoTypes(t *testing.T) {
	_, err := New(WithBleve(""))
	if err == nil {
		t.Fatal("expected error without types")
	}
}

func TestNew_InvalidTypes(t *testing.T) {
	_, err := New(WithBleve(""), WithTypes(TypeDescriptor{Name: "Orphan", Parent: "Missing"}))
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestClient_Types(t *testing.T) {
	got := newTestClient(t).Types()
	want := []string{"Article", "Notification", "CommentNotification"}
	if !slices.Equal(got, want) {
		t.Errorf("Types() = %v, want %v", got, want)
	}
}

func TestClient_Ping(t *testing.T) {
	if err := newTestClient(t).Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSearchBuilder_CountOnEmptyIndex(t *testing.T) {
	n, err := newTestClient(t).Search("Article").Count(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 {
		t.Errorf("Count() = %d, want 0", n)
	}
}

func TestSearchBuilder_OrderAndPaging(t *testing.T) {
	c := newTestClient(t)
	saveArticle(t, c, 1, "Rails tips", "ruby on rails", "ruby,rails")
	saveArticle(t, c, 2, "Go tips", "goroutines", "go")
	saveArticle(t, c, 3, "Django tips", "python", "python,django")
	ctx := context.Background()

	asc, err := c.Search("Article").Order("id ASC").Limit(2).Offset(1).IDs(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(asc, []string{"2", "3"}) {
		t.Errorf("ascending = %v, want [2 3]", asc)
	}

	desc, err := c.Search("Article").Order("id DESC").Limit(2).Offset(1).IDs(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(desc, []string{"2", "1"}) {
		t.Errorf("descending = %v, want [2 1]", desc)
	}
}

func TestSearchBuilder_WhereAndPhrase(t *testing.T) {
	c := newTestClient(t)
	saveArticle(t, c, 1, "Rails tips", "ruby on rails", "ruby,rails")
	saveArticle(t, c, 2, "Go tips", "goroutines", "go")
	ctx := context.Background()

	ids, err := c.Search("Article").Where("custom_attribute STRINC rails").IDs(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(ids, []string{"1"}) {
		t.Errorf("STRINC = %v, want [1]", ids)
	}

	res, err := c.Search("Article").Phrase("goroutines").Raw(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 1 || len(res.Hits) != 1 || res.Hits[0].RecordID != "2" {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Hits[0].Attributes["custom_attribute"] != "go" {
		t.Errorf("custom_attribute = %q", res.Hits[0].Attributes["custom_attribute"])
	}
}

func TestSearchBuilder_AllTypesNeedsRawOrCount(t *testing.T) {
	c := newTestClient(t)
	_, err := c.Search("Article").AllTypes().Do(context.Background())
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}

	if _, err := c.Search("Article").AllTypes().Count(context.Background()); err != nil {
		t.Fatalf("count across types: %v", err)
	}
}

func TestClient_Query_UnknownOption(t *testing.T) {
	_, err := newTestClient(t).Query(context.Background(), "Article", "", map[string]any{"colour": "red"})
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestClient_UnknownType(t *testing.T) {
	_, err := newTestClient(t).Search("Widget").Count(context.Background())
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestClient_UpdateAndDestroy(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	rec := saveArticle(t, c, 1, "Rails tips", "ruby on rails", "ruby")

	rec.Set("body", "hotwire")
	if !rec.IsChanged() {
		t.Fatal("expected record to be dirty")
	}
	if err := c.Saved(ctx, rec, false); err != nil {
		t.Fatalf("Saved: %v", err)
	}
	if rec.IsChanged() {
		t.Error("change set should be cleared after a successful sync")
	}

	if n, _ := c.Search("Article").Phrase("hotwire").Count(ctx); n != 1 {
		t.Errorf("updated body count = %d, want 1", n)
	}
	if n, _ := c.Search("Article").Phrase("rails").Where("db_id STREQ 1").Count(ctx); n != 1 {
		t.Errorf("title still matches, count = %d, want 1", n)
	}

	if err := c.AfterDestroy(ctx, rec); err != nil {
		t.Fatalf("AfterDestroy: %v", err)
	}
	if err := c.AfterDestroy(ctx, rec); err != nil {
		t.Fatalf("second AfterDestroy must be a no-op, got %v", err)
	}
	entries, err := c.ListAll(ctx, "Article")
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %v", entries)
	}
}

func TestClient_ReindexHydrateAndClear(t *testing.T) {
	c := newTestClient(t, WithDB(openDB(t), "sqlite"))
	ctx := context.Background()

	n, err := c.ReindexAll(ctx, "Article")
	if err != nil {
		t.Fatalf("ReindexAll: %v", err)
	}
	if n != 3 {
		t.Fatalf("reindexed %d, want 3", n)
	}

	res, err := c.Search("Article").Phrase("tips").Order("id DESC").Do(ctx)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if len(res.Records) != 3 || res.Records[0].ID() != 3 {
		t.Fatalf("unexpected records %v", res.Records)
	}
	if title := res.Records[0].Attribute("title"); title != "Django tips" {
		t.Errorf("title = %v", title)
	}

	entries, err := c.ListAll(ctx, "Article")
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(entries) != 3 || entries[0].Digest == "" {
		t.Errorf("unexpected entries %+v", entries)
	}

	removed, err := c.ClearIndex(ctx, "Article")
	if err != nil {
		t.Fatalf("ClearIndex: %v", err)
	}
	if removed != 3 {
		t.Errorf("removed %d, want 3", removed)
	}
	if n, _ := c.Search("Article").Count(ctx); n != 0 {
		t.Errorf("count after clear = %d, want 0", n)
	}
}

func TestClient_InheritanceScope(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	base, _ := c.NewRecord("Notification", 1, map[string]any{"type": "Notification", "body": "welcome"})
	sub, _ := c.NewRecord("CommentNotification", 2, map[string]any{"type": "CommentNotification", "body": "new comment"})
	for _, rec := range []*Record{base, sub} {
		if err := c.AfterCreate(ctx, rec); err != nil {
			t.Fatalf("AfterCreate: %v", err)
		}
	}

	if n, _ := c.Search("Notification").Count(ctx); n != 2 {
		t.Errorf("base scope count = %d, want 2", n)
	}
	if n, _ := c.Search("CommentNotification").Count(ctx); n != 1 {
		t.Errorf("subtype scope count = %d, want 1", n)
	}
}
