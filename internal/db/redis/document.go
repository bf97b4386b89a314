package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/kailas-cloud/ftsync/internal/db"
	"github.com/kailas-cloud/ftsync/internal/domain/document"
	"github.com/kailas-cloud/ftsync/internal/domain/search/filter"
)

// PutDocument replaces the hash at <prefix><uri> with the document's fields.
func (s *Store) PutDocument(ctx context.Context, doc *document.Document) (string, error) {
	if doc.URI() == "" {
		return "", &db.Error{Op: db.OpPut, Err: fmt.Errorf("document has no uri")}
	}
	key := s.key(doc.URI())

	fields, err := documentFields(doc)
	if err != nil {
		return "", &db.Error{Op: db.OpPut, Err: err}
	}

	c, err := s.conn()
	if err != nil {
		return "", &db.Error{Op: db.OpPut, Err: err}
	}

	hset := c.B().Hset().Key(key).FieldValue()
	for _, f := range fields {
		hset = hset.FieldValue(f[0], f[1])
	}
	results := c.DoMulti(ctx, c.B().Del().Key(key).Build(), hset.Build())
	for _, res := range results {
		if err := res.Error(); err != nil {
			return "", &db.Error{Op: db.OpPut, Err: fmt.Errorf("key %s: %w", key, err)}
		}
	}
	return key, nil
}

// DeleteDocument removes the hash with the given key.
func (s *Store) DeleteDocument(ctx context.Context, indexID string) error {
	c, err := s.conn()
	if err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	if err := c.Do(ctx, c.B().Del().Key(indexID).Build()).Error(); err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	return nil
}

func (s *Store) key(uri string) string {
	return s.prefix + uri
}

// documentFields returns the hash field/value pairs sorted by field name.
func documentFields(doc *document.Document) ([][2]string, error) {
	attrs := doc.Attributes()
	out := make([][2]string, 0, len(attrs)*2+2)
	for name, value := range attrs {
		f := fieldName(name)
		out = append(out, [2]string{f, value})
		if n, err := filter.ParseNumber(value); err == nil {
			out = append(out, [2]string{f + numSuffix, formatNumber(n)})
		}
	}

	texts := doc.Texts()
	if texts == nil {
		texts = []string{}
	}
	raw, err := json.Marshal(texts)
	if err != nil {
		return nil, fmt.Errorf("encode texts: %w", err)
	}
	out = append(out,
		[2]string{textsField, strings.Join(texts, "\n")},
		[2]string{textsJSONField, string(raw)},
	)

	slices.SortFunc(out, func(a, b [2]string) int { return strings.Compare(a[0], b[0]) })
	return out, nil
}
