package bleve

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/ftsync/internal/db"
	"github.com/kailas-cloud/ftsync/internal/domain/document"
	"github.com/kailas-cloud/ftsync/internal/domain/search/filter"
)

// PutDocument indexes the document under its uri, replacing any previous
// version. The uri is the internal index id.
func (s *Store) PutDocument(_ context.Context, doc *document.Document) (string, error) {
	if doc.URI() == "" {
		return "", &db.Error{Op: db.OpPut, Err: fmt.Errorf("document has no uri")}
	}

	fields, err := documentFields(doc)
	if err != nil {
		return "", &db.Error{Op: db.OpPut, Err: err}
	}

	idx, err := s.open()
	if err != nil {
		return "", &db.Error{Op: db.OpPut, Err: err}
	}

	batch := idx.NewBatch()
	batch.Delete(doc.URI())
	if err := batch.Index(doc.URI(), fields); err != nil {
		return "", &db.Error{Op: db.OpPut, Err: fmt.Errorf("id %s: %w", doc.URI(), err)}
	}
	if err := idx.Batch(batch); err != nil {
		return "", &db.Error{Op: db.OpPut, Err: fmt.Errorf("id %s: %w", doc.URI(), err)}
	}
	return doc.URI(), nil
}

// DeleteDocument removes the document with the given index id.
func (s *Store) DeleteDocument(_ context.Context, indexID string) error {
	idx, err := s.open()
	if err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	if err := idx.Delete(indexID); err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	return nil
}

// documentFields maps attributes to keyword fields, adds a numeric shadow for
// every value that parses as a number, and stores the texts twice: analyzed
// for matching and as JSON to keep their order.
func documentFields(doc *document.Document) (map[string]any, error) {
	attrs := doc.Attributes()
	out := make(map[string]any, len(attrs)*2+2)
	for name, value := range attrs {
		out[name] = value
		if n, err := filter.ParseNumber(value); err == nil {
			out[name+numSuffix] = n
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
	out[textsField] = texts
	out[textsJSONField] = string(raw)
	return out, nil
}
