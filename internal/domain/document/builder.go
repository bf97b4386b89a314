package document

import (
	"crypto/md5" //nolint:gosec // content fingerprint, not a security boundary
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/kailas-cloud/ftsync/internal/domain/record"
	"github.com/kailas-cloud/ftsync/internal/domain/searchable"
)

// TypeLookup resolves registered types.
type TypeLookup interface {
	Lookup(name string) (*searchable.Type, error)
}

// Build maps a record to its index document.
func Build(types TypeLookup, rec *record.Record) (Document, error) {
	t, err := types.Lookup(rec.Type())
	if err != nil {
		return Document{}, fmt.Errorf("build document: %w", err)
	}
	base, err := t.Base()
	if err != nil {
		return Document{}, fmt.Errorf("build document: %w", err)
	}

	id := rec.IDString()
	d := Document{
		recordID: id,
		typeName: t.Name(),
		uri:      URIFor(t.Name(), id),
		attrs:    make(map[string]string, len(t.Projections())+5),
	}
	d.attrs[AttrID] = id
	d.attrs[AttrType] = t.Name()
	d.attrs[AttrURI] = d.uri

	if !t.IsHierarchyTop() || t.InInheritance() {
		d.typeBase = base
		d.attrs[AttrTypeBase] = base
	}

	for _, p := range t.Projections() {
		d.attrs[AttributeName(p.Key)] = FormatValue(rec.Attribute(p.Source))
	}

	d.texts = make([]string, len(t.SearchableFields()))
	for i, f := range t.SearchableFields() {
		d.texts[i] = FormatValue(rec.Attribute(f))
	}

	if _, ok := d.attrs[AttrDigest]; !ok {
		d.attrs[AttrDigest] = Digest(d.texts)
	}
	return d, nil
}

// Digest returns the hex MD5 of the text blocks joined by newlines.
func Digest(texts []string) string {
	sum := md5.Sum([]byte(strings.Join(texts, "\n"))) //nolint:gosec // fingerprint
	return hex.EncodeToString(sum[:])
}
