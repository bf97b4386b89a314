package document

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"
)

// System attribute names. Projections with these keys are stored under
// "@"+key so they land in the index service's system namespace.
var systemAttributes = map[string]bool{
	"uri": true, "digest": true, "cdate": true, "mdate": true, "adate": true,
	"title": true, "author": true, "type": true, "lang": true, "genre": true,
	"size": true, "weight": true, "misc": true,
}

// Attribute names set on every document.
const (
	AttrID       = "db_id"
	AttrType     = "type"
	AttrTypeBase = "type_base"
	AttrURI      = "@uri"
	AttrDigest   = "@digest"
)

// AttributeName returns the stored name of a projection key.
func AttributeName(key string) string {
	if systemAttributes[key] {
		return "@" + key
	}
	return key
}

// Document is the index representation of one record (immutable value object).
type Document struct {
	recordID string
	typeName string
	typeBase string
	uri      string
	attrs    map[string]string
	texts    []string
}

// Reconstruct creates a Document from stored parts without validation.
func Reconstruct(attrs map[string]string, texts []string) Document {
	return Document{
		recordID: attrs[AttrID],
		typeName: attrs[AttrType],
		typeBase: attrs[AttrTypeBase],
		uri:      attrs[AttrURI],
		attrs:    maps.Clone(attrs),
		texts:    slices.Clone(texts),
	}
}

// RecordID returns the db_id attribute.
func (d *Document) RecordID() string { return d.recordID }

// Type returns the concrete record type.
func (d *Document) Type() string { return d.typeName }

// TypeBase returns the searchable base type, empty when omitted.
func (d *Document) TypeBase() string { return d.typeBase }

// URI returns the document URI "/<Type>/<id>".
func (d *Document) URI() string { return d.uri }

// Attr returns a stored attribute value.
func (d *Document) Attr(name string) string { return d.attrs[name] }

// Attributes returns all stored attributes, including db_id, type and @uri.
func (d *Document) Attributes() map[string]string { return d.attrs }

// Texts returns the text blocks in declaration order.
func (d *Document) Texts() []string { return d.texts }

// FormatValue coerces an attribute value to its stored string form.
// Times use RFC 3339; nil becomes "".
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339)
	case *time.Time:
		if x == nil {
			return ""
		}
		return x.Format(time.RFC3339)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// URIFor returns the document URI of a record.
func URIFor(typeName, id string) string {
	return "/" + typeName + "/" + id
}
