package db

import (
	"errors"
	"strconv"
	"strings"

	"github.com/kailas-cloud/ftsync/internal/domain/document"
)

// BuiltinAttributes are indexed by every driver besides the registered projections.
var BuiltinAttributes = []string{
	document.AttrID, document.AttrType, document.AttrTypeBase, document.AttrURI, document.AttrDigest,
}

// IndexField is one searchable attribute of the index schema. Drivers store
// every attribute as an exact string and, when the value parses as a number
// or timestamp, as a number too.
type IndexField struct {
	Name     string
	Sortable bool
}

// IndexDefinition is the schema of the document index.
type IndexDefinition struct {
	Name   string
	Fields []IndexField
}

// Validate checks that the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if !IsValidIdentifier(idx.Name) {
		return errors.New("index name contains invalid characters")
	}
	if len(idx.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]bool)
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Name == "" {
			return errors.New("field name is required at index " + strconv.Itoa(i))
		}
		if !isValidAttribute(f.Name) {
			return errors.New("invalid field name: " + f.Name)
		}
		if seen[f.Name] {
			return errors.New("duplicate field name: " + f.Name)
		}
		seen[f.Name] = true
	}

	return nil
}

// Field returns the definition of name.
func (idx *IndexDefinition) Field(name string) (IndexField, bool) {
	for _, f := range idx.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return IndexField{}, false
}

// IsValidIdentifier returns true if s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		isSpecial := r == '_' || r == ':' || r == '-'
		if !isAlpha && !isDigit && !isSpecial {
			return false
		}
	}
	return true
}

// isValidAttribute accepts identifiers optionally prefixed by "@" and
// rejects the "__" prefix drivers use for internal fields.
func isValidAttribute(s string) bool {
	name := strings.TrimPrefix(s, "@")
	if name == "" || strings.HasPrefix(name, "__") {
		return false
	}
	return IsValidIdentifier(name) && !strings.Contains(name, ":") && !strings.Contains(name, "-")
}
