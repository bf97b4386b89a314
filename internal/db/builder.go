package db

import (
	"strings"

	"github.com/kailas-cloud/ftsync/internal/domain/document"
)

// IndexBuilder is a fluent builder for index definitions.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts building an index definition with the builtin attributes.
// db_id is sortable so results can be ordered by record id.
func NewIndex(name string) *IndexBuilder {
	b := &IndexBuilder{def: IndexDefinition{Name: name}}
	for _, a := range BuiltinAttributes {
		b.add(a, a == document.AttrID)
	}
	return b
}

// Attribute adds plain attributes, skipping ones already present.
func (b *IndexBuilder) Attribute(names ...string) *IndexBuilder {
	for _, n := range names {
		b.add(n, false)
	}
	return b
}

// Sortable adds sortable attributes or marks existing ones sortable.
func (b *IndexBuilder) Sortable(names ...string) *IndexBuilder {
	for _, n := range names {
		b.add(n, true)
	}
	return b
}

func (b *IndexBuilder) add(name string, sortable bool) {
	for i := range b.def.Fields {
		if b.def.Fields[i].Name == name {
			b.def.Fields[i].Sortable = b.def.Fields[i].Sortable || sortable
			return
		}
	}
	b.def.Fields = append(b.def.Fields, IndexField{Name: name, Sortable: sortable})
}

// Build validates and returns the index definition.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	if err := b.def.Validate(); err != nil {
		return nil, err
	}
	return &b.def, nil
}

// MustBuild calls Build and panics on error.
func (b *IndexBuilder) MustBuild() *IndexDefinition {
	def, err := b.Build()
	if err != nil {
		panic(err)
	}
	return def
}

// String returns a compact debug representation of the schema.
func (idx *IndexDefinition) String() string {
	parts := []string{idx.Name, "SCHEMA"}
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Sortable {
			parts = append(parts, f.Name+"(SORTABLE)")
			continue
		}
		parts = append(parts, f.Name)
	}
	return strings.Join(parts, " ")
}
