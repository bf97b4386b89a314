package searchable

import (
	"fmt"
	"slices"

	"github.com/kailas-cloud/ftsync/internal/domain"
	"github.com/kailas-cloud/ftsync/internal/domain/search/filter"
)

// Scope attribute names.
const (
	AttrID       = "db_id"
	AttrType     = "type"
	AttrTypeBase = "type_base"
)

// Type is a registered record type with its search settings resolved
// against the hierarchy (immutable).
type Type struct {
	name        string
	parent      string
	top         string
	base        string
	searchable  bool
	inheritance bool
	subtypes    []string
	fields      []string
	projections []Projection
	ifChanged   []string
	watched     []string
	quiet       bool
}

// Name returns the type name.
func (t *Type) Name() string { return t.name }

// Parent returns the parent type name, empty for a hierarchy top.
func (t *Type) Parent() string { return t.parent }

// Top returns the root of the type's hierarchy.
func (t *Type) Top() string { return t.top }

// IsSearchable reports whether the type itself declared search settings.
func (t *Type) IsSearchable() bool { return t.searchable }

// Base returns the nearest searchable type, walking up from the type itself.
func (t *Type) Base() (string, error) {
	if t.base == "" {
		return "", domain.NewConfigurationError(t.name, "no searchable type in hierarchy")
	}
	return t.base, nil
}

// HasSubtypes reports whether any registered type names this one as parent.
func (t *Type) HasSubtypes() bool { return len(t.subtypes) > 0 }

// IsHierarchyTop reports whether the type has no parent.
func (t *Type) IsHierarchyTop() bool { return t.parent == "" }

// InInheritance reports whether records of the type live in an inheritance
// hierarchy (declared type column, a parent, or subtypes).
func (t *Type) InInheritance() bool {
	return t.inheritance || t.parent != "" || len(t.subtypes) > 0
}

// SearchableFields returns the text fields in declaration order.
func (t *Type) SearchableFields() []string { return t.fields }

// Projections returns the stored attributes in declaration order.
func (t *Type) Projections() []Projection { return t.projections }

// IfChanged returns the extra attributes that trigger reindexing.
func (t *Type) IfChanged() []string { return t.ifChanged }

// Watched returns if_changed, searchable fields and projection sources, deduplicated.
func (t *Type) Watched() []string { return t.watched }

// Quiet reports whether an unavailable index is logged instead of raised.
func (t *Type) Quiet() bool { return t.quiet }

// Scope returns the attribute condition restricting searches to this type:
// "type_base STREQ <base>" for a searchable base with subtypes,
// "type STREQ <type>" otherwise.
func (t *Type) Scope() filter.Condition {
	if t.base == t.name && len(t.subtypes) > 0 {
		return filter.MustNew(AttrTypeBase, filter.StrEq, t.base)
	}
	return filter.MustNew(AttrType, filter.StrEq, t.name)
}

// AllTypesScope matches every document in the index.
func AllTypesScope() filter.Condition {
	return filter.MustNew(AttrID, filter.NumGt, "0")
}

// Registry is the static set of registered types. It is built once and is
// safe for concurrent reads.
type Registry struct {
	types map[string]*Type
	order []string
}

// NewRegistry validates the descriptors and resolves every type against its hierarchy.
func NewRegistry(descs ...Descriptor) (*Registry, error) {
	byName := make(map[string]*Descriptor, len(descs))
	order := make([]string, 0, len(descs))
	for i := range descs {
		d := &descs[i]
		if err := d.validate(); err != nil {
			return nil, err
		}
		if _, dup := byName[d.Name]; dup {
			return nil, domain.NewConfigurationError(d.Name, "registered twice")
		}
		byName[d.Name] = d
		order = append(order, d.Name)
	}

	children := make(map[string][]string)
	for _, name := range order {
		d := byName[name]
		if d.Parent == "" {
			continue
		}
		if _, ok := byName[d.Parent]; !ok {
			return nil, domain.NewConfigurationError(name, "unknown parent %q", d.Parent)
		}
		children[d.Parent] = append(children[d.Parent], name)
	}

	r := &Registry{types: make(map[string]*Type, len(order)), order: order}
	for _, name := range order {
		chain, err := ancestry(byName, name)
		if err != nil {
			return nil, err
		}
		d := byName[name]
		t := &Type{
			name:        name,
			parent:      d.Parent,
			top:         chain[len(chain)-1],
			searchable:  d.Searchable,
			inheritance: d.Inheritance,
			subtypes:    children[name],
		}
		for _, n := range chain {
			if byName[n].Searchable {
				t.base = n
				break
			}
		}
		if t.base != "" {
			b := byName[t.base]
			t.fields = slices.Clone(b.SearchableFields)
			t.projections = b.projections()
			t.ifChanged = slices.Clone(b.IfChanged)
			t.quiet = b.Quiet
			t.watched = watchedSet(t.ifChanged, t.fields, t.projections)
		}
		r.types[name] = t
	}
	return r, nil
}

// ancestry returns name followed by its ancestors up to the hierarchy top.
func ancestry(byName map[string]*Descriptor, name string) ([]string, error) {
	chain := []string{name}
	seen := map[string]bool{name: true}
	for cur := byName[name].Parent; cur != ""; cur = byName[cur].Parent {
		if seen[cur] {
			return nil, domain.NewConfigurationError(name, "inheritance cycle through %q", cur)
		}
		seen[cur] = true
		chain = append(chain, cur)
	}
	return chain, nil
}

func watchedSet(ifChanged, fields []string, projections []Projection) []string {
	out := make([]string, 0, len(ifChanged)+len(fields)+len(projections))
	add := func(name string) {
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	for _, n := range ifChanged {
		add(n)
	}
	for _, n := range fields {
		add(n)
	}
	for _, p := range projections {
		add(p.Source)
	}
	return out
}

// Lookup returns the registered type.
func (r *Registry) Lookup(name string) (*Type, error) {
	t, ok := r.types[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownType, name)
	}
	return t, nil
}

// ResolveBase returns the nearest searchable type of name.
func (r *Registry) ResolveBase(name string) (string, error) {
	t, err := r.Lookup(name)
	if err != nil {
		return "", err
	}
	return t.Base()
}

// Scope returns the scope condition of name.
func (r *Registry) Scope(name string) (filter.Condition, error) {
	t, err := r.Lookup(name)
	if err != nil {
		return filter.Condition{}, err
	}
	return t.Scope(), nil
}

// Names returns every registered type in registration order.
func (r *Registry) Names() []string { return slices.Clone(r.order) }

// Descendants returns name and every registered type below it.
func (r *Registry) Descendants(name string) []string {
	t, ok := r.types[name]
	if !ok {
		return nil
	}
	out := []string{name}
	for _, sub := range t.subtypes {
		out = append(out, r.Descendants(sub)...)
	}
	return out
}

// AttributeKeys returns the union of projection keys across all types.
func (r *Registry) AttributeKeys() []string {
	var out []string
	for _, name := range r.order {
		for _, p := range r.types[name].projections {
			if !slices.Contains(out, p.Key) {
				out = append(out, p.Key)
			}
		}
	}
	return out
}
