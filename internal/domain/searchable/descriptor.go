package searchable

import (
	"regexp"
	"slices"
	"strings"

	"github.com/kailas-cloud/ftsync/internal/domain"
)

var attrKeyRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// Attributes written by the document builder itself. A projection keyed
// "type" is stored as "@type" and does not clash with the builder's "type".
var builderOwned = map[string]bool{"db_id": true, "type_base": true}

// Projection maps an index attribute to the record attribute it is read from.
type Projection struct {
	Key    string
	Source string
}

// Descriptor is the registration of one record type.
// Only searchable types carry search settings; other types inherit them from
// their nearest searchable ancestor.
type Descriptor struct {
	Name             string
	Parent           string
	Searchable       bool
	SearchableFields []string
	Attributes       []Projection
	IfChanged        []string
	Quiet            bool
	IgnoreTimestamps bool
	// Inheritance marks a type stored in a shared table with a type column.
	Inheritance bool
	// Columns lists the record's stored attribute names; used to derive
	// cdate/mdate projections.
	Columns []string
}

func (d *Descriptor) validate() error {
	if d.Name == "" {
		return domain.NewConfigurationError("", "type name is required")
	}
	if d.Parent == d.Name {
		return domain.NewConfigurationError(d.Name, "type cannot be its own parent")
	}
	if !d.Searchable {
		if len(d.SearchableFields) > 0 || len(d.Attributes) > 0 || len(d.IfChanged) > 0 {
			return domain.NewConfigurationError(d.Name, "search settings on a non-searchable type")
		}
		return nil
	}

	seen := make(map[string]bool, len(d.Attributes))
	for _, p := range d.Attributes {
		if !attrKeyRegex.MatchString(p.Key) {
			return domain.NewConfigurationError(d.Name, "invalid attribute key %q", p.Key)
		}
		if builderOwned[p.Key] {
			return domain.NewConfigurationError(d.Name, "attribute key %q is reserved", p.Key)
		}
		if seen[p.Key] {
			return domain.NewConfigurationError(d.Name, "duplicate attribute key %q", p.Key)
		}
		seen[p.Key] = true
		if p.Source == "" {
			return domain.NewConfigurationError(d.Name, "attribute %q has no source", p.Key)
		}
	}
	for _, f := range d.SearchableFields {
		if strings.TrimSpace(f) == "" {
			return domain.NewConfigurationError(d.Name, "empty searchable field")
		}
	}
	return nil
}

// projections returns the declared projections plus cdate/mdate derived from
// the timestamp columns.
func (d *Descriptor) projections() []Projection {
	out := slices.Clone(d.Attributes)
	if d.IgnoreTimestamps {
		return out
	}
	declared := func(key string) bool {
		return slices.ContainsFunc(out, func(p Projection) bool { return p.Key == key })
	}
	if src := firstColumn(d.Columns, "created_at", "created_on"); src != "" && !declared("cdate") {
		out = append(out, Projection{Key: "cdate", Source: src})
	}
	if src := firstColumn(d.Columns, "updated_at", "updated_on"); src != "" && !declared("mdate") {
		out = append(out, Projection{Key: "mdate", Source: src})
	}
	return out
}

func firstColumn(columns []string, names ...string) string {
	for _, n := range names {
		if slices.Contains(columns, n) {
			return n
		}
	}
	return ""
}
