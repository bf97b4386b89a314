package record

import (
	"bytes"
	"maps"
	"reflect"
	"slices"
	"strconv"
	"sync"
	"time"
)

// Record is a persisted application record: its type, id and attribute
// values plus the set of watched attributes changed since the last sync.
// All writes go through Set, which records dirtiness atomically with the write.
type Record struct {
	mu       sync.RWMutex
	typeName string
	id       int64
	attrs    map[string]any
	watched  map[string]bool
	changes  ChangeSet
}

// New creates a record of typeName with the given attributes. watched names
// the attributes whose changes require reindexing.
func New(typeName string, id int64, attrs map[string]any, watched []string) *Record {
	w := make(map[string]bool, len(watched))
	for _, name := range watched {
		w[name] = true
	}
	a := make(map[string]any, len(attrs))
	maps.Copy(a, attrs)
	return &Record{typeName: typeName, id: id, attrs: a, watched: w}
}

// Type returns the concrete record type.
func (r *Record) Type() string { return r.typeName }

// ID returns the record id.
func (r *Record) ID() int64 { return r.id }

// IDString returns the record id in decimal.
func (r *Record) IDString() string { return strconv.FormatInt(r.id, 10) }

// Attribute returns the current value of name, nil when unset.
func (r *Record) Attribute(name string) any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.attrs[name]
}

// Attributes returns a copy of all attribute values.
func (r *Record) Attributes() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.attrs)
}

// Set writes value to name. When name is watched and the value differs from
// the current one, name is added to the change set.
func (r *Record) Set(name string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, had := r.attrs[name]
	r.attrs[name] = value
	if !r.watched[name] {
		return
	}
	if had && equal(old, value) {
		return
	}
	if !had && value == nil {
		return
	}
	r.changes.add(name)
}

// IsWatched reports whether writes to name are tracked.
func (r *Record) IsWatched(name string) bool { return r.watched[name] }

// IsChanged reports whether any watched attribute changed since the last sync.
func (r *Record) IsChanged() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !r.changes.Empty()
}

// IsAttributeChanged reports whether name changed since the last sync.
func (r *Record) IsAttributeChanged(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.changes.Contains(name)
}

// Changes returns the changed attribute names in write order.
func (r *Record) Changes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.changes.Names()
}

// ClearChanges empties the change set.
func (r *Record) ClearChanges() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes.clear()
}

func equal(a, b any) bool {
	switch av := a.(type) {
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	case []byte:
		bv, ok := b.([]byte)
		return ok && bytes.Equal(av, bv)
	}
	return reflect.DeepEqual(a, b)
}

// ChangeSet is the ordered set of watched attribute names written with a new
// value since the last successful sync.
type ChangeSet struct {
	names []string
}

func (c *ChangeSet) add(name string) {
	if !slices.Contains(c.names, name) {
		c.names = append(c.names, name)
	}
}

func (c *ChangeSet) clear() { c.names = nil }

// Contains reports whether name is in the set.
func (c *ChangeSet) Contains(name string) bool { return slices.Contains(c.names, name) }

// Empty reports whether the set has no names.
func (c *ChangeSet) Empty() bool { return len(c.names) == 0 }

// Names returns a copy of the names in insertion order.
func (c *ChangeSet) Names() []string { return slices.Clone(c.names) }
