// Package chromid implements the dense, first-seen-order chromosome name
// to id map used to assign ids while ingesting a record source.
package chromid

// Map assigns monotonically increasing ids, starting at 0, to chromosome
// names in the order they are first seen. It never fails and never
// deletes; name comparison is byte-exact.
type Map struct {
	ids   map[string]uint32
	names []string
}

// New returns an empty Map.
func New() *Map {
	return &Map{ids: make(map[string]uint32)}
}

// GetID returns the existing id for name, assigning the next free id if
// name has not been seen before.
func (m *Map) GetID(name string) uint32 {
	if id, ok := m.ids[name]; ok {
		return id
	}
	id := uint32(len(m.names))
	m.ids[name] = id
	m.names = append(m.names, name)
	return id
}

// Lookup returns the id for name without assigning one, reporting
// whether name is known.
func (m *Map) Lookup(name string) (uint32, bool) {
	id, ok := m.ids[name]
	return id, ok
}

// Entry is one (name, id) pair in assignment order.
type Entry struct {
	Name string
	ID   uint32
}

// Entries returns all (name, id) pairs in assignment order.
func (m *Map) Entries() []Entry {
	out := make([]Entry, len(m.names))
	for i, n := range m.names {
		out[i] = Entry{Name: n, ID: uint32(i)}
	}
	return out
}

// Len returns the number of distinct names seen so far.
func (m *Map) Len() int { return len(m.names) }

// NewFromSizes seeds a Map from a chromosome sizes table, assigning ids
// in the iteration order given by names (callers should pass a
// deterministically ordered slice, not range a Go map directly).
func NewFromSizes(names []string) *Map {
	m := New()
	for _, n := range names {
		m.GetID(n)
	}
	return m
}
