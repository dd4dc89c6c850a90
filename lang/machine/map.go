package machine

import (
	"fmt"

	"github.com/dolthub/swiss"
)

// A Map represents a map or dictionary. If you know the exact final number of
// entries, it is more efficient to call NewMap.
type Map struct {
	m *swiss.Map[Value, Value]
}

var (
	_ Value     = (*Map)(nil)
	_ Mapping   = (*Map)(nil)
	_ HasSetKey = (*Map)(nil)
	_ Iterable  = (*Map)(nil)
)

// NewMap returns a map with initial capacity for at least size items.
func NewMap(size int) *Map {
	m := swiss.NewMap[Value, Value](uint32(size))
	return &Map{m: m}
}

func (m *Map) String() string { return fmt.Sprintf("map(%p)", m) }
func (m *Map) Type() string   { return "map" }
func (m *Map) Get(k Value) (Value, bool, error) {
	v, ok := m.m.Get(k)
	return v, ok, nil
}
func (m *Map) SetKey(k, v Value) error {
	m.m.Put(k, v)
	return nil
}

// Delete removes k from the map, reporting whether it was present.
func (m *Map) Delete(k Value) bool {
	return m.m.Delete(k)
}

// Iterate returns an Iterator over the map's (key, value) tuples. swiss.Map
// only exposes a callback-style Iter, so the entries are snapshotted up
// front; mutations of m during iteration are not observed by the returned
// Iterator.
func (m *Map) Iterate() Iterator {
	entries := make([]Value, 0, m.m.Count())
	m.m.Iter(func(k, v Value) bool {
		entries = append(entries, NewTuple([]Value{k, v}))
		return false
	})
	return &mapIterator{entries: entries}
}

type mapIterator struct {
	entries []Value
	pos     int
}

func (it *mapIterator) Next(p *Value) bool {
	if it.pos >= len(it.entries) {
		return false
	}
	*p = it.entries[it.pos]
	it.pos++
	return true
}

func (it *mapIterator) Done() {}
