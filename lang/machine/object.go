package machine

import (
	"fmt"
	"sync/atomic"

	"github.com/ivscript/iv/lang/shape"
)

// icHits and icMisses count every PropertyCache.lookup call across the
// process, regardless of which Object it belongs to. They exist purely for
// the ic-stats CLI command's diagnostic dump; nothing in the VM reads them.
var (
	icHits   atomic.Uint64
	icMisses atomic.Uint64

	// icDisabled is flipped once, and permanently, when a function's
	// "caller" property is read; every property-cache lookup misses from
	// then on. The invalidation is deliberately conservative: it fires even
	// when the reader is not a strict callable.
	icDisabled atomic.Bool
)

func disableCaches() { icDisabled.Store(true) }

// ICStats returns the cumulative inline-cache hit and miss counts gathered
// since process start.
func ICStats() (hits, misses uint64) {
	return icHits.Load(), icMisses.Load()
}

// objectArena backs every Object's property layout. A single process-wide
// arena keeps hidden classes shared across objects created from the same
// constructor or literal shape, which is the whole point of the transition
// graph: two objects built the same way end up pointing at the same map ID.
var objectArena = shape.NewArena()

// protoRegistry maps live Objects to the opaque shape.Prototype handles the
// arena's transition algebra uses for prototype-chain identity. The arena
// itself never dereferences a Prototype value; this package is the host that
// gives the handle meaning.
var protoRegistry = struct {
	byObj map[*Object]shape.Prototype
	objs  []*Object
}{
	byObj: make(map[*Object]shape.Prototype),
	objs:  []*Object{nil}, // index 0 is unused so the zero handle means "no prototype"
}

func protoHandle(o *Object) shape.Prototype {
	if o == nil {
		return shape.NoPrototype
	}
	if h, ok := protoRegistry.byObj[o]; ok {
		return h
	}
	protoRegistry.objs = append(protoRegistry.objs, o)
	h := shape.Prototype(len(protoRegistry.objs) - 1)
	protoRegistry.byObj[o] = h
	return h
}

func protoObject(h shape.Prototype) *Object {
	if h == shape.NoPrototype {
		return nil
	}
	return protoRegistry.objs[h]
}

// PropertyCache is a single-entry inline cache; every Object carries one.
// It remembers the map identity a symbol last resolved against, so a repeat
// access through the same hidden class skips the transition-chain walk
// entirely; a different map identity (the object changed shape) or a
// different symbol is a plain cache miss, not an error, and falls back to
// Arena.Get.
type PropertyCache struct {
	valid bool
	id    shape.ID
	sym   shape.Symbol
	entry shape.Entry
}

func (c *PropertyCache) lookup(id shape.ID, sym shape.Symbol) (shape.Entry, bool) {
	if !icDisabled.Load() && c.valid && c.id == id && c.sym == sym {
		icHits.Add(1)
		return c.entry, true
	}
	icMisses.Add(1)
	return shape.Entry{}, false
}

func (c *PropertyCache) store(id shape.ID, sym shape.Symbol, e shape.Entry) {
	c.id, c.sym, c.entry, c.valid = id, sym, e, true
}

func (c *PropertyCache) invalidate() { c.valid = false }

// Object is a hidden-class-backed property bag: its layout (which names map
// to which slot, with what attributes) lives in objectArena under mapID, and
// the values themselves live in the parallel slots slice. Every Object also
// carries its own PropertyCache, a simplified stand-in for the per-call-site
// inline caches a bytecode interpreter would keep in its instruction stream;
// bytecode operand space for a real call-site cache doesn't exist yet in this
// opcode set, so caching one slot per object is the closest honest
// approximation without inventing opcode encoding this repo doesn't have.
type Object struct {
	mapID shape.ID
	slots []Value
	cache PropertyCache
}

var (
	_ Value       = (*Object)(nil)
	_ HasAttrs    = (*Object)(nil)
	_ HasSetField = (*Object)(nil)
	_ Mapping     = (*Object)(nil)
	_ HasSetKey   = (*Object)(nil)
	_ Iterable    = (*Object)(nil)
)

// NewObject returns an empty object whose prototype is proto (nil for none).
func NewObject(proto *Object) *Object {
	return &Object{mapID: objectArena.NewRoot(protoHandle(proto))}
}

func (o *Object) String() string { return fmt.Sprintf("object(%p)", o) }
func (o *Object) Type() string   { return "object" }

// Prototype returns the object's prototype, or nil if it has none.
func (o *Object) Prototype() *Object {
	return protoObject(objectArena.Prototype(o.mapID))
}

// SetPrototype transitions the object to a new prototype, reusing a shared
// transition edge when another object already made the same change from the
// same starting shape.
func (o *Object) SetPrototype(proto *Object) {
	o.mapID = objectArena.ChangePrototype(o.mapID, protoHandle(proto))
	o.cache.invalidate()
}

// Attr implements HasAttrs, walking the prototype chain if name is not an
// own property.
func (o *Object) Attr(name string) (Value, error) {
	sym := shape.Intern(name)
	for cur := o; cur != nil; cur = cur.Prototype() {
		if e, ok := cur.ownEntry(sym); ok {
			return cur.slots[e.Offset], nil
		}
	}
	return nil, nil
}

// AttrNames implements HasAttrs, listing the object's own property names.
func (o *Object) AttrNames() []string {
	syms := objectArena.Names(o.mapID)
	names := make([]string, len(syms))
	for i, sym := range syms {
		names[i] = sym.String()
	}
	return names
}

// SetField implements HasSetField: it updates an existing own, writable
// property in place, or adds a new own data property (following whatever
// transition edge the arena already has for this shape plus this name).
func (o *Object) SetField(name string, val Value) error {
	sym := shape.Intern(name)
	if e, ok := o.ownEntry(sym); ok {
		if !e.Attributes.IsWritable() {
			return NoSuchAttrError(fmt.Sprintf("cannot assign to read-only property %q", name))
		}
		o.slots[e.Offset] = val
		return nil
	}

	newID, offset := objectArena.AddProperty(o.mapID, sym,
		shape.Writable|shape.Enumerable|shape.Configurable|shape.IsData)
	o.mapID = newID
	o.cache.invalidate()
	o.growSlots(offset)
	o.slots[offset] = val
	return nil
}

// Get implements Mapping, making bracket access (a[k]) equivalent to
// property access with the key coerced to its string form.
func (o *Object) Get(k Value) (Value, bool, error) {
	name, err := propertyKey(k)
	if err != nil {
		return nil, false, err
	}
	v, err := o.Attr(name)
	if err != nil {
		return nil, false, err
	}
	return v, v != nil, nil
}

// SetKey implements HasSetKey: a[k] = v with the key coerced to its string
// form.
func (o *Object) SetKey(k, v Value) error {
	name, err := propertyKey(k)
	if err != nil {
		return err
	}
	return o.SetField(name, v)
}

// Iterate yields the object's own enumerable property names as strings, the
// order being the shape's property-insertion order. This is what a for-in
// loop observes.
func (o *Object) Iterate() Iterator {
	syms := objectArena.Names(o.mapID)
	names := make([]Value, 0, len(syms))
	for _, sym := range syms {
		if e := objectArena.Get(o.mapID, sym); !e.IsNotFound() && e.Attributes.IsEnumerable() {
			names = append(names, String(sym.String()))
		}
	}
	return &arrayIterator{elems: names}
}

// DeleteProperty removes an own property, if present, making its slot
// available for reuse by a later AddProperty on this shape.
func (o *Object) DeleteProperty(name string) {
	sym := shape.Intern(name)
	if _, ok := o.ownEntry(sym); !ok {
		return
	}
	o.mapID = objectArena.DeleteProperty(o.mapID, sym)
	o.cache.invalidate()
}

func (o *Object) ownEntry(sym shape.Symbol) (shape.Entry, bool) {
	if e, ok := o.cache.lookup(o.mapID, sym); ok {
		return e, true
	}
	e := objectArena.Get(o.mapID, sym)
	if e.IsNotFound() {
		return shape.Entry{}, false
	}
	o.cache.store(o.mapID, sym, e)
	return e, true
}

func (o *Object) growSlots(offset uint32) {
	if int(offset) < len(o.slots) {
		return
	}
	grown := make([]Value, shape.StorageCapacity(offset+1))
	copy(grown, o.slots)
	o.slots = grown
}
