package shape

import "golang.org/x/exp/slices"

// Prototype is an opaque handle to the object that owns a map's prototype
// edge. The shape engine never dereferences it; it is opaque payload that
// round-trips through ChangePrototypeTransition and Prototype so that a host
// object model (arena index, pointer cast to uintptr, whatever it uses) can
// plug in without this package depending on it.
type Prototype uint64

// NoPrototype is the sentinel for "no prototype set".
const NoPrototype Prototype = 0

// ID identifies a map (shape) inside an Arena. It is an arena-relative index,
// not a pointer: the forward transition graph (map -> transitions -> map)
// is therefore acyclic from the Go garbage collector's point of view, and the
// Arena is the only root a host tracing collector needs to keep alive.
type ID int32

// NoID is the sentinel "absent map" ID, used for previous-map links at the
// root of a transition chain.
const NoID ID = -1

// MaxTransition bounds the depth of a shared transition chain. Crossing it
// forces a fork to a unique map (see Arena.AddProperty).
const MaxTransition = 32

type transitionKey struct {
	symbol Symbol
	attrs  Attributes
}

// transitionSet implements the map engine's single-pair-then-table
// promotion: most shapes gain only one or two forward edges in practice, so
// the first edge is held inline and only a second edge promotes to a backing
// Go map.
type transitionSet[K comparable] struct {
	hasSingle bool
	singleKey K
	singleID  ID
	table     map[K]ID
}

func (t *transitionSet[K]) find(k K) (ID, bool) {
	if t.table != nil {
		id, ok := t.table[k]
		return id, ok
	}
	if t.hasSingle && t.singleKey == k {
		return t.singleID, true
	}
	return 0, false
}

func (t *transitionSet[K]) insert(k K, id ID) {
	if t.table == nil && t.hasSingle {
		t.table = make(map[K]ID, 2)
		t.table[t.singleKey] = t.singleID
		t.hasSingle = false
	}
	if t.table != nil {
		t.table[k] = id
		return
	}
	t.singleKey, t.singleID, t.hasSingle = k, id, true
}

// node is one shape in the arena. A node is either "shared" (reachable by
// forward transition edges, and thus immutable except for materializing its
// table lazily) or "unique" (privately owned by one object; forkOnMutate
// governs whether a further mutation forks a new unique node or mutates this
// one in place, per Flatten).
type node struct {
	prototype Prototype
	previous  ID

	// table is the materialized symbol -> entry mapping. Nil means "not yet
	// materialized": the node's single pending property (added) plus the
	// previous chain fully describe the layout.
	table map[Symbol]Entry

	addedSym   Symbol // DUMMY if this node adds no property over previous
	addedEntry Entry

	deleted []uint32 // LIFO of offsets freed by delete_property, inherited by value

	propTrans  transitionSet[transitionKey]
	protoTrans transitionSet[Prototype]

	sharedTransitions bool // false => unique
	forkOnMutate      bool // Flatten() sets this on a unique node

	transitCount   uint32
	calculatedSize uint32
}

// Arena owns a set of maps (shapes) addressed by ID.
type Arena struct {
	nodes []node
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

func (a *Arena) at(id ID) *node { return &a.nodes[id] }

func (a *Arena) alloc(n node) ID {
	id := ID(len(a.nodes))
	a.nodes = append(a.nodes, n)
	return id
}

// NewRoot returns a new shared (transitionable) empty map for objects with
// the given prototype.
func (a *Arena) NewRoot(prototype Prototype) ID {
	return a.alloc(node{prototype: prototype, previous: NoID, sharedTransitions: true, addedSym: DUMMY})
}

// NewUniqueRoot returns a new unique empty map, never reachable by a forward
// transition edge.
func (a *Arena) NewUniqueRoot(prototype Prototype) ID {
	return a.alloc(node{prototype: prototype, previous: NoID, sharedTransitions: false, addedSym: DUMMY})
}

// newChild allocates a shared node transitioning from prev.
func (a *Arena) newChild(prev ID) ID {
	p := a.at(prev)
	return a.alloc(node{
		prototype:         p.prototype,
		previous:          prev,
		sharedTransitions: true,
		deleted:           append([]uint32(nil), p.deleted...),
		addedSym:          DUMMY,
		calculatedSize:    a.slotsSize(prev),
	})
}

// newUnique forks a fresh unique node from prev, regardless of prev's own
// uniqueness. If prev already has a materialized table, the fork gets its
// own copy of it, never an alias: Go maps are reference types, and sharing
// one would let two live shapes mutate each other's layout (see DESIGN.md).
func (a *Arena) newUnique(prev ID) ID {
	p := a.at(prev)
	var tbl map[Symbol]Entry
	if p.table != nil {
		tbl = make(map[Symbol]Entry, len(p.table))
		for k, v := range p.table {
			tbl[k] = v
		}
	}
	return a.alloc(node{
		prototype:         p.prototype,
		previous:          prev,
		sharedTransitions: false,
		table:             tbl,
		deleted:           append([]uint32(nil), p.deleted...),
		addedSym:          DUMMY,
		calculatedSize:    a.slotsSize(prev),
	})
}

// slotsSize returns the slot count of id: table size + deleted count when
// materialized, else the carried calculatedSize.
func (a *Arena) slotsSize(id ID) uint32 {
	n := a.at(id)
	if n.table != nil {
		return uint32(len(n.table)) + uint32(len(n.deleted))
	}
	return n.calculatedSize
}

// SlotCount returns the number of live property slots described by id.
func (a *Arena) SlotCount(id ID) uint32 { return a.slotsSize(id) }

// Prototype returns the prototype handle of id.
func (a *Arena) Prototype(id ID) Prototype { return a.at(id).prototype }

// IsUnique reports whether id is a unique (non-shared) map.
func (a *Arena) IsUnique(id ID) bool { return !a.at(id).sharedTransitions }

// TransitCount returns the depth of id's transition chain.
func (a *Arena) TransitCount(id ID) uint32 { return a.at(id).transitCount }

// PrototypeOffset is the documented location of a map's prototype edge
// relative to the map itself. A native engine hands generated code a fixed
// byte offset to load through; Go exposes no struct layout to generated
// code, so callers that guard an inline cache by map identity treat this as
// an interface constant, not an actual memory offset.
const PrototypeOffset = 0

// ensureTable materializes id's table if absent, by walking the previous
// chain collecting each node's pending added property onto a stack until a
// materialized table (or the chain root) is reached, then replaying the
// stack in reverse onto a clone of that base table.
func (a *Arena) ensureTable(id ID) {
	if a.at(id).table != nil {
		return
	}
	type pending struct {
		sym   Symbol
		entry Entry
	}
	var stack []pending
	cur := id
	for {
		cn := a.at(cur)
		if cn.table != nil {
			break
		}
		if cn.addedSym != DUMMY {
			stack = append(stack, pending{cn.addedSym, cn.addedEntry})
		}
		if cn.previous == NoID {
			break
		}
		cur = cn.previous
	}
	base := a.at(cur)
	table := make(map[Symbol]Entry, len(stack)+len(base.table))
	for k, v := range base.table {
		table[k] = v
	}
	for i := len(stack) - 1; i >= 0; i-- {
		p := stack[i]
		table[p.sym] = p.entry
	}

	n := a.at(id)
	n.table = table
	n.previous = NoID
	n.addedSym = DUMMY
	n.calculatedSize = uint32(len(table)) + uint32(len(n.deleted))
}

// Names returns every symbol with a live slot in id's layout, materializing
// the table if necessary, ordered by slot offset: for a shape that never
// deleted anything this is property-insertion order, which is what for-in
// enumeration observes.
func (a *Arena) Names(id ID) []Symbol {
	a.ensureTable(id)
	n := a.at(id)
	names := make([]Symbol, 0, len(n.table))
	for sym := range n.table {
		names = append(names, sym)
	}
	slices.SortFunc(names, func(x, y Symbol) int {
		return int(n.table[x].Offset) - int(n.table[y].Offset)
	})
	return names
}

// Get looks up symbol in id's layout, walking the transition chain via
// lazy table materialization if needed.
func (a *Arena) Get(id ID, symbol Symbol) Entry {
	n := a.at(id)
	if n.table == nil {
		if n.previous == NoID {
			return NotFoundEntry
		}
		if n.addedSym != DUMMY && n.addedSym == symbol {
			return n.addedEntry
		}
		a.ensureTable(id)
		n = a.at(id)
	}
	e, ok := n.table[symbol]
	if !ok {
		return NotFoundEntry
	}
	return e
}

// AddProperty adds symbol with the given attributes to id's layout and
// returns the resulting map and the slot offset assigned to the property.
// symbol must not be DUMMY.
func (a *Arena) AddProperty(id ID, symbol Symbol, attrs Attributes) (ID, uint32) {
	if symbol == DUMMY {
		panic("shape: AddProperty called with DUMMY symbol")
	}

	if a.at(id).sharedTransitions {
		key := transitionKey{symbol, attrs}
		if child, ok := a.at(id).propTrans.find(key); ok {
			return child, a.at(child).addedEntry.Offset
		}
		if a.at(id).transitCount > MaxTransition {
			uniq := a.newUnique(id)
			return a.AddProperty(uniq, symbol, attrs)
		}

		parentSlots := a.slotsSize(id)
		child := a.newChild(id)
		cn := a.at(child)
		var offset uint32
		if len(cn.deleted) > 0 {
			offset = cn.deleted[len(cn.deleted)-1]
			cn.deleted = cn.deleted[:len(cn.deleted)-1]
			cn.calculatedSize = parentSlots
		} else {
			offset = parentSlots
			cn.calculatedSize = parentSlots + 1
		}
		cn.addedSym = symbol
		cn.addedEntry = Entry{Offset: offset, Attributes: attrs}
		cn.transitCount = a.at(id).transitCount + 1

		a.at(id).propTrans.insert(key, child)
		return child, offset
	}

	// Unique map: fork if flattened, else mutate in place.
	target := id
	if a.at(id).forkOnMutate {
		target = a.newUnique(id)
	}
	a.ensureTable(target)
	tn := a.at(target)
	var offset uint32
	if len(tn.deleted) > 0 {
		offset = tn.deleted[len(tn.deleted)-1]
		tn.deleted = tn.deleted[:len(tn.deleted)-1]
	} else {
		offset = uint32(len(tn.table))
	}
	tn.table[symbol] = Entry{Offset: offset, Attributes: attrs}
	return target, offset
}

// ChangeAttributes forks a unique map from id, materializes its table, and
// updates symbol's attributes in place on the fork.
func (a *Arena) ChangeAttributes(id ID, symbol Symbol, attrs Attributes) ID {
	target := a.newUnique(id)
	a.ensureTable(target)
	tn := a.at(target)
	if e, ok := tn.table[symbol]; ok {
		e.Attributes = attrs
		tn.table[symbol] = e
	}
	return target
}

// DeleteProperty forks a unique map from id, materializes its table, removes
// symbol, and pushes its freed offset onto the fork's deleted stack.
func (a *Arena) DeleteProperty(id ID, symbol Symbol) ID {
	target := a.newUnique(id)
	a.ensureTable(target)
	tn := a.at(target)
	if e, ok := tn.table[symbol]; ok {
		delete(tn.table, symbol)
		tn.deleted = append(tn.deleted, e.Offset)
	}
	return target
}

// ChangePrototype transitions id to a map with the given prototype, using
// the same transition algebra as AddProperty but keyed on prototype identity
// instead of a symbol.
func (a *Arena) ChangePrototype(id ID, prototype Prototype) ID {
	if !a.at(id).sharedTransitions {
		target := id
		if a.at(id).forkOnMutate {
			target = a.newUnique(id)
		}
		a.at(target).prototype = prototype
		return target
	}

	if a.at(id).transitCount > MaxTransition {
		uniq := a.newUnique(id)
		return a.ChangePrototype(uniq, prototype)
	}

	if child, ok := a.at(id).protoTrans.find(prototype); ok {
		return child
	}

	parentTransitCount := a.at(id).transitCount
	child := a.newChild(id)
	cn := a.at(child)
	cn.prototype = prototype
	cn.transitCount = parentTransitCount + 1
	a.at(id).protoTrans.insert(prototype, child)
	return child
}

// Flatten disables transition sharing for a unique map: subsequent mutating
// operations on id fork a new unique map instead of mutating id in place.
// No-op on a shared map.
func (a *Arena) Flatten(id ID) {
	n := a.at(id)
	if !n.sharedTransitions {
		n.forkOnMutate = true
	}
}

// StorageCapacity returns the smallest power-of-two-like capacity able to
// hold slotCount slots, for amortized growth of an object's backing slot
// array.
func StorageCapacity(slotCount uint32) uint32 {
	if slotCount == 0 {
		return 0
	}
	cap := uint32(1)
	for cap < slotCount {
		cap <<= 1
	}
	return cap
}
