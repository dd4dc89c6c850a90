// Package shape implements the hidden-class map engine: a transitioning
// shape/layout descriptor for object property layouts, with the inline-cache
// surface (stable map identity, fixed prototype offset, transition lookup)
// that callers key their property caches on.
//
// Maps live in an Arena and are referred to by ID rather than by pointer, so
// that the forward transition graph (map -> transitions -> map) never forms
// a Go pointer cycle that the garbage collector would need special handling
// for; the Arena itself is the only root a caller's tracing collector needs
// to keep alive.
package shape

import "sync"

// Symbol is a process-wide interned identifier. Equality is identity: two
// Symbols compare equal iff they were interned from the same name, or iff
// both were constructed as the array-index symbol for the same index.
type Symbol uint32

// DUMMY is the sentinel for "no symbol" (an absent added-property slot).
const DUMMY Symbol = 0

// arrayIndexBit marks a Symbol as carrying a 32-bit array index rather than
// an interned name. The remaining 31 bits hold the index.
const arrayIndexBit Symbol = 1 << 31

// NewArrayIndexSymbol returns the symbol for the array index idx. idx must
// fit in 31 bits; callers that need full uint32 array indices should reserve
// the top index value for an out-of-band path (none of this engine's indices
// approach that limit in practice).
func NewArrayIndexSymbol(idx uint32) Symbol {
	return arrayIndexBit | Symbol(idx)
}

// IsArrayIndex reports whether s was created by NewArrayIndexSymbol.
func (s Symbol) IsArrayIndex() bool { return s&arrayIndexBit != 0 }

// GetIndex returns the array index carried by s. Only valid if
// s.IsArrayIndex().
func (s Symbol) GetIndex() uint32 { return uint32(s &^ arrayIndexBit) }

// interner is the process-wide name -> Symbol table. Index 0 is reserved for
// DUMMY and is never handed out by Intern.
var interner = struct {
	mu    sync.Mutex
	byStr map[string]Symbol
	names []string
}{
	byStr: map[string]Symbol{"": DUMMY},
	names: []string{""},
}

// Intern returns the process-wide Symbol for name, creating it on first use.
// Safe for concurrent use; writes are serialized by the interner's own mutex,
// as is the case for any shared process-wide symbol table.
func Intern(name string) Symbol {
	interner.mu.Lock()
	defer interner.mu.Unlock()
	if sym, ok := interner.byStr[name]; ok {
		return sym
	}
	sym := Symbol(len(interner.names))
	if sym&arrayIndexBit != 0 {
		panic("shape: symbol table exhausted")
	}
	interner.names = append(interner.names, name)
	interner.byStr[name] = sym
	return sym
}

// String returns the name a symbol was interned from, or a synthetic
// "#<index>" representation for array-index symbols.
func (s Symbol) String() string {
	if s.IsArrayIndex() {
		return "#" + itoa(s.GetIndex())
	}
	interner.mu.Lock()
	defer interner.mu.Unlock()
	if int(s) < len(interner.names) {
		return interner.names[s]
	}
	return "<invalid symbol>"
}

func itoa(u uint32) string {
	if u == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for u > 0 {
		i--
		buf[i] = byte('0' + u%10)
		u /= 10
	}
	return string(buf[i:])
}
