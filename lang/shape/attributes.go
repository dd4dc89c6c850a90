package shape

// Attributes is the small bitset carried per property: Writable, Enumerable,
// Configurable, IsAccessor, IsData, and the NotFound sentinel. It has a
// canonical 32-bit encoding (Raw) used as half of a transition key, and a
// "safe" typed accessor form used everywhere else.
type Attributes uint8

const (
	Writable Attributes = 1 << iota
	Enumerable
	Configurable
	IsAccessor
	IsData
	notFoundBit
)

// NotFoundAttributes is the Attributes value reported alongside
// Entry.NotFound(); it carries no other bit.
const NotFoundAttributes Attributes = notFoundBit

// Raw returns the canonical 32-bit encoding of a, suitable for hashing or
// use as a map transition key component.
func (a Attributes) Raw() uint32 { return uint32(a) }

// FromRaw reconstructs an Attributes from its Raw encoding.
func FromRaw(raw uint32) Attributes { return Attributes(raw) }

func (a Attributes) IsWritable() bool     { return a&Writable != 0 }
func (a Attributes) IsEnumerable() bool   { return a&Enumerable != 0 }
func (a Attributes) IsConfigurable() bool { return a&Configurable != 0 }
func (a Attributes) IsAccessorAttr() bool { return a&IsAccessor != 0 }
func (a Attributes) IsDataAttr() bool     { return a&IsData != 0 }
func (a Attributes) IsNotFound() bool     { return a&notFoundBit != 0 }

// Entry is a single property table entry: a slot offset plus its Attributes.
type Entry struct {
	Offset     uint32
	Attributes Attributes
}

// NotFoundEntry is the canonical "no such property" Entry.
var NotFoundEntry = Entry{Attributes: NotFoundAttributes}

// IsNotFound reports whether e represents an absent property.
func (e Entry) IsNotFound() bool { return e.Attributes.IsNotFound() }
