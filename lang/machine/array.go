package machine

import (
	"fmt"
	"strings"
)

// An Array is a mutable, dynamically-sized sequence of values, the runtime
// representation of an array literal.
type Array struct {
	elems []Value
}

var (
	_ Value       = (*Array)(nil)
	_ Indexable   = (*Array)(nil)
	_ HasSetIndex = (*Array)(nil)
	_ Iterable    = (*Array)(nil)
	_ Sequence    = (*Array)(nil)
)

// NewArray returns an array containing the specified elements. Callers should
// not subsequently modify elems directly; use the Array's own methods.
func NewArray(elems []Value) *Array { return &Array{elems: elems} }

func (a *Array) String() string {
	var sb strings.Builder
	for i, e := range a.elems {
		if i > 0 {
			sb.WriteByte(',')
		}
		if e != Nil {
			sb.WriteString(fmt.Sprint(e))
		}
	}
	return sb.String()
}

func (a *Array) Type() string      { return "array" }
func (a *Array) Len() int          { return len(a.elems) }
func (a *Array) Index(i int) Value { return a.elems[i] }

func (a *Array) SetIndex(i int, v Value) error {
	a.elems[i] = v
	return nil
}

func (a *Array) Iterate() Iterator { return &arrayIterator{elems: a.elems} }

// Append pushes v onto the end of the array, implementing the APPEND opcode.
func (a *Array) Append(v Value) { a.elems = append(a.elems, v) }

// Slice returns a new array holding every step-th element of a in the
// half-open range [lo, hi), implementing the SLICE opcode. lo, hi and step
// are assumed already normalized (non-negative, in range, step != 0) by the
// caller.
func (a *Array) Slice(lo, hi, step int) *Array {
	if step == 1 {
		out := make([]Value, hi-lo)
		copy(out, a.elems[lo:hi])
		return NewArray(out)
	}
	var out []Value
	if step > 0 {
		for i := lo; i < hi; i += step {
			out = append(out, a.elems[i])
		}
	} else {
		for i := lo; i > hi; i += step {
			out = append(out, a.elems[i])
		}
	}
	return NewArray(out)
}

type arrayIterator struct{ elems []Value }

func (it *arrayIterator) Next(p *Value) bool {
	if len(it.elems) > 0 {
		*p = it.elems[0]
		it.elems = it.elems[1:]
		return true
	}
	return false
}

func (it *arrayIterator) Done() {}
