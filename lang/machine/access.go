package machine

import "fmt"

// decodeHeapArg unpacks a HEAP/SETHEAP opcode argument into its (depth,
// offset) pair: depth occupies the high 16 bits, offset the low 16 bits,
// the inverse of compiler.EncodeHeapArg.
func decodeHeapArg(arg uint32) (depth, offset int) {
	return int(arg >> 16), int(arg & 0xffff)
}

// getAttrOk looks up name on obj without the NoSuchAttrError wrapping
// getAttr performs, returning ok=false instead of an error when absent.
// This is the form GLOBAL/LOOKUP/SETLOOKUP need, since failing to find a
// name in one scope is an expected step of the search, not a failure.
func getAttrOk(obj *Object, name string) (Value, bool) {
	v, err := obj.Attr(name)
	if err != nil || v == nil {
		return nil, false
	}
	return v, true
}

// getAttr implements the ATTR opcode: y = x.name. It is a free function
// rather than a method on Value so that it can fall back to each value's own
// notion of "no such attribute" without forcing every Value implementation to
// special-case the error message.
func getAttr(x Value, name string) (Value, error) {
	ha, ok := x.(HasAttrs)
	if !ok {
		return nil, fmt.Errorf("%s has no field or method %q", x.Type(), name)
	}
	y, err := ha.Attr(name)
	if err != nil {
		return nil, err
	}
	if y == nil {
		return nil, NoSuchAttrError(fmt.Sprintf("%s has no field or method %q", x.Type(), name))
	}
	return y, nil
}

// setField implements the SETFIELD opcode: x.name = y.
func setField(x Value, name string, y Value) error {
	hs, ok := x.(HasSetField)
	if !ok {
		return fmt.Errorf("%s has no settable field %q", x.Type(), name)
	}
	return hs.SetField(name, y)
}

// getIndex implements the INDEX opcode: z = x[y]. x may be a Mapping (map
// lookup, y used as key) or an Indexable (sequence lookup, y used as an
// integer index, with the usual negative-index-from-end convention).
func getIndex(x, y Value) (Value, error) {
	if m, ok := x.(Mapping); ok {
		v, found, err := m.Get(y)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("key %s not found in %s", y, x.Type())
		}
		return v, nil
	}
	if ix, ok := x.(Indexable); ok {
		i, err := indexOperand(y, ix.Len())
		if err != nil {
			return nil, err
		}
		return ix.Index(i), nil
	}
	return nil, fmt.Errorf("%s value is not indexable", x.Type())
}

// setIndex implements the SETINDEX opcode: x[y] = z.
func setIndex(x, y, z Value) error {
	if hk, ok := x.(HasSetKey); ok {
		return hk.SetKey(y, z)
	}
	if hi, ok := x.(HasSetIndex); ok {
		i, err := indexOperand(y, hi.Len())
		if err != nil {
			return err
		}
		return hi.SetIndex(i, z)
	}
	return fmt.Errorf("%s value does not support item assignment", x.Type())
}

// indexOperand converts y to an in-range, non-negative index into a sequence
// of the given length, resolving negative indices relative to the end the
// way the compiler expects at every SETINDEX/INDEX site.
func indexOperand(y Value, length int) (int, error) {
	iv, ok := y.(Int)
	if !ok {
		return 0, fmt.Errorf("index must be an integer, got %s", y.Type())
	}
	i := int(iv)
	if i < 0 {
		i += length
	}
	if i < 0 || i >= length {
		return 0, fmt.Errorf("index %d out of range (length %d)", iv, length)
	}
	return i, nil
}

// length implements the LEN opcode, reporting the size of a string, array,
// tuple or map.
func length(x Value) (Value, error) {
	switch x := x.(type) {
	case String:
		return Int(len(x)), nil
	case Sequence:
		return Int(x.Len()), nil
	case Indexable:
		return Int(x.Len()), nil
	}
	return nil, fmt.Errorf("%s value has no length", x.Type())
}

// sliceValue implements the SLICE opcode: x[lo:hi:step]. lo, hi and step may
// each be Nil to request the default (0, Len(x), 1 respectively).
func sliceValue(x, lo, hi, step Value) (Value, error) {
	stepN := 1
	if step != Nil {
		si, ok := step.(Int)
		if !ok || si == 0 {
			return nil, fmt.Errorf("slice step must be a non-zero integer")
		}
		stepN = int(si)
	}

	switch x := x.(type) {
	case *Array:
		loN, hiN, err := sliceBounds(lo, hi, x.Len(), stepN)
		if err != nil {
			return nil, err
		}
		return x.Slice(loN, hiN, stepN), nil
	case String:
		loN, hiN, err := sliceBounds(lo, hi, len(x), stepN)
		if err != nil {
			return nil, err
		}
		if stepN != 1 {
			return nil, fmt.Errorf("string slice does not support a step")
		}
		return x[loN:hiN], nil
	}
	return nil, fmt.Errorf("%s value is not sliceable", x.Type())
}

func sliceBounds(lo, hi Value, length, step int) (int, int, error) {
	loN, hiN := 0, length
	if step < 0 {
		loN, hiN = length-1, -1
	}
	if lo != Nil {
		v, ok := lo.(Int)
		if !ok {
			return 0, 0, fmt.Errorf("slice bound must be an integer, got %s", lo.Type())
		}
		loN = int(v)
		if loN < 0 {
			loN += length
		}
	}
	if hi != Nil {
		v, ok := hi.(Int)
		if !ok {
			return 0, 0, fmt.Errorf("slice bound must be an integer, got %s", hi.Type())
		}
		hiN = int(v)
		if hiN < 0 {
			hiN += length
		}
	}
	if loN < 0 {
		loN = 0
	}
	if hiN > length {
		hiN = length
	}
	if hiN < loN {
		hiN = loN
	}
	return loN, hiN, nil
}

// propertyKey converts an index value to the property-name string form used
// by objects, the way bracket access coerces its key.
func propertyKey(k Value) (string, error) {
	switch k := k.(type) {
	case String:
		return string(k), nil
	case Int:
		return fmt.Sprint(int64(k)), nil
	case Float:
		return fmt.Sprint(float64(k)), nil
	}
	return "", fmt.Errorf("%s value cannot be used as a property key", k.Type())
}

// hasKey implements the HASKEY opcode (the `in` operator): it reports
// whether k is an own or inherited key of x.
func hasKey(x, k Value) (bool, error) {
	if m, ok := x.(Mapping); ok {
		_, found, err := m.Get(k)
		return found, err
	}
	if ix, ok := x.(Indexable); ok {
		i, ok := k.(Int)
		return ok && int(i) >= 0 && int(i) < ix.Len(), nil
	}
	return false, fmt.Errorf("cannot use 'in' on %s value", x.Type())
}

// instanceOf implements the INSTOF opcode: it walks x's prototype chain
// looking for y's "prototype" property.
func instanceOf(x, y Value) (bool, error) {
	ha, ok := y.(HasAttrs)
	if !ok {
		return false, fmt.Errorf("right-hand side of instanceof is not an object (%s)", y.Type())
	}
	pv, err := ha.Attr("prototype")
	if err != nil {
		return false, err
	}
	proto, ok := pv.(*Object)
	if !ok {
		return false, fmt.Errorf("right-hand side of instanceof has no object prototype property")
	}
	o, ok := x.(*Object)
	if !ok {
		return false, nil
	}
	for cur := o.Prototype(); cur != nil; cur = cur.Prototype() {
		if cur == proto {
			return true, nil
		}
	}
	return false, nil
}

// deleteKey implements the DELPROP and DELINDEX opcodes. Like the delete
// operator it reports true when the property is absent after the call,
// whether or not it existed before.
func deleteKey(x, k Value) (bool, error) {
	switch x := x.(type) {
	case *Object:
		name, err := propertyKey(k)
		if err != nil {
			return false, err
		}
		x.DeleteProperty(name)
		return true, nil
	case *Map:
		x.Delete(k)
		return true, nil
	}
	return false, fmt.Errorf("cannot delete properties of %s value", x.Type())
}

// typeOf implements the POUND/typeof opcode, reporting the ECMAScript
// typeof classification of x rather than this package's own internal
// Value.Type() label.
func typeOf(x Value) string {
	switch x.(type) {
	case NilType:
		return "undefined"
	case Bool:
		return "boolean"
	case Int, Float:
		return "number"
	case String:
		return "string"
	case Callable:
		return "function"
	default:
		return "object"
	}
}
