package machine

import (
	"fmt"
	"strconv"
)

// Int is the type of an integer value.
type Int int64

var (
	_ Value   = Int(0)
	_ Ordered = Int(0)
)

func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }
func (i Int) Type() string   { return "int" }

// AsExactInt returns the exact integer held by v: an Int directly, or a
// Float with an integral value.
func AsExactInt(v Value) (Int, error) {
	switch v := v.(type) {
	case Int:
		return v, nil
	case Float:
		if v == Float(Int(v)) {
			return Int(v), nil
		}
	}
	return 0, fmt.Errorf("%s is not an exact integer", v)
}

// Cmp implements comparison of two Int values.
func (i Int) Cmp(v Value) (int, error) {
	j := v.(Int)
	switch {
	case i > j:
		return +1, nil
	case i < j:
		return -1, nil
	default:
		return 0, nil
	}
}
