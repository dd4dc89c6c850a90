package machine

import (
	"fmt"

	"github.com/ivscript/iv/lang/token"
)

// hasTruth is implemented by values that know their own truthiness, as
// opposed to the always-true default for values with no notion of zero.
type hasTruth interface {
	Truth() Bool
}

// Truth reports the boolean value of v, the way a condition or logical
// operator consults it.
func Truth(v Value) Bool {
	switch v := v.(type) {
	case NilType:
		return False
	case Bool:
		return v
	case Int:
		return Bool(v != 0)
	case Float:
		return Bool(v != 0)
	case String:
		return Bool(len(v) > 0)
	case hasTruth:
		return v.Truth()
	default:
		return True
	}
}

// Iterate returns an iterator over x, or nil if x is not iterable. The
// ITERPUSH opcode turns a nil iterator into a runtime error at the loop
// site.
func Iterate(x Value) Iterator {
	if it, ok := x.(Iterable); ok {
		return it.Iterate()
	}
	return nil
}

// Compare reports the result of the comparison op applied to x and y. x and y
// must be of the same dynamic type, except that numeric types compare across
// Int/Float. Identity is used as a last resort for types with no Ordered or
// HasEqual implementation.
func Compare(op token.Token, x, y Value) (bool, error) {
	if ox, ok := x.(Ordered); ok {
		cmp, err := orderedCmp(ox, y)
		if err != nil {
			return false, err
		}
		return threeway(op, cmp), nil
	}

	if op == token.EQEQ || op == token.NEQ {
		eq, err := equal(x, y)
		if err != nil {
			return false, err
		}
		if op == token.NEQ {
			return !eq, nil
		}
		return eq, nil
	}

	return false, fmt.Errorf("%s %s %s not implemented", x.Type(), op, y.Type())
}

// orderedCmp compares x and y, promoting an Int/Float mismatch to Float so
// that 1 < 1.5 and similar cross-type comparisons behave sensibly.
func orderedCmp(x Ordered, y Value) (int, error) {
	if xf, ok := x.(Float); ok {
		if yi, ok := y.(Int); ok {
			y = Float(yi)
		}
		return xf.Cmp(y)
	}
	if xi, ok := x.(Int); ok {
		if yf, ok := y.(Float); ok {
			return Float(xi).Cmp(yf)
		}
	}
	return x.Cmp(y)
}

func equal(x, y Value) (bool, error) {
	if eq, ok := x.(HasEqual); ok {
		return eq.Equals(y)
	}
	return x == y, nil
}

// threeway maps a three-valued comparison result to the outcome of op.
func threeway(op token.Token, cmp int) bool {
	switch op {
	case token.LT:
		return cmp < 0
	case token.LE:
		return cmp <= 0
	case token.GT:
		return cmp > 0
	case token.GE:
		return cmp >= 0
	case token.EQEQ:
		return cmp == 0
	case token.NEQ:
		return cmp != 0
	default:
		panic(fmt.Sprintf("unexpected comparison operator %s", op))
	}
}
