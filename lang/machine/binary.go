package machine

import (
	"fmt"
	"math"

	"github.com/ivscript/iv/lang/token"
)

// Binary applies the binary operator op to x and y, trying x as the left
// operand first and y as the right operand if x declines.
func Binary(op token.Token, x, y Value) (Value, error) {
	if z, err := binaryArith(op, x, y); z != nil || err != nil {
		return z, err
	}

	if hb, ok := x.(HasBinary); ok {
		z, err := hb.Binary(op, y, Left)
		if z != nil || err != nil {
			return z, err
		}
	}
	if hb, ok := y.(HasBinary); ok {
		z, err := hb.Binary(op, x, Right)
		if z != nil || err != nil {
			return z, err
		}
	}

	return nil, fmt.Errorf("unsupported binary op: %s %s %s", x.Type(), op, y.Type())
}

// binaryArith implements the arithmetic and string-concatenation fast paths
// shared by every numeric and string type, so individual value types need
// not each repeat Int/Float promotion logic in a HasBinary method.
func binaryArith(op token.Token, x, y Value) (Value, error) {
	switch x := x.(type) {
	case Int:
		if y, ok := y.(Int); ok {
			return intArith(op, x, y)
		}
		if y, ok := y.(Float); ok {
			return floatArith(op, Float(x), y)
		}
	case Float:
		if y, ok := y.(Float); ok {
			return floatArith(op, x, y)
		}
		if y, ok := y.(Int); ok {
			return floatArith(op, x, Float(y))
		}
	case String:
		if y, ok := y.(String); ok && op == token.PLUS {
			return x + y, nil
		}
	}
	return nil, nil
}

func intArith(op token.Token, x, y Int) (Value, error) {
	switch op {
	case token.PLUS:
		return x + y, nil
	case token.MINUS:
		return x - y, nil
	case token.STAR:
		return x * y, nil
	case token.STARSTAR:
		return Int(math.Pow(float64(x), float64(y))), nil
	case token.PERCENT:
		if y == 0 {
			return nil, fmt.Errorf("integer modulo by zero")
		}
		return x % y, nil
	case token.SLASH:
		// division always yields a float in this language, even for two ints.
		return Float(x) / Float(y), nil
	case token.AMPERSAND:
		return x & y, nil
	case token.PIPE:
		return x | y, nil
	case token.CIRCUMFLEX:
		return x ^ y, nil
	case token.LTLT:
		return x << uint(y), nil
	case token.GTGT:
		return x >> uint(y), nil
	}
	return nil, nil
}

func floatArith(op token.Token, x, y Float) (Value, error) {
	switch op {
	case token.PLUS:
		return x + y, nil
	case token.MINUS:
		return x - y, nil
	case token.STAR:
		return x * y, nil
	case token.SLASH:
		return x / y, nil
	case token.STARSTAR:
		return Float(math.Pow(float64(x), float64(y))), nil
	}
	return nil, nil
}

// Unary applies the unary operator op to x.
func Unary(op token.Token, x Value) (Value, error) {
	if op == token.TYPEOF {
		return String(typeOf(x)), nil
	}

	switch x := x.(type) {
	case Int:
		switch op {
		case token.MINUS:
			return -x, nil
		case token.PLUS:
			return x, nil
		case token.TILDE:
			return ^x, nil
		}
	case Float:
		switch op {
		case token.MINUS:
			return -x, nil
		case token.PLUS:
			return x, nil
		}
	case Bool:
		if op == token.NOT {
			return !x, nil
		}
	}

	if hu, ok := x.(HasUnary); ok {
		z, err := hu.Unary(op)
		if z != nil || err != nil {
			return z, err
		}
	}

	return nil, fmt.Errorf("unsupported unary op: %s%s", op, x.Type())
}
