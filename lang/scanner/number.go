package scanner

import (
	"strconv"
	"strings"

	"github.com/ivscript/iv/lang/token"
)

func (s *Scanner) number() (tok token.Token, base int, lit string) {
	startOff := s.off
	tok = token.ILLEGAL

	base = 10
	prefix := rune(0) // one of 0 (decimal), 'x', 'o', or 'b'
	digsep := 0       // bit 0: digit present, bit 1: '_' present
	invalid := -1     // offset of an invalid digit in the literal, or < 0

	if s.cur != '.' {
		tok = token.INT
		if s.cur == '0' {
			s.advance()
			switch lower(s.cur) {
			case 'x':
				s.advance()
				base, prefix = 16, 'x'
			case 'o':
				s.advance()
				base, prefix = 8, 'o'
			case 'b':
				s.advance()
				base, prefix = 2, 'b'
			default:
				digsep = 1 // leading 0
			}
		}
		digsep |= s.digits(base, &invalid)
	}

	if s.cur == '.' {
		tok = token.FLOAT
		if prefix == 'o' || prefix == 'b' {
			s.error(s.off, "invalid radix point in "+litname(prefix))
		}
		s.advance()
		digsep |= s.digits(base, &invalid)
	}

	if digsep&1 == 0 {
		s.error(s.off, litname(prefix)+" has no digits")
	}

	if e := lower(s.cur); e == 'e' && prefix == 0 {
		s.advance()
		tok = token.FLOAT
		if s.cur == '+' || s.cur == '-' {
			s.advance()
		}
		ds := s.digits(10, nil)
		digsep |= ds
		if ds&1 == 0 {
			s.error(s.off, "exponent has no digits")
		}
	} else if e == 'e' && prefix != 0 {
		s.errorf(s.off, "%q exponent requires decimal mantissa", s.cur)
	}

	lit = string(s.src[startOff:s.off])
	if tok == token.INT && invalid >= 0 {
		s.errorf(invalid, "invalid digit %q in %s", lit[invalid-startOff], litname(prefix))
	}
	if digsep&2 != 0 {
		if i := invalidSep(lit); i >= 0 {
			s.error(startOff+i, "'_' must separate successive digits")
		}
	}
	return tok, base, lit
}

func isDecimal(rn rune) bool { return '0' <= rn && rn <= '9' }

func isHexadecimal(rn rune) bool {
	return isDecimal(rn) ||
		'a' <= rn && rn <= 'f' ||
		'A' <= rn && rn <= 'F'
}

// digits accepts the sequence { digit | '_' }. If base <= 10, any decimal
// digit is accepted but the offset of the first digit >= base is recorded
// in *invalid (if not already set). The returned bitset has bit 0 set if any
// digit was seen, bit 1 set if a '_' separator was seen.
func (s *Scanner) digits(base int, invalid *int) (digsep int) {
	if base <= 10 {
		max := rune('0' + base)
		for isDecimal(s.cur) || s.cur == '_' {
			ds := 1
			if s.cur == '_' {
				ds = 2
			} else if s.cur >= max && invalid != nil && *invalid < 0 {
				*invalid = s.off
			}
			digsep |= ds
			s.advance()
		}
		return digsep
	}
	for isHexadecimal(s.cur) || s.cur == '_' {
		ds := 1
		if s.cur == '_' {
			ds = 2
		}
		digsep |= ds
		s.advance()
	}
	return digsep
}

// invalidSep returns the index of the first invalid '_' separator in x, or -1.
func invalidSep(x string) int {
	x1 := ' '
	d := '.'
	i := 0

	if len(x) >= 2 && x[0] == '0' {
		x1 = lower(rune(x[1]))
		if x1 == 'x' || x1 == 'o' || x1 == 'b' {
			d = '0'
			i = 2
		}
	}

	for ; i < len(x); i++ {
		p := d
		d = rune(x[i])
		switch {
		case d == '_':
			if p != '0' {
				return i
			}
		case isDecimal(d) || x1 == 'x' && isHexadecimal(d):
			d = '0'
		default:
			if p == '_' {
				return i - 1
			}
			d = '.'
		}
	}
	if d == '_' {
		return len(x) - 1
	}
	return -1
}

func litname(prefix rune) string {
	switch prefix {
	case 'x':
		return "hexadecimal literal"
	case 'o':
		return "octal literal"
	case 'b':
		return "binary literal"
	}
	return "decimal literal"
}

func lower(ch rune) rune { return ('a' - 'A') | ch }

func numberToInt(lit string, base int) (int64, bool) {
	if base != 10 {
		lit = lit[2:]
	}
	v, err := strconv.ParseInt(strings.ReplaceAll(lit, "_", ""), base, 64)
	return v, err == nil
}

func numberToFloat(lit string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(lit, "_", ""), 64)
	return v, err == nil
}
