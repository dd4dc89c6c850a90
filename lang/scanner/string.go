package scanner

import (
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"
)

// shortString scans a single- or double-quoted string literal. The opening
// quote has already been consumed, hence the -1 offsets below.
func (s *Scanner) shortString(opening rune) (lit, decoded string) {
	startOff := s.off - 1
	s.sb.Reset()
	pendingSurrogate := rune(0)

	for {
		cur := s.cur
		if cur == '\n' || cur < 0 {
			s.error(startOff, "string literal not terminated")
			break
		}
		s.advance()
		if cur == opening {
			break
		}
		if cur == '\\' {
			s.escape(&pendingSurrogate)
			continue
		}
		writeStringLitRune(&s.sb, &pendingSurrogate, cur)
	}
	if pendingSurrogate != 0 {
		s.sb.WriteRune(utf8.RuneError)
	}
	return string(s.src[startOff:s.off]), s.sb.String()
}

var simpleEscapes = map[rune]rune{
	'b':  '\b',
	'f':  '\f',
	'n':  '\n',
	'r':  '\r',
	't':  '\t',
	'v':  '\v',
	'0':  0,
	'\\': '\\',
	'\'': '\'',
	'"':  '"',
	'\n': '\n', // line continuation
}

// escape parses an escape sequence. The leading backslash has already been
// consumed.
func (s *Scanner) escape(pendingSurrogate *rune) {
	startOff := s.off - 1

	if s.cur == '0' && isDecimal(rune(s.peek())) {
		// not a \0 escape: falls through to the unknown-escape error below
	} else if rn, ok := simpleEscapes[s.cur]; ok {
		s.advance()
		writeStringLitRune(&s.sb, pendingSurrogate, rn)
		return
	}

	illegalOrIncomplete := func() {
		if s.cur < 0 {
			s.error(startOff, "escape sequence not terminated")
			return
		}
		s.errorf(s.off, "illegal character %#U in escape sequence", s.cur)
	}

	var max, rn uint32
	switch {
	case s.cur == 'x':
		s.advance()
		max = 255
		for i := 0; i < 2; i++ {
			if !isHexadecimal(s.cur) {
				illegalOrIncomplete()
				return
			}
			rn = rn*16 + uint32(digitVal(s.cur))
			s.advance()
		}
	case s.cur == 'u':
		s.advance()
		max = unicode.MaxRune
		if s.cur == '{' {
			s.advance()
			var count int
			for isHexadecimal(s.cur) {
				rn = rn*16 + uint32(digitVal(s.cur))
				s.advance()
				count++
			}
			if s.cur != '}' {
				illegalOrIncomplete()
				return
			}
			s.advance()
			if count == 0 || count > 6 {
				s.error(startOff, "escape sequence has an invalid number of hexadecimal digits")
				return
			}
		} else {
			for i := 0; i < 4; i++ {
				if !isHexadecimal(s.cur) {
					illegalOrIncomplete()
					return
				}
				rn = rn*16 + uint32(digitVal(s.cur))
				s.advance()
			}
		}
	default:
		msg := "unknown escape sequence"
		if s.cur < 0 {
			msg = "escape sequence not terminated"
		}
		s.error(startOff, msg)
		return
	}

	if rn > max {
		s.error(startOff, "escape sequence is invalid Unicode code point")
		return
	}
	if utf16.IsSurrogate(rune(rn)) {
		writeStringLitSurrogate(&s.sb, pendingSurrogate, rune(rn))
		return
	}
	writeStringLitRune(&s.sb, pendingSurrogate, rune(rn))
}

func writeStringLitRune(sb *strings.Builder, pendingSurrogate *rune, rn rune) {
	if *pendingSurrogate != 0 {
		sb.WriteRune(utf8.RuneError)
		*pendingSurrogate = 0
	}
	sb.WriteRune(rn)
}

func writeStringLitSurrogate(sb *strings.Builder, pendingSurrogate *rune, rn rune) {
	if *pendingSurrogate == 0 {
		*pendingSurrogate = rn
		return
	}
	sb.WriteRune(utf16.DecodeRune(*pendingSurrogate, rn))
	*pendingSurrogate = 0
}

func digitVal(rn rune) int {
	switch {
	case '0' <= rn && rn <= '9':
		return int(rn - '0')
	case 'a' <= rn && rn <= 'f':
		return int(rn - 'a' + 10)
	case 'A' <= rn && rn <= 'F':
		return int(rn - 'A' + 10)
	}
	return 16
}
