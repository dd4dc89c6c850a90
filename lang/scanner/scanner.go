// Some of the scanner package is adapted from the Go source code:
// https://cs.opensource.google/go/go/+/refs/tags/go1.22.1:src/go/scanner/scanner.go
//
// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scanner tokenizes ECMAScript source text for the parser. It
// follows the same reader/error-handler shape as go/scanner: the caller owns
// a token.File and a token.FileSet, the Scanner only ever advances forward
// through a byte slice, and lexical errors are reported through a callback
// rather than being returned from Scan.
package scanner

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ivscript/iv/lang/token"
)

// Scanner tokenizes a single source file for the parser to consume.
type Scanner struct {
	// immutable state after Init
	file *token.File
	src  []byte
	err  func(pos token.Position, msg string)

	// mutable scanning state
	sb          strings.Builder
	cur         rune // current character, -1 at end of file
	off         int  // byte offset of cur
	roff        int  // byte offset just past cur
	invalidByte byte
	prevTok     token.Token // last non-comment token returned, for regex-vs-divide disambiguation

	// CollectComments, when set before Init (or before the first call to
	// Scan), makes the scanner append every comment it skips to Comments
	// instead of silently discarding it.
	CollectComments bool
	Comments        []RawComment
}

// RawComment is a comment as recovered by the scanner, before the parser
// associates it with an AST node.
type RawComment struct {
	Pos  token.Pos
	Text string
}

var bom = [3]byte{0xEF, 0xBB, 0xBF}

// Init initializes the scanner to tokenize a new file. It panics if the
// file's registered size does not match len(src).
func (s *Scanner) Init(file *token.File, src []byte, errHandler func(token.Position, string)) {
	if file.Size() != len(src) {
		panic(fmt.Sprintf("file size (%d) does not match src len (%d)", file.Size(), len(src)))
	}

	s.file = file
	s.src = src
	s.err = errHandler
	s.sb.Reset()
	s.invalidByte = 0
	s.cur = ' '
	s.off = 0
	s.roff = 0
	s.prevTok = token.ILLEGAL
	s.Comments = s.Comments[:0]

	if len(src) >= len(bom) && bytes.Equal(src[:len(bom)], bom[:]) {
		s.off += len(bom)
		s.roff += len(bom)
	}
	s.advance()
}

func (s *Scanner) peek() byte {
	if s.roff < len(s.src) {
		return s.src[s.roff]
	}
	return 0
}

// advance reads the next Unicode character into s.cur; s.cur < 0 at EOF.
func (s *Scanner) advance() {
	if s.roff >= len(s.src) {
		s.off = len(s.src)
		if s.cur == '\n' {
			s.file.AddLine(s.off)
		}
		s.cur = -1
		return
	}

	s.off = s.roff
	if s.cur == '\n' {
		s.file.AddLine(s.off)
	}

	s.invalidByte = 0
	r, w := rune(s.src[s.roff]), 1
	if r >= utf8.RuneSelf {
		r, w = utf8.DecodeRune(s.src[s.roff:])
		if r == utf8.RuneError && w == 1 {
			s.error(s.off, "illegal UTF-8 encoding")
			s.invalidByte = s.src[s.roff]
		}
	}
	s.roff += w
	s.cur = r
}

func (s *Scanner) error(off int, msg string) {
	if s.err != nil {
		s.err(s.file.Position(s.file.Pos(off)), msg)
	}
}

func (s *Scanner) errorf(off int, format string, args ...any) {
	s.error(off, fmt.Sprintf(format, args...))
}

func (s *Scanner) advanceIf(match byte) bool {
	if s.cur == rune(match) {
		s.advance()
		return true
	}
	return false
}

// Scan returns the next token in the source file, filling tokVal with its
// literal text and decoded value where applicable. Comments never produce a
// token; they are recorded in Comments only when CollectComments is set.
func (s *Scanner) Scan(tokVal *token.Value) (tok token.Token) {
	s.skipWhitespaceAndComments()

	pos := s.file.Pos(s.off)
	start := s.off

	switch cur := s.cur; {
	case isLetter(cur):
		lit := s.ident()
		tok = token.LookupIdent(lit)
		*tokVal = token.Value{Pos: pos, Raw: lit, String: lit}

	case isDecimal(cur) || cur == '.' && isDecimal(rune(s.peek())):
		var base int
		var lit string
		tok, base, lit = s.number()
		*tokVal = token.Value{Pos: pos, Raw: lit}
		switch tok {
		case token.INT:
			v, ok := numberToInt(lit, base)
			if !ok {
				s.error(start, "integer literal value out of range")
			}
			tokVal.Int = v
		case token.FLOAT:
			v, ok := numberToFloat(lit)
			if !ok {
				s.error(start, "float literal value out of range")
			}
			tokVal.Float = v
		}

	default:
		s.advance()
		full := false // true once tokVal has been fully populated below
		switch cur {
		case '"', '\'':
			tok = token.STRING
			lit, val := s.shortString(cur)
			*tokVal = token.Value{Pos: pos, Raw: lit, String: val}
			full = true

		case '/':
			if s.regexAllowed() {
				tok = token.REGEXP
				lit, pattern, flags := s.regexp()
				*tokVal = token.Value{Pos: pos, Raw: lit, String: pattern, Flags: flags}
				full = true
			} else {
				tok = token.SLASH
				if s.advanceIf('=') {
					tok = token.SLASH_EQ
				}
			}

		case '(':
			tok = token.LPAREN
		case ')':
			tok = token.RPAREN
		case '[':
			tok = token.LBRACK
		case ']':
			tok = token.RBRACK
		case '{':
			tok = token.LBRACE
		case '}':
			tok = token.RBRACE
		case ',':
			tok = token.COMMA
		case ';':
			tok = token.SEMI
		case '~':
			tok = token.TILDE

		case '+':
			tok = token.PLUS
			if s.advanceIf('+') {
				tok = token.PLUSPLUS
			} else if s.advanceIf('=') {
				tok = token.PLUS_EQ
			}
		case '-':
			tok = token.MINUS
			if s.advanceIf('-') {
				tok = token.MINUSMINUS
			} else if s.advanceIf('=') {
				tok = token.MINUS_EQ
			}
		case '*':
			tok = token.STAR
			if s.advanceIf('*') {
				tok = token.STARSTAR
			} else if s.advanceIf('=') {
				tok = token.STAR_EQ
			}
		case '%':
			tok = token.PERCENT
			if s.advanceIf('=') {
				tok = token.PERCENT_EQ
			}
		case '&':
			tok = token.AMPERSAND
			if s.advanceIf('&') {
				tok = token.ANDAND
			} else if s.advanceIf('=') {
				tok = token.AMP_EQ
			}
		case '|':
			tok = token.PIPE
			if s.advanceIf('|') {
				tok = token.OROR
			} else if s.advanceIf('=') {
				tok = token.PIPE_EQ
			}
		case '^':
			tok = token.CIRCUMFLEX
			if s.advanceIf('=') {
				tok = token.CIRC_EQ
			}
		case '!':
			tok = token.NOT
			if s.advanceIf('=') {
				tok = token.NEQ
			}
		case '=':
			tok = token.EQ
			if s.advanceIf('=') {
				tok = token.EQEQ
			} else if s.advanceIf('>') {
				tok = token.ARROW
			}
		case '<':
			tok = token.LT
			if s.advanceIf('<') {
				tok = token.LTLT
				if s.advanceIf('=') {
					tok = token.LTLT_EQ
				}
			} else if s.advanceIf('=') {
				tok = token.LE
			}
		case '>':
			tok = token.GT
			if s.advanceIf('>') {
				tok = token.GTGT
				if s.advanceIf('=') {
					tok = token.GTGT_EQ
				}
			} else if s.advanceIf('=') {
				tok = token.GE
			}
		case '.':
			tok = token.DOT
		case ':':
			tok = token.COLON
		case '?':
			tok = token.QUESTION

		case -1:
			tok = token.EOF
			*tokVal = token.Value{Pos: pos}
			s.prevTok = tok
			return tok

		default:
			if cur == utf8.RuneError && s.invalidByte > 0 {
				cur = rune(s.invalidByte)
				s.invalidByte = 0
			}
			s.errorf(start, "illegal character %#U", cur)
			tok = token.ILLEGAL
			*tokVal = token.Value{Pos: pos, Raw: string(cur)}
			full = true
		}
		if !full {
			*tokVal = token.Value{Pos: pos, Raw: tok.String()}
		}
	}
	s.prevTok = tok
	return tok
}

// regexAllowed reports whether a '/' at the current position should be
// scanned as the start of a regexp literal rather than a division or /=
// operator: a regexp literal can start wherever an expression can start.
func (s *Scanner) regexAllowed() bool {
	switch s.prevTok {
	case token.IDENT, token.INT, token.FLOAT, token.STRING, token.REGEXP,
		token.RPAREN, token.RBRACK, token.THIS,
		token.TRUE, token.FALSE, token.NULL, token.UNDEFINED,
		token.PLUSPLUS, token.MINUSMINUS:
		return false
	default:
		return true
	}
}

func (s *Scanner) ident() string {
	start := s.off
	for isLetter(s.cur) || isDigit(s.cur) {
		s.advance()
	}
	return string(s.src[start:s.off])
}

// skipWhitespaceAndComments advances past whitespace, line comments (//...)
// and block comments (/*...*/). Comments never produce a token.
func (s *Scanner) skipWhitespaceAndComments() {
	for {
		for isWhitespace(s.cur) {
			s.advance()
		}
		if s.cur == '/' && s.peek() == '/' {
			s.lineComment()
			continue
		}
		if s.cur == '/' && s.peek() == '*' {
			s.blockComment()
			continue
		}
		return
	}
}

func isWhitespace(rn rune) bool {
	return rn == ' ' || rn == '\t' || rn == '\n' || rn == '\r'
}

func isLetter(rn rune) bool {
	return 'a' <= rn && rn <= 'z' ||
		'A' <= rn && rn <= 'Z' ||
		rn == '_' || rn == '$' ||
		rn >= utf8.RuneSelf && unicode.IsLetter(rn)
}

func isDigit(rn rune) bool {
	return '0' <= rn && rn <= '9' ||
		rn >= utf8.RuneSelf && unicode.IsDigit(rn)
}
