package scanner_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ivscript/iv/lang/scanner"
	"github.com/ivscript/iv/lang/token"
)

func scanAll(t *testing.T, src string) ([]token.Token, []token.Value) {
	t.Helper()

	fset := token.NewFileSet()
	file := fset.AddFile("test.js", -1, len(src))

	var errs token.ErrorList
	var sc scanner.Scanner
	sc.Init(file, []byte(src), func(pos token.Position, msg string) { errs.Add(pos, msg) })

	var toks []token.Token
	var vals []token.Value
	for {
		var v token.Value
		tok := sc.Scan(&v)
		toks = append(toks, tok)
		vals = append(vals, v)
		if tok == token.EOF {
			break
		}
	}
	require.Empty(t, errs, "unexpected scan errors: %v", errs)
	return toks, vals
}

func TestScanPunctuationAndOperators(t *testing.T) {
	toks, _ := scanAll(t, "+ - * / % ** & | ^ ~ << >> ! . , ; : ? => ( ) [ ] { } < > >= <= == != && || =")
	want := []token.Token{
		token.PLUS, token.MINUS, token.STAR, token.SLASH, token.PERCENT, token.STARSTAR,
		token.AMPERSAND, token.PIPE, token.CIRCUMFLEX, token.TILDE, token.LTLT, token.GTGT,
		token.NOT, token.DOT, token.COMMA, token.SEMI, token.COLON, token.QUESTION, token.ARROW,
		token.LPAREN, token.RPAREN, token.LBRACK, token.RBRACK, token.LBRACE, token.RBRACE,
		token.LT, token.GT, token.GE, token.LE, token.EQEQ, token.NEQ, token.ANDAND, token.OROR,
		token.EQ, token.EOF,
	}
	require.Equal(t, want, toks)
}

func TestScanCompoundAssign(t *testing.T) {
	toks, _ := scanAll(t, "+= -= *= /= %= &= |= ^= <<= >>= ++ --")
	want := []token.Token{
		token.PLUS_EQ, token.MINUS_EQ, token.STAR_EQ, token.SLASH_EQ, token.PERCENT_EQ,
		token.AMP_EQ, token.PIPE_EQ, token.CIRC_EQ, token.LTLT_EQ, token.GTGT_EQ,
		token.PLUSPLUS, token.MINUSMINUS, token.EOF,
	}
	require.Equal(t, want, toks)
}

func TestScanIdentifiersAndKeywords(t *testing.T) {
	toks, vals := scanAll(t, "let x = foo; if (x) { return }")
	want := []token.Token{
		token.LET, token.IDENT, token.EQ, token.IDENT, token.SEMI,
		token.IF, token.LPAREN, token.IDENT, token.RPAREN,
		token.LBRACE, token.RETURN, token.RBRACE, token.EOF,
	}
	require.Equal(t, want, toks)
	require.Equal(t, "x", vals[1].String)
	require.Equal(t, "foo", vals[3].String)
}

func TestScanNumbers(t *testing.T) {
	toks, vals := scanAll(t, "42 3.14 0x1F 0o17 0b101 1e3 1_000")
	require.Equal(t, []token.Token{
		token.INT, token.FLOAT, token.INT, token.INT, token.INT, token.FLOAT, token.INT, token.EOF,
	}, toks)
	require.EqualValues(t, 42, vals[0].Int)
	require.InDelta(t, 3.14, vals[1].Float, 0.0001)
	require.EqualValues(t, 31, vals[2].Int)
	require.EqualValues(t, 15, vals[3].Int)
	require.EqualValues(t, 5, vals[4].Int)
	require.InDelta(t, 1000, vals[5].Float, 0.0001)
	require.EqualValues(t, 1000, vals[6].Int)
}

func TestScanStrings(t *testing.T) {
	toks, vals := scanAll(t, `"hello\nworld" 'it''s'`)
	require.Equal(t, []token.Token{token.STRING, token.STRING, token.STRING, token.EOF}, toks)
	require.Equal(t, "hello\nworld", vals[0].String)
	require.Equal(t, "it", vals[1].String)
	require.Equal(t, "s", vals[2].String)
}

func TestScanStringEscapes(t *testing.T) {
	_, vals := scanAll(t, `"\x41B\u{43}"`)
	require.Equal(t, "ABC", vals[0].String)
}

func TestScanComments(t *testing.T) {
	toks, _ := scanAll(t, "let x = 1; // a trailing comment\n/* a block\ncomment */ let y = 2;")
	require.Equal(t, []token.Token{
		token.LET, token.IDENT, token.EQ, token.INT, token.SEMI,
		token.LET, token.IDENT, token.EQ, token.INT, token.SEMI,
		token.EOF,
	}, toks)
}

func TestScanRegexpLiteral(t *testing.T) {
	toks, vals := scanAll(t, `x = /ab+c[/]/gi;`)
	require.Equal(t, []token.Token{
		token.IDENT, token.EQ, token.REGEXP, token.SEMI, token.EOF,
	}, toks)
	require.Equal(t, "ab+c[/]", vals[2].String)
	require.Equal(t, "gi", vals[2].Flags)
}

func TestScanDivideNotRegexp(t *testing.T) {
	toks, _ := scanAll(t, "a / b")
	require.Equal(t, []token.Token{token.IDENT, token.SLASH, token.IDENT, token.EOF}, toks)
}

func TestFileSetPositionsAcrossLines(t *testing.T) {
	fset := token.NewFileSet()
	file := fset.AddFile("test.js", -1, len("let x\nlet y"))

	var sc scanner.Scanner
	sc.Init(file, []byte("let x\nlet y"), func(token.Position, string) { t.Fail() })

	var v token.Value
	sc.Scan(&v) // let
	sc.Scan(&v) // x
	sc.Scan(&v) // let (second line)
	pos := fset.Position(v.Pos)
	require.Equal(t, 2, pos.Line)
}
