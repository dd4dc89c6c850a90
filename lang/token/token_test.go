package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenString(t *testing.T) {
	for tok := Token(0); tok < maxToken; tok++ {
		require.NotEmpty(t, tok.String())
	}
}

func TestLookupIdent(t *testing.T) {
	for tok := kwStart + 1; tok < kwEnd; tok++ {
		require.Equal(t, tok, LookupIdent(tok.String()))
	}
	require.Equal(t, IDENT, LookupIdent("notAKeyword"))
}

func TestFileSetPosition(t *testing.T) {
	fset := NewFileSet()
	f := f(t, fset, "a.js", "line1\nline2\nline3")

	p := f.Pos(6) // start of "line2"
	pos := fset.Position(p)
	require.Equal(t, "a.js", pos.Filename)
	require.Equal(t, 2, pos.Line)
	require.Equal(t, 1, pos.Column)
}

func f(t *testing.T, fset *FileSet, name, src string) *File {
	t.Helper()
	file := fset.AddFile(name, -1, len(src))
	for i, c := range src {
		if c == '\n' {
			file.AddLine(i + 1)
		}
	}
	return file
}
