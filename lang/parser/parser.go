// Package parser implements a recursive-descent parser that transforms
// ECMAScript source code into an abstract syntax tree.
package parser

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/ivscript/iv/lang/ast"
	"github.com/ivscript/iv/lang/scanner"
	"github.com/ivscript/iv/lang/token"
)

// Mode is a set of bit flags that configures the parsing. By default (0),
// the parser discards comments.
type Mode uint

const (
	Comments Mode = 1 << iota // parse and report comments, collected on the resulting Chunk.
)

// ParseFiles parses the source files and returns the fileset along with the
// ASTs and any error encountered. The error, if non-nil, is guaranteed to be
// a token.ErrorList.
func ParseFiles(ctx context.Context, mode Mode, files ...string) (*token.FileSet, []*ast.Chunk, error) {
	if len(files) == 0 {
		return nil, nil, nil
	}

	var p parser
	res := make([]*ast.Chunk, 0, len(files))
	fs := token.NewFileSet()

	for _, file := range files {
		b, err := os.ReadFile(file)
		if err != nil {
			p.errors.Add(token.Position{Filename: file}, err.Error())
			continue
		}
		p.init(fs, file, b, mode)
		ch := p.parseChunk()
		ch.Name = file
		p.attachComments(ch, mode)
		res = append(res, ch)
	}
	p.errors.Sort()
	return fs, res, p.errors.Err()
}

// ParseChunk parses a single chunk from a slice of bytes and returns the
// AST and any error encountered. The chunk is added to fset under the name
// filename. The error, if non-nil, is guaranteed to be a token.ErrorList.
func ParseChunk(ctx context.Context, mode Mode, fset *token.FileSet, filename string, src []byte) (*ast.Chunk, error) {
	var p parser
	p.init(fset, filename, src, mode)
	ch := p.parseChunk()
	ch.Name = filename
	p.attachComments(ch, mode)
	return ch, p.errors.Err()
}

// attachComments reports every comment the scanner collected for this chunk
// against the chunk itself; this package does not track which narrower node
// a comment annotates in the source.
func (p *parser) attachComments(ch *ast.Chunk, mode Mode) {
	if mode&Comments == 0 || len(p.scanner.Comments) == 0 {
		return
	}
	ch.Comments = make([]*ast.Comment, len(p.scanner.Comments))
	for i, c := range p.scanner.Comments {
		ch.Comments[i] = &ast.Comment{Pos: c.Pos, Text: c.Text, Node: ch}
	}
}

// parser parses a source file and produces an AST.
type parser struct {
	scanner scanner.Scanner
	errors  token.ErrorList
	file    *token.File

	tok token.Token
	val token.Value

	// noIn suppresses the `in` binary operator while parsing the init
	// clause of a for statement, so `for (x in xs)` is recognized as a
	// for-in head rather than the expression `x in xs`.
	noIn bool
}

func (p *parser) init(fset *token.FileSet, filename string, src []byte, mode Mode) {
	p.file = fset.AddFile(filename, -1, len(src))
	p.scanner.CollectComments = mode&Comments != 0
	p.scanner.Init(p.file, src, p.errors.Add)
	p.advance()
}

func (p *parser) advance() {
	p.tok = p.scanner.Scan(&p.val)
}

var errPanicMode = errors.New("panic mode")

// expect consumes the current token if it is one of toks and returns its
// position; otherwise it records a diagnostic and unwinds via errPanicMode,
// which parseStmt recovers from to produce a BadStmt and resynchronize.
func (p *parser) expect(toks ...token.Token) token.Pos {
	pos := p.val.Pos
	for _, tok := range toks {
		if p.tok == tok {
			p.advance()
			return pos
		}
	}

	var buf strings.Builder
	for i, tok := range toks {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(tok.GoString())
	}
	lbl := buf.String()
	if len(toks) > 1 {
		lbl = "one of " + lbl
	}
	p.errorExpected(pos, lbl)
	panic(errPanicMode)
}

func (p *parser) error(pos token.Pos, msg string) {
	p.errors.Add(p.file.Position(pos), msg)
}

func (p *parser) errorExpected(pos token.Pos, msg string) {
	msg = "expected " + msg
	if pos == p.val.Pos {
		if lit := p.tok.Literal(p.val); lit != "" {
			msg += ", found " + lit
		} else {
			msg += ", found " + p.tok.GoString()
		}
	}
	p.error(pos, msg)
}

func tokenIn(t token.Token, toks ...token.Token) bool {
	for _, tok := range toks {
		if t == tok {
			return true
		}
	}
	return false
}
