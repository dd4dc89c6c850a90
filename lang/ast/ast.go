// Package ast defines the abstract syntax tree produced by the parser for
// the expression/statement subset of ECMAScript this engine executes. Nodes
// carry enough position information to report diagnostics and to drive the
// resolver and compiler passes; they do not attempt to be a lossless,
// round-trippable representation of the source text.
package ast

import (
	"github.com/ivscript/iv/lang/token"
)

// Node is implemented by every AST node.
type Node interface {
	// Span reports the start and end position of the node.
	Span() (start, end token.Pos)
	// Walk enters the node's children in order, implementing the Visitor
	// pattern together with the package-level Walk function.
	Walk(v Visitor)
}

// Expr is implemented by every expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is implemented by every statement node.
type Stmt interface {
	Node
	// IsLoop reports whether the statement introduces a loop scope (for,
	// while), which the resolver needs to validate break/continue.
	IsLoop() bool
}

// Chunk is the root node of a parsed file.
type Chunk struct {
	Name  string
	Block *Block
	EOF   token.Pos

	// Info is set by the resolver to the chunk's top-level function scope
	// record (a *resolver.FuncInfo). It is declared as an opaque interface
	// for the same import-cycle reason as Binding.
	Info interface{}

	// Comments holds every comment recovered from this chunk's source text,
	// when the parser was run with the Comments mode. This package does not
	// attempt to associate a comment with the specific statement or
	// expression it annotates in the source, so every comment is reported
	// against the Chunk itself rather than a narrower node.
	Comments []*Comment
}

func (n *Chunk) Span() (token.Pos, token.Pos) {
	if n.Block != nil {
		return n.Block.Span()
	}
	return n.EOF, n.EOF
}
func (n *Chunk) Walk(v Visitor) {
	if n.Block != nil {
		Walk(v, n.Block)
	}
}

// Block is a brace-delimited sequence of statements.
type Block struct {
	Start, End token.Pos
	Stmts      []Stmt
}

func (n *Block) Span() (token.Pos, token.Pos) { return n.Start, n.End }
func (n *Block) Walk(v Visitor) {
	for _, s := range n.Stmts {
		Walk(v, s)
	}
}

// FuncSignature is the parameter list shared by function declarations and
// function expressions.
type FuncSignature struct {
	Lparen token.Pos
	Params []*IdentExpr
	Rparen token.Pos

	// Info is set by the resolver to the function's scope record (a
	// *resolver.FuncInfo), which the compiler reads to size the function's
	// stack frame and heap environment.
	Info interface{}
}
