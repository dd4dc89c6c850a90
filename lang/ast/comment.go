package ast

import "github.com/ivscript/iv/lang/token"

// Comment is a single line (//) or block (/* */) comment recovered from the
// source text. Node names the AST node this comment is reported under by
// the printer; see Chunk.Comments.
type Comment struct {
	Pos  token.Pos
	Text string
	Node Node
}

func (n *Comment) Span() (token.Pos, token.Pos) { return n.Pos, n.Pos + token.Pos(len(n.Text)) }
func (n *Comment) Walk(Visitor)                  {}
