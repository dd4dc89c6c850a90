package ast

import "github.com/ivscript/iv/lang/token"

// BadExpr is a placeholder for an expression that could not be parsed. It
// lets the parser keep producing a tree (and keep looking for further
// errors) instead of aborting on the first syntax error.
type BadExpr struct {
	From, To token.Pos
}

func (*BadExpr) exprNode()                      {}
func (n *BadExpr) Span() (token.Pos, token.Pos) { return n.From, n.To }
func (n *BadExpr) Walk(Visitor)                 {}

// BadStmt is a placeholder for a statement that could not be parsed.
type BadStmt struct {
	From, To token.Pos
}

func (*BadStmt) IsLoop() bool                   { return false }
func (n *BadStmt) Span() (token.Pos, token.Pos) { return n.From, n.To }
func (n *BadStmt) Walk(Visitor)                 {}
