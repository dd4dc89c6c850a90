package ast

import "github.com/ivscript/iv/lang/token"

type (
	// DeclStmt represents a var/let/const declaration, e.g. let x = 1, y = 2.
	DeclStmt struct {
		DeclType token.Token // VAR, LET or CONST
		DeclPos  token.Pos
		Names    []*IdentExpr
		Values   []Expr // index-aligned with Names; nil entries for uninitialized declarations
		End      token.Pos
	}

	// ExprStmt wraps a bare expression used as a statement, e.g. a function
	// call or an assignment (assignment is an expression in this language,
	// see AssignExpr).
	ExprStmt struct {
		X Expr
	}

	// IfStmt represents an if/else if/else chain.
	IfStmt struct {
		If    token.Pos
		Cond  Expr
		True  *Block
		False *Block // may contain a single IfStmt for "else if"; nil if no else
		End   token.Pos
	}

	// ForStmt represents a C-style three-part for loop. Init may be a
	// *DeclStmt or an *ExprStmt; either may be nil.
	ForStmt struct {
		For  token.Pos
		Init Stmt
		Cond Expr
		Post Stmt
		Body *Block
	}

	// ForInStmt represents a for-in or for-of loop.
	ForInStmt struct {
		For     token.Pos
		DeclTyp token.Token // VAR, LET, CONST, or ILLEGAL if no declaration
		Name    *IdentExpr
		Of      bool // true for for-of, false for for-in
		Right   Expr
		Body    *Block
	}

	// WhileStmt represents a while loop.
	WhileStmt struct {
		While token.Pos
		Cond  Expr
		Body  *Block
	}

	// FuncStmt represents a named function declaration.
	FuncStmt struct {
		Function token.Pos
		Name     *IdentExpr
		Sig      *FuncSignature
		Body     *Block
	}

	// ReturnStmt represents a return statement, with an optional value.
	ReturnStmt struct {
		Return token.Pos
		Value  Expr // nil for a bare return
	}

	// BreakStmt represents a break statement.
	BreakStmt struct{ TokenPos token.Pos }

	// ContinueStmt represents a continue statement.
	ContinueStmt struct{ TokenPos token.Pos }

	// ThrowStmt represents a throw statement.
	ThrowStmt struct {
		Throw token.Pos
		Value Expr
	}

	// TryStmt represents a try/catch/finally statement. Catch and Finally may
	// each be nil, but not both.
	TryStmt struct {
		Try        token.Pos
		Body       *Block
		CatchParam *IdentExpr // nil if the catch has no binding, or no catch at all
		HasCatch   bool
		Catch      *Block
		Finally    *Block
	}

	// WithStmt represents a with statement: every identifier resolved inside
	// Body must be treated as LOOKUP by the resolver.
	WithStmt struct {
		With   token.Pos
		Object Expr
		Body   *Block
	}

	// BlockStmt wraps a bare nested block, e.g. `{ ... }` used as a statement.
	BlockStmt struct {
		Body *Block
	}
)

func (*DeclStmt) IsLoop() bool     { return false }
func (*ExprStmt) IsLoop() bool     { return false }
func (*IfStmt) IsLoop() bool       { return false }
func (*ForStmt) IsLoop() bool      { return true }
func (*ForInStmt) IsLoop() bool    { return true }
func (*WhileStmt) IsLoop() bool    { return true }
func (*FuncStmt) IsLoop() bool     { return false }
func (*ReturnStmt) IsLoop() bool   { return false }
func (*BreakStmt) IsLoop() bool    { return false }
func (*ContinueStmt) IsLoop() bool { return false }
func (*ThrowStmt) IsLoop() bool    { return false }
func (*TryStmt) IsLoop() bool      { return false }
func (*WithStmt) IsLoop() bool     { return false }
func (*BlockStmt) IsLoop() bool    { return false }

func (n *DeclStmt) Span() (token.Pos, token.Pos) { return n.DeclPos, n.End }
func (n *DeclStmt) Walk(v Visitor) {
	for _, name := range n.Names {
		Walk(v, name)
	}
	for _, val := range n.Values {
		if val != nil {
			Walk(v, val)
		}
	}
}

func (n *ExprStmt) Span() (token.Pos, token.Pos) { return n.X.Span() }
func (n *ExprStmt) Walk(v Visitor)               { Walk(v, n.X) }

func (n *IfStmt) Span() (token.Pos, token.Pos) { return n.If, n.End }
func (n *IfStmt) Walk(v Visitor) {
	Walk(v, n.Cond)
	Walk(v, n.True)
	if n.False != nil {
		Walk(v, n.False)
	}
}

func (n *ForStmt) Span() (token.Pos, token.Pos) {
	_, end := n.Body.Span()
	return n.For, end
}
func (n *ForStmt) Walk(v Visitor) {
	if n.Init != nil {
		Walk(v, n.Init)
	}
	if n.Cond != nil {
		Walk(v, n.Cond)
	}
	if n.Post != nil {
		Walk(v, n.Post)
	}
	Walk(v, n.Body)
}

func (n *ForInStmt) Span() (token.Pos, token.Pos) {
	_, end := n.Body.Span()
	return n.For, end
}
func (n *ForInStmt) Walk(v Visitor) {
	Walk(v, n.Name)
	Walk(v, n.Right)
	Walk(v, n.Body)
}

func (n *WhileStmt) Span() (token.Pos, token.Pos) {
	_, end := n.Body.Span()
	return n.While, end
}
func (n *WhileStmt) Walk(v Visitor) { Walk(v, n.Cond); Walk(v, n.Body) }

func (n *FuncStmt) Span() (token.Pos, token.Pos) {
	_, end := n.Body.Span()
	return n.Function, end
}
func (n *FuncStmt) Walk(v Visitor) {
	Walk(v, n.Name)
	for _, p := range n.Sig.Params {
		Walk(v, p)
	}
	Walk(v, n.Body)
}

func (n *ReturnStmt) Span() (token.Pos, token.Pos) {
	if n.Value != nil {
		_, end := n.Value.Span()
		return n.Return, end
	}
	return n.Return, n.Return + 6
}
func (n *ReturnStmt) Walk(v Visitor) {
	if n.Value != nil {
		Walk(v, n.Value)
	}
}

func (n *BreakStmt) Span() (token.Pos, token.Pos)    { return n.TokenPos, n.TokenPos + 5 }
func (n *BreakStmt) Walk(Visitor)                    {}
func (n *ContinueStmt) Span() (token.Pos, token.Pos) { return n.TokenPos, n.TokenPos + 8 }
func (n *ContinueStmt) Walk(Visitor)                 {}

func (n *ThrowStmt) Span() (token.Pos, token.Pos) {
	_, end := n.Value.Span()
	return n.Throw, end
}
func (n *ThrowStmt) Walk(v Visitor) { Walk(v, n.Value) }

func (n *TryStmt) Span() (token.Pos, token.Pos) {
	if n.Finally != nil {
		_, end := n.Finally.Span()
		return n.Try, end
	}
	if n.Catch != nil {
		_, end := n.Catch.Span()
		return n.Try, end
	}
	_, end := n.Body.Span()
	return n.Try, end
}
func (n *TryStmt) Walk(v Visitor) {
	Walk(v, n.Body)
	if n.HasCatch {
		if n.CatchParam != nil {
			Walk(v, n.CatchParam)
		}
		Walk(v, n.Catch)
	}
	if n.Finally != nil {
		Walk(v, n.Finally)
	}
}

func (n *WithStmt) Span() (token.Pos, token.Pos) {
	_, end := n.Body.Span()
	return n.With, end
}
func (n *WithStmt) Walk(v Visitor) { Walk(v, n.Object); Walk(v, n.Body) }

func (n *BlockStmt) Span() (token.Pos, token.Pos) { return n.Body.Span() }
func (n *BlockStmt) Walk(v Visitor)               { Walk(v, n.Body) }
