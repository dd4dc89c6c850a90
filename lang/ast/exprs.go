package ast

import "github.com/ivscript/iv/lang/token"

// Binding is set by the resolver on every IdentExpr use site once resolved.
// It is declared here (rather than imported from the resolver package) to
// avoid an import cycle between ast and resolver; the resolver package
// defines the concrete *resolver.Binding type that satisfies this.
type Binding interface {
	BindingName() string
}

type (
	// IdentExpr represents an identifier, either a use or (in binding
	// positions) a declaration.
	IdentExpr struct {
		NamePos token.Pos
		Lit     string
		// Binding is filled in by the resolver.
		Binding Binding
	}

	// LiteralExpr represents a literal: int, float, string, bool, null or
	// undefined.
	LiteralExpr struct {
		Type     token.Token // INT, FLOAT, STRING, TRUE, FALSE, NULL, UNDEFINED
		TokenPos token.Pos
		Raw      string
		Int      int64
		Float    float64
		Str      string
	}

	// RegexpExpr represents a regular expression literal, e.g. /ab+c/i.
	RegexpExpr struct {
		TokenPos token.Pos
		Pattern  string
		Flags    string
	}

	// ArrayExpr represents an array literal, e.g. [1, 2, 3].
	ArrayExpr struct {
		Lbrack token.Pos
		Items  []Expr
		Rbrack token.Pos
	}

	// MapItem is a single key/value pair of a MapExpr.
	MapItem struct {
		Key   Expr
		Value Expr
	}

	// MapExpr represents an object literal, e.g. {a: 1, b: 2}.
	MapExpr struct {
		Lbrace token.Pos
		Items  []*MapItem
		Rbrace token.Pos
	}

	// FuncExpr represents a function literal, e.g. function(x) { ... }.
	FuncExpr struct {
		Function token.Pos
		Name     *IdentExpr // nil for anonymous function expressions
		Sig      *FuncSignature
		Body     *Block
	}

	// UnaryOpExpr represents a unary expression, e.g. -x, !x, typeof x, or a
	// prefix/postfix increment or decrement, e.g. ++x or x++. Postfix is true
	// for the latter, in which case OpPos is the position of the operator
	// (which follows Right in the source).
	UnaryOpExpr struct {
		OpPos   token.Pos
		Type    token.Token
		Right   Expr
		Postfix bool
	}

	// BinOpExpr represents a binary expression, e.g. x + y.
	BinOpExpr struct {
		Left  Expr
		OpPos token.Pos
		Type  token.Token
		Right Expr
	}

	// LogicalExpr represents a short-circuiting && or || expression.
	LogicalExpr struct {
		Left  Expr
		OpPos token.Pos
		Type  token.Token // ANDAND or OROR
		Right Expr
	}

	// CallExpr represents a function call, e.g. f(x, y).
	CallExpr struct {
		Fn     Expr
		Lparen token.Pos
		Args   []Expr
		Rparen token.Pos
	}

	// NewExpr represents a constructor call, e.g. new Foo(x).
	NewExpr struct {
		NewPos token.Pos
		Callee Expr
		Lparen token.Pos
		Args   []Expr
		Rparen token.Pos
	}

	// DotExpr represents a member access, e.g. x.y.
	DotExpr struct {
		Left  Expr
		Dot   token.Pos
		Right *IdentExpr
	}

	// IndexExpr represents an indexed member access, e.g. x[y].
	IndexExpr struct {
		Prefix Expr
		Lbrack token.Pos
		Index  Expr
		Rbrack token.Pos
	}

	// ParenExpr represents a parenthesized expression, e.g. (x).
	ParenExpr struct {
		Lparen token.Pos
		Expr   Expr
		Rparen token.Pos
	}

	// AssignExpr represents an assignment used as an expression, e.g. x = y,
	// or a compound assignment, e.g. x += y.
	AssignExpr struct {
		Left  Expr // IdentExpr, DotExpr or IndexExpr
		OpPos token.Pos
		Type  token.Token // EQ or a compound-assignment token
		Right Expr
	}

	// ThisExpr represents the `this` keyword.
	ThisExpr struct {
		TokenPos token.Pos
	}
)

func (*IdentExpr) exprNode()   {}
func (*LiteralExpr) exprNode() {}
func (*RegexpExpr) exprNode()  {}
func (*ArrayExpr) exprNode()   {}
func (*MapExpr) exprNode()     {}
func (*FuncExpr) exprNode()    {}
func (*UnaryOpExpr) exprNode() {}
func (*BinOpExpr) exprNode()   {}
func (*LogicalExpr) exprNode() {}
func (*CallExpr) exprNode()    {}
func (*NewExpr) exprNode()     {}
func (*DotExpr) exprNode()     {}
func (*IndexExpr) exprNode()   {}
func (*ParenExpr) exprNode()   {}
func (*AssignExpr) exprNode()  {}
func (*ThisExpr) exprNode()    {}

func (n *IdentExpr) Span() (token.Pos, token.Pos) {
	return n.NamePos, n.NamePos + token.Pos(len(n.Lit))
}
func (n *IdentExpr) Walk(Visitor) {}

func (n *LiteralExpr) Span() (token.Pos, token.Pos) {
	return n.TokenPos, n.TokenPos + token.Pos(len(n.Raw))
}
func (n *LiteralExpr) Walk(Visitor) {}

func (n *RegexpExpr) Span() (token.Pos, token.Pos) {
	return n.TokenPos, n.TokenPos + token.Pos(len(n.Pattern)+len(n.Flags)+2)
}
func (n *RegexpExpr) Walk(Visitor) {}

func (n *ArrayExpr) Span() (token.Pos, token.Pos) { return n.Lbrack, n.Rbrack + 1 }
func (n *ArrayExpr) Walk(v Visitor) {
	for _, it := range n.Items {
		Walk(v, it)
	}
}

func (n *MapExpr) Span() (token.Pos, token.Pos) { return n.Lbrace, n.Rbrace + 1 }
func (n *MapExpr) Walk(v Visitor) {
	for _, it := range n.Items {
		Walk(v, it.Key)
		Walk(v, it.Value)
	}
}

func (n *FuncExpr) Span() (token.Pos, token.Pos) {
	_, end := n.Body.Span()
	return n.Function, end
}
func (n *FuncExpr) Walk(v Visitor) {
	if n.Name != nil {
		Walk(v, n.Name)
	}
	for _, p := range n.Sig.Params {
		Walk(v, p)
	}
	Walk(v, n.Body)
}

func (n *UnaryOpExpr) Span() (token.Pos, token.Pos) {
	start, end := n.Right.Span()
	if n.Postfix {
		return start, n.OpPos + 2
	}
	return n.OpPos, end
}
func (n *UnaryOpExpr) Walk(v Visitor) { Walk(v, n.Right) }

func (n *BinOpExpr) Span() (token.Pos, token.Pos) {
	start, _ := n.Left.Span()
	_, end := n.Right.Span()
	return start, end
}
func (n *BinOpExpr) Walk(v Visitor) { Walk(v, n.Left); Walk(v, n.Right) }

func (n *LogicalExpr) Span() (token.Pos, token.Pos) {
	start, _ := n.Left.Span()
	_, end := n.Right.Span()
	return start, end
}
func (n *LogicalExpr) Walk(v Visitor) { Walk(v, n.Left); Walk(v, n.Right) }

func (n *CallExpr) Span() (token.Pos, token.Pos) {
	start, _ := n.Fn.Span()
	return start, n.Rparen + 1
}
func (n *CallExpr) Walk(v Visitor) {
	Walk(v, n.Fn)
	for _, a := range n.Args {
		Walk(v, a)
	}
}

func (n *NewExpr) Span() (token.Pos, token.Pos) { return n.NewPos, n.Rparen + 1 }
func (n *NewExpr) Walk(v Visitor) {
	Walk(v, n.Callee)
	for _, a := range n.Args {
		Walk(v, a)
	}
}

func (n *DotExpr) Span() (token.Pos, token.Pos) {
	start, _ := n.Left.Span()
	_, end := n.Right.Span()
	return start, end
}
func (n *DotExpr) Walk(v Visitor) { Walk(v, n.Left); Walk(v, n.Right) }

func (n *IndexExpr) Span() (token.Pos, token.Pos) {
	start, _ := n.Prefix.Span()
	return start, n.Rbrack + 1
}
func (n *IndexExpr) Walk(v Visitor) { Walk(v, n.Prefix); Walk(v, n.Index) }

func (n *ParenExpr) Span() (token.Pos, token.Pos) { return n.Lparen, n.Rparen + 1 }
func (n *ParenExpr) Walk(v Visitor)                { Walk(v, n.Expr) }

func (n *AssignExpr) Span() (token.Pos, token.Pos) {
	start, _ := n.Left.Span()
	_, end := n.Right.Span()
	return start, end
}
func (n *AssignExpr) Walk(v Visitor) { Walk(v, n.Left); Walk(v, n.Right) }

func (n *ThisExpr) Span() (token.Pos, token.Pos) { return n.TokenPos, n.TokenPos + 4 }
func (n *ThisExpr) Walk(Visitor)                  {}

// Unwrap strips any enclosing ParenExpr layers from e.
func Unwrap(e Expr) Expr {
	for {
		p, ok := e.(*ParenExpr)
		if !ok {
			return e
		}
		e = p.Expr
	}
}

// IsAssignable reports whether e is a valid assignment target.
func IsAssignable(e Expr) bool {
	switch e := Unwrap(e).(type) {
	case *IdentExpr:
		return true
	case *DotExpr:
		return IsAssignable(e.Left)
	case *IndexExpr:
		return IsAssignable(e.Prefix)
	default:
		return false
	}
}
