package parser

import (
	"github.com/ivscript/iv/lang/ast"
	"github.com/ivscript/iv/lang/token"
)

// parseExpr parses a full expression, including assignment.
func (p *parser) parseExpr() ast.Expr {
	left := p.parseSubExpr(0)

	if p.tok == token.EQ || p.tok.IsAssignOp() {
		if !ast.IsAssignable(left) {
			start, _ := left.Span()
			p.errorExpected(start, "assignable expression")
		}
		op := p.tok
		opPos := p.expect(op)
		right := p.parseExpr()
		return &ast.AssignExpr{Left: left, OpPos: opPos, Type: op, Right: right}
	}
	return left
}

// binopPriority gives the left/right binding power of each binary operator,
// for precedence climbing. STARSTAR is right-associative (its right power
// is lower than its left), every other operator is left-associative.
var binopPriority = map[token.Token]struct{ left, right int }{
	token.OROR:       {1, 1},
	token.ANDAND:     {2, 2},
	token.PIPE:       {3, 3},
	token.CIRCUMFLEX: {4, 4},
	token.AMPERSAND:  {5, 5},
	token.EQEQ:       {6, 6}, token.NEQ: {6, 6},
	token.LT: {7, 7}, token.GT: {7, 7}, token.LE: {7, 7}, token.GE: {7, 7},
	token.INSTANCEOF: {7, 7}, token.IN: {7, 7},
	token.LTLT: {8, 8}, token.GTGT: {8, 8},
	token.PLUS: {9, 9}, token.MINUS: {9, 9},
	token.STAR: {10, 10}, token.SLASH: {10, 10}, token.PERCENT: {10, 10},
	token.STARSTAR: {12, 11},
}

const unaryPriority = 11

// logicalOps holds the subset of binopPriority that short-circuits and must
// produce a *ast.LogicalExpr rather than a *ast.BinOpExpr.
var logicalOps = map[token.Token]bool{token.ANDAND: true, token.OROR: true}

// parseSubExpr parses a binary-operator expression where every operator has
// a left binding power greater than priority (precedence climbing).
func (p *parser) parseSubExpr(priority int) ast.Expr {
	left := p.parseUnaryExpr()

	for {
		if p.noIn && p.tok == token.IN {
			return left
		}
		pri, ok := binopPriority[p.tok]
		if !ok || pri.left <= priority {
			return left
		}
		op := p.tok
		opPos := p.expect(op)
		right := p.parseSubExpr(pri.right)
		if logicalOps[op] {
			left = &ast.LogicalExpr{Left: left, OpPos: opPos, Type: op, Right: right}
		} else {
			left = &ast.BinOpExpr{Left: left, OpPos: opPos, Type: op, Right: right}
		}
	}
}

func isUnaryOp(tok token.Token) bool {
	switch tok {
	case token.NOT, token.MINUS, token.PLUS, token.TILDE, token.TYPEOF, token.DELETE,
		token.PLUSPLUS, token.MINUSMINUS:
		return true
	default:
		return false
	}
}

func (p *parser) parseUnaryExpr() ast.Expr {
	if isUnaryOp(p.tok) {
		op := p.tok
		opPos := p.expect(op)
		right := p.parseSubExpr(unaryPriority)
		return &ast.UnaryOpExpr{OpPos: opPos, Type: op, Right: right}
	}
	return p.parsePostfixExpr()
}

func (p *parser) parsePostfixExpr() ast.Expr {
	expr := p.parseCallOrMemberExpr()
	if p.tok == token.PLUSPLUS || p.tok == token.MINUSMINUS {
		if !ast.IsAssignable(expr) {
			start, _ := expr.Span()
			p.errorExpected(start, "assignable expression")
		}
		op := p.tok
		opPos := p.expect(op)
		return &ast.UnaryOpExpr{OpPos: opPos, Type: op, Right: expr, Postfix: true}
	}
	return expr
}

func (p *parser) parseCallOrMemberExpr() ast.Expr {
	var expr ast.Expr
	if p.tok == token.NEW {
		expr = p.parseNewExpr()
	} else {
		expr = p.parsePrimaryExpr()
	}

	for {
		switch p.tok {
		case token.DOT:
			dot := p.expect(token.DOT)
			expr = &ast.DotExpr{Left: expr, Dot: dot, Right: p.parseIdentExpr()}
		case token.LBRACK:
			lbrack := p.expect(token.LBRACK)
			idx := p.parseExpr()
			rbrack := p.expect(token.RBRACK)
			expr = &ast.IndexExpr{Prefix: expr, Lbrack: lbrack, Index: idx, Rbrack: rbrack}
		case token.LPAREN:
			lparen := p.expect(token.LPAREN)
			var args []ast.Expr
			if p.tok != token.RPAREN {
				args = p.parseExprList()
			}
			rparen := p.expect(token.RPAREN)
			expr = &ast.CallExpr{Fn: expr, Lparen: lparen, Args: args, Rparen: rparen}
		default:
			return expr
		}
	}
}

func (p *parser) parseNewExpr() ast.Expr {
	newPos := p.expect(token.NEW)
	callee := p.parseCallOrMemberExprNoCall()
	var lparen, rparen token.Pos
	var args []ast.Expr
	if p.tok == token.LPAREN {
		lparen = p.expect(token.LPAREN)
		if p.tok != token.RPAREN {
			args = p.parseExprList()
		}
		rparen = p.expect(token.RPAREN)
	}
	return &ast.NewExpr{NewPos: newPos, Callee: callee, Lparen: lparen, Args: args, Rparen: rparen}
}

// parseCallOrMemberExprNoCall parses the callee of a `new` expression: member
// access chains, but stopping before a call so that `new Foo().bar()` parses
// the `()` as the constructor arguments, not part of the callee.
func (p *parser) parseCallOrMemberExprNoCall() ast.Expr {
	var expr ast.Expr
	if p.tok == token.NEW {
		expr = p.parseNewExpr()
	} else {
		expr = p.parsePrimaryExpr()
	}
	for {
		switch p.tok {
		case token.DOT:
			dot := p.expect(token.DOT)
			expr = &ast.DotExpr{Left: expr, Dot: dot, Right: p.parseIdentExpr()}
		case token.LBRACK:
			lbrack := p.expect(token.LBRACK)
			idx := p.parseExpr()
			rbrack := p.expect(token.RBRACK)
			expr = &ast.IndexExpr{Prefix: expr, Lbrack: lbrack, Index: idx, Rbrack: rbrack}
		default:
			return expr
		}
	}
}

func (p *parser) parsePrimaryExpr() ast.Expr {
	switch p.tok {
	case token.IDENT:
		return p.parseIdentExpr()
	case token.INT, token.FLOAT, token.STRING, token.TRUE, token.FALSE, token.NULL, token.UNDEFINED:
		return p.parseLiteralExpr()
	case token.REGEXP:
		return p.parseRegexpExpr()
	case token.THIS:
		pos := p.expect(token.THIS)
		return &ast.ThisExpr{TokenPos: pos}
	case token.LPAREN:
		lparen := p.expect(token.LPAREN)
		inner := p.parseExpr()
		rparen := p.expect(token.RPAREN)
		return &ast.ParenExpr{Lparen: lparen, Expr: inner, Rparen: rparen}
	case token.LBRACK:
		return p.parseArrayExpr()
	case token.LBRACE:
		return p.parseMapExpr()
	case token.FUNCTION:
		return p.parseFuncExpr()
	default:
		pos := p.val.Pos
		p.errorExpected(pos, "expression")
		panic(errPanicMode)
	}
}

func (p *parser) parseIdentExpr() *ast.IdentExpr {
	lit := p.val.Raw
	pos := p.expect(token.IDENT)
	return &ast.IdentExpr{NamePos: pos, Lit: lit}
}

func (p *parser) parseLiteralExpr() *ast.LiteralExpr {
	v := p.val
	tok := p.tok
	pos := p.expect(tok)
	return &ast.LiteralExpr{Type: tok, TokenPos: pos, Raw: v.Raw, Int: v.Int, Float: v.Float, Str: v.String}
}

func (p *parser) parseRegexpExpr() *ast.RegexpExpr {
	v := p.val
	pos := p.expect(token.REGEXP)
	return &ast.RegexpExpr{TokenPos: pos, Pattern: v.String, Flags: v.Flags}
}

func (p *parser) parseArrayExpr() *ast.ArrayExpr {
	lbrack := p.expect(token.LBRACK)
	var items []ast.Expr
	for !tokenIn(p.tok, token.RBRACK, token.EOF) {
		items = append(items, p.parseExpr())
		if p.tok == token.COMMA {
			p.expect(token.COMMA)
		} else {
			break
		}
	}
	rbrack := p.expect(token.RBRACK)
	return &ast.ArrayExpr{Lbrack: lbrack, Items: items, Rbrack: rbrack}
}

func (p *parser) parseMapExpr() *ast.MapExpr {
	lbrace := p.expect(token.LBRACE)
	var items []*ast.MapItem
	for !tokenIn(p.tok, token.RBRACE, token.EOF) {
		items = append(items, p.parseMapItem())
		if p.tok == token.COMMA {
			p.expect(token.COMMA)
		} else {
			break
		}
	}
	rbrace := p.expect(token.RBRACE)
	return &ast.MapExpr{Lbrace: lbrace, Items: items, Rbrace: rbrace}
}

func (p *parser) parseMapItem() *ast.MapItem {
	var key ast.Expr
	switch p.tok {
	case token.LBRACK:
		p.expect(token.LBRACK)
		key = p.parseExpr()
		p.expect(token.RBRACK)
	case token.STRING, token.INT, token.FLOAT:
		key = p.parseLiteralExpr()
	case token.IDENT:
		key = p.parseIdentExpr()
	default:
		p.expect(token.IDENT, token.STRING, token.LBRACK)
		panic("unreachable")
	}
	p.expect(token.COLON)
	return &ast.MapItem{Key: key, Value: p.parseExpr()}
}

func (p *parser) parseFuncExpr() *ast.FuncExpr {
	fn := p.expect(token.FUNCTION)
	var name *ast.IdentExpr
	if p.tok == token.IDENT {
		name = p.parseIdentExpr()
	}
	sig := p.parseFuncSignature()
	body := p.parseBraceBlock()
	return &ast.FuncExpr{Function: fn, Name: name, Sig: sig, Body: body}
}

func (p *parser) parseFuncSignature() *ast.FuncSignature {
	lparen := p.expect(token.LPAREN)
	var params []*ast.IdentExpr
	for p.tok == token.IDENT {
		params = append(params, p.parseIdentExpr())
		if p.tok == token.COMMA {
			p.expect(token.COMMA)
		} else {
			break
		}
	}
	rparen := p.expect(token.RPAREN)
	return &ast.FuncSignature{Lparen: lparen, Params: params, Rparen: rparen}
}

func (p *parser) parseExprList() []ast.Expr {
	var exprs []ast.Expr
	exprs = append(exprs, p.parseExpr())
	for p.tok == token.COMMA {
		p.expect(token.COMMA)
		exprs = append(exprs, p.parseExpr())
	}
	return exprs
}
