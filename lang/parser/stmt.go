package parser

import (
	"github.com/ivscript/iv/lang/ast"
	"github.com/ivscript/iv/lang/token"
)

func (p *parser) parseChunk() *ast.Chunk {
	var chunk ast.Chunk
	start := p.val.Pos
	var stmts []ast.Stmt
	for p.tok != token.EOF {
		if stmt := p.parseStmt(); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	chunk.Block = &ast.Block{Start: start, End: p.val.Pos, Stmts: stmts}
	chunk.EOF = p.expect(token.EOF)
	return &chunk
}

// parseBraceBlock parses a '{' stmt* '}' block, used for every nested block
// in the language (function bodies, if/while/for bodies, try/catch/finally).
func (p *parser) parseBraceBlock() *ast.Block {
	lbrace := p.expect(token.LBRACE)
	var stmts []ast.Stmt
	for !tokenIn(p.tok, token.RBRACE, token.EOF) {
		if stmt := p.parseStmt(); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	rbrace := p.expect(token.RBRACE)
	return &ast.Block{Start: lbrace, End: rbrace + 1, Stmts: stmts}
}

// parseStmt parses a single statement, returning nil for the empty
// statement (a bare ';'), which callers should simply skip.
func (p *parser) parseStmt() (stmt ast.Stmt) {
	start := p.val.Pos

	defer func() {
		if err := recover(); err != nil {
			if err == errPanicMode {
				stmt = &ast.BadStmt{From: start, To: p.syncAfterError()}
				return
			}
			panic(err)
		}
	}()

	switch p.tok {
	case token.SEMI:
		p.advance()
		return nil
	case token.VAR, token.LET, token.CONST:
		return p.parseDeclStmt()
	case token.IF:
		return p.parseIfStmt()
	case token.FOR:
		return p.parseForStmt()
	case token.WHILE:
		return p.parseWhileStmt()
	case token.FUNCTION:
		return p.parseFuncStmt()
	case token.RETURN:
		return p.parseReturnStmt()
	case token.BREAK:
		pos := p.expect(token.BREAK)
		p.consumeStmtEnd()
		return &ast.BreakStmt{TokenPos: pos}
	case token.CONTINUE:
		pos := p.expect(token.CONTINUE)
		p.consumeStmtEnd()
		return &ast.ContinueStmt{TokenPos: pos}
	case token.THROW:
		return p.parseThrowStmt()
	case token.TRY:
		return p.parseTryStmt()
	case token.WITH:
		return p.parseWithStmt()
	case token.LBRACE:
		return &ast.BlockStmt{Body: p.parseBraceBlock()}
	default:
		expr := p.parseExpr()
		p.consumeStmtEnd()
		return &ast.ExprStmt{X: expr}
	}
}

// consumeStmtEnd consumes a trailing ';' if present. This language does not
// implement automatic semicolon insertion; a missing ';' is only tolerated
// right before '}' or EOF.
func (p *parser) consumeStmtEnd() {
	if p.tok == token.SEMI {
		p.expect(token.SEMI)
		return
	}
	if !tokenIn(p.tok, token.RBRACE, token.EOF) {
		p.errorExpected(p.val.Pos, "';'")
	}
}

func (p *parser) parseDeclStmt() *ast.DeclStmt {
	var stmt ast.DeclStmt
	stmt.DeclType = p.tok
	stmt.DeclPos = p.expect(token.VAR, token.LET, token.CONST)

	stmt.Names = append(stmt.Names, p.parseIdentExpr())
	stmt.Values = append(stmt.Values, p.parseOptInit())
	for p.tok == token.COMMA {
		p.expect(token.COMMA)
		stmt.Names = append(stmt.Names, p.parseIdentExpr())
		stmt.Values = append(stmt.Values, p.parseOptInit())
	}
	stmt.End = p.val.Pos
	p.consumeStmtEnd()
	return &stmt
}

// parseOptInit parses the `= expr` initializer of one declared name, or
// returns nil when there is none; DeclStmt.Values stays index-aligned with
// Names either way.
func (p *parser) parseOptInit() ast.Expr {
	if p.tok != token.EQ {
		return nil
	}
	p.expect(token.EQ)
	return p.parseExpr()
}

func (p *parser) parseIfStmt() *ast.IfStmt {
	var stmt ast.IfStmt
	stmt.If = p.expect(token.IF)
	p.expect(token.LPAREN)
	stmt.Cond = p.parseExpr()
	p.expect(token.RPAREN)
	stmt.True = p.parseBraceBlock()
	stmt.End = p.val.Pos
	if p.tok == token.ELSE {
		p.expect(token.ELSE)
		if p.tok == token.IF {
			elseIf := p.parseIfStmt()
			start, end := elseIf.Span()
			stmt.False = &ast.Block{Start: start, End: end, Stmts: []ast.Stmt{elseIf}}
		} else {
			stmt.False = p.parseBraceBlock()
		}
		_, stmt.End = stmt.False.Span()
	}
	return &stmt
}

func (p *parser) parseWhileStmt() *ast.WhileStmt {
	var stmt ast.WhileStmt
	stmt.While = p.expect(token.WHILE)
	p.expect(token.LPAREN)
	stmt.Cond = p.parseExpr()
	p.expect(token.RPAREN)
	stmt.Body = p.parseBraceBlock()
	return &stmt
}

func (p *parser) parseForStmt() ast.Stmt {
	forPos := p.expect(token.FOR)
	p.expect(token.LPAREN)

	switch p.tok {
	case token.SEMI:
		p.expect(token.SEMI)
		return p.parseForRest(forPos, nil)

	case token.VAR, token.LET, token.CONST:
		declType := p.tok
		declPos := p.expect(p.tok)
		name := p.parseIdentExpr()
		p.noIn = true
		values := []ast.Expr{p.parseOptInit()}
		p.noIn = false
		if p.tok == token.IN || p.tok == token.OF {
			of := p.tok == token.OF
			p.expect(p.tok)
			right := p.parseExpr()
			p.expect(token.RPAREN)
			body := p.parseBraceBlock()
			return &ast.ForInStmt{For: forPos, DeclTyp: declType, Name: name, Of: of, Right: right, Body: body}
		}
		names := []*ast.IdentExpr{name}
		for p.tok == token.COMMA {
			p.expect(token.COMMA)
			names = append(names, p.parseIdentExpr())
			values = append(values, p.parseOptInit())
		}
		decl := &ast.DeclStmt{DeclType: declType, DeclPos: declPos, Names: names, Values: values, End: p.val.Pos}
		p.expect(token.SEMI)
		return p.parseForRest(forPos, decl)

	default:
		p.noIn = true
		first := p.parseExpr()
		p.noIn = false
		if p.tok == token.IN || p.tok == token.OF {
			of := p.tok == token.OF
			p.expect(p.tok)
			name, ok := first.(*ast.IdentExpr)
			if !ok {
				start, _ := first.Span()
				p.errorExpected(start, "identifier")
				name = &ast.IdentExpr{}
			}
			right := p.parseExpr()
			p.expect(token.RPAREN)
			body := p.parseBraceBlock()
			return &ast.ForInStmt{For: forPos, DeclTyp: token.ILLEGAL, Name: name, Of: of, Right: right, Body: body}
		}
		init := &ast.ExprStmt{X: first}
		p.expect(token.SEMI)
		return p.parseForRest(forPos, init)
	}
}

// parseForRest parses the condition, post-expression, and body of a
// three-part for loop, given its already-parsed (and semicolon-terminated)
// init clause.
func (p *parser) parseForRest(forPos token.Pos, init ast.Stmt) *ast.ForStmt {
	var stmt ast.ForStmt
	stmt.For = forPos
	stmt.Init = init

	if p.tok != token.SEMI {
		stmt.Cond = p.parseExpr()
	}
	p.expect(token.SEMI)

	if p.tok != token.RPAREN {
		stmt.Post = &ast.ExprStmt{X: p.parseExpr()}
	}
	p.expect(token.RPAREN)
	stmt.Body = p.parseBraceBlock()
	return &stmt
}

func (p *parser) parseFuncStmt() *ast.FuncStmt {
	var stmt ast.FuncStmt
	stmt.Function = p.expect(token.FUNCTION)
	stmt.Name = p.parseIdentExpr()
	stmt.Sig = p.parseFuncSignature()
	stmt.Body = p.parseBraceBlock()
	return &stmt
}

func (p *parser) parseReturnStmt() *ast.ReturnStmt {
	var stmt ast.ReturnStmt
	stmt.Return = p.expect(token.RETURN)
	if !tokenIn(p.tok, token.SEMI, token.RBRACE, token.EOF) {
		stmt.Value = p.parseExpr()
	}
	p.consumeStmtEnd()
	return &stmt
}

func (p *parser) parseThrowStmt() *ast.ThrowStmt {
	var stmt ast.ThrowStmt
	stmt.Throw = p.expect(token.THROW)
	stmt.Value = p.parseExpr()
	p.consumeStmtEnd()
	return &stmt
}

func (p *parser) parseTryStmt() *ast.TryStmt {
	var stmt ast.TryStmt
	stmt.Try = p.expect(token.TRY)
	stmt.Body = p.parseBraceBlock()

	if p.tok == token.CATCH {
		p.expect(token.CATCH)
		stmt.HasCatch = true
		if p.tok == token.LPAREN {
			p.expect(token.LPAREN)
			stmt.CatchParam = p.parseIdentExpr()
			p.expect(token.RPAREN)
		}
		stmt.Catch = p.parseBraceBlock()
	}
	if p.tok == token.FINALLY {
		p.expect(token.FINALLY)
		stmt.Finally = p.parseBraceBlock()
	}
	if !stmt.HasCatch && stmt.Finally == nil {
		p.errorExpected(p.val.Pos, "'catch' or 'finally'")
	}
	return &stmt
}

func (p *parser) parseWithStmt() *ast.WithStmt {
	var stmt ast.WithStmt
	stmt.With = p.expect(token.WITH)
	p.expect(token.LPAREN)
	stmt.Object = p.parseExpr()
	p.expect(token.RPAREN)
	stmt.Body = p.parseBraceBlock()
	return &stmt
}

// syncToks are the tokens the parser resynchronizes on after a syntax error,
// so that one bad statement does not cascade into spurious follow-on errors.
var syncToks = map[token.Token]bool{
	token.SEMI: true, token.RBRACE: true,
	token.VAR: true, token.LET: true, token.CONST: true,
	token.IF: true, token.FOR: true, token.WHILE: true, token.FUNCTION: true,
	token.RETURN: true, token.BREAK: true, token.CONTINUE: true,
	token.THROW: true, token.TRY: true, token.WITH: true,
}

func (p *parser) syncAfterError() token.Pos {
	for p.tok != token.EOF {
		if syncToks[p.tok] {
			if p.tok == token.SEMI {
				p.advance()
			}
			return p.val.Pos
		}
		p.advance()
	}
	return p.val.Pos
}
