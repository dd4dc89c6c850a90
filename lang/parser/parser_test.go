package parser_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ivscript/iv/lang/ast"
	"github.com/ivscript/iv/lang/parser"
	"github.com/ivscript/iv/lang/token"
)

func parse(t *testing.T, src string) *ast.Chunk {
	t.Helper()
	fset := token.NewFileSet()
	chunk, err := parser.ParseChunk(context.Background(), 0, fset, "test.js", []byte(src))
	require.NoError(t, err)
	require.NotNil(t, chunk)
	return chunk
}

func TestParseVarDecl(t *testing.T) {
	chunk := parse(t, "let x = 1, y = 2;")
	require.Len(t, chunk.Block.Stmts, 1)
	decl, ok := chunk.Block.Stmts[0].(*ast.DeclStmt)
	require.True(t, ok)
	require.Equal(t, token.LET, decl.DeclType)
	require.Len(t, decl.Names, 2)
	require.Equal(t, "x", decl.Names[0].Lit)
	require.Equal(t, "y", decl.Names[1].Lit)
	require.Len(t, decl.Values, 2)
}

func TestParseIfElseIfElse(t *testing.T) {
	chunk := parse(t, `
		if (x) { a(); } else if (y) { b(); } else { c(); }
	`)
	require.Len(t, chunk.Block.Stmts, 1)
	ifStmt, ok := chunk.Block.Stmts[0].(*ast.IfStmt)
	require.True(t, ok)
	require.NotNil(t, ifStmt.False)
	require.Len(t, ifStmt.False.Stmts, 1)
	_, ok = ifStmt.False.Stmts[0].(*ast.IfStmt)
	require.True(t, ok)
}

func TestParseForThreePart(t *testing.T) {
	chunk := parse(t, "for (let i = 0; i < 10; i = i + 1) { f(i); }")
	stmt, ok := chunk.Block.Stmts[0].(*ast.ForStmt)
	require.True(t, ok)
	require.NotNil(t, stmt.Init)
	require.NotNil(t, stmt.Cond)
	require.NotNil(t, stmt.Post)
}

func TestParseForOf(t *testing.T) {
	chunk := parse(t, "for (let v of xs) { f(v); }")
	stmt, ok := chunk.Block.Stmts[0].(*ast.ForInStmt)
	require.True(t, ok)
	require.True(t, stmt.Of)
	require.Equal(t, "v", stmt.Name.Lit)
}

func TestParseForIn(t *testing.T) {
	chunk := parse(t, "for (k in obj) { f(k); }")
	stmt, ok := chunk.Block.Stmts[0].(*ast.ForInStmt)
	require.True(t, ok)
	require.False(t, stmt.Of)
	require.Equal(t, "k", stmt.Name.Lit)
}

func TestParseFunctionAndCall(t *testing.T) {
	chunk := parse(t, "function add(a, b) { return a + b; } add(1, 2);")
	require.Len(t, chunk.Block.Stmts, 2)
	fn, ok := chunk.Block.Stmts[0].(*ast.FuncStmt)
	require.True(t, ok)
	require.Equal(t, "add", fn.Name.Lit)
	require.Len(t, fn.Sig.Params, 2)

	exprStmt, ok := chunk.Block.Stmts[1].(*ast.ExprStmt)
	require.True(t, ok)
	call, ok := exprStmt.X.(*ast.CallExpr)
	require.True(t, ok)
	require.Len(t, call.Args, 2)
}

func TestParseOperatorPrecedence(t *testing.T) {
	chunk := parse(t, "x = 1 + 2 * 3;")
	exprStmt := chunk.Block.Stmts[0].(*ast.ExprStmt)
	assign := exprStmt.X.(*ast.AssignExpr)
	bin := assign.Right.(*ast.BinOpExpr)
	require.Equal(t, token.PLUS, bin.Type)
	rhs := bin.Right.(*ast.BinOpExpr)
	require.Equal(t, token.STAR, rhs.Type)
}

func TestParseNewAndMemberChain(t *testing.T) {
	chunk := parse(t, "x = new Foo(1).bar[2];")
	exprStmt := chunk.Block.Stmts[0].(*ast.ExprStmt)
	assign := exprStmt.X.(*ast.AssignExpr)
	idx := assign.Right.(*ast.IndexExpr)
	dot := idx.Prefix.(*ast.DotExpr)
	_, ok := dot.Left.(*ast.NewExpr)
	require.True(t, ok)
}

func TestParseTryCatchFinally(t *testing.T) {
	chunk := parse(t, "try { risky(); } catch (e) { handle(e); } finally { cleanup(); }")
	stmt, ok := chunk.Block.Stmts[0].(*ast.TryStmt)
	require.True(t, ok)
	require.True(t, stmt.HasCatch)
	require.Equal(t, "e", stmt.CatchParam.Lit)
	require.NotNil(t, stmt.Finally)
}

func TestParseWithStmt(t *testing.T) {
	chunk := parse(t, "with (obj) { f(); }")
	stmt, ok := chunk.Block.Stmts[0].(*ast.WithStmt)
	require.True(t, ok)
	require.NotNil(t, stmt.Object)
}

func TestParseObjectAndArrayLiterals(t *testing.T) {
	chunk := parse(t, `x = { a: 1, b: [1, 2, 3] };`)
	exprStmt := chunk.Block.Stmts[0].(*ast.ExprStmt)
	assign := exprStmt.X.(*ast.AssignExpr)
	obj := assign.Right.(*ast.MapExpr)
	require.Len(t, obj.Items, 2)
	arr := obj.Items[1].Value.(*ast.ArrayExpr)
	require.Len(t, arr.Items, 3)
}

func TestParseRegexpLiteral(t *testing.T) {
	chunk := parse(t, `x = /ab+c/gi;`)
	exprStmt := chunk.Block.Stmts[0].(*ast.ExprStmt)
	assign := exprStmt.X.(*ast.AssignExpr)
	re := assign.Right.(*ast.RegexpExpr)
	require.Equal(t, "ab+c", re.Pattern)
	require.Equal(t, "gi", re.Flags)
}

func TestParsePostfixIncrement(t *testing.T) {
	chunk := parse(t, "i++;")
	exprStmt := chunk.Block.Stmts[0].(*ast.ExprStmt)
	un := exprStmt.X.(*ast.UnaryOpExpr)
	require.True(t, un.Postfix)
	require.Equal(t, token.PLUSPLUS, un.Type)
}

func TestParseSyntaxErrorRecovery(t *testing.T) {
	fset := token.NewFileSet()
	chunk, err := parser.ParseChunk(context.Background(), 0, fset, "test.js", []byte("let = ; let y = 1;"))
	require.Error(t, err)
	require.NotNil(t, chunk)
	// the malformed first statement should not prevent the second from
	// parsing correctly.
	require.Len(t, chunk.Block.Stmts, 2)
	_, ok := chunk.Block.Stmts[1].(*ast.DeclStmt)
	require.True(t, ok)
}
