package resolver_test

import (
	"context"
	"testing"

	"github.com/ivscript/iv/lang/ast"
	"github.com/ivscript/iv/lang/parser"
	"github.com/ivscript/iv/lang/resolver"
	"github.com/ivscript/iv/lang/token"
	"github.com/stretchr/testify/require"
)

func resolve(t *testing.T, src string) *ast.Chunk {
	t.Helper()
	fset := token.NewFileSet()
	ch, err := parser.ParseChunk(context.Background(), 0, fset, "test.js", []byte(src))
	require.NoError(t, err)
	err = resolver.ResolveFiles(context.Background(), fset, []*ast.Chunk{ch}, 0,
		func(name string) bool { return name == "predeclared" },
		func(name string) bool { return name == "undefined" || name == "NaN" })
	require.NoError(t, err)
	return ch
}

// findIdent returns the nth (0-based) IdentExpr in the chunk whose literal
// text matches name, in the order Walk visits them.
func findIdent(ch *ast.Chunk, name string, n int) *ast.IdentExpr {
	var found []*ast.IdentExpr
	var visit ast.VisitorFunc
	visit = func(node ast.Node, dir ast.VisitDirection) ast.Visitor {
		if dir != ast.VisitEnter {
			return visit
		}
		if id, ok := node.(*ast.IdentExpr); ok && id.Lit == name {
			found = append(found, id)
		}
		return visit
	}
	ast.Walk(visit, ch)
	if n >= len(found) {
		return nil
	}
	return found[n]
}

func bindingOf(t *testing.T, ch *ast.Chunk, name string, n int) *resolver.Binding {
	t.Helper()
	id := findIdent(ch, name, n)
	require.NotNilf(t, id, "no %dth identifier named %q", n, name)
	bdg, ok := id.Binding.(*resolver.Binding)
	require.Truef(t, ok, "identifier %q has no *resolver.Binding", name)
	return bdg
}

func TestStackLocal(t *testing.T) {
	ch := resolve(t, `function f(x) { let y = x + 1; return y; }`)

	x := bindingOf(t, ch, "x", 1) // x in "x + 1"
	require.Equal(t, resolver.Stack, x.Type)
	require.Equal(t, 0, x.Index) // first parameter

	y := bindingOf(t, ch, "y", 1) // y in "return y"
	require.Equal(t, resolver.Stack, y.Type)
	require.Equal(t, 1, y.Index) // second local, after the parameter
}

func TestClosureUpgradesToHeap(t *testing.T) {
	ch := resolve(t, `
		function outer() {
			let counter = 0;
			function inner() { counter = counter + 1; return counter; }
			return inner;
		}
	`)

	// every occurrence of counter, including the declaration, shares one
	// Binding, so they must all report the upgraded Heap classification.
	decl := bindingOf(t, ch, "counter", 0)
	require.Equal(t, resolver.Heap, decl.Type)

	use := bindingOf(t, ch, "counter", 2) // first use inside inner()
	require.Same(t, decl, use)
	require.Equal(t, 1, use.OwnerDepth) // declared in outer's body, one level below the chunk
}

func TestTopLevelDeclIsGlobal(t *testing.T) {
	ch := resolve(t, `let total = 0; function add(n) { total = total + n; }`)

	decl := bindingOf(t, ch, "total", 0)
	require.Equal(t, resolver.Global, decl.Type)

	use := bindingOf(t, ch, "total", 1)
	require.Same(t, decl, use)
}

func TestUndeclaredNameIsLookup(t *testing.T) {
	ch := resolve(t, `function f() { return mystery; }`)

	bdg := bindingOf(t, ch, "mystery", 0)
	require.Equal(t, resolver.Lookup, bdg.Type)
}

func TestPredeclaredAndUniversalAreGlobal(t *testing.T) {
	ch := resolve(t, `function f() { return predeclared + NaN; }`)

	require.Equal(t, resolver.Global, bindingOf(t, ch, "predeclared", 0).Type)
	require.Equal(t, resolver.Global, bindingOf(t, ch, "NaN", 0).Type)
}

func TestWithForcesLookup(t *testing.T) {
	ch := resolve(t, `
		function f(x) {
			with (x) {
				return x;
			}
		}
	`)

	// x is a perfectly good Stack parameter outside the with, and the with
	// statement's own object expression resolves normally since it runs
	// before the dynamic scope takes effect; only references textually
	// inside the with body must fall back to Lookup.
	param := bindingOf(t, ch, "x", 0)
	require.Equal(t, resolver.Stack, param.Type)

	withObject := bindingOf(t, ch, "x", 1)
	require.Same(t, param, withObject)

	inWith := bindingOf(t, ch, "x", 2)
	require.Equal(t, resolver.Lookup, inWith.Type)
	require.NotSame(t, param, inWith)
}

func TestVarHoisting(t *testing.T) {
	ch := resolve(t, `
		function f() {
			x = 1;
			var x;
			return x;
		}
	`)

	assignment := bindingOf(t, ch, "x", 0)
	decl := bindingOf(t, ch, "x", 1)
	ret := bindingOf(t, ch, "x", 2)
	require.Same(t, assignment, decl)
	require.Same(t, decl, ret)
	require.Equal(t, resolver.Stack, decl.Type)
}

func TestConstReassignmentIsError(t *testing.T) {
	fset := token.NewFileSet()
	ch, err := parser.ParseChunk(context.Background(), 0, fset, "test.js",
		[]byte(`const x = 1; x = 2;`))
	require.NoError(t, err)

	err = resolver.ResolveFiles(context.Background(), fset, []*ast.Chunk{ch}, 0, nil, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "assignment to constant variable")
}

func TestBreakOutsideLoopIsError(t *testing.T) {
	fset := token.NewFileSet()
	ch, err := parser.ParseChunk(context.Background(), 0, fset, "test.js", []byte(`break;`))
	require.NoError(t, err)

	err = resolver.ResolveFiles(context.Background(), fset, []*ast.Chunk{ch}, 0, nil, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "break outside of a loop")
}

func TestUnreferencedLocalElided(t *testing.T) {
	ch := resolve(t, `function f() { let unused = 1; let used = 2; return used; }`)

	unused := bindingOf(t, ch, "unused", 0)
	require.Equal(t, resolver.Stack, unused.Type)
	require.Equal(t, 0, unused.Refcount())

	// the elided binding takes no slot: used gets the first one.
	used := bindingOf(t, ch, "used", 0)
	require.Equal(t, resolver.Stack, used.Type)
	require.Equal(t, 0, used.Index)
}

func TestHeapParamKeepsStackSlot(t *testing.T) {
	ch := resolve(t, `function f(a, b) { return function() { return b; }; }`)

	a := bindingOf(t, ch, "a", 0)
	require.Equal(t, resolver.Stack, a.Type)
	require.Equal(t, 0, a.Index)

	// b is captured by the closure, so it lives on the heap, but it still
	// owns its parameter slot: the machine binds arguments positionally.
	b := bindingOf(t, ch, "b", 0)
	require.Equal(t, resolver.Heap, b.Type)
	require.Equal(t, 1, b.StackSlot)
	require.Equal(t, 0, b.Index)
}

func TestFuncInfoSummaries(t *testing.T) {
	ch := resolve(t, `function f(a) { let x = a; return function() { return x; }; }`)

	var sig *ast.FuncSignature
	var visit ast.VisitorFunc
	visit = func(node ast.Node, dir ast.VisitDirection) ast.Visitor {
		if dir != ast.VisitEnter {
			return visit
		}
		if fn, ok := node.(*ast.FuncStmt); ok {
			sig = fn.Sig
		}
		return visit
	}
	ast.Walk(visit, ch)
	require.NotNil(t, sig)

	info, ok := sig.Info.(*resolver.FuncInfo)
	require.True(t, ok)
	require.Equal(t, 1, info.NumParams)
	require.Equal(t, 1, info.NumStackSlots) // the parameter; x moved to the heap
	require.Equal(t, 1, info.NumHeapVars)   // x
	require.Empty(t, info.HeapParams)
	require.Nil(t, info.Arguments)
}

func TestArgumentsImplicitBinding(t *testing.T) {
	ch := resolve(t, `function f() { return arguments; }`)

	bdg := bindingOf(t, ch, "arguments", 0)
	require.Equal(t, resolver.Stack, bdg.Type)
	require.Equal(t, 1, bdg.Refcount())
}

func TestUpgradeLattice(t *testing.T) {
	require.Equal(t, resolver.Heap, resolver.Upgrade(resolver.Stack, resolver.Heap))
	require.Equal(t, resolver.Global, resolver.Upgrade(resolver.Heap, resolver.Global))
	require.Equal(t, resolver.Lookup, resolver.Upgrade(resolver.Global, resolver.Lookup))
	require.Equal(t, resolver.Heap, resolver.Upgrade(resolver.Heap, resolver.Stack)) // never downgrades
}
