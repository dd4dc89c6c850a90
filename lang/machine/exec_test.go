package machine_test

import (
	"context"
	"testing"

	"github.com/ivscript/iv/lang/ast"
	"github.com/ivscript/iv/lang/compiler"
	"github.com/ivscript/iv/lang/machine"
	"github.com/ivscript/iv/lang/parser"
	"github.com/ivscript/iv/lang/resolver"
	"github.com/ivscript/iv/lang/token"
	"github.com/stretchr/testify/require"
)

// runSource drives the whole pipeline: scan, parse, resolve, compile,
// execute. The value of a toplevel return statement is the result.
func runSource(t *testing.T, src string) (machine.Value, error) {
	t.Helper()
	ctx := context.Background()
	fset := token.NewFileSet()
	ch, err := parser.ParseChunk(ctx, 0, fset, "test.js", []byte(src))
	require.NoError(t, err)
	err = resolver.ResolveFiles(ctx, fset, []*ast.Chunk{ch}, 0, nil, machine.IsUniverse)
	require.NoError(t, err)
	progs := compiler.CompileFiles(ctx, fset, []*ast.Chunk{ch})
	require.Len(t, progs, 1)

	th := &machine.Thread{Name: "test.js", MaxSteps: 1_000_000}
	return th.RunProgram(ctx, progs[0])
}

func mustRun(t *testing.T, src string) machine.Value {
	t.Helper()
	v, err := runSource(t, src)
	require.NoError(t, err)
	return v
}

func TestExecFunctionCall(t *testing.T) {
	v := mustRun(t, `
		function add(a, b) { return a + b; }
		return add(2, 3);
	`)
	require.Equal(t, machine.Int(5), v)
}

func TestExecClosureCapturesHeapVariable(t *testing.T) {
	v := mustRun(t, `
		function counter() {
			let n = 0;
			return function() { n = n + 1; return n; };
		}
		let c = counter();
		c();
		c();
		return c();
	`)
	require.Equal(t, machine.Int(3), v)
}

func TestExecClosuresAreIndependent(t *testing.T) {
	v := mustRun(t, `
		function counter() {
			let n = 0;
			return function() { n = n + 1; return n; };
		}
		let a = counter();
		let b = counter();
		a();
		a();
		return a() * 10 + b();
	`)
	require.Equal(t, machine.Int(31), v)
}

func TestExecWithStatementDynamicLookup(t *testing.T) {
	v := mustRun(t, `
		let o = {x: 1};
		with (o) {
			x = 40 + 2;
		}
		return o.x;
	`)
	require.Equal(t, machine.Int(42), v)
}

func TestExecTryCatchFinallyOrder(t *testing.T) {
	v := mustRun(t, `
		let log = "";
		try {
			log = log + "t";
			throw "X";
		} catch (e) {
			log = log + "c" + e;
		} finally {
			log = log + "f";
		}
		return log;
	`)
	require.Equal(t, machine.String("tcXf"), v)
}

func TestExecFinallyRunsOnNormalExit(t *testing.T) {
	v := mustRun(t, `
		let log = "";
		try {
			log = log + "t";
		} finally {
			log = log + "f";
		}
		return log;
	`)
	require.Equal(t, machine.String("tf"), v)
}

func TestExecReturnFromCatch(t *testing.T) {
	v := mustRun(t, `
		function f() {
			try {
				throw "e";
			} catch (err) {
				return "c" + err;
			}
			return "x";
		}
		return f();
	`)
	require.Equal(t, machine.String("ce"), v)
}

func TestExecRuntimeErrorCaught(t *testing.T) {
	v := mustRun(t, `
		function f() {
			try {
				let n = 1;
				n.x;
			} catch (err) {
				return "caught";
			}
			return "no error";
		}
		return f();
	`)
	require.Equal(t, machine.String("caught"), v)
}

func TestExecUncaughtThrowPropagates(t *testing.T) {
	_, err := runSource(t, `throw "kaboom";`)
	require.ErrorContains(t, err, "kaboom")
}

func TestExecForOfArray(t *testing.T) {
	v := mustRun(t, `
		let sum = 0;
		for (let v of [1, 2, 3]) {
			sum = sum + v;
		}
		return sum;
	`)
	require.Equal(t, machine.Int(6), v)
}

func TestExecForInObjectKeys(t *testing.T) {
	v := mustRun(t, `
		let keys = "";
		let o = {a: 1, b: 2};
		for (let k in o) {
			keys = keys + k;
		}
		return keys;
	`)
	require.Equal(t, machine.String("ab"), v)
}

func TestExecObjectDeleteAndIn(t *testing.T) {
	v := mustRun(t, `
		let o = {a: 1};
		o.b = 2;
		delete o.a;
		return ("a" in o) == false && o.b == 2;
	`)
	require.Equal(t, machine.True, v)
}

func TestExecCompoundAndIncrement(t *testing.T) {
	v := mustRun(t, `
		let i = 0;
		i += 5;
		i++;
		let a = [1, 2, 3];
		a[1] += 10;
		return i * 100 + a[1];
	`)
	require.Equal(t, machine.Int(612), v)
}

func TestExecPostfixYieldsOldValue(t *testing.T) {
	v := mustRun(t, `
		let i = 7;
		let old = i++;
		return old * 10 + i;
	`)
	require.Equal(t, machine.Int(78), v)
}

func TestExecRegexpLiteral(t *testing.T) {
	v := mustRun(t, `
		let re = /a(b|c)d/;
		return re.test("xacdy");
	`)
	require.Equal(t, machine.True, v)

	v = mustRun(t, `return /ab+c/.test("ac");`)
	require.Equal(t, machine.False, v)
}

func TestExecRegexpExecCaptures(t *testing.T) {
	v := mustRun(t, `
		let m = /a(b|c)d/.exec("xacdy");
		return m[0] + ":" + m[1];
	`)
	require.Equal(t, machine.String("acd:c"), v)
}

func TestExecArgumentsObject(t *testing.T) {
	v := mustRun(t, `
		function f() { return len(arguments); }
		return f(1, 2, 3);
	`)
	require.Equal(t, machine.Int(3), v)
}

func TestExecTypeof(t *testing.T) {
	v := mustRun(t, `
		return typeof 1 + "," + typeof "s" + "," + typeof {} + "," + typeof undefined;
	`)
	require.Equal(t, machine.String("number,string,object,undefined"), v)
}

func TestExecInstanceofWithoutChainIsFalse(t *testing.T) {
	v := mustRun(t, `
		let C = {prototype: {}};
		return {} instanceof C;
	`)
	require.Equal(t, machine.False, v)
}

func TestExecWhileBreakContinue(t *testing.T) {
	v := mustRun(t, `
		let n = 0;
		let i = 0;
		while (true) {
			i = i + 1;
			if (i > 10) { break; }
			if (i % 2 == 0) { continue; }
			n = n + i;
		}
		return n;
	`)
	require.Equal(t, machine.Int(25), v)
}

func TestExecStepLimit(t *testing.T) {
	ctx := context.Background()
	fset := token.NewFileSet()
	ch, err := parser.ParseChunk(ctx, 0, fset, "spin.js", []byte(`while (true) {}`))
	require.NoError(t, err)
	require.NoError(t, resolver.ResolveFiles(ctx, fset, []*ast.Chunk{ch}, 0, nil, machine.IsUniverse))
	progs := compiler.CompileFiles(ctx, fset, []*ast.Chunk{ch})

	th := &machine.Thread{Name: "spin.js", MaxSteps: 1000}
	_, err = th.RunProgram(ctx, progs[0])
	require.ErrorContains(t, err, "step limit exceeded")
}

func TestExecInlineCacheCounters(t *testing.T) {
	hits0, _ := machine.ICStats()
	mustRun(t, `
		let o = {a: 1};
		let sum = 0;
		for (let i = 0; i < 100; i = i + 1) {
			sum = sum + o.a;
		}
		return sum;
	`)
	hits1, _ := machine.ICStats()
	require.Greater(t, hits1, hits0, "repeated same-shape accesses must hit the property cache")
}
