// Package resolver classifies every identifier reference in a parsed chunk
// according to how expensive it is to reach at run time, and assigns the
// dense indices the compiler needs to address each binding directly instead
// of by name.
//
// # Classification lattice
//
// Every Binding is assigned one of four Types, ordered from cheapest to
// most expensive to address:
//
//	Stack  < Heap < Global < Lookup
//
// A Stack binding lives in the current function's activation record and is
// addressed by a dense index known at compile time. A Heap binding is a
// Stack binding that at least one nested function closes over, so it must
// be boxed on a heap cell shared between the defining frame and the
// closures that capture it. A Global binding lives in the top-level
// (module/script) scope and is addressed by a fixed slot regardless of how
// deeply nested the reference is. A Lookup binding has no statically known
// location at all and must be resolved dynamically against a scope chain
// or the global object, the same way an undeclared or `with`-shadowed name
// would be in a sloppy-mode ECMAScript engine.
//
// Classification only ever moves up the lattice (see Upgrade): a Stack
// binding becomes Heap the moment any nested function reads or writes it;
// it never moves back down.
//
// # Two passes
//
// ResolveFiles walks each chunk twice.
//
// The first ("lookup") pass builds the block/function scope tree, creates a
// Binding at every declaration site, and resolves every identifier use
// against that tree, upgrading the declaration's Type as required by where
// the use occurs (same function: no change; an enclosing function: Heap;
// not found anywhere statically, or inside a `with` body: Lookup/Global
// fallback).
//
// The second ("finalize") pass walks the now-complete scope tree bottom-up
// and assigns the dense per-kind indices (Stack bindings of a function,
// Heap bindings of a function, Global bindings of the module) that the
// compiler patches into LOCAL/HEAP/GLOBAL/LOOKUP opcodes.
package resolver

import (
	"context"
	"fmt"

	"github.com/ivscript/iv/lang/ast"
	"github.com/ivscript/iv/lang/token"
)

// Mode is a set of bit flags that configures the resolving. By default (0),
// the symbols are resolved and all errors are reported.
type Mode uint

// List of supported resolver modes, which can be combined with bitwise or.
const (
	NameBlocks Mode = 1 << iota // give unique names to blocks, useful for printing the resolved AST.
)

// ResolveFiles takes the file set and corresponding list of chunks from a
// successful parse result and resolves the bindings used in the source
// code. On success, every ast.IdentExpr's Binding field is filled in and
// the AST is ready to be compiled to bytecode.
//
// An AST that resulted in errors in the parse phase should never be passed
// to the resolver, the behavior is undefined.
//
// The returned error, if non-nil, is guaranteed to be a token.ErrorList.
func ResolveFiles(ctx context.Context, fset *token.FileSet, chunks []*ast.Chunk,
	mode Mode, isPredeclared, isUniversal func(name string) bool) error {
	if len(chunks) == 0 {
		return nil
	}

	var r resolver
	r.isPredeclared = isPredeclared
	if isPredeclared == nil {
		r.isPredeclared = func(name string) bool { return false }
	}
	r.isUniversal = isUniversal
	if isUniversal == nil {
		r.isUniversal = func(name string) bool { return false }
	}

	for _, ch := range chunks {
		start, _ := ch.Span()
		r.init(fset.File(start))
		r.resolveChunk(ch)
		r.finalize()

		if mode&NameBlocks != 0 {
			r.nameBlocks()
		}
	}
	r.errors.Sort()
	return r.errors.Err()
}

// funcScope tracks the per-function state needed to classify and index
// bindings: its nesting depth (0 for the top-level chunk), the bindings it
// directly owns (before the Stack/Heap split is finalized), and how many
// enclosing loops currently surround the point being resolved.
type funcScope struct {
	parent *funcScope
	depth  int

	root *block // the function's own top-level block (owns hoisted var/function decls)

	// locals are every binding declared directly in this function, in
	// declaration order, regardless of whether it ends up Stack or Heap.
	// The first nparams of them are the declared parameters.
	locals  []*Binding
	nparams int

	// info is the summary handed to the compiler, filled in by finalize
	// and attached to the function's ast.FuncSignature (or the Chunk).
	info *FuncInfo

	// arguments is the implicit `arguments` binding, nil when a parameter
	// shadows it (or at the chunk's top level).
	arguments *Binding

	loopDepth int
}

// block is one lexical block: the chunk body, a function body, or any
// brace-delimited nested block (if/while/for/try/with/bare block).
type block struct {
	parent   *block
	children []*block
	fn       *funcScope
	bindings map[string]*Binding

	// insideWith is true for the body of a with statement and every block
	// nested within it (including nested function bodies defined there),
	// forcing every identifier resolved within it to Lookup.
	insideWith bool

	name string // assigned by nameBlocks, empty otherwise
}

type resolver struct {
	file   *token.File
	errors token.ErrorList

	env  *block // current (innermost) block
	root *block // the chunk's top-level block

	// globals collects the Global bindings: top-level declarations and
	// predeclared/universal names. globalOrder preserves first-encounter
	// order for deterministic index assignment.
	globals     map[string]*Binding
	globalOrder []*Binding

	// lookups collects the dynamic (Lookup) fallback bindings, one per
	// name. They are kept apart from globals: a reference to a statically
	// known global that happens to sit inside a with body gets a Lookup
	// binding of its own, while the global's other sites keep their direct
	// classification.
	lookups map[string]*Binding

	// funcs collects every funcScope created while resolving the current
	// chunk, in creation order, so the finalize pass can assign dense
	// Stack/Heap indices to each one's locals.
	funcs []*funcScope

	isPredeclared, isUniversal func(name string) bool
}

func (r *resolver) init(file *token.File) {
	r.file = file
	r.env = nil
	r.root = nil
	r.globals = make(map[string]*Binding)
	r.globalOrder = nil
	r.lookups = make(map[string]*Binding)
	r.funcs = nil
}

func (r *resolver) newFuncScope(parent *funcScope, depth int) *funcScope {
	fn := &funcScope{parent: parent, depth: depth, info: &FuncInfo{}}
	r.funcs = append(r.funcs, fn)
	return fn
}

// finalize is the backward pass: once every declaration and use in the
// chunk has been seen, the final Type of every binding is known, so dense
// indices can be assigned per function (Stack and Heap bindings each get
// their own zero-based index space) and across the module (Global
// bindings share one index space; Lookup bindings need none, they are
// addressed by name at run time).
func (r *resolver) finalize() {
	for _, fn := range r.funcs {
		info := fn.info
		info.NumParams = fn.nparams
		var stackIdx, heapIdx int
		for i, bdg := range fn.locals {
			isParam := i < fn.nparams
			if isParam {
				// parameters always own the leading frame slots, in
				// declaration order, because the machine binds call
				// arguments into them positionally.
				bdg.StackSlot = stackIdx
				stackIdx++
			}
			switch bdg.Type {
			case Stack:
				if isParam {
					bdg.Index = bdg.StackSlot
				} else if bdg.refcount > 0 {
					bdg.Index = stackIdx
					stackIdx++
				} else {
					// declared but never referenced: elided, no slot.
					continue
				}
				info.Locals = append(info.Locals, bdg)
			case Heap:
				bdg.Index = heapIdx
				heapIdx++
				if isParam {
					info.Locals = append(info.Locals, bdg)
					info.HeapParams = append(info.HeapParams, bdg)
				}
			}
		}
		info.NumStackSlots = stackIdx
		info.NumHeapVars = heapIdx
		if fn.arguments != nil && fn.arguments.refcount > 0 {
			info.Arguments = fn.arguments
		}
	}

	var globalIdx int
	for _, bdg := range r.globalOrder {
		if bdg.Type == Global {
			bdg.Index = globalIdx
			globalIdx++
		}
	}
}

func (r *resolver) errorf(p token.Pos, format string, args ...interface{}) {
	r.errors.Add(r.file.Position(p), fmt.Sprintf(format, args...))
}

// pushBlock enters a new lexical block, optionally starting a new function
// scope when fn is non-nil.
func (r *resolver) pushBlock(fn *funcScope) *block {
	b := &block{parent: r.env, bindings: make(map[string]*Binding)}
	if fn != nil {
		b.fn = fn
		fn.root = b
	} else if r.env != nil {
		b.fn = r.env.fn
		b.insideWith = r.env.insideWith
	}

	if r.env == nil {
		r.root = b
	} else {
		r.env.children = append(r.env.children, b)
	}
	r.env = b
	return b
}

func (r *resolver) popBlock() {
	r.env = r.env.parent
}

func (r *resolver) resolveChunk(ch *ast.Chunk) {
	top := r.newFuncScope(nil, 0)
	ch.Info = top.info
	r.pushBlock(top)
	r.hoist(ch.Block)
	for _, s := range ch.Block.Stmts {
		r.stmt(s)
	}
	r.popBlock()
}

// hoist pre-declares every var and function declaration reachable from
// block without crossing into a nested function literal, mirroring
// ECMAScript's var/function hoisting: these names are visible throughout
// the enclosing function (or the module, at the top level) even before the
// statement that declares them runs.
func (r *resolver) hoist(b *ast.Block) {
	for _, s := range b.Stmts {
		r.hoistStmt(s)
	}
}

func (r *resolver) hoistStmt(stmt ast.Stmt) {
	switch stmt := stmt.(type) {
	case *ast.DeclStmt:
		if stmt.DeclType == token.VAR {
			for _, name := range stmt.Names {
				r.declare(name, token.VAR)
			}
		}
	case *ast.FuncStmt:
		r.declare(stmt.Name, token.VAR)
	case *ast.IfStmt:
		r.hoist(stmt.True)
		if stmt.False != nil {
			r.hoist(stmt.False)
		}
	case *ast.ForStmt:
		if d, ok := stmt.Init.(*ast.DeclStmt); ok {
			r.hoistStmt(d)
		}
		r.hoist(stmt.Body)
	case *ast.ForInStmt:
		if stmt.DeclTyp == token.VAR {
			r.declare(stmt.Name, token.VAR)
		}
		r.hoist(stmt.Body)
	case *ast.WhileStmt:
		r.hoist(stmt.Body)
	case *ast.TryStmt:
		r.hoist(stmt.Body)
		if stmt.HasCatch {
			r.hoist(stmt.Catch)
		}
		if stmt.Finally != nil {
			r.hoist(stmt.Finally)
		}
	case *ast.WithStmt:
		r.hoist(stmt.Body)
	case *ast.BlockStmt:
		r.hoist(stmt.Body)
	}
}

// declare pre-registers a hoisted var/function name directly in the
// current function's root block, so that later a matching DeclStmt or
// FuncStmt only needs to look it up rather than re-declare it.
func (r *resolver) declare(ident *ast.IdentExpr, declType token.Token) {
	root := r.env.fn.root
	if bdg, ok := root.bindings[ident.Lit]; ok {
		ident.Binding = bdg
		return
	}
	bdg := r.newBinding(ident, declType)
	root.bindings[ident.Lit] = bdg
}

// newBinding creates a Binding for a declaration reached at depth
// r.env.fn.depth, classifying it Global if declared at the top level of the
// chunk and Stack otherwise, and records it in the owning funcScope.
func (r *resolver) newBinding(ident *ast.IdentExpr, declType token.Token) *Binding {
	fn := r.env.fn
	bdg := &Binding{
		Name:       ident.Lit,
		Immutable:  declType == token.CONST,
		Pos:        r.file.Position(ident.NamePos),
		OwnerDepth: fn.depth,
	}
	if fn.depth == 0 {
		bdg.Type = Global
		r.addGlobal(ident.Lit, bdg)
	} else {
		bdg.Type = Stack
		fn.locals = append(fn.locals, bdg)
	}
	ident.Binding = bdg
	return bdg
}

func (r *resolver) addGlobal(name string, bdg *Binding) {
	if _, ok := r.globals[name]; !ok {
		r.globals[name] = bdg
		r.globalOrder = append(r.globalOrder, bdg)
	}
}

// bind declares a new lexical (let/const/parameter/catch-param) binding in
// the current block. Unlike hoisted var/function declarations, these are
// visible only from the declaration point to the end of their block and
// cannot be redeclared in the same block.
func (r *resolver) bind(ident *ast.IdentExpr, declType token.Token) {
	if _, ok := r.env.bindings[ident.Lit]; ok {
		r.errorf(ident.NamePos, "already declared in this block: %s", ident.Lit)
		return
	}
	bdg := r.newBinding(ident, declType)
	r.env.bindings[ident.Lit] = bdg
}

func (r *resolver) block(b *ast.Block) {
	r.pushBlock(nil)
	for _, s := range b.Stmts {
		r.stmt(s)
	}
	r.popBlock()
}

func (r *resolver) stmt(stmt ast.Stmt) {
	switch stmt := stmt.(type) {
	case *ast.DeclStmt:
		for _, v := range stmt.Values {
			if v != nil {
				r.expr(v)
			}
		}
		for _, name := range stmt.Names {
			if stmt.DeclType == token.VAR {
				// already hoisted; just resolve to the existing binding.
				r.use(name)
			} else {
				r.bind(name, stmt.DeclType)
			}
		}

	case *ast.ExprStmt:
		r.expr(stmt.X)

	case *ast.IfStmt:
		r.expr(stmt.Cond)
		r.block(stmt.True)
		if stmt.False != nil {
			r.block(stmt.False)
		}

	case *ast.ForStmt:
		r.pushBlock(nil)
		if stmt.Init != nil {
			r.stmt(stmt.Init)
		}
		if stmt.Cond != nil {
			r.expr(stmt.Cond)
		}
		if stmt.Post != nil {
			r.stmt(stmt.Post)
		}
		r.env.fn.loopDepth++
		r.block(stmt.Body)
		r.env.fn.loopDepth--
		r.popBlock()

	case *ast.ForInStmt:
		r.expr(stmt.Right)
		r.pushBlock(nil)
		if stmt.DeclTyp == token.VAR {
			r.use(stmt.Name)
		} else if stmt.DeclTyp != token.ILLEGAL {
			r.bind(stmt.Name, stmt.DeclTyp)
		} else {
			r.expr(stmt.Name)
		}
		r.env.fn.loopDepth++
		r.block(stmt.Body)
		r.env.fn.loopDepth--
		r.popBlock()

	case *ast.WhileStmt:
		r.expr(stmt.Cond)
		r.env.fn.loopDepth++
		r.block(stmt.Body)
		r.env.fn.loopDepth--

	case *ast.FuncStmt:
		// the name itself was already hoisted into the enclosing function's
		// root block; resolve it so ident.Binding is populated, then resolve
		// the function body in its own scope.
		r.use(stmt.Name)
		r.function(stmt.Sig, stmt.Body)

	case *ast.ReturnStmt:
		if stmt.Value != nil {
			r.expr(stmt.Value)
		}

	case *ast.BreakStmt:
		if r.env.fn.loopDepth == 0 {
			r.errorf(stmt.TokenPos, "break outside of a loop")
		}

	case *ast.ContinueStmt:
		if r.env.fn.loopDepth == 0 {
			r.errorf(stmt.TokenPos, "continue outside of a loop")
		}

	case *ast.ThrowStmt:
		r.expr(stmt.Value)

	case *ast.TryStmt:
		r.block(stmt.Body)
		if stmt.HasCatch {
			r.pushBlock(nil)
			if stmt.CatchParam != nil {
				r.bind(stmt.CatchParam, token.LET)
			}
			for _, s := range stmt.Catch.Stmts {
				r.stmt(s)
			}
			r.popBlock()
		}
		if stmt.Finally != nil {
			r.block(stmt.Finally)
		}

	case *ast.WithStmt:
		r.expr(stmt.Object)
		r.pushBlock(nil)
		r.env.insideWith = true
		for _, s := range stmt.Body.Stmts {
			r.stmt(s)
		}
		r.popBlock()

	case *ast.BlockStmt:
		r.block(stmt.Body)

	default:
		panic(fmt.Sprintf("unexpected stmt %T", stmt))
	}
}

func (r *resolver) expr(expr ast.Expr) {
	switch expr := expr.(type) {
	case *ast.IdentExpr:
		r.use(expr)

	case *ast.LiteralExpr, *ast.RegexpExpr, *ast.ThisExpr:
		// no identifiers to resolve

	case *ast.ArrayExpr:
		for _, it := range expr.Items {
			r.expr(it)
		}

	case *ast.MapExpr:
		for _, it := range expr.Items {
			// object keys that are plain identifiers are property names, not
			// variable references (e.g. {a: 1}), so only resolve keys that are
			// themselves computed expressions (anything but a bare IdentExpr
			// used as shorthand key is already a non-Ident expression).
			if _, ok := it.Key.(*ast.IdentExpr); !ok {
				r.expr(it.Key)
			}
			r.expr(it.Value)
		}

	case *ast.FuncExpr:
		r.function(expr.Sig, expr.Body)

	case *ast.UnaryOpExpr:
		r.expr(expr.Right)

	case *ast.BinOpExpr:
		r.expr(expr.Left)
		r.expr(expr.Right)

	case *ast.LogicalExpr:
		r.expr(expr.Left)
		r.expr(expr.Right)

	case *ast.CallExpr:
		r.expr(expr.Fn)
		for _, a := range expr.Args {
			r.expr(a)
		}

	case *ast.NewExpr:
		r.expr(expr.Callee)
		for _, a := range expr.Args {
			r.expr(a)
		}

	case *ast.DotExpr:
		// Right is a property name, not a variable reference: runtime lookup.
		r.expr(expr.Left)

	case *ast.IndexExpr:
		r.expr(expr.Prefix)
		r.expr(expr.Index)

	case *ast.ParenExpr:
		r.expr(expr.Expr)

	case *ast.AssignExpr:
		r.expr(expr.Right)
		r.assignTarget(expr.Left)

	default:
		panic(fmt.Sprintf("unexpected expr %T", expr))
	}
}

// assignTarget resolves the left-hand side of an assignment, reporting an
// error if it targets an immutable (const) binding.
func (r *resolver) assignTarget(e ast.Expr) {
	if id, ok := ast.Unwrap(e).(*ast.IdentExpr); ok {
		r.use(id)
		if bdg, ok := id.Binding.(*Binding); ok && bdg.Immutable {
			r.errorf(id.NamePos, "assignment to constant variable: %s", id.Lit)
		}
		return
	}
	r.expr(e)
}

// function resolves a function literal's parameters and body in a freshly
// pushed function scope, one level deeper than the enclosing one.
func (r *resolver) function(sig *ast.FuncSignature, body *ast.Block) {
	fn := r.newFuncScope(r.env.fn, r.env.fn.depth+1)
	sig.Info = fn.info
	r.pushBlock(fn)
	for _, p := range sig.Params {
		r.bind(p, token.LET)
	}
	fn.nparams = len(sig.Params)

	// Every function implicitly declares `arguments` unless a parameter
	// shadows it. The binding is elided by finalize when nothing in the
	// body references it.
	if _, ok := r.env.bindings["arguments"]; !ok {
		bdg := r.newBinding(&ast.IdentExpr{Lit: "arguments"}, token.LET)
		r.env.bindings["arguments"] = bdg
		fn.arguments = bdg
	}

	r.hoist(body)
	for _, s := range body.Stmts {
		r.stmt(s)
	}
	r.popBlock()
}

// use resolves an identifier reference, walking outward from the current
// block and upgrading the found binding's Type as required by where the use
// occurs relative to its declaration.
func (r *resolver) use(ident *ast.IdentExpr) {
	startFn := r.env.fn
	startBlock := r.env

	forceLookup := false
	for b := startBlock; b != nil; b = b.parent {
		if b.insideWith {
			forceLookup = true
		}
		bdg, ok := b.bindings[ident.Lit]
		if !ok {
			continue
		}

		if forceLookup {
			bdg = r.lookupFallback(ident.Lit)
			bdg.refcount++
			ident.Binding = bdg
			return
		}

		if b.fn != startFn {
			// Found in an enclosing function's frame: this is a closure
			// capture. A Stack binding must move to the heap; a binding
			// that is already Global needs no such promotion, since it is
			// reachable from anywhere regardless of nesting. The per-site
			// walk depth itself is not recorded here: it is derived by the
			// compiler, at the use site, from OwnerDepth.
			bdg.Type = Upgrade(bdg.Type, Heap)
		}
		bdg.refcount++
		ident.Binding = bdg
		return
	}

	// Not found in any static scope: predeclared/universal names get a
	// single shared Global binding; anything else falls back to a dynamic
	// Lookup, matching the way an un-declared name behaves at the top level
	// of a sloppy-mode ECMAScript program.
	if r.isPredeclared(ident.Lit) || r.isUniversal(ident.Lit) {
		bdg, ok := r.globals[ident.Lit]
		if !ok {
			bdg = &Binding{Name: ident.Lit, Type: Global, Pos: r.file.Position(ident.NamePos)}
			r.addGlobal(ident.Lit, bdg)
		}
		bdg.refcount++
		ident.Binding = bdg
		return
	}

	bdg := r.lookupFallback(ident.Lit)
	bdg.refcount++
	ident.Binding = bdg
}

func (r *resolver) lookupFallback(name string) *Binding {
	bdg, ok := r.lookups[name]
	if !ok {
		bdg = &Binding{Name: name, Type: Lookup}
		r.lookups[name] = bdg
	}
	return bdg
}
