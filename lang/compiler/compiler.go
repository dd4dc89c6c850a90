// Much of the compiler package is adapted from the Starlark source code:
// https://github.com/google/starlark-go/tree/ee8ed142361c69d52fe8e9fb5e311d2a0a7c02de
//
// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package compiler takes a parsed and resolved AST and compiles it to bytecode
// that can be executed by the virtual machine. It also provides a
// pseudo-assembly serialization and deserialization to encode in textual form
// a program that closely matches the binary format of the compiled form.
package compiler

import (
	"context"
	"fmt"
	"os"

	"github.com/ivscript/iv/lang/ast"
	"github.com/ivscript/iv/lang/resolver"
	"github.com/ivscript/iv/lang/token"
)

// CompileFiles takes the file set and corresponding list of chunks from
// a successful resolve result and compiles the AST to bytecode.
//
// An AST that resulted in errors in the resolve phase should never be
// passed to the compiler, the behavior is undefined.
//
// Compiling files does not return an error as a valid resolved AST
// should always generate a valid, executable compiled program.
func CompileFiles(ctx context.Context, fset *token.FileSet, chunks []*ast.Chunk) []*Program {
	if len(chunks) == 0 {
		return nil
	}

	progs := make([]*Program, len(chunks))
	for i, ch := range chunks {
		start, _ := ch.Span()
		file := fset.File(start)
		pcomp := &pcomp{
			prog: &Program{
				Filename: file.Name(),
			},
			file:      file,
			names:     make(map[string]uint32),
			constants: make(map[interface{}]uint32),
		}
		info, _ := ch.Info.(*resolver.FuncInfo)
		if info == nil {
			info = &resolver.FuncInfo{}
		}
		pcomp.prog.Toplevel = pcomp.function(pcomp.prog.Filename, start, ch.Block, info, 0)
		progs[i] = pcomp.prog
	}
	return progs
}

// A pcomp holds the compiler state for a Program.
type pcomp struct {
	prog *Program    // what we're building
	file *token.File // to resolve token.Pos positions

	names     map[string]uint32
	constants map[interface{}]uint32
}

// nameIndex returns the index of name in the program's name pool, adding it
// if necessary.
func (pcomp *pcomp) nameIndex(name string) uint32 {
	idx, ok := pcomp.names[name]
	if !ok {
		idx = uint32(len(pcomp.prog.Names))
		pcomp.names[name] = idx
		pcomp.prog.Names = append(pcomp.prog.Names, name)
	}
	return idx
}

// constantIndex returns the index of v in the program's constant pool,
// adding it if necessary. v must be an int64, float64, string or Regexp.
func (pcomp *pcomp) constantIndex(v interface{}) uint32 {
	idx, ok := pcomp.constants[v]
	if !ok {
		idx = uint32(len(pcomp.prog.Constants))
		pcomp.constants[v] = idx
		pcomp.prog.Constants = append(pcomp.prog.Constants, v)
	}
	return idx
}

func (pcomp *pcomp) function(name string, start token.Pos, body *ast.Block, info *resolver.FuncInfo, depth int) *Funcode {
	fcomp := &fcomp{
		pcomp: pcomp,
		depth: depth,
		fn: &Funcode{
			Prog:        pcomp.prog,
			Pos:         pcomp.file.Position(start),
			Name:        name,
			Locals:      bindings(info.Locals),
			NumParams:   info.NumParams,
			NumHeapVars: info.NumHeapVars,
		},
	}

	entry := fcomp.newBlock()
	fcomp.block = entry

	// Prologue: parameters promoted to the heap are copied from the stack
	// slot the machine bound them to into their environment cell, and the
	// arguments array is materialized if the body references it.
	for _, hp := range info.HeapParams {
		fcomp.emit1(LOCAL, uint32(hp.StackSlot))
		fcomp.emit1(SETHEAP, EncodeHeapArg(0, hp.Index))
	}
	if info.Arguments != nil {
		fcomp.emit(ARGUMENTS)
		fcomp.storeBinding(info.Arguments)
	}

	fcomp.stmts(body.Stmts)
	if fcomp.block != nil {
		fcomp.emit(NIL)
		fcomp.emit(RETURN)
	}

	var oops bool // something bad happened

	setinitialstack := func(b *block, depth int) {
		if b.initialstack == -1 {
			b.initialstack = depth
		} else if b.initialstack != depth {
			fmt.Fprintf(os.Stderr, "%d: setinitialstack: depth mismatch: %d vs %d\n",
				b.index, b.initialstack, depth)
			oops = true
		}
	}

	// Linearize the CFG:
	// compute order, address, and initial
	// stack depth of each reachable block.
	var pc uint32
	var blocks []*block
	var maxstack int
	var visit func(b *block)
	visit = func(b *block) {
		if b.index >= 0 {
			return // already visited
		}
		b.index = len(blocks)
		b.addr = pc
		blocks = append(blocks, b)

		stack := b.initialstack
		if debug {
			fmt.Fprintf(os.Stderr, "%s block %d: (stack = %d)\n", name, b.index, stack)
		}
		var cjmpAddr *uint32
		var isiterjmp int
		for i, insn := range b.insns {
			pc++

			// Compute size of argument.
			if insn.op >= OpcodeArgMin {
				switch {
				case insn.op == ITERJMP:
					isiterjmp = 1
					cjmpAddr = &b.insns[i].arg
					pc += 4
				case insn.op == CJMP:
					cjmpAddr = &b.insns[i].arg
					pc += 4
				case isJump(insn.op) || isVarAccess(insn.op):
					// always encoded on 4 bytes, padded with NOPs.
					pc += 4
				default:
					pc += uint32(varArgLen(insn.arg))
				}
			}

			// Compute effect on stack.
			se := insn.stackeffect()
			if debug {
				fmt.Fprintln(os.Stderr, "\t", insn.op, stack, stack+se)
			}
			stack += se
			if stack < 0 {
				fmt.Fprintf(os.Stderr, "After pc=%d: stack underflow\n", pc)
				oops = true
			}
			if stack+isiterjmp > maxstack {
				maxstack = stack + isiterjmp
			}
		}

		// Place the jmp block next.
		if b.jmp != nil {
			// jump threading (empty cycles are impossible)
			for b.jmp.insns == nil && b.jmp.jmp != nil {
				b.jmp = b.jmp.jmp
			}

			setinitialstack(b.jmp, stack+isiterjmp)
			// RUNDEFER only takes effect at the next jump, so a block that
			// ends with it always gets an explicit JMP, even to a fallthrough
			// successor.
			runsDefer := len(b.insns) > 0 && b.insns[len(b.insns)-1].op == RUNDEFER
			if runsDefer {
				b.emitJmp = true
				pc += 5
			}
			if b.jmp.index < 0 {
				// Successor is not yet visited:
				// place it next and fall through.
				visit(b.jmp)
			} else if !runsDefer {
				// Successor already visited;
				// explicit backward jump required.
				b.emitJmp = true
				pc += 5
			}
		}

		// Then the cjmp block.
		if b.cjmp != nil {
			// jump threading (empty cycles are impossible)
			for b.cjmp.insns == nil && b.cjmp.jmp != nil {
				b.cjmp = b.cjmp.jmp
			}

			setinitialstack(b.cjmp, stack)
			visit(b.cjmp)

			// Patch the CJMP/ITERJMP, if present.
			if cjmpAddr != nil {
				*cjmpAddr = b.cjmp.addr
			}
		}
	}
	setinitialstack(entry, 0)
	visit(entry)

	// Handler blocks (catch and finally bodies) are reachable only through
	// the defer tables, never through a CFG edge, so they are placed after
	// the main flow, in region-creation order: an inner catch handler ends
	// up at a higher address than the outer ones covering the same code,
	// which is what makes the machine's highest-start-address dispatch rule
	// pick the innermost handler first.
	for _, reg := range fcomp.regions {
		if reg.handler != nil {
			setinitialstack(reg.handler, 0)
			visit(reg.handler)
		}
	}

	// A CATCHJMP target with no ordinary CFG edge into it (the code after a
	// try whose body never falls through) is still reachable through the
	// handler; place it too, or its address would read as the machine's
	// special "covers the whole function" zero.
	for _, fx := range fcomp.fixups {
		if fx.target.index < 0 {
			setinitialstack(fx.target, 0)
			visit(fx.target)
		}
	}

	fn := fcomp.fn
	fn.MaxStack = maxstack

	// Resolve the address fixups now that every reachable block has one.
	for _, fx := range fcomp.fixups {
		fx.block.insns[fx.insn].arg = fx.target.addr
	}

	// Compute the defer/catch coverage tables: for each region, the
	// contiguous address runs of the blocks it covers.
	fcomp.buildRegionTables(blocks, pc)

	// Emit bytecode.
	fcomp.generate(blocks, pc)

	// Don't panic until we've completed printing of the function.
	if oops {
		panic("internal error")
	}

	return fn
}

// An fcomp holds the compiler state for a Funcode.
type fcomp struct {
	fn *Funcode // what we're building

	pcomp *pcomp
	depth int // function nesting depth, 0 for the chunk's top level
	loops []loop
	block *block

	// curRegion is the innermost active protected region (try body being
	// compiled), nil outside any try. New blocks inherit it for coverage.
	curRegion *region
	regions   []*region

	// nwith counts the with statements enclosing the current point, so
	// break/continue can rebalance the dynamic scope-chain stack.
	nwith int

	fixups []addrFixup
}

// A loop records the jump targets of the innermost enclosing loops, plus the
// with-statement depth at loop entry so that break/continue can unwind the
// dynamic scope chain before jumping out.
type loop struct {
	break_, continue_ *block
	withDepth         int
}

// A region is a protected span of code attached to a catch or finally
// handler. Coverage is tracked per block: every block created while the
// region is the current one (or one of its descendants) belongs to it. The
// handler itself is compiled under the region's parent, except that a catch
// handler remains covered by its sibling finally region.
type region struct {
	isCatch bool
	parent  *region
	handler *block
}

// An addrFixup patches the argument of an instruction (CATCHJMP) with the
// final address of a target block once the layout is known.
type addrFixup struct {
	block  *block
	insn   int
	target *block
}

// block is a block of code - every executable line of code is compiled inside
// a block.
type block struct {
	insns []insn

	// If the last insn is a RETURN, jmp and cjmp are nil.
	// If the last insn is a CJMP or ITERJMP,
	//  cjmp and jmp are the "true" and "false" successors.
	// Otherwise, jmp is the sole successor.
	jmp, cjmp *block

	// region is the innermost protected region active when the block was
	// created, nil for unprotected code.
	region *region

	initialstack int // for stack depth computation

	// Used during encoding
	index   int // -1 => not encoded yet
	addr    uint32
	emitJmp bool // explicit jump to jmp required (not a fallthrough)
}

// bindings converts resolver.Bindings to compiled form.
func bindings(bindings []*resolver.Binding) []Binding {
	res := make([]Binding, len(bindings))
	for i, bind := range bindings {
		res[i].Name = bind.Name
		res[i].Pos = bind.Pos
	}
	return res
}

type insn struct {
	op        Opcode
	arg       uint32
	line, col int32
}

func (fcomp *fcomp) newBlock() *block {
	return &block{index: -1, initialstack: -1, region: fcomp.curRegion}
}

// startBlock switches emission to b.
func (fcomp *fcomp) startBlock(b *block) {
	fcomp.block = b
}

// emit appends an instruction with no argument to the current block.
func (fcomp *fcomp) emit(op Opcode) {
	if op >= OpcodeArgMin {
		panic(fmt.Sprintf("missing arg: %s", op))
	}
	fcomp.ensureBlock()
	fcomp.block.insns = append(fcomp.block.insns, insn{op: op})
}

// emit1 appends an instruction with an immediate argument to the current
// block.
func (fcomp *fcomp) emit1(op Opcode, arg uint32) {
	if op < OpcodeArgMin {
		panic(fmt.Sprintf("unwanted arg: %s", op))
	}
	fcomp.ensureBlock()
	fcomp.block.insns = append(fcomp.block.insns, insn{op: op, arg: arg})
}

// ensureBlock guarantees there is a current block to emit into. Code after a
// return/break/continue lands in a fresh unlinked block that linearization
// never visits.
func (fcomp *fcomp) ensureBlock() {
	if fcomp.block == nil {
		fcomp.block = fcomp.newBlock()
	}
}

// jump terminates the current block with an unconditional transfer to b.
func (fcomp *fcomp) jump(b *block) {
	fcomp.ensureBlock()
	fcomp.block.jmp = b
	fcomp.block = nil
}

// condjump terminates the current block with op (CJMP or ITERJMP): t is the
// jump-taken successor, f the fallthrough. Emission continues in f.
func (fcomp *fcomp) condjump(op Opcode, t, f *block) {
	if !(op == CJMP || op == ITERJMP) {
		panic("not a conditional jump: " + op.String())
	}
	fcomp.emit1(op, 0) // patched by linearization
	b := fcomp.block
	b.cjmp = t
	b.jmp = f
	fcomp.startBlock(f)
}

// catchjump terminates the current block with a CATCHJMP to target, patched
// once addresses are known.
func (fcomp *fcomp) catchjump(target *block) {
	fcomp.emit1(CATCHJMP, 0)
	fcomp.fixups = append(fcomp.fixups, addrFixup{fcomp.block, len(fcomp.block.insns) - 1, target})
	fcomp.block = nil
}

func (fcomp *fcomp) pushRegion(isCatch bool) *region {
	reg := &region{isCatch: isCatch, parent: fcomp.curRegion}
	fcomp.regions = append(fcomp.regions, reg)
	fcomp.curRegion = reg
	return reg
}

func (fcomp *fcomp) popRegion() {
	fcomp.curRegion = fcomp.curRegion.parent
}

// coveredBy reports whether b belongs to reg, directly or through a nested
// region.
func (b *block) coveredBy(reg *region) bool {
	for r := b.region; r != nil; r = r.parent {
		if r == reg {
			return true
		}
	}
	return false
}

// buildRegionTables converts each region's covered blocks to [PC0, PC1)
// ranges on the Funcode's Defers/Catches tables. A region whose covered
// blocks were laid out non-contiguously (a break out of a try, say)
// contributes one entry per contiguous run, all sharing the handler's
// StartPC.
func (fcomp *fcomp) buildRegionTables(blocks []*block, codelen uint32) {
	for _, reg := range fcomp.regions {
		if reg.handler == nil || reg.handler.index < 0 {
			continue
		}
		start := reg.handler.addr
		var runStart, runEnd uint32
		inRun := false
		flush := func() {
			if !inRun {
				return
			}
			d := Defer{PC0: runStart, PC1: runEnd, StartPC: start}
			if reg.isCatch {
				fcomp.fn.Catches = append(fcomp.fn.Catches, d)
			} else {
				fcomp.fn.Defers = append(fcomp.fn.Defers, d)
			}
			inRun = false
		}
		for i, b := range blocks {
			end := codelen
			if i+1 < len(blocks) {
				end = blocks[i+1].addr
			}
			if b.coveredBy(reg) {
				if !inRun {
					runStart = b.addr
					inRun = true
				}
				runEnd = end
			} else {
				flush()
			}
		}
		flush()
	}
}

// tempLocal allocates an anonymous stack slot used to juggle values in
// compound index assignments. Slots are appended after the resolver-assigned
// locals; the machine sizes the frame from the final list.
func (fcomp *fcomp) tempLocal() uint32 {
	idx := uint32(len(fcomp.fn.Locals))
	fcomp.fn.Locals = append(fcomp.fn.Locals, Binding{Name: "(tmp)"})
	return idx
}

func (fcomp *fcomp) stmts(stmts []ast.Stmt) {
	for _, stmt := range stmts {
		fcomp.stmt(stmt)
	}
}

func (fcomp *fcomp) stmt(stmt ast.Stmt) {
	switch stmt := stmt.(type) {
	case *ast.DeclStmt:
		for i, name := range stmt.Names {
			var value ast.Expr
			if i < len(stmt.Values) {
				value = stmt.Values[i]
			}
			bdg := binding(name)
			if bdg != nil && bdg.Type == resolver.Stack && bdg.Refcount() == 0 {
				// elided local: evaluate the initializer for its effects only.
				if value != nil {
					fcomp.expr(value)
					fcomp.emit(POP)
				}
				continue
			}
			if value != nil {
				fcomp.expr(value)
			} else {
				fcomp.emit(NIL)
			}
			fcomp.storeBinding(bdg)
		}

	case *ast.ExprStmt:
		fcomp.expr(stmt.X)
		fcomp.emit(POP)

	case *ast.IfStmt:
		t := fcomp.newBlock()
		f := fcomp.newBlock()
		done := fcomp.newBlock()

		fcomp.expr(stmt.Cond)
		fcomp.condjump(CJMP, t, f)
		if stmt.False != nil {
			fcomp.stmts(stmt.False.Stmts)
		}
		fcomp.jump(done)
		fcomp.startBlock(t)
		fcomp.stmts(stmt.True.Stmts)
		fcomp.jump(done)
		fcomp.startBlock(done)

	case *ast.WhileStmt:
		head := fcomp.newBlock()
		body := fcomp.newBlock()
		done := fcomp.newBlock()

		fcomp.jump(head)
		fcomp.startBlock(head)
		fcomp.expr(stmt.Cond)
		fcomp.condjump(CJMP, body, done)
		fcomp.startBlock(body)
		fcomp.loops = append(fcomp.loops, loop{break_: done, continue_: head, withDepth: fcomp.withDepth()})
		fcomp.stmts(stmt.Body.Stmts)
		fcomp.loops = fcomp.loops[:len(fcomp.loops)-1]
		fcomp.jump(head)
		fcomp.startBlock(done)

	case *ast.ForStmt:
		head := fcomp.newBlock()
		body := fcomp.newBlock()
		post := fcomp.newBlock()
		done := fcomp.newBlock()

		if stmt.Init != nil {
			fcomp.stmt(stmt.Init)
		}
		fcomp.jump(head)
		fcomp.startBlock(head)
		if stmt.Cond != nil {
			fcomp.expr(stmt.Cond)
			fcomp.condjump(CJMP, body, done)
		} else {
			fcomp.jump(body)
		}
		fcomp.startBlock(body)
		fcomp.loops = append(fcomp.loops, loop{break_: done, continue_: post, withDepth: fcomp.withDepth()})
		fcomp.stmts(stmt.Body.Stmts)
		fcomp.loops = fcomp.loops[:len(fcomp.loops)-1]
		fcomp.jump(post)
		fcomp.startBlock(post)
		if stmt.Post != nil {
			fcomp.stmt(stmt.Post)
		}
		fcomp.jump(head)
		fcomp.startBlock(done)

	case *ast.ForInStmt:
		head := fcomp.newBlock()
		elem := fcomp.newBlock()
		exhausted := fcomp.newBlock()
		done := fcomp.newBlock()

		fcomp.expr(stmt.Right)
		fcomp.emit(ITERPUSH)
		fcomp.jump(head)
		fcomp.startBlock(head)
		fcomp.condjump(ITERJMP, exhausted, elem)
		fcomp.startBlock(elem)
		// The loop variable rebinds on every iteration, const or not; an
		// unreferenced one still consumes the iteration's element.
		if bdg := binding(stmt.Name); bdg != nil && bdg.Type == resolver.Stack {
			if bdg.Refcount() == 0 {
				fcomp.emit(POP)
			} else {
				fcomp.emit1(SETLOCAL, uint32(bdg.Index))
			}
		} else {
			fcomp.storeBinding(bdg)
		}
		fcomp.loops = append(fcomp.loops, loop{break_: exhausted, continue_: head, withDepth: fcomp.withDepth()})
		fcomp.stmts(stmt.Body.Stmts)
		fcomp.loops = fcomp.loops[:len(fcomp.loops)-1]
		fcomp.jump(head)
		fcomp.startBlock(exhausted)
		fcomp.emit(ITERPOP)
		fcomp.jump(done)
		fcomp.startBlock(done)

	case *ast.FuncStmt:
		fcomp.emitFunction(stmt.Name.Lit, stmt.Function, stmt.Sig, stmt.Body)
		fcomp.storeBinding(binding(stmt.Name))

	case *ast.ReturnStmt:
		if stmt.Value != nil {
			fcomp.expr(stmt.Value)
		} else {
			fcomp.emit(NIL)
		}
		if fcomp.curRegion != nil {
			fcomp.emit(RUNDEFER)
		}
		fcomp.emit(RETURN)
		fcomp.block = nil

	case *ast.BreakStmt:
		l := fcomp.loops[len(fcomp.loops)-1]
		fcomp.unwindWith(l.withDepth)
		if fcomp.curRegion != nil {
			fcomp.emit(RUNDEFER)
		}
		fcomp.jump(l.break_)

	case *ast.ContinueStmt:
		l := fcomp.loops[len(fcomp.loops)-1]
		fcomp.unwindWith(l.withDepth)
		if fcomp.curRegion != nil {
			fcomp.emit(RUNDEFER)
		}
		fcomp.jump(l.continue_)

	case *ast.ThrowStmt:
		fcomp.expr(stmt.Value)
		fcomp.emit(THROW)
		fcomp.block = nil

	case *ast.TryStmt:
		fcomp.tryStmt(stmt)

	case *ast.WithStmt:
		fcomp.expr(stmt.Object)
		fcomp.emit(WITHPUSH)
		fcomp.nwith++
		fcomp.stmts(stmt.Body.Stmts)
		fcomp.nwith--
		fcomp.emit(WITHPOP)

	case *ast.BlockStmt:
		fcomp.stmts(stmt.Body.Stmts)

	default:
		panic(fmt.Sprintf("unexpected stmt %T", stmt))
	}
}

// tryStmt compiles try/catch/finally. The protected body is covered by up to
// two regions: an inner catch region and an outer finally region; their
// handlers are emitted after the main flow and reached only through the
// Funcode's Defers/Catches tables.
func (fcomp *fcomp) tryStmt(stmt *ast.TryStmt) {
	// after is created before the regions are pushed, so it belongs to the
	// enclosing coverage only: leaving the try must not re-trigger its own
	// handlers.
	after := fcomp.newBlock()

	var finReg, catchReg *region
	if stmt.Finally != nil {
		finReg = fcomp.pushRegion(false)
	}
	if stmt.HasCatch {
		catchReg = fcomp.pushRegion(true)
	}

	body := fcomp.newBlock()
	fcomp.jump(body)
	fcomp.startBlock(body)
	fcomp.stmts(stmt.Body.Stmts)

	if catchReg != nil {
		fcomp.popRegion()
	}
	// Normal exit of the body: trigger the finally (if any) on the way out.
	if finReg != nil {
		fcomp.emit(RUNDEFER)
	}
	fcomp.jump(after)

	if catchReg != nil {
		// The catch handler is compiled with the catch region popped but
		// the sibling finally region still active: an error inside the
		// catch body, or its normal CATCHJMP exit, must both pass through
		// the finally.
		h := fcomp.newBlock()
		catchReg.handler = h
		fcomp.startBlock(h)
		if stmt.CatchParam != nil {
			bdg := binding(stmt.CatchParam)
			if bdg != nil && bdg.Type == resolver.Stack && bdg.Refcount() == 0 {
				// unused catch binding: nothing to store
			} else {
				fcomp.emit(CAUGHT)
				fcomp.storeBinding(bdg)
			}
		}
		fcomp.stmts(stmt.Catch.Stmts)
		fcomp.catchjump(after)
	}

	if finReg != nil {
		fcomp.popRegion()
		// The handler block sits outside its own region: the finally body
		// must not be re-entered while it runs.
		h := fcomp.newBlock()
		finReg.handler = h
		fcomp.startBlock(h)
		fcomp.stmts(stmt.Finally.Stmts)
		fcomp.emit(DEFEREXIT)
		fcomp.block = nil
	}

	fcomp.startBlock(after)
}

func (fcomp *fcomp) withDepth() int { return fcomp.nwith }

// unwindWith emits the WITHPOPs needed to leave the with statements entered
// between depth target and the current point, before a break or continue
// jumps out of them.
func (fcomp *fcomp) unwindWith(target int) {
	for i := fcomp.withDepth(); i > target; i-- {
		fcomp.emit(WITHPOP)
	}
}

// binding returns the resolved binding of an identifier, or nil when the
// resolver left none (only possible on an AST that resolved with errors,
// which the compiler is documented not to accept).
func binding(id *ast.IdentExpr) *resolver.Binding {
	bdg, _ := id.Binding.(*resolver.Binding)
	return bdg
}

// loadBinding emits the variable-access opcode reading bdg, chosen from its
// resolver classification.
func (fcomp *fcomp) loadBinding(bdg *resolver.Binding) {
	switch bdg.Type {
	case resolver.Stack:
		fcomp.emit1(LOCAL, uint32(bdg.Index))
	case resolver.Heap:
		depth := fcomp.depth - bdg.OwnerDepth
		fcomp.emit1(HEAP, EncodeHeapArg(depth, bdg.Index))
	case resolver.Global:
		fcomp.emit1(GLOBAL, fcomp.pcomp.nameIndex(bdg.Name))
	case resolver.Lookup:
		fcomp.emit1(LOOKUP, fcomp.pcomp.nameIndex(bdg.Name))
	}
}

// storeBinding emits the opcode writing the top of stack to bdg.
func (fcomp *fcomp) storeBinding(bdg *resolver.Binding) {
	if bdg == nil {
		fcomp.emit(POP)
		return
	}
	switch bdg.Type {
	case resolver.Stack:
		if bdg.Immutable {
			fcomp.emit1(SETLOCAL_IMMUTABLE, uint32(bdg.Index))
		} else {
			fcomp.emit1(SETLOCAL, uint32(bdg.Index))
		}
	case resolver.Heap:
		depth := fcomp.depth - bdg.OwnerDepth
		fcomp.emit1(SETHEAP, EncodeHeapArg(depth, bdg.Index))
	case resolver.Global:
		fcomp.emit1(SETGLOBAL, fcomp.pcomp.nameIndex(bdg.Name))
	case resolver.Lookup:
		fcomp.emit1(SETLOOKUP, fcomp.pcomp.nameIndex(bdg.Name))
	}
}

// binOpcode maps a binary-operator token to its opcode; the two blocks are
// laid out in parallel order in both enumerations.
func binOpcode(tok token.Token) Opcode {
	switch {
	case tok >= token.PLUS && tok <= token.GTGT:
		return PLUS + Opcode(tok-token.PLUS)
	case tok >= token.LT && tok <= token.NEQ:
		return LT + Opcode(tok-token.LT)
	}
	panic(fmt.Sprintf("not a binary operator: %s", tok))
}

// assignOpToken maps a compound-assignment token to the underlying binary
// operator token.
func assignOpToken(tok token.Token) token.Token {
	switch tok {
	case token.PLUS_EQ:
		return token.PLUS
	case token.MINUS_EQ:
		return token.MINUS
	case token.STAR_EQ:
		return token.STAR
	case token.SLASH_EQ:
		return token.SLASH
	case token.PERCENT_EQ:
		return token.PERCENT
	case token.AMP_EQ:
		return token.AMPERSAND
	case token.PIPE_EQ:
		return token.PIPE
	case token.CIRC_EQ:
		return token.CIRCUMFLEX
	case token.LTLT_EQ:
		return token.LTLT
	case token.GTGT_EQ:
		return token.GTGT
	}
	panic(fmt.Sprintf("not a compound assignment operator: %s", tok))
}

func (fcomp *fcomp) expr(e ast.Expr) {
	switch e := e.(type) {
	case *ast.IdentExpr:
		fcomp.loadBinding(binding(e))

	case *ast.LiteralExpr:
		switch e.Type {
		case token.INT:
			fcomp.emit1(CONSTANT, fcomp.pcomp.constantIndex(e.Int))
		case token.FLOAT:
			fcomp.emit1(CONSTANT, fcomp.pcomp.constantIndex(e.Float))
		case token.STRING:
			fcomp.emit1(CONSTANT, fcomp.pcomp.constantIndex(e.Str))
		case token.TRUE:
			fcomp.emit(TRUE)
		case token.FALSE:
			fcomp.emit(FALSE)
		case token.NULL, token.UNDEFINED:
			fcomp.emit(NIL)
		default:
			panic(fmt.Sprintf("unexpected literal %s", e.Type))
		}

	case *ast.RegexpExpr:
		fcomp.emit1(CONSTANT, fcomp.pcomp.constantIndex(Regexp{Pattern: e.Pattern, Flags: e.Flags}))

	case *ast.ThisExpr:
		// `this` has no static binding in this dialect; it resolves like any
		// other dynamic name, against the with chain and the global object.
		fcomp.emit1(LOOKUP, fcomp.pcomp.nameIndex("this"))

	case *ast.ArrayExpr:
		for _, it := range e.Items {
			fcomp.expr(it)
		}
		fcomp.emit1(MAKEARRAY, uint32(len(e.Items)))

	case *ast.MapExpr:
		fcomp.emit1(MAKEOBJECT, uint32(len(e.Items)))
		for _, it := range e.Items {
			fcomp.emit(DUP)
			switch key := it.Key.(type) {
			case *ast.IdentExpr:
				fcomp.expr(it.Value)
				fcomp.emit1(SETFIELD, fcomp.pcomp.nameIndex(key.Lit))
			case *ast.LiteralExpr:
				if key.Type == token.STRING {
					fcomp.expr(it.Value)
					fcomp.emit1(SETFIELD, fcomp.pcomp.nameIndex(key.Str))
					break
				}
				fcomp.expr(it.Key)
				fcomp.expr(it.Value)
				fcomp.emit(SETINDEX)
			default:
				fcomp.expr(it.Key)
				fcomp.expr(it.Value)
				fcomp.emit(SETINDEX)
			}
		}

	case *ast.FuncExpr:
		name := "lambda"
		if e.Name != nil {
			name = e.Name.Lit
		}
		fcomp.emitFunction(name, e.Function, e.Sig, e.Body)

	case *ast.UnaryOpExpr:
		switch e.Type {
		case token.PLUSPLUS, token.MINUSMINUS:
			fcomp.incDec(e)
		case token.DELETE:
			fcomp.deleteExpr(e)
		case token.NOT:
			fcomp.expr(e.Right)
			fcomp.emit(NOT)
		case token.TYPEOF:
			fcomp.expr(e.Right)
			fcomp.emit(POUND)
		case token.PLUS:
			fcomp.expr(e.Right)
			fcomp.emit(UPLUS)
		case token.MINUS:
			fcomp.expr(e.Right)
			fcomp.emit(UMINUS)
		case token.TILDE:
			fcomp.expr(e.Right)
			fcomp.emit(UTILDE)
		default:
			panic(fmt.Sprintf("unexpected unary operator %s", e.Type))
		}

	case *ast.BinOpExpr:
		fcomp.expr(e.Left)
		fcomp.expr(e.Right)
		switch e.Type {
		case token.IN:
			fcomp.emit(HASKEY)
		case token.INSTANCEOF:
			fcomp.emit(INSTOF)
		default:
			fcomp.emit(binOpcode(e.Type))
		}

	case *ast.LogicalExpr:
		// Both operators evaluate the left operand once, test it without
		// consuming the copy kept as the potential result, and only fall
		// through to the right operand when the short circuit does not
		// apply.
		fallthru := fcomp.newBlock()
		done := fcomp.newBlock()

		fcomp.expr(e.Left)
		fcomp.emit(DUP)
		if e.Type == token.ANDAND {
			taken := fcomp.newBlock()
			// truthy: discard the copy, evaluate right.
			fcomp.condjump(CJMP, taken, fallthru)
			fcomp.jump(done) // falsy: left is the result
			fcomp.startBlock(taken)
			fcomp.emit(POP)
			fcomp.expr(e.Right)
			fcomp.jump(done)
		} else {
			// truthy: left is the result.
			fcomp.condjump(CJMP, done, fallthru)
			fcomp.emit(POP)
			fcomp.expr(e.Right)
			fcomp.jump(done)
		}
		fcomp.startBlock(done)

	case *ast.CallExpr:
		fcomp.expr(e.Fn)
		for _, a := range e.Args {
			fcomp.expr(a)
		}
		fcomp.emit1(CALL, uint32(len(e.Args)))

	case *ast.NewExpr:
		// constructors are ordinary calls in this dialect: the callee is
		// expected to build and return its object.
		fcomp.expr(e.Callee)
		for _, a := range e.Args {
			fcomp.expr(a)
		}
		fcomp.emit1(CALL, uint32(len(e.Args)))

	case *ast.DotExpr:
		fcomp.expr(e.Left)
		fcomp.emit1(ATTR, fcomp.pcomp.nameIndex(e.Right.Lit))

	case *ast.IndexExpr:
		fcomp.expr(e.Prefix)
		fcomp.expr(e.Index)
		fcomp.emit(INDEX)

	case *ast.ParenExpr:
		fcomp.expr(e.Expr)

	case *ast.AssignExpr:
		fcomp.assignExpr(e)

	default:
		panic(fmt.Sprintf("unexpected expr %T", e))
	}
}

// assignExpr compiles an assignment (or compound assignment), leaving the
// assigned value on the stack: assignment is an expression in this language.
func (fcomp *fcomp) assignExpr(e *ast.AssignExpr) {
	compound := e.Type != token.EQ
	switch target := ast.Unwrap(e.Left).(type) {
	case *ast.IdentExpr:
		if compound {
			fcomp.loadBinding(binding(target))
			fcomp.expr(e.Right)
			fcomp.emit(binOpcode(assignOpToken(e.Type)))
		} else {
			fcomp.expr(e.Right)
		}
		fcomp.emit(DUP)
		fcomp.storeBinding(binding(target))

	case *ast.DotExpr:
		fcomp.expr(target.Left)
		if compound {
			fcomp.emit(DUP)
			fcomp.emit1(ATTR, fcomp.pcomp.nameIndex(target.Right.Lit))
			fcomp.expr(e.Right)
			fcomp.emit(binOpcode(assignOpToken(e.Type)))
		} else {
			fcomp.expr(e.Right)
		}
		// [obj value]: store and keep the value as the result.
		fcomp.emit(DUP2)
		fcomp.emit1(SETFIELD, fcomp.pcomp.nameIndex(target.Right.Lit))
		fcomp.emit(EXCH)
		fcomp.emit(POP)

	case *ast.IndexExpr:
		fcomp.expr(target.Prefix)
		fcomp.expr(target.Index)
		if compound {
			fcomp.emit(DUP2)
			fcomp.emit(INDEX)
			fcomp.expr(e.Right)
			fcomp.emit(binOpcode(assignOpToken(e.Type)))
		} else {
			fcomp.expr(e.Right)
		}
		// [a i value]: park the value in a temp around the 3-operand store.
		t := fcomp.tempLocal()
		fcomp.emit1(SETLOCAL, t)
		fcomp.emit1(LOCAL, t)
		fcomp.emit(SETINDEX)
		fcomp.emit1(LOCAL, t)

	default:
		panic(fmt.Sprintf("unexpected assignment target %T", target))
	}
}

// incDec compiles ++x, --x, x++ and x--, leaving the expression's value (the
// new value for prefix, the old one for postfix) on the stack.
func (fcomp *fcomp) incDec(e *ast.UnaryOpExpr) {
	op := PLUS
	if e.Type == token.MINUSMINUS {
		op = MINUS
	}
	one := fcomp.pcomp.constantIndex(int64(1))

	switch target := ast.Unwrap(e.Right).(type) {
	case *ast.IdentExpr:
		fcomp.loadBinding(binding(target))
		if e.Postfix {
			fcomp.emit(DUP)
			fcomp.emit1(CONSTANT, one)
			fcomp.emit(op)
			fcomp.storeBinding(binding(target))
		} else {
			fcomp.emit1(CONSTANT, one)
			fcomp.emit(op)
			fcomp.emit(DUP)
			fcomp.storeBinding(binding(target))
		}

	case *ast.DotExpr:
		name := fcomp.pcomp.nameIndex(target.Right.Lit)
		fcomp.expr(target.Left)
		fcomp.emit(DUP)
		fcomp.emit1(ATTR, name) // [obj old]
		if e.Postfix {
			fcomp.emit(DUP2) // [obj old obj old]
			fcomp.emit1(CONSTANT, one)
			fcomp.emit(op) // [obj old obj new]
			fcomp.emit1(SETFIELD, name)
			fcomp.emit(EXCH)
			fcomp.emit(POP) // [old]
		} else {
			fcomp.emit1(CONSTANT, one)
			fcomp.emit(op) // [obj new]
			fcomp.emit(DUP2)
			fcomp.emit1(SETFIELD, name) // [obj new]
			fcomp.emit(EXCH)
			fcomp.emit(POP) // [new]
		}

	case *ast.IndexExpr:
		fcomp.expr(target.Prefix)
		fcomp.expr(target.Index)
		fcomp.emit(DUP2)
		fcomp.emit(INDEX) // [a i old]
		t := fcomp.tempLocal()
		if e.Postfix {
			fcomp.emit(DUP)
			fcomp.emit1(SETLOCAL, t) // [a i old], temp = old
			fcomp.emit1(CONSTANT, one)
			fcomp.emit(op)      // [a i new]
			fcomp.emit(SETINDEX) // []
			fcomp.emit1(LOCAL, t) // [old]
		} else {
			fcomp.emit1(CONSTANT, one)
			fcomp.emit(op) // [a i new]
			fcomp.emit1(SETLOCAL, t)
			fcomp.emit1(LOCAL, t)
			fcomp.emit(SETINDEX) // []
			fcomp.emit1(LOCAL, t) // [new]
		}

	default:
		panic(fmt.Sprintf("unexpected increment target %T", target))
	}
}

// deleteExpr compiles the delete operator, pushing the usual boolean result.
func (fcomp *fcomp) deleteExpr(e *ast.UnaryOpExpr) {
	switch target := ast.Unwrap(e.Right).(type) {
	case *ast.DotExpr:
		fcomp.expr(target.Left)
		fcomp.emit1(DELPROP, fcomp.pcomp.nameIndex(target.Right.Lit))
	case *ast.IndexExpr:
		fcomp.expr(target.Prefix)
		fcomp.expr(target.Index)
		fcomp.emit(DELINDEX)
	default:
		// `delete x` on a plain name (or any other expression) evaluates
		// the operand and yields true without unbinding anything, the
		// sloppy-mode behavior for non-reference operands.
		fcomp.expr(e.Right)
		fcomp.emit(POP)
		fcomp.emit(TRUE)
	}
}

// emitFunction compiles a nested function literal and emits the MAKEFUNC
// capturing the current heap environment.
func (fcomp *fcomp) emitFunction(name string, start token.Pos, sig *ast.FuncSignature, body *ast.Block) {
	info, _ := sig.Info.(*resolver.FuncInfo)
	if info == nil {
		info = &resolver.FuncInfo{}
	}
	fn := fcomp.pcomp.function(name, start, body, info, fcomp.depth+1)
	idx := uint32(len(fcomp.pcomp.prog.Functions))
	fcomp.pcomp.prog.Functions = append(fcomp.pcomp.prog.Functions, fn)
	fcomp.emit1(MAKEFUNC, idx)
}

// generate emits the linear byte code of the laid-out blocks.
func (fcomp *fcomp) generate(blocks []*block, codelen uint32) {
	code := make([]byte, 0, codelen)
	for _, b := range blocks {
		if b.addr != uint32(len(code)) {
			panic(fmt.Sprintf("block %d address mismatch: %d != %d", b.index, b.addr, len(code)))
		}
		for _, insn := range b.insns {
			code = encodeInsn(code, insn.op, insn.arg)
		}
		if b.emitJmp {
			code = encodeInsn(code, JMP, b.jmp.addr)
		}
	}
	if uint32(len(code)) != codelen {
		panic(fmt.Sprintf("code length mismatch: %d != %d", len(code), codelen))
	}
	fcomp.fn.Code = code
}

func encodeInsn(code []byte, op Opcode, arg uint32) []byte {
	code = append(code, byte(op))
	if op >= OpcodeArgMin {
		if isJump(op) || isVarAccess(op) {
			code = addUint32(code, arg, 4) // pad arg to 4 bytes
		} else {
			code = addUint32(code, arg, 0)
		}
	}
	return code
}

// addUint32 encodes x as 7-bit little-endian varint.
func addUint32(code []byte, x uint32, min int) []byte {
	end := len(code) + min
	for x >= 0x80 {
		code = append(code, byte(x)|0x80)
		x >>= 7
	}
	code = append(code, byte(x))
	// Pad the operand with NOPs to exactly min bytes.
	for len(code) < end {
		code = append(code, byte(NOP))
	}
	return code
}
