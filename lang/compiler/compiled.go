package compiler

import (
	"github.com/ivscript/iv/lang/token"
)

// A Program is the result of compiling one source file: a toplevel Funcode
// plus every nested function literal it contains, and the shared constant
// and name pools their bytecode indexes into.
type Program struct {
	Filename  string
	Toplevel  *Funcode
	Functions []*Funcode
	Names     []string      // interned names (ATTR, SETFIELD, GLOBAL, LOOKUP operands)
	Constants []interface{} // int64, float64, string or Regexp
}

// A Binding names a parameter, local or heap variable.
type Binding struct {
	Name string
	Pos  token.Position
}

// A Regexp is the constant-pool form of a regular expression literal. The
// pattern is compiled to its executable form when the machine instantiates
// the Program, not at bytecode-compile time, so that an unreachable invalid
// literal in an assembled program surfaces at the same phase as every other
// program-construction error.
type Regexp struct {
	Pattern string
	Flags   string
}

// A Defer describes a defer or catch block attached to a Funcode: [PC0, PC1)
// is the range of bytecode it covers and StartPC is where its body begins.
type Defer struct {
	PC0, PC1, StartPC uint32
}

// Covers reports whether pc falls within the range covered by d.
func (d Defer) Covers(pc int64) bool {
	return pc >= int64(d.PC0) && pc < int64(d.PC1)
}

// A Funcode is the code of a compiled function.
type Funcode struct {
	Prog      *Program
	Pos       token.Position // position of the function keyword, or the file start for the toplevel
	Name      string         // name of this function
	Code      []byte         // the byte code
	Locals    []Binding      // locals, parameters first
	Defers    []Defer        // defer blocks, nested ones must come after the more general ones
	Catches   []Defer        // catch blocks, nested ones must come after the more general ones
	MaxStack  int
	NumParams int
	HasVarArg bool

	// NumHeapVars is the size of this function's heap environment record,
	// as assigned by the resolver's backward pass. It is 0 when the
	// function needs no declarative heap environment.
	NumHeapVars int
}

// Position returns a best-effort source position for the instruction at pc.
// No per-instruction line table is recorded, so this is always the
// function's own definition position.
func (fn *Funcode) Position(pc uint32) token.Position {
	return fn.Pos
}
