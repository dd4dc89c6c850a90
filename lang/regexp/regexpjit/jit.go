// Package regexpjit lowers a compiled regexp.Program to native machine code
// on platforms it supports. The interpreter alone is the complete,
// authoritative implementation; a native lowering must be observationally
// identical to it for every input.
//
// The amd64 backend emits the full machine code but does not yet execute
// it: jumping into the buffer requires an executable memory mapping and an
// assembly trampoline providing the runtime routine table, which sit
// outside this module's dependency set. Run therefore always reports the
// interpreter's results; the emitted code is validated structurally, at
// the byte level, by this package's tests and surfaced by the regexp-bench
// command.
package regexpjit

import "github.com/ivscript/iv/lang/regexp"

// Executable pairs a compiled program with its native lowering, when the
// platform has one.
type Executable struct {
	program *regexp.Program
	native  nativeProgram
}

// Compile lowers program for this platform. It never fails on a Program
// produced by regexp.Compile: platforms without a native backend get an
// Executable with no lowering at all.
func Compile(program *regexp.Program) (*Executable, error) {
	native, err := compileNative(program)
	if err != nil {
		return nil, err
	}
	return &Executable{program: program, native: native}, nil
}

// Run executes the program against subject starting the search at start.
// Execution is the interpreter's in every case (see the package comment);
// the method exists so call sites are already written against the form a
// wired-up native path would keep.
func (ex *Executable) Run(subject []uint16, start int) (regexp.Status, []int32) {
	if ex.native != nil {
		return ex.native.run(subject, start)
	}
	return regexp.Execute(ex.program, subject, start)
}

// NativeCode returns the machine code emitted for this executable, or nil
// when the platform backend did not produce any.
func (ex *Executable) NativeCode() []byte {
	if x, ok := ex.native.(interface{ Code() []byte }); ok {
		return x.Code()
	}
	return nil
}

// nativeProgram is the per-platform compiled form. A nil nativeProgram
// means Run falls back to the interpreter.
type nativeProgram interface {
	run(subject []uint16, start int) (regexp.Status, []int32)
}
