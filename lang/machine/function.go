package machine

import (
	"fmt"

	"github.com/ivscript/iv/lang/compiler"
)

// A Function is a function defined by a function statement or expression. The
// initialization behavior of a module is also represented by a (top-level)
// Function.
type Function struct {
	Funcode *compiler.Funcode
	Module  *Module

	// ParentEnv is the heap Environment of the call that created this
	// function, captured at MAKEFUNC time. It is nil for the module
	// toplevel function and for any function with no enclosing heap
	// frame to close over.
	ParentEnv *Environment
}

var (
	_ Value    = (*Function)(nil)
	_ Callable = (*Function)(nil)
	_ HasAttrs = (*Function)(nil)
)

func (fn *Function) AttrNames() []string { return []string{"name", "length", "caller"} }

// Attr exposes the few introspection properties functions carry. Reading
// "caller" — any function's, not just a strict one's — permanently disables
// property-cache population for the whole VM (see disableCaches): once call
// relationships are observable, a cached layout could leak a stale one.
func (fn *Function) Attr(name string) (Value, error) {
	switch name {
	case "name":
		return String(fn.Name()), nil
	case "length":
		return Int(fn.Funcode.NumParams), nil
	case "caller":
		disableCaches()
		return Nil, nil
	}
	return nil, nil
}

// A Module is the dynamic counterpart to a compiler.Program, which is the unit
// of compilation. All functions in the same program share a module.
type Module struct {
	Program   *compiler.Program
	Constants []Value

	// Global is the global object: GLOBAL and SETGLOBAL opcodes read and
	// write properties on it directly, giving top-level var/function
	// declarations genuine global-object semantics.
	Global *Object
}

func (fn *Function) String() string { return fmt.Sprintf("function(%p %s)", fn, fn.Name()) }
func (fn *Function) Type() string   { return "function" }
func (fn *Function) CallInternal(th *Thread, args *Tuple) (Value, error) {
	return run(th, fn, args)
}
func (fn *Function) Name() string {
	nm := fn.Funcode.Name
	if nm == "" {
		nm = "unknown"
	}
	return nm
}
