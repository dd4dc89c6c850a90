package resolver

import (
	"fmt"

	"github.com/ivscript/iv/lang/token"
)

// Type is a variable-access classification. The four values form a total
// order, Stack < Heap < Global < Lookup, and the resolver only ever moves a
// site up this lattice.
type Type uint8

const (
	// Stack is a plain local: a dense slot in the function's own operand
	// frame, never observed outside it.
	Stack Type = iota
	// Heap is a local captured by at least one nested function: it lives
	// in a heap-allocated environment record instead of the stack frame.
	Heap
	// Global is a top-level declaration or a predeclared/universal name:
	// read and written by name in the global object.
	Global
	// Lookup is a name whose binding can only be found at run time by
	// walking the dynamic scope chain, because resolution crossed a with
	// statement or found no static declaration of the name.
	Lookup
)

func (t Type) String() string {
	switch t {
	case Stack:
		return "stack"
	case Heap:
		return "heap"
	case Global:
		return "global"
	case Lookup:
		return "lookup"
	default:
		return "invalid"
	}
}

// Upgrade returns the least upper bound of a and b in the Stack < Heap <
// Global < Lookup lattice. The resolver only ever calls this to move a
// classification up, never down.
func Upgrade(a, b Type) Type {
	if b > a {
		return b
	}
	return a
}

// Binding is the resolved classification of one declared name. The
// backward (finalize) pass assigns Stack and Heap bindings a dense
// per-function Index and Global bindings a dense module-wide Index; Lookup
// bindings leave Index at zero.
type Binding struct {
	Name      string
	Type      Type
	Index     int
	Immutable bool
	Pos       token.Position

	// OwnerDepth is the nesting depth (funcScope.depth at the time the
	// binding was created) of the function that declares this binding. It
	// is set once, at creation, and never changes afterward: unlike the
	// binding's Type, which is a single property of the binding shared by
	// every use site, the number of function frames a particular
	// reference must walk to reach a Heap binding differs per use site
	// (a binding captured three functions deep is 3 from one call site
	// and 1 from a closer one). The compiler derives that per-site depth
	// itself, as the difference between the use site's own nesting depth
	// and OwnerDepth, while it walks the resolved AST to generate code.
	OwnerDepth int

	// StackSlot is the stack-frame slot assigned to a parameter, set for
	// every parameter regardless of its final Type: the machine binds call
	// arguments positionally into the first slots of the frame, so a
	// parameter promoted to Heap still owns its slot and is copied from it
	// into the heap environment by a compiler-emitted prologue. For
	// non-parameters it is meaningless and left at zero.
	StackSlot int

	refcount int
}

// FuncInfo is the per-function summary the finalize pass leaves on the
// ast.FuncSignature (and, for the chunk's top level, on the ast.Chunk) for
// the compiler to read: how big the stack frame and heap environment record
// must be, and which bindings occupy which slots.
type FuncInfo struct {
	// NumParams is the number of declared parameters.
	NumParams int

	// NumStackSlots is the size of the function's stack frame: one slot
	// per parameter (in declaration order, first) plus one per referenced
	// Stack binding. Unreferenced non-parameter Stack bindings are elided
	// and get no slot.
	NumStackSlots int

	// NumHeapVars is the size of the function's heap environment record:
	// one cell per Heap binding declared by this function.
	NumHeapVars int

	// Locals lists the bindings occupying the stack frame, in slot order
	// (Locals[i] owns slot i). A Heap parameter appears here too, at its
	// reserved parameter slot.
	Locals []*Binding

	// HeapParams lists the parameters whose Type was upgraded to Heap;
	// the compiler emits a prologue copying each from its StackSlot into
	// its heap environment cell.
	HeapParams []*Binding

	// Arguments is the function's implicit `arguments` binding, set only
	// when the body actually references it (an unreferenced implicit
	// binding is elided like any other). The compiler emits a prologue
	// materializing the call's argument list into it.
	Arguments *Binding
}

// BindingName satisfies the ast.Binding interface, so that *Binding can be
// assigned directly to an ast.IdentExpr's Binding field.
func (b *Binding) BindingName() string { return b.Name }

// String renders the binding's classification and assigned index, the form
// the AST printer shows next to each resolved identifier.
func (b *Binding) String() string {
	switch b.Type {
	case Stack, Heap, Global:
		return fmt.Sprintf("%s:%d", b.Type, b.Index)
	default:
		return b.Type.String()
	}
}

// Refcount reports how many sites reference this binding. A Stack binding
// with a zero refcount is elided: it is never assigned an index and never
// appears in a Funcode's Locals.
func (b *Binding) Refcount() int { return b.refcount }

