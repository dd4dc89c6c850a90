package machine

import "fmt"

// Builtin wraps a Go function as a Callable Value, the runtime's bridge for
// exposing host functionality (like RegExp.exec/test) to compiled code
// without a corresponding Funcode.
type Builtin struct {
	name string
	fn   func(thread *Thread, args *Tuple) (Value, error)
}

var (
	_ Value    = (*Builtin)(nil)
	_ Callable = (*Builtin)(nil)
)

// NewBuiltin returns a Callable that invokes fn when called.
func NewBuiltin(name string, fn func(thread *Thread, args *Tuple) (Value, error)) *Builtin {
	return &Builtin{name: name, fn: fn}
}

func (b *Builtin) String() string { return fmt.Sprintf("builtin(%s)", b.name) }
func (b *Builtin) Type() string   { return "builtin" }
func (b *Builtin) Name() string   { return b.name }

func (b *Builtin) CallInternal(thread *Thread, args *Tuple) (Value, error) {
	return b.fn(thread, args)
}
