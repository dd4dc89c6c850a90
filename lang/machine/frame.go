package machine

import "github.com/ivscript/iv/lang/token"

// Frame records a call to a Callable value (including module toplevel) or a
// built-in function or method.
type Frame struct {
	callable Value  // current function (or toplevel) or callable
	pc       uint32 // program counter (non built-in only)
}

// Position returns the source position of the current point of execution in
// this frame.
func (fr *Frame) Position() token.Position {
	switch c := fr.callable.(type) {
	case *Function:
		return c.Funcode.Position(fr.pc)
	case callableWithPosition:
		// If a built-in Callable defines a Position method, use it.
		return c.Position()
	}
	return token.Position{Filename: "<builtin>"}
}

type callableWithPosition interface {
	Callable
	Position() token.Position
}
