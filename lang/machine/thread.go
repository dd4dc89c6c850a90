package machine

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/ivscript/iv/lang/compiler"
)

type Thread struct {
	// Name is an optional name that describes the thread, mostly for debugging.
	Name string

	// ID uniquely identifies this thread across the process, stamped once on
	// first use. It is included in the thread's cancellation messages (step
	// limit, call stack depth limit, context cancellation) so a trace can be
	// tied back to the thread that produced it.
	ID uuid.UUID

	// Stdout, Stderr and Stdin are the standard I/O abstractions for the thread.
	// If nil, os.Stdout, os.Stderr and os.Stdin are used, respectively.
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader

	// MaxSteps is the maximum number of "steps", a deliberately unspecified
	// measure of machine execution time, before the thread is cancelled. A value
	// <= 0 means no limit.
	MaxSteps int

	// DisableRecursion prevents recursive execution of functions when set to
	// true. It incurs a small performance cost for the runtime verification on
	// each function call but can be a useful safety check when executing
	// untrusted code. If a recursive call is detected when set to true, the
	// call fails with an error; the thread itself is not cancelled.
	DisableRecursion bool

	// MaxCallStackDepth limits the number of nested function calls. If the limit
	// is reached, the thread is cancelled. A value <= 0 means no limit.
	MaxCallStackDepth int

	// MaxCompareDepth is stored on the thread at start (a value <= 0 meaning
	// no limit), but no comparison consults it: comparing compound values
	// such as tuples recurses without a depth limit.
	MaxCompareDepth int

	// Predeclared is the set of predeclared identifiers and their assigned
	// values. Predeclared identifiers are like the Universe identifiers in that
	// they are available to all modules automatically and they cannot be
	// assigned to.
	Predeclared map[string]Value

	ctx       context.Context
	ctxCancel func()
	callStack []*Frame
	cancelled atomic.Bool

	// withStack is the dynamic scope chain pushed and popped by the
	// WITHPUSH/WITHPOP opcodes around the body of a with statement. LOOKUP
	// and SETLOOKUP search it most-recently-pushed first before falling
	// back to the module's global object.
	withStack []*Object

	steps, maxSteps uint64
	maxCompareDepth uint64

	stdout io.Writer
	stderr io.Writer
	stdin  io.Reader
}

func (th *Thread) RunProgram(ctx context.Context, p *compiler.Program) (Value, error) {
	// TODO: would it be acceptable to run more than one program on a thread?
	if th.ctx != nil {
		return nil, fmt.Errorf("thread %s is already executing a program", th.Name)
	}

	ctx, cancel := context.WithCancel(ctx)
	th.ctx = ctx
	th.ctxCancel = cancel
	th.init()
	topfn, err := makeToplevelFunction(p)
	if err != nil {
		return nil, err
	}
	return Call(th, topfn, nil)
}

func (th *Thread) init() {
	// one-time initialization of thread
	if th.ID == uuid.Nil {
		th.ID = uuid.New()
	}
	if th.MaxSteps <= 0 {
		th.maxSteps-- // (MaxUint64)
	} else {
		th.maxSteps = uint64(th.MaxSteps)
	}
	if th.MaxCompareDepth <= 0 {
		th.maxCompareDepth-- // (MaxUint64)
	} else {
		th.maxCompareDepth = uint64(th.MaxCompareDepth)
	}
	if th.Stdout != nil {
		th.stdout = th.Stdout
	} else {
		th.stdout = os.Stdout
	}
	if th.Stderr != nil {
		th.stderr = th.Stderr
	} else {
		th.stderr = os.Stderr
	}
	if th.Stdin != nil {
		th.stdin = th.Stdin
	} else {
		th.stdin = os.Stdin
	}
	if th.ctx == nil {
		th.ctx = context.Background()
		th.ctxCancel = func() {}
	} else {
		go func() {
			<-th.ctx.Done()
			th.cancelled.Store(true)
		}()
	}
}

func makeToplevelFunction(p *compiler.Program) (*Function, error) {
	// create the value denoted by each program constant
	constants := make([]Value, len(p.Constants))
	for i, c := range p.Constants {
		var v Value
		switch c := c.(type) {
		case int64:
			v = Int(c)
		case string:
			v = String(c)
		case float64:
			v = Float(c)
		case compiler.Regexp:
			rx, err := NewRegExp(c.Pattern, c.Flags)
			if err != nil {
				return nil, err
			}
			v = rx
		default:
			panic(fmt.Sprintf("unexpected constant %T: %[1]v", c))
		}
		constants[i] = v
	}

	return &Function{
		Funcode: p.Toplevel,
		Module: &Module{
			Program:   p,
			Constants: constants,
			Global:    NewObject(nil),
		},
	}, nil
}
