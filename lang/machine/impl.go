package machine

import "fmt"

// Some machine opcodes are more complex and/or need to be exposed via a
// low-level interface to be available for higher-level APIs. Those functions
// belong in this file.

// Call calls the function or Callable value fn with the specified positional
// arguments.
func Call(thread *Thread, fn Value, args *Tuple) (Value, error) {
	c, ok := fn.(Callable)
	if !ok {
		return nil, fmt.Errorf("invalid call of non-function (%s)", fn.Type())
	}
	if args == nil {
		args = NilaryTuple
	}
	if thread.MaxCallStackDepth > 0 && len(thread.callStack) >= thread.MaxCallStackDepth {
		thread.ctxCancel()
		return nil, fmt.Errorf("thread %s cancelled: call stack depth limit (%d) exceeded",
			thread.ID, thread.MaxCallStackDepth)
	}

	var fr *Frame
	if n := len(thread.callStack); n < cap(thread.callStack) {
		fr = thread.callStack[n : n+1][0]
	}
	if fr == nil {
		fr = new(Frame)
	}

	thread.callStack = append(thread.callStack, fr) // push
	fr.callable = c

	defer func() {
		*fr = Frame{}
		thread.callStack = thread.callStack[:len(thread.callStack)-1] // pop
	}()

	result, err := c.CallInternal(thread, args)
	if result == nil && err == nil {
		err = fmt.Errorf("internal error: nil returned from %s", fn.Type())
	}
	return result, err
}
