package machine

import (
	"fmt"
	"strings"
)

// Universe defines the set of universal built-ins core to the language, such
// as print. This should not be modified, so that the language built-ins are
// always available. Use the Thread.Predeclared to add to the set of
// built-ins available to a program.
var Universe map[string]Value

func IsUniverse(name string) bool {
	_, ok := Universe[name]
	return ok
}

func init() {
	Universe = map[string]Value{
		"print": NewBuiltin("print", universePrint),
		"Map":   NewBuiltin("Map", universeMakeMap),
		"len":   NewBuiltin("len", universeLen),
	}
}

// universePrint writes its arguments to the thread's stdout, separated by a
// space and terminated by a newline. Strings print their text, not their
// quoted form.
func universePrint(th *Thread, args *Tuple) (Value, error) {
	var sb strings.Builder
	for i := 0; i < args.Len(); i++ {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if s, ok := args.Index(i).(String); ok {
			sb.WriteString(string(s))
		} else {
			sb.WriteString(fmt.Sprint(args.Index(i)))
		}
	}
	sb.WriteByte('\n')
	if _, err := fmt.Fprint(th.stdout, sb.String()); err != nil {
		return nil, err
	}
	return Nil, nil
}

// universeMakeMap creates an empty hash map value, the keyed counterpart to
// an object: unlike object properties, map keys are arbitrary values and do
// not transition a hidden class.
func universeMakeMap(_ *Thread, args *Tuple) (Value, error) {
	if args.Len() != 0 {
		return nil, fmt.Errorf("Map accepts no arguments (%d given)", args.Len())
	}
	return NewMap(0), nil
}

func universeLen(_ *Thread, args *Tuple) (Value, error) {
	if args.Len() != 1 {
		return nil, fmt.Errorf("len accepts exactly one argument (%d given)", args.Len())
	}
	return length(args.Index(0))
}
