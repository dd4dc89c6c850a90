package machine

import (
	"fmt"

	"github.com/ivscript/iv/lang/regexp"
)

// RegExp is the runtime value produced by a regexp literal (/ab+c/i). It
// wraps a compiled regexp.Program, C3's match engine, and exposes it to
// compiled code through the two methods ECMAScript's RegExp.prototype
// carries: exec (returns the match, or null) and test (returns a bool).
//
// There is no JIT fast path wired in here: the VM always drives the
// portable interpreter (regexp.Execute). Dispatching through the JIT
// executable from general script code would need the RegExp value to carry
// a *regexpjit.Executable built alongside the Program and a policy for
// when compiling one is worth the upfront cost; the regexp-bench CLI
// command is where the JIT is actually exercised end-to-end.
type RegExp struct {
	Source string
	Flags  string
	prog   *regexp.Program
}

var (
	_ Value    = (*RegExp)(nil)
	_ HasAttrs = (*RegExp)(nil)
)

// NewRegExp compiles source/flags into a RegExp value.
func NewRegExp(source, flags string) (*RegExp, error) {
	prog, err := regexp.Compile(source, flags)
	if err != nil {
		return nil, fmt.Errorf("invalid regular expression /%s/%s: %w", source, flags, err)
	}
	return &RegExp{Source: source, Flags: flags, prog: prog}, nil
}

func (r *RegExp) String() string { return fmt.Sprintf("/%s/%s", r.Source, r.Flags) }
func (r *RegExp) Type() string   { return "regexp" }

func (r *RegExp) AttrNames() []string { return []string{"exec", "test", "source", "flags"} }

func (r *RegExp) Attr(name string) (Value, error) {
	switch name {
	case "source":
		return String(r.Source), nil
	case "flags":
		return String(r.Flags), nil
	case "exec":
		return NewBuiltin("exec", r.exec), nil
	case "test":
		return NewBuiltin("test", r.test), nil
	}
	return nil, nil
}

func regexpSubject(args *Tuple) (String, error) {
	if args.Len() != 1 {
		return "", fmt.Errorf("expected exactly one argument, got %d", args.Len())
	}
	s, ok := args.Index(0).(String)
	if !ok {
		return "", fmt.Errorf("expected a string argument, got %s", args.Index(0).Type())
	}
	return s, nil
}

func stringToUTF16(s String) []uint16 {
	out := make([]uint16, len(s))
	for i := 0; i < len(s); i++ {
		out[i] = uint16(s[i])
	}
	return out
}

// test implements RegExp.prototype.test: it reports whether subject
// contains a match anywhere, without building the capture array.
func (r *RegExp) test(_ *Thread, args *Tuple) (Value, error) {
	subject, err := regexpSubject(args)
	if err != nil {
		return nil, err
	}
	status, _ := regexp.Execute(r.prog, stringToUTF16(subject), 0)
	if status == regexp.StatusError {
		return nil, fmt.Errorf("regexp backtrack limit exceeded matching /%s/%s", r.Source, r.Flags)
	}
	return Bool(status == regexp.StatusSuccess), nil
}

// exec implements RegExp.prototype.exec: on a match it returns a Tuple of
// the whole match followed by each capture group (None where the group did
// not participate), or Null on no match.
func (r *RegExp) exec(_ *Thread, args *Tuple) (Value, error) {
	subject, err := regexpSubject(args)
	if err != nil {
		return nil, err
	}
	status, captures := regexp.Execute(r.prog, stringToUTF16(subject), 0)
	if status == regexp.StatusError {
		return nil, fmt.Errorf("regexp backtrack limit exceeded matching /%s/%s", r.Source, r.Flags)
	}
	if status != regexp.StatusSuccess {
		return Nil, nil
	}

	groups := len(captures) / 2
	elems := make([]Value, groups)
	for i := 0; i < groups; i++ {
		start, end := captures[2*i], captures[2*i+1]
		if start < 0 || end < 0 {
			elems[i] = Nil
			continue
		}
		elems[i] = subject[start:end]
	}
	return NewTuple(elems), nil
}
