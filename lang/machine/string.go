package machine

import (
	"strconv"
	"strings"
)

// String is the type of a text string value.
type String string

var (
	_ Value     = String("")
	_ Ordered   = String("")
	_ Indexable = String("")
)

func (s String) String() string    { return strconv.Quote(string(s)) }
func (s String) Type() string      { return "string" }
func (s String) Len() int          { return len(s) }
func (s String) Index(i int) Value { return s[i : i+1] }

func (s String) Cmp(v Value) (int, error) {
	o := v.(String)
	return strings.Compare(string(s), string(o)), nil
}

// AsString returns the Go string held by v, if v is a String.
func AsString(v Value) (string, bool) {
	s, ok := v.(String)
	return string(s), ok
}
