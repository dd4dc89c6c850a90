package machine

// Bool is the type of a boolean value.
type Bool bool

const (
	False = Bool(false)
	True  = Bool(true)
)

var _ Value = Bool(false)

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}

func (b Bool) Type() string { return "bool" }
