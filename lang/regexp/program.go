package regexp

// Undefined is the sentinel capture value meaning "this group did not
// participate in the match".
const Undefined int32 = -1

// Program is a compiled regular expression: an opcode stream plus the
// metadata the interpreter and the JIT both need to execute it.
type Program struct {
	Code []byte

	// NumGroups includes group 0 (the whole match).
	NumGroups   int
	NumCounters int

	// Backtracks maps a dense "tracked index" (the 4-byte operand of every
	// OpPushBacktrack) to the bytecode offset it targets. Populated at
	// compile time so that a popped backtrack frame dispatches directly to
	// its continuation without scanning the opcode stream.
	Backtracks []uint32

	// Quick-check prefilter: a cheap per-program predicate used to skip
	// start positions that cannot begin a match.
	HasFilter         bool
	Filter            uint16
	QuickCheckOneChar bool

	// HostWidth is 1 (Latin-1) or 2 (UCS-2); it governs OpCheck2ByteChar and
	// the 1-byte-host filter-range-check degradation.
	HostWidth int

	Source string
	Flags  string
}

// CellCount is the number of 32-bit cells in one live match state: capture
// pairs, counter cells, and one reserved cell.
func (p *Program) CellCount() int {
	return p.NumGroups*2 + p.NumCounters + 1
}
