//go:build amd64

package regexpjit

import (
	"testing"

	"github.com/ivscript/iv/lang/regexp"
	"github.com/stretchr/testify/require"
)

func lowered(t *testing.T, pattern, flags string) *x64Program {
	t.Helper()
	prog, err := regexp.Compile(pattern, flags)
	require.NoError(t, err)
	native, err := compileNative(prog)
	require.NoError(t, err)
	x, ok := native.(*x64Program)
	require.True(t, ok)
	return x
}

func TestLoweringEmitsPrologue(t *testing.T) {
	x := lowered(t, `abc`, "")
	code := x.Code()
	require.NotEmpty(t, code)
	// push r12; mov r12, [rcx + 8*tkTrackedBase]
	require.Equal(t, []byte{0x41, 0x54, 0x4C, 0x8B, 0x61, 8 * tkTrackedBase}, code[:6])
	// every function path ends in ret.
	require.Equal(t, byte(0xC3), code[len(code)-1])
}

func TestLoweringTrackedTableMatchesProgram(t *testing.T) {
	// alternation and quantifiers produce one tracked slot per
	// PUSH_BACKTRACK site.
	x := lowered(t, `^a(b|c)+d$`, "")
	require.Len(t, x.Tracked(), len(x.program.Backtracks))
	for i, off := range x.Tracked() {
		require.Greaterf(t, off, int32(0), "tracked slot %d not recorded", i)
		require.Lessf(t, int(off), len(x.code), "tracked slot %d out of range", i)
	}
}

func TestLoweringStraightLineHasNoThunkCalls(t *testing.T) {
	// a pure literal match needs no backtrack pushes, so the only thunk
	// calls in the body are the shared backtrack/restart routine's.
	x := lowered(t, `abc`, "")
	require.Empty(t, x.Tracked())
}

func TestLoweringRangePairsPreserveOrder(t *testing.T) {
	// the unrolled pair checks must appear in sorted order: lo of the
	// second pair strictly above hi of the first.
	x := lowered(t, `[a-cx-z]`, "")
	code := x.Code()

	// find the first cmp ax, imm16 (66 3D) and collect the compared
	// immediates in emission order.
	var imms []uint16
	for i := 0; i+3 < len(code); i++ {
		if code[i] == 0x66 && code[i+1] == 0x3D {
			imms = append(imms, uint16(code[i+2])|uint16(code[i+3])<<8)
			i += 3
		}
	}
	require.Equal(t, []uint16{'a', 'c', 'x', 'z'}, imms)
}
