package regexpjit_test

import (
	"runtime"
	"testing"

	"github.com/ivscript/iv/lang/regexp"
	"github.com/ivscript/iv/lang/regexp/regexpjit"
	"github.com/stretchr/testify/require"
)

func toUTF16(s string) []uint16 {
	out := make([]uint16, len(s))
	for i := 0; i < len(s); i++ {
		out[i] = uint16(s[i])
	}
	return out
}

// TestRunReportsInterpreterResults pins the package's documented behavior:
// native execution is not wired, so Run returns exactly what the
// interpreter returns, on every platform. This is NOT an interpreter/JIT
// equivalence check — the emitted code never runs; the lowering itself is
// covered byte-for-byte by jit_amd64_test.go.
func TestRunReportsInterpreterResults(t *testing.T) {
	cases := []struct {
		pattern, flags string
		subjects       []string
	}{
		{`^a(b|c)d$`, "", []string{"abd", "acd", "aed", ""}},
		{`(ab)\1`, "i", []string{"abAB", "abcd"}},
		{`\bfoo\b`, "", []string{"xfoox", "x foo x"}},
		{`(?:)*`, "", []string{"x", ""}},
	}
	for _, c := range cases {
		prog, err := regexp.Compile(c.pattern, c.flags)
		require.NoError(t, err, "pattern %s", c.pattern)
		exe, err := regexpjit.Compile(prog)
		require.NoError(t, err, "pattern %s", c.pattern)

		for _, subject := range c.subjects {
			utf16 := toUTF16(subject)
			wantStatus, wantCaps := regexp.Execute(prog, utf16, 0)
			gotStatus, gotCaps := exe.Run(utf16, 0)
			require.Equalf(t, wantStatus, gotStatus, "/%s/%s on %q", c.pattern, c.flags, subject)
			require.Equalf(t, wantCaps, gotCaps, "/%s/%s on %q", c.pattern, c.flags, subject)
		}
	}
}

// TestNativeCodePresence checks that Compile produces a lowering exactly on
// the platforms that have a backend.
func TestNativeCodePresence(t *testing.T) {
	prog, err := regexp.Compile(`a(b|c)+d`, "")
	require.NoError(t, err)
	exe, err := regexpjit.Compile(prog)
	require.NoError(t, err)

	code := exe.NativeCode()
	if runtime.GOARCH == "amd64" {
		require.NotEmpty(t, code)
	} else {
		require.Empty(t, code)
	}
}
