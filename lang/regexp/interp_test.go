package regexp_test

import (
	"testing"

	"github.com/ivscript/iv/lang/regexp"
	"github.com/stretchr/testify/require"
)

func toUTF16(s string) []uint16 {
	out := make([]uint16, len(s))
	for i := 0; i < len(s); i++ {
		out[i] = uint16(s[i])
	}
	return out
}

func run(t *testing.T, pattern, flags, subject string) (regexp.Status, []int32) {
	t.Helper()
	prog, err := regexp.Compile(pattern, flags)
	require.NoError(t, err)
	return regexp.Execute(prog, toUTF16(subject), 0)
}

func TestCaptureGroupsRoundTrip(t *testing.T) {
	status, caps := run(t, `^a(b|c)d$`, "", "abd")
	require.Equal(t, regexp.StatusSuccess, status)
	require.Equal(t, []int32{0, 3, 1, 2}, caps)
}

func TestCaptureGroupsAlternateBranch(t *testing.T) {
	status, caps := run(t, `^a(b|c)d$`, "", "acd")
	require.Equal(t, regexp.StatusSuccess, status)
	require.Equal(t, []int32{0, 3, 1, 2}, caps)
}

func TestNoMatch(t *testing.T) {
	status, _ := run(t, `^a(b|c)d$`, "", "aed")
	require.Equal(t, regexp.StatusFailure, status)
}

func TestBackreference(t *testing.T) {
	status, caps := run(t, `(ab)\1`, "", "abab")
	require.Equal(t, regexp.StatusSuccess, status)
	require.Equal(t, int32(0), caps[0])
	require.Equal(t, int32(4), caps[1])
}

func TestBackreferenceIgnoreCase(t *testing.T) {
	status, _ := run(t, `(ab)\1`, "i", "abAB")
	require.Equal(t, regexp.StatusSuccess, status)
}

func TestBackreferenceFailsOnMismatch(t *testing.T) {
	status, _ := run(t, `(ab)\1`, "", "abcd")
	require.Equal(t, regexp.StatusFailure, status)
}

func TestWordBoundary(t *testing.T) {
	status, caps := run(t, `\bcat\b`, "", "a cat sat")
	require.Equal(t, regexp.StatusSuccess, status)
	require.Equal(t, int32(2), caps[0])
	require.Equal(t, int32(5), caps[1])
}

func TestWordBoundaryNoMatchInsideWord(t *testing.T) {
	status, _ := run(t, `\bcat\b`, "", "concatenate")
	require.Equal(t, regexp.StatusFailure, status)
}

func TestQuickCheckPrefilterSkipsNonMatchingStarts(t *testing.T) {
	status, caps := run(t, `xyz`, "", "aaaaaaaaaaxyz")
	require.Equal(t, regexp.StatusSuccess, status)
	require.Equal(t, int32(10), caps[0])
	require.Equal(t, int32(13), caps[1])
}

func TestCountedRepetitionExact(t *testing.T) {
	status, caps := run(t, `^a{3}$`, "", "aaa")
	require.Equal(t, regexp.StatusSuccess, status)
	require.Equal(t, int32(0), caps[0])
	require.Equal(t, int32(3), caps[1])

	status, _ = run(t, `^a{3}$`, "", "aaaa")
	require.Equal(t, regexp.StatusFailure, status)
}

func TestCountedRepetitionBoundedGreedy(t *testing.T) {
	status, caps := run(t, `^a{0,3}$`, "", "aaa")
	require.Equal(t, regexp.StatusSuccess, status)
	require.Equal(t, int32(0), caps[0])
	require.Equal(t, int32(3), caps[1])

	status, _ = run(t, `^a{0,3}$`, "", "aaaa")
	require.Equal(t, regexp.StatusFailure, status)
}

func TestStarOnEmptyGroupDoesNotLoopForever(t *testing.T) {
	status, caps := run(t, `^(?:)*$`, "", "")
	require.Equal(t, regexp.StatusSuccess, status)
	require.Equal(t, int32(0), caps[0])
	require.Equal(t, int32(0), caps[1])
}

func TestPlusRequiresAtLeastOne(t *testing.T) {
	status, _ := run(t, `^a+$`, "", "")
	require.Equal(t, regexp.StatusFailure, status)

	status, caps := run(t, `^a+$`, "", "aaaa")
	require.Equal(t, regexp.StatusSuccess, status)
	require.Equal(t, int32(4), caps[1])
}

func TestOptionalGreedyThenBacktracks(t *testing.T) {
	status, caps := run(t, `^a?ab$`, "", "ab")
	require.Equal(t, regexp.StatusSuccess, status)
	require.Equal(t, int32(0), caps[0])
	require.Equal(t, int32(2), caps[1])
}

func TestCharacterClassNegated(t *testing.T) {
	status, _ := run(t, `^[^0-9]+$`, "", "abc")
	require.Equal(t, regexp.StatusSuccess, status)

	status, _ = run(t, `^[^0-9]+$`, "", "ab1")
	require.Equal(t, regexp.StatusFailure, status)
}

func TestNonCapturingGroupDoesNotAllocateCapture(t *testing.T) {
	prog, err := regexp.Compile(`^(?:ab)(cd)$`, "")
	require.NoError(t, err)
	require.Equal(t, 2, prog.NumGroups)

	status, caps := regexp.Execute(prog, toUTF16("abcd"), 0)
	require.Equal(t, regexp.StatusSuccess, status)
	require.Equal(t, int32(2), caps[2])
	require.Equal(t, int32(4), caps[3])
}

func TestAnchoredStartEndOfLineWithMultiline(t *testing.T) {
	status, _ := run(t, `^b$`, "m", "a\nb\nc")
	require.Equal(t, regexp.StatusSuccess, status)

	status, _ = run(t, `^b$`, "", "a\nb\nc")
	require.Equal(t, regexp.StatusFailure, status)
}

func TestQuickCheckPrefilterStartsAtFirstCandidate(t *testing.T) {
	status, caps := run(t, `x[a-z]+`, "", "aaaaxb")
	require.Equal(t, regexp.StatusSuccess, status)
	require.Equal(t, int32(4), caps[0])
	require.Equal(t, int32(6), caps[1])
}

func TestPositiveLookahead(t *testing.T) {
	status, caps := run(t, `a(?=b)`, "", "ab")
	require.Equal(t, regexp.StatusSuccess, status)
	// the lookahead consumes nothing: the match is just the 'a'.
	require.Equal(t, []int32{0, 1}, caps[:2])

	status, _ = run(t, `a(?=b)`, "", "ac")
	require.Equal(t, regexp.StatusFailure, status)
}

func TestNegativeLookahead(t *testing.T) {
	status, _ := run(t, `a(?!b)`, "", "ac")
	require.Equal(t, regexp.StatusSuccess, status)

	status, _ = run(t, `a(?!b)`, "", "ab")
	require.Equal(t, regexp.StatusFailure, status)

	// the only 'a' is followed by 'b', but a later start position works.
	status, caps := run(t, `a(?!b)`, "", "ab a")
	require.Equal(t, regexp.StatusSuccess, status)
	require.Equal(t, int32(3), caps[0])
}

func TestBacktrackOverflowReturnsError(t *testing.T) {
	old := regexp.MaxBacktrackDepth
	regexp.MaxBacktrackDepth = 4
	defer func() { regexp.MaxBacktrackDepth = old }()

	// every iteration of the star pushes one frame, so a long run of 'a'
	// with no terminating 'b' overflows the bound.
	status, _ := run(t, `a*b`, "", "aaaaaaaaaa")
	require.Equal(t, regexp.StatusError, status)
}

func TestDigitAndWordShorthands(t *testing.T) {
	status, caps := run(t, `^\d+ \w+$`, "", "42 abc_1")
	require.Equal(t, regexp.StatusSuccess, status)
	require.Equal(t, int32(0), caps[0])
}
