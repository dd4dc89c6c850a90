package maincmd

import (
	"context"
	"fmt"
	"time"

	"github.com/mna/mainer"
	"golang.org/x/sync/errgroup"

	"github.com/ivscript/iv/lang/regexp"
	"github.com/ivscript/iv/lang/regexp/regexpjit"
)

// RegexpBench compiles a pattern, reports what the native lowering produced
// for it (the JIT emits machine code but is not executed — see the
// regexpjit package comment), and times the interpreter over the given
// subjects, one goroutine per subject. args is [pattern, flags, subject...].
func (c *Cmd) RegexpBench(ctx context.Context, stdio mainer.Stdio, args []string) error {
	pattern, flags, subjects := args[0], args[1], args[2:]
	if len(subjects) == 0 {
		subjects = []string{""}
	}
	return RegexpBenchRun(ctx, stdio, pattern, flags, subjects...)
}

func toUTF16(s string) []uint16 {
	out := make([]uint16, len(s))
	for i := 0; i < len(s); i++ {
		out[i] = uint16(s[i])
	}
	return out
}

type benchResult struct {
	status   regexp.Status
	captures []int32
	elapsed  time.Duration
}

func RegexpBenchRun(ctx context.Context, stdio mainer.Stdio, pattern, flags string, subjects ...string) error {
	prog, err := regexp.Compile(pattern, flags)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	exe, err := regexpjit.Compile(prog)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}

	fmt.Fprintf(stdio.Stdout, "pattern /%s/%s: %d opcode bytes, %d backtrack sites\n",
		pattern, flags, len(prog.Code), len(prog.Backtracks))
	if native := exe.NativeCode(); native != nil {
		fmt.Fprintf(stdio.Stdout, "native lowering: %d bytes of machine code (emitted, not executed)\n", len(native))
	} else {
		fmt.Fprintln(stdio.Stdout, "native lowering: none on this platform, interpreter only")
	}

	// each subject runs in its own goroutine; results land in the slot
	// reserved for it, so no further synchronization is needed past Wait.
	results := make([]benchResult, len(subjects))
	g, _ := errgroup.WithContext(ctx)
	for i, subject := range subjects {
		i, utf16 := i, toUTF16(subject)
		g.Go(func() error {
			start := time.Now()
			status, captures := regexp.Execute(prog, utf16, 0)
			results[i] = benchResult{status: status, captures: captures, elapsed: time.Since(start)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}

	for i, subject := range subjects {
		r := results[i]
		fmt.Fprintf(stdio.Stdout, "subject %q: %s in %s", subject, r.status, r.elapsed)
		if r.status == regexp.StatusSuccess {
			fmt.Fprintf(stdio.Stdout, " [%d, %d)", r.captures[0], r.captures[1])
		}
		fmt.Fprintln(stdio.Stdout)
	}
	return nil
}
