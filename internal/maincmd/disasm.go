package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/ivscript/iv/lang/compiler"
)

// Disasm reads pseudo-assembly text files (as produced by the compile
// command), assembles them back into a Program and re-emits the
// disassembly. It exists to exercise the compiler's Asm/Dasm round-trip,
// not to disassemble arbitrary binaries.
func (c *Cmd) Disasm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return DisasmFiles(ctx, stdio, args...)
}

func DisasmFiles(ctx context.Context, stdio mainer.Stdio, files ...string) error {
	for _, file := range files {
		b, err := os.ReadFile(file)
		if err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			return err
		}

		p, err := compiler.Asm(b)
		if err != nil {
			fmt.Fprintf(stdio.Stderr, "%s: %s\n", file, err)
			return err
		}

		out, err := compiler.Dasm(p)
		if err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			return err
		}
		stdio.Stdout.Write(out)
	}
	return nil
}
