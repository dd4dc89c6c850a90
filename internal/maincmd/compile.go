package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"

	"github.com/ivscript/iv/lang/compiler"
	"github.com/ivscript/iv/lang/machine"
	"github.com/ivscript/iv/lang/parser"
	"github.com/ivscript/iv/lang/resolver"
	"github.com/ivscript/iv/lang/scanner"
)

// Compile parses, resolves and compiles the given files, printing the
// resulting bytecode programs in the package's pseudo-assembly text format.
func (c *Cmd) Compile(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return CompileFiles(ctx, stdio, args...)
}

func CompileFiles(ctx context.Context, stdio mainer.Stdio, files ...string) error {
	fs, chunks, perr := parser.ParseFiles(ctx, 0, files...)
	if perr != nil {
		scanner.PrintError(stdio.Stderr, perr)
		return perr
	}
	if rerr := resolver.ResolveFiles(ctx, fs, chunks, resolver.NameBlocks, nil, machine.IsUniverse); rerr != nil {
		scanner.PrintError(stdio.Stderr, rerr)
		return rerr
	}

	progs := compiler.CompileFiles(ctx, fs, chunks)
	for _, p := range progs {
		b, err := compiler.Dasm(p)
		if err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			return err
		}
		stdio.Stdout.Write(b)
	}
	return nil
}
