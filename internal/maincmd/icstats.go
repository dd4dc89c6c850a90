package maincmd

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/mna/mainer"

	"github.com/ivscript/iv/lang/compiler"
	"github.com/ivscript/iv/lang/machine"
	"github.com/ivscript/iv/lang/parser"
	"github.com/ivscript/iv/lang/resolver"
	"github.com/ivscript/iv/lang/scanner"
)

// ICStats runs the given files and reports the property-access inline-cache
// hit/miss counters gathered by the Map engine while they executed.
func (c *Cmd) ICStats(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return ICStatsFiles(ctx, stdio, args...)
}

func ICStatsFiles(ctx context.Context, stdio mainer.Stdio, files ...string) error {
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
	hits0, misses0 := machine.ICStats()
	for i, p := range progs {
		th := &machine.Thread{Name: files[i], Stdout: stdio.Stdout, Stderr: stdio.Stderr}
		if _, err := th.RunProgram(ctx, p); err != nil {
			fmt.Fprintf(stdio.Stderr, "%s: %s\n", p.Filename, err)
			return err
		}
	}
	hits1, misses1 := machine.ICStats()
	hits, misses := hits1-hits0, misses1-misses0
	total := hits + misses

	var rate float64
	if total > 0 {
		rate = float64(hits) / float64(total) * 100
	}
	fmt.Fprintf(stdio.Stdout, "inline cache hits:   %s\n", humanize.Comma(int64(hits)))
	fmt.Fprintf(stdio.Stdout, "inline cache misses: %s\n", humanize.Comma(int64(misses)))
	fmt.Fprintf(stdio.Stdout, "hit rate:            %.1f%%\n", rate)
	return nil
}
