package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/caarlos0/env/v6"
	"github.com/mna/mainer"
	"gopkg.in/yaml.v3"

	"github.com/ivscript/iv/lang/compiler"
	"github.com/ivscript/iv/lang/machine"
	"github.com/ivscript/iv/lang/parser"
	"github.com/ivscript/iv/lang/resolver"
	"github.com/ivscript/iv/lang/scanner"
)

// RunConfig configures the Thread limits shared across every file the run
// command executes. It is loaded from an optional YAML file (--config) and
// then overridden by IV_RUN_* environment variables.
type RunConfig struct {
	MaxSteps          int  `yaml:"max_steps" env:"IV_RUN_MAX_STEPS"`
	MaxCallStackDepth int  `yaml:"max_call_stack_depth" env:"IV_RUN_MAX_CALL_STACK_DEPTH"`
	MaxCompareDepth   int  `yaml:"max_compare_depth" env:"IV_RUN_MAX_COMPARE_DEPTH"`
	DisableRecursion  bool `yaml:"disable_recursion" env:"IV_RUN_DISABLE_RECURSION"`
}

func loadRunConfig(path string) (RunConfig, error) {
	var cfg RunConfig
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("reading env overrides: %w", err)
	}
	return cfg, nil
}

// Run parses, resolves, compiles and executes the given files, printing the
// result value of each toplevel program.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	cfg, err := loadRunConfig(c.Config)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	return RunFiles(ctx, stdio, cfg, args...)
}

func RunFiles(ctx context.Context, stdio mainer.Stdio, cfg RunConfig, files ...string) error {
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
	for i, p := range progs {
		th := &machine.Thread{
			Name:              files[i],
			Stdout:            stdio.Stdout,
			Stderr:            stdio.Stderr,
			Stdin:             stdio.Stdin,
			MaxSteps:          cfg.MaxSteps,
			MaxCallStackDepth: cfg.MaxCallStackDepth,
			MaxCompareDepth:   cfg.MaxCompareDepth,
			DisableRecursion:  cfg.DisableRecursion,
		}
		result, err := th.RunProgram(ctx, p)
		if err != nil {
			fmt.Fprintf(stdio.Stderr, "%s: %s\n", p.Filename, err)
			return err
		}
		fmt.Fprintf(stdio.Stdout, "%s: %s\n", p.Filename, result)
	}
	return nil
}
