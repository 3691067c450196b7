// Package main provides the entry point for accsim.
// accsim is a cycle-accurate scheduler model of a spatial accelerator.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/tebeka/atexit"

	"github.com/sarchlab/accsim/benchmarks"
	"github.com/sarchlab/accsim/insts"
	"github.com/sarchlab/accsim/loader"
	"github.com/sarchlab/accsim/timing/core"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		atexit.Fatalf("accsim: %v\n", err)
	}
	atexit.Exit(0)
}

type options struct {
	configPath string
	saveConfig string
	verbose    bool
	trace      bool
	jsonOut    bool
	cache      bool
	functional bool
	maxCycles  uint64
}

func parseFlags(args []string, stderr io.Writer) (*options, *flag.FlagSet, error) {
	opts := &options{}

	fs := flag.NewFlagSet("accsim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "Path to accelerator configuration JSON file")
	fs.StringVar(&opts.saveConfig, "save-config", "", "Write the effective configuration to this path")
	fs.BoolVar(&opts.verbose, "v", false, "Verbose output")
	fs.BoolVar(&opts.trace, "trace", false, "Log every scheduling decision to stderr")
	fs.BoolVar(&opts.jsonOut, "json", false, "Print the result as JSON")
	fs.BoolVar(&opts.cache, "cache", false, "Model the default cache in front of memory")
	fs.BoolVar(&opts.functional, "functional", false, "Run on the functional emulator without timing")
	fs.Uint64Var(&opts.maxCycles, "max-cycles", 0, "Stop after this many cycles (0 = config value)")
	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "Usage: accsim [options] <program.yaml>\n")
		_, _ = fmt.Fprintf(stderr, "\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	return opts, fs, nil
}

func run(args []string, stdout, stderr io.Writer) error {
	opts, fs, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	config, err := loadConfig(opts)
	if err != nil {
		return err
	}

	if opts.saveConfig != "" {
		if err := config.SaveConfig(opts.saveConfig); err != nil {
			return err
		}
	}

	if fs.NArg() < 1 {
		if opts.saveConfig != "" {
			return nil
		}
		fs.Usage()
		return fmt.Errorf("missing program")
	}

	programPath := fs.Arg(0)

	prog, err := loader.Load(programPath)
	if err != nil {
		return fmt.Errorf("loading program: %w", err)
	}

	logger := newLogger(opts, stderr)
	logger.Info("program loaded",
		"path", programPath,
		"blocks", len(prog.Program.Blocks),
		"templates", prog.Program.Templates(),
		"registers", prog.Regs.Len())

	var (
		result benchmarks.BenchmarkResult
		runErr error
	)
	if opts.functional {
		result, runErr = benchmarks.Reference(prog, config.Memory.Capacity)
	} else {
		result, _, runErr = benchmarks.Run(prog, config, core.WithLogger(logger))
	}
	result.Name = prog.Program.Name

	switch {
	case opts.jsonOut:
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	case opts.functional:
		printFunctional(stdout, programPath, result)
	default:
		printReport(stdout, programPath, result)
	}

	return runErr
}

func loadConfig(opts *options) (*core.Config, error) {
	config := core.DefaultConfig()
	if opts.configPath != "" {
		var err error
		config, err = core.LoadConfig(opts.configPath)
		if err != nil {
			return nil, err
		}
	}

	if opts.cache && config.Memory.Cache == nil {
		config.Memory.EnableCache()
	}
	if opts.maxCycles > 0 {
		config.Scheduler.MaxCycles = opts.maxCycles
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func newLogger(opts *options, stderr io.Writer) *slog.Logger {
	switch {
	case opts.trace:
		return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case opts.verbose:
		return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.DiscardHandler)
	}
}

func printReport(out io.Writer, programPath string, r benchmarks.BenchmarkResult) {
	_, _ = fmt.Fprintf(out, "\n")
	_, _ = fmt.Fprintf(out, "Program: %s (%s)\n", programPath, r.Name)
	if r.ReturnValue != nil {
		_, _ = fmt.Fprintf(out, "Return value: %d (0x%x)\n", *r.ReturnValue, *r.ReturnValue)
	}
	_, _ = fmt.Fprintf(out, "\n")

	benchmarks.PrintStats(out, r)

	_, _ = fmt.Fprintln(out, "  --- Functional Units (static / peak) ---")
	for f, static := range r.Stats.StaticFU {
		if static == 0 && r.Stats.PeakFU[f] == 0 {
			continue
		}
		_, _ = fmt.Fprintf(out, "  %-14s %4d / %d\n", insts.FU(f), static, r.Stats.PeakFU[f])
	}

	_, _ = fmt.Fprintln(out, "  --- Registers ---")
	_, _ = fmt.Fprintf(out, "  Count: %d (global %d)\n", r.Stats.Registers.Count, r.Stats.Registers.Globals)
	_, _ = fmt.Fprintf(out, "  Reads/Writes: %d / %d\n", r.Stats.Registers.Reads, r.Stats.Registers.Writes)

	printDumps(out, r.Dumps)
}

func printFunctional(out io.Writer, programPath string, r benchmarks.BenchmarkResult) {
	_, _ = fmt.Fprintf(out, "\n")
	_, _ = fmt.Fprintf(out, "Program: %s (%s, functional)\n", programPath, r.Name)
	if r.ReturnValue != nil {
		_, _ = fmt.Fprintf(out, "Return value: %d (0x%x)\n", *r.ReturnValue, *r.ReturnValue)
	}
	_, _ = fmt.Fprintf(out, "Instructions: %d\n", r.ExecutedNodes)
	printDumps(out, r.Dumps)
}

func printDumps(out io.Writer, dumps map[string][]uint64) {
	if len(dumps) == 0 {
		return
	}

	_, _ = fmt.Fprintln(out, "  --- Memory Dumps ---")
	names := make([]string, 0, len(dumps))
	for name := range dumps {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		_, _ = fmt.Fprintf(out, "  %s: %v\n", name, dumps[name])
	}
}
