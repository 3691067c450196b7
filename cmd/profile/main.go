// Package main provides a profiling wrapper for accsim to identify
// performance bottlenecks of the scheduler itself.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/tebeka/atexit"

	"github.com/sarchlab/accsim/benchmarks"
	"github.com/sarchlab/accsim/loader"
	"github.com/sarchlab/accsim/timing/core"
)

var (
	cpuProfile = flag.String("cpuprofile", "", "write cpu profile to file")
	memProfile = flag.String("memprofile", "", "write memory profile to file")
	kernel     = flag.String("kernel", "", "profile a built-in kernel instead of a program file")
	repeat     = flag.Int("repeat", 100, "number of runs")
	configPath = flag.String("config", "", "Accelerator configuration JSON file")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 && *kernel == "" {
		fmt.Fprintf(os.Stderr, "Usage: profile [options] <program.yaml>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		atexit.Exit(1)
	}

	prog, err := load()
	if err != nil {
		atexit.Fatalf("Error loading program: %v\n", err)
	}

	config := core.DefaultConfig()
	if *configPath != "" {
		if config, err = core.LoadConfig(*configPath); err != nil {
			atexit.Fatalf("Error loading config: %v\n", err)
		}
	}

	// Start CPU profiling if requested
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			atexit.Fatalf("Error creating CPU profile: %v\n", err)
		}
		atexit.Register(func() { _ = f.Close() })

		if err := pprof.StartCPUProfile(f); err != nil {
			atexit.Fatalf("Error starting CPU profile: %v\n", err)
		}
		atexit.Register(pprof.StopCPUProfile)
	}

	start := time.Now()

	var cycles, executed uint64
	for i := 0; i < *repeat; i++ {
		result, _, err := benchmarks.Run(prog, config)
		if err != nil {
			atexit.Fatalf("Run %d failed: %v\n", i, err)
		}
		cycles += result.SimulatedCycles
		executed += result.ExecutedNodes
	}

	elapsed := time.Since(start)

	// Write memory profile if requested
	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			atexit.Fatalf("Error creating memory profile: %v\n", err)
		}
		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing memory profile: %v\n", err)
		}
		_ = f.Close()
	}

	fmt.Printf("\nProfiling Results:\n")
	fmt.Printf("Program: %s\n", prog.Program.Name)
	fmt.Printf("Runs: %d\n", *repeat)
	fmt.Printf("Simulated cycles: %d\n", cycles)
	fmt.Printf("Executed nodes: %d\n", executed)
	fmt.Printf("Elapsed time: %v\n", elapsed)
	if elapsed > 0 {
		fmt.Printf("Cycles/second: %.0f\n", float64(cycles)/elapsed.Seconds())
		fmt.Printf("Nodes/second: %.0f\n", float64(executed)/elapsed.Seconds())
	}

	atexit.Exit(0)
}

func load() (*loader.Program, error) {
	if *kernel != "" {
		data, err := benchmarks.Kernel(*kernel)
		if err != nil {
			return nil, err
		}
		return loader.Parse(data)
	}
	return loader.Load(flag.Arg(0))
}
