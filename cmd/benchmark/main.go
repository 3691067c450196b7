// Command benchmark runs the accelerator kernel harness.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	-csv        Output results in CSV format (default: human-readable)
//	-json       Output results in JSON format
//	-config     Accelerator configuration JSON file
//	-cache      Model the default cache in front of memory
//
// Example:
//
//	# Run all kernels with human-readable output
//	go run ./cmd/benchmark
//
//	# Output CSV for spreadsheet comparison
//	go run ./cmd/benchmark -csv > results.csv
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tebeka/atexit"

	"github.com/sarchlab/accsim/benchmarks"
	"github.com/sarchlab/accsim/timing/core"
)

func main() {
	csvOutput := flag.Bool("csv", false, "Output results in CSV format")
	jsonOutput := flag.Bool("json", false, "Output results in JSON format")
	configPath := flag.String("config", "", "Accelerator configuration JSON file")
	cache := flag.Bool("cache", false, "Model the default cache in front of memory")
	flag.Parse()

	config := benchmarks.DefaultConfig()
	config.Output = os.Stdout
	if *configPath != "" {
		accel, err := core.LoadConfig(*configPath)
		if err != nil {
			atexit.Fatalf("benchmark: %v\n", err)
		}
		config.Accel = accel
	}
	if *cache && config.Accel.Memory.Cache == nil {
		config.Accel.Memory.EnableCache()
	}
	if err := config.Accel.Validate(); err != nil {
		atexit.Fatalf("benchmark: %v\n", err)
	}

	harness := benchmarks.NewHarness(config)
	harness.AddBenchmarks(benchmarks.GetKernels())

	if !*csvOutput && !*jsonOutput {
		fmt.Println("Accelerator Kernel Harness")
		fmt.Println("==========================")
		fmt.Printf("Cache:     %v\n", config.Accel.Memory.Cache != nil)
		fmt.Printf("Lockstep:  %v\n", config.Accel.Scheduler.Lockstep)
		fmt.Printf("Threshold: %d\n", config.Accel.Scheduler.SchedulingThreshold)
		fmt.Println("")
	}

	results := harness.RunAll()

	switch {
	case *csvOutput:
		harness.PrintCSV(results)
	case *jsonOutput:
		if err := harness.PrintJSON(results); err != nil {
			atexit.Fatalf("benchmark: %v\n", err)
		}
	default:
		harness.PrintResults(results)
	}

	for _, r := range results {
		if r.Err != nil {
			atexit.Exit(1)
		}
	}
	atexit.Exit(0)
}
