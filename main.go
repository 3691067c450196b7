// Package main provides the entry point for accsim.
// accsim is a cycle-accurate CDFG scheduler model of a spatial accelerator
// built on Akita.
//
// For the full CLI, use: go run ./cmd/accsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("accsim - Spatial Accelerator Scheduler Model")
	fmt.Println("Built on Akita simulation framework")
	fmt.Println("")
	fmt.Println("Usage: accsim [options] <program.yaml>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config       Path to accelerator configuration JSON file")
	fmt.Println("  -save-config  Write the effective configuration to a file")
	fmt.Println("  -cache        Model the default cache in front of memory")
	fmt.Println("  -max-cycles   Stop after this many cycles")
	fmt.Println("  -json         Print the result as JSON")
	fmt.Println("  -trace        Log every scheduling decision")
	fmt.Println("  -v            Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/accsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/accsim' instead.")
	}
}
