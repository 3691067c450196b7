package benchmarks

import (
	"embed"
	"fmt"
	"math"
	"path"
)

//go:embed kernels/*.yaml
var kernelFS embed.FS

// Kernel reads an embedded kernel program by name.
func Kernel(name string) ([]byte, error) {
	data, err := kernelFS.ReadFile(path.Join("kernels", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("unknown kernel %q: %w", name, err)
	}
	return data, nil
}

func mustKernel(name string) []byte {
	data, err := Kernel(name)
	if err != nil {
		panic(err)
	}
	return data
}

func ret(v uint64) *uint64 {
	return &v
}

func floats(fs ...float32) []uint64 {
	out := make([]uint64, len(fs))
	for i, f := range fs {
		out[i] = uint64(math.Float32bits(f))
	}
	return out
}

// GetKernels returns the standard kernel set. Each kernel stresses one part
// of the scheduler and carries its expected outputs.
func GetKernels() []Benchmark {
	return []Benchmark{
		{
			Name:        "vadd",
			Description: "Integer vector add - independent loads feeding a store per iteration",
			Source:      mustKernel("vadd"),
			Expected:    ret(8),
			ExpectedDumps: map[string][]uint64{
				"c": {11, 22, 33, 44, 55, 66, 77, 88},
			},
		},
		{
			Name:        "dot",
			Description: "Single precision dot product - loop-carried fadd through a phi",
			Source:      mustKernel("dot"),
			Expected:    ret(uint64(math.Float32bits(11.5))),
		},
		{
			Name:        "saxpy",
			Description: "Single precision a*x+y in place - load and store through one pointer",
			Source:      mustKernel("saxpy"),
			ExpectedDumps: map[string][]uint64{
				"y": floats(12, 24, 36, 48),
			},
		},
		{
			Name:        "fib",
			Description: "Iterative Fibonacci - register-only recurrence, no memory traffic",
			Source:      mustKernel("fib"),
			Expected:    ret(55),
		},
		{
			Name:        "histogram",
			Description: "Histogram - read-modify-write ordered through store-to-load dependences",
			Source:      mustKernel("histogram"),
			ExpectedDumps: map[string][]uint64{
				"hist": {1, 4, 1, 2},
			},
		},
		{
			Name:        "classify",
			Description: "Switch dispatch with a three-way merging phi",
			Source:      mustKernel("classify"),
			Expected:    ret(51),
		},
	}
}
