// Package benchmarks provides the kernel harness for accelerator runs.
package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/sarchlab/accsim/emu"
	"github.com/sarchlab/accsim/loader"
	"github.com/sarchlab/accsim/timing/core"
	"github.com/sarchlab/accsim/timing/scheduler"
)

// BenchmarkResult holds the results for a single kernel run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// SimulatedCycles is the total cycle count
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// ExecutedNodes is the number of dynamic instructions retired
	ExecutedNodes uint64 `json:"executed_nodes"`

	// IPC is retired instructions per cycle
	IPC float64 `json:"ipc"`

	// StallCycles counts ticks with no load, store or compute activity
	StallCycles uint64 `json:"stall_cycles"`

	// BlocksScheduled counts basic block instances
	BlocksScheduled uint64 `json:"blocks_scheduled"`

	// Memory traffic split by local scratchpad and global memory
	LocalReads   uint64 `json:"local_reads"`
	LocalWrites  uint64 `json:"local_writes"`
	GlobalReads  uint64 `json:"global_reads"`
	GlobalWrites uint64 `json:"global_writes"`

	// Cache hits/misses (if cache enabled)
	CacheHits   uint64 `json:"cache_hits,omitempty"`
	CacheMisses uint64 `json:"cache_misses,omitempty"`

	// ReturnValue is the raw value of the final ret, if it carried one
	ReturnValue *uint64 `json:"return_value,omitempty"`

	// Dumps holds the memory regions the program asks to report
	Dumps map[string][]uint64 `json:"dumps,omitempty"`

	// Stats is the full scheduler statistics record
	Stats scheduler.Stats `json:"-"`

	// Err is the run error, if any
	Err error `json:"-"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single kernel.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Source is the YAML program
	Source []byte

	// Expected is the expected return value, if checked
	Expected *uint64

	// ExpectedDumps are the expected contents of named dump regions
	ExpectedDumps map[string][]uint64
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Accel is the accelerator configuration every kernel runs on
	Accel *core.Config

	// Logger receives scheduler traces (default: discarded)
	Logger *slog.Logger

	// Output is where to write results (default: os.Stdout)
	Output io.Writer
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Accel:  core.DefaultConfig(),
		Output: os.Stdout,
	}
}

// Harness runs kernels and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Accel == nil {
		config.Accel = core.DefaultConfig()
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		results = append(results, h.runBenchmark(bench))
	}

	return results
}

func (h *Harness) runBenchmark(bench Benchmark) BenchmarkResult {
	result := BenchmarkResult{Name: bench.Name, Description: bench.Description}

	prog, err := loader.Parse(bench.Source)
	if err != nil {
		result.Err = err
		return result
	}

	var opts []core.Option
	if h.config.Logger != nil {
		opts = append(opts, core.WithLogger(h.config.Logger))
	}

	r, _, err := Run(prog, h.config.Accel, opts...)
	r.Name = bench.Name
	r.Description = bench.Description
	if err == nil {
		err = bench.check(r)
	}
	r.Err = err

	return r
}

// check compares a result against the expected outputs.
func (b Benchmark) check(r BenchmarkResult) error {
	if b.Expected != nil {
		if r.ReturnValue == nil {
			return fmt.Errorf("%s: no return value, want %d", b.Name, *b.Expected)
		}
		if *r.ReturnValue != *b.Expected {
			return fmt.Errorf("%s: returned %d, want %d", b.Name, *r.ReturnValue, *b.Expected)
		}
	}

	for name, want := range b.ExpectedDumps {
		got, ok := r.Dumps[name]
		if !ok {
			return fmt.Errorf("%s: missing dump %q", b.Name, name)
		}
		if len(got) != len(want) {
			return fmt.Errorf("%s: dump %q has %d values, want %d", b.Name, name, len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				return fmt.Errorf("%s: %s[%d] = %d, want %d", b.Name, name, i, got[i], want[i])
			}
		}
	}

	return nil
}

// Run executes a loaded program on a fresh accelerator. The core is
// returned so callers can inspect memory after the run.
func Run(
	prog *loader.Program,
	config *core.Config,
	opts ...core.Option,
) (BenchmarkResult, *core.Core, error) {
	var result BenchmarkResult

	c, err := core.NewCore(prog.Program, prog.Regs.Clone(), config, opts...)
	if err != nil {
		return result, nil, err
	}

	for _, seg := range prog.Image {
		if err := c.LoadMemory(seg.Addr, seg.Data); err != nil {
			return result, c, fmt.Errorf("loading image at 0x%x: %w", seg.Addr, err)
		}
	}

	start := time.Now()
	runErr := c.Run()
	result.WallTime = time.Since(start)

	stats := c.Stats()
	s := stats.Scheduler
	result.Stats = s
	result.SimulatedCycles = s.Cycles
	result.ExecutedNodes = s.ExecutedNodes
	result.StallCycles = s.Stalls
	result.BlocksScheduled = s.BlocksScheduled
	result.LocalReads = s.LocalReads
	result.LocalWrites = s.LocalWrites
	result.GlobalReads = s.GlobalReads
	result.GlobalWrites = s.GlobalWrites
	result.CacheHits = stats.Memory.Cache.Hits
	result.CacheMisses = stats.Memory.Cache.Misses
	if s.Cycles > 0 {
		result.IPC = float64(s.ExecutedNodes) / float64(s.Cycles)
	}

	if v, ok := c.ReturnValue(); ok {
		result.ReturnValue = &v
	}

	if runErr != nil {
		return result, c, runErr
	}

	result.Dumps, err = ReadDumps(c, prog.Dumps)
	return result, c, err
}

// ReadDumps reads the typed memory regions of a finished run.
func ReadDumps(c *core.Core, ranges []loader.Range) (map[string][]uint64, error) {
	return readRanges(c.DumpMemory, ranges)
}

func readRanges(
	read func(addr, n uint64) ([]byte, error),
	ranges []loader.Range,
) (map[string][]uint64, error) {
	if len(ranges) == 0 {
		return nil, nil
	}

	dumps := make(map[string][]uint64, len(ranges))
	for _, r := range ranges {
		size := r.Type.Size()
		data, err := read(r.Addr, size*uint64(r.Count))
		if err != nil {
			return nil, fmt.Errorf("dump %q: %w", r.Name, err)
		}

		values := make([]uint64, r.Count)
		for i := range values {
			values[i] = emu.DecodeLoad(data[uint64(i)*size:], r.Type)
		}
		dumps[r.Name] = values
	}

	return dumps, nil
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	out := h.config.Output
	_, _ = fmt.Fprintln(out, "=== Accelerator Kernel Results ===")
	_, _ = fmt.Fprintln(out, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(out, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(out, "  Description: %s\n", r.Description)
		if r.Err != nil {
			_, _ = fmt.Fprintf(out, "  FAILED: %v\n\n", r.Err)
			continue
		}
		PrintStats(out, r)
		_, _ = fmt.Fprintf(out, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(out, "")
	}
}

// PrintStats writes the timing section of one result.
func PrintStats(out io.Writer, r BenchmarkResult) {
	_, _ = fmt.Fprintln(out, "  --- Timing ---")
	_, _ = fmt.Fprintf(out, "  Simulated Cycles:  %d\n", r.SimulatedCycles)
	_, _ = fmt.Fprintf(out, "  Executed Nodes:    %d\n", r.ExecutedNodes)
	_, _ = fmt.Fprintf(out, "  IPC:               %.3f\n", r.IPC)
	_, _ = fmt.Fprintf(out, "  Stall Cycles:      %d\n", r.StallCycles)
	_, _ = fmt.Fprintf(out, "  Blocks Scheduled:  %d\n", r.BlocksScheduled)

	_, _ = fmt.Fprintln(out, "  --- Memory ---")
	_, _ = fmt.Fprintf(out, "  Local  R/W: %d / %d\n", r.LocalReads, r.LocalWrites)
	_, _ = fmt.Fprintf(out, "  Global R/W: %d / %d\n", r.GlobalReads, r.GlobalWrites)
	if r.CacheHits > 0 || r.CacheMisses > 0 {
		_, _ = fmt.Fprintf(out, "  Cache Hits/Misses: %d / %d\n", r.CacheHits, r.CacheMisses)
	}

	_, _ = fmt.Fprintln(out, "  --- Activity ---")
	for a := scheduler.Activity(0); a < scheduler.NumActivity; a++ {
		if n := r.Stats.Activity[a]; n > 0 {
			_, _ = fmt.Fprintf(out, "  %-20s %d\n", a.String()+":", n)
		}
	}
	for a := scheduler.Activity(0); a < scheduler.NumActivity; a++ {
		if n := r.Stats.StallCauses[a]; n > 0 {
			_, _ = fmt.Fprintf(out, "  stall with %-9s %d\n", occupiedName(a)+":", n)
		}
	}
}

// occupiedName names the queues encoded in a stall cause.
func occupiedName(a scheduler.Activity) string {
	if a == 0 {
		return "none"
	}
	return a.String()
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,cycles,executed,ipc,stalls,blocks,local_reads,local_writes,global_reads,global_writes,cache_hits,cache_misses")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%.3f,%d,%d,%d,%d,%d,%d,%d,%d\n",
			r.Name,
			r.SimulatedCycles,
			r.ExecutedNodes,
			r.IPC,
			r.StallCycles,
			r.BlocksScheduled,
			r.LocalReads,
			r.LocalWrites,
			r.GlobalReads,
			r.GlobalWrites,
			r.CacheHits,
			r.CacheMisses,
		)
	}
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	// Metadata about the benchmark run
	Metadata ReportMetadata `json:"metadata"`

	// Results is the list of individual benchmark results
	Results []BenchmarkResult `json:"results"`

	// Summary contains aggregate statistics
	Summary ReportSummary `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	// Timestamp when the benchmark was run
	Timestamp string `json:"timestamp"`

	// Config is the accelerator configuration used
	Config *core.Config `json:"config"`
}

// ReportSummary contains aggregate statistics across all benchmarks.
type ReportSummary struct {
	TotalBenchmarks int           `json:"total_benchmarks"`
	Failed          int           `json:"failed"`
	TotalCycles     uint64        `json:"total_cycles"`
	TotalExecuted   uint64        `json:"total_executed"`
	AverageIPC      float64       `json:"average_ipc"`
	TotalWallTime   time.Duration `json:"total_wall_time_ns"`
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	summary := ReportSummary{TotalBenchmarks: len(results)}
	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
		}
		summary.TotalCycles += r.SimulatedCycles
		summary.TotalExecuted += r.ExecutedNodes
		summary.TotalWallTime += r.WallTime
	}
	if summary.TotalCycles > 0 {
		summary.AverageIPC = float64(summary.TotalExecuted) / float64(summary.TotalCycles)
	}

	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Config:    h.config.Accel,
		},
		Results: results,
		Summary: summary,
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
