package scheduler

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/accsim/timing/fu"
	"github.com/sarchlab/accsim/timing/latency"
)

// Config is consumed at construction and never changes during a run.
type Config struct {
	// ClockPeriodNS is the simulated clock period in nanoseconds.
	// Default: 1 (1 GHz).
	ClockPeriodNS float64 `json:"clock_period_ns"`

	// Pipelined enables pipelined issue. Pipelined and non-pipelined issue
	// currently follow the same policy; the flag is kept for configuration
	// compatibility and reported in traces.
	Pipelined bool `json:"pipelined"`

	// Lockstep gates issue on a full drain of the read, write and compute
	// queues.
	Lockstep bool `json:"lockstep"`

	// SchedulingThreshold is the largest reservation table size, exclusive,
	// that lets a resolved terminator schedule the next block in the same
	// tick. Default: 8.
	SchedulingThreshold int `json:"scheduling_threshold"`

	// MaxCycles stops a run that has not returned after this many ticks.
	// Zero means unbounded.
	MaxCycles uint64 `json:"max_cycles"`

	// FU holds the per-category unit budgets. Default: all unlimited.
	FU fu.Budgets `json:"fu"`

	// Latency holds the per-operation latencies.
	Latency *latency.TimingConfig `json:"latency"`
}

// DefaultConfig returns a Config with unlimited functional units and the
// default latency table.
func DefaultConfig() *Config {
	return &Config{
		ClockPeriodNS:       1,
		Pipelined:           true,
		Lockstep:            false,
		SchedulingThreshold: 8,
		MaxCycles:           0,
		FU:                  fu.UnlimitedBudgets(),
		Latency:             latency.DefaultTimingConfig(),
	}
}

// LoadConfig loads a Config from a JSON file. Fields missing from the file
// keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scheduler config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse scheduler config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize scheduler config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write scheduler config file: %w", err)
	}

	return nil
}

// Validate checks the configuration for values no run can use.
func (c *Config) Validate() error {
	if c.ClockPeriodNS <= 0 {
		return fmt.Errorf("clock_period_ns must be > 0")
	}
	if c.SchedulingThreshold < 0 {
		return fmt.Errorf("scheduling_threshold must be >= 0")
	}
	for i, b := range c.FU {
		if b < fu.Unlimited {
			return fmt.Errorf("fu budget %d of category %d is invalid", int(b), i)
		}
	}
	if c.Latency == nil {
		return fmt.Errorf("latency config is missing")
	}
	if err := c.Latency.Validate(); err != nil {
		return fmt.Errorf("latency: %w", err)
	}
	return nil
}

// Clone returns a deep copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Latency != nil {
		clone.Latency = c.Latency.Clone()
	}
	return &clone
}

// Freq returns the clock frequency matching ClockPeriodNS.
func (c *Config) Freq() sim.Freq {
	return sim.Freq(1e9/c.ClockPeriodNS) * sim.Hz
}
