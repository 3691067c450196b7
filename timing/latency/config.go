package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// TimingConfig holds the fixed execution latency, in ticks, of each
// operation class. A latency of zero makes the operation combinational:
// it issues and commits in the same tick.
//
// Loads and stores are not listed here. Their latency is decided by the
// memory collaborator, which signals completion out of band.
type TimingConfig struct {
	// CounterLatency applies to add/sub by constant one. Default: 1.
	CounterLatency uint64 `json:"counter_latency"`

	// IntAddLatency applies to integer add and sub. Default: 1.
	IntAddLatency uint64 `json:"int_add_latency"`

	// IntMulLatency applies to integer mul. Default: 3.
	IntMulLatency uint64 `json:"int_mul_latency"`

	// IntDivLatency applies to udiv, sdiv, urem and srem. Default: 16.
	IntDivLatency uint64 `json:"int_div_latency"`

	// ShiftLatency applies to shl, lshr and ashr. Default: 0.
	ShiftLatency uint64 `json:"shift_latency"`

	// BitwiseLatency applies to and, or and xor. Default: 0.
	BitwiseLatency uint64 `json:"bitwise_latency"`

	// CompareLatency applies to icmp and fcmp. Default: 0.
	CompareLatency uint64 `json:"compare_latency"`

	// GEPLatency applies to getelementptr. Default: 0.
	GEPLatency uint64 `json:"gep_latency"`

	// ConversionLatency applies to casts and extensions. Default: 0.
	ConversionLatency uint64 `json:"conversion_latency"`

	// PhiLatency applies to phi. Default: 0.
	PhiLatency uint64 `json:"phi_latency"`

	// SelectLatency applies to select. Default: 0.
	SelectLatency uint64 `json:"select_latency"`

	// FPAddLatency applies to fadd and fsub. Default: 5.
	FPAddLatency uint64 `json:"fp_add_latency"`

	// FPMulLatency applies to fmul. Default: 4.
	FPMulLatency uint64 `json:"fp_mul_latency"`

	// FPDivLatency applies to fdiv and frem. Default: 16.
	FPDivLatency uint64 `json:"fp_div_latency"`
}

// DefaultTimingConfig returns a TimingConfig with the default accelerator
// datapath latencies.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		CounterLatency:    1,
		IntAddLatency:     1,
		IntMulLatency:     3,
		IntDivLatency:     16,
		ShiftLatency:      0,
		BitwiseLatency:    0,
		CompareLatency:    0,
		GEPLatency:        0,
		ConversionLatency: 0,
		PhiLatency:        0,
		SelectLatency:     0,
		FPAddLatency:      5,
		FPMulLatency:      4,
		FPDivLatency:      16,
	}
}

// LoadConfig loads a TimingConfig from a JSON file. Fields missing from
// the file keep their default values.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that multi-cycle arithmetic is not configured as
// combinational.
func (c *TimingConfig) Validate() error {
	if c.IntMulLatency == 0 {
		return fmt.Errorf("int_mul_latency must be > 0")
	}
	if c.IntDivLatency == 0 {
		return fmt.Errorf("int_div_latency must be > 0")
	}
	if c.FPAddLatency == 0 {
		return fmt.Errorf("fp_add_latency must be > 0")
	}
	if c.FPMulLatency == 0 {
		return fmt.Errorf("fp_mul_latency must be > 0")
	}
	if c.FPDivLatency < c.FPMulLatency {
		return fmt.Errorf("fp_div_latency must be >= fp_mul_latency")
	}
	return nil
}

// Clone returns a deep copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}
