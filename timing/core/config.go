package core

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sarchlab/accsim/timing/memctrl"
	"github.com/sarchlab/accsim/timing/scheduler"
)

// Config is the complete accelerator configuration.
type Config struct {
	Scheduler *scheduler.Config `json:"scheduler"`
	Memory    *memctrl.Config   `json:"memory"`
}

// DefaultConfig returns the default scheduler with a fixed-latency memory.
func DefaultConfig() *Config {
	return &Config{
		Scheduler: scheduler.DefaultConfig(),
		Memory:    memctrl.DefaultConfig(),
	}
}

// LoadConfig loads a Config from a JSON file. Sections and fields missing
// from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks both sections.
func (c *Config) Validate() error {
	if c.Scheduler == nil || c.Memory == nil {
		return fmt.Errorf("scheduler and memory sections are required")
	}
	if err := c.Scheduler.Validate(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	if err := c.Memory.Validate(); err != nil {
		return fmt.Errorf("memory: %w", err)
	}
	return nil
}

// Clone returns a deep copy of the Config.
func (c *Config) Clone() *Config {
	clone := &Config{}
	if c.Scheduler != nil {
		clone.Scheduler = c.Scheduler.Clone()
	}
	if c.Memory != nil {
		clone.Memory = c.Memory.Clone()
	}
	return clone
}
