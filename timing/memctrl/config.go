package memctrl

import (
	"fmt"

	"github.com/sarchlab/accsim/timing/cache"
)

// Config describes the memory behind the accelerator.
type Config struct {
	// Capacity is the size of the backing storage in bytes.
	// Default: 16MB.
	Capacity uint64 `json:"capacity"`

	// Latency is the access latency in cycles when no cache is modeled.
	// Default: 2.
	Latency uint64 `json:"latency"`

	// ReadPorts and WritePorts bound how many requests of each direction
	// start per cycle. Zero means unbounded. Default: 0.
	ReadPorts  int `json:"read_ports"`
	WritePorts int `json:"write_ports"`

	// Cache, if set, decides per-access latency instead of Latency.
	Cache *cache.Config `json:"cache,omitempty"`
}

// DefaultConfig returns a fixed-latency memory with no cache.
func DefaultConfig() *Config {
	return &Config{
		Capacity: 16 * 1024 * 1024,
		Latency:  2,
	}
}

// EnableCache turns on the default cache model.
func (c *Config) EnableCache() *Config {
	cc := cache.DefaultConfig()
	c.Cache = &cc
	return c
}

// Clone returns a deep copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Cache != nil {
		cc := *c.Cache
		clone.Cache = &cc
	}
	return &clone
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Capacity == 0 {
		return fmt.Errorf("capacity must be > 0")
	}
	if c.ReadPorts < 0 || c.WritePorts < 0 {
		return fmt.Errorf("read_ports and write_ports must be >= 0")
	}
	if c.Cache != nil {
		if err := c.Cache.Validate(); err != nil {
			return fmt.Errorf("cache: %w", err)
		}
	}
	return nil
}
