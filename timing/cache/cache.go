// Package cache provides a tag-only cache model using Akita cache
// components. It decides whether an access hits and how long it takes;
// the data itself lives in the memory behind it.
package cache

import (
	"fmt"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config holds cache configuration parameters.
type Config struct {
	// Size in bytes
	Size int `json:"size"`
	// Associativity (number of ways)
	Associativity int `json:"associativity"`
	// BlockSize in bytes (cache line size)
	BlockSize int `json:"block_size"`
	// HitLatency in cycles
	HitLatency uint64 `json:"hit_latency"`
	// MissLatency in cycles (includes memory access time)
	MissLatency uint64 `json:"miss_latency"`
	// WritebackLatency is added to a miss that evicts a dirty line.
	WritebackLatency uint64 `json:"writeback_latency"`
}

// DefaultConfig returns the configuration of the cache in front of the
// accelerator's global memory: 16KB, 4-way, 64B lines.
func DefaultConfig() Config {
	return Config{
		Size:             16 * 1024,
		Associativity:    4,
		BlockSize:        64,
		HitLatency:       2,
		MissLatency:      20,
		WritebackLatency: 10,
	}
}

// Validate checks that the geometry describes at least one set.
func (c Config) Validate() error {
	if c.Associativity <= 0 || c.BlockSize <= 0 {
		return fmt.Errorf("associativity and block_size must be > 0")
	}
	if c.BlockSize&(c.BlockSize-1) != 0 {
		return fmt.Errorf("block_size must be a power of two")
	}
	if c.Size < c.Associativity*c.BlockSize || c.Size%(c.Associativity*c.BlockSize) != 0 {
		return fmt.Errorf("size must be a positive multiple of associativity * block_size")
	}
	if c.MissLatency < c.HitLatency {
		return fmt.Errorf("miss_latency must be >= hit_latency")
	}
	return nil
}

// AccessResult contains the result of a cache access.
type AccessResult struct {
	// Hit indicates whether every line touched was present.
	Hit bool
	// Latency is the number of cycles this access takes.
	Latency uint64
	// Evicted is true if a valid line was replaced.
	Evicted bool
	// EvictedAddr is the address of the last evicted line.
	EvictedAddr uint64
	// Writeback is true if a dirty line was replaced.
	Writeback bool
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
}

// Cache tracks tags and dirty state with an Akita directory.
type Cache struct {
	config    Config
	directory *akitacache.DirectoryImpl
	stats     Statistics
}

// New creates a new cache with the given configuration.
func New(config Config) *Cache {
	numSets := config.Size / (config.Associativity * config.BlockSize)

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// ResetStats clears cache statistics.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}

// Read looks up the lines covering [addr, addr+size).
func (c *Cache) Read(addr uint64, size uint64) AccessResult {
	c.stats.Reads++
	return c.access(addr, size, false)
}

// Write looks up the lines covering [addr, addr+size) and marks them
// dirty. Misses allocate.
func (c *Cache) Write(addr uint64, size uint64) AccessResult {
	c.stats.Writes++
	return c.access(addr, size, true)
}

func (c *Cache) access(addr uint64, size uint64, isWrite bool) AccessResult {
	if size == 0 {
		size = 1
	}

	result := AccessResult{Hit: true}
	bs := uint64(c.config.BlockSize)

	first := addr / bs * bs
	last := (addr + size - 1) / bs * bs
	for blockAddr := first; blockAddr <= last; blockAddr += bs {
		if !c.touch(blockAddr, isWrite, &result) {
			result.Hit = false
		}
	}

	if result.Hit {
		c.stats.Hits++
		result.Latency = c.config.HitLatency
		return result
	}

	c.stats.Misses++
	result.Latency = c.config.MissLatency
	if result.Writeback {
		result.Latency += c.config.WritebackLatency
	}
	return result
}

// touch looks up one line, allocating it on a miss. It returns true on a
// hit.
func (c *Cache) touch(blockAddr uint64, isWrite bool, result *AccessResult) bool {
	block := c.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		c.directory.Visit(block)
		if isWrite {
			block.IsDirty = true
		}
		return true
	}

	victim := c.directory.FindVictim(blockAddr)
	if victim == nil {
		return false
	}

	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = victim.Tag
		if victim.IsDirty {
			c.stats.Writebacks++
			result.Writeback = true
		}
	}

	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = isWrite
	c.directory.Visit(victim)

	return false
}

// Contains returns true if the line holding addr is present.
func (c *Cache) Contains(addr uint64) bool {
	bs := uint64(c.config.BlockSize)
	block := c.directory.Lookup(0, addr/bs*bs)
	return block != nil && block.IsValid
}

// Invalidate marks a cache line as invalid.
func (c *Cache) Invalidate(addr uint64) {
	blockAddr := (addr / uint64(c.config.BlockSize)) * uint64(c.config.BlockSize)
	block := c.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		block.IsValid = false
		block.IsDirty = false
	}
}

// Flush writes back all dirty lines and invalidates every line. It returns
// the number of lines written back.
func (c *Cache) Flush() int {
	n := 0
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty {
				c.stats.Writebacks++
				n++
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}
	return n
}

// Reset invalidates all cache lines without writeback.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}
