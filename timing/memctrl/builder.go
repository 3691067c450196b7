package memctrl

import (
	"fmt"
	"log/slog"

	"github.com/sarchlab/akita/v4/mem/mem"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/accsim/timing/cache"
)

// Builder can create memory controllers.
type Builder struct {
	engine sim.Engine
	freq   sim.Freq
	config *Config
	logger *slog.Logger
}

// NewBuilder returns a builder with the default configuration.
func NewBuilder() Builder {
	return Builder{
		freq:   1 * sim.GHz,
		config: DefaultConfig(),
	}
}

// WithEngine sets the engine.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency latencies are counted in.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithConfig sets the memory configuration.
func (b Builder) WithConfig(config *Config) Builder {
	b.config = config
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

// Build creates a controller.
func (b Builder) Build(name string) (*Controller, error) {
	if b.engine == nil {
		return nil, fmt.Errorf("memctrl %s: engine is required", name)
	}
	if err := b.config.Validate(); err != nil {
		return nil, fmt.Errorf("memctrl %s: %w", name, err)
	}

	c := &Controller{
		name:       name,
		engine:     b.engine,
		freq:       b.freq,
		config:     b.config.Clone(),
		storage:    mem.NewStorage(b.config.Capacity),
		logger:     b.logger,
		readPorts:  portBudget{ports: b.config.ReadPorts},
		writePorts: portBudget{ports: b.config.WritePorts},
	}

	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}

	if b.config.Cache != nil {
		c.cache = cache.New(*b.config.Cache)
	}

	return c, nil
}
