// Package core provides the accelerator model.
// It wires an akita engine, the scheduler and the memory controller
// together and provides a high-level interface.
package core

import (
	"fmt"
	"log/slog"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/accsim/emu"
	"github.com/sarchlab/accsim/insts"
	"github.com/sarchlab/accsim/timing/memctrl"
	"github.com/sarchlab/accsim/timing/scheduler"
)

// Stats holds performance statistics for the accelerator.
type Stats struct {
	Scheduler scheduler.Stats
	Memory    memctrl.Stats
	// SimTime is the simulated time in seconds.
	SimTime float64
}

// Option is a functional option for configuring the Core.
type Option func(*Core)

// WithLogger sets the logger shared by the scheduler and the memory.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Core) {
		c.logger = logger
	}
}

// WithHook attaches a hook to the scheduler.
func WithHook(hook sim.Hook) Option {
	return func(c *Core) {
		c.hooks = append(c.hooks, hook)
	}
}

// Core represents one accelerator running one program.
type Core struct {
	// Scheduler is the underlying scheduling engine.
	Scheduler *scheduler.Scheduler
	// Memory is the memory collaborator.
	Memory *memctrl.Controller

	engine sim.Engine
	config *Config
	logger *slog.Logger
	hooks  []sim.Hook
}

// NewCore creates a Core that runs prog over regs.
func NewCore(
	prog *insts.Program,
	regs *emu.RegFile,
	config *Config,
	opts ...Option,
) (*Core, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	c := &Core{
		engine: sim.NewSerialEngine(),
		config: config.Clone(),
		logger: slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(c)
	}

	mem, err := memctrl.NewBuilder().
		WithEngine(c.engine).
		WithFreq(c.config.Scheduler.Freq()).
		WithConfig(c.config.Memory).
		WithLogger(c.logger).
		Build("Accel.Mem")
	if err != nil {
		return nil, err
	}

	sched, err := scheduler.New("Accel.Scheduler", c.engine, prog, regs,
		c.config.Scheduler,
		scheduler.WithLogger(c.logger),
		scheduler.WithMemory(mem),
	)
	if err != nil {
		return nil, err
	}

	mem.SetReceiver(sched)
	for _, h := range c.hooks {
		sched.AcceptHook(h)
	}

	c.Scheduler = sched
	c.Memory = mem

	return c, nil
}

// LoadMemory places data in memory before the run.
func (c *Core) LoadMemory(addr uint64, data []byte) error {
	return c.Memory.Load(addr, data)
}

// DumpMemory reads n bytes of memory.
func (c *Core) DumpMemory(addr, n uint64) ([]byte, error) {
	return c.Memory.Dump(addr, n)
}

// Halted returns true once the program has returned or failed.
func (c *Core) Halted() bool {
	return !c.Scheduler.Running()
}

// ReturnValue returns the value of the final return, if it carried one.
func (c *Core) ReturnValue() (uint64, bool) {
	return c.Scheduler.ReturnValue()
}

// Stats returns performance statistics.
func (c *Core) Stats() Stats {
	return Stats{
		Scheduler: c.Scheduler.Stats(),
		Memory:    c.Memory.Stats(),
		SimTime:   float64(c.engine.CurrentTime()),
	}
}

// Run executes the program until it returns. The returned error is the
// runtime error that stopped the scheduler, if any.
func (c *Core) Run() error {
	c.Scheduler.PauseAt(0)
	if err := c.run(); err != nil {
		return err
	}

	if c.Scheduler.Running() {
		return scheduler.ErrNotTerminated
	}

	return nil
}

// RunCycles executes at most the given number of cycles.
// Returns true if still running. Memory completions due while the
// scheduler holds are still delivered.
func (c *Core) RunCycles(cycles uint64) (bool, error) {
	if cycles == 0 || c.Halted() {
		return !c.Halted(), c.Scheduler.Err()
	}

	c.Scheduler.PauseAt(c.Scheduler.Cycle() + cycles)
	err := c.run()

	return c.Scheduler.Running(), err
}

func (c *Core) run() error {
	c.Scheduler.TickLater()

	if err := c.engine.Run(); err != nil {
		return err
	}

	return c.Scheduler.Err()
}
