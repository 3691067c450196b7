// Package scheduler provides the cycle-accurate CDFG scheduling engine.
//
// Every time a basic block is scheduled, its static templates are cloned
// into dynamic instructions. Each instruction is wired to its producers and
// placed in the reservation table. Each tick the scheduler commits
// finished work from the compute queue, then scans the reservation table
// once and issues every instruction whose producers have all committed.
// Functional-unit budgets gate the issue. Issued loads and stores wait in
// the read and write queues until the memory collaborator reports
// completion. Terminators select the next block, which may be scheduled in
// the same tick.
//
// The scheduler runs as an akita ticking component and is the only
// mutator of the register file, the queues and the unit counters.
package scheduler

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/accsim/emu"
	"github.com/sarchlab/accsim/insts"
	"github.com/sarchlab/accsim/timing/fu"
	"github.com/sarchlab/accsim/timing/latency"
)

// Runtime errors. They stop the run and are reported by Err.
var (
	ErrNoMemory      = errors.New("program accesses memory but no memory is attached")
	ErrUndefined     = errors.New("register is read but never defined")
	ErrUnknownReq    = errors.New("completion for unknown request")
	ErrCycleLimit    = errors.New("cycle limit reached")
	ErrNotTerminated = errors.New("run ended without a return")
)

// Option is a functional option for configuring the Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger used for scheduling traces.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithMemory attaches the memory collaborator.
func WithMemory(m Memory) Option {
	return func(s *Scheduler) {
		s.memory = m
	}
}

// WithLatencyTable replaces the latency table built from the config.
func WithLatencyTable(table *latency.Table) Option {
	return func(s *Scheduler) {
		s.latency = table
	}
}

// Scheduler owns the reservation table, the in-flight queues and the
// functional-unit arbiter of one accelerator.
type Scheduler struct {
	*sim.TickingComponent

	config  *Config
	program *insts.Program
	regs    *emu.RegFile
	latency *latency.Table
	fu      *fu.Arbiter
	memory  Memory
	logger  *slog.Logger

	arena        arena
	reservation  queue
	readQueue    queue
	writeQueue   queue
	computeQueue queue
	pending      map[string]Handle

	globals map[string]bool

	currBlock *insts.BasicBlock
	prevBlock *insts.BasicBlock

	cycle   uint64
	pauseAt uint64
	// fallthroughs counts blocks scheduled by resolved terminators in the
	// current tick. It is bounded by the number of blocks in the program.
	fallthroughs int
	nextSeq uint64
	running bool
	err     error

	retValue uint64
	hasRet   bool

	stats Stats
}

// New creates a scheduler for prog over regs. The program is checked
// against the configuration before anything runs: every register read must
// be defined, every used unit category must have a non-zero budget, and a
// program that touches memory needs a memory collaborator.
func New(
	name string,
	engine sim.Engine,
	prog *insts.Program,
	regs *emu.RegFile,
	config *Config,
	opts ...Option,
) (*Scheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scheduler config: %w", err)
	}

	s := &Scheduler{
		config:  config,
		program: prog,
		regs:    regs,
		latency: latency.NewTableWithConfig(config.Latency),
		fu:      fu.NewArbiter(config.FU),
		logger:  slog.New(slog.DiscardHandler),
		pending: make(map[string]Handle),
		globals: make(map[string]bool),
		running: true,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.TickingComponent = sim.NewTickingComponent(name, engine, config.Freq(), s)

	static := prog.StaticFU()
	if err := config.FU.Validate(static); err != nil {
		return nil, err
	}

	if err := s.bindRegisters(); err != nil {
		return nil, err
	}

	s.currBlock = prog.Entry()
	s.stats.StaticFU = static

	s.logger.Info("scheduler created",
		"name", name,
		"program", prog.Name,
		"blocks", len(prog.Blocks),
		"templates", prog.Templates(),
		"pipelined", config.Pipelined,
		"lockstep", config.Lockstep,
		"threshold", config.SchedulingThreshold)

	return s, nil
}

// bindRegisters creates destination registers, checks that every register
// read is defined, and propagates the global flag to derived pointers.
func (s *Scheduler) bindRegisters() error {
	for _, name := range s.program.Destinations() {
		s.regs.Ensure(name)
	}

	usesMemory := false
	for _, b := range s.program.Blocks {
		for _, t := range b.Templates {
			kind := t.Op.Info().Kind
			if kind == insts.KindLoad || kind == insts.KindStore {
				usesMemory = true
			}
			for _, o := range sources(t) {
				if !o.IsRegister() {
					continue
				}
				r, ok := s.regs.Find(o.Reg)
				if !ok {
					return fmt.Errorf("%w: %s in block %q",
						ErrUndefined, o, b.Label)
				}
				if o.Kind == insts.OperandGlobal {
					r.SetGlobal()
				}
			}
		}
	}

	if usesMemory && s.memory == nil {
		return ErrNoMemory
	}

	isGlobal := func(name string) bool {
		r, ok := s.regs.Find(name)
		return ok && r.Global()
	}
	for _, name := range s.program.DerivedGlobals(isGlobal) {
		s.regs.Ensure(name).SetGlobal()
	}
	for _, name := range s.regs.Names() {
		if isGlobal(name) {
			s.globals[name] = true
		}
	}

	return nil
}

// sources returns every operand a template may read, phi incoming values
// included.
func sources(t *insts.Template) []insts.Operand {
	if t.Op != insts.OpPhi {
		return t.Operands
	}
	ops := make([]insts.Operand, 0, len(t.Incoming))
	for _, in := range t.Incoming {
		ops = append(ops, in.Value)
	}
	return ops
}

// Running returns true until the program returns or a runtime error stops
// the run.
func (s *Scheduler) Running() bool {
	return s.running
}

// Err returns the runtime error that stopped the run, if any.
func (s *Scheduler) Err() error {
	return s.err
}

// PauseAt makes the scheduler stop ticking once cycle reaches the given
// value. The run is not failed; TickLater resumes it. Zero clears the
// pause point.
func (s *Scheduler) PauseAt(cycle uint64) {
	s.pauseAt = cycle
}

// Paused returns true if the scheduler is holding at its pause point.
func (s *Scheduler) Paused() bool {
	return s.pauseAt > 0 && s.cycle >= s.pauseAt
}

// Cycle returns the number of ticks simulated so far.
func (s *Scheduler) Cycle() uint64 {
	return s.cycle
}

// ReturnValue returns the value of the return instruction that ended the
// run. The second result is false if the run has not returned or the
// return carried no value.
func (s *Scheduler) ReturnValue() (uint64, bool) {
	return s.retValue, s.hasRet
}

// RegFile returns the register file the scheduler mutates.
func (s *Scheduler) RegFile() *emu.RegFile {
	return s.regs
}

// Config returns the scheduler configuration.
func (s *Scheduler) Config() *Config {
	return s.config
}

// CurrentBlock returns the block the next scheduling step will clone.
func (s *Scheduler) CurrentBlock() *insts.BasicBlock {
	return s.currBlock
}

// PreviousBlock returns the block that transferred control to the current
// block, or nil while the entry block is current.
func (s *Scheduler) PreviousBlock() *insts.BasicBlock {
	return s.prevBlock
}

// QueueLens returns the sizes of the reservation table and the read, write
// and compute queues.
func (s *Scheduler) QueueLens() (reservation, read, write, compute int) {
	return len(s.reservation), len(s.readQueue), len(s.writeQueue), len(s.computeQueue)
}

// InFlight returns the number of live dynamic instructions.
func (s *Scheduler) InFlight() int {
	return s.arena.live()
}

func (s *Scheduler) fail(err error) {
	if s.err == nil {
		s.err = err
		s.logger.Error("run aborted", "cycle", s.cycle, "error", err)
	}
	s.running = false
}

func (s *Scheduler) queuesEmpty() bool {
	return s.readQueue.empty() && s.writeQueue.empty() && s.computeQueue.empty()
}
