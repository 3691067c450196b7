package emu

import (
	"errors"
	"fmt"

	"github.com/sarchlab/akita/v4/mem/mem"

	"github.com/sarchlab/accsim/insts"
)

// Emulation errors.
var (
	ErrUndefinedRegister = errors.New("read of undefined register")
	ErrInstructionLimit  = errors.New("instruction limit reached")
)

// Memory is byte-addressed storage. *mem.Storage satisfies it.
type Memory interface {
	Read(addr, n uint64) ([]byte, error)
	Write(addr uint64, data []byte) error
}

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Exited is true if the program returned.
	Exited bool

	// Err is set if an error occurred during execution.
	Err error
}

// Emulator executes a program functionally, one template at a time in
// program order, with no notion of time. It produces the same register
// and memory state as a timed run and serves as its reference.
type Emulator struct {
	program *insts.Program
	regFile *RegFile
	memory  Memory

	curr *insts.BasicBlock
	prev *insts.BasicBlock
	pc   int

	exited   bool
	retValue uint64
	hasRet   bool

	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithMemory sets the memory loads and stores go to.
func WithMemory(m Memory) EmulatorOption {
	return func(e *Emulator) {
		e.memory = m
	}
}

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// NewEmulator creates an emulator for prog over regFile. Without a memory
// option it allocates a 16MB storage.
func NewEmulator(prog *insts.Program, regFile *RegFile, opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		program: prog,
		regFile: regFile,
		curr:    prog.Entry(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.memory == nil {
		e.memory = mem.NewStorage(16 * 1024 * 1024)
	}

	for _, name := range prog.Destinations() {
		regFile.Ensure(name)
	}

	return e
}

// RegFile returns the register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the memory.
func (e *Emulator) Memory() Memory {
	return e.memory
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// ReturnValue returns the value of the final ret, if it carried one.
func (e *Emulator) ReturnValue() (uint64, bool) {
	return e.retValue, e.hasRet
}

// Exited returns true once the program has returned.
func (e *Emulator) Exited() bool {
	return e.exited
}

// Step executes one instruction.
func (e *Emulator) Step() StepResult {
	if e.exited {
		return StepResult{Exited: true}
	}

	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{Err: fmt.Errorf("%w: %d", ErrInstructionLimit, e.maxInstructions)}
	}

	t := e.curr.Templates[e.pc]
	ops, err := e.operands(t)
	if err != nil {
		return StepResult{Err: err}
	}

	e.instructionCount++
	e.pc++

	if err := e.execute(t, ops); err != nil {
		return StepResult{Err: fmt.Errorf("block %q: %s: %w", e.curr.Label, t.Op, err)}
	}

	return StepResult{Exited: e.exited}
}

// Run executes until the program returns or fails.
func (e *Emulator) Run() error {
	for {
		r := e.Step()
		if r.Err != nil {
			return r.Err
		}
		if r.Exited {
			return nil
		}
	}
}

func (e *Emulator) operands(t *insts.Template) ([]uint64, error) {
	if t.Op == insts.OpPhi {
		label := ""
		if e.prev != nil {
			label = e.prev.Label
		}
		i, ok := t.IncomingFrom(label)
		if !ok {
			return nil, fmt.Errorf("%w: %q in block %q from %q",
				insts.ErrNoPhiMatch, t.Dest, e.curr.Label, label)
		}
		v, err := e.value(t.Incoming[i].Value)
		if err != nil {
			return nil, err
		}
		return []uint64{v}, nil
	}

	ops := make([]uint64, len(t.Operands))
	for i, o := range t.Operands {
		v, err := e.value(o)
		if err != nil {
			return nil, err
		}
		ops[i] = v
	}
	return ops, nil
}

func (e *Emulator) value(o insts.Operand) (uint64, error) {
	if !o.IsRegister() {
		return o.Value, nil
	}
	r, ok := e.regFile.Find(o.Reg)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUndefinedRegister, o)
	}
	return r.Read(), nil
}

func (e *Emulator) execute(t *insts.Template, ops []uint64) error {
	switch t.Op.Info().Kind {
	case insts.KindLoad:
		data, err := e.memory.Read(ops[0], t.Type.Size())
		if err != nil {
			return err
		}
		e.regFile.Ensure(t.Dest).Write(DecodeLoad(data, t.Type))

	case insts.KindStore:
		return e.memory.Write(ops[1], EncodeStore(ops[0], t.Type))

	case insts.KindTerminator:
		return e.transfer(t, ops)

	default:
		v, err := Evaluate(t, ops)
		if err != nil {
			return err
		}
		e.regFile.Ensure(t.Dest).Write(v)
	}

	return nil
}

func (e *Emulator) transfer(t *insts.Template, ops []uint64) error {
	if t.Op == insts.OpRet {
		e.exited = true
		if len(ops) == 1 {
			e.retValue, e.hasRet = ops[0], true
		}
		return nil
	}

	label := Destination(t, ops)
	next, ok := e.program.Block(label)
	if !ok {
		return fmt.Errorf("%w: %q", insts.ErrUnknownBlock, label)
	}

	e.prev, e.curr, e.pc = e.curr, next, 0
	return nil
}
