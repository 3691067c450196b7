// Package emu provides the functional side of the accelerator model: the
// named register file and the per-opcode evaluators that compute results
// from bound operand values.
package emu

import (
	"errors"
	"fmt"
)

// Reserved register names bound by the front-end.
const (
	AlwaysTrue  = "alwaysTrue"
	AlwaysFalse = "alwaysFalse"
)

// ErrDuplicateRegister is returned when a register name is added twice.
var ErrDuplicateRegister = errors.New("register already exists")

// Register is a named storage cell. Its value is mutated only by the
// committing instruction that writes it.
type Register struct {
	name   string
	value  uint64
	global bool

	reads  uint64
	writes uint64
}

// Name returns the register name.
func (r *Register) Name() string {
	return r.name
}

// Read returns the current value and counts the access.
func (r *Register) Read() uint64 {
	r.reads++
	return r.value
}

// Peek returns the current value without counting an access.
func (r *Register) Peek() uint64 {
	return r.value
}

// Write stores a value and counts the access.
func (r *Register) Write(v uint64) {
	r.writes++
	r.value = v
}

// SetGlobal marks the register as backed by external memory. It is
// idempotent.
func (r *Register) SetGlobal() {
	r.global = true
}

// Global returns true if the register is backed by external memory.
func (r *Register) Global() bool {
	return r.global
}

// Reads returns the number of counted reads.
func (r *Register) Reads() uint64 {
	return r.reads
}

// Writes returns the number of counted writes.
func (r *Register) Writes() uint64 {
	return r.writes
}

// RegFile holds at most one register per name.
type RegFile struct {
	regs  map[string]*Register
	order []string
}

// NewRegFile creates an empty register file.
func NewRegFile() *RegFile {
	return &RegFile{regs: make(map[string]*Register)}
}

// NewRegFileWithReserved creates a register file holding the reserved
// alwaysTrue and alwaysFalse registers.
func NewRegFileWithReserved() *RegFile {
	rf := NewRegFile()
	_, _ = rf.AddRegister(AlwaysTrue, 1)
	_, _ = rf.AddRegister(AlwaysFalse, 0)
	return rf
}

// AddRegister creates a register. It fails if the name already exists.
func (rf *RegFile) AddRegister(name string, value uint64) (*Register, error) {
	if _, ok := rf.regs[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateRegister, name)
	}
	r := &Register{name: name, value: value}
	rf.regs[name] = r
	rf.order = append(rf.order, name)
	return r, nil
}

// Ensure returns the named register, creating it with value zero if it does
// not exist.
func (rf *RegFile) Ensure(name string) *Register {
	if r, ok := rf.regs[name]; ok {
		return r
	}
	r, _ := rf.AddRegister(name, 0)
	return r
}

// Find returns the named register.
func (rf *RegFile) Find(name string) (*Register, bool) {
	r, ok := rf.regs[name]
	return r, ok
}

// Len returns the number of registers.
func (rf *RegFile) Len() int {
	return len(rf.order)
}

// Names returns register names in creation order.
func (rf *RegFile) Names() []string {
	return append([]string(nil), rf.order...)
}

// Snapshot returns the current value of every register.
func (rf *RegFile) Snapshot() map[string]uint64 {
	values := make(map[string]uint64, len(rf.regs))
	for name, r := range rf.regs {
		values[name] = r.value
	}
	return values
}

// Clone returns a cold copy: same names, values and global flags, zeroed
// access counters.
func (rf *RegFile) Clone() *RegFile {
	c := NewRegFile()
	for _, name := range rf.order {
		src := rf.regs[name]
		r, _ := c.AddRegister(name, src.value)
		r.global = src.global
	}
	return c
}

// RegStats summarizes register usage.
type RegStats struct {
	// Count is the number of registers.
	Count int
	// Globals is the number of registers backed by external memory.
	Globals int
	// Reads and Writes are summed over all registers.
	Reads  uint64
	Writes uint64
}

// Stats returns register usage statistics.
func (rf *RegFile) Stats() RegStats {
	s := RegStats{Count: len(rf.order)}
	for _, r := range rf.regs {
		if r.global {
			s.Globals++
		}
		s.Reads += r.reads
		s.Writes += r.writes
	}
	return s
}
