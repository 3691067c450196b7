package scheduler

import (
	"strings"

	"github.com/sarchlab/accsim/emu"
	"github.com/sarchlab/accsim/insts"
)

// Activity is a set of operation classes. It classifies what a tick did,
// and for stall ticks which queues held work.
type Activity uint8

// Activity bits.
const (
	ActivityLoad Activity = 1 << iota
	ActivityStore
	ActivityCompute

	// NumActivity is the number of distinct activity sets.
	NumActivity = 8
)

// String names the set, for example "load+compute". The empty set is
// "stall".
func (a Activity) String() string {
	if a == 0 {
		return "stall"
	}

	var parts []string
	if a&ActivityLoad != 0 {
		parts = append(parts, "load")
	}
	if a&ActivityStore != 0 {
		parts = append(parts, "store")
	}
	if a&ActivityCompute != 0 {
		parts = append(parts, "compute")
	}
	return strings.Join(parts, "+")
}

// Stats holds run statistics for the external reporting collaborator.
type Stats struct {
	// Cycles is the number of ticks simulated.
	Cycles uint64
	// Stalls is the number of ticks in which nothing issued or committed.
	Stalls uint64
	// Activity counts ticks per activity set. Activity[0] equals Stalls.
	Activity [NumActivity]uint64
	// StallCauses counts stall ticks by the queues occupied at tick start.
	// StallCauses[0] counts stalls with every queue empty.
	StallCauses [NumActivity]uint64

	// ExecutedNodes is the number of dynamic instructions committed,
	// resolved terminators included.
	ExecutedNodes uint64
	// BlocksScheduled is the number of basic block instances cloned.
	BlocksScheduled uint64

	// PeakFU is the highest number of units of each category busy in one
	// tick.
	PeakFU [insts.NumFU]uint64
	// StaticFU is the number of static templates per category.
	StaticFU [insts.NumFU]uint64

	// Registers summarizes register file usage.
	Registers emu.RegStats

	// LocalReads and LocalWrites count scratchpad accesses. GlobalReads
	// and GlobalWrites count accesses through global pointers.
	LocalReads   uint64
	LocalWrites  uint64
	GlobalReads  uint64
	GlobalWrites uint64
}

// MemoryOps returns the total number of memory operations issued.
func (s Stats) MemoryOps() uint64 {
	return s.LocalReads + s.LocalWrites + s.GlobalReads + s.GlobalWrites
}

func (s *Scheduler) classify(activity, occupied Activity) {
	s.stats.Activity[activity]++
	if activity != 0 {
		return
	}

	s.stats.Stalls++
	s.stats.StallCauses[occupied]++

	s.logger.Debug("stall", "cycle", s.cycle, "cause", occupied.String())
}

// Stats returns a snapshot of the run statistics.
func (s *Scheduler) Stats() Stats {
	stats := s.stats
	stats.Cycles = s.cycle
	stats.PeakFU = s.fu.Peak()
	stats.Registers = s.regs.Stats()
	return stats
}
