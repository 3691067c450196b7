package scheduler

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/accsim/insts"
)

// Hook positions.
var (
	// HookPosBlock marks a basic block being scheduled. Item is a
	// BlockEvent.
	HookPosBlock = &sim.HookPos{Name: "Block"}
	// HookPosIssue marks an instruction leaving the reservation table.
	// Item is an InstEvent.
	HookPosIssue = &sim.HookPos{Name: "Issue"}
	// HookPosCommit marks an instruction committing. Item is an InstEvent.
	HookPosCommit = &sim.HookPos{Name: "Commit"}
)

// BlockEvent describes a scheduled block.
type BlockEvent struct {
	Cycle uint64
	Block string
	Prev  string
}

// InstEvent describes one dynamic instruction.
type InstEvent struct {
	Cycle    uint64
	Seq      uint64
	Block    string
	Template *insts.Template
	Result   uint64
}

func (s *Scheduler) invokeBlockHook(b *insts.BasicBlock) {
	if s.NumHooks() == 0 {
		return
	}
	s.InvokeHook(sim.HookCtx{
		Domain: s,
		Pos:    HookPosBlock,
		Item:   BlockEvent{Cycle: s.cycle, Block: b.Label, Prev: labelOf(s.prevBlock)},
	})
}

func (s *Scheduler) invokeIssueHook(n *node) {
	s.invokeInstHook(HookPosIssue, n)
}

func (s *Scheduler) invokeCommitHook(n *node) {
	s.invokeInstHook(HookPosCommit, n)
}

func (s *Scheduler) invokeInstHook(pos *sim.HookPos, n *node) {
	if s.NumHooks() == 0 {
		return
	}
	s.InvokeHook(sim.HookCtx{
		Domain: s,
		Pos:    pos,
		Item: InstEvent{
			Cycle:    s.cycle,
			Seq:      n.seq,
			Block:    n.block.Label,
			Template: n.tmpl,
			Result:   n.result,
		},
	})
}
