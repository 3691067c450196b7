package scheduler

import (
	"fmt"

	"github.com/sarchlab/accsim/emu"
	"github.com/sarchlab/accsim/insts"
)

// resolveTerminator acts on a ready terminator at reservation index i. It
// returns true if the terminator left the table.
func (s *Scheduler) resolveTerminator(i int, h Handle, n *node) bool {
	if n.tmpl.Op == insts.OpRet {
		return s.tryReturn(i, h, n)
	}

	label := s.destination(n)
	next, ok := s.program.Block(label)
	if !ok {
		s.fail(fmt.Errorf("%w: %q from %q", insts.ErrUnknownBlock, label, n.block.Label))
		return false
	}

	windowBefore := len(s.reservation)

	s.prevBlock = s.currBlock
	s.currBlock = next
	s.reservation.removeAt(i)

	s.logger.Debug("branch",
		"cycle", s.cycle, "from", s.prevBlock.Label, "to", next.Label,
		"window", windowBefore)

	s.retire(h, n)

	if windowBefore < s.config.SchedulingThreshold && s.fallthroughs < len(s.program.Blocks) {
		s.fallthroughs++
		s.scheduleBlock(next)
	}

	return true
}

// destination selects the next block label of a br or switch. A switch
// with no matching case takes its default target.
func (s *Scheduler) destination(n *node) string {
	return emu.Destination(n.tmpl, n.operands)
}

// tryReturn ends the run if the return is the only entry left and nothing
// is in flight. Otherwise the return keeps waiting.
func (s *Scheduler) tryReturn(i int, h Handle, n *node) bool {
	if len(s.reservation) != 1 || !s.queuesEmpty() {
		return false
	}

	if len(n.tmpl.Operands) > 0 {
		s.retValue = n.operands[0]
		s.hasRet = true
	}

	block := n.block.Label

	s.reservation.removeAt(i)
	s.retire(h, n)
	s.running = false

	s.logger.Info("program returned",
		"cycle", s.cycle, "block", block, "executed", s.stats.ExecutedNodes)

	return true
}
