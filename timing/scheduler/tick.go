package scheduler

import (
	"fmt"

	"github.com/sarchlab/accsim/emu"
	"github.com/sarchlab/accsim/insts"
)

// Tick advances the engine by one clock period. It returns true while the
// program is still running, which keeps the component ticking through
// stalls. A paused scheduler does not advance.
func (s *Scheduler) Tick() bool {
	if !s.running || s.Paused() {
		return false
	}

	s.cycle++
	s.fu.Clear()
	s.fallthroughs = 0

	occupied := s.occupiedQueues()
	var activity Activity

	activity |= s.advanceCompute()

	if s.running && s.reservation.empty() {
		s.scheduleBlock(s.currBlock)
	}

	if s.running && !(s.config.Lockstep && !s.queuesEmpty()) {
		activity |= s.scan()
	}

	s.classify(activity, occupied)

	if s.running && s.config.MaxCycles > 0 && s.cycle >= s.config.MaxCycles {
		s.fail(fmt.Errorf("%w: %d", ErrCycleLimit, s.config.MaxCycles))
	}

	return s.running && !s.Paused()
}

// advanceCompute commits compute-queue entries whose latency has elapsed.
// Entries still in flight need a unit again this tick; without one they
// stall in place.
func (s *Scheduler) advanceCompute() Activity {
	var activity Activity

	for i := 0; i < len(s.computeQueue); {
		h := s.computeQueue[i]
		n := s.arena.get(h)

		if n.elapsed >= n.latency {
			s.computeQueue.removeAt(i)
			s.commit(h, n)
			activity |= ActivityCompute
			continue
		}

		if s.fu.TryAcquire(n.fu) {
			n.elapsed++
		}
		i++
	}

	return activity
}

// scan walks the reservation table once, left to right. Blocks scheduled
// by a terminator during the walk are appended and visited in the same
// walk.
func (s *Scheduler) scan() Activity {
	var activity Activity

	for i := 0; s.running && i < len(s.reservation); {
		h := s.reservation[i]
		n := s.arena.get(h)

		if n.activeParents > 0 {
			i++
			continue
		}

		if n.tmpl.IsTerminator() {
			if s.resolveTerminator(i, h, n) {
				activity |= ActivityCompute
				continue
			}
			i++
			continue
		}

		if !s.fu.TryAcquire(n.fu) {
			i++
			continue
		}

		s.reservation.removeAt(i)
		activity |= s.issue(h, n)
	}

	return activity
}

// issue dispatches a ready instruction that has its unit.
func (s *Scheduler) issue(h Handle, n *node) Activity {
	s.invokeIssueHook(n)

	switch {
	case n.isLoad():
		s.issueLoad(h, n)
		return ActivityLoad

	case n.isStore():
		s.issueStore(h, n)
		return ActivityStore
	}

	v, err := emu.Evaluate(n.tmpl, n.operands)
	if err != nil {
		s.fail(fmt.Errorf("%w: %v", insts.ErrMalformed, err))
		return 0
	}
	n.result = v

	s.logger.Debug("issue",
		"cycle", s.cycle, "seq", n.seq, "op", n.tmpl.Op.String(),
		"dest", n.tmpl.Dest, "latency", n.latency)

	if n.latency == 0 {
		s.commit(h, n)
		return ActivityCompute
	}

	n.elapsed = 1
	s.computeQueue.push(h)

	return ActivityCompute
}

// commit writes the destination register, wakes the children and frees the
// instruction record. The caller has already removed it from its queue.
func (s *Scheduler) commit(h Handle, n *node) {
	if n.tmpl.Dest != "" {
		s.regs.Ensure(n.tmpl.Dest).Write(n.result)
	}

	for _, l := range n.children {
		c := s.arena.get(l.child)
		if c == nil {
			continue
		}
		if l.slot != noSlot {
			c.operands[l.slot] = n.result
		}
		c.activeParents--
	}

	s.logger.Debug("commit",
		"cycle", s.cycle, "seq", n.seq, "op", n.tmpl.Op.String(),
		"dest", n.tmpl.Dest, "value", n.result)

	s.invokeCommitHook(n)
	s.retire(h, n)
}

// retire counts the instruction as executed and recycles its record.
func (s *Scheduler) retire(h Handle, n *node) {
	s.stats.ExecutedNodes++
	s.arena.release(h)
}

func (s *Scheduler) occupiedQueues() Activity {
	var a Activity
	if !s.readQueue.empty() {
		a |= ActivityLoad
	}
	if !s.writeQueue.empty() {
		a |= ActivityStore
	}
	if !s.computeQueue.empty() {
		a |= ActivityCompute
	}
	return a
}
