package scheduler

import (
	"fmt"

	"github.com/sarchlab/accsim/insts"
)

// scheduleBlock clones every template of b into the reservation table and
// wires each clone to its producers.
func (s *Scheduler) scheduleBlock(b *insts.BasicBlock) {
	s.stats.BlocksScheduled++
	s.logger.Debug("schedule block",
		"cycle", s.cycle, "block", b.Label, "prev", labelOf(s.prevBlock))
	s.invokeBlockHook(b)

	for _, t := range b.Templates {
		h, n := s.arena.alloc()
		s.nextSeq++
		n.seq = s.nextSeq
		n.tmpl = t
		n.block = b
		n.fu = t.FU()
		n.latency = s.latency.GetLatency(t)

		if err := s.resolve(h, n); err != nil {
			s.arena.release(h)
			s.fail(err)
			return
		}

		s.reservation.push(h)
	}
}

// resolve binds the operands of a fresh instruction and links it to the
// in-flight instructions it depends on. The instruction is not yet in the
// reservation table, so searches never find it.
func (s *Scheduler) resolve(h Handle, n *node) error {
	t := n.tmpl

	srcs, err := s.bindSources(n)
	if err != nil {
		return err
	}

	if t.Dest != "" {
		if p, ok := s.findSameTemplate(t); ok {
			s.link(p, h, n, noSlot)
		}
	}

	if n.isLoad() || n.isStore() {
		n.rawKey = memoryPointer(t).String()
		n.global = s.isGlobalPointer(memoryPointer(t))
	}

	if n.isLoad() {
		if p, ok := s.findStore(n.rawKey); ok {
			s.link(p, h, n, noSlot)
		}
	}

	first := 0
	if t.Op == insts.OpGetElementPtr {
		s.resolveBase(h, n, srcs[0])
		first = 1
	}

	for slot := first; slot < len(srcs); slot++ {
		s.resolveOperand(h, n, slot, srcs[slot])
	}

	return nil
}

// bindSources returns the operands the instruction reads, one per slot,
// and sizes the operand storage.
func (s *Scheduler) bindSources(n *node) ([]insts.Operand, error) {
	t := n.tmpl
	srcs := t.Operands

	if t.Op == insts.OpPhi {
		prev := labelOf(s.prevBlock)
		idx, ok := t.IncomingFrom(prev)
		if !ok {
			return nil, fmt.Errorf("%w: %%%s in block %q from %q",
				insts.ErrNoPhiMatch, t.Dest, n.block.Label, prev)
		}
		srcs = []insts.Operand{t.Incoming[idx].Value}
	}

	if cap(n.operands) >= len(srcs) {
		n.operands = n.operands[:len(srcs)]
		clear(n.operands)
	} else {
		n.operands = make([]uint64, len(srcs))
	}

	return srcs, nil
}

// resolveBase handles the getelementptr base pointer. A producer still in
// the window feeds the base through a link. Otherwise the base is seeded
// from the register's current value, which anchors address chains.
func (s *Scheduler) resolveBase(h Handle, n *node, base insts.Operand) {
	if !base.IsRegister() {
		n.operands[0] = base.Value
		return
	}

	if p, ok := s.findProducer(base.Reg); ok {
		s.link(p, h, n, 0)
		return
	}

	n.operands[0] = s.fetch(base.Reg)
}

// resolveOperand links slot to the latest producer of its register, or
// fetches the register now when no producer is in flight.
func (s *Scheduler) resolveOperand(h Handle, n *node, slot int, o insts.Operand) {
	if !o.IsRegister() {
		n.operands[slot] = o.Value
		return
	}

	if p, ok := s.findProducer(o.Reg); ok {
		s.link(p, h, n, slot)
		return
	}

	n.operands[slot] = s.fetch(o.Reg)
}

func (s *Scheduler) fetch(name string) uint64 {
	r, ok := s.regs.Find(name)
	if !ok {
		return 0
	}
	return r.Read()
}

func (s *Scheduler) link(parent Handle, child Handle, n *node, slot int) {
	p := s.arena.get(parent)
	p.children = append(p.children, link{child: child, slot: slot})
	n.activeParents++
}

// findProducer returns the most recent uncommitted writer of reg. The
// reservation table is searched first, then the compute queue, then the
// read queue, each newest first.
func (s *Scheduler) findProducer(reg string) (Handle, bool) {
	return s.search(func(n *node) bool {
		return n.tmpl.Dest == reg
	}, s.reservation, s.computeQueue, s.readQueue)
}

// findSameTemplate returns the most recent uncommitted instance of t.
func (s *Scheduler) findSameTemplate(t *insts.Template) (Handle, bool) {
	return s.search(func(n *node) bool {
		return n.tmpl == t
	}, s.reservation, s.computeQueue, s.readQueue)
}

// findStore returns the most recent uncommitted store through the same
// pointer operand.
func (s *Scheduler) findStore(key string) (Handle, bool) {
	return s.search(func(n *node) bool {
		return n.isStore() && n.rawKey == key
	}, s.reservation, s.writeQueue)
}

func (s *Scheduler) search(match func(*node) bool, queues ...queue) (Handle, bool) {
	for _, q := range queues {
		for i := len(q) - 1; i >= 0; i-- {
			if n := s.arena.get(q[i]); n != nil && match(n) {
				return q[i], true
			}
		}
	}
	return Handle{}, false
}

// memoryPointer returns the address operand of a load or store.
func memoryPointer(t *insts.Template) insts.Operand {
	if t.Op == insts.OpStore {
		return t.Operands[1]
	}
	return t.Operands[0]
}

func (s *Scheduler) isGlobalPointer(o insts.Operand) bool {
	if o.Kind == insts.OperandGlobal {
		return true
	}
	return o.IsRegister() && s.globals[o.Reg]
}

func labelOf(b *insts.BasicBlock) string {
	if b == nil {
		return ""
	}
	return b.Label
}
