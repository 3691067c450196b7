package scheduler

import (
	"github.com/sarchlab/accsim/insts"
)

// Handle refers to a dynamic instruction in the arena. A handle goes stale
// when its instruction commits and the record is reused.
type Handle struct {
	index int32
	gen   uint32
}

// noSlot marks an ordering-only edge that carries no operand value.
const noSlot = -1

// link is a parent to child edge. On the parent's commit, the child's
// operand slot receives the parent's result unless slot is noSlot.
type link struct {
	child Handle
	slot  int
}

// node is one dynamic instance of a static template.
type node struct {
	gen  uint32
	live bool

	seq   uint64
	tmpl  *insts.Template
	block *insts.BasicBlock
	fu    insts.FU

	latency uint64
	elapsed uint64

	// operands holds bound source values. For phi it holds the single
	// incoming value selected by the previous block.
	operands      []uint64
	activeParents int
	children      []link

	result uint64

	// Memory state. rawKey names the pointer operand for load/store
	// ordering checks.
	rawKey string
	global bool
	addr   uint64
	reqID  string
}

func (n *node) isLoad() bool {
	return n.tmpl.Op == insts.OpLoad
}

func (n *node) isStore() bool {
	return n.tmpl.Op == insts.OpStore
}

// arena stores dynamic instruction records and recycles them on commit.
// Records are allocated once and keep a stable address for their lifetime.
type arena struct {
	nodes []*node
	free  []int32
}

func (a *arena) alloc() (Handle, *node) {
	var idx int32
	if len(a.free) > 0 {
		idx = a.free[len(a.free)-1]
		a.free = a.free[:len(a.free)-1]
	} else {
		idx = int32(len(a.nodes))
		a.nodes = append(a.nodes, &node{})
	}

	n := a.nodes[idx]
	gen := n.gen + 1
	operands := n.operands[:0]
	children := n.children[:0]
	*n = node{gen: gen, live: true, operands: operands, children: children}

	return Handle{index: idx, gen: gen}, n
}

// get returns the record of a live handle, or nil for a stale one.
func (a *arena) get(h Handle) *node {
	if h.index < 0 || int(h.index) >= len(a.nodes) {
		return nil
	}
	n := a.nodes[h.index]
	if !n.live || n.gen != h.gen {
		return nil
	}
	return n
}

func (a *arena) release(h Handle) {
	n := a.get(h)
	if n == nil {
		return
	}
	n.live = false
	n.tmpl = nil
	n.block = nil
	a.free = append(a.free, h.index)
}

// live returns the number of records in use.
func (a *arena) live() int {
	return len(a.nodes) - len(a.free)
}

// queue is an ordered list of dynamic instructions.
type queue []Handle

func (q queue) empty() bool {
	return len(q) == 0
}

func (q *queue) push(h Handle) {
	*q = append(*q, h)
}

func (q *queue) removeAt(i int) Handle {
	h := (*q)[i]
	*q = append((*q)[:i], (*q)[i+1:]...)
	return h
}

// remove deletes h and reports whether it was present.
func (q *queue) remove(h Handle) bool {
	for i, e := range *q {
		if e == h {
			q.removeAt(i)
			return true
		}
	}
	return false
}
