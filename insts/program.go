package insts

import (
	"errors"
	"fmt"
)

// Construction errors.
var (
	ErrUnknownBlock   = errors.New("unknown basic block")
	ErrDuplicateBlock = errors.New("duplicate basic block")
	ErrNoPhiMatch     = errors.New("phi has no incoming value for predecessor")
	ErrNoTerminator   = errors.New("basic block does not end in a terminator")
)

// BasicBlock is a single-entry region of the CDFG. It is immutable once
// added to a Program.
type BasicBlock struct {
	Label string
	// Seq is the position of the block in program order.
	Seq       int
	Templates []*Template
}

// NewBlock creates a basic block.
func NewBlock(label string, templates ...*Template) *BasicBlock {
	return &BasicBlock{Label: label, Templates: templates}
}

// Terminator returns the last template of the block.
func (b *BasicBlock) Terminator() *Template {
	if len(b.Templates) == 0 {
		return nil
	}
	return b.Templates[len(b.Templates)-1]
}

// Program is the CDFG handed to the scheduler. The first block is the
// entry block.
type Program struct {
	Name   string
	Blocks []*BasicBlock

	index map[string]*BasicBlock
	preds map[string][]string
}

// NewProgram assembles blocks into a program, numbers blocks and templates,
// and validates the graph.
func NewProgram(name string, blocks ...*BasicBlock) (*Program, error) {
	p := &Program{
		Name:   name,
		Blocks: blocks,
		index:  make(map[string]*BasicBlock, len(blocks)),
		preds:  make(map[string][]string, len(blocks)),
	}

	id := 1
	for seq, b := range blocks {
		if _, dup := p.index[b.Label]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateBlock, b.Label)
		}
		b.Seq = seq
		p.index[b.Label] = b
		for _, t := range b.Templates {
			t.ID = id
			id++
		}
	}

	if err := p.validate(); err != nil {
		return nil, err
	}

	return p, nil
}

// Entry returns the entry block.
func (p *Program) Entry() *BasicBlock {
	if len(p.Blocks) == 0 {
		return nil
	}
	return p.Blocks[0]
}

// Block finds a block by label.
func (p *Program) Block(label string) (*BasicBlock, bool) {
	b, ok := p.index[label]
	return b, ok
}

// Predecessors returns the labels of blocks whose terminators may branch to
// label, in program order.
func (p *Program) Predecessors(label string) []string {
	return p.preds[label]
}

// Templates returns the number of static templates in the program.
func (p *Program) Templates() int {
	n := 0
	for _, b := range p.Blocks {
		n += len(b.Templates)
	}
	return n
}

// StaticFU counts statically parsed templates per functional-unit
// category. Index FUNone holds every template without a category.
func (p *Program) StaticFU() [NumFU]uint64 {
	var counts [NumFU]uint64
	for _, b := range p.Blocks {
		for _, t := range b.Templates {
			counts[t.FU()]++
		}
	}
	return counts
}

// Destinations returns every register name written by the program, in
// program order, without duplicates.
func (p *Program) Destinations() []string {
	seen := make(map[string]bool)
	var regs []string
	for _, b := range p.Blocks {
		for _, t := range b.Templates {
			if t.Dest != "" && !seen[t.Dest] {
				seen[t.Dest] = true
				regs = append(regs, t.Dest)
			}
		}
	}
	return regs
}

// DerivedGlobals returns the registers that hold pointers derived from a
// global register through getelementptr or pointer casts. isGlobal reports
// the global status of registers known before the analysis.
func (p *Program) DerivedGlobals(isGlobal func(name string) bool) []string {
	derived := make(map[string]bool)
	global := func(o Operand) bool {
		if !o.IsRegister() {
			return false
		}
		return o.Kind == OperandGlobal || derived[o.Reg] || isGlobal(o.Reg)
	}

	var order []string
	for changed := true; changed; {
		changed = false
		for _, b := range p.Blocks {
			for _, t := range b.Templates {
				switch t.Op {
				case OpGetElementPtr, OpBitCast, OpIntToPtr, OpPtrToInt:
				default:
					continue
				}
				if derived[t.Dest] || isGlobal(t.Dest) || !global(t.Operands[0]) {
					continue
				}
				derived[t.Dest] = true
				order = append(order, t.Dest)
				changed = true
			}
		}
	}

	return order
}

func (p *Program) validate() error {
	if len(p.Blocks) == 0 {
		return fmt.Errorf("%w: program %q has no blocks", ErrUnknownBlock, p.Name)
	}

	for _, b := range p.Blocks {
		term := b.Terminator()
		if term == nil || !term.IsTerminator() {
			return fmt.Errorf("%w: %q", ErrNoTerminator, b.Label)
		}

		for i, t := range b.Templates {
			if err := t.Validate(); err != nil {
				return fmt.Errorf("block %q: %w", b.Label, err)
			}
			if t.IsTerminator() && i != len(b.Templates)-1 {
				return fmt.Errorf("%w: block %q has %s before its end",
					ErrMalformed, b.Label, t.Op)
			}
		}

		for _, dest := range term.Destinations() {
			if _, ok := p.index[dest]; !ok {
				return fmt.Errorf("%w: %q referenced from %q", ErrUnknownBlock, dest, b.Label)
			}
			if !contains(p.preds[dest], b.Label) {
				p.preds[dest] = append(p.preds[dest], b.Label)
			}
		}
	}

	for _, b := range p.Blocks {
		for _, t := range b.Templates {
			if t.Op != OpPhi {
				continue
			}
			for _, in := range t.Incoming {
				if _, ok := p.index[in.Block]; !ok {
					return fmt.Errorf("%w: phi %q names %q", ErrUnknownBlock, t.Dest, in.Block)
				}
			}
			for _, pred := range p.preds[b.Label] {
				if _, ok := t.IncomingFrom(pred); !ok {
					return fmt.Errorf("%w: %q in block %q from %q",
						ErrNoPhiMatch, t.Dest, b.Label, pred)
				}
			}
		}
	}

	return nil
}

// IncomingFrom returns the phi argument for the given predecessor block.
func (t *Template) IncomingFrom(block string) (int, bool) {
	for i, in := range t.Incoming {
		if in.Block == block {
			return i, true
		}
	}
	return -1, false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
