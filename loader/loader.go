// Package loader reads accelerator programs from YAML.
//
// A program file carries the already-resolved CDFG: basic blocks of
// structured instruction templates, the global pointers bound to the
// accelerator, and an optional initial memory image. The loader turns it
// into the objects the scheduler consumes.
package loader

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/accsim/emu"
	"github.com/sarchlab/accsim/insts"
)

// ErrBadOperand is returned for operands that are neither a register
// reference nor a literal.
var ErrBadOperand = errors.New("bad operand")

// Segment is a run of bytes placed in memory before the run.
type Segment struct {
	Addr uint64
	Data []byte
}

// Range is a typed region of memory to report after the run.
type Range struct {
	Name  string
	Addr  uint64
	Type  insts.Type
	Count int
}

// Program is a loaded program ready to run.
type Program struct {
	// Program is the validated CDFG.
	Program *insts.Program
	// Regs holds the reserved registers, the globals and the initial
	// register values.
	Regs *emu.RegFile
	// Image is the initial memory contents.
	Image []Segment
	// Dumps lists the memory regions to report after the run.
	Dumps []Range
}

// Load reads a program file.
func Load(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read program file: %w", err)
	}

	prog, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return prog, nil
}

// Parse builds a program from YAML text.
func Parse(data []byte) (*Program, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse program: %w", err)
	}

	if f.Name == "" {
		f.Name = "main"
	}

	out := &Program{Regs: emu.NewRegFileWithReserved()}

	if err := out.bindGlobals(f.Globals); err != nil {
		return nil, err
	}
	if err := out.bindRegisters(f.Registers); err != nil {
		return nil, err
	}
	if err := out.bindMemory(f.Memory); err != nil {
		return nil, err
	}
	if err := out.bindDumps(f.Dumps); err != nil {
		return nil, err
	}

	blocks := make([]*insts.BasicBlock, 0, len(f.Blocks))
	for _, b := range f.Blocks {
		block, err := b.build()
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}

	prog, err := insts.NewProgram(f.Name, blocks...)
	if err != nil {
		return nil, err
	}
	out.Program = prog

	return out, nil
}

func (p *Program) bindGlobals(globals []globalSpec) error {
	for _, g := range globals {
		r, err := p.Regs.AddRegister(g.Name, g.Addr)
		if err != nil {
			return fmt.Errorf("global %q: %w", g.Name, err)
		}
		r.SetGlobal()

		if len(g.Init) == 0 {
			continue
		}
		seg, err := encodeValues(g.Addr, g.Type, g.Init)
		if err != nil {
			return fmt.Errorf("global %q: %w", g.Name, err)
		}
		p.Image = append(p.Image, seg)
	}
	return nil
}

func (p *Program) bindRegisters(regs []registerSpec) error {
	for _, r := range regs {
		t := insts.TypeI64
		if r.Type != "" {
			var err error
			if t, err = insts.ParseType(r.Type); err != nil {
				return fmt.Errorf("register %q: %w", r.Name, err)
			}
		}

		v, err := parseLiteral(r.Value, t)
		if err != nil {
			return fmt.Errorf("register %q: %w", r.Name, err)
		}
		if _, err := p.Regs.AddRegister(r.Name, v); err != nil {
			return fmt.Errorf("register %q: %w", r.Name, err)
		}
	}
	return nil
}

func (p *Program) bindMemory(mem []memorySpec) error {
	for _, m := range mem {
		seg, err := encodeValues(m.Addr, m.Type, m.Values)
		if err != nil {
			return fmt.Errorf("memory at 0x%x: %w", m.Addr, err)
		}
		p.Image = append(p.Image, seg)
	}
	return nil
}

func (p *Program) bindDumps(dumps []dumpSpec) error {
	for _, d := range dumps {
		t, err := insts.ParseType(d.Type)
		if err != nil {
			return fmt.Errorf("dump %q: %w", d.Name, err)
		}
		if t == insts.TypeVoid || d.Count <= 0 {
			return fmt.Errorf("dump %q: needs a sized type and a positive count", d.Name)
		}

		addr := d.Addr
		if d.Global != "" {
			r, ok := p.Regs.Find(d.Global)
			if !ok || !r.Global() {
				return fmt.Errorf("dump %q: unknown global %q", d.Name, d.Global)
			}
			addr = r.Peek() + d.Addr
		}

		p.Dumps = append(p.Dumps, Range{Name: d.Name, Addr: addr, Type: t, Count: d.Count})
	}
	return nil
}

func encodeValues(addr uint64, typ string, values []string) (Segment, error) {
	t, err := insts.ParseType(typ)
	if err != nil {
		return Segment{}, err
	}
	if t == insts.TypeVoid {
		return Segment{}, fmt.Errorf("memory values need a sized type")
	}

	seg := Segment{Addr: addr, Data: make([]byte, 0, len(values)*int(t.Size()))}
	for _, s := range values {
		v, err := parseLiteral(s, t)
		if err != nil {
			return Segment{}, err
		}
		seg.Data = append(seg.Data, emu.EncodeStore(v, t)...)
	}

	return seg, nil
}
