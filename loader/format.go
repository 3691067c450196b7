package loader

import (
	"fmt"

	"github.com/sarchlab/accsim/insts"
)

// file is the on-disk layout of a program.
type file struct {
	Name      string         `yaml:"name"`
	Globals   []globalSpec   `yaml:"globals"`
	Registers []registerSpec `yaml:"registers"`
	Memory    []memorySpec   `yaml:"memory"`
	Dumps     []dumpSpec     `yaml:"dump"`
	Blocks    []blockSpec    `yaml:"blocks"`
}

// globalSpec binds a pointer argument of the accelerated function to an
// address in external memory, optionally with initial array contents.
type globalSpec struct {
	Name string   `yaml:"name"`
	Addr uint64   `yaml:"addr"`
	Type string   `yaml:"type"`
	Init []string `yaml:"init"`
}

type registerSpec struct {
	Name  string `yaml:"name"`
	Type  string `yaml:"type"`
	Value string `yaml:"value"`
}

type memorySpec struct {
	Addr   uint64   `yaml:"addr"`
	Type   string   `yaml:"type"`
	Values []string `yaml:"values"`
}

type dumpSpec struct {
	Name   string `yaml:"name"`
	Global string `yaml:"global"`
	Addr   uint64 `yaml:"addr"`
	Type   string `yaml:"type"`
	Count  int    `yaml:"count"`
}

type blockSpec struct {
	Label string     `yaml:"label"`
	Insts []instSpec `yaml:"insts"`
}

type caseSpec struct {
	Value  string `yaml:"value"`
	Target string `yaml:"target"`
}

type incomingSpec struct {
	Value string `yaml:"value"`
	Block string `yaml:"block"`
}

// instSpec is one structured instruction.
type instSpec struct {
	Line     string         `yaml:"line"`
	Op       string         `yaml:"op"`
	Type     string         `yaml:"type"`
	SrcType  string         `yaml:"src_type"`
	Dest     string         `yaml:"dest"`
	Pred     string         `yaml:"pred"`
	Operands []string       `yaml:"operands"`
	Strides  []uint64       `yaml:"strides"`
	Targets  []string       `yaml:"targets"`
	Cases    []caseSpec     `yaml:"cases"`
	Incoming []incomingSpec `yaml:"incoming"`
	Latency  *uint64        `yaml:"latency"`
}

func (b blockSpec) build() (*insts.BasicBlock, error) {
	templates := make([]*insts.Template, 0, len(b.Insts))
	for i, in := range b.Insts {
		t, err := in.build()
		if err != nil {
			return nil, fmt.Errorf("block %q, instruction %d: %w", b.Label, i, err)
		}
		templates = append(templates, t)
	}
	return insts.NewBlock(b.Label, templates...), nil
}

func (in instSpec) build() (*insts.Template, error) {
	op, err := insts.ParseOp(in.Op)
	if err != nil {
		return nil, err
	}

	t := &insts.Template{
		Line:    in.Line,
		Op:      op,
		Dest:    in.Dest,
		Pred:    insts.Pred(in.Pred),
		Strides: in.Strides,
		Targets: in.Targets,
		Latency: in.Latency,
	}

	if t.Type, err = optionalType(in.Type); err != nil {
		return nil, err
	}
	if t.SrcType, err = optionalType(in.SrcType); err != nil {
		return nil, err
	}

	lt := literalType(t)
	for _, s := range in.Operands {
		o, err := parseOperand(s, lt)
		if err != nil {
			return nil, err
		}
		t.Operands = append(t.Operands, o)
	}

	for _, c := range in.Cases {
		v, err := parseLiteral(c.Value, t.Type)
		if err != nil {
			return nil, err
		}
		t.Cases = append(t.Cases, insts.Case{Value: v, Target: c.Target})
	}

	for _, inc := range in.Incoming {
		o, err := parseOperand(inc.Value, lt)
		if err != nil {
			return nil, err
		}
		t.Incoming = append(t.Incoming, insts.Incoming{Value: o, Block: inc.Block})
	}

	if t.Line == "" {
		t.Line = in.Op
		if t.Dest != "" {
			t.Line = "%" + t.Dest + " = " + in.Op
		}
	}

	return t, nil
}

func optionalType(s string) (insts.Type, error) {
	if s == "" {
		return insts.TypeVoid, nil
	}
	return insts.ParseType(s)
}

// literalType is the type immediates of t are encoded in. Comparisons and
// conversions read their operands in the source type.
func literalType(t *insts.Template) insts.Type {
	if t.SrcType == insts.TypeVoid {
		return t.Type
	}
	if t.Op == insts.OpICmp || t.Op == insts.OpFCmp ||
		(t.Op >= insts.OpTrunc && t.Op <= insts.OpBitCast) {
		return t.SrcType
	}
	return t.Type
}
