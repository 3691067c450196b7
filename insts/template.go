package insts

import (
	"errors"
	"fmt"
	"math"
)

// ErrMalformed is returned for templates that cannot be bound.
var ErrMalformed = errors.New("malformed instruction")

// OperandKind tells how an operand's value is obtained.
type OperandKind uint8

// Operand kinds.
const (
	OperandConst  OperandKind = iota // immediate value
	OperandReg                       // named local register
	OperandGlobal                    // named register backed by external memory
)

// Operand is one static source operand.
type Operand struct {
	Kind OperandKind
	// Reg is the register name for OperandReg and OperandGlobal.
	Reg string
	// Value is the raw bits of an OperandConst.
	Value uint64
}

// Reg returns a register operand.
func Reg(name string) Operand {
	return Operand{Kind: OperandReg, Reg: name}
}

// Global returns a global reference operand.
func Global(name string) Operand {
	return Operand{Kind: OperandGlobal, Reg: name}
}

// Const returns an integer immediate operand.
func Const(v uint64) Operand {
	return Operand{Kind: OperandConst, Value: v}
}

// ConstFloat returns a floating point immediate encoded for type t.
func ConstFloat(f float64, t Type) Operand {
	if t == TypeFloat {
		return Const(uint64(math.Float32bits(float32(f))))
	}
	return Const(math.Float64bits(f))
}

// IsRegister returns true if the operand reads a register.
func (o Operand) IsRegister() bool {
	return o.Kind == OperandReg || o.Kind == OperandGlobal
}

func (o Operand) String() string {
	switch o.Kind {
	case OperandReg:
		return "%" + o.Reg
	case OperandGlobal:
		return "@" + o.Reg
	default:
		return fmt.Sprintf("%d", int64(o.Value))
	}
}

// Case is one arm of a switch.
type Case struct {
	Value  uint64
	Target string
}

// Incoming is one phi argument qualified by its predecessor block.
type Incoming struct {
	Value Operand
	Block string
}

// Template is a static instruction. The scheduler clones a template into a
// fresh dynamic instance every time its block is scheduled.
//
// Operand layout per opcode:
//   - binary ops: [lhs, rhs]
//   - icmp, fcmp: [lhs, rhs], SrcType gives the operand type (i64 if void)
//   - conversions: [src], SrcType gives the source type
//   - select: [cond, ifTrue, ifFalse]
//   - getelementptr: [base, idx...], Strides[i] is the byte stride of idx i
//   - load: [ptr], Type is the loaded type
//   - store: [value, ptr], Type is the stored type
//   - br: [] with Targets [dest], or [cond] with Targets [ifTrue, ifFalse]
//   - switch: [cond], Targets [default], Cases
//   - ret: [] or [value]
//   - phi: no Operands, Incoming instead
type Template struct {
	// ID identifies the static line. Dynamic instances of the same
	// template share it. Assigned by NewProgram.
	ID int
	// Line is the source text, kept for traces.
	Line string

	Op       Op
	Type     Type
	SrcType  Type
	Dest     string
	Operands []Operand
	Pred     Pred
	Strides  []uint64
	Targets  []string
	Cases    []Case
	Incoming []Incoming

	// Latency overrides the latency table when non-nil.
	Latency *uint64
}

// Cycles returns a latency override value.
func Cycles(n uint64) *uint64 {
	return &n
}

// IsTerminator returns true if the template ends its block.
func (t *Template) IsTerminator() bool {
	return t.Op.IsTerminator()
}

// FU returns the functional-unit category the template occupies.
// Integer add/sub by the constant 1 runs on a counter.
func (t *Template) FU() FU {
	switch t.Op {
	case OpAdd, OpSub:
		if t.isIncrement() {
			return FUCounter
		}
		return FUIntAdder
	case OpMul, OpUDiv, OpSDiv, OpURem, OpSRem:
		return FUIntMultiplier
	case OpShl, OpLShr, OpAShr:
		return FUIntShifter
	case OpAnd, OpOr, OpXor:
		return FUIntBitwise
	case OpFAdd, OpFSub:
		if t.Type == TypeFloat {
			return FUFPSPAdder
		}
		return FUFPDPAdder
	case OpFMul, OpFDiv, OpFRem:
		if t.Type == TypeFloat {
			return FUFPSPMultiplier
		}
		return FUFPDPMultiplier
	case OpICmp, OpFCmp:
		return FUCompare
	case OpGetElementPtr:
		return FUGEP
	case OpTrunc, OpZExt, OpSExt, OpFPToUI, OpFPToSI, OpUIToFP, OpSIToFP,
		OpFPTrunc, OpFPExt, OpPtrToInt, OpIntToPtr, OpBitCast:
		return FUConversion
	default:
		return FUNone
	}
}

func (t *Template) isIncrement() bool {
	if len(t.Operands) != 2 {
		return false
	}
	c := t.Operands[1]
	return c.Kind == OperandConst && c.Value == 1
}

// Destinations returns the labels the terminator may transfer control to.
func (t *Template) Destinations() []string {
	switch t.Op {
	case OpBr:
		return t.Targets
	case OpSwitch:
		dests := append([]string(nil), t.Targets...)
		for _, c := range t.Cases {
			dests = append(dests, c.Target)
		}
		return dests
	default:
		return nil
	}
}

// Validate checks that the template is well formed for its opcode.
func (t *Template) Validate() error {
	info := t.Op.Info()
	if t.Op == OpUnknown || t.Op >= numOps {
		return fmt.Errorf("%w: unknown opcode in %q", ErrMalformed, t.Line)
	}

	n := len(t.Operands)
	if n < info.MinOperands || (info.MaxOperands >= 0 && n > info.MaxOperands) {
		return fmt.Errorf("%w: %s takes %d..%d operands, got %d",
			ErrMalformed, t.Op, info.MinOperands, info.MaxOperands, n)
	}

	if info.HasDest && t.Dest == "" {
		return fmt.Errorf("%w: %s needs a destination register", ErrMalformed, t.Op)
	}
	if !info.HasDest && t.Dest != "" {
		return fmt.Errorf("%w: %s cannot write %q", ErrMalformed, t.Op, t.Dest)
	}

	for _, o := range t.Operands {
		if o.IsRegister() && o.Reg == "" {
			return fmt.Errorf("%w: %s has an unnamed register operand", ErrMalformed, t.Op)
		}
	}

	switch t.Op {
	case OpICmp, OpFCmp:
		if !t.Pred.ValidFor(t.Op) {
			return fmt.Errorf("%w: bad predicate %q for %s", ErrMalformed, t.Pred, t.Op)
		}
	case OpGetElementPtr:
		if len(t.Strides) != n-1 {
			return fmt.Errorf("%w: getelementptr with %d indices needs %d strides, got %d",
				ErrMalformed, n-1, n-1, len(t.Strides))
		}
	case OpLoad, OpStore:
		if t.Type.Size() == 0 {
			return fmt.Errorf("%w: %s of type %s", ErrMalformed, t.Op, t.Type)
		}
	case OpPhi:
		if len(t.Incoming) == 0 {
			return fmt.Errorf("%w: phi without incoming values", ErrMalformed)
		}
	case OpBr:
		want := 1
		if n == 1 {
			want = 2
		}
		if len(t.Targets) != want {
			return fmt.Errorf("%w: br with %d operands needs %d targets, got %d",
				ErrMalformed, n, want, len(t.Targets))
		}
	case OpSwitch:
		if len(t.Targets) != 1 {
			return fmt.Errorf("%w: switch needs exactly one default target", ErrMalformed)
		}
	}

	if info.HasDest && t.Type == TypeVoid {
		return fmt.Errorf("%w: %s needs a result type", ErrMalformed, t.Op)
	}

	return nil
}
