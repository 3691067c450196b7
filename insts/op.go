package insts

import "fmt"

// Op represents an accelerator opcode.
type Op uint16

// Opcodes.
const (
	OpUnknown Op = iota

	// Integer arithmetic
	OpAdd
	OpSub
	OpMul
	OpUDiv
	OpSDiv
	OpURem
	OpSRem

	// Floating point arithmetic
	OpFAdd
	OpFSub
	OpFMul
	OpFDiv
	OpFRem

	// Shifts and bitwise logic
	OpShl
	OpLShr
	OpAShr
	OpAnd
	OpOr
	OpXor

	// Comparisons
	OpICmp
	OpFCmp

	// Conversions
	OpTrunc
	OpZExt
	OpSExt
	OpFPToUI
	OpFPToSI
	OpUIToFP
	OpSIToFP
	OpFPTrunc
	OpFPExt
	OpPtrToInt
	OpIntToPtr
	OpBitCast

	// Other value producers
	OpSelect
	OpGetElementPtr
	OpPhi

	// Memory
	OpLoad
	OpStore

	// Terminators
	OpBr
	OpSwitch
	OpRet

	numOps
)

// Kind groups opcodes by how the scheduler routes them.
type Kind uint8

// Opcode kinds.
const (
	KindCompute    Kind = iota // goes to immediate commit or the compute queue
	KindLoad                   // goes to the read queue
	KindStore                  // goes to the write queue
	KindTerminator             // resolves control flow in the reservation table
)

// Info holds the static properties of an opcode.
type Info struct {
	Name string
	Kind Kind
	// MinOperands and MaxOperands bound len(Template.Operands).
	// MaxOperands < 0 means unbounded.
	MinOperands int
	MaxOperands int
	// HasDest is true when the opcode writes a destination register.
	HasDest bool
}

var infoTable = [numOps]Info{
	OpUnknown: {Name: "unknown"},

	OpAdd:  binary("add"),
	OpSub:  binary("sub"),
	OpMul:  binary("mul"),
	OpUDiv: binary("udiv"),
	OpSDiv: binary("sdiv"),
	OpURem: binary("urem"),
	OpSRem: binary("srem"),

	OpFAdd: binary("fadd"),
	OpFSub: binary("fsub"),
	OpFMul: binary("fmul"),
	OpFDiv: binary("fdiv"),
	OpFRem: binary("frem"),

	OpShl:  binary("shl"),
	OpLShr: binary("lshr"),
	OpAShr: binary("ashr"),
	OpAnd:  binary("and"),
	OpOr:   binary("or"),
	OpXor:  binary("xor"),

	OpICmp: binary("icmp"),
	OpFCmp: binary("fcmp"),

	OpTrunc:    unary("trunc"),
	OpZExt:     unary("zext"),
	OpSExt:     unary("sext"),
	OpFPToUI:   unary("fptoui"),
	OpFPToSI:   unary("fptosi"),
	OpUIToFP:   unary("uitofp"),
	OpSIToFP:   unary("sitofp"),
	OpFPTrunc:  unary("fptrunc"),
	OpFPExt:    unary("fpext"),
	OpPtrToInt: unary("ptrtoint"),
	OpIntToPtr: unary("inttoptr"),
	OpBitCast:  unary("bitcast"),

	OpSelect:        {Name: "select", MinOperands: 3, MaxOperands: 3, HasDest: true},
	OpGetElementPtr: {Name: "getelementptr", MinOperands: 1, MaxOperands: -1, HasDest: true},
	OpPhi:           {Name: "phi", HasDest: true},

	OpLoad:  {Name: "load", Kind: KindLoad, MinOperands: 1, MaxOperands: 1, HasDest: true},
	OpStore: {Name: "store", Kind: KindStore, MinOperands: 2, MaxOperands: 2},

	OpBr:     {Name: "br", Kind: KindTerminator, MaxOperands: 1},
	OpSwitch: {Name: "switch", Kind: KindTerminator, MinOperands: 1, MaxOperands: 1},
	OpRet:    {Name: "ret", Kind: KindTerminator, MaxOperands: 1},
}

func binary(name string) Info {
	return Info{Name: name, MinOperands: 2, MaxOperands: 2, HasDest: true}
}

func unary(name string) Info {
	return Info{Name: name, MinOperands: 1, MaxOperands: 1, HasDest: true}
}

var opByName = func() map[string]Op {
	m := make(map[string]Op, numOps)
	for op := OpUnknown + 1; op < numOps; op++ {
		m[infoTable[op].Name] = op
	}
	return m
}()

// Info returns the static properties of the opcode.
func (o Op) Info() Info {
	if o >= numOps {
		return infoTable[OpUnknown]
	}
	return infoTable[o]
}

// String returns the IR mnemonic of the opcode.
func (o Op) String() string {
	return o.Info().Name
}

// IsTerminator returns true for br, switch and ret.
func (o Op) IsTerminator() bool {
	return o.Info().Kind == KindTerminator
}

// IsFloat returns true for opcodes that compute in floating point.
func (o Op) IsFloat() bool {
	switch o {
	case OpFAdd, OpFSub, OpFMul, OpFDiv, OpFRem, OpFCmp:
		return true
	default:
		return false
	}
}

// ParseOp returns the opcode with the given mnemonic.
func ParseOp(name string) (Op, error) {
	op, ok := opByName[name]
	if !ok {
		return OpUnknown, fmt.Errorf("unknown opcode %q", name)
	}
	return op, nil
}

// Ops returns all valid opcodes in declaration order.
func Ops() []Op {
	ops := make([]Op, 0, numOps-1)
	for op := OpUnknown + 1; op < numOps; op++ {
		ops = append(ops, op)
	}
	return ops
}
