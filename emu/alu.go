package emu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/sarchlab/accsim/insts"
)

// behavior computes the raw result bits of a template from its bound
// operand values. It must be a pure function of its inputs.
type behavior func(t *insts.Template, ops []uint64) uint64

var behaviors = map[insts.Op]behavior{
	insts.OpAdd:  intBinary(func(a, b uint64) uint64 { return a + b }),
	insts.OpSub:  intBinary(func(a, b uint64) uint64 { return a - b }),
	insts.OpMul:  intBinary(func(a, b uint64) uint64 { return a * b }),
	insts.OpUDiv: udiv,
	insts.OpSDiv: sdiv,
	insts.OpURem: urem,
	insts.OpSRem: srem,

	insts.OpFAdd: floatBinary(func(a, b float64) float64 { return a + b }),
	insts.OpFSub: floatBinary(func(a, b float64) float64 { return a - b }),
	insts.OpFMul: floatBinary(func(a, b float64) float64 { return a * b }),
	insts.OpFDiv: floatBinary(func(a, b float64) float64 { return a / b }),
	insts.OpFRem: floatBinary(math.Mod),

	insts.OpShl:  shl,
	insts.OpLShr: lshr,
	insts.OpAShr: ashr,
	insts.OpAnd:  intBinary(func(a, b uint64) uint64 { return a & b }),
	insts.OpOr:   intBinary(func(a, b uint64) uint64 { return a | b }),
	insts.OpXor:  intBinary(func(a, b uint64) uint64 { return a ^ b }),

	insts.OpICmp: icmp,
	insts.OpFCmp: fcmp,

	insts.OpTrunc:    passthrough,
	insts.OpZExt:     zext,
	insts.OpSExt:     sext,
	insts.OpFPToUI:   fptoui,
	insts.OpFPToSI:   fptosi,
	insts.OpUIToFP:   uitofp,
	insts.OpSIToFP:   sitofp,
	insts.OpFPTrunc:  fpconv,
	insts.OpFPExt:    fpconv,
	insts.OpPtrToInt: passthrough,
	insts.OpIntToPtr: passthrough,
	insts.OpBitCast:  passthrough,

	insts.OpSelect:        selectOp,
	insts.OpGetElementPtr: gep,
	insts.OpPhi:           passthrough,
}

// Evaluate computes the result of a value-producing template. ops holds the
// bound operand values in template order; for phi it holds the single
// selected incoming value. The result is truncated to the template type.
func Evaluate(t *insts.Template, ops []uint64) (uint64, error) {
	b, ok := behaviors[t.Op]
	if !ok {
		return 0, fmt.Errorf("%s does not compute a value in the ALU", t.Op)
	}
	return b(t, ops) & t.Type.Mask(), nil
}

// SignExtend sign-extends the low bits of v to 64 bits.
func SignExtend(v uint64, bits uint) uint64 {
	if bits == 0 || bits >= 64 {
		return v
	}
	shift := 64 - bits
	return uint64(int64(v<<shift) >> shift)
}

// ToFloat interprets raw bits as a value of floating point type t.
func ToFloat(v uint64, t insts.Type) float64 {
	if t == insts.TypeFloat {
		return float64(math.Float32frombits(uint32(v)))
	}
	return math.Float64frombits(v)
}

// FromFloat encodes f as raw bits of floating point type t.
func FromFloat(f float64, t insts.Type) uint64 {
	if t == insts.TypeFloat {
		return uint64(math.Float32bits(float32(f)))
	}
	return math.Float64bits(f)
}

// DecodeLoad converts little-endian memory bytes into a raw value of type t.
func DecodeLoad(data []byte, t insts.Type) uint64 {
	buf := make([]byte, 8)
	copy(buf, data)
	return binary.LittleEndian.Uint64(buf) & t.Mask()
}

// EncodeStore converts a raw value of type t into little-endian bytes.
func EncodeStore(v uint64, t insts.Type) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return buf[:t.Size()]
}

func intBinary(f func(a, b uint64) uint64) behavior {
	return func(t *insts.Template, ops []uint64) uint64 {
		return f(ops[0], ops[1])
	}
}

func floatBinary(f func(a, b float64) float64) behavior {
	return func(t *insts.Template, ops []uint64) uint64 {
		return FromFloat(f(ToFloat(ops[0], t.Type), ToFloat(ops[1], t.Type)), t.Type)
	}
}

func signed(v uint64, t insts.Type) int64 {
	return int64(SignExtend(v&t.Mask(), t.Bits()))
}

func udiv(t *insts.Template, ops []uint64) uint64 {
	a, b := ops[0]&t.Type.Mask(), ops[1]&t.Type.Mask()
	if b == 0 {
		return 0
	}
	return a / b
}

func urem(t *insts.Template, ops []uint64) uint64 {
	a, b := ops[0]&t.Type.Mask(), ops[1]&t.Type.Mask()
	if b == 0 {
		return 0
	}
	return a % b
}

func sdiv(t *insts.Template, ops []uint64) uint64 {
	a, b := signed(ops[0], t.Type), signed(ops[1], t.Type)
	if b == 0 {
		return 0
	}
	return uint64(a / b)
}

func srem(t *insts.Template, ops []uint64) uint64 {
	a, b := signed(ops[0], t.Type), signed(ops[1], t.Type)
	if b == 0 {
		return 0
	}
	return uint64(a % b)
}

func shiftAmount(t *insts.Template, v uint64) uint64 {
	return v % uint64(t.Type.Bits())
}

func shl(t *insts.Template, ops []uint64) uint64 {
	return ops[0] << shiftAmount(t, ops[1])
}

func lshr(t *insts.Template, ops []uint64) uint64 {
	return (ops[0] & t.Type.Mask()) >> shiftAmount(t, ops[1])
}

func ashr(t *insts.Template, ops []uint64) uint64 {
	return uint64(signed(ops[0], t.Type) >> shiftAmount(t, ops[1]))
}

func operandType(t *insts.Template) insts.Type {
	if t.SrcType == insts.TypeVoid {
		return insts.TypeI64
	}
	return t.SrcType
}

func boolBits(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func icmp(t *insts.Template, ops []uint64) uint64 {
	typ := operandType(t)
	ua, ub := ops[0]&typ.Mask(), ops[1]&typ.Mask()
	sa, sb := signed(ops[0], typ), signed(ops[1], typ)

	switch t.Pred {
	case insts.PredEQ:
		return boolBits(ua == ub)
	case insts.PredNE:
		return boolBits(ua != ub)
	case insts.PredUGT:
		return boolBits(ua > ub)
	case insts.PredUGE:
		return boolBits(ua >= ub)
	case insts.PredULT:
		return boolBits(ua < ub)
	case insts.PredULE:
		return boolBits(ua <= ub)
	case insts.PredSGT:
		return boolBits(sa > sb)
	case insts.PredSGE:
		return boolBits(sa >= sb)
	case insts.PredSLT:
		return boolBits(sa < sb)
	case insts.PredSLE:
		return boolBits(sa <= sb)
	default:
		return 0
	}
}

func fcmp(t *insts.Template, ops []uint64) uint64 {
	typ := t.SrcType
	if !typ.IsFloat() {
		typ = insts.TypeDouble
	}
	a, b := ToFloat(ops[0], typ), ToFloat(ops[1], typ)
	unordered := math.IsNaN(a) || math.IsNaN(b)

	switch t.Pred {
	case insts.PredFalse:
		return 0
	case insts.PredTrue:
		return 1
	case insts.PredORD:
		return boolBits(!unordered)
	case insts.PredUNO:
		return boolBits(unordered)
	case insts.PredOEQ:
		return boolBits(!unordered && a == b)
	case insts.PredOGT:
		return boolBits(!unordered && a > b)
	case insts.PredOGE:
		return boolBits(!unordered && a >= b)
	case insts.PredOLT:
		return boolBits(!unordered && a < b)
	case insts.PredOLE:
		return boolBits(!unordered && a <= b)
	case insts.PredONE:
		return boolBits(!unordered && a != b)
	case insts.PredUEQ:
		return boolBits(unordered || a == b)
	case insts.PredUGT:
		return boolBits(unordered || a > b)
	case insts.PredUGE:
		return boolBits(unordered || a >= b)
	case insts.PredULT:
		return boolBits(unordered || a < b)
	case insts.PredULE:
		return boolBits(unordered || a <= b)
	case insts.PredUNE:
		return boolBits(unordered || a != b)
	default:
		return 0
	}
}

func passthrough(t *insts.Template, ops []uint64) uint64 {
	return ops[0]
}

func zext(t *insts.Template, ops []uint64) uint64 {
	return ops[0] & t.SrcType.Mask()
}

func sext(t *insts.Template, ops []uint64) uint64 {
	return SignExtend(ops[0]&t.SrcType.Mask(), t.SrcType.Bits())
}

func fptoui(t *insts.Template, ops []uint64) uint64 {
	return uint64(ToFloat(ops[0], t.SrcType))
}

func fptosi(t *insts.Template, ops []uint64) uint64 {
	return uint64(int64(ToFloat(ops[0], t.SrcType)))
}

func uitofp(t *insts.Template, ops []uint64) uint64 {
	return FromFloat(float64(ops[0]&t.SrcType.Mask()), t.Type)
}

func sitofp(t *insts.Template, ops []uint64) uint64 {
	return FromFloat(float64(signed(ops[0], t.SrcType)), t.Type)
}

func fpconv(t *insts.Template, ops []uint64) uint64 {
	return FromFloat(ToFloat(ops[0], t.SrcType), t.Type)
}

func selectOp(t *insts.Template, ops []uint64) uint64 {
	if ops[0]&1 != 0 {
		return ops[1]
	}
	return ops[2]
}

// gep computes base + sum(idx[i] * stride[i]). Indices are signed.
func gep(t *insts.Template, ops []uint64) uint64 {
	addr := ops[0]
	for i, idx := range ops[1:] {
		addr += uint64(int64(idx) * int64(t.Strides[i]))
	}
	return addr
}
