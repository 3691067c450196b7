package insts

import "fmt"

// Type is the value type an instruction computes in.
type Type uint8

// Value types.
const (
	TypeVoid Type = iota
	TypeI1
	TypeI8
	TypeI16
	TypeI32
	TypeI64
	TypeFloat
	TypeDouble
	TypePtr
)

var typeNames = [...]string{
	TypeVoid:   "void",
	TypeI1:     "i1",
	TypeI8:     "i8",
	TypeI16:    "i16",
	TypeI32:    "i32",
	TypeI64:    "i64",
	TypeFloat:  "float",
	TypeDouble: "double",
	TypePtr:    "ptr",
}

// String returns the IR spelling of the type.
func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// ParseType returns the type with the given IR spelling.
func ParseType(s string) (Type, error) {
	for t, name := range typeNames {
		if name == s {
			return Type(t), nil
		}
	}
	return TypeVoid, fmt.Errorf("unknown type %q", s)
}

// Bits returns the width of the type in bits.
func (t Type) Bits() uint {
	switch t {
	case TypeI1:
		return 1
	case TypeI8:
		return 8
	case TypeI16:
		return 16
	case TypeI32, TypeFloat:
		return 32
	case TypeI64, TypeDouble, TypePtr:
		return 64
	default:
		return 0
	}
}

// Size returns the number of bytes the type occupies in memory.
func (t Type) Size() uint64 {
	return uint64((t.Bits() + 7) / 8)
}

// Mask returns the mask selecting the low Bits() bits of a raw value.
func (t Type) Mask() uint64 {
	bits := t.Bits()
	if bits >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << bits) - 1
}

// IsFloat returns true for float and double.
func (t Type) IsFloat() bool {
	return t == TypeFloat || t == TypeDouble
}

// FU is a functional-unit category.
type FU uint8

// Functional-unit categories. FUNone is never budget-limited and never
// counted.
const (
	FUNone FU = iota
	FUCounter
	FUIntAdder
	FUIntMultiplier
	FUIntShifter
	FUIntBitwise
	FUFPSPAdder
	FUFPDPAdder
	FUFPSPMultiplier
	FUFPDPMultiplier
	FUCompare
	FUGEP
	FUConversion

	NumFU
)

var fuNames = [NumFU]string{
	FUNone:           "none",
	FUCounter:        "counter",
	FUIntAdder:       "int_adder",
	FUIntMultiplier:  "int_multiplier",
	FUIntShifter:     "int_shifter",
	FUIntBitwise:     "int_bitwise",
	FUFPSPAdder:      "fp_sp_adder",
	FUFPDPAdder:      "fp_dp_adder",
	FUFPSPMultiplier: "fp_sp_multiplier",
	FUFPDPMultiplier: "fp_dp_multiplier",
	FUCompare:        "compare",
	FUGEP:            "gep",
	FUConversion:     "conversion",
}

// String returns the configuration key of the category.
func (f FU) String() string {
	if f < NumFU {
		return fuNames[f]
	}
	return fmt.Sprintf("fu(%d)", uint8(f))
}

// ParseFU returns the category with the given configuration key.
func ParseFU(s string) (FU, error) {
	for f, name := range fuNames {
		if name == s {
			return FU(f), nil
		}
	}
	return FUNone, fmt.Errorf("unknown functional unit %q", s)
}

// Pred is a comparison predicate for icmp and fcmp.
type Pred string

// Integer predicates.
const (
	PredEQ  Pred = "eq"
	PredNE  Pred = "ne"
	PredUGT Pred = "ugt"
	PredUGE Pred = "uge"
	PredULT Pred = "ult"
	PredULE Pred = "ule"
	PredSGT Pred = "sgt"
	PredSGE Pred = "sge"
	PredSLT Pred = "slt"
	PredSLE Pred = "sle"
)

// Floating point predicates. The unordered forms share spelling with the
// unsigned integer predicates (ugt, uge, ult, ule).
const (
	PredFalse Pred = "false"
	PredOEQ   Pred = "oeq"
	PredOGT   Pred = "ogt"
	PredOGE   Pred = "oge"
	PredOLT   Pred = "olt"
	PredOLE   Pred = "ole"
	PredONE   Pred = "one"
	PredORD   Pred = "ord"
	PredUNO   Pred = "uno"
	PredUEQ   Pred = "ueq"
	PredUNE   Pred = "une"
	PredTrue  Pred = "true"
)

var intPreds = map[Pred]bool{
	PredEQ: true, PredNE: true,
	PredUGT: true, PredUGE: true, PredULT: true, PredULE: true,
	PredSGT: true, PredSGE: true, PredSLT: true, PredSLE: true,
}

var floatPreds = map[Pred]bool{
	PredFalse: true, PredOEQ: true, PredOGT: true, PredOGE: true,
	PredOLT: true, PredOLE: true, PredONE: true, PredORD: true,
	PredUNO: true, PredUEQ: true, PredUGT: true, PredUGE: true,
	PredULT: true, PredULE: true, PredUNE: true, PredTrue: true,
}

// ValidFor reports whether the predicate can be used with the opcode.
func (p Pred) ValidFor(op Op) bool {
	switch op {
	case OpICmp:
		return intPreds[p]
	case OpFCmp:
		return floatPreds[p]
	default:
		return false
	}
}
