package loader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sarchlab/accsim/insts"
)

// parseOperand reads "%name" as a register, "@name" as a global and
// anything else as a literal of type t.
func parseOperand(s string, t insts.Type) (insts.Operand, error) {
	s = strings.TrimSpace(s)

	switch {
	case strings.HasPrefix(s, "%"):
		if len(s) == 1 {
			return insts.Operand{}, fmt.Errorf("%w: %q", ErrBadOperand, s)
		}
		return insts.Reg(s[1:]), nil

	case strings.HasPrefix(s, "@"):
		if len(s) == 1 {
			return insts.Operand{}, fmt.Errorf("%w: %q", ErrBadOperand, s)
		}
		return insts.Global(s[1:]), nil
	}

	v, err := parseLiteral(s, t)
	if err != nil {
		return insts.Operand{}, err
	}
	return insts.Const(v), nil
}

// parseLiteral returns the raw bits of a literal of type t. Integers may
// be signed and use any Go base prefix. Float types take decimal or
// scientific notation. The booleans true and false are 1 and 0.
func parseLiteral(s string, t insts.Type) (uint64, error) {
	s = strings.TrimSpace(s)

	switch s {
	case "":
		return 0, fmt.Errorf("%w: empty literal", ErrBadOperand)
	case "true":
		return 1, nil
	case "false", "null":
		return 0, nil
	}

	if t.IsFloat() {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a %s", ErrBadOperand, s, t)
		}
		return insts.ConstFloat(f, t).Value, nil
	}

	if strings.HasPrefix(s, "-") {
		v, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrBadOperand, s)
		}
		return uint64(v) & maskOf(t), nil
	}

	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadOperand, s)
	}
	return v & maskOf(t), nil
}

func maskOf(t insts.Type) uint64 {
	if t == insts.TypeVoid {
		return ^uint64(0)
	}
	return t.Mask()
}
