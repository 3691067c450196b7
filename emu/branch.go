package emu

import "github.com/sarchlab/accsim/insts"

// Destination selects the successor block label of a br or switch from its
// bound operand values.
//
// A conditional br takes Targets[0] when the low bit of its condition is
// set and Targets[1] otherwise. A switch compares its condition, masked to
// the switch type, against every case in order and falls back to
// Targets[0] when none matches. A void-typed switch compares all 64 bits.
func Destination(t *insts.Template, ops []uint64) string {
	switch t.Op {
	case insts.OpBr:
		if len(t.Targets) == 1 {
			return t.Targets[0]
		}
		if ops[0]&1 != 0 {
			return t.Targets[0]
		}
		return t.Targets[1]

	case insts.OpSwitch:
		mask := t.Type.Mask()
		if t.Type == insts.TypeVoid {
			mask = ^uint64(0)
		}
		v := ops[0] & mask
		for _, c := range t.Cases {
			if c.Value&mask == v {
				return c.Target
			}
		}
		return t.Targets[0]
	}

	return ""
}
