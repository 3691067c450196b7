// Package insts provides the static program model of the accelerator.
//
// A program is a control/data-flow graph: an ordered list of basic blocks,
// each an ordered list of static instruction templates. Templates are fully
// resolved by the front-end: every operand is a constant, a register name,
// or a global reference, and every branch target names a block label.
//
// Usage:
//
//	prog, err := insts.NewProgram("vadd",
//		insts.NewBlock("0",
//			&insts.Template{Op: insts.OpAdd, Type: insts.TypeI64, Dest: "sum",
//				Operands: []insts.Operand{insts.Reg("a"), insts.Reg("b")}},
//			&insts.Template{Op: insts.OpRet},
//		))
package insts
