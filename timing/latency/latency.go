// Package latency provides the fixed per-operation latency model used by
// the scheduler.
//
// Every value-producing operation has a fixed latency taken from
// TimingConfig, unless its template carries an explicit override.
// Terminators resolve immediately and have no latency. Memory operations
// complete when the memory collaborator says so.
package latency

import (
	"github.com/sarchlab/accsim/insts"
)

// Table provides instruction latency lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with default timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a new latency table with custom timing configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// GetLatency returns the execution latency in ticks for the given template.
// A per-template override wins over the configured class latency.
func (t *Table) GetLatency(tmpl *insts.Template) uint64 {
	if tmpl == nil {
		return 0
	}

	if tmpl.Latency != nil {
		return *tmpl.Latency
	}

	switch tmpl.Op {
	case insts.OpAdd, insts.OpSub:
		if tmpl.FU() == insts.FUCounter {
			return t.config.CounterLatency
		}
		return t.config.IntAddLatency

	case insts.OpMul:
		return t.config.IntMulLatency

	case insts.OpUDiv, insts.OpSDiv, insts.OpURem, insts.OpSRem:
		return t.config.IntDivLatency

	case insts.OpShl, insts.OpLShr, insts.OpAShr:
		return t.config.ShiftLatency

	case insts.OpAnd, insts.OpOr, insts.OpXor:
		return t.config.BitwiseLatency

	case insts.OpICmp, insts.OpFCmp:
		return t.config.CompareLatency

	case insts.OpGetElementPtr:
		return t.config.GEPLatency

	case insts.OpTrunc, insts.OpZExt, insts.OpSExt,
		insts.OpFPToUI, insts.OpFPToSI, insts.OpUIToFP, insts.OpSIToFP,
		insts.OpFPTrunc, insts.OpFPExt,
		insts.OpPtrToInt, insts.OpIntToPtr, insts.OpBitCast:
		return t.config.ConversionLatency

	case insts.OpPhi:
		return t.config.PhiLatency

	case insts.OpSelect:
		return t.config.SelectLatency

	case insts.OpFAdd, insts.OpFSub:
		return t.config.FPAddLatency

	case insts.OpFMul:
		return t.config.FPMulLatency

	case insts.OpFDiv, insts.OpFRem:
		return t.config.FPDivLatency

	default:
		return 0
	}
}

// IsCombinational returns true if the template commits in the tick it
// issues.
func (t *Table) IsCombinational(tmpl *insts.Template) bool {
	return t.GetLatency(tmpl) == 0
}

// IsMemoryOp returns true if the template accesses memory.
func (t *Table) IsMemoryOp(tmpl *insts.Template) bool {
	if tmpl == nil {
		return false
	}
	kind := tmpl.Op.Info().Kind
	return kind == insts.KindLoad || kind == insts.KindStore
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
