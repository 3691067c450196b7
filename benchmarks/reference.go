package benchmarks

import (
	"fmt"

	"github.com/sarchlab/akita/v4/mem/mem"

	"github.com/sarchlab/accsim/emu"
	"github.com/sarchlab/accsim/loader"
)

// Reference runs a loaded program on the functional emulator. Only
// ReturnValue, ExecutedNodes and Dumps are filled in. A timed run of the
// same program must end with the same return value and memory.
func Reference(prog *loader.Program, capacity uint64) (BenchmarkResult, error) {
	var result BenchmarkResult

	storage := mem.NewStorage(capacity)
	for _, seg := range prog.Image {
		if err := storage.Write(seg.Addr, seg.Data); err != nil {
			return result, fmt.Errorf("loading image at 0x%x: %w", seg.Addr, err)
		}
	}

	e := emu.NewEmulator(prog.Program, prog.Regs.Clone(), emu.WithMemory(storage))
	err := e.Run()
	result.ExecutedNodes = e.InstructionCount()
	if v, ok := e.ReturnValue(); ok {
		result.ReturnValue = &v
	}
	if err != nil {
		return result, err
	}

	result.Dumps, err = readRanges(storage.Read, prog.Dumps)
	return result, err
}
