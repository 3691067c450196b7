package loader_test

import (
	"math"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/accsim/emu"
	"github.com/sarchlab/accsim/insts"
	"github.com/sarchlab/accsim/loader"
)

func wrap(body string) []byte {
	return []byte("blocks:\n  - label: entry\n    insts:\n" + body)
}

var _ = Describe("Loader", func() {
	Describe("Load", func() {
		var prog *loader.Program

		BeforeEach(func() {
			var err error
			prog, err = loader.Load(filepath.Join("testdata", "vadd.yaml"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("should build the blocks in order", func() {
			Expect(prog.Program.Name).To(Equal("vadd"))
			Expect(prog.Program.Blocks).To(HaveLen(3))
			Expect(prog.Program.Entry().Label).To(Equal("entry"))

			loop, ok := prog.Program.Block("loop")
			Expect(ok).To(BeTrue())
			Expect(loop.Templates).To(HaveLen(11))
			Expect(loop.Terminator().Targets).To(Equal([]string{"exit", "loop"}))
		})

		It("should decode operands by prefix", func() {
			loop, _ := prog.Program.Block("loop")

			gep := loop.Templates[1]
			Expect(gep.Op).To(Equal(insts.OpGetElementPtr))
			Expect(gep.Operands).To(Equal([]insts.Operand{insts.Global("a"), insts.Reg("i")}))
			Expect(gep.Strides).To(Equal([]uint64{4}))

			inc := loop.Templates[8]
			Expect(inc.Operands[1]).To(Equal(insts.Const(1)))

			phi := loop.Templates[0]
			Expect(phi.Incoming).To(HaveLen(2))
			Expect(phi.Incoming[0].Value).To(Equal(insts.Const(0)))
			Expect(phi.Incoming[1].Value).To(Equal(insts.Reg("inext")))

			cmp := loop.Templates[9]
			Expect(cmp.Pred).To(Equal(insts.PredEQ))
			Expect(cmp.SrcType).To(Equal(insts.TypeI32))
		})

		It("should bind globals, registers and reserved registers", func() {
			for name, addr := range map[string]uint64{"a": 0, "b": 0x100, "c": 0x200} {
				r, ok := prog.Regs.Find(name)
				Expect(ok).To(BeTrue())
				Expect(r.Global()).To(BeTrue())
				Expect(r.Peek()).To(Equal(addr))
			}

			n, ok := prog.Regs.Find("n")
			Expect(ok).To(BeTrue())
			Expect(n.Global()).To(BeFalse())
			Expect(n.Peek()).To(Equal(uint64(4)))

			t, ok := prog.Regs.Find(emu.AlwaysTrue)
			Expect(ok).To(BeTrue())
			Expect(t.Peek()).To(Equal(uint64(1)))
		})

		It("should build the memory image from initializers", func() {
			Expect(prog.Image).To(HaveLen(2))
			Expect(prog.Image[0].Addr).To(Equal(uint64(0)))
			Expect(prog.Image[0].Data).To(Equal([]byte{
				1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0, 4, 0, 0, 0,
			}))
			Expect(prog.Image[1].Addr).To(Equal(uint64(0x100)))
		})

		It("should resolve dump ranges against globals", func() {
			Expect(prog.Dumps).To(Equal([]loader.Range{
				{Name: "c", Addr: 0x200, Type: insts.TypeI32, Count: 4},
			}))
		})

		It("should fail on a missing file", func() {
			_, err := loader.Load(filepath.Join(GinkgoT().TempDir(), "none.yaml"))
			Expect(err).To(HaveOccurred())
		})

		It("should name the file in parse errors", func() {
			path := filepath.Join(GinkgoT().TempDir(), "bad.yaml")
			Expect(os.WriteFile(path, wrap("      - {op: nope}\n"), 0644)).To(Succeed())
			_, err := loader.Load(path)
			Expect(err).To(MatchError(ContainSubstring("bad.yaml")))
		})
	})

	Describe("Parse", func() {
		It("should default the program name", func() {
			prog, err := loader.Parse(wrap("      - {op: ret}\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Program.Name).To(Equal("main"))
		})

		It("should encode float literals in the operand type", func() {
			prog, err := loader.Parse([]byte(`
registers:
  - {name: x, type: float, value: "1.0"}
blocks:
  - label: entry
    insts:
      - {op: fadd, type: float, dest: y, operands: ["%x", "2.5"]}
      - {op: fcmp, pred: olt, type: i1, src_type: double, dest: c, operands: ["%y", "0.5"]}
      - {op: ret}
`))
			Expect(err).NotTo(HaveOccurred())

			tmpls := prog.Program.Entry().Templates
			Expect(tmpls[0].Operands[1]).To(Equal(insts.Const(uint64(math.Float32bits(2.5)))))
			Expect(tmpls[1].Operands[1]).To(Equal(insts.Const(math.Float64bits(0.5))))

			x, _ := prog.Regs.Find("x")
			Expect(x.Peek()).To(Equal(uint64(math.Float32bits(1.0))))
		})

		It("should mask negative literals to the operand width", func() {
			prog, err := loader.Parse(wrap(
				"      - {op: add, type: i8, dest: y, operands: [\"-1\", \"0x10\"]}\n" +
					"      - {op: ret}\n"))
			Expect(err).NotTo(HaveOccurred())

			ops := prog.Program.Entry().Templates[0].Operands
			Expect(ops[0]).To(Equal(insts.Const(0xFF)))
			Expect(ops[1]).To(Equal(insts.Const(0x10)))
		})

		It("should read switch cases and latency overrides", func() {
			prog, err := loader.Parse([]byte(`
blocks:
  - label: entry
    insts:
      - {op: mul, type: i32, dest: m, operands: ["%alwaysTrue", 7], latency: 9}
      - op: switch
        type: i32
        operands: ["%m"]
        targets: [other]
        cases: [{value: 7, target: seven}]
  - label: seven
    insts:
      - {op: ret}
  - label: other
    insts:
      - {op: ret}
`))
			Expect(err).NotTo(HaveOccurred())

			tmpls := prog.Program.Entry().Templates
			Expect(*tmpls[0].Latency).To(Equal(uint64(9)))
			Expect(tmpls[1].Cases).To(Equal([]insts.Case{{Value: 7, Target: "seven"}}))
		})

		It("should reject unknown opcodes", func() {
			_, err := loader.Parse(wrap("      - {op: frobnicate}\n"))
			Expect(err).To(MatchError(ContainSubstring("frobnicate")))
		})

		It("should reject malformed operands", func() {
			_, err := loader.Parse(wrap(
				"      - {op: add, type: i32, dest: y, operands: [\"%\", 1]}\n      - {op: ret}\n"))
			Expect(err).To(MatchError(loader.ErrBadOperand))

			_, err = loader.Parse(wrap(
				"      - {op: add, type: i32, dest: y, operands: [abc, 1]}\n      - {op: ret}\n"))
			Expect(err).To(MatchError(loader.ErrBadOperand))
		})

		It("should reject duplicate globals", func() {
			_, err := loader.Parse([]byte(`
globals:
  - {name: a, addr: 0}
  - {name: a, addr: 8}
blocks:
  - label: entry
    insts:
      - {op: ret}
`))
			Expect(err).To(MatchError(emu.ErrDuplicateRegister))
		})

		It("should reject globals shadowing reserved registers", func() {
			_, err := loader.Parse([]byte(`
globals:
  - {name: alwaysTrue, addr: 0}
blocks:
  - label: entry
    insts:
      - {op: ret}
`))
			Expect(err).To(MatchError(emu.ErrDuplicateRegister))
		})

		It("should surface graph validation errors", func() {
			_, err := loader.Parse([]byte(`
blocks:
  - label: entry
    insts:
      - {op: br, targets: [missing]}
`))
			Expect(err).To(MatchError(insts.ErrUnknownBlock))
		})

		It("should reject dumps of unknown globals", func() {
			_, err := loader.Parse([]byte(`
dump:
  - {name: out, global: nope, type: i32, count: 1}
blocks:
  - label: entry
    insts:
      - {op: ret}
`))
			Expect(err).To(HaveOccurred())
		})
	})
})
