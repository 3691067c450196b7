package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/accsim/insts"
)

var _ = Describe("Program", func() {
	loop := func() []*insts.BasicBlock {
		return []*insts.BasicBlock{
			insts.NewBlock("0",
				&insts.Template{Op: insts.OpBr, Targets: []string{"loop"}},
			),
			insts.NewBlock("loop",
				&insts.Template{Op: insts.OpPhi, Type: insts.TypeI64, Dest: "i",
					Incoming: []insts.Incoming{
						{Value: insts.Const(0), Block: "0"},
						{Value: insts.Reg("i.next"), Block: "loop"},
					}},
				&insts.Template{Op: insts.OpGetElementPtr, Type: insts.TypePtr, Dest: "p",
					Operands: []insts.Operand{insts.Global("a"), insts.Reg("i")},
					Strides:  []uint64{4}},
				&insts.Template{Op: insts.OpBitCast, Type: insts.TypePtr, SrcType: insts.TypePtr,
					Dest: "q", Operands: []insts.Operand{insts.Reg("p")}},
				&insts.Template{Op: insts.OpAdd, Type: insts.TypeI64, Dest: "i.next",
					Operands: []insts.Operand{insts.Reg("i"), insts.Const(1)}},
				&insts.Template{Op: insts.OpICmp, Type: insts.TypeI1, Dest: "done",
					Pred: insts.PredEQ, Operands: []insts.Operand{insts.Reg("i.next"), insts.Const(8)}},
				&insts.Template{Op: insts.OpBr, Operands: []insts.Operand{insts.Reg("done")},
					Targets: []string{"exit", "loop"}},
			),
			insts.NewBlock("exit", &insts.Template{Op: insts.OpRet}),
		}
	}

	It("should number blocks and templates", func() {
		p, err := insts.NewProgram("loop", loop()...)
		Expect(err).NotTo(HaveOccurred())

		Expect(p.Entry().Label).To(Equal("0"))
		b, ok := p.Block("exit")
		Expect(ok).To(BeTrue())
		Expect(b.Seq).To(Equal(2))
		Expect(b.Templates[0].ID).To(Equal(p.Templates()))
	})

	It("should compute predecessors from terminators", func() {
		p, err := insts.NewProgram("loop", loop()...)
		Expect(err).NotTo(HaveOccurred())

		Expect(p.Predecessors("loop")).To(Equal([]string{"0", "loop"}))
		Expect(p.Predecessors("exit")).To(Equal([]string{"loop"}))
		Expect(p.Predecessors("0")).To(BeEmpty())
	})

	It("should reject branches to unknown blocks", func() {
		_, err := insts.NewProgram("bad",
			insts.NewBlock("0", &insts.Template{Op: insts.OpBr, Targets: []string{"nowhere"}}))
		Expect(err).To(MatchError(insts.ErrUnknownBlock))
	})

	It("should reject duplicate labels", func() {
		_, err := insts.NewProgram("bad",
			insts.NewBlock("0", &insts.Template{Op: insts.OpRet}),
			insts.NewBlock("0", &insts.Template{Op: insts.OpRet}))
		Expect(err).To(MatchError(insts.ErrDuplicateBlock))
	})

	It("should reject blocks without a terminator", func() {
		_, err := insts.NewProgram("bad",
			insts.NewBlock("0", &insts.Template{Op: insts.OpAdd, Type: insts.TypeI32, Dest: "x",
				Operands: []insts.Operand{insts.Const(1), insts.Const(2)}}))
		Expect(err).To(MatchError(insts.ErrNoTerminator))
	})

	It("should reject phis missing a predecessor", func() {
		blocks := loop()
		phi := blocks[1].Templates[0]
		phi.Incoming = phi.Incoming[:1]

		_, err := insts.NewProgram("bad", blocks...)
		Expect(err).To(MatchError(insts.ErrNoPhiMatch))
	})

	It("should count static functional units", func() {
		p, err := insts.NewProgram("loop", loop()...)
		Expect(err).NotTo(HaveOccurred())

		counts := p.StaticFU()
		Expect(counts[insts.FUCounter]).To(Equal(uint64(1)))
		Expect(counts[insts.FUGEP]).To(Equal(uint64(1)))
		Expect(counts[insts.FUCompare]).To(Equal(uint64(1)))
		Expect(counts[insts.FUConversion]).To(Equal(uint64(1)))
		Expect(counts[insts.FUNone]).To(Equal(uint64(4)))
	})

	It("should propagate global pointers through address arithmetic", func() {
		p, err := insts.NewProgram("loop", loop()...)
		Expect(err).NotTo(HaveOccurred())

		derived := p.DerivedGlobals(func(string) bool { return false })
		Expect(derived).To(Equal([]string{"p", "q"}))
	})

	It("should list destinations once each", func() {
		p, err := insts.NewProgram("loop", loop()...)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Destinations()).To(Equal([]string{"i", "p", "q", "i.next", "done"}))
	})
})
