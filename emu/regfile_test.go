package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/accsim/emu"
)

var _ = Describe("RegFile", func() {
	var rf *emu.RegFile

	BeforeEach(func() {
		rf = emu.NewRegFileWithReserved()
	})

	It("should bind the reserved registers", func() {
		t, ok := rf.Find(emu.AlwaysTrue)
		Expect(ok).To(BeTrue())
		Expect(t.Peek()).To(Equal(uint64(1)))

		f, ok := rf.Find(emu.AlwaysFalse)
		Expect(ok).To(BeTrue())
		Expect(f.Peek()).To(Equal(uint64(0)))
	})

	It("should refuse duplicate names", func() {
		_, err := rf.AddRegister("x", 1)
		Expect(err).NotTo(HaveOccurred())

		_, err = rf.AddRegister("x", 2)
		Expect(err).To(MatchError(emu.ErrDuplicateRegister))
	})

	It("should report missing registers", func() {
		_, ok := rf.Find("missing")
		Expect(ok).To(BeFalse())
	})

	It("should count reads and writes without blocking", func() {
		r := rf.Ensure("acc")
		r.Write(5)
		Expect(r.Read()).To(Equal(uint64(5)))
		Expect(r.Read()).To(Equal(uint64(5)))
		Expect(r.Peek()).To(Equal(uint64(5)))

		Expect(r.Reads()).To(Equal(uint64(2)))
		Expect(r.Writes()).To(Equal(uint64(1)))

		stats := rf.Stats()
		Expect(stats.Count).To(Equal(3))
		Expect(stats.Reads).To(Equal(uint64(2)))
		Expect(stats.Writes).To(Equal(uint64(1)))
	})

	It("should make SetGlobal idempotent", func() {
		r := rf.Ensure("a")
		r.SetGlobal()
		r.SetGlobal()
		Expect(r.Global()).To(BeTrue())
		Expect(rf.Stats().Globals).To(Equal(1))
	})

	It("should reuse registers in Ensure", func() {
		r1 := rf.Ensure("x")
		r1.Write(9)
		r2 := rf.Ensure("x")
		Expect(r2).To(BeIdenticalTo(r1))
		Expect(rf.Names()).To(Equal([]string{emu.AlwaysTrue, emu.AlwaysFalse, "x"}))
	})

	It("should clone cold", func() {
		r := rf.Ensure("g")
		r.SetGlobal()
		r.Write(42)
		_ = r.Read()

		c := rf.Clone()
		cg, ok := c.Find("g")
		Expect(ok).To(BeTrue())
		Expect(cg.Peek()).To(Equal(uint64(42)))
		Expect(cg.Global()).To(BeTrue())
		Expect(cg.Reads()).To(BeZero())
		Expect(c.Snapshot()).To(Equal(rf.Snapshot()))
	})
})
