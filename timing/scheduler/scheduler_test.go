package scheduler_test

import (
	"bytes"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/akita/v4/mem/mem"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/accsim/emu"
	"github.com/sarchlab/accsim/insts"
	"github.com/sarchlab/accsim/timing/fu"
	"github.com/sarchlab/accsim/timing/scheduler"
)

var _ = Describe("Scheduler", func() {
	var (
		config *scheduler.Config
		rec    *hookRecorder
		memory *fakeMemory
	)

	BeforeEach(func() {
		config = scheduler.DefaultConfig()
		rec = &hookRecorder{}
		memory = newFakeMemory()
	})

	build := func(prog *insts.Program, rf *emu.RegFile) *scheduler.Scheduler {
		s, err := scheduler.New("Sched", sim.NewSerialEngine(), prog, rf, config,
			scheduler.WithMemory(memory))
		Expect(err).NotTo(HaveOccurred())
		s.AcceptHook(rec)
		return s
	}

	Describe("Single add", func() {
		It("should commit one tick after the block is scheduled", func() {
			prog := mustProgram(insts.NewBlock("entry", add("c", "a", "b"), ret()))
			rf := regsWith(map[string]uint64{"a": 2, "b": 3})
			s := build(prog, rf)

			Expect(s.Tick()).To(BeTrue())
			Expect(value(rf, "c")).To(BeZero())
			Expect(rec.blocks).To(HaveLen(1))
			Expect(rec.blocks[0].Cycle).To(Equal(uint64(1)))

			Expect(s.Tick()).To(BeFalse())
			Expect(value(rf, "c")).To(Equal(uint64(5)))
			Expect(rec.commitCycle("c")).To(Equal(uint64(2)))

			stats := s.Stats()
			Expect(stats.Cycles).To(Equal(uint64(2)))
			Expect(stats.ExecutedNodes).To(Equal(uint64(2)))
			Expect(stats.Stalls).To(BeZero())
			Expect(s.Err()).NotTo(HaveOccurred())
		})

		It("should log the return and finish cleanly", func() {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
			prog := mustProgram(insts.NewBlock("entry",
				add("c", "a", "b"),
				ret(insts.Reg("c")),
			))
			rf := regsWith(map[string]uint64{"a": 4, "b": 5})
			s, err := scheduler.New("Sched", sim.NewSerialEngine(), prog, rf, config,
				scheduler.WithLogger(logger))
			Expect(err).NotTo(HaveOccurred())

			runToEnd(s, nil)

			v, ok := s.ReturnValue()
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal(uint64(9)))
			Expect(buf.String()).To(ContainSubstring("program returned"))
			Expect(buf.String()).To(ContainSubstring("block=entry"))
		})

		It("should not tick after the run ends", func() {
			prog := mustProgram(insts.NewBlock("entry", ret()))
			s := build(prog, regsWith(nil))

			Expect(s.Tick()).To(BeFalse())
			Expect(s.Tick()).To(BeFalse())
			Expect(s.Cycle()).To(Equal(uint64(1)))
		})
	})

	Describe("Memory ordering", func() {
		var (
			prog *insts.Program
			rf   *emu.RegFile
		)

		BeforeEach(func() {
			store := func(v uint64) *insts.Template {
				return &insts.Template{
					Op:       insts.OpStore,
					Type:     insts.TypeI32,
					Operands: []insts.Operand{insts.Const(v), insts.Reg("p")},
				}
			}
			load := &insts.Template{
				Op:       insts.OpLoad,
				Type:     insts.TypeI32,
				Dest:     "x",
				Operands: []insts.Operand{insts.Reg("p")},
			}
			prog = mustProgram(insts.NewBlock("entry", store(1), store(2), load, ret()))
			rf = regsWith(map[string]uint64{"p": 0x100})
		})

		It("should make the load wait for the latest store", func() {
			s := build(prog, rf)

			s.Tick()
			_, read, write, _ := s.QueueLens()
			Expect(write).To(Equal(2))
			Expect(read).To(BeZero())

			memory.completeNext(s)
			s.Tick()
			_, read, _, _ = s.QueueLens()
			Expect(read).To(BeZero())

			memory.completeNext(s)
			s.Tick()
			_, read, _, _ = s.QueueLens()
			Expect(read).To(Equal(1))

			memory.completeNext(s)
			Expect(value(rf, "x")).To(Equal(uint64(2)))

			Expect(s.Tick()).To(BeFalse())
			Expect(s.Err()).NotTo(HaveOccurred())
		})

		It("should classify ticks and count local accesses", func() {
			s := build(prog, rf)

			s.Tick()
			memory.completeNext(s)
			s.Tick()
			memory.completeAll(s)
			runToEnd(s, memory)

			stats := s.Stats()
			Expect(stats.Activity[scheduler.ActivityStore]).To(Equal(uint64(1)))
			Expect(stats.Activity[scheduler.ActivityLoad]).To(Equal(uint64(1)))
			Expect(stats.StallCauses[scheduler.ActivityStore]).To(Equal(uint64(1)))
			Expect(stats.Stalls).To(Equal(uint64(1)))
			Expect(stats.LocalWrites).To(Equal(uint64(2)))
			Expect(stats.LocalReads).To(Equal(uint64(1)))
			Expect(stats.GlobalReads + stats.GlobalWrites).To(BeZero())
		})

		It("should hold the return until every store completes", func() {
			store := &insts.Template{
				Op:       insts.OpStore,
				Type:     insts.TypeI32,
				Operands: []insts.Operand{insts.Const(7), insts.Reg("p")},
			}
			prog := mustProgram(insts.NewBlock("entry", store, ret()))
			s := build(prog, rf)

			Expect(s.Tick()).To(BeTrue())
			Expect(s.Tick()).To(BeTrue())
			Expect(s.InFlight()).To(Equal(2))

			memory.completeNext(s)
			Expect(s.Tick()).To(BeFalse())
			Expect(s.Err()).NotTo(HaveOccurred())
			Expect(s.Cycle()).To(Equal(uint64(3)))
			Expect(memory.data[0x100]).To(Equal(byte(7)))
		})

		It("should reject completions for unknown requests", func() {
			s := build(prog, rf)
			s.Tick()

			err := s.Receive(&mem.WriteDoneRsp{RespondTo: "nobody"})
			Expect(err).To(MatchError(scheduler.ErrUnknownReq))
			Expect(s.Running()).To(BeFalse())
		})

		It("should count accesses through global pointers", func() {
			rf = emu.NewRegFileWithReserved()
			r, err := rf.AddRegister("p", 0x100)
			Expect(err).NotTo(HaveOccurred())
			r.SetGlobal()

			s := build(prog, rf)
			runToEnd(s, memory)

			stats := s.Stats()
			Expect(stats.GlobalWrites).To(Equal(uint64(2)))
			Expect(stats.GlobalReads).To(Equal(uint64(1)))
		})
	})

	Describe("Control flow", func() {
		chain := func() *insts.Program {
			return mustProgram(
				insts.NewBlock("b0", br("b1")),
				insts.NewBlock("b1", br("b2")),
				insts.NewBlock("b2", br("b3")),
				insts.NewBlock("b3", ret()),
			)
		}

		It("should fall through a branch chain in one tick", func() {
			config.SchedulingThreshold = 3
			s := build(chain(), regsWith(nil))

			Expect(s.Tick()).To(BeFalse())

			stats := s.Stats()
			Expect(stats.Cycles).To(Equal(uint64(1)))
			Expect(stats.BlocksScheduled).To(Equal(uint64(4)))
			Expect(stats.Stalls).To(BeZero())
			for _, b := range rec.blocks {
				Expect(b.Cycle).To(Equal(uint64(1)))
			}
		})

		It("should schedule one block per tick without a window", func() {
			config.SchedulingThreshold = 0
			s := build(chain(), regsWith(nil))
			runToEnd(s, nil)

			stats := s.Stats()
			Expect(stats.Cycles).To(Equal(uint64(4)))
			Expect(stats.Stalls).To(BeZero())
			Expect(rec.blocks[3].Block).To(Equal("b3"))
			Expect(rec.blocks[3].Prev).To(Equal("b2"))
		})

		It("should defer the next block to an empty table past the window", func() {
			mul := &insts.Template{
				Op: insts.OpMul, Type: insts.TypeI32, Dest: "m",
				Operands: []insts.Operand{insts.Reg("a"), insts.Reg("a")},
			}
			prog := mustProgram(
				insts.NewBlock("first", mul, add("c", "m", "a"), br("second")),
				insts.NewBlock("second", ret()),
			)
			config.SchedulingThreshold = 2
			s := build(prog, regsWith(map[string]uint64{"a": 2}))
			runToEnd(s, nil)

			Expect(rec.blocks).To(HaveLen(2))
			Expect(rec.blocks[1].Block).To(Equal("second"))
			Expect(rec.blocks[1].Cycle).To(Equal(rec.commitCycle("c")))
			Expect(rec.blocks[1].Cycle).To(BeNumerically(">", 1))
		})

		It("should select the phi value of the previous block", func() {
			phi := &insts.Template{
				Op: insts.OpPhi, Type: insts.TypeI32, Dest: "i",
				Incoming: []insts.Incoming{
					{Value: insts.Const(0), Block: "entry"},
					{Value: insts.Reg("n"), Block: "loop"},
				},
			}
			inc := &insts.Template{
				Op: insts.OpAdd, Type: insts.TypeI32, Dest: "n",
				Operands: []insts.Operand{insts.Reg("i"), insts.Const(1)},
			}
			cmp := &insts.Template{
				Op: insts.OpICmp, Type: insts.TypeI1, SrcType: insts.TypeI32,
				Pred: insts.PredEQ, Dest: "done",
				Operands: []insts.Operand{insts.Reg("n"), insts.Const(3)},
			}
			loop := &insts.Template{
				Op: insts.OpBr, Operands: []insts.Operand{insts.Reg("done")},
				Targets: []string{"exit", "loop"},
			}
			prog := mustProgram(
				insts.NewBlock("entry", br("loop")),
				insts.NewBlock("loop", phi, inc, cmp, loop),
				insts.NewBlock("exit", ret(insts.Reg("n"))),
			)
			rf := regsWith(nil)
			s := build(prog, rf)
			runToEnd(s, nil)

			v, ok := s.ReturnValue()
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal(uint64(3)))
			Expect(value(rf, "i")).To(Equal(uint64(2)))
			Expect(s.Stats().BlocksScheduled).To(Equal(uint64(5)))
		})

		DescribeTable("switch",
			func(v uint64, want uint64) {
				sw := &insts.Template{
					Op: insts.OpSwitch, Type: insts.TypeI32,
					Operands: []insts.Operand{insts.Reg("v")},
					Targets:  []string{"other"},
					Cases: []insts.Case{
						{Value: 1, Target: "one"},
						{Value: 2, Target: "two"},
					},
				}
				prog := mustProgram(
					insts.NewBlock("entry", sw),
					insts.NewBlock("one", ret(insts.Const(10))),
					insts.NewBlock("two", ret(insts.Const(20))),
					insts.NewBlock("other", ret(insts.Const(99))),
				)
				s := build(prog, regsWith(map[string]uint64{"v": v}))
				runToEnd(s, nil)

				got, ok := s.ReturnValue()
				Expect(ok).To(BeTrue())
				Expect(got).To(Equal(want))
			},
			Entry("first case", uint64(1), uint64(10)),
			Entry("second case", uint64(2), uint64(20)),
			Entry("default", uint64(7), uint64(99)),
		)
	})

	Describe("Functional-unit budgets", func() {
		threeAdds := func() *insts.Program {
			return mustProgram(insts.NewBlock("entry",
				add("x", "a", "b"), add("y", "a", "b"), add("z", "a", "b"), ret()))
		}

		It("should issue every ready instruction with unlimited units", func() {
			s := build(threeAdds(), regsWith(map[string]uint64{"a": 1, "b": 2}))
			s.Tick()

			Expect(rec.issues).To(HaveLen(3))
			for _, e := range rec.issues {
				Expect(e.Cycle).To(Equal(uint64(1)))
			}
		})

		It("should defer the instruction beyond the budget by one tick", func() {
			config.FU[insts.FUIntAdder] = 2
			s := build(threeAdds(), regsWith(map[string]uint64{"a": 1, "b": 2}))
			runToEnd(s, nil)

			Expect(rec.issueCycle("x")).To(Equal(uint64(1)))
			Expect(rec.issueCycle("y")).To(Equal(uint64(1)))
			Expect(rec.issueCycle("z")).To(Equal(uint64(2)))
			Expect(s.Stats().PeakFU[insts.FUIntAdder]).To(Equal(uint64(2)))
		})

		It("should refuse a zero budget for a used category", func() {
			config.FU[insts.FUIntAdder] = 0
			_, err := scheduler.New("Sched", sim.NewSerialEngine(), threeAdds(),
				regsWith(map[string]uint64{"a": 1, "b": 2}), config)
			Expect(err).To(MatchError(fu.ErrZeroBudget))
		})

		It("should report static usage per category", func() {
			s := build(threeAdds(), regsWith(map[string]uint64{"a": 1, "b": 2}))
			Expect(s.Stats().StaticFU[insts.FUIntAdder]).To(Equal(uint64(3)))
		})
	})

	Describe("Latency", func() {
		It("should update a zero-latency chain in the issuing tick", func() {
			shl := &insts.Template{
				Op: insts.OpShl, Type: insts.TypeI32, Dest: "s",
				Operands: []insts.Operand{insts.Reg("a"), insts.Const(2)},
			}
			and := &insts.Template{
				Op: insts.OpAnd, Type: insts.TypeI32, Dest: "m",
				Operands: []insts.Operand{insts.Reg("s"), insts.Const(0xC)},
			}
			prog := mustProgram(insts.NewBlock("entry", shl, and, ret()))
			rf := regsWith(map[string]uint64{"a": 3})
			s := build(prog, rf)

			Expect(s.Tick()).To(BeFalse())
			Expect(value(rf, "s")).To(Equal(uint64(12)))
			Expect(value(rf, "m")).To(Equal(uint64(12)))
		})

		It("should update a latency-L destination L ticks after issue", func() {
			mul := &insts.Template{
				Op: insts.OpMul, Type: insts.TypeI32, Dest: "m",
				Operands: []insts.Operand{insts.Reg("a"), insts.Reg("b")},
			}
			prog := mustProgram(insts.NewBlock("entry", mul, ret()))
			rf := regsWith(map[string]uint64{"a": 6, "b": 7})
			s := build(prog, rf)

			s.Tick()
			Expect(rec.issueCycle("m")).To(Equal(uint64(1)))
			s.Tick()
			s.Tick()
			Expect(value(rf, "m")).To(BeZero())
			s.Tick()
			Expect(value(rf, "m")).To(Equal(uint64(42)))
			Expect(rec.commitCycle("m")).To(Equal(uint64(4)))
		})

		It("should stall an in-flight instruction that loses its unit", func() {
			config.FU[insts.FUIntMultiplier] = 1
			mul := func(dest string) *insts.Template {
				return &insts.Template{
					Op: insts.OpMul, Type: insts.TypeI32, Dest: dest,
					Operands: []insts.Operand{insts.Reg("a"), insts.Reg("b")},
				}
			}
			prog := mustProgram(insts.NewBlock("entry", mul("m1"), mul("m2"), ret()))
			s := build(prog, regsWith(map[string]uint64{"a": 2, "b": 2}))
			runToEnd(s, nil)

			Expect(rec.issueCycle("m1")).To(Equal(uint64(1)))
			Expect(rec.commitCycle("m1")).To(Equal(uint64(4)))
			Expect(rec.issueCycle("m2")).To(Equal(uint64(4)))
			Expect(rec.commitCycle("m2")).To(Equal(uint64(7)))
		})
	})

	Describe("Lockstep", func() {
		program := func() *insts.Program {
			mul := &insts.Template{
				Op: insts.OpMul, Type: insts.TypeI32, Dest: "m",
				Operands: []insts.Operand{insts.Reg("a"), insts.Reg("b")},
			}
			return mustProgram(
				insts.NewBlock("first", mul, br("second")),
				insts.NewBlock("second", add("c", "a", "b"), ret()),
			)
		}

		It("should overlap blocks without lockstep", func() {
			config.SchedulingThreshold = 0
			s := build(program(), regsWith(map[string]uint64{"a": 1, "b": 2}))
			runToEnd(s, nil)
			Expect(rec.issueCycle("c")).To(Equal(uint64(2)))
		})

		It("should hold issue until every queue drains", func() {
			config.SchedulingThreshold = 0
			config.Lockstep = true
			s := build(program(), regsWith(map[string]uint64{"a": 1, "b": 2}))
			runToEnd(s, nil)
			Expect(rec.issueCycle("c")).To(Equal(uint64(4)))
		})
	})

	Describe("Dependencies", func() {
		It("should link a consumer to the most recent producer", func() {
			first := &insts.Template{
				Op: insts.OpMul, Type: insts.TypeI32, Dest: "x",
				Operands: []insts.Operand{insts.Reg("a"), insts.Reg("a")},
			}
			second := &insts.Template{
				Op: insts.OpShl, Type: insts.TypeI32, Dest: "x",
				Operands: []insts.Operand{insts.Reg("a"), insts.Const(4)},
			}
			use := add("y", "x", "a")
			prog := mustProgram(insts.NewBlock("entry", first, second, use, ret()))
			rf := regsWith(map[string]uint64{"a": 3})
			s := build(prog, rf)

			s.Tick()
			Expect(rec.issueCycle("y")).To(Equal(uint64(1)))
			runToEnd(s, nil)

			Expect(value(rf, "y")).To(Equal(uint64(48 + 3)))
		})

		It("should never issue a child before its parent commits", func() {
			mul := &insts.Template{
				Op: insts.OpMul, Type: insts.TypeI32, Dest: "m",
				Operands: []insts.Operand{insts.Reg("a"), insts.Reg("a")},
			}
			prog := mustProgram(insts.NewBlock("entry", mul, add("c", "m", "a"), ret()))
			rf := regsWith(map[string]uint64{"a": 5})
			s := build(prog, rf)
			runToEnd(s, nil)

			Expect(rec.issueCycle("c")).To(BeNumerically(">=", rec.commitCycle("m")))
			Expect(value(rf, "c")).To(Equal(uint64(30)))
		})

		It("should order instances of one template across loop iterations", func() {
			mul := &insts.Template{
				Op: insts.OpMul, Type: insts.TypeI32, Dest: "m",
				Operands: []insts.Operand{insts.Reg("a"), insts.Reg("a")},
			}
			phi := &insts.Template{
				Op: insts.OpPhi, Type: insts.TypeI32, Dest: "i",
				Incoming: []insts.Incoming{
					{Value: insts.Const(0), Block: "entry"},
					{Value: insts.Reg("inext"), Block: "loop"},
				},
			}
			inc := &insts.Template{
				Op: insts.OpAdd, Type: insts.TypeI32, Dest: "inext",
				Operands: []insts.Operand{insts.Reg("i"), insts.Const(1)},
			}
			cmp := &insts.Template{
				Op: insts.OpICmp, Type: insts.TypeI1, SrcType: insts.TypeI32,
				Pred: insts.PredEQ, Dest: "done",
				Operands: []insts.Operand{insts.Reg("inext"), insts.Const(2)},
			}
			back := &insts.Template{
				Op: insts.OpBr, Operands: []insts.Operand{insts.Reg("done")},
				Targets: []string{"exit", "loop"},
			}
			prog := mustProgram(
				insts.NewBlock("entry", br("loop")),
				insts.NewBlock("loop", phi, inc, mul, cmp, back),
				insts.NewBlock("exit", ret()),
			)
			rf := regsWith(map[string]uint64{"a": 3})
			s := build(prog, rf)
			runToEnd(s, nil)

			var issues, commits []uint64
			for _, e := range rec.issues {
				if e.Template == mul {
					issues = append(issues, e.Cycle)
				}
			}
			for _, e := range rec.commits {
				if e.Template == mul {
					commits = append(commits, e.Cycle)
				}
			}
			Expect(issues).To(HaveLen(2))
			Expect(commits).To(HaveLen(2))

			var loops []uint64
			for _, b := range rec.blocks {
				if b.Block == "loop" {
					loops = append(loops, b.Cycle)
				}
			}
			Expect(loops).To(HaveLen(2))
			Expect(loops[1]).To(BeNumerically("<", commits[0]))
			Expect(issues[1]).To(BeNumerically(">=", commits[0]))
			Expect(value(rf, "m")).To(Equal(uint64(9)))
		})

		It("should seed getelementptr from the base register", func() {
			gep := &insts.Template{
				Op: insts.OpGetElementPtr, Type: insts.TypePtr, Dest: "q",
				Operands: []insts.Operand{insts.Global("arr"), insts.Const(3)},
				Strides:  []uint64{4},
			}
			prog := mustProgram(insts.NewBlock("entry", gep, ret()))
			rf := regsWith(map[string]uint64{"arr": 0x1000})
			s := build(prog, rf)
			runToEnd(s, nil)

			Expect(value(rf, "q")).To(Equal(uint64(0x100C)))
			r, _ := rf.Find("q")
			Expect(r.Global()).To(BeTrue())
		})
	})

	Describe("Construction", func() {
		It("should refuse programs reading undefined registers", func() {
			prog := mustProgram(insts.NewBlock("entry", add("c", "a", "nope"), ret()))
			_, err := scheduler.New("Sched", sim.NewSerialEngine(), prog,
				regsWith(map[string]uint64{"a": 1}), config)
			Expect(err).To(MatchError(scheduler.ErrUndefined))
		})

		It("should refuse memory programs without memory", func() {
			load := &insts.Template{
				Op: insts.OpLoad, Type: insts.TypeI32, Dest: "x",
				Operands: []insts.Operand{insts.Reg("p")},
			}
			prog := mustProgram(insts.NewBlock("entry", load, ret()))
			_, err := scheduler.New("Sched", sim.NewSerialEngine(), prog,
				regsWith(map[string]uint64{"p": 0}), config)
			Expect(err).To(MatchError(scheduler.ErrNoMemory))
		})

		It("should refuse invalid configs", func() {
			config.ClockPeriodNS = 0
			prog := mustProgram(insts.NewBlock("entry", ret()))
			_, err := scheduler.New("Sched", sim.NewSerialEngine(), prog,
				regsWith(nil), config)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Run bounds", func() {
		It("should stop at the cycle limit", func() {
			config.SchedulingThreshold = 0
			config.MaxCycles = 10
			prog := mustProgram(insts.NewBlock("spin", br("spin")))
			s := build(prog, regsWith(nil))

			for s.Tick() {
			}

			Expect(s.Err()).To(MatchError(scheduler.ErrCycleLimit))
			Expect(s.Cycle()).To(Equal(uint64(10)))
		})

		It("should bound same-tick fallthrough of a self loop", func() {
			config.MaxCycles = 3
			prog := mustProgram(insts.NewBlock("spin", br("spin")))
			s := build(prog, regsWith(nil))

			for s.Tick() {
			}

			Expect(s.Err()).To(MatchError(scheduler.ErrCycleLimit))
			Expect(s.Stats().BlocksScheduled).To(Equal(uint64(6)))
		})

		It("should hold at the pause point without failing", func() {
			config.SchedulingThreshold = 0
			prog := mustProgram(insts.NewBlock("spin", br("spin")))
			s := build(prog, regsWith(nil))
			s.PauseAt(3)

			for s.Tick() {
			}

			Expect(s.Cycle()).To(Equal(uint64(3)))
			Expect(s.Paused()).To(BeTrue())
			Expect(s.Running()).To(BeTrue())
			Expect(s.Err()).NotTo(HaveOccurred())

			s.PauseAt(0)
			Expect(s.Tick()).To(BeTrue())
			Expect(s.Cycle()).To(Equal(uint64(4)))
		})
	})

	Describe("Determinism", func() {
		It("should repeat a run exactly from a cold register file", func() {
			config.FU = fu.UniformBudgets(1)
			mul := &insts.Template{
				Op: insts.OpMul, Type: insts.TypeI32, Dest: "m",
				Operands: []insts.Operand{insts.Reg("a"), insts.Reg("b")},
			}
			prog := mustProgram(insts.NewBlock("entry",
				mul, add("c", "m", "a"), add("d", "a", "b"), add("e", "c", "d"), ret(insts.Reg("e"))))
			cold := regsWith(map[string]uint64{"a": 3, "b": 4})

			run := func() (scheduler.Stats, map[string]uint64) {
				rf := cold.Clone()
				s, err := scheduler.New("Sched", sim.NewSerialEngine(), prog, rf, config)
				Expect(err).NotTo(HaveOccurred())
				runToEnd(s, nil)
				return s.Stats(), rf.Snapshot()
			}

			stats1, regs1 := run()
			stats2, regs2 := run()

			Expect(stats2.Cycles).To(Equal(stats1.Cycles))
			Expect(stats2.Activity).To(Equal(stats1.Activity))
			Expect(stats2.StallCauses).To(Equal(stats1.StallCauses))
			Expect(regs2).To(Equal(regs1))
			Expect(regs1["e"]).To(Equal(uint64(15 + 7)))
		})
	})
})
