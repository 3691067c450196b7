package scheduler

import (
	"fmt"

	"github.com/sarchlab/akita/v4/mem/mem"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/accsim/emu"
)

// Memory is the collaborator that performs loads and stores. A request is
// handed over when the instruction issues. The collaborator later passes
// exactly one response per request to Scheduler.Receive: a
// *mem.DataReadyRsp for reads and a *mem.WriteDoneRsp for writes, each
// naming the request ID it answers. Responses may arrive in any order.
type Memory interface {
	Read(req *mem.ReadReq)
	Write(req *mem.WriteReq)
}

// issueLoad moves a ready load into the read queue and sends its request.
func (s *Scheduler) issueLoad(h Handle, n *node) {
	n.addr = n.operands[0]

	req := mem.ReadReqBuilder{}.
		WithAddress(n.addr).
		WithByteSize(n.tmpl.Type.Size()).
		Build()
	n.reqID = req.ID

	s.readQueue.push(h)
	s.pending[req.ID] = h

	if n.global {
		s.stats.GlobalReads++
	} else {
		s.stats.LocalReads++
	}

	s.logger.Debug("load issued",
		"cycle", s.cycle, "seq", n.seq, "addr", n.addr, "req", req.ID)

	s.memory.Read(req)
}

// issueStore moves a ready store into the write queue and sends its
// request carrying the encoded value.
func (s *Scheduler) issueStore(h Handle, n *node) {
	n.addr = n.operands[1]

	req := mem.WriteReqBuilder{}.
		WithAddress(n.addr).
		WithData(emu.EncodeStore(n.operands[0], n.tmpl.Type)).
		Build()
	n.reqID = req.ID

	s.writeQueue.push(h)
	s.pending[req.ID] = h

	if n.global {
		s.stats.GlobalWrites++
	} else {
		s.stats.LocalWrites++
	}

	s.logger.Debug("store issued",
		"cycle", s.cycle, "seq", n.seq, "addr", n.addr, "req", req.ID)

	s.memory.Write(req)
}

// Receive delivers a memory completion. The completion is matched to its
// load or store by request ID, never by address. The instruction commits
// immediately and leaves its queue.
func (s *Scheduler) Receive(rsp sim.Msg) error {
	var (
		id   string
		data []byte
		read bool
	)

	switch rsp := rsp.(type) {
	case *mem.DataReadyRsp:
		id, data, read = rsp.RespondTo, rsp.Data, true
	case *mem.WriteDoneRsp:
		id = rsp.RespondTo
	default:
		err := fmt.Errorf("%w: unexpected response %T", ErrUnknownReq, rsp)
		s.fail(err)
		return err
	}

	h, ok := s.pending[id]
	n := s.arena.get(h)
	if !ok || n == nil || n.isLoad() != read {
		err := fmt.Errorf("%w: %s", ErrUnknownReq, id)
		s.fail(err)
		return err
	}
	delete(s.pending, id)

	if read {
		n.result = emu.DecodeLoad(data, n.tmpl.Type)
		s.readQueue.remove(h)
	} else {
		s.writeQueue.remove(h)
	}

	s.logger.Debug("memory completed",
		"cycle", s.cycle, "seq", n.seq, "req", id, "read", read)

	s.commit(h, n)

	return nil
}
