// Package memctrl provides the memory collaborator of the scheduler.
//
// The controller accepts Akita read and write requests, keeps the data in
// an Akita storage, and answers each request after a latency decided by a
// cache model or a fixed delay. Answers are delivered from Akita events, so
// completions arrive out of band with respect to the scheduler's ticks.
package memctrl

import (
	"fmt"
	"log/slog"

	"github.com/sarchlab/akita/v4/mem/mem"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/accsim/timing/cache"
)

// Receiver takes completions.
type Receiver interface {
	Receive(rsp sim.Msg) error
}

// Stats holds memory traffic counters.
type Stats struct {
	Reads        uint64
	Writes       uint64
	BytesRead    uint64
	BytesWritten uint64
	// PortStalls counts cycles requests waited for a free port.
	PortStalls uint64
	Cache      cache.Statistics
}

// completionEvent finishes one request.
type completionEvent struct {
	*sim.EventBase
	read  *mem.ReadReq
	write *mem.WriteReq
}

// portBudget limits request starts per cycle.
type portBudget struct {
	ports int
	cycle uint64
	used  int
}

// claim returns the first cycle at or after now with a free port.
func (p *portBudget) claim(now uint64) uint64 {
	if p.ports == 0 {
		return now
	}

	if now > p.cycle {
		p.cycle = now
		p.used = 0
	}
	if p.used >= p.ports {
		p.cycle++
		p.used = 0
	}
	p.used++

	return p.cycle
}

// Controller is the memory collaborator.
type Controller struct {
	name     string
	engine   sim.Engine
	freq     sim.Freq
	config   *Config
	storage  *mem.Storage
	cache    *cache.Cache
	receiver Receiver
	logger   *slog.Logger

	readPorts  portBudget
	writePorts portBudget
	inflight   int
	stats      Stats
}

// Name returns the controller name.
func (c *Controller) Name() string {
	return c.name
}

// SetReceiver sets where completions go.
func (c *Controller) SetReceiver(r Receiver) {
	c.receiver = r
}

// Read accepts a read request.
func (c *Controller) Read(req *mem.ReadReq) {
	c.stats.Reads++
	c.stats.BytesRead += req.AccessByteSize

	lat := c.config.Latency
	if c.cache != nil {
		lat = c.cache.Read(req.Address, req.AccessByteSize).Latency
	}
	delay := c.portDelay(&c.readPorts)

	c.schedule(&completionEvent{read: req}, lat+delay)
}

// Write accepts a write request.
func (c *Controller) Write(req *mem.WriteReq) {
	c.stats.Writes++
	c.stats.BytesWritten += uint64(len(req.Data))

	lat := c.config.Latency
	if c.cache != nil {
		lat = c.cache.Write(req.Address, uint64(len(req.Data))).Latency
	}
	delay := c.portDelay(&c.writePorts)

	c.schedule(&completionEvent{write: req}, lat+delay)
}

func (c *Controller) portDelay(p *portBudget) uint64 {
	now := c.freq.Cycle(c.engine.CurrentTime())
	start := p.claim(now)
	if start > now {
		c.stats.PortStalls += start - now
	}
	return start - now
}

func (c *Controller) schedule(evt *completionEvent, cycles uint64) {
	if cycles == 0 {
		cycles = 1
	}

	at := c.freq.NCyclesLater(int(cycles), c.engine.CurrentTime())
	evt.EventBase = sim.NewEventBase(at, c)
	c.inflight++
	c.engine.Schedule(evt)
}

// Handle completes a request. It performs the access on the storage and
// hands the response to the receiver.
func (c *Controller) Handle(e sim.Event) error {
	evt, ok := e.(*completionEvent)
	if !ok {
		return fmt.Errorf("%s: unexpected event %T", c.name, e)
	}
	c.inflight--

	var rsp sim.Msg
	switch {
	case evt.read != nil:
		data, err := c.storage.Read(evt.read.Address, evt.read.AccessByteSize)
		if err != nil {
			return fmt.Errorf("%s: read 0x%x: %w", c.name, evt.read.Address, err)
		}
		rsp = mem.DataReadyRspBuilder{}.
			WithRspTo(evt.read.ID).
			WithData(data).
			Build()
		c.logger.Debug("read done", "addr", evt.read.Address, "req", evt.read.ID)

	case evt.write != nil:
		if err := c.storage.Write(evt.write.Address, evt.write.Data); err != nil {
			return fmt.Errorf("%s: write 0x%x: %w", c.name, evt.write.Address, err)
		}
		rsp = mem.WriteDoneRspBuilder{}.
			WithRspTo(evt.write.ID).
			Build()
		c.logger.Debug("write done", "addr", evt.write.Address, "req", evt.write.ID)
	}

	if c.receiver == nil {
		return fmt.Errorf("%s: no receiver", c.name)
	}
	return c.receiver.Receive(rsp)
}

// InFlight returns the number of requests not yet answered.
func (c *Controller) InFlight() int {
	return c.inflight
}

// Load writes data into storage directly, without timing. It is used to
// place the initial memory image.
func (c *Controller) Load(addr uint64, data []byte) error {
	return c.storage.Write(addr, data)
}

// Dump reads n bytes from storage directly, without timing.
func (c *Controller) Dump(addr, n uint64) ([]byte, error) {
	return c.storage.Read(addr, n)
}

// Stats returns the traffic counters.
func (c *Controller) Stats() Stats {
	s := c.stats
	if c.cache != nil {
		s.Cache = c.cache.Stats()
	}
	return s
}
