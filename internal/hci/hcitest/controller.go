// Package hcitest provides an in-memory controller for tests that need a
// transport speaking HCI.
package hcitest

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/muurk/hcishell/internal/hci"
	"github.com/muurk/hcishell/internal/transport"
)

// Controller is a transport.Transport answering HCI commands like a
// Broadcom controller with a flat RAM. It is safe for concurrent use.
type Controller struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending [][]byte
	closed  bool

	// Subversion is reported by Read Local Version Information.
	Subversion uint16
	// Manufacturer is reported by Read Local Version Information.
	Manufacturer uint16
	// Memory backs the Broadcom RAM commands; unset bytes read as zero.
	Memory map[uint32]byte
	// Status overrides the completion status per opcode.
	Status map[uint16]byte
	// Sent records every packet received from the host.
	Sent [][]byte
}

// NewController returns a controller reporting subversion.
func NewController(subversion uint16) *Controller {
	c := &Controller{
		Subversion:   subversion,
		Manufacturer: 0x000f,
		Memory:       make(map[uint32]byte),
		Status:       make(map[uint16]byte),
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Complete builds a Command Complete event.
func Complete(opcode uint16, status byte, ret ...byte) []byte {
	params := []byte{0x01, byte(opcode), byte(opcode >> 8), status}
	params = append(params, ret...)
	return append([]byte{transport.PacketEvent, hci.EventCommandComplete, byte(len(params))}, params...)
}

// Inject queues an unsolicited packet for the host.
func (c *Controller) Inject(pkt []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, pkt)
	c.cond.Broadcast()
}

// Send implements transport.Transport.
func (c *Controller) Send(_ context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return transport.ErrClosed
	}
	c.Sent = append(c.Sent, append([]byte(nil), data...))
	if len(data) < 4 || data[0] != transport.PacketCommand {
		return nil
	}
	opcode := binary.LittleEndian.Uint16(data[1:3])
	c.pending = append(c.pending, c.respond(opcode, data[4:]))
	c.cond.Broadcast()
	return nil
}

func (c *Controller) respond(opcode uint16, params []byte) []byte {
	if status, ok := c.Status[opcode]; ok && status != 0 {
		return Complete(opcode, status)
	}
	switch opcode {
	case hci.OpReadLocalVersion:
		ret := make([]byte, 8)
		ret[0] = 0x09
		ret[3] = 0x09
		binary.LittleEndian.PutUint16(ret[4:6], c.Manufacturer)
		binary.LittleEndian.PutUint16(ret[6:8], c.Subversion)
		return Complete(opcode, 0, ret...)
	case hci.OpReadBDAddr:
		return Complete(opcode, 0, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11)
	case hci.OpBroadcomReadRAM:
		if len(params) < 5 {
			return Complete(opcode, 0x12)
		}
		addr := binary.LittleEndian.Uint32(params[0:4])
		ret := make([]byte, params[4])
		for i := range ret {
			ret[i] = c.Memory[addr+uint32(i)]
		}
		return Complete(opcode, 0, ret...)
	case hci.OpBroadcomWriteRAM:
		if len(params) < 4 {
			return Complete(opcode, 0x12)
		}
		addr := binary.LittleEndian.Uint32(params[0:4])
		for i, b := range params[4:] {
			c.Memory[addr+uint32(i)] = b
		}
		return Complete(opcode, 0)
	default:
		return Complete(opcode, 0)
	}
}

// Recv implements transport.Transport; it blocks until a packet is queued,
// the context ends or the controller is closed.
func (c *Controller) Recv(ctx context.Context) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.cond.Broadcast()
	})
	defer stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.pending) == 0 {
		if c.closed {
			return nil, transport.ErrClosed
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c.cond.Wait()
	}
	pkt := c.pending[0]
	c.pending = c.pending[1:]
	return pkt, nil
}

// Close implements transport.Transport.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.cond.Broadcast()
	return nil
}

// Closed reports whether Close was called.
func (c *Controller) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// SentCount returns the number of packets received from the host.
func (c *Controller) SentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Sent)
}
