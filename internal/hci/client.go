package hci

import (
	"context"
	"encoding/binary"
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/hcishell/internal/transport"
)

// MaxRAMChunk is the largest block moved by one Broadcom RAM command.
const MaxRAMChunk = 251

// MaxUnrelated bounds the packets Do skips while waiting for a completion.
const MaxUnrelated = 64

// Client runs HCI exchanges over a transport. It is not safe for concurrent
// exchanges; the shell runs one command at a time.
type Client struct {
	t      transport.Transport
	logger *zap.Logger
	// OnEvent receives events that are not the awaited completion.
	OnEvent func(pkt []byte)
}

// NewClient returns a client over t.
func NewClient(t transport.Transport, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{t: t, logger: logger}
}

// Transport returns the underlying transport.
func (c *Client) Transport() transport.Transport {
	return c.t
}

// Do sends a command and waits for its Command Complete. A Command Status
// with a non-zero status ends the wait with a StatusError, and more than
// MaxUnrelated other packets end it with a NoCompletionError. A non-zero
// status in the completion is not an error; callers inspect Status.
func (c *Client) Do(ctx context.Context, opcode uint16, params []byte) (*CommandComplete, error) {
	pkt, err := Command(opcode, params)
	if err != nil {
		return nil, err
	}
	if err := c.t.Send(ctx, pkt); err != nil {
		return nil, fmt.Errorf("send command 0x%04x: %w", opcode, err)
	}

	for skipped := 0; ; skipped++ {
		if skipped >= MaxUnrelated {
			return nil, &NoCompletionError{Opcode: opcode, Skipped: skipped}
		}
		resp, err := c.t.Recv(ctx)
		if err != nil {
			return nil, fmt.Errorf("wait for command 0x%04x: %w", opcode, err)
		}

		ev, err := ParseEvent(resp)
		if err != nil {
			c.unrelated(resp)
			continue
		}

		switch ev.Code {
		case EventCommandComplete:
			cc, err := ev.ParseCommandComplete()
			if err != nil {
				return nil, err
			}
			if cc.Opcode == opcode {
				return cc, nil
			}
		case EventCommandStatus:
			cs, err := ev.ParseCommandStatus()
			if err != nil {
				return nil, err
			}
			if cs.Opcode == opcode && cs.Status != 0 {
				return nil, &StatusError{Opcode: opcode, Status: cs.Status}
			}
		}
		c.unrelated(resp)
	}
}

// Exec is Do with a non-zero completion status turned into a StatusError.
func (c *Client) Exec(ctx context.Context, opcode uint16, params []byte) ([]byte, error) {
	cc, err := c.Do(ctx, opcode, params)
	if err != nil {
		return nil, err
	}
	if cc.Status != 0 {
		return nil, &StatusError{Opcode: opcode, Status: cc.Status}
	}
	return cc.Return, nil
}

func (c *Client) unrelated(pkt []byte) {
	if len(pkt) == 0 {
		return
	}
	if c.OnEvent != nil {
		c.OnEvent(pkt)
		return
	}
	c.logger.Debug("ignoring unrelated packet",
		zap.String("type", transport.PacketTypeName(pkt[0])),
		zap.Int("length", len(pkt)),
	)
}

// ReadLocalVersion runs Read Local Version Information.
func (c *Client) ReadLocalVersion(ctx context.Context) (*LocalVersion, error) {
	ret, err := c.Exec(ctx, OpReadLocalVersion, nil)
	if err != nil {
		return nil, err
	}
	return ParseLocalVersion(ret)
}

// ReadBDAddr returns the controller's public address, most significant
// byte first.
func (c *Client) ReadBDAddr(ctx context.Context) ([6]byte, error) {
	var addr [6]byte
	ret, err := c.Exec(ctx, OpReadBDAddr, nil)
	if err != nil {
		return addr, err
	}
	if len(ret) < 6 {
		return addr, fmt.Errorf("read bd_addr: need 6 bytes, have %d", len(ret))
	}
	for i := 0; i < 6; i++ {
		addr[i] = ret[5-i]
	}
	return addr, nil
}

// ReadRAM reads length bytes at addr with the Broadcom vendor command,
// in chunks of MaxRAMChunk. progress, when set, is called after every chunk.
func (c *Client) ReadRAM(ctx context.Context, addr, length uint32, progress func(done uint32)) ([]byte, error) {
	out := make([]byte, 0, length)
	for done := uint32(0); done < length; {
		n := length - done
		if n > MaxRAMChunk {
			n = MaxRAMChunk
		}
		params := make([]byte, 5)
		binary.LittleEndian.PutUint32(params[0:4], addr+done)
		params[4] = byte(n)

		ret, err := c.Exec(ctx, OpBroadcomReadRAM, params)
		if err != nil {
			return out, fmt.Errorf("read 0x%x bytes at 0x%08x: %w", n, addr+done, err)
		}
		if uint32(len(ret)) < n {
			return out, fmt.Errorf("read at 0x%08x: controller returned %d of %d bytes", addr+done, len(ret), n)
		}
		out = append(out, ret[:n]...)
		done += n
		if progress != nil {
			progress(done)
		}
	}
	return out, nil
}

// WriteRAM writes data at addr with the Broadcom vendor command.
func (c *Client) WriteRAM(ctx context.Context, addr uint32, data []byte, progress func(done uint32)) error {
	const chunk = MaxParams - 4
	for done := 0; done < len(data); {
		n := len(data) - done
		if n > chunk {
			n = chunk
		}
		params := make([]byte, 4+n)
		binary.LittleEndian.PutUint32(params[0:4], addr+uint32(done))
		copy(params[4:], data[done:done+n])

		if _, err := c.Exec(ctx, OpBroadcomWriteRAM, params); err != nil {
			return fmt.Errorf("write 0x%x bytes at 0x%08x: %w", n, addr+uint32(done), err)
		}
		done += n
		if progress != nil {
			progress(uint32(done))
		}
	}
	return nil
}

// Reset runs HCI Reset.
func (c *Client) Reset(ctx context.Context) error {
	_, err := c.Exec(ctx, OpReset, nil)
	return err
}
