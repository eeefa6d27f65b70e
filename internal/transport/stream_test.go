package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamSendRecv(t *testing.T) {
	local, remote := net.Pipe()
	s := NewStream(local)
	defer s.Close()
	defer remote.Close()

	ctx := context.Background()

	go func() {
		buf := make([]byte, 4)
		if _, err := io.ReadFull(remote, buf); err != nil {
			return
		}
		// answer with a command complete for the received opcode
		_, _ = remote.Write([]byte{0x04, 0x0e, 0x04, 0x01, buf[1], buf[2], 0x00})
	}()

	require.NoError(t, s.Send(ctx, []byte{0x01, 0x03, 0x0c, 0x00}))
	pkt, err := s.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x04, 0x0e, 0x04, 0x01, 0x03, 0x0c, 0x00}, pkt)
}

func TestStreamRecvHonoursCancel(t *testing.T) {
	local, remote := net.Pipe()
	s := NewStream(local)
	defer s.Close()
	defer remote.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := s.Recv(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	// the stream stays usable after a cancelled receive
	go func() {
		_, _ = remote.Write([]byte{0x04, 0x0f, 0x00})
	}()
	pkt, err := s.Recv(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte{0x04, 0x0f, 0x00}, pkt)
}

// emptyReads returns zero-byte reads until data is queued, like a serial port
// opened with an inter-character timeout.
type emptyReads struct {
	mu   sync.Mutex
	data []byte
}

func (e *emptyReads) Read(p []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.data) == 0 {
		time.Sleep(time.Millisecond)
		return 0, io.EOF
	}
	n := copy(p, e.data)
	e.data = e.data[n:]
	return n, nil
}

func (e *emptyReads) Write(p []byte) (int, error) { return len(p), nil }
func (e *emptyReads) Close() error                { return nil }

func (e *emptyReads) push(b []byte) {
	e.mu.Lock()
	e.data = append(e.data, b...)
	e.mu.Unlock()
}

func TestStreamPolling(t *testing.T) {
	port := &emptyReads{}
	s := NewStream(port, WithPolling())

	go func() {
		time.Sleep(10 * time.Millisecond)
		port.push([]byte{0x04, 0x0e, 0x01, 0x01})
	}()

	pkt, err := s.Recv(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte{0x04, 0x0e, 0x01, 0x01}, pkt)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.Recv(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

func TestStreamClosed(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()
	s := NewStream(local)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	err := s.Send(context.Background(), []byte{0x01, 0x03, 0x0c, 0x00})
	assert.ErrorIs(t, err, ErrClosed)
}
