package transport

import (
	"bufio"
	"context"
	"errors"
	"io"
	"sync"
	"time"
)

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// StreamOption configures a Stream.
type StreamOption func(*Stream)

// WithPolling treats an empty read (0 bytes with nil or io.EOF) as "no data
// yet" and retries until the context is done. Serial ports opened with an
// inter-character timeout behave this way.
func WithPolling() StreamOption {
	return func(s *Stream) {
		s.src.poll = true
	}
}

// Stream adapts a byte stream carrying H4 packets to a Transport.
type Stream struct {
	rwc io.ReadWriteCloser
	src *ctxReader
	in  *bufio.Reader

	rmu sync.Mutex
	wmu sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error
}

// NewStream wraps rwc. The stream owns rwc and closes it on Close.
func NewStream(rwc io.ReadWriteCloser, opts ...StreamOption) *Stream {
	s := &Stream{
		rwc:    rwc,
		closed: make(chan struct{}),
	}
	s.src = &ctxReader{r: rwc, closed: s.closed}
	for _, opt := range opts {
		opt(s)
	}
	s.in = bufio.NewReaderSize(s.src, 4096)
	return s
}

// Send writes one packet.
func (s *Stream) Send(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-s.closed:
		return ErrClosed
	default:
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()

	if wd, ok := s.rwc.(writeDeadliner); ok {
		if dl, ok := ctx.Deadline(); ok {
			_ = wd.SetWriteDeadline(dl)
			defer wd.SetWriteDeadline(time.Time{})
		}
	}

	for len(data) > 0 {
		n, err := s.rwc.Write(data)
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// Recv reads the next complete packet.
func (s *Stream) Recv(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.rmu.Lock()
	defer s.rmu.Unlock()

	s.src.ctx = ctx
	defer func() { s.src.ctx = nil }()

	if rd, ok := s.rwc.(readDeadliner); ok {
		stop := context.AfterFunc(ctx, func() {
			_ = rd.SetReadDeadline(time.Unix(1, 0))
		})
		defer func() {
			if !stop() {
				_ = rd.SetReadDeadline(time.Time{})
			}
		}()
	}

	pkt, err := ReadPacket(s.in)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		select {
		case <-s.closed:
			return nil, ErrClosed
		default:
		}
		return nil, err
	}
	return pkt, nil
}

// Close closes the underlying stream. It is safe to call more than once.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.closeErr = s.rwc.Close()
	})
	return s.closeErr
}

// ctxReader makes polling reads observe the current Recv context.
type ctxReader struct {
	r      io.Reader
	ctx    context.Context
	poll   bool
	closed chan struct{}
}

func (c *ctxReader) Read(p []byte) (int, error) {
	for {
		n, err := c.r.Read(p)
		if n > 0 || !c.poll {
			return n, err
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return n, err
		}
		select {
		case <-c.closed:
			return 0, ErrClosed
		default:
		}
		if c.ctx != nil {
			if ctxErr := c.ctx.Err(); ctxErr != nil {
				return 0, ctxErr
			}
		}
	}
}
