package tracefile

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// Magic identifies a trace file.
const Magic = "HCISHTR1"

// MaxPayload bounds a single frame so a corrupt length cannot exhaust memory.
const MaxPayload = 1 << 20

const headerLen = 5

// Direction of a recorded frame.
type Direction byte

const (
	// Send frames carry bytes written to the controller.
	Send Direction = 0x01
	// Recv frames carry bytes read from the controller.
	Recv Direction = 0x02
)

// String returns "send" or "recv".
func (d Direction) String() string {
	switch d {
	case Send:
		return "send"
	case Recv:
		return "recv"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(d))
	}
}

var (
	// ErrBadMagic is returned when a file does not start with Magic.
	ErrBadMagic = errors.New("not a trace file (bad magic)")
	// ErrTruncated is returned when the file ends inside a frame.
	ErrTruncated = errors.New("trace file truncated mid-frame")
	// ErrBadDirection is returned for a frame with an unknown direction byte.
	ErrBadDirection = errors.New("invalid frame direction")
	// ErrFrameTooLarge is returned for a frame longer than MaxPayload.
	ErrFrameTooLarge = errors.New("frame exceeds maximum payload size")
)

// Frame is one recorded transport call.
type Frame struct {
	Direction Direction
	Payload   []byte
}

// String returns a debug representation of the frame
func (f Frame) String() string {
	return fmt.Sprintf("Frame{%s, %d bytes}", f.Direction, len(f.Payload))
}

// MarshalBinary encodes the frame header and payload.
func (f Frame) MarshalBinary() ([]byte, error) {
	if f.Direction != Send && f.Direction != Recv {
		return nil, ErrBadDirection
	}
	if len(f.Payload) > MaxPayload {
		return nil, ErrFrameTooLarge
	}
	buf := make([]byte, headerLen+len(f.Payload))
	buf[0] = byte(f.Direction)
	binary.BigEndian.PutUint32(buf[1:headerLen], uint32(len(f.Payload)))
	copy(buf[headerLen:], f.Payload)
	return buf, nil
}

// Reader reads frames sequentially.
type Reader struct {
	r     io.Reader
	index int
}

// NewReader checks the magic and returns a frame reader.
func NewReader(r io.Reader) (*Reader, error) {
	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(r, magic); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrBadMagic
		}
		return nil, fmt.Errorf("failed to read trace header: %w", err)
	}
	if !bytes.Equal(magic, []byte(Magic)) {
		return nil, ErrBadMagic
	}
	return &Reader{r: r}, nil
}

// ReadFrame returns the next frame, or io.EOF at a clean end of file.
func (r *Reader) ReadFrame() (Frame, error) {
	header := make([]byte, headerLen)
	n, err := io.ReadFull(r.r, header)
	if err != nil {
		if errors.Is(err, io.EOF) && n == 0 {
			return Frame{}, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, fmt.Errorf("frame %d: %w", r.index, ErrTruncated)
		}
		return Frame{}, fmt.Errorf("frame %d: failed to read header: %w", r.index, err)
	}

	dir := Direction(header[0])
	if dir != Send && dir != Recv {
		return Frame{}, fmt.Errorf("frame %d: %w 0x%02x", r.index, ErrBadDirection, header[0])
	}
	length := binary.BigEndian.Uint32(header[1:])
	if length > MaxPayload {
		return Frame{}, fmt.Errorf("frame %d: %w (%d bytes)", r.index, ErrFrameTooLarge, length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, fmt.Errorf("frame %d: %w", r.index, ErrTruncated)
		}
		return Frame{}, fmt.Errorf("frame %d: failed to read payload: %w", r.index, err)
	}

	r.index++
	return Frame{Direction: dir, Payload: payload}, nil
}

// ReadAll loads every frame of the trace file at path. When the file ends
// inside a frame, the intact frames before it are returned together with an
// error wrapping ErrTruncated.
func ReadAll(path string) ([]Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := NewReader(bufio.NewReader(f))
	if err != nil {
		return nil, err
	}

	var frames []Frame
	for {
		frame, err := r.ReadFrame()
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if errors.Is(err, ErrTruncated) {
			return frames, err
		}
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
}
