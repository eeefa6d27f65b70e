package tracefile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

type syncer interface {
	Sync() error
}

// Writer writes frames to a trace and flushes after each one, so a crash
// loses at most the frame being written.
type Writer struct {
	w      io.Writer
	closer io.Closer
	frames int
}

// NewWriter writes the magic to w and returns a frame writer.
func NewWriter(w io.Writer) (*Writer, error) {
	if _, err := io.WriteString(w, Magic); err != nil {
		return nil, fmt.Errorf("failed to write trace header: %w", err)
	}
	return &Writer{w: w}, nil
}

// CreateWriter starts a new trace at path. An existing trace file is
// replaced; any other non-empty file is left alone and ErrBadMagic returned.
func CreateWriter(path string) (*Writer, error) {
	if err := checkReplaceable(path); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(f, Magic); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write trace header: %w", err)
	}
	return &Writer{w: f, closer: f}, nil
}

func checkReplaceable(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	magic := make([]byte, len(Magic))
	n, err := io.ReadFull(f, magic)
	if n == 0 && errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil || !bytes.Equal(magic, []byte(Magic)) {
		return fmt.Errorf("%s: %w", path, ErrBadMagic)
	}
	return nil
}

// WriteFrame appends one frame and syncs the underlying file.
func (w *Writer) WriteFrame(f Frame) error {
	buf, err := f.MarshalBinary()
	if err != nil {
		return err
	}
	if _, err := w.w.Write(buf); err != nil {
		return fmt.Errorf("failed to write frame %d: %w", w.frames, err)
	}
	if s, ok := w.w.(syncer); ok {
		if err := s.Sync(); err != nil {
			return fmt.Errorf("failed to sync frame %d: %w", w.frames, err)
		}
	}
	w.frames++
	return nil
}

// Frames returns the number of frames written by this writer.
func (w *Writer) Frames() int {
	return w.frames
}

// Close closes the underlying file if the writer owns it.
func (w *Writer) Close() error {
	if w.closer == nil {
		return nil
	}
	return w.closer.Close()
}
