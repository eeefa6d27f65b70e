package hook

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/pmezard/go-difflib/difflib"
	"go.uber.org/zap"

	"github.com/muurk/hcishell/internal/tracefile"
	"github.com/muurk/hcishell/internal/transport"
)

// replayer serves a recorded session in place of a live device.
type replayer struct {
	mu     sync.Mutex
	frames []tracefile.Frame
	pos    int
	strict bool
	closed bool
	logger *zap.Logger
}

func newReplayer(frames []tracefile.Frame, strict bool, logger *zap.Logger) *replayer {
	return &replayer{frames: frames, strict: strict, logger: logger}
}

func (r *replayer) Send(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return transport.ErrClosed
	}

	if r.pos >= len(r.frames) || r.frames[r.pos].Direction != tracefile.Send {
		if r.strict {
			return &ReplayMismatchError{Frame: r.pos, Reason: "send not present in recording", Got: data}
		}
		r.logger.Debug("send not present in recording, ignored",
			zap.Int("frame", r.pos),
			zap.Int("length", len(data)),
		)
		return nil
	}

	want := r.frames[r.pos].Payload
	index := r.pos
	r.pos++

	if string(want) == string(data) {
		return nil
	}
	diff := payloadDiff(want, data)
	if r.strict {
		return &ReplayMismatchError{Frame: index, Reason: "sent bytes differ from recording\n" + diff, Want: want, Got: data}
	}
	r.logger.Warn("sent bytes differ from recording",
		zap.Int("frame", index),
		zap.String("diff", diff),
	)
	return nil
}

func (r *replayer) Recv(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, transport.ErrClosed
	}

	for r.pos < len(r.frames) && r.frames[r.pos].Direction == tracefile.Send {
		if r.strict {
			return nil, &ReplayMismatchError{
				Frame:  r.pos,
				Reason: "receive while the recording expects a send",
				Want:   r.frames[r.pos].Payload,
			}
		}
		r.logger.Debug("skipping recorded send that was never issued", zap.Int("frame", r.pos))
		r.pos++
	}

	if r.pos >= len(r.frames) {
		return nil, ErrReplayExhausted
	}

	payload := append([]byte(nil), r.frames[r.pos].Payload...)
	r.pos++
	return payload, nil
}

func (r *replayer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.closed && r.pos < len(r.frames) {
		r.logger.Debug("replay closed with frames remaining", zap.Int("remaining", len(r.frames)-r.pos))
	}
	r.closed = true
	return nil
}

// payloadDiff renders a unified diff of two payloads as 16-byte hex lines.
func payloadDiff(want, got []byte) string {
	diff := difflib.UnifiedDiff{
		A:        hexLines(want),
		B:        hexLines(got),
		FromFile: "recorded",
		ToFile:   "sent",
		Context:  1,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return fmt.Sprintf("recorded %x, sent %x", want, got)
	}
	return strings.TrimRight(text, "\n")
}

func hexLines(data []byte) []string {
	var lines []string
	for off := 0; off < len(data); off += 16 {
		end := off + 16
		if end > len(data) {
			end = len(data)
		}
		lines = append(lines, fmt.Sprintf("%04x  %s\n", off, hex.EncodeToString(data[off:end])))
	}
	return lines
}
