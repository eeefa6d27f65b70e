package hook

import (
	"context"
	"sync"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/muurk/hcishell/internal/tracefile"
	"github.com/muurk/hcishell/internal/transport"
)

// recordFile is one trace file shared by every recorder writing to it.
// After the first failure it drops further frames.
type recordFile struct {
	mu     sync.Mutex
	path   string
	w      *tracefile.Writer
	lock   *flock.Flock
	failed bool
	logger *zap.Logger
}

func openRecordFile(path string, logger *zap.Logger) *recordFile {
	f := &recordFile{path: path, logger: logger}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		f.fail("cannot lock trace file", err)
		return f
	}
	if !locked {
		f.fail("trace file is in use by another process", nil)
		return f
	}
	f.lock = lock

	w, err := tracefile.CreateWriter(path)
	if err != nil {
		_ = lock.Unlock()
		f.lock = nil
		f.fail("cannot open trace file", err)
		return f
	}
	f.w = w
	logger.Info("recording session", zap.String("file", path))
	return f
}

// fail logs the first error and disables the file. Callers hold mu or own f
// exclusively.
func (f *recordFile) fail(msg string, err error) {
	if f.failed {
		return
	}
	f.failed = true
	fields := []zap.Field{zap.String("file", f.path)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	f.logger.Warn(msg+"; recording disabled, session continues", fields...)
}

func (f *recordFile) write(dir tracefile.Direction, payload []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failed || f.w == nil {
		return
	}
	if err := f.w.WriteFrame(tracefile.Frame{Direction: dir, Payload: payload}); err != nil {
		f.fail("failed to record frame", err)
	}
}

func (f *recordFile) close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var err error
	if f.w != nil {
		err = f.w.Close()
		f.logger.Debug("trace file closed",
			zap.String("file", f.path),
			zap.Int("frames", f.w.Frames()),
		)
		f.w = nil
	}
	if f.lock != nil {
		_ = f.lock.Unlock()
		f.lock = nil
	}
	f.failed = true
	return err
}

type recorder struct {
	inner transport.Transport
	file  *recordFile
}

func (r *recorder) Send(ctx context.Context, data []byte) error {
	if err := r.inner.Send(ctx, data); err != nil {
		return err
	}
	r.file.write(tracefile.Send, data)
	return nil
}

func (r *recorder) Recv(ctx context.Context) ([]byte, error) {
	data, err := r.inner.Recv(ctx)
	if err != nil {
		return nil, err
	}
	r.file.write(tracefile.Recv, data)
	return data, nil
}

func (r *recorder) Close() error {
	return r.inner.Close()
}
