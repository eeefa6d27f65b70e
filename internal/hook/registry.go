package hook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/hcishell/internal/tracefile"
	"github.com/muurk/hcishell/internal/transport"
)

// Variant names a hook implementation.
type Variant string

const (
	VariantTrace  Variant = "trace"
	VariantRecord Variant = "record"
	VariantReplay Variant = "replay"
)

// ParseVariant maps a user supplied hook name to a Variant. "save" is
// accepted as an alias for record.
func ParseVariant(name string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return VariantTrace, nil
	case "record", "save":
		return VariantRecord, nil
	case "replay":
		return VariantReplay, nil
	default:
		return "", &UnknownVariantError{Name: name}
	}
}

// Options configures one attachment.
type Options struct {
	// Filename is the trace file for record and replay.
	Filename string
	// Strict makes replay reject sends that differ from the recording.
	Strict bool
}

// Dialer opens the live transport of a backend.
type Dialer func(ctx context.Context) (transport.Transport, error)

type attachment struct {
	variant Variant
	opts    Options
	frames  []tracefile.Frame
}

// Registry holds the hooks attached to each backend kind.
type Registry struct {
	mu       sync.Mutex
	attached map[transport.Kind][]attachment
	opened   map[transport.Kind]bool
	files    map[string]*recordFile
	logger   *zap.Logger
}

// NewRegistry returns an empty registry. A nil logger disables hook logging.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		attached: make(map[transport.Kind][]attachment),
		opened:   make(map[transport.Kind]bool),
		files:    make(map[string]*recordFile),
		logger:   logger,
	}
}

// Attach installs a hook for all future opens of kind.
func (r *Registry) Attach(kind transport.Kind, variant Variant, opts Options) error {
	switch variant {
	case VariantTrace, VariantRecord, VariantReplay:
	default:
		return &UnknownVariantError{Name: string(variant)}
	}
	if (variant == VariantRecord || variant == VariantReplay) && opts.Filename == "" {
		return fmt.Errorf("%s hook needs a file name", variant)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.opened[kind] {
		return fmt.Errorf("%s: %w", kind, ErrAttachAfterOpen)
	}
	for _, a := range r.attached[kind] {
		if a.variant == variant {
			return fmt.Errorf("%s on %s: %w", variant, kind, ErrDuplicateHook)
		}
	}

	a := attachment{variant: variant, opts: opts}
	if variant == VariantReplay {
		frames, err := tracefile.ReadAll(opts.Filename)
		if err != nil {
			if opts.Strict || !errors.Is(err, tracefile.ErrTruncated) {
				return &ReplayFileError{Path: opts.Filename, Err: err}
			}
			r.logger.Warn("trace file ends mid-frame; replaying the intact frames",
				zap.String("file", opts.Filename),
				zap.Int("frames", len(frames)),
				zap.Error(err),
			)
		}
		a.frames = frames
	}

	r.attached[kind] = append(r.attached[kind], a)
	r.logger.Debug("hook attached",
		zap.String("backend", string(kind)),
		zap.String("variant", string(variant)),
		zap.String("file", opts.Filename),
	)
	return nil
}

// AttachAll attaches the same hook to every kind.
func (r *Registry) AttachAll(kinds []transport.Kind, variant Variant, opts Options) error {
	for _, kind := range kinds {
		if err := r.Attach(kind, variant, opts); err != nil {
			return err
		}
	}
	return nil
}

// Detach removes every hook of kind. It fails once kind has been opened.
func (r *Registry) Detach(kind transport.Kind) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.opened[kind] {
		return fmt.Errorf("%s: %w", kind, ErrAttachAfterOpen)
	}
	delete(r.attached, kind)
	return nil
}

// Attached returns the variants attached to kind in attach order.
func (r *Registry) Attached(kind transport.Kind) []Variant {
	r.mu.Lock()
	defer r.mu.Unlock()

	variants := make([]Variant, 0, len(r.attached[kind]))
	for _, a := range r.attached[kind] {
		variants = append(variants, a.variant)
	}
	return variants
}

// Replaying reports whether kind has a replay hook.
func (r *Registry) Replaying(kind transport.Kind) bool {
	for _, v := range r.Attached(kind) {
		if v == VariantReplay {
			return true
		}
	}
	return false
}

// Open builds the transport for kind. With a replay hook, dial is never
// called. Other hooks wrap the base transport in attach order, so the last
// attached hook sees calls first.
func (r *Registry) Open(ctx context.Context, kind transport.Kind, dial Dialer) (transport.Transport, error) {
	r.mu.Lock()
	attached := append([]attachment(nil), r.attached[kind]...)
	r.opened[kind] = true
	r.mu.Unlock()

	var base transport.Transport
	for _, a := range attached {
		if a.variant == VariantReplay {
			base = newReplayer(a.frames, a.opts.Strict, r.logger.With(zap.String("backend", string(kind))))
			r.logger.Info("replaying recorded session",
				zap.String("file", a.opts.Filename),
				zap.Int("frames", len(a.frames)),
			)
			break
		}
	}

	if base == nil {
		live, err := dial(ctx)
		if err != nil {
			return nil, err
		}
		base = live
	}

	t := base
	for _, a := range attached {
		switch a.variant {
		case VariantTrace:
			t = &tracer{inner: t, logger: r.logger.Named("trace").With(zap.String("backend", string(kind)))}
		case VariantRecord:
			t = &recorder{inner: t, file: r.recordFile(a.opts.Filename)}
		}
	}
	return t, nil
}

// Close flushes and releases every record file.
func (r *Registry) Close() error {
	r.mu.Lock()
	files := r.files
	r.files = make(map[string]*recordFile)
	r.mu.Unlock()

	var firstErr error
	for _, f := range files {
		if err := f.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// recordFile returns the shared file for path, creating it on first use.
func (r *Registry) recordFile(path string) *recordFile {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f, ok := r.files[path]; ok {
		return f
	}
	f := openRecordFile(path, r.logger.Named("record"))
	r.files[path] = f
	return f
}
