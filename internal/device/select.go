package device

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ReplayInterface is the interface id of the synthetic replay record.
const ReplayInterface = "replay"

// Options controls Select.
type Options struct {
	// Interface selects a device by exact interface id.
	Interface string
	// Replay bypasses enumeration and returns a synthetic record.
	Replay bool
	// Chooser is asked when several candidates remain. Nil means
	// non-interactive.
	Chooser Chooser
	Logger  *zap.Logger
}

// Select resolves the device a session will use.
func Select(ctx context.Context, backends []Backend, opts Options) (Record, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if opts.Replay {
		if len(backends) != 1 {
			return Record{}, fmt.Errorf("%w (have %d)", ErrReplayBackend, len(backends))
		}
		b := backends[0]
		return Record{Backend: b, Interface: ReplayInterface, Label: b.Name() + " (replay)"}, nil
	}

	candidates := Enumerate(ctx, backends, logger)
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	return Choose(ctx, candidates, opts)
}

// Choose applies the selection rules of Select to already enumerated
// candidates. Replay is ignored.
func Choose(ctx context.Context, candidates []Record, opts Options) (Record, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if opts.Interface != "" {
		var matches []Record
		for _, rec := range candidates {
			if rec.Interface == opts.Interface {
				matches = append(matches, rec)
			}
		}
		switch len(matches) {
		case 0:
			return Record{}, fmt.Errorf("%w: %q (available: %s)", ErrNoMatchingDevice, opts.Interface, interfaceList(candidates))
		case 1:
			return matches[0], nil
		default:
			return Record{}, fmt.Errorf("%w: %q is offered by %s", ErrAmbiguousDevice, opts.Interface, backendList(matches))
		}
	}

	switch len(candidates) {
	case 0:
		return Record{}, ErrNoDevices
	case 1:
		logger.Info("auto-selected the only device", zap.String("device", candidates[0].String()))
		return candidates[0], nil
	}

	if opts.Chooser == nil {
		return Record{}, fmt.Errorf("%w (available: %s)", ErrSelectionRequired, interfaceList(candidates))
	}
	idx, err := opts.Chooser.Choose(ctx, candidates)
	if err != nil {
		return Record{}, err
	}
	if idx < 0 || idx >= len(candidates) {
		return Record{}, fmt.Errorf("%w: %d of %d", ErrInvalidChoice, idx, len(candidates))
	}
	return candidates[idx], nil
}

// Enumerate queries every backend concurrently and concatenates the results
// in backend order. Failing backends are logged and skipped. Records whose
// interface repeats within one backend are dropped.
func Enumerate(ctx context.Context, backends []Backend, logger *zap.Logger) []Record {
	if logger == nil {
		logger = zap.NewNop()
	}

	results := make([][]Record, len(backends))
	g, gctx := errgroup.WithContext(ctx)
	for i, b := range backends {
		g.Go(func() error {
			records, err := b.Enumerate(gctx)
			if err != nil {
				logger.Warn("device enumeration failed, skipping backend",
					zap.String("backend", b.Name()),
					zap.Error(err),
				)
				return nil
			}
			results[i] = dedupe(b, records, logger)
			return nil
		})
	}
	_ = g.Wait()

	var all []Record
	for _, records := range results {
		all = append(all, records...)
	}
	return all
}

func dedupe(b Backend, records []Record, logger *zap.Logger) []Record {
	seen := make(map[string]bool, len(records))
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		if seen[rec.Interface] {
			logger.Warn("duplicate interface reported by backend",
				zap.String("backend", b.Name()),
				zap.String("interface", rec.Interface),
			)
			continue
		}
		seen[rec.Interface] = true
		if rec.Backend == nil {
			rec.Backend = b
		}
		out = append(out, rec)
	}
	return out
}

func interfaceList(records []Record) string {
	if len(records) == 0 {
		return "none"
	}
	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.Interface
	}
	return strings.Join(ids, ", ")
}

func backendList(records []Record) string {
	names := make([]string, len(records))
	for i, rec := range records {
		names[i] = rec.BackendName()
	}
	return strings.Join(names, ", ")
}
