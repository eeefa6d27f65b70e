package backend

import (
	"context"
	"sync"

	"github.com/muurk/hcishell/internal/discovery"
)

// sharedScan runs one mDNS browse for all bridge backends of a process.
type sharedScan struct {
	inner scanner
	once  sync.Once
	eps   []*discovery.Endpoint
	err   error
}

func newSharedScan(inner scanner) *sharedScan {
	return &sharedScan{inner: inner}
}

func (s *sharedScan) Scan(ctx context.Context) ([]*discovery.Endpoint, error) {
	s.once.Do(func() {
		s.eps, s.err = s.inner.Scan(ctx)
	})
	return s.eps, s.err
}

func filterProto(eps []*discovery.Endpoint, proto string) []*discovery.Endpoint {
	var out []*discovery.Endpoint
	for _, ep := range eps {
		if ep.Proto == proto {
			out = append(out, ep)
		}
	}
	return out
}
