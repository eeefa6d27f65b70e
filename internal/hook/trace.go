package hook

import (
	"context"

	"go.uber.org/zap"

	"github.com/muurk/hcishell/internal/logging"
	"github.com/muurk/hcishell/internal/transport"
)

type tracer struct {
	inner  transport.Transport
	logger *zap.Logger
}

func (t *tracer) Send(ctx context.Context, data []byte) error {
	logging.LogPacket(t.logger, "send", data)
	err := t.inner.Send(ctx, data)
	if err != nil {
		t.logger.Debug("send failed", zap.Error(err))
	}
	return err
}

func (t *tracer) Recv(ctx context.Context) ([]byte, error) {
	data, err := t.inner.Recv(ctx)
	if err != nil {
		t.logger.Debug("recv failed", zap.Error(err))
		return nil, err
	}
	logging.LogPacket(t.logger, "recv", data)
	return data, nil
}

func (t *tracer) Close() error {
	t.logger.Debug("transport closed")
	return t.inner.Close()
}
