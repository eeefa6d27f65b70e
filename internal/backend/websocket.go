package backend

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/muurk/hcishell/internal/device"
	"github.com/muurk/hcishell/internal/discovery"
	"github.com/muurk/hcishell/internal/transport"
)

// WebSocketConfig configures the WebSocket bridge backend.
type WebSocketConfig struct {
	// URLs are ws:// or wss:// bridges offered in addition to discovered ones.
	URLs []string
}

type wsBackend struct {
	cfg     WebSocketConfig
	scanner scanner
	dialer  *websocket.Dialer
	logger  *zap.Logger
}

func newWebSocket(cfg WebSocketConfig, sc scanner, logger *zap.Logger) *wsBackend {
	return &wsBackend{
		cfg:     cfg,
		scanner: sc,
		dialer: &websocket.Dialer{
			HandshakeTimeout: dialTimeout,
		},
		logger: logger.Named("websocket"),
	}
}

func (b *wsBackend) Name() string          { return string(transport.KindWebSocket) }
func (b *wsBackend) Kind() transport.Kind { return transport.KindWebSocket }

func (b *wsBackend) Enumerate(ctx context.Context) ([]device.Record, error) {
	var records []device.Record
	for _, raw := range b.cfg.URLs {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			return nil, errors.NotValidf("bridge URL %q", raw)
		}
		records = append(records, device.Record{Backend: b, Interface: raw, Label: "configured bridge"})
	}

	if b.scanner != nil {
		eps, err := b.scanner.Scan(ctx)
		if err != nil {
			if len(records) > 0 {
				b.logger.Warn("bridge discovery failed", zap.Error(err))
				return records, nil
			}
			return nil, errors.Trace(err)
		}
		for _, ep := range filterProto(eps, discovery.ProtoWebSocket) {
			records = append(records, device.Record{Backend: b, Interface: ep.URL(), Label: ep.String()})
		}
	}
	return records, nil
}

func (b *wsBackend) Dial(ctx context.Context, iface string) (transport.Transport, error) {
	b.logger.Info("connecting to bridge", zap.String("url", iface))
	conn, resp, err := b.dialer.DialContext(ctx, iface, nil)
	if err != nil {
		if resp != nil {
			return nil, errors.Annotatef(err, "connect to bridge %s (HTTP %d)", iface, resp.StatusCode)
		}
		return nil, errors.Annotatef(err, "connect to bridge %s", iface)
	}
	return NewWebSocketTransport(conn), nil
}

// WSTransport carries one H4 packet per binary WebSocket message. A reader
// goroutine owns the connection's read side so a cancelled Recv does not
// break the connection.
type WSTransport struct {
	conn *websocket.Conn
	wmu  sync.Mutex

	msgs   chan []byte
	done   chan struct{}
	closed chan struct{}
	err    error

	closeOnce sync.Once
}

// NewWebSocketTransport wraps an established connection. The bridge server
// uses it for its client side as well.
func NewWebSocketTransport(conn *websocket.Conn) *WSTransport {
	t := &WSTransport{
		conn:   conn,
		msgs:   make(chan []byte, 64),
		done:   make(chan struct{}),
		closed: make(chan struct{}),
	}
	go t.readLoop()
	return t
}

func (t *WSTransport) readLoop() {
	defer close(t.done)
	for {
		mt, data, err := t.conn.ReadMessage()
		if err != nil {
			t.err = err
			return
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		select {
		case t.msgs <- data:
		case <-t.closed:
			return
		}
	}
}

// Send writes data as one binary message.
func (t *WSTransport) Send(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.wmu.Lock()
	defer t.wmu.Unlock()

	if dl, ok := ctx.Deadline(); ok {
		_ = t.conn.SetWriteDeadline(dl)
		defer t.conn.SetWriteDeadline(time.Time{})
	}
	return errors.Trace(t.conn.WriteMessage(websocket.BinaryMessage, data))
}

// Recv returns the next binary message.
func (t *WSTransport) Recv(ctx context.Context) ([]byte, error) {
	select {
	case data := <-t.msgs:
		return data, nil
	default:
	}
	select {
	case data := <-t.msgs:
		return data, nil
	case <-t.done:
		select {
		case data := <-t.msgs:
			return data, nil
		default:
		}
		if t.err != nil {
			return nil, errors.Trace(t.err)
		}
		return nil, transport.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close sends a close frame and closes the connection.
func (t *WSTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.closed)
		t.wmu.Lock()
		_ = t.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		t.wmu.Unlock()
		err = t.conn.Close()
	})
	return err
}
