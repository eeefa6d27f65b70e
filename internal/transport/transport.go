// Package transport defines the raw byte channel to a controller and the H4
// packet framing shared by stream-oriented backends.
package transport

import (
	"context"
	"errors"
)

// Transport is an open channel to one controller. Send writes one complete
// H4 packet (indicator byte included); Recv returns the next complete packet.
// Both honour context cancellation.
type Transport interface {
	Send(ctx context.Context, data []byte) error
	Recv(ctx context.Context) ([]byte, error)
	Close() error
}

// Kind names a backend variant. Hooks are attached per kind.
type Kind string

const (
	KindSerial    Kind = "serial"
	KindUSB       Kind = "usb"
	KindTCP       Kind = "tcp"
	KindWebSocket Kind = "websocket"
)

// Kinds lists every built-in backend kind.
func Kinds() []Kind {
	return []Kind{KindSerial, KindUSB, KindTCP, KindWebSocket}
}

// ErrClosed is returned by operations on a closed transport.
var ErrClosed = errors.New("transport closed")
