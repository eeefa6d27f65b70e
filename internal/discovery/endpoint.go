package discovery

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Bridge protocols advertised in the "proto" TXT key.
const (
	ProtoTCP       = "tcp"
	ProtoWebSocket = "ws"
)

// Endpoint is a discovered bridge.
type Endpoint struct {
	// Instance is the mDNS instance name (e.g., "raspberrypi hci0")
	Instance string

	// Hostname is the mDNS hostname (e.g., "raspberrypi.local.")
	Hostname string

	// IP is the preferred address, IPv4 when available
	IP string

	// Port is the bridge port
	Port int

	// Proto is ProtoTCP or ProtoWebSocket
	Proto string

	// Path is the WebSocket path, "/" for TCP bridges
	Path string

	// Metadata contains the remaining TXT record data
	// Common fields: "device=/dev/ttyAMA0", "backend=serial"
	Metadata map[string]string

	// DiscoveredAt is when the bridge was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the endpoint
func (e *Endpoint) String() string {
	if dev := e.GetMetadata("device"); dev != "" {
		return fmt.Sprintf("%s (%s bridge for %s)", e.Instance, e.Proto, dev)
	}
	return fmt.Sprintf("%s (%s bridge)", e.Instance, e.Proto)
}

// Address returns host:port.
func (e *Endpoint) Address() string {
	return net.JoinHostPort(e.IP, strconv.Itoa(e.Port))
}

// URL returns the WebSocket URL of a ws bridge.
func (e *Endpoint) URL() string {
	path := e.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("ws://%s%s", e.Address(), path)
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (e *Endpoint) GetMetadata(key string) string {
	if e.Metadata == nil {
		return ""
	}
	return e.Metadata[key]
}

// TXT builds the TXT record a bridge advertises.
func TXT(proto, path string, metadata map[string]string) []string {
	txt := []string{"proto=" + proto}
	if path != "" {
		txt = append(txt, "path="+path)
	}
	for k, v := range metadata {
		txt = append(txt, k+"="+v)
	}
	return txt
}
