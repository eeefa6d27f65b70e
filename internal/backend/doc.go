// Package backend implements the transport backends: serial H4 UART, USB
// Bluetooth controllers, and remote bridges over TCP or WebSocket.
//
// Backends are named variants chosen by configuration. Each one enumerates
// the interfaces it can reach and dials one of them; Connect routes the dial
// through the hook registry so tracing, recording and replay apply to every
// backend the same way.
package backend
