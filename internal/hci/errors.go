package hci

import "fmt"

// StatusError is returned when the controller rejects a command.
type StatusError struct {
	Opcode uint16
	Status byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("command 0x%04x failed: %s (0x%02x)", e.Opcode, StatusName(e.Status), e.Status)
}

// NoCompletionError is returned when the controller keeps sending other
// packets instead of completing a command.
type NoCompletionError struct {
	Opcode  uint16
	Skipped int
}

func (e *NoCompletionError) Error() string {
	return fmt.Sprintf("command 0x%04x: no completion after %d unrelated packets", e.Opcode, e.Skipped)
}

// StatusName returns the name of common HCI error codes.
func StatusName(status byte) string {
	switch status {
	case 0x00:
		return "success"
	case 0x01:
		return "unknown HCI command"
	case 0x02:
		return "unknown connection identifier"
	case 0x03:
		return "hardware failure"
	case 0x0c:
		return "command disallowed"
	case 0x11:
		return "unsupported feature or parameter value"
	case 0x12:
		return "invalid HCI command parameters"
	default:
		return "error"
	}
}
