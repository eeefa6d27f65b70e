package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// H4 packet indicators.
const (
	PacketCommand byte = 0x01
	PacketACL     byte = 0x02
	PacketSCO     byte = 0x03
	PacketEvent   byte = 0x04
	PacketISO     byte = 0x05
)

// ErrUnknownPacketType is returned for an indicator byte outside the H4 set.
var ErrUnknownPacketType = errors.New("unknown H4 packet type")

// PacketTypeName returns a short name for an H4 indicator.
func PacketTypeName(t byte) string {
	switch t {
	case PacketCommand:
		return "command"
	case PacketACL:
		return "acl"
	case PacketSCO:
		return "sco"
	case PacketEvent:
		return "event"
	case PacketISO:
		return "iso"
	default:
		return fmt.Sprintf("unknown(0x%02x)", t)
	}
}

// headerLen returns the header length following the indicator byte.
func headerLen(t byte) (int, error) {
	switch t {
	case PacketCommand, PacketSCO:
		return 3, nil
	case PacketEvent:
		return 2, nil
	case PacketACL, PacketISO:
		return 4, nil
	default:
		return 0, fmt.Errorf("%w 0x%02x", ErrUnknownPacketType, t)
	}
}

// payloadLen extracts the payload length from a header.
func payloadLen(t byte, header []byte) int {
	switch t {
	case PacketCommand, PacketSCO:
		return int(header[2])
	case PacketEvent:
		return int(header[1])
	case PacketACL:
		return int(binary.LittleEndian.Uint16(header[2:4]))
	case PacketISO:
		return int(binary.LittleEndian.Uint16(header[2:4]) & 0x3fff)
	}
	return 0
}

// ReadPacket reads one complete H4 packet, indicator included.
func ReadPacket(r io.Reader) ([]byte, error) {
	indicator := make([]byte, 1)
	if _, err := io.ReadFull(r, indicator); err != nil {
		return nil, err
	}

	hlen, err := headerLen(indicator[0])
	if err != nil {
		return nil, err
	}

	header := make([]byte, hlen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("failed to read %s header: %w", PacketTypeName(indicator[0]), err)
	}

	plen := payloadLen(indicator[0], header)
	packet := make([]byte, 1+hlen+plen)
	packet[0] = indicator[0]
	copy(packet[1:], header)
	if _, err := io.ReadFull(r, packet[1+hlen:]); err != nil {
		return nil, fmt.Errorf("failed to read %s payload: %w", PacketTypeName(indicator[0]), err)
	}
	return packet, nil
}

// ValidatePacket checks that data is exactly one well-formed H4 packet.
func ValidatePacket(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty packet")
	}
	hlen, err := headerLen(data[0])
	if err != nil {
		return err
	}
	if len(data) < 1+hlen {
		return fmt.Errorf("%s packet too short: %d bytes", PacketTypeName(data[0]), len(data))
	}
	want := 1 + hlen + payloadLen(data[0], data[1:1+hlen])
	if len(data) != want {
		return fmt.Errorf("%s packet length mismatch: have %d bytes, header says %d",
			PacketTypeName(data[0]), len(data), want)
	}
	return nil
}
