package hci

import (
	"encoding/binary"
	"fmt"

	"github.com/muurk/hcishell/internal/transport"
)

// Opcodes used by the shell.
const (
	OpReset             uint16 = 0x0c03
	OpReadLocalVersion  uint16 = 0x1001
	OpReadBDAddr        uint16 = 0x1009
	OpBroadcomWriteRAM  uint16 = 0xfc4c
	OpBroadcomReadRAM   uint16 = 0xfc4d
	OpBroadcomLaunchRAM uint16 = 0xfc4e
)

// Event codes.
const (
	EventCommandComplete byte = 0x0e
	EventCommandStatus   byte = 0x0f
	EventVendor          byte = 0xff
)

// MaxParams is the largest command parameter block.
const MaxParams = 255

// Command returns the H4 command packet for opcode and params.
func Command(opcode uint16, params []byte) ([]byte, error) {
	if len(params) > MaxParams {
		return nil, fmt.Errorf("command 0x%04x: %d parameter bytes exceed %d", opcode, len(params), MaxParams)
	}
	pkt := make([]byte, 4+len(params))
	pkt[0] = transport.PacketCommand
	binary.LittleEndian.PutUint16(pkt[1:3], opcode)
	pkt[3] = byte(len(params))
	copy(pkt[4:], params)
	return pkt, nil
}

// OGF returns the opcode group field.
func OGF(opcode uint16) uint16 { return opcode >> 10 }

// OCF returns the opcode command field.
func OCF(opcode uint16) uint16 { return opcode & 0x03ff }

// Event is a parsed HCI event.
type Event struct {
	Code   byte
	Params []byte
}

// ParseEvent parses an H4 event packet.
func ParseEvent(pkt []byte) (*Event, error) {
	if len(pkt) < 3 || pkt[0] != transport.PacketEvent {
		return nil, fmt.Errorf("not an event packet: % x", pkt)
	}
	plen := int(pkt[2])
	if len(pkt) != 3+plen {
		return nil, fmt.Errorf("event 0x%02x: length mismatch: header %d, have %d", pkt[1], plen, len(pkt)-3)
	}
	return &Event{Code: pkt[1], Params: pkt[3:]}, nil
}

// CommandComplete is the decoded Command Complete event.
type CommandComplete struct {
	NumPackets byte
	Opcode     uint16
	Status     byte
	// Return holds the return parameters after the status byte.
	Return []byte
}

// ParseCommandComplete decodes a Command Complete event.
func (e *Event) ParseCommandComplete() (*CommandComplete, error) {
	if e.Code != EventCommandComplete {
		return nil, fmt.Errorf("event 0x%02x is not command complete", e.Code)
	}
	if len(e.Params) < 3 {
		return nil, fmt.Errorf("command complete too short: %d bytes", len(e.Params))
	}
	cc := &CommandComplete{
		NumPackets: e.Params[0],
		Opcode:     binary.LittleEndian.Uint16(e.Params[1:3]),
	}
	if len(e.Params) > 3 {
		cc.Status = e.Params[3]
		cc.Return = e.Params[4:]
	}
	return cc, nil
}

// CommandStatus is the decoded Command Status event.
type CommandStatus struct {
	Status     byte
	NumPackets byte
	Opcode     uint16
}

// ParseCommandStatus decodes a Command Status event.
func (e *Event) ParseCommandStatus() (*CommandStatus, error) {
	if e.Code != EventCommandStatus {
		return nil, fmt.Errorf("event 0x%02x is not command status", e.Code)
	}
	if len(e.Params) < 4 {
		return nil, fmt.Errorf("command status too short: %d bytes", len(e.Params))
	}
	return &CommandStatus{
		Status:     e.Params[0],
		NumPackets: e.Params[1],
		Opcode:     binary.LittleEndian.Uint16(e.Params[2:4]),
	}, nil
}

// LocalVersion is the result of Read Local Version Information.
type LocalVersion struct {
	HCIVersion    byte
	HCIRevision   uint16
	LMPVersion    byte
	Manufacturer  uint16
	LMPSubversion uint16
}

// ParseLocalVersion decodes the return parameters of Read Local Version
// Information (status byte excluded).
func ParseLocalVersion(ret []byte) (*LocalVersion, error) {
	if len(ret) < 8 {
		return nil, fmt.Errorf("local version: need 8 bytes, have %d", len(ret))
	}
	return &LocalVersion{
		HCIVersion:    ret[0],
		HCIRevision:   binary.LittleEndian.Uint16(ret[1:3]),
		LMPVersion:    ret[3],
		Manufacturer:  binary.LittleEndian.Uint16(ret[4:6]),
		LMPSubversion: binary.LittleEndian.Uint16(ret[6:8]),
	}, nil
}

// ManufacturerName returns the company name for well-known manufacturer ids.
func ManufacturerName(id uint16) string {
	switch id {
	case 0x000f:
		return "Broadcom"
	case 0x0131:
		return "Cypress"
	case 0x0002:
		return "Intel"
	case 0x001d:
		return "Qualcomm"
	case 0x005d:
		return "Realtek"
	case 0x0046:
		return "MediaTek"
	default:
		return fmt.Sprintf("0x%04x", id)
	}
}
