package hci

import (
	"encoding/binary"
	"fmt"

	"github.com/muurk/hcishell/internal/transport"
)

// Describe returns a one-line summary of an H4 packet for trace listings.
func Describe(pkt []byte) string {
	if len(pkt) == 0 {
		return "empty packet"
	}
	switch pkt[0] {
	case transport.PacketCommand:
		if len(pkt) < 4 {
			return "command (truncated)"
		}
		op := binary.LittleEndian.Uint16(pkt[1:3])
		return fmt.Sprintf("command 0x%04x (ogf 0x%02x, ocf 0x%03x) plen %d", op, OGF(op), OCF(op), pkt[3])
	case transport.PacketEvent:
		ev, err := ParseEvent(pkt)
		if err != nil {
			return "event (malformed)"
		}
		switch ev.Code {
		case EventCommandComplete:
			if cc, err := ev.ParseCommandComplete(); err == nil {
				return fmt.Sprintf("command complete 0x%04x status 0x%02x (%s), %d return bytes",
					cc.Opcode, cc.Status, StatusName(cc.Status), len(cc.Return))
			}
		case EventCommandStatus:
			if cs, err := ev.ParseCommandStatus(); err == nil {
				return fmt.Sprintf("command status 0x%04x status 0x%02x (%s)", cs.Opcode, cs.Status, StatusName(cs.Status))
			}
		}
		return fmt.Sprintf("event 0x%02x plen %d", ev.Code, len(ev.Params))
	default:
		return fmt.Sprintf("%s, %d bytes", transport.PacketTypeName(pkt[0]), len(pkt)-1)
	}
}
