package hci

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		pkt  []byte
		want string
	}{
		{"empty", nil, "empty packet"},
		{"reset", []byte{0x01, 0x03, 0x0c, 0x00}, "command 0x0c03 (ogf 0x03, ocf 0x003) plen 0"},
		{"read ram", []byte{0x01, 0x4d, 0xfc, 0x05, 0, 0, 0x20, 0, 0x10}, "command 0xfc4d (ogf 0x3f, ocf 0x04d) plen 5"},
		{"short command", []byte{0x01, 0x03}, "command (truncated)"},
		{"complete", []byte{0x04, 0x0e, 0x06, 0x01, 0x4d, 0xfc, 0x00, 0xaa, 0xbb}, "command complete 0xfc4d status 0x00 (success), 2 return bytes"},
		{"status", []byte{0x04, 0x0f, 0x04, 0x01, 0x01, 0x03, 0x0c}, "command status 0x0c03 status 0x01 (unknown HCI command)"},
		{"vendor", []byte{0x04, 0xff, 0x02, 0x01, 0x02}, "event 0xff plen 2"},
		{"malformed event", []byte{0x04, 0x0e, 0x09, 0x01}, "event (malformed)"},
		{"acl", []byte{0x02, 0x01, 0x20, 0x02, 0x00, 0xaa, 0xbb}, "acl, 6 bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Describe(tt.pkt))
		})
	}
}
