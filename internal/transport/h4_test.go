package transport

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadPacket(t *testing.T) {
	tests := []struct {
		name   string
		packet []byte
	}{
		{"command", []byte{0x01, 0x03, 0x0c, 0x00}},
		{"command with params", []byte{0x01, 0x4d, 0xfc, 0x05, 0xa8, 0x4b, 0x20, 0x00, 0x10}},
		{"event", []byte{0x04, 0x0e, 0x04, 0x01, 0x03, 0x0c, 0x00}},
		{"acl", []byte{0x02, 0x01, 0x20, 0x02, 0x00, 0xaa, 0xbb}},
		{"sco", []byte{0x03, 0x01, 0x00, 0x01, 0xcc}},
		{"iso", []byte{0x05, 0x01, 0x00, 0x01, 0xc0, 0xdd}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadPacket(bytes.NewReader(tt.packet))
			require.NoError(t, err)
			assert.Equal(t, tt.packet, got)
			assert.NoError(t, ValidatePacket(tt.packet))
		})
	}
}

func TestReadPacketSequence(t *testing.T) {
	stream := []byte{
		0x04, 0x0e, 0x01, 0x01,
		0x04, 0x0f, 0x00,
	}
	r := bytes.NewReader(stream)

	first, err := ReadPacket(r)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x04, 0x0e, 0x01, 0x01}, first)

	second, err := ReadPacket(r)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x04, 0x0f, 0x00}, second)

	_, err = ReadPacket(r)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadPacketUnknownType(t *testing.T) {
	_, err := ReadPacket(bytes.NewReader([]byte{0x09, 0x00}))
	assert.True(t, errors.Is(err, ErrUnknownPacketType))
}

func TestReadPacketShortPayload(t *testing.T) {
	_, err := ReadPacket(bytes.NewReader([]byte{0x04, 0x0e, 0x04, 0x01}))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestValidatePacket(t *testing.T) {
	assert.Error(t, ValidatePacket(nil))
	assert.Error(t, ValidatePacket([]byte{0x01, 0x03}))
	assert.Error(t, ValidatePacket([]byte{0x01, 0x03, 0x0c, 0x01}))
	assert.Error(t, ValidatePacket([]byte{0x01, 0x03, 0x0c, 0x00, 0xff}))
}
