package memory

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseAddress parses an address in monitor notation:
// 0xhex, $hex, #decimal, or bare hex.
func ParseAddress(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty address")
	}

	var (
		v   uint64
		err error
	)
	switch {
	case strings.HasPrefix(s, "#"):
		v, err = strconv.ParseUint(s[1:], 10, 32)
	case strings.HasPrefix(s, "$"):
		v, err = strconv.ParseUint(s[1:], 16, 32)
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		v, err = strconv.ParseUint(s[2:], 16, 32)
	default:
		v, err = strconv.ParseUint(s, 16, 32)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	return uint32(v), nil
}

// ParseLength parses a byte count. Plain digits are decimal; 0x, $ and #
// prefixes are accepted as in ParseAddress.
func ParseLength(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if s != "" && s[0] >= '0' && s[0] <= '9' && !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid length %q", s)
		}
		return uint32(v), nil
	}
	v, err := ParseAddress(s)
	if err != nil {
		return 0, fmt.Errorf("invalid length %q", s)
	}
	return v, nil
}
