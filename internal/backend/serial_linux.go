package backend

import (
	"path/filepath"
	"sort"
)

func enumerateSerialPorts() []string {
	// USB adapters first, then on-board UARTs.
	var ports []string
	for _, pattern := range []string{"/dev/ttyUSB*", "/dev/ttyACM*", "/dev/ttyAMA*"} {
		list, _ := filepath.Glob(pattern)
		sort.Strings(list)
		ports = append(ports, list...)
	}
	return ports
}
