package backend

import (
	"path/filepath"
	"sort"
	"strings"
)

func enumerateSerialPorts() []string {
	list, _ := filepath.Glob("/dev/cu.*")
	var filtered []string
	for _, s := range list {
		if !strings.Contains(s, "Bluetooth-") &&
			!strings.Contains(s, "-SPPDev") &&
			!strings.Contains(s, "-WirelessiAP") {
			filtered = append(filtered, s)
		}
	}
	sort.Strings(filtered)
	return filtered
}
