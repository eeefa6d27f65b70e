//go:build !linux && !darwin

package backend

// Ports cannot be listed portably here; pass them with --serial-port.
func enumerateSerialPorts() []string {
	return nil
}
