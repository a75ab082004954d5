package printer

import (
	"fmt"
	"sort"

	bugserial "go.bug.st/serial"
)

// ListSerialPorts returns the serial ports known to the OS, sorted by name.
func ListSerialPorts() ([]string, error) {
	ports, err := bugserial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	sort.Strings(ports)
	return ports, nil
}
