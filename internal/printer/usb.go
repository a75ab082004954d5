package printer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/gousb"
)

// USBDevice identifies an attached USB device.
type USBDevice struct {
	VID uint16
	PID uint16
}

// Key returns the "vvvv:pppp" form used for lookups.
func (d USBDevice) Key() string {
	return fmt.Sprintf("%04x:%04x", d.VID, d.PID)
}

func (d USBDevice) String() string {
	return "VID:PID " + d.Key()
}

// ParseUSBID parses a vendor or product id. A 0x prefix means hex, a bare
// value containing any of a-f is also hex, anything else is decimal.
func ParseUSBID(s string) (uint16, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	base := 10
	switch {
	case strings.HasPrefix(v, "0x"):
		v, base = v[2:], 16
	case strings.ContainsAny(v, "abcdef"):
		base = 16
	}
	if v == "" {
		return 0, fmt.Errorf("empty USB id %q", s)
	}
	n, err := strconv.ParseUint(v, base, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid USB id %q", s)
	}
	return uint16(n), nil
}

// ListUSBDevices enumerates every attached device in bus order without
// opening any of them.
func ListUSBDevices() ([]USBDevice, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	var devices []USBDevice
	// The callback sees every descriptor; returning false keeps devices closed.
	_, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		devices = append(devices, USBDevice{
			VID: uint16(desc.Vendor),
			PID: uint16(desc.Product),
		})
		return false
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate USB devices: %w", err)
	}
	return devices, nil
}
