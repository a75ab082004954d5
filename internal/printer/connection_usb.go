package printer

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/gousb"
	"go.uber.org/zap"
)

// USBTarget addresses one interface of one USB device.
type USBTarget struct {
	VID       uint16
	PID       uint16
	Interface int
}

func (t USBTarget) String() string {
	return fmt.Sprintf("%04x:%04x#%d", t.VID, t.PID, t.Interface)
}

// USBTransport writes raw payloads to USB printers through libusb.
type USBTransport struct {
	log *zap.Logger
}

// NewUSBTransport creates a USB transport.
func NewUSBTransport(log *zap.Logger) *USBTransport {
	if log == nil {
		log = zap.NewNop()
	}
	return &USBTransport{log: log}
}

// Devices lists attached USB devices.
func (u *USBTransport) Devices() ([]USBDevice, error) {
	return ListUSBDevices()
}

// Send opens the device, claims the interface, writes payload to the first
// bulk OUT endpoint as one transfer and releases everything before returning,
// whether or not the write succeeded.
func (u *USBTransport) Send(ctx context.Context, target USBTarget, payload []byte) error {
	usbCtx := gousb.NewContext()
	defer usbCtx.Close()

	dev, err := usbCtx.OpenDeviceWithVIDPID(gousb.ID(target.VID), gousb.ID(target.PID))
	if err != nil {
		return fmt.Errorf("%w: USB %04x:%04x: %v", ErrDeviceNotFound, target.VID, target.PID, err)
	}
	if dev == nil {
		return fmt.Errorf("%w: USB %04x:%04x", ErrDeviceNotFound, target.VID, target.PID)
	}
	defer func() {
		if err := dev.Close(); err != nil {
			u.log.Debug("usb device close failed", zap.Error(err))
		}
	}()

	// Not every platform lets us detach the kernel driver.
	if err := dev.SetAutoDetach(true); err != nil {
		u.log.Debug("usb auto-detach unavailable", zap.Error(err))
	}

	cfgNum, err := dev.ActiveConfigNum()
	if err != nil || cfgNum <= 0 {
		cfgNum = firstConfig(dev.Desc)
	}
	cfg, err := dev.Config(cfgNum)
	if err != nil {
		return fmt.Errorf("%w: USB %04x:%04x config %d: %v", ErrDeviceNotFound, target.VID, target.PID, cfgNum, err)
	}
	defer cfg.Close()

	intf, err := cfg.Interface(target.Interface, 0)
	if err != nil {
		return fmt.Errorf("%w: USB interface %d not available: %v", ErrDeviceNotFound, target.Interface, err)
	}
	defer intf.Close()

	epNum, ok := bulkOutEndpoint(intf.Setting)
	if !ok {
		return fmt.Errorf("%w: USB interface %d", ErrEndpointNotFound, target.Interface)
	}
	ep, err := intf.OutEndpoint(epNum)
	if err != nil {
		return fmt.Errorf("%w: endpoint %d: %v", ErrEndpointNotFound, epNum, err)
	}

	u.log.Debug("usb transfer",
		zap.Stringer("target", target),
		zap.Int("endpoint", epNum),
		zap.Int("bytes", len(payload)))

	n, err := ep.WriteContext(ctx, payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransfer, err)
	}
	if n != len(payload) {
		return fmt.Errorf("%w: short write %d of %d bytes", ErrTransfer, n, len(payload))
	}
	return nil
}

// bulkOutEndpoint returns the lowest-addressed bulk OUT endpoint.
func bulkOutEndpoint(setting gousb.InterfaceSetting) (int, bool) {
	descs := make([]gousb.EndpointDesc, 0, len(setting.Endpoints))
	for _, ep := range setting.Endpoints {
		descs = append(descs, ep)
	}
	sort.Slice(descs, func(i, j int) bool { return descs[i].Address < descs[j].Address })

	for _, ep := range descs {
		if ep.Direction == gousb.EndpointDirectionOut && ep.TransferType == gousb.TransferTypeBulk {
			return ep.Number, true
		}
	}
	return 0, false
}

func firstConfig(desc *gousb.DeviceDesc) int {
	nums := make([]int, 0, len(desc.Configs))
	for n := range desc.Configs {
		nums = append(nums, n)
	}
	if len(nums) == 0 {
		return 1
	}
	sort.Ints(nums)
	return nums[0]
}
