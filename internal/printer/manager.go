// Package printer encodes rasters into printer languages and moves the
// resulting payloads to devices over USB, serial and TCP.
package printer

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/thereceipt/printer-tool/internal/registry"
)

// Device is an attached printer candidate with its registry identity.
type Device struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"` // usb or serial
	Description string `json:"description"`
	Name        string `json:"name,omitempty"`
	VID         uint16 `json:"vid,omitempty"`
	PID         uint16 `json:"pid,omitempty"`
	Port        string `json:"port,omitempty"`
}

// Manager tracks attached devices and their registry ids.
type Manager struct {
	registry *registry.Registry
	log      *zap.Logger
	devices  map[string]Device
	mu       sync.RWMutex

	listUSB    func() ([]USBDevice, error)
	listSerial func() ([]string, error)

	// Event callbacks
	onDeviceAdded   func(Device)
	onDeviceRemoved func(Device)
}

// NewManager creates a manager backed by reg.
func NewManager(reg *registry.Registry, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		registry:   reg,
		log:        log,
		devices:    make(map[string]Device),
		listUSB:    ListUSBDevices,
		listSerial: ListSerialPorts,
	}
}

// Detect scans USB and serial ports and replaces the known device set.
// A failing bus is logged and skipped.
func (m *Manager) Detect() ([]Device, error) {
	var devices []Device

	usb, err := m.listUSB()
	if err != nil {
		m.log.Warn("USB detection failed", zap.Error(err))
	}
	for _, d := range usb {
		dev := Device{
			Kind:        registry.KindUSB,
			Description: d.String(),
			VID:         d.VID,
			PID:         d.PID,
		}
		dev.ID, dev.Name = m.identify(registry.Info{Kind: registry.KindUSB, VID: d.VID, PID: d.PID, Description: dev.Description})
		devices = append(devices, dev)
	}

	ports, err := m.listSerial()
	if err != nil {
		m.log.Warn("serial detection failed", zap.Error(err))
	}
	for _, p := range ports {
		dev := Device{
			Kind:        registry.KindSerial,
			Description: fmt.Sprintf("Serial: %s", p),
			Port:        p,
		}
		dev.ID, dev.Name = m.identify(registry.Info{Kind: registry.KindSerial, Device: p, Description: dev.Description})
		devices = append(devices, dev)
	}

	m.mu.Lock()
	m.devices = make(map[string]Device, len(devices))
	for _, d := range devices {
		m.devices[d.ID] = d
	}
	m.mu.Unlock()

	return devices, nil
}

func (m *Manager) identify(info registry.Info) (string, string) {
	if m.registry == nil {
		return identityFallback(info), ""
	}
	id, err := m.registry.ID(info)
	if err != nil {
		m.log.Debug("registry not saved", zap.Error(err))
	}
	return id, m.registry.Name(id)
}

func identityFallback(info registry.Info) string {
	if info.Kind == registry.KindUSB {
		return fmt.Sprintf("usb:%04x:%04x", info.VID, info.PID)
	}
	return info.Kind + ":" + info.Device
}

// Get returns a known device by id.
func (m *Manager) Get(id string) (Device, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.devices[id]
	return d, ok
}

// Devices returns the known devices sorted by description.
func (m *Manager) Devices() []Device {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Device, 0, len(m.devices))
	for _, d := range m.devices {
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Description < result[j].Description })
	return result
}

// SetName assigns a user name to a registered device.
func (m *Manager) SetName(id, name string) error {
	if m.registry == nil {
		return fmt.Errorf("%w: %s", registry.ErrNotFound, id)
	}
	if err := m.registry.SetName(id, name); err != nil {
		return err
	}

	m.mu.Lock()
	if d, ok := m.devices[id]; ok {
		d.Name = m.registry.Name(id)
		m.devices[id] = d
	}
	m.mu.Unlock()
	return nil
}

// OnDeviceAdded sets a callback for when a device appears.
func (m *Manager) OnDeviceAdded(callback func(Device)) {
	m.onDeviceAdded = callback
}

// OnDeviceRemoved sets a callback for when a device disappears.
func (m *Manager) OnDeviceRemoved(callback func(Device)) {
	m.onDeviceRemoved = callback
}
