package printer

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Monitor polls the manager and reports devices that come and go.
type Monitor struct {
	manager  *Manager
	interval time.Duration
	previous map[string]Device
}

// NewMonitor creates a device monitor.
func NewMonitor(manager *Manager, interval time.Duration) *Monitor {
	return &Monitor{
		manager:  manager,
		interval: interval,
	}
}

// Run polls until ctx is cancelled. The first scan establishes the baseline
// and reports nothing.
func (m *Monitor) Run(ctx context.Context) {
	m.previous = m.snapshot()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkChanges()
		}
	}
}

func (m *Monitor) snapshot() map[string]Device {
	devices, err := m.manager.Detect()
	if err != nil {
		m.manager.log.Warn("device detection failed", zap.Error(err))
		return m.previous
	}
	current := make(map[string]Device, len(devices))
	for _, d := range devices {
		current[d.ID] = d
	}
	return current
}

func (m *Monitor) checkChanges() {
	current := m.snapshot()

	for id, d := range current {
		if _, ok := m.previous[id]; !ok {
			m.manager.log.Info("device added", zap.String("id", id), zap.String("device", d.Description))
			if m.manager.onDeviceAdded != nil {
				m.manager.onDeviceAdded(d)
			}
		}
	}

	for id, d := range m.previous {
		if _, ok := current[id]; !ok {
			m.manager.log.Info("device removed", zap.String("id", id), zap.String("device", d.Description))
			if m.manager.onDeviceRemoved != nil {
				m.manager.onDeviceRemoved(d)
			}
		}
	}

	m.previous = current
}
