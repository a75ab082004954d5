package printer

import (
	"context"
	"fmt"

	"github.com/tarm/serial"
	"go.uber.org/zap"
)

// DefaultBaud is the line speed most thermal printers ship with.
const DefaultBaud = 9600

// SerialTransport writes raw payloads to a serial printer.
type SerialTransport struct {
	log *zap.Logger
}

// NewSerialTransport creates a serial transport.
func NewSerialTransport(log *zap.Logger) *SerialTransport {
	if log == nil {
		log = zap.NewNop()
	}
	return &SerialTransport{log: log}
}

// Send opens device at baud, writes payload and closes the port.
func (s *SerialTransport) Send(ctx context.Context, device string, baud int, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if baud == 0 {
		baud = DefaultBaud
	}

	port, err := serial.OpenPort(&serial.Config{Name: device, Baud: baud})
	if err != nil {
		return fmt.Errorf("%w: serial port %s: %v", ErrDeviceNotFound, device, err)
	}
	defer func() {
		if err := port.Close(); err != nil {
			s.log.Debug("serial close failed", zap.String("port", device), zap.Error(err))
		}
	}()

	s.log.Debug("serial transfer", zap.String("port", device), zap.Int("baud", baud), zap.Int("bytes", len(payload)))
	n, err := port.Write(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransfer, err)
	}
	if n != len(payload) {
		return fmt.Errorf("%w: short write %d of %d bytes", ErrTransfer, n, len(payload))
	}
	return nil
}
