package printer

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// DefaultRawPort is the JetDirect raw printing port.
const DefaultRawPort = 9100

const dialTimeout = 5 * time.Second

// NetworkTransport writes raw payloads to a printer listening on TCP.
type NetworkTransport struct {
	log *zap.Logger
}

// NewNetworkTransport creates a network transport.
func NewNetworkTransport(log *zap.Logger) *NetworkTransport {
	if log == nil {
		log = zap.NewNop()
	}
	return &NetworkTransport{log: log}
}

// Send dials host:port, writes payload and closes the connection.
func (n *NetworkTransport) Send(ctx context.Context, host string, port int, payload []byte) error {
	if port == 0 {
		port = DefaultRawPort
	}
	address := net.JoinHostPort(host, strconv.Itoa(port))

	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDeviceNotFound, address, err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			n.log.Debug("network close failed", zap.String("address", address), zap.Error(err))
		}
	}()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}

	n.log.Debug("network transfer", zap.String("address", address), zap.Int("bytes", len(payload)))
	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("%w: %v", ErrTransfer, err)
	}
	return nil
}
