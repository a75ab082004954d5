package printer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"testing"
)

func TestNetworkTransportSend(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	received := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		received <- data
	}()

	addr := ln.Addr().(*net.TCPAddr)
	payload := []byte("^XA\n^XZ")
	if err := NewNetworkTransport(nil).Send(context.Background(), "127.0.0.1", addr.Port, payload); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := <-received; !bytes.Equal(got, payload) {
		t.Errorf("received %q, want %q", got, payload)
	}
}

func TestNetworkTransportUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	err = NewNetworkTransport(nil).Send(context.Background(), "127.0.0.1", port, []byte{0x1B, 0x40})
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("err = %v, want ErrDeviceNotFound", err)
	}
}

func TestSerialTransportMissingPort(t *testing.T) {
	err := NewSerialTransport(nil).Send(context.Background(), "/dev/does-not-exist-0", 9600, []byte{0x1B})
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("err = %v, want ErrDeviceNotFound", err)
	}
}
