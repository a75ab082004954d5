package printer

import (
	"testing"

	"github.com/google/gousb"
)

func TestParseUSBID(t *testing.T) {
	tests := []struct {
		in   string
		want uint16
		ok   bool
	}{
		{"0x0483", 0x0483, true},
		{"0X5740", 0x5740, true},
		{"04b8", 0x04b8, true},
		{"ABCD", 0xabcd, true},
		{"1155", 1155, true},
		{"0416", 416, true},
		{"65535", 0xffff, true},
		{"65536", 0, false},
		{"0x", 0, false},
		{"", 0, false},
		{"xyz", 0, false},
		{"-1", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseUSBID(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("ParseUSBID(%q) error = %v, want ok=%v", tt.in, err, tt.ok)
			continue
		}
		if tt.ok && got != tt.want {
			t.Errorf("ParseUSBID(%q) = %#04x, want %#04x", tt.in, got, tt.want)
		}
	}
}

func TestUSBDeviceString(t *testing.T) {
	d := USBDevice{VID: 0x04B8, PID: 0x0E15}
	if got := d.String(); got != "VID:PID 04b8:0e15" {
		t.Errorf("String() = %q", got)
	}
}

func TestBulkOutEndpoint(t *testing.T) {
	setting := gousb.InterfaceSetting{
		Endpoints: map[gousb.EndpointAddress]gousb.EndpointDesc{
			0x81: {Address: 0x81, Number: 1, Direction: gousb.EndpointDirectionIn, TransferType: gousb.TransferTypeBulk},
			0x03: {Address: 0x03, Number: 3, Direction: gousb.EndpointDirectionOut, TransferType: gousb.TransferTypeBulk},
			0x02: {Address: 0x02, Number: 2, Direction: gousb.EndpointDirectionOut, TransferType: gousb.TransferTypeBulk},
			0x01: {Address: 0x01, Number: 1, Direction: gousb.EndpointDirectionOut, TransferType: gousb.TransferTypeInterrupt},
		},
	}
	num, ok := bulkOutEndpoint(setting)
	if !ok || num != 2 {
		t.Errorf("bulkOutEndpoint = %d, %v; want 2, true", num, ok)
	}

	none := gousb.InterfaceSetting{
		Endpoints: map[gousb.EndpointAddress]gousb.EndpointDesc{
			0x81: {Address: 0x81, Number: 1, Direction: gousb.EndpointDirectionIn, TransferType: gousb.TransferTypeBulk},
		},
	}
	if _, ok := bulkOutEndpoint(none); ok {
		t.Errorf("expected no OUT endpoint")
	}
}

func TestUSBTargetString(t *testing.T) {
	tgt := USBTarget{VID: 0x0483, PID: 0x5740, Interface: 1}
	if got := tgt.String(); got != "0483:5740#1" {
		t.Errorf("String() = %q", got)
	}
}
