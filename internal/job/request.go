package job

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/thereceipt/printer-tool/internal/paper"
	"github.com/thereceipt/printer-tool/internal/printer"
)

// Connection selects how a job reaches the printer.
type Connection string

// Supported connections
const (
	ConnUSB     Connection = "usb"
	ConnWindows Connection = "windows" // PDF through the OS spooler
	ConnSerial  Connection = "serial"
	ConnNetwork Connection = "network"
)

// Raw reports whether the connection carries an encoded printer payload.
func (c Connection) Raw() bool {
	return c != ConnWindows
}

// ParseConnection parses a connection name.
func ParseConnection(s string) (Connection, error) {
	switch c := Connection(strings.ToLower(strings.TrimSpace(s))); c {
	case ConnUSB, ConnWindows, ConnSerial, ConnNetwork:
		return c, nil
	}
	return "", fmt.Errorf("unknown connection %q (use usb, windows, serial or network)", s)
}

// Limits and defaults for numeric options.
const (
	DefaultDPI       = 203
	DefaultThreshold = 128
	DefaultDarkness  = 100
	MinDarkness      = 50
	MaxDarkness      = 180
)

// Options is a print request as typed by a user: every field is text.
type Options struct {
	File         string
	Mode         string
	Paper        string
	Connection   string
	PrinterName  string
	USBVID       string
	USBPID       string
	USBInterface string
	DPI          string
	Threshold    string
	Darkness     string
	SerialPort   string
	Baud         string
	Host         string
	Port         string
	Output       string // write the payload here instead of printing
	Preview      string // write a PNG preview of the bitmap here
}

// Request is a validated print request.
type Request struct {
	File        string
	Mode        printer.Mode
	Paper       paper.Size
	Connection  Connection
	PrinterName string
	USB         printer.USBTarget
	DPI         float64
	Threshold   uint8
	Darkness    int
	SerialPort  string
	Baud        int
	Host        string
	Port        int
	Output      string
	Preview     string
}

// Geometry returns the paper geometry for the request.
func (r Request) Geometry() paper.Geometry {
	return paper.Compute(r.Paper, r.DPI)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Parse validates o without touching the filesystem or any device.
// All failures wrap ErrValidation.
func Parse(o Options) (Request, error) {
	var req Request
	var err error

	if strings.TrimSpace(o.File) == "" {
		return req, invalid("--file is required")
	}
	req.File = o.File

	if req.Mode, err = printer.ParseMode(o.Mode); err != nil {
		return req, invalid("%v", err)
	}
	if req.Paper, err = paper.ParseSize(o.Paper); err != nil {
		return req, invalid("%v", err)
	}
	if req.Connection, err = ParseConnection(o.Connection); err != nil {
		return req, invalid("%v", err)
	}

	if req.DPI, err = parseFinite(o.DPI, DefaultDPI, "dpi"); err != nil {
		return req, err
	}
	if req.DPI <= 0 {
		return req, invalid("dpi must be positive, got %v", req.DPI)
	}
	if req.Geometry().PrintableWidth == 0 {
		return req, invalid("dpi %v leaves no printable width on %s paper", req.DPI, req.Paper)
	}

	threshold, err := parseFinite(o.Threshold, DefaultThreshold, "threshold")
	if err != nil {
		return req, err
	}
	if threshold < 0 || threshold > 255 {
		return req, invalid("threshold must be between 0 and 255, got %v", threshold)
	}
	// pixels are integers, so "< 127.5" is "< 128"
	req.Threshold = uint8(math.Ceil(threshold))

	if req.Darkness, err = parseInt(o.Darkness, DefaultDarkness, "darkness"); err != nil {
		return req, err
	}
	if req.Darkness < MinDarkness || req.Darkness > MaxDarkness {
		return req, invalid("darkness must be between %d and %d, got %d", MinDarkness, MaxDarkness, req.Darkness)
	}

	req.PrinterName = strings.TrimSpace(o.PrinterName)
	req.Output = o.Output
	req.Preview = o.Preview

	switch req.Connection {
	case ConnUSB:
		err = req.parseUSB(o)
	case ConnSerial:
		err = req.parseSerial(o)
	case ConnNetwork:
		err = req.parseNetwork(o)
	}
	return req, err
}

func (r *Request) parseUSB(o Options) error {
	if strings.TrimSpace(o.USBVID) == "" || strings.TrimSpace(o.USBPID) == "" {
		return invalid("--usb-vid and --usb-pid are required for usb connection")
	}
	vid, err := printer.ParseUSBID(o.USBVID)
	if err != nil {
		return invalid("usb-vid: %v", err)
	}
	pid, err := printer.ParseUSBID(o.USBPID)
	if err != nil {
		return invalid("usb-pid: %v", err)
	}
	iface, err := parseInt(o.USBInterface, 0, "usb-interface")
	if err != nil {
		return err
	}
	if iface < 0 {
		return invalid("usb-interface must not be negative, got %d", iface)
	}
	r.USB = printer.USBTarget{VID: vid, PID: pid, Interface: iface}
	return nil
}

func (r *Request) parseSerial(o Options) error {
	r.SerialPort = strings.TrimSpace(o.SerialPort)
	if r.SerialPort == "" {
		return invalid("--serial-port is required for serial connection")
	}
	baud, err := parseInt(o.Baud, printer.DefaultBaud, "baud")
	if err != nil {
		return err
	}
	if baud <= 0 {
		return invalid("baud must be positive, got %d", baud)
	}
	r.Baud = baud
	return nil
}

func (r *Request) parseNetwork(o Options) error {
	r.Host = strings.TrimSpace(o.Host)
	if r.Host == "" {
		return invalid("--host is required for network connection")
	}
	port, err := parseInt(o.Port, printer.DefaultRawPort, "port")
	if err != nil {
		return err
	}
	if port < 1 || port > 65535 {
		return invalid("port must be between 1 and 65535, got %d", port)
	}
	r.Port = port
	return nil
}

func parseFinite(s string, def float64, name string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, invalid("%s is not a valid number: %s", name, s)
	}
	return v, nil
}

func parseInt(s string, def int, name string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, invalid("%s is not a valid integer: %s", name, s)
	}
	return v, nil
}
