package job

import (
	"errors"

	"github.com/thereceipt/printer-tool/internal/printer"
	"github.com/thereceipt/printer-tool/internal/spooler"
)

// Error kinds surfaced by a print job. Every one of them is terminal.
var (
	// ErrValidation covers bad or missing options. No I/O has happened.
	ErrValidation = errors.New("invalid request")
	// ErrInputFile covers unreadable or undecodable input images.
	ErrInputFile = errors.New("input file error")

	ErrDeviceNotFound   = printer.ErrDeviceNotFound
	ErrEndpointNotFound = printer.ErrEndpointNotFound
	ErrTransfer         = printer.ErrTransfer
	ErrSpooler          = spooler.ErrSpooler
)

// Kind names the error kind of err, or "" when it has none.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrInputFile):
		return "input_file"
	case errors.Is(err, ErrDeviceNotFound):
		return "device_not_found"
	case errors.Is(err, ErrEndpointNotFound):
		return "endpoint_not_found"
	case errors.Is(err, ErrTransfer):
		return "transfer"
	case errors.Is(err, ErrSpooler):
		return "spooler"
	}
	return ""
}
