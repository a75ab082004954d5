package printer

import "errors"

// Transport error kinds. Callers match them with errors.Is.
var (
	ErrDeviceNotFound   = errors.New("device not found")
	ErrEndpointNotFound = errors.New("no OUT bulk endpoint")
	ErrTransfer         = errors.New("transfer failed")
)
