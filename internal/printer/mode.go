package printer

import (
	"fmt"
	"strings"

	"github.com/thereceipt/printer-tool/internal/raster"
)

// Mode selects the printer language used for a job.
type Mode string

// Supported modes
const (
	ModeESCPOS Mode = "escpos"
	ModeLabel  Mode = "label"
)

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeESCPOS, ModeLabel:
		return m, nil
	}
	return "", fmt.Errorf("unknown mode %q (use escpos or label)", s)
}

// Encode produces the device payload for img in this mode.
func (m Mode) Encode(img *raster.Image) ([]byte, error) {
	switch m {
	case ModeESCPOS:
		return EncodeESCPOS(img), nil
	case ModeLabel:
		return EncodeZPL(img), nil
	}
	return nil, fmt.Errorf("unknown mode %q", string(m))
}
