package printer

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/thereceipt/printer-tool/internal/raster"
)

// EncodeZPL renders a raster as a single ZPL label carrying one ^GFA field.
// Lines are joined with "\n" and there is no trailing newline.
func EncodeZPL(img *raster.Image) []byte {
	total := img.Len()
	data := strings.ToUpper(hex.EncodeToString(img.AppendBitmap(make([]byte, 0, total))))

	lines := []string{
		"^XA",
		fmt.Sprintf("^PW%d", img.Width()),
		"^LH0,0",
		"^FO0,0",
		fmt.Sprintf("^GFA,%d,%d,%d,%s", total, total, img.BytesPerRow(), data),
		"^XZ",
	}
	return []byte(strings.Join(lines, "\n"))
}
