package printer

import (
	"bytes"

	"github.com/thereceipt/printer-tool/internal/raster"
)

// ESC/POS commands
const (
	ESC byte = 0x1B
	GS  byte = 0x1D
	LF  byte = 0x0A
)

// Alignment values for ESC a
const (
	AlignLeft   byte = 0
	AlignCenter byte = 1
	AlignRight  byte = 2
)

// trailingFeeds is the number of line feeds before the cut.
const trailingFeeds = 3

// ESCPOSEncoder builds an ESC/POS command stream
type ESCPOSEncoder struct {
	buffer *bytes.Buffer
}

// NewESCPOSEncoder creates a new ESC/POS encoder
func NewESCPOSEncoder() *ESCPOSEncoder {
	return &ESCPOSEncoder{
		buffer: new(bytes.Buffer),
	}
}

// Initialize resets the printer (ESC @)
func (e *ESCPOSEncoder) Initialize() {
	e.buffer.Write([]byte{ESC, '@'})
}

// SetAlignment selects justification (ESC a n)
func (e *ESCPOSEncoder) SetAlignment(align byte) {
	e.buffer.Write([]byte{ESC, 'a', align})
}

// RasterImage emits GS v 0 in normal density. Width and height are sent as
// 16-bit little endian values; larger values are truncated.
func (e *ESCPOSEncoder) RasterImage(img *raster.Image) {
	bpr := img.BytesPerRow()
	h := img.Height()
	e.buffer.Write([]byte{
		GS, 'v', '0', 0x00,
		byte(bpr & 0xFF), byte((bpr >> 8) & 0xFF),
		byte(h & 0xFF), byte((h >> 8) & 0xFF),
	})
	e.buffer.Write(img.AppendBitmap(nil))
}

// LineFeed sends line feed
func (e *ESCPOSEncoder) LineFeed() {
	e.buffer.WriteByte(LF)
}

// Feed sends multiple line feeds
func (e *ESCPOSEncoder) Feed(lines int) {
	for i := 0; i < lines; i++ {
		e.LineFeed()
	}
}

// Cut sends a full cut (GS V 0)
func (e *ESCPOSEncoder) Cut() {
	e.buffer.Write([]byte{GS, 'V', 0x00})
}

// Bytes returns the generated commands
func (e *ESCPOSEncoder) Bytes() []byte {
	return e.buffer.Bytes()
}

// Reset clears the buffer
func (e *ESCPOSEncoder) Reset() {
	e.buffer.Reset()
}

// EncodeESCPOS renders a raster as a complete centred, fed and cut job.
func EncodeESCPOS(img *raster.Image) []byte {
	e := NewESCPOSEncoder()
	e.buffer.Grow(img.Len() + 19)
	e.Initialize()
	e.SetAlignment(AlignCenter)
	e.RasterImage(img)
	e.Feed(trailingFeeds)
	e.Cut()
	return e.Bytes()
}
