// Package raster packs grayscale pixels into 1-bit row-major bitmaps.
//
// A set bit means "print a dot". Bit 7 of each byte is the leftmost pixel of
// the eight it covers. Rows are padded on the right to a whole byte.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// ErrBitmapSize is returned when a bitmap length does not match its dimensions.
var ErrBitmapSize = errors.New("bitmap length does not match dimensions")

// Image is an immutable 1-bit raster.
type Image struct {
	width       int
	height      int
	bytesPerRow int
	bitmap      []byte
}

// BytesPerRow returns the packed row stride for a pixel width.
func BytesPerRow(width int) int {
	return (width + 7) / 8
}

// New wraps an already packed bitmap. The slice is copied.
func New(width, height int, bitmap []byte) (*Image, error) {
	if width <= 0 || height < 0 {
		return nil, fmt.Errorf("invalid raster dimensions %dx%d", width, height)
	}
	bpr := BytesPerRow(width)
	if len(bitmap) != bpr*height {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrBitmapSize, len(bitmap), bpr*height)
	}
	buf := make([]byte, len(bitmap))
	copy(buf, bitmap)
	return &Image{width: width, height: height, bytesPerRow: bpr, bitmap: buf}, nil
}

// Pack thresholds a row-major 8-bit grayscale buffer. A pixel becomes a dot
// when its value is strictly less than threshold, so a threshold of 0 yields
// a blank image.
func Pack(gray []byte, width, height int, threshold uint8) (*Image, error) {
	if width <= 0 || height < 0 {
		return nil, fmt.Errorf("invalid raster dimensions %dx%d", width, height)
	}
	if len(gray) < width*height {
		return nil, fmt.Errorf("%w: got %d pixels, want %d", ErrBitmapSize, len(gray), width*height)
	}

	bpr := BytesPerRow(width)
	bitmap := make([]byte, bpr*height)
	for y := 0; y < height; y++ {
		row := gray[y*width : (y+1)*width]
		out := bitmap[y*bpr : (y+1)*bpr]
		for x, v := range row {
			if v < threshold {
				out[x>>3] |= 0x80 >> uint(x&7)
			}
		}
	}
	return &Image{width: width, height: height, bytesPerRow: bpr, bitmap: bitmap}, nil
}

// PackGray thresholds an *image.Gray, honouring its bounds and stride.
func PackGray(img *image.Gray, threshold uint8) (*Image, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == img.Stride && b.Min == (image.Point{}) {
		return Pack(img.Pix, w, h, threshold)
	}

	pix := make([]byte, w*h)
	for y := 0; y < h; y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(pix[y*w:(y+1)*w], img.Pix[off:off+w])
	}
	return Pack(pix, w, h, threshold)
}

// Width returns the image width in pixels.
func (im *Image) Width() int { return im.width }

// Height returns the number of rows.
func (im *Image) Height() int { return im.height }

// BytesPerRow returns the packed row stride.
func (im *Image) BytesPerRow() int { return im.bytesPerRow }

// Len returns the bitmap length in bytes.
func (im *Image) Len() int { return len(im.bitmap) }

// Bitmap returns a copy of the packed bits.
func (im *Image) Bitmap() []byte {
	out := make([]byte, len(im.bitmap))
	copy(out, im.bitmap)
	return out
}

// AppendBitmap appends the packed bits to dst.
func (im *Image) AppendBitmap(dst []byte) []byte {
	return append(dst, im.bitmap...)
}

// Dot reports whether the pixel at (x, y) prints.
func (im *Image) Dot(x, y int) bool {
	if x < 0 || y < 0 || x >= im.width || y >= im.height {
		return false
	}
	return im.bitmap[y*im.bytesPerRow+(x>>3)]&(0x80>>uint(x&7)) != 0
}

// ToGray expands the raster back to black and white pixels.
func (im *Image) ToGray() *image.Gray {
	out := image.NewGray(image.Rect(0, 0, im.width, im.height))
	for y := 0; y < im.height; y++ {
		for x := 0; x < im.width; x++ {
			c := color.Gray{Y: 0xFF}
			if im.Dot(x, y) {
				c.Y = 0
			}
			out.SetGray(x, y, c)
		}
	}
	return out
}
