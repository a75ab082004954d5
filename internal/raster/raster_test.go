package raster

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"
)

func fill(n int, v byte) []byte {
	return bytes.Repeat([]byte{v}, n)
}

func TestPackUniformPlanes(t *testing.T) {
	const w, h = 16, 3
	for th := 1; th <= 255; th++ {
		white, err := Pack(fill(w*h, 255), w, h, uint8(th))
		if err != nil {
			t.Fatalf("Pack white: %v", err)
		}
		if !bytes.Equal(white.Bitmap(), make([]byte, 2*h)) {
			t.Fatalf("threshold %d: white plane produced dots", th)
		}

		black, err := Pack(fill(w*h, 0), w, h, uint8(th))
		if err != nil {
			t.Fatalf("Pack black: %v", err)
		}
		if !bytes.Equal(black.Bitmap(), fill(2*h, 0xFF)) {
			t.Fatalf("threshold %d: black plane has gaps", th)
		}
	}
}

func TestPackThresholdIsStrict(t *testing.T) {
	img, err := Pack([]byte{127, 128, 129, 0, 255, 128, 127, 1}, 8, 1, 128)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	// dots at x=0, x=3, x=6, x=7
	if got := img.Bitmap()[0]; got != 0x93 {
		t.Errorf("bitmap = %#02x, want 0x93", got)
	}

	blank, _ := Pack(fill(8, 0), 8, 1, 0)
	if blank.Bitmap()[0] != 0 {
		t.Errorf("threshold 0 must never print")
	}
}

func TestPackBitOrder(t *testing.T) {
	for x := 0; x < 8; x++ {
		row := fill(8, 255)
		row[x] = 0
		img, err := Pack(row, 8, 1, 128)
		if err != nil {
			t.Fatalf("Pack: %v", err)
		}
		want := byte(0x80 >> uint(x))
		if got := img.Bitmap()[0]; got != want {
			t.Errorf("pixel %d: byte = %#02x, want %#02x", x, got, want)
		}
		if !img.Dot(x, 0) {
			t.Errorf("Dot(%d, 0) = false", x)
		}
	}
}

func TestPackPadsPartialBytes(t *testing.T) {
	img, err := Pack(fill(10*2, 0), 10, 2, 128)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if img.BytesPerRow() != 2 {
		t.Fatalf("BytesPerRow = %d, want 2", img.BytesPerRow())
	}
	want := []byte{0xFF, 0xC0, 0xFF, 0xC0}
	if !bytes.Equal(img.Bitmap(), want) {
		t.Errorf("bitmap = % x, want % x", img.Bitmap(), want)
	}
}

func TestPackEmptyHeight(t *testing.T) {
	img, err := Pack(nil, 8, 0, 128)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if img.Len() != 0 || img.Height() != 0 {
		t.Errorf("expected empty bitmap, got %d bytes", img.Len())
	}
}

func TestPackRejectsShortInput(t *testing.T) {
	if _, err := Pack(fill(7, 0), 8, 1, 128); !errors.Is(err, ErrBitmapSize) {
		t.Errorf("err = %v, want ErrBitmapSize", err)
	}
	if _, err := Pack(nil, 0, 1, 128); err == nil {
		t.Errorf("zero width should fail")
	}
}

func TestPackGraySubImage(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 16, 4))
	for i := range src.Pix {
		src.Pix[i] = 255
	}
	src.SetGray(9, 2, color.Gray{Y: 0})

	sub := src.SubImage(image.Rect(8, 2, 16, 3)).(*image.Gray)
	img, err := PackGray(sub, 128)
	if err != nil {
		t.Fatalf("PackGray: %v", err)
	}
	if img.Width() != 8 || img.Height() != 1 {
		t.Fatalf("size = %dx%d, want 8x1", img.Width(), img.Height())
	}
	if got := img.Bitmap()[0]; got != 0x40 {
		t.Errorf("bitmap = %#02x, want 0x40", got)
	}
}

func TestToGrayRoundTrip(t *testing.T) {
	img, err := New(9, 2, []byte{0xA5, 0x80, 0x01, 0x00})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	again, err := PackGray(img.ToGray(), 128)
	if err != nil {
		t.Fatalf("PackGray: %v", err)
	}
	if !bytes.Equal(img.Bitmap(), again.Bitmap()) {
		t.Errorf("round trip = % x, want % x", again.Bitmap(), img.Bitmap())
	}
}

func TestNewCopiesInput(t *testing.T) {
	bits := []byte{0xFF}
	img, err := New(8, 1, bits)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	bits[0] = 0
	if img.Bitmap()[0] != 0xFF {
		t.Errorf("raster aliased caller slice")
	}
	if _, err := New(8, 2, bits); !errors.Is(err, ErrBitmapSize) {
		t.Errorf("err = %v, want ErrBitmapSize", err)
	}
}
