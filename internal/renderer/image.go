package renderer

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// ErrNoDimensions is returned for images that decode to an empty rectangle.
var ErrNoDimensions = errors.New("image has no dimensions")

// Loader decodes image files and fits them to a printer width.
type Loader struct{}

// ResizedHeight keeps the aspect ratio of a w x h image scaled to width.
func ResizedHeight(w, h, width int) int {
	rh := int(math.Round(float64(h) * float64(width) / float64(w)))
	if rh < 1 {
		return 1
	}
	return rh
}

// Load decodes path with EXIF orientation applied, resizes it to width with
// Lanczos resampling, flattens transparency onto white and applies darkness.
// Darkness is a percentage: 100 leaves the image unchanged, higher values
// darken it.
func (Loader) Load(path string, width, darkness int) (*image.NRGBA, error) {
	if width <= 0 {
		return nil, fmt.Errorf("invalid target width %d", width)
	}
	src, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoDimensions)
	}

	img := imaging.Resize(src, width, ResizedHeight(b.Dx(), b.Dy(), width), imaging.Lanczos)
	img = imaging.Overlay(imaging.New(img.Bounds().Dx(), img.Bounds().Dy(), color.White), img, image.Pt(0, 0), 1.0)
	return applyDarkness(img, darkness), nil
}

// LoadGray is Load followed by conversion to 8-bit luma.
func (l Loader) LoadGray(path string, width, darkness int) (*image.Gray, error) {
	img, err := l.Load(path, width, darkness)
	if err != nil {
		return nil, err
	}
	return ToGray(img), nil
}

// LoadPNG is Load followed by grayscale PNG encoding. It returns the
// encoded bytes and the pixel size of the encoded image.
func (l Loader) LoadPNG(path string, width, darkness int) ([]byte, image.Point, error) {
	img, err := l.LoadGray(path, width, darkness)
	if err != nil {
		return nil, image.Point{}, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, image.Point{}, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), img.Bounds().Size(), nil
}

// ToGray converts img to an *image.Gray anchored at the origin.
func ToGray(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

func applyDarkness(img *image.NRGBA, darkness int) *image.NRGBA {
	if darkness <= 0 || darkness == 100 {
		return img
	}
	factor := 100.0 / float64(darkness)
	scale := func(v uint8) uint8 {
		return uint8(math.Min(255, math.Round(float64(v)*factor)))
	}
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: scale(c.R), G: scale(c.G), B: scale(c.B), A: c.A}
	})
}
