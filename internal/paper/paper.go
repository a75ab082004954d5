// Package paper converts physical paper sizes into printer pixel geometry.
package paper

import (
	"fmt"
	"math"
	"strings"
)

// MMPerInch is the number of millimetres in one inch.
const MMPerInch = 25.4

// pointsPerInch is the PDF user-space unit density.
const pointsPerInch = 72.0

// marginRatio is the fraction of the full dot width reserved on each side.
const marginRatio = 0.02

// Size is a supported roll width in millimetres.
type Size int

// Supported roll widths
const (
	Size58 Size = 58
	Size80 Size = 80
)

// ParseSize parses "58" or "80" (an optional "mm" suffix is accepted).
func ParseSize(s string) (Size, error) {
	switch strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "mm") {
	case "58":
		return Size58, nil
	case "80":
		return Size80, nil
	}
	return 0, fmt.Errorf("unsupported paper size %q (use 58 or 80)", s)
}

// WidthMM returns the roll width in millimetres.
func (s Size) WidthMM() float64 {
	return float64(s)
}

func (s Size) String() string {
	return fmt.Sprintf("%dmm", int(s))
}

// Geometry is the pixel layout of one paper size at one resolution.
type Geometry struct {
	Paper          Size
	DPI            float64
	TotalWidth     int // full paper width in dots
	Margin         int // dots reserved on each side
	PrintableWidth int // usable dots, always a multiple of 8
}

// PixelsFromMM converts a physical length to dots, rounding to nearest.
func PixelsFromMM(mm, dpi float64) int {
	return int(math.Round(mm / MMPerInch * dpi))
}

// MMFromPixels converts a dot count back to millimetres.
func MMFromPixels(px int, dpi float64) float64 {
	return float64(px) / dpi * MMPerInch
}

// PointsFromMM converts millimetres to PDF points.
func PointsFromMM(mm float64) float64 {
	return mm * pointsPerInch / MMPerInch
}

// Compute derives the pixel geometry for size at dpi. The printable width is
// the full width minus a 2% margin on each side, truncated to whole bytes.
func Compute(size Size, dpi float64) Geometry {
	total := PixelsFromMM(size.WidthMM(), dpi)
	margin := int(math.Round(float64(total) * marginRatio))
	usable := total - 2*margin
	if usable < 0 {
		usable = 0
	}
	return Geometry{
		Paper:          size,
		DPI:            dpi,
		TotalWidth:     total,
		Margin:         margin,
		PrintableWidth: (usable / 8) * 8,
	}
}

// PrintableWidth is shorthand for Compute(size, dpi).PrintableWidth.
func PrintableWidth(size Size, dpi float64) int {
	return Compute(size, dpi).PrintableWidth
}
