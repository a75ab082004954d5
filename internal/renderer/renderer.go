// Package renderer prepares source images for printing and draws previews
// of the resulting 1-bit rasters.
package renderer

import (
	"fmt"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/thereceipt/printer-tool/internal/paper"
	"github.com/thereceipt/printer-tool/internal/raster"
)

// guideColor marks the unprintable margins on previews.
var guideColor = color.RGBA{R: 0xE0, G: 0x40, B: 0x40, A: 0xFF}

// Preview draws img centred on a canvas as wide as the paper, with the
// margins outlined, the way a centred ESC/POS raster lands on the roll.
func Preview(img *raster.Image, g paper.Geometry) *gg.Context {
	width := g.TotalWidth
	if width < img.Width() {
		width = img.Width()
	}
	height := img.Height()
	if height < 1 {
		height = 1
	}

	ctx := gg.NewContext(width, height)
	ctx.SetColor(color.White)
	ctx.Clear()

	x := (width - img.Width()) / 2
	ctx.DrawImage(img.ToGray(), x, 0)

	if g.Margin > 0 {
		ctx.SetColor(guideColor)
		ctx.SetLineWidth(1)
		left := float64(g.Margin) - 0.5
		right := float64(width-g.Margin) + 0.5
		ctx.DrawLine(left, 0, left, float64(height))
		ctx.DrawLine(right, 0, right, float64(height))
		ctx.Stroke()
	}
	return ctx
}

// WritePreview renders a preview and saves it as PNG.
func WritePreview(path string, img *raster.Image, g paper.Geometry) error {
	if err := Preview(img, g).SavePNG(path); err != nil {
		return fmt.Errorf("failed to save preview: %w", err)
	}
	return nil
}
