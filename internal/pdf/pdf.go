// Package pdf builds single-page PDFs holding one full-bleed image.
package pdf

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

const imageName = "page"

// Write renders png as the only page of a PDF whose MediaBox is exactly
// widthPt x heightPt points, and writes the document to w.
func Write(w io.Writer, png []byte, widthPt, heightPt float64) error {
	if widthPt <= 0 || heightPt <= 0 {
		return fmt.Errorf("invalid page size %.2fx%.2fpt", widthPt, heightPt)
	}

	size := fpdf.SizeType{Wd: widthPt, Ht: heightPt}
	doc := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           size,
	})
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	doc.AddPage()

	opt := fpdf.ImageOptions{ImageType: "PNG"}
	doc.RegisterImageOptionsReader(imageName, opt, bytes.NewReader(png))
	doc.ImageOptions(imageName, 0, 0, widthPt, heightPt, false, opt, 0, "")

	if err := doc.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}
