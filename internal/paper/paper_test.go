package paper

import (
	"math"
	"testing"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		size      Size
		dpi       float64
		total     int
		margin    int
		printable int
	}{
		{Size58, 203, 464, 9, 440},
		{Size80, 203, 639, 13, 608},
		{Size58, 300, 685, 14, 656},
		{Size80, 300, 945, 19, 904},
		{Size58, 1, 2, 0, 0},
	}

	for _, tt := range tests {
		g := Compute(tt.size, tt.dpi)
		if g.TotalWidth != tt.total {
			t.Errorf("%v@%v: total = %d, want %d", tt.size, tt.dpi, g.TotalWidth, tt.total)
		}
		if g.Margin != tt.margin {
			t.Errorf("%v@%v: margin = %d, want %d", tt.size, tt.dpi, g.Margin, tt.margin)
		}
		if g.PrintableWidth != tt.printable {
			t.Errorf("%v@%v: printable = %d, want %d", tt.size, tt.dpi, g.PrintableWidth, tt.printable)
		}
	}
}

func TestPrintableWidthProperties(t *testing.T) {
	for _, size := range []Size{Size58, Size80} {
		prev := 0
		for dpi := 1; dpi <= 1200; dpi++ {
			w := PrintableWidth(size, float64(dpi))
			if w < 0 {
				t.Fatalf("%v@%d: negative width %d", size, dpi, w)
			}
			if w%8 != 0 {
				t.Fatalf("%v@%d: width %d is not a multiple of 8", size, dpi, w)
			}
			if w > PixelsFromMM(size.WidthMM(), float64(dpi)) {
				t.Fatalf("%v@%d: width %d exceeds paper width", size, dpi, w)
			}
			if w < prev {
				t.Fatalf("%v@%d: width %d decreased from %d", size, dpi, w, prev)
			}
			prev = w
		}
	}
}

func TestParseSize(t *testing.T) {
	for _, in := range []string{"58", "58mm", " 58 "} {
		s, err := ParseSize(in)
		if err != nil || s != Size58 {
			t.Errorf("ParseSize(%q) = %v, %v", in, s, err)
		}
	}
	if s, err := ParseSize("80"); err != nil || s != Size80 {
		t.Errorf("ParseSize(80) = %v, %v", s, err)
	}
	for _, in := range []string{"", "57", "a4", "80.5"} {
		if _, err := ParseSize(in); err == nil {
			t.Errorf("ParseSize(%q) should fail", in)
		}
	}
}

func TestConversions(t *testing.T) {
	if got := PointsFromMM(25.4); math.Abs(got-72) > 1e-9 {
		t.Errorf("PointsFromMM(25.4) = %v, want 72", got)
	}
	if got := MMFromPixels(203, 203); math.Abs(got-25.4) > 1e-9 {
		t.Errorf("MMFromPixels(203, 203) = %v, want 25.4", got)
	}
	if got := PixelsFromMM(25.4, 203); got != 203 {
		t.Errorf("PixelsFromMM(25.4, 203) = %d, want 203", got)
	}
}
