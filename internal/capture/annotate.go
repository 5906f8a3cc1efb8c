package capture

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Marker geometry in canvas pixels.
const (
	RingRadius = 60
	RingStroke = 3
	DotRadius  = 5
)

var (
	ringFill   = color.NRGBA{R: 255, G: 255, A: 77}
	ringStroke = color.NRGBA{R: 255, G: 255, A: 153}
	dotFill    = color.NRGBA{R: 255, A: 230}
	labelColor = color.RGBA{R: 255, A: 255}
)

// Annotate returns a copy of img with a marker centred on (x, y): a
// translucent ring, a filled dot and an optional label to its right.
// img itself is left untouched.
func Annotate(img *image.RGBA, x, y int, label string) *image.RGBA {
	out := &image.RGBA{
		Pix:    append([]uint8(nil), img.Pix...),
		Stride: img.Stride,
		Rect:   img.Rect,
	}

	reach := RingRadius + RingStroke
	for py := y - reach; py <= y+reach; py++ {
		for px := x - reach; px <= x+reach; px++ {
			d := math.Hypot(float64(px-x), float64(py-y))
			switch {
			case d <= DotRadius:
				blend(out, px, py, dotFill)
			case math.Abs(d-RingRadius) <= RingStroke/2.0:
				blend(out, px, py, ringStroke)
			case d < RingRadius:
				blend(out, px, py, ringFill)
			}
		}
	}

	if label != "" {
		d := &font.Drawer{
			Dst:  out,
			Src:  image.NewUniform(labelColor),
			Face: basicfont.Face7x13,
			Dot:  fixed.P(x+DotRadius+13, y+4),
		}
		d.DrawString(label)
	}
	return out
}

// blend composites c over the pixel at (x, y). Captured frames are opaque,
// so straight alpha over the premultiplied buffer is exact.
func blend(dst *image.RGBA, x, y int, c color.NRGBA) {
	if !(image.Point{X: x, Y: y}).In(dst.Rect) {
		return
	}
	i := dst.PixOffset(x, y)
	a := uint32(c.A)
	for k, v := range [3]uint8{c.R, c.G, c.B} {
		d := uint32(dst.Pix[i+k])
		dst.Pix[i+k] = uint8((uint32(v)*a + d*(255-a)) / 255)
	}
	da := uint32(dst.Pix[i+3])
	dst.Pix[i+3] = uint8(a + da*(255-a)/255)
}
