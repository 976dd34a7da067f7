package boxblur

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// Composite produces the final output surface for a blur.
//
// The original is drawn first, then the blurred image is drawn fully opaque
// (draw.Src) over the same bounds. With equal sizes the second draw replaces
// every pixel, so the result equals the blurred image; the first draw only
// matters as a base layer. A blurred image of a different size is scaled to
// fit with bilinear filtering.
func Composite(original, blurred image.Image) *image.RGBA {
	ob := original.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, ob.Dx(), ob.Dy()))
	xdraw.Draw(out, out.Rect, original, ob.Min, xdraw.Src)

	if blurred == nil {
		return out
	}

	bb := blurred.Bounds()
	if bb.Dx() == ob.Dx() && bb.Dy() == ob.Dy() {
		xdraw.Copy(out, image.Point{}, blurred, bb, xdraw.Src, nil)
	} else {
		xdraw.BiLinear.Scale(out, out.Rect, blurred, bb, xdraw.Src, nil)
	}
	return out
}
