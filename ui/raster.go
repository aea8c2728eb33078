package ui

import (
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/ashfall-engine/rhi/handle"
	"github.com/ashfall-engine/rhi/internal/backend"
)

// TextureLookup resolves an image command's texture handle to pixels.
type TextureLookup func(h handle.TextureHandle) (*backend.Image, bool)

// Rasterize draws cl's commands in sorted order into img. It is the CPU
// reference for the UI pipeline's pixel shader: same command order, same
// per-kind evaluation, so two identical command lists always produce
// byte-identical output. Valid only after Sort.
func Rasterize(cl *CommandList, img *backend.Image, lookup TextureLookup) {
	if cl.state == StateBuilding {
		panic("ui: Rasterize called before Sort")
	}

	for _, idx := range cl.sortedIdx {
		c := &cl.commands[idx]
		switch c.kind {
		case KindBox:
			rasterBox(cl, img, &c.box)
		case KindImage:
			rasterImage(cl, img, &c.img, lookup)
		case KindCircle:
			rasterCircle(cl, img, &c.circle)
		}
	}
}

// bounds clamps a rect's pixel coverage to the target, additionally
// clipped by the command's clip rect when one is referenced.
func bounds(cl *CommandList, img *backend.Image, r Rect, clip uint16) (minX, minY, maxX, maxY int) {
	minXf := r.OriginX - r.RadiusX
	minYf := r.OriginY - r.RadiusY
	maxXf := r.OriginX + r.RadiusX
	maxYf := r.OriginY + r.RadiusY

	if int(clip) < len(cl.clipRects) {
		cr := cl.clipRects[clip].Rect
		minXf = maxf(minXf, cr.OriginX-cr.RadiusX)
		minYf = maxf(minYf, cr.OriginY-cr.RadiusY)
		maxXf = minf(maxXf, cr.OriginX+cr.RadiusX)
		maxYf = minf(maxYf, cr.OriginY+cr.RadiusY)
	}

	minX = clampi(int(minXf), 0, img.Width)
	minY = clampi(int(minYf), 0, img.Height)
	maxX = clampi(int(maxXf+1), 0, img.Width)
	maxY = clampi(int(maxYf+1), 0, img.Height)
	return
}

// cornerColor evaluates the four-corner gradient at normalized (u, v)
// inside the rect, blending in gamma-correct linear RGB via go-colorful
// rather than naive byte-space lerp.
func cornerColor(c Colors, u, v float64) colorful.Color {
	top := c.TopLeft.BlendLinearRgb(c.TopRight, u)
	bottom := c.BottomLeft.BlendLinearRgb(c.BottomRight, u)
	return top.BlendLinearRgb(bottom, v)
}

func writeColor(img *backend.Image, x, y int, c colorful.Color) {
	r, g, b := c.Clamped().RGB255()
	i := (y*img.Width + x) * 4
	img.Pixels[i] = r
	img.Pixels[i+1] = g
	img.Pixels[i+2] = b
	img.Pixels[i+3] = 0xFF
}

func rasterBox(cl *CommandList, img *backend.Image, box *BoxCommand) {
	minX, minY, maxX, maxY := bounds(cl, img, box.Rect, box.ClipRect)
	if maxX <= minX || maxY <= minY {
		return
	}

	w := float64(box.Rect.RadiusX * 2)
	h := float64(box.Rect.RadiusY * 2)
	x0 := float64(box.Rect.OriginX - box.Rect.RadiusX)
	y0 := float64(box.Rect.OriginY - box.Rect.RadiusY)

	for y := minY; y < maxY; y++ {
		for x := minX; x < maxX; x++ {
			u := (float64(x) + 0.5 - x0) / w
			v := (float64(y) + 0.5 - y0) / h
			if u < 0 || u > 1 || v < 0 || v > 1 {
				continue
			}
			if !insideRounded(box.Rect, box.Roundedness, float32(x)+0.5, float32(y)+0.5) {
				continue
			}
			writeColor(img, x, y, cornerColor(box.Colors, u, v))
		}
	}
}

// insideRounded tests a point against the rect with per-corner radii —
// the signed-distance evaluation the pixel shader performs.
func insideRounded(r Rect, roundedness [4]float32, px, py float32) bool {
	dx := px - r.OriginX
	dy := py - r.OriginY

	var radius float32
	switch {
	case dx < 0 && dy < 0:
		radius = roundedness[0]
	case dx >= 0 && dy < 0:
		radius = roundedness[1]
	case dx < 0 && dy >= 0:
		radius = roundedness[2]
	default:
		radius = roundedness[3]
	}
	if radius <= 0 {
		return true
	}

	ax := absf(dx) - (r.RadiusX - radius)
	ay := absf(dy) - (r.RadiusY - radius)
	if ax <= 0 || ay <= 0 {
		return true
	}
	return ax*ax+ay*ay <= radius*radius
}

func rasterImage(cl *CommandList, img *backend.Image, cmd *ImageCommand, lookup TextureLookup) {
	tex, ok := lookup(cmd.Texture)
	if !ok {
		return
	}
	minX, minY, maxX, maxY := bounds(cl, img, cmd.Rect, cmd.ClipRect)
	if maxX <= minX || maxY <= minY {
		return
	}

	w := float64(cmd.Rect.RadiusX * 2)
	h := float64(cmd.Rect.RadiusY * 2)
	x0 := float64(cmd.Rect.OriginX - cmd.Rect.RadiusX)
	y0 := float64(cmd.Rect.OriginY - cmd.Rect.RadiusY)

	for y := minY; y < maxY; y++ {
		for x := minX; x < maxX; x++ {
			u := (float64(x) + 0.5 - x0) / w
			v := (float64(y) + 0.5 - y0) / h
			if u < 0 || u > 1 || v < 0 || v > 1 {
				continue
			}

			tu := float64(cmd.UVs.OriginX-cmd.UVs.RadiusX) + u*float64(cmd.UVs.RadiusX*2)
			tv := float64(cmd.UVs.OriginY-cmd.UVs.RadiusY) + v*float64(cmd.UVs.RadiusY*2)
			tx := clampi(int(tu*float64(tex.Width)), 0, tex.Width-1)
			ty := clampi(int(tv*float64(tex.Height)), 0, tex.Height-1)

			texel := tex.At(tx, ty)
			i := (y*img.Width + x) * 4
			img.Pixels[i] = texel[0]
			img.Pixels[i+1] = texel[1]
			img.Pixels[i+2] = texel[2]
			img.Pixels[i+3] = texel[3]
		}
	}
}

func rasterCircle(cl *CommandList, img *backend.Image, circle *CircleCommand) {
	minX, minY, maxX, maxY := bounds(cl, img, circle.Rect, circle.ClipRect)
	if maxX <= minX || maxY <= minY {
		return
	}

	rx := float64(circle.Rect.RadiusX)
	ry := float64(circle.Rect.RadiusY)
	cx := float64(circle.Rect.OriginX)
	cy := float64(circle.Rect.OriginY)

	for y := minY; y < maxY; y++ {
		for x := minX; x < maxX; x++ {
			dx := (float64(x) + 0.5 - cx) / rx
			dy := (float64(y) + 0.5 - cy) / ry
			if dx*dx+dy*dy > 1 {
				continue
			}
			u := (dx + 1) * 0.5
			v := (dy + 1) * 0.5
			writeColor(img, x, y, cornerColor(circle.Colors, u, v))
		}
	}
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func clampi(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
