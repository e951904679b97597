package raster

import (
	"image"
	"math"
)

// Vertex is a projected vertex: screen-space x and y in pixels, clip-space
// z, texture coordinates and the depth color factor.
type Vertex struct {
	X, Y, Z float64
	U, V    float64
	Shade   float64
}

// ShadeFactor is the depth cue of the figure shader: clamp((1-z)/2, 0, 1).
func ShadeFactor(z float64) float64 {
	return clampUnit((1 - z) / 2)
}

// RasterizeTriangle fills one triangle with depth test, texture and
// shade. Pixels outside the clip depth range [-1, 1] are dropped. A nil
// texture draws white.
func RasterizeTriangle(fb *FrameBuffer, a, b, c Vertex, tex *image.NRGBA) {
	minX := int(math.Floor(math.Min(math.Min(a.X, b.X), c.X)))
	maxX := int(math.Ceil(math.Max(math.Max(a.X, b.X), c.X)))
	minY := int(math.Floor(math.Min(math.Min(a.Y, b.Y), c.Y)))
	maxY := int(math.Ceil(math.Max(math.Max(a.Y, b.Y), c.Y)))

	minX = max(minX, 0)
	minY = max(minY, 0)
	maxX = min(maxX, fb.Width-1)
	maxY = min(maxY, fb.Height-1)
	if minX > maxX || minY > maxY {
		return
	}

	// Barycentric setup
	det := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
	if det > -1e-12 && det < 1e-12 {
		return
	}
	invDet := 1.0 / det

	dy12 := b.Y - c.Y
	dx21 := c.X - b.X
	dy20 := c.Y - a.Y
	dx02 := a.X - c.X

	for sy := minY; sy <= maxY; sy++ {
		dsy := float64(sy) + 0.5 - c.Y
		rowOff := sy * fb.Width
		for sx := minX; sx <= maxX; sx++ {
			dsx := float64(sx) + 0.5 - c.X
			w0 := (dy12*dsx + dx21*dsy) * invDet
			w1 := (dy20*dsx + dx02*dsy) * invDet
			w2 := 1.0 - w0 - w1

			if w0 < -1e-9 || w1 < -1e-9 || w2 < -1e-9 {
				continue
			}

			z := w0*a.Z + w1*b.Z + w2*c.Z
			if z < -1 || z > 1 {
				continue
			}
			zIdx := rowOff + sx
			if z >= fb.ZBuf[zIdx] {
				continue
			}

			cr, cg, cb, ca := uint8(255), uint8(255), uint8(255), uint8(255)
			if tex != nil {
				u := w0*a.U + w1*b.U + w2*c.U
				v := w0*a.V + w1*b.V + w2*c.V
				cr, cg, cb, ca = SampleTexture(tex, u, v)
			}
			if ca == 0 {
				continue
			}
			fb.ZBuf[zIdx] = z

			shade := w0*a.Shade + w1*b.Shade + w2*c.Shade
			pxIdx := zIdx * 4
			fb.Color[pxIdx] = clamp255(float64(cr) * shade)
			fb.Color[pxIdx+1] = clamp255(float64(cg) * shade)
			fb.Color[pxIdx+2] = clamp255(float64(cb) * shade)
			fb.Color[pxIdx+3] = ca
		}
	}
}

func clamp255(f float64) uint8 {
	if f <= 0 {
		return 0
	}
	if f >= 255 {
		return 255
	}
	return uint8(f + 0.5)
}
