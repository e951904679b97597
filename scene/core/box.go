package core

import (
	"github.com/go-gl/mathgl/mgl64"
)

// BoxIndices lists the 12 triangles of a box, two per face.
var BoxIndices = [36]uint16{
	0, 1, 3, 3, 2, 0, // front
	0, 4, 5, 5, 1, 0, // top
	0, 2, 6, 6, 4, 0, // right
	1, 5, 7, 7, 3, 1, // left
	2, 3, 7, 7, 6, 2, // bottom
	4, 6, 7, 7, 5, 4, // back
}

// BoxTexCoords maps each of the 8 vertices to a uv pair.
var BoxTexCoords = [16]float32{
	1, 1,
	0, 1,
	1, 0,
	0, 0,
	0, 0,
	1, 0,
	0, 1,
	1, 1,
}

// Box is the raw, untransformed geometry of a segment.
type Box struct {
	Center   mgl64.Vec3
	Size     mgl64.Vec3
	Vertices [8]mgl64.Vec3
}

// NewBox builds an axis-aligned box of full extents size around center.
// Vertex i has +x when bit 0 is clear, +y when bit 1 is clear and +z when
// bit 2 is clear.
func NewBox(center, size mgl64.Vec3) Box {
	half := size.Mul(0.5)
	b := Box{Center: center, Size: size}
	for i := range b.Vertices {
		v := center
		for axis := 0; axis < 3; axis++ {
			if i&(1<<axis) == 0 {
				v[axis] += half[axis]
			} else {
				v[axis] -= half[axis]
			}
		}
		b.Vertices[i] = v
	}
	return b
}
