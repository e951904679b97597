package linalg

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// Mat4 is a row-major 4×4 homogeneous transform. Element (row, col) lives
// at index 4*row+col. Note this is the transpose of mgl64.Mat4's layout.
type Mat4 [16]float64

func Ident4() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

func (a Mat4) At(row, col int) float64 {
	return a[4*row+col]
}

// Mul4 returns a·b.
func (a Mat4) Mul4(b Mat4) Mat4 {
	var out Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += a[4*i+k] * b[4*k+j]
			}
			out[4*i+j] = sum
		}
	}
	return out
}

func (a Mat4) MulVec4(v mgl64.Vec4) mgl64.Vec4 {
	var out mgl64.Vec4
	for i := 0; i < 4; i++ {
		out[i] = a[4*i]*v[0] + a[4*i+1]*v[1] + a[4*i+2]*v[2] + a[4*i+3]*v[3]
	}
	return out
}

// Transform promotes p to (x, y, z, 1), applies a and drops w.
func (a Mat4) Transform(p mgl64.Vec3) mgl64.Vec3 {
	return a.MulVec4(p.Vec4(1)).Vec3()
}

func (a Mat4) Transpose() Mat4 {
	var out Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[4*j+i] = a[4*i+j]
		}
	}
	return out
}

func (a Mat4) Matrix() Matrix {
	return Matrix{Rows: 4, Cols: 4, Data: append([]float64(nil), a[:]...)}
}

func Mat4FromMatrix(m Matrix) (Mat4, error) {
	if m.Rows != 4 || m.Cols != 4 || len(m.Data) != 16 {
		return Mat4{}, errors.Wrapf(ErrDimensionMismatch, "%dx%d is not 4x4", m.Rows, m.Cols)
	}
	var out Mat4
	copy(out[:], m.Data)
	return out, nil
}

func (a Mat4) Det() float64 {
	return determinant(a[:], 4)
}

func (a Mat4) Inverse() (Mat4, error) {
	inv, err := Inverse(a.Matrix())
	if err != nil {
		return Mat4{}, err
	}
	return Mat4FromMatrix(inv)
}

func (a Mat4) ApproxEqual(b Mat4, eps float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > eps {
			return false
		}
	}
	return true
}

// Mgl converts to mathgl's column-major layout.
func (a Mat4) Mgl() mgl64.Mat4 {
	return mgl64.Mat4(a.Transpose())
}

func FromMgl(m mgl64.Mat4) Mat4 {
	return Mat4(m).Transpose()
}

// ColumnMajor32 is the layout a GL uniformMatrix4fv upload expects.
func (a Mat4) ColumnMajor32() mgl32.Mat4 {
	var out mgl32.Mat4
	for i, v := range a.Transpose() {
		out[i] = float32(v)
	}
	return out
}
