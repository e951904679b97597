// Package linalg holds the dense matrix kernel the scene graph is built on:
// general n×n determinant/adjoint/inverse plus the 4×4 homogeneous forms.
package linalg

import (
	"math"

	"github.com/pkg/errors"
)

var (
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrSingularMatrix    = errors.New("singular matrix")
)

// SingularEpsilon is the largest |det| still treated as zero by Inverse.
const SingularEpsilon = 1e-12

// Matrix is a row-major rows×cols matrix.
type Matrix struct {
	Rows int
	Cols int
	Data []float64
}

func NewMatrix(rows, cols int, data ...float64) (Matrix, error) {
	if rows <= 0 || cols <= 0 {
		return Matrix{}, errors.Wrapf(ErrDimensionMismatch, "shape %dx%d", rows, cols)
	}
	if data == nil {
		data = make([]float64, rows*cols)
	}
	if len(data) != rows*cols {
		return Matrix{}, errors.Wrapf(ErrDimensionMismatch, "%d values for a %dx%d matrix", len(data), rows, cols)
	}
	return Matrix{Rows: rows, Cols: cols, Data: append([]float64(nil), data...)}, nil
}

func Identity(n int) Matrix {
	m := Matrix{Rows: n, Cols: n, Data: make([]float64, n*n)}
	for i := 0; i < n; i++ {
		m.Data[i*n+i] = 1
	}
	return m
}

func (m Matrix) At(row, col int) float64 {
	return m.Data[row*m.Cols+col]
}

func (m Matrix) IsSquare() bool {
	return m.Rows == m.Cols && len(m.Data) == m.Rows*m.Cols
}

func (m Matrix) valid() bool {
	return m.Rows > 0 && m.Cols > 0 && len(m.Data) == m.Rows*m.Cols
}

// Multiply returns a·b. The inner dimensions must agree.
func Multiply(a, b Matrix) (Matrix, error) {
	if !a.valid() || !b.valid() {
		return Matrix{}, errors.Wrap(ErrDimensionMismatch, "malformed operand")
	}
	if a.Cols != b.Rows {
		return Matrix{}, errors.Wrapf(ErrDimensionMismatch, "%dx%d · %dx%d", a.Rows, a.Cols, b.Rows, b.Cols)
	}
	return Matrix{
		Rows: a.Rows,
		Cols: b.Cols,
		Data: multiply(a.Data, b.Data, a.Rows, a.Cols, b.Cols),
	}, nil
}

func multiply(a, b []float64, r, n, c int) []float64 {
	out := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			var sum float64
			for k := 0; k < n; k++ {
				sum += a[n*i+k] * b[c*k+j]
			}
			out = append(out, sum)
		}
	}
	return out
}

// Minor returns m without row i and column j.
func Minor(m Matrix, i, j int) (Matrix, error) {
	if err := checkSquareIndex(m, i, j); err != nil {
		return Matrix{}, err
	}
	if m.Rows < 2 {
		return Matrix{}, errors.Wrap(ErrDimensionMismatch, "minor of a 1x1 matrix")
	}
	n := m.Rows - 1
	return Matrix{Rows: n, Cols: n, Data: minor(m.Data, m.Rows, i, j)}, nil
}

func Cofactor(m Matrix, i, j int) (float64, error) {
	if err := checkSquareIndex(m, i, j); err != nil {
		return 0, err
	}
	if m.Rows < 2 {
		return 0, errors.Wrap(ErrDimensionMismatch, "cofactor of a 1x1 matrix")
	}
	return cofactor(m.Data, m.Rows, i, j), nil
}

func Determinant(m Matrix) (float64, error) {
	if !m.IsSquare() || m.Rows == 0 {
		return 0, errors.Wrapf(ErrDimensionMismatch, "determinant of %dx%d", m.Rows, m.Cols)
	}
	return determinant(m.Data, m.Rows), nil
}

// Adjoint returns the transposed cofactor matrix.
func Adjoint(m Matrix) (Matrix, error) {
	if !m.IsSquare() || m.Rows < 2 {
		return Matrix{}, errors.Wrapf(ErrDimensionMismatch, "adjoint of %dx%d", m.Rows, m.Cols)
	}
	return Matrix{Rows: m.Rows, Cols: m.Cols, Data: adjoint(m.Data, m.Rows)}, nil
}

func Inverse(m Matrix) (Matrix, error) {
	det, err := Determinant(m)
	if err != nil {
		return Matrix{}, err
	}
	if math.Abs(det) <= SingularEpsilon || math.IsNaN(det) {
		return Matrix{}, errors.Wrapf(ErrSingularMatrix, "det=%g", det)
	}
	if m.Rows == 1 {
		return Matrix{Rows: 1, Cols: 1, Data: []float64{1 / det}}, nil
	}
	adj := adjoint(m.Data, m.Rows)
	for i := range adj {
		adj[i] /= det
	}
	return Matrix{Rows: m.Rows, Cols: m.Cols, Data: adj}, nil
}

func checkSquareIndex(m Matrix, i, j int) error {
	if !m.IsSquare() {
		return errors.Wrapf(ErrDimensionMismatch, "%dx%d is not square", m.Rows, m.Cols)
	}
	if i < 0 || i >= m.Rows || j < 0 || j >= m.Cols {
		return errors.Wrapf(ErrDimensionMismatch, "index (%d,%d) outside %dx%d", i, j, m.Rows, m.Cols)
	}
	return nil
}

// The unexported kernel works on validated flat n×n data.

func minor(m []float64, n, i, j int) []float64 {
	out := make([]float64, 0, (n-1)*(n-1))
	for row := 0; row < n; row++ {
		if row == i {
			continue
		}
		for col := 0; col < n; col++ {
			if col != j {
				out = append(out, m[n*row+col])
			}
		}
	}
	return out
}

func cofactor(m []float64, n, i, j int) float64 {
	c := determinant(minor(m, n, i, j), n-1)
	if (i+j)%2 == 1 {
		return -c
	}
	return c
}

func determinant(m []float64, n int) float64 {
	switch n {
	case 1:
		return m[0]
	case 2:
		return m[0]*m[3] - m[1]*m[2]
	}
	var det float64
	for k := 0; k < n; k++ {
		if m[k] == 0 {
			continue
		}
		det += m[k] * cofactor(m, n, 0, k)
	}
	return det
}

func adjoint(m []float64, n int) []float64 {
	out := make([]float64, 0, n*n)
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			out = append(out, cofactor(m, n, col, row))
		}
	}
	return out
}
