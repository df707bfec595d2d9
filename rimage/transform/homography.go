package transform

import (
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Homography is a 3x3 matrix (represented as a 2D array) used to transform a plane from the perspective of a 2D
// camera to the perspective of another 2D camera. Indices are [row][column].
type Homography [3][3]float64

// NewHomography creates a homography from 9 values in row major order.
func NewHomography(vals []float64) (*Homography, error) {
	if len(vals) != 9 {
		return nil, errors.Errorf("input to NewHomography must have length of 9. Has length of %d", len(vals))
	}
	var h Homography
	for i, v := range vals {
		h[i/3][i%3] = v
	}
	return &h, nil
}

// NewHomographyFromMatrix copies a 3x3 matrix.
func NewHomographyFromMatrix(m mat.Matrix) (*Homography, error) {
	if r, c := m.Dims(); r != 3 || c != 3 {
		return nil, errors.Errorf("homography must be 3x3, got %dx%d", r, c)
	}
	var h Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			h[r][c] = m.At(r, c)
		}
	}
	return &h, nil
}

// IdentityHomography returns the homography that leaves every point in place.
func IdentityHomography() *Homography {
	return &Homography{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// Dims implements mat.Matrix.
func (h *Homography) Dims() (int, int) {
	return 3, 3
}

// At returns the value at row, col.
func (h *Homography) At(row, col int) float64 {
	return h[row][col]
}

// T implements mat.Matrix.
func (h *Homography) T() mat.Matrix {
	return mat.Transpose{Matrix: h}
}

// Dense returns a copy as a gonum matrix.
func (h *Homography) Dense() *mat.Dense {
	return mat.DenseCopyOf(h)
}

// Apply maps a point through the homography, dividing by the homogeneous coordinate.
func (h *Homography) Apply(pt r2.Point) r2.Point {
	x := h.At(0, 0)*pt.X + h.At(0, 1)*pt.Y + h.At(0, 2)
	y := h.At(1, 0)*pt.X + h.At(1, 1)*pt.Y + h.At(1, 2)
	z := h.At(2, 0)*pt.X + h.At(2, 1)*pt.Y + h.At(2, 2)
	return r2.Point{X: x / z, Y: y / z}
}

// Inverse returns the inverse homography.
func (h *Homography) Inverse() (*Homography, error) {
	var inv mat.Dense
	if err := inv.Inverse(h); err != nil {
		return nil, errors.Wrap(err, "homography is not invertible")
	}
	return NewHomographyFromMatrix(&inv)
}

// AlmostEqual compares two homographies entry by entry.
func (h *Homography) AlmostEqual(other *Homography, tol float64) bool {
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			if d := h[r][c] - other[r][c]; d > tol || d < -tol {
				return false
			}
		}
	}
	return true
}
