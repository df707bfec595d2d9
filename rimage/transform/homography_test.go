package transform

import (
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func TestNewHomography(t *testing.T) {
	_, err := NewHomography([]float64{1, 2, 3})
	test.That(t, err.Error(), test.ShouldEqual, "input to NewHomography must have length of 9. Has length of 3")

	h, err := NewHomography([]float64{
		2, 0, 10,
		0, 3, -5,
		0, 0, 1,
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h.At(0, 2), test.ShouldEqual, 10.)
	test.That(t, h.T().At(2, 0), test.ShouldEqual, 10.)
	test.That(t, h.Apply(r2.Point{X: 1, Y: 1}), test.ShouldResemble, r2.Point{X: 12, Y: -2})

	inv, err := h.Inverse()
	test.That(t, err, test.ShouldBeNil)
	back := inv.Apply(r2.Point{X: 12, Y: -2})
	test.That(t, back.X, test.ShouldAlmostEqual, 1.)
	test.That(t, back.Y, test.ShouldAlmostEqual, 1.)

	var prod mat.Dense
	prod.Mul(h, inv)
	id, err := NewHomographyFromMatrix(&prod)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, id.AlmostEqual(IdentityHomography(), 1e-12), test.ShouldBeTrue)
	test.That(t, h.AlmostEqual(IdentityHomography(), 1e-12), test.ShouldBeFalse)
}

func TestHomographyPerspective(t *testing.T) {
	h, err := NewHomography([]float64{
		1, 0, 0,
		0, 1, 0,
		0.5, 0, 1,
	})
	test.That(t, err, test.ShouldBeNil)
	pt := h.Apply(r2.Point{X: 2, Y: 4})
	test.That(t, pt.X, test.ShouldAlmostEqual, 1.)
	test.That(t, pt.Y, test.ShouldAlmostEqual, 2.)

	_, err = NewHomographyFromMatrix(mat.NewDense(2, 2, nil))
	test.That(t, err, test.ShouldNotBeNil)

	singular, err := NewHomography(make([]float64, 9))
	test.That(t, err, test.ShouldBeNil)
	_, err = singular.Inverse()
	test.That(t, err, test.ShouldNotBeNil)
}
