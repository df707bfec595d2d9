package transform

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestNewDistorter(t *testing.T) {
	for _, tc := range []struct {
		model  DistortionType
		params []float64
		want   []float64
	}{
		{RadialDistortionType, []float64{-0.1}, []float64{-0.1, 0}},
		{BrownConradyDistortionType, []float64{0.1, 0.01, 0.001, 0.0001, 0.00001}, []float64{0.1, 0.01, 0.001, 0.0001, 0.00001}},
		{KannalaBrandtDistortionType, []float64{0.1, 0.2}, []float64{0.1, 0.2, 0, 0}},
	} {
		t.Run(string(tc.model), func(t *testing.T) {
			d, err := NewDistorter(tc.model, tc.params)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, d.ModelType(), test.ShouldEqual, tc.model)
			test.That(t, d.Parameters(), test.ShouldResemble, tc.want)
			test.That(t, d.CheckValid(), test.ShouldBeNil)
		})
	}

	_, err := NewDistorter("bogus", nil)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewDistorter(RadialDistortionType, []float64{1, 2, 3})
	test.That(t, err.Error(), test.ShouldContainSubstring, "too long")

	var bc *BrownConrady
	test.That(t, bc.CheckValid(), test.ShouldNotBeNil)
	x, y := bc.Transform(0.3, 0.4)
	test.That(t, x, test.ShouldEqual, 0.3)
	test.That(t, y, test.ShouldEqual, 0.4)
}

func TestDistortionRoundTrip(t *testing.T) {
	distorters := map[string]InvertibleDistorter{
		"radial":         &Radial{RadialK1: -0.08, RadialK2: 0.01},
		"brown_conrady":  &BrownConrady{RadialK1: -0.12, RadialK2: 0.03, RadialK3: -0.002, TangentialP1: 0.001, TangentialP2: -0.0015},
		"kannala_brandt": &KannalaBrandt{K1: -0.01, K2: 0.003, K3: -0.0005, K4: 0.0001},
	}
	points := [][2]float64{{0, 0}, {0.1, -0.05}, {-0.4, 0.3}, {0.6, 0.45}, {-0.2, -0.7}}
	for name, d := range distorters {
		t.Run(name, func(t *testing.T) {
			for _, p := range points {
				xd, yd := d.Transform(p[0], p[1])
				xu, yu := d.Undistort(xd, yd)
				test.That(t, xu, test.ShouldAlmostEqual, p[0], 1e-8)
				test.That(t, yu, test.ShouldAlmostEqual, p[1], 1e-8)
			}
		})
	}
}

func TestUndistortBeyondFold(t *testing.T) {
	// r_d = r_u(1 - 0.3 r_u²) peaks at r_u = 1/sqrt(0.9), r_d ≈ 0.7027
	radial := &Radial{RadialK1: -0.3}
	foldU := 1 / math.Sqrt(0.9)
	foldD, _ := radial.Transform(foldU, 0)
	test.That(t, foldD, test.ShouldAlmostEqual, 0.7027, 1e-4)

	xu, yu := radial.Undistort(0.5, 0)
	xd, yd := radial.Transform(xu, yu)
	test.That(t, xd, test.ShouldAlmostEqual, 0.5, 1e-9)
	test.That(t, yd, test.ShouldAlmostEqual, 0., 1e-9)
	test.That(t, xu, test.ShouldBeLessThan, foldU)

	for _, r := range []float64{0.71, 0.8, 1.5} {
		xu, yu := radial.Undistort(r*0.6, r*0.8)
		test.That(t, math.IsNaN(xu), test.ShouldBeTrue)
		test.That(t, math.IsNaN(yu), test.ShouldBeTrue)
	}

	bc := &BrownConrady{RadialK1: -0.3}
	xu, yu = bc.Undistort(0.8, 0)
	test.That(t, math.IsNaN(xu), test.ShouldBeTrue)
	test.That(t, math.IsNaN(yu), test.ShouldBeTrue)
	xu, _ = bc.Undistort(0.5, 0)
	test.That(t, xu, test.ShouldAlmostEqual, radialInverse(t, radial, 0.5), 1e-9)

	// θ_d = θ - 0.5θ³ peaks at θ = sqrt(2/3), θ_d ≈ 0.544
	kb := &KannalaBrandt{K1: -0.5}
	xu, yu = kb.Undistort(0.6, 0)
	test.That(t, math.IsNaN(xu), test.ShouldBeTrue)
	test.That(t, math.IsNaN(yu), test.ShouldBeTrue)
}

func radialInverse(t *testing.T, radial *Radial, xd float64) float64 {
	t.Helper()
	xu, yu := radial.Undistort(xd, 0)
	test.That(t, yu, test.ShouldAlmostEqual, 0., 1e-12)
	return xu
}

func TestCameraModelDistorters(t *testing.T) {
	for model, want := range map[CameraModelType]DistortionType{
		SimpleRadialModel:  RadialDistortionType,
		RadialModel:        RadialDistortionType,
		OpenCVModel:        BrownConradyDistortionType,
		FullOpenCVModel:    BrownConradyDistortionType,
		OpenCVFisheyeModel: KannalaBrandtDistortionType,
	} {
		m, ok := LookupCameraModel(model)
		test.That(t, ok, test.ShouldBeTrue)
		params := make([]float64, m.NumParams())
		for i := range params {
			params[i] = float64(i + 1)
		}
		cam, err := NewCamera(model, 10, 10, params)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, cam.Distortion().ModelType(), test.ShouldEqual, want)
	}

	cam, err := NewCamera(FullOpenCVModel, 10, 10, []float64{1, 1, 5, 5, 0.1, 0.2, 0.3, 0.4, 0.5})
	test.That(t, err, test.ShouldBeNil)
	// k1, k2, k3, p1, p2
	test.That(t, cam.Distortion().Parameters(), test.ShouldResemble, []float64{0.1, 0.2, 0.5, 0.3, 0.4})
}

func TestKannalaBrandtCenter(t *testing.T) {
	kb := &KannalaBrandt{K1: 0.1}
	x, y := kb.Transform(0, 0)
	test.That(t, x, test.ShouldEqual, 0.)
	test.That(t, y, test.ShouldEqual, 0.)
	x, y = kb.Undistort(0, 0)
	test.That(t, x, test.ShouldEqual, 0.)
	test.That(t, y, test.ShouldEqual, 0.)

	// an undistorted fisheye maps the ray angle linearly onto the image radius
	zero := &KannalaBrandt{}
	xd, _ := zero.Transform(1, 0)
	test.That(t, xd, test.ShouldAlmostEqual, 0.7853981633974483, 1e-12)
}

func TestDistortionErrorMessages(t *testing.T) {
	err := InvalidDistortionError("k1 at 100% of range")
	test.That(t, err.Error(), test.ShouldEqual, "k1 at 100% of range: invalid distortion_parameters")

	err = NewNoIntrinsicsError("fx at 100% of range")
	test.That(t, err.Error(), test.ShouldEqual, "fx at 100% of range: camera intrinsic parameters are not available")
	test.That(t, errors.Is(err, ErrNoIntrinsics), test.ShouldBeTrue)
}
