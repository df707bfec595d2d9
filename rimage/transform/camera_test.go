package transform

import (
	"github.com/pkg/errors"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func TestNewCamera(t *testing.T) {
	cam, err := NewCamera(SimpleRadialModel, 640, 480, []float64{500, 320, 240, -0.05})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cam.ModelType(), test.ShouldEqual, SimpleRadialModel)
	test.That(t, cam.Width(), test.ShouldEqual, 640)
	test.That(t, cam.Height(), test.ShouldEqual, 480)
	test.That(t, cam.FocalLength(), test.ShouldEqual, 500.)
	test.That(t, cam.FocalLengthX(), test.ShouldEqual, 500.)
	test.That(t, cam.FocalLengthY(), test.ShouldEqual, 500.)
	test.That(t, cam.PrincipalPoint(), test.ShouldResemble, r2.Point{X: 320, Y: 240})
	test.That(t, cam.IsPinhole(), test.ShouldBeFalse)
	test.That(t, cam.Distortion().ModelType(), test.ShouldEqual, RadialDistortionType)
	test.That(t, cam.CheckValid(), test.ShouldBeNil)

	_, err = NewCamera("bogus", 1, 1, nil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown camera model")
	_, err = NewCamera(PinholeModel, 10, 10, []float64{1, 2, 3})
	test.That(t, err.Error(), test.ShouldContainSubstring, "expects 4 params")

	bad, err := NewCamera(PinholeModel, 10, 10, []float64{-1, 1, 5, 5})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, bad.CheckValid(), test.ShouldNotBeNil)
	test.That(t, errors.Is(bad.CheckValid(), ErrNoIntrinsics), test.ShouldBeTrue)
}

func TestCameraIsImmutable(t *testing.T) {
	params := []float64{400, 410, 100, 80}
	cam, err := NewCamera(PinholeModel, 200, 160, params)
	test.That(t, err, test.ShouldBeNil)
	params[0] = 1
	test.That(t, cam.FocalLengthX(), test.ShouldEqual, 400.)

	got := cam.Params()
	got[1] = 2
	test.That(t, cam.FocalLengthY(), test.ShouldEqual, 410.)

	moved := cam.WithPrincipalPoint(r2.Point{X: 1, Y: 2}).WithFocalLengths(10, 20).WithSize(3, 4)
	test.That(t, moved.Params(), test.ShouldResemble, []float64{10, 20, 1, 2})
	test.That(t, moved.Width(), test.ShouldEqual, 3)
	test.That(t, cam.Params(), test.ShouldResemble, []float64{400, 410, 100, 80})
	test.That(t, cam.Width(), test.ShouldEqual, 200)

	simple, err := NewCamera(SimplePinholeModel, 10, 10, []float64{100, 5, 5})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, simple.WithFocalLengths(80, 120).FocalLength(), test.ShouldEqual, 100.)
	test.That(t, simple.WithFocalLength(7).Params(), test.ShouldResemble, []float64{7, 5, 5})
}

func TestCameraProjectionRoundTrip(t *testing.T) {
	cams := []struct {
		model  CameraModelType
		params []float64
	}{
		{SimplePinholeModel, []float64{500, 320, 240}},
		{PinholeModel, []float64{500, 520, 310, 250}},
		{SimpleRadialModel, []float64{500, 320, 240, -0.05}},
		{RadialModel, []float64{500, 320, 240, -0.05, 0.01}},
		{OpenCVModel, []float64{500, 505, 320, 240, -0.1, 0.02, 0.001, -0.001}},
		{FullOpenCVModel, []float64{500, 505, 320, 240, -0.1, 0.02, 0.001, -0.001, -0.003}},
		{OpenCVFisheyeModel, []float64{300, 300, 320, 240, -0.02, 0.004, -0.0005, 0.0001}},
	}
	pixels := []r2.Point{{X: 320, Y: 240}, {X: 10, Y: 20}, {X: 630, Y: 470}, {X: 100, Y: 400}}
	for _, tc := range cams {
		t.Run(string(tc.model), func(t *testing.T) {
			cam, err := NewCamera(tc.model, 640, 480, tc.params)
			test.That(t, err, test.ShouldBeNil)
			for _, px := range pixels {
				back := cam.WorldToImage(cam.ImageToWorld(px))
				test.That(t, back.X, test.ShouldAlmostEqual, px.X, 1e-6)
				test.That(t, back.Y, test.ShouldAlmostEqual, px.Y, 1e-6)
			}
		})
	}
}

func TestCameraRescale(t *testing.T) {
	cam, err := NewCamera(PinholeModel, 640, 480, []float64{500, 520, 320, 240})
	test.That(t, err, test.ShouldBeNil)
	half := cam.Rescale(0.5)
	test.That(t, half.Width(), test.ShouldEqual, 320)
	test.That(t, half.Height(), test.ShouldEqual, 240)
	test.That(t, half.Params(), test.ShouldResemble, []float64{250, 260, 160, 120})

	simple, err := NewCamera(SimplePinholeModel, 3, 2, []float64{10, 1.5, 1})
	test.That(t, err, test.ShouldBeNil)
	tiny := simple.Rescale(0.01)
	test.That(t, tiny.Width(), test.ShouldEqual, 1)
	test.That(t, tiny.Height(), test.ShouldEqual, 1)
	// realized factors are 1/3 and 1/2
	test.That(t, tiny.FocalLength(), test.ShouldAlmostEqual, 10*(1./3+1./2)/2)
	test.That(t, tiny.PrincipalPoint().X, test.ShouldAlmostEqual, 0.5)
	test.That(t, tiny.PrincipalPoint().Y, test.ShouldAlmostEqual, 0.5)
}

func TestCameraCalibrationMatrix(t *testing.T) {
	cam, err := NewCamera(PinholeModel, 640, 480, []float64{500, 520, 321, 241})
	test.That(t, err, test.ShouldBeNil)
	k := cam.CalibrationMatrix()
	test.That(t, k.At(0, 0), test.ShouldEqual, 500.)
	test.That(t, k.At(1, 1), test.ShouldEqual, 520.)
	test.That(t, k.At(0, 2), test.ShouldEqual, 321.)
	test.That(t, k.At(1, 2), test.ShouldEqual, 241.)
	test.That(t, k.At(2, 2), test.ShouldEqual, 1.)
	test.That(t, k.At(1, 0), test.ShouldEqual, 0.)

	intrinsics := cam.Intrinsics()
	test.That(t, intrinsics.CheckValid(), test.ShouldBeNil)
	x, y := intrinsics.PointToPixel(1, -1, 2)
	test.That(t, x, test.ShouldAlmostEqual, 571.)
	test.That(t, y, test.ShouldAlmostEqual, -19.)
	px, py, pz := intrinsics.PixelToPoint(x, y, 2)
	test.That(t, px, test.ShouldAlmostEqual, 1.)
	test.That(t, py, test.ShouldAlmostEqual, -1.)
	test.That(t, pz, test.ShouldEqual, 2.)
}

func TestCameraParamsString(t *testing.T) {
	cam, err := NewCameraFromString(OpenCVModel, 640, 480, "500, 505,320,240, -0.1, 0.02, 0, 0")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cam.ParamsString(), test.ShouldEqual, "500, 505, 320, 240, -0.1, 0.02, 0, 0")

	_, err = ParseCameraParams("1, two")
	test.That(t, err, test.ShouldNotBeNil)
	params, err := ParseCameraParams("")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, params, test.ShouldBeEmpty)
}

func TestCameraConfig(t *testing.T) {
	cfg := CameraConfig{Model: "simple_radial", Width: 640, Height: 480, Params: []float64{500, 320, 240, 0.1}}
	test.That(t, cfg.Validate("cam"), test.ShouldBeNil)
	cam, err := NewCameraFromConfig(cfg)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cam.Config(), test.ShouldResemble, cfg)

	missing := CameraConfig{Width: 1, Height: 1}
	test.That(t, missing.Validate("cam").Error(), test.ShouldContainSubstring, "model")

	wrong := cfg
	wrong.Params = []float64{1}
	test.That(t, wrong.Validate("cam").Error(), test.ShouldContainSubstring, "f, cx, cy, k")

	noSize := cfg
	noSize.Width = 0
	test.That(t, noSize.Validate("cam"), test.ShouldNotBeNil)

	unknown := cfg
	unknown.Model = "bogus"
	_, err = NewCameraFromConfig(unknown)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRegisterCameraModel(t *testing.T) {
	test.That(t, RegisteredCameraModels(), test.ShouldContain, OpenCVFisheyeModel)

	model, ok := LookupCameraModel(FullOpenCVModel)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, model.NumParams(), test.ShouldEqual, 9)

	test.That(t, func() {
		RegisterCameraModel(CameraModel{Type: PinholeModel, FocalLengthIdxs: []int{0}})
	}, test.ShouldPanic)
	test.That(t, func() {
		RegisterCameraModel(CameraModel{Type: "broken_layout", FocalLengthIdxs: []int{0, 0}})
	}, test.ShouldPanic)
	test.That(t, func() {
		RegisterCameraModel(CameraModel{Type: "one_pp", FocalLengthIdxs: []int{0}, PrincipalPointIdxs: []int{1}})
	}, test.ShouldPanic)
}
