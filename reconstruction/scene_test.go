package reconstruction

import (
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"

	"go.viam.com/mvsprep/rimage/transform"
	"go.viam.com/mvsprep/spatialmath"
)

func newTestScene(t *testing.T) *Scene {
	t.Helper()
	scene := NewScene()
	radial, err := transform.NewCamera(transform.SimpleRadialModel, 640, 480, []float64{500, 320, 240, -0.05})
	test.That(t, err, test.ShouldBeNil)
	pinhole, err := transform.NewCamera(transform.PinholeModel, 320, 240, []float64{300, 300, 160, 120})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, scene.AddCamera(2, pinhole), test.ShouldBeNil)
	test.That(t, scene.AddCamera(1, radial), test.ShouldBeNil)

	test.That(t, scene.AddImage(&Image{
		ID: 3, Name: "b.png", CameraID: 1, Pose: spatialmath.NewZeroPose(), Registered: true,
		Points2D: []r2.Point{{X: 320, Y: 240}, {X: 10, Y: 20}},
	}), test.ShouldBeNil)
	test.That(t, scene.AddImage(&Image{
		ID: 1, Name: "a.png", CameraID: 2, Pose: spatialmath.NewZeroPose(), Registered: true,
		Points2D: []r2.Point{{X: 5, Y: 6}},
	}), test.ShouldBeNil)
	test.That(t, scene.AddImage(&Image{ID: 2, Name: "skipped.png", CameraID: 1}), test.ShouldBeNil)
	return scene
}

func TestScene(t *testing.T) {
	scene := newTestScene(t)
	test.That(t, scene.NumCameras(), test.ShouldEqual, 2)
	test.That(t, scene.NumImages(), test.ShouldEqual, 3)
	test.That(t, scene.CameraIDs(), test.ShouldResemble, []CameraID{1, 2})
	test.That(t, scene.RegImageIDs(), test.ShouldResemble, []ImageID{1, 3})

	img, ok := scene.ImageByName("b.png")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, img.ID, test.ShouldEqual, ImageID(3))
	cam, err := scene.ImageCamera(img)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cam.ModelType(), test.ShouldEqual, transform.SimpleRadialModel)
	_, ok = scene.ImageByName("c.png")
	test.That(t, ok, test.ShouldBeFalse)

	test.That(t, scene.AddCamera(1, cam), test.ShouldNotBeNil)
	test.That(t, scene.AddCamera(9, nil), test.ShouldNotBeNil)
	test.That(t, scene.AddImage(&Image{ID: 3, Name: "z.png", CameraID: 1}), test.ShouldNotBeNil)
	test.That(t, scene.AddImage(&Image{ID: 7, Name: "a.png", CameraID: 1}), test.ShouldNotBeNil)
	test.That(t, scene.AddImage(&Image{ID: 7, Name: "z.png", CameraID: 5}), test.ShouldNotBeNil)
	test.That(t, scene.SetCamera(5, cam), test.ShouldNotBeNil)

	pair, err := scene.StereoPair("a.png", "b.png")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pair, test.ShouldResemble, StereoPair{Image1: 1, Image2: 3})
	_, err = scene.StereoPair("a.png", "missing.png")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSceneClone(t *testing.T) {
	scene := newTestScene(t)
	cp := scene.Clone()
	img, _ := cp.Image(3)
	img.Points2D[0] = r2.Point{}
	img.Name = "renamed.png"

	orig, _ := scene.Image(3)
	test.That(t, orig.Points2D[0], test.ShouldResemble, r2.Point{X: 320, Y: 240})
	test.That(t, orig.Name, test.ShouldEqual, "b.png")
}

func TestStereoPairName(t *testing.T) {
	test.That(t, StereoPairName("left/0001.png", "right/0001.png"), test.ShouldEqual, "left-0001.png-right-0001.png")
	test.That(t, FlatImageName("a.png"), test.ShouldEqual, "a.png")
}
