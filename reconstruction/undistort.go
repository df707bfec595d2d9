package reconstruction

import (
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/mvsprep/rimage/transform"
)

// UndistortReconstruction returns a copy of scene in which every camera is replaced by its
// undistorted pinhole camera and every 2D observation is moved to where the undistorted camera
// sees it. The input scene is not modified.
func UndistortReconstruction(opts transform.UndistortCameraOptions, scene *Scene) (*Scene, error) {
	if scene == nil {
		return nil, errors.New("scene is nil")
	}
	out := scene.Clone()
	for _, id := range scene.CameraIDs() {
		distorted, _ := scene.Camera(id)
		undistorted, err := transform.UndistortCamera(opts, distorted)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot undistort camera %d", id)
		}
		if err := out.SetCamera(id, undistorted); err != nil {
			return nil, err
		}
	}

	for _, img := range out.images {
		distorted, err := scene.ImageCamera(img)
		if err != nil {
			return nil, err
		}
		undistorted, err := out.ImageCamera(img)
		if err != nil {
			return nil, err
		}
		for i, pt := range img.Points2D {
			img.Points2D[i] = UndistortPoint(distorted, undistorted, pt)
		}
	}
	return out, nil
}

// UndistortPoint maps a pixel of the distorted camera into the undistorted camera's image.
func UndistortPoint(distorted, undistorted *transform.Camera, pt r2.Point) r2.Point {
	return undistorted.WorldToImage(distorted.ImageToWorld(pt))
}
