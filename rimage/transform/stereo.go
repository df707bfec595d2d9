package transform

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/mvsprep/rimage"
	"go.viam.com/mvsprep/spatialmath"
)

// ErrNotPinhole is returned when a distortion free camera is required.
var ErrNotPinhole = errors.New("camera must be a pinhole camera")

// machineEpsilon is the difference between 1 and the next representable float64.
var machineEpsilon = math.Nextafter(1, 2) - 1

// StereoRectification maps two camera image planes onto one shared rectified plane.
type StereoRectification struct {
	// H1 and H2 map image points of camera 1 and 2 to the rectified plane.
	H1, H2 *Homography
	// Q reprojects disparities to 3D with row vectors: [x, y, d, 1] * Q = [X, Y, Z, 1] * w.
	Q *mat.Dense
	// K is the shared calibration matrix of the rectified plane.
	K *mat.Dense
}

// RectifyStereoCameras computes the homographies that rectify a stereo pair of pinhole cameras, given
// the pose of camera 2 relative to camera 1 (x_2 = R x_1 + t). Each camera is rotated by half of the
// relative rotation towards the other, then both are rotated so the baseline lies along the image x
// axis. The translation must have a non-zero x component after rectification.
func RectifyStereoCameras(camera1, camera2 *Camera, relativePose spatialmath.Pose) (*StereoRectification, error) {
	for i, cam := range []*Camera{camera1, camera2} {
		if cam == nil {
			return nil, errors.Errorf("camera %d is nil", i+1)
		}
		if !cam.IsPinhole() {
			return nil, errors.Wrapf(ErrNotPinhole, "camera %d has model %q", i+1, cam.ModelType())
		}
	}

	halfRotation := spatialmath.QuatToR4AA(relativePose.Orientation)
	halfRotation.Theta *= -0.5
	r2 := halfRotation.RotationMatrix()
	r1 := r2.Transpose()
	t := r2.MulVec(relativePose.Translation)

	xUnit := r3.Vector{X: 1}
	if t.Dot(xUnit) < 0 {
		xUnit = xUnit.Mul(-1)
	}
	axis := t.Cross(xUnit)
	alignment := spatialmath.IdentityRotation()
	if axis.Norm() >= machineEpsilon {
		cosAngle := math.Min(1, math.Abs(t.Dot(xUnit))/t.Norm())
		alignment = spatialmath.NewR4AAFromAxis(math.Acos(cosAngle), axis).RotationMatrix()
	}
	r1 = alignment.Mul(r1)
	r2 = alignment.Mul(r2)
	t = alignment.MulVec(t)

	if t.X == 0 {
		return nil, errors.New("stereo baseline has no horizontal component, cannot build the disparity matrix")
	}

	f := math.Min(camera1.FocalLength(), camera2.FocalLength())
	cx := camera1.PrincipalPointX()
	cy := (camera1.PrincipalPointY() + camera2.PrincipalPointY()) / 2
	k := mat.NewDense(3, 3, []float64{
		f, 0, cx,
		0, f, cy,
		0, 0, 1,
	})

	h1, err := rectifyingHomography(k, r1, camera1)
	if err != nil {
		return nil, errors.Wrap(err, "camera 1")
	}
	h2, err := rectifyingHomography(k, r2, camera2)
	if err != nil {
		return nil, errors.Wrap(err, "camera 2")
	}

	q := mat.NewDense(4, 4, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 0, -1 / t.X,
		-cx, -cy, f, 0,
	})
	return &StereoRectification{H1: h1, H2: h2, Q: q, K: k}, nil
}

// rectifyingHomography returns K * R * K_cam^-1.
func rectifyingHomography(k *mat.Dense, rot *spatialmath.RotationMatrix, camera *Camera) (*Homography, error) {
	var kInv mat.Dense
	if err := kInv.Inverse(camera.CalibrationMatrix()); err != nil {
		return nil, errors.Wrap(err, "calibration matrix is not invertible")
	}
	var h mat.Dense
	h.Product(k, rot.Dense(), &kInv)
	return NewHomographyFromMatrix(&h)
}

// RectifiedStereoPair is the result of RectifyAndUndistortStereoImages.
type RectifiedStereoPair struct {
	Image1, Image2 *rimage.Bitmap
	// Camera is the pinhole camera shared by both rectified images.
	Camera *Camera
	Q      *mat.Dense
}

// RectifyAndUndistortStereoImages undistorts and rectifies a stereo pair in one resampling step. The
// undistorted camera of camera 1 is used as the rectified camera for both images, so both outputs
// have the same size and intrinsics.
func RectifyAndUndistortStereoImages(
	opts UndistortCameraOptions,
	image1, image2 *rimage.Bitmap,
	camera1, camera2 *Camera,
	relativePose spatialmath.Pose,
) (*RectifiedStereoPair, error) {
	for i, pair := range []struct {
		bitmap *rimage.Bitmap
		camera *Camera
	}{{image1, camera1}, {image2, camera2}} {
		if pair.bitmap == nil || pair.camera == nil {
			return nil, errors.Errorf("image %d and its camera are required", i+1)
		}
		if pair.camera.Width() != pair.bitmap.Width() || pair.camera.Height() != pair.bitmap.Height() {
			return nil, errors.Errorf("image %d dimension and camera don't match Bitmap(%d,%d) != Camera(%d,%d)",
				i+1, pair.bitmap.Width(), pair.bitmap.Height(), pair.camera.Width(), pair.camera.Height())
		}
	}

	undistorted, err := UndistortCamera(opts, camera1)
	if err != nil {
		return nil, err
	}
	rect, err := RectifyStereoCameras(undistorted, undistorted, relativePose)
	if err != nil {
		return nil, err
	}

	warp := func(h *Homography, camera *Camera, bitmap *rimage.Bitmap) (*rimage.Bitmap, error) {
		inv, err := h.Inverse()
		if err != nil {
			return nil, err
		}
		return rimage.WarpImageWithHomographyBetweenCameras(inv, camera, undistorted, bitmap)
	}
	out1, err := warp(rect.H1, camera1, image1)
	if err != nil {
		return nil, errors.Wrap(err, "image 1")
	}
	out2, err := warp(rect.H2, camera2, image2)
	if err != nil {
		return nil, errors.Wrap(err, "image 2")
	}
	return &RectifiedStereoPair{Image1: out1, Image2: out2, Camera: undistorted, Q: rect.Q}, nil
}
