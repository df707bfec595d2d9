package transform

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/mvsprep/spatialmath"
)

// PoseMatrix returns the 3x4 matrix [R|t] of a world to camera pose.
func PoseMatrix(pose spatialmath.Pose) *mat.Dense {
	t := mat.NewDense(3, 1, []float64{pose.Translation.X, pose.Translation.Y, pose.Translation.Z})
	var poseMat mat.Dense
	poseMat.Augment(pose.RotationMatrix().Dense(), t)
	return &poseMat
}

// ProjectionMatrix returns the 3x4 matrix P = K[R|t] projecting homogeneous world points into the
// image of a pinhole camera at the given pose.
func ProjectionMatrix(camera *Camera, pose spatialmath.Pose) (*mat.Dense, error) {
	if camera == nil {
		return nil, NewNoIntrinsicsError("camera does not exist")
	}
	if !camera.IsPinhole() {
		return nil, errors.Wrapf(ErrNotPinhole, "cannot build a projection matrix for model %q", camera.ModelType())
	}
	var p mat.Dense
	p.Mul(camera.CalibrationMatrix(), PoseMatrix(pose))
	return &p, nil
}
