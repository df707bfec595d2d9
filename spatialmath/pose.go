package spatialmath

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"
)

// Pose is a rigid transform from world coordinates to camera coordinates:
// x_cam = R(Orientation) * x_world + Translation.
type Pose struct {
	Orientation quat.Number
	Translation r3.Vector
}

// NewZeroPose returns the identity pose.
func NewZeroPose() Pose {
	return Pose{Orientation: quat.Number{Real: 1}}
}

// NewPose creates a pose and normalizes its orientation.
func NewPose(orientation quat.Number, translation r3.Vector) Pose {
	return Pose{Orientation: Normalize(orientation), Translation: translation}
}

// NewPoseFromSlices creates a pose from a [w, x, y, z] quaternion and an [x, y, z] translation.
func NewPoseFromSlices(qvec, tvec []float64) (Pose, error) {
	if len(qvec) != 4 {
		return Pose{}, errors.Errorf("quaternion needs 4 elements [w, x, y, z], got %d", len(qvec))
	}
	if len(tvec) != 3 {
		return Pose{}, errors.Errorf("translation needs 3 elements [x, y, z], got %d", len(tvec))
	}
	q := quat.Number{Real: qvec[0], Imag: qvec[1], Jmag: qvec[2], Kmag: qvec[3]}
	if quat.Abs(q) == 0 {
		return Pose{}, errors.New("quaternion must not be zero")
	}
	return NewPose(q, r3.Vector{X: tvec[0], Y: tvec[1], Z: tvec[2]}), nil
}

// RotationMatrix returns the rotation part of the pose as a matrix.
func (p Pose) RotationMatrix() *RotationMatrix {
	return QuatToRotationMatrix(p.Orientation)
}

// Transform maps a world point into the pose's frame.
func (p Pose) Transform(pt r3.Vector) r3.Vector {
	return p.RotationMatrix().MulVec(pt).Add(p.Translation)
}

// Inverse returns the pose mapping back from the pose's frame to world coordinates.
func (p Pose) Inverse() Pose {
	qInv := quat.Conj(Normalize(p.Orientation))
	t := QuatToRotationMatrix(qInv).MulVec(p.Translation).Mul(-1)
	return Pose{Orientation: qInv, Translation: t}
}

// ProjectionCenter returns the camera center in world coordinates.
func (p Pose) ProjectionCenter() r3.Vector {
	return p.Inverse().Translation
}

// ComputeRelativePose returns the pose of the second camera relative to the first, given both
// world-to-camera poses: x_2 = R * x_1 + t.
func ComputeRelativePose(pose1, pose2 Pose) Pose {
	q1 := Normalize(pose1.Orientation)
	q2 := Normalize(pose2.Orientation)
	q := Normalize(quat.Mul(q2, quat.Conj(q1)))
	t := pose2.Translation.Sub(QuatToRotationMatrix(q).MulVec(pose1.Translation))
	return Pose{Orientation: q, Translation: t}
}
