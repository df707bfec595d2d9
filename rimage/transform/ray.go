package transform

import (
	"math"

	"github.com/golang/geo/r2"
)

const rayProbeIterations = 32

// SelectPointOnRay returns the point on the segment from origin towards target, at most maxLength
// away from origin, that lies farthest from origin while its back-projected ray stays within the
// given angles (radians) of the optical axis: total angle below maxAngle, horizontal and vertical
// angles below maxHorizontalAngle and maxVerticalAngle.
//
// The search is a fixed 32 step bisection, so distortion models that are only defined near the image
// center are never evaluated outside the domain they were probed in. It returns origin when no
// positive distance is valid.
func SelectPointOnRay(
	camera *Camera,
	origin, target r2.Point,
	maxLength, maxAngle, maxHorizontalAngle, maxVerticalAngle float64,
) r2.Point {
	diff := target.Sub(origin)
	length := diff.Norm()
	if length == 0 {
		return origin
	}
	dir := diff.Mul(1 / length)

	lo, hi := 0., math.Min(maxLength, length)
	for i := 0; i < rayProbeIterations; i++ {
		m := (lo + hi) / 2
		world := camera.ImageToWorld(origin.Add(dir.Mul(m)))
		// horizontal and vertical bounds apply on both sides of the optical axis; NaN is invalid
		valid := math.Abs(math.Atan(world.Y)) < maxVerticalAngle &&
			math.Abs(math.Atan(world.X)) < maxHorizontalAngle &&
			math.Atan(world.Norm()) < maxAngle
		if valid {
			lo = m
		} else {
			hi = m
		}
	}
	return origin.Add(dir.Mul(lo))
}
