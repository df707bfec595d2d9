package transform

import (
	"math"

	"github.com/pkg/errors"
)

// DistortionType is the name of the distortion model.
type DistortionType string

const (
	// RadialDistortionType is a purely radial polynomial with up to two coefficients.
	RadialDistortionType = DistortionType("radial")
	// BrownConradyDistortionType is for simple lenses of narrow field easily modeled as a pinhole camera.
	BrownConradyDistortionType = DistortionType("brown_conrady")
	// KannalaBrandtDistortionType is for wide-angle and fisheye lense distortion.
	KannalaBrandtDistortionType = DistortionType("kannala_brandt")
)

// Distorter defines a Transform that takes an undistorted normalized image point and distorts it
// according to the model.
type Distorter interface {
	ModelType() DistortionType
	CheckValid() error
	Parameters() []float64
	Transform(x, y float64) (float64, float64)
}

// InvertibleDistorter is a Distorter that can also map a distorted normalized point back to its
// undistorted position.
type InvertibleDistorter interface {
	Distorter
	Undistort(x, y float64) (float64, float64)
}

// InvalidDistortionError is used when the distortion_parameters are invalid.
func InvalidDistortionError(msg string) error {
	return errors.Wrap(errors.New("invalid distortion_parameters"), msg)
}

// NewDistorter returns a Distorter given a valid DistortionType and its parameters.
func NewDistorter(distortionType DistortionType, parameters []float64) (InvertibleDistorter, error) {
	switch distortionType {
	case RadialDistortionType:
		return NewRadial(parameters)
	case BrownConradyDistortionType:
		return NewBrownConrady(parameters)
	case KannalaBrandtDistortionType:
		return NewKannalaBrandt(parameters)
	default:
		return nil, errors.Errorf("do not know how to parse %q distortion model", distortionType)
	}
}

// padParameters copies inp into a slice of length n, filling missing values with 0.
func padParameters(inp []float64, n int, model DistortionType) ([]float64, error) {
	if len(inp) > n {
		return nil, errors.Errorf("list of %s parameters too long, expected max %d, got %d", model, n, len(inp))
	}
	out := make([]float64, n)
	copy(out, inp)
	return out, nil
}

const (
	newtonIterations  = 100
	newtonTolerance   = 1e-10
	numericalStepSize = 1e-6
	// an inverse whose forward residual stays above this did not converge
	newtonAcceptance = 1e-8
)

// converged reports whether distort maps (xu, yu) back onto (xd, yd) from the same side of the
// optical axis. Barrel distortions have a second root past the axis that is not a valid inverse.
func converged(distort func(x, y float64) (float64, float64), xu, yu, xd, yd float64) bool {
	if xu*xd+yu*yd < 0 {
		return false
	}
	xe, ye := distort(xu, yu)
	return math.Hypot(xe-xd, ye-yd) <= newtonAcceptance
}

// iterativeUndistortion inverts an arbitrary distortion with Newton-Raphson steps on a
// central-difference Jacobian, starting from the distorted point. It returns NaN coordinates when
// the iteration does not converge, e.g. for points beyond the fold of a barrel distortion.
func iterativeUndistortion(distort func(x, y float64) (float64, float64), xd, yd float64) (float64, float64) {
	xu, yu := xd, yd
	for i := 0; i < newtonIterations; i++ {
		xe, ye := distort(xu, yu)
		errX, errY := xe-xd, ye-yd
		if errX*errX+errY*errY < newtonTolerance*newtonTolerance {
			break
		}

		hx := numericalStepSize * max(1, math.Abs(xu))
		hy := numericalStepSize * max(1, math.Abs(yu))
		x1, y1 := distort(xu+hx, yu)
		x0, y0 := distort(xu-hx, yu)
		dxdDxu, dydDxu := (x1-x0)/(2*hx), (y1-y0)/(2*hx)
		x1, y1 = distort(xu, yu+hy)
		x0, y0 = distort(xu, yu-hy)
		dxdDyu, dydDyu := (x1-x0)/(2*hy), (y1-y0)/(2*hy)

		det := dxdDxu*dydDyu - dxdDyu*dydDxu
		if det == 0 {
			break
		}
		stepX := (dydDyu*errX - dxdDyu*errY) / det
		stepY := (-dydDxu*errX + dxdDxu*errY) / det
		xu -= stepX
		yu -= stepY
		if stepX*stepX+stepY*stepY < newtonTolerance*newtonTolerance {
			break
		}
	}
	if !converged(distort, xu, yu, xd, yd) {
		return math.NaN(), math.NaN()
	}
	return xu, yu
}
