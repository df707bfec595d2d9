package transform

import "math"

// Radial is a purely radial polynomial distortion, x_d = x_u * (1 + k1*r² + k2*r⁴).
type Radial struct {
	RadialK1 float64 `json:"rk1"`
	RadialK2 float64 `json:"rk2"`
}

// NewRadial takes in up to two radial coefficients [k1, k2].
func NewRadial(inp []float64) (*Radial, error) {
	p, err := padParameters(inp, 2, RadialDistortionType)
	if err != nil {
		return nil, err
	}
	return &Radial{p[0], p[1]}, nil
}

// CheckValid checks if the fields for Radial have valid inputs.
func (rd *Radial) CheckValid() error {
	if rd == nil {
		return InvalidDistortionError("Radial shaped distortion_parameters not provided")
	}
	return nil
}

// ModelType returns the type of distortion model.
func (rd *Radial) ModelType() DistortionType {
	return RadialDistortionType
}

// Parameters returns the parameters of the distortion model as a list of floats.
func (rd *Radial) Parameters() []float64 {
	if rd == nil {
		return []float64{}
	}
	return []float64{rd.RadialK1, rd.RadialK2}
}

// Transform distorts an undistorted normalized point.
func (rd *Radial) Transform(xu, yu float64) (float64, float64) {
	if rd == nil {
		return xu, yu
	}
	r2 := xu*xu + yu*yu
	radial := 1 + rd.RadialK1*r2 + rd.RadialK2*r2*r2
	return xu * radial, yu * radial
}

// Undistort inverts Transform numerically.
func (rd *Radial) Undistort(xd, yd float64) (float64, float64) {
	if rd == nil {
		return xd, yd
	}
	return iterativeUndistortion(rd.Transform, xd, yd)
}

// KannalaBrandt is the equidistant fisheye model, θ_d = θ(1 + k1θ² + k2θ⁴ + k3θ⁶ + k4θ⁸),
// where θ is the angle between the ray and the optical axis.
type KannalaBrandt struct {
	K1 float64 `json:"k1"`
	K2 float64 `json:"k2"`
	K3 float64 `json:"k3"`
	K4 float64 `json:"k4"`
}

// NewKannalaBrandt takes in up to four coefficients [k1, k2, k3, k4].
func NewKannalaBrandt(inp []float64) (*KannalaBrandt, error) {
	p, err := padParameters(inp, 4, KannalaBrandtDistortionType)
	if err != nil {
		return nil, err
	}
	return &KannalaBrandt{p[0], p[1], p[2], p[3]}, nil
}

// CheckValid checks if the fields for KannalaBrandt have valid inputs.
func (kb *KannalaBrandt) CheckValid() error {
	if kb == nil {
		return InvalidDistortionError("KannalaBrandt shaped distortion_parameters not provided")
	}
	return nil
}

// ModelType returns the type of distortion model.
func (kb *KannalaBrandt) ModelType() DistortionType {
	return KannalaBrandtDistortionType
}

// Parameters returns the parameters of the distortion model as a list of floats.
func (kb *KannalaBrandt) Parameters() []float64 {
	if kb == nil {
		return []float64{}
	}
	return []float64{kb.K1, kb.K2, kb.K3, kb.K4}
}

const fisheyeEpsilon = 1e-12

func (kb *KannalaBrandt) thetaD(theta float64) float64 {
	t2 := theta * theta
	return theta * (1 + t2*(kb.K1+t2*(kb.K2+t2*(kb.K3+t2*kb.K4))))
}

// Transform distorts an undistorted normalized point.
func (kb *KannalaBrandt) Transform(xu, yu float64) (float64, float64) {
	if kb == nil {
		return xu, yu
	}
	r := math.Hypot(xu, yu)
	if r < fisheyeEpsilon {
		return xu, yu
	}
	scale := kb.thetaD(math.Atan(r)) / r
	return xu * scale, yu * scale
}

// Undistort solves θ_d(θ) = |p_d| for θ with Newton steps and projects the ray back onto the
// normalized image plane. It returns NaN coordinates when the iteration does not converge.
func (kb *KannalaBrandt) Undistort(xd, yd float64) (float64, float64) {
	if kb == nil {
		return xd, yd
	}
	thetaD := math.Hypot(xd, yd)
	if thetaD < fisheyeEpsilon {
		return xd, yd
	}

	theta := thetaD
	for i := 0; i < newtonIterations; i++ {
		t2 := theta * theta
		deriv := 1 + t2*(3*kb.K1+t2*(5*kb.K2+t2*(7*kb.K3+t2*9*kb.K4)))
		if deriv == 0 {
			break
		}
		step := (kb.thetaD(theta) - thetaD) / deriv
		theta -= step
		if math.Abs(step) < newtonTolerance {
			break
		}
	}
	if theta < 0 || math.Abs(kb.thetaD(theta)-thetaD) > newtonAcceptance {
		return math.NaN(), math.NaN()
	}
	// rays at or beyond 90° have no pinhole projection
	theta = math.Min(math.Max(theta, 0), math.Pi/2-1e-9)

	scale := math.Tan(theta) / thetaD
	return xd * scale, yd * scale
}
