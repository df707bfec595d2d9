package transform

import (
	"math"
	"strconv"
	"strings"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/mat"

	rdkutils "go.viam.com/mvsprep/utils"
)

// CameraConfig is the serialized form of a Camera.
type CameraConfig struct {
	Model  string    `json:"model"`
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Params []float64 `json:"params"`
}

// Validate ensures all parts of the config are valid.
func (cfg *CameraConfig) Validate(path string) error {
	if cfg.Model == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "model")
	}
	model, ok := LookupCameraModel(CameraModelType(cfg.Model))
	if !ok {
		return utils.NewConfigValidationError(path, errors.Errorf("unknown camera model %q", cfg.Model))
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("invalid size (%d, %d)", cfg.Width, cfg.Height))
	}
	if len(cfg.Params) != model.NumParams() {
		return utils.NewConfigValidationError(path,
			errors.Errorf("camera model %q expects %d params (%s), got %d", cfg.Model, model.NumParams(), model.ParamsInfo, len(cfg.Params)))
	}
	return nil
}

// Camera is an immutable camera: a model, an image size and the model's parameter vector.
// Setters return modified copies.
type Camera struct {
	model     CameraModel
	width     int
	height    int
	params    []float64
	distorter InvertibleDistorter
}

// NewCamera creates a camera of a registered model.
func NewCamera(modelType CameraModelType, width, height int, params []float64) (*Camera, error) {
	model, ok := LookupCameraModel(modelType)
	if !ok {
		return nil, errors.Errorf("unknown camera model %q", modelType)
	}
	if len(params) != model.NumParams() {
		return nil, errors.Errorf("camera model %q expects %d params (%s), got %d",
			modelType, model.NumParams(), model.ParamsInfo, len(params))
	}
	cam := &Camera{
		model:  model,
		width:  width,
		height: height,
		params: append([]float64(nil), params...),
	}
	if model.NewDistorter != nil {
		extra := make([]float64, len(model.ExtraParamsIdxs))
		for i, idx := range model.ExtraParamsIdxs {
			extra[i] = params[idx]
		}
		d, err := model.NewDistorter(extra)
		if err != nil {
			return nil, errors.Wrapf(err, "camera model %q", modelType)
		}
		cam.distorter = d
	}
	return cam, nil
}

// NewCameraFromConfig validates a config and creates the camera it describes.
func NewCameraFromConfig(cfg CameraConfig) (*Camera, error) {
	if err := cfg.Validate("camera"); err != nil {
		return nil, err
	}
	return NewCamera(CameraModelType(cfg.Model), cfg.Width, cfg.Height, cfg.Params)
}

// NewCameraFromString creates a camera from comma separated parameters, e.g. "500, 320, 240".
func NewCameraFromString(modelType CameraModelType, width, height int, params string) (*Camera, error) {
	parsed, err := ParseCameraParams(params)
	if err != nil {
		return nil, err
	}
	return NewCamera(modelType, width, height, parsed)
}

// ParseCameraParams parses a comma separated list of numbers.
func ParseCameraParams(s string) ([]float64, error) {
	var params []float64
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid camera parameter %q", field)
		}
		params = append(params, v)
	}
	return params, nil
}

// Config returns the serialized form of the camera.
func (c *Camera) Config() CameraConfig {
	return CameraConfig{Model: string(c.model.Type), Width: c.width, Height: c.height, Params: c.Params()}
}

// ModelType returns the camera's model name.
func (c *Camera) ModelType() CameraModelType { return c.model.Type }

// Model returns the camera's model description.
func (c *Camera) Model() CameraModel { return c.model }

// Width is the image width in pixels.
func (c *Camera) Width() int { return c.width }

// Height is the image height in pixels.
func (c *Camera) Height() int { return c.height }

// Params returns a copy of the parameter vector.
func (c *Camera) Params() []float64 {
	return append([]float64(nil), c.params...)
}

// ParamsString formats the parameters as a comma separated list.
func (c *Camera) ParamsString() string {
	parts := make([]string, len(c.params))
	for i, p := range c.params {
		parts[i] = strconv.FormatFloat(p, 'g', -1, 64)
	}
	return strings.Join(parts, ", ")
}

// Distortion returns the lens distortion of the camera, or nil for distortion free models.
func (c *Camera) Distortion() Distorter {
	if c.distorter == nil {
		return nil
	}
	return c.distorter
}

// IsPinhole reports whether the camera is an ideal, distortion free pinhole.
func (c *Camera) IsPinhole() bool { return c.model.Pinhole }

// HasPrincipalPoint reports whether the model has principal point parameters.
func (c *Camera) HasPrincipalPoint() bool { return len(c.model.PrincipalPointIdxs) == 2 }

// FocalLength returns the mean of the focal length parameters, or 1 for models without any.
func (c *Camera) FocalLength() float64 {
	idxs := c.model.FocalLengthIdxs
	if len(idxs) == 0 {
		return 1
	}
	sum := 0.
	for _, idx := range idxs {
		sum += c.params[idx]
	}
	return sum / float64(len(idxs))
}

// FocalLengthX returns the horizontal focal length.
func (c *Camera) FocalLengthX() float64 {
	idxs := c.model.FocalLengthIdxs
	if len(idxs) == 0 {
		return 1
	}
	return c.params[idxs[0]]
}

// FocalLengthY returns the vertical focal length. Single focal models share it with X.
func (c *Camera) FocalLengthY() float64 {
	idxs := c.model.FocalLengthIdxs
	switch len(idxs) {
	case 0:
		return 1
	case 1:
		return c.params[idxs[0]]
	default:
		return c.params[idxs[1]]
	}
}

// PrincipalPoint returns the principal point, or the origin for models without one.
func (c *Camera) PrincipalPoint() r2.Point {
	if !c.HasPrincipalPoint() {
		return r2.Point{}
	}
	return r2.Point{X: c.params[c.model.PrincipalPointIdxs[0]], Y: c.params[c.model.PrincipalPointIdxs[1]]}
}

// PrincipalPointX returns the horizontal principal point coordinate.
func (c *Camera) PrincipalPointX() float64 { return c.PrincipalPoint().X }

// PrincipalPointY returns the vertical principal point coordinate.
func (c *Camera) PrincipalPointY() float64 { return c.PrincipalPoint().Y }

func (c *Camera) clone() *Camera {
	cp := *c
	cp.params = c.Params()
	return &cp
}

// WithFocalLength returns a copy with every focal length parameter set to f.
func (c *Camera) WithFocalLength(f float64) *Camera {
	cp := c.clone()
	for _, idx := range cp.model.FocalLengthIdxs {
		cp.params[idx] = f
	}
	return cp
}

// WithFocalLengths returns a copy with the horizontal and vertical focal lengths set. Single
// focal models take the mean of both.
func (c *Camera) WithFocalLengths(fx, fy float64) *Camera {
	cp := c.clone()
	idxs := cp.model.FocalLengthIdxs
	switch len(idxs) {
	case 0:
	case 1:
		cp.params[idxs[0]] = (fx + fy) / 2
	default:
		cp.params[idxs[0]] = fx
		cp.params[idxs[1]] = fy
	}
	return cp
}

// WithPrincipalPoint returns a copy with the principal point moved. It is a no-op for models
// without a principal point.
func (c *Camera) WithPrincipalPoint(pp r2.Point) *Camera {
	cp := c.clone()
	if cp.HasPrincipalPoint() {
		cp.params[cp.model.PrincipalPointIdxs[0]] = pp.X
		cp.params[cp.model.PrincipalPointIdxs[1]] = pp.Y
	}
	return cp
}

// WithSize returns a copy with a new image size and unchanged parameters.
func (c *Camera) WithSize(width, height int) *Camera {
	cp := c.clone()
	cp.width, cp.height = width, height
	return cp
}

// Rescale returns a copy with the image size multiplied by scale (rounded, at least one pixel)
// and the focal lengths and principal point scaled by the realized per axis factors.
func (c *Camera) Rescale(scale float64) *Camera {
	w, h := float64(c.width), float64(c.height)
	newWidth := rdkutils.MaxInt(1, int(math.Round(scale*w)))
	newHeight := rdkutils.MaxInt(1, int(math.Round(scale*h)))
	scaleX := float64(newWidth) / w
	scaleY := float64(newHeight) / h

	cp := c.WithSize(newWidth, newHeight)
	if cp.HasPrincipalPoint() {
		pp := cp.PrincipalPoint()
		cp = cp.WithPrincipalPoint(r2.Point{X: scaleX * pp.X, Y: scaleY * pp.Y})
	}
	idxs := cp.model.FocalLengthIdxs
	if len(idxs) == 2 {
		cp.params[idxs[0]] *= scaleX
		cp.params[idxs[1]] *= scaleY
	} else {
		for _, idx := range idxs {
			cp.params[idx] *= (scaleX + scaleY) / 2
		}
	}
	return cp
}

// ImageToWorld maps an image point to normalized, undistorted camera coordinates on the z=1 plane.
func (c *Camera) ImageToWorld(pt r2.Point) r2.Point {
	pp := c.PrincipalPoint()
	u := (pt.X - pp.X) / c.FocalLengthX()
	v := (pt.Y - pp.Y) / c.FocalLengthY()
	if c.distorter != nil {
		u, v = c.distorter.Undistort(u, v)
	}
	return r2.Point{X: u, Y: v}
}

// WorldToImage maps normalized camera coordinates to an image point, applying lens distortion.
func (c *Camera) WorldToImage(pt r2.Point) r2.Point {
	u, v := pt.X, pt.Y
	if c.distorter != nil {
		u, v = c.distorter.Transform(u, v)
	}
	pp := c.PrincipalPoint()
	return r2.Point{X: u*c.FocalLengthX() + pp.X, Y: v*c.FocalLengthY() + pp.Y}
}

// Intrinsics returns the pinhole part of the camera.
func (c *Camera) Intrinsics() *PinholeCameraIntrinsics {
	pp := c.PrincipalPoint()
	return &PinholeCameraIntrinsics{
		Width:  c.width,
		Height: c.height,
		Fx:     c.FocalLengthX(),
		Fy:     c.FocalLengthY(),
		Ppx:    pp.X,
		Ppy:    pp.Y,
	}
}

// CalibrationMatrix returns the 3x3 intrinsic matrix K.
func (c *Camera) CalibrationMatrix() *mat.Dense {
	return c.Intrinsics().GetCameraMatrix()
}

// CheckValid checks that the camera has a usable size and finite, positive focal lengths.
func (c *Camera) CheckValid() error {
	if c == nil {
		return NewNoIntrinsicsError("camera does not exist")
	}
	if c.width <= 0 || c.height <= 0 {
		return NewNoIntrinsicsError("invalid size")
	}
	for i, p := range c.params {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return errors.Errorf("camera parameter %d is not finite", i)
		}
	}
	for _, idx := range c.model.FocalLengthIdxs {
		if c.params[idx] <= 0 {
			return NewNoIntrinsicsError("focal lengths must be positive")
		}
	}
	if c.distorter != nil {
		return c.distorter.CheckValid()
	}
	return nil
}
