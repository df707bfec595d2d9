package transform

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// CameraModelType is the name of a camera model, e.g. "pinhole".
type CameraModelType string

// The built-in camera models.
const (
	SimplePinholeModel = CameraModelType("simple_pinhole")
	PinholeModel       = CameraModelType("pinhole")
	SimpleRadialModel  = CameraModelType("simple_radial")
	RadialModel        = CameraModelType("radial")
	OpenCVModel        = CameraModelType("opencv")
	FullOpenCVModel    = CameraModelType("full_opencv")
	OpenCVFisheyeModel = CameraModelType("opencv_fisheye")
)

// CameraModel describes how a model's parameter vector is laid out and which lens distortion
// its extra parameters define.
type CameraModel struct {
	Type       CameraModelType
	ParamsInfo string
	// FocalLengthIdxs may hold any number of indices; the undistortion pipeline only accepts one or two.
	FocalLengthIdxs []int
	// PrincipalPointIdxs is either empty or [x, y].
	PrincipalPointIdxs []int
	ExtraParamsIdxs    []int
	// Pinhole marks models whose projection is an ideal pinhole with no lens distortion.
	Pinhole bool
	// NewDistorter builds the lens distortion from the extra parameters. It is nil for
	// distortion free models.
	NewDistorter func(extra []float64) (InvertibleDistorter, error)
}

// NumParams is the length of the model's parameter vector.
func (m CameraModel) NumParams() int {
	return len(m.FocalLengthIdxs) + len(m.PrincipalPointIdxs) + len(m.ExtraParamsIdxs)
}

var (
	cameraModelsMu sync.RWMutex
	cameraModels   = map[CameraModelType]CameraModel{}
)

// RegisterCameraModel makes a camera model available to NewCamera. It panics when the same
// name is registered twice or the parameter layout is inconsistent.
func RegisterCameraModel(model CameraModel) {
	cameraModelsMu.Lock()
	defer cameraModelsMu.Unlock()

	if model.Type == "" {
		panic(errors.New("cannot register a camera model without a name"))
	}
	if _, old := cameraModels[model.Type]; old {
		panic(errors.Errorf("trying to register two camera models with same name: %q", model.Type))
	}
	if n := len(model.PrincipalPointIdxs); n != 0 && n != 2 {
		panic(errors.Errorf("camera model %q must have zero or two principal point indices, got %d", model.Type, n))
	}
	seen := make(map[int]bool, model.NumParams())
	for _, idxs := range [][]int{model.FocalLengthIdxs, model.PrincipalPointIdxs, model.ExtraParamsIdxs} {
		for _, idx := range idxs {
			if idx < 0 || idx >= model.NumParams() || seen[idx] {
				panic(errors.Errorf("camera model %q has an invalid parameter index %d", model.Type, idx))
			}
			seen[idx] = true
		}
	}
	cameraModels[model.Type] = model
}

// LookupCameraModel returns the registered camera model with the given name.
func LookupCameraModel(name CameraModelType) (CameraModel, bool) {
	cameraModelsMu.RLock()
	defer cameraModelsMu.RUnlock()
	model, ok := cameraModels[name]
	return model, ok
}

// RegisteredCameraModels returns the names of all registered camera models, sorted.
func RegisteredCameraModels() []CameraModelType {
	cameraModelsMu.RLock()
	defer cameraModelsMu.RUnlock()
	names := make([]CameraModelType, 0, len(cameraModels))
	for name := range cameraModels {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

func init() {
	RegisterCameraModel(CameraModel{
		Type:               SimplePinholeModel,
		ParamsInfo:         "f, cx, cy",
		FocalLengthIdxs:    []int{0},
		PrincipalPointIdxs: []int{1, 2},
		Pinhole:            true,
	})
	RegisterCameraModel(CameraModel{
		Type:               PinholeModel,
		ParamsInfo:         "fx, fy, cx, cy",
		FocalLengthIdxs:    []int{0, 1},
		PrincipalPointIdxs: []int{2, 3},
		Pinhole:            true,
	})
	RegisterCameraModel(CameraModel{
		Type:               SimpleRadialModel,
		ParamsInfo:         "f, cx, cy, k",
		FocalLengthIdxs:    []int{0},
		PrincipalPointIdxs: []int{1, 2},
		ExtraParamsIdxs:    []int{3},
		NewDistorter: func(extra []float64) (InvertibleDistorter, error) {
			return NewDistorter(RadialDistortionType, extra)
		},
	})
	RegisterCameraModel(CameraModel{
		Type:               RadialModel,
		ParamsInfo:         "f, cx, cy, k1, k2",
		FocalLengthIdxs:    []int{0},
		PrincipalPointIdxs: []int{1, 2},
		ExtraParamsIdxs:    []int{3, 4},
		NewDistorter: func(extra []float64) (InvertibleDistorter, error) {
			return NewDistorter(RadialDistortionType, extra)
		},
	})
	RegisterCameraModel(CameraModel{
		Type:               OpenCVModel,
		ParamsInfo:         "fx, fy, cx, cy, k1, k2, p1, p2",
		FocalLengthIdxs:    []int{0, 1},
		PrincipalPointIdxs: []int{2, 3},
		ExtraParamsIdxs:    []int{4, 5, 6, 7},
		NewDistorter: func(extra []float64) (InvertibleDistorter, error) {
			// Brown-Conrady orders the coefficients k1, k2, k3, p1, p2
			return NewDistorter(BrownConradyDistortionType, []float64{extra[0], extra[1], 0, extra[2], extra[3]})
		},
	})
	RegisterCameraModel(CameraModel{
		Type:               FullOpenCVModel,
		ParamsInfo:         "fx, fy, cx, cy, k1, k2, p1, p2, k3",
		FocalLengthIdxs:    []int{0, 1},
		PrincipalPointIdxs: []int{2, 3},
		ExtraParamsIdxs:    []int{4, 5, 6, 7, 8},
		NewDistorter: func(extra []float64) (InvertibleDistorter, error) {
			return NewDistorter(BrownConradyDistortionType, []float64{extra[0], extra[1], extra[4], extra[2], extra[3]})
		},
	})
	RegisterCameraModel(CameraModel{
		Type:               OpenCVFisheyeModel,
		ParamsInfo:         "fx, fy, cx, cy, k1, k2, k3, k4",
		FocalLengthIdxs:    []int{0, 1},
		PrincipalPointIdxs: []int{2, 3},
		ExtraParamsIdxs:    []int{4, 5, 6, 7},
		NewDistorter: func(extra []float64) (InvertibleDistorter, error) {
			return NewDistorter(KannalaBrandtDistortionType, extra)
		},
	})
}
