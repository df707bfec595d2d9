package transform

import (
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// ErrInvalidOptions is wrapped by every UndistortCameraOptions validation failure.
var ErrInvalidOptions = errors.New("invalid undistortion options")

// UndistortCameraOptions controls how an undistorted pinhole camera is synthesized from a distorted one.
type UndistortCameraOptions struct {
	// BlankPixels in [0, 1] trades cropping (0, no blank output pixels) against padding
	// (1, no lost source pixels).
	BlankPixels float64 `json:"blank_pixels"`
	MinScale    float64 `json:"min_scale"`
	MaxScale    float64 `json:"max_scale"`
	// MaxImageSize caps the larger output dimension. Zero or negative means unbounded.
	MaxImageSize int `json:"max_image_size"`

	// Field of view bounds in degrees, each in (0, 180).
	MaxFOV           float64 `json:"max_fov"`
	MaxHorizontalFOV float64 `json:"max_horizontal_fov"`
	MaxVerticalFOV   float64 `json:"max_vertical_fov"`

	// CameraModelOverride, when set, replaces the synthesized camera with this model built from
	// CameraModelOverrideParams (comma separated).
	CameraModelOverride       string `json:"camera_model_override,omitempty"`
	CameraModelOverrideParams string `json:"camera_model_override_params,omitempty"`

	EstimateFocalLengthFromFOV bool `json:"estimate_focal_length_from_fov"`
}

// NewDefaultUndistortCameraOptions returns options that keep every source pixel's neighbourhood
// without blank borders and leave the image size unbounded.
func NewDefaultUndistortCameraOptions() UndistortCameraOptions {
	return UndistortCameraOptions{
		BlankPixels:      0,
		MinScale:         0.2,
		MaxScale:         2,
		MaxImageSize:     -1,
		MaxFOV:           179,
		MaxHorizontalFOV: 179,
		MaxVerticalFOV:   179,
	}
}

func invalidOption(path, msg string, args ...interface{}) error {
	return utils.NewConfigValidationError(path, errors.Wrapf(ErrInvalidOptions, msg, args...))
}

// Validate ensures all parts of the options are valid.
func (opts *UndistortCameraOptions) Validate(path string) error {
	if opts.BlankPixels < 0 || opts.BlankPixels > 1 {
		return invalidOption(path, "blank_pixels must be in [0, 1], got %v", opts.BlankPixels)
	}
	if opts.MinScale <= 0 {
		return invalidOption(path, "min_scale must be positive, got %v", opts.MinScale)
	}
	if opts.MinScale > opts.MaxScale {
		return invalidOption(path, "min_scale (%v) cannot be larger than max_scale (%v)", opts.MinScale, opts.MaxScale)
	}
	fovs := []struct {
		name  string
		value float64
	}{
		{"max_fov", opts.MaxFOV},
		{"max_horizontal_fov", opts.MaxHorizontalFOV},
		{"max_vertical_fov", opts.MaxVerticalFOV},
	}
	for _, fov := range fovs {
		if fov.value <= 0 || fov.value >= 180 {
			return invalidOption(path, "%s must be in (0, 180) degrees, got %v", fov.name, fov.value)
		}
	}
	if opts.CameraModelOverride != "" {
		if _, ok := LookupCameraModel(CameraModelType(opts.CameraModelOverride)); !ok {
			return invalidOption(path, "unknown camera_model_override %q", opts.CameraModelOverride)
		}
		if opts.CameraModelOverrideParams == "" {
			return utils.NewConfigValidationFieldRequiredError(path, "camera_model_override_params")
		}
	}
	return nil
}

// NewUndistortCameraOptionsFromAttributes decodes a loosely typed attribute map on top of the
// defaults. Unknown keys are an error.
func NewUndistortCameraOptionsFromAttributes(attributes map[string]interface{}) (UndistortCameraOptions, error) {
	opts := NewDefaultUndistortCameraOptions()
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &opts,
		Metadata:         &md,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return opts, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return opts, errors.Wrap(err, "cannot decode undistortion options")
	}
	if len(md.Unused) != 0 {
		return opts, errors.Wrapf(ErrInvalidOptions, "unknown option(s) %v", md.Unused)
	}
	return opts, nil
}
