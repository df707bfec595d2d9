package reconstruction

import (
	"fmt"
	"os"
	"strings"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"
	"go.viam.com/utils"

	"go.viam.com/mvsprep/rimage/transform"
	"go.viam.com/mvsprep/spatialmath"
)

// CameraEntry is a camera in a job file.
type CameraEntry struct {
	ID CameraID `json:"id"`
	transform.CameraConfig
}

// ImageEntry is an image in a job file. Qvec is [w, x, y, z] and together with Tvec maps world
// points into the camera frame.
type ImageEntry struct {
	ID         ImageID      `json:"id"`
	Name       string       `json:"name"`
	CameraID   CameraID     `json:"camera_id"`
	Qvec       []float64    `json:"qvec"`
	Tvec       []float64    `json:"tvec"`
	Points2D   [][2]float64 `json:"points2d,omitempty"`
	Registered *bool        `json:"registered,omitempty"`
}

// JobConfig is the on disk description of an undistortion job.
type JobConfig struct {
	// ImagePath is the directory the image names are relative to. Relative paths are resolved
	// against the job file's directory by the caller.
	ImagePath   string                 `json:"image_path"`
	Options     map[string]interface{} `json:"options,omitempty"`
	Cameras     []CameraEntry          `json:"cameras"`
	Images      []ImageEntry           `json:"images"`
	StereoPairs [][2]string            `json:"stereo_pairs,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *JobConfig) Validate(path string) error {
	if len(cfg.Cameras) == 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "cameras")
	}
	for i := range cfg.Cameras {
		if err := cfg.Cameras[i].Validate(fmt.Sprintf("%s.cameras.%d", path, i)); err != nil {
			return err
		}
	}
	for _, img := range cfg.Images {
		if img.Name == "" {
			return utils.NewConfigValidationFieldRequiredError(path+".images", "name")
		}
	}
	for _, pair := range cfg.StereoPairs {
		if pair[0] == "" || pair[1] == "" || pair[0] == pair[1] {
			return utils.NewConfigValidationError(path+".stereo_pairs",
				errors.Errorf("invalid stereo pair %q, %q", pair[0], pair[1]))
		}
	}
	return nil
}

// StereoPair names two images of a scene to rectify together.
type StereoPair struct {
	Image1, Image2 ImageID
}

// Job is a loaded and validated job: the scene, the undistortion options and the stereo pairs.
type Job struct {
	ImagePath   string
	Options     transform.UndistortCameraOptions
	Scene       *Scene
	StereoPairs []StereoPair
}

// ReadJobConfig reads a JSON5 job file.
func ReadJobConfig(path string) (*JobConfig, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read job file %q", path)
	}
	return ParseJobConfig(data)
}

// ParseJobConfig parses a JSON5 job description.
func ParseJobConfig(data []byte) (*JobConfig, error) {
	var cfg JobConfig
	if err := json5.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "cannot parse job")
	}
	return &cfg, nil
}

// LoadJob reads, validates and builds a job from a JSON5 file.
func LoadJob(path string) (*Job, error) {
	cfg, err := ReadJobConfig(path)
	if err != nil {
		return nil, err
	}
	return NewJob(cfg)
}

// NewJob validates a job config and builds the scene it describes.
func NewJob(cfg *JobConfig) (*Job, error) {
	if err := cfg.Validate("job"); err != nil {
		return nil, err
	}
	opts, err := transform.NewUndistortCameraOptionsFromAttributes(cfg.Options)
	if err != nil {
		return nil, err
	}
	if err := opts.Validate("job.options"); err != nil {
		return nil, err
	}

	scene := NewScene()
	for _, entry := range cfg.Cameras {
		cam, err := transform.NewCameraFromConfig(entry.CameraConfig)
		if err != nil {
			return nil, errors.Wrapf(err, "camera %d", entry.ID)
		}
		if err := scene.AddCamera(entry.ID, cam); err != nil {
			return nil, err
		}
	}
	for _, entry := range cfg.Images {
		img, err := entry.toImage()
		if err != nil {
			return nil, err
		}
		if err := scene.AddImage(img); err != nil {
			return nil, err
		}
	}

	job := &Job{ImagePath: cfg.ImagePath, Options: opts, Scene: scene}
	for _, names := range cfg.StereoPairs {
		pair, err := scene.StereoPair(names[0], names[1])
		if err != nil {
			return nil, err
		}
		job.StereoPairs = append(job.StereoPairs, pair)
	}
	return job, nil
}

func (entry ImageEntry) toImage() (*Image, error) {
	qvec := entry.Qvec
	if qvec == nil {
		qvec = []float64{1, 0, 0, 0}
	}
	tvec := entry.Tvec
	if tvec == nil {
		tvec = []float64{0, 0, 0}
	}
	pose, err := spatialmath.NewPoseFromSlices(qvec, tvec)
	if err != nil {
		return nil, errors.Wrapf(err, "image %q", entry.Name)
	}
	points := make([]r2.Point, len(entry.Points2D))
	for i, p := range entry.Points2D {
		points[i] = r2.Point{X: p[0], Y: p[1]}
	}
	return &Image{
		ID:         entry.ID,
		Name:       entry.Name,
		CameraID:   entry.CameraID,
		Pose:       pose,
		Points2D:   points,
		Registered: entry.Registered == nil || *entry.Registered,
	}, nil
}

// StereoPair resolves two image names to a stereo pair.
func (s *Scene) StereoPair(name1, name2 string) (StereoPair, error) {
	img1, ok := s.ImageByName(name1)
	if !ok {
		return StereoPair{}, errors.Errorf("stereo pair references unknown image %q", name1)
	}
	img2, ok := s.ImageByName(name2)
	if !ok {
		return StereoPair{}, errors.Errorf("stereo pair references unknown image %q", name2)
	}
	return StereoPair{Image1: img1.ID, Image2: img2.ID}, nil
}

// StereoPairName is the output directory name of a stereo pair, "<name1>-<name2>" with path
// separators in the image names replaced by dashes.
func StereoPairName(name1, name2 string) string {
	return FlatImageName(name1) + "-" + FlatImageName(name2)
}

// FlatImageName replaces path separators in an image name by dashes.
func FlatImageName(name string) string {
	return strings.ReplaceAll(name, "/", "-")
}
