package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/mvsprep/logging"
	"go.viam.com/mvsprep/reconstruction"
	"go.viam.com/mvsprep/rimage/transform"
	"go.viam.com/mvsprep/undistorter"
)

func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

func newLogger(c *cli.Context) logging.Logger {
	if path := c.String(generalFlagLogFile); path != "" {
		return logging.NewFileLogger("mvsprep", c.Bool(generalFlagDebug), logging.FileConfig{
			Path:       path,
			MaxSizeMB:  100,
			MaxBackups: 3,
		})
	}
	if c.Bool(generalFlagDebug) {
		return logging.NewDebugLogger("mvsprep")
	}
	return logging.NewLogger("mvsprep")
}

// applyOptionFlags overrides opts with every option flag set on the command line.
func applyOptionFlags(c *cli.Context, opts transform.UndistortCameraOptions) transform.UndistortCameraOptions {
	floats := map[string]*float64{
		optionFlagBlankPixels: &opts.BlankPixels,
		optionFlagMinScale:    &opts.MinScale,
		optionFlagMaxScale:    &opts.MaxScale,
		optionFlagMaxFOV:      &opts.MaxFOV,
		optionFlagMaxHFOV:     &opts.MaxHorizontalFOV,
		optionFlagMaxVFOV:     &opts.MaxVerticalFOV,
	}
	for name, dst := range floats {
		if c.IsSet(name) {
			*dst = c.Float64(name)
		}
	}
	if c.IsSet(optionFlagMaxImageSize) {
		opts.MaxImageSize = c.Int(optionFlagMaxImageSize)
	}
	if c.IsSet(optionFlagEstimateFocal) {
		opts.EstimateFocalLengthFromFOV = c.Bool(optionFlagEstimateFocal)
	}
	if c.IsSet(optionFlagOverrideModel) {
		opts.CameraModelOverride = c.String(optionFlagOverrideModel)
	}
	if c.IsSet(optionFlagOverrideParam) {
		opts.CameraModelOverrideParams = c.String(optionFlagOverrideParam)
	}
	return opts
}

// loadJob loads the job file and applies the command line overrides. Relative image paths are
// resolved against the job file's directory.
func loadJob(c *cli.Context) (*reconstruction.Job, error) {
	jobPath := c.String(jobFlagJob)
	job, err := reconstruction.LoadJob(jobPath)
	if err != nil {
		return nil, err
	}
	job.Options = applyOptionFlags(c, job.Options)
	if err := job.Options.Validate("options"); err != nil {
		return nil, err
	}
	if c.IsSet(jobFlagImagePath) {
		job.ImagePath = c.String(jobFlagImagePath)
	} else if !filepath.IsAbs(job.ImagePath) {
		job.ImagePath = filepath.Join(filepath.Dir(jobPath), job.ImagePath)
	}
	return job, nil
}

// UndistortAction undistorts every registered image of a job into the output directory.
func UndistortAction(c *cli.Context) error {
	job, err := loadJob(c)
	if err != nil {
		return err
	}
	logger := newLogger(c)
	//nolint:errcheck
	defer logger.Sync()

	u := &undistorter.Undistorter{
		Scene:   job.Scene,
		Options: job.Options,
		Source:  undistorter.NewDirStore(job.ImagePath),
		Sink:    undistorter.NewDirStore(c.String(jobFlagOutput)),
		Workers: c.Int(generalFlagWorkers),
		Logger:  logger,
	}
	scene, err := u.Run(c.Context)
	if scene != nil {
		for _, id := range scene.CameraIDs() {
			cam, _ := scene.Camera(id)
			printf(c.App.Writer, "camera %d: %s %dx%d %s", id, cam.ModelType(), cam.Width(), cam.Height(), cam.ParamsString())
		}
	}
	return err
}

func parsePairs(scene *reconstruction.Scene, pairArgs []string) ([]reconstruction.StereoPair, error) {
	pairs := make([]reconstruction.StereoPair, 0, len(pairArgs))
	for _, arg := range pairArgs {
		names := strings.Split(arg, ",")
		if len(names) != 2 {
			return nil, errors.Errorf("stereo pair must be NAME1,NAME2, got %q", arg)
		}
		pair, err := scene.StereoPair(strings.TrimSpace(names[0]), strings.TrimSpace(names[1]))
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}

// RectifyAction undistorts and rectifies the stereo pairs of a job into the output directory.
func RectifyAction(c *cli.Context) error {
	job, err := loadJob(c)
	if err != nil {
		return err
	}
	pairs := job.StereoPairs
	if c.IsSet(jobFlagPair) {
		// StringSliceFlag already splits on commas, so rejoin consecutive names
		values := c.StringSlice(jobFlagPair)
		if len(values)%2 != 0 {
			return errors.Errorf("stereo pairs need two image names each, got %v", values)
		}
		pairArgs := make([]string, 0, len(values)/2)
		for i := 0; i < len(values); i += 2 {
			pairArgs = append(pairArgs, values[i]+","+values[i+1])
		}
		if pairs, err = parsePairs(job.Scene, pairArgs); err != nil {
			return err
		}
	}
	if len(pairs) == 0 {
		return errors.New("no stereo pairs given")
	}
	logger := newLogger(c)
	//nolint:errcheck
	defer logger.Sync()

	r := &undistorter.StereoRectifier{
		Scene:   job.Scene,
		Pairs:   pairs,
		Options: job.Options,
		Source:  undistorter.NewDirStore(job.ImagePath),
		Sink:    undistorter.NewDirStore(c.String(jobFlagOutput)),
		Workers: c.Int(generalFlagWorkers),
		Logger:  logger,
	}
	return r.Run(c.Context)
}

// CameraAction prints the undistorted camera of the camera given on the command line.
func CameraAction(c *cli.Context) error {
	cam, err := transform.NewCameraFromString(
		transform.CameraModelType(c.String(cameraFlagModel)), c.Int(cameraFlagWidth), c.Int(cameraFlagHeight), c.String(cameraFlagParams))
	if err != nil {
		return err
	}
	opts := applyOptionFlags(c, transform.NewDefaultUndistortCameraOptions())
	undistorted, err := transform.UndistortCamera(opts, cam)
	if err != nil {
		return err
	}
	printf(c.App.Writer, "model: %s", undistorted.ModelType())
	printf(c.App.Writer, "width: %d", undistorted.Width())
	printf(c.App.Writer, "height: %d", undistorted.Height())
	printf(c.App.Writer, "params: %s", undistorted.ParamsString())
	return nil
}
