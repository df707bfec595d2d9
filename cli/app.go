// Package cli contains all business logic for the mvsprep command line tool.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	generalFlagDebug   = "debug"
	generalFlagLogFile = "log-file"
	generalFlagWorkers = "workers"

	jobFlagJob       = "job"
	jobFlagOutput    = "output"
	jobFlagImagePath = "image-path"
	jobFlagPair      = "pair"

	cameraFlagModel  = "model"
	cameraFlagParams = "params"
	cameraFlagWidth  = "width"
	cameraFlagHeight = "height"

	optionFlagBlankPixels   = "blank-pixels"
	optionFlagMinScale      = "min-scale"
	optionFlagMaxScale      = "max-scale"
	optionFlagMaxImageSize  = "max-image-size"
	optionFlagMaxFOV        = "max-fov"
	optionFlagMaxHFOV       = "max-horizontal-fov"
	optionFlagMaxVFOV       = "max-vertical-fov"
	optionFlagEstimateFocal = "estimate-focal-length"
	optionFlagOverrideModel = "camera-model-override"
	optionFlagOverrideParam = "camera-model-override-params"
)

// optionFlags override the undistortion options of a job file when set.
var optionFlags = []cli.Flag{
	&cli.Float64Flag{
		Name:  optionFlagBlankPixels,
		Usage: "fraction of blank pixels in the output, 0 crops to valid pixels, 1 keeps every input pixel",
	},
	&cli.Float64Flag{
		Name:  optionFlagMinScale,
		Usage: "minimum output scale relative to the input",
	},
	&cli.Float64Flag{
		Name:  optionFlagMaxScale,
		Usage: "maximum output scale relative to the input",
	},
	&cli.IntFlag{
		Name:  optionFlagMaxImageSize,
		Usage: "maximum output width or height in pixels, 0 or less is unbounded",
	},
	&cli.Float64Flag{
		Name:  optionFlagMaxFOV,
		Usage: "maximum field of view in degrees",
	},
	&cli.Float64Flag{
		Name:  optionFlagMaxHFOV,
		Usage: "maximum horizontal field of view in degrees",
	},
	&cli.Float64Flag{
		Name:  optionFlagMaxVFOV,
		Usage: "maximum vertical field of view in degrees",
	},
	&cli.BoolFlag{
		Name:  optionFlagEstimateFocal,
		Usage: "derive the output focal length from the field of view instead of copying it",
	},
	&cli.StringFlag{
		Name:  optionFlagOverrideModel,
		Usage: "use this camera model for the output instead of synthesizing one",
	},
	&cli.StringFlag{
		Name:  optionFlagOverrideParam,
		Usage: "comma separated parameters of the override camera model",
	},
}

func withOptionFlags(flags ...cli.Flag) []cli.Flag {
	return append(flags, optionFlags...)
}

var app = &cli.App{
	Name:            "mvsprep",
	Usage:           "undistort and rectify the images of a sparse reconstruction",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    generalFlagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
		&cli.StringFlag{
			Name:  generalFlagLogFile,
			Usage: "additionally write logs to the rotating `FILE`",
		},
		&cli.IntFlag{
			Name:  generalFlagWorkers,
			Usage: "number of images processed in parallel, 0 uses all cores",
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "undistort",
			Usage:     "undistort every registered image of a job",
			UsageText: "mvsprep undistort --job <job.json5> --output <dir> [options]",
			Flags: withOptionFlags(
				&cli.StringFlag{
					Name:     jobFlagJob,
					Usage:    "JSON5 job `FILE` with cameras, images and options",
					Required: true,
				},
				&cli.StringFlag{
					Name:     jobFlagOutput,
					Usage:    "output directory",
					Required: true,
				},
				&cli.StringFlag{
					Name:  jobFlagImagePath,
					Usage: "directory of the input images, overrides the job file",
				},
			),
			Action: UndistortAction,
		},
		{
			Name:      "rectify",
			Usage:     "undistort and rectify stereo pairs of a job",
			UsageText: "mvsprep rectify --job <job.json5> --output <dir> [--pair a.png,b.png ...] [options]",
			Flags: withOptionFlags(
				&cli.StringFlag{
					Name:     jobFlagJob,
					Usage:    "JSON5 job `FILE` with cameras, images and options",
					Required: true,
				},
				&cli.StringFlag{
					Name:     jobFlagOutput,
					Usage:    "output directory",
					Required: true,
				},
				&cli.StringFlag{
					Name:  jobFlagImagePath,
					Usage: "directory of the input images, overrides the job file",
				},
				&cli.StringSliceFlag{
					Name:  jobFlagPair,
					Usage: "image pair `NAME1,NAME2` to rectify, replaces the pairs of the job file",
				},
			),
			Action: RectifyAction,
		},
		{
			Name:      "camera",
			Usage:     "print the undistorted camera of a distorted one",
			UsageText: "mvsprep camera --model <model> --width <w> --height <h> --params <p1,p2,...> [options]",
			Flags: withOptionFlags(
				&cli.StringFlag{
					Name:     cameraFlagModel,
					Usage:    "camera model, e.g. simple_radial or opencv",
					Required: true,
				},
				&cli.StringFlag{
					Name:     cameraFlagParams,
					Usage:    "comma separated camera parameters",
					Required: true,
				},
				&cli.IntFlag{
					Name:     cameraFlagWidth,
					Required: true,
				},
				&cli.IntFlag{
					Name:     cameraFlagHeight,
					Required: true,
				},
			),
			Action: CameraAction,
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
