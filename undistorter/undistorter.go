// Package undistorter undistorts the images of a reconstruction and rectifies stereo pairs in
// parallel, reading inputs from an ImageSource and writing results to an ImageSink.
package undistorter

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"go.viam.com/mvsprep/logging"
	"go.viam.com/mvsprep/reconstruction"
	"go.viam.com/mvsprep/rimage/transform"
	"go.viam.com/mvsprep/utils"
)

// Undistorter writes an undistorted copy of every registered image of a scene.
type Undistorter struct {
	Scene   *reconstruction.Scene
	Options transform.UndistortCameraOptions
	Source  ImageSource
	Sink    ImageSink
	// Workers bounds the number of images processed at once. Zero means GOMAXPROCS.
	Workers int
	Logger  logging.Logger
}

func (u *Undistorter) validate() error {
	if u.Scene == nil {
		return errors.New("undistorter needs a scene")
	}
	if u.Source == nil || u.Sink == nil {
		return errors.New("undistorter needs an image source and sink")
	}
	if u.Logger == nil {
		return errors.New("undistorter needs a logger")
	}
	return u.Options.Validate("options")
}

// Run undistorts all registered images and returns the undistorted scene. Unreadable images are
// logged and skipped. Failures of individual images do not stop the others; they are returned
// together with the scene.
func (u *Undistorter) Run(ctx context.Context) (*reconstruction.Scene, error) {
	if err := u.validate(); err != nil {
		return nil, err
	}
	undistorted, err := reconstruction.UndistortReconstruction(u.Options, u.Scene)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	ids := u.Scene.RegImageIDs()
	err = runTasks(ctx, u.Logger, u.Workers, len(ids), "Undistorting image", func(ctx context.Context, i int) error {
		return u.undistort(ctx, ids[i])
	})
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	u.Logger.Infow("undistortion finished", "images", len(ids), "elapsed", time.Since(start).String())
	return undistorted, err
}

func (u *Undistorter) undistort(ctx context.Context, id reconstruction.ImageID) error {
	img, ok := u.Scene.Image(id)
	if !ok {
		return errors.Errorf("unknown image %d", id)
	}
	camera, err := u.Scene.ImageCamera(img)
	if err != nil {
		return err
	}
	defer utils.SlowLogger(ctx, "still undistorting image", "image", img.Name, u.Logger)()

	distorted, err := u.Source.ReadImage(ctx, img.Name)
	if err != nil {
		return skip("cannot read image " + img.Name + ": " + err.Error())
	}
	bitmap, _, err := transform.UndistortImage(u.Options, distorted, camera)
	if err != nil {
		return errors.Wrapf(err, "cannot undistort image %q", img.Name)
	}
	return u.Sink.WriteImage(ctx, img.Name, bitmap)
}
