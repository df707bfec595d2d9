package undistorter

import (
	"context"
	"path"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/mvsprep/logging"
	"go.viam.com/mvsprep/reconstruction"
	"go.viam.com/mvsprep/rimage"
	"go.viam.com/mvsprep/rimage/transform"
	"go.viam.com/mvsprep/spatialmath"
	"go.viam.com/mvsprep/utils"
)

// QMatrixFile is the name of the disparity-to-depth matrix written next to each rectified pair.
const QMatrixFile = "Q.txt"

// StereoRectifier undistorts and rectifies image pairs of a scene. Each pair is written to the
// directory "<name1>-<name2>" as the two rectified images and the Q matrix.
type StereoRectifier struct {
	Scene   *reconstruction.Scene
	Pairs   []reconstruction.StereoPair
	Options transform.UndistortCameraOptions
	Source  ImageSource
	Sink    ImageSink
	// Workers bounds the number of pairs processed at once. Zero means GOMAXPROCS.
	Workers int
	Logger  logging.Logger
}

// Run rectifies every pair. Pairs with an unreadable image are logged and skipped; other failures
// are collected and returned after all pairs ran.
func (r *StereoRectifier) Run(ctx context.Context) error {
	if r.Scene == nil || r.Source == nil || r.Sink == nil || r.Logger == nil {
		return errors.New("stereo rectifier needs a scene, an image source, a sink and a logger")
	}
	if err := r.Options.Validate("options"); err != nil {
		return err
	}
	return runTasks(ctx, r.Logger, r.Workers, len(r.Pairs), "Rectifying image pair", func(ctx context.Context, i int) error {
		return r.rectify(ctx, r.Pairs[i])
	})
}

func (r *StereoRectifier) rectify(ctx context.Context, pair reconstruction.StereoPair) error {
	img1, ok1 := r.Scene.Image(pair.Image1)
	img2, ok2 := r.Scene.Image(pair.Image2)
	if !ok1 || !ok2 {
		return errors.Errorf("stereo pair (%d, %d) references an unknown image", pair.Image1, pair.Image2)
	}
	camera1, err := r.Scene.ImageCamera(img1)
	if err != nil {
		return err
	}
	camera2, err := r.Scene.ImageCamera(img2)
	if err != nil {
		return err
	}
	pairName := reconstruction.StereoPairName(img1.Name, img2.Name)
	defer utils.SlowLogger(ctx, "still rectifying image pair", "pair", pairName, r.Logger)()

	bitmaps := make([]*rimage.Bitmap, 2)
	for i, img := range []*reconstruction.Image{img1, img2} {
		bitmap, err := r.Source.ReadImage(ctx, img.Name)
		if err != nil {
			return skip("cannot read image " + img.Name + ": " + err.Error())
		}
		bitmaps[i] = bitmap
	}

	relative := spatialmath.ComputeRelativePose(img1.Pose, img2.Pose)
	rectified, err := transform.RectifyAndUndistortStereoImages(
		r.Options, bitmaps[0], bitmaps[1], camera1, camera2, relative)
	if err != nil {
		return errors.Wrapf(err, "cannot rectify pair %q", pairName)
	}

	if err := r.Sink.WriteImage(ctx, path.Join(pairName, reconstruction.FlatImageName(img1.Name)), rectified.Image1); err != nil {
		return err
	}
	if err := r.Sink.WriteImage(ctx, path.Join(pairName, reconstruction.FlatImageName(img2.Name)), rectified.Image2); err != nil {
		return err
	}
	return r.Sink.WriteFile(ctx, path.Join(pairName, QMatrixFile), []byte(FormatMatrix(rectified.Q)))
}

// FormatMatrix writes a matrix as text, one row per line with space separated values.
func FormatMatrix(m mat.Matrix) string {
	rows, cols := m.Dims()
	var sb strings.Builder
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if c > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(strconv.FormatFloat(m.At(r, c), 'g', -1, 64))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
