package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/mvsprep/rimage"
	"go.viam.com/mvsprep/utils"
)

// validDomain is the region around the principal point in which a camera's back-projection was
// found to be monotonic and inside the configured field of view.
type validDomain struct {
	origin   r2.Point
	radius   float64
	fovHalf  float64
	hFOVHalf float64
	vFOVHalf float64
}

// probe clips the ray from the domain origin towards target to the valid domain.
func (d validDomain) probe(camera *Camera, target r2.Point) r2.Point {
	return SelectPointOnRay(camera, d.origin, target, d.radius, d.fovHalf, d.hFOVHalf, d.vFOVHalf)
}

func imageCorners(width, height float64) [4]r2.Point {
	return [4]r2.Point{{X: 0, Y: 0}, {X: width, Y: 0}, {X: width, Y: height}, {X: 0, Y: height}}
}

// findValidDomain marches pixel by pixel from the principal point towards the farthest image corner
// and stops at the first step where the back-projected angle stops increasing or exceeds half of
// maxFOV. Cameras without a principal point keep the full diagonal and maxFOV/2.
func findValidDomain(camera *Camera, maxFOV, maxHFOV, maxVFOV float64) validDomain {
	w, h := float64(camera.Width()), float64(camera.Height())
	domain := validDomain{
		radius:   math.Hypot(w, h),
		fovHalf:  maxFOV / 2,
		hFOVHalf: maxHFOV / 2,
		vFOVHalf: maxVFOV / 2,
	}
	if !camera.HasPrincipalPoint() {
		return domain
	}
	domain.origin = camera.PrincipalPoint()

	maxRadius := 0.
	var cornerDir r2.Point
	for _, corner := range imageCorners(w, h) {
		diff := corner.Sub(domain.origin)
		if norm := diff.Norm(); norm > maxRadius {
			maxRadius = norm
			cornerDir = diff.Normalize()
		}
	}

	reached := 0.
	for i := 1; float64(i) < maxRadius; i++ {
		world := camera.ImageToWorld(domain.origin.Add(cornerDir.Mul(float64(i))))
		phi := math.Atan(world.Norm())
		if !(phi > reached) || 2*phi > maxFOV {
			break
		}
		reached = phi
		domain.fovHalf = phi
		domain.radius = float64(i)
	}
	return domain
}

// focalLengthFromFOV picks the largest focal length among the candidates bounding the diagonal,
// corner to corner, horizontal and vertical fields of view.
func focalLengthFromFOV(camera *Camera, domain validDomain, maxHFOV, maxVFOV float64) float64 {
	w, h := float64(camera.Width()), float64(camera.Height())
	diag := math.Hypot(w, h)
	angle := func(pt r2.Point) float64 {
		return math.Atan(camera.ImageToWorld(pt).Norm())
	}
	focal := 0.
	consider := func(candidate float64) {
		if candidate > focal && !math.IsInf(candidate, 0) && !math.IsNaN(candidate) {
			focal = candidate
		}
	}

	consider(diag / 2 / math.Tan(domain.fovHalf))
	corners := imageCorners(w, h)
	for i := 0; i < 2; i++ {
		fov := angle(domain.probe(camera, corners[i])) + angle(domain.probe(camera, corners[i+2]))
		consider(diag / 2 / math.Tan(fov/2))
	}

	pp := domain.origin
	left := domain.probe(camera, r2.Point{X: 0, Y: pp.Y})
	right := domain.probe(camera, r2.Point{X: w, Y: pp.Y})
	hFOV := math.Atan(math.Abs(camera.ImageToWorld(left).X)) + math.Atan(math.Abs(camera.ImageToWorld(right).X))
	consider(w / 2 / math.Tan(math.Min(maxHFOV, hFOV)/2))

	top := domain.probe(camera, r2.Point{X: pp.X, Y: 0})
	bottom := domain.probe(camera, r2.Point{X: pp.X, Y: h})
	vFOV := math.Atan(math.Abs(camera.ImageToWorld(top).Y)) + math.Atan(math.Abs(camera.ImageToWorld(bottom).Y))
	consider(h / 2 / math.Tan(math.Min(maxVFOV, vFOV)/2))

	if focal == 0 {
		return camera.FocalLength()
	}
	return focal
}

type borderExtent struct {
	min, max float64
}

func newBorderExtent() borderExtent {
	return borderExtent{min: math.MaxFloat64, max: -math.MaxFloat64}
}

func (e *borderExtent) add(v float64) {
	e.min = math.Min(e.min, v)
	e.max = math.Max(e.max, v)
}

// scaleToAvoidBlankPixels resizes the undistorted camera so that its border lands between the
// "keep every source pixel" and the "no blank output pixel" extents, as chosen by blankPixels.
func scaleToAvoidBlankPixels(
	opts UndistortCameraOptions, distorted, undistorted *Camera, domain validDomain,
) *Camera {
	w, h := float64(distorted.Width()), float64(distorted.Height())
	project := func(target r2.Point) r2.Point {
		return undistorted.WorldToImage(distorted.ImageToWorld(domain.probe(distorted, target)))
	}

	left, right := newBorderExtent(), newBorderExtent()
	for y := 0; y < distorted.Height(); y++ {
		left.add(project(r2.Point{X: 0.5, Y: float64(y) + 0.5}).X)
		right.add(project(r2.Point{X: w - 0.5, Y: float64(y) + 0.5}).X)
	}
	top, bottom := newBorderExtent(), newBorderExtent()
	for x := 0; x < distorted.Width(); x++ {
		top.add(project(r2.Point{X: float64(x) + 0.5, Y: 0.5}).Y)
		bottom.add(project(r2.Point{X: float64(x) + 0.5, Y: h - 0.5}).Y)
	}

	pp := undistorted.PrincipalPoint()
	cx, cy := pp.X, pp.Y

	// keeps every source pixel
	minScaleX := math.Min(cx/(cx-left.min), (w-0.5-cx)/(right.max-cx))
	minScaleY := math.Min(cy/(cy-top.min), (h-0.5-cy)/(bottom.max-cy))
	// leaves no blank output pixel
	maxScaleX := math.Max(cx/(cx-left.max), (w-0.5-cx)/(right.min-cx))
	maxScaleY := math.Max(cy/(cy-top.max), (h-0.5-cy)/(bottom.min-cy))

	scaleX := 1 / (minScaleX*opts.BlankPixels + maxScaleX*(1-opts.BlankPixels))
	scaleY := 1 / (minScaleY*opts.BlankPixels + maxScaleY*(1-opts.BlankPixels))
	scaleX = utils.Clip(scaleX, opts.MinScale, opts.MaxScale)
	scaleY = utils.Clip(scaleY, opts.MinScale, opts.MaxScale)

	newWidth := int(math.Max(1, scaleX*w))
	newHeight := int(math.Max(1, scaleY*h))
	return undistorted.
		WithSize(newWidth, newHeight).
		WithPrincipalPoint(r2.Point{X: cx * float64(newWidth) / w, Y: cy * float64(newHeight) / h})
}

// UndistortCamera synthesizes a distortion free pinhole camera for a distorted one. It chooses the
// focal length (copied, or estimated from the valid field of view), keeps the principal point,
// rescales the image so the undistorted border trades blank pixels against lost pixels as
// configured, and finally caps the image size. Invalid options and cameras with more than two
// focal length parameters are rejected before any computation.
func UndistortCamera(opts UndistortCameraOptions, camera *Camera) (*Camera, error) {
	if err := opts.Validate("undistort_camera_options"); err != nil {
		return nil, err
	}
	if err := camera.CheckValid(); err != nil {
		return nil, err
	}

	if opts.CameraModelOverride != "" {
		override, err := NewCameraFromString(
			CameraModelType(opts.CameraModelOverride), camera.Width(), camera.Height(), opts.CameraModelOverrideParams)
		if err != nil {
			return nil, errors.Wrap(ErrInvalidOptions, err.Error())
		}
		if err := override.CheckValid(); err != nil {
			return nil, errors.Wrap(ErrInvalidOptions, err.Error())
		}
		return override, nil
	}

	if n := len(camera.Model().FocalLengthIdxs); !opts.EstimateFocalLengthFromFOV && n > 2 {
		return nil, errors.Wrapf(ErrInvalidOptions,
			"camera model %q has %d focal length parameters, at most two are supported", camera.ModelType(), n)
	}

	maxFOV := utils.DegToRad(opts.MaxFOV)
	maxHFOV := utils.DegToRad(opts.MaxHorizontalFOV)
	maxVFOV := utils.DegToRad(opts.MaxVerticalFOV)
	domain := findValidDomain(camera, maxFOV, maxHFOV, maxVFOV)

	fx, fy := camera.FocalLengthX(), camera.FocalLengthY()
	if opts.EstimateFocalLengthFromFOV {
		fx = focalLengthFromFOV(camera, domain, maxHFOV, maxVFOV)
		fy = fx
	}

	pp := camera.PrincipalPoint()
	if !camera.HasPrincipalPoint() {
		pp = r2.Point{X: float64(camera.Width()) / 2, Y: float64(camera.Height()) / 2}
	}

	undistorted, err := NewCamera(PinholeModel, camera.Width(), camera.Height(), []float64{fx, fy, pp.X, pp.Y})
	if err != nil {
		return nil, err
	}

	if !camera.IsPinhole() {
		undistorted = scaleToAvoidBlankPixels(opts, camera, undistorted, domain)
	}

	if opts.MaxImageSize > 0 {
		maxSize := float64(opts.MaxImageSize)
		scale := math.Min(maxSize/float64(undistorted.Width()), maxSize/float64(undistorted.Height()))
		if scale < 1 {
			undistorted = undistorted.Rescale(scale)
		}
	}
	return undistorted, nil
}

// UndistortImage undistorts a bitmap taken by camera and returns it with the undistorted camera. The
// bitmap must have the camera's dimensions. The output keeps the bitmap's channel layout and
// metadata; pixels with no source are black.
func UndistortImage(
	opts UndistortCameraOptions, bitmap *rimage.Bitmap, camera *Camera,
) (*rimage.Bitmap, *Camera, error) {
	if bitmap == nil {
		return nil, nil, errors.New("input bitmap is nil")
	}
	if camera == nil {
		return nil, nil, NewNoIntrinsicsError("camera does not exist")
	}
	if camera.Width() != bitmap.Width() || camera.Height() != bitmap.Height() {
		return nil, nil, errors.Errorf("bitmap dimension and camera don't match Bitmap(%d,%d) != Camera(%d,%d)",
			bitmap.Width(), bitmap.Height(), camera.Width(), camera.Height())
	}
	undistorted, err := UndistortCamera(opts, camera)
	if err != nil {
		return nil, nil, err
	}
	out, err := rimage.WarpImageBetweenCameras(camera, undistorted, bitmap)
	if err != nil {
		return nil, nil, err
	}
	return out, undistorted, nil
}
