package rimage

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/mvsprep/utils"
)

// WarpConnector connects a source raster with a destination raster for Warp. Get reads source
// pixels, Set writes destination pixels, both with NumFields values per pixel.
type WarpConnector interface {
	Get(x, y int, buf []float64)
	Set(x, y int, data []float64)
	InputDims() (int, int)
	OutputDims() (int, int)
	NumFields() int
}

// BitmapWarpConnector warps one Bitmap into another of the same channel layout.
type BitmapWarpConnector struct {
	In  *Bitmap
	Out *Bitmap
}

// Get reads a source pixel.
func (w *BitmapWarpConnector) Get(x, y int, buf []float64) {
	w.In.Get(x, y, buf)
}

// Set writes a destination pixel.
func (w *BitmapWarpConnector) Set(x, y int, data []float64) {
	w.Out.Set(x, y, data)
}

// InputDims returns the size of the source.
func (w *BitmapWarpConnector) InputDims() (int, int) {
	return w.In.Width(), w.In.Height()
}

// OutputDims returns the size of the destination.
func (w *BitmapWarpConnector) OutputDims() (int, int) {
	return w.Out.Width(), w.Out.Height()
}

// NumFields returns the number of channels.
func (w *BitmapWarpConnector) NumFields() int {
	return w.In.NumChannels()
}

// Warp fills every destination pixel by sampling the source at mapping(center), where center is the
// destination pixel center (x+0.5, y+0.5) and mapping returns a source position in the same pixel
// center convention. Samples are bilinear; positions outside the source are set to zero.
// Pixel blocks are processed in parallel, so mapping must be safe for concurrent use.
func Warp(conn WarpConnector, mapping func(pt r2.Point) r2.Point) {
	width, height := conn.OutputDims()
	inWidth, inHeight := conn.InputDims()
	numFields := conn.NumFields()
	utils.ParallelForEachBlock(image.Point{width, height}, func(block image.Rectangle) {
		sampler := newBilinearSampler(conn, inWidth, inHeight, numFields)
		for y := block.Min.Y; y < block.Max.Y; y++ {
			for x := block.Min.X; x < block.Max.X; x++ {
				src := mapping(r2.Point{X: float64(x) + 0.5, Y: float64(y) + 0.5})
				if !sampler.sample(src.X-0.5, src.Y-0.5) {
					clear(sampler.out)
				}
				conn.Set(x, y, sampler.out)
			}
		}
	})
}

// sampleTolerance absorbs round-off of positions that map exactly onto the outermost pixels.
const sampleTolerance = 1e-6

// bilinearSampler reads source pixels through a WarpConnector into reusable buffers. It is not safe
// for concurrent use.
type bilinearSampler struct {
	conn               WarpConnector
	width, height      int
	out                []float64
	p00, p10, p01, p11 []float64
}

func newBilinearSampler(conn WarpConnector, width, height, numFields int) *bilinearSampler {
	return &bilinearSampler{
		conn:   conn,
		width:  width,
		height: height,
		out:    make([]float64, numFields),
		p00:    make([]float64, numFields),
		p10:    make([]float64, numFields),
		p01:    make([]float64, numFields),
		p11:    make([]float64, numFields),
	}
}

// sample interpolates the source at integer-grid coordinates (sx, sy) into s.out. It reports false
// when the position is outside [0, w-1] x [0, h-1] or not finite.
func (s *bilinearSampler) sample(sx, sy float64) bool {
	maxX, maxY := float64(s.width-1), float64(s.height-1)
	if math.IsNaN(sx) || math.IsNaN(sy) ||
		sx < -sampleTolerance || sy < -sampleTolerance || sx > maxX+sampleTolerance || sy > maxY+sampleTolerance {
		return false
	}
	sx = utils.Clip(sx, 0, maxX)
	sy = utils.Clip(sy, 0, maxY)
	x0, y0 := int(sx), int(sy)
	x1, y1 := utils.MinInt(x0+1, s.width-1), utils.MinInt(y0+1, s.height-1)
	dx, dy := sx-float64(x0), sy-float64(y0)

	s.conn.Get(x0, y0, s.p00)
	s.conn.Get(x1, y0, s.p10)
	s.conn.Get(x0, y1, s.p01)
	s.conn.Get(x1, y1, s.p11)
	for i := range s.out {
		top := s.p00[i]*(1-dx) + s.p10[i]*dx
		bottom := s.p01[i]*(1-dx) + s.p11[i]*dx
		s.out[i] = top*(1-dy) + bottom*dy
	}
	return true
}

// CameraProjection is the part of a camera model the warps need: the image size and the mapping
// between image points and normalized camera coordinates.
type CameraProjection interface {
	Width() int
	Height() int
	ImageToWorld(pt r2.Point) r2.Point
	WorldToImage(pt r2.Point) r2.Point
}

func checkSourceSize(source CameraProjection, bitmap *Bitmap) error {
	if bitmap == nil {
		return errors.New("input bitmap is nil")
	}
	if source.Width() != bitmap.Width() || source.Height() != bitmap.Height() {
		return errors.Errorf("bitmap dimension and camera don't match Bitmap(%d,%d) != Camera(%d,%d)",
			bitmap.Width(), bitmap.Height(), source.Width(), source.Height())
	}
	return nil
}

// WarpImageBetweenCameras resamples a bitmap taken by source into the image plane of target,
// mapping each target pixel through target.ImageToWorld and source.WorldToImage.
func WarpImageBetweenCameras(source, target CameraProjection, bitmap *Bitmap) (*Bitmap, error) {
	if err := checkSourceSize(source, bitmap); err != nil {
		return nil, err
	}
	out := NewBitmapLike(bitmap, target.Width(), target.Height())
	Warp(&BitmapWarpConnector{In: bitmap, Out: out}, func(pt r2.Point) r2.Point {
		return source.WorldToImage(target.ImageToWorld(pt))
	})
	return out, nil
}

// WarpImageWithHomographyBetweenCameras is like WarpImageBetweenCameras, but first maps each target
// pixel through the 3x3 homography h before back-projecting it with target.
func WarpImageWithHomographyBetweenCameras(
	h mat.Matrix, source, target CameraProjection, bitmap *Bitmap,
) (*Bitmap, error) {
	if r, c := h.Dims(); r != 3 || c != 3 {
		return nil, errors.Errorf("homography must be 3x3, got %dx%d", r, c)
	}
	if err := checkSourceSize(source, bitmap); err != nil {
		return nil, err
	}
	var hm [9]float64
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			hm[3*r+c] = h.At(r, c)
		}
	}
	out := NewBitmapLike(bitmap, target.Width(), target.Height())
	Warp(&BitmapWarpConnector{In: bitmap, Out: out}, func(pt r2.Point) r2.Point {
		x := hm[0]*pt.X + hm[1]*pt.Y + hm[2]
		y := hm[3]*pt.X + hm[4]*pt.Y + hm[5]
		z := hm[6]*pt.X + hm[7]*pt.Y + hm[8]
		return source.WorldToImage(target.ImageToWorld(r2.Point{X: x / z, Y: y / z}))
	})
	return out, nil
}
