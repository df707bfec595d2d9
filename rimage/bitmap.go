package rimage

import (
	"image"
	"image/color"
	"math"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/rwcarlsen/goexif/exif"
	"go.viam.com/utils"

	// register the webp decoder, imaging already pulls in tiff and bmp.
	_ "golang.org/x/image/webp"
)

// Bitmap is a raster with its channel layout pinned to one of 8 bit gray, 16 bit gray or 8 bit
// NRGBA, plus free form metadata (e.g. EXIF fields read from the source file).
type Bitmap struct {
	img      image.Image
	Metadata map[string]string
}

// NewBitmap wraps an image. Gray and 16 bit gray images keep their layout, anything else is
// converted to NRGBA. The bitmap's origin is always (0, 0).
func NewBitmap(img image.Image) *Bitmap {
	var out image.Image
	switch typed := img.(type) {
	case *image.Gray:
		if typed.Bounds().Min == (image.Point{}) {
			out = typed
		} else {
			gray := image.NewGray(image.Rect(0, 0, typed.Bounds().Dx(), typed.Bounds().Dy()))
			for y := 0; y < gray.Rect.Dy(); y++ {
				for x := 0; x < gray.Rect.Dx(); x++ {
					gray.SetGray(x, y, typed.GrayAt(x+typed.Rect.Min.X, y+typed.Rect.Min.Y))
				}
			}
			out = gray
		}
	case *image.Gray16:
		gray := image.NewGray16(image.Rect(0, 0, typed.Bounds().Dx(), typed.Bounds().Dy()))
		for y := 0; y < gray.Rect.Dy(); y++ {
			for x := 0; x < gray.Rect.Dx(); x++ {
				gray.SetGray16(x, y, typed.Gray16At(x+typed.Rect.Min.X, y+typed.Rect.Min.Y))
			}
		}
		out = gray
	default:
		out = imaging.Clone(img)
	}
	return &Bitmap{img: out, Metadata: map[string]string{}}
}

// NewBitmapLike allocates a zero filled bitmap of the given size with the same channel layout and
// a copy of the metadata of src.
func NewBitmapLike(src *Bitmap, width, height int) *Bitmap {
	rect := image.Rect(0, 0, width, height)
	var img image.Image
	switch src.img.(type) {
	case *image.Gray:
		img = image.NewGray(rect)
	case *image.Gray16:
		img = image.NewGray16(rect)
	default:
		img = image.NewNRGBA(rect)
	}
	meta := make(map[string]string, len(src.Metadata))
	for k, v := range src.Metadata {
		meta[k] = v
	}
	return &Bitmap{img: img, Metadata: meta}
}

// Image returns the underlying raster.
func (b *Bitmap) Image() image.Image {
	return b.img
}

// Width returns the horizontal size of the bitmap.
func (b *Bitmap) Width() int {
	return b.img.Bounds().Dx()
}

// Height returns the vertical size of the bitmap.
func (b *Bitmap) Height() int {
	return b.img.Bounds().Dy()
}

// Bounds returns the rectangle of the bitmap.
func (b *Bitmap) Bounds() image.Rectangle {
	return b.img.Bounds()
}

// IsGray reports whether the bitmap has a single channel.
func (b *Bitmap) IsGray() bool {
	return b.NumChannels() == 1
}

// NumChannels is 1 for gray bitmaps and 4 for NRGBA ones.
func (b *Bitmap) NumChannels() int {
	switch b.img.(type) {
	case *image.Gray, *image.Gray16:
		return 1
	default:
		return 4
	}
}

// Get reads the channel values of a pixel into buf, which must hold NumChannels values.
func (b *Bitmap) Get(x, y int, buf []float64) {
	switch img := b.img.(type) {
	case *image.Gray:
		buf[0] = float64(img.Pix[img.PixOffset(x, y)])
	case *image.Gray16:
		i := img.PixOffset(x, y)
		buf[0] = float64(uint16(img.Pix[i])<<8 | uint16(img.Pix[i+1]))
	case *image.NRGBA:
		i := img.PixOffset(x, y)
		for c := 0; c < 4; c++ {
			buf[c] = float64(img.Pix[i+c])
		}
	}
}

// Set writes the channel values of a pixel, rounding and saturating them to the channel depth.
func (b *Bitmap) Set(x, y int, data []float64) {
	switch img := b.img.(type) {
	case *image.Gray:
		img.Pix[img.PixOffset(x, y)] = saturate8(data[0])
	case *image.Gray16:
		v := saturate16(data[0])
		i := img.PixOffset(x, y)
		img.Pix[i] = uint8(v >> 8)
		img.Pix[i+1] = uint8(v)
	case *image.NRGBA:
		i := img.PixOffset(x, y)
		for c := 0; c < 4; c++ {
			img.Pix[i+c] = saturate8(data[c])
		}
	}
}

// At returns the color of a pixel.
func (b *Bitmap) At(x, y int) color.Color {
	return b.img.At(x, y)
}

func saturate8(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(255, v))))
}

func saturate16(v float64) uint16 {
	return uint16(math.Round(math.Max(0, math.Min(65535, v))))
}

// exifFields are the EXIF tags carried over into a bitmap's metadata when present.
var exifFields = []exif.FieldName{
	exif.Make,
	exif.Model,
	exif.FocalLength,
	exif.FocalLengthIn35mmFilm,
	exif.FocalPlaneXResolution,
	exif.FocalPlaneYResolution,
	exif.DateTimeOriginal,
}

// ReadBitmap loads an image file, keeping 8 and 16 bit gray layouts, and records its EXIF camera
// fields as metadata. Files without EXIF data are not an error.
func ReadBitmap(path string) (*Bitmap, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read image %q", path)
	}
	bitmap := NewBitmap(img)
	for k, v := range readExifMetadata(path) {
		bitmap.Metadata[k] = v
	}
	return bitmap, nil
}

func readExifMetadata(path string) map[string]string {
	meta := map[string]string{}
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return meta
	}
	defer utils.UncheckedErrorFunc(f.Close)

	ex, err := exif.Decode(f)
	if err != nil {
		return meta
	}
	for _, field := range exifFields {
		tag, err := ex.Get(field)
		if err != nil {
			continue
		}
		meta[string(field)] = strings.Trim(tag.String(), `"`)
	}
	return meta
}

// WriteBitmap saves a bitmap, choosing the format from the file extension.
func WriteBitmap(path string, bitmap *Bitmap) error {
	if err := imaging.Save(bitmap.img, path); err != nil {
		return errors.Wrapf(err, "cannot write image %q", path)
	}
	return nil
}
