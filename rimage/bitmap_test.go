package rimage

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestNewBitmapLayouts(t *testing.T) {
	gray := NewBitmap(image.NewGray(image.Rect(2, 3, 6, 8)))
	test.That(t, gray.IsGray(), test.ShouldBeTrue)
	test.That(t, gray.Bounds(), test.ShouldResemble, image.Rect(0, 0, 4, 5))

	gray16 := NewBitmap(image.NewGray16(image.Rect(0, 0, 3, 2)))
	test.That(t, gray16.NumChannels(), test.ShouldEqual, 1)
	_, ok := gray16.Image().(*image.Gray16)
	test.That(t, ok, test.ShouldBeTrue)

	rgba := NewBitmap(image.NewRGBA(image.Rect(1, 1, 4, 3)))
	test.That(t, rgba.NumChannels(), test.ShouldEqual, 4)
	test.That(t, rgba.Width(), test.ShouldEqual, 3)
	test.That(t, rgba.Height(), test.ShouldEqual, 2)
	_, ok = rgba.Image().(*image.NRGBA)
	test.That(t, ok, test.ShouldBeTrue)

	rgba.Metadata["Model"] = "x1"
	like := NewBitmapLike(rgba, 10, 20)
	test.That(t, like.Width(), test.ShouldEqual, 10)
	test.That(t, like.Height(), test.ShouldEqual, 20)
	test.That(t, like.NumChannels(), test.ShouldEqual, 4)
	like.Metadata["Model"] = "x2"
	test.That(t, rgba.Metadata["Model"], test.ShouldEqual, "x1")
}

func TestBitmapGetSet(t *testing.T) {
	gray16 := NewBitmap(image.NewGray16(image.Rect(0, 0, 2, 2)))
	gray16.Set(1, 0, []float64{1000.4})
	buf := make([]float64, 1)
	gray16.Get(1, 0, buf)
	test.That(t, buf[0], test.ShouldEqual, 1000.)
	gray16.Set(0, 1, []float64{1e9})
	gray16.Get(0, 1, buf)
	test.That(t, buf[0], test.ShouldEqual, 65535.)

	gray := NewBitmap(image.NewGray(image.Rect(0, 0, 2, 2)))
	gray.Set(0, 0, []float64{-5})
	gray.Get(0, 0, buf)
	test.That(t, buf[0], test.ShouldEqual, 0.)
	gray.Set(1, 1, []float64{254.6})
	test.That(t, gray.At(1, 1), test.ShouldResemble, color.Gray{Y: 255})

	rgba := NewBitmap(image.NewNRGBA(image.Rect(0, 0, 2, 2)))
	rgba.Set(1, 1, []float64{1, 2, 3, 4})
	out := make([]float64, 4)
	rgba.Get(1, 1, out)
	test.That(t, out, test.ShouldResemble, []float64{1, 2, 3, 4})
}

func TestBitmapReadWrite(t *testing.T) {
	dir := t.TempDir()
	src := increasingGray(8, 6)

	path := filepath.Join(dir, "gray.png")
	test.That(t, WriteBitmap(path, src), test.ShouldBeNil)
	read, err := ReadBitmap(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, read.IsGray(), test.ShouldBeTrue)
	test.That(t, read.Bounds(), test.ShouldResemble, src.Bounds())
	test.That(t, read.At(5, 3), test.ShouldResemble, src.At(5, 3))
	test.That(t, read.Metadata, test.ShouldBeEmpty)

	_, err = ReadBitmap(filepath.Join(dir, "missing.png"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, WriteBitmap(filepath.Join(dir, "bad.unknown"), src), test.ShouldNotBeNil)
}
