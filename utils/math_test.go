package utils

import (
	"image"
	"math"
	"sync"
	"testing"

	"go.viam.com/test"
)

func TestAngleConversion(t *testing.T) {
	test.That(t, DegToRad(180), test.ShouldAlmostEqual, math.Pi)
	test.That(t, DegToRad(90), test.ShouldAlmostEqual, math.Pi/2)
	test.That(t, RadToDeg(math.Pi), test.ShouldAlmostEqual, 180)
	test.That(t, RadToDeg(DegToRad(37.5)), test.ShouldAlmostEqual, 37.5)
}

func TestClip(t *testing.T) {
	test.That(t, Clip(0.5, 0, 1), test.ShouldEqual, 0.5)
	test.That(t, Clip(-3, 0, 1), test.ShouldEqual, 0)
	test.That(t, Clip(3, 0, 1), test.ShouldEqual, 1)
	test.That(t, Clip(math.Inf(1), 0.2, 2), test.ShouldEqual, 2)
	test.That(t, Clip(math.Inf(-1), 0.2, 2), test.ShouldEqual, 0.2)
	test.That(t, Clip(math.NaN(), 0.2, 2), test.ShouldEqual, 0.2)
}

func TestMinMaxInt(t *testing.T) {
	test.That(t, MaxInt(3, 7), test.ShouldEqual, 7)
	test.That(t, MaxInt(7, 3), test.ShouldEqual, 7)
	test.That(t, MinInt(3, 7), test.ShouldEqual, 3)
	test.That(t, MinInt(-1, -4), test.ShouldEqual, -4)
	test.That(t, Float64AlmostEqual(1, 1.0001, 1e-3), test.ShouldBeTrue)
	test.That(t, Float64AlmostEqual(1, 1.1, 1e-3), test.ShouldBeFalse)
}

func TestParallelForEachBlock(t *testing.T) {
	for _, size := range []image.Point{{1, 1}, {3, 2}, {64, 48}, {101, 7}} {
		var mu sync.Mutex
		seen := map[image.Point]int{}
		ParallelForEachBlock(size, func(block image.Rectangle) {
			for y := block.Min.Y; y < block.Max.Y; y++ {
				for x := block.Min.X; x < block.Max.X; x++ {
					mu.Lock()
					seen[image.Point{x, y}]++
					mu.Unlock()
				}
			}
		})
		test.That(t, len(seen), test.ShouldEqual, size.X*size.Y)
		for _, count := range seen {
			test.That(t, count, test.ShouldEqual, 1)
		}
	}
}
