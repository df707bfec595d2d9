package utils

import (
	"image"
	"math"
	"runtime"
	"sync"

	"go.viam.com/utils"
)

// ParallelFactor controls the max level of parallelization. This might be useful
// to set in tests where too much parallelism actually slows tests down in
// aggregate.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
}

// ParallelForEachBlock divides an image of the given size into N * N blocks, where N is
// ParallelFactor, and calls f for each block in its own goroutine. Blocks cover every pixel exactly
// once; some are empty when the image is smaller than N. f may keep per block scratch state.
func ParallelForEachBlock(size image.Point, f func(block image.Rectangle)) {
	procs := ParallelFactor
	blockW := int(math.Floor(float64(size.X) / float64(procs)))
	blockH := int(math.Floor(float64(size.Y) / float64(procs)))

	var waitGroup sync.WaitGroup
	waitGroup.Add(procs * procs)
	for i := 0; i < procs; i++ {
		startX := i * blockW
		endX := size.X
		if i < procs-1 {
			endX = (i + 1) * blockW
		}
		for j := 0; j < procs; j++ {
			startY := j * blockH
			endY := size.Y
			if j < procs-1 {
				endY = (j + 1) * blockH
			}
			block := image.Rect(startX, startY, endX, endY)
			utils.PanicCapturingGo(func() {
				defer waitGroup.Done()
				f(block)
			})
		}
	}
	waitGroup.Wait()
}
