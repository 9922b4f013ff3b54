package kernels

import (
	"math"

	"github.com/emergingrobotics/go-refnn/pkg/descriptor"
)

// PooledSize returns the output extent of a pooling window sliding over
// an axis of the given size.
func PooledSize(size, padA, padB, window, stride int, rounding descriptor.OutputShapeRounding) int {
	span := size + padA + padB - window
	if span < 0 || stride <= 0 {
		return 0
	}
	if rounding == descriptor.RoundingCeiling {
		return (span+stride-1)/stride + 1
	}
	return span/stride + 1
}

// Pooling2d reduces every window of the input to a single output element
func Pooling2d(in, out []float32, p descriptor.Pooling2d, inDims, outDims Dims4) {
	for n := 0; n < outDims.Batch; n++ {
		for c := 0; c < outDims.Channels; c++ {
			for oy := 0; oy < outDims.Height; oy++ {
				for ox := 0; ox < outDims.Width; ox++ {
					hStart := oy*p.StrideY - p.PadTop
					wStart := ox*p.StrideX - p.PadLeft
					hEnd := min(hStart+p.PoolHeight, inDims.Height+p.PadBottom)
					wEnd := min(wStart+p.PoolWidth, inDims.Width+p.PadRight)
					poolSize := (hEnd - hStart) * (wEnd - wStart)

					hStart, wStart = max(hStart, 0), max(wStart, 0)
					hEnd, wEnd = min(hEnd, inDims.Height), min(wEnd, inDims.Width)
					if p.PaddingMethod == descriptor.PaddingExclude {
						poolSize = (hEnd - hStart) * (wEnd - wStart)
					}

					out[outDims.offset(n, c, oy, ox)] = reduceWindow(in, p.PoolType, inDims, n, c, hStart, hEnd, wStart, wEnd, poolSize)
				}
			}
		}
	}
}

func reduceWindow(in []float32, kind descriptor.PoolingAlgorithm, d Dims4, n, c, hStart, hEnd, wStart, wEnd, poolSize int) float32 {
	if hEnd <= hStart || wEnd <= wStart || poolSize <= 0 {
		return 0
	}

	switch kind {
	case descriptor.PoolingMax:
		acc := float32(math.Inf(-1))
		for y := hStart; y < hEnd; y++ {
			for x := wStart; x < wEnd; x++ {
				if v := in[d.offset(n, c, y, x)]; v > acc {
					acc = v
				}
			}
		}
		return acc
	case descriptor.PoolingL2:
		var acc float64
		for y := hStart; y < hEnd; y++ {
			for x := wStart; x < wEnd; x++ {
				v := float64(in[d.offset(n, c, y, x)])
				acc += v * v
			}
		}
		return float32(math.Sqrt(acc / float64(poolSize)))
	default:
		var acc float32
		for y := hStart; y < hEnd; y++ {
			for x := wStart; x < wEnd; x++ {
				acc += in[d.offset(n, c, y, x)]
			}
		}
		return acc / float32(poolSize)
	}
}
