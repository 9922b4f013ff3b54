package kernels

import "github.com/emergingrobotics/go-refnn/pkg/tensor"

// Conv2dShape describes the geometry of a 2D convolution
type Conv2dShape struct {
	Layout tensor.DataLayout

	Batch       int
	InChannels  int
	InHeight    int
	InWidth     int
	OutChannels int
	OutHeight   int
	OutWidth    int

	KernelHeight int
	KernelWidth  int

	PadTop  int
	PadLeft int
	StrideY int
	StrideX int
}

// Convolution2d computes a dense 2D convolution. Weights are [O,I,H,W] in
// both layouts. bias may be nil.
func Convolution2d(in, weights, bias, out []float32, s Conv2dShape) {
	for n := 0; n < s.Batch; n++ {
		for o := 0; o < s.OutChannels; o++ {
			for oy := 0; oy < s.OutHeight; oy++ {
				for ox := 0; ox < s.OutWidth; ox++ {
					var sum float32
					if bias != nil {
						sum = bias[o]
					}
					for i := 0; i < s.InChannels; i++ {
						for ky := 0; ky < s.KernelHeight; ky++ {
							iy := oy*s.StrideY + ky - s.PadTop
							if iy < 0 || iy >= s.InHeight {
								continue
							}
							for kx := 0; kx < s.KernelWidth; kx++ {
								ix := ox*s.StrideX + kx - s.PadLeft
								if ix < 0 || ix >= s.InWidth {
									continue
								}
								v := in[s.Layout.Offset(n, i, iy, ix, s.InChannels, s.InHeight, s.InWidth)]
								sum += v * weights[((o*s.InChannels+i)*s.KernelHeight+ky)*s.KernelWidth+kx]
							}
						}
					}
					out[s.Layout.Offset(n, o, oy, ox, s.OutChannels, s.OutHeight, s.OutWidth)] = sum
				}
			}
		}
	}
}

// DepthwiseConvolution2d convolves each input channel with its own set of
// filters. Weights are [M,C,H,W] for both layouts, where M is the depth
// multiplier; output channel c*M+m is produced by filter m of channel c.
func DepthwiseConvolution2d(in, weights, bias, out []float32, s Conv2dShape) {
	multiplier := s.OutChannels / s.InChannels
	for n := 0; n < s.Batch; n++ {
		for c := 0; c < s.InChannels; c++ {
			for m := 0; m < multiplier; m++ {
				o := c*multiplier + m
				for oy := 0; oy < s.OutHeight; oy++ {
					for ox := 0; ox < s.OutWidth; ox++ {
						var sum float32
						if bias != nil {
							sum = bias[o]
						}
						for ky := 0; ky < s.KernelHeight; ky++ {
							iy := oy*s.StrideY + ky - s.PadTop
							if iy < 0 || iy >= s.InHeight {
								continue
							}
							for kx := 0; kx < s.KernelWidth; kx++ {
								ix := ox*s.StrideX + kx - s.PadLeft
								if ix < 0 || ix >= s.InWidth {
									continue
								}
								v := in[s.Layout.Offset(n, c, iy, ix, s.InChannels, s.InHeight, s.InWidth)]
								w := weights[((m*s.InChannels+c)*s.KernelHeight+ky)*s.KernelWidth+kx]
								sum += v * w
							}
						}
						out[s.Layout.Offset(n, o, oy, ox, s.OutChannels, s.OutHeight, s.OutWidth)] = sum
					}
				}
			}
		}
	}
}

// FullyConnected computes out = in * W + bias for each batch row. Weights
// are [inputSize, outputSize], or [outputSize, inputSize] when transposed.
func FullyConnected(in, weights, bias, out []float32, batch, inputSize, outputSize int, transpose bool) {
	for b := 0; b < batch; b++ {
		row := in[b*inputSize : (b+1)*inputSize]
		for o := 0; o < outputSize; o++ {
			var sum float32
			if bias != nil {
				sum = bias[o]
			}
			for i, v := range row {
				if transpose {
					sum += v * weights[o*inputSize+i]
				} else {
					sum += v * weights[i*outputSize+o]
				}
			}
			out[b*outputSize+o] = sum
		}
	}
}
