package kernels

import (
	"math"

	"github.com/emergingrobotics/go-refnn/pkg/descriptor"
	"github.com/emergingrobotics/go-refnn/pkg/tensor"
)

// Dims4 is a batch of images in a given layout
type Dims4 struct {
	Layout   tensor.DataLayout
	Batch    int
	Channels int
	Height   int
	Width    int
}

// NewDims4 reads the dimensions of a rank 4 shape
func NewDims4(layout tensor.DataLayout, s tensor.Shape) Dims4 {
	n, c, h, w := layout.Dims(s)
	return Dims4{Layout: layout, Batch: n, Channels: c, Height: h, Width: w}
}

func (d Dims4) offset(n, c, y, x int) int {
	return d.Layout.Offset(n, c, y, x, d.Channels, d.Height, d.Width)
}

// BatchNormalization normalizes each channel with the given statistics:
// out = gamma * (in - mean) / sqrt(variance + eps) + beta.
func BatchNormalization(in, out, mean, variance, beta, gamma []float32, eps float32, d Dims4) {
	for c := 0; c < d.Channels; c++ {
		mult := gamma[c] / float32(math.Sqrt(float64(variance[c]+eps)))
		add := beta[c] - mult*mean[c]
		for n := 0; n < d.Batch; n++ {
			for y := 0; y < d.Height; y++ {
				for x := 0; x < d.Width; x++ {
					i := d.offset(n, c, y, x)
					out[i] = in[i]*mult + add
				}
			}
		}
	}
}

// LocalBrightness computes local response normalization:
// out = in / (k + alpha * sum(in^2))^beta, summed over a window of
// NormSize neighbours across channels or within the spatial plane.
func LocalBrightness(in, out []float32, p descriptor.Normalization, d Dims4) {
	radius := int(p.NormSize / 2)
	for n := 0; n < d.Batch; n++ {
		for c := 0; c < d.Channels; c++ {
			for y := 0; y < d.Height; y++ {
				for x := 0; x < d.Width; x++ {
					var sum float32
					if p.ChannelType == descriptor.NormalizationAcross {
						for cc := max(0, c-radius); cc <= min(d.Channels-1, c+radius); cc++ {
							v := in[d.offset(n, cc, y, x)]
							sum += v * v
						}
					} else {
						for yy := max(0, y-radius); yy <= min(d.Height-1, y+radius); yy++ {
							for xx := max(0, x-radius); xx <= min(d.Width-1, x+radius); xx++ {
								v := in[d.offset(n, c, yy, xx)]
								sum += v * v
							}
						}
					}
					i := d.offset(n, c, y, x)
					scale := math.Pow(float64(p.K+p.Alpha*sum), float64(p.Beta))
					out[i] = in[i] / float32(scale)
				}
			}
		}
	}
}

// L2Normalization scales each (n, y, x) channel vector to unit length.
// The squared norm is clamped below by eps.
func L2Normalization(in, out []float32, eps float32, d Dims4) {
	for n := 0; n < d.Batch; n++ {
		for y := 0; y < d.Height; y++ {
			for x := 0; x < d.Width; x++ {
				var sum float32
				for c := 0; c < d.Channels; c++ {
					v := in[d.offset(n, c, y, x)]
					sum += v * v
				}
				inv := float32(1 / math.Sqrt(math.Max(float64(sum), float64(eps))))
				for c := 0; c < d.Channels; c++ {
					i := d.offset(n, c, y, x)
					out[i] = in[i] * inv
				}
			}
		}
	}
}

// Softmax normalizes every row of the innermost axis:
// out = exp(beta * (x - max)) / sum.
func Softmax(in, out []float32, rowLen int, beta float32) {
	if rowLen == 0 {
		return
	}
	for start := 0; start+rowLen <= len(in); start += rowLen {
		row := in[start : start+rowLen]
		maxV := row[0]
		for _, v := range row[1:] {
			if v > maxV {
				maxV = v
			}
		}
		var sum float64
		for i, v := range row {
			e := math.Exp(float64(beta * (v - maxV)))
			out[start+i] = float32(e)
			sum += e
		}
		for i := range row {
			out[start+i] = float32(float64(out[start+i]) / sum)
		}
	}
}
