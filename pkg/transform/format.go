package transform

import "github.com/emergingrobotics/go-refnn/pkg/tensor"

// ConvertNHWCtoNCHW converts a batch of float32 tensors from NHWC to NCHW.
// NHWC convolution weights [O,H,W,I] become [O,I,H,W] with batch = O.
func ConvertNHWCtoNCHW(src, dst []float32, batch, height, width, channels int) {
	for n := 0; n < batch; n++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				for c := 0; c < channels; c++ {
					srcIdx := tensor.NHWC.Offset(n, c, y, x, channels, height, width)
					dstIdx := tensor.NCHW.Offset(n, c, y, x, channels, height, width)
					dst[dstIdx] = src[srcIdx]
				}
			}
		}
	}
}

// ResizeBilinear resizes a batch of images using bilinear interpolation.
// Source coordinates are obtained by scaling destination coordinates by the
// size ratio, with the far neighbour clamped to the image edge.
func ResizeBilinear(src, dst []float32, layout tensor.DataLayout, batch, channels, srcH, srcW, dstH, dstW int) {
	if dstH == 0 || dstW == 0 {
		return
	}
	xRatio := float32(srcW) / float32(dstW)
	yRatio := float32(srcH) / float32(dstH)

	for n := 0; n < batch; n++ {
		for y := 0; y < dstH; y++ {
			srcY := float32(y) * yRatio
			y0 := int(srcY)
			y1 := y0 + 1
			if y1 >= srcH {
				y1 = srcH - 1
			}
			yFrac := srcY - float32(y0)

			for x := 0; x < dstW; x++ {
				srcX := float32(x) * xRatio
				x0 := int(srcX)
				x1 := x0 + 1
				if x1 >= srcW {
					x1 = srcW - 1
				}
				xFrac := srcX - float32(x0)

				for c := 0; c < channels; c++ {
					v00 := src[layout.Offset(n, c, y0, x0, channels, srcH, srcW)]
					v01 := src[layout.Offset(n, c, y0, x1, channels, srcH, srcW)]
					v10 := src[layout.Offset(n, c, y1, x0, channels, srcH, srcW)]
					v11 := src[layout.Offset(n, c, y1, x1, channels, srcH, srcW)]

					v0 := v00*(1-xFrac) + v01*xFrac
					v1 := v10*(1-xFrac) + v11*xFrac
					dst[layout.Offset(n, c, y, x, channels, dstH, dstW)] = v0*(1-yFrac) + v1*yFrac
				}
			}
		}
	}
}
