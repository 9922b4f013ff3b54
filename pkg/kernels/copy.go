package kernels

import "github.com/emergingrobotics/go-refnn/pkg/tensor"

// axisBlocks splits shape around axis into the number of outer blocks and
// the byte size of one slice at unit extent along axis.
func axisBlocks(shape tensor.Shape, axis, elemSize int) (outer, inner int) {
	outer, inner = 1, elemSize
	for d := 0; d < axis; d++ {
		outer *= shape[d]
	}
	for d := axis + 1; d < shape.Rank(); d++ {
		inner *= shape[d]
	}
	return outer, inner
}

// Split copies consecutive ranges of src along axis into dsts. Each
// destination shape must match srcShape on every other axis.
func Split(src []byte, srcShape tensor.Shape, dsts [][]byte, dstShapes []tensor.Shape, axis, elemSize int) {
	outer, inner := axisBlocks(srcShape, axis, elemSize)
	srcRow := srcShape[axis] * inner

	start := 0
	for i, dst := range dsts {
		width := dstShapes[i][axis] * inner
		for o := 0; o < outer; o++ {
			copy(dst[o*width:(o+1)*width], src[o*srcRow+start:o*srcRow+start+width])
		}
		start += width
	}
}

// Concat is the inverse of Split: srcs are laid out along axis in order.
func Concat(srcs [][]byte, srcShapes []tensor.Shape, dst []byte, dstShape tensor.Shape, axis, elemSize int) {
	outer, inner := axisBlocks(dstShape, axis, elemSize)
	dstRow := dstShape[axis] * inner

	start := 0
	for i, src := range srcs {
		width := srcShapes[i][axis] * inner
		for o := 0; o < outer; o++ {
			copy(dst[o*dstRow+start:o*dstRow+start+width], src[o*width:(o+1)*width])
		}
		start += width
	}
}
