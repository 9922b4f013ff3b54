package tensor

import "fmt"

// DataLayout represents the axis order of 4D activation tensors
type DataLayout int

const (
	NCHW DataLayout = iota
	NHWC
)

func (l DataLayout) String() string {
	switch l {
	case NCHW:
		return "NCHW"
	case NHWC:
		return "NHWC"
	}
	return fmt.Sprintf("DataLayout(%d)", int(l))
}

// LayoutIndex holds the axis positions of each logical dimension
type LayoutIndex struct {
	Batch    int
	Channels int
	Height   int
	Width    int
}

// Index returns the axis positions for l
func (l DataLayout) Index() LayoutIndex {
	if l == NHWC {
		return LayoutIndex{Batch: 0, Height: 1, Width: 2, Channels: 3}
	}
	return LayoutIndex{Batch: 0, Channels: 1, Height: 2, Width: 3}
}

// Shape builds a 4D shape with the extents placed according to l
func (l DataLayout) Shape(n, c, h, w int) Shape {
	if l == NHWC {
		return Shape{n, h, w, c}
	}
	return Shape{n, c, h, w}
}

// Dims splits a 4D shape into its logical extents
func (l DataLayout) Dims(s Shape) (n, c, h, w int) {
	idx := l.Index()
	return s[idx.Batch], s[idx.Channels], s[idx.Height], s[idx.Width]
}

// Offset returns the flat element offset of (n, c, h, w) in a tensor with
// logical extents (channels, height, width).
func (l DataLayout) Offset(n, c, h, w, channels, height, width int) int {
	if l == NHWC {
		return ((n*height+h)*width+w)*channels + c
	}
	return ((n*channels+c)*height+h)*width + w
}
