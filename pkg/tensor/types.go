// Package tensor describes tensors independently of their storage: shape,
// element type, quantization and data layout.
package tensor

import (
	"fmt"
	"math"
	"strings"
)

// DataType represents the element type of a tensor
type DataType int

const (
	DataTypeFloat16 DataType = iota
	DataTypeFloat32
	DataTypeQAsymm8
	DataTypeSigned32
	DataTypeQSymm16
)

var dataTypeNames = map[DataType]string{
	DataTypeFloat16:  "Float16",
	DataTypeFloat32:  "Float32",
	DataTypeQAsymm8:  "QAsymm8",
	DataTypeSigned32: "Signed32",
	DataTypeQSymm16:  "QSymm16",
}

// String returns the name of the data type
func (dt DataType) String() string {
	if name, ok := dataTypeNames[dt]; ok {
		return name
	}
	return fmt.Sprintf("DataType(%d)", int(dt))
}

// Size returns the size in bytes of one element
func (dt DataType) Size() int {
	switch dt {
	case DataTypeQAsymm8:
		return 1
	case DataTypeFloat16, DataTypeQSymm16:
		return 2
	case DataTypeFloat32, DataTypeSigned32:
		return 4
	}
	return 0
}

// Valid reports whether dt is a known data type
func (dt DataType) Valid() bool {
	_, ok := dataTypeNames[dt]
	return ok
}

// IsQuantized reports whether values of dt are affine-quantized integers
func (dt DataType) IsQuantized() bool {
	return dt == DataTypeQAsymm8 || dt == DataTypeQSymm16
}

// QuantRange returns the representable integer range of a quantized type.
func (dt DataType) QuantRange() (min, max int32) {
	switch dt {
	case DataTypeQAsymm8:
		return 0, math.MaxUint8
	case DataTypeQSymm16:
		return math.MinInt16, math.MaxInt16
	}
	return 0, 0
}

// Shape is an ordered list of dimension extents
type Shape []int

// Rank returns the number of dimensions
func (s Shape) Rank() int {
	return len(s)
}

// NumElements returns the product of all extents. A rank-0 shape holds one
// element.
func (s Shape) NumElements() int {
	n := 1
	for _, d := range s {
		n *= d
	}
	return n
}

// Equal reports whether both shapes have the same extents
func (s Shape) Equal(o Shape) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of s
func (s Shape) Clone() Shape {
	if s == nil {
		return nil
	}
	out := make(Shape, len(s))
	copy(out, s)
	return out
}

func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = fmt.Sprint(d)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Validate rejects negative extents
func (s Shape) Validate() error {
	for i, d := range s {
		if d < 0 {
			return fmt.Errorf("dimension %d has negative extent %d", i, d)
		}
	}
	return nil
}

// QuantInfo contains quantization parameters:
// real = (quantized - Offset) * Scale
type QuantInfo struct {
	Scale  float32
	Offset int32
}

// IsZero reports whether no quantization parameters are set
func (q QuantInfo) IsZero() bool {
	return q.Scale == 0 && q.Offset == 0
}

// Info binds a shape to an element type and, for quantized types, its
// quantization parameters.
type Info struct {
	Shape    Shape
	DataType DataType
	Quant    QuantInfo
}

// NewInfo creates an unquantized Info
func NewInfo(shape Shape, dt DataType) Info {
	return Info{Shape: shape.Clone(), DataType: dt}
}

// NewQuantizedInfo creates an Info with quantization parameters
func NewQuantizedInfo(shape Shape, dt DataType, scale float32, offset int32) Info {
	return Info{
		Shape:    shape.Clone(),
		DataType: dt,
		Quant:    QuantInfo{Scale: scale, Offset: offset},
	}
}

// Equal compares shape, type, scale and offset
func (i Info) Equal(o Info) bool {
	return i.DataType == o.DataType && i.Quant == o.Quant && i.Shape.Equal(o.Shape)
}

// NumElements returns the element count of the shape
func (i Info) NumElements() int {
	return i.Shape.NumElements()
}

// NumBytes returns the storage size of the tensor
func (i Info) NumBytes() int {
	return i.Shape.NumElements() * i.DataType.Size()
}

// Rank returns the number of dimensions
func (i Info) Rank() int {
	return i.Shape.Rank()
}

// WithShape returns a copy of i with a different shape
func (i Info) WithShape(shape Shape) Info {
	i.Shape = shape.Clone()
	return i
}

// WithDataType returns a copy of i with a different, unquantized data type
func (i Info) WithDataType(dt DataType) Info {
	i.DataType = dt
	i.Quant = QuantInfo{}
	i.Shape = i.Shape.Clone()
	return i
}

func (i Info) String() string {
	if i.DataType.IsQuantized() || !i.Quant.IsZero() {
		return fmt.Sprintf("%s %s(scale=%g, offset=%d)", i.Shape, i.DataType, i.Quant.Scale, i.Quant.Offset)
	}
	return fmt.Sprintf("%s %s", i.Shape, i.DataType)
}

// Validate checks that quantization parameters are present iff the data type
// is quantized, and that they are representable. Signed32 may carry a scale.
func (i Info) Validate() error {
	if !i.DataType.Valid() {
		return fmt.Errorf("unknown data type %d", int(i.DataType))
	}
	if err := i.Shape.Validate(); err != nil {
		return err
	}
	if !i.DataType.IsQuantized() {
		// quantized biases are Signed32 with a scale and no offset
		if i.DataType == DataTypeSigned32 && i.Quant.Offset == 0 && i.Quant.Scale >= 0 {
			return nil
		}
		if !i.Quant.IsZero() {
			return fmt.Errorf("%s tensor carries quantization parameters", i.DataType)
		}
		return nil
	}
	if !(i.Quant.Scale > 0) || math.IsInf(float64(i.Quant.Scale), 0) {
		return fmt.Errorf("%s tensor needs a positive quantization scale, got %g", i.DataType, i.Quant.Scale)
	}
	lo, hi := i.DataType.QuantRange()
	if i.DataType == DataTypeQSymm16 && i.Quant.Offset != 0 {
		return fmt.Errorf("symmetric %s tensor must have zero offset, got %d", i.DataType, i.Quant.Offset)
	}
	if i.Quant.Offset < lo || i.Quant.Offset > hi {
		return fmt.Errorf("quantization offset %d outside [%d, %d]", i.Quant.Offset, lo, hi)
	}
	return nil
}
