//go:build unit

package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDataTypeSize(t *testing.T) {
	tests := []struct {
		dt       DataType
		expected int
	}{
		{DataTypeFloat16, 2},
		{DataTypeFloat32, 4},
		{DataTypeQAsymm8, 1},
		{DataTypeSigned32, 4},
		{DataTypeQSymm16, 2},
		{DataType(42), 0},
	}

	for _, tt := range tests {
		if got := tt.dt.Size(); got != tt.expected {
			t.Errorf("%s.Size() = %d, expected %d", tt.dt, got, tt.expected)
		}
	}
}

func TestShapeNumElements(t *testing.T) {
	assert.Equal(t, 1, Shape{}.NumElements())
	assert.Equal(t, 24, Shape{2, 3, 4}.NumElements())
	assert.Equal(t, 0, Shape{2, 0, 4}.NumElements())
}

func TestShapeCloneIsIndependent(t *testing.T) {
	s := Shape{1, 2, 3}
	c := s.Clone()
	c[0] = 9
	assert.Equal(t, 1, s[0])
}

func TestInfoEqualIsStructural(t *testing.T) {
	a := NewQuantizedInfo(Shape{3, 7}, DataTypeQAsymm8, 2.0, 0)
	b := NewQuantizedInfo(Shape{3, 7}, DataTypeQAsymm8, 2.0, 0)
	assert.True(t, a.Equal(b))

	assert.False(t, a.Equal(NewQuantizedInfo(Shape{3, 7}, DataTypeQAsymm8, 1.0, 0)), "scale differs")
	assert.False(t, a.Equal(NewQuantizedInfo(Shape{3, 7}, DataTypeQAsymm8, 2.0, 3)), "offset differs")
	assert.False(t, a.Equal(NewQuantizedInfo(Shape{7, 3}, DataTypeQAsymm8, 2.0, 0)), "shape differs")
	assert.False(t, NewInfo(Shape{3, 7}, DataTypeFloat32).Equal(NewInfo(Shape{3, 7}, DataTypeFloat16)), "type differs")
}

func TestInfoValidate(t *testing.T) {
	tests := []struct {
		name    string
		info    Info
		wantErr bool
	}{
		{"float", NewInfo(Shape{2, 3}, DataTypeFloat32), false},
		{"float with scale", NewQuantizedInfo(Shape{2}, DataTypeFloat32, 1, 0), true},
		{"asymm8", NewQuantizedInfo(Shape{2}, DataTypeQAsymm8, 0.5, 128), false},
		{"asymm8 missing scale", NewInfo(Shape{2}, DataTypeQAsymm8), true},
		{"asymm8 offset out of range", NewQuantizedInfo(Shape{2}, DataTypeQAsymm8, 0.5, 300), true},
		{"symm16", NewQuantizedInfo(Shape{2}, DataTypeQSymm16, 0.1, 0), false},
		{"symm16 with offset", NewQuantizedInfo(Shape{2}, DataTypeQSymm16, 0.1, 4), true},
		{"scaled signed32", NewQuantizedInfo(Shape{2}, DataTypeSigned32, 0.25, 0), false},
		{"signed32 with offset", NewQuantizedInfo(Shape{2}, DataTypeSigned32, 0.25, 3), true},
		{"negative extent", NewInfo(Shape{-1}, DataTypeFloat32), true},
		{"unknown type", NewInfo(Shape{1}, DataType(77)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.info.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestInfoNumBytes(t *testing.T) {
	assert.Equal(t, 2*3*2*10*4, NewInfo(Shape{2, 3, 2, 10}, DataTypeSigned32).NumBytes())
	assert.Equal(t, 18*2, NewInfo(Shape{1, 3, 2, 3}, DataTypeFloat16).NumBytes())
}

func TestLayoutShapeAndDims(t *testing.T) {
	assert.Equal(t, Shape{2, 3, 8, 16}, NCHW.Shape(2, 3, 8, 16))
	assert.Equal(t, Shape{2, 8, 16, 3}, NHWC.Shape(2, 3, 8, 16))

	n, c, h, w := NHWC.Dims(Shape{2, 8, 16, 3})
	assert.Equal(t, []int{2, 3, 8, 16}, []int{n, c, h, w})
}

func TestLayoutOffset(t *testing.T) {
	// element (n=1, c=2, h=0, w=1) in a 2x3x2x2 tensor
	assert.Equal(t, ((1*3+2)*2+0)*2+1, NCHW.Offset(1, 2, 0, 1, 3, 2, 2))
	assert.Equal(t, ((1*2+0)*2+1)*3+2, NHWC.Offset(1, 2, 0, 1, 3, 2, 2))
}
