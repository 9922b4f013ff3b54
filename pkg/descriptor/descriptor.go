// Package descriptor holds the operator parameters carried by graph layers
// and copied into workload queue descriptors.
package descriptor

import "github.com/emergingrobotics/go-refnn/pkg/tensor"

// Descriptor is implemented by every operator parameter struct
type Descriptor interface {
	descriptor()
}

// ActivationFunction selects the activation kernel
type ActivationFunction int

const (
	ActivationSigmoid ActivationFunction = iota
	ActivationTanH
	ActivationLinear
	ActivationReLu
	ActivationBoundedReLu
	ActivationSoftReLu
	ActivationLeakyReLu
	ActivationAbs
	ActivationSqrt
	ActivationSquare
)

// Activation parameters. A and B are function specific: Linear computes
// A*x+B, BoundedReLu clamps to [B, A], TanH computes A*tanh(B*x) and
// LeakyReLu uses A as the negative slope.
type Activation struct {
	Function ActivationFunction
	A        float32
	B        float32
}

// BatchNormalization parameters
type BatchNormalization struct {
	Eps        float32
	DataLayout tensor.DataLayout
}

// Convolution2d parameters
type Convolution2d struct {
	PadLeft     int
	PadRight    int
	PadTop      int
	PadBottom   int
	StrideX     int
	StrideY     int
	BiasEnabled bool
	DataLayout  tensor.DataLayout
}

// DepthwiseConvolution2d parameters
type DepthwiseConvolution2d struct {
	PadLeft     int
	PadRight    int
	PadTop      int
	PadBottom   int
	StrideX     int
	StrideY     int
	BiasEnabled bool
	DataLayout  tensor.DataLayout
}

// FullyConnected parameters. With TransposeWeightMatrix the weight tensor is
// [outputs, inputs], otherwise [inputs, outputs].
type FullyConnected struct {
	BiasEnabled           bool
	TransposeWeightMatrix bool
}

// NormalizationChannel selects where the normalization window slides
type NormalizationChannel int

const (
	NormalizationAcross NormalizationChannel = iota
	NormalizationWithin
)

// NormalizationMethod selects the normalization formula
type NormalizationMethod int

const (
	NormalizationLocalBrightness NormalizationMethod = iota
	NormalizationLocalContrast
)

// Normalization parameters for local response normalization
type Normalization struct {
	ChannelType NormalizationChannel
	MethodType  NormalizationMethod
	NormSize    int
	Alpha       float32
	Beta        float32
	K           float32
	DataLayout  tensor.DataLayout
}

// PoolingAlgorithm selects the pooling reduction
type PoolingAlgorithm int

const (
	PoolingMax PoolingAlgorithm = iota
	PoolingAverage
	PoolingL2
)

// OutputShapeRounding selects how partial windows are counted
type OutputShapeRounding int

const (
	RoundingFloor OutputShapeRounding = iota
	RoundingCeiling
)

// PaddingMethod selects whether padded elements count towards averages
type PaddingMethod int

const (
	// PaddingIgnoreValue counts padding as zero-valued elements.
	PaddingIgnoreValue PaddingMethod = iota
	// PaddingExclude leaves padding out of the divisor.
	PaddingExclude
)

// Pooling2d parameters
type Pooling2d struct {
	PoolType      PoolingAlgorithm
	PadLeft       int
	PadRight      int
	PadTop        int
	PadBottom     int
	PoolWidth     int
	PoolHeight    int
	StrideX       int
	StrideY       int
	Rounding      OutputShapeRounding
	PaddingMethod PaddingMethod
	DataLayout    tensor.DataLayout
}

// Softmax parameters
type Softmax struct {
	Beta float32
}

// Splitter parameters. Outputs are laid out along Axis in slot order.
type Splitter struct {
	Axis int
}

// Concat parameters. Inputs are laid out along Axis in slot order.
type Concat struct {
	Axis int
}

// Reshape parameters
type Reshape struct {
	TargetShape tensor.Shape
}

// ResizeBilinear parameters
type ResizeBilinear struct {
	TargetWidth  int
	TargetHeight int
	DataLayout   tensor.DataLayout
}

// L2Normalization parameters
type L2Normalization struct {
	Eps        float32
	DataLayout tensor.DataLayout
}

// Binding parameters for graph inputs and outputs
type Binding struct {
	ID int
}

func (Activation) descriptor()             {}
func (BatchNormalization) descriptor()     {}
func (Convolution2d) descriptor()          {}
func (DepthwiseConvolution2d) descriptor() {}
func (FullyConnected) descriptor()         {}
func (Normalization) descriptor()          {}
func (Pooling2d) descriptor()              {}
func (Softmax) descriptor()                {}
func (Splitter) descriptor()               {}
func (Concat) descriptor()                 {}
func (Reshape) descriptor()                {}
func (ResizeBilinear) descriptor()         {}
func (L2Normalization) descriptor()        {}
func (Binding) descriptor()                {}
