// Package kernels contains the float32 reference implementations run by
// workloads. Kernels are pure functions: they read their inputs, write
// their outputs and allocate nothing beyond small index buffers.
package kernels

import (
	"math"

	"github.com/emergingrobotics/go-refnn/pkg/descriptor"
	"github.com/emergingrobotics/go-refnn/pkg/tensor"
)

// BinaryFunc combines two elements
type BinaryFunc func(a, b float32) float32

// Element-wise operators
var (
	Add BinaryFunc = func(a, b float32) float32 { return a + b }
	Sub BinaryFunc = func(a, b float32) float32 { return a - b }
	Mul BinaryFunc = func(a, b float32) float32 { return a * b }
	Div BinaryFunc = func(a, b float32) float32 { return a / b }
	Max BinaryFunc = func(a, b float32) float32 {
		if a > b {
			return a
		}
		return b
	}
	Min BinaryFunc = func(a, b float32) float32 {
		if a < b {
			return a
		}
		return b
	}
)

// Broadcast applies fn to every output element. a and b must have the
// output's rank; an axis of extent 1 is repeated along the output axis.
func Broadcast(fn BinaryFunc, a []float32, aShape tensor.Shape, b []float32, bShape tensor.Shape, out []float32, outShape tensor.Shape) {
	rank := outShape.Rank()
	if aShape.Equal(outShape) && bShape.Equal(outShape) {
		for i := range out[:outShape.NumElements()] {
			out[i] = fn(a[i], b[i])
		}
		return
	}

	aStrides := broadcastStrides(aShape)
	bStrides := broadcastStrides(bShape)
	index := make([]int, rank)

	for i, n := 0, outShape.NumElements(); i < n; i++ {
		ai, bi := 0, 0
		for d := 0; d < rank; d++ {
			ai += index[d] * aStrides[d]
			bi += index[d] * bStrides[d]
		}
		out[i] = fn(a[ai], b[bi])

		for d := rank - 1; d >= 0; d-- {
			index[d]++
			if index[d] < outShape[d] {
				break
			}
			index[d] = 0
		}
	}
}

// broadcastStrides returns row-major strides with zero stride on axes of
// extent 1.
func broadcastStrides(s tensor.Shape) []int {
	strides := make([]int, s.Rank())
	stride := 1
	for d := s.Rank() - 1; d >= 0; d-- {
		if s[d] != 1 {
			strides[d] = stride
		}
		stride *= s[d]
	}
	return strides
}

// Activation applies an activation function element-wise
func Activation(in, out []float32, p descriptor.Activation) {
	fn := activationFunc(p)
	for i, v := range in {
		out[i] = fn(v)
	}
}

func activationFunc(p descriptor.Activation) func(float32) float32 {
	a, b := p.A, p.B
	switch p.Function {
	case descriptor.ActivationSigmoid:
		return func(x float32) float32 { return float32(1 / (1 + math.Exp(-float64(x)))) }
	case descriptor.ActivationTanH:
		return func(x float32) float32 { return a * float32(math.Tanh(float64(b*x))) }
	case descriptor.ActivationLinear:
		return func(x float32) float32 { return a*x + b }
	case descriptor.ActivationReLu:
		return func(x float32) float32 { return float32(math.Max(0, float64(x))) }
	case descriptor.ActivationBoundedReLu:
		return func(x float32) float32 { return float32(math.Min(float64(a), math.Max(float64(b), float64(x)))) }
	case descriptor.ActivationSoftReLu:
		return func(x float32) float32 { return float32(math.Log1p(math.Exp(float64(x)))) }
	case descriptor.ActivationLeakyReLu:
		return func(x float32) float32 {
			if x > 0 {
				return x
			}
			return x * a
		}
	case descriptor.ActivationAbs:
		return func(x float32) float32 { return float32(math.Abs(float64(x))) }
	case descriptor.ActivationSqrt:
		return func(x float32) float32 { return float32(math.Sqrt(float64(x))) }
	case descriptor.ActivationSquare:
		return func(x float32) float32 { return x * x }
	}
	return func(x float32) float32 { return x }
}

// Rsqrt computes 1/sqrt(x) element-wise
func Rsqrt(in, out []float32) {
	for i, v := range in {
		out[i] = float32(1 / math.Sqrt(float64(v)))
	}
}

// Floor rounds element-wise towards negative infinity
func Floor(in, out []float32) {
	for i, v := range in {
		out[i] = float32(math.Floor(float64(v)))
	}
}
