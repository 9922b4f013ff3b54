// Package transform converts tensor storage to and from float32 and
// rearranges float32 tensors between layouts.
package transform

import (
	"math"

	"github.com/emergingrobotics/go-refnn/pkg/tensor"
)

func quantize(value float32, qi tensor.QuantInfo, lo, hi int32) int32 {
	// quantized = round(value / scale) + offset
	q := math.Round(float64(value)/float64(qi.Scale)) + float64(qi.Offset)
	if q < float64(lo) {
		return lo
	}
	if q > float64(hi) {
		return hi
	}
	return int32(q)
}

// Quantize converts a float32 to uint8 using quantization parameters
func Quantize(value float32, qi tensor.QuantInfo) uint8 {
	return uint8(quantize(value, qi, 0, math.MaxUint8))
}

// Dequantize converts a uint8 to float32 using quantization parameters
func Dequantize(value uint8, qi tensor.QuantInfo) float32 {
	// float = (quantized - offset) * scale
	return float32(int32(value)-qi.Offset) * qi.Scale
}

// QuantizeBatch quantizes a batch of float32 values
func QuantizeBatch(input []float32, output []uint8, qi tensor.QuantInfo) {
	for i, v := range input {
		output[i] = Quantize(v, qi)
	}
}

// DequantizeBatch dequantizes a batch of uint8 values
func DequantizeBatch(input []uint8, output []float32, qi tensor.QuantInfo) {
	for i, v := range input {
		output[i] = Dequantize(v, qi)
	}
}

// QuantizeI16 converts a float32 to int16 using quantization parameters
func QuantizeI16(value float32, qi tensor.QuantInfo) int16 {
	return int16(quantize(value, qi, math.MinInt16, math.MaxInt16))
}

// DequantizeI16 converts an int16 to float32 using quantization parameters
func DequantizeI16(value int16, qi tensor.QuantInfo) float32 {
	return float32(int32(value)-qi.Offset) * qi.Scale
}
