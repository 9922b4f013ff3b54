package transform

import (
	"encoding/binary"
	"math"

	"github.com/x448/float16"

	"github.com/emergingrobotics/go-refnn/pkg/memory"
	"github.com/emergingrobotics/go-refnn/pkg/tensor"
)

// Decode converts the elements stored in data to float32. Quantized values
// are dequantized; dst must hold info.NumElements() values.
func Decode(info tensor.Info, data []byte, dst []float32) {
	n := info.NumElements()
	switch info.DataType {
	case tensor.DataTypeFloat32:
		for i := 0; i < n; i++ {
			dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		}
	case tensor.DataTypeFloat16:
		for i := 0; i < n; i++ {
			dst[i] = float16.Frombits(binary.LittleEndian.Uint16(data[i*2:])).Float32()
		}
	case tensor.DataTypeQAsymm8:
		DequantizeBatch(data[:n], dst, info.Quant)
	case tensor.DataTypeQSymm16:
		for i := 0; i < n; i++ {
			dst[i] = DequantizeI16(int16(binary.LittleEndian.Uint16(data[i*2:])), info.Quant)
		}
	case tensor.DataTypeSigned32:
		scale := signedScale(info)
		for i := 0; i < n; i++ {
			dst[i] = float32(int32(binary.LittleEndian.Uint32(data[i*4:]))) * scale
		}
	}
}

// Encode stores src into data using the element type of info. Quantized
// types saturate; Signed32 rounds to nearest.
func Encode(info tensor.Info, src []float32, data []byte) {
	n := info.NumElements()
	switch info.DataType {
	case tensor.DataTypeFloat32:
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(src[i]))
		}
	case tensor.DataTypeFloat16:
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint16(data[i*2:], float16.Fromfloat32(src[i]).Bits())
		}
	case tensor.DataTypeQAsymm8:
		QuantizeBatch(src[:n], data, info.Quant)
	case tensor.DataTypeQSymm16:
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint16(data[i*2:], uint16(QuantizeI16(src[i], info.Quant)))
		}
	case tensor.DataTypeSigned32:
		scale := signedScale(info)
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint32(data[i*4:], uint32(int32(math.Round(float64(src[i]/scale)))))
		}
	}
}

// signedScale is the scale of a Signed32 tensor, 1 when unscaled
func signedScale(info tensor.Info) float32 {
	if info.Quant.Scale > 0 {
		return info.Quant.Scale
	}
	return 1
}

// EncodeValues returns a new buffer holding values encoded for info
func EncodeValues(info tensor.Info, values []float32) []byte {
	data := make([]byte, info.NumBytes())
	Encode(info, values, data)
	return data
}

// ReadFloat32 decodes the contents of h into a new slice
func ReadFloat32(h memory.Handle) []float32 {
	info := h.Info()
	out := make([]float32, info.NumElements())
	Decode(info, h.Bytes(), out)
	return out
}

// WriteFloat32 encodes values into the storage of h
func WriteFloat32(h *memory.TensorHandle, values []float32) {
	Encode(h.Info(), values, h.Bytes())
}

// ConstTensor builds a read-only tensor from float32 values
func ConstTensor(info tensor.Info, values []float32) (*memory.ConstTensorHandle, error) {
	return memory.NewConstTensor(info, EncodeValues(info, values))
}
