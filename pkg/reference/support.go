package reference

import (
	"fmt"
	"slices"

	"github.com/emergingrobotics/go-refnn/pkg/descriptor"
	"github.com/emergingrobotics/go-refnn/pkg/graph"
	"github.com/emergingrobotics/go-refnn/pkg/tensor"
)

var (
	arithmeticTypes = []tensor.DataType{tensor.DataTypeFloat32, tensor.DataTypeQAsymm8, tensor.DataTypeQSymm16}
	anyType         = []tensor.DataType{tensor.DataTypeFloat16, tensor.DataTypeFloat32, tensor.DataTypeQAsymm8, tensor.DataTypeSigned32, tensor.DataTypeQSymm16}
)

// outputTypes lists the output data types each layer kind can produce
var outputTypes = map[graph.LayerType][]tensor.DataType{
	graph.LayerInput:             anyType,
	graph.LayerOutput:            anyType,
	graph.LayerSplitter:          anyType,
	graph.LayerConcat:            anyType,
	graph.LayerReshape:           anyType,
	graph.LayerConstant:          anyType,
	graph.LayerConvertFp16ToFp32: {tensor.DataTypeFloat32},
	graph.LayerConvertFp32ToFp16: {tensor.DataTypeFloat16},
}

// IsLayerSupported reports whether the backend can run l with its declared
// output types. When it cannot, the reason says why.
func (f *WorkloadFactory) IsLayerSupported(l *graph.Layer) (bool, string) {
	a, ok := arities[l.Type()]
	if !ok {
		return false, fmt.Sprintf("no reference workload for %s layers", l.Type())
	}
	if !a.matches(l.NumInputs(), l.NumOutputs()) {
		return false, fmt.Sprintf("%s layer with %d inputs and %d outputs", l.Type(), l.NumInputs(), l.NumOutputs())
	}

	if p, ok := l.Params().(descriptor.Normalization); ok && p.MethodType != descriptor.NormalizationLocalBrightness {
		return false, "only local brightness normalization is implemented"
	}

	allowed, ok := outputTypes[l.Type()]
	if !ok {
		allowed = arithmeticTypes
	}
	for i := 0; i < l.NumOutputs(); i++ {
		slot := l.OutputSlot(i)
		if !slot.HasInfo() {
			continue
		}
		if dt := slot.Info().DataType; !slices.Contains(allowed, dt) {
			return false, fmt.Sprintf("%s layer does not produce %s tensors", l.Type(), dt)
		}
	}
	return true, ""
}
