package graph

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/emergingrobotics/go-refnn/pkg/descriptor"
	"github.com/emergingrobotics/go-refnn/pkg/memory"
	"github.com/emergingrobotics/go-refnn/pkg/tensor"
)

// LayerType identifies the operator a layer performs
type LayerType int

const (
	LayerInput LayerType = iota
	LayerOutput
	LayerActivation
	LayerAddition
	LayerSubtraction
	LayerMultiplication
	LayerDivision
	LayerMaximum
	LayerMinimum
	LayerBatchNormalization
	LayerConvolution2d
	LayerDepthwiseConvolution2d
	LayerFullyConnected
	LayerNormalization
	LayerPooling2d
	LayerSoftmax
	LayerSplitter
	LayerConcat
	LayerReshape
	LayerResizeBilinear
	LayerConstant
	LayerRsqrt
	LayerL2Normalization
	LayerConvertFp16ToFp32
	LayerConvertFp32ToFp16
	LayerFloor
)

var layerTypeNames = map[LayerType]string{
	LayerInput:                  "Input",
	LayerOutput:                 "Output",
	LayerActivation:             "Activation",
	LayerAddition:               "Addition",
	LayerSubtraction:            "Subtraction",
	LayerMultiplication:         "Multiplication",
	LayerDivision:               "Division",
	LayerMaximum:                "Maximum",
	LayerMinimum:                "Minimum",
	LayerBatchNormalization:     "BatchNormalization",
	LayerConvolution2d:          "Convolution2d",
	LayerDepthwiseConvolution2d: "DepthwiseConvolution2d",
	LayerFullyConnected:         "FullyConnected",
	LayerNormalization:          "Normalization",
	LayerPooling2d:              "Pooling2d",
	LayerSoftmax:                "Softmax",
	LayerSplitter:               "Splitter",
	LayerConcat:                 "Concat",
	LayerReshape:                "Reshape",
	LayerResizeBilinear:         "ResizeBilinear",
	LayerConstant:               "Constant",
	LayerRsqrt:                  "Rsqrt",
	LayerL2Normalization:        "L2Normalization",
	LayerConvertFp16ToFp32:      "ConvertFp16ToFp32",
	LayerConvertFp32ToFp16:      "ConvertFp32ToFp16",
	LayerFloor:                  "Floor",
}

func (t LayerType) String() string {
	if name, ok := layerTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("LayerType(%d)", int(t))
}

// LayerID indexes a layer in its graph's arena
type LayerID int

// OutputSlotRef names an output slot of a layer
type OutputSlotRef struct {
	Layer LayerID
	Index int
}

// InputSlotRef names an input slot of a layer
type InputSlotRef struct {
	Layer LayerID
	Index int
}

// InputSlot is connected to exactly one producing output slot
type InputSlot struct {
	source    OutputSlotRef
	connected bool
}

// Source returns the producing slot, if connected
func (s *InputSlot) Source() (OutputSlotRef, bool) {
	return s.source, s.connected
}

// OutputSlot carries the tensor info of one layer output, the list of input
// slots it feeds and, once bound, the handle that stores it.
type OutputSlot struct {
	info      tensor.Info
	hasInfo   bool
	consumers []InputSlotRef
	handle    *memory.TensorHandle
}

// SetInfo declares the tensor produced on this slot
func (s *OutputSlot) SetInfo(info tensor.Info) {
	s.info = info.WithShape(info.Shape)
	s.hasInfo = true
}

// Info returns the declared tensor info
func (s *OutputSlot) Info() tensor.Info {
	return s.info
}

// HasInfo reports whether SetInfo was called
func (s *OutputSlot) HasInfo() bool {
	return s.hasInfo
}

// Consumers returns the input slots fed by this output, in connection order
func (s *OutputSlot) Consumers() []InputSlotRef {
	return s.consumers
}

// Handle returns the bound tensor handle, or nil
func (s *OutputSlot) Handle() *memory.TensorHandle {
	return s.handle
}

// SetHandle binds the storage of this output
func (s *OutputSlot) SetHandle(h *memory.TensorHandle) {
	s.handle = h
}

// Constants are the constant tensors a layer owns
type Constants struct {
	Weight   *memory.ConstTensorHandle
	Bias     *memory.ConstTensorHandle
	Mean     *memory.ConstTensorHandle
	Variance *memory.ConstTensorHandle
	Beta     *memory.ConstTensorHandle
	Gamma    *memory.ConstTensorHandle
	Value    *memory.ConstTensorHandle
}

// Layer is a graph node
type Layer struct {
	id        LayerID
	guid      uuid.UUID
	name      string
	kind      LayerType
	params    descriptor.Descriptor
	constants Constants
	inputs    []InputSlot
	outputs   []OutputSlot
}

// ID returns the arena index of the layer
func (l *Layer) ID() LayerID { return l.id }

// GUID returns the globally unique identity of the layer
func (l *Layer) GUID() uuid.UUID { return l.guid }

// Name returns the layer name
func (l *Layer) Name() string { return l.name }

// Type returns the operator kind
func (l *Layer) Type() LayerType { return l.kind }

// Params returns the operator parameters, or nil
func (l *Layer) Params() descriptor.Descriptor { return l.params }

// Constants returns the constant tensors owned by the layer
func (l *Layer) Constants() Constants { return l.constants }

// SetConstants replaces the constant tensors owned by the layer
func (l *Layer) SetConstants(c Constants) { l.constants = c }

// NumInputs returns the number of input slots
func (l *Layer) NumInputs() int { return len(l.inputs) }

// NumOutputs returns the number of output slots
func (l *Layer) NumOutputs() int { return len(l.outputs) }

// InputSlot returns input slot i
func (l *Layer) InputSlot(i int) *InputSlot { return &l.inputs[i] }

// OutputSlot returns output slot i
func (l *Layer) OutputSlot(i int) *OutputSlot { return &l.outputs[i] }

func (l *Layer) String() string {
	return fmt.Sprintf("%s(%s)", l.name, l.kind)
}
