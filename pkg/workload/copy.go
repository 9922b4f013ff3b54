package workload

import (
	"github.com/emergingrobotics/go-refnn/pkg/descriptor"
	"github.com/emergingrobotics/go-refnn/pkg/kernels"
	"github.com/emergingrobotics/go-refnn/pkg/memory"
	"github.com/emergingrobotics/go-refnn/pkg/status"
	"github.com/emergingrobotics/go-refnn/pkg/tensor"
)

// The workloads in this file move bytes without decoding them, so the
// element type and quantization of every bound tensor must agree.

func validateSameElements(ctx string, expected, actual tensor.Info) error {
	if expected.DataType != actual.DataType || expected.Quant != actual.Quant {
		return status.Mismatch(ctx, expected.WithShape(actual.Shape), actual)
	}
	return nil
}

// validateAxis checks axis against rank and returns it
func validateAxis(op string, axis, rank int) error {
	if axis < 0 || axis >= rank {
		return status.Errorf(status.StatusInvalidGraph, "%s: axis %d out of range for rank %d", op, axis, rank)
	}
	return nil
}

// validateAlongAxis checks that part agrees with whole on every axis but
// axis.
func validateAlongAxis(ctx string, whole, part tensor.Shape, axis int) error {
	if whole.Rank() != part.Rank() {
		return status.Mismatch(ctx, rankOf(whole.Rank()), rankOf(part.Rank()))
	}
	for d := range whole {
		if d != axis && whole[d] != part[d] {
			expected := part.Clone()
			expected[d] = whole[d]
			return status.Mismatch(ctx, expected, part)
		}
	}
	return nil
}

// SplitterQueueDescriptor binds a splitter layer
type SplitterQueueDescriptor struct {
	QueueDescriptor
	Parameters descriptor.Splitter
}

// Splitter divides its input along an axis into consecutive views
type Splitter struct {
	Base[SplitterQueueDescriptor]
	shapes []tensor.Shape
}

// NewSplitter creates a splitter workload. Output i receives the i-th
// consecutive range along the split axis.
func NewSplitter(desc SplitterQueueDescriptor, info Info) (*Splitter, error) {
	shapes, err := validateSplitter(desc)
	if err != nil {
		return nil, status.WithLayer(err, info.Name)
	}
	return &Splitter{Base: newBase(desc, info), shapes: shapes}, nil
}

func validateSplitter(desc SplitterQueueDescriptor) ([]tensor.Shape, error) {
	const op = "splitter"
	if err := validateArityAtLeast(desc.QueueDescriptor, op, 1, -1); err != nil {
		return nil, err
	}
	in := desc.Inputs[0].Info()
	axis := desc.Parameters.Axis
	if err := validateAxis(op, axis, in.Rank()); err != nil {
		return nil, err
	}

	shapes := make([]tensor.Shape, len(desc.Outputs))
	total := 0
	for i, h := range desc.Outputs {
		out := h.Info()
		if err := validateSameElements(op+" output data type", in, out); err != nil {
			return nil, err
		}
		if err := validateAlongAxis(op+" output shape", in.Shape, out.Shape, axis); err != nil {
			return nil, err
		}
		shapes[i] = out.Shape
		total += out.Shape[axis]
	}
	if total != in.Shape[axis] {
		return nil, status.Errorf(status.StatusIncompatibleTensorInfo,
			"%s: outputs cover %d of %d elements along axis %d", op, total, in.Shape[axis], axis)
	}
	return shapes, nil
}

// Execute runs the operator
func (w *Splitter) Execute() {
	in := w.data.Inputs[0]
	dsts := make([][]byte, len(w.data.Outputs))
	for i, h := range w.data.Outputs {
		dsts[i] = h.Bytes()
	}
	kernels.Split(in.Bytes(), in.Info().Shape, dsts, w.shapes, w.data.Parameters.Axis, in.Info().DataType.Size())
}

// ConcatQueueDescriptor binds a concatenation layer
type ConcatQueueDescriptor struct {
	QueueDescriptor
	Parameters descriptor.Concat
}

// Concat joins its inputs along an axis in slot order
type Concat struct {
	Base[ConcatQueueDescriptor]
	shapes []tensor.Shape
}

// NewConcat creates a concatenation workload
func NewConcat(desc ConcatQueueDescriptor, info Info) (*Concat, error) {
	shapes, err := validateConcat(desc)
	if err != nil {
		return nil, status.WithLayer(err, info.Name)
	}
	return &Concat{Base: newBase(desc, info), shapes: shapes}, nil
}

func validateConcat(desc ConcatQueueDescriptor) ([]tensor.Shape, error) {
	const op = "concat"
	if err := validateArityAtLeast(desc.QueueDescriptor, op, -1, 1); err != nil {
		return nil, err
	}
	out := desc.Outputs[0].Info()
	axis := desc.Parameters.Axis
	if err := validateAxis(op, axis, out.Rank()); err != nil {
		return nil, err
	}

	shapes := make([]tensor.Shape, len(desc.Inputs))
	total := 0
	for i, h := range desc.Inputs {
		in := h.Info()
		if err := validateSameElements(op+" input data type", out, in); err != nil {
			return nil, err
		}
		if err := validateAlongAxis(op+" input shape", out.Shape, in.Shape, axis); err != nil {
			return nil, err
		}
		shapes[i] = in.Shape
		total += in.Shape[axis]
	}
	if total != out.Shape[axis] {
		expected := out.Shape.Clone()
		expected[axis] = total
		return nil, status.Mismatch(op+" output shape", expected, out.Shape)
	}
	return shapes, nil
}

// Execute runs the operator
func (w *Concat) Execute() {
	out := w.data.Outputs[0]
	srcs := make([][]byte, len(w.data.Inputs))
	for i, h := range w.data.Inputs {
		srcs[i] = h.Bytes()
	}
	kernels.Concat(srcs, w.shapes, out.Bytes(), out.Info().Shape, w.data.Parameters.Axis, out.Info().DataType.Size())
}

// ReshapeQueueDescriptor binds a reshape layer
type ReshapeQueueDescriptor struct {
	QueueDescriptor
	Parameters descriptor.Reshape
}

// Reshape copies its input into an output of a different shape
type Reshape struct {
	Base[ReshapeQueueDescriptor]
}

// NewReshape creates a reshape workload
func NewReshape(desc ReshapeQueueDescriptor, info Info) (*Reshape, error) {
	if err := validateReshape(desc); err != nil {
		return nil, status.WithLayer(err, info.Name)
	}
	return &Reshape{Base: newBase(desc, info)}, nil
}

func validateReshape(desc ReshapeQueueDescriptor) error {
	const op = "reshape"
	if err := validateArity(desc.QueueDescriptor, op, 1, 1); err != nil {
		return err
	}
	in, out := desc.Inputs[0].Info(), desc.Outputs[0].Info()
	if err := validateSameElements(op+" output data type", in, out); err != nil {
		return err
	}
	if in.NumElements() != out.NumElements() {
		return status.Mismatch(op+" element count", in.Shape, out.Shape)
	}
	return validateShape(op+" output shape", desc.Parameters.TargetShape, out.Shape)
}

// Execute runs the operator
func (w *Reshape) Execute() {
	copy(w.data.Outputs[0].Bytes(), w.data.Inputs[0].Bytes())
}

// MemCopyQueueDescriptor binds a plain copy between two tensors of equal
// info. Graph input and output layers use it to move data between staging
// handles and the network.
type MemCopyQueueDescriptor struct {
	QueueDescriptor
}

// MemCopy copies its input to its output
type MemCopy struct {
	Base[MemCopyQueueDescriptor]
}

// NewMemCopy creates a copy workload
func NewMemCopy(desc MemCopyQueueDescriptor, info Info) (*MemCopy, error) {
	const op = "copy"
	if err := validateArity(desc.QueueDescriptor, op, 1, 1); err != nil {
		return nil, status.WithLayer(err, info.Name)
	}
	if err := validateInfo(op+" output", desc.Inputs[0].Info(), desc.Outputs[0].Info()); err != nil {
		return nil, status.WithLayer(err, info.Name)
	}
	return &MemCopy{Base: newBase(desc, info)}, nil
}

// Execute runs the operator
func (w *MemCopy) Execute() {
	copy(w.data.Outputs[0].Bytes(), w.data.Inputs[0].Bytes())
}

// ConstantQueueDescriptor binds a constant layer and its value
type ConstantQueueDescriptor struct {
	QueueDescriptor
	Value *memory.ConstTensorHandle
}

// Constant writes a fixed tensor to its output
type Constant struct {
	Base[ConstantQueueDescriptor]
}

// NewConstant creates a constant workload
func NewConstant(desc ConstantQueueDescriptor, info Info) (*Constant, error) {
	const op = "constant"
	if err := validateArity(desc.QueueDescriptor, op, 0, 1); err != nil {
		return nil, status.WithLayer(err, info.Name)
	}
	if err := validateConstant(desc.Value, op, "value"); err != nil {
		return nil, status.WithLayer(err, info.Name)
	}
	if err := validateInfo(op+" output", desc.Value.Info(), desc.Outputs[0].Info()); err != nil {
		return nil, status.WithLayer(err, info.Name)
	}
	return &Constant{Base: newBase(desc, info)}, nil
}

// Execute runs the operator
func (w *Constant) Execute() {
	copy(w.data.Outputs[0].Bytes(), w.data.Value.Bytes())
}
