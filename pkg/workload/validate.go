package workload

import (
	"fmt"
	"math"

	"github.com/emergingrobotics/go-refnn/pkg/memory"
	"github.com/emergingrobotics/go-refnn/pkg/status"
	"github.com/emergingrobotics/go-refnn/pkg/tensor"
)

var arithmeticTypes = []tensor.DataType{
	tensor.DataTypeFloat32,
	tensor.DataTypeQAsymm8,
	tensor.DataTypeQSymm16,
}

// validateArity checks handle counts and that no handle is nil
func validateArity(q QueueDescriptor, op string, inputs, outputs int) error {
	if len(q.Inputs) != inputs || len(q.Outputs) != outputs {
		return status.Errorf(status.StatusInvalidGraph,
			"%s: expected %d inputs and %d outputs, got %d and %d",
			op, inputs, outputs, len(q.Inputs), len(q.Outputs))
	}
	return validateHandles(q, op)
}

// validateArityAtLeast is validateArity for variadic sides. A negative
// count requires at least one handle on that side.
func validateArityAtLeast(q QueueDescriptor, op string, inputs, outputs int) error {
	ok := func(n, want int) bool {
		if want < 0 {
			return n >= 1
		}
		return n == want
	}
	if !ok(len(q.Inputs), inputs) || !ok(len(q.Outputs), outputs) {
		return status.Errorf(status.StatusInvalidGraph,
			"%s: unexpected handle counts, got %d inputs and %d outputs",
			op, len(q.Inputs), len(q.Outputs))
	}
	return validateHandles(q, op)
}

func validateHandles(q QueueDescriptor, op string) error {
	for i, h := range q.Inputs {
		if h == nil {
			return status.Errorf(status.StatusInvalidGraph, "%s: input %d is not bound", op, i)
		}
	}
	for i, h := range q.Outputs {
		if h == nil {
			return status.Errorf(status.StatusInvalidGraph, "%s: output %d is not bound", op, i)
		}
	}
	return nil
}

func validateConstant(h *memory.ConstTensorHandle, op, name string) error {
	if h == nil {
		return status.Errorf(status.StatusInvalidGraph, "%s: %s tensor is not set", op, name)
	}
	return nil
}

func validateShape(ctx string, expected, actual tensor.Shape) error {
	if !expected.Equal(actual) {
		return status.Mismatch(ctx, expected, actual)
	}
	return nil
}

func validateRank(ctx string, info tensor.Info, rank int) error {
	if info.Rank() != rank {
		return status.Mismatch(ctx, rankOf(rank), rankOf(info.Rank()))
	}
	return nil
}

func validateDataType(ctx string, info tensor.Info, allowed ...tensor.DataType) error {
	for _, dt := range allowed {
		if info.DataType == dt {
			return nil
		}
	}
	return status.Mismatch(ctx, dataTypes(allowed), info.DataType)
}

func validateSameDataType(ctx string, expected, actual tensor.Info) error {
	if expected.DataType != actual.DataType {
		return status.Mismatch(ctx, expected.DataType, actual.DataType)
	}
	return nil
}

func validateInfo(ctx string, expected, actual tensor.Info) error {
	if !expected.Equal(actual) {
		return status.Mismatch(ctx, expected, actual)
	}
	return nil
}

// validateSameShapeAndType is the common rule of 1:1 operators
func validateSameShapeAndType(op string, in, out tensor.Info) error {
	if err := validateShape(op+" output shape", in.Shape, out.Shape); err != nil {
		return err
	}
	return validateSameDataType(op+" output data type", in, out)
}

// validateChannelTensor checks a 1D per-channel tensor such as a bias or
// a batch-norm statistic.
func validateChannelTensor(ctx string, h *memory.ConstTensorHandle, channels int) error {
	return validateShape(ctx, tensor.Shape{channels}, h.Info().Shape)
}

// validateBiasQuantization requires quantized biases to be Signed32 with
// scale input.Scale * weight.Scale.
func validateBiasQuantization(ctx string, input, weight, bias tensor.Info) error {
	if !input.DataType.IsQuantized() {
		return validateSameDataType(ctx, input, bias)
	}
	expected := tensor.NewQuantizedInfo(bias.Shape, tensor.DataTypeSigned32, input.Quant.Scale*weight.Quant.Scale, 0)
	if bias.DataType != tensor.DataTypeSigned32 || bias.Quant.Offset != 0 ||
		!scalesMatch(expected.Quant.Scale, bias.Quant.Scale) {
		return status.Mismatch(ctx, expected, bias)
	}
	return nil
}

func scalesMatch(a, b float32) bool {
	return math.Abs(float64(a-b)) <= 1e-6*math.Max(1, math.Abs(float64(a)))
}

func validate4D(op string, in, out tensor.Info) error {
	if err := validateRank(op+" input", in, 4); err != nil {
		return err
	}
	return validateRank(op+" output", out, 4)
}

type rankOf int

func (r rankOf) String() string { return fmt.Sprintf("rank %d", int(r)) }

type dataTypes []tensor.DataType

func (d dataTypes) String() string {
	return fmt.Sprint([]tensor.DataType(d))
}
