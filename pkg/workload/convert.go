package workload

import (
	"github.com/emergingrobotics/go-refnn/pkg/status"
	"github.com/emergingrobotics/go-refnn/pkg/tensor"
)

// ConvertQueueDescriptor binds a precision conversion layer
type ConvertQueueDescriptor struct {
	QueueDescriptor
}

// Convert re-encodes its input in a different floating point precision
type Convert struct {
	Base[ConvertQueueDescriptor]
	values buffer
}

// NewConvertFp16ToFp32 creates a Float16 to Float32 conversion workload
func NewConvertFp16ToFp32(desc ConvertQueueDescriptor, info Info) (*Convert, error) {
	return newConvert(desc, info, "fp16 to fp32", tensor.DataTypeFloat16, tensor.DataTypeFloat32)
}

// NewConvertFp32ToFp16 creates a Float32 to Float16 conversion workload
func NewConvertFp32ToFp16(desc ConvertQueueDescriptor, info Info) (*Convert, error) {
	return newConvert(desc, info, "fp32 to fp16", tensor.DataTypeFloat32, tensor.DataTypeFloat16)
}

func newConvert(desc ConvertQueueDescriptor, info Info, op string, from, to tensor.DataType) (*Convert, error) {
	if err := validateConvert(desc.QueueDescriptor, op, from, to); err != nil {
		return nil, status.WithLayer(err, info.Name)
	}
	return &Convert{
		Base:   newBase(desc, info),
		values: newBuffer(desc.Inputs[0]),
	}, nil
}

func validateConvert(q QueueDescriptor, op string, from, to tensor.DataType) error {
	if err := validateArity(q, op, 1, 1); err != nil {
		return err
	}
	in, out := q.Inputs[0].Info(), q.Outputs[0].Info()
	if err := validateDataType(op+" input data type", in, from); err != nil {
		return err
	}
	if err := validateDataType(op+" output data type", out, to); err != nil {
		return err
	}
	return validateShape(op+" output shape", in.Shape, out.Shape)
}

// Execute runs the operator
func (w *Convert) Execute() {
	w.values.load(w.data.Inputs[0]).store(w.data.Outputs[0])
}
