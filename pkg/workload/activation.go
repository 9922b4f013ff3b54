package workload

import (
	"github.com/emergingrobotics/go-refnn/pkg/descriptor"
	"github.com/emergingrobotics/go-refnn/pkg/kernels"
	"github.com/emergingrobotics/go-refnn/pkg/status"
)

// ActivationQueueDescriptor binds an activation layer
type ActivationQueueDescriptor struct {
	QueueDescriptor
	Parameters descriptor.Activation
}

// Activation applies an activation function
type Activation struct {
	Base[ActivationQueueDescriptor]
	in, out buffer
}

// NewActivation creates an activation workload
func NewActivation(desc ActivationQueueDescriptor, info Info) (*Activation, error) {
	if err := validateUnary(desc.QueueDescriptor, "activation"); err != nil {
		return nil, status.WithLayer(err, info.Name)
	}
	return &Activation{
		Base: newBase(desc, info),
		in:   newBuffer(desc.Inputs[0]),
		out:  newBuffer(desc.Outputs[0]),
	}, nil
}

// Execute runs the operator
func (w *Activation) Execute() {
	kernels.Activation(w.in.load(w.data.Inputs[0]), w.out, w.data.Parameters)
	w.out.store(w.data.Outputs[0])
}

// validateUnary is the rule for 1:1 element-wise operators
func validateUnary(q QueueDescriptor, op string) error {
	if err := validateArity(q, op, 1, 1); err != nil {
		return err
	}
	in, out := q.Inputs[0].Info(), q.Outputs[0].Info()
	if err := validateDataType(op+" data type", in, arithmeticTypes...); err != nil {
		return err
	}
	return validateSameShapeAndType(op, in, out)
}

// UnaryQueueDescriptor binds a parameterless element-wise layer
type UnaryQueueDescriptor struct {
	QueueDescriptor
}

// Unary applies a parameterless element-wise function such as rsqrt or
// floor.
type Unary struct {
	Base[UnaryQueueDescriptor]
	kernel  func(in, out []float32)
	in, out buffer
}

// NewRsqrt creates a reciprocal square root workload
func NewRsqrt(desc UnaryQueueDescriptor, info Info) (*Unary, error) {
	return newUnary(desc, info, "rsqrt", kernels.Rsqrt)
}

// NewFloor creates a floor workload
func NewFloor(desc UnaryQueueDescriptor, info Info) (*Unary, error) {
	return newUnary(desc, info, "floor", kernels.Floor)
}

func newUnary(desc UnaryQueueDescriptor, info Info, op string, kernel func(in, out []float32)) (*Unary, error) {
	if err := validateUnary(desc.QueueDescriptor, op); err != nil {
		return nil, status.WithLayer(err, info.Name)
	}
	return &Unary{
		Base:   newBase(desc, info),
		kernel: kernel,
		in:     newBuffer(desc.Inputs[0]),
		out:    newBuffer(desc.Outputs[0]),
	}, nil
}

// Execute runs the operator
func (w *Unary) Execute() {
	w.kernel(w.in.load(w.data.Inputs[0]), w.out)
	w.out.store(w.data.Outputs[0])
}

// SoftmaxQueueDescriptor binds a softmax layer
type SoftmaxQueueDescriptor struct {
	QueueDescriptor
	Parameters descriptor.Softmax
}

// Softmax normalizes the innermost axis
type Softmax struct {
	Base[SoftmaxQueueDescriptor]
	in, out buffer
	rowLen  int
}

// NewSoftmax creates a softmax workload
func NewSoftmax(desc SoftmaxQueueDescriptor, info Info) (*Softmax, error) {
	if err := validateUnary(desc.QueueDescriptor, "softmax"); err != nil {
		return nil, status.WithLayer(err, info.Name)
	}
	shape := desc.Inputs[0].Info().Shape
	rowLen := 1
	if shape.Rank() > 0 {
		rowLen = shape[shape.Rank()-1]
	}
	return &Softmax{
		Base:   newBase(desc, info),
		in:     newBuffer(desc.Inputs[0]),
		out:    newBuffer(desc.Outputs[0]),
		rowLen: rowLen,
	}, nil
}

// Execute runs the operator
func (w *Softmax) Execute() {
	kernels.Softmax(w.in.load(w.data.Inputs[0]), w.out, w.rowLen, w.data.Parameters.Beta)
	w.out.store(w.data.Outputs[0])
}
