package workload

import (
	"github.com/emergingrobotics/go-refnn/pkg/kernels"
	"github.com/emergingrobotics/go-refnn/pkg/status"
	"github.com/emergingrobotics/go-refnn/pkg/tensor"
)

// ElementwiseQueueDescriptor binds two inputs and one output
type ElementwiseQueueDescriptor struct {
	QueueDescriptor
}

// Elementwise applies a binary operator with broadcasting. Addition,
// subtraction, multiplication, division, maximum and minimum share it.
type Elementwise struct {
	Base[ElementwiseQueueDescriptor]

	fn       kernels.BinaryFunc
	a, b     buffer
	out      buffer
	outShape tensor.Shape
}

// NewAddition creates an addition workload
func NewAddition(desc ElementwiseQueueDescriptor, info Info) (*Elementwise, error) {
	return newElementwise(desc, info, "addition", kernels.Add)
}

// NewSubtraction creates a subtraction workload
func NewSubtraction(desc ElementwiseQueueDescriptor, info Info) (*Elementwise, error) {
	return newElementwise(desc, info, "subtraction", kernels.Sub)
}

// NewMultiplication creates a multiplication workload
func NewMultiplication(desc ElementwiseQueueDescriptor, info Info) (*Elementwise, error) {
	return newElementwise(desc, info, "multiplication", kernels.Mul)
}

// NewDivision creates a division workload
func NewDivision(desc ElementwiseQueueDescriptor, info Info) (*Elementwise, error) {
	return newElementwise(desc, info, "division", kernels.Div)
}

// NewMaximum creates an element-wise maximum workload
func NewMaximum(desc ElementwiseQueueDescriptor, info Info) (*Elementwise, error) {
	return newElementwise(desc, info, "maximum", kernels.Max)
}

// NewMinimum creates an element-wise minimum workload
func NewMinimum(desc ElementwiseQueueDescriptor, info Info) (*Elementwise, error) {
	return newElementwise(desc, info, "minimum", kernels.Min)
}

func newElementwise(desc ElementwiseQueueDescriptor, info Info, op string, fn kernels.BinaryFunc) (*Elementwise, error) {
	if err := validateElementwise(desc.QueueDescriptor, op); err != nil {
		return nil, status.WithLayer(err, info.Name)
	}
	return &Elementwise{
		Base:     newBase(desc, info),
		fn:       fn,
		a:        newBuffer(desc.Inputs[0]),
		b:        newBuffer(desc.Inputs[1]),
		out:      newBuffer(desc.Outputs[0]),
		outShape: desc.Outputs[0].Info().Shape,
	}, nil
}

func validateElementwise(q QueueDescriptor, op string) error {
	if err := validateArity(q, op, 2, 1); err != nil {
		return err
	}
	a, b, out := q.Inputs[0].Info(), q.Inputs[1].Info(), q.Outputs[0].Info()

	for _, t := range []tensor.Info{a, b, out} {
		if err := validateDataType(op+" data type", t, arithmeticTypes...); err != nil {
			return err
		}
	}
	if err := validateSameDataType(op+" second input data type", a, b); err != nil {
		return err
	}
	if err := validateSameDataType(op+" output data type", a, out); err != nil {
		return err
	}

	if a.Rank() != b.Rank() || a.Rank() != out.Rank() {
		return status.Mismatch(op+" ranks", rankOf(out.Rank()), rankOf(b.Rank()))
	}
	expected := make(tensor.Shape, a.Rank())
	for d := range expected {
		x, y := a.Shape[d], b.Shape[d]
		if x != y && x != 1 && y != 1 {
			return status.Mismatch(op+" broadcast", a.Shape, b.Shape)
		}
		expected[d] = max(x, y)
	}
	return validateShape(op+" output shape", expected, out.Shape)
}

// Execute runs the operator
func (w *Elementwise) Execute() {
	a, b := w.data.Inputs[0], w.data.Inputs[1]
	kernels.Broadcast(w.fn,
		w.a.load(a), a.Info().Shape,
		w.b.load(b), b.Info().Shape,
		w.out, w.outShape)
	w.out.store(w.data.Outputs[0])
}
