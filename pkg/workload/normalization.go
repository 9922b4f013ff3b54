package workload

import (
	"github.com/emergingrobotics/go-refnn/pkg/descriptor"
	"github.com/emergingrobotics/go-refnn/pkg/kernels"
	"github.com/emergingrobotics/go-refnn/pkg/memory"
	"github.com/emergingrobotics/go-refnn/pkg/status"
)

// BatchNormalizationQueueDescriptor binds a batch normalization layer and
// its per-channel statistics.
type BatchNormalizationQueueDescriptor struct {
	QueueDescriptor
	Parameters descriptor.BatchNormalization
	Mean       *memory.ConstTensorHandle
	Variance   *memory.ConstTensorHandle
	Beta       *memory.ConstTensorHandle
	Gamma      *memory.ConstTensorHandle
}

// BatchNormalization normalizes each channel with fixed statistics
type BatchNormalization struct {
	Base[BatchNormalizationQueueDescriptor]

	dims                        kernels.Dims4
	mean, variance, beta, gamma []float32
	in, out                     buffer
}

// NewBatchNormalization creates a batch normalization workload
func NewBatchNormalization(desc BatchNormalizationQueueDescriptor, info Info) (*BatchNormalization, error) {
	if err := validateBatchNormalization(desc); err != nil {
		return nil, status.WithLayer(err, info.Name)
	}
	return &BatchNormalization{
		Base:     newBase(desc, info),
		dims:     kernels.NewDims4(desc.Parameters.DataLayout, desc.Inputs[0].Info().Shape),
		mean:     constValues(desc.Mean),
		variance: constValues(desc.Variance),
		beta:     constValues(desc.Beta),
		gamma:    constValues(desc.Gamma),
		in:       newBuffer(desc.Inputs[0]),
		out:      newBuffer(desc.Outputs[0]),
	}, nil
}

func validateBatchNormalization(desc BatchNormalizationQueueDescriptor) error {
	const op = "batch normalization"
	if err := validateUnary(desc.QueueDescriptor, op); err != nil {
		return err
	}
	in := desc.Inputs[0].Info()
	if err := validate4D(op, in, desc.Outputs[0].Info()); err != nil {
		return err
	}

	_, channels, _, _ := desc.Parameters.DataLayout.Dims(in.Shape)
	stats := []struct {
		name string
		h    *memory.ConstTensorHandle
	}{
		{"mean", desc.Mean},
		{"variance", desc.Variance},
		{"beta", desc.Beta},
		{"gamma", desc.Gamma},
	}
	for _, s := range stats {
		if err := validateConstant(s.h, op, s.name); err != nil {
			return err
		}
		if err := validateChannelTensor(op+" "+s.name, s.h, channels); err != nil {
			return err
		}
	}
	return nil
}

// Execute runs the operator
func (w *BatchNormalization) Execute() {
	kernels.BatchNormalization(w.in.load(w.data.Inputs[0]), w.out,
		w.mean, w.variance, w.beta, w.gamma, w.data.Parameters.Eps, w.dims)
	w.out.store(w.data.Outputs[0])
}

// NormalizationQueueDescriptor binds a local response normalization layer
type NormalizationQueueDescriptor struct {
	QueueDescriptor
	Parameters descriptor.Normalization
}

// Normalization computes local response normalization
type Normalization struct {
	Base[NormalizationQueueDescriptor]
	dims    kernels.Dims4
	in, out buffer
}

// NewNormalization creates a normalization workload. Only the
// local-brightness method has a reference kernel.
func NewNormalization(desc NormalizationQueueDescriptor, info Info) (*Normalization, error) {
	if err := validateNormalization(desc); err != nil {
		return nil, status.WithLayer(err, info.Name)
	}
	return &Normalization{
		Base: newBase(desc, info),
		dims: kernels.NewDims4(desc.Parameters.DataLayout, desc.Inputs[0].Info().Shape),
		in:   newBuffer(desc.Inputs[0]),
		out:  newBuffer(desc.Outputs[0]),
	}, nil
}

func validateNormalization(desc NormalizationQueueDescriptor) error {
	const op = "normalization"
	if err := validateUnary(desc.QueueDescriptor, op); err != nil {
		return err
	}
	if err := validate4D(op, desc.Inputs[0].Info(), desc.Outputs[0].Info()); err != nil {
		return err
	}
	if desc.Parameters.MethodType != descriptor.NormalizationLocalBrightness {
		return status.NewError(status.StatusUnsupportedOperator, "local contrast normalization")
	}
	if desc.Parameters.NormSize <= 0 {
		return status.Errorf(status.StatusInvalidGraph, "%s: window size %d", op, desc.Parameters.NormSize)
	}
	return nil
}

// Execute runs the operator
func (w *Normalization) Execute() {
	kernels.LocalBrightness(w.in.load(w.data.Inputs[0]), w.out, w.data.Parameters, w.dims)
	w.out.store(w.data.Outputs[0])
}

// L2NormalizationQueueDescriptor binds an L2 normalization layer
type L2NormalizationQueueDescriptor struct {
	QueueDescriptor
	Parameters descriptor.L2Normalization
}

// L2Normalization scales channel vectors to unit length
type L2Normalization struct {
	Base[L2NormalizationQueueDescriptor]
	dims    kernels.Dims4
	in, out buffer
}

// NewL2Normalization creates an L2 normalization workload
func NewL2Normalization(desc L2NormalizationQueueDescriptor, info Info) (*L2Normalization, error) {
	const op = "l2 normalization"
	if err := validateUnary(desc.QueueDescriptor, op); err != nil {
		return nil, status.WithLayer(err, info.Name)
	}
	if err := validate4D(op, desc.Inputs[0].Info(), desc.Outputs[0].Info()); err != nil {
		return nil, status.WithLayer(err, info.Name)
	}
	return &L2Normalization{
		Base: newBase(desc, info),
		dims: kernels.NewDims4(desc.Parameters.DataLayout, desc.Inputs[0].Info().Shape),
		in:   newBuffer(desc.Inputs[0]),
		out:  newBuffer(desc.Outputs[0]),
	}, nil
}

// Execute runs the operator
func (w *L2Normalization) Execute() {
	kernels.L2Normalization(w.in.load(w.data.Inputs[0]), w.out, w.data.Parameters.Eps, w.dims)
	w.out.store(w.data.Outputs[0])
}
