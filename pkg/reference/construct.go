package reference

import (
	"github.com/emergingrobotics/go-refnn/pkg/descriptor"
	"github.com/emergingrobotics/go-refnn/pkg/graph"
	"github.com/emergingrobotics/go-refnn/pkg/status"
	"github.com/emergingrobotics/go-refnn/pkg/workload"
)

// params returns the parameters of l as P
func params[P descriptor.Descriptor](l *graph.Layer) (P, error) {
	p, ok := l.Params().(P)
	if !ok {
		var zero P
		return zero, status.Errorf(status.StatusInvalidGraph, "%s layer carries %T parameters, want %T", l.Type(), l.Params(), zero)
	}
	return p, nil
}

// checked drops the typed nil a failed constructor returns
func checked(w workload.Workload, err error) (workload.Workload, error) {
	if err != nil {
		return nil, err
	}
	return w, nil
}

// construct builds the operator queue descriptor for l and hands it to
// the workload constructor, which validates it.
func (f *WorkloadFactory) construct(l *graph.Layer, q workload.QueueDescriptor, info workload.Info) (workload.Workload, error) {
	c := l.Constants()

	switch l.Type() {
	case graph.LayerInput, graph.LayerOutput:
		if _, err := params[descriptor.Binding](l); err != nil {
			return nil, err
		}
		return checked(workload.NewMemCopy(workload.MemCopyQueueDescriptor{QueueDescriptor: q}, info))

	case graph.LayerActivation:
		p, err := params[descriptor.Activation](l)
		if err != nil {
			return nil, err
		}
		return checked(workload.NewActivation(workload.ActivationQueueDescriptor{QueueDescriptor: q, Parameters: p}, info))

	case graph.LayerAddition:
		return checked(workload.NewAddition(workload.ElementwiseQueueDescriptor{QueueDescriptor: q}, info))
	case graph.LayerSubtraction:
		return checked(workload.NewSubtraction(workload.ElementwiseQueueDescriptor{QueueDescriptor: q}, info))
	case graph.LayerMultiplication:
		return checked(workload.NewMultiplication(workload.ElementwiseQueueDescriptor{QueueDescriptor: q}, info))
	case graph.LayerDivision:
		return checked(workload.NewDivision(workload.ElementwiseQueueDescriptor{QueueDescriptor: q}, info))
	case graph.LayerMaximum:
		return checked(workload.NewMaximum(workload.ElementwiseQueueDescriptor{QueueDescriptor: q}, info))
	case graph.LayerMinimum:
		return checked(workload.NewMinimum(workload.ElementwiseQueueDescriptor{QueueDescriptor: q}, info))

	case graph.LayerBatchNormalization:
		p, err := params[descriptor.BatchNormalization](l)
		if err != nil {
			return nil, err
		}
		return checked(workload.NewBatchNormalization(workload.BatchNormalizationQueueDescriptor{
			QueueDescriptor: q,
			Parameters:      p,
			Mean:            c.Mean,
			Variance:        c.Variance,
			Beta:            c.Beta,
			Gamma:           c.Gamma,
		}, info))

	case graph.LayerConvolution2d:
		p, err := params[descriptor.Convolution2d](l)
		if err != nil {
			return nil, err
		}
		return checked(workload.NewConvolution2d(workload.Convolution2dQueueDescriptor{
			QueueDescriptor: q, Parameters: p, Weight: c.Weight, Bias: c.Bias,
		}, info))

	case graph.LayerDepthwiseConvolution2d:
		p, err := params[descriptor.DepthwiseConvolution2d](l)
		if err != nil {
			return nil, err
		}
		return checked(workload.NewDepthwiseConvolution2d(workload.DepthwiseConvolution2dQueueDescriptor{
			QueueDescriptor: q, Parameters: p, Weight: c.Weight, Bias: c.Bias,
		}, info))

	case graph.LayerFullyConnected:
		p, err := params[descriptor.FullyConnected](l)
		if err != nil {
			return nil, err
		}
		return checked(workload.NewFullyConnected(workload.FullyConnectedQueueDescriptor{
			QueueDescriptor: q, Parameters: p, Weight: c.Weight, Bias: c.Bias,
		}, info))

	case graph.LayerNormalization:
		p, err := params[descriptor.Normalization](l)
		if err != nil {
			return nil, err
		}
		return checked(workload.NewNormalization(workload.NormalizationQueueDescriptor{QueueDescriptor: q, Parameters: p}, info))

	case graph.LayerPooling2d:
		p, err := params[descriptor.Pooling2d](l)
		if err != nil {
			return nil, err
		}
		return checked(workload.NewPooling2d(workload.Pooling2dQueueDescriptor{QueueDescriptor: q, Parameters: p}, info))

	case graph.LayerSoftmax:
		p, err := params[descriptor.Softmax](l)
		if err != nil {
			return nil, err
		}
		return checked(workload.NewSoftmax(workload.SoftmaxQueueDescriptor{QueueDescriptor: q, Parameters: p}, info))

	case graph.LayerSplitter:
		p, err := params[descriptor.Splitter](l)
		if err != nil {
			return nil, err
		}
		return checked(workload.NewSplitter(workload.SplitterQueueDescriptor{QueueDescriptor: q, Parameters: p}, info))

	case graph.LayerConcat:
		p, err := params[descriptor.Concat](l)
		if err != nil {
			return nil, err
		}
		return checked(workload.NewConcat(workload.ConcatQueueDescriptor{QueueDescriptor: q, Parameters: p}, info))

	case graph.LayerReshape:
		p, err := params[descriptor.Reshape](l)
		if err != nil {
			return nil, err
		}
		return checked(workload.NewReshape(workload.ReshapeQueueDescriptor{QueueDescriptor: q, Parameters: p}, info))

	case graph.LayerResizeBilinear:
		p, err := params[descriptor.ResizeBilinear](l)
		if err != nil {
			return nil, err
		}
		return checked(workload.NewResizeBilinear(workload.ResizeBilinearQueueDescriptor{QueueDescriptor: q, Parameters: p}, info))

	case graph.LayerConstant:
		return checked(workload.NewConstant(workload.ConstantQueueDescriptor{QueueDescriptor: q, Value: c.Value}, info))

	case graph.LayerRsqrt:
		return checked(workload.NewRsqrt(workload.UnaryQueueDescriptor{QueueDescriptor: q}, info))
	case graph.LayerFloor:
		return checked(workload.NewFloor(workload.UnaryQueueDescriptor{QueueDescriptor: q}, info))

	case graph.LayerL2Normalization:
		p, err := params[descriptor.L2Normalization](l)
		if err != nil {
			return nil, err
		}
		return checked(workload.NewL2Normalization(workload.L2NormalizationQueueDescriptor{QueueDescriptor: q, Parameters: p}, info))

	case graph.LayerConvertFp16ToFp32:
		return checked(workload.NewConvertFp16ToFp32(workload.ConvertQueueDescriptor{QueueDescriptor: q}, info))
	case graph.LayerConvertFp32ToFp16:
		return checked(workload.NewConvertFp32ToFp16(workload.ConvertQueueDescriptor{QueueDescriptor: q}, info))
	}

	return nil, status.Errorf(status.StatusUnsupportedOperator, "%s", l.Type())
}
