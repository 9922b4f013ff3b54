package workload

import (
	"github.com/emergingrobotics/go-refnn/pkg/descriptor"
	"github.com/emergingrobotics/go-refnn/pkg/kernels"
	"github.com/emergingrobotics/go-refnn/pkg/status"
	"github.com/emergingrobotics/go-refnn/pkg/transform"
)

// Pooling2dQueueDescriptor binds a pooling layer
type Pooling2dQueueDescriptor struct {
	QueueDescriptor
	Parameters descriptor.Pooling2d
}

// Pooling2d reduces spatial windows
type Pooling2d struct {
	Base[Pooling2dQueueDescriptor]
	inDims, outDims kernels.Dims4
	in, out         buffer
}

// NewPooling2d creates a pooling workload
func NewPooling2d(desc Pooling2dQueueDescriptor, info Info) (*Pooling2d, error) {
	if err := validatePooling2d(desc); err != nil {
		return nil, status.WithLayer(err, info.Name)
	}
	layout := desc.Parameters.DataLayout
	return &Pooling2d{
		Base:    newBase(desc, info),
		inDims:  kernels.NewDims4(layout, desc.Inputs[0].Info().Shape),
		outDims: kernels.NewDims4(layout, desc.Outputs[0].Info().Shape),
		in:      newBuffer(desc.Inputs[0]),
		out:     newBuffer(desc.Outputs[0]),
	}, nil
}

func validatePooling2d(desc Pooling2dQueueDescriptor) error {
	const op = "pooling"
	if err := validateArity(desc.QueueDescriptor, op, 1, 1); err != nil {
		return err
	}
	in, out := desc.Inputs[0].Info(), desc.Outputs[0].Info()
	if err := validateDataType(op+" data type", in, arithmeticTypes...); err != nil {
		return err
	}
	if err := validateSameDataType(op+" output data type", in, out); err != nil {
		return err
	}
	if err := validate4D(op, in, out); err != nil {
		return err
	}

	p := desc.Parameters
	if p.StrideX <= 0 || p.StrideY <= 0 || p.PoolWidth <= 0 || p.PoolHeight <= 0 {
		return status.Errorf(status.StatusInvalidGraph, "%s: window %dx%d with stride %dx%d",
			op, p.PoolWidth, p.PoolHeight, p.StrideX, p.StrideY)
	}
	n, c, h, w := p.DataLayout.Dims(in.Shape)
	outH := kernels.PooledSize(h, p.PadTop, p.PadBottom, p.PoolHeight, p.StrideY, p.Rounding)
	outW := kernels.PooledSize(w, p.PadLeft, p.PadRight, p.PoolWidth, p.StrideX, p.Rounding)
	return validateShape(op+" output shape", p.DataLayout.Shape(n, c, outH, outW), out.Shape)
}

// Execute runs the operator
func (w *Pooling2d) Execute() {
	kernels.Pooling2d(w.in.load(w.data.Inputs[0]), w.out, w.data.Parameters, w.inDims, w.outDims)
	w.out.store(w.data.Outputs[0])
}

// ResizeBilinearQueueDescriptor binds a bilinear resize layer
type ResizeBilinearQueueDescriptor struct {
	QueueDescriptor
	Parameters descriptor.ResizeBilinear
}

// ResizeBilinear resamples the spatial plane of every channel
type ResizeBilinear struct {
	Base[ResizeBilinearQueueDescriptor]
	inDims, outDims kernels.Dims4
	in, out         buffer
}

// NewResizeBilinear creates a bilinear resize workload
func NewResizeBilinear(desc ResizeBilinearQueueDescriptor, info Info) (*ResizeBilinear, error) {
	if err := validateResizeBilinear(desc); err != nil {
		return nil, status.WithLayer(err, info.Name)
	}
	layout := desc.Parameters.DataLayout
	return &ResizeBilinear{
		Base:    newBase(desc, info),
		inDims:  kernels.NewDims4(layout, desc.Inputs[0].Info().Shape),
		outDims: kernels.NewDims4(layout, desc.Outputs[0].Info().Shape),
		in:      newBuffer(desc.Inputs[0]),
		out:     newBuffer(desc.Outputs[0]),
	}, nil
}

func validateResizeBilinear(desc ResizeBilinearQueueDescriptor) error {
	const op = "resize bilinear"
	if err := validateArity(desc.QueueDescriptor, op, 1, 1); err != nil {
		return err
	}
	in, out := desc.Inputs[0].Info(), desc.Outputs[0].Info()
	if err := validateDataType(op+" data type", in, arithmeticTypes...); err != nil {
		return err
	}
	if err := validateSameDataType(op+" output data type", in, out); err != nil {
		return err
	}
	if err := validate4D(op, in, out); err != nil {
		return err
	}
	p := desc.Parameters
	n, c, _, _ := p.DataLayout.Dims(in.Shape)
	return validateShape(op+" output shape", p.DataLayout.Shape(n, c, p.TargetHeight, p.TargetWidth), out.Shape)
}

// Execute runs the operator
func (w *ResizeBilinear) Execute() {
	in, out := w.inDims, w.outDims
	transform.ResizeBilinear(w.in.load(w.data.Inputs[0]), w.out, in.Layout,
		in.Batch, in.Channels, in.Height, in.Width, out.Height, out.Width)
	w.out.store(w.data.Outputs[0])
}
