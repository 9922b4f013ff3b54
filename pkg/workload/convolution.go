package workload

import (
	"github.com/emergingrobotics/go-refnn/pkg/descriptor"
	"github.com/emergingrobotics/go-refnn/pkg/kernels"
	"github.com/emergingrobotics/go-refnn/pkg/memory"
	"github.com/emergingrobotics/go-refnn/pkg/status"
	"github.com/emergingrobotics/go-refnn/pkg/tensor"
	"github.com/emergingrobotics/go-refnn/pkg/transform"
)

// Convolution2dQueueDescriptor binds a convolution layer and its weights
type Convolution2dQueueDescriptor struct {
	QueueDescriptor
	Parameters descriptor.Convolution2d
	Weight     *memory.ConstTensorHandle
	Bias       *memory.ConstTensorHandle
}

// Convolution2d computes a dense 2D convolution
type Convolution2d struct {
	Base[Convolution2dQueueDescriptor]

	shape   kernels.Conv2dShape
	weights []float32
	bias    []float32
	in, out buffer
}

// NewConvolution2d creates a convolution workload. NCHW weights are
// [O,I,H,W] and NHWC weights are [O,H,W,I].
func NewConvolution2d(desc Convolution2dQueueDescriptor, info Info) (*Convolution2d, error) {
	p := desc.Parameters
	conv := convParams{
		op: "convolution", layout: p.DataLayout, biasEnabled: p.BiasEnabled,
		padLeft: p.PadLeft, padRight: p.PadRight, padTop: p.PadTop, padBottom: p.PadBottom,
		strideX: p.StrideX, strideY: p.StrideY,
	}
	shape, err := conv.validate(desc.QueueDescriptor, desc.Weight, desc.Bias, false)
	if err != nil {
		return nil, status.WithLayer(err, info.Name)
	}

	w := &Convolution2d{
		Base:    newBase(desc, info),
		shape:   shape,
		weights: convWeights(desc.Weight, shape),
		in:      newBuffer(desc.Inputs[0]),
		out:     newBuffer(desc.Outputs[0]),
	}
	if p.BiasEnabled {
		w.bias = constValues(desc.Bias)
	}
	return w, nil
}

// Execute runs the operator
func (w *Convolution2d) Execute() {
	kernels.Convolution2d(w.in.load(w.data.Inputs[0]), w.weights, w.bias, w.out, w.shape)
	w.out.store(w.data.Outputs[0])
}

// convWeights decodes the weights into [O,I,H,W] order
func convWeights(h *memory.ConstTensorHandle, s kernels.Conv2dShape) []float32 {
	values := constValues(h)
	if s.Layout != tensor.NHWC {
		return values
	}
	oihw := make([]float32, len(values))
	transform.ConvertNHWCtoNCHW(values, oihw, s.OutChannels, s.KernelHeight, s.KernelWidth, s.InChannels)
	return oihw
}

// DepthwiseConvolution2dQueueDescriptor binds a depthwise convolution layer
type DepthwiseConvolution2dQueueDescriptor struct {
	QueueDescriptor
	Parameters descriptor.DepthwiseConvolution2d
	Weight     *memory.ConstTensorHandle
	Bias       *memory.ConstTensorHandle
}

// DepthwiseConvolution2d convolves every channel separately
type DepthwiseConvolution2d struct {
	Base[DepthwiseConvolution2dQueueDescriptor]

	shape   kernels.Conv2dShape
	weights []float32
	bias    []float32
	in, out buffer
}

// NewDepthwiseConvolution2d creates a depthwise convolution workload.
// Weights are [M,C,H,W] in both layouts.
func NewDepthwiseConvolution2d(desc DepthwiseConvolution2dQueueDescriptor, info Info) (*DepthwiseConvolution2d, error) {
	p := desc.Parameters
	conv := convParams{
		op: "depthwise convolution", layout: p.DataLayout, biasEnabled: p.BiasEnabled,
		padLeft: p.PadLeft, padRight: p.PadRight, padTop: p.PadTop, padBottom: p.PadBottom,
		strideX: p.StrideX, strideY: p.StrideY,
	}
	shape, err := conv.validate(desc.QueueDescriptor, desc.Weight, desc.Bias, true)
	if err != nil {
		return nil, status.WithLayer(err, info.Name)
	}

	w := &DepthwiseConvolution2d{
		Base:    newBase(desc, info),
		shape:   shape,
		weights: constValues(desc.Weight),
		in:      newBuffer(desc.Inputs[0]),
		out:     newBuffer(desc.Outputs[0]),
	}
	if p.BiasEnabled {
		w.bias = constValues(desc.Bias)
	}
	return w, nil
}

// Execute runs the operator
func (w *DepthwiseConvolution2d) Execute() {
	kernels.DepthwiseConvolution2d(w.in.load(w.data.Inputs[0]), w.weights, w.bias, w.out, w.shape)
	w.out.store(w.data.Outputs[0])
}

// convParams are the parameters shared by both convolution kinds
type convParams struct {
	op          string
	layout      tensor.DataLayout
	biasEnabled bool

	padLeft, padRight, padTop, padBottom int
	strideX, strideY                     int
}

func (c convParams) validate(q QueueDescriptor, weight, bias *memory.ConstTensorHandle, depthwise bool) (kernels.Conv2dShape, error) {
	var s kernels.Conv2dShape
	if err := validateArity(q, c.op, 1, 1); err != nil {
		return s, err
	}
	in, out := q.Inputs[0].Info(), q.Outputs[0].Info()
	if err := validateDataType(c.op+" data type", in, arithmeticTypes...); err != nil {
		return s, err
	}
	if err := validateSameDataType(c.op+" output data type", in, out); err != nil {
		return s, err
	}
	if err := validate4D(c.op, in, out); err != nil {
		return s, err
	}
	if err := validateConstant(weight, c.op, "weight"); err != nil {
		return s, err
	}
	w := weight.Info()
	if err := validateRank(c.op+" weight", w, 4); err != nil {
		return s, err
	}
	if err := validateSameDataType(c.op+" weight data type", in, w); err != nil {
		return s, err
	}
	if c.strideX <= 0 || c.strideY <= 0 {
		return s, status.Errorf(status.StatusInvalidGraph, "%s: stride must be positive, got %dx%d", c.op, c.strideX, c.strideY)
	}

	batch, inC, inH, inW := c.layout.Dims(in.Shape)
	var outC, kH, kW int
	if depthwise {
		// [M, C, H, W]
		if w.Shape[1] != inC {
			return s, status.Mismatch(c.op+" weight channels", tensor.Shape{w.Shape[0], inC, w.Shape[2], w.Shape[3]}, w.Shape)
		}
		outC, kH, kW = w.Shape[0]*inC, w.Shape[2], w.Shape[3]
	} else {
		weightLayout := c.layout.Index()
		outC = w.Shape[0]
		kH, kW = w.Shape[weightLayout.Height], w.Shape[weightLayout.Width]
		if w.Shape[weightLayout.Channels] != inC {
			return s, status.Mismatch(c.op+" weight channels", c.layout.Shape(outC, inC, kH, kW), w.Shape)
		}
	}

	outH := (inH+c.padTop+c.padBottom-kH)/c.strideY + 1
	outW := (inW+c.padLeft+c.padRight-kW)/c.strideX + 1
	if err := validateShape(c.op+" output shape", c.layout.Shape(batch, outC, outH, outW), out.Shape); err != nil {
		return s, err
	}

	if c.biasEnabled {
		if err := validateConstant(bias, c.op, "bias"); err != nil {
			return s, err
		}
		if err := validateChannelTensor(c.op+" bias", bias, outC); err != nil {
			return s, err
		}
		if err := validateBiasQuantization(c.op+" bias", in, w, bias.Info()); err != nil {
			return s, err
		}
	}

	return kernels.Conv2dShape{
		Layout: c.layout, Batch: batch,
		InChannels: inC, InHeight: inH, InWidth: inW,
		OutChannels: outC, OutHeight: outH, OutWidth: outW,
		KernelHeight: kH, KernelWidth: kW,
		PadTop: c.padTop, PadLeft: c.padLeft,
		StrideY: c.strideY, StrideX: c.strideX,
	}, nil
}

// FullyConnectedQueueDescriptor binds a fully connected layer
type FullyConnectedQueueDescriptor struct {
	QueueDescriptor
	Parameters descriptor.FullyConnected
	Weight     *memory.ConstTensorHandle
	Bias       *memory.ConstTensorHandle
}

// FullyConnected multiplies flattened input rows by a weight matrix
type FullyConnected struct {
	Base[FullyConnectedQueueDescriptor]

	batch, inputSize, outputSize int
	weights, bias                []float32
	in, out                      buffer
}

// NewFullyConnected creates a fully connected workload. The input is
// flattened to [batch, rest].
func NewFullyConnected(desc FullyConnectedQueueDescriptor, info Info) (*FullyConnected, error) {
	batch, inputSize, outputSize, err := validateFullyConnected(desc)
	if err != nil {
		return nil, status.WithLayer(err, info.Name)
	}
	w := &FullyConnected{
		Base:       newBase(desc, info),
		batch:      batch,
		inputSize:  inputSize,
		outputSize: outputSize,
		weights:    constValues(desc.Weight),
		in:         newBuffer(desc.Inputs[0]),
		out:        newBuffer(desc.Outputs[0]),
	}
	if desc.Parameters.BiasEnabled {
		w.bias = constValues(desc.Bias)
	}
	return w, nil
}

func validateFullyConnected(desc FullyConnectedQueueDescriptor) (batch, inputSize, outputSize int, err error) {
	const op = "fully connected"
	if err = validateArity(desc.QueueDescriptor, op, 1, 1); err != nil {
		return
	}
	in, out := desc.Inputs[0].Info(), desc.Outputs[0].Info()
	if err = validateDataType(op+" data type", in, arithmeticTypes...); err != nil {
		return
	}
	if err = validateSameDataType(op+" output data type", in, out); err != nil {
		return
	}
	if in.Rank() < 1 || in.NumElements() == 0 {
		err = status.Mismatch(op+" input", rankOf(2), rankOf(in.Rank()))
		return
	}
	if err = validateConstant(desc.Weight, op, "weight"); err != nil {
		return
	}
	w := desc.Weight.Info()
	if err = validateRank(op+" weight", w, 2); err != nil {
		return
	}
	if err = validateSameDataType(op+" weight data type", in, w); err != nil {
		return
	}

	batch = in.Shape[0]
	inputSize = in.NumElements() / max(batch, 1)
	expectedWeight := tensor.Shape{inputSize, w.Shape[1]}
	outputSize = w.Shape[1]
	if desc.Parameters.TransposeWeightMatrix {
		expectedWeight = tensor.Shape{w.Shape[0], inputSize}
		outputSize = w.Shape[0]
	}
	if err = validateShape(op+" weight shape", expectedWeight, w.Shape); err != nil {
		return
	}
	if err = validateShape(op+" output shape", tensor.Shape{batch, outputSize}, out.Shape); err != nil {
		return
	}

	if desc.Parameters.BiasEnabled {
		if err = validateConstant(desc.Bias, op, "bias"); err != nil {
			return
		}
		if err = validateChannelTensor(op+" bias", desc.Bias, outputSize); err != nil {
			return
		}
		err = validateBiasQuantization(op+" bias", in, w, desc.Bias.Info())
	}
	return
}

// Execute runs the operator
func (w *FullyConnected) Execute() {
	kernels.FullyConnected(w.in.load(w.data.Inputs[0]), w.weights, w.bias, w.out,
		w.batch, w.inputSize, w.outputSize, w.data.Parameters.TransposeWeightMatrix)
	w.out.store(w.data.Outputs[0])
}
