//go:build unit

package workload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emergingrobotics/go-refnn/pkg/descriptor"
	"github.com/emergingrobotics/go-refnn/pkg/graph"
	"github.com/emergingrobotics/go-refnn/pkg/memory"
	"github.com/emergingrobotics/go-refnn/pkg/status"
	"github.com/emergingrobotics/go-refnn/pkg/tensor"
	"github.com/emergingrobotics/go-refnn/pkg/transform"
)

func f32(shape ...int) tensor.Info {
	return tensor.NewInfo(tensor.Shape(shape), tensor.DataTypeFloat32)
}

func q8(scale float32, shape ...int) tensor.Info {
	return tensor.NewQuantizedInfo(tensor.Shape(shape), tensor.DataTypeQAsymm8, scale, 0)
}

// bound holds the producer-side handles behind a QueueDescriptor so tests
// can write inputs and read outputs.
type bound struct {
	QueueDescriptor
	sources []*memory.TensorHandle
}

func bind(t *testing.T, inputs, outputs []tensor.Info) bound {
	t.Helper()
	alloc := memory.NewHeapAllocator()
	var b bound
	for _, info := range inputs {
		h, err := alloc.Allocate(info)
		require.NoError(t, err)
		b.sources = append(b.sources, h)
		b.Inputs = append(b.Inputs, h.ReadOnly())
	}
	for _, info := range outputs {
		h, err := alloc.Allocate(info)
		require.NoError(t, err)
		b.Outputs = append(b.Outputs, h)
	}
	return b
}

func constant(t *testing.T, info tensor.Info, values []float32) *memory.ConstTensorHandle {
	t.Helper()
	if values == nil {
		values = make([]float32, info.NumElements())
	}
	c, err := transform.ConstTensor(info, values)
	require.NoError(t, err)
	return c
}

func ones(n int) []float32 {
	v := make([]float32, n)
	for i := range v {
		v[i] = 1
	}
	return v
}

func info(name string, kind graph.LayerType) Info {
	return Info{Name: name, Type: kind}
}

func requireStatus(t *testing.T, err error, s status.Status) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, s, status.StatusOf(err), "error: %v", err)
}

func TestWorkloadExposesBindings(t *testing.T) {
	b := bind(t, []tensor.Info{f32(1, 1)}, []tensor.Info{f32(1, 1)})
	desc := ActivationQueueDescriptor{QueueDescriptor: b.QueueDescriptor}
	desc.Parameters.Function = descriptor.ActivationReLu

	w, err := NewActivation(desc, info("relu", graph.LayerActivation))
	require.NoError(t, err)

	var _ Workload = w
	assert.Equal(t, "relu", w.Info().Name)
	assert.Equal(t, graph.LayerActivation, w.Info().Type)
	assert.Equal(t, descriptor.ActivationReLu, w.Data().Parameters.Function)
	assert.Same(t, b.Inputs[0], w.Bindings().Inputs[0])
	assert.Same(t, b.Outputs[0], w.Bindings().Outputs[0])
}

func TestActivationExecute(t *testing.T) {
	b := bind(t, []tensor.Info{f32(2, 2)}, []tensor.Info{f32(2, 2)})
	desc := ActivationQueueDescriptor{QueueDescriptor: b.QueueDescriptor}
	desc.Parameters.Function = descriptor.ActivationReLu

	w, err := NewActivation(desc, info("relu", graph.LayerActivation))
	require.NoError(t, err)

	transform.WriteFloat32(b.sources[0], []float32{-1, 2, -3, 4})
	w.Execute()
	assert.Equal(t, []float32{0, 2, 0, 4}, transform.ReadFloat32(b.Outputs[0]))
}

func TestActivationRejectsMismatch(t *testing.T) {
	tests := []struct {
		name string
		in   tensor.Info
		out  tensor.Info
	}{
		{"shape", f32(1, 1), f32(1, 2)},
		{"data type", f32(1, 1), q8(1, 1, 1)},
		{"signed32", tensor.NewInfo(tensor.Shape{1}, tensor.DataTypeSigned32), tensor.NewInfo(tensor.Shape{1}, tensor.DataTypeSigned32)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := bind(t, []tensor.Info{tt.in}, []tensor.Info{tt.out})
			_, err := NewActivation(ActivationQueueDescriptor{QueueDescriptor: b.QueueDescriptor}, info("act", graph.LayerActivation))
			requireStatus(t, err, status.StatusIncompatibleTensorInfo)

			var statusErr *status.Error
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, "act", statusErr.Layer)
			assert.NotEmpty(t, statusErr.Expected)
			assert.NotEmpty(t, statusErr.Actual)
		})
	}
}

func TestArityMismatchIsInvalidGraph(t *testing.T) {
	b := bind(t, []tensor.Info{f32(1, 1), f32(1, 1)}, []tensor.Info{f32(1, 1)})
	_, err := NewActivation(ActivationQueueDescriptor{QueueDescriptor: b.QueueDescriptor}, info("act", graph.LayerActivation))
	requireStatus(t, err, status.StatusInvalidGraph)

	b = bind(t, []tensor.Info{f32(1, 1)}, nil)
	_, err = NewRsqrt(UnaryQueueDescriptor{QueueDescriptor: b.QueueDescriptor}, info("rsqrt", graph.LayerRsqrt))
	requireStatus(t, err, status.StatusInvalidGraph)

	b = bind(t, nil, []tensor.Info{f32(1, 1)})
	desc := QueueDescriptor{Inputs: []*memory.ConstTensorHandle{nil}, Outputs: b.Outputs}
	_, err = NewFloor(UnaryQueueDescriptor{QueueDescriptor: desc}, info("floor", graph.LayerFloor))
	requireStatus(t, err, status.StatusInvalidGraph)
}

func TestElementwise(t *testing.T) {
	constructors := map[string]struct {
		create   func(ElementwiseQueueDescriptor, Info) (*Elementwise, error)
		expected []float32
	}{
		"addition":       {NewAddition, []float32{11, 22, 33, 14, 25, 36}},
		"subtraction":    {NewSubtraction, []float32{-9, -18, -27, -6, -15, -24}},
		"multiplication": {NewMultiplication, []float32{10, 40, 90, 40, 100, 180}},
		"division":       {NewDivision, []float32{0.1, 0.1, 0.1, 0.4, 0.25, 0.2}},
		"maximum":        {NewMaximum, []float32{10, 20, 30, 10, 20, 30}},
		"minimum":        {NewMinimum, []float32{1, 2, 3, 4, 5, 6}},
	}

	for name, tc := range constructors {
		t.Run(name, func(t *testing.T) {
			b := bind(t, []tensor.Info{f32(2, 3), f32(1, 3)}, []tensor.Info{f32(2, 3)})
			w, err := tc.create(ElementwiseQueueDescriptor{b.QueueDescriptor}, info(name, graph.LayerAddition))
			require.NoError(t, err)

			transform.WriteFloat32(b.sources[0], []float32{1, 2, 3, 4, 5, 6})
			transform.WriteFloat32(b.sources[1], []float32{10, 20, 30})
			w.Execute()
			assert.InDeltaSlice(t, tc.expected, transform.ReadFloat32(b.Outputs[0]), 1e-6)
		})
	}
}

func TestElementwiseValidation(t *testing.T) {
	tests := []struct {
		name    string
		inputs  []tensor.Info
		output  tensor.Info
		wantErr bool
	}{
		{"same shape", []tensor.Info{f32(2, 3), f32(2, 3)}, f32(2, 3), false},
		{"broadcast both", []tensor.Info{f32(2, 1), f32(1, 3)}, f32(2, 3), false},
		{"quantized", []tensor.Info{q8(1, 2, 3), q8(0.5, 2, 3)}, q8(2, 2, 3), false},
		{"incompatible extents", []tensor.Info{f32(2, 3), f32(3, 3)}, f32(3, 3), true},
		{"wrong output shape", []tensor.Info{f32(2, 3), f32(2, 3)}, f32(3, 2), true},
		{"rank mismatch", []tensor.Info{f32(2, 3), f32(3)}, f32(2, 3), true},
		{"mixed types", []tensor.Info{f32(2, 3), q8(1, 2, 3)}, f32(2, 3), true},
		{"float16", []tensor.Info{tensor.NewInfo(tensor.Shape{2}, tensor.DataTypeFloat16), tensor.NewInfo(tensor.Shape{2}, tensor.DataTypeFloat16)}, tensor.NewInfo(tensor.Shape{2}, tensor.DataTypeFloat16), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := bind(t, tt.inputs, []tensor.Info{tt.output})
			_, err := NewAddition(ElementwiseQueueDescriptor{b.QueueDescriptor}, info("add", graph.LayerAddition))
			if tt.wantErr {
				requireStatus(t, err, status.StatusIncompatibleTensorInfo)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestQuantizedAdditionRequantizes(t *testing.T) {
	b := bind(t, []tensor.Info{q8(1, 4), q8(1, 4)}, []tensor.Info{q8(2, 4)})
	w, err := NewAddition(ElementwiseQueueDescriptor{b.QueueDescriptor}, info("add", graph.LayerAddition))
	require.NoError(t, err)

	copy(b.sources[0].Bytes(), []byte{1, 2, 3, 4})
	copy(b.sources[1].Bytes(), []byte{3, 4, 5, 6})
	w.Execute()
	assert.Equal(t, []byte{2, 3, 4, 5}, b.Outputs[0].Bytes())
}

func TestBatchNormalizationLayouts(t *testing.T) {
	channel := f32(3)
	stats := func(t *testing.T) BatchNormalizationQueueDescriptor {
		return BatchNormalizationQueueDescriptor{
			Mean:     constant(t, channel, nil),
			Variance: constant(t, channel, ones(3)),
			Beta:     constant(t, channel, nil),
			Gamma:    constant(t, channel, ones(3)),
		}
	}

	tests := []struct {
		name    string
		layout  tensor.DataLayout
		shape   tensor.Shape
		wantErr bool
	}{
		{"nchw", tensor.NCHW, tensor.Shape{2, 3, 4, 4}, false},
		{"nhwc", tensor.NHWC, tensor.Shape{2, 4, 4, 3}, false},
		{"nhwc shape with nchw layout", tensor.NCHW, tensor.Shape{2, 4, 4, 3}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tensor.NewInfo(tt.shape, tensor.DataTypeFloat32)
			b := bind(t, []tensor.Info{in}, []tensor.Info{in})
			desc := stats(t)
			desc.QueueDescriptor = b.QueueDescriptor
			desc.Parameters = descriptor.BatchNormalization{Eps: 0.05, DataLayout: tt.layout}

			_, err := NewBatchNormalization(desc, info("bn", graph.LayerBatchNormalization))
			if tt.wantErr {
				requireStatus(t, err, status.StatusIncompatibleTensorInfo)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestBatchNormalizationMissingStatistic(t *testing.T) {
	in := f32(1, 3, 1, 1)
	b := bind(t, []tensor.Info{in}, []tensor.Info{in})
	desc := BatchNormalizationQueueDescriptor{
		QueueDescriptor: b.QueueDescriptor,
		Mean:            constant(t, f32(3), nil),
	}
	_, err := NewBatchNormalization(desc, info("bn", graph.LayerBatchNormalization))
	requireStatus(t, err, status.StatusInvalidGraph)
}

func conv2dDesc(t *testing.T, layout tensor.DataLayout, in, weight, out tensor.Shape) Convolution2dQueueDescriptor {
	b := bind(t,
		[]tensor.Info{tensor.NewInfo(in, tensor.DataTypeFloat32)},
		[]tensor.Info{tensor.NewInfo(out, tensor.DataTypeFloat32)})
	return Convolution2dQueueDescriptor{
		QueueDescriptor: b.QueueDescriptor,
		Parameters: descriptor.Convolution2d{
			PadLeft: 3, PadRight: 3, PadTop: 1, PadBottom: 1,
			StrideX: 2, StrideY: 4,
			BiasEnabled: true,
			DataLayout:  layout,
		},
		Weight: constant(t, tensor.NewInfo(weight, tensor.DataTypeFloat32), nil),
		Bias:   constant(t, f32(2), nil),
	}
}

func TestConvolution2dLayouts(t *testing.T) {
	tests := []struct {
		name    string
		layout  tensor.DataLayout
		in      tensor.Shape
		weight  tensor.Shape
		out     tensor.Shape
		wantErr bool
	}{
		{"nchw", tensor.NCHW, tensor.Shape{2, 3, 8, 16}, tensor.Shape{2, 3, 5, 3}, tensor.Shape{2, 2, 2, 10}, false},
		{"nhwc", tensor.NHWC, tensor.Shape{2, 8, 16, 3}, tensor.Shape{2, 5, 3, 3}, tensor.Shape{2, 2, 10, 2}, false},
		{"nhwc weights with nchw layout", tensor.NCHW, tensor.Shape{2, 3, 8, 16}, tensor.Shape{2, 5, 3, 3}, tensor.Shape{2, 2, 2, 10}, true},
		{"wrong output", tensor.NCHW, tensor.Shape{2, 3, 8, 16}, tensor.Shape{2, 3, 5, 3}, tensor.Shape{2, 2, 3, 10}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := conv2dDesc(t, tt.layout, tt.in, tt.weight, tt.out)
			w, err := NewConvolution2d(desc, info("conv", graph.LayerConvolution2d))
			if tt.wantErr {
				requireStatus(t, err, status.StatusIncompatibleTensorInfo)
				return
			}
			require.NoError(t, err)
			assert.Same(t, desc.Weight, w.Data().Weight)
			assert.True(t, w.Data().Parameters.BiasEnabled)
		})
	}
}

func TestConvolution2dNHWCWeights(t *testing.T) {
	// [N=1, H=1, W=2, C=2] convolved with [O=1, H=1, W=2, I=2]
	b := bind(t, []tensor.Info{f32(1, 1, 2, 2)}, []tensor.Info{f32(1, 1, 1, 1)})
	desc := Convolution2dQueueDescriptor{
		QueueDescriptor: b.QueueDescriptor,
		Parameters:      descriptor.Convolution2d{StrideX: 1, StrideY: 1, DataLayout: tensor.NHWC},
		Weight:          constant(t, f32(1, 1, 2, 2), []float32{1, 10, 100, 1000}),
	}
	w, err := NewConvolution2d(desc, info("conv", graph.LayerConvolution2d))
	require.NoError(t, err)

	transform.WriteFloat32(b.sources[0], []float32{1, 2, 3, 4})
	w.Execute()
	assert.Equal(t, []float32{4321}, transform.ReadFloat32(b.Outputs[0]))
}

func TestConvolution2dQuantizedBias(t *testing.T) {
	in := q8(0.5, 1, 1, 2, 2)
	weight := q8(0.25, 1, 1, 1, 1)
	out := q8(0.5, 1, 1, 2, 2)

	tests := []struct {
		name    string
		bias    tensor.Info
		wantErr bool
	}{
		{"scaled signed32", tensor.NewQuantizedInfo(tensor.Shape{1}, tensor.DataTypeSigned32, 0.125, 0), false},
		{"wrong scale", tensor.NewQuantizedInfo(tensor.Shape{1}, tensor.DataTypeSigned32, 0.5, 0), true},
		{"float bias", f32(1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := bind(t, []tensor.Info{in}, []tensor.Info{out})
			desc := Convolution2dQueueDescriptor{
				QueueDescriptor: b.QueueDescriptor,
				Parameters:      descriptor.Convolution2d{StrideX: 1, StrideY: 1, BiasEnabled: true},
				Weight:          constant(t, weight, []float32{0.5}),
				Bias:            constant(t, tt.bias, []float32{1}),
			}
			w, err := NewConvolution2d(desc, info("conv", graph.LayerConvolution2d))
			if tt.wantErr {
				requireStatus(t, err, status.StatusIncompatibleTensorInfo)
				return
			}
			require.NoError(t, err)

			// real input 1, 2, 3, 4
			copy(b.sources[0].Bytes(), []byte{2, 4, 6, 8})
			w.Execute()
			// x*0.5 + 1
			assert.Equal(t, []float32{1.5, 2, 2.5, 3}, transform.ReadFloat32(b.Outputs[0]))
		})
	}
}

func TestDepthwiseConvolution2d(t *testing.T) {
	params := descriptor.DepthwiseConvolution2d{
		PadLeft: 1, PadRight: 2, PadTop: 1, PadBottom: 2,
		StrideX: 1, StrideY: 1, BiasEnabled: true,
	}

	for _, layout := range []tensor.DataLayout{tensor.NCHW, tensor.NHWC} {
		t.Run(layout.String(), func(t *testing.T) {
			shape := layout.Shape(2, 2, 5, 5)
			b := bind(t,
				[]tensor.Info{tensor.NewInfo(shape, tensor.DataTypeFloat32)},
				[]tensor.Info{tensor.NewInfo(shape, tensor.DataTypeFloat32)})
			p := params
			p.DataLayout = layout
			desc := DepthwiseConvolution2dQueueDescriptor{
				QueueDescriptor: b.QueueDescriptor,
				Parameters:      p,
				Weight:          constant(t, f32(1, 2, 4, 4), nil),
				Bias:            constant(t, f32(2), nil),
			}
			_, err := NewDepthwiseConvolution2d(desc, info("dw", graph.LayerDepthwiseConvolution2d))
			require.NoError(t, err)
		})
	}

	b := bind(t, []tensor.Info{f32(2, 2, 5, 5)}, []tensor.Info{f32(2, 2, 5, 5)})
	desc := DepthwiseConvolution2dQueueDescriptor{
		QueueDescriptor: b.QueueDescriptor,
		Parameters:      params,
		Weight:          constant(t, f32(1, 3, 4, 4), nil),
		Bias:            constant(t, f32(2), nil),
	}
	_, err := NewDepthwiseConvolution2d(desc, info("dw", graph.LayerDepthwiseConvolution2d))
	requireStatus(t, err, status.StatusIncompatibleTensorInfo)
}

func TestFullyConnectedPreservesQuantization(t *testing.T) {
	in := q8(1, 3, 1, 4, 5)
	out := q8(2, 3, 7)
	b := bind(t, []tensor.Info{in}, []tensor.Info{out})
	desc := FullyConnectedQueueDescriptor{
		QueueDescriptor: b.QueueDescriptor,
		Parameters:      descriptor.FullyConnected{BiasEnabled: true, TransposeWeightMatrix: true},
		Weight:          constant(t, q8(1, 7, 20), nil),
		Bias:            constant(t, tensor.NewQuantizedInfo(tensor.Shape{7}, tensor.DataTypeSigned32, 1, 0), nil),
	}

	w, err := NewFullyConnected(desc, info("fc", graph.LayerFullyConnected))
	require.NoError(t, err)
	assert.Equal(t, float32(1), w.Data().Inputs[0].Info().Quant.Scale)
	assert.Equal(t, float32(2), w.Data().Outputs[0].Info().Quant.Scale)
}

func TestFullyConnectedExecute(t *testing.T) {
	b := bind(t, []tensor.Info{f32(2, 3)}, []tensor.Info{f32(2, 2)})
	desc := FullyConnectedQueueDescriptor{
		QueueDescriptor: b.QueueDescriptor,
		Weight:          constant(t, f32(3, 2), []float32{1, 0, 0, 1, 1, 1}),
	}
	w, err := NewFullyConnected(desc, info("fc", graph.LayerFullyConnected))
	require.NoError(t, err)

	transform.WriteFloat32(b.sources[0], []float32{1, 2, 3, 0, 1, 0})
	w.Execute()
	assert.Equal(t, []float32{4, 5, 0, 1}, transform.ReadFloat32(b.Outputs[0]))

	desc.Weight = constant(t, f32(2, 3), nil)
	_, err = NewFullyConnected(desc, info("fc", graph.LayerFullyConnected))
	requireStatus(t, err, status.StatusIncompatibleTensorInfo)
}

func TestNormalizationLayouts(t *testing.T) {
	params := descriptor.Normalization{
		ChannelType: descriptor.NormalizationAcross,
		MethodType:  descriptor.NormalizationLocalBrightness,
		NormSize:    3, Alpha: 0.5, Beta: -1, K: 0.2,
	}

	for _, tc := range []struct {
		layout tensor.DataLayout
		shape  tensor.Shape
	}{
		{tensor.NCHW, tensor.Shape{3, 5, 5, 1}},
		{tensor.NHWC, tensor.Shape{3, 1, 5, 5}},
	} {
		b := bind(t, []tensor.Info{tensor.NewInfo(tc.shape, tensor.DataTypeFloat32)}, []tensor.Info{tensor.NewInfo(tc.shape, tensor.DataTypeFloat32)})
		p := params
		p.DataLayout = tc.layout
		_, err := NewNormalization(NormalizationQueueDescriptor{b.QueueDescriptor, p}, info("norm", graph.LayerNormalization))
		require.NoError(t, err, tc.layout.String())
	}

	b := bind(t, []tensor.Info{f32(1, 1, 1, 1)}, []tensor.Info{f32(1, 1, 1, 1)})
	p := params
	p.MethodType = descriptor.NormalizationLocalContrast
	_, err := NewNormalization(NormalizationQueueDescriptor{b.QueueDescriptor, p}, info("norm", graph.LayerNormalization))
	requireStatus(t, err, status.StatusUnsupportedOperator)
}

func TestPooling2dOutputShape(t *testing.T) {
	params := descriptor.Pooling2d{
		PoolType: descriptor.PoolingAverage,
		PadLeft:  2, PadRight: 2, PadTop: 1, PadBottom: 1,
		PoolWidth: 3, PoolHeight: 3, StrideX: 2, StrideY: 3,
		Rounding: descriptor.RoundingFloor,
	}

	b := bind(t, []tensor.Info{f32(3, 2, 5, 5)}, []tensor.Info{f32(3, 2, 2, 4)})
	_, err := NewPooling2d(Pooling2dQueueDescriptor{b.QueueDescriptor, params}, info("pool", graph.LayerPooling2d))
	require.NoError(t, err)

	b = bind(t, []tensor.Info{f32(3, 2, 5, 5)}, []tensor.Info{f32(3, 2, 2, 5)})
	_, err = NewPooling2d(Pooling2dQueueDescriptor{b.QueueDescriptor, params}, info("pool", graph.LayerPooling2d))
	requireStatus(t, err, status.StatusIncompatibleTensorInfo)

	params.StrideX = 0
	_, err = NewPooling2d(Pooling2dQueueDescriptor{b.QueueDescriptor, params}, info("pool", graph.LayerPooling2d))
	requireStatus(t, err, status.StatusInvalidGraph)
}

func TestSoftmax(t *testing.T) {
	b := bind(t, []tensor.Info{f32(4, 1)}, []tensor.Info{f32(4, 1)})
	w, err := NewSoftmax(SoftmaxQueueDescriptor{b.QueueDescriptor, descriptor.Softmax{Beta: 1}}, info("softmax", graph.LayerSoftmax))
	require.NoError(t, err)

	transform.WriteFloat32(b.sources[0], []float32{3, -1, 0, 7})
	w.Execute()
	assert.Equal(t, []float32{1, 1, 1, 1}, transform.ReadFloat32(b.Outputs[0]))
}

func TestL2Normalization(t *testing.T) {
	b := bind(t, []tensor.Info{f32(5, 20, 50, 67)}, []tensor.Info{f32(5, 20, 50, 67)})
	_, err := NewL2Normalization(L2NormalizationQueueDescriptor{b.QueueDescriptor, descriptor.L2Normalization{Eps: 1e-12}}, info("l2", graph.LayerL2Normalization))
	require.NoError(t, err)

	b = bind(t, []tensor.Info{f32(5, 20)}, []tensor.Info{f32(5, 20)})
	_, err = NewL2Normalization(L2NormalizationQueueDescriptor{b.QueueDescriptor, descriptor.L2Normalization{}}, info("l2", graph.LayerL2Normalization))
	requireStatus(t, err, status.StatusIncompatibleTensorInfo)
}

func TestResizeBilinear(t *testing.T) {
	params := descriptor.ResizeBilinear{TargetWidth: 2, TargetHeight: 2}
	b := bind(t, []tensor.Info{f32(2, 3, 4, 4)}, []tensor.Info{f32(2, 3, 2, 2)})
	_, err := NewResizeBilinear(ResizeBilinearQueueDescriptor{b.QueueDescriptor, params}, info("resize", graph.LayerResizeBilinear))
	require.NoError(t, err)

	params.DataLayout = tensor.NHWC
	_, err = NewResizeBilinear(ResizeBilinearQueueDescriptor{b.QueueDescriptor, params}, info("resize", graph.LayerResizeBilinear))
	requireStatus(t, err, status.StatusIncompatibleTensorInfo)
}

func TestSplitter(t *testing.T) {
	b := bind(t, []tensor.Info{f32(5, 7, 7)}, []tensor.Info{f32(1, 7, 7), f32(2, 7, 7), f32(2, 7, 7)})
	w, err := NewSplitter(SplitterQueueDescriptor{b.QueueDescriptor, descriptor.Splitter{Axis: 0}}, info("split", graph.LayerSplitter))
	require.NoError(t, err)

	values := make([]float32, 5*49)
	for i := range values {
		values[i] = float32(i)
	}
	transform.WriteFloat32(b.sources[0], values)
	w.Execute()
	assert.Equal(t, values[:49], transform.ReadFloat32(b.Outputs[0]))
	assert.Equal(t, values[49:147], transform.ReadFloat32(b.Outputs[1]))
	assert.Equal(t, values[147:], transform.ReadFloat32(b.Outputs[2]))
}

func TestSplitterValidation(t *testing.T) {
	tests := []struct {
		name    string
		outputs []tensor.Info
		axis    int
		status  status.Status
	}{
		{"extents do not sum", []tensor.Info{f32(1, 7, 7), f32(2, 7, 7)}, 0, status.StatusIncompatibleTensorInfo},
		{"other axis differs", []tensor.Info{f32(1, 7, 7), f32(4, 6, 7)}, 0, status.StatusIncompatibleTensorInfo},
		{"quantization differs", []tensor.Info{f32(1, 7, 7), q8(1, 4, 7, 7)}, 0, status.StatusIncompatibleTensorInfo},
		{"axis out of range", []tensor.Info{f32(5, 7, 7)}, 3, status.StatusInvalidGraph},
		{"no outputs", nil, 0, status.StatusInvalidGraph},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := bind(t, []tensor.Info{f32(5, 7, 7)}, tt.outputs)
			_, err := NewSplitter(SplitterQueueDescriptor{b.QueueDescriptor, descriptor.Splitter{Axis: tt.axis}}, info("split", graph.LayerSplitter))
			requireStatus(t, err, tt.status)
		})
	}
}

func TestConcatAxes(t *testing.T) {
	base := tensor.Shape{2, 3, 2, 5}
	for axis := 0; axis < 4; axis++ {
		out := base.Clone()
		out[axis] *= 2
		b := bind(t, []tensor.Info{f32(base...), f32(base...)}, []tensor.Info{f32(out...)})
		_, err := NewConcat(ConcatQueueDescriptor{b.QueueDescriptor, descriptor.Concat{Axis: axis}}, info("concat", graph.LayerConcat))
		assert.NoError(t, err, "axis %d", axis)

		_, err = NewConcat(ConcatQueueDescriptor{b.QueueDescriptor, descriptor.Concat{Axis: (axis + 1) % 4}}, info("concat", graph.LayerConcat))
		requireStatus(t, err, status.StatusIncompatibleTensorInfo)
	}
}

func TestConcatExecute(t *testing.T) {
	b := bind(t, []tensor.Info{f32(2, 1), f32(2, 2)}, []tensor.Info{f32(2, 3)})
	w, err := NewConcat(ConcatQueueDescriptor{b.QueueDescriptor, descriptor.Concat{Axis: 1}}, info("concat", graph.LayerConcat))
	require.NoError(t, err)

	transform.WriteFloat32(b.sources[0], []float32{1, 4})
	transform.WriteFloat32(b.sources[1], []float32{2, 3, 5, 6})
	w.Execute()
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, transform.ReadFloat32(b.Outputs[0]))
}

func TestReshape(t *testing.T) {
	b := bind(t, []tensor.Info{f32(4, 1)}, []tensor.Info{f32(1, 4)})
	w, err := NewReshape(ReshapeQueueDescriptor{b.QueueDescriptor, descriptor.Reshape{TargetShape: tensor.Shape{1, 4}}}, info("reshape", graph.LayerReshape))
	require.NoError(t, err)

	transform.WriteFloat32(b.sources[0], []float32{1, 2, 3, 4})
	w.Execute()
	assert.Equal(t, []float32{1, 2, 3, 4}, transform.ReadFloat32(b.Outputs[0]))

	b = bind(t, []tensor.Info{f32(4, 1)}, []tensor.Info{f32(1, 5)})
	_, err = NewReshape(ReshapeQueueDescriptor{b.QueueDescriptor, descriptor.Reshape{TargetShape: tensor.Shape{1, 5}}}, info("reshape", graph.LayerReshape))
	requireStatus(t, err, status.StatusIncompatibleTensorInfo)
}

func TestConstantDataTypes(t *testing.T) {
	shape := tensor.Shape{2, 3, 2, 10}
	infos := []tensor.Info{
		tensor.NewInfo(shape, tensor.DataTypeFloat32),
		tensor.NewQuantizedInfo(shape, tensor.DataTypeQAsymm8, 1, 0),
		tensor.NewQuantizedInfo(shape, tensor.DataTypeQSymm16, 1, 0),
		tensor.NewInfo(shape, tensor.DataTypeSigned32),
	}

	for _, ti := range infos {
		t.Run(ti.DataType.String(), func(t *testing.T) {
			values := make([]float32, ti.NumElements())
			for i := range values {
				values[i] = float32(i % 100)
			}
			b := bind(t, nil, []tensor.Info{ti})
			desc := ConstantQueueDescriptor{QueueDescriptor: b.QueueDescriptor, Value: constant(t, ti, values)}
			w, err := NewConstant(desc, info("const", graph.LayerConstant))
			require.NoError(t, err)

			w.Execute()
			assert.Equal(t, values, transform.ReadFloat32(b.Outputs[0]))
		})
	}

	b := bind(t, nil, []tensor.Info{f32(2)})
	_, err := NewConstant(ConstantQueueDescriptor{QueueDescriptor: b.QueueDescriptor, Value: constant(t, f32(3), nil)}, info("const", graph.LayerConstant))
	requireStatus(t, err, status.StatusIncompatibleTensorInfo)
}

func TestConvertFloatPrecision(t *testing.T) {
	f16 := tensor.NewInfo(tensor.Shape{1, 3, 2, 3}, tensor.DataTypeFloat16)
	f32Info := f32(1, 3, 2, 3)
	values := make([]float32, 18)
	for i := range values {
		values[i] = float32(i) * 0.25
	}

	up := bind(t, []tensor.Info{f16}, []tensor.Info{f32Info})
	w, err := NewConvertFp16ToFp32(ConvertQueueDescriptor{up.QueueDescriptor}, info("up", graph.LayerConvertFp16ToFp32))
	require.NoError(t, err)
	transform.WriteFloat32(up.sources[0], values)
	w.Execute()
	assert.Equal(t, values, transform.ReadFloat32(up.Outputs[0]))

	down := bind(t, []tensor.Info{f32Info}, []tensor.Info{f16})
	w, err = NewConvertFp32ToFp16(ConvertQueueDescriptor{down.QueueDescriptor}, info("down", graph.LayerConvertFp32ToFp16))
	require.NoError(t, err)
	transform.WriteFloat32(down.sources[0], values)
	w.Execute()
	assert.Equal(t, values, transform.ReadFloat32(down.Outputs[0]))

	_, err = NewConvertFp16ToFp32(ConvertQueueDescriptor{down.QueueDescriptor}, info("bad", graph.LayerConvertFp16ToFp32))
	requireStatus(t, err, status.StatusIncompatibleTensorInfo)
}

func TestMemCopy(t *testing.T) {
	b := bind(t, []tensor.Info{f32(3)}, []tensor.Info{f32(3)})
	w, err := NewMemCopy(MemCopyQueueDescriptor{b.QueueDescriptor}, info("copy", graph.LayerInput))
	require.NoError(t, err)

	transform.WriteFloat32(b.sources[0], []float32{7, 8, 9})
	w.Execute()
	assert.Equal(t, []float32{7, 8, 9}, transform.ReadFloat32(b.Outputs[0]))

	b = bind(t, []tensor.Info{f32(3)}, []tensor.Info{q8(1, 3)})
	_, err = NewMemCopy(MemCopyQueueDescriptor{b.QueueDescriptor}, info("copy", graph.LayerInput))
	requireStatus(t, err, status.StatusIncompatibleTensorInfo)
}

func TestRsqrtAndFloor(t *testing.T) {
	b := bind(t, []tensor.Info{f32(3)}, []tensor.Info{f32(3)})
	w, err := NewRsqrt(UnaryQueueDescriptor{b.QueueDescriptor}, info("rsqrt", graph.LayerRsqrt))
	require.NoError(t, err)
	transform.WriteFloat32(b.sources[0], []float32{1, 4, 0.25})
	w.Execute()
	assert.InDeltaSlice(t, []float32{1, 0.5, 2}, transform.ReadFloat32(b.Outputs[0]), 1e-6)

	w, err = NewFloor(UnaryQueueDescriptor{b.QueueDescriptor}, info("floor", graph.LayerFloor))
	require.NoError(t, err)
	transform.WriteFloat32(b.sources[0], []float32{1.5, -0.5, 2})
	w.Execute()
	assert.Equal(t, []float32{1, -1, 2}, transform.ReadFloat32(b.Outputs[0]))
}
