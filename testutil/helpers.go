// Package testutil builds graphs and tensors for tests.
package testutil

import (
	"testing"

	"github.com/emergingrobotics/go-refnn/pkg/descriptor"
	"github.com/emergingrobotics/go-refnn/pkg/graph"
	"github.com/emergingrobotics/go-refnn/pkg/memory"
	"github.com/emergingrobotics/go-refnn/pkg/tensor"
	"github.com/emergingrobotics/go-refnn/pkg/transform"
)

// Info returns a tensor info of the given type. Quantized types get
// scale 1 and offset 0.
func Info(dt tensor.DataType, shape ...int) tensor.Info {
	if dt.IsQuantized() {
		return tensor.NewQuantizedInfo(tensor.Shape(shape), dt, 1, 0)
	}
	return tensor.NewInfo(tensor.Shape(shape), dt)
}

// Float32 returns a Float32 tensor info
func Float32(shape ...int) tensor.Info {
	return tensor.NewInfo(tensor.Shape(shape), tensor.DataTypeFloat32)
}

// Ramp returns n values start, start+step, ...
func Ramp(n int, start, step float32) []float32 {
	values := make([]float32, n)
	for i := range values {
		values[i] = start + float32(i)*step
	}
	return values
}

// Filled returns n copies of v
func Filled(n int, v float32) []float32 {
	values := make([]float32, n)
	for i := range values {
		values[i] = v
	}
	return values
}

// Const builds a constant tensor. Nil values produce zeros.
func Const(t testing.TB, info tensor.Info, values []float32) *memory.ConstTensorHandle {
	t.Helper()
	if values == nil {
		values = make([]float32, info.NumElements())
	}
	c, err := transform.ConstTensor(info, values)
	if err != nil {
		t.Fatalf("failed to create constant %s: %v", info, err)
	}
	return c
}

// Source names an output slot
type Source struct {
	Layer *graph.Layer
	Index int
}

// Out returns output idx of l as a Source
func Out(l *graph.Layer, idx int) Source {
	return Source{Layer: l, Index: idx}
}

// Builder adds layers to a graph and fails the test on any error
type Builder struct {
	t           testing.TB
	G           *graph.Graph
	nextBinding int
}

// NewBuilder starts an empty graph
func NewBuilder(t testing.TB) *Builder {
	return &Builder{t: t, G: graph.New()}
}

// Input adds an Input layer with the next free binding id
func (b *Builder) Input(name string, info tensor.Info) *graph.Layer {
	b.t.Helper()
	l := b.Layer(graph.LayerInput, name, descriptor.Binding{ID: b.nextBinding}, nil, info)
	b.nextBinding++
	return l
}

// Output adds an Output layer reading src with the next free binding id
func (b *Builder) Output(name string, src Source) *graph.Layer {
	b.t.Helper()
	l := b.Layer(graph.LayerOutput, name, descriptor.Binding{ID: b.nextBinding}, []Source{src})
	b.nextBinding++
	return l
}

// Layer adds a layer fed by inputs, with one output slot per info
func (b *Builder) Layer(kind graph.LayerType, name string, params descriptor.Descriptor, inputs []Source, outputs ...tensor.Info) *graph.Layer {
	b.t.Helper()
	l, err := b.G.AddLayer(kind, name, len(inputs), len(outputs), params)
	if err != nil {
		b.t.Fatalf("failed to add %s layer %q: %v", kind, name, err)
	}
	for i, info := range outputs {
		l.OutputSlot(i).SetInfo(info)
	}
	for i, src := range inputs {
		b.Connect(src, l, i)
	}
	return l
}

// Connect wires src into input inIdx of to
func (b *Builder) Connect(src Source, to *graph.Layer, inIdx int) {
	b.t.Helper()
	if err := b.G.Connect(src.Layer, src.Index, to, inIdx); err != nil {
		b.t.Fatalf("failed to connect %s:%d -> %s:%d: %v", src.Layer.Name(), src.Index, to.Name(), inIdx, err)
	}
}

// SingleLayer builds input -> layer -> output for each slot of a layer
// and returns the graph and the layer under test.
func SingleLayer(t testing.TB, kind graph.LayerType, params descriptor.Descriptor, inputs []tensor.Info, outputs []tensor.Info) (*graph.Graph, *graph.Layer) {
	t.Helper()
	b := NewBuilder(t)

	srcs := make([]Source, len(inputs))
	for i, info := range inputs {
		srcs[i] = Out(b.Input("input"+itoa(i), info), 0)
	}
	l := b.Layer(kind, "layer", params, srcs, outputs...)
	for i := range outputs {
		b.Output("output"+itoa(i), Out(l, i))
	}
	return b.G, l
}

func itoa(i int) string {
	if i == 0 {
		return ""
	}
	return string(rune('0' + i))
}
