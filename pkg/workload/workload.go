// Package workload contains the reference backend's executable units. A
// workload is built from a queue descriptor that binds tensor handles to
// its inputs and outputs; construction validates the binding once and
// Execute runs the operator on the bound handles.
package workload

import (
	"github.com/emergingrobotics/go-refnn/pkg/graph"
	"github.com/emergingrobotics/go-refnn/pkg/memory"
	"github.com/emergingrobotics/go-refnn/pkg/transform"
)

// QueueDescriptor binds handles to a workload. Inputs alias producer
// outputs; Outputs are owned by the layer being bound.
type QueueDescriptor struct {
	Inputs  []*memory.ConstTensorHandle
	Outputs []*memory.TensorHandle
}

// Bindings returns the untyped bindings
func (q QueueDescriptor) Bindings() QueueDescriptor {
	return q
}

// Queue is implemented by every operator queue descriptor through its
// embedded QueueDescriptor.
type Queue interface {
	Bindings() QueueDescriptor
}

// Info identifies the layer a workload was created for
type Info struct {
	Name string
	Type graph.LayerType
}

// Workload is an executable unit bound to tensor handles
type Workload interface {
	Info() Info
	Bindings() QueueDescriptor
	// Execute runs the operator. Bindings were validated at construction,
	// so execution cannot fail.
	Execute()
}

// Base carries the typed queue descriptor of a workload
type Base[D Queue] struct {
	data D
	info Info
}

func newBase[D Queue](data D, info Info) Base[D] {
	return Base[D]{data: data, info: info}
}

// Data returns the queue descriptor the workload was built from
func (b *Base[D]) Data() D {
	return b.data
}

// Bindings returns the untyped input and output handles
func (b *Base[D]) Bindings() QueueDescriptor {
	return b.data.Bindings()
}

// Info returns the layer name and type
func (b *Base[D]) Info() Info {
	return b.info
}

// buffer holds decoded float32 values of one bound tensor
type buffer []float32

func newBuffer(h memory.Handle) buffer {
	return make(buffer, h.Info().NumElements())
}

func (b buffer) load(h memory.Handle) buffer {
	transform.Decode(h.Info(), h.Bytes(), b)
	return b
}

func (b buffer) store(h *memory.TensorHandle) {
	transform.Encode(h.Info(), b, h.Bytes())
}

// constValues decodes a constant tensor once, nil for an absent tensor
func constValues(h *memory.ConstTensorHandle) []float32 {
	if h == nil {
		return nil
	}
	return transform.ReadFloat32(h)
}
