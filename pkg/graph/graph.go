// Package graph defines the layer graph that workloads are bound from.
//
// Layers live in an arena owned by the Graph and are addressed by LayerID.
// Edges are explicit slot references (producer layer + output index to
// consumer layer + input index), so no layer holds a pointer to another.
// The topology is expected to stay fixed once workloads are created.
package graph

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/emergingrobotics/go-refnn/pkg/descriptor"
	"github.com/emergingrobotics/go-refnn/pkg/status"
)

// Graph is an arena of layers
type Graph struct {
	id     uuid.UUID
	layers []*Layer
	names  map[string]LayerID
}

// New creates an empty graph
func New() *Graph {
	return &Graph{
		id:    uuid.New(),
		names: make(map[string]LayerID),
	}
}

// ID returns the graph identity
func (g *Graph) ID() uuid.UUID {
	return g.id
}

// AddLayer appends a layer with the given slot counts. An empty name is
// replaced by "<type>_<id>"; duplicate names are rejected.
func (g *Graph) AddLayer(kind LayerType, name string, numInputs, numOutputs int, params descriptor.Descriptor) (*Layer, error) {
	if numInputs < 0 || numOutputs < 0 {
		return nil, status.Errorf(status.StatusInvalidGraph, "negative slot count (%d inputs, %d outputs)", numInputs, numOutputs)
	}

	id := LayerID(len(g.layers))
	if name == "" {
		name = fmt.Sprintf("%s_%d", kind, id)
	}
	if _, exists := g.names[name]; exists {
		return nil, status.Errorf(status.StatusInvalidGraph, "duplicate layer name %q", name)
	}

	l := &Layer{
		id:      id,
		guid:    uuid.New(),
		name:    name,
		kind:    kind,
		params:  params,
		inputs:  make([]InputSlot, numInputs),
		outputs: make([]OutputSlot, numOutputs),
	}
	g.layers = append(g.layers, l)
	g.names[name] = id
	return l, nil
}

// NumLayers returns the number of layers
func (g *Graph) NumLayers() int {
	return len(g.layers)
}

// Layers returns the layers in insertion order
func (g *Graph) Layers() []*Layer {
	return g.layers
}

// Layer returns the layer with the given id, or nil
func (g *Graph) Layer(id LayerID) *Layer {
	if id < 0 || int(id) >= len(g.layers) {
		return nil
	}
	return g.layers[id]
}

// LayerByName returns the named layer, or nil
func (g *Graph) LayerByName(name string) *Layer {
	id, ok := g.names[name]
	if !ok {
		return nil
	}
	return g.layers[id]
}

func (g *Graph) owns(l *Layer) bool {
	return l != nil && g.Layer(l.id) == l
}

// Connect wires output slot outIdx of from to input slot inIdx of to
func (g *Graph) Connect(from *Layer, outIdx int, to *Layer, inIdx int) error {
	if !g.owns(from) || !g.owns(to) {
		return status.NewError(status.StatusInvalidGraph, "connect: layer does not belong to graph")
	}
	if outIdx < 0 || outIdx >= from.NumOutputs() {
		return status.Errorf(status.StatusInvalidGraph, "connect: %s has no output slot %d", from, outIdx)
	}
	if inIdx < 0 || inIdx >= to.NumInputs() {
		return status.Errorf(status.StatusInvalidGraph, "connect: %s has no input slot %d", to, inIdx)
	}
	in := to.InputSlot(inIdx)
	if in.connected {
		return status.Errorf(status.StatusInvalidGraph, "connect: input slot %d of %s is already connected", inIdx, to)
	}

	in.source = OutputSlotRef{Layer: from.id, Index: outIdx}
	in.connected = true
	out := from.OutputSlot(outIdx)
	out.consumers = append(out.consumers, InputSlotRef{Layer: to.id, Index: inIdx})
	return nil
}

// Producer returns the layer and output index feeding input slot inIdx of l
func (g *Graph) Producer(l *Layer, inIdx int) (*Layer, int, error) {
	if inIdx < 0 || inIdx >= l.NumInputs() {
		return nil, 0, status.Errorf(status.StatusInvalidGraph, "%s has no input slot %d", l, inIdx)
	}
	src, ok := l.InputSlot(inIdx).Source()
	if !ok {
		return nil, 0, status.Errorf(status.StatusInvalidGraph, "input slot %d of %s is not connected", inIdx, l)
	}
	producer := g.Layer(src.Layer)
	if producer == nil || src.Index >= producer.NumOutputs() {
		return nil, 0, status.Errorf(status.StatusInvalidGraph, "input slot %d of %s references a missing output", inIdx, l)
	}
	return producer, src.Index, nil
}

// Validate checks that every input is connected and every output declares
// its tensor info.
func (g *Graph) Validate() error {
	if len(g.layers) == 0 {
		return status.NewError(status.StatusInvalidGraph, "graph has no layers")
	}
	for _, l := range g.layers {
		for i := range l.inputs {
			if _, _, err := g.Producer(l, i); err != nil {
				return err
			}
		}
		for i := range l.outputs {
			if !l.outputs[i].hasInfo {
				return status.Errorf(status.StatusInvalidGraph, "output slot %d of %s has no tensor info", i, l)
			}
		}
	}
	return nil
}

// TopologicalOrder returns the layers so that every producer precedes its
// consumers. Ties are broken by layer id.
func (g *Graph) TopologicalOrder() ([]*Layer, error) {
	inDegree := make([]int, len(g.layers))
	for _, l := range g.layers {
		for _, in := range l.inputs {
			if in.connected {
				inDegree[l.id]++
			}
		}
	}

	// Kahn's algorithm
	queue := make([]LayerID, 0, len(g.layers))
	for id, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, LayerID(id))
		}
	}

	order := make([]*Layer, 0, len(g.layers))
	for len(queue) > 0 {
		current := g.layers[queue[0]]
		queue = queue[1:]
		order = append(order, current)

		for _, out := range current.outputs {
			for _, consumer := range out.consumers {
				inDegree[consumer.Layer]--
				if inDegree[consumer.Layer] == 0 {
					queue = append(queue, consumer.Layer)
				}
			}
		}
	}

	if len(order) != len(g.layers) {
		return nil, status.Errorf(status.StatusInvalidGraph, "graph contains a cycle (%d of %d layers ordered)", len(order), len(g.layers))
	}
	return order, nil
}

// ReleaseTensorHandles releases every bound output handle
func (g *Graph) ReleaseTensorHandles() error {
	var first error
	for _, l := range g.layers {
		for i := range l.outputs {
			h := l.outputs[i].handle
			if h == nil {
				continue
			}
			if err := h.Release(); err != nil && first == nil {
				first = err
			}
			l.outputs[i].handle = nil
		}
	}
	return first
}
