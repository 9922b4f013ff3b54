package reference

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/emergingrobotics/go-refnn/pkg/descriptor"
	"github.com/emergingrobotics/go-refnn/pkg/graph"
	"github.com/emergingrobotics/go-refnn/pkg/memory"
	"github.com/emergingrobotics/go-refnn/pkg/status"
	"github.com/emergingrobotics/go-refnn/pkg/tensor"
	"github.com/emergingrobotics/go-refnn/pkg/workload"
)

// Network runs the workloads of a bound graph. Inputs and outputs are
// addressed by the binding id of the graph's Input and Output layers.
type Network struct {
	mu        sync.Mutex
	graph     *graph.Graph
	workloads []workload.Workload
	inputs    map[int]*memory.TensorHandle
	outputs   map[int]*memory.TensorHandle
	deps      dependencies
	workers   int
	logger    *slog.Logger
	stats     Stats
	closed    bool
}

// Stats holds execution statistics
type Stats struct {
	Executions int64
	TotalTime  time.Duration
	MinTime    time.Duration
	MaxTime    time.Duration
}

// AverageTime returns the mean execution time
func (s Stats) AverageTime() time.Duration {
	if s.Executions == 0 {
		return 0
	}
	return s.TotalTime / time.Duration(s.Executions)
}

// Load binds every layer of g and returns a network ready to execute.
// The network owns the graph's tensor handles from then on. A failed load
// releases everything it allocated.
func (f *WorkloadFactory) Load(g *graph.Graph) (*Network, error) {
	workloads, err := f.CreateWorkloads(g)
	if err != nil {
		return nil, err
	}

	n := &Network{
		graph:     g,
		workloads: workloads,
		inputs:    make(map[int]*memory.TensorHandle),
		outputs:   make(map[int]*memory.TensorHandle),
		workers:   f.workers,
		logger:    f.logger,
	}
	for _, w := range workloads {
		if err := n.registerBinding(g, w); err != nil {
			f.unwind(g, workloads)
			return nil, err
		}
	}
	if n.deps, err = newDependencies(g, workloads); err != nil {
		f.unwind(g, workloads)
		return nil, err
	}

	f.logger.Info("loaded network",
		"graph", g.ID().String(),
		"workloads", len(workloads),
		"inputs", len(n.inputs),
		"outputs", len(n.outputs),
		"workers", n.workers)
	return n, nil
}

// registerBinding records the staging handle of an Input or Output workload
func (n *Network) registerBinding(g *graph.Graph, w workload.Workload) error {
	kind := w.Info().Type
	if kind != graph.LayerInput && kind != graph.LayerOutput {
		return nil
	}
	l := g.LayerByName(w.Info().Name)
	p, err := params[descriptor.Binding](l)
	if err != nil {
		return status.WithLayer(err, l.Name())
	}

	table := n.inputs
	if kind == graph.LayerOutput {
		table = n.outputs
	}
	if _, dup := table[p.ID]; dup {
		return status.WithLayer(status.Errorf(status.StatusInvalidGraph, "binding id %d is used twice", p.ID), l.Name())
	}
	table[p.ID] = stagingHandle(w)
	return nil
}

// Workloads returns the bound workloads in execution order
func (n *Network) Workloads() []workload.Workload {
	return n.workloads
}

// InputInfo returns the tensor info expected for an input binding
func (n *Network) InputInfo(id int) (tensor.Info, error) {
	h, ok := n.inputs[id]
	if !ok {
		return tensor.Info{}, ErrUnknownBinding
	}
	return h.Info(), nil
}

// OutputInfo returns the tensor info produced for an output binding
func (n *Network) OutputInfo(id int) (tensor.Info, error) {
	h, ok := n.outputs[id]
	if !ok {
		return tensor.Info{}, ErrUnknownBinding
	}
	return h.Info(), nil
}

// InputIDs returns the input binding ids in ascending order
func (n *Network) InputIDs() []int {
	return sortedIDs(n.inputs)
}

// OutputIDs returns the output binding ids in ascending order
func (n *Network) OutputIDs() []int {
	return sortedIDs(n.outputs)
}

func sortedIDs(m map[int]*memory.TensorHandle) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// SetInput copies data into an input binding
func (n *Network) SetInput(id int, data []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.setInput(id, data)
}

func (n *Network) setInput(id int, data []byte) error {
	if n.closed {
		return ErrNetworkClosed
	}
	h, ok := n.inputs[id]
	if !ok {
		return ErrUnknownBinding
	}
	if len(data) != h.Info().NumBytes() {
		return ErrInputSizeMismatch
	}
	_, err := h.Write(0, data)
	return err
}

// Execute runs every workload once in dependency order. Cancellation is
// checked between workloads. With more than one worker, workloads whose
// producers have all completed run concurrently.
func (n *Network) Execute(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.execute(ctx)
}

func (n *Network) execute(ctx context.Context) error {
	if n.closed {
		return ErrNetworkClosed
	}

	start := time.Now()
	if n.workers > 1 {
		if err := n.executeConcurrent(ctx); err != nil {
			return err
		}
		n.record(time.Since(start))
		return nil
	}
	for _, w := range n.workloads {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "before %s", w.Info().Name)
		}
		w.Execute()
	}
	n.record(time.Since(start))
	return nil
}

func (n *Network) record(d time.Duration) {
	n.stats.Executions++
	n.stats.TotalTime += d
	if n.stats.MinTime == 0 || d < n.stats.MinTime {
		n.stats.MinTime = d
	}
	if d > n.stats.MaxTime {
		n.stats.MaxTime = d
	}
}

// Output returns a copy of an output binding's contents
func (n *Network) Output(id int) ([]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.output(id)
}

func (n *Network) output(id int) ([]byte, error) {
	if n.closed {
		return nil, ErrNetworkClosed
	}
	h, ok := n.outputs[id]
	if !ok {
		return nil, ErrUnknownBinding
	}
	out := make([]byte, len(h.Bytes()))
	copy(out, h.Bytes())
	return out, nil
}

// ValidateInputs checks that inputs name every input binding with data of
// the right size and nothing else.
func (n *Network) ValidateInputs(inputs map[int][]byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.validateInputs(inputs)
}

func (n *Network) validateInputs(inputs map[int][]byte) error {
	if n.closed {
		return ErrNetworkClosed
	}
	for id := range inputs {
		if _, ok := n.inputs[id]; !ok {
			return ErrUnknownBinding
		}
	}
	for id, h := range n.inputs {
		data, ok := inputs[id]
		if !ok {
			return ErrMissingInput
		}
		if len(data) != h.Info().NumBytes() {
			return ErrInputSizeMismatch
		}
	}
	return nil
}

// Infer sets all inputs, executes and returns all outputs
func (n *Network) Infer(ctx context.Context, inputs map[int][]byte) (map[int][]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.validateInputs(inputs); err != nil {
		return nil, err
	}
	for id, data := range inputs {
		if err := n.setInput(id, data); err != nil {
			return nil, err
		}
	}
	if err := n.execute(ctx); err != nil {
		return nil, err
	}

	outputs := make(map[int][]byte, len(n.outputs))
	for id := range n.outputs {
		out, err := n.output(id)
		if err != nil {
			return nil, err
		}
		outputs[id] = out
	}
	return outputs, nil
}

// Stats returns execution statistics
func (n *Network) Stats() Stats {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stats
}

// Close releases every tensor handle. Further calls fail with
// ErrNetworkClosed.
func (n *Network) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil
	}
	n.closed = true
	err := n.release()
	n.logger.Info("closed network", "graph", n.graph.ID().String(), "executions", n.stats.Executions)
	return err
}

func (n *Network) release() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	for _, h := range n.inputs {
		keep(h.Release())
	}
	for _, h := range n.outputs {
		keep(h.Release())
	}
	keep(n.graph.ReleaseTensorHandles())
	return first
}
