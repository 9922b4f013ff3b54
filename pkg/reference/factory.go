// Package reference is the CPU reference backend. Its WorkloadFactory binds
// graph layers to workloads, aliasing every producer output into its
// consumers, and its Network runs the bound workloads in order.
package reference

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/emergingrobotics/go-refnn/pkg/graph"
	"github.com/emergingrobotics/go-refnn/pkg/memory"
	"github.com/emergingrobotics/go-refnn/pkg/status"
	"github.com/emergingrobotics/go-refnn/pkg/tensor"
	"github.com/emergingrobotics/go-refnn/pkg/workload"
)

// variadic marks a side of a layer that accepts any positive slot count
const variadic = -1

type arity struct {
	inputs, outputs int
}

func (a arity) matches(inputs, outputs int) bool {
	ok := func(n, want int) bool {
		if want == variadic {
			return n >= 1
		}
		return n == want
	}
	return ok(inputs, a.inputs) && ok(outputs, a.outputs)
}

// arities lists the graph slot counts of every layer kind the backend
// supports. Input and Output layers have one side bound to a staging
// handle owned by the network instead of a graph edge.
var arities = map[graph.LayerType]arity{
	graph.LayerInput:                  {0, 1},
	graph.LayerOutput:                 {1, 0},
	graph.LayerActivation:             {1, 1},
	graph.LayerAddition:               {2, 1},
	graph.LayerSubtraction:            {2, 1},
	graph.LayerMultiplication:         {2, 1},
	graph.LayerDivision:               {2, 1},
	graph.LayerMaximum:                {2, 1},
	graph.LayerMinimum:                {2, 1},
	graph.LayerBatchNormalization:     {1, 1},
	graph.LayerConvolution2d:          {1, 1},
	graph.LayerDepthwiseConvolution2d: {1, 1},
	graph.LayerFullyConnected:         {1, 1},
	graph.LayerNormalization:          {1, 1},
	graph.LayerPooling2d:              {1, 1},
	graph.LayerSoftmax:                {1, 1},
	graph.LayerSplitter:               {1, variadic},
	graph.LayerConcat:                 {variadic, 1},
	graph.LayerReshape:                {1, 1},
	graph.LayerResizeBilinear:         {1, 1},
	graph.LayerConstant:               {0, 1},
	graph.LayerRsqrt:                  {1, 1},
	graph.LayerL2Normalization:        {1, 1},
	graph.LayerConvertFp16ToFp32:      {1, 1},
	graph.LayerConvertFp32ToFp16:      {1, 1},
	graph.LayerFloor:                  {1, 1},
}

// WorkloadFactory creates reference workloads for graph layers
type WorkloadFactory struct {
	allocator memory.Allocator
	staging   memory.Allocator
	logger    *slog.Logger
	workers   int
}

// Option configures a WorkloadFactory
type Option func(*WorkloadFactory)

// WithAllocator sets the allocator for layer output tensors
func WithAllocator(a memory.Allocator) Option {
	return func(f *WorkloadFactory) {
		f.allocator = a
	}
}

// WithStagingAllocator sets the allocator for the input and output staging
// tensors of a network. It defaults to the tensor allocator.
func WithStagingAllocator(a memory.Allocator) Option {
	return func(f *WorkloadFactory) {
		f.staging = a
	}
}

// WithLogger sets the logger. Bind events are logged at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(f *WorkloadFactory) {
		f.logger = l
	}
}

// WithWorkers sets how many workloads a loaded network may run at once.
// Values below 2 run workloads one at a time in execution order.
func WithWorkers(n int) Option {
	return func(f *WorkloadFactory) {
		f.workers = n
	}
}

// NewWorkloadFactory creates a factory. Without options it allocates from
// a cache-line aligned heap and logs nothing.
func NewWorkloadFactory(opts ...Option) *WorkloadFactory {
	f := &WorkloadFactory{}
	for _, opt := range opts {
		opt(f)
	}
	if f.allocator == nil {
		f.allocator = memory.NewHeapAllocator()
	}
	if f.staging == nil {
		f.staging = f.allocator
	}
	if f.logger == nil {
		f.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if f.workers < 1 {
		f.workers = 1
	}
	return f
}

// CreateWorkload binds l and returns its workload. Every output slot gets
// a handle written only by l; every input slot reads the shared view of
// the exact producer output it is connected to. A layer that fails to
// bind or construct keeps no writer claims, consumer counts or staging
// handles, so it can be bound again once fixed.
func (f *WorkloadFactory) CreateWorkload(g *graph.Graph, l *graph.Layer) (workload.Workload, error) {
	a, ok := arities[l.Type()]
	if !ok {
		return nil, status.WithLayer(status.Errorf(status.StatusUnsupportedOperator, "%s", l.Type()), l.Name())
	}
	if !a.matches(l.NumInputs(), l.NumOutputs()) {
		return nil, status.WithLayer(status.Errorf(status.StatusInvalidGraph,
			"%s layer has %d inputs and %d outputs", l.Type(), l.NumInputs(), l.NumOutputs()), l.Name())
	}

	b := &binding{owner: l.GUID().String()}
	q, err := f.bind(g, l, b)
	if err == nil {
		var w workload.Workload
		w, err = f.construct(l, q, workload.Info{Name: l.Name(), Type: l.Type()})
		if err == nil {
			f.logger.Debug("bound workload",
				"layer", l.Name(),
				"type", l.Type().String(),
				"inputs", handleIDs(q.Inputs),
				"outputs", handleIDs(q.Outputs))
			return w, nil
		}
	}

	if rerr := b.rollback(); rerr != nil {
		f.logger.Warn("release staging", "layer", l.Name(), "error", rerr)
	}
	return nil, status.WithLayer(err, l.Name())
}

// CreateWorkloads validates g and binds every layer in dependency order.
// On failure every handle bound so far is released.
func (f *WorkloadFactory) CreateWorkloads(g *graph.Graph) ([]workload.Workload, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}

	workloads := make([]workload.Workload, 0, len(order))
	for _, l := range order {
		w, err := f.CreateWorkload(g, l)
		if err != nil {
			f.unwind(g, workloads)
			return nil, err
		}
		workloads = append(workloads, w)
	}
	return workloads, nil
}

// unwind releases the staging handles of workloads and every handle bound
// to g's output slots.
func (f *WorkloadFactory) unwind(g *graph.Graph, workloads []workload.Workload) {
	for _, w := range workloads {
		if h := stagingHandle(w); h != nil {
			if err := h.Release(); err != nil {
				f.logger.Warn("release staging", "layer", w.Info().Name, "error", err)
			}
		}
	}
	if err := g.ReleaseTensorHandles(); err != nil {
		f.logger.Warn("release tensors", "graph", g.ID().String(), "error", err)
	}
}

// stagingHandle returns the network-facing handle of an Input or Output
// workload, or nil for any other workload.
func stagingHandle(w workload.Workload) *memory.TensorHandle {
	switch w.Info().Type {
	case graph.LayerInput:
		return w.Bindings().Inputs[0].Source()
	case graph.LayerOutput:
		return w.Bindings().Outputs[0]
	}
	return nil
}

// binding records what bind acquired for one layer
type binding struct {
	owner   string
	claimed []*memory.TensorHandle
	viewed  []*memory.TensorHandle
	staging []*memory.TensorHandle
}

// rollback returns every claim and consumer count and releases staging
func (b *binding) rollback() error {
	for _, h := range b.claimed {
		h.ReleaseWriter(b.owner)
	}
	for _, h := range b.viewed {
		h.ReleaseView()
	}
	var first error
	for _, h := range b.staging {
		if err := h.Release(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// bind resolves the queue handles of l
func (f *WorkloadFactory) bind(g *graph.Graph, l *graph.Layer, b *binding) (workload.QueueDescriptor, error) {
	var q workload.QueueDescriptor

	for i := 0; i < l.NumOutputs(); i++ {
		h, err := f.outputHandle(l, i)
		if err != nil {
			return q, err
		}
		if err := h.ClaimWriter(b.owner); err != nil {
			return q, status.NewErrorWithCause(status.StatusInvalidGraph,
				fmt.Sprintf("output %d is already bound", i), err)
		}
		b.claimed = append(b.claimed, h)
		q.Outputs = append(q.Outputs, h)
	}

	for i := 0; i < l.NumInputs(); i++ {
		producer, idx, err := g.Producer(l, i)
		if err != nil {
			return q, err
		}
		h, err := f.outputHandle(producer, idx)
		if err != nil {
			return q, err
		}
		q.Inputs = append(q.Inputs, h.ReadOnly())
		b.viewed = append(b.viewed, h)
	}

	switch l.Type() {
	case graph.LayerInput:
		h, err := f.allocate(f.staging, l.OutputSlot(0).Info(), "input staging")
		if err != nil {
			return q, err
		}
		b.staging = append(b.staging, h)
		q.Inputs = append(q.Inputs, h.ReadOnly())
	case graph.LayerOutput:
		h, err := f.allocate(f.staging, q.Inputs[0].Info(), "output staging")
		if err != nil {
			return q, err
		}
		b.staging = append(b.staging, h)
		if err := h.ClaimWriter(b.owner); err != nil {
			return q, status.NewErrorWithCause(status.StatusInvalidGraph, "output staging", err)
		}
		q.Outputs = append(q.Outputs, h)
	}
	return q, nil
}

// outputHandle returns the handle of an output slot, allocating it on
// first use.
func (f *WorkloadFactory) outputHandle(l *graph.Layer, idx int) (*memory.TensorHandle, error) {
	slot := l.OutputSlot(idx)
	if h := slot.Handle(); h != nil {
		return h, nil
	}
	if !slot.HasInfo() {
		return nil, status.Errorf(status.StatusInvalidGraph, "output %d of %s has no tensor info", idx, l)
	}
	h, err := f.allocate(f.allocator, slot.Info(), fmt.Sprintf("output %d of %s", idx, l.Name()))
	if err != nil {
		return nil, err
	}
	slot.SetHandle(h)
	return h, nil
}

// allocate maps allocator failures to AllocationFailure unless the
// allocator already classified them.
func (f *WorkloadFactory) allocate(a memory.Allocator, info tensor.Info, what string) (*memory.TensorHandle, error) {
	h, err := a.Allocate(info)
	if err == nil {
		return h, nil
	}
	var statusErr *status.Error
	if errors.As(err, &statusErr) {
		return nil, err
	}
	return nil, status.NewErrorWithCause(status.StatusAllocationFailure, what,
		errors.Wrapf(err, "allocate %s", info))
}

func handleIDs[H memory.Handle](handles []H) []uint64 {
	ids := make([]uint64, len(handles))
	for i, h := range handles {
		ids[i] = h.ID()
	}
	return ids
}
