package reference

import (
	"context"

	"github.com/pkg/errors"

	"github.com/emergingrobotics/go-refnn/pkg/graph"
	"github.com/emergingrobotics/go-refnn/pkg/status"
	"github.com/emergingrobotics/go-refnn/pkg/workload"
)

// dependencies is the producer/consumer relation between bound workloads,
// indexed by execution order.
type dependencies struct {
	inDegree  []int
	consumers [][]int
}

func newDependencies(g *graph.Graph, workloads []workload.Workload) (dependencies, error) {
	index := make(map[string]int, len(workloads))
	for i, w := range workloads {
		index[w.Info().Name] = i
	}

	d := dependencies{
		inDegree:  make([]int, len(workloads)),
		consumers: make([][]int, len(workloads)),
	}
	for i, w := range workloads {
		l := g.LayerByName(w.Info().Name)
		seen := make(map[int]bool)
		for slot := 0; slot < l.NumInputs(); slot++ {
			producer, _, err := g.Producer(l, slot)
			if err != nil {
				return d, status.WithLayer(err, l.Name())
			}
			p, ok := index[producer.Name()]
			if !ok {
				return d, status.WithLayer(status.Errorf(status.StatusInvalidGraph,
					"producer %s has no workload", producer.Name()), l.Name())
			}
			if seen[p] {
				continue
			}
			seen[p] = true
			d.inDegree[i]++
			d.consumers[p] = append(d.consumers[p], i)
		}
	}
	return d, nil
}

// executeConcurrent runs workloads on up to n.workers goroutines. A
// workload starts only after every producer it reads has finished. Once
// ctx is done no new workload starts; the call returns after the running
// ones finish.
func (n *Network) executeConcurrent(ctx context.Context) error {
	inDegree := make([]int, len(n.deps.inDegree))
	copy(inDegree, n.deps.inDegree)

	queue := make([]int, 0, len(n.workloads))
	for i, d := range inDegree {
		if d == 0 {
			queue = append(queue, i)
		}
	}

	done := make(chan int, len(n.workloads))
	running := 0
	var ctxErr error
	for {
		for ctxErr == nil && len(queue) > 0 && running < n.workers {
			i := queue[0]
			if err := ctx.Err(); err != nil {
				ctxErr = errors.Wrapf(err, "before %s", n.workloads[i].Info().Name)
				break
			}
			queue = queue[1:]
			running++
			go func(i int) {
				n.workloads[i].Execute()
				done <- i
			}(i)
		}
		if running == 0 {
			break
		}

		i := <-done
		running--
		for _, c := range n.deps.consumers[i] {
			inDegree[c]--
			if inDegree[c] == 0 {
				queue = append(queue, c)
			}
		}
	}
	return ctxErr
}
