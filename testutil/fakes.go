package testutil

import (
	"errors"
	"sync"

	"github.com/emergingrobotics/go-refnn/pkg/memory"
	"github.com/emergingrobotics/go-refnn/pkg/tensor"
)

// ErrFakeAllocation is returned by FakeAllocator once it runs out of
// successful allocations
var ErrFakeAllocation = errors.New("fake allocation error")

// FakeAllocator allocates from the heap and records every request. It can
// be told to fail after a number of successful allocations.
type FakeAllocator struct {
	mu        sync.Mutex
	heap      *memory.HeapAllocator
	requests  []tensor.Info
	failAfter int
	failing   bool
	err       error
}

// NewFakeAllocator creates an allocator that never fails
func NewFakeAllocator() *FakeAllocator {
	return &FakeAllocator{heap: memory.NewHeapAllocator(), failAfter: -1}
}

// Allocate records info and allocates unless the fake is failing
func (a *FakeAllocator) Allocate(info tensor.Info) (*memory.TensorHandle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.failAfter == 0 {
		a.failing = true
	}
	if a.failing {
		if a.err != nil {
			return nil, a.err
		}
		return nil, ErrFakeAllocation
	}
	if a.failAfter > 0 {
		a.failAfter--
	}
	a.requests = append(a.requests, info)
	return a.heap.Allocate(info)
}

// SetFailAfter makes Allocate fail once n more allocations have succeeded.
// A negative n never fails.
func (a *FakeAllocator) SetFailAfter(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failAfter = n
	a.failing = false
}

// SetError replaces the error returned when failing
func (a *FakeAllocator) SetError(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
}

// Allocations returns the number of successful allocations
func (a *FakeAllocator) Allocations() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.requests)
}

// Requests returns the infos of every successful allocation in order
func (a *FakeAllocator) Requests() []tensor.Info {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]tensor.Info(nil), a.requests...)
}

// InUse returns the bytes held by unreleased allocations
func (a *FakeAllocator) InUse() int {
	return a.heap.InUse()
}
