package memory

import (
	"sync"
	"unsafe"

	"github.com/klauspost/cpuid/v2"
	"github.com/pkg/errors"

	"github.com/emergingrobotics/go-refnn/pkg/status"
	"github.com/emergingrobotics/go-refnn/pkg/tensor"
)

// DefaultCacheLineSize is used when the host cache line cannot be detected.
const DefaultCacheLineSize = 64

// Allocator hands out mutable tensor handles sized for a tensor info
type Allocator interface {
	Allocate(info tensor.Info) (*TensorHandle, error)
}

// CacheLineSize returns the host cache line size
func CacheLineSize() int {
	if cpuid.CPU.CacheLine > 0 {
		return cpuid.CPU.CacheLine
	}
	return DefaultCacheLineSize
}

type allocatorConfig struct {
	alignment int
	limit     int
}

// Option configures an allocator
type Option func(*allocatorConfig)

// WithAlignment sets the buffer alignment in bytes. Values that are not a
// power of two are rounded up to one.
func WithAlignment(n int) Option {
	return func(c *allocatorConfig) {
		c.alignment = n
	}
}

// WithLimit caps the number of bytes the allocator may have outstanding.
// Zero means unlimited.
func WithLimit(bytes int) Option {
	return func(c *allocatorConfig) {
		c.limit = bytes
	}
}

func newAllocatorConfig(defaultAlignment int, opts []Option) allocatorConfig {
	cfg := allocatorConfig{alignment: defaultAlignment}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.alignment = nextPowerOfTwo(cfg.alignment)
	return cfg
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// HeapAllocator allocates cache-line aligned buffers from the Go heap
type HeapAllocator struct {
	mu        sync.Mutex
	alignment int
	limit     int
	inUse     int
	peak      int
}

// NewHeapAllocator creates a heap allocator aligned to the host cache line
func NewHeapAllocator(opts ...Option) *HeapAllocator {
	cfg := newAllocatorConfig(CacheLineSize(), opts)
	return &HeapAllocator{
		alignment: cfg.alignment,
		limit:     cfg.limit,
	}
}

// Alignment returns the buffer alignment in bytes
func (a *HeapAllocator) Alignment() int {
	return a.alignment
}

// Allocate returns a zeroed handle for info
func (a *HeapAllocator) Allocate(info tensor.Info) (*TensorHandle, error) {
	if err := info.Validate(); err != nil {
		return nil, status.NewErrorWithCause(status.StatusIncompatibleTensorInfo, "allocate "+info.String(), err)
	}
	size := info.NumBytes()

	a.mu.Lock()
	if a.limit > 0 && a.inUse+size > a.limit {
		inUse := a.inUse
		a.mu.Unlock()
		return nil, status.NewErrorWithCause(status.StatusAllocationFailure, "heap",
			errors.Errorf("request of %d bytes exceeds limit %d (%d in use)", size, a.limit, inUse))
	}
	a.inUse += size
	if a.inUse > a.peak {
		a.peak = a.inUse
	}
	a.mu.Unlock()

	data := alignedBytes(size, a.alignment)
	h, err := NewTensorHandle(info, data, func() error {
		a.mu.Lock()
		a.inUse -= size
		a.mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, status.NewErrorWithCause(status.StatusAllocationFailure, "heap", errors.WithStack(err))
	}
	return h, nil
}

// InUse returns the number of bytes held by unreleased handles
func (a *HeapAllocator) InUse() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inUse
}

// Peak returns the high-water mark of InUse
func (a *HeapAllocator) Peak() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.peak
}

// alignedBytes allocates a byte slice whose backing array starts on an
// alignment boundary.
func alignedBytes(size, alignment int) []byte {
	if size == 0 {
		return []byte{}
	}
	buf := make([]byte, size+alignment-1)

	ptr := uintptr(unsafe.Pointer(&buf[0]))
	offset := 0
	if mod := int(ptr % uintptr(alignment)); mod != 0 {
		offset = alignment - mod
	}
	return buf[offset : offset+size : offset+size]
}

// IsAligned reports whether the first byte of b sits on an alignment boundary
func IsAligned(b []byte, alignment int) bool {
	if len(b) == 0 {
		return true
	}
	return uintptr(unsafe.Pointer(&b[0]))%uintptr(alignment) == 0
}
