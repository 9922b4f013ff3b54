//go:build linux || darwin

package memory

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/emergingrobotics/go-refnn/pkg/status"
	"github.com/emergingrobotics/go-refnn/pkg/tensor"
)

// MmapAllocator backs each tensor with its own page-aligned anonymous mapping
type MmapAllocator struct {
	mu       sync.Mutex
	pageSize int
	limit    int
	mapped   int
}

// NewMmapAllocator creates an allocator using anonymous private mappings
func NewMmapAllocator(opts ...Option) *MmapAllocator {
	cfg := newAllocatorConfig(os.Getpagesize(), opts)
	return &MmapAllocator{
		pageSize: cfg.alignment,
		limit:    cfg.limit,
	}
}

// PageSize returns the mapping granularity
func (a *MmapAllocator) PageSize() int {
	return a.pageSize
}

// Allocate maps a zeroed, page-aligned buffer for info. The mapping is
// unmapped when the handle is released.
func (a *MmapAllocator) Allocate(info tensor.Info) (*TensorHandle, error) {
	if err := info.Validate(); err != nil {
		return nil, status.NewErrorWithCause(status.StatusIncompatibleTensorInfo, "allocate "+info.String(), err)
	}

	size := info.NumBytes()
	if size == 0 {
		// mmap rejects empty mappings
		return NewTensorHandle(info, []byte{}, nil)
	}

	// Round up to page size for alignment
	alignedSize := ((size + a.pageSize - 1) / a.pageSize) * a.pageSize

	a.mu.Lock()
	if a.limit > 0 && a.mapped+alignedSize > a.limit {
		mapped := a.mapped
		a.mu.Unlock()
		return nil, status.NewErrorWithCause(status.StatusAllocationFailure, "mmap",
			errors.Errorf("mapping of %d bytes exceeds limit %d (%d mapped)", alignedSize, a.limit, mapped))
	}
	a.mapped += alignedSize
	a.mu.Unlock()

	data, err := unix.Mmap(-1, 0, alignedSize,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		a.release(alignedSize)
		return nil, status.NewErrorWithCause(status.StatusAllocationFailure, "mmap",
			errors.Wrapf(err, "mapping %d bytes", alignedSize))
	}

	h, err := NewTensorHandle(info, data[:size:size], func() error {
		defer a.release(alignedSize)
		if err := unix.Munmap(data); err != nil {
			return errors.Wrap(err, "munmap")
		}
		return nil
	})
	if err != nil {
		unix.Munmap(data)
		a.release(alignedSize)
		return nil, status.NewErrorWithCause(status.StatusAllocationFailure, "mmap", errors.WithStack(err))
	}
	return h, nil
}

// Mapped returns the number of bytes currently mapped
func (a *MmapAllocator) Mapped() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mapped
}

func (a *MmapAllocator) release(n int) {
	a.mu.Lock()
	a.mapped -= n
	a.mu.Unlock()
}
