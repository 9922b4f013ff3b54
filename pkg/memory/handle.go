// Package memory provides tensor handles and the allocators that back them.
//
// A TensorHandle owns one buffer and is written by exactly one workload. Every
// consumer of that buffer reads it through the handle's single shared
// ConstTensorHandle view, so aliasing is an explicit relationship: two handles
// alias when they report the same ID.
package memory

import (
	"sync"
	"sync/atomic"

	"github.com/emergingrobotics/go-refnn/pkg/tensor"
)

var nextHandleID atomic.Uint64

func newHandleID() uint64 {
	return nextHandleID.Add(1)
}

// Handle is the capability shared by read-only and mutable tensor handles
type Handle interface {
	ID() uint64
	Info() tensor.Info
	Bytes() []byte
	IsReadOnly() bool
}

// Aliases reports whether a and b are bound to the same buffer.
func Aliases(a, b Handle) bool {
	if a == nil || b == nil {
		return false
	}
	return a.ID() == b.ID()
}

// TensorHandle is a mutable tensor buffer
type TensorHandle struct {
	id   uint64
	info tensor.Info
	data []byte
	free func() error

	mu        sync.Mutex
	writer    string
	view      *ConstTensorHandle
	consumers int
	released  bool
}

// NewTensorHandle wraps data as the storage of a tensor described by info.
// free, if non-nil, runs once when the handle is released.
func NewTensorHandle(info tensor.Info, data []byte, free func() error) (*TensorHandle, error) {
	if len(data) != info.NumBytes() {
		return nil, ErrSizeMismatch
	}
	return &TensorHandle{
		id:   newHandleID(),
		info: info.WithShape(info.Shape),
		data: data,
		free: free,
	}, nil
}

// ID returns the buffer identity shared with the handle's read-only view
func (h *TensorHandle) ID() uint64 {
	return h.id
}

// Info returns the bound tensor info
func (h *TensorHandle) Info() tensor.Info {
	return h.info
}

// Bytes returns the underlying storage. It is nil after Release.
func (h *TensorHandle) Bytes() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.data
}

// IsReadOnly always returns false for a TensorHandle
func (h *TensorHandle) IsReadOnly() bool {
	return false
}

// Write copies p into the buffer at offset
func (h *TensorHandle) Write(offset int, p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return 0, ErrReleased
	}
	if offset < 0 || offset+len(p) > len(h.data) {
		return 0, ErrWriteOutOfRange
	}
	return copy(h.data[offset:], p), nil
}

// ClaimWriter records owner as the single workload allowed to write the
// buffer. A second claim fails with ErrWriterClaimed.
func (h *TensorHandle) ClaimWriter(owner string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.writer != "" {
		return ErrWriterClaimed
	}
	h.writer = owner
	return nil
}

// ReleaseWriter drops the claim of owner. Claims held by anyone else are
// left in place.
func (h *TensorHandle) ReleaseWriter(owner string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.writer == owner {
		h.writer = ""
	}
}

// Writer returns the owner recorded by ClaimWriter
func (h *TensorHandle) Writer() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.writer
}

// ReadOnly returns the shared read-only view of the buffer and counts one
// more consumer. Every call returns the same view.
func (h *TensorHandle) ReadOnly() *ConstTensorHandle {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.view == nil {
		h.view = &ConstTensorHandle{id: h.id, info: h.info, src: h}
	}
	h.consumers++
	return h.view
}

// ReleaseView returns one consumer taken by ReadOnly. The shared view
// itself stays valid.
func (h *TensorHandle) ReleaseView() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.consumers > 0 {
		h.consumers--
	}
}

// Consumers returns how many read-only bindings were handed out
func (h *TensorHandle) Consumers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.consumers
}

// Shared reports whether more than one consumer reads the buffer
func (h *TensorHandle) Shared() bool {
	return h.Consumers() > 1
}

// Release frees the storage. Further releases are no-ops.
func (h *TensorHandle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return nil
	}
	h.released = true
	h.data = nil
	if h.free != nil {
		return h.free()
	}
	return nil
}

// ConstTensorHandle is a read-only tensor. It is either a view of a
// TensorHandle or a standalone constant such as a weight tensor.
type ConstTensorHandle struct {
	id   uint64
	info tensor.Info
	data []byte
	src  *TensorHandle
}

// NewConstTensor copies data into a standalone read-only tensor
func NewConstTensor(info tensor.Info, data []byte) (*ConstTensorHandle, error) {
	if len(data) != info.NumBytes() {
		return nil, ErrSizeMismatch
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return &ConstTensorHandle{
		id:   newHandleID(),
		info: info.WithShape(info.Shape),
		data: buf,
	}, nil
}

// ID returns the buffer identity
func (c *ConstTensorHandle) ID() uint64 {
	return c.id
}

// Info returns the bound tensor info
func (c *ConstTensorHandle) Info() tensor.Info {
	return c.info
}

// Bytes returns the storage for reading. Callers must not modify it.
func (c *ConstTensorHandle) Bytes() []byte {
	if c.src != nil {
		return c.src.Bytes()
	}
	return c.data
}

// IsReadOnly always returns true for a ConstTensorHandle
func (c *ConstTensorHandle) IsReadOnly() bool {
	return true
}

// Write always fails; read-only handles reject writes.
func (c *ConstTensorHandle) Write(offset int, p []byte) (int, error) {
	return 0, ErrReadOnly
}

// Source returns the mutable handle this view reads, or nil for a constant
func (c *ConstTensorHandle) Source() *TensorHandle {
	return c.src
}
