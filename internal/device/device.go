// Package device defines the memory providers that back graph arenas.
//
// A Provider hands out a single contiguous Buffer per request. The graph's
// allocator plans relative offsets first and asks its Provider for real
// memory exactly once, so providers never see per-tensor allocations.
package device

import "fmt"

// Buffer is a contiguous region of host-visible memory.
type Buffer interface {
	// Bytes returns the backing byte slice. The slice stays valid and
	// address-stable until the buffer is released.
	Bytes() []byte

	// Size returns the buffer length in bytes.
	Size() int
}

// Provider allocates and releases backing buffers.
type Provider interface {
	Allocate(n int) (Buffer, error)
	Release(b Buffer) error
}

// Host is a Provider backed by ordinary Go heap memory.
type Host struct{}

// NewHost returns a host-memory provider.
func NewHost() *Host {
	return &Host{}
}

type hostBuffer struct {
	data []byte
}

func (b *hostBuffer) Bytes() []byte { return b.data }
func (b *hostBuffer) Size() int     { return len(b.data) }

// Allocate returns a zeroed host buffer of n bytes.
func (h *Host) Allocate(n int) (Buffer, error) {
	if n < 0 {
		return nil, fmt.Errorf("device: negative allocation size %d", n)
	}
	return &hostBuffer{data: make([]byte, n)}, nil
}

// Release drops the buffer. Host memory is garbage collected, so this only
// validates the buffer type.
func (h *Host) Release(b Buffer) error {
	hb, ok := b.(*hostBuffer)
	if !ok {
		return fmt.Errorf("device: buffer %T was not allocated by this provider", b)
	}
	hb.data = nil
	return nil
}
