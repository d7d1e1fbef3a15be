// Package alloc plans a graph's tensor memory inside one linear byte arena.
//
// The allocator works in two phases. While planning, Alloc and Free hand out
// relative offsets and maintain a free list over the address space. A single
// Materialize call then requests exactly peak bytes from the device provider
// and freezes the plan: any Alloc or Free afterwards is a usage error.
package alloc

import (
	"errors"
	"fmt"
	"sort"

	"github.com/flint-ml/flint/internal/device"
)

// alignment is the allocation granularity in bytes. It matches the widest
// element type a tensor can hold (float64/int64).
const alignment = 8

// ErrMaterialized is returned by Alloc and Free once the arena has been
// materialized: the plan is frozen after the first pointer request.
var ErrMaterialized = errors.New("alloc: arena already materialized")

// block is a free interval [off, off+size) in the arena.
type block struct {
	off  int
	size int
}

// Allocator is a first-fit planner over a linear byte address space.
// Free blocks are kept sorted by address, disjoint and non-adjacent
// (adjacent blocks coalesce on Free).
type Allocator struct {
	provider device.Provider

	used int // bytes currently allocated
	peak int // high-water mark, the arena size at materialization

	free []block
	buf  device.Buffer
}

// New returns an empty allocator drawing real memory from the provider.
func New(p device.Provider) *Allocator {
	return &Allocator{provider: p}
}

// alignUp rounds size up to the allocation granularity.
// A zero-byte request stays zero: zero-size tensors occupy no arena space.
func alignUp(size int) int {
	return (size + alignment - 1) &^ (alignment - 1)
}

// Alloc reserves size bytes and returns the relative offset of the block.
//
// A free block ending at the growth edge (peak) is preferred: it is reused
// outright when large enough, otherwise peak is extended by the shortfall
// and the block consumed whole. Failing that the lowest-address free block
// that fits is taken (first-fit), splitting off any remainder. Failing that
// the arena grows at peak.
func (a *Allocator) Alloc(size int) (int, error) {
	if a.buf != nil {
		return 0, ErrMaterialized
	}
	if size < 0 {
		return 0, fmt.Errorf("alloc: negative size %d", size)
	}
	size = alignUp(size)
	if size == 0 {
		return a.peak, nil
	}

	if n := len(a.free); n > 0 {
		if last := a.free[n-1]; last.off+last.size == a.peak {
			addr := last.off
			if last.size >= size {
				if last.size > size {
					a.free[n-1] = block{off: addr + size, size: last.size - size}
				} else {
					a.free = a.free[:n-1]
				}
			} else {
				a.peak += size - last.size
				a.free = a.free[:n-1]
			}
			a.used += size
			return addr, nil
		}
	}

	for i, b := range a.free {
		if b.size >= size {
			addr := b.off
			if b.size > size {
				a.free[i] = block{off: addr + size, size: b.size - size}
			} else {
				a.free = append(a.free[:i], a.free[i+1:]...)
			}
			a.used += size
			return addr, nil
		}
	}

	addr := a.peak
	a.peak += size
	a.used += size
	return addr, nil
}

// Free returns the block [off, off+size) to the free list, merging with an
// immediately following and/or preceding free block.
func (a *Allocator) Free(off, size int) error {
	if a.buf != nil {
		return ErrMaterialized
	}
	if off < 0 || size < 0 {
		return fmt.Errorf("alloc: invalid free of %d bytes at offset %d", size, off)
	}
	size = alignUp(size)
	if size == 0 {
		return nil
	}
	a.used -= size

	i := sort.Search(len(a.free), func(j int) bool { return a.free[j].off >= off })
	a.free = append(a.free, block{})
	copy(a.free[i+1:], a.free[i:])
	a.free[i] = block{off: off, size: size}

	// Merge forward, then backward against the post-merge entry.
	if i+1 < len(a.free) && off+size == a.free[i+1].off {
		a.free[i].size += a.free[i+1].size
		a.free = append(a.free[:i+1], a.free[i+2:]...)
	}
	if i > 0 && a.free[i-1].off+a.free[i-1].size == off {
		a.free[i-1].size += a.free[i].size
		a.free = append(a.free[:i], a.free[i+1:]...)
	}
	return nil
}

// Materialize requests exactly peak bytes from the provider on first call
// and returns the backing bytes. Subsequent calls return the same bytes.
func (a *Allocator) Materialize() ([]byte, error) {
	if a.buf == nil {
		buf, err := a.provider.Allocate(a.peak)
		if err != nil {
			return nil, fmt.Errorf("alloc: materialize %d bytes: %w", a.peak, err)
		}
		a.buf = buf
	}
	return a.buf.Bytes(), nil
}

// Materialized reports whether the arena has been materialized.
func (a *Allocator) Materialized() bool {
	return a.buf != nil
}

// Close releases the backing buffer if the arena was materialized.
func (a *Allocator) Close() error {
	if a.buf == nil {
		return nil
	}
	err := a.provider.Release(a.buf)
	a.buf = nil
	return err
}

// Used returns the net outstanding allocated bytes.
func (a *Allocator) Used() int { return a.used }

// Peak returns the high-water mark of the address space.
func (a *Allocator) Peak() int { return a.peak }

// String summarizes the allocator state.
func (a *Allocator) String() string {
	return fmt.Sprintf("used %d bytes, peak %d bytes, %d free blocks", a.used, a.peak, len(a.free))
}
