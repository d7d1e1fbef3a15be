// Package webgpu implements a graph memory provider on a WebGPU device.
// Uses go-webgpu (github.com/go-webgpu/webgpu) for zero-CGO WebGPU bindings.
//
// Buffers are created with MappedAtCreation and stay mapped, so the graph
// sees ordinary host-visible bytes while the memory lives in a GPU staging
// buffer. Kernel dispatch is out of scope; a backend that executes on the
// device would unmap and submit the buffer itself.
package webgpu

import (
	"fmt"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/flint-ml/flint/internal/device"
)

// Provider allocates staging buffers on a WebGPU device.
type Provider struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
}

// New initializes a WebGPU instance, adapter and device.
func New() (p *Provider, err error) {
	// Recover from panic if the wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			p = nil
			err = fmt.Errorf("webgpu: native library not available: %v", r)
		}
	}()

	instance, instErr := wgpu.CreateInstance(nil)
	if instErr != nil {
		return nil, fmt.Errorf("webgpu: failed to create instance: %w", instErr)
	}
	adapter, adapterErr := instance.RequestAdapter(nil)
	if adapterErr != nil {
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request adapter: %w", adapterErr)
	}
	dev, deviceErr := adapter.RequestDevice(nil)
	if deviceErr != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request device: %w", deviceErr)
	}
	return &Provider{instance: instance, adapter: adapter, device: dev}, nil
}

type stagingBuffer struct {
	buffer *wgpu.Buffer
	mapped []byte
}

func (b *stagingBuffer) Bytes() []byte { return b.mapped }
func (b *stagingBuffer) Size() int     { return len(b.mapped) }

// Allocate creates a mapped staging buffer of n bytes on the device.
func (p *Provider) Allocate(n int) (device.Buffer, error) {
	if n < 0 {
		return nil, fmt.Errorf("webgpu: negative allocation size %d", n)
	}
	if n == 0 {
		return &stagingBuffer{}, nil
	}
	size := uint64(n)
	buffer := p.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageMapWrite | wgpu.BufferUsageCopySrc,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	mappedPtr := buffer.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mapped := unsafe.Slice((*byte)(mappedPtr), size)
	return &stagingBuffer{buffer: buffer, mapped: mapped}, nil
}

// Release unmaps and releases the buffer.
func (p *Provider) Release(b device.Buffer) error {
	sb, ok := b.(*stagingBuffer)
	if !ok {
		return fmt.Errorf("webgpu: buffer %T was not allocated by this provider", b)
	}
	if sb.buffer != nil {
		sb.buffer.Unmap()
		sb.buffer.Release()
		sb.buffer = nil
	}
	sb.mapped = nil
	return nil
}

// Close releases the device, adapter and instance.
func (p *Provider) Close() {
	if p.device != nil {
		p.device.Release()
		p.device = nil
	}
	if p.adapter != nil {
		p.adapter.Release()
		p.adapter = nil
	}
	if p.instance != nil {
		p.instance.Release()
		p.instance = nil
	}
}
