// Copyright 2025 Flint Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package device provides the public memory-provider API for Flint graphs.
//
// A graph plans tensor offsets first and asks its Provider for backing
// memory exactly once, so providers only ever see one arena-sized request.
//
// Implementations:
//   - NewHost: ordinary Go heap memory
//   - device/webgpu: staging buffers on a WebGPU device
package device

import (
	internaldevice "github.com/flint-ml/flint/internal/device"
)

// Provider allocates and releases backing buffers for graph arenas.
type Provider = internaldevice.Provider

// Buffer is a contiguous region of host-visible memory.
type Buffer = internaldevice.Buffer

// Host is a Provider backed by ordinary Go heap memory.
type Host = internaldevice.Host

// NewHost returns a host-memory provider.
//
// Example:
//
//	g := ir.NewGraph(device.NewHost())
func NewHost() *Host {
	return internaldevice.NewHost()
}
