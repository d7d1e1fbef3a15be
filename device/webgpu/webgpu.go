// Copyright 2025 Flint Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides a WebGPU-backed memory provider for Flint graphs.
//
// Arena memory lives in a mapped GPU staging buffer, so the graph works
// with ordinary host-visible bytes while the data is ready for upload to
// the device.
package webgpu

import (
	"github.com/flint-ml/flint/device"
	internalwebgpu "github.com/flint-ml/flint/internal/device/webgpu"
)

// Provider allocates staging buffers on a WebGPU device.
type Provider = internalwebgpu.Provider

// Compile-time check that Provider implements device.Provider.
var _ device.Provider = (*Provider)(nil)

// New initializes a WebGPU instance, adapter and device. It fails with an
// error when no adapter or native library is available.
func New() (*Provider, error) {
	return internalwebgpu.New()
}
