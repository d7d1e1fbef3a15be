// Copyright 2025 Flint Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package ir provides the public API for Flint's tensor graph IR.
//
// The package exposes the core engine types:
//   - Graph: a mutable dataflow graph owning tensors and operators
//   - Tensor, Operator: graph nodes with bidirectional connectivity
//   - Shape, DataType: tensor metadata and shape rules
//
// A typical pipeline builds a graph, orders it, rewrites it to a fixpoint,
// refreshes shapes and plans memory:
//
//	g := ir.NewGraph(device.NewHost())
//	x := g.AddTensor(ir.Shape{2, 3}, ir.Float32)
//	w := g.AddTensor(ir.Shape{3, 5}, ir.Float32)
//	mm, _ := g.AddMatMul(x, w, nil, false, false)
//	g.Optimize()
//	_ = g.InferShapes()
//	_ = g.AllocateData()
package ir

import (
	"github.com/flint-ml/flint/internal/device"
	"github.com/flint-ml/flint/internal/ir"
)

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3, 4} is a 3D tensor with dimensions 2×3×4.
type Shape = ir.Shape

// DataType represents the underlying element type of a tensor.
type DataType = ir.DataType

// Element type constants.
const (
	Float32 DataType = ir.Float32
	Float64 DataType = ir.Float64
	Int32   DataType = ir.Int32
	Int64   DataType = ir.Int64
	Uint8   DataType = ir.Uint8
	Bool    DataType = ir.Bool
)

// Graph is a mutable dataflow graph of tensors and operators.
type Graph = ir.Graph

// Tensor is a value node owned by a Graph.
type Tensor = ir.Tensor

// Operator is the capability interface implemented by all operator variants.
type Operator = ir.Operator

// Operator variants.
type (
	// MatMul multiplies the trailing matrices of two operands.
	MatMul = ir.MatMul
	// Transpose reorders a tensor's axes by a permutation.
	Transpose = ir.Transpose
	// Concat joins tensors along one axis.
	Concat = ir.Concat
)

// OpType tags the closed set of operator variants.
type OpType = ir.OpType

// Operator type tags.
const (
	OpMatMul    OpType = ir.OpMatMul
	OpTranspose OpType = ir.OpTranspose
	OpConcat    OpType = ir.OpConcat
)

// Sentinel errors.
var (
	// ErrCyclic is returned by TopoSort when the graph contains a cycle.
	ErrCyclic = ir.ErrCyclic
	// ErrShapeMismatch is returned when a declared output shape disagrees
	// with an operator's shape rule.
	ErrShapeMismatch = ir.ErrShapeMismatch
)

// NewGraph creates an empty graph drawing arena memory from the provider.
//
// Example:
//
//	g := ir.NewGraph(device.NewHost())
func NewGraph(p device.Provider) *Graph {
	return ir.NewGraph(p)
}

// Broadcast computes the common shape of a and b under NumPy-style rules.
//
// Example:
//
//	s, err := ir.Broadcast(ir.Shape{2, 1, 4}, ir.Shape{3, 4})
//	// s = [2 3 4]
func Broadcast(a, b Shape) (Shape, error) {
	return ir.Broadcast(a, b)
}
