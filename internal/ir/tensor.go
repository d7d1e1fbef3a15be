package ir

import (
	"fmt"
	"strings"
)

// Tensor is a value node in the graph: a shaped, typed buffer produced by at
// most one operator (its source) and consumed by any number of operators
// (its targets). Source and targets are relationship edges; the graph owns
// the tensor itself.
type Tensor struct {
	id    int
	shape Shape
	dtype DataType

	source  Operator
	targets []Operator

	// data is the slice of the graph arena bound to this tensor by memory
	// planning. Bound once, immutable after.
	data []byte
}

// ID returns the tensor's graph-unique id.
func (t *Tensor) ID() int { return t.id }

// Shape returns the tensor's shape.
func (t *Tensor) Shape() Shape { return t.shape }

// DType returns the tensor's element type.
func (t *Tensor) DType() DataType { return t.dtype }

// Rank returns the number of axes.
func (t *Tensor) Rank() int { return len(t.shape) }

// Bytes returns the tensor's byte footprint, derived from shape and dtype.
func (t *Tensor) Bytes() int {
	return t.shape.NumElements() * t.dtype.Size()
}

// Source returns the operator producing this tensor, or nil for graph inputs.
func (t *Tensor) Source() Operator { return t.source }

// Targets returns the operators consuming this tensor.
func (t *Tensor) Targets() []Operator { return t.targets }

// Data returns the bound arena slice, or nil before memory planning.
func (t *Tensor) Data() []byte { return t.data }

// setShape updates the stored shape in place. Shape inference uses this when
// a rewrite changed an operator's effective operand shapes.
func (t *Tensor) setShape(s Shape) {
	t.shape = s.Clone()
}

// bind attaches the tensor to its arena slice. Binding twice is an error.
func (t *Tensor) bind(data []byte) error {
	if t.data != nil {
		return fmt.Errorf("tensor %d already bound", t.id)
	}
	t.data = data
	return nil
}

func (t *Tensor) addTarget(op Operator) {
	if !containsOperator(t.targets, op) {
		t.targets = append(t.targets, op)
	}
}

func (t *Tensor) removeTarget(op Operator) {
	for i, o := range t.targets {
		if sameOperator(o, op) {
			t.targets = append(t.targets[:i], t.targets[i+1:]...)
			return
		}
	}
}

// String renders the tensor with its resolved source and target ids.
func (t *Tensor) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Tensor %d, shape %v, dtype %s", t.id, t.shape, t.dtype)
	if t.source != nil {
		fmt.Fprintf(&sb, ", source %d", t.source.ID())
	} else {
		sb.WriteString(", source none")
	}
	fmt.Fprintf(&sb, ", targets %v", operatorIDs(t.targets))
	return sb.String()
}
