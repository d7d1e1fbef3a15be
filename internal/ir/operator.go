package ir

import "fmt"

// OpType tags the closed set of operator variants.
type OpType int

// Operator variants.
const (
	OpMatMul OpType = iota
	OpTranspose
	OpConcat
)

// String returns the variant name.
func (t OpType) String() string {
	switch t {
	case OpMatMul:
		return "MatMul"
	case OpTranspose:
		return "Transpose"
	case OpConcat:
		return "Concat"
	default:
		return "Unknown"
	}
}

// Operator is the capability interface every variant supplies: identity,
// connectivity and a pure shape rule over its current inputs. The optimizer
// additionally type-asserts concrete variants (*Transpose, *MatMul) to reach
// their attributes.
type Operator interface {
	ID() int
	Type() OpType
	Inputs() []*Tensor
	Outputs() []*Tensor
	Predecessors() []Operator
	Successors() []Operator

	// InferShape computes the output shape(s) from the current input shapes
	// and the operator's attributes. An error means the inputs are
	// incompatible; graph-level callers escalate it.
	InferShape() ([]Shape, error)

	fmt.Stringer

	node() *opNode
}

// opNode carries the connectivity state shared by all operator variants.
// Predecessor/successor sets are derived from shared tensor edges and
// maintained alongside them; they are never independently authoritative.
type opNode struct {
	id  int
	typ OpType

	inputs  []*Tensor
	outputs []*Tensor

	preds []Operator
	succs []Operator
}

func (n *opNode) ID() int                  { return n.id }
func (n *opNode) Type() OpType             { return n.typ }
func (n *opNode) Inputs() []*Tensor        { return n.inputs }
func (n *opNode) Outputs() []*Tensor       { return n.outputs }
func (n *opNode) Predecessors() []Operator { return n.preds }
func (n *opNode) Successors() []Operator   { return n.succs }
func (n *opNode) node() *opNode            { return n }

func (n *opNode) addPredecessor(op Operator) {
	if !containsOperator(n.preds, op) {
		n.preds = append(n.preds, op)
	}
}

func (n *opNode) removePredecessor(op Operator) {
	n.preds = removeOperatorFrom(n.preds, op)
}

func (n *opNode) addSuccessor(op Operator) {
	if !containsOperator(n.succs, op) {
		n.succs = append(n.succs, op)
	}
}

func (n *opNode) removeSuccessor(op Operator) {
	n.succs = removeOperatorFrom(n.succs, op)
}

// replaceInput swaps every occurrence of from in the input list for to.
func (n *opNode) replaceInput(from, to *Tensor) {
	for i, in := range n.inputs {
		if in == from {
			n.inputs[i] = to
		}
	}
}

// sameOperator compares operator identity through the shared node, so an
// operator held under different interface values still compares equal.
func sameOperator(a, b Operator) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.node() == b.node()
}

func containsOperator(list []Operator, op Operator) bool {
	for _, o := range list {
		if sameOperator(o, op) {
			return true
		}
	}
	return false
}

func removeOperatorFrom(list []Operator, op Operator) []Operator {
	for i, o := range list {
		if sameOperator(o, op) {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func operatorIDs(ops []Operator) []int {
	ids := make([]int, len(ops))
	for i, op := range ops {
		ids[i] = op.ID()
	}
	return ids
}

// finishOp validates a freshly constructed operator against its shape rule
// and fills placeholder outputs. With a pre-existing output the inferred
// shape must match its stored shape; with a nil placeholder the graph
// materializes the output tensor from the inferred shape. Detached
// construction (g == nil, used by rewrites) requires concrete outputs.
func finishOp(g *Graph, op Operator) error {
	shapes, err := op.InferShape()
	if err != nil {
		return fmt.Errorf("%s: %w", op.Type(), err)
	}
	n := op.node()
	if len(shapes) != len(n.outputs) {
		return fmt.Errorf("%s: shape rule produced %d outputs, operator declares %d",
			op.Type(), len(shapes), len(n.outputs))
	}
	for i, out := range n.outputs {
		if out == nil {
			if g == nil {
				return fmt.Errorf("%s: placeholder output requires a graph", op.Type())
			}
			dtype := Float32
			for _, in := range n.inputs {
				if in != nil {
					dtype = in.DType()
					break
				}
			}
			n.outputs[i] = g.AddTensor(shapes[i], dtype)
		} else if !out.Shape().Equal(shapes[i]) {
			return fmt.Errorf("%s: output %d has shape %v, inferred %v: %w",
				op.Type(), out.ID(), out.Shape(), shapes[i], ErrShapeMismatch)
		}
	}
	return nil
}
