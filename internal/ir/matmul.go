package ir

import "fmt"

// MatMul multiplies the trailing matrices of two operands, broadcasting any
// leading batch axes. TransA/TransB swap the respective operand's matrix
// axes without moving data, which is what transpose fusion exploits.
type MatMul struct {
	opNode

	transA bool
	transB bool

	// Matrix dimensions cached by the last InferShape call.
	m, n, k int
}

func newMatMul(g *Graph, a, b, c *Tensor, transA, transB bool) (*MatMul, error) {
	mm := &MatMul{
		opNode: opNode{typ: OpMatMul, inputs: []*Tensor{a, b}, outputs: []*Tensor{c}},
		transA: transA,
		transB: transB,
	}
	if err := finishOp(g, mm); err != nil {
		return nil, err
	}
	return mm, nil
}

// TransA reports whether operand A's matrix axes are swapped.
func (mm *MatMul) TransA() bool { return mm.transA }

// TransB reports whether operand B's matrix axes are swapped.
func (mm *MatMul) TransB() bool { return mm.transB }

// MNK returns the matrix dimensions cached by the last shape inference.
func (mm *MatMul) MNK() (m, n, k int) { return mm.m, mm.n, mm.k }

// InferShape computes broadcast(batchA, batchB) ++ [m, n]. Both operands
// must have rank >= 2 and agree on the reduction size k after applying the
// trans flags.
func (mm *MatMul) InferShape() ([]Shape, error) {
	shapeA := mm.inputs[0].Shape()
	shapeB := mm.inputs[1].Shape()
	rankA, rankB := len(shapeA), len(shapeB)
	if rankA < 2 || rankB < 2 {
		return nil, fmt.Errorf("operands must have rank >= 2, got %v and %v", shapeA, shapeB)
	}

	m, kA := shapeA[rankA-2], shapeA[rankA-1]
	if mm.transA {
		m, kA = kA, m
	}
	kB, n := shapeB[rankB-2], shapeB[rankB-1]
	if mm.transB {
		kB, n = n, kB
	}
	if kA != kB {
		return nil, fmt.Errorf("reduction axis mismatch: %d vs %d (A=%v transA=%v, B=%v transB=%v)",
			kA, kB, shapeA, mm.transA, shapeB, mm.transB)
	}

	batch, err := Broadcast(shapeA[:rankA-2], shapeB[:rankB-2])
	if err != nil {
		return nil, fmt.Errorf("batch axes: %w", err)
	}

	mm.m, mm.n, mm.k = m, n, kA
	return []Shape{append(batch, m, n)}, nil
}

// String renders the operator with operand roles and cached dimensions.
func (mm *MatMul) String() string {
	a, b := "A", "B"
	if mm.transA {
		a = "A^T"
	}
	if mm.transB {
		b = "B^T"
	}
	return fmt.Sprintf("Matmul([%s,%s],A=%d,B=%d,C=%d,mnk=[%d,%d,%d])",
		a, b, mm.inputs[0].ID(), mm.inputs[1].ID(), mm.outputs[0].ID(), mm.m, mm.n, mm.k)
}
