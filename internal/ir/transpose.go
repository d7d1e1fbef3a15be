package ir

import "fmt"

// Transpose reorders a tensor's axes: output axis i is input axis perm[i].
type Transpose struct {
	opNode

	perm []int
}

func newTranspose(g *Graph, in, out *Tensor, perm []int) (*Transpose, error) {
	tp := &Transpose{
		opNode: opNode{typ: OpTranspose, inputs: []*Tensor{in}, outputs: []*Tensor{out}},
		perm:   append([]int(nil), perm...),
	}
	if err := finishOp(g, tp); err != nil {
		return nil, err
	}
	return tp, nil
}

// Perm returns the permutation vector.
func (tp *Transpose) Perm() []int { return tp.perm }

// InferShape permutes the input shape, validating that perm is a proper
// permutation of the input's axes.
func (tp *Transpose) InferShape() ([]Shape, error) {
	in := tp.inputs[0].Shape()
	if len(tp.perm) != len(in) {
		return nil, fmt.Errorf("permutation %v does not match rank-%d input %v", tp.perm, len(in), in)
	}
	seen := make([]bool, len(in))
	out := make(Shape, len(in))
	for i, p := range tp.perm {
		if p < 0 || p >= len(in) || seen[p] {
			return nil, fmt.Errorf("invalid permutation %v for input %v", tp.perm, in)
		}
		seen[p] = true
		out[i] = in[p]
	}
	return []Shape{out}, nil
}

// String renders the operator with its permutation and tensor ids.
func (tp *Transpose) String() string {
	return fmt.Sprintf("Transpose(perm=%v,input=%d,output=%d)",
		tp.perm, tp.inputs[0].ID(), tp.outputs[0].ID())
}

// isInversePermutation reports whether applying p then q restores the
// original axis order: q[p[i]] == i for every axis.
func isInversePermutation(p, q []int) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] < 0 || p[i] >= len(q) || q[p[i]] != i {
			return false
		}
	}
	return true
}

// swapsLastTwoAxes reports whether perm leaves every axis before the last
// two unchanged and swaps exactly the last two.
func swapsLastTwoAxes(perm []int, rank int) bool {
	if rank < 2 || len(perm) != rank {
		return false
	}
	for i := 0; i < rank-2; i++ {
		if perm[i] != i {
			return false
		}
	}
	return perm[rank-2] == rank-1 && perm[rank-1] == rank-2
}
