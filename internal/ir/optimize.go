package ir

// Optimize rewrites the graph to a fixpoint, alternating inverse-transpose
// elimination and transpose-into-matmul fusion until a full cycle changes
// nothing. Rewrites are strictly local: the ids of the graph's declared
// external outputs never change, and an operator that matches no pattern is
// left alone. The operator order is invalidated afterwards.
func (g *Graph) Optimize() {
	for changed := true; changed; {
		changed = g.eliminateInverseTransposes()
		changed = g.fuseTransposeIntoMatMul() || changed
	}
	g.sorted = false
}

// eliminateInverseTransposes removes transpose pairs that provably compose
// to the identity. A pair qualifies when the first transpose's output has
// exactly one consumer, that consumer is a transpose, and the second
// permutation inverts the first. Consumers of the pair's final output are
// redirected to the original input; both operators and both intermediate
// tensors are removed. The scan restarts after each removal, since removing
// a pair can expose another.
func (g *Graph) eliminateInverseTransposes() bool {
	changed := false
	for i := 0; i < len(g.ops); {
		first, ok := g.ops[i].(*Transpose)
		if !ok {
			i++
			continue
		}
		mid := first.Outputs()[0]
		// More than one consumer: redirecting would duplicate semantics.
		if len(mid.targets) != 1 {
			i++
			continue
		}
		second, ok := mid.targets[0].(*Transpose)
		if !ok || !isInversePermutation(first.perm, second.perm) {
			i++
			continue
		}

		in := first.Inputs()[0]
		out := second.Outputs()[0]
		g.redirectConsumers(out, in)
		g.RemoveOperator(first)
		g.RemoveOperator(second)
		g.RemoveTensor(mid)
		g.RemoveTensor(out)

		changed = true
		i = 0
	}
	return changed
}

// fuseTransposeIntoMatMul folds last-two-axes transposes feeding matmul
// operands into the matmul's trans flags. At most one operand is fused per
// visit to a matmul; the fixpoint loop in Optimize lets both fuse across
// successive cycles.
func (g *Graph) fuseTransposeIntoMatMul() bool {
	changed := false
	for i := 0; i < len(g.ops); i++ {
		mm, ok := g.ops[i].(*MatMul)
		if !ok {
			continue
		}
		if g.fuseOperand(mm, 0) {
			changed = true
			continue
		}
		if g.fuseOperand(mm, 1) {
			changed = true
		}
	}
	return changed
}

// fuseOperand rewires one matmul operand past a last-two-axes transpose,
// flipping the corresponding trans flag. The rewritten matmul keeps the
// same output tensor. The transpose and its output are removed once no
// consumer remains. Reports whether a rewrite happened.
func (g *Graph) fuseOperand(mm *MatMul, operand int) bool {
	in := mm.Inputs()[operand]
	tp, ok := in.Source().(*Transpose)
	if !ok || !swapsLastTwoAxes(tp.perm, in.Rank()) {
		return false
	}

	a, b := mm.Inputs()[0], mm.Inputs()[1]
	transA, transB := mm.transA, mm.transB
	if operand == 0 {
		a = tp.Inputs()[0]
		transA = !transA
	} else {
		b = tp.Inputs()[0]
		transB = !transB
	}

	replacement, err := newMatMul(nil, a, b, mm.Outputs()[0], transA, transB)
	if err != nil {
		// Shapes refused the fused form; treat as a non-match.
		return false
	}
	g.replace(mm, replacement)

	if len(in.targets) == 0 {
		g.RemoveOperator(tp)
		g.RemoveTensor(in)
	}
	return true
}
