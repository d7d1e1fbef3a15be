package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildChain wires x --Transpose--> y --MatMul(w)--> z and returns the graph
// with its operators.
func buildChain(t *testing.T) (g *Graph, tp *Transpose, mm *MatMul) {
	t.Helper()
	g = newTestGraph()
	x := g.AddTensor(Shape{3, 2}, Float32)
	w := g.AddTensor(Shape{3, 5}, Float32)

	var err error
	tp, err = g.AddTranspose(x, nil, []int{1, 0})
	require.NoError(t, err)
	mm, err = g.AddMatMul(tp.Outputs()[0], w, nil, false, false)
	require.NoError(t, err)
	return g, tp, mm
}

func TestConnectWiresEdges(t *testing.T) {
	g, tp, mm := buildChain(t)

	x := tp.Inputs()[0]
	y := tp.Outputs()[0]

	assert.Nil(t, x.Source())
	assert.Equal(t, []int{tp.ID()}, operatorIDs(x.Targets()))
	assert.Equal(t, tp.ID(), y.Source().ID())
	assert.Equal(t, []int{mm.ID()}, operatorIDs(y.Targets()))

	assert.Equal(t, []int{mm.ID()}, operatorIDs(tp.Successors()))
	assert.Equal(t, []int{tp.ID()}, operatorIDs(mm.Predecessors()))
	assert.Empty(t, tp.Predecessors())
	assert.Empty(t, mm.Successors())

	require.NoError(t, g.Validate())
}

func TestGraphInputsOutputs(t *testing.T) {
	g, tp, mm := buildChain(t)

	inIDs := []int{}
	for _, in := range g.Inputs() {
		inIDs = append(inIDs, in.ID())
	}
	assert.ElementsMatch(t, []int{tp.Inputs()[0].ID(), mm.Inputs()[1].ID()}, inIDs)

	outs := g.Outputs()
	require.Len(t, outs, 1)
	assert.Equal(t, mm.Outputs()[0].ID(), outs[0].ID())
}

func TestTensorLookup(t *testing.T) {
	g := newTestGraph()
	a := g.AddTensor(Shape{2, 2}, Float32)
	assert.Same(t, a, g.Tensor(a.ID()))
	assert.Nil(t, g.Tensor(999))
}

func TestRemoveOperatorIsSelfContained(t *testing.T) {
	g, tp, mm := buildChain(t)
	x := tp.Inputs()[0]
	y := tp.Outputs()[0]

	g.RemoveOperator(mm)
	g.RemoveTensor(mm.Outputs()[0])

	assert.Empty(t, y.Targets(), "removed operator must vanish from target sets")
	assert.Empty(t, tp.Successors())

	g.RemoveOperator(tp)
	assert.Empty(t, x.Targets())
	assert.Nil(t, y.Source())
	assert.Empty(t, g.Operators())
}

func TestValidateDetectsOrphanTensor(t *testing.T) {
	g := newTestGraph()
	g.AddTensor(Shape{2, 2}, Float32)
	err := g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neither source nor targets")
}

func TestValidateDetectsForeignOperator(t *testing.T) {
	g, tp, _ := buildChain(t)

	// Pull the transpose out of the collection behind the graph's back.
	for i, op := range g.ops {
		if sameOperator(op, tp) {
			g.ops = append(g.ops[:i], g.ops[i+1:]...)
			break
		}
	}
	assert.Error(t, g.Validate())
}

func TestValidateDetectsStaleLinks(t *testing.T) {
	g, tp, mm := buildChain(t)

	// Corrupt the derived sets directly.
	mm.node().preds = nil
	assert.Error(t, g.Validate())

	mm.node().preds = []Operator{tp}
	require.NoError(t, g.Validate())

	tp.node().succs = append(tp.node().succs, tp)
	assert.Error(t, g.Validate())
}

func TestValidateDetectsDuplicateTensorIDs(t *testing.T) {
	g, tp, _ := buildChain(t)
	tp.Outputs()[0].id = tp.Inputs()[0].id
	assert.Error(t, g.Validate())
}

func TestTopoSortOrdersProducersFirst(t *testing.T) {
	g := newTestGraph()
	x := g.AddTensor(Shape{2, 3}, Float32)
	w := g.AddTensor(Shape{3, 5}, Float32)

	// Install consumers before producers by building from tensors upward.
	xt := g.AddTensor(Shape{3, 2}, Float32)
	mm, err := g.AddMatMul(x, w, nil, false, false)
	require.NoError(t, err)
	tp, err := g.AddTranspose(xt, x, []int{1, 0})
	require.NoError(t, err)

	require.NoError(t, g.TopoSort())

	order := map[int]int{}
	for i, op := range g.Operators() {
		order[op.ID()] = i
	}
	assert.Less(t, order[tp.ID()], order[mm.ID()], "producer must precede consumer")

	require.NoError(t, g.Validate())
}

func TestTopoSortIsIdempotent(t *testing.T) {
	g, _, _ := buildChain(t)
	require.NoError(t, g.TopoSort())
	first := operatorIDs(g.Operators())

	require.NoError(t, g.TopoSort())
	assert.Equal(t, first, operatorIDs(g.Operators()))
}

func TestTopoSortTieBreaksInListOrder(t *testing.T) {
	g := newTestGraph()
	a := g.AddTensor(Shape{2, 3}, Float32)
	b := g.AddTensor(Shape{2, 3}, Float32)
	c := g.AddTensor(Shape{2, 3}, Float32)

	// Three independent transposes: all ready in the first sweep.
	t1, err := g.AddTranspose(a, nil, []int{0, 1})
	require.NoError(t, err)
	t2, err := g.AddTranspose(b, nil, []int{0, 1})
	require.NoError(t, err)
	t3, err := g.AddTranspose(c, nil, []int{0, 1})
	require.NoError(t, err)

	require.NoError(t, g.TopoSort())
	assert.Equal(t, []int{t1.ID(), t2.ID(), t3.ID()}, operatorIDs(g.Operators()))
}

func TestTopoSortDetectsCycle(t *testing.T) {
	g := newTestGraph()
	a := g.AddTensor(Shape{2, 2}, Float32)
	b := g.AddTensor(Shape{2, 2}, Float32)

	// a -> transpose -> b and b -> transpose -> a form a ring.
	_, err := g.AddTranspose(a, b, []int{1, 0})
	require.NoError(t, err)
	_, err = g.AddTranspose(b, a, []int{1, 0})
	require.NoError(t, err)

	before := operatorIDs(g.Operators())
	err = g.TopoSort()
	assert.ErrorIs(t, err, ErrCyclic)
	assert.Equal(t, before, operatorIDs(g.Operators()), "failed sort leaves the order unchanged")
}

func TestInferShapesUpdatesStaleShapes(t *testing.T) {
	g, _, mm := buildChain(t)
	out := mm.Outputs()[0]

	// Stale the stored shape, as an attribute-flipping rewrite would.
	out.setShape(Shape{1, 1})

	require.NoError(t, g.InferShapes())
	assert.True(t, Shape{2, 5}.Equal(out.Shape()))
}

func TestInferShapesEscalatesIncompatibility(t *testing.T) {
	g, tp, _ := buildChain(t)

	// Make the transpose input rank-3 so its rank-2 permutation no longer
	// applies.
	tp.Inputs()[0].setShape(Shape{3, 2, 1})
	assert.Error(t, g.InferShapes())
}

func TestAllocateDataBindsEveryTensor(t *testing.T) {
	g, tp, mm := buildChain(t)
	require.NoError(t, g.AllocateData())
	defer g.Close()

	for _, tensor := range g.Tensors() {
		require.NotNil(t, tensor.Data(), "tensor %d unbound", tensor.ID())
		assert.Len(t, tensor.Data(), tensor.Bytes())
	}

	// Disjointness: a pattern written into one tensor never shows up in
	// another.
	x := tp.Inputs()[0]
	for i := range x.Data() {
		x.Data()[i] = 0xAB
	}
	for _, other := range []*Tensor{tp.Outputs()[0], mm.Inputs()[1], mm.Outputs()[0]} {
		for _, b := range other.Data() {
			assert.Zero(t, b)
		}
	}
}

func TestAllocateDataRequiresAcyclicGraph(t *testing.T) {
	g := newTestGraph()
	a := g.AddTensor(Shape{2, 2}, Float32)
	b := g.AddTensor(Shape{2, 2}, Float32)
	_, err := g.AddTranspose(a, b, []int{1, 0})
	require.NoError(t, err)
	_, err = g.AddTranspose(b, a, []int{1, 0})
	require.NoError(t, err)

	assert.ErrorIs(t, g.AllocateData(), ErrCyclic)
}

func TestAllocateDataTwiceFails(t *testing.T) {
	g, _, _ := buildChain(t)
	require.NoError(t, g.AllocateData())
	defer g.Close()
	assert.Error(t, g.AllocateData())
}

func TestAllocateDataZeroSizeTensor(t *testing.T) {
	g := newTestGraph()
	a := g.AddTensor(Shape{2, 0}, Float32)
	b := g.AddTensor(Shape{0, 2}, Float32)
	_, err := g.AddTranspose(a, b, []int{1, 0})
	require.NoError(t, err)

	require.NoError(t, g.AllocateData())
	defer g.Close()
	assert.NotNil(t, a.Data())
	assert.Len(t, a.Data(), 0)
}

func TestGraphString(t *testing.T) {
	g, tp, mm := buildChain(t)
	dump := g.String()

	assert.Contains(t, dump, "Graph Tensors:")
	assert.Contains(t, dump, "Graph operators:")
	assert.Contains(t, dump, tp.String())
	assert.Contains(t, dump, mm.String())
}
