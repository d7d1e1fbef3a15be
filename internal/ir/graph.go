package ir

import (
	"errors"
	"fmt"
	"strings"

	"github.com/flint-ml/flint/internal/alloc"
	"github.com/flint-ml/flint/internal/device"
)

// Sentinel errors for conditions callers discriminate on.
var (
	// ErrCyclic is returned by TopoSort when the graph contains a cycle.
	ErrCyclic = errors.New("ir: graph contains a cycle")

	// ErrShapeMismatch is returned when a declared output shape disagrees
	// with the operator's shape rule.
	ErrShapeMismatch = errors.New("ir: shape mismatch")
)

// Graph owns its tensors and operators: removing a node from the graph ends
// its lifetime. Source/target and predecessor/successor links are
// relationship edges between owned nodes.
type Graph struct {
	tensors []*Tensor
	ops     []Operator

	alloc *alloc.Allocator

	// sorted is cleared by every structural mutation.
	sorted bool

	nextTensorID int
	nextOpID     int
}

// NewGraph returns an empty graph drawing arena memory from the provider.
func NewGraph(p device.Provider) *Graph {
	return &Graph{alloc: alloc.New(p)}
}

// Tensors returns the owned tensor collection in insertion order.
func (g *Graph) Tensors() []*Tensor { return g.tensors }

// Operators returns the owned operator collection in current order.
func (g *Graph) Operators() []Operator { return g.ops }

// Allocator exposes the graph's memory planner, mainly for diagnostics.
func (g *Graph) Allocator() *alloc.Allocator { return g.alloc }

// AddTensor creates a tensor owned by the graph.
func (g *Graph) AddTensor(shape Shape, dtype DataType) *Tensor {
	if err := shape.Validate(); err != nil {
		panic(fmt.Sprintf("ir: AddTensor: %v", err))
	}
	t := &Tensor{id: g.nextTensorID, shape: shape.Clone(), dtype: dtype}
	g.nextTensorID++
	g.tensors = append(g.tensors, t)
	g.sorted = false
	return t
}

// Tensor returns the owned tensor with the given id, or nil.
func (g *Graph) Tensor(id int) *Tensor {
	for _, t := range g.tensors {
		if t.id == id {
			return t
		}
	}
	return nil
}

// AddMatMul adds a matmul over a and b. A nil output tensor is materialized
// from the inferred shape; a concrete one must match it.
func (g *Graph) AddMatMul(a, b, out *Tensor, transA, transB bool) (*MatMul, error) {
	mm, err := newMatMul(g, a, b, out, transA, transB)
	if err != nil {
		return nil, err
	}
	g.install(mm)
	return mm, nil
}

// AddTranspose adds an axis permutation of in.
func (g *Graph) AddTranspose(in, out *Tensor, perm []int) (*Transpose, error) {
	tp, err := newTranspose(g, in, out, perm)
	if err != nil {
		return nil, err
	}
	g.install(tp)
	return tp, nil
}

// AddConcat adds a concatenation of inputs along axis (negative axes count
// from the back).
func (g *Graph) AddConcat(inputs []*Tensor, out *Tensor, axis int) (*Concat, error) {
	c, err := newConcat(g, inputs, out, axis)
	if err != nil {
		return nil, err
	}
	g.install(c)
	return c, nil
}

// install assigns the operator its id, appends it and wires connectivity.
func (g *Graph) install(op Operator) {
	op.node().id = g.nextOpID
	g.nextOpID++
	g.ops = append(g.ops, op)
	g.connect(op)
}

// connect wires a newly added operator: it becomes a target of each input,
// the source of each output, and predecessor/successor links are derived
// from the tensors it now shares with neighbours. Runs once per operator.
func (g *Graph) connect(op Operator) {
	g.sorted = false
	n := op.node()
	for _, in := range n.inputs {
		if in == nil {
			continue
		}
		in.addTarget(op)
		if src := in.source; src != nil {
			src.node().addSuccessor(op)
			n.addPredecessor(src)
		}
	}
	for _, out := range n.outputs {
		if out == nil {
			continue
		}
		out.source = op
		for _, succ := range out.targets {
			succ.node().addPredecessor(op)
			n.addSuccessor(succ)
		}
	}
}

// RemoveOperator detaches op from every neighbour and erases it from the
// graph. Detachment is self-contained: the op is also dropped from its input
// tensors' target sets and cleared as source of its outputs, so no dangling
// edge survives. Affected tensors stay in the graph until removed.
func (g *Graph) RemoveOperator(op Operator) {
	n := op.node()
	for _, p := range n.preds {
		p.node().removeSuccessor(op)
	}
	for _, s := range n.succs {
		s.node().removePredecessor(op)
	}
	n.preds, n.succs = nil, nil
	for _, in := range n.inputs {
		if in != nil {
			in.removeTarget(op)
		}
	}
	for _, out := range n.outputs {
		if out != nil && sameOperator(out.source, op) {
			out.source = nil
		}
	}
	for i, o := range g.ops {
		if sameOperator(o, op) {
			g.ops = append(g.ops[:i], g.ops[i+1:]...)
			break
		}
	}
	g.sorted = false
}

// RemoveTensor erases the tensor from the graph. Callers must have unlinked
// it from any remaining operators first.
func (g *Graph) RemoveTensor(t *Tensor) {
	for i, x := range g.tensors {
		if x == t {
			g.tensors = append(g.tensors[:i], g.tensors[i+1:]...)
			break
		}
	}
	g.sorted = false
}

// replace substitutes newOp for oldOp in place: oldOp's edges are fully
// unlinked, newOp takes its slot in the operator order, every input tensor
// of newOp gains it as target with predecessor edges rebuilt from the
// input's source, and newOp becomes source of its outputs with successor
// edges rebuilt from the outputs' targets. Inputs consumed by oldOp but not
// by newOp simply lose their target edge; the caller decides whether the
// tensor is still live.
func (g *Graph) replace(oldOp, newOp Operator) {
	n := newOp.node()
	n.id = g.nextOpID
	g.nextOpID++

	for i, o := range g.ops {
		if sameOperator(o, oldOp) {
			g.ops[i] = newOp
			break
		}
	}

	o := oldOp.node()
	for _, p := range o.preds {
		p.node().removeSuccessor(oldOp)
	}
	for _, s := range o.succs {
		s.node().removePredecessor(oldOp)
	}
	o.preds, o.succs = nil, nil
	for _, in := range o.inputs {
		if in != nil {
			in.removeTarget(oldOp)
		}
	}

	for _, in := range n.inputs {
		if in == nil {
			continue
		}
		in.addTarget(newOp)
		if src := in.source; src != nil {
			src.node().addSuccessor(newOp)
			n.addPredecessor(src)
		}
	}
	for _, out := range n.outputs {
		if out == nil {
			continue
		}
		out.source = newOp
		for _, tgt := range out.targets {
			tgt.node().addPredecessor(newOp)
			n.addSuccessor(tgt)
		}
	}
	g.sorted = false
}

// redirectConsumers rewires every consumer of from to consume to instead,
// keeping predecessor/successor links consistent with the tensor edges.
func (g *Graph) redirectConsumers(from, to *Tensor) {
	consumers := append([]Operator(nil), from.targets...)
	for _, op := range consumers {
		op.node().replaceInput(from, to)
		from.removeTarget(op)
		to.addTarget(op)
		if src := from.source; src != nil {
			removeLinkUnlessImplied(src, op)
		}
		if src := to.source; src != nil {
			src.node().addSuccessor(op)
			op.node().addPredecessor(src)
		}
	}
	g.sorted = false
}

// removeLinkUnlessImplied drops the producer→consumer link unless another
// tensor produced by producer still feeds consumer.
func removeLinkUnlessImplied(producer, consumer Operator) {
	for _, out := range producer.node().outputs {
		if out != nil && containsOperator(out.targets, consumer) {
			return
		}
	}
	producer.node().removeSuccessor(consumer)
	consumer.node().removePredecessor(producer)
}

// Inputs returns the graph's boundary inputs: tensors no operator produces.
func (g *Graph) Inputs() []*Tensor {
	var in []*Tensor
	for _, t := range g.tensors {
		if t.source == nil {
			in = append(in, t)
		}
	}
	return in
}

// Outputs returns the graph's boundary outputs: tensors nothing consumes.
func (g *Graph) Outputs() []*Tensor {
	var out []*Tensor
	for _, t := range g.tensors {
		if len(t.targets) == 0 {
			out = append(out, t)
		}
	}
	return out
}

// Validate asserts the graph's structural invariants: every tensor is live
// (has a source or a target) and links only member operators; every operator
// links only member tensors and operators; predecessor/successor sets equal
// exactly what the shared tensor edges imply; tensor ids are unique. It is
// an assertion over programmer errors, not a recoverable check.
func (g *Graph) Validate() error {
	opSet := make(map[*opNode]bool, len(g.ops))
	for _, op := range g.ops {
		opSet[op.node()] = true
	}
	tensorSet := make(map[*Tensor]bool, len(g.tensors))
	ids := make(map[int]bool, len(g.tensors))
	for _, t := range g.tensors {
		tensorSet[t] = true
		if ids[t.id] {
			return fmt.Errorf("ir: duplicate tensor id %d", t.id)
		}
		ids[t.id] = true
	}

	for _, t := range g.tensors {
		if t.source == nil && len(t.targets) == 0 {
			return fmt.Errorf("ir: tensor %d has neither source nor targets", t.id)
		}
		if t.source != nil && !opSet[t.source.node()] {
			return fmt.Errorf("ir: tensor %d sourced by operator %d outside the graph", t.id, t.source.ID())
		}
		for _, op := range t.targets {
			if !opSet[op.node()] {
				return fmt.Errorf("ir: tensor %d targeted by operator %d outside the graph", t.id, op.ID())
			}
		}
	}

	for _, op := range g.ops {
		n := op.node()
		for _, in := range n.inputs {
			if in != nil && !tensorSet[in] {
				return fmt.Errorf("ir: operator %d reads tensor %d outside the graph", n.id, in.id)
			}
		}
		for _, out := range n.outputs {
			if out != nil && !tensorSet[out] {
				return fmt.Errorf("ir: operator %d writes tensor %d outside the graph", n.id, out.id)
			}
		}
		for _, p := range n.preds {
			if !opSet[p.node()] {
				return fmt.Errorf("ir: operator %d has predecessor %d outside the graph", n.id, p.ID())
			}
		}
		for _, s := range n.succs {
			if !opSet[s.node()] {
				return fmt.Errorf("ir: operator %d has successor %d outside the graph", n.id, s.ID())
			}
		}
		if err := g.checkDerivedLinks(op); err != nil {
			return err
		}
	}
	return nil
}

// checkDerivedLinks verifies that op's stored predecessor/successor sets
// equal the operators implied by its tensors' source/target edges.
func (g *Graph) checkDerivedLinks(op Operator) error {
	n := op.node()

	implied := make(map[*opNode]bool)
	for _, in := range n.inputs {
		if in != nil && in.source != nil {
			implied[in.source.node()] = true
		}
	}
	if len(implied) != len(n.preds) {
		return fmt.Errorf("ir: operator %d predecessors %v disagree with tensor edges", n.id, operatorIDs(n.preds))
	}
	for _, p := range n.preds {
		if !implied[p.node()] {
			return fmt.Errorf("ir: operator %d lists stale predecessor %d", n.id, p.ID())
		}
	}

	implied = make(map[*opNode]bool)
	for _, out := range n.outputs {
		if out == nil {
			continue
		}
		for _, tgt := range out.targets {
			implied[tgt.node()] = true
		}
	}
	if len(implied) != len(n.succs) {
		return fmt.Errorf("ir: operator %d successors %v disagree with tensor edges", n.id, operatorIDs(n.succs))
	}
	for _, s := range n.succs {
		if !implied[s.node()] {
			return fmt.Errorf("ir: operator %d lists stale successor %d", n.id, s.ID())
		}
	}
	return nil
}

// InferShapes recomputes every operator's output shapes in current order,
// updating stored tensor shapes in place. Rewrites that flip attributes
// (matmul fusion) change effective operand shapes without creating tensors,
// so stored shapes can go stale until this runs. Incompatible shapes are
// fatal.
func (g *Graph) InferShapes() error {
	for _, op := range g.ops {
		shapes, err := op.InferShape()
		if err != nil {
			return fmt.Errorf("ir: infer shape of operator %d (%s): %w", op.ID(), op.Type(), err)
		}
		outs := op.Outputs()
		if len(shapes) != len(outs) {
			return fmt.Errorf("ir: operator %d produced %d shapes for %d outputs", op.ID(), len(shapes), len(outs))
		}
		for i, out := range outs {
			if !out.Shape().Equal(shapes[i]) {
				out.setShape(shapes[i])
			}
		}
	}
	return nil
}

// AllocateData plans arena offsets for every tensor in tensor-list order,
// materializes the arena once and binds each tensor to its slice. Requires
// a successful topological sort. No liveness analysis is performed; the
// plan packs the address space only.
func (g *Graph) AllocateData() error {
	if err := g.TopoSort(); err != nil {
		return err
	}

	offsets := make([]int, len(g.tensors))
	for i, t := range g.tensors {
		off, err := g.alloc.Alloc(t.Bytes())
		if err != nil {
			return fmt.Errorf("ir: allocate tensor %d: %w", t.id, err)
		}
		offsets[i] = off
	}

	base, err := g.alloc.Materialize()
	if err != nil {
		return err
	}
	for i, t := range g.tensors {
		end := offsets[i] + t.Bytes()
		if err := t.bind(base[offsets[i]:end:end]); err != nil {
			return fmt.Errorf("ir: %w", err)
		}
	}
	return nil
}

// Close releases the graph's arena memory, if materialized.
func (g *Graph) Close() error {
	return g.alloc.Close()
}

// String renders the full graph: the tensor list, then each operator with
// resolved predecessor and successor ids. A debugging aid, not a stable
// format.
func (g *Graph) String() string {
	var sb strings.Builder
	sb.WriteString("Graph Tensors:\n")
	for _, t := range g.tensors {
		fmt.Fprintf(&sb, "  %s\n", t)
	}
	sb.WriteString("Graph operators:\n")
	for _, op := range g.ops {
		fmt.Fprintf(&sb, "  OP %d, pred %v, succ %v, %s\n",
			op.ID(), operatorIDs(op.Predecessors()), operatorIDs(op.Successors()), op)
	}
	return sb.String()
}
