package ir

import "fmt"

// Concat joins tensors along one axis. The axis is normalized at
// construction, so a negative axis behaves like axis + rank.
type Concat struct {
	opNode

	axis int
}

func newConcat(g *Graph, inputs []*Tensor, out *Tensor, axis int) (*Concat, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("Concat: no inputs")
	}
	normalized, err := normalizeAxis(axis, inputs[0].Rank())
	if err != nil {
		return nil, fmt.Errorf("Concat: %w", err)
	}
	c := &Concat{
		opNode: opNode{typ: OpConcat, inputs: append([]*Tensor(nil), inputs...), outputs: []*Tensor{out}},
		axis:   normalized,
	}
	if err := finishOp(g, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Axis returns the normalized concatenation axis.
func (c *Concat) Axis() int { return c.axis }

// InferShape sums the concat axis across inputs. All inputs must share rank
// and agree on every other axis.
func (c *Concat) InferShape() ([]Shape, error) {
	first := c.inputs[0].Shape()
	out := first.Clone()
	for _, in := range c.inputs[1:] {
		s := in.Shape()
		if len(s) != len(first) {
			return nil, fmt.Errorf("rank mismatch: %v vs %v", first, s)
		}
		for i := range s {
			if i != c.axis && s[i] != first[i] {
				return nil, fmt.Errorf("axis %d differs outside concat axis %d: %v vs %v", i, c.axis, first, s)
			}
		}
		out[c.axis] += s[c.axis]
	}
	return []Shape{out}, nil
}

// String renders the operator with input dims, axis and tensor ids.
func (c *Concat) String() string {
	dims := ""
	ids := ""
	for i, in := range c.inputs {
		if i > 0 {
			dims += ","
			ids += ","
		}
		dims += in.Shape().String()
		ids += fmt.Sprintf("%d", in.ID())
	}
	return fmt.Sprintf("Concat(%s,axis=%d,inputs=%s,output=%d)", dims, c.axis, ids, c.outputs[0].ID())
}
