package ir

// TopoSort reorders the operator collection topologically and is idempotent:
// an already-sorted graph returns immediately.
//
// Each sweep appends, in original-list order, every unplaced operator whose
// inputs all either lack a source or have an already-placed one. A sweep
// that places nothing while operators remain proves a cycle; the operator
// collection is then left unchanged and ErrCyclic returned.
func (g *Graph) TopoSort() error {
	if g.sorted {
		return nil
	}

	sorted := make([]Operator, 0, len(g.ops))
	placed := make(map[*opNode]bool, len(g.ops))
	for len(sorted) < len(g.ops) {
		progressed := false
		for _, op := range g.ops {
			if placed[op.node()] {
				continue
			}
			ready := true
			for _, in := range op.Inputs() {
				if in == nil {
					continue
				}
				if src := in.Source(); src != nil && !placed[src.node()] {
					ready = false
					break
				}
			}
			if ready {
				sorted = append(sorted, op)
				placed[op.node()] = true
				progressed = true
			}
		}
		if !progressed {
			return ErrCyclic
		}
	}

	g.ops = sorted
	g.sorted = true
	return nil
}
