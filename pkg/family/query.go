package family

import (
	"math"
	"sort"
)

// HorizontalThreshold is the vertical distance under which a parent-child
// edge is still drawn as a straight line.
const HorizontalThreshold = 50

// EdgeKind is the render classification of an edge.
type EdgeKind string

const (
	EdgeHorizontal EdgeKind = "horizontal"
	EdgeVertical   EdgeKind = "vertical"
)

// ClassifyEdge decides how a renderer should draw e between source and
// target: spouse edges and near-level edges are horizontal, everything else
// is a vertical curve.
func ClassifyEdge(e Edge, source, target Node) EdgeKind {
	if e.IsSpouse() || math.Abs(target.Y-source.Y) < HorizontalThreshold {
		return EdgeHorizontal
	}
	return EdgeVertical
}

// Index returns the position of node id, or -1.
func (t Tree) Index(id string) int {
	for i := range t.Nodes {
		if t.Nodes[i].ID == id {
			return i
		}
	}
	return -1
}

// Node looks up a node by id.
func (t Tree) Node(id string) (Node, bool) {
	if i := t.Index(id); i >= 0 {
		return t.Nodes[i], true
	}
	return Node{}, false
}

// Root returns the node tagged as self.
func (t Tree) Root() (Node, bool) {
	for _, n := range t.Nodes {
		if n.IsRoot() {
			return n, true
		}
	}
	return Node{}, false
}

// ParentEdges returns the non-spouse edges targeting id in edge order.
func (t Tree) ParentEdges(id string) []Edge {
	var out []Edge
	for _, e := range t.Edges {
		if !e.IsSpouse() && e.Target == id {
			out = append(out, e)
		}
	}
	return out
}

// ParentIDs returns the distinct parents of id in edge order.
func (t Tree) ParentIDs(id string) []string {
	return distinct(func(yield func(string)) {
		for _, e := range t.ParentEdges(id) {
			yield(e.Source)
		}
	})
}

// SpouseIDs returns the distinct spouses of id, following spouse edges in
// both directions.
func (t Tree) SpouseIDs(id string) []string {
	return distinct(func(yield func(string)) {
		for _, e := range t.Edges {
			if !e.IsSpouse() {
				continue
			}
			switch id {
			case e.Source:
				yield(e.Target)
			case e.Target:
				yield(e.Source)
			}
		}
	})
}

// ChildIDs returns the distinct children of any of the given parents.
func (t Tree) ChildIDs(parents ...string) []string {
	set := make(map[string]struct{}, len(parents))
	for _, p := range parents {
		set[p] = struct{}{}
	}
	return distinct(func(yield func(string)) {
		for _, e := range t.Edges {
			if e.IsSpouse() {
				continue
			}
			if _, ok := set[e.Source]; ok {
				yield(e.Target)
			}
		}
	})
}

// SiblingIDs returns nodes sharing at least one parent with id.
func (t Tree) SiblingIDs(id string) []string {
	parents := t.ParentIDs(id)
	if len(parents) == 0 {
		return nil
	}
	var out []string
	for _, c := range t.ChildIDs(parents...) {
		if c != id {
			out = append(out, c)
		}
	}
	return out
}

// Rightmost returns the node with the largest X among ids. Ties keep the
// first id. ok is false when none of the ids resolve.
func (t Tree) Rightmost(ids []string) (Node, bool) {
	var best Node
	found := false
	for _, id := range ids {
		n, ok := t.Node(id)
		if !ok {
			continue
		}
		if !found || n.X > best.X {
			best, found = n, true
		}
	}
	return best, found
}

// Canonical returns a copy with nodes and edges sorted by id, for
// order-independent comparison.
func (t Tree) Canonical() Tree {
	out := t.Clone()
	sort.SliceStable(out.Nodes, func(i, j int) bool { return out.Nodes[i].ID < out.Nodes[j].ID })
	sort.SliceStable(out.Edges, func(i, j int) bool { return out.Edges[i].ID < out.Edges[j].ID })
	return out
}

// Equal compares two trees ignoring node and edge order.
func Equal(a, b Tree) bool {
	if len(a.Nodes) != len(b.Nodes) || len(a.Edges) != len(b.Edges) {
		return false
	}
	ca, cb := a.Canonical(), b.Canonical()
	for i := range ca.Nodes {
		if ca.Nodes[i] != cb.Nodes[i] {
			return false
		}
	}
	for i := range ca.Edges {
		if ca.Edges[i] != cb.Edges[i] {
			return false
		}
	}
	return true
}

func distinct(seq func(yield func(string))) []string {
	var out []string
	seen := make(map[string]struct{})
	seq(func(id string) {
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	})
	return out
}
