package core

import (
	"famtree/pkg/family"
)

// Placement constants for inserted relatives.
const (
	CardWidth         = 192
	HorizontalSpacing = 220
	GenerationSpacing = 180
	ParentOffsetX     = 110
)

// Insertion is the outcome of AddRelative: one new person and the edges that
// connect it to the existing tree.
type Insertion struct {
	Node  family.Node
	Edges []family.Edge
}

// Apply returns a copy of tree with the insertion appended.
func (in Insertion) Apply(tree family.Tree) family.Tree {
	out := tree.Clone()
	out.Nodes = append(out.Nodes, in.Node)
	out.Edges = append(out.Edges, in.Edges...)
	return out
}

// Changes lists the nodes touched by the insertion for rule evaluation. Only
// a parent insertion gives an existing person a new parent; children and
// siblings arrive with the parents they copy.
func (in Insertion) Changes() []Change {
	changes := []Change{{Action: ActionCreate, NodeID: in.Node.ID}}
	if in.Node.Relation != family.RelationParent {
		return changes
	}
	for _, e := range in.Edges {
		if !e.IsSpouse() && e.Source == in.Node.ID {
			changes = append(changes, Change{Action: ActionAddParent, NodeID: e.Target})
		}
	}
	return changes
}

// AddRelative computes where a new relative of sourceID goes and which edges
// link it in. The tree is not modified. A nil genderHint means the new person
// takes the source's gender.
func AddRelative(tree family.Tree, sourceID string, relation family.Relation, genderHint *family.Gender, ids IDSource) (Insertion, error) {
	if !relation.Insertable() {
		return Insertion{}, ErrUnknownRelation
	}
	source, ok := tree.Node(sourceID)
	if !ok {
		return Insertion{}, nodeErr(sourceID, ErrNodeNotFound)
	}
	gender := source.Gender
	if genderHint != nil {
		gender = *genderHint
	}
	if err := checkParentSlot(tree, sourceID, relation, gender); err != nil {
		return Insertion{}, err
	}
	node := family.Node{
		ID:       ids.NodeID(),
		LastName: source.LastName,
		Gender:   gender,
		IsAlive:  true,
		Relation: relation,
	}

	var edges []family.Edge
	link := func(from, to string, typ family.EdgeType) {
		edges = append(edges, family.Edge{ID: ids.EdgeID(), Source: from, Target: to, Type: typ})
	}

	switch relation {
	case family.RelationParent:
		parents := tree.ParentIDs(sourceID)
		switch len(parents) {
		case 0:
			node.X, node.Y = source.X-ParentOffsetX, source.Y-GenerationSpacing
			link(node.ID, sourceID, family.EdgeParentChild)
		case 1:
			existing, found := tree.Node(parents[0])
			if !found {
				// Parent edge without a node; treat as parentless.
				node.X, node.Y = source.X-ParentOffsetX, source.Y-GenerationSpacing
				link(node.ID, sourceID, family.EdgeParentChild)
				break
			}
			node.X, node.Y = existing.X+HorizontalSpacing, existing.Y
			link(node.ID, sourceID, family.EdgeParentChild)
			link(existing.ID, node.ID, family.EdgeSpouse)
		}

	case family.RelationChild:
		spouses := tree.SpouseIDs(sourceID)
		familyIDs := append([]string{sourceID}, spouses...)
		if rightmost, found := tree.Rightmost(tree.ChildIDs(familyIDs...)); found {
			node.X, node.Y = rightmost.X+HorizontalSpacing, rightmost.Y
		} else {
			node.X, node.Y = source.X, source.Y+GenerationSpacing
		}
		link(sourceID, node.ID, family.EdgeParentChild)
		if len(spouses) > 0 {
			link(spouses[0], node.ID, family.EdgeParentChild)
		}

	case family.RelationSibling:
		group := append([]string{sourceID}, tree.SiblingIDs(sourceID)...)
		rightmost, _ := tree.Rightmost(group)
		node.X, node.Y = rightmost.X+HorizontalSpacing, source.Y
		for _, pe := range tree.ParentEdges(sourceID) {
			link(pe.Source, node.ID, family.EdgeParentChild)
		}

	case family.RelationSpouse:
		if rightmost, found := tree.Rightmost(tree.SpouseIDs(sourceID)); found {
			node.X = rightmost.X + HorizontalSpacing
		} else {
			node.X = source.X + HorizontalSpacing
		}
		node.Y = source.Y
		link(sourceID, node.ID, family.EdgeSpouse)

	default:
		return Insertion{}, ErrUnknownRelation
	}

	return Insertion{Node: node, Edges: edges}, nil
}

// checkParentSlot rejects a parent insertion before any id is minted.
func checkParentSlot(tree family.Tree, sourceID string, relation family.Relation, gender family.Gender) error {
	if relation != family.RelationParent {
		return nil
	}
	parents := tree.ParentIDs(sourceID)
	if len(parents) >= 2 {
		return nodeErr(sourceID, ErrTooManyParents)
	}
	if len(parents) == 1 {
		if existing, ok := tree.Node(parents[0]); ok && existing.Gender == gender {
			return nodeErr(sourceID, ErrSameSexParent)
		}
	}
	return nil
}
