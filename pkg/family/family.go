// Package family defines the genealogy graph: people (nodes), the parent and
// spouse relationships between them (edges), and the read-only queries the
// insertion engine, metrics and renderers share.
package family

import (
	"strings"
)

// Gender of a person. Only the two values below are accepted on import.
type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
)

// Valid reports whether g is one of the supported genders.
func (g Gender) Valid() bool { return g == Male || g == Female }

// Opposite returns the other gender.
func (g Gender) Opposite() Gender {
	if g == Male {
		return Female
	}
	return Male
}

// Relation is the descriptive tag recording how a node was created relative
// to the node it was added from. Graph queries never consult it; the only
// exception is the root marker RelationSelf.
type Relation string

const (
	RelationSelf    Relation = "self"
	RelationParent  Relation = "parent"
	RelationChild   Relation = "child"
	RelationSibling Relation = "sibling"
	RelationSpouse  Relation = "spouse"
)

// Insertable reports whether r can be used to add a relative.
func (r Relation) Insertable() bool {
	switch r {
	case RelationParent, RelationChild, RelationSibling, RelationSpouse:
		return true
	}
	return false
}

// ParseRelation maps user input onto an insertable relation.
func ParseRelation(s string) (Relation, bool) {
	r := Relation(strings.ToLower(strings.TrimSpace(s)))
	if !r.Insertable() {
		return "", false
	}
	return r, true
}

// EdgeType distinguishes spouse edges from the default parent->child edge.
type EdgeType string

const (
	EdgeParentChild EdgeType = ""
	EdgeSpouse      EdgeType = "spouse"
)

// Node is one person placed on the canvas. X and Y are the top-left corner
// of the person card.
type Node struct {
	ID             string   `json:"id"`
	X              float64  `json:"x"`
	Y              float64  `json:"y"`
	FirstName      string   `json:"firstName"`
	LastName       string   `json:"lastName"`
	MiddleName     string   `json:"middleName"`
	MaidenName     string   `json:"maidenName"`
	Gender         Gender   `json:"gender"`
	BirthDate      string   `json:"birthDate"`
	BirthPlace     string   `json:"birthPlace"`
	DeathDate      string   `json:"deathDate"`
	DeathPlace     string   `json:"deathPlace"`
	Occupation     string   `json:"occupation"`
	IsAlive        bool     `json:"isAlive"`
	Relation       Relation `json:"relation"`
	Bio            string   `json:"bio"`
	HistoryContext string   `json:"historyContext"`
}

// IsRoot reports whether n is the tree owner.
func (n Node) IsRoot() bool { return n.Relation == RelationSelf }

// FullName formats "lastName firstName middleName" with surrounding and
// repeated blanks removed. A nil node yields "".
func FullName(n *Node) string {
	if n == nil {
		return ""
	}
	return strings.Join(strings.Fields(n.LastName+" "+n.FirstName+" "+n.MiddleName), " ")
}

// Edge links two nodes. Parent-child edges point from parent (Source) to
// child (Target). Spouse edges are stored once in either direction.
type Edge struct {
	ID     string   `json:"id"`
	Source string   `json:"source"`
	Target string   `json:"target"`
	Type   EdgeType `json:"type,omitempty"`
}

// IsSpouse reports whether e is a spouse edge.
func (e Edge) IsSpouse() bool { return e.Type == EdgeSpouse }

// Touches reports whether id is either endpoint of e.
func (e Edge) Touches(id string) bool { return e.Source == id || e.Target == id }

// Tree is the unit of persistence and of metric computation.
type Tree struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Seed coordinates of the root card on a fresh canvas.
const (
	SeedX = 400
	SeedY = 300
)

// RootID is the identifier used for the seed root node.
const RootID = "root"

// SeedTree returns a tree containing only an empty root node.
func SeedTree() Tree {
	return Tree{
		Nodes: []Node{{
			ID:       RootID,
			X:        SeedX,
			Y:        SeedY,
			Gender:   Male,
			IsAlive:  true,
			Relation: RelationSelf,
		}},
		Edges: []Edge{},
	}
}

// Clone returns a deep copy of t. Nil slices become empty slices so the
// copy always serialises as arrays.
func (t Tree) Clone() Tree {
	out := Tree{
		Nodes: make([]Node, len(t.Nodes)),
		Edges: make([]Edge, len(t.Edges)),
	}
	copy(out.Nodes, t.Nodes)
	copy(out.Edges, t.Edges)
	return out
}
