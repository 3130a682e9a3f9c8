package family

import (
	"errors"
	"testing"
)

func sampleTree() Tree {
	return Tree{
		Nodes: []Node{
			{ID: "r", X: 400, Y: 300, Gender: Male, Relation: RelationSelf},
			{ID: "f", X: 290, Y: 120, Gender: Male, Relation: RelationParent},
			{ID: "m", X: 510, Y: 120, Gender: Female, Relation: RelationParent},
			{ID: "s", X: 620, Y: 300, Gender: Female, Relation: RelationSibling},
			{ID: "w", X: 840, Y: 300, Gender: Female, Relation: RelationSpouse},
		},
		Edges: []Edge{
			{ID: "e1", Source: "f", Target: "r"},
			{ID: "e2", Source: "m", Target: "r"},
			{ID: "e3", Source: "f", Target: "m", Type: EdgeSpouse},
			{ID: "e4", Source: "f", Target: "s"},
			{ID: "e5", Source: "m", Target: "s"},
			{ID: "e6", Source: "w", Target: "r", Type: EdgeSpouse},
		},
	}
}

func TestFullName(t *testing.T) {
	cases := []struct {
		node *Node
		want string
	}{
		{nil, ""},
		{&Node{}, ""},
		{&Node{FirstName: "Иван"}, "Иван"},
		{&Node{LastName: "Петров", FirstName: "Иван", MiddleName: "Сергеевич"}, "Петров Иван Сергеевич"},
		{&Node{LastName: "Петров", MiddleName: "Сергеевич"}, "Петров Сергеевич"},
	}
	for _, tc := range cases {
		if got := FullName(tc.node); got != tc.want {
			t.Fatalf("FullName(%+v) = %q want %q", tc.node, got, tc.want)
		}
	}
}

func TestQueries(t *testing.T) {
	tree := sampleTree()
	if got := tree.ParentIDs("r"); len(got) != 2 || got[0] != "f" || got[1] != "m" {
		t.Fatalf("unexpected parents %v", got)
	}
	if got := tree.SpouseIDs("r"); len(got) != 1 || got[0] != "w" {
		t.Fatalf("spouse lookup must follow reverse edges, got %v", got)
	}
	if got := tree.SpouseIDs("m"); len(got) != 1 || got[0] != "f" {
		t.Fatalf("unexpected spouses of m: %v", got)
	}
	if got := tree.SiblingIDs("r"); len(got) != 1 || got[0] != "s" {
		t.Fatalf("unexpected siblings %v", got)
	}
	if got := tree.ChildIDs("f", "m"); len(got) != 2 {
		t.Fatalf("children must be de-duplicated, got %v", got)
	}
	if n, ok := tree.Rightmost([]string{"r", "s", "missing"}); !ok || n.ID != "s" {
		t.Fatalf("unexpected rightmost %v %v", n.ID, ok)
	}
	if root, ok := tree.Root(); !ok || root.ID != "r" {
		t.Fatalf("root not found")
	}
}

func TestRightmostTieKeepsFirst(t *testing.T) {
	tree := Tree{Nodes: []Node{{ID: "a", X: 10}, {ID: "b", X: 10}}}
	if n, _ := tree.Rightmost([]string{"a", "b"}); n.ID != "a" {
		t.Fatalf("expected first on tie, got %s", n.ID)
	}
}

func TestClassifyEdge(t *testing.T) {
	parent := Node{Y: 100}
	child := Node{Y: 280}
	if got := ClassifyEdge(Edge{}, parent, child); got != EdgeVertical {
		t.Fatalf("expected vertical, got %s", got)
	}
	if got := ClassifyEdge(Edge{Type: EdgeSpouse}, parent, child); got != EdgeHorizontal {
		t.Fatalf("spouse edges are horizontal, got %s", got)
	}
	if got := ClassifyEdge(Edge{}, parent, Node{Y: 149}); got != EdgeHorizontal {
		t.Fatalf("near-level edge should be horizontal, got %s", got)
	}
}

func TestParseYear(t *testing.T) {
	cases := map[string]struct {
		year int
		ok   bool
	}{
		"1950":          {1950, true},
		" 1950-03-01":   {1950, true},
		"1950 г.":       {1950, true},
		"-44":           {-44, true},
		"":              {0, false},
		"около 1950":    {0, false},
		"12.03.1950":    {12, true},
		"+2001":         {2001, true},
		"abc":           {0, false},
		"\t\n1812 year": {1812, true},
	}
	for in, want := range cases {
		y, ok := ParseYear(in)
		if y != want.year || ok != want.ok {
			t.Fatalf("ParseYear(%q) = %d,%v want %d,%v", in, y, ok, want.year, want.ok)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := sampleTree().Validate(); err != nil {
		t.Fatalf("valid tree rejected: %v", err)
	}
	bad := []Tree{
		{Nodes: []Node{{ID: "", Gender: Male}}},
		{Nodes: []Node{{ID: "a", Gender: Male}, {ID: "a", Gender: Male}}},
		{Nodes: []Node{{ID: "a", Gender: "other"}}},
		{Nodes: []Node{{ID: "a", Gender: Male}}, Edges: []Edge{{ID: "e", Source: "a", Target: "zz"}}},
		{Nodes: []Node{{ID: "a", Gender: Male}}, Edges: []Edge{{ID: "e", Source: "a", Target: "a", Type: "cousin"}}},
		{Nodes: []Node{{ID: "a", Gender: Male}}, Edges: []Edge{{ID: "", Source: "a", Target: "a"}}},
	}
	for i, tree := range bad {
		if err := tree.Validate(); !errors.Is(err, ErrMalformed) {
			t.Fatalf("case %d: expected ErrMalformed, got %v", i, err)
		}
	}
}

func TestPruneDangling(t *testing.T) {
	tree := sampleTree()
	tree.Nodes = tree.Nodes[:1]
	if removed := tree.PruneDangling(); removed != 6 {
		t.Fatalf("expected 6 pruned edges, got %d", removed)
	}
	if len(tree.Edges) != 0 {
		t.Fatalf("edges left: %v", tree.Edges)
	}
}

func TestEqualIgnoresOrder(t *testing.T) {
	a := sampleTree()
	b := a.Clone()
	b.Nodes[0], b.Nodes[4] = b.Nodes[4], b.Nodes[0]
	b.Edges[1], b.Edges[5] = b.Edges[5], b.Edges[1]
	if !Equal(a, b) {
		t.Fatalf("expected reordered trees to be equal")
	}
	b.Nodes[0].FirstName = "x"
	if Equal(a, b) {
		t.Fatalf("expected changed tree to differ")
	}
}

func TestSeedAndClone(t *testing.T) {
	seed := SeedTree()
	if len(seed.Nodes) != 1 || !seed.Nodes[0].IsRoot() || seed.Nodes[0].X != 400 || seed.Nodes[0].Y != 300 {
		t.Fatalf("unexpected seed %+v", seed)
	}
	c := seed.Clone()
	c.Nodes[0].FirstName = "changed"
	if seed.Nodes[0].FirstName != "" {
		t.Fatalf("clone shares node storage")
	}
	if (Tree{}).Clone().Edges == nil {
		t.Fatalf("clone must produce non-nil slices")
	}
}

func TestParseRelation(t *testing.T) {
	if r, ok := ParseRelation(" Parent "); !ok || r != RelationParent {
		t.Fatalf("unexpected %v %v", r, ok)
	}
	if _, ok := ParseRelation("self"); ok {
		t.Fatalf("self is not insertable")
	}
}
