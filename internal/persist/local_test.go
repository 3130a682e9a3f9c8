package persist

import (
	"context"
	"testing"
	"time"

	"famtree/internal/remote"
	"famtree/internal/storage"
	"famtree/pkg/family"
)

func TestLoadTreeFallbacks(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name      string
		nodes     string
		edges     string
		wantNodes int
		wantEdges int
		seed      bool
	}{
		{name: "empty store", seed: true, wantNodes: 1},
		{name: "corrupt nodes", nodes: "{oops", edges: "[]", seed: true, wantNodes: 1},
		{name: "empty nodes", nodes: "[]", seed: true, wantNodes: 1},
		{name: "duplicate ids", nodes: `[{"id":"a","gender":"male"},{"id":"a","gender":"male"}]`, seed: true, wantNodes: 1},
		{name: "corrupt edges", nodes: `[{"id":"a","gender":"male"}]`, edges: "nope", wantNodes: 1},
		{name: "dangling edges", nodes: `[{"id":"a","gender":"male"},{"id":"b","gender":"female"}]`,
			edges: `[{"id":"e1","source":"a","target":"b"},{"id":"e2","source":"a","target":"zz"}]`, wantNodes: 2, wantEdges: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			kv := storage.NewMemory()
			if tc.nodes != "" {
				_ = kv.Set(ctx, KeyNodes, tc.nodes)
			}
			if tc.edges != "" {
				_ = kv.Set(ctx, KeyEdges, tc.edges)
			}
			tree := NewLocalState(kv, nil).LoadTree(ctx)
			if len(tree.Nodes) != tc.wantNodes || len(tree.Edges) != tc.wantEdges {
				t.Fatalf("got %d nodes %d edges", len(tree.Nodes), len(tree.Edges))
			}
			if tc.seed && !family.Equal(tree, family.SeedTree()) {
				t.Fatalf("expected seed tree, got %+v", tree)
			}
			if tree.Edges == nil {
				t.Fatalf("edges must be non-nil")
			}
		})
	}
}

func TestSaveAndLoadTree(t *testing.T) {
	ctx := context.Background()
	local := NewLocalState(storage.NewMemory(), nil)
	if err := local.SaveTree(ctx, threeNodeTree()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := local.LoadTree(ctx); !family.Equal(got, threeNodeTree()) {
		t.Fatalf("unexpected tree %+v", got)
	}
}

func TestTreeIDAndSession(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	local := NewLocalState(kv, nil)
	local.now = func() time.Time { return time.UnixMilli(1700000000000) }

	if _, ok := local.TreeID(ctx); ok {
		t.Fatalf("no id expected")
	}
	_ = local.SetTreeID(ctx, 42)
	if id, ok := local.TreeID(ctx); !ok || id != 42 {
		t.Fatalf("unexpected id %d %v", id, ok)
	}
	_ = kv.Set(ctx, KeyTreeID, "garbage")
	if _, ok := local.TreeID(ctx); ok {
		t.Fatalf("garbage id must be ignored")
	}
	_ = local.ClearTreeID(ctx)

	if _, ok := local.Session(ctx); ok {
		t.Fatalf("no session expected")
	}
	if err := local.SetSession(ctx, "tok", remote.User{ID: 1, Email: "a@b.c"}); err != nil {
		t.Fatalf("set session: %v", err)
	}
	s, ok := local.Session(ctx)
	if !ok || s.Token != "tok" || s.User.Email != "a@b.c" || s.LastActivity.UnixMilli() != 1700000000000 {
		t.Fatalf("unexpected session %+v", s)
	}
	if err := local.ClearSession(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok := local.Session(ctx); ok {
		t.Fatalf("session must be cleared")
	}
}
