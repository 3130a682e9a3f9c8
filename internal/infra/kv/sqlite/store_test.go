package sqlite

import (
	"context"
	"path/filepath"
	"testing"
)

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := NewStore(path)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "famtree.db")
	s := openStore(t, path)
	if err := s.Set(ctx, "familyTree_nodes", `[{"id":"root"}]`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, "familyTree_nodes", `[]`); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	_ = s.Set(ctx, "user_data", `{"id":"u1"}`)
	if err := s.Delete(ctx, "user_data"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if s.Path() != path {
		t.Fatalf("unexpected path %s", s.Path())
	}
	_ = s.Close()

	reopened := openStore(t, path)
	if v, ok, _ := reopened.Get(ctx, "familyTree_nodes"); !ok || v != "[]" {
		t.Fatalf("upsert not persisted: %q %v", v, ok)
	}
	if _, ok, _ := reopened.Get(ctx, "user_data"); ok {
		t.Fatalf("deleted key came back")
	}
	var n int
	if err := reopened.DB().QueryRow(`SELECT COUNT(*) FROM kv`).Scan(&n); err != nil || n != 1 {
		t.Fatalf("expected one row, got %d (%v)", n, err)
	}
}
