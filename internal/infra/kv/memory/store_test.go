package memory

import (
	"context"
	"testing"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	if _, ok, _ := s.Get(ctx, "missing"); ok {
		t.Fatalf("expected missing key")
	}
	if err := s.Set(ctx, "b", "2"); err != nil {
		t.Fatalf("set: %v", err)
	}
	_ = s.Set(ctx, "a", "1")
	if v, ok, _ := s.Get(ctx, "b"); !ok || v != "2" {
		t.Fatalf("unexpected get %q %v", v, ok)
	}
	if keys := s.Keys(); len(keys) != 2 || keys[0] != "a" {
		t.Fatalf("keys not sorted: %v", keys)
	}
	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}
}

func TestExportIsACopy(t *testing.T) {
	s := NewStore()
	s.Import(map[string]string{"k": "v"})
	out := s.Export()
	out["k"] = "changed"
	if v, _, _ := s.Get(context.Background(), "k"); v != "v" {
		t.Fatalf("export leaked internal map")
	}
}
