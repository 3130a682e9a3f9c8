package persist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"famtree/pkg/family"
)

type runLog struct {
	mu      sync.Mutex
	results []string
	sizes   []int
}

func (r *runLog) AutosaveRun(result string) {
	r.mu.Lock()
	r.results = append(r.results, result)
	r.mu.Unlock()
}

func (r *runLog) TreeSize(n int) {
	r.mu.Lock()
	r.sizes = append(r.sizes, n)
	r.mu.Unlock()
}

func (r *runLog) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.results...)
}

func TestAutosaverFlushOutcomes(t *testing.T) {
	ctx := context.Background()
	var saved int
	var fail error
	log := &runLog{}
	a := NewAutosaver(time.Hour, func(context.Context, family.Tree) error {
		if fail != nil {
			return fail
		}
		saved++
		return nil
	}, nil, log)
	defer a.Stop()

	a.Schedule(family.SeedTree())
	_ = a.Flush(ctx)
	a.Schedule(threeNodeTree())
	if !a.Pending() {
		t.Fatalf("expected pending run")
	}
	_ = a.Flush(ctx)
	a.Schedule(threeNodeTree())
	_ = a.Flush(ctx)
	fail = errors.New("offline")
	changed := threeNodeTree()
	changed.Nodes[1].FirstName = "Пётр"
	a.Schedule(changed)
	if err := a.Flush(ctx); err == nil {
		t.Fatalf("flush must surface the save error")
	}
	if err := a.Flush(ctx); err != nil {
		t.Fatalf("empty flush: %v", err)
	}

	want := []string{AutosaveSkipped, AutosaveSaved, AutosaveUnchanged, AutosaveFailed}
	got := log.snapshot()
	if len(got) != len(want) {
		t.Fatalf("results %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("results %v want %v", got, want)
		}
	}
	if saved != 1 {
		t.Fatalf("expected one save, got %d", saved)
	}
}

func TestAutosaverDebounces(t *testing.T) {
	done := make(chan family.Tree, 4)
	a := NewAutosaver(30*time.Millisecond, func(_ context.Context, tree family.Tree) error {
		done <- tree
		return nil
	}, nil, nil)
	defer a.Stop()

	first := threeNodeTree()
	second := threeNodeTree()
	second.Nodes[0].FirstName = "latest"
	a.Schedule(first)
	a.Schedule(second)

	select {
	case got := <-done:
		if got.Nodes[0].FirstName != "latest" {
			t.Fatalf("debounce must save the latest tree, got %q", got.Nodes[0].FirstName)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("autosave did not fire")
	}
	select {
	case <-done:
		t.Fatalf("superseded tree must not be saved")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestAutosaverStopCancelsPending(t *testing.T) {
	called := make(chan struct{}, 1)
	a := NewAutosaver(20*time.Millisecond, func(context.Context, family.Tree) error {
		called <- struct{}{}
		return nil
	}, nil, nil)
	a.Schedule(threeNodeTree())
	a.Stop()
	a.Schedule(threeNodeTree())
	select {
	case <-called:
		t.Fatalf("stopped autosaver must not save")
	case <-time.After(80 * time.Millisecond):
	}
	if a.Interval() != 20*time.Millisecond {
		t.Fatalf("unexpected interval")
	}
	if NewAutosaver(0, nil, nil, nil).Interval() != DefaultAutosaveInterval {
		t.Fatalf("zero interval must use default")
	}
}
