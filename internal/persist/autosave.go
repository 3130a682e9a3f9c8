package persist

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"famtree/pkg/family"
)

// DefaultAutosaveInterval is the debounce applied when none is configured.
const DefaultAutosaveInterval = 15 * time.Minute

// Autosave run outcomes reported to the Recorder.
const (
	AutosaveSaved     = "saved"
	AutosaveSkipped   = "skipped"
	AutosaveUnchanged = "unchanged"
	AutosaveFailed    = "failed"
)

// Recorder receives persistence measurements.
type Recorder interface {
	AutosaveRun(result string)
	TreeSize(nodes int)
}

type noopRecorder struct{}

func (noopRecorder) AutosaveRun(string) {}
func (noopRecorder) TreeSize(int)       {}

// SaveFunc pushes a tree to the remote.
type SaveFunc func(ctx context.Context, tree family.Tree) error

// Autosaver debounces remote saves. Each Schedule restarts the timer; when
// it fires the latest tree is saved unless it has at most one node or is
// identical to the last tree saved successfully. Runs happen off the
// caller's goroutine and may overlap with a newer run.
type Autosaver struct {
	interval time.Duration
	save     SaveFunc
	logger   *slog.Logger
	recorder Recorder
	timeout  time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending *family.Tree
	last    [32]byte
	hasLast bool
	stopped bool
	wg      sync.WaitGroup
}

// NewAutosaver returns a stopped-until-scheduled autosaver.
func NewAutosaver(interval time.Duration, save SaveFunc, logger *slog.Logger, recorder Recorder) *Autosaver {
	if interval <= 0 {
		interval = DefaultAutosaveInterval
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Autosaver{interval: interval, save: save, logger: logger, recorder: recorder, timeout: time.Minute}
}

// Interval returns the debounce interval.
func (a *Autosaver) Interval() time.Duration { return a.interval }

// Schedule replaces the pending tree and restarts the timer.
func (a *Autosaver) Schedule(tree family.Tree) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return
	}
	c := tree.Clone()
	a.pending = &c
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.interval, a.fire)
}

// Pending reports whether a run is scheduled.
func (a *Autosaver) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending != nil
}

// Flush runs the pending save now, on the caller's goroutine.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
	}
	tree := a.pending
	a.pending = nil
	a.mu.Unlock()
	if tree == nil {
		return nil
	}
	return a.run(ctx, *tree)
}

// Stop cancels any pending run and waits for in-flight runs.
func (a *Autosaver) Stop() {
	a.mu.Lock()
	a.stopped = true
	if a.timer != nil {
		a.timer.Stop()
	}
	a.pending = nil
	a.mu.Unlock()
	a.wg.Wait()
}

func (a *Autosaver) fire() {
	a.mu.Lock()
	tree := a.pending
	a.pending = nil
	if tree == nil || a.stopped {
		a.mu.Unlock()
		return
	}
	a.wg.Add(1)
	a.mu.Unlock()
	defer a.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	_ = a.run(ctx, *tree)
}

func (a *Autosaver) run(ctx context.Context, tree family.Tree) error {
	if len(tree.Nodes) <= 1 {
		a.recorder.AutosaveRun(AutosaveSkipped)
		return nil
	}
	fp := Fingerprint(tree)
	a.mu.Lock()
	same := a.hasLast && fp == a.last
	a.mu.Unlock()
	if same {
		a.recorder.AutosaveRun(AutosaveUnchanged)
		return nil
	}
	if err := a.save(ctx, tree); err != nil {
		a.recorder.AutosaveRun(AutosaveFailed)
		a.logger.Warn("autosave failed", "error", err)
		return err
	}
	a.mu.Lock()
	a.last, a.hasLast = fp, true
	a.mu.Unlock()
	a.recorder.AutosaveRun(AutosaveSaved)
	a.logger.Info("autosaved", "nodes", len(tree.Nodes))
	return nil
}
