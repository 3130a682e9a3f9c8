package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"famtree/pkg/family"
)

// WeeklyStatsKey is the storage key of the weekly snapshot.
const WeeklyStatsKey = "familyTree_weeklyStats"

// WeeklyWindow is how long a snapshot stays the comparison baseline.
const WeeklyWindow = 7 * 24 * time.Hour

// SnapshotStore is the slice of the storage port the tracker needs.
type SnapshotStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// WeeklySnapshot is the persisted baseline. Timestamp is in Unix
// milliseconds.
type WeeklySnapshot struct {
	People    int   `json:"people"`
	Photos    int   `json:"photos"`
	Stories   int   `json:"stories"`
	Timestamp int64 `json:"timestamp"`
}

// WeeklyChange is the difference between the current tree and the baseline.
type WeeklyChange struct {
	People  int `json:"weeklyPeopleChange"`
	Photos  int `json:"weeklyPhotosChange"`
	Stories int `json:"weeklyStoriesChange"`
}

// WeeklyTracker maintains the weekly baseline in a SnapshotStore.
type WeeklyTracker struct {
	store  SnapshotStore
	now    func() time.Time
	logger *slog.Logger
}

// NewWeeklyTracker builds a tracker. now defaults to time.Now.
func NewWeeklyTracker(store SnapshotStore, now func() time.Time, logger *slog.Logger) *WeeklyTracker {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &WeeklyTracker{store: store, now: now, logger: logger}
}

// Changes compares tree with the stored baseline.
//
// Without a baseline the current values are stored and every delta is zero.
// A baseline that is unreadable, has a zero timestamp or is older than a
// week is replaced by the current values and the delta against it (zero
// values when unreadable) is reported. A fresh baseline is left in place.
func (w *WeeklyTracker) Changes(ctx context.Context, tree family.Tree) (WeeklyChange, error) {
	now := w.now()
	current := WeeklySnapshot{
		People:    len(tree.Nodes),
		Photos:    countPhotos(tree),
		Stories:   countStories(tree),
		Timestamp: now.UnixMilli(),
	}

	raw, ok, err := w.store.Get(ctx, WeeklyStatsKey)
	if err != nil {
		return WeeklyChange{}, fmt.Errorf("read weekly stats: %w", err)
	}
	if !ok {
		return WeeklyChange{}, w.save(ctx, current)
	}

	var previous WeeklySnapshot
	if err := json.Unmarshal([]byte(raw), &previous); err != nil {
		w.logger.Warn("weekly stats unreadable, resetting", "error", err)
		previous = WeeklySnapshot{}
	}
	change := WeeklyChange{
		People:  current.People - previous.People,
		Photos:  current.Photos - previous.Photos,
		Stories: current.Stories - previous.Stories,
	}
	weekAgo := now.Add(-WeeklyWindow).UnixMilli()
	if previous.Timestamp == 0 || previous.Timestamp < weekAgo {
		if err := w.save(ctx, current); err != nil {
			return change, err
		}
	}
	return change, nil
}

func (w *WeeklyTracker) save(ctx context.Context, snap WeeklySnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := w.store.Set(ctx, WeeklyStatsKey, string(data)); err != nil {
		return fmt.Errorf("write weekly stats: %w", err)
	}
	return nil
}
