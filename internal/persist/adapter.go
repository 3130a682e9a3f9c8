package persist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"famtree/internal/analytics"
	"famtree/internal/archive"
	"famtree/internal/remote"
	"famtree/pkg/family"
)

// DefaultTitle names trees saved without an explicit title.
const DefaultTitle = "Моё семейное древо"

// BackupPrefix is the archive key prefix for backups.
const BackupPrefix = "backups/"

var (
	// ErrNoRemote is returned by remote operations when no client is configured.
	ErrNoRemote = errors.New("remote not configured")
	// ErrNoArchive is returned by backup operations when no archive is configured.
	ErrNoArchive = errors.New("archive not configured")
)

// Remote is the subset of the remote client the adapter drives.
type Remote interface {
	Save(ctx context.Context, req remote.SaveRequest) (int64, error)
	Load(ctx context.Context, id int64) (remote.LoadedTree, error)
	List(ctx context.Context) ([]remote.TreeSummary, error)
}

// GoalSender reports analytics goals.
type GoalSender interface {
	Send(ctx context.Context, goal analytics.Goal, params map[string]any)
}

// SaveStatus is reported after every remote save attempt.
type SaveStatus struct {
	OK     bool
	TreeID int64
	Err    error
	At     time.Time
}

// Adapter ties local state, the remote endpoint, the archive and autosave
// together.
type Adapter struct {
	local    *LocalState
	remote   Remote
	archive  archive.Store
	goals    GoalSender
	autosave *Autosaver
	interval time.Duration
	recorder Recorder
	logger   *slog.Logger
	title    string
	email    string
	onStatus func(SaveStatus)
	now      func() time.Time

	saveMu sync.Mutex
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithRemote enables remote save, load and list.
func WithRemote(r Remote) Option { return func(a *Adapter) { a.remote = r } }

// WithArchive enables backups.
func WithArchive(s archive.Store) Option { return func(a *Adapter) { a.archive = s } }

// WithGoals reports analytics goals.
func WithGoals(g GoalSender) Option { return func(a *Adapter) { a.goals = g } }

// WithRecorder installs a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(a *Adapter) {
		if r != nil {
			a.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithTitle sets the title sent with remote saves.
func WithTitle(title string) Option { return func(a *Adapter) { a.title = title } }

// WithUserEmail sets the owner sent with remote saves.
func WithUserEmail(email string) Option { return func(a *Adapter) { a.email = email } }

// WithStatus registers a callback for save outcomes.
func WithStatus(fn func(SaveStatus)) Option { return func(a *Adapter) { a.onStatus = fn } }

// WithAutosave enables debounced remote saves after each Persist. It only
// takes effect together with WithRemote.
func WithAutosave(interval time.Duration) Option {
	return func(a *Adapter) {
		if interval <= 0 {
			interval = DefaultAutosaveInterval
		}
		a.interval = interval
	}
}

// NewAdapter builds an adapter over kv.
func NewAdapter(kv KV, opts ...Option) *Adapter {
	a := &Adapter{
		recorder: noopRecorder{},
		logger:   slog.New(slog.DiscardHandler),
		title:    DefaultTitle,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.local = NewLocalState(kv, a.logger)
	if a.interval > 0 && a.remote != nil {
		a.autosave = NewAutosaver(a.interval, func(ctx context.Context, tree family.Tree) error {
			_, err := a.SaveNow(ctx, tree)
			return err
		}, a.logger, a.recorder)
	}
	return a
}

// Local exposes the underlying local state.
func (a *Adapter) Local() *LocalState { return a.local }

// Autosaver returns the autosaver, nil when autosave is disabled.
func (a *Adapter) Autosaver() *Autosaver { return a.autosave }

// Restore returns the tree to start editing with.
func (a *Adapter) Restore(ctx context.Context) family.Tree {
	tree := a.local.LoadTree(ctx)
	a.recorder.TreeSize(len(tree.Nodes))
	return tree
}

// Persist writes tree locally and only then schedules the remote autosave.
func (a *Adapter) Persist(ctx context.Context, tree family.Tree) error {
	if err := a.local.SaveTree(ctx, tree); err != nil {
		return fmt.Errorf("persist locally: %w", err)
	}
	a.recorder.TreeSize(len(tree.Nodes))
	if a.autosave != nil {
		a.autosave.Schedule(tree)
	}
	return nil
}

// SaveNow pushes tree to the remote, reusing the stored tree id so the
// server upserts. The returned id is stored for the next save.
func (a *Adapter) SaveNow(ctx context.Context, tree family.Tree) (int64, error) {
	if a.remote == nil {
		return 0, ErrNoRemote
	}
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	c := tree.Clone()
	req := remote.SaveRequest{UserEmail: a.email, Title: a.title, Nodes: c.Nodes, Edges: c.Edges}
	prev, hadID := a.local.TreeID(ctx)
	if hadID {
		req.TreeID = &prev
	}
	id, err := a.remote.Save(ctx, req)
	if err != nil {
		a.report(SaveStatus{Err: err, At: a.now()})
		return 0, err
	}
	if err := a.local.SetTreeID(ctx, id); err != nil {
		a.logger.Warn("storing tree id", "tree_id", id, "error", err)
	}
	if !hadID {
		a.goal(ctx, analytics.TreeFirstSave, map[string]any{"nodes": len(c.Nodes)})
	}
	a.report(SaveStatus{OK: true, TreeID: id, At: a.now()})
	return id, nil
}

// LoadRemote fetches tree id, stores it locally and adopts its id.
func (a *Adapter) LoadRemote(ctx context.Context, id int64) (family.Tree, error) {
	if a.remote == nil {
		return family.Tree{}, ErrNoRemote
	}
	loaded, err := a.remote.Load(ctx, id)
	if err != nil {
		return family.Tree{}, err
	}
	tree := loaded.Tree.Clone()
	if n := tree.PruneDangling(); n > 0 {
		a.logger.Warn("dropped dangling edges from remote tree", "tree_id", id, "count", n)
	}
	if err := tree.Validate(); err != nil {
		return family.Tree{}, fmt.Errorf("remote tree %d: %w", id, err)
	}
	if err := a.local.SaveTree(ctx, tree); err != nil {
		return family.Tree{}, fmt.Errorf("persist locally: %w", err)
	}
	if err := a.local.SetTreeID(ctx, loaded.TreeID); err != nil {
		return family.Tree{}, fmt.Errorf("store tree id: %w", err)
	}
	a.recorder.TreeSize(len(tree.Nodes))
	return tree, nil
}

// ListRemote lists the user's remote trees.
func (a *Adapter) ListRemote(ctx context.Context) ([]remote.TreeSummary, error) {
	if a.remote == nil {
		return nil, ErrNoRemote
	}
	return a.remote.List(ctx)
}

// Export writes tree as an export document.
func (a *Adapter) Export(ctx context.Context, w io.Writer, tree family.Tree) error {
	if err := Encode(w, tree); err != nil {
		return err
	}
	a.goal(ctx, analytics.TreeExported, map[string]any{"nodes": len(tree.Nodes)})
	return nil
}

// Import decodes an export document. Nothing is stored: on failure the
// caller's state is untouched and on success the caller decides when to
// Persist.
func (a *Adapter) Import(ctx context.Context, r io.Reader) (family.Tree, error) {
	tree, err := Decode(r)
	if err != nil {
		return family.Tree{}, err
	}
	a.goal(ctx, analytics.TreeImported, map[string]any{"nodes": len(tree.Nodes)})
	return tree, nil
}

// Backup stores tree in the archive under name (a timestamp when empty).
func (a *Adapter) Backup(ctx context.Context, name string, tree family.Tree, compress bool) (archive.Info, error) {
	if a.archive == nil {
		return archive.Info{}, ErrNoArchive
	}
	if name == "" {
		name = a.now().UTC().Format("20060102T150405Z")
	}
	name = strings.TrimSuffix(strings.TrimSuffix(path.Clean(name), ".zst"), ".json")
	data, err := EncodeArchive(tree, compress)
	if err != nil {
		return archive.Info{}, err
	}
	key := BackupPrefix + name + ".json"
	opts := archive.PutOptions{
		ContentType: ContentTypeJSON,
		Metadata: map[string]string{
			"nodes": strconv.Itoa(len(tree.Nodes)),
			"edges": strconv.Itoa(len(tree.Edges)),
		},
	}
	if compress {
		key += ".zst"
		opts.ContentType = ContentTypeZstd
	}
	info, err := a.archive.Put(ctx, key, bytes.NewReader(data), opts)
	if err != nil {
		return archive.Info{}, fmt.Errorf("backup %s: %w", key, err)
	}
	a.logger.Info("backup stored", "key", key, "bytes", info.Size, "driver", string(a.archive.Driver()))
	return info, nil
}

// Backups lists stored backups.
func (a *Adapter) Backups(ctx context.Context) ([]archive.Info, error) {
	if a.archive == nil {
		return nil, ErrNoArchive
	}
	return a.archive.List(ctx, BackupPrefix)
}

// RestoreBackup reads a backup by key. Like Import it does not store.
func (a *Adapter) RestoreBackup(ctx context.Context, key string) (family.Tree, error) {
	if a.archive == nil {
		return family.Tree{}, ErrNoArchive
	}
	if !strings.HasPrefix(key, BackupPrefix) {
		key = BackupPrefix + key
	}
	_, rc, err := a.archive.Get(ctx, key)
	if err != nil {
		return family.Tree{}, err
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return family.Tree{}, fmt.Errorf("read backup %s: %w", key, err)
	}
	return DecodeArchive(data)
}

// BackupURL returns a shareable link for a backup.
func (a *Adapter) BackupURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if a.archive == nil {
		return "", ErrNoArchive
	}
	return a.archive.PresignURL(ctx, key, archive.SignedURLOptions{Expiry: expiry})
}

// Close stops autosave. Pending work is dropped and in-flight runs are
// awaited; call Flush first to push it.
func (a *Adapter) Close() {
	if a.autosave != nil {
		a.autosave.Stop()
	}
}

// Flush runs a pending autosave immediately.
func (a *Adapter) Flush(ctx context.Context) error {
	if a.autosave == nil {
		return nil
	}
	return a.autosave.Flush(ctx)
}

func (a *Adapter) report(s SaveStatus) {
	if a.onStatus != nil {
		a.onStatus(s)
	}
}

func (a *Adapter) goal(ctx context.Context, g analytics.Goal, params map[string]any) {
	if a.goals != nil {
		a.goals.Send(ctx, g, params)
	}
}
