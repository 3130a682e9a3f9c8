package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"famtree/internal/analytics"
	"famtree/internal/archive"
	"famtree/internal/config"
	"famtree/internal/core"
	"famtree/internal/observability"
	"famtree/internal/persist"
	"famtree/internal/remote"
	"famtree/internal/storage"
	"famtree/internal/ui"
	"famtree/pkg/family"
)

// app is the state shared by every command of one invocation.
type app struct {
	cfgPath string
	out     io.Writer
	errOut  io.Writer

	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	kv      storage.Port
	local   *persist.LocalState
	tracker *analytics.Tracker
	client  *remote.Client
	adapter *persist.Adapter
	editor  *core.Editor

	ctx        context.Context
	persistErr error
	now        func() time.Time
}

func newApp(out, errOut io.Writer) *app {
	return &app{out: out, errOut: errOut, now: time.Now}
}

// open loads configuration and the local profile. It is idempotent.
func (a *app) open(ctx context.Context) error {
	if a.cfg != nil {
		return nil
	}
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg
	a.ctx = ctx
	a.logger = observability.NewLogger(a.errOut, cfg.Log.Level, cfg.Log.Format)
	a.metrics = observability.NewMetrics(true)

	kv, err := storage.Open(ctx, cfg.StorageConfig())
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	a.kv = kv
	a.local = persist.NewLocalState(kv, a.logger)

	var sink analytics.Sink = analytics.NoopSink{}
	if cfg.Analytics.Endpoint != "" {
		sink = analytics.NewHTTPSink(cfg.Analytics.Endpoint)
	}
	a.tracker = analytics.NewTracker(sink, cfg.Analytics.Counter, a.logger)

	email := cfg.Remote.UserEmail
	token := ""
	if sess, ok := a.local.Session(ctx); ok {
		token = sess.Token
		if email == "" {
			email = sess.User.Email
		}
		if err := a.local.Touch(ctx); err != nil {
			a.logger.Warn("touch session", "error", err)
		}
	}
	if ep := cfg.Endpoints(); ep != (remote.Endpoints{}) {
		a.client = remote.NewClient(ep, email,
			remote.WithMetrics(a.metrics),
			remote.WithLogger(a.logger),
			remote.WithSessionToken(token),
		)
	}

	a.adapter = a.newAdapter(email, nil, 0)
	a.editor = core.NewEditor(a.adapter.Restore(ctx), core.WithLogger(a.logger))
	a.editor.OnChange(func(tree family.Tree) {
		if err := a.adapter.Persist(a.ctx, tree); err != nil {
			a.persistErr = errors.Join(a.persistErr, err)
		}
	})
	return nil
}

func (a *app) newAdapter(email string, store archive.Store, interval time.Duration) *persist.Adapter {
	opts := []persist.Option{
		persist.WithLogger(a.logger),
		persist.WithRecorder(a.metrics),
		persist.WithGoals(a.tracker),
		persist.WithTitle(a.cfg.Remote.Title),
		persist.WithUserEmail(email),
		persist.WithStatus(a.reportStatus),
	}
	if a.client != nil && a.cfg.RemoteEnabled() {
		opts = append(opts, persist.WithRemote(a.client))
	}
	if store != nil {
		opts = append(opts, persist.WithArchive(store))
	}
	if interval > 0 {
		opts = append(opts, persist.WithAutosave(interval))
	}
	return persist.NewAdapter(a.kv, opts...)
}

// useArchive opens the configured archive and rebinds the adapter to it.
func (a *app) useArchive(ctx context.Context) error {
	store, err := archive.Open(ctx, a.cfg.ArchiveConfig())
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	a.adapter = a.newAdapter(a.userEmail(), store, 0)
	return nil
}

// useAutosave rebinds the adapter with the configured autosave interval.
func (a *app) useAutosave(override time.Duration) (time.Duration, error) {
	interval, err := a.cfg.AutosaveInterval()
	if err != nil {
		return 0, err
	}
	if override > 0 {
		interval = override
	}
	if interval == 0 {
		return 0, errors.New("autosave is disabled in config")
	}
	a.adapter = a.newAdapter(a.userEmail(), nil, interval)
	if a.adapter.Autosaver() == nil {
		return 0, fmt.Errorf("autosave: %w", persist.ErrNoRemote)
	}
	return interval, nil
}

func (a *app) userEmail() string {
	if a.client != nil && a.client.UserEmail != "" {
		return a.client.UserEmail
	}
	return a.cfg.Remote.UserEmail
}

func (a *app) requireClient() (*remote.Client, error) {
	if a.client == nil {
		return nil, fmt.Errorf("remote endpoints: %w", remote.ErrNotConfigured)
	}
	return a.client, nil
}

func (a *app) reportStatus(s persist.SaveStatus) {
	if s.OK {
		fmt.Fprintf(a.out, "  %s saved tree %d at %s\n", ui.StatusIcon(true), s.TreeID, s.At.Format(time.TimeOnly))
		return
	}
	fmt.Fprintf(a.out, "  %s save failed: %s\n", ui.StatusIcon(false), describe(s.Err))
}

// close flushes analytics and releases storage.
func (a *app) close() error {
	if a.adapter != nil {
		a.adapter.Close()
	}
	if a.tracker != nil {
		a.tracker.Wait()
	}
	if a.kv != nil {
		return a.kv.Close()
	}
	return nil
}

// describe turns remote errors into their user-facing text.
func describe(err error) string {
	var re *remote.RemoteError
	if errors.As(err, &re) || errors.Is(err, remote.ErrConnection) {
		return remote.UserMessage(err)
	}
	return err.Error()
}
