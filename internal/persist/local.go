package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"famtree/internal/remote"
	"famtree/pkg/family"
)

// Keys under which local state is stored. Each value is encoded on its own.
const (
	KeyNodes        = "familyTree_nodes"
	KeyEdges        = "familyTree_edges"
	KeyTreeID       = "familyTree_treeId"
	KeySession      = "session_token"
	KeyUser         = "user_data"
	KeyLastActivity = "last_activity"
)

// KV is the key/value contract local state needs.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Session is the signed-in account kept between runs.
type Session struct {
	Token        string
	User         remote.User
	LastActivity time.Time
}

// LocalState reads and writes the durable client-side profile.
type LocalState struct {
	kv     KV
	logger *slog.Logger
	now    func() time.Time
}

// NewLocalState wraps kv. A nil logger discards.
func NewLocalState(kv KV, logger *slog.Logger) *LocalState {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LocalState{kv: kv, logger: logger, now: time.Now}
}

// LoadTree returns the stored tree. Missing or unreadable nodes fall back to
// the seed tree, unreadable edges to no edges, and edges pointing at unknown
// nodes are dropped. None of these are errors.
func (l *LocalState) LoadTree(ctx context.Context) family.Tree {
	nodes, ok := l.loadNodes(ctx)
	if !ok {
		return family.SeedTree()
	}
	tree := family.Tree{Nodes: nodes, Edges: l.loadEdges(ctx)}.Clone()
	if n := tree.PruneDangling(); n > 0 {
		l.logger.Warn("dropped dangling edges from local state", "count", n)
	}
	if err := tree.Validate(); err != nil {
		l.logger.Warn("stored edges invalid, discarding", "error", err)
		tree.Edges = []family.Edge{}
	}
	return tree
}

func (l *LocalState) loadNodes(ctx context.Context) ([]family.Node, bool) {
	raw, ok, err := l.kv.Get(ctx, KeyNodes)
	if err != nil {
		l.logger.Error("reading stored nodes", "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var nodes []family.Node
	if err := json.Unmarshal([]byte(raw), &nodes); err != nil {
		l.logger.Warn("stored nodes corrupt, using seed tree", "error", err)
		return nil, false
	}
	if len(nodes) == 0 {
		l.logger.Warn("stored nodes empty, using seed tree")
		return nil, false
	}
	if err := (family.Tree{Nodes: nodes}).Validate(); err != nil {
		l.logger.Warn("stored nodes invalid, using seed tree", "error", err)
		return nil, false
	}
	return nodes, true
}

func (l *LocalState) loadEdges(ctx context.Context) []family.Edge {
	raw, ok, err := l.kv.Get(ctx, KeyEdges)
	if err != nil {
		l.logger.Error("reading stored edges", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	var edges []family.Edge
	if err := json.Unmarshal([]byte(raw), &edges); err != nil {
		l.logger.Warn("stored edges corrupt, starting without edges", "error", err)
		return nil
	}
	return edges
}

// SaveTree writes nodes then edges.
func (l *LocalState) SaveTree(ctx context.Context, tree family.Tree) error {
	c := tree.Clone()
	nodes, err := json.Marshal(c.Nodes)
	if err != nil {
		return fmt.Errorf("encode nodes: %w", err)
	}
	edges, err := json.Marshal(c.Edges)
	if err != nil {
		return fmt.Errorf("encode edges: %w", err)
	}
	if err := l.kv.Set(ctx, KeyNodes, string(nodes)); err != nil {
		return fmt.Errorf("store nodes: %w", err)
	}
	if err := l.kv.Set(ctx, KeyEdges, string(edges)); err != nil {
		return fmt.Errorf("store edges: %w", err)
	}
	return nil
}

// TreeID returns the remote id of the last successful save.
func (l *LocalState) TreeID(ctx context.Context) (int64, bool) {
	raw, ok, err := l.kv.Get(ctx, KeyTreeID)
	if err != nil || !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		l.logger.Warn("stored tree id unreadable", "value", raw)
		return 0, false
	}
	return id, true
}

// SetTreeID records the remote id.
func (l *LocalState) SetTreeID(ctx context.Context, id int64) error {
	return l.kv.Set(ctx, KeyTreeID, strconv.FormatInt(id, 10))
}

// ClearTreeID forgets the remote id so the next save creates a new tree.
func (l *LocalState) ClearTreeID(ctx context.Context) error {
	return l.kv.Delete(ctx, KeyTreeID)
}

// Session returns the stored session, if any.
func (l *LocalState) Session(ctx context.Context) (Session, bool) {
	token, ok, err := l.kv.Get(ctx, KeySession)
	if err != nil || !ok || token == "" {
		return Session{}, false
	}
	s := Session{Token: token}
	if raw, ok, _ := l.kv.Get(ctx, KeyUser); ok {
		if err := json.Unmarshal([]byte(raw), &s.User); err != nil {
			l.logger.Warn("stored user data corrupt", "error", err)
		}
	}
	if raw, ok, _ := l.kv.Get(ctx, KeyLastActivity); ok {
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
			s.LastActivity = time.UnixMilli(ms)
		}
	}
	return s, true
}

// SetSession stores token and user and stamps the activity time.
func (l *LocalState) SetSession(ctx context.Context, token string, user remote.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := l.kv.Set(ctx, KeySession, token); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	if err := l.kv.Set(ctx, KeyUser, string(data)); err != nil {
		return fmt.Errorf("store user: %w", err)
	}
	return l.Touch(ctx)
}

// Touch records the current time as the last activity.
func (l *LocalState) Touch(ctx context.Context) error {
	return l.kv.Set(ctx, KeyLastActivity, strconv.FormatInt(l.now().UnixMilli(), 10))
}

// ClearSession removes every session key.
func (l *LocalState) ClearSession(ctx context.Context) error {
	for _, k := range []string{KeySession, KeyUser, KeyLastActivity} {
		if err := l.kv.Delete(ctx, k); err != nil {
			return fmt.Errorf("clear %s: %w", k, err)
		}
	}
	return nil
}
