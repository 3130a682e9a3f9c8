package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"famtree/pkg/family"
)

// Editor owns the tree being edited together with the current selection.
// Every successful mutation is published to observers, in registration
// order, after the lock is released. The lock exists because background
// savers read snapshots from their own goroutines.
type Editor struct {
	mu        sync.Mutex
	tree      family.Tree
	selected  string
	engine    *RulesEngine
	ids       IDSource
	logger    *slog.Logger
	observers []func(family.Tree)
}

// EditorOption customises an Editor.
type EditorOption func(*Editor)

// WithRulesEngine replaces the default rules engine.
func WithRulesEngine(engine *RulesEngine) EditorOption {
	return func(e *Editor) { e.engine = engine }
}

// WithIDSource replaces the UUIDv7 id source.
func WithIDSource(ids IDSource) EditorOption {
	return func(e *Editor) { e.ids = ids }
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) EditorOption {
	return func(e *Editor) { e.logger = logger }
}

// NewEditor starts an editing session over a copy of tree.
func NewEditor(tree family.Tree, opts ...EditorOption) *Editor {
	e := &Editor{
		tree:   tree.Clone(),
		engine: NewDefaultRulesEngine(),
		ids:    UUIDSource{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return e
}

// OnChange registers an observer called with a snapshot after each mutation.
func (e *Editor) OnChange(fn func(family.Tree)) {
	e.mu.Lock()
	e.observers = append(e.observers, fn)
	e.mu.Unlock()
}

// Snapshot returns a deep copy of the current tree.
func (e *Editor) Snapshot() family.Tree {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tree.Clone()
}

// AddRelative inserts a relative of sourceID and selects it.
func (e *Editor) AddRelative(ctx context.Context, sourceID string, relation family.Relation, genderHint *family.Gender) (family.Node, error) {
	e.mu.Lock()
	ins, err := AddRelative(e.tree, sourceID, relation, genderHint, e.ids)
	if err != nil {
		e.mu.Unlock()
		return family.Node{}, err
	}
	candidate := ins.Apply(e.tree)
	res, err := e.engine.Evaluate(ctx, candidate, ins.Changes())
	if err != nil {
		e.mu.Unlock()
		return family.Node{}, fmt.Errorf("evaluate rules: %w", err)
	}
	if res.HasBlocking() {
		e.mu.Unlock()
		return family.Node{}, RuleViolationError{Result: res}
	}
	for _, v := range res.Violations {
		e.logger.Warn("rule warning", "rule", v.Rule, "message", v.Message, "node", v.NodeID)
	}
	e.tree = candidate
	e.selected = ins.Node.ID
	snap := e.tree.Clone()
	e.mu.Unlock()

	e.logger.Debug("relative added", "source", sourceID, "relation", relation, "node", ins.Node.ID)
	e.notify(snap)
	return ins.Node, nil
}

// UpdateNode applies mutator to a copy of node id. The id and the root
// marker cannot be changed through it.
func (e *Editor) UpdateNode(id string, mutator func(*family.Node) error) (family.Node, error) {
	e.mu.Lock()
	idx := e.tree.Index(id)
	if idx < 0 {
		e.mu.Unlock()
		return family.Node{}, nodeErr(id, ErrNodeNotFound)
	}
	updated := e.tree.Nodes[idx]
	if err := mutator(&updated); err != nil {
		e.mu.Unlock()
		return family.Node{}, err
	}
	updated.ID = id
	updated.Relation = e.tree.Nodes[idx].Relation
	e.tree.Nodes[idx] = updated
	snap := e.tree.Clone()
	e.mu.Unlock()

	e.notify(snap)
	return updated, nil
}

// SetField edits a single attribute addressed by its JSON name.
func (e *Editor) SetField(id, field, value string) (family.Node, error) {
	return e.UpdateNode(id, func(n *family.Node) error {
		return assignField(n, field, value)
	})
}

func assignField(n *family.Node, field, value string) error {
	switch field {
	case "id", "relation":
		return fmt.Errorf("%w: %s", ErrReadOnlyField, field)
	case "firstName":
		n.FirstName = value
	case "lastName":
		n.LastName = value
	case "middleName":
		n.MiddleName = value
	case "maidenName":
		n.MaidenName = value
	case "birthDate":
		n.BirthDate = value
	case "birthPlace":
		n.BirthPlace = value
	case "deathDate":
		n.DeathDate = value
	case "deathPlace":
		n.DeathPlace = value
	case "occupation":
		n.Occupation = value
	case "bio":
		n.Bio = value
	case "historyContext":
		n.HistoryContext = value
	case "gender":
		g := family.Gender(strings.ToLower(value))
		if !g.Valid() {
			return fmt.Errorf("invalid gender %q", value)
		}
		n.Gender = g
	case "isAlive":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("isAlive: %w", err)
		}
		n.IsAlive = b
	case "x", "y":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		if field == "x" {
			n.X = f
		} else {
			n.Y = f
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return nil
}

// DeleteNode removes a person and every edge touching it. The root cannot
// be deleted.
func (e *Editor) DeleteNode(id string) error {
	e.mu.Lock()
	idx := e.tree.Index(id)
	if idx < 0 {
		e.mu.Unlock()
		return nodeErr(id, ErrNodeNotFound)
	}
	if e.tree.Nodes[idx].IsRoot() {
		e.mu.Unlock()
		return nodeErr(id, ErrRootNode)
	}
	next := family.Tree{
		Nodes: make([]family.Node, 0, len(e.tree.Nodes)-1),
		Edges: make([]family.Edge, 0, len(e.tree.Edges)),
	}
	next.Nodes = append(next.Nodes, e.tree.Nodes[:idx]...)
	next.Nodes = append(next.Nodes, e.tree.Nodes[idx+1:]...)
	for _, edge := range e.tree.Edges {
		if !edge.Touches(id) {
			next.Edges = append(next.Edges, edge)
		}
	}
	e.tree = next
	if e.selected == id {
		e.selected = ""
	}
	snap := e.tree.Clone()
	e.mu.Unlock()

	e.logger.Debug("person deleted", "node", id)
	e.notify(snap)
	return nil
}

// MoveNode shifts a node by (dx, dy) canvas units.
func (e *Editor) MoveNode(id string, dx, dy float64) error {
	e.mu.Lock()
	idx := e.tree.Index(id)
	if idx < 0 {
		e.mu.Unlock()
		return nodeErr(id, ErrNodeNotFound)
	}
	e.tree.Nodes[idx].X += dx
	e.tree.Nodes[idx].Y += dy
	snap := e.tree.Clone()
	e.mu.Unlock()

	e.notify(snap)
	return nil
}

// Replace swaps in a whole tree after structural validation. The current
// tree is untouched when validation fails.
func (e *Editor) Replace(tree family.Tree) error {
	if err := tree.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	e.tree = tree.Clone()
	e.selected = ""
	snap := e.tree.Clone()
	e.mu.Unlock()

	e.notify(snap)
	return nil
}

// Select marks id as the selected person.
func (e *Editor) Select(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tree.Index(id) < 0 {
		return nodeErr(id, ErrNodeNotFound)
	}
	e.selected = id
	return nil
}

// ClearSelection drops the selection.
func (e *Editor) ClearSelection() {
	e.mu.Lock()
	e.selected = ""
	e.mu.Unlock()
}

// Selected returns the selected person, if any.
func (e *Editor) Selected() (family.Node, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.selected == "" {
		return family.Node{}, false
	}
	return e.tree.Node(e.selected)
}

// SelectedParents returns the parents of the selected person.
func (e *Editor) SelectedParents() []family.Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.selected == "" {
		return nil
	}
	var out []family.Node
	for _, id := range e.tree.ParentIDs(e.selected) {
		if n, ok := e.tree.Node(id); ok {
			out = append(out, n)
		}
	}
	return out
}

func (e *Editor) notify(snap family.Tree) {
	e.mu.Lock()
	observers := append([]func(family.Tree){}, e.observers...)
	e.mu.Unlock()
	for _, fn := range observers {
		fn(snap.Clone())
	}
}
