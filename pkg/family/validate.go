package family

import (
	"errors"
	"fmt"
)

// ErrMalformed marks structural problems found by Validate.
var ErrMalformed = errors.New("malformed tree")

// Validate checks the structural integrity required of any tree entering the
// system from outside: unique non-empty ids, known genders and edges that
// reference existing nodes. Relationship business rules (parent count, parent
// genders) are deliberately not checked here so imported data is accepted as
// the user saved it.
func (t Tree) Validate() error {
	ids := make(map[string]struct{}, len(t.Nodes))
	for i, n := range t.Nodes {
		if n.ID == "" {
			return fmt.Errorf("%w: node %d has empty id", ErrMalformed, i)
		}
		if _, dup := ids[n.ID]; dup {
			return fmt.Errorf("%w: duplicate node id %q", ErrMalformed, n.ID)
		}
		if !n.Gender.Valid() {
			return fmt.Errorf("%w: node %q has unknown gender %q", ErrMalformed, n.ID, n.Gender)
		}
		ids[n.ID] = struct{}{}
	}
	edgeIDs := make(map[string]struct{}, len(t.Edges))
	for i, e := range t.Edges {
		if e.ID == "" {
			return fmt.Errorf("%w: edge %d has empty id", ErrMalformed, i)
		}
		if _, dup := edgeIDs[e.ID]; dup {
			return fmt.Errorf("%w: duplicate edge id %q", ErrMalformed, e.ID)
		}
		edgeIDs[e.ID] = struct{}{}
		if e.Type != EdgeParentChild && e.Type != EdgeSpouse {
			return fmt.Errorf("%w: edge %q has unknown type %q", ErrMalformed, e.ID, e.Type)
		}
		if _, ok := ids[e.Source]; !ok {
			return fmt.Errorf("%w: edge %q references missing source %q", ErrMalformed, e.ID, e.Source)
		}
		if _, ok := ids[e.Target]; !ok {
			return fmt.Errorf("%w: edge %q references missing target %q", ErrMalformed, e.ID, e.Target)
		}
	}
	return nil
}

// PruneDangling drops edges whose endpoints do not exist and reports how many
// were removed.
func (t *Tree) PruneDangling() int {
	ids := make(map[string]struct{}, len(t.Nodes))
	for _, n := range t.Nodes {
		ids[n.ID] = struct{}{}
	}
	kept := t.Edges[:0]
	removed := 0
	for _, e := range t.Edges {
		_, okS := ids[e.Source]
		_, okT := ids[e.Target]
		if okS && okT {
			kept = append(kept, e)
			continue
		}
		removed++
	}
	t.Edges = kept
	return removed
}
