package core

import (
	"context"
	"fmt"

	"famtree/pkg/family"
)

// ParentCardinalityRule blocks parent insertions that leave the person with
// more than two parents or with two parents of the same gender. Only
// ActionAddParent changes are inspected: children and siblings inherit
// whatever parents exist, and imported trees keep their irregular parent sets.
func ParentCardinalityRule() Rule {
	return parentCardinalityRule{}
}

type parentCardinalityRule struct{}

func (parentCardinalityRule) Name() string { return "parent_cardinality" }

func (parentCardinalityRule) Evaluate(_ context.Context, tree family.Tree, changes []Change) (Result, error) {
	res := Result{}
	checked := make(map[string]struct{}, len(changes))
	for _, change := range changes {
		if change.Action != ActionAddParent {
			continue
		}
		if _, done := checked[change.NodeID]; done {
			continue
		}
		checked[change.NodeID] = struct{}{}

		parents := tree.ParentIDs(change.NodeID)
		if len(parents) > 2 {
			res.Violations = append(res.Violations, parentViolation(change.NodeID,
				fmt.Sprintf("person %s has %d parents", change.NodeID, len(parents))))
			continue
		}
		if len(parents) == 2 {
			a, okA := tree.Node(parents[0])
			b, okB := tree.Node(parents[1])
			if okA && okB && a.Gender == b.Gender {
				res.Violations = append(res.Violations, parentViolation(change.NodeID,
					fmt.Sprintf("person %s has two %s parents", change.NodeID, a.Gender)))
			}
		}
	}
	return res, nil
}

func parentViolation(nodeID, message string) Violation {
	return Violation{
		Rule:     "parent_cardinality",
		Severity: SeverityBlock,
		Message:  message,
		NodeID:   nodeID,
	}
}

// DanglingEdgeRule warns about edges whose endpoints are missing.
func DanglingEdgeRule() Rule {
	return danglingEdgeRule{}
}

type danglingEdgeRule struct{}

func (danglingEdgeRule) Name() string { return "dangling_edge" }

func (danglingEdgeRule) Evaluate(_ context.Context, tree family.Tree, _ []Change) (Result, error) {
	res := Result{}
	ids := make(map[string]struct{}, len(tree.Nodes))
	for _, n := range tree.Nodes {
		ids[n.ID] = struct{}{}
	}
	for _, e := range tree.Edges {
		_, okS := ids[e.Source]
		_, okT := ids[e.Target]
		if okS && okT {
			continue
		}
		res.Violations = append(res.Violations, Violation{
			Rule:     "dangling_edge",
			Severity: SeverityWarn,
			Message:  fmt.Sprintf("edge %s references a missing person", e.ID),
		})
	}
	return res, nil
}
