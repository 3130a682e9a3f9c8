package core

import (
	"context"
	"testing"

	"famtree/pkg/family"
)

func TestParentCardinalityRule(t *testing.T) {
	tree := family.Tree{
		Nodes: []family.Node{
			{ID: "c", Gender: family.Male},
			{ID: "a", Gender: family.Female},
			{ID: "b", Gender: family.Female},
			{ID: "d", Gender: family.Male},
		},
		Edges: []family.Edge{
			{ID: "1", Source: "a", Target: "c"},
			{ID: "2", Source: "b", Target: "c"},
		},
	}
	rule := ParentCardinalityRule()
	res, err := rule.Evaluate(context.Background(), tree, []Change{{Action: ActionAddParent, NodeID: "c"}})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !res.HasBlocking() || res.Violations[0].NodeID != "c" {
		t.Fatalf("expected same-gender violation, got %+v", res)
	}

	// Only parent insertions are inspected.
	for _, action := range []Action{ActionCreate, ActionUpdate} {
		res, _ = rule.Evaluate(context.Background(), tree, []Change{{Action: action, NodeID: "c"}})
		if len(res.Violations) != 0 {
			t.Fatalf("%s: unexpected violations %+v", action, res)
		}
	}

	tree.Edges = append(tree.Edges, family.Edge{ID: "3", Source: "d", Target: "c"})
	res, _ = rule.Evaluate(context.Background(), tree, []Change{{Action: ActionAddParent, NodeID: "c"}, {Action: ActionAddParent, NodeID: "c"}})
	if len(res.Violations) != 1 {
		t.Fatalf("expected a single three-parent violation, got %+v", res)
	}
}

func TestDanglingEdgeRuleWarns(t *testing.T) {
	tree := family.Tree{
		Nodes: []family.Node{{ID: "a", Gender: family.Male}},
		Edges: []family.Edge{{ID: "x", Source: "a", Target: "gone"}},
	}
	engine := NewDefaultRulesEngine()
	res, err := engine.Evaluate(context.Background(), tree, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if res.HasBlocking() || len(res.Violations) != 1 || res.Violations[0].Severity != SeverityWarn {
		t.Fatalf("expected one warning, got %+v", res)
	}
}

func TestRuleViolationErrorMessage(t *testing.T) {
	err := RuleViolationError{Result: Result{Violations: []Violation{
		{Severity: SeverityWarn, Message: "minor"},
		{Severity: SeverityBlock, Message: "person c has 3 parents"},
		{Severity: SeverityBlock, Message: "person c has two female parents"},
	}}}
	if got := err.Error(); got != "edit rejected: person c has 3 parents; person c has two female parents" {
		t.Fatalf("unexpected message %q", got)
	}
	var nilEngine *RulesEngine
	if res, err := nilEngine.Evaluate(context.Background(), family.Tree{}, nil); err != nil || len(res.Violations) != 0 {
		t.Fatalf("nil engine should evaluate to empty result")
	}
}
