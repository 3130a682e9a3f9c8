package core

import (
	"context"
	"fmt"
	"strings"

	"famtree/pkg/family"
)

// Severity says whether a violation stops the edit.
type Severity string

const (
	SeverityBlock Severity = "block"
	SeverityWarn  Severity = "warn"
)

// Action is what an edit did to a person.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	// ActionAddParent marks the person who gained a parent.
	ActionAddParent Action = "add_parent"
)

// Change names one person touched by a pending edit.
type Change struct {
	Action Action
	NodeID string
}

// Violation is a single rule finding.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	NodeID   string
}

// Result collects findings from every rule.
type Result struct {
	Violations []Violation
}

// Merge appends the findings of other.
func (r *Result) Merge(other Result) {
	r.Violations = append(r.Violations, other.Violations...)
}

// Blocking returns the findings that stop the edit.
func (r Result) Blocking() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			out = append(out, v)
		}
	}
	return out
}

// HasBlocking reports whether any finding stops the edit.
func (r Result) HasBlocking() bool { return len(r.Blocking()) > 0 }

// RuleViolationError carries the findings that rejected an edit.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	blocking := e.Result.Blocking()
	if len(blocking) == 0 {
		return "edit rejected"
	}
	msgs := make([]string, len(blocking))
	for i, v := range blocking {
		msgs[i] = v.Message
	}
	return "edit rejected: " + strings.Join(msgs, "; ")
}

// Rule inspects the tree an edit would produce.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, candidate family.Tree, changes []Change) (Result, error)
}

// RulesEngine runs rules in registration order.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine returns an engine with no rules.
func NewRulesEngine(rules ...Rule) *RulesEngine {
	return &RulesEngine{rules: rules}
}

// NewDefaultRulesEngine checks parent cardinality and warns on dangling edges.
func NewDefaultRulesEngine() *RulesEngine {
	return NewRulesEngine(ParentCardinalityRule(), DanglingEdgeRule())
}

// Register adds rule after the existing ones.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Evaluate stops at the first rule that errors. A nil engine accepts everything.
func (e *RulesEngine) Evaluate(ctx context.Context, candidate family.Tree, changes []Change) (Result, error) {
	var all Result
	if e == nil {
		return all, nil
	}
	for _, rule := range e.rules {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		res, err := rule.Evaluate(ctx, candidate, changes)
		if err != nil {
			return Result{}, fmt.Errorf("rule %s: %w", rule.Name(), err)
		}
		all.Merge(res)
	}
	return all, nil
}
