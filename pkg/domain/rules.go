package domain

import (
	"context"
	"fmt"
	"slices"
)

// Severity grades a rule finding.
type Severity string

// Severities. Only SeverityBlock rolls an edit back.
const (
	SeverityBlock Severity = "block"
	SeverityWarn  Severity = "warn"
	SeverityLog   Severity = "log"
)

// Action is the kind of edit a Change records.
type Action string

// Change actions.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Change names one object touched by an edit, keyed the way it appears in
// the document (DSM name, sensor id, variable name).
type Change struct {
	Entity EntityType
	Action Action
	Key    string
}

// Violation is one finding of a rule against a site.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result collects the findings of every rule run after one edit.
type Result struct {
	Violations []Violation
}

// Merge appends the findings of other.
func (r *Result) Merge(other Result) {
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking reports whether any finding must roll the edit back.
func (r Result) HasBlocking() bool {
	return slices.ContainsFunc(r.Violations, func(v Violation) bool {
		return v.Severity == SeverityBlock
	})
}

// RuleView is the site a rule inspects. Rules must not mutate it.
type RuleView interface {
	Site() *Site
}

// Rule is a structural check over a whole site, run after the tentative
// edit has been applied to both trees.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error)
}

// RulesEngine runs rules in registration order.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine returns an engine without rules.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// Register adds rule after the ones already registered.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Rules lists rule names in evaluation order.
func (e *RulesEngine) Rules() []string {
	names := make([]string, len(e.rules))
	for i, r := range e.rules {
		names[i] = r.Name()
	}
	return names
}

// Evaluate runs every rule against the site of view. The first rule error
// aborts the run; the edit is then treated as failed.
func (e *RulesEngine) Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error) {
	var all Result
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, view, changes)
		if err != nil {
			return Result{}, fmt.Errorf("rule %s: %w", rule.Name(), err)
		}
		all.Merge(res)
	}
	return all, nil
}
