// Package rules provides the declarative rule set and the engine that turns
// per-participant aggregate statistics into one-time automatic questions.
package rules

import (
	"github.com/onnwee/mural/internal/canvas"
)

// Result is the tagged outcome of a rule predicate: either no match, or a
// match carrying named extraction parameters used to render the question
// text. The zero value is no match.
type Result struct {
	matched bool
	params  map[string]string
}

// NoMatch returns the non-matching Result.
func NoMatch() Result {
	return Result{}
}

// Match returns a matching Result carrying extraction parameters.
// The params map may be nil for rules with static question text.
func Match(params map[string]string) Result {
	return Result{matched: true, params: params}
}

// Matched reports whether the predicate matched.
func (r Result) Matched() bool {
	return r.matched
}

// Params returns the extraction parameters. Nil when not matched or when the
// rule carries no parameters.
func (r Result) Params() map[string]string {
	return r.params
}

// Rule is a pure, side-effect-free predicate over a participant's aggregate
// snapshot. Rules are static configuration, evaluated in declaration order;
// they are never created or destroyed at runtime.
type Rule struct {
	// ID uniquely identifies the rule and tags the questions it produces.
	ID string

	// Template is the question text. When Param is set, the matched
	// extraction value for that key is appended to the template.
	Template string

	// Param names the extraction key appended to the template, or "" for
	// rules with static question text.
	Param string

	// Test evaluates the predicate against a fresh aggregate snapshot.
	Test func(snap canvas.AggregateSnapshot) Result
}

// Render produces the question text for a matched result.
func (r Rule) Render(res Result) string {
	if r.Param == "" {
		return r.Template
	}
	return r.Template + res.Params()[r.Param]
}
