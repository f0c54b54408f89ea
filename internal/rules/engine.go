package rules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/onnwee/mural/internal/canvas"
	"github.com/onnwee/mural/internal/question"
)

// AggregateSource provides fresh per-participant aggregate snapshots.
// Implemented by the placement repositories.
type AggregateSource interface {
	Aggregates(ctx context.Context, owner string) (canvas.AggregateSnapshot, error)
}

// QuestionStore is the subset of the question repository the engine needs:
// the once-only guard and question creation.
type QuestionStore interface {
	ExistsForRule(ctx context.Context, ruleID, subject string) (bool, error)
	Create(ctx context.Context, q *question.Question) error
}

// Engine evaluates the rule set against a participant's aggregates after
// every accepted placement creation and emits at most one automatic question
// per (rule, participant) pair.
//
// Uniqueness is scoped to (rule, participant), matching the original guard:
// once the repetition rule has fired for one word, it never fires again for
// that participant even for a different word. The extraction value is
// rendered into the question text, so widening the scope later only needs
// the guard widened.
//
// Evaluations for the same owner are serialized through a per-owner mutex to
// close the guard-then-create race within this process. The cross-process
// race remains: the guard is a store existence check followed by a separate
// create, not a compare-and-create transaction.
type Engine struct {
	aggregates AggregateSource
	questions  QuestionStore
	rules      []Rule
	logger     *slog.Logger
	metrics    *Metrics

	mu     sync.Mutex
	owners map[string]*sync.Mutex
}

// NewEngine creates an Engine. The rules slice is copied so its declaration
// order cannot change after construction. A nil metrics disables counters.
func NewEngine(aggregates AggregateSource, questions QuestionStore, rules []Rule, logger *slog.Logger, metrics *Metrics) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	copied := make([]Rule, len(rules))
	copy(copied, rules)
	return &Engine{
		aggregates: aggregates,
		questions:  questions,
		rules:      copied,
		logger:     logger,
		metrics:    metrics,
		owners:     make(map[string]*sync.Mutex),
	}
}

// EvaluateOwner recomputes the owner's aggregate snapshot and runs every
// rule in declaration order. It returns the automatic questions created by
// this evaluation, in creation order, for the caller to broadcast.
//
// A failing rule (predicate panic or store error) is logged and skipped;
// it never blocks evaluation of subsequent rules.
func (e *Engine) EvaluateOwner(ctx context.Context, owner string) ([]*question.Question, error) {
	lock := e.ownerLock(owner)
	lock.Lock()
	defer lock.Unlock()

	snap, err := e.aggregates.Aggregates(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("compute aggregates for %s: %w", owner, err)
	}

	var created []*question.Question
	for _, rule := range e.rules {
		q, err := e.evaluateRule(ctx, rule, owner, snap)
		if err != nil {
			if e.metrics != nil {
				e.metrics.IncRuleErrors(rule.ID)
			}
			e.logger.ErrorContext(ctx, "rule evaluation failed",
				slog.String("rule_id", rule.ID),
				slog.String("owner", owner),
				slog.String("error", err.Error()))
			continue
		}
		if q != nil {
			created = append(created, q)
		}
	}
	return created, nil
}

// evaluateRule runs one rule against the snapshot. Returns the created
// question, or nil when the rule was guarded or did not match.
func (e *Engine) evaluateRule(ctx context.Context, rule Rule, owner string, snap canvas.AggregateSnapshot) (q *question.Question, err error) {
	// A panicking predicate counts as a failed rule, not a failed
	// evaluation pass.
	defer func() {
		if rec := recover(); rec != nil {
			q = nil
			err = fmt.Errorf("rule %s panicked: %v", rule.ID, rec)
		}
	}()

	exists, err := e.questions.ExistsForRule(ctx, rule.ID, owner)
	if err != nil {
		return nil, fmt.Errorf("existence guard: %w", err)
	}
	if exists {
		return nil, nil
	}

	res := rule.Test(snap)
	if !res.Matched() {
		return nil, nil
	}

	q = &question.Question{
		Target:    owner,
		Text:      rule.Render(res),
		Automatic: true,
		RuleID:    rule.ID,
		Subject:   owner,
	}
	if err := e.questions.Create(ctx, q); err != nil {
		if errors.Is(err, question.ErrDuplicateRuleQuestion) {
			// Another process fired this rule between the guard and the
			// create; the pair already has its question.
			return nil, nil
		}
		return nil, fmt.Errorf("create question: %w", err)
	}
	if e.metrics != nil {
		e.metrics.IncRulesFired(rule.ID)
	}
	e.logger.InfoContext(ctx, "automatic question created",
		slog.String("rule_id", rule.ID),
		slog.String("owner", owner),
		slog.String("question_id", q.ID))
	return q, nil
}

// ownerLock returns the mutex serializing evaluations for one owner.
func (e *Engine) ownerLock(owner string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.owners[owner]
	if !ok {
		lock = &sync.Mutex{}
		e.owners[owner] = lock
	}
	return lock
}
