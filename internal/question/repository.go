package question

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// QuestionRepository defines the interface for question data operations.
type QuestionRepository interface {
	// Create persists a new question, assigning its id and creation
	// timestamp.
	Create(ctx context.Context, q *Question) error

	// Answer records the answer for a question, exactly once.
	// Returns ErrQuestionNotFound for an unknown id and ErrAlreadyAnswered
	// when the question was answered before.
	Answer(ctx context.Context, id, answer string) (*Question, error)

	// ExistsForRule reports whether an automatic question already exists
	// for the (ruleID, subject) pair. This is the rule engine's once-only
	// guard; it consults the store, not an in-memory cache, so it survives
	// process restarts.
	ExistsForRule(ctx context.Context, ruleID, subject string) (bool, error)

	// Pending retrieves the oldest unanswered question targeted at the
	// participant or at all participants, or nil when there is none.
	Pending(ctx context.Context, participant string) (*Question, error)

	// ListAll retrieves every question, newest first.
	ListAll(ctx context.Context) ([]*Question, error)
}

// InMemoryQuestionRepository is an in-memory implementation of
// QuestionRepository. Thread-safe via RWMutex. Used for testing and
// development.
type InMemoryQuestionRepository struct {
	mu        sync.RWMutex
	questions map[string]*Question
	now       func() time.Time
}

// NewInMemoryQuestionRepository creates a new in-memory question repository.
func NewInMemoryQuestionRepository() *InMemoryQuestionRepository {
	return &InMemoryQuestionRepository{
		questions: make(map[string]*Question),
		now:       time.Now,
	}
}

// Create persists a new question, assigning id and timestamp.
func (r *InMemoryQuestionRepository) Create(ctx context.Context, q *Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	q.ID = uuid.New().String()
	q.CreatedAt = r.now().UTC()
	q.Answered = false
	q.Answer = ""
	q.AnsweredAt = nil

	stored := *q
	r.questions[stored.ID] = &stored
	return nil
}

// Answer records the answer for a question, exactly once.
func (r *InMemoryQuestionRepository) Answer(ctx context.Context, id, answer string) (*Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	q, ok := r.questions[id]
	if !ok {
		return nil, ErrQuestionNotFound
	}
	if q.Answered {
		return nil, ErrAlreadyAnswered
	}
	answeredAt := r.now().UTC()
	q.Answered = true
	q.Answer = answer
	q.AnsweredAt = &answeredAt

	copied := *q
	return &copied, nil
}

// ExistsForRule reports whether an automatic question exists for the pair.
func (r *InMemoryQuestionRepository) ExistsForRule(ctx context.Context, ruleID, subject string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, q := range r.questions {
		if q.Automatic && q.RuleID == ruleID && q.Subject == subject {
			return true, nil
		}
	}
	return false, nil
}

// Pending retrieves the oldest unanswered question for the participant.
func (r *InMemoryQuestionRepository) Pending(ctx context.Context, participant string) (*Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var oldest *Question
	for _, q := range r.questions {
		if q.Answered || !q.TargetedAt(participant) {
			continue
		}
		if oldest == nil || q.CreatedAt.Before(oldest.CreatedAt) ||
			(q.CreatedAt.Equal(oldest.CreatedAt) && q.ID < oldest.ID) {
			oldest = q
		}
	}
	if oldest == nil {
		return nil, nil
	}
	copied := *oldest
	return &copied, nil
}

// ListAll retrieves every question, newest first.
func (r *InMemoryQuestionRepository) ListAll(ctx context.Context) ([]*Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Question, 0, len(r.questions))
	for _, q := range r.questions {
		copied := *q
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
