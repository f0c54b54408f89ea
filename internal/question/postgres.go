package question

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/onnwee/mural/internal/tracing"
)

// PostgresQuestionRepository implements QuestionRepository using PostgreSQL.
type PostgresQuestionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresQuestionRepository creates a new PostgresQuestionRepository.
func NewPostgresQuestionRepository(db *sql.DB, logger *slog.Logger) *PostgresQuestionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresQuestionRepository{db: db, logger: logger}
}

// Create persists a new question, assigning id and timestamp.
func (r *PostgresQuestionRepository) Create(ctx context.Context, q *Question) (err error) {
	ctx, endSpan := tracing.StartStoreSpan(ctx, "questions", tracing.StoreOperationInsert)
	defer func() { endSpan(err) }()

	q.ID = uuid.New().String()
	q.CreatedAt = time.Now().UTC()
	q.Answered = false
	q.Answer = ""
	q.AnsweredAt = nil

	const query = `
		INSERT INTO questions (id, target, text, answered, answer, created_at, automatic, rule_id, subject)
		VALUES ($1, $2, $3, false, '', $4, $5, $6, $7)`
	if _, err = r.db.ExecContext(ctx, query,
		q.ID, q.Target, q.Text, q.CreatedAt, q.Automatic, q.RuleID, q.Subject,
	); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			// The partial unique index on (rule_id, subject) caught a
			// cross-process race past the existence guard.
			return ErrDuplicateRuleQuestion
		}
		r.logger.Error("failed to insert question",
			slog.String("error", err.Error()),
			slog.String("target", q.Target))
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

// Answer records the answer for a question, exactly once. The answered flag
// is flipped in a single guarded UPDATE so two concurrent answers cannot
// both succeed.
func (r *PostgresQuestionRepository) Answer(ctx context.Context, id, answer string) (_ *Question, err error) {
	ctx, endSpan := tracing.StartStoreSpan(ctx, "questions", tracing.StoreOperationUpdate)
	defer func() { endSpan(err) }()

	const query = `
		UPDATE questions
		SET answered = true, answer = $2, answered_at = $3
		WHERE id = $1 AND answered = false
		RETURNING id, target, text, answered, answer, created_at, answered_at, automatic, rule_id, subject`
	answeredAt := time.Now().UTC()

	q, err := r.scanOne(r.db.QueryRowContext(ctx, query, id, answer, answeredAt))
	if err == nil {
		return q, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("answer question: %w", err)
	}

	// Zero rows: either unknown id or already answered.
	var exists bool
	if err = r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM questions WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check question existence: %w", err)
	}
	if !exists {
		return nil, ErrQuestionNotFound
	}
	return nil, ErrAlreadyAnswered
}

// ExistsForRule reports whether an automatic question exists for the pair.
func (r *PostgresQuestionRepository) ExistsForRule(ctx context.Context, ruleID, subject string) (_ bool, err error) {
	ctx, endSpan := tracing.StartStoreSpan(ctx, "questions", tracing.StoreOperationQuery)
	defer func() { endSpan(err) }()

	const query = `
		SELECT EXISTS (
			SELECT 1 FROM questions
			WHERE automatic = true AND rule_id = $1 AND subject = $2
		)`
	var exists bool
	if err = r.db.QueryRowContext(ctx, query, ruleID, subject).Scan(&exists); err != nil {
		return false, fmt.Errorf("check rule question existence: %w", err)
	}
	return exists, nil
}

// Pending retrieves the oldest unanswered question for the participant.
func (r *PostgresQuestionRepository) Pending(ctx context.Context, participant string) (_ *Question, err error) {
	ctx, endSpan := tracing.StartStoreSpan(ctx, "questions", tracing.StoreOperationQuery)
	defer func() { endSpan(err) }()

	const query = `
		SELECT id, target, text, answered, answer, created_at, answered_at, automatic, rule_id, subject
		FROM questions
		WHERE answered = false AND target IN ($1, $2)
		ORDER BY created_at ASC, id ASC
		LIMIT 1`
	q, err := r.scanOne(r.db.QueryRowContext(ctx, query, participant, TargetAll))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query pending question: %w", err)
	}
	return q, nil
}

// ListAll retrieves every question, newest first.
func (r *PostgresQuestionRepository) ListAll(ctx context.Context) (_ []*Question, err error) {
	ctx, endSpan := tracing.StartStoreSpan(ctx, "questions", tracing.StoreOperationQuery)
	defer func() { endSpan(err) }()

	const query = `
		SELECT id, target, text, answered, answer, created_at, answered_at, automatic, rule_id, subject
		FROM questions
		ORDER BY created_at DESC, id ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var out []*Question
	for rows.Next() {
		q, scanErr := r.scanOne(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan question: %w", scanErr)
		}
		out = append(out, q)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return out, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanOne.
type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostgresQuestionRepository) scanOne(row rowScanner) (*Question, error) {
	var (
		q          Question
		answeredAt sql.NullTime
		ruleID     sql.NullString
		subject    sql.NullString
	)
	if err := row.Scan(&q.ID, &q.Target, &q.Text, &q.Answered, &q.Answer,
		&q.CreatedAt, &answeredAt, &q.Automatic, &ruleID, &subject); err != nil {
		return nil, err
	}
	if answeredAt.Valid {
		t := answeredAt.Time
		q.AnsweredAt = &t
	}
	q.RuleID = ruleID.String
	q.Subject = subject.String
	return &q, nil
}
