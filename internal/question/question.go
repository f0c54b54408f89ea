// Package question provides models and repositories for prompts shown to
// participants, both operator-created and rule-generated.
package question

import (
	"errors"
	"time"
)

// TargetAll addresses a question to every participant.
const TargetAll = "all"

// DeclinedAnswer is the sentinel answer recorded when a participant
// declines a question rather than answering it.
const DeclinedAnswer = "__declined__"

// Common errors for question operations.
var (
	// ErrQuestionNotFound is returned when a question id does not exist.
	ErrQuestionNotFound = errors.New("question not found")

	// ErrAlreadyAnswered is returned when answering an answered question.
	// Answered transitions false -> true exactly once.
	ErrAlreadyAnswered = errors.New("question already answered")

	// ErrDuplicateRuleQuestion is returned when creating an automatic
	// question whose (RuleID, Subject) pair already exists. Surfaced by the
	// Postgres repository's partial unique index when two processes race
	// past the existence guard.
	ErrDuplicateRuleQuestion = errors.New("automatic question already exists for rule and subject")
)

// Question represents a prompt shown to one participant or to all.
//
// RuleID and Subject are set only on automatic questions; at most one
// question may ever exist for a given (RuleID, Subject) pair regardless of
// how often the rule's trigger condition recurs.
type Question struct {
	ID         string     `json:"id"`
	Target     string     `json:"target"`
	Text       string     `json:"text"`
	Answered   bool       `json:"answered"`
	Answer     string     `json:"answer,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	AnsweredAt *time.Time `json:"answered_at,omitempty"`
	Automatic  bool       `json:"automatic"`
	RuleID     string     `json:"rule_id,omitempty"`
	Subject    string     `json:"subject,omitempty"`
}

// Declined reports whether the recorded answer is the declined sentinel.
func (q *Question) Declined() bool {
	return q.Answered && q.Answer == DeclinedAnswer
}

// TargetedAt reports whether the question should be shown to the
// participant, either directly or via the "all" target.
func (q *Question) TargetedAt(participant string) bool {
	return q.Target == participant || q.Target == TargetAll
}
