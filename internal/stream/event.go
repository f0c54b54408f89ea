// Package stream provides WebSocket event broadcasting for real-time canvas
// updates and the client-side reconciliation of those events.
package stream

import (
	"github.com/onnwee/mural/internal/canvas"
	"github.com/onnwee/mural/internal/question"
)

// Event types carried on the push channel. Broadcast events go to every
// subscriber; snapshot and all-questions replies are unicast.
const (
	EventPlacementCreated = "placement_created"
	EventPlacementDeleted = "placement_deleted"
	EventQuestionCreated  = "question_created"
	EventQuestionAnswered = "question_answered"
	EventSnapshot         = "snapshot"
	EventAllQuestions     = "all_questions"
)

// Event is the canonical, self-contained message pushed to subscribers.
//
// An event is never retracted or corrected after being sent: deleting an
// already-broadcast placement is a separate placement_deleted event carrying
// only the id, never a mutation of the original placement_created.
type Event struct {
	Type string `json:"type"`

	// Placement is set on placement_created.
	Placement *canvas.Placement `json:"placement,omitempty"`

	// PlacementID is set on placement_deleted.
	PlacementID string `json:"placement_id,omitempty"`

	// Question is set on question_created and question_answered.
	Question *question.Question `json:"question,omitempty"`

	// Placements is set on snapshot replies.
	Placements []*canvas.Placement `json:"placements,omitempty"`

	// Questions is set on all_questions replies.
	Questions []*question.Question `json:"questions,omitempty"`
}

// PlacementCreated builds the canonical event for a persisted placement.
// The record already carries its server-assigned id.
func PlacementCreated(p *canvas.Placement) *Event {
	return &Event{Type: EventPlacementCreated, Placement: p}
}

// PlacementDeleted builds the canonical event for a soft-deleted placement.
func PlacementDeleted(id string) *Event {
	return &Event{Type: EventPlacementDeleted, PlacementID: id}
}

// QuestionCreated builds the canonical event for a new question.
func QuestionCreated(q *question.Question) *Event {
	return &Event{Type: EventQuestionCreated, Question: q}
}

// QuestionAnswered builds the canonical event for an answered question.
func QuestionAnswered(q *question.Question) *Event {
	return &Event{Type: EventQuestionAnswered, Question: q}
}

// Snapshot builds the unicast reply carrying all currently-live placements.
func Snapshot(placements []*canvas.Placement) *Event {
	return &Event{Type: EventSnapshot, Placements: placements}
}

// AllQuestions builds the unicast reply carrying the full question list.
func AllQuestions(questions []*question.Question) *Event {
	return &Event{Type: EventAllQuestions, Questions: questions}
}
