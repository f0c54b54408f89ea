package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/onnwee/mural/internal/middleware"
	"github.com/onnwee/mural/internal/question"
	"github.com/onnwee/mural/internal/stream"
)

// QuestionHandlers holds dependencies for question HTTP endpoints.
type QuestionHandlers struct {
	questions   question.QuestionRepository
	broadcaster *stream.Broadcaster
	logger      *slog.Logger
}

// NewQuestionHandlers creates a new QuestionHandlers instance.
func NewQuestionHandlers(questions question.QuestionRepository, broadcaster *stream.Broadcaster, logger *slog.Logger) *QuestionHandlers {
	return &QuestionHandlers{
		questions:   questions,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// createQuestionRequest is the request body for POST /api/questions.
type createQuestionRequest struct {
	Target string `json:"target"`
	Text   string `json:"text"`
}

// CreateQuestion handles POST /api/questions.
// Creates a manual question, broadcasts it to connected canvas sessions, and
// returns the persisted record.
func (h *QuestionHandlers) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		ctx := middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	var req createQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON body")
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		ctx := middleware.SetErrorCode(ctx, ErrCodeMissingText)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeMissingText, "Question text is required")
		return
	}

	target := req.Target
	if target == "" {
		target = question.TargetAll
	}

	q := &question.Question{
		Target: target,
		Text:   text,
	}
	if err := h.questions.Create(ctx, q); err != nil {
		h.logger.ErrorContext(ctx, "failed to create question", "error", err)
		ctx := middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to create question")
		return
	}

	h.broadcaster.Broadcast(stream.QuestionCreated(q))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(q); err != nil {
		h.logger.ErrorContext(ctx, "failed to encode question response", "error", err)
	}
}

// PendingQuestion handles GET /api/questions/pending?participant=<id>.
// Returns the oldest unanswered question targeted at the participant (directly
// or via "all"), or a JSON null when none is pending.
func (h *QuestionHandlers) PendingQuestion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	participant := strings.TrimSpace(r.URL.Query().Get("participant"))
	if participant == "" {
		ctx := middleware.SetErrorCode(ctx, ErrCodeMissingParticipant)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeMissingParticipant, "participant query parameter is required")
		return
	}

	q, err := h.questions.Pending(ctx, participant)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load pending question",
			"error", err,
			"participant", participant,
		)
		ctx := middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to load pending question")
		return
	}

	// q may be nil; encoding nil yields the JSON null the client polls for.
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(q); err != nil {
		h.logger.ErrorContext(ctx, "failed to encode pending question response", "error", err)
	}
}

// ListQuestions handles GET /api/questions.
// Returns all questions, newest first.
func (h *QuestionHandlers) ListQuestions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	questions, err := h.questions.ListAll(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list questions", "error", err)
		ctx := middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list questions")
		return
	}
	if questions == nil {
		questions = []*question.Question{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(questions); err != nil {
		h.logger.ErrorContext(ctx, "failed to encode questions response", "error", err)
	}
}
