// Package api provides HTTP handlers for canvas WebSocket sessions.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/onnwee/mural/internal/canvas"
	"github.com/onnwee/mural/internal/middleware"
	"github.com/onnwee/mural/internal/question"
	"github.com/onnwee/mural/internal/rules"
	"github.com/onnwee/mural/internal/stream"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict to CORS_ALLOWED_ORIGINS once the frontend origin is fixed
		return true
	},
}

// clientMessage is the envelope for all client-to-server push-channel messages.
// Fields beyond Type are populated per message type; unknown fields are ignored.
type clientMessage struct {
	Type string `json:"type"`

	// create_placement
	Label string  `json:"label,omitempty"`
	Icon  string  `json:"icon,omitempty"`
	X     float64 `json:"x,omitempty"`
	Y     float64 `json:"y,omitempty"`

	// create_placement, delete_placement
	Owner string `json:"owner,omitempty"`

	// create_question
	Target string `json:"target,omitempty"`
	Text   string `json:"text,omitempty"`

	// answer_question
	ID       string `json:"id,omitempty"`
	Answer   string `json:"answer,omitempty"`
	Declined bool   `json:"declined,omitempty"`
}

// Client message types.
const (
	msgRequestSnapshot     = "request_snapshot"
	msgCreatePlacement     = "create_placement"
	msgDeletePlacement     = "delete_placement"
	msgRequestAllQuestions = "request_all_questions"
	msgCreateQuestion      = "create_question"
	msgAnswerQuestion      = "answer_question"
)

// CanvasWSHandlers holds dependencies for the canvas WebSocket endpoint.
type CanvasWSHandlers struct {
	placements  canvas.PlacementRepository
	questions   question.QuestionRepository
	resolver    *canvas.Resolver
	engine      *rules.Engine
	broadcaster *stream.Broadcaster
	logger      *slog.Logger
	metrics     *canvas.Metrics
}

// NewCanvasWSHandlers creates a new CanvasWSHandlers instance.
// A nil metrics disables counters.
func NewCanvasWSHandlers(
	placements canvas.PlacementRepository,
	questions question.QuestionRepository,
	resolver *canvas.Resolver,
	engine *rules.Engine,
	broadcaster *stream.Broadcaster,
	logger *slog.Logger,
	metrics *canvas.Metrics,
) *CanvasWSHandlers {
	return &CanvasWSHandlers{
		placements:  placements,
		questions:   questions,
		resolver:    resolver,
		engine:      engine,
		broadcaster: broadcaster,
		logger:      logger,
		metrics:     metrics,
	}
}

// HandleCanvas handles WebSocket connections for real-time canvas sessions.
// GET /ws/canvas?participant=<id>
//
// Failures while handling a push-channel message are logged and drop only the
// triggering message; the connection stays open.
func (h *CanvasWSHandlers) HandleCanvas(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	participant := strings.TrimSpace(r.URL.Query().Get("participant"))
	if participant == "" {
		ctx := middleware.SetErrorCode(ctx, ErrCodeMissingParticipant)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeMissingParticipant, "participant query parameter is required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to upgrade websocket connection",
			"error", err,
			"participant", participant,
		)
		return
	}

	sub := h.broadcaster.Subscribe(conn)

	requestID := middleware.GetRequestID(ctx)
	h.logger.InfoContext(ctx, "canvas session started",
		"participant", participant,
		"request_id", requestID,
	)

	defer func() {
		h.broadcaster.Unsubscribe(sub)
		conn.Close()
		h.logger.InfoContext(ctx, "canvas session ended",
			"participant", participant,
			"request_id", requestID,
		)
	}()

	// One reader goroutine per connection: messages from a single client are
	// handled strictly in arrival order.
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.WarnContext(ctx, "websocket connection closed unexpectedly",
					"error", err,
					"participant", participant,
				)
			}
			break
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.WarnContext(ctx, "dropping malformed canvas message",
				"error", err,
				"participant", participant,
			)
			continue
		}

		h.handleMessage(ctx, sub, participant, &msg)
	}
}

// handleMessage dispatches one client message. Handler errors are logged and
// the message is dropped; the session continues.
func (h *CanvasWSHandlers) handleMessage(ctx context.Context, sub *stream.Subscriber, participant string, msg *clientMessage) {
	var err error
	switch msg.Type {
	case msgRequestSnapshot:
		err = h.sendSnapshot(ctx, sub)
	case msgCreatePlacement:
		err = h.createPlacement(ctx, participant, msg)
	case msgDeletePlacement:
		err = h.deletePlacement(ctx, participant, msg)
	case msgRequestAllQuestions:
		err = h.sendAllQuestions(ctx, sub)
	case msgCreateQuestion:
		err = h.createQuestion(ctx, msg)
	case msgAnswerQuestion:
		err = h.answerQuestion(ctx, msg)
	default:
		h.logger.WarnContext(ctx, "dropping canvas message of unknown type",
			"type", msg.Type,
			"participant", participant,
		)
		return
	}

	if err != nil {
		h.logger.ErrorContext(ctx, "failed to handle canvas message",
			"error", err,
			"type", msg.Type,
			"participant", participant,
		)
	}
}

// sendSnapshot unicasts the full live surface to one subscriber.
func (h *CanvasWSHandlers) sendSnapshot(ctx context.Context, sub *stream.Subscriber) error {
	placements, err := h.placements.ListLive(ctx)
	if err != nil {
		return err
	}
	return sub.SendEvent(stream.Snapshot(placements))
}

// createPlacement persists a new placement, broadcasts it, and runs the rule
// engine for the owning participant. Questions the engine fires are broadcast
// after the placement event so clients always see cause before effect.
func (h *CanvasWSHandlers) createPlacement(ctx context.Context, participant string, msg *clientMessage) error {
	owner := msg.Owner
	if owner == "" {
		owner = participant
	}

	p := &canvas.Placement{
		Label: msg.Label,
		Icon:  msg.Icon,
		X:     msg.X,
		Y:     msg.Y,
		Owner: owner,
	}
	if err := h.placements.Create(ctx, p); err != nil {
		return err
	}
	if h.metrics != nil {
		h.metrics.IncPlacementsCreated()
	}

	h.broadcaster.Broadcast(stream.PlacementCreated(p))

	created, err := h.engine.EvaluateOwner(ctx, owner)
	if err != nil {
		// The placement is already persisted and broadcast; rule failures
		// must not undo that.
		h.logger.ErrorContext(ctx, "rule evaluation failed",
			"error", err,
			"owner", owner,
		)
	}
	for _, q := range created {
		h.broadcaster.Broadcast(stream.QuestionCreated(q))
	}
	return nil
}

// deletePlacement resolves the gesture point to the owner's nearest live
// placement and soft-deletes it. A gesture that resolves to nothing is
// silently dropped.
func (h *CanvasWSHandlers) deletePlacement(ctx context.Context, participant string, msg *clientMessage) error {
	owner := msg.Owner
	if owner == "" {
		owner = participant
	}

	target, err := h.resolver.Resolve(ctx, owner, msg.X, msg.Y)
	if err != nil {
		return err
	}
	if target == nil {
		if h.metrics != nil {
			h.metrics.IncDeleteResolutionMiss()
		}
		h.logger.DebugContext(ctx, "delete gesture resolved to no placement",
			"owner", owner,
			"x", msg.X,
			"y", msg.Y,
		)
		return nil
	}

	if err := h.placements.SoftDelete(ctx, target.ID); err != nil {
		return err
	}
	if h.metrics != nil {
		h.metrics.IncPlacementsDeleted()
	}

	h.broadcaster.Broadcast(stream.PlacementDeleted(target.ID))
	return nil
}

// sendAllQuestions unicasts the full question list to one subscriber.
func (h *CanvasWSHandlers) sendAllQuestions(ctx context.Context, sub *stream.Subscriber) error {
	questions, err := h.questions.ListAll(ctx)
	if err != nil {
		return err
	}
	return sub.SendEvent(stream.AllQuestions(questions))
}

// createQuestion persists a manual question and broadcasts it. Questions
// without text are dropped; the push channel carries no status codes.
func (h *CanvasWSHandlers) createQuestion(ctx context.Context, msg *clientMessage) error {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		h.logger.WarnContext(ctx, "dropping question without text")
		return nil
	}

	target := msg.Target
	if target == "" {
		target = question.TargetAll
	}

	q := &question.Question{
		Target: target,
		Text:   text,
	}
	if err := h.questions.Create(ctx, q); err != nil {
		return err
	}

	h.broadcaster.Broadcast(stream.QuestionCreated(q))
	return nil
}

// answerQuestion records an answer (or decline) and broadcasts the answered
// question. Answering an already-answered question is logged and dropped.
func (h *CanvasWSHandlers) answerQuestion(ctx context.Context, msg *clientMessage) error {
	answer := msg.Answer
	if msg.Declined {
		answer = question.DeclinedAnswer
	}

	q, err := h.questions.Answer(ctx, msg.ID, answer)
	if err != nil {
		return err
	}

	h.broadcaster.Broadcast(stream.QuestionAnswered(q))
	return nil
}
