package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/onnwee/mural/internal/canvas"
	"github.com/onnwee/mural/internal/middleware"
)

// HeatmapHandlers holds dependencies for the heatmap endpoint.
type HeatmapHandlers struct {
	placements canvas.PlacementRepository
	logger     *slog.Logger
}

// NewHeatmapHandlers creates a new HeatmapHandlers instance.
func NewHeatmapHandlers(placements canvas.PlacementRepository, logger *slog.Logger) *HeatmapHandlers {
	return &HeatmapHandlers{
		placements: placements,
		logger:     logger,
	}
}

// Heatmap handles GET /api/heatmap[?participant=<id>].
// Returns the sparse cell list; only occupied cells appear. Without a
// participant the heatmap covers every participant's live placements.
func (h *HeatmapHandlers) Heatmap(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	participant := strings.TrimSpace(r.URL.Query().Get("participant"))

	cells, err := h.placements.Heatmap(ctx, participant)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to build heatmap",
			"error", err,
			"participant", participant,
		)
		ctx := middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to build heatmap")
		return
	}
	if cells == nil {
		cells = []canvas.HeatmapCell{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(cells); err != nil {
		h.logger.ErrorContext(ctx, "failed to encode heatmap response", "error", err)
	}
}
