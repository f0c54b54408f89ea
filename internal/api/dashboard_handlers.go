package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/onnwee/mural/internal/canvas"
	"github.com/onnwee/mural/internal/middleware"
)

// DashboardHandlers holds dependencies for the analytics dashboard endpoint.
type DashboardHandlers struct {
	placements canvas.PlacementRepository
	logger     *slog.Logger
}

// NewDashboardHandlers creates a new DashboardHandlers instance.
func NewDashboardHandlers(placements canvas.PlacementRepository, logger *slog.Logger) *DashboardHandlers {
	return &DashboardHandlers{
		placements: placements,
		logger:     logger,
	}
}

// Dashboard handles GET /api/dashboard.
// Returns aggregate statistics over the trailing seven-day window.
func (h *DashboardHandlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	stats, err := h.placements.DashboardStats(ctx, canvas.DashboardWindow)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to compute dashboard stats", "error", err)
		ctx := middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to compute dashboard stats")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		h.logger.ErrorContext(ctx, "failed to encode dashboard response", "error", err)
	}
}
