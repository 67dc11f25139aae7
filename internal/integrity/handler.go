package integrity

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/busanokirby/jc-web-v2/internal/platform/httpx"
)

// Handler exposes the admin integrity endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers integrity routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/scan", h.scan)
	r.Post("/cleanup-orphans", h.cleanupOrphans)
}

func (h *Handler) scan(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Scan(r.Context())
	if err != nil {
		h.logger.Error("integrity scan", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

type cleanupRequest struct {
	ActorID int64 `json:"actor_id"`
}

func (h *Handler) cleanupOrphans(w http.ResponseWriter, r *http.Request) {
	var req cleanupRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	removed, err := h.service.CleanupOrphans(r.Context(), req.ActorID)
	if err != nil {
		h.logger.Error("cleanup orphans", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int64{"removed": removed})
}
