package stock

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/busanokirby/jc-web-v2/internal/platform/httpx"
	"github.com/busanokirby/jc-web-v2/internal/shared"
)

// Handler exposes stock ledger endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	settings  shared.SettingsSource
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, settings shared.SettingsSource) *Handler {
	return &Handler{logger: logger, service: service, settings: settings, validator: validator.New()}
}

// MountRoutes registers stock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/movements", h.listMovements)
	r.Post("/in", h.stockIn)
	r.Post("/out", h.stockOut)
	r.Post("/adjust", h.adjustStock)
}

type stockInRequest struct {
	ProductID int64  `json:"product_id" validate:"required"`
	Qty       int64  `json:"qty" validate:"required,gt=0"`
	Notes     string `json:"notes"`
	ActorID   int64  `json:"actor_id"`
}

type adjustRequest struct {
	ProductID int64  `json:"product_id" validate:"required"`
	Delta     int64  `json:"delta" validate:"required"`
	Notes     string `json:"notes"`
	ActorID   int64  `json:"actor_id"`
}

func (h *Handler) allowEdit(ctx context.Context) bool {
	if h.settings == nil {
		return true
	}
	snap, err := h.settings.Snapshot(ctx)
	if err != nil {
		h.logger.Warn("load settings snapshot", slog.Any("error", err))
		return true
	}
	return snap.InventoryEditBySales || snap.POSEnabled
}

func (h *Handler) stockIn(w http.ResponseWriter, r *http.Request) {
	var req stockInRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	m, err := h.service.StockIn(r.Context(), req.ProductID, req.Qty, req.Notes, req.ActorID)
	if err != nil {
		h.logger.Error("stock in", slog.Any("error", err), slog.Int64("product_id", req.ProductID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, m)
}

func (h *Handler) stockOut(w http.ResponseWriter, r *http.Request) {
	var req stockInRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	m, err := h.service.StockOut(r.Context(), req.ProductID, req.Qty, req.Notes, req.ActorID)
	if err != nil {
		h.logger.Error("stock out", slog.Any("error", err), slog.Int64("product_id", req.ProductID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, m)
}

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	if !h.allowEdit(r.Context()) {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "inventory editing is disabled")
		return
	}
	var req adjustRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	m, err := h.service.AdjustStock(r.Context(), req.ProductID, req.Delta, req.Notes, req.ActorID)
	if err != nil {
		h.logger.Error("adjust stock", slog.Any("error", err), slog.Int64("product_id", req.ProductID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, m)
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	var filter MovementFilter
	if v := r.URL.Query().Get("product_id"); v != "" {
		filter.ProductID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := r.URL.Query().Get("type"); v != "" {
		filter.Type = MovementType(v)
	}
	filter.Limit = 100
	movements, err := h.service.GetMovements(r.Context(), filter)
	if err != nil {
		h.logger.Error("list movements", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, movements)
}
