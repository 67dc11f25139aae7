package repairs

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/busanokirby/jc-web-v2/internal/money"
	"github.com/busanokirby/jc-web-v2/internal/platform/httpx"
	"github.com/busanokirby/jc-web-v2/internal/shared"
)

// Handler exposes repair endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers repair routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listRepairs)
	r.Post("/", h.intake)
	r.Get("/{repairID}", h.getRepair)
	r.Put("/{repairID}/fees", h.updateFees)
	r.Post("/{repairID}/parts", h.addPart)
	r.Delete("/{repairID}/parts/{partID}", h.removePart)
	r.Put("/{repairID}/parts/{partID}/qty", h.updatePartQty)
	r.Put("/{repairID}/parts/{partID}/price", h.updatePartPrice)
	r.Post("/{repairID}/payments", h.addPayment)
	r.Post("/{repairID}/claim-credit", h.claimCredit)
	r.Post("/{repairID}/waive", h.waive)
	r.Post("/{repairID}/revert", h.revert)
	r.Post("/{repairID}/complete", h.complete)
	r.Post("/{repairID}/archive", h.archive)
	r.Delete("/{repairID}", h.deleteRepair)
}

type intakeRequest struct {
	TicketNo      string `json:"ticket_no" validate:"required"`
	CustomerID    int64  `json:"customer_id"`
	DeviceType    string `json:"device_type" validate:"required"`
	Problem       string `json:"problem"`
	DiagnosticFee string `json:"diagnostic_fee"`
	RepairCost    string `json:"repair_cost"`
	Deposit       string `json:"deposit"`
	Method        string `json:"method"`
	ActorID       int64  `json:"actor_id"`
}

type feesRequest struct {
	DiagnosticFee string `json:"diagnostic_fee" validate:"required"`
	RepairCost    string `json:"repair_cost" validate:"required"`
	ActorID       int64  `json:"actor_id"`
}

type partRequest struct {
	ProductID int64 `json:"product_id" validate:"required"`
	Qty       int64 `json:"qty" validate:"required,gt=0"`
	ActorID   int64 `json:"actor_id"`
}

type partQtyRequest struct {
	Qty     int64 `json:"qty" validate:"required,gt=0"`
	ActorID int64 `json:"actor_id"`
}

type partPriceRequest struct {
	UnitPrice string `json:"unit_price" validate:"required"`
	ActorID   int64  `json:"actor_id"`
}

type paymentRequest struct {
	Amount  string    `json:"amount" validate:"required"`
	Method  string    `json:"method" validate:"required"`
	Note    string    `json:"note"`
	PaidAt  time.Time `json:"paid_at"`
	ActorID int64     `json:"actor_id"`
}

type actorRequest struct {
	ActorID int64 `json:"actor_id"`
}

type deleteRequest struct {
	Reason  string `json:"reason" validate:"required"`
	ActorID int64  `json:"actor_id"`
}

func (h *Handler) intake(w http.ResponseWriter, r *http.Request) {
	var req intakeRequest
	if !h.decode(w, r, &req) {
		return
	}
	input := IntakeInput{
		TicketNo:   req.TicketNo,
		CustomerID: req.CustomerID,
		DeviceType: req.DeviceType,
		Problem:    req.Problem,
		Method:     req.Method,
		ActorID:    req.ActorID,
	}
	var err error
	if input.DiagnosticFee, err = parseAmount(req.DiagnosticFee); err != nil {
		httpx.RespondError(w, shared.ErrInvalidAmount)
		return
	}
	if input.RepairCost, err = parseAmount(req.RepairCost); err != nil {
		httpx.RespondError(w, shared.ErrInvalidAmount)
		return
	}
	if input.Deposit, err = parseAmount(req.Deposit); err != nil {
		httpx.RespondError(w, shared.ErrInvalidAmount)
		return
	}
	repair, excess, err := h.service.Intake(r.Context(), input)
	if err != nil {
		h.logger.Error("repair intake", slog.Any("error", err), slog.String("ticket_no", req.TicketNo))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, intakeResponse{Repair: repair, DepositExcess: excess})
}

type intakeResponse struct {
	Repair
	DepositExcess money.Money `json:"deposit_excess"`
}

func (h *Handler) updateFees(w http.ResponseWriter, r *http.Request) {
	repairID, ok := h.repairID(w, r)
	if !ok {
		return
	}
	var req feesRequest
	if !h.decode(w, r, &req) {
		return
	}
	fee, err := money.Parse(req.DiagnosticFee)
	if err != nil {
		httpx.RespondError(w, shared.ErrInvalidAmount)
		return
	}
	cost, err := money.Parse(req.RepairCost)
	if err != nil {
		httpx.RespondError(w, shared.ErrInvalidAmount)
		return
	}
	repair, err := h.service.UpdateFees(r.Context(), repairID, fee, cost, req.ActorID)
	if err != nil {
		h.logger.Error("update fees", slog.Any("error", err), slog.Int64("repair_id", repairID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, repair)
}

func (h *Handler) addPart(w http.ResponseWriter, r *http.Request) {
	repairID, ok := h.repairID(w, r)
	if !ok {
		return
	}
	var req partRequest
	if !h.decode(w, r, &req) {
		return
	}
	repair, err := h.service.AddPart(r.Context(), repairID, req.ProductID, req.Qty, req.ActorID)
	if err != nil {
		h.logger.Error("add part", slog.Any("error", err), slog.Int64("repair_id", repairID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, repair)
}

func (h *Handler) removePart(w http.ResponseWriter, r *http.Request) {
	repairID, ok := h.repairID(w, r)
	if !ok {
		return
	}
	partID, err := strconv.ParseInt(chi.URLParam(r, "partID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid part id")
		return
	}
	actorID, _ := strconv.ParseInt(r.URL.Query().Get("actor_id"), 10, 64)
	repair, err := h.service.RemovePart(r.Context(), repairID, partID, actorID)
	if err != nil {
		h.logger.Error("remove part", slog.Any("error", err), slog.Int64("repair_id", repairID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, repair)
}

func (h *Handler) updatePartQty(w http.ResponseWriter, r *http.Request) {
	repairID, ok := h.repairID(w, r)
	if !ok {
		return
	}
	partID, err := strconv.ParseInt(chi.URLParam(r, "partID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid part id")
		return
	}
	var req partQtyRequest
	if !h.decode(w, r, &req) {
		return
	}
	repair, err := h.service.UpdatePartQty(r.Context(), repairID, partID, req.Qty, req.ActorID)
	if err != nil {
		h.logger.Error("update part qty", slog.Any("error", err), slog.Int64("repair_id", repairID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, repair)
}

func (h *Handler) updatePartPrice(w http.ResponseWriter, r *http.Request) {
	repairID, ok := h.repairID(w, r)
	if !ok {
		return
	}
	partID, err := strconv.ParseInt(chi.URLParam(r, "partID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid part id")
		return
	}
	var req partPriceRequest
	if !h.decode(w, r, &req) {
		return
	}
	price, err := money.Parse(req.UnitPrice)
	if err != nil {
		httpx.RespondError(w, shared.ErrInvalidAmount)
		return
	}
	repair, err := h.service.UpdatePartPrice(r.Context(), repairID, partID, price, req.ActorID)
	if err != nil {
		h.logger.Error("update part price", slog.Any("error", err), slog.Int64("repair_id", repairID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, repair)
}

func (h *Handler) addPayment(w http.ResponseWriter, r *http.Request) {
	repairID, ok := h.repairID(w, r)
	if !ok {
		return
	}
	var req paymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	amount, err := money.Parse(req.Amount)
	if err != nil {
		httpx.RespondError(w, shared.ErrInvalidAmount)
		return
	}
	receipt, err := h.service.AddPayment(r.Context(), repairID, amount, req.Method, req.Note, req.PaidAt, req.ActorID)
	if err != nil {
		h.logger.Error("add repair payment", slog.Any("error", err), slog.Int64("repair_id", repairID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, receipt)
}

func (h *Handler) claimCredit(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, h.service.ClaimOnCredit)
}

func (h *Handler) waive(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, h.service.Waive)
}

func (h *Handler) revert(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, h.service.Revert)
}

func (h *Handler) archive(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, h.service.Archive)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	repairID, ok := h.repairID(w, r)
	if !ok {
		return
	}
	var req actorRequest
	if !h.decode(w, r, &req) {
		return
	}
	repair, err := h.service.Complete(r.Context(), repairID, time.Time{}, req.ActorID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, repair)
}

func (h *Handler) deleteRepair(w http.ResponseWriter, r *http.Request) {
	repairID, ok := h.repairID(w, r)
	if !ok {
		return
	}
	var req deleteRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.DeleteRepair(r.Context(), repairID, req.Reason, req.ActorID); err != nil {
		h.logger.Error("delete repair", slog.Any("error", err), slog.Int64("repair_id", repairID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) getRepair(w http.ResponseWriter, r *http.Request) {
	repairID, ok := h.repairID(w, r)
	if !ok {
		return
	}
	repair, err := h.service.GetRepair(r.Context(), repairID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, repair)
}

func (h *Handler) listRepairs(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Limit: 100}
	if v := r.URL.Query().Get("status"); v != "" {
		filter.Status = PaymentStatus(v)
	}
	if v := r.URL.Query().Get("archived"); v != "" {
		archived := v == "true"
		filter.Archived = &archived
	}
	if r.URL.Query().Get("on_credit") == "true" {
		filter.OnCredit = true
	}
	repairsList, err := h.service.ListRepairs(r.Context(), filter)
	if err != nil {
		h.logger.Error("list repairs", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, repairsList)
}

func (h *Handler) simpleTransition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, repairID int64, actorID int64) (Repair, error)) {
	repairID, ok := h.repairID(w, r)
	if !ok {
		return
	}
	var req actorRequest
	if !h.decode(w, r, &req) {
		return
	}
	repair, err := fn(r.Context(), repairID, req.ActorID)
	if err != nil {
		h.logger.Error("repair transition", slog.Any("error", err), slog.Int64("repair_id", repairID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, repair)
}

func (h *Handler) repairID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "repairID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid repair id")
		return 0, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func parseAmount(s string) (money.Money, error) {
	if s == "" {
		return money.Zero(), nil
	}
	return money.Parse(s)
}
