package sales

import (
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

// Handler exposes sale endpoints.
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

// MountRoutes registers sale routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listSales)
	r.Post("/checkout", h.checkout)
	r.Get("/{saleID}", h.getSale)
	r.Post("/{saleID}/payments", h.addPayment)
	r.Post("/{saleID}/void", h.voidSale)
}

type checkoutItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required"`
	Qty       int64 `json:"qty" validate:"required,gt=0"`
}

type checkoutRequest struct {
	InvoiceNo     string                `json:"invoice_no" validate:"required"`
	CustomerID    int64                 `json:"customer_id"`
	Items         []checkoutItemRequest `json:"items" validate:"required,min=1,dive"`
	Discount      string                `json:"discount"`
	Tax           string                `json:"tax"`
	AmountPaid    string                `json:"amount_paid"`
	Method        string                `json:"method"`
	PaidAt        time.Time             `json:"paid_at"`
	ClaimOnCredit bool                  `json:"claim_on_credit"`
	ActorID       int64                 `json:"actor_id"`
}

type paymentRequest struct {
	Amount  string    `json:"amount" validate:"required"`
	Method  string    `json:"method" validate:"required"`
	Note    string    `json:"note"`
	PaidAt  time.Time `json:"paid_at"`
	ActorID int64     `json:"actor_id"`
}

type voidRequest struct {
	Reason  string `json:"reason" validate:"required"`
	ActorID int64  `json:"actor_id"`
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	if h.settings != nil {
		snap, err := h.settings.Snapshot(r.Context())
		if err == nil && !snap.POSEnabled {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "point of sale is disabled")
			return
		}
	}
	var req checkoutRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	input := CheckoutInput{
		InvoiceNo:     req.InvoiceNo,
		CustomerID:    req.CustomerID,
		Method:        req.Method,
		PaidAt:        req.PaidAt,
		ClaimOnCredit: req.ClaimOnCredit,
		ActorID:       req.ActorID,
	}
	var err error
	if input.Discount, err = parseAmount(req.Discount); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid discount")
		return
	}
	if input.Tax, err = parseAmount(req.Tax); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid tax")
		return
	}
	if input.AmountPaid, err = parseAmount(req.AmountPaid); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid amount_paid")
		return
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, CheckoutItem{ProductID: item.ProductID, Qty: item.Qty})
	}

	sale, err := h.service.Checkout(r.Context(), input)
	if err != nil {
		h.logger.Error("checkout", slog.Any("error", err), slog.String("invoice_no", req.InvoiceNo))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sale)
}

func (h *Handler) addPayment(w http.ResponseWriter, r *http.Request) {
	saleID, err := strconv.ParseInt(chi.URLParam(r, "saleID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid sale id")
		return
	}
	var req paymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	amount, err := money.Parse(req.Amount)
	if err != nil {
		httpx.RespondError(w, shared.ErrInvalidAmount)
		return
	}
	receipt, err := h.service.AddPayment(r.Context(), saleID, amount, req.Method, req.Note, req.PaidAt, req.ActorID)
	if err != nil {
		h.logger.Error("add sale payment", slog.Any("error", err), slog.Int64("sale_id", saleID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, receipt)
}

func (h *Handler) voidSale(w http.ResponseWriter, r *http.Request) {
	saleID, err := strconv.ParseInt(chi.URLParam(r, "saleID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid sale id")
		return
	}
	var req voidRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.VoidSale(r.Context(), saleID, req.Reason, req.ActorID); err != nil {
		h.logger.Error("void sale", slog.Any("error", err), slog.Int64("sale_id", saleID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": string(StatusVoid)})
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	saleID, err := strconv.ParseInt(chi.URLParam(r, "saleID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid sale id")
		return
	}
	sale, err := h.service.GetSale(r.Context(), saleID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Limit: 100}
	if v := r.URL.Query().Get("status"); v != "" {
		filter.Status = SaleStatus(v)
	}
	if v := r.URL.Query().Get("from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			filter.From = t
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			filter.To = t.Add(24*time.Hour - time.Second)
		}
	}
	salesList, err := h.service.ListSales(r.Context(), filter)
	if err != nil {
		h.logger.Error("list sales", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, salesList)
}

func parseAmount(s string) (money.Money, error) {
	if s == "" {
		return money.Zero(), nil
	}
	return money.Parse(s)
}
