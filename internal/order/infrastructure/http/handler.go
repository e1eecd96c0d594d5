package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/storefleet/commerce-core/internal/order/application"
	"github.com/storefleet/commerce-core/internal/order/domain"
)

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("order-http"),
	}
}

// Routes mounts the order API. createMiddleware wraps POST /api/orders
// only; pass nil to skip (tests, or when redis is not configured).
func (h *Handler) Routes(createMiddleware func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	create := http.Handler(http.HandlerFunc(h.create))
	if createMiddleware != nil {
		create = createMiddleware(create)
	}
	r.Method(http.MethodPost, "/api/orders", create)
	r.Get("/api/orders/{id}", h.get)
	r.Get("/api/orders/user/{userId}", h.listByUser)
	r.Put("/api/orders/{id}/status", h.updateStatus)
	r.Post("/api/orders/{id}/cancel", h.cancel)
	return r
}

type lineRequest struct {
	ProductID      string `json:"productId"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
}

type createRequest struct {
	UserID          string        `json:"userId"`
	Lines           []lineRequest `json:"lines"`
	ShippingAddress string        `json:"shippingAddress"`
	Currency        string        `json:"currency"`
	PaymentMethod   string        `json:"paymentMethod"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type lineResponse struct {
	ProductID      string `json:"productId"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
	SubtotalCents  int64  `json:"subtotalCents"`
}

type orderResponse struct {
	ID               string         `json:"id"`
	UserID           string         `json:"userId"`
	Lines            []lineResponse `json:"lines"`
	TotalAmountCents int64          `json:"totalAmountCents"`
	Status           string         `json:"status"`
	ShippingAddress  string         `json:"shippingAddress"`
	CreatedAt        string         `json:"createdAt"`
	UpdatedAt        string         `json:"updatedAt"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "order.create")
	defer span.End()

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "invalid body")
		return
	}

	lines := make([]domain.Line, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = domain.Line{ProductID: l.ProductID, Quantity: l.Quantity, UnitPriceCents: l.UnitPriceCents}
	}
	o, err := h.service.CreateOrder(ctx, application.CreateRequest{
		UserID:          req.UserID,
		Lines:           lines,
		ShippingAddress: req.ShippingAddress,
		Currency:        req.Currency,
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	span.SetAttributes(attribute.String("order.id", o.ID))
	writeJSON(w, http.StatusCreated, toResponse(o))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(o))
}

func (h *Handler) listByUser(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListByUser(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toResponse(o))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "order.update_status")
	defer span.End()

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "invalid body")
		return
	}
	o, err := h.service.UpdateStatus(ctx, chi.URLParam(r, "id"), domain.Status(req.Status))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(o))
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "order.cancel")
	defer span.End()

	o, err := h.service.CancelOrder(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(o))
}

func toResponse(o domain.Order) orderResponse {
	lines := make([]lineResponse, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = lineResponse{
			ProductID:      l.ProductID,
			Quantity:       l.Quantity,
			UnitPriceCents: l.UnitPriceCents,
			SubtotalCents:  l.SubtotalCents,
		}
	}
	return orderResponse{
		ID:               o.ID,
		UserID:           o.UserID,
		Lines:            lines,
		TotalAmountCents: o.TotalAmountCents,
		Status:           string(o.Status),
		ShippingAddress:  o.ShippingAddress,
		CreatedAt:        o.CreatedAt.Format(timeLayout),
		UpdatedAt:        o.UpdatedAt.Format(timeLayout),
	}
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, application.ErrInsufficientStock):
		writeError(w, http.StatusConflict, "INSUFFICIENT_STOCK", err.Error())
	case errors.Is(err, application.ErrDuplicatePayment):
		writeError(w, http.StatusConflict, "DUPLICATE_PAYMENT", err.Error())
	case errors.Is(err, application.ErrPaymentDeclined):
		writeError(w, http.StatusConflict, "INVALID_STATE", err.Error())
	default:
		h.log.Error("order request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"error": msg, "code": code})
}
