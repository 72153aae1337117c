package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/tabletap/tabletap/internal/payment/application"
	"github.com/tabletap/tabletap/internal/payment/domain"
	"github.com/tabletap/tabletap/pkg/apperr"
	"github.com/tabletap/tabletap/pkg/auth"
	"github.com/tabletap/tabletap/pkg/httpx"
)

type PaymentService interface {
	Initiate(ctx context.Context, orderID string) (application.InitiateResult, error)
	Verify(ctx context.Context, p application.VerifyParams) (domain.Payment, error)
	Refund(ctx context.Context, orderID string, amountCents *int64) (domain.Payment, error)
}

type Handler struct {
	log     *slog.Logger
	service PaymentService
	tracer  trace.Tracer
	dev     bool
}

func NewHandler(log *slog.Logger, service PaymentService, dev bool) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("payment-http"),
		dev:     dev,
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/initiate", h.initiate)
	r.Post("/verify", h.verify)
	r.With(auth.RequireStaff).Post("/refund/{orderID}", h.refund)
	return r
}

type initiateReq struct {
	OrderID string `json:"order_id"`
}

func (h *Handler) initiate(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "InitiatePayment")
	defer span.End()

	var req initiateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, h.log, apperr.New(apperr.Validation, "invalid request body"), h.dev)
		return
	}
	if req.OrderID == "" {
		httpx.Error(w, h.log, apperr.New(apperr.Validation, "order_id is required"), h.dev)
		return
	}

	res, err := h.service.Initiate(ctx, req.OrderID)
	if err != nil {
		httpx.Error(w, h.log, err, h.dev)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

type verifyReq struct {
	OrderID           string `json:"order_id"`
	ProviderOrderID   string `json:"provider_order_id"`
	ProviderPaymentID string `json:"provider_payment_id"`
	Signature         string `json:"signature"`
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "VerifyPayment")
	defer span.End()

	var req verifyReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, h.log, apperr.New(apperr.Validation, "invalid request body"), h.dev)
		return
	}
	if req.OrderID == "" || req.ProviderPaymentID == "" {
		httpx.Error(w, h.log, apperr.New(apperr.Validation, "order_id and provider_payment_id are required"), h.dev)
		return
	}

	pay, err := h.service.Verify(ctx, application.VerifyParams{
		OrderID:           req.OrderID,
		ProviderOrderID:   req.ProviderOrderID,
		ProviderPaymentID: req.ProviderPaymentID,
		Signature:         req.Signature,
	})
	if err != nil {
		httpx.Error(w, h.log, err, h.dev)
		return
	}
	httpx.JSON(w, http.StatusOK, pay)
}

type refundReq struct {
	AmountCents *int64 `json:"amount_cents"`
}

func (h *Handler) refund(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RefundPayment")
	defer span.End()

	var req refundReq
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.Error(w, h.log, apperr.New(apperr.Validation, "invalid request body"), h.dev)
			return
		}
	}

	pay, err := h.service.Refund(ctx, chi.URLParam(r, "orderID"), req.AmountCents)
	if err != nil {
		httpx.Error(w, h.log, err, h.dev)
		return
	}
	httpx.JSON(w, http.StatusOK, pay)
}
