package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tabletap/tabletap/internal/coupon/application"
	"github.com/tabletap/tabletap/pkg/apperr"
	"github.com/tabletap/tabletap/pkg/auth"
	"github.com/tabletap/tabletap/pkg/httpx"
)

type CouponService interface {
	Validate(ctx context.Context, tenantID, code string, orderCents int64, userID *string) (application.Quote, error)
}

type Handler struct {
	log     *slog.Logger
	service CouponService
	dev     bool
}

func NewHandler(log *slog.Logger, service CouponService, dev bool) *Handler {
	return &Handler{log: log, service: service, dev: dev}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.With(auth.RequireAuth).Post("/validate", h.validate)
	return r
}

type validateReq struct {
	Code             string `json:"code"`
	OrderAmountCents int64  `json:"order_amount_cents"`
}

func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	var req validateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, h.log, apperr.New(apperr.Validation, "invalid request body"), h.dev)
		return
	}
	if req.Code == "" || req.OrderAmountCents <= 0 {
		httpx.Error(w, h.log, apperr.New(apperr.Validation, "code and a positive order_amount_cents are required"), h.dev)
		return
	}

	claims, _ := auth.FromContext(r.Context())
	var userID *string
	if claims.UserID != "" {
		userID = &claims.UserID
	}

	quote, err := h.service.Validate(r.Context(), claims.TenantID, req.Code, req.OrderAmountCents, userID)
	if err != nil {
		httpx.Error(w, h.log, err, h.dev)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}
