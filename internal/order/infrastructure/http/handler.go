package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/tabletap/tabletap/internal/order/application"
	"github.com/tabletap/tabletap/internal/order/domain"
	"github.com/tabletap/tabletap/pkg/apperr"
	"github.com/tabletap/tabletap/pkg/auth"
	"github.com/tabletap/tabletap/pkg/httpx"
)

type OrderService interface {
	Create(ctx context.Context, p application.CreateParams) (domain.Order, error)
	Get(ctx context.Context, id string) (domain.Order, error)
	ListBySession(ctx context.Context, sessionID string) ([]domain.Order, error)
	ListByTenant(ctx context.Context, tenantID string, status *domain.Status, limit, offset int) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, target domain.Status, tenantID string) (domain.Order, error)
}

type Handler struct {
	log     *slog.Logger
	service OrderService
	tracer  trace.Tracer
	dev     bool
}

func NewHandler(log *slog.Logger, service OrderService, dev bool) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("order-http"),
		dev:     dev,
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/", h.create)
	r.With(auth.RequireStaff).Get("/", h.listByTenant)
	r.Get("/{id}", h.get)
	r.Get("/session/{sessionID}", h.listBySession)
	r.With(auth.RequireStaff).Patch("/{id}/status", h.updateStatus)
	return r
}

type createLineReq struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes"`
}

type createOrderReq struct {
	SessionID   string          `json:"session_id"`
	Items       []createLineReq `json:"items"`
	CouponCode  *string         `json:"coupon_code"`
	ChairNumber *int            `json:"chair_number"`
	Notes       string          `json:"notes"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateOrder")
	defer span.End()

	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, h.log, apperr.New(apperr.Validation, "invalid request body"), h.dev)
		return
	}
	if req.SessionID == "" {
		httpx.Error(w, h.log, apperr.New(apperr.Validation, "session_id is required"), h.dev)
		return
	}

	params := application.CreateParams{
		SessionID:   req.SessionID,
		CouponCode:  req.CouponCode,
		ChairNumber: req.ChairNumber,
		Notes:       req.Notes,
		UserID:      userID(r),
	}
	for _, line := range req.Items {
		params.Items = append(params.Items, application.LineParams{
			ItemID:   line.ItemID,
			Quantity: line.Quantity,
			Notes:    line.Notes,
		})
	}

	o, err := h.service.Create(ctx, params)
	if err != nil {
		httpx.Error(w, h.log, err, h.dev)
		return
	}
	httpx.JSON(w, http.StatusCreated, o)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, h.log, err, h.dev)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *Handler) listBySession(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListBySession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		httpx.Error(w, h.log, err, h.dev)
		return
	}
	httpx.JSON(w, http.StatusOK, orders)
}

func (h *Handler) listByTenant(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.FromContext(r.Context())

	var status *domain.Status
	if s := r.URL.Query().Get("status"); s != "" {
		st := domain.Status(s)
		status = &st
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	orders, err := h.service.ListByTenant(r.Context(), claims.TenantID, status, limit, offset)
	if err != nil {
		httpx.Error(w, h.log, err, h.dev)
		return
	}
	httpx.JSON(w, http.StatusOK, orders)
}

type updateStatusReq struct {
	Status domain.Status `json:"status"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateOrderStatus")
	defer span.End()

	var req updateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, h.log, apperr.New(apperr.Validation, "invalid request body"), h.dev)
		return
	}

	claims, _ := auth.FromContext(r.Context())
	o, err := h.service.UpdateStatus(ctx, chi.URLParam(r, "id"), req.Status, claims.TenantID)
	if err != nil {
		httpx.Error(w, h.log, err, h.dev)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func userID(r *http.Request) *string {
	if claims, ok := auth.FromContext(r.Context()); ok && claims.UserID != "" {
		return &claims.UserID
	}
	return nil
}
