package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/tabletap/tabletap/internal/session/application"
	"github.com/tabletap/tabletap/internal/session/domain"
	"github.com/tabletap/tabletap/pkg/apperr"
	"github.com/tabletap/tabletap/pkg/auth"
	"github.com/tabletap/tabletap/pkg/httpx"
)

type SessionService interface {
	Open(ctx context.Context, p application.OpenParams) (domain.Session, error)
	Get(ctx context.Context, id string) (domain.Session, error)
	Close(ctx context.Context, id string, requestingUserID *string) (domain.Session, error)
	Menu(ctx context.Context, id string) (application.Menu, error)
}

type Handler struct {
	log     *slog.Logger
	service SessionService
	tracer  trace.Tracer
	dev     bool
}

func NewHandler(log *slog.Logger, service SessionService, dev bool) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("session-http"),
		dev:     dev,
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/", h.open)
	r.Get("/{id}", h.get)
	r.Get("/{id}/menu", h.menu)
	r.Post("/{id}/close", h.close)
	return r
}

type openSessionReq struct {
	SpaceCode   string  `json:"space_code"`
	TTLMinutes  int     `json:"ttl_minutes"`
	GuestName   *string `json:"guest_name"`
	ChairNumber *int    `json:"chair_number"`
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "OpenSession")
	defer span.End()

	var req openSessionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, h.log, apperr.New(apperr.Validation, "invalid request body"), h.dev)
		return
	}

	params := application.OpenParams{
		SpaceCode:   req.SpaceCode,
		TTLMinutes:  req.TTLMinutes,
		GuestName:   req.GuestName,
		ChairNumber: req.ChairNumber,
		UserID:      userID(r),
	}
	sess, err := h.service.Open(ctx, params)
	if err != nil {
		httpx.Error(w, h.log, err, h.dev)
		return
	}
	httpx.JSON(w, http.StatusCreated, sess)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, h.log, err, h.dev)
		return
	}
	httpx.JSON(w, http.StatusOK, sess)
}

func (h *Handler) menu(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SessionMenu")
	defer span.End()

	menu, err := h.service.Menu(ctx, chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, h.log, err, h.dev)
		return
	}
	httpx.JSON(w, http.StatusOK, menu)
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CloseSession")
	defer span.End()

	sess, err := h.service.Close(ctx, chi.URLParam(r, "id"), userID(r))
	if err != nil {
		httpx.Error(w, h.log, err, h.dev)
		return
	}
	httpx.JSON(w, http.StatusOK, sess)
}

func userID(r *http.Request) *string {
	if claims, ok := auth.FromContext(r.Context()); ok && claims.UserID != "" {
		return &claims.UserID
	}
	return nil
}
