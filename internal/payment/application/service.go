package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	order "github.com/tabletap/tabletap/internal/order/domain"
	"github.com/tabletap/tabletap/internal/payment/domain"
	"github.com/tabletap/tabletap/internal/payment/gateway"
	"github.com/tabletap/tabletap/pkg/apperr"
)

type Service struct {
	log      *slog.Logger
	repo     PaymentRepository
	orders   OrderGateway
	tenants  TenantReader
	provider gateway.Gateway
	nopay    gateway.Gateway
	now      func() time.Time
}

// NewService wires the settlement flow. provider handles tenants that require
// payment; nopay serves free orders and payment-exempt tenants.
func NewService(log *slog.Logger, repo PaymentRepository, orders OrderGateway, tenants TenantReader, provider, nopay gateway.Gateway) *Service {
	return &Service{
		log:      log,
		repo:     repo,
		orders:   orders,
		tenants:  tenants,
		provider: provider,
		nopay:    nopay,
		now:      time.Now,
	}
}

// InitiateResult carries the client-facing fields needed to complete
// checkout. KeyID is the provider public key; the secret never leaves the
// server.
type InitiateResult struct {
	PaymentID       string        `json:"payment_id"`
	OrderID         string        `json:"order_id"`
	Provider        string        `json:"provider"`
	ProviderOrderID string        `json:"provider_order_id,omitempty"`
	AmountCents     int64         `json:"amount_cents"`
	Currency        string        `json:"currency"`
	KeyID           string        `json:"key_id,omitempty"`
	Status          domain.Status `json:"status"`
}

// Initiate starts or resumes settlement for an order. Re-invoking while a
// payment is PENDING returns the existing provider reference rather than
// registering a second provider order.
func (s *Service) Initiate(ctx context.Context, orderID string) (InitiateResult, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return InitiateResult{}, err
	}

	cfg, err := s.tenants.Config(ctx, o.TenantID)
	if err != nil {
		return InitiateResult{}, err
	}

	existing, err := s.repo.FindByOrder(ctx, orderID)
	switch {
	case err == nil:
		switch existing.Status {
		case domain.StatusCompleted, domain.StatusPartiallyRefunded, domain.StatusRefunded:
			return InitiateResult{}, apperr.New(apperr.InvalidState, "order is already paid")
		case domain.StatusPending:
			return s.result(existing, cfg), nil
		case domain.StatusFailed:
			return s.reinitiate(ctx, o, cfg, existing)
		}
	case errors.Is(err, pgx.ErrNoRows):
		// First settlement attempt for this order.
	default:
		return InitiateResult{}, err
	}

	if !cfg.RequiresPayment || o.TotalCents == 0 {
		return s.waive(ctx, o, cfg)
	}

	po, err := s.provider.CreateOrder(ctx, creds(cfg), o.TotalCents, cfg.Currency, o.Number)
	if err != nil {
		return InitiateResult{}, err
	}

	now := s.now().UTC()
	p := domain.Payment{
		ID:              uuid.NewString(),
		OrderID:         o.ID,
		Provider:        cfg.Provider,
		AmountCents:     o.TotalCents,
		Currency:        cfg.Currency,
		Status:          domain.StatusPending,
		ProviderOrderID: &po.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return InitiateResult{}, err
	}
	return s.result(p, cfg), nil
}

// waive settles a zero-total or payment-exempt order locally and advances it
// to ACCEPTED.
func (s *Service) waive(ctx context.Context, o order.Order, cfg TenantConfig) (InitiateResult, error) {
	now := s.now().UTC()
	p := domain.Payment{
		ID:          uuid.NewString(),
		OrderID:     o.ID,
		Provider:    ProviderNoPay,
		AmountCents: o.TotalCents,
		Currency:    cfg.Currency,
		Status:      domain.StatusCompleted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return InitiateResult{}, err
	}
	if _, err := s.orders.UpdateStatus(ctx, o.ID, order.StatusAccepted, o.TenantID); err != nil {
		return InitiateResult{}, err
	}
	return s.result(p, cfg), nil
}

// reinitiate retries settlement after a failed verification. The unique
// payment row per order is reset to PENDING under a fresh provider order.
func (s *Service) reinitiate(ctx context.Context, o order.Order, cfg TenantConfig, failed domain.Payment) (InitiateResult, error) {
	if !cfg.RequiresPayment || o.TotalCents == 0 {
		return InitiateResult{}, apperr.New(apperr.InvalidState, "payment is not required for this order")
	}
	po, err := s.provider.CreateOrder(ctx, creds(cfg), o.TotalCents, cfg.Currency, o.Number)
	if err != nil {
		return InitiateResult{}, err
	}
	p, err := s.repo.Reinitiate(ctx, failed.ID, po.ID)
	if err != nil {
		return InitiateResult{}, err
	}
	return s.result(p, cfg), nil
}

type VerifyParams struct {
	OrderID           string
	ProviderOrderID   string
	ProviderPaymentID string
	Signature         string
}

// Verify authenticates a client-reported checkout result. A signature
// mismatch marks the payment FAILED. Re-invoking after success with the same
// provider payment id is a no-op, so clients can safely retry after a
// timeout.
func (s *Service) Verify(ctx context.Context, p VerifyParams) (domain.Payment, error) {
	o, err := s.orders.Get(ctx, p.OrderID)
	if err != nil {
		return domain.Payment{}, err
	}

	pay, err := s.findPayment(ctx, p.OrderID)
	if err != nil {
		return domain.Payment{}, err
	}
	if pay.Status == domain.StatusCompleted {
		if pay.ProviderPaymentID != nil && *pay.ProviderPaymentID == p.ProviderPaymentID {
			return pay, nil
		}
		return domain.Payment{}, apperr.New(apperr.InvalidState, "order is already paid")
	}
	if pay.Status != domain.StatusPending {
		return domain.Payment{}, apperr.Newf(apperr.InvalidState, "payment is %s", pay.Status)
	}

	cfg, err := s.tenants.Config(ctx, o.TenantID)
	if err != nil {
		return domain.Payment{}, err
	}

	verr := s.gatewayFor(pay.Provider).Verify(ctx, creds(cfg), gateway.VerifyParams{
		ProviderOrderID:   p.ProviderOrderID,
		ProviderPaymentID: p.ProviderPaymentID,
		Signature:         p.Signature,
	})
	if verr != nil {
		if errors.Is(verr, gateway.ErrSignatureMismatch) {
			if err := s.repo.MarkFailed(ctx, pay.ID); err != nil {
				s.log.Error("marking payment failed", "payment_id", pay.ID, "err", err)
			}
			return domain.Payment{}, apperr.New(apperr.InvalidState, "payment verification failed")
		}
		return domain.Payment{}, verr
	}

	completed, err := s.repo.MarkCompleted(ctx, pay.ID, p.ProviderPaymentID, p.Signature)
	if err != nil {
		return domain.Payment{}, err
	}
	if _, err := s.orders.UpdateStatus(ctx, o.ID, order.StatusAccepted, o.TenantID); err != nil {
		return domain.Payment{}, err
	}
	return completed, nil
}

// Refund issues a full or partial refund. A nil amount refunds whatever
// remains.
func (s *Service) Refund(ctx context.Context, orderID string, amountCents *int64) (domain.Payment, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Payment{}, err
	}

	pay, err := s.findPayment(ctx, orderID)
	if err != nil {
		return domain.Payment{}, err
	}
	if !pay.Refundable() {
		return domain.Payment{}, apperr.New(apperr.InvalidState, "refund requires a completed payment")
	}

	amount := pay.RemainingCents()
	if amountCents != nil {
		amount = *amountCents
	}
	if amount <= 0 || amount > pay.RemainingCents() {
		return domain.Payment{}, apperr.New(apperr.InvalidState, "refund amount exceeds the remaining payment amount")
	}

	cfg, err := s.tenants.Config(ctx, o.TenantID)
	if err != nil {
		return domain.Payment{}, err
	}

	var providerPaymentID string
	if pay.ProviderPaymentID != nil {
		providerPaymentID = *pay.ProviderPaymentID
	}
	if err := s.gatewayFor(pay.Provider).Refund(ctx, creds(cfg), providerPaymentID, amount); err != nil {
		return domain.Payment{}, err
	}

	return s.repo.RecordRefund(ctx, pay.ID, amount)
}

func (s *Service) findPayment(ctx context.Context, orderID string) (domain.Payment, error) {
	pay, err := s.repo.FindByOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Payment{}, apperr.New(apperr.NotFound, "payment not found")
		}
		return domain.Payment{}, err
	}
	return pay, nil
}

func (s *Service) gatewayFor(provider string) gateway.Gateway {
	if provider == ProviderNoPay {
		return s.nopay
	}
	return s.provider
}

func (s *Service) result(p domain.Payment, cfg TenantConfig) InitiateResult {
	r := InitiateResult{
		PaymentID:   p.ID,
		OrderID:     p.OrderID,
		Provider:    p.Provider,
		AmountCents: p.AmountCents,
		Currency:    p.Currency,
		Status:      p.Status,
	}
	if p.ProviderOrderID != nil {
		r.ProviderOrderID = *p.ProviderOrderID
	}
	if p.Provider != ProviderNoPay {
		r.KeyID = cfg.KeyID
	}
	return r
}

func creds(cfg TenantConfig) gateway.Credentials {
	return gateway.Credentials{KeyID: cfg.KeyID, Secret: cfg.Secret}
}
