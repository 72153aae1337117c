package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tabletap/tabletap/internal/session/application"
	"github.com/tabletap/tabletap/internal/session/domain"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) ResolveSpace(ctx context.Context, code string) (application.Space, error) {
	var sp application.Space
	err := r.pool.QueryRow(ctx, `SELECT id, tenant_id, active FROM spaces WHERE code = $1`, code).
		Scan(&sp.ID, &sp.TenantID, &sp.Active)
	return sp, err
}

func (r *Repository) Create(ctx context.Context, s domain.Session) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (id, tenant_id, space_id, user_id, guest_name, chair_number, status, expires_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, s.ID, s.TenantID, s.SpaceID, s.UserID, s.GuestName, s.ChairNumber, s.Status, s.ExpiresAt, s.CreatedAt, s.UpdatedAt)
	return err
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Session, error) {
	var s domain.Session
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, space_id, user_id, guest_name, chair_number, status, expires_at, created_at, updated_at
		FROM sessions WHERE id = $1
	`, id).Scan(&s.ID, &s.TenantID, &s.SpaceID, &s.UserID, &s.GuestName, &s.ChairNumber, &s.Status, &s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r *Repository) Probe(ctx context.Context, id string) (domain.Status, time.Time, error) {
	var status domain.Status
	var expiresAt time.Time
	err := r.pool.QueryRow(ctx, `SELECT status, expires_at FROM sessions WHERE id = $1`, id).
		Scan(&status, &expiresAt)
	return status, expiresAt, err
}

func (r *Repository) Close(ctx context.Context, id string) (domain.Session, error) {
	var s domain.Session
	err := r.pool.QueryRow(ctx, `
		UPDATE sessions SET status = 'CLOSED', updated_at = now()
		WHERE id = $1
		RETURNING id, tenant_id, space_id, user_id, guest_name, chair_number, status, expires_at, created_at, updated_at
	`, id).Scan(&s.ID, &s.TenantID, &s.SpaceID, &s.UserID, &s.GuestName, &s.ChairNumber, &s.Status, &s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}
