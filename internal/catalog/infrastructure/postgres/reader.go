package postgres

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tabletap/tabletap/internal/catalog/domain"
)

// Reader serves read-only catalog lookups. Stock mutation happens inside the
// order repository's transaction, never here.
type Reader struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewReader(log *slog.Logger, pool *pgxpool.Pool) *Reader {
	return &Reader{log: log, pool: pool}
}

// ItemsByIDs returns the requested items keyed by id, scoped to the tenant.
// Absent ids are simply missing from the map.
func (r *Reader) ItemsByIDs(ctx context.Context, tenantID string, ids []string) (map[string]domain.Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, COALESCE(category_id, ''), name, description, price_cents, is_free, available, active, stock
		FROM menu_items
		WHERE tenant_id = $1 AND id = ANY($2)
	`, tenantID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make(map[string]domain.Item, len(ids))
	for rows.Next() {
		var it domain.Item
		if err := rows.Scan(&it.ID, &it.TenantID, &it.CategoryID, &it.Name, &it.Description, &it.PriceCents, &it.IsFree, &it.Available, &it.Active, &it.Stock); err != nil {
			return nil, err
		}
		items[it.ID] = it
	}
	return items, rows.Err()
}

// Menu returns the tenant's active categories with their active items,
// ordered for display.
func (r *Reader) Menu(ctx context.Context, tenantID string) ([]domain.Category, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.name,
		       i.id, i.tenant_id, COALESCE(i.category_id, ''), i.name, i.description, i.price_cents, i.is_free, i.available, i.active, i.stock
		FROM categories c
		JOIN menu_items i ON i.category_id = c.id AND i.active
		WHERE c.tenant_id = $1 AND c.active
		ORDER BY c.sort_order, c.name, i.name
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []domain.Category
	index := map[string]int{}
	for rows.Next() {
		var catID, catName string
		var it domain.Item
		if err := rows.Scan(&catID, &catName, &it.ID, &it.TenantID, &it.CategoryID, &it.Name, &it.Description, &it.PriceCents, &it.IsFree, &it.Available, &it.Active, &it.Stock); err != nil {
			return nil, err
		}
		pos, ok := index[catID]
		if !ok {
			pos = len(categories)
			index[catID] = pos
			categories = append(categories, domain.Category{ID: catID, Name: catName})
		}
		categories[pos].Items = append(categories[pos].Items, it)
	}
	return categories, rows.Err()
}
