package domain

// Item is a catalog entry as the ordering core sees it. Stock is nil when the
// item does not track finite inventory.
type Item struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenant_id"`
	CategoryID  string `json:"category_id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	PriceCents  int64  `json:"price_cents"`
	IsFree      bool   `json:"is_free"`
	Available   bool   `json:"available"`
	Active      bool   `json:"active"`
	Stock       *int32 `json:"stock,omitempty"`
}

// Orderable reports whether the item can appear on a new order at all;
// stock sufficiency is checked separately against the requested quantity.
func (i Item) Orderable() bool {
	return i.Active && i.Available
}

// UnitPrice is the price snapshot taken at order time. Free items snapshot
// to zero regardless of the listed price.
func (i Item) UnitPrice() int64 {
	if i.IsFree {
		return 0
	}
	return i.PriceCents
}

type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Items []Item `json:"items"`
}
