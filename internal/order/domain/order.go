package domain

import "time"

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusAccepted  Status = "ACCEPTED"
	StatusPreparing Status = "PREPARING"
	StatusReady     Status = "READY"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusAccepted, StatusCancelled},
	StatusAccepted:  {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCancelled},
	StatusReady:     {StatusDelivered, StatusCancelled},
	StatusDelivered: {},
	StatusCancelled: {},
}

// Valid reports whether s is one of the five lifecycle statuses.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no further transition leaves s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0 && s.Valid()
}

// CanTransitionTo enforces the forward-only lifecycle. Repeating the current
// status is allowed (idempotent no-op); moving backward or skipping ahead is
// not.
func (s Status) CanTransitionTo(target Status) bool {
	if s == target {
		return true
	}
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Item is a line on an order. Unit price and display name are snapshots
// taken at order time, independent of later catalog edits.
type Item struct {
	ID             string `json:"id"`
	ItemID         string `json:"item_id"`
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	LineTotalCents int64  `json:"line_total_cents"`
	Notes          string `json:"notes,omitempty"`
}

// Order is placed against an active session. Orders are never deleted; a
// cancelled order keeps its lines and its cancellation timestamp.
type Order struct {
	ID            string     `json:"id"`
	Number        string     `json:"order_number"`
	TenantID      string     `json:"tenant_id"`
	SessionID     string     `json:"session_id"`
	SpaceID       string     `json:"space_id"`
	UserID        *string    `json:"user_id,omitempty"`
	CouponID      *string    `json:"coupon_id,omitempty"`
	Items         []Item     `json:"items"`
	SubtotalCents int64      `json:"subtotal_cents"`
	DiscountCents int64      `json:"discount_cents"`
	TotalCents    int64      `json:"total_cents"`
	Status        Status     `json:"status"`
	ChairNumber   *int       `json:"chair_number,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	PlacedAt      time.Time  `json:"placed_at"`
	AcceptedAt    *time.Time `json:"accepted_at,omitempty"`
	PreparingAt   *time.Time `json:"preparing_at,omitempty"`
	ReadyAt       *time.Time `json:"ready_at,omitempty"`
	DeliveredAt   *time.Time `json:"delivered_at,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TimestampColumn names the orders column recording when the given status
// was first reached. PENDING has no column; placed_at covers it.
func TimestampColumn(s Status) (string, bool) {
	switch s {
	case StatusAccepted:
		return "accepted_at", true
	case StatusPreparing:
		return "preparing_at", true
	case StatusReady:
		return "ready_at", true
	case StatusDelivered:
		return "delivered_at", true
	case StatusCancelled:
		return "cancelled_at", true
	}
	return "", false
}

// Recalculate derives subtotal and total from the lines and the discount,
// clamping the total at zero.
func (o *Order) Recalculate() {
	var subtotal int64
	for i := range o.Items {
		o.Items[i].LineTotalCents = o.Items[i].UnitPriceCents * int64(o.Items[i].Quantity)
		subtotal += o.Items[i].LineTotalCents
	}
	o.SubtotalCents = subtotal
	if o.DiscountCents > subtotal {
		o.DiscountCents = subtotal
	}
	o.TotalCents = subtotal - o.DiscountCents
}
