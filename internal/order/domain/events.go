package domain

// Event types broadcast on the tenant's room.
const (
	EventNewOrder     = "NEW_ORDER"
	EventStatusUpdate = "STATUS_UPDATE"
)

// Event is the wire shape delivered to subscribed staff and guest clients.
type Event struct {
	Type  string `json:"type"`
	Order Order  `json:"order"`
}
