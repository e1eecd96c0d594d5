package domain

import "encoding/json"

const (
	EventOrderCreated       = "order.created"
	EventOrderConfirmed     = "order.confirmed"
	EventOrderCancelled     = "order.cancelled"
	EventOrderStatusChanged = "order.status_changed"

	AggregateOrder = "order"
)

type OrderEventPayload struct {
	OrderID          string `json:"orderId"`
	UserID           string `json:"userId"`
	Status           string `json:"status"`
	PreviousStatus   string `json:"previousStatus,omitempty"`
	TotalAmountCents int64  `json:"totalAmountCents"`
	Reason           string `json:"reason,omitempty"`
}

func MarshalEvent(o Order, prev Status, reason string) json.RawMessage {
	b, _ := json.Marshal(OrderEventPayload{
		OrderID:          o.ID,
		UserID:           o.UserID,
		Status:           string(o.Status),
		PreviousStatus:   string(prev),
		TotalAmountCents: o.TotalAmountCents,
		Reason:           reason,
	})
	return b
}

// EventTypeFor maps a status to the event published when an order
// reaches it.
func EventTypeFor(s Status) string {
	switch s {
	case StatusConfirmed:
		return EventOrderConfirmed
	case StatusCancelled:
		return EventOrderCancelled
	default:
		return EventOrderStatusChanged
	}
}
