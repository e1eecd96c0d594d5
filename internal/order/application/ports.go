package application

import (
	"context"
	"errors"
	"time"

	"github.com/storefleet/commerce-core/internal/order/domain"
	"github.com/storefleet/commerce-core/pkg/outbox"
)

// Errors surfaced by downstream service clients. The HTTP clients map
// wire error codes back onto these so the workflow can branch with
// errors.Is.
var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicatePayment  = errors.New("payment already exists for order")
	ErrPaymentDeclined   = errors.New("payment declined")
)

// OrderRepository persists orders. SaveWithOutbox writes the order and
// its outbox events in a single transaction so no event is published
// for state that was never committed.
type OrderRepository interface {
	SaveWithOutbox(ctx context.Context, o domain.Order, events []outbox.Event) error
	GetByID(ctx context.Context, id string) (domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]domain.Order, error)
}

// InventoryClient fronts the inventory service.
type InventoryClient interface {
	Reserve(ctx context.Context, productID string, qty int) error
	Release(ctx context.Context, productID string, qty int) error
	CheckAvailability(ctx context.Context, productID string, qty int) (bool, error)
}

// PaymentClient fronts the payment service.
type PaymentClient interface {
	Process(ctx context.Context, orderID, userID string, amountCents int64, currency, method string) (string, error)
	Refund(ctx context.Context, paymentID string) error
	GetByOrderID(ctx context.Context, orderID string) (PaymentInfo, error)
}

type PaymentInfo struct {
	ID     string
	Status string
}
