package application

import (
	"context"

	"github.com/storefleet/commerce-core/internal/payment/domain"
)

type PaymentRepository interface {
	// Create persists a new payment. Returns domain.ErrDuplicatePayment
	// when the order already has an active (non-refunded, non-failed) one;
	// the check and the insert are a single atomic step.
	Create(ctx context.Context, p domain.Payment) error
	Update(ctx context.Context, p domain.Payment) error
	GetByID(ctx context.Context, id string) (domain.Payment, error)
	GetByOrderID(ctx context.Context, orderID string) (domain.Payment, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Payment, error)
}
