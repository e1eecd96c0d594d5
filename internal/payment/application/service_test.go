package application

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefleet/commerce-core/internal/payment/domain"
	"github.com/storefleet/commerce-core/internal/payment/infrastructure/memory"
)

func newTestService() *Service {
	return NewService(slog.Default(), memory.NewRepository())
}

func TestService_ProcessCompletesSynchronously(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	p, err := svc.Process(ctx, "order-1", "user-1", 9000, domain.USD, domain.MethodCreditCard)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, p.Status)
	assert.NotEmpty(t, p.ID)
	assert.NotEmpty(t, p.TransactionID)
	assert.NotEqual(t, p.ID, p.TransactionID)
}

func TestService_ProcessIsIdempotentPerOrder(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	first, err := svc.Process(ctx, "order-1", "user-1", 9000, domain.USD, domain.MethodCreditCard)
	require.NoError(t, err)

	_, err = svc.Process(ctx, "order-1", "user-1", 9000, domain.USD, domain.MethodCreditCard)
	require.ErrorIs(t, err, domain.ErrDuplicatePayment)

	// Still exactly one record, the original.
	got, err := svc.GetByOrderID(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, first.TransactionID, got.TransactionID)
}

func TestService_RefundThenReprocess(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	p, err := svc.Process(ctx, "order-1", "user-1", 5000, domain.EUR, domain.MethodPaypal)
	require.NoError(t, err)

	refunded, err := svc.Refund(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRefunded, refunded.Status)
	assert.Equal(t, p.TransactionID, refunded.TransactionID)

	// Refunding again is an invalid state transition.
	_, err = svc.Refund(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	// The refunded payment no longer blocks a fresh charge.
	_, err = svc.Process(ctx, "order-1", "user-1", 5000, domain.EUR, domain.MethodPaypal)
	assert.NoError(t, err)
}

func TestService_RefundUnknownPayment(t *testing.T) {
	svc := newTestService()
	_, err := svc.Refund(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_ProcessValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Process(ctx, "order-1", "user-1", 0, domain.USD, domain.MethodCreditCard)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = svc.Process(ctx, "order-1", "user-1", 100, domain.Currency("BTC"), domain.MethodCreditCard)
	assert.ErrorIs(t, err, domain.ErrBadCurrency)
}

func TestService_ListByUser(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Process(ctx, "order-1", "user-1", 100, domain.USD, domain.MethodCreditCard)
	require.NoError(t, err)
	_, err = svc.Process(ctx, "order-2", "user-1", 200, domain.USD, domain.MethodCreditCard)
	require.NoError(t, err)
	_, err = svc.Process(ctx, "order-3", "user-2", 300, domain.USD, domain.MethodCreditCard)
	require.NoError(t, err)

	payments, err := svc.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, payments, 2)
}
