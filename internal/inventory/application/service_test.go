package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefleet/commerce-core/internal/inventory/domain"
	"github.com/storefleet/commerce-core/internal/inventory/infrastructure/memory"
)

func newTestService(t *testing.T) (*Service, *memory.Repository) {
	t.Helper()
	repo := memory.NewRepository()
	return NewService(slog.Default(), repo), repo
}

func TestService_ReserveHappyPath(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddStock(ctx, "prod-1", 10, "main")
	require.NoError(t, err)

	rec, err := svc.Reserve(ctx, "prod-1", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, rec.Reserved)
	assert.Equal(t, 6, rec.Available())
}

func TestService_ReserveUnknownProduct(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Reserve(context.Background(), "nope", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_ReserveInsufficientLeavesStateUntouched(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddStock(ctx, "prod-1", 3, "")
	require.NoError(t, err)

	_, err = svc.Reserve(ctx, "prod-1", 5)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	rec, err := svc.GetByProductID(ctx, "prod-1")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Reserved)
	assert.Equal(t, 3, rec.OnHand)
}

func TestService_ReleaseIsClampedAndRepeatable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddStock(ctx, "prod-1", 5, "")
	require.NoError(t, err)
	_, err = svc.Reserve(ctx, "prod-1", 2)
	require.NoError(t, err)

	rec, err := svc.Release(ctx, "prod-1", 10)
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Reserved)

	rec, err = svc.Release(ctx, "prod-1", 10)
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Reserved)
}

func TestService_AdjustOnHandKeepsReservations(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddStock(ctx, "prod-1", 5, "")
	require.NoError(t, err)
	_, err = svc.Reserve(ctx, "prod-1", 3)
	require.NoError(t, err)

	rec, err := svc.AdjustOnHand(ctx, "prod-1", 20)
	require.NoError(t, err)
	assert.Equal(t, 20, rec.OnHand)
	assert.Equal(t, 3, rec.Reserved)

	_, err = svc.AdjustOnHand(ctx, "prod-1", 1)
	assert.ErrorIs(t, err, domain.ErrBelowReserved)
}

func TestService_CheckAvailabilityIsAdvisory(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddStock(ctx, "prod-1", 5, "")
	require.NoError(t, err)

	ok, err := svc.CheckAvailability(ctx, "prod-1", 5)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CheckAvailability(ctx, "prod-1", 6)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.CheckAvailability(ctx, "nope", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// Competing reservations on one product must never oversell, whatever the
// interleaving: successes alone account for the reserved total.
func TestService_ConcurrentReserveNeverOversells(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	const onHand = 30
	const workers = 100

	_, err := svc.AddStock(ctx, "hot-product", onHand, "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Reserve(ctx, "hot-product", 1)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded int
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			require.True(t,
				errors.Is(err, domain.ErrInsufficientStock) || errors.Is(err, domain.ErrVersionConflict),
				"unexpected error: %v", err)
		}
	}

	rec, err := svc.GetByProductID(ctx, "hot-product")
	require.NoError(t, err)
	assert.Equal(t, succeeded, rec.Reserved)
	assert.LessOrEqual(t, rec.Reserved, onHand)
	assert.GreaterOrEqual(t, rec.Available(), 0)
}
