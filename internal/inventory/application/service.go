package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/storefleet/commerce-core/internal/inventory/domain"
)

// maxCASAttempts bounds the optimistic retry loop on hot products.
const maxCASAttempts = 5

type Service struct {
	log  *slog.Logger
	repo StockRepository
}

func NewService(log *slog.Logger, repo StockRepository) *Service {
	return &Service{log: log, repo: repo}
}

func (s *Service) AddStock(ctx context.Context, productID string, onHand int, warehouse string) (domain.StockRecord, error) {
	rec, err := domain.NewStockRecord(productID, onHand, warehouse)
	if err != nil {
		return domain.StockRecord{}, err
	}
	return s.repo.Create(ctx, rec)
}

// Reserve places a hold on available stock. Concurrent reservations on the
// same product are serialized by the repository's version check; on conflict
// the whole read-modify-write is retried against fresh state.
func (s *Service) Reserve(ctx context.Context, productID string, qty int) (domain.StockRecord, error) {
	return s.mutate(ctx, productID, func(rec *domain.StockRecord) error {
		return rec.Reserve(qty)
	})
}

// Release drops a hold. Over-release clamps to zero and succeeds, so
// order compensations can call it any number of times.
func (s *Service) Release(ctx context.Context, productID string, qty int) (domain.StockRecord, error) {
	return s.mutate(ctx, productID, func(rec *domain.StockRecord) error {
		rec.Release(qty)
		return nil
	})
}

func (s *Service) AdjustOnHand(ctx context.Context, productID string, newQty int) (domain.StockRecord, error) {
	return s.mutate(ctx, productID, func(rec *domain.StockRecord) error {
		return rec.SetOnHand(newQty)
	})
}

// CheckAvailability is advisory: a reservation made on the strength of a
// positive answer can still fail if another order gets there first.
func (s *Service) CheckAvailability(ctx context.Context, productID string, qty int) (bool, error) {
	rec, err := s.repo.GetByProductID(ctx, productID)
	if err != nil {
		return false, err
	}
	return rec.CanReserve(qty), nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (domain.StockRecord, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByProductID(ctx context.Context, productID string) (domain.StockRecord, error) {
	return s.repo.GetByProductID(ctx, productID)
}

func (s *Service) List(ctx context.Context) ([]domain.StockRecord, error) {
	return s.repo.List(ctx)
}

func (s *Service) mutate(ctx context.Context, productID string, fn func(*domain.StockRecord) error) (domain.StockRecord, error) {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		rec, err := s.repo.GetByProductID(ctx, productID)
		if err != nil {
			return domain.StockRecord{}, err
		}
		if err := fn(&rec); err != nil {
			return domain.StockRecord{}, err
		}
		updated, err := s.repo.Update(ctx, rec)
		if errors.Is(err, domain.ErrVersionConflict) {
			s.log.Debug("stock update conflict, retrying", "product_id", productID, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return domain.StockRecord{}, err
		}
		return updated, nil
	}
	return domain.StockRecord{}, fmt.Errorf("product %s: %w", productID, domain.ErrVersionConflict)
}
